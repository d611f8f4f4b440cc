package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/fastsearch/internal/dbx"
	"github.com/dmitrijs2005/fastsearch/internal/server/repositories/users"
	_ "modernc.org/sqlite"
)

// SQLiteRepositoryManager vends SQLite-backed repositories.
type SQLiteRepositoryManager struct{}

func (m *SQLiteRepositoryManager) Dialect() dbx.Dialect { return dbx.SQLite }

func (m *SQLiteRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	return runMigrations(ctx, db, dbx.SQLite)
}
