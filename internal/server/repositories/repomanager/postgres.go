package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/fastsearch/internal/dbx"
	"github.com/dmitrijs2005/fastsearch/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresRepositoryManager vends PostgreSQL-backed repositories.
type PostgresRepositoryManager struct{}

func (m *PostgresRepositoryManager) Dialect() dbx.Dialect { return dbx.Postgres }

// Users returns a users.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	return runMigrations(ctx, db, dbx.Postgres)
}
