package users

import "github.com/dmitrijs2005/fastsearch/internal/dbx"

// SQLiteRepository stores users in SQLite (modernc.org/sqlite). It backs
// local runs and tests.
type SQLiteRepository struct {
	sqlRepository
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{sqlRepository{db: db, dialect: dbx.SQLite}}
}
