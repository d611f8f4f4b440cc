package users

import "github.com/dmitrijs2005/fastsearch/internal/dbx"

// PostgresRepository stores users in PostgreSQL through the pgx stdlib driver.
type PostgresRepository struct {
	sqlRepository
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{sqlRepository{db: db, dialect: dbx.Postgres}}
}
