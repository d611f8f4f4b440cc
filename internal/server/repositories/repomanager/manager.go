// Package repomanager vends dialect-specific repositories and applies the
// embedded schema migrations with goose.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/fastsearch/internal/dbx"
	"github.com/dmitrijs2005/fastsearch/internal/server/migrations"
	"github.com/dmitrijs2005/fastsearch/internal/server/repositories/users"
	"github.com/pressly/goose/v3"
)

type RepositoryManager interface {
	Dialect() dbx.Dialect
	RunMigrations(ctx context.Context, db *sql.DB) error
	Users(db dbx.DBTX) users.Repository
}

// New returns the manager for the given dialect.
func New(d dbx.Dialect) (RepositoryManager, error) {
	switch d {
	case dbx.Postgres:
		return &PostgresRepositoryManager{}, nil
	case dbx.SQLite:
		return &SQLiteRepositoryManager{}, nil
	}
	return nil, fmt.Errorf("no repository manager for dialect %q", d)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

func runMigrations(ctx context.Context, db *sql.DB, d dbx.Dialect) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect(d.GooseDialect()); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
