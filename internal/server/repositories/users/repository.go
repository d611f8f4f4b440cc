// Package users implements the relational store for synthetic user records.
package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/fastsearch/internal/server/models"
)

// Repository persists users. BulkInsert is all-or-nothing: either every row
// of the batch is committed or none is.
type Repository interface {
	BulkInsert(ctx context.Context, users []models.User) (int64, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	Count(ctx context.Context) (int64, error)
	ListChangedSince(ctx context.Context, since time.Time, afterID string, limit int) ([]models.User, error)
}
