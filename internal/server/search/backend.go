package search

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	HighlightPreTag  = "<em>"
	HighlightPostTag = "</em>"

	DefaultLimit = 10
)

// SettingsBackend is the part of an index backend used for configuration.
type SettingsBackend interface {
	// EnsureIndex creates the index with the given primary key if absent.
	EnsureIndex(ctx context.Context, index, primaryKey string) error
	GetSettings(ctx context.Context, index string) (Settings, error)
	UpdateSettings(ctx context.Context, index string, s Settings) error
}

// IndexWriter upserts documents by primary key.
type IndexWriter interface {
	AddDocuments(ctx context.Context, index string, docs []Document) error
}

// Backend is a complete search index.
type Backend interface {
	SettingsBackend
	IndexWriter
	Search(ctx context.Context, index string, q Query) (*Result, error)
	// GetDocument returns common.ErrNotFound when id is unknown.
	GetDocument(ctx context.Context, index, id string) (*Document, error)
}

// Query is a paginated, live-only search request. Filter holds equality
// constraints on filterable attributes; Sort holds "attr:asc" or "attr:desc".
type Query struct {
	Term   string
	Page   int
	Limit  int
	Filter map[string]string
	Sort   []string
}

// Normalized fills defaults for page and limit.
func (q Query) Normalized() Query {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	q.Term = strings.TrimSpace(q.Term)
	return q
}

// Offset is the zero-based position of the first hit of the page.
func (q Query) Offset() int {
	return (q.Page - 1) * q.Limit
}

// Result is one page of hits. Total never exceeds the pagination ceiling.
type Result struct {
	Hits           []Document
	Total          int64
	Page           int
	Limit          int
	ProcessingTime time.Duration
}

// SortKey splits "attr:dir" into attribute and descending flag.
func SortKey(s string) (attr string, desc bool, err error) {
	attr, dir, found := strings.Cut(s, ":")
	if !found {
		return attr, false, nil
	}
	switch strings.ToLower(dir) {
	case "asc":
		return attr, false, nil
	case "desc":
		return attr, true, nil
	}
	return "", false, fmt.Errorf("invalid sort direction %q", dir)
}
