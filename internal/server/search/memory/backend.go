// Package memory is an in-process search backend built on roaring bitmaps.
// It serves local seeding runs and tests with the same query semantics the
// Meilisearch backend offers: prefix matching on the last query word,
// attribute-ranked hits, equality filters, a pagination ceiling and
// <em>-highlighted _formatted variants.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/dmitrijs2005/fastsearch/internal/common"
	"github.com/dmitrijs2005/fastsearch/internal/server/search"
)

type Backend struct {
	mu      sync.RWMutex
	indexes map[string]*index
}

var _ search.Backend = (*Backend)(nil)

func New() *Backend {
	return &Backend{indexes: make(map[string]*index)}
}

func (b *Backend) lookup(name string) (*index, error) {
	ix, ok := b.indexes[name]
	if !ok {
		return nil, fmt.Errorf("index %q: %w", name, common.ErrNotFound)
	}
	return ix, nil
}

func (b *Backend) EnsureIndex(ctx context.Context, name, primaryKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.indexes[name]; !ok {
		b.indexes[name] = newIndex(primaryKey)
	}
	return nil
}

func (b *Backend) GetSettings(ctx context.Context, name string) (search.Settings, error) {
	if err := ctx.Err(); err != nil {
		return search.Settings{}, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	ix, err := b.lookup(name)
	if err != nil {
		return search.Settings{}, err
	}
	s := ix.settings
	s.Searchable = slices.Clone(ix.searchable())
	s.Filterable = slices.Clone(s.Filterable)
	s.Sortable = slices.Clone(s.Sortable)
	return s, nil
}

func (b *Backend) UpdateSettings(ctx context.Context, name string, s search.Settings) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	ix, err := b.lookup(name)
	if err != nil {
		return err
	}
	ix.settings = search.Settings{
		PaginationCeiling: s.PaginationCeiling,
		Searchable:        slices.Clone(s.Searchable),
		Filterable:        slices.Clone(s.Filterable),
		Sortable:          slices.Clone(s.Sortable),
	}
	ix.reindex()
	return nil
}

// AddDocuments upserts docs, creating the index on first use the way
// Meilisearch does. A batch with an invalid document is rejected whole.
func (b *Backend) AddDocuments(ctx context.Context, name string, docs []search.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, d := range docs {
		if d.ID == "" {
			return fmt.Errorf("%w: document without id", common.ErrInvalidArgument)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	ix, ok := b.indexes[name]
	if !ok {
		ix = newIndex(search.PrimaryKey)
		b.indexes[name] = ix
	}
	for _, d := range docs {
		if err := ix.upsert(d); err != nil {
			return err
		}
	}
	return nil
}

func (b *Backend) GetDocument(ctx context.Context, name, id string) (*search.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	ix, err := b.lookup(name)
	if err != nil {
		return nil, err
	}
	slot, ok := ix.slots[id]
	if !ok {
		return nil, fmt.Errorf("document %q: %w", id, common.ErrNotFound)
	}
	d := ix.docs[slot]
	return &d, nil
}

// Search returns one page of live documents. Pages past the pagination
// ceiling are empty and Total never exceeds it.
func (b *Backend) Search(ctx context.Context, name string, q search.Query) (*search.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	q = q.Normalized()

	// sortedTerms may rebuild its cache, so searches take the write lock.
	b.mu.Lock()
	defer b.mu.Unlock()

	ix, err := b.lookup(name)
	if err != nil {
		return nil, err
	}

	tokens := tokenize(q.Term)
	set, err := ix.candidates(tokens, q.Filter)
	if err != nil {
		return nil, err
	}

	slots := set.ToArray()
	m := newMatcher(tokens)
	if err := ix.order(slots, m, q.Sort); err != nil {
		return nil, err
	}

	ceiling := int(ix.settings.PaginationCeiling)
	if len(slots) > ceiling {
		slots = slots[:ceiling]
	}

	res := &search.Result{
		Total: int64(len(slots)),
		Page:  q.Page,
		Limit: q.Limit,
	}

	if off := q.Offset(); off < len(slots) {
		end := min(off+q.Limit, len(slots))
		res.Hits = make([]search.Document, 0, end-off)
		for _, s := range slots[off:end] {
			d := ix.docs[s]
			d.Formatted = ix.formatted(d, m)
			res.Hits = append(res.Hits, d)
		}
	}

	res.ProcessingTime = time.Since(start)
	return res, nil
}
