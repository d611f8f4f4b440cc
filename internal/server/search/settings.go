package search

import (
	"errors"
	"fmt"
	"slices"
)

// DefaultPaginationCeiling bounds how many hits a query can page through.
const DefaultPaginationCeiling int64 = 1000

var ErrInvalidSettings = errors.New("invalid index settings")

// Settings describes how an index is searched. Searchable order is the
// attribute ranking order; Filterable and Sortable are sets.
type Settings struct {
	PaginationCeiling int64
	Searchable        []string
	Filterable        []string
	Sortable          []string
}

func DefaultSettings() Settings {
	return Settings{
		PaginationCeiling: DefaultPaginationCeiling,
		Searchable: []string{
			"id", "name", "email", "phone", "date_of_birth", "age", "city", "state",
			"direction", "country", "postal_code", "created_at", "updated_at", "deleted_at",
		},
		Filterable: []string{"city", "state", "direction", "country", "age", "created_at", "deleted_at"},
		Sortable:   []string{"name", "city", "country", "created_at"},
	}
}

// Validate checks the settings can be applied.
func (s Settings) Validate() error {
	if s.PaginationCeiling <= 0 {
		return fmt.Errorf("%w: pagination ceiling must be positive, got %d", ErrInvalidSettings, s.PaginationCeiling)
	}
	if len(s.Searchable) == 0 {
		return fmt.Errorf("%w: no searchable attributes", ErrInvalidSettings)
	}
	for _, attrs := range [][]string{s.Searchable, s.Filterable, s.Sortable} {
		for _, a := range attrs {
			if _, ok := (Document{}).Field(a); !ok {
				return fmt.Errorf("%w: unknown attribute %q", ErrInvalidSettings, a)
			}
		}
	}
	return nil
}

// Normalized returns a copy with duplicates removed and deleted_at filterable,
// so live-only filtering is always possible.
func (s Settings) Normalized() Settings {
	out := Settings{
		PaginationCeiling: s.PaginationCeiling,
		Searchable:        dedupe(s.Searchable),
		Filterable:        dedupe(append(slices.Clone(s.Filterable), "deleted_at")),
		Sortable:          dedupe(s.Sortable),
	}
	return out
}

// Equal compares searchable attributes in order and the other lists as sets.
func (s Settings) Equal(o Settings) bool {
	return s.PaginationCeiling == o.PaginationCeiling &&
		slices.Equal(s.Searchable, o.Searchable) &&
		sameSet(s.Filterable, o.Filterable) &&
		sameSet(s.Sortable, o.Sortable)
}

// IsFilterable reports whether attr may be used in filters.
func (s Settings) IsFilterable(attr string) bool {
	return slices.Contains(s.Filterable, attr)
}

func (s Settings) IsSortable(attr string) bool {
	return slices.Contains(s.Sortable, attr)
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func sameSet(a, b []string) bool {
	a, b = dedupe(a), dedupe(b)
	if len(a) != len(b) {
		return false
	}
	for _, v := range a {
		if !slices.Contains(b, v) {
			return false
		}
	}
	return true
}
