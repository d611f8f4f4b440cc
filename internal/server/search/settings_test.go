package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSettings_Validate(t *testing.T) {
	assert.NoError(t, DefaultSettings().Validate())

	s := DefaultSettings()
	s.PaginationCeiling = 0
	assert.ErrorIs(t, s.Validate(), ErrInvalidSettings)

	s = DefaultSettings()
	s.Searchable = nil
	assert.ErrorIs(t, s.Validate(), ErrInvalidSettings)

	s = DefaultSettings()
	s.Sortable = []string{"salary"}
	assert.ErrorIs(t, s.Validate(), ErrInvalidSettings)
}

func TestSettings_Normalized(t *testing.T) {
	s := Settings{
		PaginationCeiling: 5,
		Searchable:        []string{"name", "email", "name"},
		Filterable:        []string{"city"},
	}
	n := s.Normalized()
	assert.Equal(t, []string{"name", "email"}, n.Searchable)
	assert.ElementsMatch(t, []string{"city", "deleted_at"}, n.Filterable)
	assert.True(t, n.IsFilterable("deleted_at"))
	assert.False(t, n.IsSortable("name"))
}

func TestSettings_Equal(t *testing.T) {
	a := DefaultSettings()
	b := DefaultSettings()
	b.Filterable = []string{"deleted_at", "created_at", "age", "country", "direction", "state", "city"}
	assert.True(t, a.Equal(b), "filterable compared as set")

	c := DefaultSettings()
	c.Searchable[0], c.Searchable[1] = c.Searchable[1], c.Searchable[0]
	assert.False(t, a.Equal(c), "searchable order matters")

	d := DefaultSettings()
	d.PaginationCeiling = 500
	assert.False(t, a.Equal(d))
}

func TestSortKey(t *testing.T) {
	attr, desc, err := SortKey("name:desc")
	assert.NoError(t, err)
	assert.Equal(t, "name", attr)
	assert.True(t, desc)

	attr, desc, err = SortKey("city")
	assert.NoError(t, err)
	assert.Equal(t, "city", attr)
	assert.False(t, desc)

	_, _, err = SortKey("city:sideways")
	assert.Error(t, err)
}

func TestQuery_Normalized(t *testing.T) {
	q := Query{Term: "  ana "}.Normalized()
	assert.Equal(t, "ana", q.Term)
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, DefaultLimit, q.Limit)
	assert.Equal(t, 0, q.Offset())

	assert.Equal(t, 20, Query{Page: 3, Limit: 10}.Offset())
}
