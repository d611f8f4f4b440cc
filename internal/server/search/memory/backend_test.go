package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dmitrijs2005/fastsearch/internal/common"
	"github.com/dmitrijs2005/fastsearch/internal/server/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const idx = "users"

func doc(id, name, email, city string) search.Document {
	return search.Document{
		ID:          id,
		Name:        name,
		Email:       email,
		City:        city,
		Country:     "Chile",
		DateOfBirth: "1970-01-01",
		Age:         "40",
		CreatedAt:   1700000000,
		UpdatedAt:   search.ZeroTimestamp,
		DeletedAt:   search.ZeroTimestamp,
	}
}

func newConfigured(t *testing.T, s search.Settings, docs ...search.Document) *Backend {
	t.Helper()
	ctx := context.Background()
	b := New()
	require.NoError(t, b.EnsureIndex(ctx, idx, search.PrimaryKey))
	require.NoError(t, b.UpdateSettings(ctx, idx, s.Normalized()))
	require.NoError(t, b.AddDocuments(ctx, idx, docs))
	return b
}

func nameEmailSettings(ceiling int64) search.Settings {
	return search.Settings{
		PaginationCeiling: ceiling,
		Searchable:        []string{"name", "email"},
		Filterable:        []string{"city"},
		Sortable:          []string{"name", "created_at"},
	}
}

func hitIDs(r *search.Result) []string {
	ids := make([]string, len(r.Hits))
	for i, h := range r.Hits {
		ids[i] = h.ID
	}
	return ids
}

func TestSearch_HighlightScenario(t *testing.T) {
	b := newConfigured(t, nameEmailSettings(1000),
		doc("1", "Onta Cavalera", "onta@example.com", "Lima"),
		doc("2", "Yajid Laura", "yajid@example.com", "Quito"),
		doc("3", "Laura Ontiveros", "laura.o@example.com", "Lima"),
	)
	ctx := context.Background()

	res, err := b.Search(ctx, idx, search.Query{Term: "onta cavalera", Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, []string{"1"}, hitIDs(res))
	assert.Equal(t, int64(1), res.Total)
	assert.Equal(t, "<em>Onta</em> <em>Cavalera</em>", res.Hits[0].Formatted["name"])
	assert.Equal(t, "<em>onta</em>@example.com", res.Hits[0].Formatted["email"])

	res, err = b.Search(ctx, idx, search.Query{Term: "yajid laura", Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, []string{"2"}, hitIDs(res))
	assert.Equal(t, "<em>Yajid</em> <em>Laura</em>", res.Hits[0].Formatted["name"])
}

func TestSearch_PrefixAndRanking(t *testing.T) {
	b := newConfigured(t, nameEmailSettings(1000),
		doc("1", "Bob Stone", "laura.fan@example.com", "Lima"),
		doc("2", "Laura Palmer", "lp@example.com", "Lima"),
		doc("3", "Lauren Bacall", "lb@example.com", "Lima"),
		doc("4", "Mark Twain", "mt@example.com", "Lima"),
	)

	res, err := b.Search(context.Background(), idx, search.Query{Term: "Laur"})
	require.NoError(t, err)
	// name matches rank before email matches, ties keep insertion order
	assert.Equal(t, []string{"2", "3", "1"}, hitIDs(res))
	assert.Equal(t, int64(3), res.Total)
}

func TestSearch_EmptyTermListsAllLive(t *testing.T) {
	deleted := doc("2", "Gone Person", "g@example.com", "Lima")
	deleted.DeletedAt = 1710000000

	b := newConfigured(t, nameEmailSettings(1000),
		doc("1", "Anna A", "a@example.com", "Lima"),
		deleted,
		doc("3", "Anna C", "c@example.com", "Lima"),
	)

	res, err := b.Search(context.Background(), idx, search.Query{})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "3"}, hitIDs(res))
	assert.Equal(t, 1, res.Page)
	assert.Equal(t, search.DefaultLimit, res.Limit)
}

func TestSearch_PaginationCeiling(t *testing.T) {
	docs := make([]search.Document, 30)
	for i := range docs {
		docs[i] = doc(fmt.Sprintf("%02d", i), fmt.Sprintf("Anna %02d", i), fmt.Sprintf("anna%d@example.com", i), "Lima")
	}
	b := newConfigured(t, nameEmailSettings(25), docs...)
	ctx := context.Background()

	res, err := b.Search(ctx, idx, search.Query{Term: "anna", Page: 3, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(25), res.Total, "total is capped by the ceiling")
	assert.Len(t, res.Hits, 5)

	res, err = b.Search(ctx, idx, search.Query{Term: "anna", Page: 4, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, res.Hits)
	assert.Equal(t, int64(25), res.Total)
}

func TestSearch_FilterAndSort(t *testing.T) {
	b := newConfigured(t, nameEmailSettings(1000),
		doc("1", "Carla", "c@example.com", "Lima"),
		doc("2", "Ana", "a@example.com", "Quito"),
		doc("3", "Bea", "b@example.com", "Lima"),
	)
	ctx := context.Background()

	res, err := b.Search(ctx, idx, search.Query{Filter: map[string]string{"city": "Lima"}, Sort: []string{"name:asc"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "1"}, hitIDs(res))

	res, err = b.Search(ctx, idx, search.Query{Sort: []string{"name:desc"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "3", "2"}, hitIDs(res))

	res, err = b.Search(ctx, idx, search.Query{Filter: map[string]string{"city": "Oslo"}})
	require.NoError(t, err)
	assert.Empty(t, res.Hits)

	_, err = b.Search(ctx, idx, search.Query{Filter: map[string]string{"email": "x"}})
	assert.ErrorIs(t, err, common.ErrInvalidArgument)

	_, err = b.Search(ctx, idx, search.Query{Sort: []string{"email:asc"}})
	assert.ErrorIs(t, err, common.ErrInvalidArgument)
}

func TestAddDocuments_UpsertReplacesPostings(t *testing.T) {
	b := newConfigured(t, nameEmailSettings(1000), doc("1", "Old Name", "o@example.com", "Lima"))
	ctx := context.Background()

	require.NoError(t, b.AddDocuments(ctx, idx, []search.Document{doc("1", "New Name", "n@example.com", "Quito")}))

	res, err := b.Search(ctx, idx, search.Query{Term: "old"})
	require.NoError(t, err)
	assert.Empty(t, res.Hits)

	res, err = b.Search(ctx, idx, search.Query{Term: "new"})
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, hitIDs(res))

	res, err = b.Search(ctx, idx, search.Query{Filter: map[string]string{"city": "Lima"}})
	require.NoError(t, err)
	assert.Empty(t, res.Hits)

	got, err := b.GetDocument(ctx, idx, "1")
	require.NoError(t, err)
	assert.Equal(t, "New Name", got.Name)
	assert.Nil(t, got.Formatted)
}

func TestAddDocuments_RejectsMissingID(t *testing.T) {
	b := New()
	err := b.AddDocuments(context.Background(), idx, []search.Document{doc("", "x", "y", "z")})
	assert.ErrorIs(t, err, common.ErrInvalidArgument)
}

func TestGetDocument_NotFound(t *testing.T) {
	b := New()
	ctx := context.Background()

	_, err := b.GetDocument(ctx, "nope", "1")
	assert.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, b.EnsureIndex(ctx, idx, "id"))
	_, err = b.GetDocument(ctx, idx, "1")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSettings_FreshIndexAndReindex(t *testing.T) {
	b := New()
	ctx := context.Background()
	require.NoError(t, b.EnsureIndex(ctx, idx, "id"))
	require.NoError(t, b.AddDocuments(ctx, idx, []search.Document{doc("1", "Anna", "zed@example.com", "Lima")}))

	s, err := b.GetSettings(ctx, idx)
	require.NoError(t, err)
	assert.Equal(t, search.DefaultPaginationCeiling, s.PaginationCeiling)
	assert.Contains(t, s.Searchable, "email")

	res, err := b.Search(ctx, idx, search.Query{Term: "zed"})
	require.NoError(t, err)
	assert.Len(t, res.Hits, 1)

	require.NoError(t, b.UpdateSettings(ctx, idx, search.Settings{PaginationCeiling: 10, Searchable: []string{"name"}}))
	res, err = b.Search(ctx, idx, search.Query{Term: "zed"})
	require.NoError(t, err)
	assert.Empty(t, res.Hits, "email no longer searchable after reindex")
}

func TestCanceledContext(t *testing.T) {
	b := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, b.EnsureIndex(ctx, idx, "id"), context.Canceled)
	_, err := b.Search(ctx, idx, search.Query{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSearch_ProcessingTimeRecorded(t *testing.T) {
	b := newConfigured(t, nameEmailSettings(1000), doc("1", "Anna", "a@example.com", "Lima"))
	res, err := b.Search(context.Background(), idx, search.Query{Term: "anna"})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.ProcessingTime, time.Duration(0))
}
