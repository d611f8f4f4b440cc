package snapshot

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/fastsearch/internal/server/models"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func records(n int) []models.User {
	deleted := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.User, n)
	for i := range out {
		out[i] = models.User{
			ID:          string(rune('a'+i%26)) + "-id",
			Name:        "Onta Cavalera",
			Email:       "onta@example.com",
			DateOfBirth: models.Date{Year: 1970, Month: time.June, Day: 1 + i%28},
			Age:         "54",
			CreatedAt:   time.Date(2024, 1, 1, 0, 0, i, 0, time.UTC),
		}
	}
	out[0].DeletedAt = &deleted
	return out
}

func collect(t *testing.T, batches *[][]models.User) func(context.Context, []models.User) error {
	t.Helper()
	return func(_ context.Context, b []models.User) error {
		*batches = append(*batches, b)
		return nil
	}
}

func TestWriteReplay(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	require.NoError(t, err)

	in := records(7)
	require.NoError(t, w.Write(in[:3]))
	require.NoError(t, w.Write(in[3:]))
	assert.Equal(t, 7, w.Count())
	require.NoError(t, w.Close())

	var batches [][]models.User
	n, err := Replay(context.Background(), &buf, 3, collect(t, &batches))
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	require.Len(t, batches, 3)
	assert.Len(t, batches[2], 1)

	var out []models.User
	for _, b := range batches {
		out = append(out, b...)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Fatalf("replayed records differ (-want +got):\n%s", diff)
	}
}

func TestCreateAndReplayFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs", "seed.ndjson.zst")

	w, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, w.Write(records(4)))
	require.NoError(t, w.Close())

	var batches [][]models.User
	n, err := ReplayFile(context.Background(), path, 10, collect(t, &batches))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Len(t, batches, 1)

	_, err = ReplayFile(context.Background(), filepath.Join(t.TempDir(), "missing"), 10, collect(t, &batches))
	assert.Error(t, err)
}

func TestReplay_StopsOnCallbackError(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	require.NoError(t, err)
	require.NoError(t, w.Write(records(5)))
	require.NoError(t, w.Close())

	boom := errors.New("sync failed")
	calls := 0
	n, err := Replay(context.Background(), &buf, 2, func(context.Context, []models.User) error {
		calls++
		if calls == 2 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, calls)
}

func TestReplay_CorruptStream(t *testing.T) {
	_, err := Replay(context.Background(), bytes.NewReader([]byte("not zstd at all")), 2,
		func(context.Context, []models.User) error { return nil })
	assert.Error(t, err)
}
