package server

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/dmitrijs2005/fastsearch/internal/logging"
	"github.com/dmitrijs2005/fastsearch/internal/server/config"
	"github.com/dmitrijs2005/fastsearch/internal/server/search"
	"github.com/dmitrijs2005/fastsearch/internal/server/search/memory"
	"github.com/dmitrijs2005/fastsearch/internal/server/syncer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	c := &config.Config{}
	c.LoadDefaults()
	c.DatabaseDriver = "sqlite"
	c.DatabaseDSN = "file:" + t.Name() + "?mode=memory&cache=shared"
	c.SearchBackend = config.BackendMemory
	c.Count = 23
	c.BatchSize = 10
	c.Workers = 2
	c.Seed = 11
	return c
}

func newTestApp(t *testing.T, c *config.Config) *App {
	t.Helper()
	app, err := NewApp(c, WithLogger(logging.NewNopLogger()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func TestRun_SeedsBothStores(t *testing.T) {
	c := testConfig(t)
	app := newTestApp(t, c)
	ctx := context.Background()

	require.NoError(t, app.Run(ctx))

	n, err := app.Users().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(23), n)

	res, err := app.Backend().Search(ctx, c.IndexName, search.Query{Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, int64(23), res.Total)

	s, err := app.Backend().GetSettings(ctx, c.IndexName)
	require.NoError(t, err)
	assert.Equal(t, search.DefaultSettings().Searchable, s.Searchable)
	assert.True(t, s.IsFilterable("deleted_at"))
}

func TestSeed_ReportsBatches(t *testing.T) {
	app := newTestApp(t, testConfig(t))
	ctx := context.Background()
	require.NoError(t, app.ConfigureIndex(ctx))

	summary, err := app.Seed(ctx, 23)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Batches)
	assert.Equal(t, 23, summary.Records)
}

func TestSnapshotAndReseed(t *testing.T) {
	c := testConfig(t)
	c.SnapshotPath = filepath.Join(t.TempDir(), "seed.ndjson.zst")
	app := newTestApp(t, c)
	ctx := context.Background()

	require.NoError(t, app.Run(ctx))

	// replaying the same records: the index converges, the store rejects duplicates
	summary, err := app.Reseed(ctx, c.SnapshotPath)
	var perr *syncer.PartialSyncError
	require.ErrorAs(t, err, &perr)
	assert.Zero(t, summary.Batches)

	n, err := app.Users().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(23), n)

	res, err := app.Backend().Search(ctx, c.IndexName, search.Query{Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, int64(23), res.Total)
}

func TestReseed_IntoFreshStores(t *testing.T) {
	first := testConfig(t)
	first.SnapshotPath = filepath.Join(t.TempDir(), "seed.ndjson.zst")
	require.NoError(t, newTestApp(t, first).Run(context.Background()))

	second := testConfig(t)
	second.DatabaseDSN = "file:" + t.Name() + "_fresh?mode=memory&cache=shared"
	second.ReseedPath = first.SnapshotPath
	second.Count = 0
	backend := memory.New()
	app, err := NewApp(second, WithLogger(logging.NewNopLogger()), WithBackend(backend))
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	require.NoError(t, app.Run(context.Background()))

	n, err := app.Users().Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(23), n)
}

func TestRun_ReconcilesStoreIntoEmptyIndex(t *testing.T) {
	c := testConfig(t)
	require.NoError(t, newTestApp(t, c).Run(context.Background()))

	again := testConfig(t)
	again.ReconcileSince = "2000-01-01T00:00:00Z"
	backend := memory.New()
	app, err := NewApp(again, WithLogger(logging.NewNopLogger()), WithBackend(backend))
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	require.NoError(t, app.Run(context.Background()))

	res, err := backend.Search(context.Background(), again.IndexName, search.Query{Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, int64(23), res.Total)

	n, err := app.Users().Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(23), n, "reconcile does not write the store")
}

func TestRun_CanceledContext(t *testing.T) {
	app := newTestApp(t, testConfig(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, app.Run(ctx))
}

func TestNewApp_Errors(t *testing.T) {
	c := testConfig(t)
	c.BatchSize = 0
	_, err := NewApp(c)
	assert.Error(t, err)

	c = testConfig(t)
	c.DatabaseDriver = "oracle"
	_, err = NewApp(c)
	assert.Error(t, err)
}

// stubSignals records registrations made through the signal seams.
type stubSignals struct {
	mu         sync.Mutex
	registered chan<- os.Signal
	stopped    bool
}

func installStubSignals(t *testing.T) *stubSignals {
	t.Helper()
	st := &stubSignals{}
	origNotify, origStop := notifySignals, stopSignals
	notifySignals = func(c chan<- os.Signal, _ ...os.Signal) {
		st.mu.Lock()
		st.registered = c
		st.mu.Unlock()
	}
	stopSignals = func(c chan<- os.Signal) {
		st.mu.Lock()
		st.stopped = c == st.registered
		st.mu.Unlock()
	}
	t.Cleanup(func() { notifySignals, stopSignals = origNotify, origStop })
	return st
}

func (st *stubSignals) isStopped() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.stopped
}

func TestInitSignalHandler_ReleasesOnContextDone(t *testing.T) {
	st := installStubSignals(t)
	app := &App{}

	ctx, cancel := context.WithCancel(context.Background())
	canceledBySignal := false
	app.initSignalHandler(ctx, func() { canceledBySignal = true })

	cancel()
	require.Eventually(t, st.isStopped, time.Second, 5*time.Millisecond)
	assert.False(t, canceledBySignal)
}

func TestInitSignalHandler_CancelsOnSignal(t *testing.T) {
	st := installStubSignals(t)
	app := &App{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	app.initSignalHandler(ctx, cancel)

	st.mu.Lock()
	sigs := st.registered
	st.mu.Unlock()
	require.NotNil(t, sigs)
	sigs <- syscall.SIGTERM

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context was not canceled by SIGTERM")
	}
	require.Eventually(t, st.isStopped, time.Second, 5*time.Millisecond)
}
