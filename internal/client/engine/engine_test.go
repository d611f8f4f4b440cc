package engine

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/fastsearch/internal/client/api"
	"github.com/dmitrijs2005/fastsearch/internal/logging"
)

type fakeFetcher struct {
	mu      sync.Mutex
	queries []api.Query
	respond func(ctx context.Context, q api.Query) (*api.Page, error)
}

func (f *fakeFetcher) FetchUsers(ctx context.Context, q api.Query) (*api.Page, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()
	return f.respond(ctx, q)
}

func (f *fakeFetcher) calls() []api.Query {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]api.Query(nil), f.queries...)
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func start(t *testing.T, f Fetcher, cfg Config, opts ...Option) *Engine {
	t.Helper()
	e := New(f, cfg, opts...)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		assert.ErrorIs(t, <-done, context.Canceled)
	})
	return e
}

func fullPage(_ context.Context, q api.Query) (*api.Page, error) {
	return &api.Page{Results: hits(q.Term, q.Limit), Total: 100, Latency: time.Millisecond}, nil
}

func TestEngine_DebouncesKeystrokes(t *testing.T) {
	f := &fakeFetcher{respond: fullPage}
	e := start(t, f, Config{Debounce: 30 * time.Millisecond, PageSize: 10, RetrievalCeiling: 1000})

	e.SetTerm("a")
	e.SetTerm("ab")
	e.SetTerm("abc")

	require.Eventually(t, func() bool {
		return len(e.Snapshot().Results) == 10
	}, time.Second, 5*time.Millisecond)

	time.Sleep(60 * time.Millisecond)
	calls := f.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, api.Query{Term: "abc", Page: 1, Limit: 10}, calls[0])
	assert.Equal(t, "abc", e.Snapshot().SearchTerm)
}

func TestEngine_ScrollAppendsPages(t *testing.T) {
	f := &fakeFetcher{respond: fullPage}
	var changes sync.Map
	e := start(t, f, Config{Debounce: 10 * time.Millisecond, PageSize: 10, RetrievalCeiling: 30},
		WithOnChange(func(s State) { changes.Store(s.Phase, true) }))

	e.SetTerm("onta")
	require.Eventually(t, func() bool { return len(e.Snapshot().Results) == 10 }, time.Second, 5*time.Millisecond)

	e.ScrollNearEnd()
	require.Eventually(t, func() bool { return len(e.Snapshot().Results) == 20 }, time.Second, 5*time.Millisecond)

	e.ScrollNearEnd()
	require.Eventually(t, func() bool { return len(e.Snapshot().Results) == 30 }, time.Second, 5*time.Millisecond)

	st := e.Snapshot()
	assert.False(t, st.HasMore)
	assert.Equal(t, 3, st.CurrentPage)
	assert.Equal(t, "onta-0", st.Results[20].ID())

	e.ScrollNearEnd()
	time.Sleep(30 * time.Millisecond)
	assert.Len(t, f.calls(), 3)

	_, sawNext := changes.Load(FetchingNextPage)
	assert.True(t, sawNext)
}

func TestEngine_DiscardsStaleResponse(t *testing.T) {
	release := make(chan struct{})
	f := &fakeFetcher{respond: func(ctx context.Context, q api.Query) (*api.Page, error) {
		if q.Term == "slow" {
			<-release
		}
		return fullPage(ctx, q)
	}}
	logs := &lockedBuffer{}
	e := start(t, f, Config{Debounce: 10 * time.Millisecond, PageSize: 10, RetrievalCeiling: 1000},
		WithLogger(logging.New(logs, logging.FormatText, "debug")))

	e.SetTerm("slow")
	require.Eventually(t, func() bool { return len(f.calls()) == 1 }, time.Second, 5*time.Millisecond)

	e.SetTerm("fast")
	require.Eventually(t, func() bool { return len(e.Snapshot().Results) == 10 }, time.Second, 5*time.Millisecond)

	close(release)
	require.Eventually(t, func() bool {
		return strings.Contains(logs.String(), "discarded stale response")
	}, time.Second, 5*time.Millisecond)

	st := e.Snapshot()
	assert.Equal(t, "fast", st.SearchTerm)
	assert.Equal(t, "fast-0", st.Results[0].ID())
}

func TestEngine_RecordsFetchError(t *testing.T) {
	boom := errors.New("connection refused")
	f := &fakeFetcher{respond: func(context.Context, api.Query) (*api.Page, error) {
		return nil, boom
	}}
	e := start(t, f, Config{Debounce: 10 * time.Millisecond, PageSize: 10, RetrievalCeiling: 1000})

	e.SetTerm("a")
	require.Eventually(t, func() bool { return e.Snapshot().LastError != nil }, time.Second, 5*time.Millisecond)

	st := e.Snapshot()
	assert.ErrorIs(t, st.LastError, boom)
	assert.Equal(t, FirstPage, st.LastError.Kind)
	assert.False(t, st.HasMore)
	assert.Equal(t, Idle, st.Phase)
}

func TestEngine_DefaultDebounce(t *testing.T) {
	e := New(&fakeFetcher{respond: fullPage}, Config{PageSize: 10, RetrievalCeiling: 100})
	assert.Equal(t, DefaultDebounce, e.debounce)
	assert.Equal(t, Idle, e.Snapshot().Phase)
}
