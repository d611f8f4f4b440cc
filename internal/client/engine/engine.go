package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/fastsearch/internal/client/api"
	"github.com/dmitrijs2005/fastsearch/internal/logging"
)

const DefaultDebounce = 300 * time.Millisecond

// Fetcher executes one page query.
type Fetcher interface {
	FetchUsers(ctx context.Context, q api.Query) (*api.Page, error)
}

type Config struct {
	Debounce         time.Duration
	PageSize         int
	RetrievalCeiling int
}

type event interface{}

type (
	termEvent     struct{ term string }
	scrollEvent   struct{}
	debounceEvent struct{ generation uint64 }
	responseEvent struct{ resp Response }
)

// Engine runs a Machine on a single goroutine. Inputs and fetch results are
// serialized through one channel, so state is only touched by Run.
type Engine struct {
	machine  *Machine
	fetcher  Fetcher
	debounce time.Duration
	logger   logging.Logger

	events   chan event
	done     chan struct{}
	doneOnce sync.Once
	snapshot atomic.Pointer[State]
	onChange func(State)

	timer   *time.Timer
	fetches sync.WaitGroup
}

type Option func(*Engine)

// WithOnChange registers fn to be called from the loop goroutine after every
// state change. fn must not block.
func WithOnChange(fn func(State)) Option {
	return func(e *Engine) { e.onChange = fn }
}

func WithLogger(l logging.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func New(f Fetcher, cfg Config, opts ...Option) *Engine {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	e := &Engine{
		machine:  NewMachine(cfg.PageSize, cfg.RetrievalCeiling),
		fetcher:  f,
		debounce: cfg.Debounce,
		logger:   logging.NewNopLogger(),
		events:   make(chan event, 64),
		done:     make(chan struct{}),
	}
	for _, o := range opts {
		o(e)
	}
	initial := e.machine.State()
	e.snapshot.Store(&initial)
	return e
}

// SetTerm reports a change of the search input.
func (e *Engine) SetTerm(term string) {
	e.post(termEvent{term: term})
}

// ScrollNearEnd reports that the viewer reached the end of the results.
func (e *Engine) ScrollNearEnd() {
	e.post(scrollEvent{})
}

// Snapshot returns the latest published state.
func (e *Engine) Snapshot() State {
	return e.snapshot.Load().Clone()
}

func (e *Engine) post(ev event) {
	select {
	case e.events <- ev:
	case <-e.done:
	}
}

// Run processes events until ctx is canceled. In-flight fetches are
// allowed to finish against the canceled context before Run returns.
func (e *Engine) Run(ctx context.Context) error {
	defer func() {
		e.doneOnce.Do(func() { close(e.done) })
		if e.timer != nil {
			e.timer.Stop()
		}
		e.fetches.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-e.events:
			e.handle(ctx, ev)
		}
	}
}

func (e *Engine) handle(ctx context.Context, ev event) {
	var effects []Effect

	switch ev := ev.(type) {
	case termEvent:
		effects = e.machine.TermChanged(ev.term)
	case scrollEvent:
		effects = e.machine.ScrollNearEnd()
	case debounceEvent:
		effects = e.machine.DebounceFired(ev.generation)
	case responseEvent:
		if err := e.machine.ResponseReceived(ev.resp); err != nil {
			if errors.Is(err, ErrStaleResponseDiscarded) {
				e.logger.Debug(ctx, "discarded stale response",
					"term", ev.resp.Request.Term, "page", ev.resp.Request.Page)
				return
			}
		}
	}

	for _, eff := range effects {
		switch eff := eff.(type) {
		case ArmDebounce:
			e.arm(eff.Generation)
		case Fetch:
			e.fetch(ctx, eff.Request)
		}
	}

	e.publish()
}

func (e *Engine) publish() {
	s := e.machine.State()
	e.snapshot.Store(&s)
	if e.onChange != nil {
		e.onChange(s.Clone())
	}
}

func (e *Engine) arm(generation uint64) {
	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = time.AfterFunc(e.debounce, func() {
		e.post(debounceEvent{generation: generation})
	})
}

func (e *Engine) fetch(ctx context.Context, req Request) {
	e.fetches.Add(1)
	go func() {
		defer e.fetches.Done()

		resp := Response{Request: req}
		page, err := e.fetcher.FetchUsers(ctx, api.Query{Term: req.Term, Page: req.Page, Limit: req.Limit})
		if err != nil {
			resp.Err = err
		} else {
			resp.Results = page.Results
			resp.Total = page.Total
			resp.Latency = page.Latency
		}

		e.post(responseEvent{resp: resp})
	}()
}
