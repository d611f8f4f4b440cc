package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/fastsearch/internal/client/api"
	"github.com/dmitrijs2005/fastsearch/internal/client/config"
	"github.com/dmitrijs2005/fastsearch/internal/client/engine"
	"github.com/dmitrijs2005/fastsearch/internal/logging"
)

// searchEngine is the part of engine.Engine the App drives.
type searchEngine interface {
	Run(ctx context.Context) error
	SetTerm(term string)
	ScrollNearEnd()
	Snapshot() engine.State
}

type App struct {
	config  *config.Config
	logger  logging.Logger
	engine  searchEngine
	changed chan struct{}
	view    *view
	in      io.Reader
}

func NewApp(c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	logger := logging.New(os.Stderr, logging.FormatText, c.LogLevel)
	client := api.New(c.APIBaseURL, api.WithTimeout(c.RequestTimeout))

	a := &App{
		config:  c,
		logger:  logger,
		changed: make(chan struct{}, 1),
		view:    newView(os.Stdout),
		in:      os.Stdin,
	}
	a.engine = engine.New(client, engine.Config{
		Debounce:         c.Debounce,
		PageSize:         c.PageSize,
		RetrievalCeiling: c.RetrievalCeiling,
	}, engine.WithLogger(logger), engine.WithOnChange(a.notify))

	return a, nil
}

func (a *App) notify(engine.State) {
	select {
	case a.changed <- struct{}{}:
	default:
	}
}

// Run starts the engine loop and the REPL. It returns when the user exits,
// input ends or ctx is canceled.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- a.engine.Run(ctx) }()

	printlnFn(fmt.Sprintf("Searching %s (type 'help' for commands)", a.config.APIBaseURL))
	runREPL(ctx, a, a.prompt, bufio.NewScanner(a.in))

	cancel()
	<-done
	return nil
}

func (a *App) prompt() string {
	return fmt.Sprintf("search %q> ", a.engine.Snapshot().SearchTerm)
}

// Search sets the search term.
func (a *App) Search(ctx context.Context, term string) error {
	return a.apply(ctx, func() { a.engine.SetTerm(term) })
}

// More requests the next page and prints the grown result list.
func (a *App) More(ctx context.Context) error {
	before := a.engine.Snapshot()
	if err := a.apply(ctx, a.engine.ScrollNearEnd); err != nil {
		return err
	}
	s, err := a.settle(ctx)
	if err != nil {
		return err
	}
	if !before.HasMore || (s.CurrentPage == before.CurrentPage && s.LastError == nil) {
		printlnFn("No more results.")
		return nil
	}
	a.view.table(s, engine.DefaultFields)
	return nil
}

// Show waits for pending work and prints the accumulated results.
func (a *App) Show(ctx context.Context) error {
	s, err := a.settle(ctx)
	if err != nil {
		return err
	}
	a.view.table(s, engine.DefaultFields)
	return nil
}

func (a *App) Status(context.Context) error {
	a.view.status(a.engine.Snapshot())
	return nil
}

// apply runs send and waits for the engine to publish the resulting state.
// Every accepted input is followed by one publication.
func (a *App) apply(ctx context.Context, send func()) error {
	select {
	case <-a.changed:
	default:
	}
	send()

	select {
	case <-a.changed:
		return nil
	case <-time.After(time.Second):
		return fmt.Errorf("search engine not responding")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// settle waits until the engine is idle, bounded by the debounce delay plus
// the request timeout.
func (a *App) settle(ctx context.Context) (engine.State, error) {
	timeout := time.NewTimer(a.config.Debounce + a.config.RequestTimeout + time.Second)
	defer timeout.Stop()

	for {
		s := a.engine.Snapshot()
		if s.Phase == engine.Idle {
			return s, nil
		}
		select {
		case <-a.changed:
		case <-time.After(10 * time.Millisecond):
		case <-timeout.C:
			return s, fmt.Errorf("search still %s", s.Phase)
		case <-ctx.Done():
			return s, ctx.Err()
		}
	}
}
