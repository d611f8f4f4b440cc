// Package server wires the seeding pipeline: it opens the relational store,
// applies migrations, configures the search index and then generates (or
// replays) records and dual-writes them batch by batch.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/fastsearch/internal/dbx"
	"github.com/dmitrijs2005/fastsearch/internal/logging"
	"github.com/dmitrijs2005/fastsearch/internal/server/config"
	"github.com/dmitrijs2005/fastsearch/internal/server/generator"
	"github.com/dmitrijs2005/fastsearch/internal/server/models"
	"github.com/dmitrijs2005/fastsearch/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/fastsearch/internal/server/repositories/users"
	"github.com/dmitrijs2005/fastsearch/internal/server/search"
	"github.com/dmitrijs2005/fastsearch/internal/server/search/meili"
	"github.com/dmitrijs2005/fastsearch/internal/server/search/memory"
	"github.com/dmitrijs2005/fastsearch/internal/server/snapshot"
	"github.com/dmitrijs2005/fastsearch/internal/server/syncer"
	"golang.org/x/time/rate"
)

type App struct {
	config       *config.Config
	logger       logging.Logger
	db           *sql.DB
	users        users.Repository
	backend      search.Backend
	configurator *search.Configurator
	generator    *generator.Generator
	syncer       *syncer.Synchronizer
	limiter      *rate.Limiter
}

// Summary totals a seeding run.
type Summary struct {
	Batches  int
	Records  int
	Duration time.Duration
}

type Option func(*App)

func WithLogger(l logging.Logger) Option {
	return func(a *App) { a.logger = l }
}

// WithBackend replaces the backend selected by configuration.
func WithBackend(b search.Backend) Option {
	return func(a *App) { a.backend = b }
}

func NewApp(c *config.Config, opts ...Option) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	app := &App{config: c}
	for _, o := range opts {
		o(app)
	}
	if app.logger == nil {
		app.logger = logging.New(os.Stdout, logging.FormatJSON, c.LogLevel)
	}

	dialect, err := dbx.ParseDialect(c.DatabaseDriver)
	if err != nil {
		return nil, err
	}
	rm, err := repomanager.New(dialect)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(dialect.DriverName(), c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if dialect == dbx.SQLite {
		// one writer at a time; also keeps in-memory databases on one connection
		db.SetMaxOpenConns(1)
	}

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db migrations error: %w", err)
	}

	if app.backend == nil {
		app.backend = newBackend(c)
	}

	app.db = db
	app.users = rm.Users(db)
	app.configurator = search.NewConfigurator(app.backend, app.logger)
	app.generator = generator.New(generator.Config{Workers: c.Workers, Seed: c.Seed})
	app.syncer = syncer.New(app.backend, c.IndexName, app.users, app.logger)
	app.limiter = newLimiter(c.BatchesPerSecond)

	return app, nil
}

func newBackend(c *config.Config) search.Backend {
	if c.SearchBackend == config.BackendMemory {
		return memory.New()
	}
	return meili.New(c.MeiliHost, c.MeiliAPIKey, meili.WithTaskInterval(c.TaskPollInterval))
}

func newLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(perSecond), 1)
}

func (app *App) Close() error {
	return app.db.Close()
}

// Backend exposes the search backend, mainly for verification after a run.
func (app *App) Backend() search.Backend {
	return app.backend
}

func (app *App) Users() users.Repository {
	return app.users
}

// Test seams for signal registration.
var (
	notifySignals = signal.Notify
	stopSignals   = signal.Stop
)

// initSignalHandler cancels on SIGINT, SIGTERM or SIGQUIT. Registration is
// released once a signal arrives or ctx ends.
func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	notifySignals(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer stopSignals(sigs)
		select {
		case <-sigs:
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

// Run configures the index and then seeds, replays the configured
// snapshot, or reconciles the index with the store. SIGINT and SIGTERM
// cancel the run between or inside batches.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	app.initSignalHandler(ctx, cancelFunc)

	app.logger.Info(ctx, "starting seeder",
		"backend", app.config.SearchBackend, "driver", app.config.DatabaseDriver, "index", app.config.IndexName)

	if err := app.ConfigureIndex(ctx); err != nil {
		return err
	}

	since, reconcile, err := app.config.ReconcileTime()
	if err != nil {
		return err
	}
	if reconcile {
		report, err := app.Reconcile(ctx, since)
		if err != nil {
			app.logger.Error(ctx, "reconcile stopped", "error", err,
				"indexed", report.Indexed, "since", report.Since, "after_id", report.AfterID)
			return err
		}
		app.logger.Info(ctx, "reconcile finished",
			"pages", report.Pages, "indexed", report.Indexed, "since", report.Since, "duration", report.Duration)
		return nil
	}

	var summary Summary
	if app.config.ReseedPath != "" {
		summary, err = app.Reseed(ctx, app.config.ReseedPath)
	} else {
		summary, err = app.Seed(ctx, app.config.Count)
	}
	if err != nil {
		app.logger.Error(ctx, "seeding stopped", "error", err, "batches", summary.Batches, "records", summary.Records)
		return err
	}

	app.logger.Info(ctx, "seeding finished",
		"batches", summary.Batches, "records", summary.Records, "duration", summary.Duration)
	return nil
}

// ConfigureIndex applies the configured pagination ceiling on top of the
// default attribute settings.
func (app *App) ConfigureIndex(ctx context.Context) error {
	s := search.DefaultSettings()
	s.PaginationCeiling = app.config.PaginationCeiling

	if _, err := app.configurator.Configure(ctx, app.config.IndexName, s); err != nil {
		return fmt.Errorf("configure index: %w", err)
	}
	return nil
}

// Seed generates count records in batches of BatchSize and synchronizes
// each batch before generating the next one.
func (app *App) Seed(ctx context.Context, count int) (Summary, error) {
	start := time.Now()
	var summary Summary

	var snap *snapshot.Writer
	if app.config.SnapshotPath != "" {
		w, err := snapshot.Create(app.config.SnapshotPath)
		if err != nil {
			return summary, err
		}
		snap = w
		defer func() {
			if err := snap.Close(); err != nil {
				app.logger.Warn(ctx, "snapshot close failed", "error", err)
			}
		}()
	}

	for remaining := count; remaining > 0; {
		n := min(remaining, app.config.BatchSize)

		records, err := app.generator.Generate(ctx, n)
		if err != nil {
			return summary, err
		}
		if snap != nil {
			if err := snap.Write(records); err != nil {
				return summary, err
			}
		}
		if err := app.syncBatch(ctx, records, &summary); err != nil {
			return summary, err
		}
		remaining -= n
	}

	summary.Duration = time.Since(start)
	return summary, nil
}

// Reseed replays a snapshot through the synchronizer. The index converges on
// the snapshot contents; the store rejects records it already holds.
func (app *App) Reseed(ctx context.Context, path string) (Summary, error) {
	start := time.Now()
	var summary Summary

	_, err := snapshot.ReplayFile(ctx, path, app.config.BatchSize, func(ctx context.Context, records []models.User) error {
		return app.syncBatch(ctx, records, &summary)
	})
	summary.Duration = time.Since(start)
	return summary, err
}

// Reconcile copies store rows changed after since into the index. The
// returned report carries the cursor to resume from.
func (app *App) Reconcile(ctx context.Context, since time.Time) (syncer.ReconcileReport, error) {
	return app.syncer.Reconcile(ctx, since)
}

func (app *App) syncBatch(ctx context.Context, records []models.User, summary *Summary) error {
	if err := app.limiter.Wait(ctx); err != nil {
		return err
	}

	report, err := app.syncer.Sync(ctx, records)
	if err != nil {
		return fmt.Errorf("batch %d: %w", summary.Batches+1, err)
	}

	summary.Batches++
	summary.Records += int(report.StoreWritten)
	app.logger.Info(ctx, "batch synchronized",
		"batch", summary.Batches, "records", report.StoreWritten, "duration", report.Duration)
	return nil
}
