// Package syncer writes record batches to the search index and then to the
// relational store.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/fastsearch/internal/logging"
	"github.com/dmitrijs2005/fastsearch/internal/server/models"
	"github.com/dmitrijs2005/fastsearch/internal/server/search"
)

// RecordStore inserts a batch atomically and reports the rows written.
type RecordStore interface {
	BulkInsert(ctx context.Context, users []models.User) (int64, error)
}

type Stage string

const (
	StageNone  Stage = ""
	StageIndex Stage = "index"
	StageStore Stage = "store"
)

// Report describes one synchronization call.
type Report struct {
	Requested    int
	IndexWritten int
	StoreWritten int64
	FailedStage  Stage
	Duration     time.Duration
}

// PartialSyncError means the index accepted the batch but the store did not.
// Records holds the batch so the store write can be retried.
type PartialSyncError struct {
	Report  Report
	Records []models.User
	Err     error
}

func (e *PartialSyncError) Error() string {
	return fmt.Sprintf("store write failed after indexing %d records: %v", e.Report.IndexWritten, e.Err)
}

func (e *PartialSyncError) Unwrap() error { return e.Err }

// Synchronizer performs the index-first dual write. It never retries and
// never rolls the index back.
type Synchronizer struct {
	index     search.IndexWriter
	indexName string
	store     RecordStore
	logger    logging.Logger

	reconcileBatch int
}

func New(index search.IndexWriter, indexName string, store RecordStore, logger logging.Logger) *Synchronizer {
	return &Synchronizer{index: index, indexName: indexName, store: store, logger: logger}
}

// Sync indexes records and, only if that succeeds, inserts them into the
// store. An index failure leaves the store untouched and returns a
// *search.IndexUnavailableError; a store failure returns *PartialSyncError.
func (s *Synchronizer) Sync(ctx context.Context, records []models.User) (Report, error) {
	start := time.Now()
	report := Report{Requested: len(records)}

	if len(records) == 0 {
		return report, nil
	}

	docs := search.FromUsers(records)
	if err := s.index.AddDocuments(ctx, s.indexName, docs); err != nil {
		report.FailedStage = StageIndex
		report.Duration = time.Since(start)
		s.logger.Error(ctx, "index write failed", "records", len(records), "error", err)
		return report, search.Unavailable("add documents", err)
	}
	report.IndexWritten = len(docs)

	return s.writeStore(ctx, records, report, start)
}

// RetryStore repeats the store write of a partially synchronized batch.
func (s *Synchronizer) RetryStore(ctx context.Context, perr *PartialSyncError) (Report, error) {
	report := perr.Report
	report.FailedStage = StageNone
	report.StoreWritten = 0
	return s.writeStore(ctx, perr.Records, report, time.Now())
}

func (s *Synchronizer) writeStore(ctx context.Context, records []models.User, report Report, start time.Time) (Report, error) {
	n, err := s.store.BulkInsert(ctx, records)
	report.Duration = time.Since(start)
	if err != nil {
		report.FailedStage = StageStore
		s.logger.Error(ctx, "store write failed, index already updated",
			"records", len(records), "error", err)
		return report, &PartialSyncError{Report: report, Records: records, Err: err}
	}
	report.StoreWritten = n

	s.logger.Debug(ctx, "batch synchronized", "records", len(records), "duration", report.Duration)
	return report, nil
}

// DefaultReconcileBatch is the page size used by Reconcile.
const DefaultReconcileBatch = 1000

// ErrNoChangeFeed is returned by Reconcile when the store cannot list changes.
var ErrNoChangeFeed = errors.New("store does not list changed records")

// ChangeFeed lists live records changed after a (time, id) cursor, oldest
// change first.
type ChangeFeed interface {
	ListChangedSince(ctx context.Context, since time.Time, afterID string, limit int) ([]models.User, error)
}

// ReconcileReport describes one Reconcile call. Since and AfterID are the
// cursor after the last indexed page; passing them to the next call resumes
// from there.
type ReconcileReport struct {
	Pages    int
	Indexed  int
	Since    time.Time
	AfterID  string
	Duration time.Duration
}

// Reconcile copies store records changed after since into the index, page by
// page. It recovers records the store holds but the index lacks. On an index
// failure the report keeps the cursor of the last page that was indexed.
func (s *Synchronizer) Reconcile(ctx context.Context, since time.Time) (ReconcileReport, error) {
	start := time.Now()
	report := ReconcileReport{Since: since}

	feed, ok := s.store.(ChangeFeed)
	if !ok {
		return report, ErrNoChangeFeed
	}

	batch := s.reconcileBatch
	if batch <= 0 {
		batch = DefaultReconcileBatch
	}

	for {
		if err := ctx.Err(); err != nil {
			report.Duration = time.Since(start)
			return report, err
		}

		records, err := feed.ListChangedSince(ctx, report.Since, report.AfterID, batch)
		if err != nil {
			report.Duration = time.Since(start)
			return report, fmt.Errorf("list changed records: %w", err)
		}
		if len(records) == 0 {
			break
		}

		if err := s.index.AddDocuments(ctx, s.indexName, search.FromUsers(records)); err != nil {
			report.Duration = time.Since(start)
			s.logger.Error(ctx, "reconcile index write failed",
				"records", len(records), "since", report.Since, "error", err)
			return report, search.Unavailable("add documents", err)
		}

		last := records[len(records)-1]
		report.Pages++
		report.Indexed += len(records)
		report.Since = last.ChangedAt()
		report.AfterID = last.ID

		s.logger.Debug(ctx, "reconciled page", "records", len(records), "since", report.Since)

		if len(records) < batch {
			break
		}
	}

	report.Duration = time.Since(start)
	return report, nil
}
