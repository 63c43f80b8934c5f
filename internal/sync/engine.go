// Filingsync - Regulatory Filing Index Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filingsync

package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/filingsync/internal/config"
	"github.com/tomtom215/filingsync/internal/index"
	"github.com/tomtom215/filingsync/internal/logging"
	"github.com/tomtom215/filingsync/internal/metrics"
	"github.com/tomtom215/filingsync/internal/models"
)

// Period outcomes used for metrics.
const (
	outcomeSynced    = "synced"
	outcomeUnchanged = "unchanged"
	outcomeFailed    = "failed"
)

// ErrSyncInProgress is returned when another sync holds the engine.
var ErrSyncInProgress = errors.New("sync already in progress")

// IndexStore is the persistence the engine needs.
type IndexStore interface {
	// InsertFilings stores records whose natural key is not yet present and
	// returns the number actually inserted.
	InsertFilings(ctx context.Context, records []models.FilingIndexRecord) (int, error)
	// MaxDateFiled returns the latest DateFiled in the store; ok is false when empty.
	MaxDateFiled(ctx context.Context) (latest time.Time, ok bool, err error)
	// CountFilingsBetween counts records whose DateFiled lies in [from, to].
	CountFilingsBetween(ctx context.Context, from, to string) (int64, error)
}

// Fetcher downloads one URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// DigestStore remembers the digest of the last persisted index per period.
type DigestStore interface {
	PeriodDigest(ctx context.Context, p models.Period) (digest string, ok bool, err error)
	SavePeriodDigest(ctx context.Context, p models.Period, digest string) error
}

// Engine synchronizes the index store with the archive.
type Engine struct {
	store   IndexStore
	fetcher Fetcher
	digests DigestStore // nil disables the unchanged-period skip

	indexURL           string
	batchSize          int
	skipFutureQuarters bool
	skipUnchanged      bool
	epoch              string

	now    func() time.Time
	syncMu sync.Mutex
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock replaces time.Now for planning.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates a sync engine. digests may be nil.
func NewEngine(cfg *config.Config, store IndexStore, fetcher Fetcher, digests DigestStore, opts ...Option) *Engine {
	batchSize := cfg.Sync.BatchSize
	if batchSize < 1 {
		batchSize = 1000
	}
	e := &Engine{
		store:              store,
		fetcher:            fetcher,
		digests:            digests,
		indexURL:           cfg.Archive.FullIndexURL,
		batchSize:          batchSize,
		skipFutureQuarters: cfg.Sync.SkipFutureQuarters,
		skipUnchanged:      cfg.Sync.SkipUnchanged,
		epoch:              cfg.Sync.Epoch,
		now:                time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SyncAll syncs every period from the cursor's quarter to the current one.
//
// Period failures are recorded in the summary and do not stop the run. An
// error is returned only when the cursor cannot be read or ctx is cancelled;
// the summary is non-nil in both cases.
func (e *Engine) SyncAll(ctx context.Context) (*models.SyncSummary, error) {
	if !e.syncMu.TryLock() {
		return nil, ErrSyncInProgress
	}
	defer e.syncMu.Unlock()

	if logging.RunIDFromContext(ctx) == "" {
		ctx = logging.ContextWithRunID(ctx, logging.GenerateCorrelationID())
	}
	log := logging.Ctx(ctx)

	start := time.Now()
	summary := &models.SyncSummary{StartedAt: e.now()}
	err := e.syncAll(ctx, summary)
	summary.Duration = time.Since(start)
	metrics.RecordSyncOperation(summary.Duration, err)

	if err != nil {
		log.Error().Err(err).
			Int("synced_periods", summary.SyncedPeriods).
			Int("failed_periods", len(summary.FailedPeriods)).
			Msg("Index sync stopped")
		return summary, err
	}

	log.Info().
		Str("cursor", summary.Cursor).
		Int("planned_periods", summary.PlannedPeriods).
		Int("synced_periods", summary.SyncedPeriods).
		Int("unchanged_periods", summary.UnchangedPeriods).
		Int("failed_periods", len(summary.FailedPeriods)).
		Int("records_inserted", summary.RecordsInserted).
		Int("row_errors", summary.RowErrors).
		Dur("duration", summary.Duration).
		Msg("Index sync completed")
	return summary, nil
}

func (e *Engine) syncAll(ctx context.Context, summary *models.SyncSummary) error {
	cursor, err := e.cursor(ctx)
	if err != nil {
		return err
	}
	summary.Cursor = cursor.Format(time.DateOnly)

	now := e.now()
	plan, err := index.PlanQuarters(cursor, now.Year())
	if err != nil {
		return fmt.Errorf("failed to plan quarters: %w", err)
	}
	if e.skipFutureQuarters {
		plan = index.ClampToNow(plan, now)
	}
	summary.PlannedPeriods = len(plan)

	logging.Ctx(ctx).Info().
		Str("cursor", summary.Cursor).
		Int("periods", len(plan)).
		Msg("Starting index sync")

	for _, p := range plan {
		if err := ctx.Err(); err != nil {
			return err
		}

		result, err := e.syncPeriod(ctx, p)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			metrics.RecordSyncPeriod(outcomeFailed, 0, 0)
			logging.Ctx(ctx).Warn().Err(err).Str("period", p.String()).Msg("Period sync failed, continuing")
			summary.FailedPeriods = append(summary.FailedPeriods, models.PeriodFailure{Period: p, Error: err.Error()})
			continue
		}
		summary.AddPeriod(result)
	}
	return nil
}

// cursor returns the latest stored DateFiled, or the epoch for an empty store.
func (e *Engine) cursor(ctx context.Context) (time.Time, error) {
	latest, ok, err := e.store.MaxDateFiled(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read sync cursor: %w", err)
	}
	if ok {
		return latest, nil
	}
	epoch, err := time.Parse(time.DateOnly, e.epoch)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid sync epoch %q: %w", e.epoch, err)
	}
	return epoch, nil
}

// SyncPeriod fetches, parses and persists one quarter's index.
func (e *Engine) SyncPeriod(ctx context.Context, year, quarter int) (*models.PeriodResult, error) {
	if !e.syncMu.TryLock() {
		return nil, ErrSyncInProgress
	}
	defer e.syncMu.Unlock()

	if logging.RunIDFromContext(ctx) == "" {
		ctx = logging.ContextWithRunID(ctx, logging.GenerateCorrelationID())
	}
	result, err := e.syncPeriod(ctx, models.Period{Year: year, Quarter: quarter})
	if err != nil {
		if ctx.Err() == nil {
			metrics.RecordSyncPeriod(outcomeFailed, 0, 0)
		}
		return nil, err
	}
	return result, nil
}

func (e *Engine) syncPeriod(ctx context.Context, p models.Period) (*models.PeriodResult, error) {
	url, err := index.BuildIndexURL(e.indexURL, p.Year, p.Quarter)
	if err != nil {
		return nil, err
	}

	body, err := e.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch index %s: %w", p, err)
	}

	result := &models.PeriodResult{Period: p, Digest: Digest(body)}
	log := logging.Ctx(ctx).With().Str("period", p.String()).Logger()

	if e.unchanged(ctx, p, result.Digest) {
		result.Unchanged = true
		metrics.RecordSyncPeriod(outcomeUnchanged, 0, 0)
		log.Debug().Str("digest", result.Digest).Msg("Index unchanged since last sync, skipping")
		return result, nil
	}

	batch := make([]models.FilingIndexRecord, 0, e.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := e.store.InsertFilings(ctx, batch)
		if err != nil {
			return fmt.Errorf("failed to persist %s: %w", p, err)
		}
		result.Inserted += n
		batch = batch[:0]
		return nil
	}

	for rec, rowErr := range index.Parse(body) {
		if rowErr != nil {
			result.RowErrors++
			var re *index.RowError
			if errors.As(rowErr, &re) {
				log.Warn().Int("line", re.Line).Str("reason", re.Reason).Str("raw", re.Raw).Msg("Skipping malformed index row")
			}
			continue
		}
		result.Records++
		batch = append(batch, rec)
		if len(batch) >= e.batchSize {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}

	if e.digests != nil {
		if err := e.digests.SavePeriodDigest(ctx, p, result.Digest); err != nil {
			log.Warn().Err(err).Msg("Failed to save period digest")
		}
	}

	metrics.RecordSyncPeriod(outcomeSynced, result.Inserted, result.RowErrors)
	log.Info().
		Int("records", result.Records).
		Int("inserted", result.Inserted).
		Int("row_errors", result.RowErrors).
		Msg("Period synced")
	return result, nil
}

// unchanged reports whether the digest matches the one saved for p and the
// store still holds filings for p. A digest only vouches for the store it
// was saved against, so an empty period is synced again. Ledger and store
// errors are logged and treated as "changed".
func (e *Engine) unchanged(ctx context.Context, p models.Period, digest string) bool {
	if !e.skipUnchanged || e.digests == nil {
		return false
	}
	log := logging.Ctx(ctx).With().Str("period", p.String()).Logger()

	prev, ok, err := e.digests.PeriodDigest(ctx, p)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read period digest")
		return false
	}
	if !ok || prev != digest {
		return false
	}

	from, to := p.DateRange()
	stored, err := e.store.CountFilingsBetween(ctx, from, to)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to count stored filings for period")
		return false
	}
	if stored == 0 {
		log.Info().Str("digest", digest).Msg("Index digest known but store holds no filings for period, syncing again")
		return false
	}
	return true
}
