// Filingsync - Regulatory Filing Index Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filingsync

// Package pipeline composes sync, retrieval and mapping into the
// operator-level operations and keeps the run ledger current.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/tomtom215/filingsync/internal/config"
	"github.com/tomtom215/filingsync/internal/logging"
	"github.com/tomtom215/filingsync/internal/models"
)

// Syncer brings the index store up to date.
type Syncer interface {
	SyncAll(ctx context.Context) (*models.SyncSummary, error)
}

// Retriever materializes the documents of one form type.
type Retriever interface {
	Retrieve(ctx context.Context, formType string) (models.RetrievalCounts, error)
}

// MappingBuilder builds one batch of mappings from the exports of several form types.
type MappingBuilder interface {
	BuildForFormTypes(ctx context.Context, formTypes []string) (*models.MappingSummary, error)
}

// Ledger stores the last completion of each process.
type Ledger interface {
	RecordRun(ctx context.Context, rec models.RunRecord) error
	LastRun(ctx context.Context, process string) (models.RunRecord, bool, error)
}

// Runner runs the combined operations.
type Runner struct {
	syncer     Syncer
	retriever  Retriever
	mappings   MappingBuilder
	ledger     Ledger
	staleAfter time.Duration
	formTypes  []string
	now        func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// NewRunner creates a runner from configuration.
func NewRunner(cfg *config.Config, s Syncer, r Retriever, m MappingBuilder, l Ledger, opts ...Option) *Runner {
	runner := &Runner{
		syncer:     s,
		retriever:  r,
		mappings:   m,
		ledger:     l,
		staleAfter: cfg.Pipeline.StaleAfter,
		formTypes:  cfg.Pipeline.FormTypes,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(runner)
	}
	return runner
}

// Sync runs SyncAll and records a full_index run when it completes.
func (r *Runner) Sync(ctx context.Context) (*models.SyncSummary, error) {
	summary, err := r.syncer.SyncAll(ctx)
	if err != nil {
		return summary, err
	}
	r.record(ctx, models.ProcessFullIndex, syncDetail(summary))
	return summary, nil
}

// EnsureFresh syncs when the last full_index run is missing or older than
// pipeline.stale_after. ran reports whether a sync happened.
func (r *Runner) EnsureFresh(ctx context.Context) (summary *models.SyncSummary, ran bool, err error) {
	log := logging.Ctx(ctx)

	last, ok, err := r.ledger.LastRun(ctx, models.ProcessFullIndex)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read run ledger: %w", err)
	}
	if ok {
		age := r.now().Sub(last.CompletedAt)
		if age <= r.staleAfter {
			log.Info().Time("last_run", last.CompletedAt).Dur("age", age).Msg("Index is fresh, skipping sync")
			return nil, false, nil
		}
		log.Info().Time("last_run", last.CompletedAt).Dur("age", age).Msg("Index is stale, syncing")
	} else {
		log.Info().Msg("No previous index sync recorded, syncing")
	}

	summary, err = r.Sync(ctx)
	return summary, true, err
}

// ProcessFilings syncs the index, retrieves each form type and builds one
// deduplicated batch of mappings from the exports that exist. formTypes
// defaults to pipeline.form_types.
func (r *Runner) ProcessFilings(ctx context.Context, formTypes []string) (*models.ProcessSummary, error) {
	if len(formTypes) == 0 {
		formTypes = r.formTypes
	}
	if logging.RunIDFromContext(ctx) == "" {
		ctx = logging.ContextWithRunID(ctx, logging.GenerateCorrelationID())
	}
	log := logging.Ctx(ctx)
	out := &models.ProcessSummary{
		Retrieval: []models.RetrievalCounts{},
		Mappings:  []models.MappingSummary{},
	}

	summary, err := r.Sync(ctx)
	out.Sync = summary
	if err != nil {
		return out, err
	}

	for _, ft := range formTypes {
		counts, err := r.retriever.Retrieve(ctx, ft)
		out.Retrieval = append(out.Retrieval, counts)
		if err != nil {
			return out, err
		}
	}

	ms, err := r.mappings.BuildForFormTypes(ctx, formTypes)
	if ms != nil {
		out.Mappings = append(out.Mappings, *ms)
	}
	switch {
	case ms == nil && errors.Is(err, fs.ErrNotExist):
		log.Info().Strs("form_types", formTypes).Msg("No exports found, skipping mappings")
	case err != nil:
		return out, fmt.Errorf("failed to build mappings: %w", err)
	}

	r.record(ctx, models.ProcessFilings, processDetail(out))
	log.Info().Strs("form_types", formTypes).Msg("Filing processing completed")
	return out, nil
}

// record writes a ledger entry. Failures are logged, not returned.
func (r *Runner) record(ctx context.Context, process, detail string) {
	rec := models.RunRecord{Process: process, CompletedAt: r.now().UTC(), Detail: detail}
	if err := r.ledger.RecordRun(ctx, rec); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("process", process).Msg("Failed to record run")
	}
}

func syncDetail(s *models.SyncSummary) string {
	if s == nil {
		return ""
	}
	return fmt.Sprintf("%d periods synced, %d unchanged, %d failed; %d records inserted",
		s.SyncedPeriods, s.UnchangedPeriods, len(s.FailedPeriods), s.RecordsInserted)
}

func processDetail(p *models.ProcessSummary) string {
	var total models.RetrievalCounts
	for _, c := range p.Retrieval {
		total = total.Add(c)
	}
	inserted := 0
	for _, m := range p.Mappings {
		inserted += m.Inserted
	}
	return fmt.Sprintf("%d form types: %d new filings, %d existing, %d failed; %d mappings",
		len(p.Retrieval), total.New, total.Existing, total.Failed, inserted)
}
