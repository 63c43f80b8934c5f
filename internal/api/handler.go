// Filingsync - Regulatory Filing Index Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filingsync

package api

import (
	"context"
	"time"

	"github.com/tomtom215/filingsync/internal/cache"
	"github.com/tomtom215/filingsync/internal/config"
	"github.com/tomtom215/filingsync/internal/metrics"
	"github.com/tomtom215/filingsync/internal/models"
)

// IndexReader is the read side of the index store.
type IndexReader interface {
	Ping(ctx context.Context) error
	DistinctFormTypes(ctx context.Context) ([]string, error)
	QueryFilings(ctx context.Context, f models.FilingFilter) ([]models.FilingIndexRecord, error)
	CountFilings(ctx context.Context) (int64, error)
	MappingsForSubject(ctx context.Context, subjectID int64) ([]models.IdentifierMapping, error)
}

// PeriodSyncer syncs a single quarter.
type PeriodSyncer interface {
	SyncPeriod(ctx context.Context, year, quarter int) (*models.PeriodResult, error)
}

// Retriever materializes filing documents.
type Retriever interface {
	Retrieve(ctx context.Context, formType string) (models.RetrievalCounts, error)
	RetrieveByFormTypeSubstring(ctx context.Context, substring string) (models.RetrievalCounts, []models.RetrievalCounts, error)
}

// MappingBuilder builds identifier mappings from an export.
type MappingBuilder interface {
	BuildForFormType(ctx context.Context, formType string) (*models.MappingSummary, error)
}

// Pipeline runs the ledger-recorded processes.
type Pipeline interface {
	Sync(ctx context.Context) (*models.SyncSummary, error)
	ProcessFilings(ctx context.Context, formTypes []string) (*models.ProcessSummary, error)
}

// RunHistory lists recorded process runs.
type RunHistory interface {
	Runs(ctx context.Context) ([]models.RunRecord, error)
}

// BreakerReporter reports the archive circuit breaker state.
type BreakerReporter interface {
	BreakerState() string
}

// Deps are the collaborators behind the handlers. Runs, Breaker and Cache may be nil.
type Deps struct {
	Store     IndexReader
	Periods   PeriodSyncer
	Retriever Retriever
	Mappings  MappingBuilder
	Pipeline  Pipeline
	Runs      RunHistory
	Breaker   BreakerReporter
	Jobs      *JobManager

	// Cache holds read responses until a write job finishes.
	Cache *cache.Cache
}

// Handler serves every API endpoint.
type Handler struct {
	deps      Deps
	config    *config.Config
	startTime time.Time
}

// NewHandler creates the API handler. A nil Deps.Jobs gets a default manager.
func NewHandler(cfg *config.Config, deps Deps) *Handler {
	if deps.Jobs == nil {
		deps.Jobs = NewJobManager(0)
	}
	return &Handler{deps: deps, config: cfg, startTime: time.Now()}
}

// cached serves key from the read cache, calling load on a miss.
func (h *Handler) cached(key string, load func() (interface{}, error)) (interface{}, error) {
	v, hit, err := h.deps.Cache.GetOrLoad(key, load)
	if h.deps.Cache.Enabled() {
		metrics.RecordCacheLookup(hit)
	}
	return v, err
}

// invalidating clears the read cache once fn returns, whatever its outcome:
// a failed or cancelled write may still have committed some rows.
func (h *Handler) invalidating(fn JobFunc) JobFunc {
	return func(ctx context.Context) (interface{}, error) {
		defer h.deps.Cache.Clear()
		return fn(ctx)
	}
}

// Jobs returns the handler's job manager.
func (h *Handler) Jobs() *JobManager {
	return h.deps.Jobs
}
