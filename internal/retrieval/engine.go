// Filingsync - Regulatory Filing Index Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filingsync

// Package retrieval materializes filing documents on the local filesystem.
//
// Each record maps to one deterministic path (see ArtifactPath). A file at
// that path is the only marker that the document was retrieved, so a run
// that was killed half way can simply be started again.
//
// Writes go to a temporary file in the target directory which is then
// hard-linked to the final name. Linking fails if the name exists, which
// makes the final step create-exclusive even across processes.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/filingsync/internal/config"
	"github.com/tomtom215/filingsync/internal/logging"
	"github.com/tomtom215/filingsync/internal/metrics"
	"github.com/tomtom215/filingsync/internal/models"
)

// IndexStore is the part of the index store retrieval reads from.
type IndexStore interface {
	FindByFormType(ctx context.Context, formType string) ([]models.FilingIndexRecord, error)
	DistinctFormTypes(ctx context.Context) ([]string, error)
}

// Fetcher downloads one URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

type outcome int

const (
	outcomeNew outcome = iota
	outcomeExisting
	outcomeFailed
	outcomeCanceled
)

// Engine retrieves filing documents for stored index records.
type Engine struct {
	store   IndexStore
	fetcher Fetcher
	root    string
	docBase string
	workers int

	// inflight collapses concurrent work on the same artifact path.
	inflight singleflight.Group
}

// NewEngine creates a retrieval engine from configuration.
func NewEngine(cfg *config.Config, store IndexStore, fetcher Fetcher) *Engine {
	workers := cfg.Retrieval.Workers
	if workers < 1 {
		workers = 1
	}
	return &Engine{
		store:   store,
		fetcher: fetcher,
		root:    cfg.Retrieval.FilingsDir,
		docBase: strings.TrimSuffix(cfg.Archive.DocumentBaseURL, "/"),
		workers: workers,
	}
}

// counts accumulates outcomes from any number of workers.
type counts struct {
	new, existing, failed atomic.Int64
}

func (c *counts) add(o outcome) {
	switch o {
	case outcomeNew:
		c.new.Add(1)
	case outcomeExisting:
		c.existing.Add(1)
	case outcomeFailed:
		c.failed.Add(1)
	}
}

func (c *counts) snapshot(formType string) models.RetrievalCounts {
	return models.RetrievalCounts{
		FormType: formType,
		New:      int(c.new.Load()),
		Existing: int(c.existing.Load()),
		Failed:   int(c.failed.Load()),
	}
}

// Retrieve materializes every stored document of formType that is not on
// disk yet. Per-document failures are counted and logged. An error is
// returned only when the store cannot be queried or ctx is cancelled; the
// counts so far are returned with it.
func (e *Engine) Retrieve(ctx context.Context, formType string) (models.RetrievalCounts, error) {
	if logging.RunIDFromContext(ctx) == "" {
		ctx = logging.ContextWithRunID(ctx, logging.GenerateCorrelationID())
	}
	log := logging.Ctx(ctx).With().Str("form_type", formType).Logger()

	records, err := e.store.FindByFormType(ctx, formType)
	if err != nil {
		return models.RetrievalCounts{FormType: formType}, fmt.Errorf("failed to load %s records: %w", formType, err)
	}
	log.Info().Int("records", len(records)).Int("workers", e.workers).Msg("Starting filing retrieval")

	var c counts
	if e.workers == 1 {
		for i, rec := range records {
			if err := ctx.Err(); err != nil {
				break
			}
			log.Debug().Int("n", i+1).Int("of", len(records)).Msg("Retrieving filing")
			c.add(e.retrieveOne(ctx, rec))
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.workers)
		for _, rec := range records {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				c.add(e.retrieveOne(gctx, rec))
				return nil
			})
		}
		_ = g.Wait()
	}

	result := c.snapshot(formType)
	metrics.RecordRetrieval(formType, result.New, result.Existing, result.Failed)
	if err := ctx.Err(); err != nil {
		log.Warn().Err(err).Int("new", result.New).Int("existing", result.Existing).Msg("Filing retrieval interrupted")
		return result, err
	}

	log.Info().
		Int("new", result.New).
		Int("existing", result.Existing).
		Int("failed", result.Failed).
		Msg(result.String())
	return result, nil
}

// RetrieveByFormTypeSubstring retrieves every stored form type containing
// substring, in sorted order, and returns the summed counts along with the
// per-form-type breakdown.
func (e *Engine) RetrieveByFormTypeSubstring(ctx context.Context, substring string) (models.RetrievalCounts, []models.RetrievalCounts, error) {
	total := models.RetrievalCounts{FormType: "*" + substring + "*"}

	all, err := e.store.DistinctFormTypes(ctx)
	if err != nil {
		return total, nil, fmt.Errorf("failed to list form types: %w", err)
	}
	var matched []string
	for _, ft := range all {
		if strings.Contains(ft, substring) {
			matched = append(matched, ft)
		}
	}
	slices.Sort(matched)

	logging.Ctx(ctx).Info().Str("contains", substring).Strs("form_types", matched).Msg("Retrieving filings by form type substring")

	perType := make([]models.RetrievalCounts, 0, len(matched))
	for _, ft := range matched {
		c, err := e.Retrieve(ctx, ft)
		perType = append(perType, c)
		total = total.Add(c)
		if err != nil {
			return total, perType, err
		}
	}
	return total, perType, nil
}

// retrieveOne handles a single record. Concurrent calls for the same path
// share one execution; the callers that did not run it see the file as existing.
func (e *Engine) retrieveOne(ctx context.Context, rec models.FilingIndexRecord) outcome {
	path, err := ArtifactPath(e.root, rec)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Int64("subject_id", rec.SubjectID).Msg("Skipping filing")
		return outcomeFailed
	}

	ran := false
	v, _, _ := e.inflight.Do(path, func() (any, error) {
		ran = true
		return e.materialize(ctx, path, rec), nil
	})
	o := v.(outcome)
	if !ran && o == outcomeNew {
		return outcomeExisting
	}
	return o
}

func (e *Engine) materialize(ctx context.Context, path string, rec models.FilingIndexRecord) outcome {
	log := logging.Ctx(ctx).With().Int64("subject_id", rec.SubjectID).Str("date_filed", rec.DateFiled).Str("path", path).Logger()

	if _, err := os.Stat(path); err == nil {
		return outcomeExisting
	} else if !errors.Is(err, fs.ErrNotExist) {
		log.Error().Err(err).Msg("Failed to check artifact")
		return outcomeFailed
	}

	body, err := e.fetcher.Fetch(ctx, e.docBase+"/"+strings.TrimPrefix(strings.TrimSpace(rec.Filename), "/"))
	if err != nil {
		if ctx.Err() != nil {
			return outcomeCanceled
		}
		log.Error().Err(err).Msg("Failed to download filing")
		return outcomeFailed
	}

	created, err := writeExclusive(path, body)
	if err != nil {
		log.Error().Err(err).Msg("Failed to write filing")
		return outcomeFailed
	}
	if !created {
		return outcomeExisting
	}
	return outcomeNew
}

// writeExclusive writes body to path unless path already exists. created is
// false when another writer got there first.
func writeExclusive(path string, body []byte) (created bool, err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return false, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".filingsync-*.tmp")
	if err != nil {
		return false, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(body); err != nil {
		_ = tmp.Close()
		return false, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return false, fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return false, fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Link(tmpName, path); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to link %s: %w", path, err)
	}
	return true, nil
}
