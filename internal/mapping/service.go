// Filingsync - Regulatory Filing Index Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filingsync

package mapping

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/tomtom215/filingsync/internal/config"
	"github.com/tomtom215/filingsync/internal/logging"
	"github.com/tomtom215/filingsync/internal/metrics"
	"github.com/tomtom215/filingsync/internal/models"
)

const insertBatchSize = 1000

// MappingStore persists mappings. Inserts are append-only.
type MappingStore interface {
	InsertMappings(ctx context.Context, mappings []models.IdentifierMapping) (int, error)
}

// Service builds mappings from export files and stores them.
type Service struct {
	store     MappingStore
	exportDir string
}

// NewService creates a mapping service.
func NewService(cfg *config.Config, store MappingStore) *Service {
	return &Service{store: store, exportDir: cfg.Mapping.ExportDir}
}

var exportNameReplacer = strings.NewReplacer("/", "_", `\`, "_")

// ExportPath is where the export for formType is expected: {export_dir}/{formType}.csv.
func (s *Service) ExportPath(formType string) string {
	return filepath.Join(s.exportDir, exportNameReplacer.Replace(formType)+".csv")
}

// BuildForFormType builds mappings from the form type's export file. A
// missing file yields an error matching fs.ErrNotExist.
func (s *Service) BuildForFormType(ctx context.Context, formType string) (*models.MappingSummary, error) {
	return s.BuildFromFile(ctx, s.ExportPath(formType))
}

// BuildForFormTypes builds one batch of mappings from the exports of every
// form type that has one, so a tuple found in several exports is stored
// once. Missing exports are skipped; when none exists the error matches
// fs.ErrNotExist.
func (s *Service) BuildForFormTypes(ctx context.Context, formTypes []string) (*models.MappingSummary, error) {
	paths := make([]string, 0, len(formTypes))
	for _, ft := range formTypes {
		path := s.ExportPath(ft)
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			logging.Ctx(ctx).Info().Str("form_type", ft).Str("path", path).Msg("No export for form type, skipping mappings")
			continue
		}
		paths = append(paths, path)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no export found for %s: %w", strings.Join(formTypes, ", "), fs.ErrNotExist)
	}
	return s.BuildFromFiles(ctx, paths)
}

// BuildFromFile reads one export, builds mappings and inserts them.
func (s *Service) BuildFromFile(ctx context.Context, path string) (*models.MappingSummary, error) {
	return s.BuildFromFiles(ctx, []string{path})
}

// BuildFromFiles reads every export in paths as one stream of rows, builds
// mappings once and inserts them.
func (s *Service) BuildFromFiles(ctx context.Context, paths []string) (*models.MappingSummary, error) {
	summary := &models.MappingSummary{Source: strings.Join(paths, ",")}

	var rows [][]string
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		r, err := readExportFile(path)
		if err != nil {
			return summary, err
		}
		rows = append(rows, r...)
	}

	mappings, stats := BuildWithStats(rows)
	summary.RowsRead = stats.RowsRead
	summary.Accepted = stats.Accepted
	summary.Filtered = stats.Filtered
	summary.Duplicates = stats.Duplicates

	for chunk := range slices.Chunk(mappings, insertBatchSize) {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		n, err := s.store.InsertMappings(ctx, chunk)
		summary.Inserted += n
		if err != nil {
			return summary, fmt.Errorf("failed to insert mappings: %w", err)
		}
	}

	metrics.RecordMappingBuild(summary.Accepted, summary.Filtered, summary.Duplicates, summary.Inserted)
	logging.Ctx(ctx).Info().
		Strs("sources", paths).
		Int("rows", summary.RowsRead).
		Int("accepted", summary.Accepted).
		Int("filtered", summary.Filtered).
		Int("duplicates", summary.Duplicates).
		Int("inserted", summary.Inserted).
		Msg("Identifier mappings built")
	return summary, nil
}

func readExportFile(path string) ([][]string, error) {
	f, err := os.Open(path) //nolint:gosec // operator-supplied export path
	if err != nil {
		return nil, fmt.Errorf("failed to open export: %w", err)
	}
	defer func() { _ = f.Close() }()

	rows, err := ReadExport(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}
