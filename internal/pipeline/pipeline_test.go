// Filingsync - Regulatory Filing Index Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filingsync

package pipeline

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/filingsync/internal/config"
	"github.com/tomtom215/filingsync/internal/fetch"
	"github.com/tomtom215/filingsync/internal/ledger"
	"github.com/tomtom215/filingsync/internal/mapping"
	"github.com/tomtom215/filingsync/internal/models"
	"github.com/tomtom215/filingsync/internal/retrieval"
	filingsync "github.com/tomtom215/filingsync/internal/sync"
	"github.com/tomtom215/filingsync/internal/testinfra"
)

// TestProcessFilingsEndToEnd wires the real engines against a mock archive.
func TestProcessFilingsEndToEnd(t *testing.T) {
	t.Parallel()

	archive := testinfra.NewMockArchive(t)
	q1 := models.Period{Year: 2024, Quarter: 1}
	q2 := models.Period{Year: 2024, Quarter: 2}
	holdings := []models.FilingIndexRecord{
		{SubjectID: 1067983, SubjectName: "BERKSHIRE HATHAWAY INC", FormType: "13F-HR", DateFiled: "2024-02-14", Filename: "edgar/data/1067983/0000950123-24-002518.txt"},
		{SubjectID: 102909, SubjectName: "VANGUARD GROUP INC", FormType: "13F-HR", DateFiled: "2024-02-13", Filename: "edgar/data/102909/0000102909-24-000001.txt"},
	}
	other := models.FilingIndexRecord{SubjectID: 320193, SubjectName: "Apple Inc.", FormType: "10-K", DateFiled: "2024-03-01", Filename: "edgar/data/320193/0000320193-24-000006.txt"}
	archive.SetIndexGzip(q1, testinfra.MasterIndex(append(holdings, other)...))
	archive.SetIndexStatus(q2, http.StatusNotFound)
	for _, r := range holdings {
		archive.SetDocument(r.Filename, "13F holdings for "+r.SubjectName)
	}

	exportDir := t.TempDir()
	csv := "name,subject_id,cusip,value\n" +
		"BERKSHIRE,1067983,084670702,1\n" +
		"BERKSHIRE,1067983,000000123,1\n" +
		"VANGUARD,102909,922908,1\n"
	require.NoError(t, os.WriteFile(filepath.Join(exportDir, "13F-HR.csv"), []byte(csv), 0o600))

	cfg := &config.Config{
		Archive: config.ArchiveConfig{
			FullIndexURL:    archive.IndexBaseURL(),
			DocumentBaseURL: archive.DocumentBaseURL(),
			UserAgent:       "filingsync-test ops@example.com",
			MaxAttempts:     1,
			RequestTimeout:  5 * time.Second,
			MaxBodyBytes:    1 << 20,
		},
		Sync:      config.SyncConfig{BatchSize: 100, SkipFutureQuarters: true, SkipUnchanged: true, Epoch: "2024-01-01"},
		Retrieval: config.RetrievalConfig{FilingsDir: t.TempDir(), Workers: 2},
		Mapping:   config.MappingConfig{ExportDir: exportDir},
		Pipeline:  config.PipelineConfig{StaleAfter: time.Hour, FormTypes: []string{"13F-HR"}},
	}
	clock := func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }

	store := testinfra.NewMemStore()
	runs := ledger.NewMemory()
	fetcher := fetch.New(cfg.Archive)
	runner := NewRunner(cfg,
		filingsync.NewEngine(cfg, store, fetcher, runs, filingsync.WithClock(clock)),
		retrieval.NewEngine(cfg, store, fetcher),
		mapping.NewService(cfg, store),
		runs,
		WithClock(clock),
	)

	ctx := context.Background()
	out, err := runner.ProcessFilings(ctx, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, out.Sync.PlannedPeriods)
	assert.Equal(t, 1, out.Sync.SyncedPeriods)
	require.Len(t, out.Sync.FailedPeriods, 1)
	assert.Equal(t, q2, out.Sync.FailedPeriods[0].Period)
	assert.Equal(t, 3, out.Sync.RecordsInserted)

	assert.Equal(t, []models.RetrievalCounts{{FormType: "13F-HR", New: 2}}, out.Retrieval)
	require.Len(t, out.Mappings, 1)
	assert.Equal(t, 2, out.Mappings[0].Inserted)
	assert.Equal(t, []models.IdentifierMapping{
		{SubjectID: 1067983, ShortKey: "084670", LongKey: "08467070"},
		{SubjectID: 102909, ShortKey: "922908"},
	}, store.Mappings())

	// A second run finds the unchanged index and the existing documents.
	out, err = runner.ProcessFilings(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Sync.UnchangedPeriods)
	assert.Equal(t, 0, out.Sync.RecordsInserted)
	assert.Equal(t, []models.RetrievalCounts{{FormType: "13F-HR", Existing: 2}}, out.Retrieval)
	assert.Equal(t, 2, archive.IndexHits(q1))

	_, ran, err := runner.EnsureFresh(ctx)
	require.NoError(t, err)
	assert.False(t, ran, "ProcessFilings recorded a fresh full_index run")
}

func TestProcessFilingsDeduplicatesAcrossExports(t *testing.T) {
	t.Parallel()

	archive := testinfra.NewMockArchive(t)
	q1 := models.Period{Year: 2024, Quarter: 1}
	archive.SetIndex(q1, testinfra.MasterIndex())

	exportDir := t.TempDir()
	holdings := "name,subject_id,cusip,value\n" + "APPLE INC,320193,037833100,1\n"
	amended := holdings + "MICROSOFT,789019,594918104,1\n"
	require.NoError(t, os.WriteFile(filepath.Join(exportDir, "13F-HR.csv"), []byte(holdings), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(exportDir, "13F-HR_A.csv"), []byte(amended), 0o600))

	cfg := &config.Config{
		Archive: config.ArchiveConfig{
			FullIndexURL:    archive.IndexBaseURL(),
			DocumentBaseURL: archive.DocumentBaseURL(),
			UserAgent:       "filingsync-test ops@example.com",
			MaxAttempts:     1,
			RequestTimeout:  5 * time.Second,
			MaxBodyBytes:    1 << 20,
		},
		Sync:      config.SyncConfig{BatchSize: 100, SkipFutureQuarters: true, Epoch: "2024-01-01"},
		Retrieval: config.RetrievalConfig{FilingsDir: t.TempDir(), Workers: 1},
		Mapping:   config.MappingConfig{ExportDir: exportDir},
		Pipeline:  config.PipelineConfig{StaleAfter: time.Hour},
	}
	clock := func() time.Time { return time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC) }

	store := testinfra.NewMemStore()
	runs := ledger.NewMemory()
	fetcher := fetch.New(cfg.Archive)
	runner := NewRunner(cfg,
		filingsync.NewEngine(cfg, store, fetcher, runs, filingsync.WithClock(clock)),
		retrieval.NewEngine(cfg, store, fetcher),
		mapping.NewService(cfg, store),
		runs,
		WithClock(clock),
	)

	out, err := runner.ProcessFilings(context.Background(), []string{"13F-HR", "13F-HR/A", "SC 13G"})
	require.NoError(t, err)

	require.Len(t, out.Mappings, 1)
	assert.Equal(t, 3, out.Mappings[0].RowsRead)
	assert.Equal(t, 1, out.Mappings[0].Duplicates)
	assert.Equal(t, 2, out.Mappings[0].Inserted)
	assert.Equal(t, []models.IdentifierMapping{
		{SubjectID: 320193, ShortKey: "037833", LongKey: "03783310"},
		{SubjectID: 789019, ShortKey: "594918", LongKey: "59491810"},
	}, store.Mappings(), "a tuple found in two exports is stored once per run")
}
