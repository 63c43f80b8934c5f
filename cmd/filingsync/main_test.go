// Filingsync - Regulatory Filing Index Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filingsync

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/filingsync/internal/cache"
	"github.com/tomtom215/filingsync/internal/config"
	"github.com/tomtom215/filingsync/internal/models"
	indexsync "github.com/tomtom215/filingsync/internal/sync"
	"github.com/tomtom215/filingsync/internal/testinfra"
)

func writeConfig(t *testing.T, archive *testinfra.MockArchive) string {
	t.Helper()
	dir := t.TempDir()
	content := fmt.Sprintf(`
archive:
  full_index_url: %q
  document_base_url: %q
  user_agent: "filingsync-test ops@example.com"
  max_attempts: 1
  retry_delay: 1ms
  requests_per_second: 0
database:
  path: %q
ledger:
  in_memory: true
retrieval:
  filings_dir: %q
mapping:
  export_dir: %q
`, archive.IndexBaseURL(), archive.DocumentBaseURL(),
		filepath.Join(dir, "index.duckdb"), filepath.Join(dir, "filings"), filepath.Join(dir, "exports"))

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// The CLI tests do not run in parallel: every invocation re-initializes the
// global logger.
func TestCLIEndToEnd(t *testing.T) {
	archive := testinfra.NewMockArchive(t)
	q1 := models.Period{Year: 2024, Quarter: 1}
	records := []models.FilingIndexRecord{
		{SubjectID: 1000045, SubjectName: "Acme Corp", FormType: "10-K", DateFiled: "2024-02-14", Filename: "edgar/data/1000045/0001000045-24-000012.txt"},
		{SubjectID: 1000046, SubjectName: "Beta LLC", FormType: "13F-HR", DateFiled: "2024-02-15", Filename: "edgar/data/1000046/0001000046-24-000001.txt"},
	}
	archive.SetIndexGzip(q1, testinfra.MasterIndex(records...))
	for _, r := range records {
		archive.SetDocument(r.Filename, "body of "+r.Filename)
	}
	cfgPath := writeConfig(t, archive)

	out, err := run(t, "--config", cfgPath, "sync-quarter", "--year", "2024", "--quarter", "1")
	require.NoError(t, err, out)
	assert.Contains(t, out, `"inserted": 2`)

	out, err = run(t, "--config", cfgPath, "form-types")
	require.NoError(t, err, out)
	assert.Equal(t, []string{"10-K", "13F-HR"}, strings.Fields(out))

	// Every later quarter is missing from the archive, so those periods fail
	// and the run still succeeds. Q1 is parsed again and inserts nothing.
	out, err = run(t, "--config", cfgPath, "sync", "--rescan")
	require.NoError(t, err, out)
	assert.Contains(t, out, `"records_inserted": 0`)
	assert.Contains(t, out, `"failed_periods"`)

	out, err = run(t, "--config", cfgPath, "retrieve", "--form-type", "10-K")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Downloaded 1 new filings and found 0 existing filings for 10-K (0 failed).")

	out, err = run(t, "--config", cfgPath, "retrieve", "--contains", "13")
	require.NoError(t, err, out)
	assert.Contains(t, out, "for 13F-HR (0 failed).")
}

func TestCLIFlagValidation(t *testing.T) {
	archive := testinfra.NewMockArchive(t)
	cfgPath := writeConfig(t, archive)

	tests := []struct {
		name string
		args []string
	}{
		{"retrieve needs a selector", []string{"retrieve"}},
		{"retrieve selectors are exclusive", []string{"retrieve", "--form-type", "10-K", "--contains", "13"}},
		{"mappings needs a source", []string{"build-mappings"}},
		{"quarter out of range", []string{"sync-quarter", "--year", "2024", "--quarter", "5"}},
		{"quarter flags required", []string{"sync-quarter"}},
		{"bad log level", []string{"--log-level", "loud", "form-types"}},
		{"explicit env file must exist", []string{"--env-file", filepath.Join(t.TempDir(), "missing.env"), "form-types"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, append([]string{"--config", cfgPath}, tt.args...)...)
			assert.Error(t, err)
		})
	}
}

func TestBuildMappingsMissingExport(t *testing.T) {
	archive := testinfra.NewMockArchive(t)
	cfgPath := writeConfig(t, archive)

	_, err := run(t, "--config", cfgPath, "build-mappings", "--form-type", "13F-HR")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestOpenStoreUnknownDriver(t *testing.T) {
	t.Parallel()

	_, err := openStore(context.Background(), config.DatabaseConfig{Driver: "sqlite"})
	assert.ErrorContains(t, err, "unknown database driver")
}

func TestScheduledJob(t *testing.T) {
	t.Parallel()

	for _, job := range []string{config.JobSync, config.JobProcess} {
		fn, err := scheduledJob(&config.Config{Schedule: config.ScheduleConfig{Job: job}}, &app{})
		assert.NoError(t, err, job)
		assert.NotNil(t, fn, job)
	}

	_, err := scheduledJob(&config.Config{Schedule: config.ScheduleConfig{Job: "backup"}}, &app{})
	assert.Error(t, err)
}

func TestSkipBusy(t *testing.T) {
	t.Parallel()

	assert.NoError(t, skipBusy(nil))
	assert.NoError(t, skipBusy(fmt.Errorf("process: %w", indexsync.ErrSyncInProgress)))

	other := errors.New("store offline")
	assert.ErrorIs(t, skipBusy(other), other)
}

func TestClearingRunsAfterJob(t *testing.T) {
	t.Parallel()

	c := cache.New(time.Minute)
	defer c.Close()
	c.Set("form-types", []string{"10-K"})

	boom := errors.New("archive unavailable")
	err := clearing(c, func(context.Context) error {
		_, ok := c.Get("form-types")
		assert.True(t, ok, "entries survive until the job returns")
		return boom
	})(context.Background())

	assert.ErrorIs(t, err, boom)
	_, ok := c.Get("form-types")
	assert.False(t, ok, "a failed job still invalidates")
}
