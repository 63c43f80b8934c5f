// Filingsync - Regulatory Filing Index Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filingsync

package sync

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/filingsync/internal/config"
	"github.com/tomtom215/filingsync/internal/models"
)

// newTestConfig returns a config with small batches, for tests only.
func newTestConfig(indexURL string) *config.Config {
	return &config.Config{
		Archive: config.ArchiveConfig{
			FullIndexURL:    indexURL,
			DocumentBaseURL: "http://archive.invalid/Archives",
			UserAgent:       "filingsync-test ops@example.com",
			MaxAttempts:     3,
			RetryDelay:      5 * time.Second,
			RequestTimeout:  5 * time.Second,
			MaxBodyBytes:    1 << 20,
		},
		Sync: config.SyncConfig{
			BatchSize:          2,
			SkipFutureQuarters: true,
			SkipUnchanged:      true,
			Epoch:              "1994-01-01",
		},
	}
}

// mockFetcher is a function-field Fetcher.
type mockFetcher struct {
	mu    sync.Mutex
	urls  []string
	fetch func(ctx context.Context, url string) ([]byte, error)
}

func (m *mockFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	m.mu.Lock()
	m.urls = append(m.urls, url)
	m.mu.Unlock()
	if m.fetch != nil {
		return m.fetch(ctx, url)
	}
	return nil, nil
}

func (m *mockFetcher) calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.urls...)
}

// mockIndexStore is a function-field IndexStore.
type mockIndexStore struct {
	insertFilings func(ctx context.Context, records []models.FilingIndexRecord) (int, error)
	maxDateFiled  func(ctx context.Context) (time.Time, bool, error)
	countBetween  func(ctx context.Context, from, to string) (int64, error)
}

func (m *mockIndexStore) InsertFilings(ctx context.Context, records []models.FilingIndexRecord) (int, error) {
	if m.insertFilings != nil {
		return m.insertFilings(ctx, records)
	}
	return len(records), nil
}

func (m *mockIndexStore) MaxDateFiled(ctx context.Context) (time.Time, bool, error) {
	if m.maxDateFiled != nil {
		return m.maxDateFiled(ctx)
	}
	return time.Time{}, false, nil
}

func (m *mockIndexStore) CountFilingsBetween(ctx context.Context, from, to string) (int64, error) {
	if m.countBetween != nil {
		return m.countBetween(ctx, from, to)
	}
	return 1, nil
}

// memDigests is an in-memory DigestStore.
type memDigests struct {
	mu      sync.Mutex
	digests map[models.Period]string
	readErr error
}

func newMemDigests() *memDigests {
	return &memDigests{digests: make(map[models.Period]string)}
}

func (m *memDigests) PeriodDigest(_ context.Context, p models.Period) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return "", false, m.readErr
	}
	d, ok := m.digests[p]
	return d, ok, nil
}

func (m *memDigests) SavePeriodDigest(_ context.Context, p models.Period, digest string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.digests[p] = digest
	return nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
