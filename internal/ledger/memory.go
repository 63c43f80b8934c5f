// Filingsync - Regulatory Filing Index Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filingsync

package ledger

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/tomtom215/filingsync/internal/models"
)

// Memory is a non-persistent ledger for tests and one-shot runs.
type Memory struct {
	mu      sync.RWMutex
	runs    map[string]models.RunRecord
	digests map[models.Period]string
}

// NewMemory creates an empty in-memory ledger.
func NewMemory() *Memory {
	return &Memory{
		runs:    make(map[string]models.RunRecord),
		digests: make(map[models.Period]string),
	}
}

// RecordRun stores rec as the last run of rec.Process.
func (m *Memory) RecordRun(ctx context.Context, rec models.RunRecord) error {
	if rec.Process == "" {
		return fmt.Errorf("record run: process name is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[rec.Process] = rec
	return nil
}

// LastRun returns the last recorded run of process.
func (m *Memory) LastRun(ctx context.Context, process string) (models.RunRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return models.RunRecord{}, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.runs[process]
	return rec, ok, nil
}

// Runs returns every recorded run, ordered by process name.
func (m *Memory) Runs(ctx context.Context) ([]models.RunRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.RunRecord, 0, len(m.runs))
	for _, rec := range m.runs {
		out = append(out, rec)
	}
	slices.SortFunc(out, func(a, b models.RunRecord) int { return strings.Compare(a.Process, b.Process) })
	return out, nil
}

// PeriodDigest returns the digest saved for p.
func (m *Memory) PeriodDigest(ctx context.Context, p models.Period) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.digests[p]
	return d, ok, nil
}

// SavePeriodDigest stores the digest of the index last persisted for p.
func (m *Memory) SavePeriodDigest(ctx context.Context, p models.Period, digest string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.digests[p] = digest
	return nil
}

// ForgetDigests drops every period digest.
func (m *Memory) ForgetDigests(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.digests)
	clear(m.digests)
	return n, nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }
