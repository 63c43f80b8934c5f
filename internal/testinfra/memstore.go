// Filingsync - Regulatory Filing Index Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filingsync

package testinfra

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/tomtom215/filingsync/internal/models"
)

// MemStore is an in-memory index and mapping store. It follows the same
// contract as the DuckDB and PostgreSQL stores: filings are unique on
// (subject id, form type, date filed, filename) and duplicates are dropped
// silently; mappings are append-only.
type MemStore struct {
	mu       sync.Mutex
	filings  []models.FilingIndexRecord
	keys     map[string]struct{}
	mappings []models.IdentifierMapping

	// InsertErr, when set, is returned by InsertFilings before anything is stored.
	InsertErr error
	// InsertCalls counts InsertFilings invocations.
	InsertCalls int
}

// NewMemStore returns an empty store.
func NewMemStore() *MemStore {
	return &MemStore{keys: make(map[string]struct{})}
}

// InsertFilings stores records not already present and returns how many were new.
func (s *MemStore) InsertFilings(ctx context.Context, records []models.FilingIndexRecord) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.InsertCalls++
	if s.InsertErr != nil {
		return 0, s.InsertErr
	}
	inserted := 0
	for _, r := range records {
		k := r.Key()
		if _, dup := s.keys[k]; dup {
			continue
		}
		s.keys[k] = struct{}{}
		s.filings = append(s.filings, r)
		inserted++
	}
	return inserted, nil
}

// MaxDateFiled returns the latest parseable DateFiled.
func (s *MemStore) MaxDateFiled(ctx context.Context) (time.Time, bool, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var (
		latest time.Time
		found  bool
	)
	for _, r := range s.filings {
		t, err := time.Parse(time.DateOnly, r.DateFiled)
		if err != nil {
			continue
		}
		if !found || t.After(latest) {
			latest, found = t, true
		}
	}
	return latest, found, nil
}

// CountFilingsBetween counts filings whose DateFiled lies in [from, to],
// comparing the text the way the SQL stores do.
func (s *MemStore) CountFilingsBetween(ctx context.Context, from, to string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, r := range s.filings {
		if r.DateFiled >= from && r.DateFiled <= to {
			n++
		}
	}
	return n, nil
}

// FindByFormType returns matching filings in insertion order.
func (s *MemStore) FindByFormType(ctx context.Context, formType string) ([]models.FilingIndexRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.FilingIndexRecord
	for _, r := range s.filings {
		if r.FormType == formType {
			out = append(out, r)
		}
	}
	return out, nil
}

// DistinctFormTypes returns the sorted set of form types.
func (s *MemStore) DistinctFormTypes(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]struct{})
	var out []string
	for _, r := range s.filings {
		if _, ok := seen[r.FormType]; !ok {
			seen[r.FormType] = struct{}{}
			out = append(out, r.FormType)
		}
	}
	slices.Sort(out)
	return out, nil
}

// InsertMappings appends mappings.
func (s *MemStore) InsertMappings(ctx context.Context, mappings []models.IdentifierMapping) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mappings = append(s.mappings, mappings...)
	return len(mappings), nil
}

// Filings returns a copy of the stored filings.
func (s *MemStore) Filings() []models.FilingIndexRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.filings)
}

// Mappings returns a copy of the stored mappings.
func (s *MemStore) Mappings() []models.IdentifierMapping {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.mappings)
}
