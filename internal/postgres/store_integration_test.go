// Filingsync - Regulatory Filing Index Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filingsync

//go:build integration

package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/filingsync/internal/config"
	"github.com/tomtom215/filingsync/internal/models"
	"github.com/tomtom215/filingsync/internal/testinfra"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	testinfra.SkipIfNoDocker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	pg, err := testinfra.NewPostgresContainer(ctx)
	if err != nil {
		t.Fatalf("failed to start postgres: %v", err)
	}
	t.Cleanup(func() { testinfra.CleanupContainer(t, context.Background(), pg.Container) })

	s, err := New(ctx, config.DatabaseConfig{PostgresURL: pg.DSN, MaxConns: 4})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreRoundTrip(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	v, err := s.CurrentSchemaVersion(ctx)
	if err != nil || v != len(migrations) {
		t.Fatalf("schema version = %d, %v", v, err)
	}

	if _, ok, err := s.MaxDateFiled(ctx); err != nil || ok {
		t.Fatalf("empty MaxDateFiled() ok = %v, err = %v", ok, err)
	}

	batch := []models.FilingIndexRecord{
		{SubjectID: 2, SubjectName: "B", FormType: "SC 13G", DateFiled: "2024-02-10", Filename: "b.txt"},
		{SubjectID: 1, SubjectName: "A", FormType: "10-K", DateFiled: "2024-03-01", Filename: "a.txt"},
		{SubjectID: 2, SubjectName: "B", FormType: "SC 13G", DateFiled: "2024-02-10", Filename: "b.txt"},
		{SubjectID: 3, SubjectName: "C", FormType: "SC 13G", DateFiled: "garbage", Filename: "c.txt"},
	}
	n, err := s.InsertFilings(ctx, batch)
	if err != nil || n != 3 {
		t.Fatalf("InsertFilings() = %d, %v; want 3", n, err)
	}
	if n, err := s.InsertFilings(ctx, batch); err != nil || n != 0 {
		t.Fatalf("replay = %d, %v; want 0", n, err)
	}

	latest, ok, err := s.MaxDateFiled(ctx)
	if err != nil || !ok || !latest.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("MaxDateFiled() = %v, %v, %v", latest, ok, err)
	}

	got, err := s.FindByFormType(ctx, "SC 13G")
	if err != nil || len(got) != 2 || got[0].SubjectID != 2 || got[1].SubjectID != 3 {
		t.Errorf("FindByFormType() = %+v, %v", got, err)
	}

	types, err := s.DistinctFormTypes(ctx)
	if err != nil || len(types) != 2 || types[0] != "10-K" {
		t.Errorf("DistinctFormTypes() = %v, %v", types, err)
	}

	page, err := s.QueryFilings(ctx, models.FilingFilter{From: "2024-02-01", To: "2024-02-28"})
	if err != nil || len(page) != 1 {
		t.Errorf("QueryFilings(range) = %+v, %v", page, err)
	}
}

func TestStoreMaxDateFiledSkipsImpossibleDates(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	_, err := s.InsertFilings(ctx, []models.FilingIndexRecord{
		{SubjectID: 1, SubjectName: "A", FormType: "10-K", DateFiled: "2024-03-01", Filename: "a.txt"},
		{SubjectID: 2, SubjectName: "B", FormType: "10-K", DateFiled: "2024-13-40", Filename: "b.txt"},
		{SubjectID: 3, SubjectName: "C", FormType: "10-K", DateFiled: "2024-02-31", Filename: "c.txt"},
		{SubjectID: 4, SubjectName: "D", FormType: "10-K", DateFiled: "2024-99-01", Filename: "d.txt"},
	})
	if err != nil {
		t.Fatalf("InsertFilings() error = %v", err)
	}

	latest, ok, err := s.MaxDateFiled(ctx)
	if err != nil || !ok || !latest.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("MaxDateFiled() = %v, %v, %v; want 2024-03-01", latest, ok, err)
	}

	from, to := models.Period{Year: 2024, Quarter: 1}.DateRange()
	if n, err := s.CountFilingsBetween(ctx, from, to); err != nil || n != 2 {
		t.Errorf("CountFilingsBetween(%s, %s) = %d, %v; want 2", from, to, n, err)
	}
}

func TestStoreConcurrentInserts(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	var batch []models.FilingIndexRecord
	for i := range 200 {
		batch = append(batch, models.FilingIndexRecord{SubjectID: int64(i), SubjectName: "S", FormType: "13F-HR", DateFiled: "2024-05-15", Filename: "f.txt"})
	}

	var (
		mu    sync.Mutex
		total int
		wg    sync.WaitGroup
	)
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := s.InsertFilings(ctx, batch)
			if err != nil {
				t.Errorf("InsertFilings() error = %v", err)
				return
			}
			mu.Lock()
			total += n
			mu.Unlock()
		}()
	}
	wg.Wait()

	if total != 200 {
		t.Errorf("inserted across writers = %d, want 200", total)
	}
	if count, _ := s.CountFilings(ctx); count != 200 {
		t.Errorf("CountFilings() = %d, want 200", count)
	}
}

func TestStoreMappings(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	batch := []models.IdentifierMapping{
		{SubjectID: 7, ShortKey: "084670", LongKey: "08467070"},
		{SubjectID: 7, ShortKey: "037833"},
	}
	if n, err := s.InsertMappings(ctx, batch); err != nil || n != 2 {
		t.Fatalf("InsertMappings() = %d, %v", n, err)
	}
	got, err := s.MappingsForSubject(ctx, 7)
	if err != nil || len(got) != 2 || got[0] != batch[0] || got[1] != batch[1] {
		t.Errorf("MappingsForSubject() = %+v, %v", got, err)
	}
}
