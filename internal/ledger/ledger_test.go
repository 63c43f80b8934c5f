// Filingsync - Regulatory Filing Index Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filingsync

package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/filingsync/internal/config"
	"github.com/tomtom215/filingsync/internal/models"
)

// store is the method set both ledgers share.
type store interface {
	RecordRun(ctx context.Context, rec models.RunRecord) error
	LastRun(ctx context.Context, process string) (models.RunRecord, bool, error)
	Runs(ctx context.Context) ([]models.RunRecord, error)
	PeriodDigest(ctx context.Context, p models.Period) (string, bool, error)
	SavePeriodDigest(ctx context.Context, p models.Period, digest string) error
	ForgetDigests(ctx context.Context) (int, error)
	Close() error
}

func ledgers(t *testing.T) map[string]store {
	t.Helper()

	b, err := Open(config.LedgerConfig{InMemory: true})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return map[string]store{"badger": b, "memory": NewMemory()}
}

func TestRunRecords(t *testing.T) {
	t.Parallel()

	for name, l := range ledgers(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()

			if _, ok, err := l.LastRun(ctx, models.ProcessFullIndex); err != nil || ok {
				t.Fatalf("LastRun() on empty ledger ok = %v, err = %v", ok, err)
			}

			first := models.RunRecord{Process: models.ProcessFullIndex, CompletedAt: time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC), Detail: "synced 4 periods"}
			second := models.RunRecord{Process: models.ProcessFullIndex, CompletedAt: first.CompletedAt.Add(time.Hour)}
			other := models.RunRecord{Process: models.ProcessFilings, CompletedAt: first.CompletedAt}
			for _, r := range []models.RunRecord{first, second, other} {
				if err := l.RecordRun(ctx, r); err != nil {
					t.Fatalf("RecordRun() error = %v", err)
				}
			}

			got, ok, err := l.LastRun(ctx, models.ProcessFullIndex)
			if err != nil || !ok {
				t.Fatalf("LastRun() ok = %v, err = %v", ok, err)
			}
			if !got.CompletedAt.Equal(second.CompletedAt) || got.Detail != "" {
				t.Errorf("LastRun() = %+v, want the latest record", got)
			}

			runs, err := l.Runs(ctx)
			if err != nil {
				t.Fatalf("Runs() error = %v", err)
			}
			if len(runs) != 2 || runs[0].Process != models.ProcessFullIndex || runs[1].Process != models.ProcessFilings {
				t.Errorf("Runs() = %+v", runs)
			}

			if err := l.RecordRun(ctx, models.RunRecord{}); err == nil {
				t.Error("RecordRun() without a process name should fail")
			}
		})
	}
}

func TestPeriodDigests(t *testing.T) {
	t.Parallel()

	for name, l := range ledgers(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			q1 := models.Period{Year: 2024, Quarter: 1}
			q2 := models.Period{Year: 2024, Quarter: 2}

			if _, ok, _ := l.PeriodDigest(ctx, q1); ok {
				t.Fatal("unexpected digest on empty ledger")
			}
			if err := l.SavePeriodDigest(ctx, q1, "aa"); err != nil {
				t.Fatalf("SavePeriodDigest() error = %v", err)
			}
			if err := l.SavePeriodDigest(ctx, q1, "bb"); err != nil {
				t.Fatalf("SavePeriodDigest() error = %v", err)
			}
			_ = l.SavePeriodDigest(ctx, q2, "cc")

			if d, ok, err := l.PeriodDigest(ctx, q1); err != nil || !ok || d != "bb" {
				t.Errorf("PeriodDigest(q1) = %q, %v, %v", d, ok, err)
			}

			n, err := l.ForgetDigests(ctx)
			if err != nil || n != 2 {
				t.Errorf("ForgetDigests() = %d, %v; want 2", n, err)
			}
			if _, ok, _ := l.PeriodDigest(ctx, q2); ok {
				t.Error("digest survived ForgetDigests")
			}
			// Runs are untouched.
			if err := l.RecordRun(ctx, models.RunRecord{Process: "x"}); err != nil {
				t.Fatal(err)
			}
			if _, ok, _ := l.LastRun(ctx, "x"); !ok {
				t.Error("run record missing after ForgetDigests")
			}
		})
	}
}

func TestLedgerHonorsCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for name, l := range ledgers(t) {
		if _, _, err := l.LastRun(ctx, "x"); err == nil {
			t.Errorf("%s: LastRun() with cancelled context should fail", name)
		}
		if err := l.SavePeriodDigest(ctx, models.Period{Year: 2024, Quarter: 1}, "d"); err == nil {
			t.Errorf("%s: SavePeriodDigest() with cancelled context should fail", name)
		}
	}
}

func TestOpenOnDisk(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ctx := context.Background()
	l, err := Open(config.LedgerConfig{Path: dir})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := l.SavePeriodDigest(ctx, models.Period{Year: 1994, Quarter: 1}, "feed"); err != nil {
		t.Fatal(err)
	}
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	l, err = Open(config.LedgerConfig{Path: dir})
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer l.Close()
	if d, ok, _ := l.PeriodDigest(ctx, models.Period{Year: 1994, Quarter: 1}); !ok || d != "feed" {
		t.Errorf("PeriodDigest() after reopen = %q, %v", d, ok)
	}
}
