// Filingsync - Regulatory Filing Index Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filingsync

package sync

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/filingsync/internal/fetch"
	"github.com/tomtom215/filingsync/internal/index"
	"github.com/tomtom215/filingsync/internal/models"
	"github.com/tomtom215/filingsync/internal/testinfra"
)

var (
	q1 = models.Period{Year: 1994, Quarter: 1}
	q2 = models.Period{Year: 1994, Quarter: 2}
)

func rec(id int64, form, date string) models.FilingIndexRecord {
	return models.FilingIndexRecord{
		SubjectID:   id,
		SubjectName: "Company " + form,
		FormType:    form,
		DateFiled:   date,
		Filename:    "edgar/data/" + date + "/" + form + ".txt",
	}
}

func noSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

// newArchiveEngine wires an engine to a mock archive through the real fetcher.
func newArchiveEngine(t *testing.T, store IndexStore, digests DigestStore, now time.Time) (*Engine, *testinfra.MockArchive) {
	t.Helper()
	archive := testinfra.NewMockArchive(t)
	cfg := newTestConfig(archive.IndexBaseURL())
	f := fetch.New(cfg.Archive, fetch.WithSleep(noSleep))
	return NewEngine(cfg, store, f, digests, WithClock(fixedClock(now))), archive
}

func TestSyncAllFromEmptyStore(t *testing.T) {
	t.Parallel()

	store := testinfra.NewMemStore()
	engine, archive := newArchiveEngine(t, store, nil, time.Date(1994, 5, 10, 0, 0, 0, 0, time.UTC))
	archive.SetIndex(q1, testinfra.MasterIndex(rec(1, "10-K", "1994-01-12"), rec(2, "13F-HR", "1994-02-01")))
	archive.SetIndexGzip(q2, testinfra.MasterIndex(rec(3, "10-Q", "1994-04-20")))

	summary, err := engine.SyncAll(context.Background())
	if err != nil {
		t.Fatalf("SyncAll() error = %v", err)
	}
	if summary.Cursor != "1994-01-01" {
		t.Errorf("Cursor = %q, want epoch", summary.Cursor)
	}
	if summary.PlannedPeriods != 2 || summary.SyncedPeriods != 2 {
		t.Errorf("planned/synced = %d/%d, want 2/2", summary.PlannedPeriods, summary.SyncedPeriods)
	}
	if summary.RecordsParsed != 3 || summary.RecordsInserted != 3 {
		t.Errorf("parsed/inserted = %d/%d, want 3/3", summary.RecordsParsed, summary.RecordsInserted)
	}
	if got := len(store.Filings()); got != 3 {
		t.Errorf("stored filings = %d, want 3", got)
	}
	for _, c := range archive.Captures() {
		if c.UserAgent != "filingsync-test ops@example.com" {
			t.Errorf("request %s sent User-Agent %q", c.Path, c.UserAgent)
		}
	}
}

func TestSyncAllResyncInsertsNoDuplicates(t *testing.T) {
	t.Parallel()

	store := testinfra.NewMemStore()
	engine, archive := newArchiveEngine(t, store, nil, time.Date(1994, 5, 10, 0, 0, 0, 0, time.UTC))
	archive.SetIndex(q1, testinfra.MasterIndex(rec(1, "10-K", "1994-01-12")))
	archive.SetIndex(q2, testinfra.MasterIndex(rec(3, "10-Q", "1994-04-20"), rec(4, "8-K", "1994-04-21")))

	if _, err := engine.SyncAll(context.Background()); err != nil {
		t.Fatalf("first SyncAll() error = %v", err)
	}

	second, err := engine.SyncAll(context.Background())
	if err != nil {
		t.Fatalf("second SyncAll() error = %v", err)
	}
	if second.Cursor != "1994-04-21" {
		t.Errorf("Cursor = %q, want 1994-04-21", second.Cursor)
	}
	if second.PlannedPeriods != 1 {
		t.Errorf("PlannedPeriods = %d, want only the cursor's quarter", second.PlannedPeriods)
	}
	if second.RecordsParsed != 2 || second.RecordsInserted != 0 {
		t.Errorf("parsed/inserted = %d/%d, want 2/0", second.RecordsParsed, second.RecordsInserted)
	}
	if got := len(store.Filings()); got != 3 {
		t.Errorf("stored filings = %d, want 3", got)
	}
	if archive.IndexHits(q1) != 1 {
		t.Errorf("Q1 fetched %d times, want 1", archive.IndexHits(q1))
	}
}

func TestSyncAllSkipsUnchangedPeriods(t *testing.T) {
	t.Parallel()

	store := testinfra.NewMemStore()
	digests := newMemDigests()
	engine, archive := newArchiveEngine(t, store, digests, time.Date(1994, 5, 10, 0, 0, 0, 0, time.UTC))
	archive.SetIndex(q1, testinfra.MasterIndex(rec(1, "10-K", "1994-01-12")))
	archive.SetIndex(q2, testinfra.MasterIndex(rec(3, "10-Q", "1994-04-20")))

	if _, err := engine.SyncAll(context.Background()); err != nil {
		t.Fatalf("SyncAll() error = %v", err)
	}
	if len(digests.digests) != 2 {
		t.Fatalf("saved digests = %d, want 2", len(digests.digests))
	}
	calls := store.InsertCalls

	second, err := engine.SyncAll(context.Background())
	if err != nil {
		t.Fatalf("SyncAll() error = %v", err)
	}
	if second.UnchangedPeriods != 1 || second.SyncedPeriods != 0 {
		t.Errorf("unchanged/synced = %d/%d, want 1/0", second.UnchangedPeriods, second.SyncedPeriods)
	}
	if store.InsertCalls != calls {
		t.Errorf("unchanged period reached the store (%d -> %d calls)", calls, store.InsertCalls)
	}

	// A changed index is parsed again.
	archive.SetIndex(q2, testinfra.MasterIndex(rec(3, "10-Q", "1994-04-20"), rec(5, "S-1", "1994-04-22")))
	third, err := engine.SyncAll(context.Background())
	if err != nil {
		t.Fatalf("SyncAll() error = %v", err)
	}
	if third.SyncedPeriods != 1 || third.RecordsInserted != 1 {
		t.Errorf("synced/inserted = %d/%d, want 1/1", third.SyncedPeriods, third.RecordsInserted)
	}
}

func TestSyncAllKnownDigestsDoNotSkipFreshStore(t *testing.T) {
	t.Parallel()

	digests := newMemDigests()
	now := time.Date(1994, 5, 10, 0, 0, 0, 0, time.UTC)
	first, archive := newArchiveEngine(t, testinfra.NewMemStore(), digests, now)
	archive.SetIndex(q1, testinfra.MasterIndex(rec(1, "10-K", "1994-01-12")))
	archive.SetIndex(q2, testinfra.MasterIndex(rec(3, "10-Q", "1994-04-20")))
	if _, err := first.SyncAll(context.Background()); err != nil {
		t.Fatalf("SyncAll() error = %v", err)
	}
	if len(digests.digests) != 2 {
		t.Fatalf("saved digests = %d, want 2", len(digests.digests))
	}

	// Same ledger, new store: a switched driver or a deleted database file.
	fresh := testinfra.NewMemStore()
	cfg := newTestConfig(archive.IndexBaseURL())
	second := NewEngine(cfg, fresh, fetch.New(cfg.Archive, fetch.WithSleep(noSleep)), digests, WithClock(fixedClock(now)))

	summary, err := second.SyncAll(context.Background())
	if err != nil {
		t.Fatalf("SyncAll() error = %v", err)
	}
	if summary.UnchangedPeriods != 0 || summary.SyncedPeriods != 2 || summary.RecordsInserted != 2 {
		t.Errorf("unchanged/synced/inserted = %d/%d/%d, want 0/2/2",
			summary.UnchangedPeriods, summary.SyncedPeriods, summary.RecordsInserted)
	}
	if got := len(fresh.Filings()); got != 2 {
		t.Errorf("fresh store holds %d filings, want 2", got)
	}

	// SyncPeriod on a store that lost one quarter refills it.
	emptied := testinfra.NewMemStore()
	third := NewEngine(cfg, emptied, fetch.New(cfg.Archive, fetch.WithSleep(noSleep)), digests, WithClock(fixedClock(now)))
	result, err := third.SyncPeriod(context.Background(), q2.Year, q2.Quarter)
	if err != nil {
		t.Fatalf("SyncPeriod() error = %v", err)
	}
	if result.Unchanged || result.Inserted != 1 {
		t.Errorf("SyncPeriod() unchanged = %v, inserted = %d; want false, 1", result.Unchanged, result.Inserted)
	}
}

func TestSyncPeriodStoreCountErrorFallsBackToSync(t *testing.T) {
	t.Parallel()

	digests := newMemDigests()
	body := []byte(testinfra.MasterIndex(rec(1, "10-K", "1994-01-12")))
	fetcher := &mockFetcher{fetch: func(context.Context, string) ([]byte, error) { return body, nil }}
	inserted := 0
	store := &mockIndexStore{
		insertFilings: func(_ context.Context, records []models.FilingIndexRecord) (int, error) {
			inserted += len(records)
			return len(records), nil
		},
		countBetween: func(_ context.Context, from, to string) (int64, error) {
			if from != "1994-01-01" || to != "1994-03-31" {
				t.Errorf("CountFilingsBetween(%s, %s), want the Q1 1994 range", from, to)
			}
			return 0, errors.New("pool exhausted")
		},
	}
	engine := NewEngine(newTestConfig("http://archive.test/full-index"), store, fetcher, digests)

	if _, err := engine.SyncPeriod(context.Background(), 1994, 1); err != nil {
		t.Fatalf("first SyncPeriod() error = %v", err)
	}
	result, err := engine.SyncPeriod(context.Background(), 1994, 1)
	if err != nil {
		t.Fatalf("second SyncPeriod() error = %v", err)
	}
	if result.Unchanged || inserted != 2 {
		t.Errorf("unchanged = %v, records sent to store = %d; want false, 2", result.Unchanged, inserted)
	}
}

func TestSyncAllDigestReadErrorFallsBackToSync(t *testing.T) {
	t.Parallel()

	digests := newMemDigests()
	digests.readErr = errors.New("ledger closed")
	store := testinfra.NewMemStore()
	engine, archive := newArchiveEngine(t, store, digests, time.Date(1994, 2, 1, 0, 0, 0, 0, time.UTC))
	archive.SetIndex(q1, testinfra.MasterIndex(rec(1, "10-K", "1994-01-12")))

	summary, err := engine.SyncAll(context.Background())
	if err != nil {
		t.Fatalf("SyncAll() error = %v", err)
	}
	if summary.SyncedPeriods != 1 || summary.RecordsInserted != 1 {
		t.Errorf("summary = %+v", summary)
	}
}

func TestSyncAllContinuesAfterPeriodFailure(t *testing.T) {
	t.Parallel()

	store := testinfra.NewMemStore()
	engine, archive := newArchiveEngine(t, store, nil, time.Date(1994, 5, 10, 0, 0, 0, 0, time.UTC))
	archive.SetIndexStatus(q1, http.StatusServiceUnavailable)
	archive.SetIndex(q2, testinfra.MasterIndex(rec(3, "10-Q", "1994-04-20")))

	summary, err := engine.SyncAll(context.Background())
	if err != nil {
		t.Fatalf("SyncAll() error = %v, period failures must not fail the run", err)
	}
	if len(summary.FailedPeriods) != 1 || summary.FailedPeriods[0].Period != q1 {
		t.Fatalf("FailedPeriods = %+v, want [1994/QTR1]", summary.FailedPeriods)
	}
	if !strings.Contains(summary.FailedPeriods[0].Error, "503") {
		t.Errorf("failure text %q should carry the status", summary.FailedPeriods[0].Error)
	}
	if archive.IndexHits(q1) != 3 {
		t.Errorf("Q1 attempts = %d, want 3", archive.IndexHits(q1))
	}
	if summary.SyncedPeriods != 1 || summary.RecordsInserted != 1 {
		t.Errorf("synced/inserted = %d/%d, want 1/1", summary.SyncedPeriods, summary.RecordsInserted)
	}
}

func TestSyncAllCursorError(t *testing.T) {
	t.Parallel()

	boom := errors.New("database is locked")
	store := &mockIndexStore{
		maxDateFiled: func(context.Context) (time.Time, bool, error) { return time.Time{}, false, boom },
	}
	fetcher := &mockFetcher{}
	engine := NewEngine(newTestConfig("http://archive.test/full-index"), store, fetcher, nil)

	summary, err := engine.SyncAll(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want cursor error", err)
	}
	if summary == nil {
		t.Fatal("summary must be returned with the error")
	}
	if len(fetcher.calls()) != 0 {
		t.Errorf("no fetch expected after a cursor failure, got %v", fetcher.calls())
	}
}

func TestSyncAllCancelledBetweenPeriods(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fetcher := &mockFetcher{fetch: func(context.Context, string) ([]byte, error) {
		cancel()
		return []byte(testinfra.MasterIndex(rec(1, "10-K", "1994-01-12"))), nil
	}}
	engine := NewEngine(newTestConfig("http://archive.test/full-index"), &mockIndexStore{}, fetcher, nil,
		WithClock(fixedClock(time.Date(1994, 12, 1, 0, 0, 0, 0, time.UTC))))

	summary, err := engine.SyncAll(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if summary == nil || summary.PlannedPeriods != 4 {
		t.Fatalf("summary = %+v, want partial summary over 4 planned periods", summary)
	}
	if got := len(fetcher.calls()); got != 1 {
		t.Errorf("fetches = %d, want 1", got)
	}
	if len(summary.FailedPeriods) != 0 {
		t.Errorf("cancellation must not be recorded as a period failure: %+v", summary.FailedPeriods)
	}
}

func TestSyncAllSkipsFutureQuarters(t *testing.T) {
	t.Parallel()

	cursor := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	now := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		skipFuture bool
		want       []string
	}{
		{"clamped", true, []string{"2024/QTR1", "2024/QTR2"}},
		{"whole year", false, []string{"2024/QTR1", "2024/QTR2", "2024/QTR3", "2024/QTR4"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := newTestConfig("http://archive.test/full-index/")
			cfg.Sync.SkipFutureQuarters = tt.skipFuture
			store := &mockIndexStore{
				maxDateFiled: func(context.Context) (time.Time, bool, error) { return cursor, true, nil },
			}
			fetcher := &mockFetcher{fetch: func(context.Context, string) ([]byte, error) { return nil, nil }}
			engine := NewEngine(cfg, store, fetcher, nil, WithClock(fixedClock(now)))

			if _, err := engine.SyncAll(context.Background()); err != nil {
				t.Fatalf("SyncAll() error = %v", err)
			}
			calls := fetcher.calls()
			if len(calls) != len(tt.want) {
				t.Fatalf("fetched %v, want %v", calls, tt.want)
			}
			for i, want := range tt.want {
				if calls[i] != "http://archive.test/full-index/"+want+"/master.idx" {
					t.Errorf("fetch %d = %q, want period %s", i, calls[i], want)
				}
			}
		})
	}
}

func TestSyncPeriodPersistsInBatches(t *testing.T) {
	t.Parallel()

	var sizes []int
	store := &mockIndexStore{insertFilings: func(_ context.Context, records []models.FilingIndexRecord) (int, error) {
		sizes = append(sizes, len(records))
		return len(records), nil
	}}
	body := testinfra.MasterIndex(
		rec(1, "10-K", "2024-01-02"), rec(2, "10-K", "2024-01-03"), rec(3, "10-K", "2024-01-04"),
		rec(4, "10-K", "2024-01-05"), rec(5, "10-K", "2024-01-06"),
	)
	fetcher := &mockFetcher{fetch: func(context.Context, string) ([]byte, error) { return []byte(body), nil }}
	engine := NewEngine(newTestConfig("http://archive.test/full-index"), store, fetcher, nil)

	result, err := engine.SyncPeriod(context.Background(), 2024, 1)
	if err != nil {
		t.Fatalf("SyncPeriod() error = %v", err)
	}
	if result.Records != 5 || result.Inserted != 5 {
		t.Errorf("records/inserted = %d/%d, want 5/5", result.Records, result.Inserted)
	}
	if len(sizes) != 3 || sizes[0] != 2 || sizes[1] != 2 || sizes[2] != 1 {
		t.Errorf("batch sizes = %v, want [2 2 1]", sizes)
	}
	if result.Digest != Digest([]byte(body)) {
		t.Errorf("Digest = %q", result.Digest)
	}
}

func TestSyncPeriodCountsRowErrors(t *testing.T) {
	t.Parallel()

	body := testinfra.MasterIndex(rec(1, "10-K", "2024-01-02")) +
		"abc|Bad Id Corp|10-K|2024-01-03|edgar/data/x/bad.txt\n" +
		"7|Too|Few|edgar/data/7/few.txt\n"
	fetcher := &mockFetcher{fetch: func(context.Context, string) ([]byte, error) { return []byte(body), nil }}
	engine := NewEngine(newTestConfig("http://archive.test/full-index"), &mockIndexStore{}, fetcher, nil)

	result, err := engine.SyncPeriod(context.Background(), 2024, 1)
	if err != nil {
		t.Fatalf("SyncPeriod() error = %v", err)
	}
	if result.Records != 1 || result.RowErrors != 2 {
		t.Errorf("records/row errors = %d/%d, want 1/2", result.Records, result.RowErrors)
	}
}

func TestSyncPeriodErrors(t *testing.T) {
	t.Parallel()

	insertErr := errors.New("constraint violated")
	tests := []struct {
		name    string
		quarter int
		fetch   func(context.Context, string) ([]byte, error)
		insert  func(context.Context, []models.FilingIndexRecord) (int, error)
		wantErr error
	}{
		{
			name:    "invalid quarter",
			quarter: 5,
			wantErr: index.ErrInvalidQuarter,
		},
		{
			name:    "fetch failure",
			quarter: 1,
			fetch: func(context.Context, string) ([]byte, error) {
				return nil, fetch.ErrFetchFailed
			},
			wantErr: fetch.ErrFetchFailed,
		},
		{
			name:    "store failure",
			quarter: 1,
			fetch: func(context.Context, string) ([]byte, error) {
				return []byte(testinfra.MasterIndex(rec(1, "10-K", "2024-01-02"))), nil
			},
			insert:  func(context.Context, []models.FilingIndexRecord) (int, error) { return 0, insertErr },
			wantErr: insertErr,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fetcher := &mockFetcher{fetch: tt.fetch}
			store := &mockIndexStore{insertFilings: tt.insert}
			engine := NewEngine(newTestConfig("http://archive.test/full-index"), store, fetcher, nil)

			_, err := engine.SyncPeriod(context.Background(), 2024, tt.quarter)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSyncRejectsConcurrentRuns(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})
	fetcher := &mockFetcher{fetch: func(context.Context, string) ([]byte, error) {
		close(started)
		<-release
		return nil, nil
	}}
	engine := NewEngine(newTestConfig("http://archive.test/full-index"), &mockIndexStore{}, fetcher, nil)

	done := make(chan error, 1)
	go func() {
		_, err := engine.SyncPeriod(context.Background(), 2024, 1)
		done <- err
	}()
	<-started

	if _, err := engine.SyncAll(context.Background()); !errors.Is(err, ErrSyncInProgress) {
		t.Errorf("SyncAll() err = %v, want ErrSyncInProgress", err)
	}
	if _, err := engine.SyncPeriod(context.Background(), 2024, 2); !errors.Is(err, ErrSyncInProgress) {
		t.Errorf("SyncPeriod() err = %v, want ErrSyncInProgress", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Errorf("first SyncPeriod() error = %v", err)
	}
}

func TestDigest(t *testing.T) {
	t.Parallel()

	a := Digest([]byte("CIK|Company Name|Form Type|Date Filed|Filename"))
	if len(a) != 16 {
		t.Errorf("digest %q should be 16 hex characters", a)
	}
	if a != Digest([]byte("CIK|Company Name|Form Type|Date Filed|Filename")) {
		t.Error("digest must be deterministic")
	}
	if a == Digest([]byte("CIK|Company Name|Form Type|Date Filed|Filename ")) {
		t.Error("different content should give a different digest")
	}
}
