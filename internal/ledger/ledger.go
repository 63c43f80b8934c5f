// Filingsync - Regulatory Filing Index Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filingsync

// Package ledger records when named processes last completed and the
// content digest of every persisted index period.
//
// Keys:
//
//	run:{process}          models.RunRecord
//	digest:{year}/QTR{q}   periodDigest
//
// Values are JSON. The ledger is advisory: losing it costs one full
// re-sync, never data, because filing inserts are idempotent.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/filingsync/internal/config"
	"github.com/tomtom215/filingsync/internal/models"
)

const (
	runPrefix    = "run:"
	digestPrefix = "digest:"
)

type periodDigest struct {
	Digest  string    `json:"digest"`
	SavedAt time.Time `json:"saved_at"`
}

func runKey(process string) []byte { return []byte(runPrefix + process) }

func digestKey(p models.Period) []byte { return []byte(digestPrefix + p.String()) }

// Badger is the persistent ledger.
type Badger struct {
	db  *badger.DB
	now func() time.Time
}

// Open opens the ledger at cfg.Path, or an in-memory ledger when
// cfg.InMemory is set.
func Open(cfg config.LedgerConfig) (*Badger, error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger ledger: %w", err)
	}
	return NewBadger(db), nil
}

// NewBadger wraps an open Badger database. The caller keeps ownership of db
// unless it calls Close on the returned ledger.
func NewBadger(db *badger.DB) *Badger {
	return &Badger{db: db, now: time.Now}
}

// Close closes the underlying database.
func (l *Badger) Close() error {
	return l.db.Close()
}

// RecordRun stores rec as the last run of rec.Process.
func (l *Badger) RecordRun(ctx context.Context, rec models.RunRecord) error {
	if rec.Process == "" {
		return fmt.Errorf("record run: process name is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal run record: %w", err)
	}
	return l.db.Update(func(txn *badger.Txn) error {
		return txn.Set(runKey(rec.Process), data)
	})
}

// LastRun returns the last recorded run of process. ok is false when the
// process has never completed.
func (l *Badger) LastRun(ctx context.Context, process string) (models.RunRecord, bool, error) {
	var rec models.RunRecord
	found, err := l.get(ctx, runKey(process), &rec)
	if err != nil {
		return models.RunRecord{}, false, fmt.Errorf("load run %s: %w", process, err)
	}
	return rec, found, nil
}

// Runs returns every recorded run, ordered by process name.
func (l *Badger) Runs(ctx context.Context) ([]models.RunRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []models.RunRecord
	err := l.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(runPrefix), PrefetchValues: true, PrefetchSize: 16})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var rec models.RunRecord
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return out, nil
}

// PeriodDigest returns the digest saved for p.
func (l *Badger) PeriodDigest(ctx context.Context, p models.Period) (string, bool, error) {
	var d periodDigest
	found, err := l.get(ctx, digestKey(p), &d)
	if err != nil {
		return "", false, fmt.Errorf("load digest %s: %w", p, err)
	}
	return d.Digest, found, nil
}

// SavePeriodDigest stores the digest of the index last persisted for p.
func (l *Badger) SavePeriodDigest(ctx context.Context, p models.Period, digest string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(periodDigest{Digest: digest, SavedAt: l.now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal digest: %w", err)
	}
	return l.db.Update(func(txn *badger.Txn) error {
		return txn.Set(digestKey(p), data)
	})
}

// ForgetDigests drops every period digest so the next sync re-reads all
// periods in range. It returns the number removed.
func (l *Badger) ForgetDigests(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	prefix := []byte(digestPrefix)
	var keys [][]byte
	err := l.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("list digests: %w", err)
	}
	if err := l.db.DropPrefix(prefix); err != nil {
		return 0, fmt.Errorf("drop digests: %w", err)
	}
	return len(keys), nil
}

func (l *Badger) get(ctx context.Context, key []byte, into any) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	found := false
	err := l.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, into)
		})
	})
	return found, err
}
