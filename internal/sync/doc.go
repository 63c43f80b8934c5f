// Filingsync - Regulatory Filing Index Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filingsync

/*
Package sync keeps the index store in step with the archive's quarterly
master index files.

A run reads the cursor (the latest DateFiled already stored, or the configured
epoch when the store is empty), plans every quarter from the cursor's quarter
onwards, and for each quarter fetches, parses and persists the index:

	engine := sync.NewEngine(cfg, store, fetcher, ledger)
	summary, err := engine.SyncAll(ctx)

The write path is append-only. Stores drop rows whose natural key
(subject id, form type, date filed, filename) is already present, so the
cursor's own quarter can be re-synced on every run without creating
duplicates.

Failure handling:

  - A period whose fetch fails is recorded in the summary and the run moves on.
  - A malformed row is logged, counted and skipped.
  - Cancellation stops the run between periods and between batches; the partial
    summary is still returned.

When a DigestStore is configured and sync.skip_unchanged is set, the xxhash64
digest of each fetched index is remembered after a successful persist. A later
fetch with the same digest is reported as unchanged and not parsed again.

Only one SyncAll or SyncPeriod runs at a time per Engine; a concurrent call
returns ErrSyncInProgress.
*/
package sync
