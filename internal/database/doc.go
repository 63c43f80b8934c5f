// Filingsync - Regulatory Filing Index Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filingsync

// Package database is the DuckDB index and mapping store.
//
// The schema is two append-only tables:
//
//	filing_index         one row per distinct (subject_id, form_type, date_filed, filename)
//	identifier_mappings  one row per accepted mapping, per build run
//
// filing_index carries a UNIQUE constraint on its natural key and inserts
// use ON CONFLICT DO NOTHING, so replaying a period inserts nothing and
// concurrent writers of the same rows cannot produce duplicates. The sync
// cursor is not stored anywhere; it is MAX(date_filed) at the start of a run.
//
// Schema changes are versioned in schema_migrations (see migrations.go).
// Tests open ":memory:" databases.
package database
