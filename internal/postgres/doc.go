// Filingsync - Regulatory Filing Index Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filingsync

// Package postgres is the PostgreSQL index and mapping store, selected with
// database.driver=postgres. It offers the same methods and schema as the
// DuckDB store.
//
// Filing batches are bulk loaded with COPY into a transaction-scoped
// temporary staging table and then inserted by exclusion:
//
//	INSERT INTO filing_index (...)
//	SELECT ... FROM filing_index_staging s
//	WHERE NOT EXISTS (SELECT 1 FROM filing_index f WHERE <natural key matches>)
//	ON CONFLICT DO NOTHING
//
// The staging table is private to the transaction, so concurrent writers
// never see each other's rows. The UNIQUE constraint settles races between
// them.
package postgres
