// Filingsync - Regulatory Filing Index Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filingsync

// Package query builds parameterized WHERE clauses for the filing stores.
//
// Values never reach the SQL text; every filter contributes a placeholder
// and an argument. The placeholder style is chosen per driver:
//
//	wb := query.NewWhereBuilder(query.Question) // DuckDB: ?
//	wb := query.NewWhereBuilder(query.Dollar)   // PostgreSQL: $1, $2, ...
//
// FilingWhere applies a models.FilingFilter:
//
//	where, args := query.FilingWhere(query.Dollar, filter).BuildWithPrefix()
//	sql := "SELECT ... FROM filing_index " + where + " ORDER BY id"
//
// Column names are fixed strings supplied by the stores. They are never
// taken from user input.
package query
