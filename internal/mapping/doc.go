// Filingsync - Regulatory Filing Index Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filingsync

// Package mapping derives subject-id to security-identifier mappings from
// tabular exports.
//
// Export rows carry the subject id in column 1 and an identifier candidate in
// column 2 (0-indexed); further columns are ignored. Candidates that are not
// 6, 8 or 9 characters long, or that start with a known placeholder prefix,
// are dropped without logging since they are normal noise in the exports.
//
// A candidate yields a 6-character short key and, when it has at least 8
// characters, an 8-character long key. A 6-character candidate therefore maps
// to a short key only and LongKey is left empty.
package mapping
