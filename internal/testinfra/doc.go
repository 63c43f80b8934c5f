// Filingsync - Regulatory Filing Index Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filingsync

// Package testinfra provides shared test infrastructure.
//
// Always available:
//
//   - MockArchive: an httptest server laid out like the filing archive
//     (full-index directories plus document paths), with per-path status
//     overrides, optional gzip encoding and request capture.
//   - MemStore: an in-memory index and mapping store with the same
//     duplicate-suppression contract as the real stores.
//   - MasterIndex: renders records as a master.idx body.
//
// Behind the integration build tag, NewPostgresContainer starts PostgreSQL
// with testcontainers-go:
//
//	go test -tags integration ./internal/postgres/...
//
// Container tests require Docker and are skipped when it is unavailable.
package testinfra
