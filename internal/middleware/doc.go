// Filingsync - Regulatory Filing Index Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filingsync

// Package middleware provides the HTTP middleware the API router stacks in
// front of its handlers:
//
//   - RequestID: X-Request-ID propagation plus request and correlation IDs in the logging context
//   - PrometheusMetrics: request counts, latency and the in-flight gauge, labelled by chi route pattern
//   - Compression: gzip responses for clients that accept it
//
// All three have the standard func(http.Handler) http.Handler shape and can
// be passed straight to chi's Use.
package middleware
