// Filingsync - Regulatory Filing Index Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filingsync

// Package api exposes filingsync over HTTP with a chi router.
//
// Read endpoints answer from the index store, through Deps.Cache when one is
// set:
//
//	GET  /health, /health/live, /health/ready
//	GET  /metrics
//	GET  /api/v1/form-types
//	GET  /api/v1/filings?form_type=10-K,8-K&subject_id=&from=&to=&limit=&offset=
//	GET  /api/v1/subjects/{subject_id}/mappings
//	GET  /api/v1/runs
//
// Operations that touch the archive start a background job and answer 202
// with the job; clients poll GET /api/v1/jobs/{id} until it is done:
//
//	POST /api/v1/sync
//	POST /api/v1/sync/{year}/{quarter}
//	POST /api/v1/retrievals   {"form_type":"10-K"} or {"contains":"13"}
//	POST /api/v1/mappings     {"form_type":"13F-HR"}
//	POST /api/v1/process      {"form_types":["13F-HR"]}
//
// Jobs that write the same tables are mutually exclusive. Starting one while
// a conflicting job runs answers 409 CONFLICT. The read cache is cleared when
// any job that writes the store returns.
//
// Every response uses the models.APIResponse envelope.
package api
