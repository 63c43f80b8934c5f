// Filingsync - Regulatory Filing Index Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filingsync

package models

import (
	"time"
)

// APIResponse is the envelope every HTTP endpoint returns.
//
//	{
//	  "status": "success",
//	  "data": {"job_id": "3f1c...", "status": "pending"},
//	  "metadata": {"timestamp": "2026-01-05T12:00:00Z"}
//	}
//
// On failure Status is "error" and Error is populated:
//
//	{
//	  "status": "error",
//	  "error": {"code": "VALIDATION_ERROR", "message": "quarter must be between 1 and 4"},
//	  "metadata": {"timestamp": "2026-01-05T12:00:00Z"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data,omitempty"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries response timing.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
}

// APIError is a machine-readable error code plus a message.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Job statuses.
const (
	JobPending   = "pending"
	JobRunning   = "running"
	JobSucceeded = "succeeded"
	JobFailed    = "failed"
)

// Job is a background operation started through the API.
type Job struct {
	ID         string      `json:"id"`
	Kind       string      `json:"kind"`
	Status     string      `json:"status"`
	CreatedAt  time.Time   `json:"created_at"`
	StartedAt  *time.Time  `json:"started_at,omitempty"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
	Result     interface{} `json:"result,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// Done reports whether the job has reached a terminal status.
func (j *Job) Done() bool {
	return j.Status == JobSucceeded || j.Status == JobFailed
}

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status         string     `json:"status"` // healthy or degraded
	StoreDriver    string     `json:"store_driver"`
	StoreConnected bool       `json:"store_connected"`
	IndexedFilings int64      `json:"indexed_filings"`
	ArchiveBreaker string     `json:"archive_breaker,omitempty"`
	LastFullIndex  *RunRecord `json:"last_full_index,omitempty"`
	Uptime         float64    `json:"uptime_seconds"`
}
