// Filingsync - Regulatory Filing Index Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filingsync

package metrics

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Archive fetch metrics
	FetchAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filingsync_fetch_attempts_total",
			Help: "Total number of archive fetch attempts by kind and result",
		},
		[]string{"kind", "result"}, // kind: "index", "document"; result: "success", "retry", "failure"
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filingsync_fetch_attempt_duration_seconds",
			Help:    "Duration of a single archive fetch attempt",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"kind"},
	)

	FetchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filingsync_fetch_failures_total",
			Help: "Fetches that exhausted every attempt",
		},
		[]string{"kind"},
	)

	// Circuit breaker metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Index sync metrics
	SyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "filingsync_sync_duration_seconds",
			Help:    "Duration of a full index sync run",
			Buckets: []float64{1, 5, 15, 30, 60, 300, 900, 1800, 3600, 7200},
		},
	)

	SyncPeriods = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filingsync_sync_periods_total",
			Help: "Index periods processed by outcome",
		},
		[]string{"outcome"}, // "synced", "unchanged", "failed"
	)

	SyncRecordsInserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "filingsync_sync_records_inserted_total",
			Help: "Index records newly inserted into the store",
		},
	)

	SyncRowErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "filingsync_sync_row_errors_total",
			Help: "Malformed index rows skipped during parsing",
		},
	)

	SyncErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filingsync_sync_errors_total",
			Help: "Sync runs that ended with an error",
		},
		[]string{"error_type"},
	)

	SyncLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "filingsync_sync_last_success_timestamp",
			Help: "Unix timestamp of the last successful sync run",
		},
	)

	// Retrieval metrics
	RetrievalArtifacts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filingsync_retrieval_artifacts_total",
			Help: "Filing documents handled by the retrieval engine",
		},
		[]string{"form_type", "outcome"}, // outcome: "new", "existing", "failed"
	)

	// Mapping metrics
	MappingRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filingsync_mapping_rows_total",
			Help: "Export rows seen by the mapping builder by outcome",
		},
		[]string{"outcome"}, // "accepted", "filtered", "duplicate", "inserted"
	)

	// Database metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filingsync_db_query_duration_seconds",
			Help:    "Duration of store queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"driver", "operation"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filingsync_db_query_errors_total",
			Help: "Total number of store query errors",
		},
		[]string{"driver", "operation", "error_type"},
	)

	// API metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filingsync_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filingsync_api_request_duration_seconds",
			Help:    "API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "filingsync_api_active_requests",
			Help: "API requests currently being served",
		},
	)

	APIJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filingsync_api_jobs_total",
			Help: "Background jobs started through the API by kind and final status",
		},
		[]string{"kind", "status"},
	)

	APICacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filingsync_api_cache_lookups_total",
			Help: "Read cache lookups by result (hit, miss)",
		},
		[]string{"result"},
	)
)

// Fetch attempt results.
const (
	FetchSuccess = "success"
	FetchRetry   = "retry"
	FetchFailure = "failure"
)

// RecordFetchAttempt records one attempt. result is FetchSuccess, FetchRetry or FetchFailure.
func RecordFetchAttempt(kind, result string, duration time.Duration) {
	FetchAttempts.WithLabelValues(kind, result).Inc()
	FetchDuration.WithLabelValues(kind).Observe(duration.Seconds())
	if result == FetchFailure {
		FetchFailures.WithLabelValues(kind).Inc()
	}
}

// RecordSyncPeriod records the outcome of one index period.
func RecordSyncPeriod(outcome string, inserted, rowErrors int) {
	SyncPeriods.WithLabelValues(outcome).Inc()
	SyncRecordsInserted.Add(float64(inserted))
	SyncRowErrors.Add(float64(rowErrors))
}

// RecordSyncOperation records a whole sync run.
func RecordSyncOperation(duration time.Duration, err error) {
	SyncDuration.Observe(duration.Seconds())
	if err != nil {
		SyncErrors.WithLabelValues(errorType(err)).Inc()
		return
	}
	SyncLastSuccess.Set(float64(time.Now().Unix()))
}

// RecordRetrieval records retrieval counts for a form type.
func RecordRetrieval(formType string, newCount, existing, failed int) {
	RetrievalArtifacts.WithLabelValues(formType, "new").Add(float64(newCount))
	RetrievalArtifacts.WithLabelValues(formType, "existing").Add(float64(existing))
	RetrievalArtifacts.WithLabelValues(formType, "failed").Add(float64(failed))
}

// RecordMappingBuild records one mapping build.
func RecordMappingBuild(accepted, filtered, duplicates, inserted int) {
	MappingRows.WithLabelValues("accepted").Add(float64(accepted))
	MappingRows.WithLabelValues("filtered").Add(float64(filtered))
	MappingRows.WithLabelValues("duplicate").Add(float64(duplicates))
	MappingRows.WithLabelValues("inserted").Add(float64(inserted))
}

// RecordDBQuery records a store query.
func RecordDBQuery(driver, operation string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(driver, operation).Observe(duration.Seconds())
	if err != nil {
		msg := err.Error()
		if len(msg) > 50 {
			msg = msg[:50]
		}
		DBQueryErrors.WithLabelValues(driver, operation, msg).Inc()
	}
}

// RecordAPIRequest records an API request.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(start bool) {
	if start {
		APIActiveRequests.Inc()
		return
	}
	APIActiveRequests.Dec()
}

// RecordCacheLookup records a read cache hit or miss.
func RecordCacheLookup(hit bool) {
	if hit {
		APICacheLookups.WithLabelValues("hit").Inc()
		return
	}
	APICacheLookups.WithLabelValues("miss").Inc()
}

// RecordAPIJob records a finished API job.
func RecordAPIJob(kind, status string) {
	APIJobs.WithLabelValues(kind, status).Inc()
}

func errorType(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "deadline"
	default:
		return "other"
	}
}
