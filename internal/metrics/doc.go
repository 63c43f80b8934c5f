// Filingsync - Regulatory Filing Index Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filingsync

/*
Package metrics provides Prometheus instrumentation for filingsync.

Collectors are registered with promauto on the default registry and exposed at
/metrics by the API server:

	curl http://localhost:8086/metrics

# Available Metrics

Fetch:
  - filingsync_fetch_attempts_total{kind,result}
  - filingsync_fetch_attempt_duration_seconds{kind}
  - filingsync_fetch_failures_total{kind}
  - circuit_breaker_state{name}, circuit_breaker_requests_total{name,result},
    circuit_breaker_state_transitions_total{name,from_state,to_state}

Sync:
  - filingsync_sync_duration_seconds
  - filingsync_sync_periods_total{outcome}
  - filingsync_sync_records_inserted_total
  - filingsync_sync_row_errors_total
  - filingsync_sync_last_success_timestamp

Retrieval and mapping:
  - filingsync_retrieval_artifacts_total{form_type,outcome}
  - filingsync_mapping_rows_total{outcome}

Store and API:
  - filingsync_db_query_duration_seconds{driver,operation}
  - filingsync_db_query_errors_total{driver,operation,error_type}
  - filingsync_api_requests_total{method,endpoint,status_code}
  - filingsync_api_request_duration_seconds{method,endpoint}
  - filingsync_api_jobs_total{kind,status}

Callers use the Record* helpers rather than touching collectors directly.
*/
package metrics
