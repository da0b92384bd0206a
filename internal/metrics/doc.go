// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

/*
Package metrics provides Prometheus metrics for the extraction engine.

All collectors are registered on the default registry through promauto and
exposed by the HTTP server at /metrics.

# Available Metrics

Fetch:
  - fudosync_pages_fetched_total{entity}
  - fudosync_fetch_retries_total{entity,reason}
  - fudosync_records_fetched_total{entity}

Load:
  - fudosync_rows_inserted_total{entity}
  - fudosync_entity_sync_duration_seconds{entity}
  - fudosync_entity_failures_total{entity,kind}
  - fudosync_watermark_timestamp_seconds{branch,entity}

Branch and run:
  - fudosync_branch_failures_total
  - fudosync_token_refreshes_total{result}
  - fudosync_run_duration_seconds
  - fudosync_last_run_success_timestamp_seconds
  - fudosync_runs_in_progress

Circuit breaker (labels: name):
  - circuit_breaker_state (0=closed, 1=half-open, 2=open)
  - circuit_breaker_requests_total{name,result}
  - circuit_breaker_consecutive_failures
  - circuit_breaker_state_transitions_total{name,from_state,to_state}

HTTP surface:
  - api_requests_total{method,endpoint,status_code}
  - api_request_duration_seconds{method,endpoint}
  - api_active_requests
  - api_rate_limit_hits_total{endpoint}

# Example Queries

Entities failing in the last day:

	sum by (entity, kind) (increase(fudosync_entity_failures_total[1d]))

Staleness per branch and entity:

	time() - fudosync_watermark_timestamp_seconds
*/
package metrics
