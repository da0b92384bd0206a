// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Fetch Metrics
	PagesFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fudosync_pages_fetched_total",
			Help: "Total number of collection pages fetched from the Fudo API",
		},
		[]string{"entity"},
	)

	FetchRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fudosync_fetch_retries_total",
			Help: "Total number of page request retries",
		},
		[]string{"entity", "reason"}, // reason: "rate_limited", "server_error", "transport", "decode", "circuit_open"
	)

	RecordsFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fudosync_records_fetched_total",
			Help: "Total number of records returned after reconciliation",
		},
		[]string{"entity"},
	)

	// Load Metrics
	RowsInserted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fudosync_rows_inserted_total",
			Help: "Total number of new raw payload versions stored",
		},
		[]string{"entity"},
	)

	EntitySyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fudosync_entity_sync_duration_seconds",
			Help:    "Duration of one entity fetch-and-load cycle",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"entity"},
	)

	EntityFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fudosync_entity_failures_total",
			Help: "Total number of entity cycles that failed",
		},
		[]string{"entity", "kind"},
	)

	BranchFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fudosync_branch_failures_total",
			Help: "Total number of branches skipped because no token could be obtained",
		},
	)

	WatermarkTimestamp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fudosync_watermark_timestamp_seconds",
			Help: "Current watermark as a Unix timestamp",
		},
		[]string{"branch", "entity"},
	)

	TokenRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fudosync_token_refreshes_total",
			Help: "Total number of token exchanges",
		},
		[]string{"result"}, // "success", "failure"
	)

	// Run Metrics
	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fudosync_run_duration_seconds",
			Help:    "Duration of a full extraction pass over all branches",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 1800, 3600},
		},
	)

	LastRunSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fudosync_last_run_success_timestamp_seconds",
			Help: "Unix timestamp of the last pass that completed without failures",
		},
	)

	RunsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fudosync_runs_in_progress",
			Help: "1 while an extraction pass is running",
		},
	)

	// Circuit Breaker Metrics
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

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// RecordPage records one successfully fetched page.
func RecordPage(entity string) {
	PagesFetched.WithLabelValues(entity).Inc()
}

// RecordRetry records a page retry with its reason.
func RecordRetry(entity, reason string) {
	FetchRetries.WithLabelValues(entity, reason).Inc()
}

// RecordEntitySync records the outcome of one entity cycle. kind is empty on success.
func RecordEntitySync(entity string, fetched, inserted int, duration time.Duration, kind string) {
	EntitySyncDuration.WithLabelValues(entity).Observe(duration.Seconds())
	if kind != "" {
		EntityFailures.WithLabelValues(entity, kind).Inc()
		return
	}
	RecordsFetched.WithLabelValues(entity).Add(float64(fetched))
	RowsInserted.WithLabelValues(entity).Add(float64(inserted))
}

// RecordWatermark publishes the watermark of (branch, entity).
func RecordWatermark(branch, entity string, ts time.Time) {
	WatermarkTimestamp.WithLabelValues(branch, entity).Set(float64(ts.Unix()))
}

// RecordTokenRefresh records a token exchange.
func RecordTokenRefresh(err error) {
	if err != nil {
		TokenRefreshes.WithLabelValues("failure").Inc()
		return
	}
	TokenRefreshes.WithLabelValues("success").Inc()
}

// RecordRun records a completed pass. LastRunSuccess only moves when nothing failed.
func RecordRun(duration time.Duration, failures int, finished time.Time) {
	RunDuration.Observe(duration.Seconds())
	if failures == 0 {
		LastRunSuccess.Set(float64(finished.Unix()))
	}
}

// TrackRun flips the in-progress gauge.
func TrackRun(running bool) {
	if running {
		RunsInProgress.Set(1)
	} else {
		RunsInProgress.Set(0)
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// SetAppInfo publishes the build version.
func SetAppInfo(version string) {
	AppInfo.WithLabelValues(version, runtime.Version()).Set(1)
}

// StartUptimeTracker updates AppUptime every interval until stop is closed.
func StartUptimeTracker(started time.Time, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		AppUptime.Set(time.Since(started).Seconds())
		select {
		case <-ticker.C:
		case <-stop:
			return
		}
	}
}
