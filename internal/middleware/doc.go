// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

/*
Package middleware provides HTTP middleware for the fudosync status server.

Key Components:

  - Request ID: reuses an upstream X-Request-ID or generates a UUID, and
    seeds the logging context with request and correlation IDs
  - Prometheus Metrics: request count, latency and in-flight gauge, labelled
    by chi route pattern so path parameters do not explode cardinality
  - Access Log: one structured zerolog line per request

All middleware use the http.HandlerFunc signature. The api package adapts
them to chi's func(http.Handler) http.Handler with a small wrapper.

Usage Example:

	r := chi.NewRouter()
	r.Use(adapt(middleware.RequestID))
	r.Use(adapt(middleware.PrometheusMetrics))
	r.Use(adapt(middleware.AccessLog))
*/
package middleware
