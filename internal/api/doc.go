// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

/*
Package api provides the HTTP status surface of the "serve" daemon.

The surface is small and operational: it lets an orchestrator probe the
process, lets Prometheus scrape it, and lets an operator inspect or trigger
extraction passes without shelling into the container.

Routes:

	GET  /api/v1/health          overall health (database, last run)
	GET  /api/v1/health/live     liveness probe, always 200 while the process runs
	GET  /api/v1/health/ready    readiness probe, 503 when DuckDB does not answer
	GET  /api/v1/status          last run summary and every stored watermark
	POST /api/v1/sync            start a pass (202), or 409 if one is running
	POST /api/v1/sync?wait=true  run a pass and return its summary
	GET  /api/v1/branches        registered branches
	POST /api/v1/branches        create or update a branch
	GET  /metrics                Prometheus exposition

Middleware Stack:

Every request passes through request ID assignment (with logging context),
real-IP extraction, panic recovery and CORS. The /api/v1 group adds per-IP
rate limiting via go-chi/httprate, security headers, Prometheus request
metrics and an access log.

All JSON bodies use the models.APIResponse envelope:

	{"status": "success", "data": {...}, "metadata": {"timestamp": "..."}}
	{"status": "error", "error": {"code": "SYNC_IN_PROGRESS", "message": "..."}, ...}

Handlers depend on small interfaces (Pinger, SyncController, WatermarkLister,
BranchRegistry) so tests can drive them without DuckDB or the Fudo API.
*/
//nolint:staticcheck // File documentation, not package doc
package api
