// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

package models

import "time"

// APIResponse is the wrapper used by every JSON endpoint.
//
//	{"status":"success","data":{...},"metadata":{"timestamp":"2026-10-19T12:00:00Z"}}
//	{"status":"error","error":{"code":"SYNC_IN_PROGRESS","message":"..."},"metadata":{...}}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data,omitempty"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HealthStatus is returned by the liveness and readiness endpoints.
type HealthStatus struct {
	Status            string     `json:"status"` // "ok" or "degraded"
	DatabaseConnected bool       `json:"database_connected"`
	LastSyncTime      *time.Time `json:"last_sync_time,omitempty"`
	SyncRunning       bool       `json:"sync_running"`
}

// SyncStatus is returned by GET /api/v1/status.
type SyncStatus struct {
	Running    bool        `json:"running"`
	LastRun    *RunSummary `json:"last_run,omitempty"`
	Watermarks []Watermark `json:"watermarks"`
}
