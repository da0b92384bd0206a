// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

package api

import (
	"context"
	"time"

	"github.com/tomtom215/fudosync/internal/models"
)

// Pinger checks database connectivity. Implemented by database.DB.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SyncController starts passes and reports on them. Implemented by sync.Manager.
type SyncController interface {
	TriggerSync(ctx context.Context) (*models.RunSummary, error)
	TriggerAsync(ctx context.Context) error
	LastSummary() *models.RunSummary
	LastSyncTime() time.Time
	InProgress() bool
}

// WatermarkLister is the read side of the watermark store.
type WatermarkLister interface {
	ListWatermarks(ctx context.Context) ([]models.Watermark, error)
}

// BranchRegistry reads and writes the branch table. Implemented by database.DB.
type BranchRegistry interface {
	ListBranches(ctx context.Context) ([]models.Branch, error)
	UpsertBranch(ctx context.Context, b models.Branch) error
}

// Handler contains dependencies for API handlers
//
// Handler methods are split across files:
//   - handlers_health.go: health, liveness and readiness probes
//   - handlers_sync.go: run status and manual trigger
//   - handlers_branches.go: branch registry
//   - handlers_helpers.go: response helpers
type Handler struct {
	db         Pinger
	sync       SyncController
	watermarks WatermarkLister
	branches   BranchRegistry
	startTime  time.Time
}

// NewHandler creates a new API handler
func NewHandler(db Pinger, sync SyncController, watermarks WatermarkLister, branches BranchRegistry) *Handler {
	return &Handler{
		db:         db,
		sync:       sync,
		watermarks: watermarks,
		branches:   branches,
		startTime:  time.Now(),
	}
}
