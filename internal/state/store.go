// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

package state

import (
	"context"
	"time"

	"github.com/tomtom215/fudosync/internal/models"
)

// WatermarkStore reads and advances per (branch, entity) watermarks.
type WatermarkStore interface {
	// GetWatermark returns the last successful extraction time. ok is false
	// if the pair was never synchronized.
	GetWatermark(ctx context.Context, branchID, entity string) (ts time.Time, ok bool, err error)
	// SetWatermark records ts unless a later watermark is already stored.
	SetWatermark(ctx context.Context, branchID, entity string, ts time.Time) error
	ListWatermarks(ctx context.Context) ([]models.Watermark, error)
}

// TokenStore caches one access token per branch.
type TokenStore interface {
	// GetToken returns nil, nil when no token is cached.
	GetToken(ctx context.Context, branchID string) (*models.CachedToken, error)
	SetToken(ctx context.Context, branchID, token string, expiresAt time.Time) error
}

// Store is the full state backend used by the sync engine.
type Store interface {
	WatermarkStore
	TokenStore
}
