// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/fudosync/internal/models"
)

// GetWatermark returns the last successful extraction time for (branchID, entity).
// ok is false when the pair has never been synchronized.
func (db *DB) GetWatermark(ctx context.Context, branchID, entity string) (ts time.Time, ok bool, err error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	err = db.conn.QueryRowContext(ctx,
		`SELECT last_successful_extraction_utc FROM etl_fudo_extraction_status
		WHERE id_sucursal = ? AND entity_name = ?`, branchID, entity).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to read watermark %s/%s: %w", branchID, entity, err)
	}
	return ts.UTC(), true, nil
}

// SetWatermark upserts the watermark for (branchID, entity). The stored value
// only moves forward: an older ts leaves the existing watermark in place.
func (db *DB) SetWatermark(ctx context.Context, branchID, entity string, ts time.Time) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	return withConflictRetry(ctx, func() error {
		_, err := db.conn.ExecContext(ctx,
			`INSERT INTO etl_fudo_extraction_status
				(id_sucursal, entity_name, last_successful_extraction_utc, updated_at_utc)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (id_sucursal, entity_name) DO UPDATE SET
				last_successful_extraction_utc = greatest(last_successful_extraction_utc, EXCLUDED.last_successful_extraction_utc),
				updated_at_utc = EXCLUDED.updated_at_utc`,
			branchID, entity, ts.UTC(), time.Now().UTC())
		if err != nil {
			return fmt.Errorf("failed to write watermark %s/%s: %w", branchID, entity, err)
		}
		return nil
	})
}

// ListWatermarks returns every watermark ordered by branch and entity.
func (db *DB) ListWatermarks(ctx context.Context) ([]models.Watermark, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id_sucursal, entity_name, last_successful_extraction_utc, updated_at_utc
		FROM etl_fudo_extraction_status ORDER BY id_sucursal, entity_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list watermarks: %w", err)
	}
	defer closeWithLog(rows, "rows")

	watermarks := []models.Watermark{}
	for rows.Next() {
		var w models.Watermark
		if err := rows.Scan(&w.BranchID, &w.Entity, &w.LastSuccess, &w.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan watermark: %w", err)
		}
		w.LastSuccess = w.LastSuccess.UTC()
		w.UpdatedAt = w.UpdatedAt.UTC()
		watermarks = append(watermarks, w)
	}
	return watermarks, rows.Err()
}

// GetToken returns the cached token for branchID, or nil if none is stored.
func (db *DB) GetToken(ctx context.Context, branchID string) (*models.CachedToken, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	t := &models.CachedToken{BranchID: branchID}
	err := db.conn.QueryRowContext(ctx,
		`SELECT access_token, token_expiration_utc, last_updated_utc
		FROM etl_fudo_tokens WHERE id_sucursal = ?`, branchID).Scan(&t.Token, &t.ExpiresAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token for branch %s: %w", branchID, err)
	}
	t.ExpiresAt = t.ExpiresAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return t, nil
}

// SetToken upserts the cached token for branchID.
func (db *DB) SetToken(ctx context.Context, branchID, token string, expiresAt time.Time) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	return withConflictRetry(ctx, func() error {
		_, err := db.conn.ExecContext(ctx,
			`INSERT INTO etl_fudo_tokens (id_sucursal, access_token, token_expiration_utc, last_updated_utc)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (id_sucursal) DO UPDATE SET
				access_token = EXCLUDED.access_token,
				token_expiration_utc = EXCLUDED.token_expiration_utc,
				last_updated_utc = EXCLUDED.last_updated_utc`,
			branchID, token, expiresAt.UTC(), time.Now().UTC())
		if err != nil {
			return fmt.Errorf("failed to write token for branch %s: %w", branchID, err)
		}
		return nil
	})
}
