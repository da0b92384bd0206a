// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

package database

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/tomtom215/fudosync/internal/logging"
)

// SQLFileHook executes a list of SQL files against the database after every
// extraction pass, typically to refresh reporting tables built from the raw
// store. Each file is run independently; a failing file is logged and the
// remaining files still run.
type SQLFileHook struct {
	db    *DB
	files []string
}

// NewSQLFileHook creates a hook running files in order.
func NewSQLFileHook(db *DB, files []string) *SQLFileHook {
	return &SQLFileHook{db: db, files: files}
}

// AfterRun implements the driver's post-run hook. It returns the number of
// files that failed, wrapped in an error, so callers can surface it.
func (h *SQLFileHook) AfterRun(ctx context.Context) error {
	var failed []string
	for _, path := range h.files {
		start := time.Now()
		if err := h.execFile(ctx, path); err != nil {
			logging.Ctx(ctx).Error().Err(err).Str("file", path).Msg("Post-run SQL failed")
			failed = append(failed, path)
			continue
		}
		logging.Ctx(ctx).Info().Str("file", path).Dur("duration", time.Since(start)).Msg("Post-run SQL executed")
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d post-run SQL file(s) failed: %s", len(failed), strings.Join(failed, ", "))
	}
	return nil
}

func (h *SQLFileHook) execFile(ctx context.Context, path string) error {
	body, err := os.ReadFile(path) //nolint:gosec // operator-supplied path from configuration
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if strings.TrimSpace(string(body)) == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()
	if _, err := h.db.conn.ExecContext(ctx, string(body)); err != nil {
		return fmt.Errorf("failed to execute %s: %w", path, err)
	}
	return nil
}
