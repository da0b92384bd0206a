// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

package database

import (
	"context"
	"database/sql"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/tomtom215/fudosync/internal/logging"
)

// openWithRetry opens and pings the database, retrying with exponential
// backoff. A DuckDB file held by another process (a previous instance still
// shutting down) is the usual transient failure here.
func (db *DB) openWithRetry(ctx context.Context) (*sql.DB, error) {
	attempt := 0
	open := func() (*sql.DB, error) {
		attempt++
		conn, err := db.attemptOpen(ctx)
		if err != nil {
			return nil, fmt.Errorf("open attempt %d failed: %w", attempt, err)
		}
		return conn, nil
	}

	bo := &backoff.ExponentialBackOff{
		InitialInterval: db.openRetryDelay,
		Multiplier:      2,
		MaxInterval:     time.Minute,
	}
	conn, err := backoff.Retry(ctx, open,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(db.maxOpenAttempts)),
		backoff.WithNotify(func(err error, delay time.Duration) {
			logging.Warn().
				Err(err).
				Int("attempt", attempt+1).
				Dur("delay", delay).
				Msg("Database open failed, retrying")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open database after %d attempts: %w", attempt, err)
	}
	return conn, nil
}

func (db *DB) attemptOpen(ctx context.Context) (*sql.DB, error) {
	conn, err := sql.Open("duckdb", db.dsn())
	if err != nil {
		return nil, fmt.Errorf("failed to open: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to ping: %w", err)
	}
	return conn, nil
}

// configureConnectionPool sets pool limits. The engine is sequential, so a
// small pool is enough; the HTTP status endpoints use the spare connections.
func (db *DB) configureConnectionPool() {
	db.conn.SetMaxOpenConns(max(2, runtime.NumCPU()/2))
	db.conn.SetMaxIdleConns(2)
	db.conn.SetConnMaxLifetime(time.Hour)
	db.conn.SetConnMaxIdleTime(5 * time.Minute)
}

// isTransactionConflict reports DuckDB optimistic concurrency conflicts.
func isTransactionConflict(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "Transaction conflict") ||
		strings.Contains(errStr, "Conflict on update")
}

// withConflictRetry runs fn, retrying DuckDB transaction conflicts with a
// short exponential backoff (1ms, 2ms, 4ms).
func withConflictRetry(ctx context.Context, fn func() error) error {
	const maxRetries = 3
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isTransactionConflict(err) || attempt == maxRetries-1 {
			return err
		}
		select {
		case <-time.After(time.Millisecond * time.Duration(1<<uint(attempt))):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("max retries exceeded: %w", lastErr)
}
