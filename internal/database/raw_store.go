// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/tomtom215/fudosync/internal/models"
)

const rawColumns = 6

// InsertRawRecords writes records into the raw table of spec in a single
// transaction, chunked into multi-row INSERT statements. Rows whose
// (id_fudo, id_sucursal_fuente, payload_checksum) already exists are skipped.
// It returns the number of rows actually inserted. On error nothing from the
// batch is committed.
func (db *DB) InsertRawRecords(ctx context.Context, spec models.EntitySpec, records []models.RawRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	table, err := rawTableName(spec)
	if err != nil {
		return 0, err
	}

	chunkSize := db.cfg.InsertChunkSize
	if chunkSize <= 0 {
		chunkSize = 1000
	}

	var inserted int
	err = withConflictRetry(ctx, func() error {
		n, txErr := db.insertRawTx(ctx, table, records, chunkSize)
		inserted = n
		return txErr
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

func (db *DB) insertRawTx(ctx context.Context, table string, records []models.RawRecord, chunkSize int) (inserted int, err error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackOnError(tx, &err)

	for start := 0; start < len(records); start += chunkSize {
		end := min(start+chunkSize, len(records))
		query, args := buildRawInsert(table, records[start:end])

		res, execErr := tx.ExecContext(ctx, query, args...)
		if execErr != nil {
			err = fmt.Errorf("failed to insert into %s (rows %d-%d): %w", table, start, end-1, execErr)
			return 0, err
		}
		if n, raErr := res.RowsAffected(); raErr == nil {
			inserted += int(n)
		}
	}

	if err = tx.Commit(); err != nil {
		err = fmt.Errorf("failed to commit %s batch: %w", table, err)
		return 0, err
	}
	return inserted, nil
}

// buildRawInsert renders one multi-row INSERT for chunk.
func buildRawInsert(table string, chunk []models.RawRecord) (string, []interface{}) {
	var sb strings.Builder
	sb.Grow(160 + len(chunk)*24)
	sb.WriteString("INSERT INTO ")
	sb.WriteString(table)
	sb.WriteString(" (id_fudo, id_sucursal_fuente, fecha_extraccion_utc, payload_json, last_updated_at_fudo, payload_checksum) VALUES ")

	args := make([]interface{}, 0, len(chunk)*rawColumns)
	for i := range chunk {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(?, ?, ?, ?, ?, ?)")

		r := &chunk[i]
		var updated interface{}
		if r.SourceUpdatedAt != nil {
			updated = r.SourceUpdatedAt.UTC()
		}
		args = append(args, r.SourceID, r.BranchID, r.ExtractedAt.UTC(), r.Payload, updated, r.Checksum)
	}
	sb.WriteString(" ON CONFLICT (id_fudo, id_sucursal_fuente, payload_checksum) DO NOTHING")
	return sb.String(), args
}

// CountRawRecords returns the number of stored versions for branchID in the
// raw table of spec.
func (db *DB) CountRawRecords(ctx context.Context, spec models.EntitySpec, branchID string) (int, error) {
	table, err := rawTableName(spec)
	if err != nil {
		return 0, err
	}
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	var n int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE id_sucursal_fuente = ?", table)
	if err := db.conn.QueryRowContext(ctx, query, branchID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}
