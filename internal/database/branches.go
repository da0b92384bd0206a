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

	"github.com/tomtom215/fudosync/internal/models"
)

const branchColumns = `id_sucursal, COALESCE(fudo_branch_identifier, ''), COALESCE(sucursal_name, ''),
	secret_manager_apikey_name, secret_manager_apisecret_name, is_active`

// ActiveBranches returns the branches flagged active, ordered by id.
func (db *DB) ActiveBranches(ctx context.Context) ([]models.Branch, error) {
	return db.queryBranches(ctx, "SELECT "+branchColumns+" FROM config_fudo_branches WHERE is_active ORDER BY id_sucursal")
}

// ListBranches returns every registered branch, ordered by id.
func (db *DB) ListBranches(ctx context.Context) ([]models.Branch, error) {
	return db.queryBranches(ctx, "SELECT "+branchColumns+" FROM config_fudo_branches ORDER BY id_sucursal")
}

// Branch returns a single branch or ErrBranchNotFound.
func (db *DB) Branch(ctx context.Context, id string) (models.Branch, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	var b models.Branch
	err := db.conn.QueryRowContext(ctx,
		"SELECT "+branchColumns+" FROM config_fudo_branches WHERE id_sucursal = ?", id).
		Scan(&b.ID, &b.FudoIdentifier, &b.Name, &b.APIKeySecret, &b.APISecretSecret, &b.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Branch{}, fmt.Errorf("%w: %s", ErrBranchNotFound, id)
	}
	if err != nil {
		return models.Branch{}, fmt.Errorf("failed to read branch %s: %w", id, err)
	}
	return b, nil
}

func (db *DB) queryBranches(ctx context.Context, query string) ([]models.Branch, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query branches: %w", err)
	}
	defer closeWithLog(rows, "rows")

	branches := []models.Branch{}
	for rows.Next() {
		var b models.Branch
		if err := rows.Scan(&b.ID, &b.FudoIdentifier, &b.Name, &b.APIKeySecret, &b.APISecretSecret, &b.Active); err != nil {
			return nil, fmt.Errorf("failed to scan branch: %w", err)
		}
		branches = append(branches, b)
	}
	return branches, rows.Err()
}

// UpsertBranch inserts or replaces a branch registry row.
func (db *DB) UpsertBranch(ctx context.Context, b models.Branch) error {
	if b.ID == "" {
		return fmt.Errorf("branch id is required")
	}
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	return withConflictRetry(ctx, func() error {
		_, err := db.conn.ExecContext(ctx,
			`INSERT INTO config_fudo_branches
				(id_sucursal, fudo_branch_identifier, sucursal_name,
				 secret_manager_apikey_name, secret_manager_apisecret_name, is_active)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (id_sucursal) DO UPDATE SET
				fudo_branch_identifier = EXCLUDED.fudo_branch_identifier,
				sucursal_name = EXCLUDED.sucursal_name,
				secret_manager_apikey_name = EXCLUDED.secret_manager_apikey_name,
				secret_manager_apisecret_name = EXCLUDED.secret_manager_apisecret_name,
				is_active = EXCLUDED.is_active`,
			b.ID, nullIfEmpty(b.FudoIdentifier), nullIfEmpty(b.Name), b.APIKeySecret, b.APISecretSecret, b.Active)
		if err != nil {
			return fmt.Errorf("failed to upsert branch %s: %w", b.ID, err)
		}
		return nil
	})
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
