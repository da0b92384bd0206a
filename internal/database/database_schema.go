// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

package database

import (
	"context"
	"fmt"
	"regexp"

	"github.com/tomtom215/fudosync/internal/logging"
	"github.com/tomtom215/fudosync/internal/models"
)

// rawTablePattern guards the identifiers interpolated into raw-table DDL/DML.
var rawTablePattern = regexp.MustCompile(`^fudo_raw_[a-z][a-z0-9_]*$`)

// stateTableQueries create the tables that do not depend on the entity catalog.
var stateTableQueries = []string{
	`CREATE TABLE IF NOT EXISTS etl_fudo_extraction_status (
		id_sucursal VARCHAR NOT NULL,
		entity_name VARCHAR NOT NULL,
		last_successful_extraction_utc TIMESTAMP NOT NULL,
		updated_at_utc TIMESTAMP NOT NULL,
		PRIMARY KEY (id_sucursal, entity_name)
	)`,
	`CREATE TABLE IF NOT EXISTS etl_fudo_tokens (
		id_sucursal VARCHAR PRIMARY KEY,
		access_token VARCHAR NOT NULL,
		token_expiration_utc TIMESTAMP NOT NULL,
		last_updated_utc TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS config_fudo_branches (
		id_sucursal VARCHAR PRIMARY KEY,
		fudo_branch_identifier VARCHAR,
		sucursal_name VARCHAR,
		secret_manager_apikey_name VARCHAR NOT NULL,
		secret_manager_apisecret_name VARCHAR NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	)`,
}

func (db *DB) createStateTables(ctx context.Context) error {
	for _, q := range stateTableQueries {
		if _, err := db.conn.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("failed to create state table: %w", err)
		}
	}
	return nil
}

// rawTableName returns the validated raw table for spec.
func rawTableName(spec models.EntitySpec) (string, error) {
	name := spec.TableName()
	if !rawTablePattern.MatchString(name) {
		return "", fmt.Errorf("%w: %q", ErrUnknownEntity, spec.Name)
	}
	return name, nil
}

// EnsureRawTables creates the raw table of every spec if it does not exist.
func (db *DB) EnsureRawTables(ctx context.Context, specs []models.EntitySpec) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	for _, spec := range specs {
		table, err := rawTableName(spec)
		if err != nil {
			return err
		}
		query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id_fudo VARCHAR NOT NULL,
			id_sucursal_fuente VARCHAR NOT NULL,
			fecha_extraccion_utc TIMESTAMP NOT NULL,
			payload_json VARCHAR NOT NULL,
			last_updated_at_fudo TIMESTAMP,
			payload_checksum VARCHAR NOT NULL,
			PRIMARY KEY (id_fudo, id_sucursal_fuente, payload_checksum)
		)`, table)
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create %s: %w", table, err)
		}
	}
	logging.Debug().Int("tables", len(specs)).Msg("Raw tables ensured")
	return nil
}
