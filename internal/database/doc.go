// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

// Package database is the DuckDB persistence layer for Fudosync.
//
// # Overview
//
// One DuckDB file holds every table the extraction engine writes:
//
//   - fudo_raw_<entity>: append-only raw payload history, one table per
//     Fudo collection, unique on (id_fudo, id_sucursal_fuente, payload_checksum)
//   - etl_fudo_extraction_status: per (branch, entity) watermark
//   - etl_fudo_tokens: per branch cached bearer token
//   - config_fudo_branches: branch registry
//
// # Files
//
//   - database.go: lifecycle (open with retry, checkpoint on close)
//   - database_connection.go: open retry with exponential backoff, pool settings
//   - database_schema.go: state tables and per-entity raw tables
//   - raw_store.go: chunked INSERT ... ON CONFLICT DO NOTHING
//   - watermarks.go: watermark and token upserts
//   - branches.go: branch registry
//   - post_run.go: SQL files executed after each pass
//
// # Consistency
//
// A raw batch is written in one transaction, so it is either fully stored or
// not at all; the driver advances the watermark only after InsertRawRecords
// returns nil. The watermark upsert keeps the greater of the stored and the
// new value, so a watermark never moves backwards.
//
// # Usage
//
//	db, err := database.New(&cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.EnsureRawTables(ctx, catalog.Specs()); err != nil {
//	    return err
//	}
package database
