// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

/*
Package state persists the extraction bookkeeping that survives between runs:
per (branch, entity) watermarks and per-branch cached access tokens.

Two backends satisfy Store:

  - database.DB keeps the state in DuckDB next to the raw tables
    (etl_fudo_extraction_status and etl_fudo_tokens).
  - BadgerStore keeps it in an embedded BadgerDB directory, for deployments
    where the analytical database is shared and the engine's bookkeeping
    should live elsewhere.

Watermarks only move forward in both backends. A write with an older
timestamp than the stored one is ignored.

Keys used by BadgerStore:

	watermark/<branch>/<entity>
	token/<branch>
*/
package state
