// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

/*
Package models defines data structures shared across Fudosync packages.

Key Components:

  - Branch: one Fudo account (tenant) registered for extraction
  - Record: one element of a Fudo collection, kept as its verbatim JSON
  - RawRecord: the storage tuple written to the raw store
  - Watermark / CachedToken: durable per-branch progress and auth state
  - EntitySpec / EntityClass: how a collection is synchronized
  - RunSummary: outcome of one extraction pass
  - APIResponse: wrapper for the status HTTP endpoints

Models carry no behaviour beyond small accessors; persistence lives in
internal/database and internal/state, and the extraction logic in internal/sync.
*/
package models
