// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

package database

import (
	"database/sql"
	"errors"
	"io"

	"github.com/tomtom215/fudosync/internal/logging"
)

// ErrUnknownEntity is returned when an entity name cannot be turned into a
// safe raw table name.
var ErrUnknownEntity = errors.New("unknown entity")

// ErrBranchNotFound is returned by Branch when no row matches.
var ErrBranchNotFound = errors.New("branch not found")

// closeWithLog closes a resource and logs, but does not return, any error.
func closeWithLog(closer io.Closer, resourceType string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.Warn().Str("type", resourceType).Err(err).Msg("Failed to close resource")
	}
}

// closeQuietly closes a resource on an error path where the Close error is not actionable.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}

// rollbackOnError rolls tx back when *errp is non-nil. Use with defer.
func rollbackOnError(tx *sql.Tx, errp *error) {
	if *errp == nil {
		return
	}
	if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
		logging.Error().Err(rbErr).AnErr("original_error", *errp).Msg("Transaction rollback failed")
	}
}
