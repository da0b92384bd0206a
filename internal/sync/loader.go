// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/fudosync/internal/models"
)

// RawStore persists raw payload versions. Implemented by database.DB.
type RawStore interface {
	// InsertRawRecords stores records atomically, skipping rows whose
	// (id, branch, checksum) already exists, and returns the number of new rows.
	InsertRawRecords(ctx context.Context, spec models.EntitySpec, records []models.RawRecord) (int, error)
}

// Loader turns a reconciled batch into raw rows and stores them.
type Loader struct {
	store RawStore
	now   func() time.Time
}

// NewLoader creates a Loader writing to store.
func NewLoader(store RawStore) *Loader {
	return &Loader{store: store, now: time.Now}
}

// Load stores batch for branchID and returns the number of new versions.
func (l *Loader) Load(ctx context.Context, branchID string, spec models.EntitySpec, batch models.FetchBatch) (int, error) {
	rows, err := l.BuildRows(branchID, spec, batch)
	if err != nil {
		return 0, persistenceError(spec.Name, err)
	}
	inserted, err := l.store.InsertRawRecords(ctx, spec, rows)
	if err != nil {
		return 0, persistenceError(spec.Name, err)
	}
	return inserted, nil
}

// BuildRows computes the canonical payload, checksum and source timestamp of
// every record. All rows of one batch share the same extraction time.
func (l *Loader) BuildRows(branchID string, spec models.EntitySpec, batch models.FetchBatch) ([]models.RawRecord, error) {
	extractedAt := l.now().UTC()
	rows := make([]models.RawRecord, 0, len(batch))
	for _, rec := range batch {
		canonical, err := Canonicalize(rec.Raw)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", rec.ID, err)
		}
		rows = append(rows, models.RawRecord{
			SourceID:        rec.ID,
			BranchID:        branchID,
			ExtractedAt:     extractedAt,
			Payload:         string(canonical),
			SourceUpdatedAt: sourceUpdatedAt(rec.Raw, spec.UpdatedFields),
			Checksum:        Checksum(canonical),
		})
	}
	return rows, nil
}
