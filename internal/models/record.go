// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

package models

import (
	"encoding/json"
	"time"
)

// Record is one element of a Fudo collection response. Raw holds the element
// exactly as the API returned it; ID is the normalized string form of its
// "id" member ("" when the element has none).
type Record struct {
	ID  string
	Raw json.RawMessage
}

// FetchBatch is the ordered result of one paginated fetch.
type FetchBatch []Record

// RawRecord is one row of a fudo_raw_<entity> table.
type RawRecord struct {
	SourceID        string     // id_fudo
	BranchID        string     // id_sucursal_fuente
	ExtractedAt     time.Time  // fecha_extraccion_utc
	Payload         string     // payload_json, canonical form
	SourceUpdatedAt *time.Time // last_updated_at_fudo
	Checksum        string     // payload_checksum
}
