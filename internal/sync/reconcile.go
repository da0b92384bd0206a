// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

package sync

import (
	"github.com/google/uuid"

	"github.com/tomtom215/fudosync/internal/models"
)

// Reconcile merges batches by record identity. Later batches are fresher: a
// record id seen in batch i+1 replaces the one from batch i. Records without
// an id are given a surrogate id derived from their canonical payload, so the
// same payload maps to the same id on every run and distinct payloads never
// merge.
//
// The result keeps first-seen order, which keeps logs and tests stable even
// though callers must not rely on it.
func Reconcile(batches ...models.FetchBatch) models.FetchBatch {
	total := 0
	for _, b := range batches {
		total += len(b)
	}

	index := make(map[string]int, total)
	out := make(models.FetchBatch, 0, total)
	for _, batch := range batches {
		for _, rec := range batch {
			if rec.ID == "" {
				rec.ID = SurrogateID(rec.Raw)
			}
			if i, ok := index[rec.ID]; ok {
				out[i] = rec
				continue
			}
			index[rec.ID] = len(out)
			out = append(out, rec)
		}
	}
	return out
}

// surrogateNamespace scopes surrogate ids so they cannot collide with
// name-based UUIDs generated elsewhere.
var surrogateNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/tomtom215/fudosync/surrogate"))

// SurrogateID returns a name-based UUID over the canonical form of raw.
// Payloads that are not valid JSON are hashed as-is.
func SurrogateID(raw []byte) string {
	name, err := Canonicalize(raw)
	if err != nil {
		name = raw
	}
	return uuid.NewSHA1(surrogateNamespace, name).String()
}
