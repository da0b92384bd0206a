// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

package models

import "time"

// Watermark is the last successful extraction time of one (branch, entity).
type Watermark struct {
	BranchID    string    `json:"branch_id"`
	Entity      string    `json:"entity"`
	LastSuccess time.Time `json:"last_successful_extraction_utc"`
	UpdatedAt   time.Time `json:"updated_at_utc"`
}

// CachedToken is the bearer token last issued for a branch.
type CachedToken struct {
	BranchID  string    `json:"branch_id"`
	Token     string    `json:"access_token"`
	ExpiresAt time.Time `json:"token_expiration_utc"`
	UpdatedAt time.Time `json:"last_updated_utc"`
}

// ValidFor reports whether the token is still valid for at least grace after now.
func (t *CachedToken) ValidFor(now time.Time, grace time.Duration) bool {
	if t == nil || t.Token == "" {
		return false
	}
	return t.ExpiresAt.After(now.Add(grace))
}
