// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

package models

import "time"

// RunSummary is the outcome of one extraction pass over all active branches.
type RunSummary struct {
	CorrelationID string          `json:"correlation_id"`
	StartedAt     time.Time       `json:"started_at"`
	FinishedAt    time.Time       `json:"finished_at"`
	Branches      []BranchOutcome `json:"branches"`
}

// BranchOutcome is the per-branch part of a RunSummary.
type BranchOutcome struct {
	BranchID  string          `json:"branch_id"`
	Error     string          `json:"error,omitempty"`
	ErrorKind string          `json:"error_kind,omitempty"`
	Entities  []EntityOutcome `json:"entities,omitempty"`
}

// EntityOutcome is the per-entity part of a BranchOutcome.
type EntityOutcome struct {
	Entity    string        `json:"entity"`
	Strategy  string        `json:"strategy"`
	Fetched   int           `json:"fetched"`
	Inserted  int           `json:"inserted"`
	Duration  time.Duration `json:"duration_ns"`
	Error     string        `json:"error,omitempty"`
	ErrorKind string        `json:"error_kind,omitempty"`
}

// Failed reports whether the branch itself failed (token acquisition).
func (b *BranchOutcome) Failed() bool {
	return b.Error != ""
}

// FailureCounts returns the number of failed branches and failed entities.
func (s *RunSummary) FailureCounts() (branches, entities int) {
	for i := range s.Branches {
		if s.Branches[i].Failed() {
			branches++
		}
		for j := range s.Branches[i].Entities {
			if s.Branches[i].Entities[j].Error != "" {
				entities++
			}
		}
	}
	return branches, entities
}

// Totals returns the records fetched and rows inserted across the run.
func (s *RunSummary) Totals() (fetched, inserted int) {
	for i := range s.Branches {
		for _, e := range s.Branches[i].Entities {
			fetched += e.Fetched
			inserted += e.Inserted
		}
	}
	return fetched, inserted
}
