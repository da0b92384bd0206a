// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

package main

import (
	"fmt"
	"io"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/fudosync/internal/models"
)

// OutputFormatter renders command results as text or JSON.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// CLIResponse is the JSON envelope written with --format json.
type CLIResponse struct {
	Status string      `json:"status"` // "ok" or "error"
	Data   interface{} `json:"data,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// Success writes data. In text mode the render callback produces the output.
func (f *OutputFormatter) Success(data interface{}, render func(w io.Writer)) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{Status: "ok", Data: data})
	}
	render(f.Writer)
	return nil
}

func (f *OutputFormatter) encode(resp CLIResponse) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// renderSummary prints a run summary, one line per entity.
func renderSummary(w io.Writer, s *models.RunSummary) {
	fetched, inserted := s.Totals()
	failedBranches, failedEntities := s.FailureCounts()

	fmt.Fprintf(w, "Run %s finished in %s\n", s.CorrelationID, s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond))
	if len(s.Branches) == 0 {
		fmt.Fprintln(w, "No active branches.")
		return
	}
	for _, b := range s.Branches {
		if b.Failed() {
			fmt.Fprintf(w, "branch %s: FAILED (%s) %s\n", b.BranchID, b.ErrorKind, b.Error)
			continue
		}
		fmt.Fprintf(w, "branch %s\n", b.BranchID)
		for _, e := range b.Entities {
			if e.Error != "" {
				fmt.Fprintf(w, "  %-20s %-12s FAILED (%s) %s\n", e.Entity, e.Strategy, e.ErrorKind, e.Error)
				continue
			}
			fmt.Fprintf(w, "  %-20s %-12s fetched=%d inserted=%d\n", e.Entity, e.Strategy, e.Fetched, e.Inserted)
		}
	}
	fmt.Fprintf(w, "Total: fetched=%d inserted=%d failed_branches=%d failed_entities=%d\n",
		fetched, inserted, failedBranches, failedEntities)
}

// renderWatermarks prints one line per (branch, entity).
func renderWatermarks(w io.Writer, marks []models.Watermark) {
	if len(marks) == 0 {
		fmt.Fprintln(w, "No watermarks recorded yet.")
		return
	}
	fmt.Fprintf(w, "%-16s %-20s %s\n", "BRANCH", "ENTITY", "LAST SUCCESS (UTC)")
	for _, m := range marks {
		fmt.Fprintf(w, "%-16s %-20s %s\n", m.BranchID, m.Entity, m.LastSuccess.UTC().Format(time.RFC3339))
	}
}

// renderBranches prints the branch registry.
func renderBranches(w io.Writer, branches []models.Branch) {
	if len(branches) == 0 {
		fmt.Fprintln(w, "No branches registered.")
		return
	}
	fmt.Fprintf(w, "%-16s %-24s %-7s %s\n", "ID", "NAME", "ACTIVE", "SECRETS")
	for _, b := range branches {
		fmt.Fprintf(w, "%-16s %-24s %-7t %s, %s\n", b.ID, b.DisplayName(), b.Active, b.APIKeySecret, b.APISecretSecret)
	}
}
