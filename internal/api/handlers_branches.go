// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

package api

import (
	"net/http"

	"github.com/tomtom215/fudosync/internal/logging"
	"github.com/tomtom215/fudosync/internal/models"
)

// BranchRequest is the body of POST /api/v1/branches. The secret fields hold
// secret names resolved through the secrets backend, never the values.
type BranchRequest struct {
	ID              string `json:"id" validate:"required,max=64"`
	FudoIdentifier  string `json:"fudo_identifier,omitempty" validate:"omitempty,max=128"`
	Name            string `json:"name,omitempty" validate:"omitempty,max=256"`
	APIKeySecret    string `json:"api_key_secret" validate:"required,max=256"`
	APISecretSecret string `json:"api_secret_secret" validate:"required,max=256"`
	// Active defaults to true when omitted.
	Active *bool `json:"active,omitempty"`
}

func (req *BranchRequest) toBranch() models.Branch {
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	return models.Branch{
		ID:              req.ID,
		FudoIdentifier:  req.FudoIdentifier,
		Name:            req.Name,
		APIKeySecret:    req.APIKeySecret,
		APISecretSecret: req.APISecretSecret,
		Active:          active,
	}
}

// ListBranches returns every registered branch, active or not.
func (h *Handler) ListBranches(w http.ResponseWriter, r *http.Request) {
	if h.branches == nil {
		respondError(w, http.StatusServiceUnavailable, "DATABASE_UNAVAILABLE", "Branch registry is not configured", nil)
		return
	}

	branches, err := h.branches.ListBranches(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to list branches", err)
		return
	}
	if branches == nil {
		branches = []models.Branch{}
	}
	respondSuccess(w, http.StatusOK, branches)
}

// UpsertBranch creates a branch or replaces an existing one with the same id.
func (h *Handler) UpsertBranch(w http.ResponseWriter, r *http.Request) {
	if h.branches == nil {
		respondError(w, http.StatusServiceUnavailable, "DATABASE_UNAVAILABLE", "Branch registry is not configured", nil)
		return
	}

	var req BranchRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	branch := req.toBranch()
	if err := h.branches.UpsertBranch(r.Context(), branch); err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to save branch", err)
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("branch", sanitizeLogValue(branch.ID)).
		Bool("active", branch.Active).
		Msg("Branch registered")
	respondSuccess(w, http.StatusOK, branch)
}
