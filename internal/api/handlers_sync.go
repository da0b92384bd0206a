// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/tomtom215/fudosync/internal/logging"
	"github.com/tomtom215/fudosync/internal/models"
	syncpkg "github.com/tomtom215/fudosync/internal/sync"
)

// SyncStatus returns the last run summary and every stored watermark.
func (h *Handler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SyncStatus{Watermarks: []models.Watermark{}}
	if h.sync != nil {
		status.Running = h.sync.InProgress()
		status.LastRun = h.sync.LastSummary()
	}

	if h.watermarks != nil {
		wms, err := h.watermarks.ListWatermarks(r.Context())
		if err != nil {
			respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to read watermarks", err)
			return
		}
		if wms != nil {
			status.Watermarks = wms
		}
	}

	respondSuccess(w, http.StatusOK, status)
}

// TriggerSync starts an extraction pass. By default it returns 202 as soon
// as the pass is scheduled; with ?wait=true it blocks and returns the
// RunSummary. Either form answers 409 while another pass is running.
func (h *Handler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	if h.sync == nil {
		respondError(w, http.StatusServiceUnavailable, "SYNC_UNAVAILABLE", "Sync manager is not configured", nil)
		return
	}

	wait := false
	if raw := r.URL.Query().Get("wait"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "wait must be a boolean", nil)
			return
		}
		wait = parsed
	}

	if !wait {
		if err := h.sync.TriggerAsync(r.Context()); err != nil {
			h.respondTriggerError(w, err)
			return
		}
		logging.Ctx(r.Context()).Info().Msg("Manual sync pass started")
		respondSuccess(w, http.StatusAccepted, map[string]interface{}{
			"started": true,
		})
		return
	}

	summary, err := h.sync.TriggerSync(r.Context())
	if err != nil {
		h.respondTriggerError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, summary)
}

func (h *Handler) respondTriggerError(w http.ResponseWriter, err error) {
	if errors.Is(err, syncpkg.ErrRunInProgress) {
		respondError(w, http.StatusConflict, "SYNC_IN_PROGRESS", "A sync pass is already running", nil)
		return
	}
	respondError(w, http.StatusInternalServerError, "SYNC_FAILED", "Sync pass could not run", err)
}
