// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/fudosync/internal/models"
)

func sampleSummary() *models.RunSummary {
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return &models.RunSummary{
		CorrelationID: "run-1",
		StartedAt:     started,
		FinishedAt:    started.Add(time.Minute),
		Branches: []models.BranchOutcome{{
			BranchID: "7",
			Entities: []models.EntityOutcome{{Entity: "sales", Strategy: "hybrid", Fetched: 12, Inserted: 3}},
		}},
	}
}

func TestSyncStatus(t *testing.T) {
	t.Parallel()

	wm := models.Watermark{BranchID: "7", Entity: "sales", LastSuccess: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	handler := NewHandler(nil, &fakeSync{summary: sampleSummary()}, &fakeWatermarks{items: []models.Watermark{wm}}, nil)

	w := httptest.NewRecorder()
	handler.SyncStatus(w, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var status models.SyncStatus
	decodeResponse(t, w, &status)
	if status.Running {
		t.Error("Expected running=false")
	}
	if status.LastRun == nil || status.LastRun.CorrelationID != "run-1" {
		t.Errorf("Expected last run run-1, got %+v", status.LastRun)
	}
	if len(status.Watermarks) != 1 || status.Watermarks[0].Entity != "sales" {
		t.Errorf("Expected one sales watermark, got %+v", status.Watermarks)
	}
}

func TestSyncStatus_EmptyWatermarksIsArray(t *testing.T) {
	t.Parallel()

	handler := NewHandler(nil, &fakeSync{}, &fakeWatermarks{}, nil)
	w := httptest.NewRecorder()
	handler.SyncStatus(w, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))

	if body := w.Body.String(); !strings.Contains(body, `"watermarks":[]`) {
		t.Errorf("Expected empty watermark array in %s", body)
	}
}

func TestSyncStatus_WatermarkError(t *testing.T) {
	t.Parallel()

	handler := NewHandler(nil, &fakeSync{}, &fakeWatermarks{err: errDown}, nil)
	w := httptest.NewRecorder()
	handler.SyncStatus(w, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", w.Code)
	}
	if resp := decodeResponse(t, w, nil); resp.Error == nil || resp.Error.Code != "DATABASE_ERROR" {
		t.Errorf("Expected DATABASE_ERROR, got %+v", resp.Error)
	}
}

func TestTriggerSync(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		query     string
		sync      *fakeSync
		wantCode  int
		wantError string
		wantAsync int
		wantSync  int
	}{
		{"async accepted", "", &fakeSync{}, http.StatusAccepted, "", 1, 0},
		{"async busy", "", &fakeSync{busy: true}, http.StatusConflict, "SYNC_IN_PROGRESS", 1, 0},
		{"wait returns summary", "?wait=true", &fakeSync{summary: sampleSummary()}, http.StatusOK, "", 0, 1},
		{"wait busy", "?wait=1", &fakeSync{busy: true}, http.StatusConflict, "SYNC_IN_PROGRESS", 0, 1},
		{"wait false is async", "?wait=false", &fakeSync{}, http.StatusAccepted, "", 1, 0},
		{"bad wait", "?wait=soon", &fakeSync{}, http.StatusBadRequest, "VALIDATION_ERROR", 0, 0},
		{"setup failure", "?wait=true", &fakeSync{triggerErr: errors.New("list branches: boom")}, http.StatusInternalServerError, "SYNC_FAILED", 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHandler(nil, tt.sync, nil, nil)
			w := httptest.NewRecorder()
			handler.TriggerSync(w, httptest.NewRequest(http.MethodPost, "/api/v1/sync"+tt.query, nil))

			if w.Code != tt.wantCode {
				t.Errorf("Expected status %d, got %d: %s", tt.wantCode, w.Code, w.Body.String())
			}
			resp := decodeResponse(t, w, nil)
			if tt.wantError != "" && (resp.Error == nil || resp.Error.Code != tt.wantError) {
				t.Errorf("Expected error code %s, got %+v", tt.wantError, resp.Error)
			}
			if tt.sync.asyncCalls != tt.wantAsync || tt.sync.syncCalls != tt.wantSync {
				t.Errorf("Expected async=%d sync=%d calls, got async=%d sync=%d",
					tt.wantAsync, tt.wantSync, tt.sync.asyncCalls, tt.sync.syncCalls)
			}
		})
	}
}

func TestTriggerSync_WaitReturnsSummary(t *testing.T) {
	t.Parallel()

	handler := NewHandler(nil, &fakeSync{summary: sampleSummary()}, nil, nil)
	w := httptest.NewRecorder()
	handler.TriggerSync(w, httptest.NewRequest(http.MethodPost, "/api/v1/sync?wait=true", nil))

	var summary models.RunSummary
	decodeResponse(t, w, &summary)
	if len(summary.Branches) != 1 || summary.Branches[0].Entities[0].Inserted != 3 {
		t.Errorf("Unexpected summary %+v", summary)
	}
}

func TestTriggerSync_NoManager(t *testing.T) {
	t.Parallel()

	handler := NewHandler(nil, nil, nil, nil)
	w := httptest.NewRecorder()
	handler.TriggerSync(w, httptest.NewRequest(http.MethodPost, "/api/v1/sync", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}
}
