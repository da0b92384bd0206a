// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tomtom215/fudosync/internal/models"
)

func TestHealthLive_Success(t *testing.T) {
	t.Parallel()

	handler := &Handler{startTime: time.Now().Add(-time.Minute)}

	w := httptest.NewRecorder()
	handler.HealthLive(w, httptest.NewRequest(http.MethodGet, "/api/v1/health/live", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var data map[string]interface{}
	resp := decodeResponse(t, w, &data)
	if resp.Status != "success" {
		t.Errorf("Expected status success, got %q", resp.Status)
	}
	if data["alive"] != true {
		t.Errorf("Expected alive=true, got %v", data["alive"])
	}
	if uptime, _ := data["uptime"].(float64); uptime < 60 {
		t.Errorf("Expected uptime >= 60s, got %v", data["uptime"])
	}
}

func TestHealthReady(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		db         Pinger
		wantCode   int
		wantStatus string
	}{
		{"database up", &fakePinger{}, http.StatusOK, "ready"},
		{"database down", &fakePinger{err: errDown}, http.StatusServiceUnavailable, "not_ready"},
		{"no database", nil, http.StatusServiceUnavailable, "not_ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := &Handler{db: tt.db, startTime: time.Now()}
			w := httptest.NewRecorder()
			handler.HealthReady(w, httptest.NewRequest(http.MethodGet, "/api/v1/health/ready", nil))

			if w.Code != tt.wantCode {
				t.Errorf("Expected status %d, got %d", tt.wantCode, w.Code)
			}
			if resp := decodeResponse(t, w, nil); resp.Status != tt.wantStatus {
				t.Errorf("Expected status %q, got %q", tt.wantStatus, resp.Status)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	lastSync := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("ok", func(t *testing.T) {
		handler := NewHandler(&fakePinger{}, &fakeSync{lastSync: lastSync, busy: true}, nil, nil)
		w := httptest.NewRecorder()
		handler.Health(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

		var health models.HealthStatus
		decodeResponse(t, w, &health)
		if health.Status != "ok" || !health.DatabaseConnected {
			t.Errorf("Expected ok with database connected, got %+v", health)
		}
		if health.LastSyncTime == nil || !health.LastSyncTime.Equal(lastSync) {
			t.Errorf("Expected last sync %v, got %v", lastSync, health.LastSyncTime)
		}
		if !health.SyncRunning {
			t.Error("Expected sync_running=true")
		}
	})

	t.Run("degraded", func(t *testing.T) {
		handler := NewHandler(&fakePinger{err: errDown}, &fakeSync{}, nil, nil)
		w := httptest.NewRecorder()
		handler.Health(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

		if w.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", w.Code)
		}
		var health models.HealthStatus
		decodeResponse(t, w, &health)
		if health.Status != "degraded" || health.DatabaseConnected {
			t.Errorf("Expected degraded, got %+v", health)
		}
		if health.LastSyncTime != nil {
			t.Errorf("Expected no last sync time before the first pass, got %v", health.LastSyncTime)
		}
	})
}
