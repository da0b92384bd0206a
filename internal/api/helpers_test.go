// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

package api

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/fudosync/internal/models"
	syncpkg "github.com/tomtom215/fudosync/internal/sync"
)

type fakePinger struct {
	err error
}

func (p *fakePinger) Ping(context.Context) error { return p.err }

type fakeSync struct {
	mu         sync.Mutex
	busy       bool
	summary    *models.RunSummary
	lastSync   time.Time
	syncCalls  int
	asyncCalls int
	triggerErr error
}

func (f *fakeSync) TriggerSync(context.Context) (*models.RunSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.syncCalls++
	if f.busy {
		return nil, syncpkg.ErrRunInProgress
	}
	if f.triggerErr != nil {
		return nil, f.triggerErr
	}
	return f.summary, nil
}

func (f *fakeSync) TriggerAsync(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.asyncCalls++
	if f.busy {
		return syncpkg.ErrRunInProgress
	}
	return f.triggerErr
}

func (f *fakeSync) LastSummary() *models.RunSummary { return f.summary }
func (f *fakeSync) LastSyncTime() time.Time         { return f.lastSync }
func (f *fakeSync) InProgress() bool                { return f.busy }

type fakeWatermarks struct {
	items []models.Watermark
	err   error
}

func (f *fakeWatermarks) ListWatermarks(context.Context) ([]models.Watermark, error) {
	return f.items, f.err
}

type fakeBranches struct {
	mu    sync.Mutex
	items []models.Branch
	err   error
}

func (f *fakeBranches) ListBranches(context.Context) ([]models.Branch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items, f.err
}

func (f *fakeBranches) UpsertBranch(_ context.Context, b models.Branch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for i := range f.items {
		if f.items[i].ID == b.ID {
			f.items[i] = b
			return nil
		}
	}
	f.items = append(f.items, b)
	return nil
}

var errDown = errors.New("database is down")

// decodeResponse unmarshals the envelope; data is decoded into dst when non-nil.
func decodeResponse(t *testing.T, w *httptest.ResponseRecorder, dst interface{}) models.APIResponse {
	t.Helper()
	var raw struct {
		Status   string           `json:"status"`
		Data     json.RawMessage  `json:"data"`
		Metadata models.Metadata  `json:"metadata"`
		Error    *models.APIError `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &raw); err != nil {
		t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
	}
	if dst != nil && len(raw.Data) > 0 {
		if err := json.Unmarshal(raw.Data, dst); err != nil {
			t.Fatalf("Failed to decode data %s: %v", raw.Data, err)
		}
	}
	return models.APIResponse{Status: raw.Status, Metadata: raw.Metadata, Error: raw.Error}
}
