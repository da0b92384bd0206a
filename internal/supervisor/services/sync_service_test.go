// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

// fakeManager records Start/Stop calls in the shape of sync.Manager.
type fakeManager struct {
	starts     atomic.Int32
	stops      atomic.Int32
	startError error
	stopError  error
}

func (m *fakeManager) Start(context.Context) error {
	m.starts.Add(1)
	return m.startError
}

func (m *fakeManager) Stop() error {
	m.stops.Add(1)
	return m.stopError
}

var _ suture.Service = (*SyncService)(nil)

func TestSyncService_Lifecycle(t *testing.T) {
	mgr := &fakeManager{}
	svc := NewSyncService(mgr)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	deadline := time.Now().Add(time.Second)
	for mgr.starts.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if mgr.starts.Load() != 1 {
		t.Fatalf("expected 1 Start call, got %d", mgr.starts.Load())
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if mgr.stops.Load() != 1 {
		t.Errorf("expected 1 Stop call, got %d", mgr.stops.Load())
	}
}

func TestSyncService_StartError(t *testing.T) {
	startErr := errors.New("already running")
	mgr := &fakeManager{startError: startErr}

	err := NewSyncService(mgr).Serve(context.Background())
	if !errors.Is(err, startErr) {
		t.Errorf("expected start error, got %v", err)
	}
	if mgr.stops.Load() != 0 {
		t.Error("Stop must not be called when Start failed")
	}
}

func TestSyncService_StopError(t *testing.T) {
	stopErr := errors.New("not running")
	svc := NewSyncService(&fakeManager{stopError: stopErr})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := svc.Serve(ctx); !errors.Is(err, stopErr) {
		t.Errorf("expected stop error, got %v", err)
	}
}

func TestSyncService_RestartedBySupervisor(t *testing.T) {
	mgr := &fakeManager{startError: errors.New("transient")}
	sup := suture.New("test", suture.Spec{
		FailureThreshold: 10,
		FailureBackoff:   10 * time.Millisecond,
		Timeout:          time.Second,
	})
	sup.Add(NewSyncService(mgr))

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	<-sup.ServeBackground(ctx)

	if mgr.starts.Load() < 2 {
		t.Errorf("expected suture to restart the service, got %d starts", mgr.starts.Load())
	}
	if got := NewSyncService(mgr).String(); got != "sync-manager" {
		t.Errorf("expected 'sync-manager', got %q", got)
	}
}
