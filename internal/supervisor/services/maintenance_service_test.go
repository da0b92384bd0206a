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

var _ suture.Service = (*MaintenanceService)(nil)

func TestMaintenanceService_RunsTasksEveryTick(t *testing.T) {
	var checkpoints, gcs atomic.Int32
	svc := NewMaintenanceService(10*time.Millisecond,
		MaintenanceTask{Name: "duckdb-checkpoint", Run: func(context.Context) error {
			checkpoints.Add(1)
			return nil
		}},
		MaintenanceTask{Name: "badger-gc", Run: func(context.Context) error {
			gcs.Add(1)
			return nil
		}},
	)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := svc.Serve(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context.DeadlineExceeded, got %v", err)
	}

	if checkpoints.Load() < 2 || gcs.Load() < 2 {
		t.Errorf("expected several runs of each task, got checkpoint=%d gc=%d", checkpoints.Load(), gcs.Load())
	}
}

func TestMaintenanceService_FailingTaskDoesNotStopOthers(t *testing.T) {
	var after atomic.Int32
	svc := NewMaintenanceService(10*time.Millisecond,
		MaintenanceTask{Name: "broken", Run: func(context.Context) error { return errors.New("database is locked") }},
		MaintenanceTask{Name: "after", Run: func(context.Context) error {
			after.Add(1)
			return nil
		}},
	)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	_ = svc.Serve(ctx)

	if after.Load() == 0 {
		t.Error("expected the task after a failing one to run")
	}
}

func TestNewMaintenanceService_Defaults(t *testing.T) {
	svc := NewMaintenanceService(0)
	if svc.interval != 15*time.Minute {
		t.Errorf("expected default interval 15m, got %v", svc.interval)
	}
	if svc.String() != "maintenance" {
		t.Errorf("expected 'maintenance', got %q", svc.String())
	}
}
