// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

package services

import (
	"context"
	"time"

	"github.com/tomtom215/fudosync/internal/logging"
)

// MaintenanceTask is one periodic storage chore, such as a DuckDB CHECKPOINT
// or a BadgerDB value-log GC.
type MaintenanceTask struct {
	Name string
	Run  func(ctx context.Context) error
}

// MaintenanceService runs its tasks every interval until canceled.
//
// A failing task is logged and retried on the next tick; it does not make
// Serve return, so a locked database file never causes a restart storm.
type MaintenanceService struct {
	tasks    []MaintenanceTask
	interval time.Duration
	name     string
}

// NewMaintenanceService creates a maintenance loop. interval <= 0 defaults to 15 minutes.
func NewMaintenanceService(interval time.Duration, tasks ...MaintenanceTask) *MaintenanceService {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &MaintenanceService{
		tasks:    tasks,
		interval: interval,
		name:     "maintenance",
	}
}

// Serve implements suture.Service.
func (m *MaintenanceService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.runOnce(ctx)
		}
	}
}

func (m *MaintenanceService) runOnce(ctx context.Context) {
	for _, task := range m.tasks {
		if ctx.Err() != nil {
			return
		}
		start := time.Now()
		if err := task.Run(ctx); err != nil {
			logging.Warn().Err(err).Str("task", task.Name).Msg("Maintenance task failed")
			continue
		}
		logging.Debug().Str("task", task.Name).Dur("duration", time.Since(start)).Msg("Maintenance task completed")
	}
}

// String implements fmt.Stringer for logging.
func (m *MaintenanceService) String() string {
	return m.name
}
