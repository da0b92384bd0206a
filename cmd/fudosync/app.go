// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

/*
app.go - Component wiring shared by the commands

Initialization order:
 1. Storage: DuckDB raw store, state backend (DuckDB tables or BadgerDB),
    raw tables for the selected entities, branch seeds from the config file
 2. Engine (run/serve only): secret provider, fetcher, token authenticator,
    raw loader, optional post-run SQL hook, sync manager

Read-only commands (status, branches) stop after step 1 so they work without
access to the secret backend.
*/

//nolint:staticcheck // File documentation, not package doc
package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/fudosync/internal/config"
	"github.com/tomtom215/fudosync/internal/database"
	"github.com/tomtom215/fudosync/internal/logging"
	"github.com/tomtom215/fudosync/internal/models"
	"github.com/tomtom215/fudosync/internal/secrets"
	"github.com/tomtom215/fudosync/internal/state"
	"github.com/tomtom215/fudosync/internal/supervisor/services"
	"github.com/tomtom215/fudosync/internal/sync"
)

// app holds the components built for one command invocation.
type app struct {
	cfg      *config.Config
	db       *database.DB
	badger   *state.BadgerStore // nil unless state.backend is badger
	store    state.Store
	entities []models.EntitySpec
	manager  *sync.Manager
}

// openStorage opens the raw store and the state backend and prepares the
// schema for the configured entities.
func openStorage(ctx context.Context, cfg *config.Config) (*app, error) {
	catalog, err := sync.DefaultCatalog().WithFilterable(cfg.Sync.FilterableEntities)
	if err != nil {
		return nil, fmt.Errorf("entity catalog: %w", err)
	}
	entities, err := catalog.Select(cfg.Sync.Entities)
	if err != nil {
		return nil, fmt.Errorf("entity selection: %w", err)
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	a := &app{cfg: cfg, db: db, store: db, entities: entities}

	if cfg.State.Backend == "badger" {
		store, err := state.OpenBadger(cfg.State.BadgerPath)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("failed to open state store: %w", err)
		}
		a.badger = store
		a.store = store
	}

	if err := db.EnsureRawTables(ctx, entities); err != nil {
		_ = a.Close()
		return nil, err
	}
	if err := a.seedBranches(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}

	logging.Info().
		Str("database", cfg.Database.Path).
		Str("state_backend", cfg.State.Backend).
		Int("entities", len(entities)).
		Msg("Storage initialized")
	return a, nil
}

// seedBranches upserts the branches listed in the config file.
func (a *app) seedBranches(ctx context.Context) error {
	for _, b := range a.cfg.Branches {
		err := a.db.UpsertBranch(ctx, models.Branch{
			ID:              b.ID,
			FudoIdentifier:  b.FudoIdentifier,
			Name:            b.Name,
			APIKeySecret:    b.APIKeySecret,
			APISecretSecret: b.APISecretSecret,
			Active:          b.Active,
		})
		if err != nil {
			return fmt.Errorf("failed to seed branch %s: %w", b.ID, err)
		}
	}
	if len(a.cfg.Branches) > 0 {
		logging.Info().Int("count", len(a.cfg.Branches)).Msg("Seeded branch registry from config")
	}
	return nil
}

// buildEngine wires the sync manager on top of the opened storage.
func (a *app) buildEngine(ctx context.Context) error {
	provider, err := secrets.New(ctx, &a.cfg.Secrets)
	if err != nil {
		return fmt.Errorf("failed to initialize secrets backend: %w", err)
	}

	deps := sync.Deps{
		Fetcher:    sync.NewFetcher(a.cfg.Fudo, a.cfg.Fetch),
		Tokens:     sync.NewAuthenticator(a.cfg.Fudo, a.cfg.Sync.TokenGracePeriod, provider, a.store),
		Loader:     sync.NewLoader(a.db),
		Watermarks: a.store,
		Branches:   a.db,
	}
	if len(a.cfg.Sync.PostRunSQL) > 0 {
		deps.PostRun = database.NewSQLFileHook(a.db, a.cfg.Sync.PostRunSQL)
	}

	a.manager = sync.NewManager(a.cfg.Sync, a.entities, deps)
	return nil
}

// maintenanceTasks returns the periodic storage housekeeping run by serve.
func (a *app) maintenanceTasks() []services.MaintenanceTask {
	tasks := []services.MaintenanceTask{
		{Name: "duckdb-checkpoint", Run: a.db.Checkpoint},
	}
	if a.badger != nil {
		tasks = append(tasks, services.MaintenanceTask{
			Name: "badger-gc",
			Run:  func(context.Context) error { return a.badger.RunGC() },
		})
	}
	return tasks
}

// Close releases the state backend and the database.
func (a *app) Close() error {
	var errs []error
	if a.badger != nil {
		if err := a.badger.Close(); err != nil {
			errs = append(errs, fmt.Errorf("state store: %w", err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("database: %w", err))
		}
	}
	return errors.Join(errs...)
}
