// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/fudosync/internal/api"
	"github.com/tomtom215/fudosync/internal/logging"
	"github.com/tomtom215/fudosync/internal/metrics"
	"github.com/tomtom215/fudosync/internal/supervisor"
	"github.com/tomtom215/fudosync/internal/supervisor/services"
)

const (
	uptimeInterval      = 15 * time.Second
	maintenanceInterval = 15 * time.Minute
	readHeaderTimeout   = 10 * time.Second
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run extraction passes on an interval under a supervisor",
		Long: `Run the extraction driver every sync.interval together with the status
HTTP server (health, readiness, Prometheus metrics, last run summary and a
manual trigger). Components are restarted by a suture supervisor tree when
they fail.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), rootOpts)
		},
	}
}

func runServe(ctx context.Context, opts *RootOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := opts.cfg
	logging.Info().Str("version", version).Str("commit", commit).Msg("Starting fudosync")

	metrics.SetAppInfo(version)
	uptimeStop := make(chan struct{})
	defer close(uptimeStop)
	go metrics.StartUptimeTracker(time.Now(), uptimeInterval, uptimeStop)

	a, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing storage")
		}
	}()
	if err := a.buildEngine(ctx); err != nil {
		return err
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfigFromConfig(cfg.Supervisor))
	if err != nil {
		return fmt.Errorf("failed to create supervisor tree: %w", err)
	}

	tree.AddStorageService(services.NewMaintenanceService(maintenanceInterval, a.maintenanceTasks()...))
	tree.AddSyncService(services.NewSyncService(a.manager))

	if cfg.Server.Enabled {
		handler := api.NewHandler(a.db, a.manager, a.store, a.db)
		router := api.NewRouter(handler, api.NewChiMiddleware(api.ChiMiddlewareConfigFromServer(cfg.Server)))
		server := &http.Server{
			Addr:              cfg.Server.Addr(),
			Handler:           router.SetupChi(),
			ReadHeaderTimeout: readHeaderTimeout,
		}
		tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
		logging.Info().Str("addr", server.Addr).Msg("Status server enabled")
	}

	logging.Info().
		Dur("interval", cfg.Sync.Interval).
		Bool("run_on_startup", cfg.Sync.RunOnStartup).
		Msg("Supervisor tree starting")

	err = tree.Serve(ctx)

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor stopped: %w", err)
	}
	logging.Info().Msg("Shutdown complete")
	return nil
}
