// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

/*
Package supervisor provides Suture-based process supervision for the
"fudosync serve" daemon.

The daemon runs three long-lived components: the periodic sync manager, the
status HTTP server and a storage maintenance loop. Each is wrapped as a
suture.Service (see the services subpackage) and placed in a layer of a
supervisor tree, so a crashing HTTP server is restarted without disturbing a
running extraction pass and vice versa.

Tree Layout:

	fudosync (root)
	├── storage-layer   maintenance (DuckDB checkpoint, BadgerDB value-log GC)
	├── sync-layer      sync-manager
	└── api-layer       http-server

Restart Policy:

Suture counts failures with exponential decay. When FailureThreshold is
exceeded within the decay window the supervisor pauses restarts for
FailureBackoff. Defaults match suture's own (5 failures, 30s decay, 15s
backoff) and are configurable under the "supervisor" config section.

Supervisor events (service panics, restarts, backoff) are logged through
sutureslog on top of logging.NewSlogLogger, so they land in the same
zerolog stream as the rest of the application.

Usage:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(),
	    supervisor.TreeConfigFromConfig(cfg.Supervisor))
	tree.AddSyncService(services.NewSyncService(manager))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	errCh := tree.ServeBackground(ctx)
*/
//nolint:staticcheck // File documentation, not package doc
package supervisor
