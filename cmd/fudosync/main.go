// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

// Package main is the entry point for the fudosync command.
//
// Fudosync copies every collection of one or more Fudo POS accounts into a
// local DuckDB raw store. Each pass walks the active branches sequentially,
// selects an incremental, full or hybrid plan per entity from its watermark,
// and appends the records whose content changed.
//
// # Commands
//
//	fudosync serve      # supervised daemon: a pass every sync.interval plus the status HTTP server
//	fudosync run        # a single pass, then exit
//	fudosync status     # print the stored watermarks
//	fudosync branches   # list or upsert the branch registry
//	fudosync version
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest priority wins):
//   - Environment variables (FUDO_*, FETCH_*, SYNC_*, DUCKDB_*, STATE_*, SECRETS_*, HTTP_*, LOG_*)
//   - Config file (--config, CONFIG_PATH, or ./config.yaml)
//   - Built-in defaults
//
// Branch credentials are never stored. The registry holds secret names that
// are resolved at run time through the environment (SECRETS_BACKEND=env) or
// AWS Secrets Manager (SECRETS_BACKEND=aws).
//
// # Signal Handling
//
// serve shuts down on SIGINT and SIGTERM: the in-flight pass finishes its
// current entity, the HTTP server drains, and DuckDB is checkpointed and closed.
//
// # Example Usage
//
//	export DUCKDB_PATH=/data/fudosync.duckdb
//	export SECRETS_ENV_PREFIX=FUDO_SECRET_
//	export FUDO_SECRET_centro_key=...
//	export FUDO_SECRET_centro_secret=...
//	./fudosync branches upsert centro --api-key-secret centro_key --api-secret-secret centro_secret
//	./fudosync run
package main

import (
	"fmt"
	"os"
)

// Build information, set with -ldflags "-X main.version=...".
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
