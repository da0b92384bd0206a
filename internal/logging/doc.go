// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

// Package logging provides centralized zerolog-based structured logging for Fudosync.
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "json", Timestamp: true})
//
//	logging.Info().Str("branch", "12").Msg("Branch sync started")
//	logging.Error().Err(err).Msg("Load failed")
//
// # Context Fields
//
// A sync run carries a correlation ID, and the driver tags the context with the
// branch and entity being processed. Ctx(ctx) attaches all of them:
//
//	ctx = logging.ContextWithNewCorrelationID(ctx)
//	ctx = logging.ContextWithBranch(ctx, branch.ID)
//	ctx = logging.ContextWithEntity(ctx, "sales")
//	logging.Ctx(ctx).Info().Msg("Fetching")
//	// {"level":"info","correlation_id":"1a2b3c4d","branch":"12","entity":"sales",...}
//
// # Configuration
//
//	LOG_LEVEL   - trace, debug, info, warn, error, fatal, panic, disabled (default: info)
//	LOG_FORMAT  - json, console (default: json)
//	LOG_CALLER  - include caller file:line (default: false)
//
// # Credentials
//
// API keys, secrets and bearer tokens must never be logged verbatim. Use
// SanitizeToken / SanitizeValue, or log only lengths.
//
// # Suture Integration
//
// NewSlogLogger returns an *slog.Logger backed by zerolog for sutureslog.
package logging
