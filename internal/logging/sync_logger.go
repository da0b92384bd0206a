// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

package logging

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// SyncLogger provides domain-specific log events for the extraction driver.
// Every failure the driver downgrades to "continue" goes through one of
// these methods so it reaches the log sink with its error kind attached.
type SyncLogger struct {
	logger zerolog.Logger
}

// NewSyncLogger creates a SyncLogger on the global logger.
func NewSyncLogger() *SyncLogger {
	return &SyncLogger{logger: With().Str("component", "sync").Logger()}
}

// NewSyncLoggerWithLogger creates a SyncLogger on a custom logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewSyncLoggerWithLogger(logger zerolog.Logger) *SyncLogger {
	return &SyncLogger{logger: logger.With().Str("component", "sync").Logger()}
}

func (s *SyncLogger) ctx(ctx context.Context) zerolog.Logger {
	return s.logger.With().Fields(contextFields(ctx)).Logger()
}

func contextFields(ctx context.Context) map[string]interface{} {
	fields := make(map[string]interface{}, 3)
	if id := CorrelationIDFromContext(ctx); id != "" {
		fields["correlation_id"] = id
	}
	if b := BranchFromContext(ctx); b != "" {
		fields["branch"] = b
	}
	if e := EntityFromContext(ctx); e != "" {
		fields["entity"] = e
	}
	return fields
}

// LogRunStarted logs the start of a sync pass.
func (s *SyncLogger) LogRunStarted(ctx context.Context, branches int) {
	l := s.ctx(ctx)
	l.Info().Int("branches", branches).Msg("Sync run started")
}

// LogRunFinished logs the outcome of a sync pass.
func (s *SyncLogger) LogRunFinished(ctx context.Context, duration time.Duration, failedBranches, failedEntities int) {
	l := s.ctx(ctx)
	ev := l.Info()
	if failedBranches > 0 || failedEntities > 0 {
		ev = l.Warn()
	}
	ev.Dur("duration", duration).
		Int("failed_branches", failedBranches).
		Int("failed_entities", failedEntities).
		Msg("Sync run finished")
}

// LogEntityLoaded logs a successfully persisted entity batch.
func (s *SyncLogger) LogEntityLoaded(ctx context.Context, strategy string, fetched, inserted int, duration time.Duration) {
	l := s.ctx(ctx)
	l.Info().
		Str("strategy", strategy).
		Int("fetched", fetched).
		Int("inserted", inserted).
		Dur("duration", duration).
		Msg("Entity synchronized")
}

// LogEntityFailed logs an entity-level failure that the driver skips past.
func (s *SyncLogger) LogEntityFailed(ctx context.Context, kind string, err error) {
	l := s.ctx(ctx)
	l.Error().Err(err).Str("error_kind", kind).Msg("Entity sync failed, continuing with next entity")
}

// LogBranchFailed logs a branch-level failure that the driver skips past.
func (s *SyncLogger) LogBranchFailed(ctx context.Context, kind string, err error) {
	l := s.ctx(ctx)
	l.Error().Err(err).Str("error_kind", kind).Msg("Branch sync failed, continuing with next branch")
}

// LogRetry logs a page request that will be retried after delay.
func (s *SyncLogger) LogRetry(ctx context.Context, page, attempt int, delay time.Duration, reason string) {
	l := s.ctx(ctx)
	l.Warn().
		Int("page", page).
		Int("attempt", attempt).
		Dur("delay", delay).
		Str("reason", reason).
		Msg("Page request failed, retrying")
}

// LogTokenRefreshed logs a token exchange. Only the token length is recorded.
func (s *SyncLogger) LogTokenRefreshed(ctx context.Context, token string, expiresAt time.Time) {
	l := s.ctx(ctx)
	l.Info().
		Int("token_length", len(token)).
		Time("expires_at", expiresAt).
		Msg("Fudo token refreshed")
}
