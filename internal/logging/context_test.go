// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func TestCorrelationID(t *testing.T) {
	ctx := ContextWithNewCorrelationID(context.Background())
	id := CorrelationIDFromContext(ctx)
	if len(id) != 8 {
		t.Errorf("expected 8-character correlation ID, got %q", id)
	}
	if CorrelationIDFromContext(context.Background()) != "" {
		t.Error("expected empty correlation ID on bare context")
	}
}

func TestCtxAddsSyncFields(t *testing.T) {
	var buf bytes.Buffer
	ctx := ContextWithLogger(context.Background(), NewTestLogger(&buf))
	ctx = ContextWithCorrelationID(ctx, "run00001")
	ctx = ContextWithBranch(ctx, "42")
	ctx = ContextWithEntity(ctx, "sales")

	Ctx(ctx).Info().Msg("fetching")

	output := buf.String()
	for _, want := range []string{`"correlation_id":"run00001"`, `"branch":"42"`, `"entity":"sales"`, "fetching"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %s in output, got: %s", want, output)
		}
	}
}

func TestCtxOmitsMissingFields(t *testing.T) {
	var buf bytes.Buffer
	ctx := ContextWithLogger(context.Background(), NewTestLogger(&buf))

	Ctx(ctx).Info().Msg("bare")

	output := buf.String()
	if strings.Contains(output, "branch") || strings.Contains(output, "correlation_id") {
		t.Errorf("expected no context fields, got: %s", output)
	}
}

func TestSyncLoggerEntityFailed(t *testing.T) {
	var buf bytes.Buffer
	sl := NewSyncLoggerWithLogger(NewTestLogger(&buf))
	ctx := ContextWithEntity(ContextWithBranch(context.Background(), "3"), "items")

	sl.LogEntityFailed(ctx, "retries_exhausted", context.DeadlineExceeded)

	output := buf.String()
	for _, want := range []string{`"level":"error"`, `"error_kind":"retries_exhausted"`, `"branch":"3"`, `"entity":"items"`, `"component":"sync"`} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %s in output, got: %s", want, output)
		}
	}
}

func TestSyncLoggerNeverLogsToken(t *testing.T) {
	var buf bytes.Buffer
	sl := NewSyncLoggerWithLogger(NewTestLogger(&buf))
	token := "eyJhbGciOiJIUzI1NiJ9.secretpayload.signature"

	sl.LogTokenRefreshed(context.Background(), token, time.Now().Add(time.Hour))

	output := buf.String()
	if strings.Contains(output, "secretpayload") {
		t.Errorf("token leaked into log output: %s", output)
	}
	if !strings.Contains(output, `"token_length":`) {
		t.Errorf("expected token_length field, got: %s", output)
	}
}

func TestSanitize(t *testing.T) {
	if got := SanitizeToken("abcdefghijklmnop"); got != "abcd...mnop" {
		t.Errorf("SanitizeToken() = %q", got)
	}
	if got := SanitizeToken("short"); got != "***" {
		t.Errorf("SanitizeToken(short) = %q", got)
	}
	if got := SanitizeValue("apiSecret", "hunter2"); got != "[REDACTED]" {
		t.Errorf("SanitizeValue(apiSecret) = %q", got)
	}
	if got := SanitizeValue("entity", "sales"); got != "sales" {
		t.Errorf("SanitizeValue(entity) = %q", got)
	}
	if got := TruncateBody("0123456789", 4); got != "0123..." {
		t.Errorf("TruncateBody() = %q", got)
	}
}
