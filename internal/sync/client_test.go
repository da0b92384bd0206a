// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

package sync

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/fudosync/internal/config"
	"github.com/tomtom215/fudosync/internal/models"
	"github.com/tomtom215/fudosync/internal/testinfra"
)

var baseTime = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func newTestFetcher(t *testing.T, fetchCfg config.FetchConfig) (*Fetcher, *testinfra.FakeFudo, *sleepRecorder) {
	t.Helper()
	fake := testinfra.NewFakeFudo(t)
	fake.AcceptToken("tok")
	rec := &sleepRecorder{}
	return NewFetcher(testFudoConfig(fake), fetchCfg, WithSleep(rec.sleep)), fake, rec
}

func TestFetch_PaginationTerminatesOnShortPage(t *testing.T) {
	fetcher, fake, _ := newTestFetcher(t, testFetchConfig())
	fake.SetCollection("sales", testinfra.GenerateRecords(1317, baseTime, time.Minute))

	batch, err := fetcher.Fetch(context.Background(), "tok", FetchRequest{Entity: "sales"})
	require.NoError(t, err)

	assert.Len(t, batch, 1317)
	reqs := fake.RequestsFor("sales")
	require.Len(t, reqs, 3)
	for i, r := range reqs {
		assert.Equal(t, i+1, r.PageNumber)
		assert.Equal(t, 500, r.PageSize)
		assert.Empty(t, r.Filters)
	}
	assert.Equal(t, "1", batch[0].ID)
	assert.Equal(t, "1317", batch[1316].ID)
}

func TestFetch_ExactMultipleNeedsEmptyPage(t *testing.T) {
	fetcher, fake, _ := newTestFetcher(t, testFetchConfig())
	fake.SetCollection("sales", testinfra.GenerateRecords(1000, baseTime, time.Minute))

	batch, err := fetcher.Fetch(context.Background(), "tok", FetchRequest{Entity: "sales"})
	require.NoError(t, err)
	assert.Len(t, batch, 1000)
	assert.Len(t, fake.RequestsFor("sales"), 3)
}

func TestFetch_EmptyCollection(t *testing.T) {
	fetcher, fake, _ := newTestFetcher(t, testFetchConfig())
	fake.SetCollection("tables", nil)

	batch, err := fetcher.Fetch(context.Background(), "tok", FetchRequest{Entity: "tables"})
	require.NoError(t, err)
	assert.Empty(t, batch)
	assert.Len(t, fake.RequestsFor("tables"), 1)
}

func TestFetch_MaxPagesCeiling(t *testing.T) {
	fetcher, fake, _ := newTestFetcher(t, testFetchConfig())
	fake.SetCollection("sales", testinfra.GenerateRecords(1317, baseTime, time.Minute))

	batch, err := fetcher.Fetch(context.Background(), "tok", FetchRequest{Entity: "sales", MaxPages: 2})
	require.NoError(t, err)
	assert.Len(t, batch, 1000)
	assert.Len(t, fake.RequestsFor("sales"), 2)
}

func TestFetch_SortNewestFirst(t *testing.T) {
	fetcher, fake, _ := newTestFetcher(t, testFetchConfig())
	fake.SetCollection("sales", testinfra.GenerateRecords(1317, baseTime, time.Minute))

	batch, err := fetcher.Fetch(context.Background(), "tok", FetchRequest{Entity: "sales", MaxPages: 1, Sort: "-createdAt"})
	require.NoError(t, err)
	require.Len(t, batch, 500)
	assert.Equal(t, "1317", batch[0].ID)
	assert.Equal(t, "818", batch[499].ID)

	reqs := fake.RequestsFor("sales")
	require.Len(t, reqs, 1)
	assert.Equal(t, "-createdAt", reqs[0].Sort)
}

func TestFetch_NoSortByDefault(t *testing.T) {
	fetcher, fake, _ := newTestFetcher(t, testFetchConfig())
	fake.SetCollection("sales", testinfra.GenerateRecords(3, baseTime, time.Minute))

	batch, err := fetcher.Fetch(context.Background(), "tok", FetchRequest{Entity: "sales"})
	require.NoError(t, err)
	require.Len(t, batch, 3)
	assert.Equal(t, "1", batch[0].ID)
	assert.Empty(t, fake.RequestsFor("sales")[0].Sort)
}

func TestFetch_InterPageDelay(t *testing.T) {
	cfg := testFetchConfig()
	cfg.PageSize = 10
	cfg.InterPageDelay = 250 * time.Millisecond
	fetcher, fake, rec := newTestFetcher(t, cfg)
	fake.SetCollection("products", testinfra.GenerateRecords(25, baseTime, time.Minute))

	batch, err := fetcher.Fetch(context.Background(), "tok", FetchRequest{Entity: "products"})
	require.NoError(t, err)
	assert.Len(t, batch, 25)
	// Delays between pages 1-2 and 2-3, none after the short page.
	assert.Equal(t, []time.Duration{250 * time.Millisecond, 250 * time.Millisecond}, rec.recorded())
}

func TestFetch_FilterAndFields(t *testing.T) {
	fetcher, fake, _ := newTestFetcher(t, testFetchConfig())
	fake.SetCollection("sales", testinfra.GenerateRecords(10, baseTime, time.Hour))

	since := baseTime.Add(7 * time.Hour)
	batch, err := fetcher.Fetch(context.Background(), "tok", FetchRequest{
		Entity: "sales",
		Filter: &Filter{Field: "createdAt", Since: since},
		Fields: []string{"createdAt", "closedAt"},
	})
	require.NoError(t, err)

	require.Len(t, batch, 3)
	assert.Equal(t, "8", batch[0].ID)

	reqs := fake.RequestsFor("sales")
	require.Len(t, reqs, 1)
	assert.Equal(t, "gte.2024-05-01T17:00:00Z", reqs[0].Filters["createdAt"])
	assert.Equal(t, "createdAt,closedAt", reqs[0].Fields)
	assert.Equal(t, "tok", reqs[0].Token)
}

func TestFilter_ValueUsesUTC(t *testing.T) {
	loc := time.FixedZone("ART", -3*60*60)
	f := Filter{Field: "createdAt", Since: time.Date(2024, 5, 1, 7, 0, 0, 0, loc)}
	assert.Equal(t, "gte.2024-05-01T10:00:00Z", f.Value())
}

func TestFetch_BackoffDoublesOnRateLimit(t *testing.T) {
	fetcher, fake, rec := newTestFetcher(t, testFetchConfig())
	fake.SetCollection("sales", testinfra.GenerateRecords(3, baseTime, time.Minute))
	fake.FailNext("sales", http.StatusTooManyRequests, http.StatusTooManyRequests, http.StatusTooManyRequests)

	batch, err := fetcher.Fetch(context.Background(), "tok", FetchRequest{Entity: "sales"})
	require.NoError(t, err)
	assert.Len(t, batch, 3)

	assert.Len(t, fake.RequestsFor("sales"), 4)
	assert.Equal(t, []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
	}, rec.recorded())
}

func TestFetch_BackoffCappedAtMax(t *testing.T) {
	cfg := testFetchConfig()
	cfg.InitialBackoff = time.Second
	cfg.MaxBackoff = 3 * time.Second
	fetcher, fake, rec := newTestFetcher(t, cfg)
	fake.SetCollection("sales", testinfra.GenerateRecords(1, baseTime, time.Minute))
	fake.FailNext("sales", 502, 503, 504, 500)

	_, err := fetcher.Fetch(context.Background(), "tok", FetchRequest{Entity: "sales"})
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 3 * time.Second, 3 * time.Second}, rec.recorded())
}

func TestFetch_RetryAfterRaisesDelay(t *testing.T) {
	fetcher, fake, rec := newTestFetcher(t, testFetchConfig())
	fake.SetCollection("sales", testinfra.GenerateRecords(1, baseTime, time.Minute))
	fake.SetRetryAfter("2")
	fake.FailNext("sales", http.StatusTooManyRequests)

	_, err := fetcher.Fetch(context.Background(), "tok", FetchRequest{Entity: "sales"})
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{2 * time.Second}, rec.recorded())
}

func TestFetch_RetryAfterCappedAtMax(t *testing.T) {
	cfg := testFetchConfig()
	cfg.MaxBackoff = time.Second
	fetcher, fake, rec := newTestFetcher(t, cfg)
	fake.SetCollection("sales", testinfra.GenerateRecords(1, baseTime, time.Minute))
	fake.SetRetryAfter("120")
	fake.FailNext("sales", http.StatusServiceUnavailable)

	_, err := fetcher.Fetch(context.Background(), "tok", FetchRequest{Entity: "sales"})
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{time.Second}, rec.recorded())
}

func TestFetch_RetriesExhausted(t *testing.T) {
	cfg := testFetchConfig()
	cfg.MaxAttempts = 3
	fetcher, fake, rec := newTestFetcher(t, cfg)
	fake.SetCollection("sales", testinfra.GenerateRecords(1, baseTime, time.Minute))
	fake.FailNext("sales", 503, 503, 503)

	_, err := fetcher.Fetch(context.Background(), "tok", FetchRequest{Entity: "sales"})
	require.Error(t, err)

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, RetriesExhausted, fe.Kind)
	assert.Equal(t, 503, fe.StatusCode)
	assert.Equal(t, 3, fe.Attempts)
	assert.Equal(t, 1, fe.Page)
	assert.Len(t, fake.RequestsFor("sales"), 3)
	// No wait after the last attempt.
	assert.Len(t, rec.recorded(), 2)
}

func TestFetch_AuthInvalidNotRetried(t *testing.T) {
	fetcher, fake, rec := newTestFetcher(t, testFetchConfig())
	fake.SetCollection("sales", testinfra.GenerateRecords(1, baseTime, time.Minute))

	_, err := fetcher.Fetch(context.Background(), "unknown-token", FetchRequest{Entity: "sales"})
	require.Error(t, err)
	assert.Equal(t, AuthInvalid, KindOf(err))
	assert.Len(t, fake.RequestsFor("sales"), 1)
	assert.Empty(t, rec.recorded())
}

func TestFetch_BadRequestNotRetried(t *testing.T) {
	fetcher, fake, _ := newTestFetcher(t, testFetchConfig())
	fake.SetCollection("sales", testinfra.GenerateRecords(1, baseTime, time.Minute))
	fake.FailNext("sales", http.StatusBadRequest)

	_, err := fetcher.Fetch(context.Background(), "tok", FetchRequest{Entity: "sales"})
	require.Error(t, err)

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, BadRequest, fe.Kind)
	assert.Equal(t, http.StatusBadRequest, fe.StatusCode)
	assert.Len(t, fake.RequestsFor("sales"), 1)
}

func TestFetch_UndecodableBodyIsRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			_, _ = w.Write([]byte(`{"data": [`))
			return
		}
		_, _ = w.Write([]byte(`{"data": [{"id": 7, "attributes": {}}]}`))
	}))
	t.Cleanup(srv.Close)

	rec := &sleepRecorder{}
	fetcher := NewFetcher(config.FudoConfig{
		APIBaseURL:     srv.URL,
		APIVersion:     "v1alpha1",
		RequestTimeout: 5 * time.Second,
	}, testFetchConfig(), WithSleep(rec.sleep))

	batch, err := fetcher.Fetch(context.Background(), "tok", FetchRequest{Entity: "customers"})
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, "7", batch[0].ID)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, []time.Duration{100 * time.Millisecond}, rec.recorded())
}

func TestFetch_ContextCancelled(t *testing.T) {
	fetcher, fake, _ := newTestFetcher(t, testFetchConfig())
	fake.SetCollection("sales", testinfra.GenerateRecords(1, baseTime, time.Minute))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fetcher.Fetch(ctx, "tok", FetchRequest{Entity: "sales"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestRecordID(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"string id", `{"id": "42"}`, "42"},
		{"numeric id", `{"id": 42}`, "42"},
		{"missing id", `{"attributes": {}}`, ""},
		{"null id", `{"id": null}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := recordID([]byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := recordID([]byte(`[1, 2]`))
	assert.Error(t, err)
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 3*time.Second, parseRetryAfter("3"))
	assert.Equal(t, time.Duration(0), parseRetryAfter(""))
	assert.Equal(t, time.Duration(0), parseRetryAfter("-1"))
	assert.Equal(t, time.Duration(0), parseRetryAfter("soon"))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		kind   ErrorKind
		reason string
	}{
		{"rate limited", &statusError{code: 429}, RetryableTransport, "rate_limited"},
		{"server error", &statusError{code: 502}, RetryableTransport, "server_error"},
		{"unauthorized", &statusError{code: 401}, AuthInvalid, ""},
		{"forbidden", &statusError{code: 403}, AuthInvalid, ""},
		{"not found", &statusError{code: 404}, BadRequest, ""},
		{"unprocessable", &statusError{code: 422}, BadRequest, ""},
		{"decode", &decodeError{err: context.DeadlineExceeded}, RetryableTransport, "decode"},
		{"transport", context.DeadlineExceeded, RetryableTransport, "transport"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, reason, _, _ := classify(tt.err)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

// tripBreaker opens the fetcher's circuit with transport failures.
func tripBreaker(t *testing.T, f *Fetcher) {
	t.Helper()
	for i := 0; i < 10; i++ {
		_, _ = f.breaker.execute(func() ([]models.Record, error) {
			return nil, errors.New("connection reset by peer")
		})
	}
	require.Equal(t, "open", f.BreakerState())
}

func TestFetch_OpenCircuitDoesNotSpendAttempts(t *testing.T) {
	fake := testinfra.NewFakeFudo(t)
	fake.AcceptToken("tok")
	fake.SetCollection("sales", testinfra.GenerateRecords(3, baseTime, time.Minute))

	cfg := testFetchConfig()
	cfg.MaxAttempts = 1
	fetcher := NewFetcher(testFudoConfig(fake), cfg, WithBreakerTimeout(50*time.Millisecond))
	tripBreaker(t, fetcher)

	batch, err := fetcher.Fetch(context.Background(), "tok", FetchRequest{Entity: "sales"})
	require.NoError(t, err, "the rejected call must not use up the only attempt")
	assert.Len(t, batch, 3)
	assert.Len(t, fake.RequestsFor("sales"), 1, "rejected calls never reach the API")
	assert.Equal(t, "closed", fetcher.BreakerState())
}

func TestFetch_OpenCircuitWaitsAreBounded(t *testing.T) {
	fetcher, fake, rec := newTestFetcher(t, testFetchConfig())
	fake.SetCollection("sales", testinfra.GenerateRecords(3, baseTime, time.Minute))
	tripBreaker(t, fetcher)

	_, err := fetcher.Fetch(context.Background(), "tok", FetchRequest{Entity: "sales"})
	require.Error(t, err)
	assert.Equal(t, RetriesExhausted, KindOf(err))
	assert.Empty(t, fake.RequestsFor("sales"))

	delays := rec.recorded()
	require.Len(t, delays, 9, "five circuit waits, then four backoffs")
	for _, d := range delays[:5] {
		assert.Equal(t, defaultBreakerTimeout, d)
	}
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond, 800 * time.Millisecond}, delays[5:])
}
