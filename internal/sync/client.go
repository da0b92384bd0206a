// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

/*
client.go - Paginated Fudo collection fetcher

The fetcher walks a JSON:API collection page by page until a short page (fewer
items than the page size, including zero) signals the end of the data, or an
optional page ceiling is reached.

Every page request is retried independently:
  - 429, 5xx, transport failures and undecodable bodies are retried with an
    exponential delay (initial, 2x, 4x ... capped at the configured maximum).
    A Retry-After header raises the next delay, still within the cap.
  - 401/403 abort the fetch with AuthInvalid.
  - Any other 4xx aborts the fetch with BadRequest.
  - Running out of attempts aborts the fetch with RetriesExhausted.

Requests also pass through a shared circuit breaker and an optional rate
limiter. A call rejected by an open circuit does not spend an attempt; the
fetcher waits for the circuit's trial window and asks again, a bounded
number of times.
*/

//nolint:staticcheck // File documentation, not package doc
package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/fudosync/internal/config"
	"github.com/tomtom215/fudosync/internal/logging"
	"github.com/tomtom215/fudosync/internal/metrics"
	"github.com/tomtom215/fudosync/internal/models"
)

// maxErrorBodySize limits how much of an error response is kept for diagnostics.
const maxErrorBodySize = 4 * 1024

// filterTimeLayout is the timestamp format accepted by filter[<field>]=gte.<ts>.
const filterTimeLayout = "2006-01-02T15:04:05Z"

// Filter is a server-side "greater or equal" bound on a timestamp attribute.
type Filter struct {
	Field string
	Since time.Time
}

// Value renders the filter value, e.g. "gte.2024-05-01T10:00:00Z".
func (f Filter) Value() string {
	return "gte." + f.Since.UTC().Format(filterTimeLayout)
}

// FetchRequest describes one paginated fetch.
type FetchRequest struct {
	Entity string
	// PageSize overrides fetch.page_size when > 0.
	PageSize int
	// Filter restricts the fetch server-side. Nil fetches everything.
	Filter *Filter
	// Fields is an optional sparse-fieldset projection.
	Fields []string
	// Sort is a JSON:API sort expression such as "-createdAt" (newest
	// first). Empty leaves the server's default order.
	Sort string
	// MaxPages stops the fetch after this many pages even if the last one was
	// full. Zero means unbounded.
	MaxPages int
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Fetcher retrieves Fudo collections.
type Fetcher struct {
	fudo    config.FudoConfig
	fetch   config.FetchConfig
	client  *http.Client
	limiter *rate.Limiter
	breaker *breaker[[]models.Record]
	sleep   SleepFunc
	logger  *logging.SyncLogger
}

// FetcherOption customizes a Fetcher.
type FetcherOption func(*Fetcher)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) { f.client = c }
}

// WithSleep replaces the function used for backoff and inter-page waits.
func WithSleep(s SleepFunc) FetcherOption {
	return func(f *Fetcher) { f.sleep = s }
}

// WithBreakerTimeout sets how long the API circuit stays open before a trial
// request.
func WithBreakerTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) { f.breaker = newBreaker[[]models.Record]("fudo-api", d) }
}

// WithFetchLogger replaces the logger.
func WithFetchLogger(l *logging.SyncLogger) FetcherOption {
	return func(f *Fetcher) { f.logger = l }
}

// NewFetcher creates a Fetcher for the given endpoint and retry settings.
func NewFetcher(fudo config.FudoConfig, fetch config.FetchConfig, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		fudo:    fudo,
		fetch:   fetch,
		client:  &http.Client{Timeout: fudo.RequestTimeout},
		breaker: newBreaker[[]models.Record]("fudo-api", defaultBreakerTimeout),
		sleep:   sleepContext,
		logger:  logging.NewSyncLogger(),
	}
	if fudo.RequestsPerSecond > 0 {
		burst := int(fudo.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		f.limiter = rate.NewLimiter(rate.Limit(fudo.RequestsPerSecond), burst)
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// BreakerState returns the state of the API circuit breaker.
func (f *Fetcher) BreakerState() string {
	return f.breaker.state()
}

// Fetch returns every record of the collection, in server order.
func (f *Fetcher) Fetch(ctx context.Context, token string, req FetchRequest) (models.FetchBatch, error) {
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = f.fetch.PageSize
	}

	var batch models.FetchBatch
	for page := 1; ; page++ {
		records, err := f.fetchPage(ctx, token, req, pageSize, page)
		if err != nil {
			return nil, err
		}
		batch = append(batch, records...)
		metrics.RecordPage(req.Entity)

		if len(records) < pageSize {
			return batch, nil
		}
		if req.MaxPages > 0 && page >= req.MaxPages {
			return batch, nil
		}
		if err := f.sleep(ctx, f.fetch.InterPageDelay); err != nil {
			return nil, err
		}
	}
}

// fetchPage requests one page, retrying retryable failures.
func (f *Fetcher) fetchPage(ctx context.Context, token string, req FetchRequest, pageSize, page int) ([]models.Record, error) {
	pageURL := f.pageURL(req, pageSize, page)

	bo := &backoff.ExponentialBackOff{
		InitialInterval:     f.fetch.InitialBackoff,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         f.fetch.MaxBackoff,
	}
	bo.Reset()

	var lastErr error
	var lastStatus int
	rejections := 0
	for attempt := 1; attempt <= f.fetch.MaxAttempts; {
		records, err := f.breaker.execute(func() ([]models.Record, error) {
			return f.doPage(ctx, token, pageURL)
		})
		if err == nil {
			return records, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		// The request never left: wait for the circuit's trial window instead
		// of spending an attempt. Once the waits are used up a rejection
		// counts like any other retryable failure.
		if isCircuitRejection(err) && rejections < f.fetch.MaxAttempts {
			rejections++
			metrics.RecordRetry(req.Entity, "circuit_open")
			f.logger.LogRetry(ctx, page, attempt, f.breaker.timeout, "circuit_open")
			if err := f.sleep(ctx, f.breaker.timeout); err != nil {
				return nil, err
			}
			continue
		}

		kind, reason, status, retryAfter := classify(err)
		if kind != RetryableTransport {
			return nil, &FetchError{Kind: kind, Entity: req.Entity, Page: page, StatusCode: status, Attempts: attempt, Err: err}
		}
		lastErr, lastStatus = err, status
		if attempt == f.fetch.MaxAttempts {
			break
		}

		delay := bo.NextBackOff()
		if retryAfter > delay {
			delay = min(retryAfter, f.fetch.MaxBackoff)
		}
		metrics.RecordRetry(req.Entity, reason)
		f.logger.LogRetry(ctx, page, attempt, delay, reason)
		if err := f.sleep(ctx, delay); err != nil {
			return nil, err
		}
		attempt++
	}

	return nil, &FetchError{
		Kind:       RetriesExhausted,
		Entity:     req.Entity,
		Page:       page,
		StatusCode: lastStatus,
		Attempts:   f.fetch.MaxAttempts,
		Err:        lastErr,
	}
}

func (f *Fetcher) pageURL(req FetchRequest, pageSize, page int) string {
	q := url.Values{}
	q.Set("page[size]", strconv.Itoa(pageSize))
	q.Set("page[number]", strconv.Itoa(page))
	if req.Filter != nil {
		q.Set("filter["+req.Filter.Field+"]", req.Filter.Value())
	}
	if len(req.Fields) > 0 {
		q.Set("fields["+req.Entity+"]", strings.Join(req.Fields, ","))
	}
	if req.Sort != "" {
		q.Set("sort", req.Sort)
	}
	return f.fudo.EntityURL(req.Entity) + "?" + q.Encode()
}

// doPage performs a single HTTP attempt.
func (f *Fetcher) doPage(ctx context.Context, token, pageURL string) ([]models.Record, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newStatusError(resp)
	}

	var body struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &decodeError{err: err}
	}

	records := make([]models.Record, 0, len(body.Data))
	for _, raw := range body.Data {
		id, err := recordID(raw)
		if err != nil {
			return nil, &decodeError{err: err}
		}
		records = append(records, models.Record{ID: id, Raw: raw})
	}
	return records, nil
}

// recordID returns the string form of the record's "id" member, or "" when
// it is absent or null.
func recordID(raw json.RawMessage) (string, error) {
	var head struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return "", fmt.Errorf("record is not a JSON object: %w", err)
	}
	id := strings.TrimSpace(string(head.ID))
	switch {
	case id == "" || id == "null":
		return "", nil
	case strings.HasPrefix(id, `"`):
		var s string
		if err := json.Unmarshal(head.ID, &s); err != nil {
			return "", err
		}
		return s, nil
	default:
		return id, nil
	}
}

// statusError is a non-2xx HTTP response.
type statusError struct {
	code       int
	retryAfter time.Duration
	body       string
}

func newStatusError(resp *http.Response) *statusError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	return &statusError{
		code:       resp.StatusCode,
		retryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		body:       logging.TruncateBody(string(body), 256),
	}
}

func (e *statusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("HTTP %d", e.code)
	}
	return fmt.Sprintf("HTTP %d: %s", e.code, e.body)
}

// decodeError is a 2xx response whose body could not be parsed.
type decodeError struct {
	err error
}

func (e *decodeError) Error() string { return "failed to decode page: " + e.err.Error() }
func (e *decodeError) Unwrap() error { return e.err }

// parseRetryAfter understands the delta-seconds form of Retry-After.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// classify maps an attempt error to its kind and a short retry reason.
func classify(err error) (kind ErrorKind, reason string, status int, retryAfter time.Duration) {
	var se *statusError
	if errors.As(err, &se) {
		switch {
		case se.code == http.StatusTooManyRequests:
			return RetryableTransport, "rate_limited", se.code, se.retryAfter
		case se.code >= 500:
			return RetryableTransport, "server_error", se.code, se.retryAfter
		case se.code == http.StatusUnauthorized || se.code == http.StatusForbidden:
			return AuthInvalid, "", se.code, 0
		default:
			return BadRequest, "", se.code, 0
		}
	}

	var de *decodeError
	if errors.As(err, &de) {
		return RetryableTransport, "decode", 0, 0
	}
	if isCircuitRejection(err) {
		return RetryableTransport, "circuit_open", 0, 0
	}
	return RetryableTransport, "transport", 0, 0
}

// sleepContext waits for d unless ctx is done first.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
