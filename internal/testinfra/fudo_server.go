// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

package testinfra

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

// DefaultAPIVersion is the path segment served by FakeFudo.
const DefaultAPIVersion = "v1alpha1"

// FudoRequest is one collection request captured by FakeFudo.
type FudoRequest struct {
	Entity     string
	PageSize   int
	PageNumber int
	// Filters maps the field inside filter[<field>] to the raw value.
	Filters map[string]string
	Fields  string
	// Sort is the raw sort parameter, e.g. "-createdAt". Empty keeps
	// insertion order.
	Sort  string
	Token string
}

// FakeFudo is a scripted in-process Fudo API.
type FakeFudo struct {
	Server *httptest.Server

	mu          sync.Mutex
	version     string
	collections map[string][]map[string]interface{}
	faults      map[string][]int
	retryAfter  string
	requests    []FudoRequest
	authCalls   int
	authStatus  int
	omitExp     bool
	tokenTTL    time.Duration
	credentials map[string]string
	issued      map[string]bool
	tokenSeq    int
}

// NewFakeFudo starts a FakeFudo and closes it when the test ends.
func NewFakeFudo(t *testing.T) *FakeFudo {
	t.Helper()

	f := &FakeFudo{
		version:     DefaultAPIVersion,
		collections: make(map[string][]map[string]interface{}),
		faults:      make(map[string][]int),
		tokenTTL:    24 * time.Hour,
		credentials: make(map[string]string),
		issued:      make(map[string]bool),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/auth", f.handleAuth)
	mux.HandleFunc("/"+f.version+"/", f.handleCollection)
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Server.Close)
	return f
}

// URL is the API base URL (without version).
func (f *FakeFudo) URL() string { return f.Server.URL }

// AuthURL is the token exchange endpoint.
func (f *FakeFudo) AuthURL() string { return f.Server.URL + "/auth" }

// SetCollection replaces the records served for entity. Records are served in
// the given order.
func (f *FakeFudo) SetCollection(entity string, records []map[string]interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.collections[entity] = records
}

// FailNext makes the next len(statuses) requests for entity answer with the
// given HTTP statuses before normal service resumes.
func (f *FakeFudo) FailNext(entity string, statuses ...int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults[entity] = append(f.faults[entity], statuses...)
}

// SetRetryAfter sets the Retry-After header sent with 429 and 503 faults.
func (f *FakeFudo) SetRetryAfter(v string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retryAfter = v
}

// RegisterCredentials restricts the token exchange to the given pair. With no
// registered credentials every pair is accepted.
func (f *FakeFudo) RegisterCredentials(apiKey, apiSecret string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.credentials[apiKey] = apiSecret
}

// SetAuthStatus forces the token exchange to answer with status. Zero restores
// normal behavior.
func (f *FakeFudo) SetAuthStatus(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authStatus = status
}

// SetTokenTTL sets the lifetime of issued tokens.
func (f *FakeFudo) SetTokenTTL(ttl time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokenTTL = ttl
}

// OmitExp makes the token exchange respond without the exp field.
func (f *FakeFudo) OmitExp(omit bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.omitExp = omit
}

// AcceptToken marks token as valid for collection requests.
func (f *FakeFudo) AcceptToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.issued[token] = true
}

// RevokeTokens invalidates every token issued so far.
func (f *FakeFudo) RevokeTokens() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.issued = make(map[string]bool)
}

// AuthCalls returns the number of token exchanges served.
func (f *FakeFudo) AuthCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.authCalls
}

// Requests returns a copy of the captured collection requests.
func (f *FakeFudo) Requests() []FudoRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]FudoRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

// RequestsFor returns the captured requests for entity.
func (f *FakeFudo) RequestsFor(entity string) []FudoRequest {
	var out []FudoRequest
	for _, r := range f.Requests() {
		if r.Entity == entity {
			out = append(out, r)
		}
	}
	return out
}

// ResetRequests clears the captured requests and the auth call counter.
func (f *FakeFudo) ResetRequests() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = nil
	f.authCalls = 0
}

func (f *FakeFudo) handleAuth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.authCalls++

	if f.authStatus != 0 {
		writeJSON(w, f.authStatus, map[string]string{"error": "forced failure"})
		return
	}

	var body struct {
		APIKey    string `json:"apiKey"`
		APISecret string `json:"apiSecret"`
	}
	raw, _ := io.ReadAll(r.Body)
	if err := json.Unmarshal(raw, &body); err != nil || body.APIKey == "" || body.APISecret == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid credentials payload"})
		return
	}
	if len(f.credentials) > 0 && f.credentials[body.APIKey] != body.APISecret {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}

	f.tokenSeq++
	token := fmt.Sprintf("fake-token-%d", f.tokenSeq)
	f.issued[token] = true

	resp := map[string]interface{}{"token": token}
	if !f.omitExp {
		resp["exp"] = time.Now().Add(f.tokenTTL).Unix()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (f *FakeFudo) handleCollection(w http.ResponseWriter, r *http.Request) {
	entity := strings.TrimPrefix(r.URL.Path, "/"+f.version+"/")
	q := r.URL.Query()

	req := FudoRequest{
		Entity:  entity,
		Filters: make(map[string]string),
		Fields:  q.Get("fields[" + entity + "]"),
		Sort:    q.Get("sort"),
		Token:   strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "),
	}
	req.PageSize, _ = strconv.Atoi(q.Get("page[size]"))
	req.PageNumber, _ = strconv.Atoi(q.Get("page[number]"))
	for key, values := range q {
		if strings.HasPrefix(key, "filter[") && strings.HasSuffix(key, "]") && len(values) > 0 {
			req.Filters[key[len("filter["):len(key)-1]] = values[0]
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)

	if !f.issued[req.Token] {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
		return
	}

	if queue := f.faults[entity]; len(queue) > 0 {
		status := queue[0]
		f.faults[entity] = queue[1:]
		if f.retryAfter != "" && (status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable) {
			w.Header().Set("Retry-After", f.retryAfter)
		}
		writeJSON(w, status, map[string]string{"error": http.StatusText(status)})
		return
	}

	records, ok := f.collections[entity]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown collection"})
		return
	}
	if req.PageSize <= 0 || req.PageNumber <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid page parameters"})
		return
	}

	filtered := records
	for field, value := range req.Filters {
		bound, found := strings.CutPrefix(value, "gte.")
		if !found {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported filter"})
			return
		}
		filtered = filterGTE(filtered, field, bound)
	}
	if req.Sort != "" {
		filtered = sortByAttribute(filtered, req.Sort)
	}

	start := (req.PageNumber - 1) * req.PageSize
	page := []map[string]interface{}{}
	if start < len(filtered) {
		end := min(start+req.PageSize, len(filtered))
		page = filtered[start:end]
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": page})
}

// filterGTE keeps records whose attributes[field] is a timestamp at or after bound.
func filterGTE(records []map[string]interface{}, field, bound string) []map[string]interface{} {
	lower, err := time.Parse(time.RFC3339, bound)
	if err != nil {
		return nil
	}
	out := make([]map[string]interface{}, 0, len(records))
	for _, rec := range records {
		attrs, _ := rec["attributes"].(map[string]interface{})
		s, _ := attrs[field].(string)
		ts, err := time.Parse(time.RFC3339, s)
		if err != nil {
			continue
		}
		if !ts.Before(lower) {
			out = append(out, rec)
		}
	}
	return out
}

// sortByAttribute returns a copy of records ordered by the timestamp in
// attributes[field]. A leading "-" sorts newest first. Ties keep insertion
// order.
func sortByAttribute(records []map[string]interface{}, spec string) []map[string]interface{} {
	field, desc := strings.CutPrefix(spec, "-")
	keyOf := func(rec map[string]interface{}) time.Time {
		attrs, _ := rec["attributes"].(map[string]interface{})
		s, _ := attrs[field].(string)
		ts, _ := time.Parse(time.RFC3339, s)
		return ts
	}

	out := make([]map[string]interface{}, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := keyOf(out[i]), keyOf(out[j])
		if desc {
			return a.After(b)
		}
		return a.Before(b)
	})
	return out
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// GenerateRecords builds n JSON:API records with ids "1".."n" and createdAt
// spaced by step starting at start.
func GenerateRecords(n int, start time.Time, step time.Duration) []map[string]interface{} {
	records := make([]map[string]interface{}, n)
	for i := range records {
		records[i] = Record(strconv.Itoa(i+1), start.Add(time.Duration(i)*step), nil)
	}
	return records
}

// Record builds one JSON:API record. Extra attributes are merged over createdAt.
func Record(id string, createdAt time.Time, extra map[string]interface{}) map[string]interface{} {
	attrs := map[string]interface{}{
		"createdAt": createdAt.UTC().Format(time.RFC3339),
	}
	for k, v := range extra {
		attrs[k] = v
	}
	return map[string]interface{}{
		"id":         id,
		"type":       "record",
		"attributes": attrs,
	}
}
