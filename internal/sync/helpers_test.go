// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

package sync

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tomtom215/fudosync/internal/config"
	"github.com/tomtom215/fudosync/internal/models"
	"github.com/tomtom215/fudosync/internal/secrets"
	"github.com/tomtom215/fudosync/internal/state"
	"github.com/tomtom215/fudosync/internal/testinfra"
)

var (
	salesSpec = models.EntitySpec{
		Name:          "sales",
		Class:         models.MutableAggregate,
		FilterField:   "createdAt",
		UpdatedFields: []string{"closedAt", "createdAt"},
	}
	productsSpec = models.EntitySpec{
		Name:          "products",
		Class:         models.NonFilterable,
		UpdatedFields: []string{"createdAt"},
	}
	paymentsSpec = models.EntitySpec{
		Name:          "payments",
		Class:         models.FilterableImmutable,
		FilterField:   "createdAt",
		UpdatedFields: []string{"createdAt"},
	}
)

func testFudoConfig(f *testinfra.FakeFudo) config.FudoConfig {
	return config.FudoConfig{
		APIBaseURL:     f.URL(),
		AuthEndpoint:   f.AuthURL(),
		APIVersion:     testinfra.DefaultAPIVersion,
		RequestTimeout: 5 * time.Second,
		AuthTimeout:    5 * time.Second,
	}
}

func testFetchConfig() config.FetchConfig {
	return config.FetchConfig{
		PageSize:       500,
		MaxAttempts:    5,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
	}
}

// sleepRecorder replaces real waits and records every non-zero delay.
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	if d > 0 {
		s.mu.Lock()
		s.delays = append(s.delays, d)
		s.mu.Unlock()
	}
	return ctx.Err()
}

func (s *sleepRecorder) recorded() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.delays))
	copy(out, s.delays)
	return out
}

// memRawStore is an in-memory RawStore with the same conflict semantics as
// the DuckDB table: one row per (id, branch, checksum).
type memRawStore struct {
	mu   sync.Mutex
	rows map[string]models.RawRecord
	err  error
}

func newMemRawStore() *memRawStore {
	return &memRawStore{rows: make(map[string]models.RawRecord)}
}

func (s *memRawStore) InsertRawRecords(_ context.Context, spec models.EntitySpec, records []models.RawRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	inserted := 0
	for _, r := range records {
		key := strings.Join([]string{spec.Name, r.SourceID, r.BranchID, r.Checksum}, "|")
		if _, ok := s.rows[key]; ok {
			continue
		}
		s.rows[key] = r
		inserted++
	}
	return inserted, nil
}

func (s *memRawStore) rowsFor(entity, sourceID string) []models.RawRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.RawRecord
	prefix := entity + "|" + sourceID + "|"
	for k, r := range s.rows {
		if strings.HasPrefix(k, prefix) {
			out = append(out, r)
		}
	}
	return out
}

func (s *memRawStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

func newTestStateStore(t *testing.T) *state.BadgerStore {
	t.Helper()
	store, err := state.OpenBadgerInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// mapSecrets resolves secret names from a fixed map.
func mapSecrets(values map[string]string) secrets.Provider {
	return secrets.ProviderFunc(func(_ context.Context, name string) (string, error) {
		v, ok := values[name]
		if !ok {
			return "", secrets.ErrSecretNotFound
		}
		return v, nil
	})
}

func testBranch(id string) models.Branch {
	return models.Branch{
		ID:              id,
		Name:            "Sucursal " + id,
		APIKeySecret:    id + "_key",
		APISecretSecret: id + "_secret",
		Active:          true,
	}
}

func testBranchSecrets(ids ...string) secrets.Provider {
	values := make(map[string]string)
	for _, id := range ids {
		values[id+"_key"] = "key-" + id
		values[id+"_secret"] = "secret-" + id
	}
	return mapSecrets(values)
}

// staticBranches is a BranchSource over a fixed list.
type staticBranches []models.Branch

func (b staticBranches) ActiveBranches(context.Context) ([]models.Branch, error) {
	return b, nil
}
