// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

package state

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/fudosync/internal/logging"
	"github.com/tomtom215/fudosync/internal/models"
)

const (
	prefixWatermark = "watermark/"
	prefixToken     = "token/"
)

// ErrClosed is returned by BadgerStore operations after Close.
var ErrClosed = errors.New("state store is closed")

// BadgerStore implements Store on an embedded BadgerDB.
type BadgerStore struct {
	db     *badger.DB
	mu     sync.RWMutex
	closed bool
}

type watermarkValue struct {
	LastSuccess time.Time `json:"last_success"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type tokenValue struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OpenBadger opens (or creates) a BadgerStore at path.
func OpenBadger(path string) (*BadgerStore, error) {
	if path == "" {
		return nil, fmt.Errorf("badger path is required")
	}
	opts := badger.DefaultOptions(path)
	opts.SyncWrites = true
	opts.Logger = nil
	return openBadger(opts)
}

// OpenBadgerInMemory opens a non-persistent store. Used by tests.
func OpenBadgerInMemory() (*BadgerStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return openBadger(opts)
}

func openBadger(opts badger.Options) (*BadgerStore, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}
	logging.Info().Str("path", opts.Dir).Bool("in_memory", opts.InMemory).Msg("State store opened")
	return &BadgerStore{db: db}, nil
}

func watermarkKey(branchID, entity string) []byte {
	return []byte(prefixWatermark + branchID + "/" + entity)
}

func tokenKey(branchID string) []byte {
	return []byte(prefixToken + branchID)
}

func (s *BadgerStore) checkOpen() error {
	if s.closed {
		return ErrClosed
	}
	return nil
}

// GetWatermark implements WatermarkStore.
func (s *BadgerStore) GetWatermark(_ context.Context, branchID, entity string) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return time.Time{}, false, err
	}

	var v watermarkValue
	found, err := s.get(watermarkKey(branchID, entity), &v)
	if err != nil || !found {
		return time.Time{}, false, err
	}
	return v.LastSuccess.UTC(), true, nil
}

// SetWatermark implements WatermarkStore. The read and the write share one
// transaction so concurrent writers cannot move the watermark backwards.
func (s *BadgerStore) SetWatermark(_ context.Context, branchID, entity string, ts time.Time) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return err
	}

	key := watermarkKey(branchID, entity)
	ts = ts.UTC()
	err := s.db.Update(func(txn *badger.Txn) error {
		var current watermarkValue
		item, err := txn.Get(key)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
		case err != nil:
			return err
		default:
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &current)
			}); err != nil {
				return err
			}
			if !ts.After(current.LastSuccess) {
				ts = current.LastSuccess
			}
		}

		data, err := json.Marshal(watermarkValue{LastSuccess: ts, UpdatedAt: time.Now().UTC()})
		if err != nil {
			return err
		}
		return txn.Set(key, data)
	})
	if err != nil {
		return fmt.Errorf("failed to write watermark %s/%s: %w", branchID, entity, err)
	}
	return nil
}

// ListWatermarks implements WatermarkStore.
func (s *BadgerStore) ListWatermarks(_ context.Context) ([]models.Watermark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	watermarks := []models.Watermark{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixWatermark)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			rest := strings.TrimPrefix(string(item.Key()), prefixWatermark)
			branchID, entity, ok := strings.Cut(rest, "/")
			if !ok {
				continue
			}
			var v watermarkValue
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &v)
			}); err != nil {
				logging.Warn().Err(err).Str("key", string(item.Key())).Msg("Skipping unreadable watermark")
				continue
			}
			watermarks = append(watermarks, models.Watermark{
				BranchID:    branchID,
				Entity:      entity,
				LastSuccess: v.LastSuccess.UTC(),
				UpdatedAt:   v.UpdatedAt.UTC(),
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list watermarks: %w", err)
	}

	sort.Slice(watermarks, func(i, j int) bool {
		if watermarks[i].BranchID != watermarks[j].BranchID {
			return watermarks[i].BranchID < watermarks[j].BranchID
		}
		return watermarks[i].Entity < watermarks[j].Entity
	})
	return watermarks, nil
}

// GetToken implements TokenStore.
func (s *BadgerStore) GetToken(_ context.Context, branchID string) (*models.CachedToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var v tokenValue
	found, err := s.get(tokenKey(branchID), &v)
	if err != nil || !found {
		return nil, err
	}
	return &models.CachedToken{
		BranchID:  branchID,
		Token:     v.Token,
		ExpiresAt: v.ExpiresAt.UTC(),
		UpdatedAt: v.UpdatedAt.UTC(),
	}, nil
}

// SetToken implements TokenStore.
func (s *BadgerStore) SetToken(_ context.Context, branchID, token string, expiresAt time.Time) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return err
	}

	data, err := json.Marshal(tokenValue{Token: token, ExpiresAt: expiresAt.UTC(), UpdatedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(tokenKey(branchID), data)
	})
	if err != nil {
		return fmt.Errorf("failed to write token for branch %s: %w", branchID, err)
	}
	return nil
}

func (s *BadgerStore) get(key []byte, dst interface{}) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, dst)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return true, nil
}

// RunGC reclaims value log space. It loops until BadgerDB reports there is
// nothing left to rewrite.
func (s *BadgerStore) RunGC() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	if s.db.Opts().InMemory {
		return nil
	}
	for {
		err := s.db.RunValueLogGC(0.5)
		if errors.Is(err, badger.ErrNoRewrite) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// Close flushes and closes the store. Calling Close twice is a no-op.
func (s *BadgerStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
