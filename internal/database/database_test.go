// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/fudosync/internal/config"
	"github.com/tomtom215/fudosync/internal/models"
	"github.com/tomtom215/fudosync/internal/state"
)

var _ state.Store = (*DB)(nil)

// testDBSemaphore serializes DuckDB usage across tests. It is held for the
// whole test so that only one test has an active connection at any time.
var testDBSemaphore = make(chan struct{}, 1)

var testDBMutex sync.Mutex

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	return setupTestDBWithConfig(t, &config.DatabaseConfig{
		Path:            ":memory:",
		MaxMemory:       "1GB",
		InsertChunkSize: 1000,
	})
}

func setupTestDBWithConfig(t *testing.T, cfg *config.DatabaseConfig) *DB {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() {
		<-testDBSemaphore
	})

	type result struct {
		db  *DB
		err error
	}

	resultCh := make(chan result, 1)
	go func() {
		testDBMutex.Lock()
		db, err := New(cfg)
		testDBMutex.Unlock()
		resultCh <- result{db: db, err: err}
	}()

	select {
	case res := <-resultCh:
		if res.err != nil {
			t.Fatalf("Failed to create test database: %v", res.err)
		}
		t.Cleanup(func() {
			if err := res.db.Close(); err != nil {
				t.Errorf("Close: %v", err)
			}
		})
		return res.db
	case <-time.After(120 * time.Second):
		t.Fatalf("Timeout: database creation took longer than 120s")
		return nil
	}
}

var salesSpec = models.EntitySpec{Name: "sales", Class: models.MutableAggregate, FilterField: "createdAt"}

func rawRecord(id, branch, checksum string) models.RawRecord {
	return models.RawRecord{
		SourceID:    id,
		BranchID:    branch,
		ExtractedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Payload:     `{"id":"` + id + `"}`,
		Checksum:    checksum,
	}
}

func TestNew_CreatesStateTables(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	for _, table := range []string{"etl_fudo_extraction_status", "etl_fudo_tokens", "config_fudo_branches"} {
		var n int
		err := db.Conn().QueryRowContext(ctx,
			"SELECT COUNT(*) FROM information_schema.tables WHERE table_name = ?", table).Scan(&n)
		if err != nil {
			t.Fatalf("query %s: %v", table, err)
		}
		if n != 1 {
			t.Errorf("table %s not created", table)
		}
	}

	if err := db.Ping(ctx); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestNew_FileDatabaseCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	db := setupTestDBWithConfig(t, &config.DatabaseConfig{
		Path:            filepath.Join(dir, "fudo.duckdb"),
		MaxMemory:       "512MB",
		InsertChunkSize: 100,
	})
	if db == nil {
		t.Fatal("expected database")
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("directory not created: %v", err)
	}
}

func TestEnsureRawTables(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	specs := []models.EntitySpec{
		salesSpec,
		{Name: "payment-methods", Class: models.NonFilterable, FilterField: "createdAt"},
	}
	if err := db.EnsureRawTables(ctx, specs); err != nil {
		t.Fatalf("EnsureRawTables: %v", err)
	}
	// Idempotent.
	if err := db.EnsureRawTables(ctx, specs); err != nil {
		t.Fatalf("EnsureRawTables second call: %v", err)
	}

	for _, spec := range specs {
		n, err := db.CountRawRecords(ctx, spec, "b1")
		if err != nil {
			t.Errorf("CountRawRecords(%s): %v", spec.Name, err)
		}
		if n != 0 {
			t.Errorf("CountRawRecords(%s) = %d, want 0", spec.Name, n)
		}
	}
}

func TestEnsureRawTables_RejectsUnsafeName(t *testing.T) {
	db := setupTestDB(t)

	err := db.EnsureRawTables(context.Background(), []models.EntitySpec{{Name: "sales; DROP TABLE x"}})
	if !errors.Is(err, ErrUnknownEntity) {
		t.Errorf("expected ErrUnknownEntity, got %v", err)
	}
}

func TestInsertRawRecords_IdempotentOnChecksum(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	if err := db.EnsureRawTables(ctx, []models.EntitySpec{salesSpec}); err != nil {
		t.Fatal(err)
	}

	batch := []models.RawRecord{rawRecord("1", "b1", "aaa"), rawRecord("2", "b1", "bbb")}
	n, err := db.InsertRawRecords(ctx, salesSpec, batch)
	if err != nil {
		t.Fatalf("InsertRawRecords: %v", err)
	}
	if n != 2 {
		t.Errorf("inserted = %d, want 2", n)
	}

	// Same rows again: nothing new.
	n, err = db.InsertRawRecords(ctx, salesSpec, batch)
	if err != nil {
		t.Fatalf("InsertRawRecords replay: %v", err)
	}
	if n != 0 {
		t.Errorf("replay inserted = %d, want 0", n)
	}

	// A changed payload for id 1 is a new version.
	n, err = db.InsertRawRecords(ctx, salesSpec, []models.RawRecord{rawRecord("1", "b1", "ccc")})
	if err != nil {
		t.Fatalf("InsertRawRecords new version: %v", err)
	}
	if n != 1 {
		t.Errorf("new version inserted = %d, want 1", n)
	}

	// Same id and checksum under another branch is distinct.
	n, err = db.InsertRawRecords(ctx, salesSpec, []models.RawRecord{rawRecord("1", "b2", "aaa")})
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("other branch inserted = %d, want 1", n)
	}

	count, err := db.CountRawRecords(ctx, salesSpec, "b1")
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Errorf("b1 rows = %d, want 3", count)
	}
}

func TestInsertRawRecords_Chunking(t *testing.T) {
	db := setupTestDBWithConfig(t, &config.DatabaseConfig{
		Path:            ":memory:",
		MaxMemory:       "1GB",
		InsertChunkSize: 7,
	})
	ctx := context.Background()
	if err := db.EnsureRawTables(ctx, []models.EntitySpec{salesSpec}); err != nil {
		t.Fatal(err)
	}

	batch := make([]models.RawRecord, 0, 50)
	for i := 0; i < 50; i++ {
		id := string(rune('a'+i%26)) + string(rune('a'+i/26))
		batch = append(batch, rawRecord(id, "b1", "sum-"+id))
	}
	n, err := db.InsertRawRecords(ctx, salesSpec, batch)
	if err != nil {
		t.Fatalf("InsertRawRecords: %v", err)
	}
	if n != 50 {
		t.Errorf("inserted = %d, want 50", n)
	}
}

func TestInsertRawRecords_SourceUpdatedAt(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	if err := db.EnsureRawTables(ctx, []models.EntitySpec{salesSpec}); err != nil {
		t.Fatal(err)
	}

	updated := time.Date(2024, 4, 30, 22, 15, 0, 0, time.UTC)
	rec := rawRecord("9", "b1", "zzz")
	rec.SourceUpdatedAt = &updated
	if _, err := db.InsertRawRecords(ctx, salesSpec, []models.RawRecord{rec, rawRecord("10", "b1", "yyy")}); err != nil {
		t.Fatal(err)
	}

	var got time.Time
	err := db.Conn().QueryRowContext(ctx,
		"SELECT last_updated_at_fudo FROM fudo_raw_sales WHERE id_fudo = '9'").Scan(&got)
	if err != nil {
		t.Fatal(err)
	}
	if !got.UTC().Equal(updated) {
		t.Errorf("last_updated_at_fudo = %v, want %v", got, updated)
	}

	var nulls int
	err = db.Conn().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM fudo_raw_sales WHERE last_updated_at_fudo IS NULL").Scan(&nulls)
	if err != nil {
		t.Fatal(err)
	}
	if nulls != 1 {
		t.Errorf("null last_updated_at_fudo rows = %d, want 1", nulls)
	}
}

func TestInsertRawRecords_Empty(t *testing.T) {
	db := setupTestDB(t)
	n, err := db.InsertRawRecords(context.Background(), salesSpec, nil)
	if err != nil || n != 0 {
		t.Errorf("InsertRawRecords(nil) = %d, %v", n, err)
	}
}

func TestWatermarks(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	_, ok, err := db.GetWatermark(ctx, "b1", "sales")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected no watermark")
	}

	t1 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	if err := db.SetWatermark(ctx, "b1", "sales", t1); err != nil {
		t.Fatal(err)
	}
	got, ok, err := db.GetWatermark(ctx, "b1", "sales")
	if err != nil || !ok {
		t.Fatalf("GetWatermark = %v, %v, %v", got, ok, err)
	}
	if !got.Equal(t1) {
		t.Errorf("watermark = %v, want %v", got, t1)
	}

	// Moving backwards is ignored.
	if err := db.SetWatermark(ctx, "b1", "sales", t1.Add(-time.Hour)); err != nil {
		t.Fatal(err)
	}
	got, _, _ = db.GetWatermark(ctx, "b1", "sales")
	if !got.Equal(t1) {
		t.Errorf("watermark regressed to %v", got)
	}

	t2 := t1.Add(2 * time.Hour)
	if err := db.SetWatermark(ctx, "b1", "sales", t2); err != nil {
		t.Fatal(err)
	}
	got, _, _ = db.GetWatermark(ctx, "b1", "sales")
	if !got.Equal(t2) {
		t.Errorf("watermark = %v, want %v", got, t2)
	}

	if err := db.SetWatermark(ctx, "b1", "products", t1); err != nil {
		t.Fatal(err)
	}
	list, err := db.ListWatermarks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("ListWatermarks len = %d, want 2", len(list))
	}
	if list[0].Entity != "products" || list[1].Entity != "sales" {
		t.Errorf("unexpected order: %+v", list)
	}
}

func TestTokens(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	tok, err := db.GetToken(ctx, "b1")
	if err != nil {
		t.Fatal(err)
	}
	if tok != nil {
		t.Fatalf("expected nil token, got %+v", tok)
	}

	exp := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	if err := db.SetToken(ctx, "b1", "tok-1", exp); err != nil {
		t.Fatal(err)
	}
	if err := db.SetToken(ctx, "b1", "tok-2", exp.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}

	tok, err = db.GetToken(ctx, "b1")
	if err != nil {
		t.Fatal(err)
	}
	if tok == nil || tok.Token != "tok-2" {
		t.Fatalf("GetToken = %+v, want tok-2", tok)
	}
	if !tok.ExpiresAt.Equal(exp.Add(time.Hour)) {
		t.Errorf("ExpiresAt = %v", tok.ExpiresAt)
	}
}

func TestBranches(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	branches := []models.Branch{
		{ID: "b2", Name: "Centro", APIKeySecret: "k2", APISecretSecret: "s2", Active: true},
		{ID: "b1", FudoIdentifier: "fudo-1", APIKeySecret: "k1", APISecretSecret: "s1", Active: true},
		{ID: "b3", APIKeySecret: "k3", APISecretSecret: "s3", Active: false},
	}
	for _, b := range branches {
		if err := db.UpsertBranch(ctx, b); err != nil {
			t.Fatalf("UpsertBranch(%s): %v", b.ID, err)
		}
	}

	active, err := db.ActiveBranches(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 2 || active[0].ID != "b1" || active[1].ID != "b2" {
		t.Errorf("ActiveBranches = %+v", active)
	}

	all, err := db.ListBranches(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("ListBranches len = %d, want 3", len(all))
	}

	b, err := db.Branch(ctx, "b1")
	if err != nil {
		t.Fatal(err)
	}
	if b.FudoIdentifier != "fudo-1" || b.Name != "" {
		t.Errorf("Branch(b1) = %+v", b)
	}

	// Deactivate b2.
	branches[0].Active = false
	if err := db.UpsertBranch(ctx, branches[0]); err != nil {
		t.Fatal(err)
	}
	active, _ = db.ActiveBranches(ctx)
	if len(active) != 1 {
		t.Errorf("ActiveBranches after deactivate = %+v", active)
	}

	if _, err := db.Branch(ctx, "missing"); !errors.Is(err, ErrBranchNotFound) {
		t.Errorf("expected ErrBranchNotFound, got %v", err)
	}
	if err := db.UpsertBranch(ctx, models.Branch{}); err == nil {
		t.Error("expected error for empty branch id")
	}
}

func TestSQLFileHook(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	dir := t.TempDir()

	good := filepath.Join(dir, "01_good.sql")
	bad := filepath.Join(dir, "02_bad.sql")
	after := filepath.Join(dir, "03_after.sql")
	if err := os.WriteFile(good, []byte("CREATE TABLE report_a AS SELECT 1 AS x;"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bad, []byte("SELECT * FROM no_such_table;"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(after, []byte("CREATE TABLE report_b AS SELECT 2 AS y;"), 0o600); err != nil {
		t.Fatal(err)
	}

	hook := NewSQLFileHook(db, []string{good, bad, after, filepath.Join(dir, "missing.sql")})
	if err := hook.AfterRun(ctx); err == nil {
		t.Error("expected error summarizing failed files")
	}

	for _, table := range []string{"report_a", "report_b"} {
		var n int
		if err := db.Conn().QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			t.Errorf("%s not created: %v", table, err)
		}
	}
}
