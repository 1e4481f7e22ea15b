// Transitsync - Real-time Transit Fleet Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitsync

package cachevalidity

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/tomtom215/transitsync/internal/config"
	"github.com/tomtom215/transitsync/internal/models"
)

func testConfig() *config.Config {
	return &config.Config{
		Cache: config.CacheConfig{
			Backend:         config.CacheBackendMemory,
			VersionTimezone: "UTC",
		},
		Redis: config.RedisConfig{KeyPrefix: "test:"},
	}
}

func newBadgerTestStore(t *testing.T) Store {
	t.Helper()
	db, err := OpenBadger("")
	if err != nil {
		t.Fatalf("OpenBadger: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewBadgerStore(db)
}

func newRedisTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func newRedisTestStore(t *testing.T) Store {
	t.Helper()
	_, client := newRedisTestClient(t)
	return NewRedisStore(client, "test:")
}

func sampleRows() []models.StaticDatasetRow {
	return []models.StaticDatasetRow{
		{Kind: models.RowKindStop, ID: "S1", Name: "Central", Latitude: 52.37, Longitude: 4.89, Version: "2026-10-14"},
		{Kind: models.RowKindStop, ID: "S2", Name: "Harbour", Latitude: 52.38, Longitude: 4.90, Version: "2026-10-14"},
		{Kind: models.RowKindRoute, ID: "R1", Name: "1", Color: "FF0000", Version: "2026-10-14"},
	}
}

func TestStores(t *testing.T) {
	stores := map[string]func(t *testing.T) Store{
		"memory": func(*testing.T) Store { return NewMemoryStore() },
		"badger": newBadgerTestStore,
		"redis":  newRedisTestStore,
	}
	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			runStoreSuite(t, newStore)
		})
	}
}

func runStoreSuite(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("empty", func(t *testing.T) {
		s := newStore(t)
		n, err := s.Count(ctx)
		if err != nil || n != 0 {
			t.Fatalf("Count() = %d, %v; want 0, nil", n, err)
		}
		rec, err := s.GetVersionRecord(ctx)
		if err != nil || rec != nil {
			t.Fatalf("GetVersionRecord() = %v, %v; want nil, nil", rec, err)
		}
	})

	t.Run("bulk add counts stops only", func(t *testing.T) {
		s := newStore(t)
		if err := s.BulkAdd(ctx, sampleRows()); err != nil {
			t.Fatalf("BulkAdd: %v", err)
		}
		// Re-adding the same keys overwrites.
		if err := s.BulkAdd(ctx, sampleRows()[:1]); err != nil {
			t.Fatalf("BulkAdd: %v", err)
		}
		n, err := s.Count(ctx)
		if err != nil || n != 2 {
			t.Fatalf("Count() = %d, %v; want 2, nil", n, err)
		}
	})

	t.Run("clear keeps version record", func(t *testing.T) {
		s := newStore(t)
		if err := s.BulkAdd(ctx, sampleRows()); err != nil {
			t.Fatal(err)
		}
		if err := s.PutVersionRecord(ctx, &models.CacheVersionRecord{Version: "2026-10-14", RecordedAt: time.Now()}); err != nil {
			t.Fatal(err)
		}
		if err := s.Clear(ctx); err != nil {
			t.Fatalf("Clear: %v", err)
		}
		if n, _ := s.Count(ctx); n != 0 {
			t.Errorf("Count() after Clear = %d, want 0", n)
		}
		rec, err := s.GetVersionRecord(ctx)
		if err != nil || rec == nil || rec.Version != "2026-10-14" {
			t.Errorf("GetVersionRecord() after Clear = %v, %v", rec, err)
		}
	})

	t.Run("version record lifecycle", func(t *testing.T) {
		s := newStore(t)
		for _, v := range []string{"2026-10-13", "2026-10-14"} {
			if err := s.PutVersionRecord(ctx, &models.CacheVersionRecord{Version: v, RecordedAt: time.Now()}); err != nil {
				t.Fatalf("PutVersionRecord(%s): %v", v, err)
			}
		}
		rec, err := s.GetVersionRecord(ctx)
		if err != nil || rec == nil || rec.Version != "2026-10-14" {
			t.Fatalf("GetVersionRecord() = %v, %v; want 2026-10-14", rec, err)
		}
		if err := s.DeleteVersionRecord(ctx); err != nil {
			t.Fatalf("DeleteVersionRecord: %v", err)
		}
		if err := s.DeleteVersionRecord(ctx); err != nil {
			t.Fatalf("DeleteVersionRecord on absent record: %v", err)
		}
		if rec, _ := s.GetVersionRecord(ctx); rec != nil {
			t.Errorf("GetVersionRecord() after delete = %v, want nil", rec)
		}
	})
}

func TestBadgerStore_GetRow(t *testing.T) {
	ctx := context.Background()
	s := newBadgerTestStore(t).(*BadgerStore)
	if err := s.BulkAdd(ctx, sampleRows()); err != nil {
		t.Fatal(err)
	}

	row, err := s.GetRow(ctx, models.RowKindStop, "S2")
	if err != nil || row == nil {
		t.Fatalf("GetRow(S2) = %v, %v", row, err)
	}
	if row.Name != "Harbour" || row.Version != "2026-10-14" {
		t.Errorf("GetRow(S2) = %+v", row)
	}
	if row, err := s.GetRow(ctx, models.RowKindRoute, "missing"); err != nil || row != nil {
		t.Errorf("GetRow(missing) = %v, %v; want nil, nil", row, err)
	}
}

func TestRedisStore_KeyLayout(t *testing.T) {
	ctx := context.Background()
	mr, client := newRedisTestClient(t)
	s := NewRedisStore(client, "ts:")

	if err := s.BulkAdd(ctx, sampleRows()); err != nil {
		t.Fatal(err)
	}
	if err := s.PutVersionRecord(ctx, &models.CacheVersionRecord{Version: "2026-10-14"}); err != nil {
		t.Fatal(err)
	}

	if !mr.Exists("ts:static:version") {
		t.Error("version key missing")
	}
	for key, want := range map[string]int{"ts:static:rows:stop": 2, "ts:static:rows:route": 1} {
		fields, err := mr.HKeys(key)
		if err != nil || len(fields) != want {
			t.Errorf("HKeys(%s) = %v, %v; want %d fields", key, fields, err, want)
		}
	}

	row, err := s.GetRow(ctx, models.RowKindRoute, "R1")
	if err != nil || row == nil || row.Color != "FF0000" {
		t.Errorf("GetRow(R1) = %v, %v", row, err)
	}
}

func TestRedisStore_BulkAddLargeBatch(t *testing.T) {
	ctx := context.Background()
	s := newRedisTestStore(t)

	rows := make([]models.StaticDatasetRow, 2*redisBatchSize+7)
	for i := range rows {
		rows[i] = models.StaticDatasetRow{Kind: models.RowKindStop, ID: "S" + strconv.Itoa(i)}
	}
	if err := s.BulkAdd(ctx, rows); err != nil {
		t.Fatalf("BulkAdd: %v", err)
	}
	n, err := s.Count(ctx)
	if err != nil || n != len(rows) {
		t.Errorf("Count() = %d, %v; want %d", n, err, len(rows))
	}
}

func TestOpenStore_Memory(t *testing.T) {
	cfg := testConfig()
	cfg.Cache.Backend = "memory"
	h, err := OpenStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer h.Close()
	if _, ok := h.Store.(*MemoryStore); !ok {
		t.Errorf("Store = %T, want *MemoryStore", h.Store)
	}
}

func TestOpenStore_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.Cache.Backend = "redis"
	cfg.Redis.Address = mr.Addr()

	h, err := OpenStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer h.Close()
	if _, ok := h.Store.(*RedisStore); !ok {
		t.Errorf("Store = %T, want *RedisStore", h.Store)
	}
}

func TestOpenStore_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := testConfig()
	cfg.Cache.Backend = "redis"
	cfg.Redis.Address = addr

	if _, err := OpenStore(context.Background(), cfg); err == nil {
		t.Fatal("OpenStore succeeded against a closed server")
	}
}

func TestOpenStore_Badger(t *testing.T) {
	cfg := testConfig()
	cfg.Cache.Backend = "badger"
	cfg.Cache.BadgerPath = t.TempDir()

	h, err := OpenStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	if _, ok := h.Store.(*BadgerStore); !ok {
		t.Errorf("Store = %T, want *BadgerStore", h.Store)
	}
	if err := h.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
