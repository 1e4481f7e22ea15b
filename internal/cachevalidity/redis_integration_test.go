// Transitsync - Real-time Transit Fleet Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitsync

//go:build integration

package cachevalidity

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/tomtom215/transitsync/internal/testinfra"
)

func TestRedisStore_Integration(t *testing.T) {
	testinfra.SkipIfNoDocker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	rc, err := testinfra.NewRedisContainer(ctx)
	if err != nil {
		t.Fatalf("start redis: %v", err)
	}
	defer testinfra.CleanupContainer(t, ctx, rc)

	client, err := ConnectRedis(ctx, rc.Addr, "", 0)
	if err != nil {
		t.Fatalf("ConnectRedis: %v", err)
	}
	defer client.Close()

	t.Run("store suite", func(t *testing.T) {
		n := 0
		runStoreSuite(t, func(*testing.T) Store {
			n++
			// Isolate subtests by prefix on the shared server.
			return NewRedisStore(client, "it:"+string(rune('a'+n))+":")
		})
	})

	t.Run("refresh round trip", func(t *testing.T) {
		dataset := testinfra.NewMockDatasetServer(t, buildDataset(t, map[string]string{
			"stops.txt":  testStopsTXT,
			"routes.txt": testRoutesTXT,
		}))
		store := NewRedisStore(client, "it:refresh:")
		r := NewRefresher(NewOracle(store, WithClock(fixedClock)), store, NewHTTPFetcher(dataset.URL(), 10*time.Second))

		res, err := r.Refresh(ctx)
		if err != nil {
			t.Fatalf("Refresh: %v", err)
		}
		if !res.Refreshed || res.RowsWritten != 4 {
			t.Fatalf("Refresh() = %+v", res)
		}

		// A second process sharing the same keys sees a valid cache.
		peer := NewOracle(NewRedisStore(client, "it:refresh:"), WithClock(fixedClock))
		check, err := peer.Check(ctx)
		if err != nil || !check.Valid {
			t.Fatalf("peer Check() = %+v, %v; want valid", check, err)
		}

		// Tomorrow the upstream is down: the stamp is revoked.
		tomorrow := func() time.Time { return fixedNow.Add(24 * time.Hour) }
		dataset.Fail(http.StatusServiceUnavailable)
		r2 := NewRefresher(NewOracle(store, WithClock(tomorrow)), store, NewHTTPFetcher(dataset.URL(), 10*time.Second))
		if _, err := r2.Refresh(ctx); err == nil {
			t.Fatal("Refresh succeeded against a failing dataset server")
		}
		rec, err := store.GetVersionRecord(ctx)
		if err != nil || rec != nil {
			t.Errorf("version record after failed refresh = %v, %v; want nil", rec, err)
		}
		if dataset.Requests() != 2 {
			t.Errorf("dataset downloads = %d, want 2", dataset.Requests())
		}
	})
}
