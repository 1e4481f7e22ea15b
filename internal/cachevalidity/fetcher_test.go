// Transitsync - Real-time Transit Fleet Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitsync

package cachevalidity

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/transitsync/internal/models"
)

const (
	testStopsTXT = "\xEF\xBB\xBFstop_id,stop_code,stop_name,stop_lat,stop_lon,location_type\n" +
		"S1,1001,Central,52.3780,4.9000,0\n" +
		"S2,,Harbour,52.3800,4.9100\n" +
		",,Nameless,0,0,0\n"
	testRoutesTXT = "route_id,agency_id,route_short_name,route_long_name,route_type,route_color\n" +
		"R1,A,1,Central - Harbour,3,FF0000\n" +
		"R2,A,,Night Line,3,\n"
)

func buildDataset(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestParseDataset(t *testing.T) {
	rows, err := ParseDataset(buildDataset(t, map[string]string{
		"stops.txt":  testStopsTXT,
		"routes.txt": testRoutesTXT,
		"agency.txt": "agency_id,agency_name\nA,Metro\n",
	}))
	if err != nil {
		t.Fatalf("ParseDataset: %v", err)
	}

	byKey := make(map[string]models.StaticDatasetRow, len(rows))
	for _, r := range rows {
		byKey[r.Key()] = r
	}
	if len(byKey) != 4 {
		t.Fatalf("got %d rows (%v), want 4", len(byKey), rows)
	}

	s1 := byKey["stop:S1"]
	if s1.Name != "Central" || s1.Code != "1001" || s1.Latitude != 52.378 {
		t.Errorf("stop S1 = %+v", s1)
	}
	if s2 := byKey["stop:S2"]; s2.Name != "Harbour" {
		t.Errorf("stop S2 (short row) = %+v", s2)
	}
	if r1 := byKey["route:R1"]; r1.Name != "1" || r1.Color != "FF0000" {
		t.Errorf("route R1 = %+v", r1)
	}
	if r2 := byKey["route:R2"]; r2.Name != "Night Line" {
		t.Errorf("route R2 should fall back to long name, got %+v", r2)
	}
}

func TestParseDataset_Errors(t *testing.T) {
	tests := []struct {
		name string
		data func(t *testing.T) []byte
	}{
		{"not a zip", func(*testing.T) []byte { return []byte("plain text") }},
		{"no stops", func(t *testing.T) []byte {
			return buildDataset(t, map[string]string{"routes.txt": testRoutesTXT})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseDataset(tt.data(t)); err == nil {
				t.Error("ParseDataset() = nil error")
			}
		})
	}
}

func TestHTTPFetcher_FetchAllRows(t *testing.T) {
	archive := buildDataset(t, map[string]string{"stops.txt": testStopsTXT})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/gtfs.zip" {
			http.NotFound(w, r)
			return
		}
		w.Write(archive) //nolint:errcheck
	}))
	defer srv.Close()

	f := NewHTTPFetcher(srv.URL+"/gtfs.zip", 5*time.Second)
	rows, err := f.FetchAllRows(context.Background())
	if err != nil {
		t.Fatalf("FetchAllRows: %v", err)
	}
	if countStops(rows) != 2 {
		t.Errorf("got %d stops, want 2", countStops(rows))
	}
}

func TestHTTPFetcher_BreakerOpens(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(srv.URL, 5*time.Second, WithBreaker(2, time.Hour))
	ctx := context.Background()

	for i := range 2 {
		_, err := f.FetchAllRows(ctx)
		if err == nil || IsCircuitOpen(err) {
			t.Fatalf("attempt %d: err = %v, want upstream failure", i, err)
		}
	}
	_, err := f.FetchAllRows(ctx)
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("third attempt err = %v, want ErrCircuitOpen", err)
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("server saw %d requests, want 2", got)
	}
}

func TestHTTPFetcher_WithRefresher(t *testing.T) {
	archive := buildDataset(t, map[string]string{"stops.txt": testStopsTXT, "routes.txt": testRoutesTXT})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write(archive) //nolint:errcheck
	}))
	defer srv.Close()

	store := newBadgerTestStore(t)
	r := NewRefresher(NewOracle(store, WithClock(fixedClock)), store, NewHTTPFetcher(srv.URL, 5*time.Second))

	res, err := r.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if res.RowsWritten != 4 {
		t.Errorf("RowsWritten = %d, want 4", res.RowsWritten)
	}
	row, err := store.(*BadgerStore).GetRow(context.Background(), models.RowKindStop, "S1")
	if err != nil || row == nil || row.Version != "2026-10-14" {
		t.Errorf("GetRow(S1) = %+v, %v", row, err)
	}
}
