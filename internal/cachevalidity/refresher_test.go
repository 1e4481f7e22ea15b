// Transitsync - Real-time Transit Fleet Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitsync

package cachevalidity

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/tomtom215/transitsync/internal/models"
)

type stubFetcher struct {
	rows  []models.StaticDatasetRow
	err   error
	calls atomic.Int32
}

func (f *stubFetcher) FetchAllRows(context.Context) ([]models.StaticDatasetRow, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.StaticDatasetRow, len(f.rows))
	copy(out, f.rows)
	return out, nil
}

func freshRows() []models.StaticDatasetRow {
	rows := sampleRows()
	for i := range rows {
		rows[i].Version = ""
	}
	return rows
}

func newTestRefresher(store Store, f Fetcher) *Refresher {
	return NewRefresher(NewOracle(store, WithClock(fixedClock)), store, f)
}

func TestRefresher_RefreshesInvalidCache(t *testing.T) {
	ctx := context.Background()
	store := newRecordingStore()
	_ = store.BulkAdd(ctx, []models.StaticDatasetRow{{Kind: models.RowKindStop, ID: "OLD", Version: "2026-10-01"}})
	_ = store.MemoryStore.PutVersionRecord(ctx, &models.CacheVersionRecord{Version: "2026-10-01"})
	f := &stubFetcher{rows: freshRows()}

	res, err := newTestRefresher(store, f).Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if !res.Refreshed || res.RowsWritten != 3 {
		t.Fatalf("Refresh() = %+v, want 3 rows refreshed", res)
	}
	if res.Check.Reason != ReasonVersionMismatch {
		t.Errorf("Reason = %s, want %s", res.Check.Reason, ReasonVersionMismatch)
	}

	rows := store.Rows()
	if len(rows) != 3 {
		t.Fatalf("store has %d rows, want 3 (old rows cleared)", len(rows))
	}
	for _, r := range rows {
		if r.Version != "2026-10-14" {
			t.Errorf("row %s version = %q, want 2026-10-14", r.Key(), r.Version)
		}
	}
	if st := res.Status(); !st.Valid || !st.Refreshed {
		t.Errorf("Status() = %+v", st)
	}
}

func TestRefresher_SkipsValidCache(t *testing.T) {
	ctx := context.Background()
	store := newRecordingStore()
	f := &stubFetcher{rows: freshRows()}
	r := newTestRefresher(store, f)

	if _, err := r.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	res, err := r.Refresh(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res.Refreshed || !res.Check.Valid {
		t.Errorf("second Refresh() = %+v, want skipped", res)
	}
	if got := f.calls.Load(); got != 1 {
		t.Errorf("fetcher called %d times, want 1", got)
	}
	if last := r.Last(); last == nil || last.Refreshed {
		t.Errorf("Last() = %+v, want the skipped result", last)
	}
}

func TestRefresher_FailureRevokesVersion(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")

	tests := []struct {
		name    string
		fetcher *stubFetcher
		setup   func(*recordingStore)
		wantErr error
	}{
		{name: "fetch error", fetcher: &stubFetcher{err: boom}, wantErr: boom},
		{name: "no stops", fetcher: &stubFetcher{rows: freshRows()[2:]}, wantErr: ErrNoRows},
		{name: "clear error", fetcher: &stubFetcher{rows: freshRows()}, setup: func(s *recordingStore) { s.failClear = boom }, wantErr: boom},
		{name: "bulk add error", fetcher: &stubFetcher{rows: freshRows()}, setup: func(s *recordingStore) { s.failAdd = boom }, wantErr: boom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newRecordingStore()
			if tt.setup != nil {
				tt.setup(store)
			}
			r := newTestRefresher(store, tt.fetcher)

			_, err := r.Refresh(ctx)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Refresh() error = %v, want %v", err, tt.wantErr)
			}
			rec, _ := store.GetVersionRecord(ctx)
			if rec != nil {
				t.Errorf("version record %v survived a failed refresh", rec)
			}

			// The next check must report invalid again, so a retry happens.
			res, err := NewOracle(store, WithClock(fixedClock)).Check(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if res.Valid {
				t.Error("cache reported valid after failed refresh")
			}
		})
	}
}

func TestRefresher_RetryAfterFailure(t *testing.T) {
	ctx := context.Background()
	store := newRecordingStore()
	f := &stubFetcher{err: errors.New("offline")}
	r := newTestRefresher(store, f)

	if _, err := r.Refresh(ctx); err == nil {
		t.Fatal("expected error while offline")
	}
	f.err = nil
	f.rows = freshRows()

	res, err := r.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh after recovery: %v", err)
	}
	if !res.Refreshed {
		t.Errorf("Refresh() = %+v, want refreshed", res)
	}
	if n, _ := store.Count(ctx); n != 2 {
		t.Errorf("Count() = %d, want 2", n)
	}
}
