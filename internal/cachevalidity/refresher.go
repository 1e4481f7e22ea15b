// Transitsync - Real-time Transit Fleet Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitsync

package cachevalidity

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tomtom215/transitsync/internal/logging"
	"github.com/tomtom215/transitsync/internal/metrics"
	"github.com/tomtom215/transitsync/internal/models"
)

// RefreshResult reports what one Refresh call did.
type RefreshResult struct {
	Check       Result
	Refreshed   bool
	RowsWritten int
}

// Status converts the result to its API representation.
func (r RefreshResult) Status() models.CacheStatus {
	return models.CacheStatus{
		Valid:         r.Check.Valid || r.Refreshed,
		Reason:        r.Check.Reason,
		LatestVersion: r.Check.LatestVersion,
		StoredVersion: r.Check.StoredVersion,
		RowCount:      r.Check.RowCount,
		Refreshed:     r.Refreshed,
		RowsWritten:   r.RowsWritten,
	}
}

// Refresher runs a validity check and repopulates the store when the check
// fails. Calls are serialized.
type Refresher struct {
	mu      sync.Mutex
	oracle  *Oracle
	store   Store
	fetcher Fetcher

	lastMu sync.RWMutex
	last   *RefreshResult
}

// NewRefresher creates a Refresher. The oracle must read the same store.
func NewRefresher(oracle *Oracle, store Store, fetcher Fetcher) *Refresher {
	return &Refresher{oracle: oracle, store: store, fetcher: fetcher}
}

// Refresh is idempotent: a valid cache is left alone. On any failure after
// the check stamped a new version, the version record is deleted so the
// next check reports invalid again.
func (r *Refresher) Refresh(ctx context.Context) (RefreshResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	log := logging.Ctx(ctx)

	check, err := r.oracle.Check(ctx)
	res := RefreshResult{Check: check}
	if err != nil {
		metrics.RecordCacheRefresh("store_error", 0)
		r.revoke(ctx)
		return res, err
	}
	if check.Valid {
		metrics.RecordCacheRefresh("skipped", 0)
		r.remember(res)
		return res, nil
	}

	rows, err := r.fetcher.FetchAllRows(ctx)
	if err == nil && countStops(rows) == 0 {
		err = ErrNoRows
	}
	if err != nil {
		metrics.RecordCacheRefresh("fetch_error", 0)
		r.revoke(ctx)
		return res, fmt.Errorf("fetch static dataset: %w", err)
	}

	for i := range rows {
		rows[i].Version = check.LatestVersion
	}
	if err := r.store.Clear(ctx); err != nil {
		metrics.RecordCacheRefresh("store_error", 0)
		r.revoke(ctx)
		return res, fmt.Errorf("clear static rows: %w", err)
	}
	if err := r.store.BulkAdd(ctx, rows); err != nil {
		metrics.RecordCacheRefresh("store_error", 0)
		r.revoke(ctx)
		return res, fmt.Errorf("store static rows: %w", err)
	}

	res.Refreshed = true
	res.RowsWritten = len(rows)
	metrics.RecordCacheRefresh("success", len(rows))
	r.remember(res)
	log.Info().
		Str("version", check.LatestVersion).
		Str("reason", check.Reason).
		Int("rows", len(rows)).
		Msg("static dataset refreshed")
	return res, nil
}

// Last returns the result of the most recent successful Refresh, or nil.
func (r *Refresher) Last() *RefreshResult {
	r.lastMu.RLock()
	defer r.lastMu.RUnlock()
	if r.last == nil {
		return nil
	}
	cp := *r.last
	return &cp
}

func (r *Refresher) remember(res RefreshResult) {
	r.lastMu.Lock()
	r.last = &res
	r.lastMu.Unlock()
}

// revoke deletes the optimistic version stamp. It uses a fresh context so a
// cancelled refresh still cleans up.
func (r *Refresher) revoke(ctx context.Context) {
	cleanup := context.WithoutCancel(ctx)
	if err := r.store.DeleteVersionRecord(cleanup); err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("failed to revoke static cache version")
	}
}

func countStops(rows []models.StaticDatasetRow) int {
	n := 0
	for i := range rows {
		if rows[i].Kind == models.RowKindStop {
			n++
		}
	}
	return n
}

// IsCircuitOpen reports whether err came from an open dataset breaker.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, ErrCircuitOpen)
}
