// Transitsync - Real-time Transit Fleet Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitsync

package cachevalidity

import (
	"context"
	"errors"
	"sync"

	"github.com/tomtom215/transitsync/internal/models"
)

// ErrNoRows is returned by Refresh when the fetched dataset contains no
// stops. An empty dataset is never persisted.
var ErrNoRows = errors.New("static dataset contains no stops")

// Store persists the static dataset and its version record. Writes are
// last-write-wins per key; no transaction spans two calls.
type Store interface {
	// Count returns the number of stop rows.
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
	BulkAdd(ctx context.Context, rows []models.StaticDatasetRow) error
	// GetVersionRecord returns nil, nil when no record exists.
	GetVersionRecord(ctx context.Context) (*models.CacheVersionRecord, error)
	PutVersionRecord(ctx context.Context, rec *models.CacheVersionRecord) error
	DeleteVersionRecord(ctx context.Context) error
}

// MemoryStore is a Store for tests and for running without persistence.
type MemoryStore struct {
	mu      sync.RWMutex
	rows    map[string]models.StaticDatasetRow
	version *models.CacheVersionRecord
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string]models.StaticDatasetRow)}
}

func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for i := range s.rows {
		if s.rows[i].Kind == models.RowKindStop {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.rows)
	return nil
}

func (s *MemoryStore) BulkAdd(_ context.Context, rows []models.StaticDatasetRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range rows {
		s.rows[rows[i].Key()] = rows[i]
	}
	return nil
}

// Rows returns every stored row. Order is unspecified.
func (s *MemoryStore) Rows() []models.StaticDatasetRow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.StaticDatasetRow, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, r)
	}
	return out
}

func (s *MemoryStore) GetVersionRecord(_ context.Context) (*models.CacheVersionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.version == nil {
		return nil, nil
	}
	rec := *s.version
	return &rec, nil
}

func (s *MemoryStore) PutVersionRecord(_ context.Context, rec *models.CacheVersionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.version = &cp
	return nil
}

func (s *MemoryStore) DeleteVersionRecord(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version = nil
	return nil
}
