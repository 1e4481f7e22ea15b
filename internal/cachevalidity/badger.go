// Transitsync - Real-time Transit Fleet Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitsync

package cachevalidity

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/transitsync/internal/models"
)

// Key layout for BadgerDB storage
const (
	badgerVersionKey = "static:version"
	badgerRowsPrefix = "static:rows:"
)

// BadgerStore implements Store on BadgerDB so the dataset survives restarts.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore wraps an open database. The caller owns db.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// OpenBadger opens (or creates) a BadgerDB at path. An empty path opens an
// in-memory database.
func OpenBadger(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil // Suppress BadgerDB logs

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for static cache: %w", err)
	}
	return db, nil
}

func rowKey(kind models.RowKind, id string) []byte {
	return []byte(badgerRowsPrefix + string(kind) + ":" + id)
}

// Count counts stop keys without loading values.
func (s *BadgerStore) Count(ctx context.Context) (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		prefix := []byte(badgerRowsPrefix + string(models.RowKindStop) + ":")
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
			if n%4096 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count static rows: %w", err)
	}
	return n, nil
}

// Clear drops every row. The version record is kept.
func (s *BadgerStore) Clear(_ context.Context) error {
	if err := s.db.DropPrefix([]byte(badgerRowsPrefix)); err != nil {
		return fmt.Errorf("clear static rows: %w", err)
	}
	return nil
}

// BulkAdd writes rows through a WriteBatch, which splits large inputs into
// several transactions.
func (s *BadgerStore) BulkAdd(ctx context.Context, rows []models.StaticDatasetRow) error {
	wb := s.db.NewWriteBatch()
	for i := range rows {
		if err := addRow(ctx, wb, i, &rows[i]); err != nil {
			wb.Cancel()
			return err
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flush static rows: %w", err)
	}
	return nil
}

func addRow(ctx context.Context, wb *badger.WriteBatch, i int, row *models.StaticDatasetRow) error {
	if i%1024 == 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("marshal row %s: %w", row.Key(), err)
	}
	if err := wb.Set(rowKey(row.Kind, row.ID), data); err != nil {
		return fmt.Errorf("set row %s: %w", row.Key(), err)
	}
	return nil
}

// GetRow reads one row. It returns nil, nil when absent.
func (s *BadgerStore) GetRow(_ context.Context, kind models.RowKind, id string) (*models.StaticDatasetRow, error) {
	var row models.StaticDatasetRow
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(rowKey(kind, id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &row)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get row %s:%s: %w", kind, id, err)
	}
	return &row, nil
}

func (s *BadgerStore) GetVersionRecord(_ context.Context) (*models.CacheVersionRecord, error) {
	var rec models.CacheVersionRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerVersionKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get version record: %w", err)
	}
	return &rec, nil
}

func (s *BadgerStore) PutVersionRecord(_ context.Context, rec *models.CacheVersionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal version record: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(badgerVersionKey), data)
	})
}

func (s *BadgerStore) DeleteVersionRecord(_ context.Context) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(badgerVersionKey)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete version record: %w", err)
		}
		return nil
	})
}
