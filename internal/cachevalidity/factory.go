// Transitsync - Real-time Transit Fleet Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitsync

package cachevalidity

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/redis/go-redis/v9"

	"github.com/tomtom215/transitsync/internal/config"
)

// StoreHandle owns the backend a Store was opened on.
type StoreHandle struct {
	Store  Store
	badger *badger.DB
	redis  *redis.Client
}

// OpenStore opens the backend named by cfg.Cache.Backend.
func OpenStore(ctx context.Context, cfg *config.Config) (*StoreHandle, error) {
	switch cfg.Cache.Backend {
	case config.CacheBackendBadger:
		db, err := OpenBadger(cfg.Cache.BadgerPath)
		if err != nil {
			return nil, err
		}
		return &StoreHandle{Store: NewBadgerStore(db), badger: db}, nil
	case config.CacheBackendRedis:
		client, err := ConnectRedis(ctx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
		return &StoreHandle{Store: NewRedisStore(client, cfg.Redis.KeyPrefix), redis: client}, nil
	case config.CacheBackendMemory:
		return &StoreHandle{Store: NewMemoryStore()}, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}

// Close releases the backend.
func (h *StoreHandle) Close() error {
	switch {
	case h.badger != nil:
		return h.badger.Close()
	case h.redis != nil:
		return h.redis.Close()
	default:
		return nil
	}
}
