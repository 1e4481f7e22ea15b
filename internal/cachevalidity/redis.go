// Transitsync - Real-time Transit Fleet Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitsync

package cachevalidity

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/tomtom215/transitsync/internal/models"
)

// redisBatchSize bounds the number of HSET fields per pipelined command.
const redisBatchSize = 500

// RedisStore implements Store on Redis so several instances can share one
// cached dataset. Rows live in one hash per kind; the version record is a
// plain string key.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore wraps client. Every key is prefixed with prefix.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// ConnectRedis creates a client and verifies it with PING.
func ConnectRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return client, nil
}

func (s *RedisStore) versionKey() string {
	return s.prefix + "static:version"
}

func (s *RedisStore) rowsKey(kind models.RowKind) string {
	return s.prefix + "static:rows:" + string(kind)
}

// Count is HLEN of the stops hash.
func (s *RedisStore) Count(ctx context.Context) (int, error) {
	n, err := s.client.HLen(ctx, s.rowsKey(models.RowKindStop)).Result()
	if err != nil {
		return 0, fmt.Errorf("count static rows: %w", err)
	}
	return int(n), nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	err := s.client.Del(ctx, s.rowsKey(models.RowKindStop), s.rowsKey(models.RowKindRoute)).Err()
	if err != nil {
		return fmt.Errorf("clear static rows: %w", err)
	}
	return nil
}

func (s *RedisStore) BulkAdd(ctx context.Context, rows []models.StaticDatasetRow) error {
	pipe := s.client.Pipeline()
	fields := make(map[models.RowKind][]interface{})
	flush := func(kind models.RowKind) {
		if len(fields[kind]) > 0 {
			pipe.HSet(ctx, s.rowsKey(kind), fields[kind]...)
			fields[kind] = nil
		}
	}

	for i := range rows {
		data, err := json.Marshal(&rows[i])
		if err != nil {
			return fmt.Errorf("marshal row %s: %w", rows[i].Key(), err)
		}
		kind := rows[i].Kind
		fields[kind] = append(fields[kind], rows[i].ID, string(data))
		if len(fields[kind]) >= 2*redisBatchSize {
			flush(kind)
		}
	}
	for kind := range fields {
		flush(kind)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("write static rows: %w", err)
	}
	return nil
}

// GetRow reads one row. It returns nil, nil when absent.
func (s *RedisStore) GetRow(ctx context.Context, kind models.RowKind, id string) (*models.StaticDatasetRow, error) {
	data, err := s.client.HGet(ctx, s.rowsKey(kind), id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get row %s:%s: %w", kind, id, err)
	}
	var row models.StaticDatasetRow
	if err := json.Unmarshal(data, &row); err != nil {
		return nil, fmt.Errorf("decode row %s:%s: %w", kind, id, err)
	}
	return &row, nil
}

func (s *RedisStore) GetVersionRecord(ctx context.Context) (*models.CacheVersionRecord, error) {
	data, err := s.client.Get(ctx, s.versionKey()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get version record: %w", err)
	}
	var rec models.CacheVersionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode version record: %w", err)
	}
	return &rec, nil
}

func (s *RedisStore) PutVersionRecord(ctx context.Context, rec *models.CacheVersionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal version record: %w", err)
	}
	if err := s.client.Set(ctx, s.versionKey(), data, 0).Err(); err != nil {
		return fmt.Errorf("put version record: %w", err)
	}
	return nil
}

func (s *RedisStore) DeleteVersionRecord(ctx context.Context) error {
	if err := s.client.Del(ctx, s.versionKey()).Err(); err != nil {
		return fmt.Errorf("delete version record: %w", err)
	}
	return nil
}
