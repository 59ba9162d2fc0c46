// Copyright (c) 2026 Student's Stage. All rights reserved.
// Author: platform@studentsstage.app

package credstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/studentsstage/stagectl/internal/platform/constants"
)

// Opinionated default timeouts for Redis operations.
const (
	redisDialTimeout  = 3 * time.Second
	redisReadTimeout  = 2 * time.Second
	redisWriteTimeout = 2 * time.Second
	redisPingTimeout  = 2 * time.Second
)

// RedisStore is a [Store] backed by a Redis server, for kiosk or shared-lab
// deployments where several machines must observe the same session.
//
// Keys live under the stage:credentials: prefix; the record is one JSON value
// so that SetAuthData stays a single last-write-wins operation.
type RedisStore struct {
	client *redis.Client
	key    string
	log    *slog.Logger
}

// NewRedisClient parses a Redis URL and returns a ready-to-use client.
//
// # Parameters
//   - ctx: Context for the initial ping.
//   - redisURL: Redis connection URL.
//   - logger: Structured logger for connection events.
func NewRedisClient(ctx context.Context, redisURL string, logger *slog.Logger) (*redis.Client, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("credstore: invalid redis URL: %w", err)
	}

	// Pool configuration tuning. The client issues at most one outstanding
	// request at a time, so the pool stays small.
	options.PoolSize = 4
	options.MinIdleConns = 1

	options.DialTimeout = redisDialTimeout
	options.ReadTimeout = redisReadTimeout
	options.WriteTimeout = redisWriteTimeout

	client := redis.NewClient(options)

	// Validate connectivity immediately at startup.
	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("credstore: redis ping failed: %w", err)
	}

	logger.Info("redis credential store connected", slog.String("addr", options.Addr))
	return client, nil
}

// NewRedisStore wraps a connected client as a credential [Store].
func NewRedisStore(client *redis.Client, logger *slog.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		key:    constants.RedisPrefixCredentials + "record",
		log:    logger,
	}
}

// SetAuthData replaces the credential record.
func (store *RedisStore) SetAuthData(ctx context.Context, token string, user json.RawMessage) error {
	payload, err := json.Marshal(credentialRecord{AccessToken: token, UserData: user})
	if err != nil {
		return fmt.Errorf("credstore: failed to encode credential record: %w", err)
	}

	if err := store.client.Set(ctx, store.key, payload, 0).Err(); err != nil {
		return fmt.Errorf("credstore: redis write failed: %w", err)
	}
	return nil
}

// GetToken returns the stored token, or "" when absent.
func (store *RedisStore) GetToken(ctx context.Context) string {
	return store.read(ctx).AccessToken
}

// GetUser returns the stored raw user blob, or nil when absent or corrupt.
func (store *RedisStore) GetUser(ctx context.Context) json.RawMessage {
	return store.read(ctx).UserData
}

// ClearAuthData removes the credential record. Idempotent.
func (store *RedisStore) ClearAuthData(ctx context.Context) error {
	if err := store.client.Del(ctx, store.key).Err(); err != nil {
		return fmt.Errorf("credstore: redis delete failed: %w", err)
	}
	return nil
}

// IsAuthenticated reports token presence only.
func (store *RedisStore) IsAuthenticated(ctx context.Context) bool {
	return store.GetToken(ctx) != ""
}

// read loads the record, mapping absence and corruption to the zero record.
// Transient Redis failures are logged and also treated as absence, matching
// the store contract of never throwing on reads.
func (store *RedisStore) read(ctx context.Context) credentialRecord {
	payload, err := store.client.Get(ctx, store.key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			store.log.Warn("redis credential read failed", slog.Any("error", err))
		}
		return credentialRecord{}
	}

	var record credentialRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return credentialRecord{}
	}
	return record
}
