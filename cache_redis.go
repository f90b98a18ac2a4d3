// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 The Noisy Sockets Authors.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package stubdns

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCacheOptions is the configuration for a Redis-backed cache.
type RedisCacheOptions struct {
	// RedisOptions configures the client connection.
	RedisOptions redis.Options
	// KeyPrefix is prepended to every cache key, in front of the resolver's
	// own key format.
	KeyPrefix string
	// Timeout bounds each cache operation. Defaults to 100ms so a slow or
	// unreachable Redis degrades the resolver to uncached operation instead
	// of stalling it.
	Timeout time.Duration
}

// RedisCache stores answer lists in Redis, with expiry enforced server-side.
// Entries written by one process are visible to every resolver sharing the
// instance.
type RedisCache struct {
	client *redis.Client
	opt    RedisCacheOptions
}

var _ Cache = (*RedisCache)(nil)

// NewRedisCache returns a new Redis-backed cache.
func NewRedisCache(opt RedisCacheOptions) *RedisCache {
	if opt.Timeout == 0 {
		opt.Timeout = 100 * time.Millisecond
	}
	return &RedisCache{
		client: redis.NewClient(&opt.RedisOptions),
		opt:    opt,
	}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opt.Timeout)
	defer cancel()

	value, err := c.client.Get(ctx, c.opt.KeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return value, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, c.opt.Timeout)
	defer cancel()

	return c.client.Set(ctx, c.opt.KeyPrefix+key, value, ttl).Err()
}

// Close releases the client connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
