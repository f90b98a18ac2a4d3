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
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Cache stores encoded answer lists for up to a TTL. Implementations must
// never return an expired entry; the resolver treats "expired" and "not
// present" identically. Set failures are non-fatal to the resolver.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// The cached value for a (name, type) pair is the JSON-encoded ordered list
// of answer payloads. A negative entry is an empty list.
func encodeAnswers(answers []string) ([]byte, error) {
	if answers == nil {
		answers = []string{}
	}
	return json.Marshal(answers)
}

func decodeAnswers(value []byte) ([]string, error) {
	var answers []string
	if err := json.Unmarshal(value, &answers); err != nil {
		return nil, err
	}
	return answers, nil
}

// MemoryCacheOptions is the configuration for an in-memory cache.
type MemoryCacheOptions struct {
	// GCPeriod is how often expired entries are removed. Defaults to one
	// minute.
	GCPeriod time.Duration
}

// MemoryCache is an in-process TTL cache. Expired entries are dropped on
// read and swept periodically by a garbage collector that starts with the
// first write.
type MemoryCache struct {
	opt MemoryCacheOptions

	mu      sync.Mutex
	entries map[string]memoryCacheEntry

	gcOnce    sync.Once
	closeOnce sync.Once
	done      chan struct{}
}

type memoryCacheEntry struct {
	value  []byte
	expiry time.Time
}

var _ Cache = (*MemoryCache)(nil)

// NewMemoryCache returns a new in-memory cache.
func NewMemoryCache(opt MemoryCacheOptions) *MemoryCache {
	if opt.GCPeriod == 0 {
		opt.GCPeriod = time.Minute
	}
	return &MemoryCache{
		opt:     opt,
		entries: make(map[string]memoryCacheEntry),
		done:    make(chan struct{}),
	}
}

func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}

	if time.Now().After(entry.expiry) {
		delete(c.entries, key)
		return nil, false, nil
	}

	return entry.value, true, nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	// An unused cache costs nothing; the collector starts on first write.
	c.gcOnce.Do(func() {
		go c.startGC(c.opt.GCPeriod)
	})

	c.mu.Lock()
	c.entries[key] = memoryCacheEntry{
		value:  value,
		expiry: time.Now().Add(ttl),
	}
	c.mu.Unlock()

	return nil
}

// Close stops the garbage collector.
func (c *MemoryCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	return nil
}

func (c *MemoryCache) startGC(period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			now := time.Now()
			var total, removed int

			c.mu.Lock()
			for key, entry := range c.entries {
				if now.After(entry.expiry) {
					delete(c.entries, key)
					removed++
				}
			}
			total = len(c.entries)
			c.mu.Unlock()

			Log.WithFields(logrus.Fields{
				"total":   total,
				"removed": removed,
			}).Debug("cache garbage collection")
		}
	}
}
