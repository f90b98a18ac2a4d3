// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 The Noisy Sockets Authors.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package stubdns implements an asynchronous DNS stub resolver: host names
// are answered from IP literals, the hosts table and a TTL-bounded cache
// before the configured recursive nameservers are consulted over UDP with
// TCP fallback.
package stubdns

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/miekg/dns"
	"golang.org/x/sync/errgroup"

	"github.com/noisysockets/stubdns/internal/util"
)

// Resolver is an asynchronous DNS stub resolver.
//
// A Resolver is safe for concurrent use. Its configuration is loaded lazily
// on first use and shared between all queries for its lifetime; server
// connections are pooled per nameserver and transport.
type Resolver struct {
	loader ConfigLoader
	cache  Cache

	configOnce sync.Once
	conf       *Config
	configErr  error

	pool     *serverPool
	rotation atomic.Uint32
}

// ResolverConfig is the configuration for a Resolver.
type ResolverConfig struct {
	// ConfigLoader yields the resolver configuration on first use.
	// Defaults to the platform file loader.
	ConfigLoader ConfigLoader
	// Cache stores answer lists between queries. Defaults to an in-memory
	// TTL cache.
	Cache Cache
}

// NewResolver returns a new stub resolver.
func NewResolver(conf *ResolverConfig) *Resolver {
	// Defaults are only offered for unset fields, so a caller's own loader or
	// cache is used as given and never merged with a built-in one.
	defaults := &ResolverConfig{}
	if conf == nil || conf.ConfigLoader == nil {
		defaults.ConfigLoader = FileConfigLoader(nil)
	}
	if conf == nil || conf.Cache == nil {
		defaults.Cache = NewMemoryCache(MemoryCacheOptions{})
	}

	conf, err := util.ConfigWithDefaults(conf, defaults)
	if err != nil {
		// Should never happen.
		panic(err)
	}

	return &Resolver{
		loader: conf.ConfigLoader,
		cache:  conf.Cache,
		pool:   newServerPool(),
	}
}

// Close releases the pooled server connections.
func (r *Resolver) Close() error {
	return r.pool.closeAll()
}

// config returns the lazily loaded configuration. Concurrent first callers
// share a single load; its result (or error) is reused for the lifetime of
// the resolver.
func (r *Resolver) config(ctx context.Context) (*Config, error) {
	r.configOnce.Do(func() {
		r.conf, r.configErr = r.loader.LoadConfig(ctx)
		if r.configErr == nil && len(r.conf.Servers) == 0 {
			r.configErr = errors.New("configuration contains no nameservers")
		}
	})
	return r.conf, r.configErr
}

// LookupHost resolves host and returns its addresses as strings.
func (r *Resolver) LookupHost(ctx context.Context, host string) ([]string, error) {
	records, err := r.Resolve(ctx, "ip", host)
	if err != nil {
		return nil, err
	}

	addrs := make([]string, 0, len(records))
	for _, record := range records {
		addrs = append(addrs, record.Data)
	}
	return addrs, nil
}

// Resolve resolves host into address records. The network selects the
// address family: "ip" queries A and AAAA in parallel, "ip4" restricts to A,
// "ip6" to AAAA; anything else fails with ErrUnsupportedNetwork before any
// I/O happens.
//
// IP literals and hosts table entries are answered without consulting the
// cache or the network, with a nil TTL.
func (r *Resolver) Resolve(ctx context.Context, network, host string) ([]Record, error) {
	var qtypes []uint16
	switch network {
	case "ip":
		qtypes = []uint16{dns.TypeA, dns.TypeAAAA}
	case "ip4":
		qtypes = []uint16{dns.TypeA}
	case "ip6":
		qtypes = []uint16{dns.TypeAAAA}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedNetwork, network)
	}

	conf, err := r.config(ctx)
	if err != nil {
		return nil, err
	}

	// IP literals short-circuit: no cache, no network.
	if addr, err := netip.ParseAddr(host); err == nil {
		qtype := dns.TypeAAAA
		if addr.Unmap().Is4() {
			qtype = dns.TypeA
		}
		if !slices.Contains(qtypes, qtype) {
			return nil, &NoRecordError{Name: host, Type: qtypes[0]}
		}
		return []Record{{Data: host, Type: qtype}}, nil
	}

	name, err := normalizeName(host)
	if err != nil {
		return nil, err
	}

	// The hosts table takes precedence over the cache and the network.
	var fromHosts []Record
	for _, qtype := range qtypes {
		if addr, ok := conf.KnownHosts[qtype][name]; ok {
			fromHosts = append(fromHosts, Record{Data: addr, Type: qtype})
		}
	}
	if len(fromHosts) > 0 {
		return fromHosts, nil
	}

	if len(qtypes) == 1 {
		return r.queryWithConfig(ctx, conf, name, qtypes[0])
	}

	// Query both families concurrently. The lookups are independent: the
	// goroutines never return an error, so neither failure nor completion
	// of one cancels the other.
	results := make([][]Record, len(qtypes))
	errs := make([]error, len(qtypes))

	var g errgroup.Group
	for i, qtype := range qtypes {
		i, qtype := i, qtype
		g.Go(func() error {
			results[i], errs[i] = r.queryWithConfig(ctx, conf, name, qtype)
			return nil
		})
	}
	_ = g.Wait()

	// Answers concatenate A first, then AAAA, regardless of completion
	// order.
	var records []Record
	for _, result := range results {
		records = append(records, result...)
	}
	if len(records) > 0 {
		return records, nil
	}

	return nil, &ResolutionError{
		Msg:   "all query attempts failed",
		Rcode: -1,
		Err:   errors.Join(errs...),
	}
}
