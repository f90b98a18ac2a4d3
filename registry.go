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
	"fmt"
	"net/netip"
	"strings"
	"sync"
)

// serverPool owns at most one serverConn per nameserver URI
// ("udp://host:port" or "tcp://host:port"). Lookups and evictions are
// linearizable under a single mutex.
type serverPool struct {
	mu      sync.Mutex
	servers map[string]serverConn
}

func newServerPool() *serverPool {
	return &serverPool{
		servers: make(map[string]serverConn),
	}
}

func serverURI(network string, server netip.AddrPort) string {
	return network + "://" + server.String()
}

// get returns the pooled connection for uri, dialing a new one if needed.
// A failed dial leaves no entry behind.
func (p *serverPool) get(ctx context.Context, uri string) (serverConn, error) {
	p.mu.Lock()
	if s, ok := p.servers[uri]; ok {
		p.mu.Unlock()
		return s, nil
	}
	p.mu.Unlock()

	network, addr, ok := strings.Cut(uri, "://")
	if !ok {
		return nil, fmt.Errorf("malformed server uri %q", uri)
	}

	s, err := connectServer(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if existing, ok := p.servers[uri]; ok {
		// Lost a dial race; keep the connection that got there first.
		_ = s.close()
		return existing, nil
	}
	p.servers[uri] = s

	return s, nil
}

// evict removes the entry for uri if it still maps to s, then closes s.
func (p *serverPool) evict(uri string, s serverConn) {
	p.mu.Lock()
	if existing, ok := p.servers[uri]; ok && existing == s {
		delete(p.servers, uri)
	}
	p.mu.Unlock()

	_ = s.close()

	Log.WithField("server", uri).Debug("evicted server connection")
}

func (p *serverPool) closeAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for uri, s := range p.servers {
		delete(p.servers, uri)
		if err := s.close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
