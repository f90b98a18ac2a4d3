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
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/miekg/dns"
)

// serverConn is a single open connection to one nameserver. Both transports
// satisfy it: UDP with per-datagram exchanges, TCP with two-octet big-endian
// length-prefixed framing (handled by dns.Conn).
type serverConn interface {
	// ask submits a question and waits for the matching reply.
	ask(ctx context.Context, req *dns.Msg, timeout time.Duration) (*dns.Msg, error)
	// alive reports whether the underlying socket is still usable.
	alive() bool
	close() error
}

// dnsConn is a serverConn over a single miekg dns.Conn. The mutex serializes
// socket I/O and keeps exactly one exchange outstanding, so replies can be
// correlated to their request by transaction ID.
type dnsConn struct {
	network string
	conn    *dns.Conn
	mu      sync.Mutex
	dead    atomic.Bool
}

func connectServer(ctx context.Context, network, addr string) (serverConn, error) {
	var d net.Dialer
	raw, err := d.DialContext(ctx, network, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s://%s: %w", network, addr, err)
	}

	conn := &dns.Conn{Conn: raw}
	if network == "udp" {
		conn.UDPSize = dns.MinMsgSize
	}

	return &dnsConn{network: network, conn: conn}, nil
}

func (c *dnsConn) ask(ctx context.Context, req *dns.Msg, timeout time.Duration) (*dns.Msg, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	deadline := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		c.fail()
		return nil, fmt.Errorf("failed to set deadline: %w", err)
	}

	// Cancellation releases the in-flight read by expiring the deadline.
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	if err := c.conn.WriteMsg(req); err != nil {
		c.fail()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to send question: %w", err)
	}

	for {
		reply, err := c.conn.ReadMsg()
		if err != nil {
			c.fail()
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("failed to read response: %w", err)
		}

		if reply.Id != req.Id {
			// A datagram that does not belong to the outstanding request,
			// eg. a stray reply to an earlier timed-out exchange. Keep
			// waiting for the matching transaction ID.
			if c.network == "udp" {
				continue
			}
			// On TCP the exchange is ordered, so a mismatch means the
			// connection state is unusable.
			c.fail()
			return nil, dns.ErrId
		}

		return reply, nil
	}
}

func (c *dnsConn) alive() bool {
	return !c.dead.Load()
}

func (c *dnsConn) close() error {
	c.dead.Store(true)
	return c.conn.Close()
}

func (c *dnsConn) fail() {
	c.dead.Store(true)
	_ = c.conn.Close()
}
