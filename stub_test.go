// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 The Noisy Sockets Authors.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package stubdns_test

import (
	"fmt"
	"net"
	"net/netip"
	"sync/atomic"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/require"
)

// newStubNameserver runs an in-process nameserver on a loopback port for the
// duration of the test. The handler serves both the UDP and TCP listeners.
func newStubNameserver(t *testing.T, handler dns.Handler) netip.AddrPort {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	port := pc.LocalAddr().(*net.UDPAddr).Port

	l, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	require.NoError(t, err)

	started := make(chan struct{}, 2)
	udpServer := &dns.Server{PacketConn: pc, Handler: handler,
		NotifyStartedFunc: func() { started <- struct{}{} }}
	tcpServer := &dns.Server{Listener: l, Handler: handler,
		NotifyStartedFunc: func() { started <- struct{}{} }}

	go func() { _ = udpServer.ActivateAndServe() }()
	go func() { _ = tcpServer.ActivateAndServe() }()

	<-started
	<-started

	t.Cleanup(func() {
		_ = udpServer.Shutdown()
		_ = tcpServer.Shutdown()
	})

	return netip.AddrPortFrom(netip.MustParseAddr("127.0.0.1"), uint16(port))
}

// countingHandler tallies how many questions arrive on each transport before
// delegating to the inner handler. A nil inner handler never replies, which
// the client observes as a timeout.
type countingHandler struct {
	udp   atomic.Int32
	tcp   atomic.Int32
	inner dns.Handler
}

func (h *countingHandler) ServeDNS(w dns.ResponseWriter, req *dns.Msg) {
	if w.RemoteAddr().Network() == "udp" {
		h.udp.Add(1)
	} else {
		h.tcp.Add(1)
	}
	if h.inner != nil {
		h.inner.ServeDNS(w, req)
	}
}

func answerHandler(answers func(q dns.Question) []dns.RR) dns.HandlerFunc {
	return func(w dns.ResponseWriter, req *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(req)
		m.Answer = answers(req.Question[0])
		_ = w.WriteMsg(m)
	}
}

func rcodeHandler(rcode int) dns.HandlerFunc {
	return func(w dns.ResponseWriter, req *dns.Msg) {
		m := new(dns.Msg)
		m.SetRcode(req, rcode)
		_ = w.WriteMsg(m)
	}
}

func aRecord(name, addr string, ttl uint32) dns.RR {
	return &dns.A{
		Hdr: dns.RR_Header{Name: name, Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: ttl},
		A:   net.ParseIP(addr),
	}
}

func aaaaRecord(name, addr string, ttl uint32) dns.RR {
	return &dns.AAAA{
		Hdr: dns.RR_Header{Name: name, Rrtype: dns.TypeAAAA, Class: dns.ClassINET, Ttl: ttl},
		AAAA: net.ParseIP(addr),
	}
}

func ptrRecord(name, target string, ttl uint32) dns.RR {
	return &dns.PTR{
		Hdr: dns.RR_Header{Name: name, Rrtype: dns.TypePTR, Class: dns.ClassINET, Ttl: ttl},
		Ptr: target,
	}
}
