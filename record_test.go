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
	"strings"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/require"
)

func TestCacheKey(t *testing.T) {
	require.Equal(t, "amphp.dns.example.test#1", cacheKey("example.test", dns.TypeA))
	require.Equal(t, "amphp.dns.example.test#28", cacheKey("example.test", dns.TypeAAAA))
	require.Equal(t, "amphp.dns.example.test#65535", cacheKey("example.test", 65535))
}

func TestNormalizeName(t *testing.T) {
	t.Run("Lowercases", func(t *testing.T) {
		name, err := normalizeName("Example.COM")
		require.NoError(t, err)
		require.Equal(t, "example.com", name)
	})

	t.Run("Strips Trailing Dot", func(t *testing.T) {
		name, err := normalizeName("example.com.")
		require.NoError(t, err)
		require.Equal(t, "example.com", name)
	})

	t.Run("Rejects Empty", func(t *testing.T) {
		_, err := normalizeName("")
		require.ErrorIs(t, err, ErrInvalidName)
	})

	t.Run("Rejects Long Name", func(t *testing.T) {
		_, err := normalizeName(strings.Repeat("a.", 127) + "toolong")
		require.ErrorIs(t, err, ErrInvalidName)
	})

	t.Run("Rejects Long Label", func(t *testing.T) {
		_, err := normalizeName(strings.Repeat("a", 64) + ".example.com")
		require.ErrorIs(t, err, ErrInvalidName)
	})
}

func TestReverseName(t *testing.T) {
	t.Run("IPv4", func(t *testing.T) {
		name, ok := reverseName("192.0.2.1")
		require.True(t, ok)
		require.Equal(t, "1.2.0.192.in-addr.arpa", name)
	})

	t.Run("IPv6", func(t *testing.T) {
		name, ok := reverseName("2001:db8::1")
		require.True(t, ok)
		require.True(t, strings.HasSuffix(name, ".ip6.arpa"))
	})

	t.Run("Not An IP", func(t *testing.T) {
		_, ok := reverseName("example.com")
		require.False(t, ok)
	})
}

func TestRdataString(t *testing.T) {
	rr, err := dns.NewRR("example.test. 60 IN A 1.2.3.4")
	require.NoError(t, err)
	require.Equal(t, "1.2.3.4", rdataString(rr))

	rr, err = dns.NewRR("example.test. 60 IN AAAA 2001:db8::1")
	require.NoError(t, err)
	require.Equal(t, "2001:db8::1", rdataString(rr))

	rr, err = dns.NewRR("example.test. 60 IN CNAME www.example.test.")
	require.NoError(t, err)
	require.Equal(t, "www.example.test.", rdataString(rr))

	rr, err = dns.NewRR("1.2.0.192.in-addr.arpa. 60 IN PTR example.test.")
	require.NoError(t, err)
	require.Equal(t, "example.test.", rdataString(rr))
}
