//go:build !windows

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
	"context"
	"net/netip"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/require"

	"github.com/noisysockets/stubdns"
)

func TestFileConfigLoader(t *testing.T) {
	loader := stubdns.FileConfigLoader(&stubdns.FileConfigLoaderOptions{
		ResolvConfPath: "testdata/resolv.conf",
		HostsFilePath:  "testdata/hosts",
	})

	conf, err := loader.LoadConfig(context.Background())
	require.NoError(t, err)

	require.Equal(t, []netip.AddrPort{
		netip.MustParseAddrPort("10.0.0.1:53"),
		netip.MustParseAddrPort("10.0.0.2:53"),
	}, conf.Servers)

	require.Equal(t, 4, conf.Attempts)
	require.Equal(t, 3*time.Second, conf.Timeout)
	require.Equal(t, 2, conf.NDots)
	require.True(t, conf.Rotate)
	require.True(t, conf.ForceTCP)
	require.Equal(t, []string{"example.com."}, conf.Search)

	require.Equal(t, "127.0.0.1", conf.KnownHosts[dns.TypeA]["localhost"])
	require.Equal(t, "::1", conf.KnownHosts[dns.TypeAAAA]["localhost"])
	require.Equal(t, "::1", conf.KnownHosts[dns.TypeAAAA]["ip6-localhost"])
	require.Equal(t, "192.168.1.11", conf.KnownHosts[dns.TypeA]["api.testserver.local"])
	require.Equal(t, "2001:db8::2", conf.KnownHosts[dns.TypeAAAA]["api.testserver.local"])
}

func TestFileConfigLoaderMissingHosts(t *testing.T) {
	loader := stubdns.FileConfigLoader(&stubdns.FileConfigLoaderOptions{
		ResolvConfPath: "testdata/resolv.conf",
		HostsFilePath:  "testdata/does-not-exist",
	})

	conf, err := loader.LoadConfig(context.Background())
	require.NoError(t, err)

	require.Empty(t, conf.KnownHosts[dns.TypeA])
	require.Empty(t, conf.KnownHosts[dns.TypeAAAA])
}
