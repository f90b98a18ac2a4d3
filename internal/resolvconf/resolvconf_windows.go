//go:build windows

// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 The Noisy Sockets Authors.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package resolvconf

import (
	"net"
	"net/netip"
	"strings"

	"golang.org/x/sys/windows/registry"
)

// Location is unused on Windows; the configuration comes from the registry.
const Location = ""

// Read reads the resolver configuration from the Windows registry. The
// filename argument is ignored.
func Read(filename string) (*Config, error) {
	conf := defaultConfig()

	k, err := registry.OpenKey(registry.LOCAL_MACHINE,
		`SYSTEM\CurrentControlSet\Services\Tcpip\Parameters`, registry.QUERY_VALUE)
	if err != nil {
		conf.Servers = defaultNS
		return conf, nil
	}
	defer k.Close()

	// A statically configured NameServer takes precedence over the
	// DHCP-assigned one, matching the stack's own ordering.
	for _, value := range []string{"NameServer", "DhcpNameServer"} {
		s, _, err := k.GetStringValue(value)
		if err != nil {
			continue
		}
		for _, server := range strings.FieldsFunc(s, func(r rune) bool {
			return r == ' ' || r == ','
		}) {
			if _, err := netip.ParseAddr(server); err == nil {
				conf.Servers = append(conf.Servers, net.JoinHostPort(server, "53"))
			}
		}
		if len(conf.Servers) > 0 {
			break
		}
	}

	if searchList, _, err := k.GetStringValue("SearchList"); err == nil {
		for _, domain := range strings.Split(searchList, ",") {
			if domain = strings.TrimSpace(domain); domain != "" {
				conf.Search = append(conf.Search, ensureRooted(domain))
			}
		}
	}

	if len(conf.Servers) == 0 {
		conf.Servers = defaultNS
	}

	return conf, nil
}
