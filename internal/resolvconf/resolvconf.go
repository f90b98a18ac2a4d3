// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 The Noisy Sockets Authors.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package resolvconf reads the system resolver configuration: resolv.conf
// on Unix-like systems, the registry on Windows.
package resolvconf

import (
	"strings"
	"time"
)

// Config is the system resolver configuration.
type Config struct {
	Servers  []string      // server addresses (in host:port form) to use
	Search   []string      // rooted suffixes to append to relative names
	NDots    int           // number of dots in name to trigger absolute lookup
	Timeout  time.Duration // wait before giving up on a query
	Attempts int           // tries across the server rotation before giving up
	Rotate   bool          // round robin among servers
	UseTCP   bool          // force usage of TCP for DNS resolutions
}

var defaultNS = []string{"127.0.0.1:53", "[::1]:53"}

func defaultConfig() *Config {
	return &Config{
		NDots:    1,
		Timeout:  5 * time.Second,
		Attempts: 2,
	}
}

func ensureRooted(s string) string {
	if strings.HasSuffix(s, ".") {
		return s
	}
	return s + "."
}
