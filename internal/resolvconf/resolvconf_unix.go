//go:build !windows

// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 The Noisy Sockets Authors.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 *
 * Portions of this file are based on code originally from the Go project,
 *
 * Copyright (c) 2024 The Go Authors. All rights reserved.
 *
 * Redistribution and use in source and binary forms, with or without
 * modification, are permitted provided that the following conditions are
 * met:
 *
 *   * Redistributions of source code must retain the above copyright
 *     notice, this list of conditions and the following disclaimer.
 *   * Redistributions in binary form must reproduce the above
 *     copyright notice, this list of conditions and the following disclaimer
 *     in the documentation and/or other materials provided with the
 *     distribution.
 *   * Neither the name of Google Inc. nor the names of its
 *     contributors may be used to endorse or promote products derived from
 *     this software without specific prior written permission.
 *
 * THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS
 * "AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT
 * LIMITED TO, THE IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR
 * A PARTICULAR PURPOSE ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT
 * OWNER OR CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
 * SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT
 * LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR SERVICES; LOSS OF USE,
 * DATA, OR PROFITS; OR BUSINESS INTERRUPTION) HOWEVER CAUSED AND ON ANY
 * THEORY OF LIABILITY, WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT
 * (INCLUDING NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
 * OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH DAMAGE.
 */

package resolvconf

import (
	"bufio"
	"net"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"
)

// Location is the path of the system resolver configuration.
const Location = "/etc/resolv.conf"

// Read parses the resolver configuration from filename.
// See resolv.conf(5) on a Linux machine. A missing or unreadable file yields
// the glibc fallback of the local nameserver.
func Read(filename string) (*Config, error) {
	conf := defaultConfig()

	f, err := os.Open(filename)
	if err != nil {
		conf.Servers = defaultNS
		return conf, nil
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) > 0 && (line[0] == ';' || line[0] == '#') {
			// comment.
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 1 {
			continue
		}
		switch fields[0] {
		case "nameserver": // add one name server
			if len(fields) > 1 && len(conf.Servers) < 3 { // small, but the standard limit
				// Make sure the server name is just an IP address,
				// otherwise we would need DNS to look it up.
				if _, err := netip.ParseAddr(fields[1]); err == nil {
					conf.Servers = append(conf.Servers, net.JoinHostPort(fields[1], "53"))
				}
			}

		case "domain": // set search path to just this domain
			if len(fields) > 1 {
				conf.Search = []string{ensureRooted(fields[1])}
			}

		case "search": // set search path to given servers
			conf.Search = make([]string, 0, len(fields)-1)
			for i := 1; i < len(fields); i++ {
				name := ensureRooted(fields[i])
				if name == "." {
					continue
				}
				conf.Search = append(conf.Search, name)
			}

		case "options": // magic options
			for _, s := range fields[1:] {
				switch {
				case strings.HasPrefix(s, "ndots:"):
					n, _ := strconv.Atoi(s[len("ndots:"):])
					if n < 0 {
						n = 0
					} else if n > 15 {
						n = 15
					}
					conf.NDots = n
				case strings.HasPrefix(s, "timeout:"):
					n, _ := strconv.Atoi(s[len("timeout:"):])
					if n < 1 {
						n = 1
					}
					conf.Timeout = time.Duration(n) * time.Second
				case strings.HasPrefix(s, "attempts:"):
					n, _ := strconv.Atoi(s[len("attempts:"):])
					if n < 1 {
						n = 1
					}
					conf.Attempts = n
				case s == "rotate":
					conf.Rotate = true
				case s == "use-vc" || s == "usevc" || s == "tcp":
					// Linux (use-vc), FreeBSD (usevc) and OpenBSD (tcp)
					// spellings of the same option.
					conf.UseTCP = true
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if len(conf.Servers) == 0 {
		conf.Servers = defaultNS
	}

	return conf, nil
}
