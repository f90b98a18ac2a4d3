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
	"fmt"
	"strconv"
	"strings"

	"github.com/miekg/dns"
)

// Record is a single decoded resource record.
type Record struct {
	// Data is the presentation form appropriate to Type: a dotted quad for
	// A, colon-separated hex for AAAA, the target label for PTR and CNAME.
	Data string
	// Type is the RFC 1035 record type code.
	Type uint16
	// TTL is the remaining lifetime of the record in seconds. It is nil for
	// synthesized records (IP literals, hosts table entries) and for records
	// reconstituted from the cache.
	TTL *uint32
}

// cacheKeyPrefix is kept bit-exact for interoperability with external cache
// inspectors watching resolver entries.
const cacheKeyPrefix = "amphp.dns."

func cacheKey(name string, qtype uint16) string {
	return cacheKeyPrefix + name + "#" + strconv.FormatUint(uint64(qtype), 10)
}

// normalizeName lowercases a host name, strips a single trailing dot, and
// validates the RFC 1035 length limits (253 octets overall, 63 per label).
// The normalized form is what the hosts table, the cache key and the wire
// question all use, so the same name in different case shares one entry.
func normalizeName(host string) (string, error) {
	name := strings.ToLower(strings.TrimSuffix(host, "."))
	if name == "" || len(name) > 253 {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, host)
	}
	if _, ok := dns.IsDomainName(name); !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, host)
	}
	return name, nil
}

// reverseName rewrites an IP literal into its reverse-lookup form
// (d.c.b.a.in-addr.arpa for IPv4, nibble-reversed ip6.arpa for IPv6).
// It reports false if addr is not an IP literal.
func reverseName(addr string) (string, bool) {
	rev, err := dns.ReverseAddr(addr)
	if err != nil {
		return "", false
	}
	return strings.TrimSuffix(rev, "."), true
}

// rdataString returns the decoded data of an answer record, without the
// header. Types the resolver commonly deals in are decoded explicitly;
// anything else falls back to the RR's presentation-format rdata.
func rdataString(rr dns.RR) string {
	switch rr := rr.(type) {
	case *dns.A:
		return rr.A.String()
	case *dns.AAAA:
		return rr.AAAA.String()
	case *dns.PTR:
		return rr.Ptr
	case *dns.CNAME:
		return rr.Target
	case *dns.NS:
		return rr.Ns
	case *dns.MX:
		return rr.Mx
	case *dns.TXT:
		return strings.Join(rr.Txt, "")
	default:
		return strings.TrimPrefix(rr.String(), rr.Header().String())
	}
}
