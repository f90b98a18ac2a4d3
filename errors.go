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
	"errors"
	"fmt"

	"github.com/miekg/dns"
)

var (
	// ErrUnsupportedNetwork is returned synchronously when the network
	// passed to Resolve is not one of "ip", "ip4" or "ip6".
	ErrUnsupportedNetwork = errors.New("unsupported network")

	// ErrInvalidName is returned for host names that cannot be encoded as
	// DNS names (more than 253 octets, or a label longer than 63 octets).
	ErrInvalidName = errors.New("invalid host name")
)

// NoRecordError is returned when the queried type has no answers, either
// because the nameserver answered without any records of that type or
// because an empty answer list was cached earlier.
type NoRecordError struct {
	Name      string
	Type      uint16
	FromCache bool
}

func (e *NoRecordError) Error() string {
	msg := fmt.Sprintf("no %s records returned for %s", dns.Type(e.Type), e.Name)
	if e.FromCache {
		msg += " (cached result)"
	}
	return msg
}

// ResolutionError is returned when a query cannot be completed: the server
// answered with a non-zero response code, replied with something other than
// a response, returned a truncated answer over TCP, or every configured
// attempt was spent without a usable reply.
type ResolutionError struct {
	Msg string
	// Rcode is the DNS response code associated with the failure, or -1
	// when the failure was not carried in a response.
	Rcode int
	// Err is the underlying cause, if any.
	Err error
}

func (e *ResolutionError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}
