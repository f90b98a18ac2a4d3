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
	"github.com/miekg/dns"
	"github.com/sirupsen/logrus"
)

// Log is a package-global logger used throughout the library. Configuration
// can be changed directly on this instance or the instance replaced.
var Log = logrus.New()

func queryLogger(name string, qtype uint16) *logrus.Entry {
	return Log.WithFields(logrus.Fields{
		"qname": name,
		"qtype": dns.Type(qtype).String(),
	})
}
