//go:build !windows

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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "resolv.conf")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRead(t *testing.T) {
	conf, err := Read(writeConfig(t, `
# A comment.
; Another comment.
nameserver 10.0.0.1
nameserver 2001:db8::1
nameserver not-an-ip
search corp.example.com example.com
options ndots:3 timeout:2 attempts:5 rotate use-vc
`))
	require.NoError(t, err)

	require.Equal(t, []string{"10.0.0.1:53", "[2001:db8::1]:53"}, conf.Servers)
	require.Equal(t, []string{"corp.example.com.", "example.com."}, conf.Search)
	require.Equal(t, 3, conf.NDots)
	require.Equal(t, 2*time.Second, conf.Timeout)
	require.Equal(t, 5, conf.Attempts)
	require.True(t, conf.Rotate)
	require.True(t, conf.UseTCP)
}

func TestReadDomain(t *testing.T) {
	conf, err := Read(writeConfig(t, "domain example.com\nnameserver 10.0.0.1\n"))
	require.NoError(t, err)

	require.Equal(t, []string{"example.com."}, conf.Search)
}

func TestReadDefaults(t *testing.T) {
	conf, err := Read(writeConfig(t, ""))
	require.NoError(t, err)

	require.Equal(t, defaultNS, conf.Servers)
	require.Equal(t, 1, conf.NDots)
	require.Equal(t, 5*time.Second, conf.Timeout)
	require.Equal(t, 2, conf.Attempts)
}

func TestReadMissingFile(t *testing.T) {
	conf, err := Read(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)

	require.Equal(t, defaultNS, conf.Servers)
}

func TestReadOptionClamping(t *testing.T) {
	conf, err := Read(writeConfig(t, "options ndots:30 timeout:0 attempts:0\n"))
	require.NoError(t, err)

	require.Equal(t, 15, conf.NDots)
	require.Equal(t, time.Second, conf.Timeout)
	require.Equal(t, 1, conf.Attempts)
}
