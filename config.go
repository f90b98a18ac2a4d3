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
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/netip"
	"os"
	"time"

	hostsfile "github.com/kevinburke/hostsfile/lib"
	"github.com/miekg/dns"

	"github.com/noisysockets/stubdns/internal/resolvconf"
	"github.com/noisysockets/stubdns/internal/util"
)

// Config is the resolver configuration produced by a ConfigLoader. It is
// treated as read-only once loaded.
type Config struct {
	// Servers are the nameservers to query, in rotation order.
	Servers []netip.AddrPort
	// Attempts is the total number of tries across the nameserver rotation.
	Attempts int
	// Timeout bounds each individual question.
	Timeout time.Duration
	// Rotate offsets the starting nameserver per query instead of always
	// beginning with the first.
	Rotate bool
	// ForceTCP starts every query over TCP instead of upgrading from UDP
	// only on truncation (resolv.conf "options use-vc").
	ForceTCP bool
	// Search are rooted suffixes to append to relative names. The resolver
	// itself does not consume these; they are surfaced for callers that do.
	Search []string
	// NDots is the number of dots in a name to trigger an absolute lookup.
	NDots int
	// KnownHosts maps record types (TypeA, TypeAAAA) to hosts table entries,
	// keyed by normalized name.
	KnownHosts map[uint16]map[string]string
}

// ConfigLoader yields the resolver configuration. Loading happens at most
// once per resolver; concurrent first callers share the same pending load.
type ConfigLoader interface {
	LoadConfig(ctx context.Context) (*Config, error)
}

// StaticConfig returns a ConfigLoader that always yields conf.
func StaticConfig(conf *Config) ConfigLoader {
	return staticConfigLoader{conf: conf}
}

type staticConfigLoader struct {
	conf *Config
}

func (l staticConfigLoader) LoadConfig(ctx context.Context) (*Config, error) {
	return l.conf, nil
}

// FileConfigLoaderOptions is the configuration for the platform file loader.
type FileConfigLoaderOptions struct {
	// ResolvConfPath overrides the system resolver configuration location.
	ResolvConfPath string
	// HostsFilePath overrides the system hosts file location.
	HostsFilePath string
}

type fileConfigLoader struct {
	resolvConfPath string
	hostsFilePath  string
}

var _ ConfigLoader = (*fileConfigLoader)(nil)

// FileConfigLoader returns a ConfigLoader that reads the system resolver
// configuration and hosts file. Platform selection (resolv.conf vs the
// Windows registry) happens inside.
func FileConfigLoader(opt *FileConfigLoaderOptions) ConfigLoader {
	opt, err := util.ConfigWithDefaults(opt, &FileConfigLoaderOptions{
		ResolvConfPath: resolvconf.Location,
		HostsFilePath:  hostsfile.Location,
	})
	if err != nil {
		// Should never happen.
		panic(err)
	}

	return &fileConfigLoader{
		resolvConfPath: opt.ResolvConfPath,
		hostsFilePath:  opt.HostsFilePath,
	}
}

func (l *fileConfigLoader) LoadConfig(ctx context.Context) (*Config, error) {
	rc, err := resolvconf.Read(l.resolvConfPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read resolver configuration: %w", err)
	}

	conf := &Config{
		Attempts: rc.Attempts,
		Timeout:  rc.Timeout,
		Rotate:   rc.Rotate,
		ForceTCP: rc.UseTCP,
		Search:   rc.Search,
		NDots:    rc.NDots,
	}

	for _, server := range rc.Servers {
		addrPort, err := netip.ParseAddrPort(server)
		if err != nil {
			return nil, fmt.Errorf("failed to parse server address %q: %w", server, err)
		}
		conf.Servers = append(conf.Servers, addrPort)
	}

	conf.KnownHosts, err = loadKnownHosts(l.hostsFilePath)
	if err != nil {
		return nil, err
	}

	return conf, nil
}

func loadKnownHosts(path string) (map[uint16]map[string]string, error) {
	knownHosts := map[uint16]map[string]string{
		dns.TypeA:    {},
		dns.TypeAAAA: {},
	}

	f, err := os.Open(path)
	if err != nil {
		// No hosts file is the same as an empty one.
		if errors.Is(err, fs.ErrNotExist) {
			return knownHosts, nil
		}
		return nil, fmt.Errorf("failed to open hosts file: %w", err)
	}
	defer f.Close()

	h, err := hostsfile.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse hosts file: %w", err)
	}

	for _, record := range h.Records() {
		addr, err := netip.ParseAddr(record.IpAddress.String())
		if err != nil {
			continue
		}

		qtype := dns.TypeAAAA
		if addr.Unmap().Is4() {
			qtype = dns.TypeA
		}

		for name := range record.Hostnames {
			normalized, err := normalizeName(name)
			if err != nil {
				continue
			}
			// First entry for a name wins, matching lookup order in the file.
			if _, ok := knownHosts[qtype][normalized]; !ok {
				knownHosts[qtype][normalized] = addr.String()
			}
		}
	}

	return knownHosts, nil
}
