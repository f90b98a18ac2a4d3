// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 The Noisy Sockets Authors.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package testutil provides test doubles for the resolver's collaborators.
package testutil

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/noisysockets/stubdns"
)

var (
	_ stubdns.Cache        = (*MockCache)(nil)
	_ stubdns.ConfigLoader = (*MockConfigLoader)(nil)
)

// MockCache is a mock implementation of Cache.
type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	args := m.Called(ctx, key)

	var value []byte
	if v := args.Get(0); v != nil {
		value = v.([]byte)
	}
	return value, args.Bool(1), args.Error(2)
}

func (m *MockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

// MockConfigLoader is a mock implementation of ConfigLoader.
type MockConfigLoader struct {
	mock.Mock
}

func (m *MockConfigLoader) LoadConfig(ctx context.Context) (*stubdns.Config, error) {
	args := m.Called(ctx)

	var conf *stubdns.Config
	if v := args.Get(0); v != nil {
		conf = v.(*stubdns.Config)
	}
	return conf, args.Error(1)
}
