// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 The Noisy Sockets Authors.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package util

import (
	"dario.cat/mergo"
)

// ConfigWithDefaults merges default values into a (possibly nil) config
// struct. Fields already set on conf win over the defaults. Nested structs,
// including those held by pointer and interface fields, are merged field by
// field; an interface field set on both sides to different concrete types is
// not supported.
func ConfigWithDefaults[T any](conf, defaults *T) (*T, error) {
	if conf == nil {
		conf = new(T)
	}
	if err := mergo.Merge(conf, defaults); err != nil {
		return nil, err
	}
	return conf, nil
}

// PointerTo returns a pointer to the value v.
func PointerTo[T any](v T) *T {
	return &v
}
