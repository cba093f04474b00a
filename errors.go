// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package lumen

import "errors"

var (
	// ErrClosed is returned when using a closed Renderer.
	ErrClosed = errors.New("lumen: renderer closed")

	// ErrNoProvider is returned when a provider exposes no HAL device.
	ErrNoProvider = errors.New("lumen: provider does not expose a HAL device")

	// ErrInvalidConfig is returned for configuration files that cannot be
	// parsed.
	ErrInvalidConfig = errors.New("lumen: invalid config")
)
