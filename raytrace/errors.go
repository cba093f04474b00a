// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package raytrace

import "errors"

var (
	// ErrEmptyScene is returned by Init when the scene has no primitives.
	ErrEmptyScene = errors.New("raytrace: scene has no primitives")

	// ErrNotInitialized is returned when acceleration structures are
	// built before Init.
	ErrNotInitialized = errors.New("raytrace: pass not initialized")
)
