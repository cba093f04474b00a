// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package ui

import "errors"

var (
	// ErrAtlasFull is returned when a glyph does not fit in the atlas.
	ErrAtlasFull = errors.New("ui: glyph atlas is full")

	// ErrNoFont is returned when a font cannot be parsed.
	ErrNoFont = errors.New("ui: invalid font")
)
