// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package graph

import "errors"

var (
	// ErrUnknownAttachment is returned when a pass reads an attachment no
	// pass writes, or when a name does not resolve to an attachment.
	ErrUnknownAttachment = errors.New("graph: unknown attachment")

	// ErrEmptyGraph is returned by Build when no pass is registered.
	ErrEmptyGraph = errors.New("graph: no passes")
)
