// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package main

import (
	"github.com/gogpu/gputypes"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

func init() {
	registerHAL("vulkan", gputypes.BackendVulkan)
	defaultBackend = "vulkan"
}
