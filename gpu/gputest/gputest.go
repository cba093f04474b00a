// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package gputest opens devices on the noop HAL backend for tests of
// packages built on gpu.
package gputest

import (
	"context"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/lumen/gpu"
)

// NewDevice opens a noop device. It is closed when the test ends.
func NewDevice(tb testing.TB, opts ...gpu.DeviceOption) *gpu.Device {
	tb.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		tb.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		tb.Fatalf("noop backend reported no adapters")
	}
	open, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		tb.Fatalf("Open failed: %v", err)
	}
	d, err := gpu.NewDevice(open.Device, open.Queue, opts...)
	if err != nil {
		open.Device.Destroy()
		instance.Destroy()
		tb.Fatalf("NewDevice failed: %v", err)
	}
	tb.Cleanup(func() {
		if err := d.Close(); err != nil {
			tb.Errorf("Close failed: %v", err)
		}
		open.Device.Destroy()
		instance.Destroy()
	})
	return d
}

// NewSwapchain creates an RGBA8 swapchain of the given size that discards
// presented images.
func NewSwapchain(tb testing.TB, d *gpu.Device, width, height uint32) *gpu.Swapchain {
	tb.Helper()
	sc, err := d.CreateSwapchain(gpu.SwapchainInfo{
		Width:  width,
		Height: height,
		Images: 3,
		VSync:  true,
		Format: gputypes.TextureFormatRGBA8Unorm,
	}, gpu.NullPresenter{}, nil)
	if err != nil {
		tb.Fatalf("CreateSwapchain failed: %v", err)
	}
	return sc
}

// Submit submits the current frame and fails the test on error.
func Submit(tb testing.TB, d *gpu.Device, sc *gpu.Swapchain) {
	tb.Helper()
	if err := d.SubmitCommandLists(context.Background(), sc); err != nil {
		tb.Fatalf("SubmitCommandLists failed: %v", err)
	}
}
