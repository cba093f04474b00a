// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import "errors"

// Device errors.
var (
	// ErrNoDevice is returned when no usable adapter or backend exists.
	ErrNoDevice = errors.New("gpu: no device available")

	// ErrOutOfMemory is returned when a buffer, image or acceleration
	// structure allocation fails.
	ErrOutOfMemory = errors.New("gpu: out of memory")

	// ErrShaderLoad is returned when a shader blob is missing or unreadable.
	ErrShaderLoad = errors.New("gpu: shader load failed")

	// ErrSwapchainUnavailable is returned when swapchain images cannot be
	// created.
	ErrSwapchainUnavailable = errors.New("gpu: swapchain unavailable")

	// ErrOutOfDate is returned by Swapchain.Acquire when the presentation
	// surface changed size. The caller recreates the swapchain and retries
	// on the next frame.
	ErrOutOfDate = errors.New("gpu: swapchain out of date")

	// ErrDeviceClosed is returned when operating on a closed device.
	ErrDeviceClosed = errors.New("gpu: device closed")

	// ErrInvalidInfo is returned for creation parameters that can never be
	// satisfied, such as zero-sized buffers.
	ErrInvalidInfo = errors.New("gpu: invalid resource description")
)
