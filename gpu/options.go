// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"time"

	"github.com/gogpu/gputypes"
)

// Default device settings.
const (
	// DefaultFramesInFlight is the number of frames the CPU may record
	// ahead of the GPU.
	DefaultFramesInFlight = 2

	// DefaultMaxCommandLists bounds the command lists recorded per frame.
	DefaultMaxCommandLists = 8

	// DefaultPushRingSize is the per-frame push-constant ring size in bytes.
	DefaultPushRingSize = 256 * 1024

	// DefaultFenceTimeout bounds every host-side wait for a submission.
	DefaultFenceTimeout = 5 * time.Second
)

// HeapSizes holds the descriptor capacity of every bindless heap. The
// acceleration-structure heap always holds a single descriptor.
type HeapSizes struct {
	Uniform       int
	Sampled       int
	Sampler       int
	StorageBuffer int
	StorageImage  int
}

// DefaultHeapSizes returns heap capacities that fit the per-stage binding
// limits of common adapters.
func DefaultHeapSizes() HeapSizes {
	return HeapSizes{
		Uniform:       8,
		Sampled:       16,
		Sampler:       8,
		StorageBuffer: 8,
		StorageImage:  4,
	}
}

func (s HeapSizes) of(h Heap) int {
	switch h {
	case HeapUniform:
		return s.Uniform
	case HeapSampled:
		return s.Sampled
	case HeapSampler:
		return s.Sampler
	case HeapStorageBuffer:
		return s.StorageBuffer
	case HeapStorageImage:
		return s.StorageImage
	case HeapAccelStruct:
		return 1
	}
	return 0
}

// deviceOptions holds configuration for a Device.
type deviceOptions struct {
	framesInFlight     int
	maxCommandLists    int
	pushRingSize       int
	fenceTimeout       time.Duration
	heaps              HeapSizes
	storageImageFormat gputypes.TextureFormat
	compileSPIRV       bool
	buildWorkers       int
}

func defaultDeviceOptions() deviceOptions {
	return deviceOptions{
		framesInFlight:     DefaultFramesInFlight,
		maxCommandLists:    DefaultMaxCommandLists,
		pushRingSize:       DefaultPushRingSize,
		fenceTimeout:       DefaultFenceTimeout,
		heaps:              DefaultHeapSizes(),
		storageImageFormat: gputypes.TextureFormatRGBA32Float,
	}
}

// DeviceOption configures a Device.
type DeviceOption func(*deviceOptions)

// WithFramesInFlight sets the number of frames in flight. Values below 1
// are ignored.
func WithFramesInFlight(n int) DeviceOption {
	return func(o *deviceOptions) {
		if n >= 1 {
			o.framesInFlight = n
		}
	}
}

// WithMaxCommandLists bounds the command lists recorded per frame.
func WithMaxCommandLists(n int) DeviceOption {
	return func(o *deviceOptions) {
		if n >= 1 {
			o.maxCommandLists = n
		}
	}
}

// WithPushRingSize sets the per-frame push-constant ring size in bytes.
func WithPushRingSize(bytes int) DeviceOption {
	return func(o *deviceOptions) {
		if bytes >= pushSlotStride {
			o.pushRingSize = bytes
		}
	}
}

// WithFenceTimeout bounds host-side waits for a submission.
func WithFenceTimeout(d time.Duration) DeviceOption {
	return func(o *deviceOptions) {
		if d > 0 {
			o.fenceTimeout = d
		}
	}
}

// WithHeapSizes sets the bindless heap capacities. Zero fields keep their
// defaults.
func WithHeapSizes(s HeapSizes) DeviceOption {
	return func(o *deviceOptions) {
		d := &o.heaps
		if s.Uniform > 0 {
			d.Uniform = s.Uniform
		}
		if s.Sampled > 0 {
			d.Sampled = s.Sampled
		}
		if s.Sampler > 0 {
			d.Sampler = s.Sampler
		}
		if s.StorageBuffer > 0 {
			d.StorageBuffer = s.StorageBuffer
		}
		if s.StorageImage > 0 {
			d.StorageImage = s.StorageImage
		}
	}
}

// WithStorageImageFormat sets the format of the storage-image heap. Every
// unordered-access image must use this format.
func WithStorageImageFormat(f gputypes.TextureFormat) DeviceOption {
	return func(o *deviceOptions) {
		o.storageImageFormat = f
	}
}

// WithSPIRV makes the device compile WGSL shader sources to SPIR-V with
// naga before handing them to the backend.
func WithSPIRV(enabled bool) DeviceOption {
	return func(o *deviceOptions) {
		o.compileSPIRV = enabled
	}
}

// WithBuildWorkers sets how many goroutines build bottom-level hierarchies
// in CommandList.BuildAccelStructs. Zero or negative means GOMAXPROCS.
func WithBuildWorkers(n int) DeviceOption {
	return func(o *deviceOptions) {
		o.buildWorkers = n
	}
}
