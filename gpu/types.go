// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// ResourceKind identifies the kind of a GPU-backed object.
type ResourceKind uint8

// Resource kinds.
const (
	KindBuffer ResourceKind = iota
	KindImage
	KindAccelStruct
)

// String returns the kind name.
func (k ResourceKind) String() string {
	switch k {
	case KindBuffer:
		return "buffer"
	case KindImage:
		return "image"
	case KindAccelStruct:
		return "acceleration-structure"
	default:
		return fmt.Sprintf("ResourceKind(%d)", uint8(k))
	}
}

// Usage is the semantic memory usage of a buffer.
type Usage uint8

// Buffer usages.
const (
	// UsageDefault is device-local memory populated by GPU copies.
	UsageDefault Usage = iota
	// UsageUpload is host-visible memory written by the CPU.
	UsageUpload
	// UsageCopy is host-readable memory used for readback.
	UsageCopy
)

// String returns the usage name.
func (u Usage) String() string {
	switch u {
	case UsageDefault:
		return "default"
	case UsageUpload:
		return "upload"
	case UsageCopy:
		return "copy"
	default:
		return fmt.Sprintf("Usage(%d)", uint8(u))
	}
}

// BindFlags describes how a resource is bound to the pipeline.
type BindFlags uint16

// Bind flags.
const (
	BindVertex BindFlags = 1 << iota
	BindIndex
	BindUniform
	BindShaderResource
	BindRenderTarget
	BindDepthStencil
	BindUnorderedAccess
)

// Has reports whether all flags in o are set.
func (f BindFlags) Has(o BindFlags) bool { return f&o == o }

// MiscFlags carries the less common buffer and image properties.
type MiscFlags uint8

// Misc flags.
const (
	MiscStructured MiscFlags = 1 << iota
	MiscRaw
	MiscTextureCube
	MiscIndirectArgs
	MiscRayTracingBuildInput
)

// Has reports whether all flags in o are set.
func (f MiscFlags) Has(o MiscFlags) bool { return f&o == o }

// ResourceState is the logical layout and access state of an image.
type ResourceState uint8

// Resource states.
const (
	StateUndefined ResourceState = iota
	StateRenderTarget
	StateDepthWrite
	StateDepthRead
	StateShaderResource
	StateUnorderedAccess
	StateCopySrc
	StateCopyDst
	StatePresent
)

var stateNames = [...]string{
	"undefined", "render-target", "depth-write", "depth-read",
	"shader-resource", "unordered-access", "copy-src", "copy-dst", "present",
}

// String returns the state name.
func (s ResourceState) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("ResourceState(%d)", uint8(s))
}

// textureUsage maps a logical state to the HAL usage used for transitions.
func (s ResourceState) textureUsage() gputypes.TextureUsage {
	switch s {
	case StateRenderTarget, StateDepthWrite, StateDepthRead:
		return gputypes.TextureUsageRenderAttachment
	case StateShaderResource:
		return gputypes.TextureUsageTextureBinding
	case StateUnorderedAccess:
		return gputypes.TextureUsageStorageBinding
	case StateCopySrc, StatePresent:
		return gputypes.TextureUsageCopySrc
	case StateCopyDst:
		return gputypes.TextureUsageCopyDst
	default:
		return 0
	}
}

// Aspect is the image aspect a barrier applies to.
type Aspect uint8

// Image aspects.
const (
	AspectColor Aspect = iota
	AspectDepth
)

// Heap identifies a bindless descriptor heap.
type Heap uint8

// Descriptor heaps. Every pipeline binds all heaps at group 0.
const (
	HeapUniform Heap = iota
	HeapSampled
	HeapSampler
	HeapStorageBuffer
	HeapStorageImage
	HeapAccelStruct
	heapCount
)

var heapNames = [heapCount]string{
	"uniform", "sampled-image", "sampler", "storage-buffer", "storage-image", "acceleration-structure",
}

// String returns the heap name.
func (h Heap) String() string {
	if h < heapCount {
		return heapNames[h]
	}
	return fmt.Sprintf("Heap(%d)", uint8(h))
}

// QueueType selects the queue a command list records for.
type QueueType uint8

// Queue types. Only the graphics queue exists; it also runs compute work.
const (
	QueueGraphics QueueType = iota
)

// Filter is a sampler filter mode.
type Filter uint8

// Sampler filters.
const (
	FilterLinear Filter = iota
	FilterNearest
	FilterAnisotropic
)

// AddressMode is a sampler addressing mode.
type AddressMode uint8

// Sampler address modes.
const (
	AddressWrap AddressMode = iota
	AddressMirror
	AddressClamp
	AddressBorder
)

// BorderColor is the color returned for AddressBorder lookups.
type BorderColor uint8

// Border colors.
const (
	BorderTransparentBlack BorderColor = iota
	BorderOpaqueBlack
	BorderOpaqueWhite
)

// IsDepthFormat reports whether f has a depth aspect.
func IsDepthFormat(f gputypes.TextureFormat) bool {
	switch f {
	case gputypes.TextureFormatDepth24PlusStencil8, gputypes.TextureFormatDepth32Float:
		return true
	}
	return false
}

// bytesPerPixel returns the texel size of the formats the engine creates.
func bytesPerPixel(f gputypes.TextureFormat) uint32 {
	switch f {
	case gputypes.TextureFormatR8Unorm:
		return 1
	case gputypes.TextureFormatRGBA32Float:
		return 16
	case gputypes.TextureFormatRG32Float:
		return 8
	default:
		return 4
	}
}

// pushConstantSize is the fixed push-constant block size for every
// pipeline.
const pushConstantSize = 128

// PushConstantSize returns the push-constant block size in bytes.
func PushConstantSize() int { return pushConstantSize }

// copyPitchAlignment is the required row pitch alignment for
// buffer-texture copies.
const copyPitchAlignment = 256

func alignUp(v, a uint64) uint64 { return (v + a - 1) &^ (a - 1) }
