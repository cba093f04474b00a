// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package graph

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/lumen/gpu"
)

// AttachmentType is the kind of image a pass writes.
type AttachmentType uint8

// Attachment types.
const (
	RenderTarget AttachmentType = iota
	DepthStencil
	RWTexture
)

// String returns the type name.
func (t AttachmentType) String() string {
	switch t {
	case RenderTarget:
		return "render-target"
	case DepthStencil:
		return "depth-stencil"
	case RWTexture:
		return "rw-texture"
	default:
		return fmt.Sprintf("AttachmentType(%d)", uint8(t))
	}
}

// state returns the state a writer of t needs the image in.
func (t AttachmentType) state() gpu.ResourceState {
	switch t {
	case DepthStencil:
		return gpu.StateDepthWrite
	case RWTexture:
		return gpu.StateUnorderedAccess
	default:
		return gpu.StateRenderTarget
	}
}

func (t AttachmentType) bind() gpu.BindFlags {
	switch t {
	case DepthStencil:
		return gpu.BindDepthStencil
	case RWTexture:
		return gpu.BindUnorderedAccess
	default:
		return gpu.BindRenderTarget
	}
}

// SizeMode selects how an attachment is sized.
type SizeMode uint8

// Size modes.
const (
	// SizeAbsolute uses Width and Height as given.
	SizeAbsolute SizeMode = iota
	// SizeSwapchainRelative follows the swapchain size. Width and Height
	// are ignored.
	SizeSwapchainRelative
)

// AttachmentInfo describes the image behind an attachment.
type AttachmentInfo struct {
	Width    uint32
	Height   uint32
	Type     AttachmentType
	Format   gputypes.TextureFormat
	SizeMode SizeMode
}

// Attachment is a named transient image owned by a Graph.
type Attachment struct {
	name     string
	info     AttachmentInfo
	declared bool

	texture gpu.Texture
	width   uint32
	height  uint32
	state   gpu.ResourceState

	writers []int
	readers []int
}

// Name returns the attachment name.
func (a *Attachment) Name() string { return a.name }

// Info returns the description given by the writing pass.
func (a *Attachment) Info() AttachmentInfo { return a.info }

// Texture returns the backing image. It is the zero Texture until the
// graph is built.
func (a *Attachment) Texture() gpu.Texture { return a.texture }

// Size returns the allocated image size.
func (a *Attachment) Size() (width, height uint32) { return a.width, a.height }

// State returns the current logical state of the image. It carries over
// from one frame to the next.
func (a *Attachment) State() gpu.ResourceState { return a.state }

// Writers returns the indices of the passes that write the attachment.
func (a *Attachment) Writers() []int { return append([]int(nil), a.writers...) }

// Readers returns the indices of the passes that read the attachment.
func (a *Attachment) Readers() []int { return append([]int(nil), a.readers...) }

func addIndex(list []int, i int) []int {
	for _, v := range list {
		if v == i {
			return list
		}
	}
	return append(list, i)
}

func addAttachment(list []*Attachment, a *Attachment) []*Attachment {
	for _, v := range list {
		if v == a {
			return list
		}
	}
	return append(list, a)
}
