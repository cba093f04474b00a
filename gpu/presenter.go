// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"context"
	"fmt"
	"image"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// PresentFrame is the image handed to a Presenter. The texture is in
// StatePresent and its commands have been submitted.
type PresentFrame struct {
	Device  *Device
	Texture Texture
	Index   int
	Width   uint32
	Height  uint32
	// Frame is the frame counter value the image belongs to.
	Frame uint64
}

// Presenter shows swapchain images. It is the boundary to the windowing
// system.
type Presenter interface {
	// Size returns the current surface size, or zeros when the presenter
	// follows the swapchain.
	Size() (width, height uint32)
	// Present shows frame.
	Present(ctx context.Context, frame *PresentFrame) error
}

// NullPresenter discards every frame.
type NullPresenter struct{}

// Size returns zeros.
func (NullPresenter) Size() (uint32, uint32) { return 0, 0 }

// Present does nothing.
func (NullPresenter) Present(context.Context, *PresentFrame) error { return nil }

// ReadbackPresenter copies every presented image back to host memory. It
// backs headless rendering and tests.
type ReadbackPresenter struct {
	width, height uint32

	// OnFrame, when set, receives every read-back image.
	OnFrame func(frame *PresentFrame, img *image.RGBA) error

	last  *image.RGBA
	count int
}

// NewReadbackPresenter returns a presenter with a surface of the given
// size.
func NewReadbackPresenter(width, height uint32) *ReadbackPresenter {
	return &ReadbackPresenter{width: width, height: height}
}

// Size returns the surface size.
func (p *ReadbackPresenter) Size() (uint32, uint32) { return p.width, p.height }

// Resize changes the surface size. The next Acquire reports ErrOutOfDate.
func (p *ReadbackPresenter) Resize(width, height uint32) { p.width, p.height = width, height }

// Present reads frame back and passes it to OnFrame.
func (p *ReadbackPresenter) Present(ctx context.Context, frame *PresentFrame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	img, err := frame.Device.ReadTexture(frame.Texture, StatePresent)
	if err != nil {
		return err
	}
	p.last = img
	p.count++
	if p.OnFrame != nil {
		return p.OnFrame(frame, img)
	}
	return nil
}

// Last returns the most recent image, or nil.
func (p *ReadbackPresenter) Last() *image.RGBA { return p.last }

// Count returns the number of presented frames.
func (p *ReadbackPresenter) Count() int { return p.count }

// ReadTexture copies an RGBA8 image currently in state to host memory and
// waits for the copy. The image is returned to state afterwards.
func (d *Device) ReadTexture(t Texture, state ResourceState) (*image.RGBA, error) {
	st := d.texture(t)
	switch st.info.Format {
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatRGBA8UnormSrgb:
	default:
		return nil, fmt.Errorf("%w: readback of %v images", ErrInvalidInfo, st.info.Format)
	}
	w, h := st.info.Width, st.info.Height
	pitch := uint32(alignUp(uint64(w)*4, copyPitchAlignment)) //nolint:gosec // bounded by texture width
	size := uint64(pitch) * uint64(h)

	staging, err := d.dev.CreateBuffer(&hal.BufferDescriptor{
		Label: st.info.Label + "_readback",
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create readback buffer: %w", err)
	}
	defer d.dev.DestroyBuffer(staging)

	err = d.submitAndWait("texture_readback", func(enc hal.CommandEncoder) {
		u := state.textureUsage()
		if u != gputypes.TextureUsageCopySrc {
			enc.TransitionTextures([]hal.TextureBarrier{
				textureBarrier(st.raw, AspectColor, u, gputypes.TextureUsageCopySrc),
			})
		}
		enc.CopyTextureToBuffer(st.raw, staging, []hal.BufferTextureCopy{{
			BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: pitch, RowsPerImage: h},
			TextureBase:  hal.ImageCopyTexture{Texture: st.raw, MipLevel: 0, Aspect: gputypes.TextureAspectAll},
			Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		}})
		if u != gputypes.TextureUsageCopySrc {
			enc.TransitionTextures([]hal.TextureBarrier{
				textureBarrier(st.raw, AspectColor, gputypes.TextureUsageCopySrc, u),
			})
		}
	})
	if err != nil {
		return nil, err
	}

	raw, err := d.readMapped(staging, size)
	if err != nil {
		return nil, fmt.Errorf("gpu: read back %q: %w", st.info.Label, err)
	}
	img := image.NewRGBA(image.Rect(0, 0, int(w), int(h)))
	for y := uint32(0); y < h; y++ {
		copy(img.Pix[y*uint32(img.Stride):], raw[y*pitch:y*pitch+w*4])
	}
	return img, nil
}
