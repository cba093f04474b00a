// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/lumen/internal/deferred"
	"github.com/gogpu/lumen/internal/handle"
)

// Texture is a handle to a GPU image owned by a Device.
type Texture struct{ h handle.Handle }

// IsValid reports whether t was returned by a successful CreateTexture.
func (t Texture) IsValid() bool { return !t.h.IsZero() }

// TextureInfo describes an image.
type TextureInfo struct {
	Label       string
	Width       uint32
	Height      uint32
	MipLevels   uint32
	ArrayLayers uint32
	Samples     uint32
	Format      gputypes.TextureFormat
	Bind        BindFlags
	Misc        MiscFlags
	// InitialState overrides the post-initialization state. The zero
	// value selects CanonicalState.
	InitialState ResourceState
}

type textureState struct {
	info  TextureInfo
	raw   hal.Texture
	view  hal.TextureView
	desc  descriptors
	state ResourceState // state after creation
}

// CanonicalState returns the state an image is left in after creation:
// shader-resource if sampled, unordered-access if storage, the attachment
// state if it is a target, undefined otherwise.
func CanonicalState(info TextureInfo) ResourceState {
	switch {
	case info.Bind.Has(BindShaderResource):
		return StateShaderResource
	case info.Bind.Has(BindUnorderedAccess):
		return StateUnorderedAccess
	case info.Bind.Has(BindDepthStencil):
		return StateDepthWrite
	case info.Bind.Has(BindRenderTarget):
		return StateRenderTarget
	default:
		return StateUndefined
	}
}

func textureUsage(info *TextureInfo) gputypes.TextureUsage {
	u := gputypes.TextureUsageCopySrc | gputypes.TextureUsageCopyDst
	if info.Bind.Has(BindShaderResource) {
		u |= gputypes.TextureUsageTextureBinding
	}
	if info.Bind.Has(BindUnorderedAccess) {
		u |= gputypes.TextureUsageStorageBinding
	}
	if info.Bind&(BindRenderTarget|BindDepthStencil) != 0 {
		u |= gputypes.TextureUsageRenderAttachment
	}
	return u
}

func (info *TextureInfo) normalize() {
	if info.MipLevels == 0 {
		info.MipLevels = 1
	}
	if info.ArrayLayers == 0 {
		info.ArrayLayers = 1
	}
	if info.Samples == 0 {
		info.Samples = 1
	}
}

// CreateTexture allocates a device-local image and moves it to its
// post-initialization state with a one-shot submission. When data is
// given it is uploaded into mip 0 of layer 0 before the final transition.
func (d *Device) CreateTexture(info TextureInfo, data []byte) (Texture, error) {
	if err := d.checkOpen(); err != nil {
		return Texture{}, err
	}
	info.normalize()
	if info.Width == 0 || info.Height == 0 {
		return Texture{}, fmt.Errorf("%w: texture %q is %dx%d", ErrInvalidInfo, info.Label, info.Width, info.Height)
	}
	if info.Bind.Has(BindUnorderedAccess) && info.Format != d.opts.storageImageFormat {
		return Texture{}, fmt.Errorf("%w: storage texture %q must use format %v",
			ErrInvalidInfo, info.Label, d.opts.storageImageFormat)
	}
	if want := uint64(info.Width) * uint64(info.Height) * uint64(bytesPerPixel(info.Format)); len(data) > 0 && uint64(len(data)) < want {
		return Texture{}, fmt.Errorf("%w: texture %q needs %d bytes, got %d", ErrInvalidInfo, info.Label, want, len(data))
	}

	raw, err := d.dev.CreateTexture(&hal.TextureDescriptor{
		Label:         info.Label,
		Size:          hal.Extent3D{Width: info.Width, Height: info.Height, DepthOrArrayLayers: info.ArrayLayers},
		MipLevelCount: info.MipLevels,
		SampleCount:   info.Samples,
		Dimension:     gputypes.TextureDimension2D,
		Format:        info.Format,
		Usage:         textureUsage(&info),
	})
	if err != nil {
		return Texture{}, fmt.Errorf("create texture %q: %w: %v", info.Label, ErrOutOfMemory, err)
	}
	view, err := d.dev.CreateTextureView(raw, &hal.TextureViewDescriptor{
		Label:         info.Label + "_view",
		Format:        info.Format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: info.MipLevels,
	})
	if err != nil {
		d.dev.DestroyTexture(raw)
		return Texture{}, fmt.Errorf("create texture view %q: %w", info.Label, err)
	}

	final := info.InitialState
	if final == StateUndefined {
		final = CanonicalState(info)
	}
	if err := d.initTexture(raw, &info, data, final); err != nil {
		d.dev.DestroyTextureView(view)
		d.dev.DestroyTexture(raw)
		return Texture{}, err
	}

	st := textureState{info: info, raw: raw, view: view, state: final}
	if err := d.registerTexture(&st); err != nil {
		d.releaseDescriptors(&st.desc, false)
		d.dev.DestroyTextureView(view)
		d.dev.DestroyTexture(raw)
		return Texture{}, fmt.Errorf("create texture %q: %w", info.Label, err)
	}
	slogger().Debug("gpu: texture created",
		"label", info.Label, "width", info.Width, "height", info.Height, "state", final.String())
	return Texture{h: d.textures.Insert(st)}, nil
}

// initTexture records the undefined to final transition, uploading data
// on the way when present.
func (d *Device) initTexture(raw hal.Texture, info *TextureInfo, data []byte, final ResourceState) error {
	aspect := aspectOf(info.Format)
	if len(data) == 0 {
		if final == StateUndefined {
			return nil
		}
		return d.submitAndWait("texture_init", func(enc hal.CommandEncoder) {
			enc.TransitionTextures([]hal.TextureBarrier{textureBarrier(raw, aspect, 0, final.textureUsage())})
		})
	}

	if err := d.submitAndWait("texture_upload_begin", func(enc hal.CommandEncoder) {
		enc.TransitionTextures([]hal.TextureBarrier{textureBarrier(raw, aspect, 0, gputypes.TextureUsageCopyDst)})
	}); err != nil {
		return err
	}

	// The queue stages the bytes through its own upload buffer.
	bpp := bytesPerPixel(info.Format)
	if err := d.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: raw, MipLevel: 0, Aspect: aspect.hal()},
		data,
		&hal.ImageDataLayout{Offset: 0, BytesPerRow: info.Width * bpp, RowsPerImage: info.Height},
		&hal.Extent3D{Width: info.Width, Height: info.Height, DepthOrArrayLayers: 1},
	); err != nil {
		return fmt.Errorf("upload texture %q: %w", info.Label, err)
	}

	return d.submitAndWait("texture_upload_end", func(enc hal.CommandEncoder) {
		enc.TransitionTextures([]hal.TextureBarrier{
			textureBarrier(raw, aspect, gputypes.TextureUsageCopyDst, final.textureUsage()),
		})
	})
}

func (d *Device) registerTexture(st *textureState) error {
	if st.info.Bind.Has(BindShaderResource) {
		if err := d.heaps.bindView(&st.desc, HeapSampled, st.view); err != nil {
			return err
		}
	}
	if st.info.Bind.Has(BindUnorderedAccess) {
		if err := d.heaps.bindView(&st.desc, HeapStorageImage, st.view); err != nil {
			return err
		}
	}
	return nil
}

func (d *Device) texture(t Texture) *textureState {
	st, ok := d.textures.Get(t.h)
	if !ok {
		panic(fmt.Sprintf("gpu: stale or invalid texture handle %v", t.h))
	}
	return st
}

// DestroyTexture drops the owner's reference to t. The image, its view and
// its descriptors are released once no in-flight frame can use them.
func (d *Device) DestroyTexture(t Texture) {
	st, ok := d.textures.Remove(t.h)
	if !ok {
		panic(fmt.Sprintf("gpu: destroy of stale texture handle %v", t.h))
	}
	d.releaseDescriptors(&st.desc, true)
	view, raw := st.view, st.raw
	d.retire(deferred.KindView, func() { d.dev.DestroyTextureView(view) })
	d.retire(deferred.KindTexture, func() { d.dev.DestroyTexture(raw) })
}

func (d *Device) freeTexture(st *textureState) {
	if st.view != nil {
		d.dev.DestroyTextureView(st.view)
		st.view = nil
	}
	if st.raw != nil {
		d.dev.DestroyTexture(st.raw)
		st.raw = nil
	}
}

// TextureInfo returns the description t was created with.
func (d *Device) TextureInfo(t Texture) TextureInfo { return d.texture(t).info }

// InitialState returns the state t was left in by CreateTexture.
func (d *Device) InitialState(t Texture) ResourceState { return d.texture(t).state }

// TextureResource returns the resource header of t.
func (d *Device) TextureResource(t Texture) Resource {
	return Resource{Kind: KindImage, Handle: d.texture(t).raw.NativeHandle()}
}

// TextureIndex returns the bindless index of t in heap, which must be
// HeapSampled or HeapStorageImage.
func (d *Device) TextureIndex(t Texture, heap Heap) uint32 {
	st := d.texture(t)
	idx, ok := st.desc.get(heap)
	if !ok {
		panic(fmt.Sprintf("gpu: texture %q has no %s descriptor", st.info.Label, heap))
	}
	return idx
}

// halTexture returns the backend image and its default view.
func (d *Device) halTexture(t Texture) (hal.Texture, hal.TextureView) {
	st := d.texture(t)
	return st.raw, st.view
}
