// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/lumen/internal/bindless"
	"github.com/gogpu/lumen/internal/deferred"
)

// descriptors records the heap indices owned by one resource. Entries
// store index+1 so the zero value owns nothing.
type descriptors [heapCount]uint32

func (ds *descriptors) get(h Heap) (uint32, bool) {
	v := ds[h]
	if v == 0 {
		return 0, false
	}
	return v - 1, true
}

func (ds *descriptors) set(h Heap, idx uint32) { ds[h] = idx + 1 }

// maxUniformBinding caps the bound range of uniform heap entries.
const maxUniformBinding = 64 * 1024

// nullBufferSize is the size of the buffer bound to empty buffer slots.
const nullBufferSize = 256

type heapSlot struct {
	buffer  hal.Buffer
	size    uint64
	view    hal.TextureView
	sampler hal.Sampler
}

// heapSet is the GPU side of the bindless model: one bind group at group
// 0 whose bindings are laid out heap after heap. Each heap index maps to
// binding base[heap]+index. Empty slots hold null resources so the group
// is always complete.
type heapSet struct {
	d      *Device
	alloc  [heapCount]*bindless.Allocator
	slots  [heapCount][]heapSlot
	base   [heapCount]uint32
	layout hal.BindGroupLayout
	group  hal.BindGroup
	dirty  bool

	// generation increments every time the group is rebuilt.
	generation uint64

	// prelude is the WGSL view of the layout, see buildPrelude.
	prelude string

	nullBuffer      hal.Buffer
	nullTexture     hal.Texture
	nullView        hal.TextureView
	nullStorage     hal.Texture
	nullStorageView hal.TextureView
	nullSampler     hal.Sampler
}

func newHeapSet(d *Device) (*heapSet, error) {
	hs := &heapSet{d: d, dirty: true}
	binding := uint32(0)
	for h := Heap(0); h < heapCount; h++ {
		n := d.opts.heaps.of(h)
		hs.alloc[h] = bindless.NewAllocator(h.String(), n)
		hs.slots[h] = make([]heapSlot, n)
		hs.base[h] = binding
		binding += uint32(n) //nolint:gosec // heap sizes are small
	}
	hs.prelude = hs.buildPrelude()

	layout, err := d.dev.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   "lumen_bindless_layout",
		Entries: hs.layoutEntries(),
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create bindless layout: %w", err)
	}
	hs.layout = layout

	if err := hs.createNullResources(); err != nil {
		hs.destroy()
		return nil, err
	}
	return hs, nil
}

func (hs *heapSet) layoutEntries() []gputypes.BindGroupLayoutEntry {
	all := gputypes.ShaderStageVertex | gputypes.ShaderStageFragment | gputypes.ShaderStageCompute
	var entries []gputypes.BindGroupLayoutEntry
	for h := Heap(0); h < heapCount; h++ {
		for i := range hs.slots[h] {
			e := gputypes.BindGroupLayoutEntry{
				Binding:    hs.base[h] + uint32(i), //nolint:gosec // bounded by heap size
				Visibility: all,
			}
			switch h {
			case HeapUniform:
				e.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}
			case HeapSampled:
				e.Texture = &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				}
			case HeapSampler:
				e.Sampler = &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering}
			case HeapStorageBuffer:
				e.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}
			case HeapStorageImage:
				e.Visibility = gputypes.ShaderStageCompute
				e.StorageTexture = &gputypes.StorageTextureBindingLayout{
					Access:        gputypes.StorageTextureAccessReadWrite,
					Format:        hs.d.opts.storageImageFormat,
					ViewDimension: gputypes.TextureViewDimension2D,
				}
			case HeapAccelStruct:
				e.Visibility = gputypes.ShaderStageCompute
				e.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}
			}
			entries = append(entries, e)
		}
	}
	return entries
}

func (hs *heapSet) createNullResources() error {
	dev := hs.d.dev
	var err error
	hs.nullBuffer, err = dev.CreateBuffer(&hal.BufferDescriptor{
		Label: "lumen_null_buffer",
		Size:  nullBufferSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("gpu: create null buffer: %w", err)
	}

	hs.nullTexture, hs.nullView, err = hs.nullImage("lumen_null_texture",
		gputypes.TextureFormatRGBA8Unorm, gputypes.TextureUsageTextureBinding)
	if err != nil {
		return err
	}
	hs.nullStorage, hs.nullStorageView, err = hs.nullImage("lumen_null_storage",
		hs.d.opts.storageImageFormat, gputypes.TextureUsageStorageBinding)
	if err != nil {
		return err
	}

	hs.nullSampler, err = dev.CreateSampler(&hal.SamplerDescriptor{
		Label:        "lumen_null_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeLinear,
	})
	if err != nil {
		return fmt.Errorf("gpu: create null sampler: %w", err)
	}
	return nil
}

func (hs *heapSet) nullImage(label string, format gputypes.TextureFormat, usage gputypes.TextureUsage) (hal.Texture, hal.TextureView, error) {
	dev := hs.d.dev
	tex, err := dev.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          hal.Extent3D{Width: 1, Height: 1, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         usage,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("gpu: create %s: %w", label, err)
	}
	view, err := dev.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         label + "_view",
		Format:        format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		dev.DestroyTexture(tex)
		return nil, nil, fmt.Errorf("gpu: create %s view: %w", label, err)
	}
	err = hs.d.submitAndWait(label+"_init", func(enc hal.CommandEncoder) {
		enc.TransitionTextures([]hal.TextureBarrier{textureBarrier(tex, AspectColor, 0, usage)})
	})
	if err != nil {
		dev.DestroyTextureView(view)
		dev.DestroyTexture(tex)
		return nil, nil, err
	}
	return tex, view, nil
}

func (hs *heapSet) allocate(desc *descriptors, h Heap) (uint32, error) {
	idx, ok := hs.alloc[h].Alloc()
	if !ok {
		return 0, fmt.Errorf("%s heap exhausted (%d descriptors): %w", h, hs.alloc[h].Cap(), ErrOutOfMemory)
	}
	desc.set(h, idx)
	hs.dirty = true
	return idx, nil
}

func (hs *heapSet) bindBuffer(desc *descriptors, h Heap, buf hal.Buffer, size uint64) error {
	idx, err := hs.allocate(desc, h)
	if err != nil {
		return err
	}
	if h == HeapUniform && size > maxUniformBinding {
		size = maxUniformBinding
	}
	hs.slots[h][idx] = heapSlot{buffer: buf, size: size}
	return nil
}

func (hs *heapSet) bindView(desc *descriptors, h Heap, view hal.TextureView) error {
	idx, err := hs.allocate(desc, h)
	if err != nil {
		return err
	}
	hs.slots[h][idx] = heapSlot{view: view}
	return nil
}

func (hs *heapSet) bindSampler(desc *descriptors, s hal.Sampler) error {
	idx, err := hs.allocate(desc, HeapSampler)
	if err != nil {
		return err
	}
	hs.slots[HeapSampler][idx] = heapSlot{sampler: s}
	return nil
}

// setAccel writes buf into the singleton acceleration-structure slot.
func (hs *heapSet) setAccel(buf hal.Buffer, size uint64) uint32 {
	a := hs.alloc[HeapAccelStruct]
	if !a.Allocated(0) {
		a.Alloc()
	}
	hs.slots[HeapAccelStruct][0] = heapSlot{buffer: buf, size: size}
	hs.dirty = true
	return 0
}

// clearAccel empties the acceleration-structure slot if it holds buf.
func (hs *heapSet) clearAccel(buf hal.Buffer) {
	slot := &hs.slots[HeapAccelStruct][0]
	if slot.buffer != buf {
		return
	}
	*slot = heapSlot{}
	hs.alloc[HeapAccelStruct].Free(0)
	hs.dirty = true
}

// release empties every slot in desc. The slot contents are cleared at
// once so the next group rebuild stops referencing the resource; index
// reuse waits for the deferred queue when wait is set.
func (hs *heapSet) release(desc *descriptors, wait bool) {
	for h := Heap(0); h < heapCount; h++ {
		idx, ok := desc.get(h)
		if !ok {
			continue
		}
		hs.slots[h][idx] = heapSlot{}
		hs.dirty = true
		a := hs.alloc[h]
		if wait {
			hs.d.retire(deferred.KindDescriptor, func() { a.Free(idx) })
		} else {
			a.Free(idx)
		}
		desc[h] = 0
	}
}

func (d *Device) releaseDescriptors(desc *descriptors, wait bool) {
	if d.heaps != nil {
		d.heaps.release(desc, wait)
	}
}

// current returns the bind group for the heaps, rebuilding it when a slot
// changed since the last call. The replaced group is retired through the
// deferred queue.
func (hs *heapSet) current() hal.BindGroup {
	if !hs.dirty && hs.group != nil {
		return hs.group
	}
	group, err := hs.d.dev.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   "lumen_bindless",
		Layout:  hs.layout,
		Entries: hs.groupEntries(),
	})
	if err != nil {
		panic(fmt.Sprintf("gpu: rebuild bindless group: %v", err))
	}
	if old := hs.group; old != nil {
		hs.d.retire(deferred.KindBindGroup, func() { hs.d.dev.DestroyBindGroup(old) })
	}
	hs.group = group
	hs.dirty = false
	hs.generation++
	slogger().Debug("gpu: bindless group rebuilt", "generation", hs.generation)
	return group
}

func (hs *heapSet) groupEntries() []gputypes.BindGroupEntry {
	var entries []gputypes.BindGroupEntry
	for h := Heap(0); h < heapCount; h++ {
		for i, s := range hs.slots[h] {
			e := gputypes.BindGroupEntry{Binding: hs.base[h] + uint32(i)} //nolint:gosec // bounded by heap size
			switch h {
			case HeapUniform, HeapStorageBuffer, HeapAccelStruct:
				buf, size := s.buffer, s.size
				if buf == nil {
					buf, size = hs.nullBuffer, nullBufferSize
				}
				e.Resource = gputypes.BufferBinding{Buffer: buf.NativeHandle(), Offset: 0, Size: size}
			case HeapSampled:
				view := s.view
				if view == nil {
					view = hs.nullView
				}
				e.Resource = gputypes.TextureViewBinding{TextureView: view.NativeHandle()}
			case HeapStorageImage:
				view := s.view
				if view == nil {
					view = hs.nullStorageView
				}
				e.Resource = gputypes.TextureViewBinding{TextureView: view.NativeHandle()}
			case HeapSampler:
				smp := s.sampler
				if smp == nil {
					smp = hs.nullSampler
				}
				e.Resource = gputypes.SamplerBinding{Sampler: smp.NativeHandle()}
			}
			entries = append(entries, e)
		}
	}
	return entries
}

func (hs *heapSet) destroy() {
	dev := hs.d.dev
	if hs.group != nil {
		dev.DestroyBindGroup(hs.group)
		hs.group = nil
	}
	if hs.layout != nil {
		dev.DestroyBindGroupLayout(hs.layout)
		hs.layout = nil
	}
	if hs.nullSampler != nil {
		dev.DestroySampler(hs.nullSampler)
	}
	if hs.nullStorageView != nil {
		dev.DestroyTextureView(hs.nullStorageView)
	}
	if hs.nullStorage != nil {
		dev.DestroyTexture(hs.nullStorage)
	}
	if hs.nullView != nil {
		dev.DestroyTextureView(hs.nullView)
	}
	if hs.nullTexture != nil {
		dev.DestroyTexture(hs.nullTexture)
	}
	if hs.nullBuffer != nil {
		dev.DestroyBuffer(hs.nullBuffer)
	}
}

// DescriptorIndex returns the bindless index of res in heap. res is a
// Buffer, Texture, Sampler or AccelStruct; the acceleration-structure
// heap holds a single descriptor at index 0.
func (d *Device) DescriptorIndex(res any, heap Heap) uint32 {
	switch r := res.(type) {
	case Buffer:
		return d.BufferIndex(r, heap)
	case Texture:
		return d.TextureIndex(r, heap)
	case Sampler:
		return d.SamplerIndex(r)
	case AccelStruct:
		d.accel(r)
		return 0
	default:
		panic(fmt.Sprintf("gpu: no descriptors for %T", res))
	}
}
