// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"fmt"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/lumen/internal/deferred"
	"github.com/gogpu/lumen/internal/handle"
)

// Buffer is a handle to a GPU buffer owned by a Device.
type Buffer struct{ h handle.Handle }

// IsValid reports whether b was returned by a successful CreateBuffer.
// It does not report whether b has since been destroyed.
func (b Buffer) IsValid() bool { return !b.h.IsZero() }

// BufferInfo describes a buffer.
type BufferInfo struct {
	Label  string
	Size   uint64
	Stride uint32
	Usage  Usage
	Bind   BindFlags
	Misc   MiscFlags
	// PersistentMap keeps an upload buffer mapped after creation.
	PersistentMap bool
}

// Resource is the common header of a GPU-backed object.
type Resource struct {
	Kind ResourceKind
	// Handle is the backend object handle.
	Handle uintptr
	// Mapped is the host range of a persistently mapped allocation.
	Mapped []byte
}

type bufferState struct {
	info BufferInfo
	raw  hal.Buffer
	size uint64

	// shadow is the host copy of upload and ray-tracing build-input
	// buffers. Persistently mapped buffers expose it through Mapped and
	// flush it to the GPU at the next submit.
	shadow     []byte
	persistent bool
	dirty      bool

	desc    descriptors
	address uint32
}

func bufferUsage(info *BufferInfo) gputypes.BufferUsage {
	if info.Usage == UsageCopy {
		return gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst
	}
	u := gputypes.BufferUsageCopyDst | gputypes.BufferUsageCopySrc
	if info.Bind.Has(BindVertex) {
		u |= gputypes.BufferUsageVertex
	}
	if info.Bind.Has(BindIndex) {
		u |= gputypes.BufferUsageIndex
	}
	if info.Bind.Has(BindUniform) {
		u |= gputypes.BufferUsageUniform
	}
	if info.Bind&(BindShaderResource|BindUnorderedAccess) != 0 ||
		info.Misc.Has(MiscRayTracingBuildInput) {
		u |= gputypes.BufferUsageStorage
	}
	if info.Misc.Has(MiscIndirectArgs) {
		u |= gputypes.BufferUsageIndirect
	}
	return u
}

// padded returns data extended to a multiple of four bytes, as required
// by queue writes.
func padded(data []byte) []byte {
	n := alignUp(uint64(len(data)), 4)
	if uint64(len(data)) == n {
		return data
	}
	out := make([]byte, n)
	copy(out, data)
	return out
}

// CreateBuffer allocates a buffer matching info.Usage.
//
// With data and UsageDefault the bytes go through a staging buffer and a
// one-shot copy that completes before CreateBuffer returns. With
// UsageUpload the bytes are copied into the mapping; the mapping stays
// reachable through Mapped when info.PersistentMap is set.
func (d *Device) CreateBuffer(info BufferInfo, data []byte) (Buffer, error) {
	if err := d.checkOpen(); err != nil {
		return Buffer{}, err
	}
	if info.Size == 0 {
		info.Size = uint64(len(data))
	}
	if info.Size == 0 || uint64(len(data)) > info.Size {
		return Buffer{}, fmt.Errorf("%w: buffer %q size %d with %d bytes of data",
			ErrInvalidInfo, info.Label, info.Size, len(data))
	}
	if info.PersistentMap && info.Usage != UsageUpload {
		return Buffer{}, fmt.Errorf("%w: buffer %q: only upload buffers can be persistently mapped",
			ErrInvalidInfo, info.Label)
	}

	size := alignUp(info.Size, 4)
	raw, err := d.dev.CreateBuffer(&hal.BufferDescriptor{
		Label: info.Label,
		Size:  size,
		Usage: bufferUsage(&info),
	})
	if err != nil {
		return Buffer{}, fmt.Errorf("create buffer %q: %w: %v", info.Label, ErrOutOfMemory, err)
	}

	st := bufferState{info: info, raw: raw, size: size}
	rtInput := info.Misc.Has(MiscRayTracingBuildInput)

	switch info.Usage {
	case UsageDefault:
		if len(data) > 0 {
			if err := d.uploadBuffer(raw, data, info.Label); err != nil {
				d.dev.DestroyBuffer(raw)
				return Buffer{}, err
			}
		}
	case UsageUpload:
		st.shadow = make([]byte, size)
		copy(st.shadow, data)
		if len(data) > 0 {
			d.queue.WriteBuffer(raw, 0, padded(data))
		}
		st.persistent = info.PersistentMap
	}
	if rtInput && st.shadow == nil {
		st.shadow = make([]byte, size)
		copy(st.shadow, data)
	}
	if !st.persistent && !rtInput {
		st.shadow = nil
	}

	if err := d.registerBuffer(&st); err != nil {
		d.releaseDescriptors(&st.desc, false)
		d.dev.DestroyBuffer(raw)
		return Buffer{}, fmt.Errorf("create buffer %q: %w", info.Label, err)
	}

	h := d.buffers.Insert(st)
	b := Buffer{h: h}
	if rtInput {
		s, _ := d.buffers.Get(h)
		s.address = d.nextAddress
		d.addresses[d.nextAddress] = b
		d.nextAddress++
	}
	slogger().Debug("gpu: buffer created",
		"label", info.Label, "size", size, "usage", info.Usage.String())
	return b, nil
}

func (d *Device) registerBuffer(st *bufferState) error {
	if st.info.Usage == UsageCopy {
		return nil
	}
	if st.info.Bind.Has(BindUniform) {
		if err := d.heaps.bindBuffer(&st.desc, HeapUniform, st.raw, st.size); err != nil {
			return err
		}
	}
	if st.info.Bind&(BindShaderResource|BindUnorderedAccess) != 0 {
		if err := d.heaps.bindBuffer(&st.desc, HeapStorageBuffer, st.raw, st.size); err != nil {
			return err
		}
	}
	return nil
}

// uploadBuffer fills a device-local buffer through a staging copy and
// waits for it to complete.
func (d *Device) uploadBuffer(dst hal.Buffer, data []byte, label string) error {
	src := padded(data)
	staging, err := d.dev.CreateBuffer(&hal.BufferDescriptor{
		Label: label + "_staging",
		Size:  uint64(len(src)),
		Usage: gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create staging for %q: %w: %v", label, ErrOutOfMemory, err)
	}
	defer d.dev.DestroyBuffer(staging)

	d.queue.WriteBuffer(staging, 0, src)
	return d.submitAndWait("buffer_upload", func(enc hal.CommandEncoder) {
		enc.CopyBufferToBuffer(staging, dst, []hal.BufferCopy{{
			SrcOffset: 0,
			DstOffset: 0,
			Size:      uint64(len(src)),
		}})
	})
}

func (d *Device) buffer(b Buffer) *bufferState {
	st, ok := d.buffers.Get(b.h)
	if !ok {
		panic(fmt.Sprintf("gpu: stale or invalid buffer handle %v", b.h))
	}
	return st
}

// DestroyBuffer drops the owner's reference to b. The backend buffer and
// its descriptors are released once no in-flight frame can use them.
func (d *Device) DestroyBuffer(b Buffer) {
	st, ok := d.buffers.Remove(b.h)
	if !ok {
		panic(fmt.Sprintf("gpu: destroy of stale buffer handle %v", b.h))
	}
	if st.address != 0 {
		delete(d.addresses, st.address)
	}
	d.releaseDescriptors(&st.desc, true)
	d.retire(deferred.KindBuffer, func() { d.freeBuffer(&st) })
}

func (d *Device) freeBuffer(st *bufferState) {
	if st.raw != nil {
		d.dev.DestroyBuffer(st.raw)
		st.raw = nil
	}
}

// BufferInfo returns the description b was created with.
func (d *Device) BufferInfo(b Buffer) BufferInfo { return d.buffer(b).info }

// BufferResource returns the resource header of b.
func (d *Device) BufferResource(b Buffer) Resource {
	st := d.buffer(b)
	r := Resource{Kind: KindBuffer, Handle: st.raw.NativeHandle()}
	if st.persistent {
		r.Mapped = st.shadow
	}
	return r
}

// Mapped returns the persistent host mapping of an upload buffer. Writes
// through the returned slice become visible to the GPU at the next
// SubmitCommandLists. Calling Mapped on a buffer that is not
// persistently mapped panics.
func (d *Device) Mapped(b Buffer) []byte {
	st := d.buffer(b)
	if !st.persistent {
		panic(fmt.Sprintf("gpu: buffer %q is not persistently mapped", st.info.Label))
	}
	st.dirty = true
	return st.shadow
}

// UpdateBuffer writes data at offset through the queue. It is ordered
// before any command list submitted afterwards.
func (d *Device) UpdateBuffer(b Buffer, offset uint64, data []byte) {
	st := d.buffer(b)
	if offset+uint64(len(data)) > st.size {
		panic(fmt.Sprintf("gpu: write of %d bytes at %d overflows buffer %q (%d bytes)",
			len(data), offset, st.info.Label, st.size))
	}
	if st.shadow != nil {
		copy(st.shadow[offset:], data)
	}
	d.queue.WriteBuffer(st.raw, offset, padded(data))
}

// ReadBuffer copies the contents of a readback buffer to host memory.
func (d *Device) ReadBuffer(b Buffer) ([]byte, error) {
	st := d.buffer(b)
	out, err := d.readMapped(st.raw, st.info.Size)
	if err != nil {
		return nil, fmt.Errorf("gpu: read buffer %q: %w", st.info.Label, err)
	}
	return out, nil
}

// readMapped copies the first size bytes of a host-readable buffer. The
// caller has already waited for the writes that produced them.
func (d *Device) readMapped(raw hal.Buffer, size uint64) ([]byte, error) {
	out := make([]byte, size)
	if size == 0 {
		return out, nil
	}
	m, err := d.dev.MapBuffer(raw, 0, size)
	if err != nil {
		return nil, err
	}
	copy(out, unsafe.Slice((*byte)(m.Ptr), size))
	if err := d.dev.UnmapBuffer(raw); err != nil {
		return nil, err
	}
	return out, nil
}

// DeviceAddress returns the device address of a ray-tracing build-input
// buffer. The high word identifies the buffer and the low word is a byte
// offset, so callers may add offsets below 4 GiB.
func (d *Device) DeviceAddress(b Buffer) uint64 {
	st := d.buffer(b)
	if st.address == 0 {
		panic(fmt.Sprintf("gpu: buffer %q has no device address", st.info.Label))
	}
	return uint64(st.address) << 32
}

// ResolveAddress maps a device address back to its buffer and offset.
func (d *Device) ResolveAddress(addr uint64) (Buffer, uint64, bool) {
	b, ok := d.addresses[uint32(addr>>32)]
	return b, addr & 0xFFFFFFFF, ok
}

// hostData returns the host copy of a buffer and panics if there is none.
func (d *Device) hostData(b Buffer) []byte {
	st := d.buffer(b)
	if st.shadow == nil {
		panic(fmt.Sprintf("gpu: buffer %q has no host copy", st.info.Label))
	}
	return st.shadow
}

// BufferIndex returns the bindless index of b in heap.
func (d *Device) BufferIndex(b Buffer, heap Heap) uint32 {
	st := d.buffer(b)
	idx, ok := st.desc.get(heap)
	if !ok {
		panic(fmt.Sprintf("gpu: buffer %q has no %s descriptor", st.info.Label, heap))
	}
	return idx
}

// flushHostWrites pushes dirty persistent mappings to the GPU.
func (d *Device) flushHostWrites() {
	d.buffers.Each(func(_ handle.Handle, st *bufferState) {
		if st.dirty {
			d.queue.WriteBuffer(st.raw, 0, st.shadow)
			st.dirty = false
		}
	})
}
