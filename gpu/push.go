// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// pushSlotStride is the distance between two push-constant blocks in the
// ring. It matches the minimum uniform dynamic-offset alignment.
const pushSlotStride = 256

// pushRing backs PushConstants. Each call takes the next block of a
// per-frame uniform buffer bound at group 1 with a dynamic offset. The
// ring is reset when its frame slot is reused, which happens only after
// the slot's last submission completed.
type pushRing struct {
	buf    hal.Buffer
	group  hal.BindGroup
	size   uint32
	cursor uint32
}

func (d *Device) createPushResources() error {
	layout, err := d.dev.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "lumen_push_layout",
		Entries: []gputypes.BindGroupLayoutEntry{{
			Binding:    0,
			Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment | gputypes.ShaderStageCompute,
			Buffer: &gputypes.BufferBindingLayout{
				Type:             gputypes.BufferBindingTypeUniform,
				HasDynamicOffset: true,
				MinBindingSize:   pushConstantSize,
			},
		}},
	})
	if err != nil {
		return fmt.Errorf("gpu: create push-constant layout: %w", err)
	}
	d.pushLayout = layout

	size := uint32(alignUp(uint64(d.opts.pushRingSize), pushSlotStride)) //nolint:gosec // bounded by option
	for i := range d.slots {
		r, err := d.newPushRing(i, size)
		if err != nil {
			return err
		}
		d.slots[i].push = r
	}
	return nil
}

func (d *Device) newPushRing(slot int, size uint32) (*pushRing, error) {
	buf, err := d.dev.CreateBuffer(&hal.BufferDescriptor{
		Label: fmt.Sprintf("lumen_push_ring_%d", slot),
		Size:  uint64(size),
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create push ring %d: %w", slot, err)
	}
	group, err := d.dev.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  fmt.Sprintf("lumen_push_group_%d", slot),
		Layout: d.pushLayout,
		Entries: []gputypes.BindGroupEntry{{
			Binding:  0,
			Resource: gputypes.BufferBinding{Buffer: buf.NativeHandle(), Offset: 0, Size: pushConstantSize},
		}},
	})
	if err != nil {
		d.dev.DestroyBuffer(buf)
		return nil, fmt.Errorf("gpu: create push group %d: %w", slot, err)
	}
	return &pushRing{buf: buf, group: group, size: size}, nil
}

// push writes data into the next block and returns its dynamic offset.
func (r *pushRing) push(q hal.Queue, data []byte) uint32 {
	if r.cursor+pushSlotStride > r.size {
		panic(fmt.Sprintf("gpu: push-constant ring exhausted (%d bytes per frame)", r.size))
	}
	off := r.cursor
	block := make([]byte, pushConstantSize)
	copy(block, data)
	q.WriteBuffer(r.buf, uint64(off), block)
	r.cursor += pushSlotStride
	return off
}

func (r *pushRing) reset() { r.cursor = 0 }

func (r *pushRing) destroy(dev hal.Device) {
	if r.group != nil {
		dev.DestroyBindGroup(r.group)
		r.group = nil
	}
	if r.buf != nil {
		dev.DestroyBuffer(r.buf)
		r.buf = nil
	}
}
