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

// Sampler is a handle to a sampler owned by a Device.
type Sampler struct{ h handle.Handle }

// IsValid reports whether s was returned by a successful CreateSampler.
func (s Sampler) IsValid() bool { return !s.h.IsZero() }

// SamplerInfo describes a sampler.
type SamplerInfo struct {
	Label         string
	Filter        Filter
	Compare       gputypes.CompareFunction
	MaxAnisotropy uint16
	AddressU      AddressMode
	AddressV      AddressMode
	AddressW      AddressMode
	MinLOD        float32
	MaxLOD        float32
	Border        BorderColor
}

type samplerState struct {
	info SamplerInfo
	raw  hal.Sampler
	desc descriptors
}

func (m AddressMode) hal() gputypes.AddressMode {
	switch m {
	case AddressWrap:
		return gputypes.AddressModeRepeat
	case AddressMirror:
		return gputypes.AddressModeMirrorRepeat
	default:
		// Border addressing has no portable equivalent; clamping gives the
		// edge texel instead of the border color.
		return gputypes.AddressModeClampToEdge
	}
}

func (f Filter) hal() gputypes.FilterMode {
	if f == FilterNearest {
		return gputypes.FilterModeNearest
	}
	return gputypes.FilterModeLinear
}

// CreateSampler creates a sampler and assigns it a sampler heap index.
func (d *Device) CreateSampler(info SamplerInfo) (Sampler, error) {
	if err := d.checkOpen(); err != nil {
		return Sampler{}, err
	}
	raw, err := d.dev.CreateSampler(&hal.SamplerDescriptor{
		Label:        info.Label,
		AddressModeU: info.AddressU.hal(),
		AddressModeV: info.AddressV.hal(),
		AddressModeW: info.AddressW.hal(),
		MagFilter:    info.Filter.hal(),
		MinFilter:    info.Filter.hal(),
		MipmapFilter: info.Filter.hal(),
	})
	if err != nil {
		return Sampler{}, fmt.Errorf("create sampler %q: %w", info.Label, err)
	}
	st := samplerState{info: info, raw: raw}
	if err := d.heaps.bindSampler(&st.desc, raw); err != nil {
		d.dev.DestroySampler(raw)
		return Sampler{}, fmt.Errorf("create sampler %q: %w", info.Label, err)
	}
	return Sampler{h: d.samplers.Insert(st)}, nil
}

// DestroySampler drops the owner's reference to s.
func (d *Device) DestroySampler(s Sampler) {
	st, ok := d.samplers.Remove(s.h)
	if !ok {
		panic(fmt.Sprintf("gpu: destroy of stale sampler handle %v", s.h))
	}
	d.releaseDescriptors(&st.desc, true)
	raw := st.raw
	d.retire(deferred.KindSampler, func() { d.dev.DestroySampler(raw) })
}

// SamplerIndex returns the sampler heap index of s.
func (d *Device) SamplerIndex(s Sampler) uint32 {
	st, ok := d.samplers.Get(s.h)
	if !ok {
		panic(fmt.Sprintf("gpu: stale or invalid sampler handle %v", s.h))
	}
	idx, _ := st.desc.get(HeapSampler)
	return idx
}
