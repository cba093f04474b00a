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

// Pipeline is a handle to a graphics or compute pipeline owned by a Device.
type Pipeline struct{ h handle.Handle }

// IsValid reports whether p was returned by a successful pipeline creation.
func (p Pipeline) IsValid() bool { return !p.h.IsZero() }

// VertexAttribute is one attribute of the single interleaved vertex stream.
type VertexAttribute struct {
	Location uint32
	Format   gputypes.VertexFormat
	Offset   uint64
}

// VertexLayout describes the vertex stream. A zero Stride means the
// pipeline takes no vertex buffer.
type VertexLayout struct {
	Stride     uint64
	Attributes []VertexAttribute
}

// RasterizerState selects primitive assembly and culling.
type RasterizerState struct {
	Topology  gputypes.PrimitiveTopology
	CullMode  gputypes.CullMode
	FrontFace gputypes.FrontFace
}

// DepthStencilState configures the depth test.
type DepthStencilState struct {
	DepthTest  bool
	DepthWrite bool
	Compare    gputypes.CompareFunction
}

// BlendMode selects color blending for one attachment.
type BlendMode uint8

// Blend modes.
const (
	BlendNone BlendMode = iota
	// BlendPremultiplied expects the shader to output premultiplied color.
	BlendPremultiplied
)

// PipelineInfo describes a graphics pipeline. Every pipeline shares the
// device layout: group 0 holds the bindless heaps and group 1 the
// push-constant block.
type PipelineInfo struct {
	Label        string
	VS           Shader
	PS           Shader
	VertexLayout VertexLayout
	Rasterizer   RasterizerState
	DepthStencil DepthStencilState
	Blend        []BlendMode
	ColorFormats []gputypes.TextureFormat
	DepthFormat  gputypes.TextureFormat
}

// ComputePipelineInfo describes a compute pipeline.
type ComputePipelineInfo struct {
	Label string
	CS    Shader
}

type pipelineState struct {
	label     string
	hasVertex bool
	render    hal.RenderPipeline
	compute   hal.ComputePipeline
}

// CreatePipeline builds a graphics pipeline over the shared layout.
func (d *Device) CreatePipeline(info PipelineInfo) (Pipeline, error) {
	if err := d.checkOpen(); err != nil {
		return Pipeline{}, err
	}
	vs, ps := d.shader(info.VS), d.shader(info.PS)
	if vs.module == nil || ps.module == nil {
		return Pipeline{}, fmt.Errorf("%w: pipeline %q needs vertex and pixel modules", ErrInvalidInfo, info.Label)
	}

	var buffers []gputypes.VertexBufferLayout
	if info.VertexLayout.Stride > 0 {
		attrs := make([]gputypes.VertexAttribute, len(info.VertexLayout.Attributes))
		for i, a := range info.VertexLayout.Attributes {
			attrs[i] = gputypes.VertexAttribute{Format: a.Format, Offset: a.Offset, ShaderLocation: a.Location}
		}
		buffers = []gputypes.VertexBufferLayout{{
			ArrayStride: info.VertexLayout.Stride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes:  attrs,
		}}
	}

	targets := make([]gputypes.ColorTargetState, len(info.ColorFormats))
	for i, f := range info.ColorFormats {
		targets[i] = gputypes.ColorTargetState{Format: f, WriteMask: gputypes.ColorWriteMaskAll}
		if i < len(info.Blend) && info.Blend[i] == BlendPremultiplied {
			b := gputypes.BlendStatePremultiplied()
			targets[i].Blend = &b
		}
	}

	var depth *hal.DepthStencilState
	if IsDepthFormat(info.DepthFormat) {
		cmp := info.DepthStencil.Compare
		if !info.DepthStencil.DepthTest {
			cmp = gputypes.CompareFunctionAlways
		}
		depth = &hal.DepthStencilState{
			Format:            info.DepthFormat,
			DepthWriteEnabled: info.DepthStencil.DepthWrite,
			DepthCompare:      cmp,
		}
	}

	topology := info.Rasterizer.Topology
	if topology == gputypes.PrimitiveTopology(0) {
		topology = gputypes.PrimitiveTopologyTriangleList
	}

	raw, err := d.dev.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  info.Label,
		Layout: d.layout,
		Vertex: hal.VertexState{
			Module:     vs.module,
			EntryPoint: StageVertex.EntryPoint(),
			Buffers:    buffers,
		},
		Fragment: &hal.FragmentState{
			Module:     ps.module,
			EntryPoint: StagePixel.EntryPoint(),
			Targets:    targets,
		},
		DepthStencil: depth,
		Multisample:  gputypes.MultisampleState{Count: 1, Mask: 0xFFFFFFFF},
		Primitive: gputypes.PrimitiveState{
			Topology:  topology,
			CullMode:  info.Rasterizer.CullMode,
			FrontFace: info.Rasterizer.FrontFace,
		},
	})
	if err != nil {
		return Pipeline{}, fmt.Errorf("create pipeline %q: %w", info.Label, err)
	}
	slogger().Debug("gpu: pipeline created", "label", info.Label, "targets", len(targets))
	return Pipeline{h: d.pipelines.Insert(pipelineState{
		label:     info.Label,
		hasVertex: len(buffers) > 0,
		render:    raw,
	})}, nil
}

// CreateComputePipeline builds a compute pipeline over the shared layout.
func (d *Device) CreateComputePipeline(info ComputePipelineInfo) (Pipeline, error) {
	if err := d.checkOpen(); err != nil {
		return Pipeline{}, err
	}
	cs := d.shader(info.CS)
	raw, err := d.createCompute(info.Label, cs.module, StageCompute.EntryPoint())
	if err != nil {
		return Pipeline{}, err
	}
	return Pipeline{h: d.pipelines.Insert(pipelineState{label: info.Label, compute: raw})}, nil
}

func (d *Device) createCompute(label string, module hal.ShaderModule, entry string) (hal.ComputePipeline, error) {
	if module == nil {
		return nil, fmt.Errorf("%w: compute pipeline %q has no module", ErrInvalidInfo, label)
	}
	raw, err := d.dev.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  label,
		Layout: d.layout,
		Compute: hal.ComputeState{
			Module:     module,
			EntryPoint: entry,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create compute pipeline %q: %w", label, err)
	}
	return raw, nil
}

func (d *Device) pipeline(p Pipeline) *pipelineState {
	st, ok := d.pipelines.Get(p.h)
	if !ok {
		panic(fmt.Sprintf("gpu: stale or invalid pipeline handle %v", p.h))
	}
	return st
}

// DestroyPipeline drops the owner's reference to p.
func (d *Device) DestroyPipeline(p Pipeline) {
	st, ok := d.pipelines.Remove(p.h)
	if !ok {
		panic(fmt.Sprintf("gpu: destroy of stale pipeline handle %v", p.h))
	}
	d.retire(deferred.KindPipeline, func() { d.freePipeline(&st) })
}

func (d *Device) freePipeline(st *pipelineState) {
	if st.render != nil {
		d.dev.DestroyRenderPipeline(st.render)
		st.render = nil
	}
	if st.compute != nil {
		d.dev.DestroyComputePipeline(st.compute)
		st.compute = nil
	}
}
