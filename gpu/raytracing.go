// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/lumen/internal/deferred"
	"github.com/gogpu/lumen/internal/handle"
)

// Shader group table parameters.
const (
	// ShaderGroupHandleSize is the size of one shader group handle.
	ShaderGroupHandleSize = 32
	// ShaderGroupBaseAlignment is the alignment of a shader binding table
	// record.
	ShaderGroupBaseAlignment = 64
)

// ShaderGroup indexes the three groups of a ray-tracing pipeline.
type ShaderGroup uint8

// Shader groups in pipeline order.
const (
	GroupRayGen ShaderGroup = iota
	GroupMiss
	GroupHit
	groupCount
)

// String returns the group name.
func (g ShaderGroup) String() string {
	switch g {
	case GroupRayGen:
		return "raygen"
	case GroupMiss:
		return "miss"
	case GroupHit:
		return "hit"
	default:
		return fmt.Sprintf("ShaderGroup(%d)", uint8(g))
	}
}

// RayTracingPipelineInfo describes a ray-tracing pipeline.
type RayTracingPipelineInfo struct {
	Label             string
	RayGen            Shader
	Miss              Shader
	ClosestHit        Shader
	MaxRecursionDepth uint32
}

// RayTracingPipeline is a handle to a ray-tracing pipeline.
type RayTracingPipeline struct{ h handle.Handle }

// IsValid reports whether p was returned by a successful creation.
func (p RayTracingPipeline) IsValid() bool { return !p.h.IsZero() }

type rtPipelineState struct {
	info     RayTracingPipelineInfo
	id       uint32
	module   hal.ShaderModule // linked module, nil when the raygen module is used
	pipeline hal.ComputePipeline
	handles  [groupCount][ShaderGroupHandleSize]byte
}

// ShaderBindingTable is a region of a buffer holding shader group records.
type ShaderBindingTable struct {
	Buffer Buffer
	Offset uint64
	Size   uint64
	Stride uint64
	Group  ShaderGroup
}

// CreateRayTracingPipeline links the ray-generation, miss and closest-hit
// shaders into one compute kernel that traverses the scene acceleration
// structure. When all three carry WGSL the sources are concatenated into
// a single module; otherwise the ray-generation module must already
// contain the other stages.
func (d *Device) CreateRayTracingPipeline(info RayTracingPipelineInfo) (RayTracingPipeline, error) {
	if err := d.checkOpen(); err != nil {
		return RayTracingPipeline{}, err
	}
	rg, ms, ch := d.shader(info.RayGen), d.shader(info.Miss), d.shader(info.ClosestHit)
	if rg.stage != StageRayGen || ms.stage != StageMiss || ch.stage != StageClosestHit {
		return RayTracingPipeline{}, fmt.Errorf("%w: pipeline %q has shaders for stages %s/%s/%s",
			ErrInvalidInfo, info.Label, rg.stage, ms.stage, ch.stage)
	}
	if info.MaxRecursionDepth == 0 {
		info.MaxRecursionDepth = 1
	}

	st := rtPipelineState{info: info, id: d.nextPipelineID()}
	module := rg.module
	if rg.source.WGSL != "" && ms.source.WGSL != "" && ch.source.WGSL != "" {
		linked := strings.Join([]string{ms.source.WGSL, ch.source.WGSL, rg.source.WGSL}, "\n")
		m, err := d.compileModule(info.Label+"_linked", ShaderSource{WGSL: linked})
		if err != nil {
			return RayTracingPipeline{}, err
		}
		st.module, module = m, m
	}
	if module == nil {
		return RayTracingPipeline{}, fmt.Errorf("%w: pipeline %q mixes WGSL and SPIR-V stages", ErrInvalidInfo, info.Label)
	}

	raw, err := d.createCompute(info.Label, module, StageRayGen.EntryPoint())
	if err != nil {
		if st.module != nil {
			d.dev.DestroyShaderModule(st.module)
		}
		return RayTracingPipeline{}, err
	}
	st.pipeline = raw

	for g := ShaderGroup(0); g < groupCount; g++ {
		h := &st.handles[g]
		binary.LittleEndian.PutUint32(h[0:], st.id)
		binary.LittleEndian.PutUint32(h[4:], uint32(g))
	}
	slogger().Debug("gpu: ray-tracing pipeline created",
		"label", info.Label, "recursion", info.MaxRecursionDepth, "linked", st.module != nil)
	return RayTracingPipeline{h: d.rtPipelines.Insert(st)}, nil
}

func (d *Device) nextPipelineID() uint32 {
	d.pipelineIDs++
	return d.pipelineIDs
}

func (d *Device) rtPipeline(p RayTracingPipeline) *rtPipelineState {
	st, ok := d.rtPipelines.Get(p.h)
	if !ok {
		panic(fmt.Sprintf("gpu: stale or invalid ray-tracing pipeline handle %v", p.h))
	}
	return st
}

// ShaderGroupHandle returns the opaque handle of group g in p.
func (d *Device) ShaderGroupHandle(p RayTracingPipeline, g ShaderGroup) []byte {
	h := d.rtPipeline(p).handles[g]
	return h[:]
}

// CreateShaderBindingTable writes the handle of group into a new
// host-visible buffer with one aligned record.
func (d *Device) CreateShaderBindingTable(p RayTracingPipeline, group ShaderGroup) (ShaderBindingTable, error) {
	if group >= groupCount {
		return ShaderBindingTable{}, fmt.Errorf("%w: shader group %d", ErrInvalidInfo, group)
	}
	st := d.rtPipeline(p)
	stride := alignUp(ShaderGroupHandleSize, ShaderGroupBaseAlignment)
	record := make([]byte, stride)
	copy(record, st.handles[group][:])

	buf, err := d.CreateBuffer(BufferInfo{
		Label:         fmt.Sprintf("%s_sbt_%s", st.info.Label, group),
		Size:          stride,
		Usage:         UsageUpload,
		PersistentMap: true,
	}, record)
	if err != nil {
		return ShaderBindingTable{}, err
	}
	return ShaderBindingTable{Buffer: buf, Size: stride, Stride: stride, Group: group}, nil
}

// DestroyShaderBindingTable releases the buffer of t.
func (d *Device) DestroyShaderBindingTable(t ShaderBindingTable) { d.DestroyBuffer(t.Buffer) }

// checkTable panics if t does not hold a group-g record of p.
func (d *Device) checkTable(st *rtPipelineState, t ShaderBindingTable, g ShaderGroup) {
	if t.Group != g {
		panic(fmt.Sprintf("gpu: %s table passed as %s table", t.Group, g))
	}
	if g == GroupRayGen && t.Size != t.Stride {
		panic(fmt.Sprintf("gpu: raygen table size %d must equal its stride %d", t.Size, t.Stride))
	}
	rec := d.hostData(t.Buffer)[t.Offset:]
	if binary.LittleEndian.Uint32(rec) != st.id {
		panic(fmt.Sprintf("gpu: %s table was built for another pipeline", g))
	}
}

// DestroyRayTracingPipeline drops the owner's reference to p.
func (d *Device) DestroyRayTracingPipeline(p RayTracingPipeline) {
	st, ok := d.rtPipelines.Remove(p.h)
	if !ok {
		panic(fmt.Sprintf("gpu: destroy of stale ray-tracing pipeline handle %v", p.h))
	}
	d.retire(deferred.KindPipeline, func() { d.freeRTPipeline(&st) })
}

func (d *Device) freeRTPipeline(st *rtPipelineState) {
	if st.pipeline != nil {
		d.dev.DestroyComputePipeline(st.pipeline)
		st.pipeline = nil
	}
	if st.module != nil {
		d.dev.DestroyShaderModule(st.module)
		st.module = nil
	}
}
