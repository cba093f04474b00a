// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package raytrace is the progressive path-tracing pass.
//
// The pass owns one bottom-level acceleration structure per scene
// primitive, a top-level structure over their instances, the scene
// description records the kernel reads through device addresses, and the
// three shader binding tables. Every frame it traces
// Settings.SamplesPerPixel samples into the RTAccumulation image and
// writes the averaged result to RTOutput. Accumulation restarts whenever
// the camera matrices change.
package raytrace

import (
	"encoding/binary"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/lumen/gpu"
	"github.com/gogpu/lumen/graph"
	"github.com/gogpu/lumen/internal/bvh"
	"github.com/gogpu/lumen/scene"
)

// Graph names registered by the pass.
const (
	PassName               = "RayTracing"
	OutputAttachment       = "RTOutput"
	AccumulationAttachment = "RTAccumulation"
)

// SceneDescSize is the encoded size of one scene description record:
// vertex, index and material addresses, the material override and
// padding.
const SceneDescSize = 32

// NoMaterialOverride marks a scene description record whose primitive
// uses its per-vertex material indices.
const NoMaterialOverride = 0xFFFFFFFF

// SceneDesc locates the geometry and materials of one primitive. The
// addresses are already offset to the primitive's first vertex and index.
type SceneDesc struct {
	Vertices         uint64
	Indices          uint64
	Materials        uint64
	MaterialOverride uint32
}

// Encode writes s into dst, which must hold SceneDescSize bytes.
func (s *SceneDesc) Encode(dst []byte) {
	_ = dst[SceneDescSize-1]
	binary.LittleEndian.PutUint64(dst[0:], s.Vertices)
	binary.LittleEndian.PutUint64(dst[8:], s.Indices)
	binary.LittleEndian.PutUint64(dst[16:], s.Materials)
	binary.LittleEndian.PutUint32(dst[24:], s.MaterialOverride)
	binary.LittleEndian.PutUint32(dst[28:], 0)
}

// DecodeSceneDesc reads a record written by Encode.
func DecodeSceneDesc(src []byte) SceneDesc {
	_ = src[SceneDescSize-1]
	return SceneDesc{
		Vertices:         binary.LittleEndian.Uint64(src[0:]),
		Indices:          binary.LittleEndian.Uint64(src[8:]),
		Materials:        binary.LittleEndian.Uint64(src[16:]),
		MaterialOverride: binary.LittleEndian.Uint32(src[24:]),
	}
}

type meshBuffers struct {
	vertices gpu.Buffer
	indices  gpu.Buffer
}

// Pass is the path-tracing render-graph pass.
type Pass struct {
	dev   *gpu.Device
	g     *graph.Graph
	scene scene.Scene
	opts  options

	shaders  [3]gpu.Shader
	pipeline gpu.RayTracingPipeline
	tables   [3]gpu.ShaderBindingTable

	meshes    map[*scene.Mesh]meshBuffers
	materials gpu.Buffer
	blas      []gpu.AccelStruct
	tlas      gpu.AccelStruct
	instances gpu.Buffer
	sceneDesc gpu.Buffer
	count     int

	initialized bool
	built       bool

	settings     Settings
	total        uint32
	view, proj   mgl32.Mat4
	lastView     mgl32.Mat4
	lastProj     mgl32.Mat4
	recorded     bool
	forceReset   bool
	cameraBuffer uint32

	last       PushBlock
	dispatches int
}

// New loads the ray-tracing shaders, creates the pipeline and its shader
// binding tables, and registers the pass on g. It writes RTOutput and
// RTAccumulation, both storage images following the swapchain size.
func New(dev *gpu.Device, g *graph.Graph, s scene.Scene, opts ...Option) (*Pass, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	p := &Pass{
		dev:      dev,
		g:        g,
		scene:    s,
		opts:     o,
		meshes:   make(map[*scene.Mesh]meshBuffers),
		settings: o.settings.normalized(),
	}

	stages := [3]struct {
		path  string
		stage gpu.ShaderStage
	}{
		{o.rayGen, gpu.StageRayGen},
		{o.miss, gpu.StageMiss},
		{o.closestHit, gpu.StageClosestHit},
	}
	for i, st := range stages {
		sh, err := dev.LoadShader(o.fsys, st.path, st.stage)
		if err != nil {
			p.Destroy()
			return nil, fmt.Errorf("raytrace: %w", err)
		}
		p.shaders[i] = sh
	}

	pipeline, err := dev.CreateRayTracingPipeline(gpu.RayTracingPipelineInfo{
		Label:             "raytrace",
		RayGen:            p.shaders[0],
		Miss:              p.shaders[1],
		ClosestHit:        p.shaders[2],
		MaxRecursionDepth: o.maxDepth,
	})
	if err != nil {
		p.Destroy()
		return nil, fmt.Errorf("raytrace: %w", err)
	}
	p.pipeline = pipeline

	for i, group := range []gpu.ShaderGroup{gpu.GroupRayGen, gpu.GroupMiss, gpu.GroupHit} {
		t, err := dev.CreateShaderBindingTable(pipeline, group)
		if err != nil {
			p.Destroy()
			return nil, fmt.Errorf("raytrace: %w", err)
		}
		p.tables[i] = t
	}

	rw := graph.AttachmentInfo{Type: graph.RWTexture, SizeMode: graph.SizeSwapchainRelative}
	pass := g.AddPass(o.passName, p.execute)
	pass.AddOutputAttachment(o.outputName, rw)
	pass.AddOutputAttachment(o.accumName, rw)
	return p, nil
}

// Init uploads the scene geometry and creates the acceleration
// structures: one BLAS per primitive and a TLAS instancing each of them
// with its entity transform. Calling Init again replaces everything it
// created before.
func (p *Pass) Init() error {
	n := scene.CountPrimitives(p.scene)
	if n == 0 {
		return ErrEmptyScene
	}
	p.releaseScene()

	if err := p.createMaterials(); err != nil {
		return err
	}
	var err error
	p.instances, err = p.dev.CreateBuffer(gpu.BufferInfo{
		Label:         "raytrace_instances",
		Size:          uint64(n) * gpu.InstanceSize,
		Usage:         gpu.UsageUpload,
		Misc:          gpu.MiscRayTracingBuildInput,
		PersistentMap: true,
	}, nil)
	if err != nil {
		p.releaseScene()
		return fmt.Errorf("raytrace: %w", err)
	}
	p.sceneDesc, err = p.dev.CreateBuffer(gpu.BufferInfo{
		Label:         "raytrace_scene_desc",
		Size:          uint64(n) * SceneDescSize,
		Stride:        SceneDescSize,
		Usage:         gpu.UsageUpload,
		Bind:          gpu.BindShaderResource,
		Misc:          gpu.MiscStructured | gpu.MiscRayTracingBuildInput,
		PersistentMap: true,
	}, nil)
	if err != nil {
		p.releaseScene()
		return fmt.Errorf("raytrace: %w", err)
	}

	records := p.dev.Mapped(p.instances)
	descs := p.dev.Mapped(p.sceneDesc)
	materials := p.dev.DeviceAddress(p.materials)
	var walkErr error
	p.scene.Each(func(e scene.Entity) bool {
		if e.Renderable == nil {
			return true
		}
		override := uint32(NoMaterialOverride)
		if e.Material != nil {
			if idx, ok := scene.MaterialIndex(p.scene, e.Material); ok {
				override = idx
			}
		}
		for _, m := range e.Renderable.Meshes {
			bufs, err := p.meshBuffers(m)
			if err != nil {
				walkErr = err
				return false
			}
			vaddr := p.dev.DeviceAddress(bufs.vertices)
			iaddr := p.dev.DeviceAddress(bufs.indices)
			for _, prim := range m.Primitives {
				i := len(p.blas)
				desc := SceneDesc{
					Vertices:         vaddr + uint64(prim.BaseVertex)*scene.VertexSize,
					Indices:          iaddr + uint64(prim.BaseIndex)*4,
					Materials:        materials,
					MaterialOverride: override,
				}
				blas, err := p.dev.CreateAccelStruct(gpu.AccelStructInfo{
					Label: fmt.Sprintf("blas_%s_%d", m.Name, i),
					Kind:  gpu.BLAS,
					Triangles: gpu.TriangleGeometry{
						VertexAddress: desc.Vertices,
						VertexStride:  scene.VertexSize,
						VertexCount:   prim.VertexCount,
						IndexAddress:  desc.Indices,
						IndexCount:    prim.IndexCount,
					},
				})
				if err != nil {
					walkErr = err
					return false
				}
				p.blas = append(p.blas, blas)

				inst := gpu.Instance{
					CustomIndex: uint32(i), //nolint:gosec // bounded by primitive count
					Mask:        0xFF,
					BLAS:        p.dev.AccelAddress(blas),
				}
				for r := 0; r < 3; r++ {
					inst.Transform[r] = e.Transform.Row(r)
				}
				inst.Encode(records[i*gpu.InstanceSize:])
				desc.Encode(descs[i*SceneDescSize:])
			}
		}
		return true
	})
	if walkErr != nil {
		p.releaseScene()
		return fmt.Errorf("raytrace: %w", walkErr)
	}

	p.count = len(p.blas)
	p.tlas, err = p.dev.CreateAccelStruct(gpu.AccelStructInfo{
		Label:         "tlas",
		Kind:          gpu.TLAS,
		Instances:     p.instances,
		InstanceCount: uint32(p.count), //nolint:gosec // bounded by primitive count
	})
	if err != nil {
		p.releaseScene()
		return fmt.Errorf("raytrace: %w", err)
	}
	p.initialized = true
	slogger().Info("raytrace: scene initialized", "primitives", p.count, "meshes", len(p.meshes))
	return nil
}

func (p *Pass) createMaterials() error {
	mats := p.scene.Materials()
	count := len(mats)
	if count == 0 {
		count = 1
	}
	data := make([]byte, count*scene.MaterialSize)
	for i, m := range mats {
		m.Encode(data[i*scene.MaterialSize:])
	}
	if len(mats) == 0 {
		def := scene.Material{BaseColor: [4]float32{0.8, 0.8, 0.8, 1}, Roughness: 1}
		def.Encode(data)
	}
	buf, err := p.dev.CreateBuffer(gpu.BufferInfo{
		Label:  "raytrace_materials",
		Stride: scene.MaterialSize,
		Usage:  gpu.UsageDefault,
		Misc:   gpu.MiscStructured | gpu.MiscRayTracingBuildInput,
	}, data)
	if err != nil {
		return fmt.Errorf("raytrace: %w", err)
	}
	p.materials = buf
	return nil
}

// meshBuffers uploads the vertex and index arrays of m once.
func (p *Pass) meshBuffers(m *scene.Mesh) (meshBuffers, error) {
	if bufs, ok := p.meshes[m]; ok {
		return bufs, nil
	}
	var bufs meshBuffers
	var err error
	bufs.vertices, err = p.dev.CreateBuffer(gpu.BufferInfo{
		Label:  m.Name + "_vertices",
		Stride: scene.VertexSize,
		Usage:  gpu.UsageDefault,
		Misc:   gpu.MiscRayTracingBuildInput,
	}, m.EncodeVertices())
	if err != nil {
		return meshBuffers{}, err
	}
	bufs.indices, err = p.dev.CreateBuffer(gpu.BufferInfo{
		Label:  m.Name + "_indices",
		Stride: 4,
		Usage:  gpu.UsageDefault,
		Misc:   gpu.MiscRayTracingBuildInput,
	}, m.EncodeIndices())
	if err != nil {
		p.dev.DestroyBuffer(bufs.vertices)
		return meshBuffers{}, err
	}
	p.meshes[m] = bufs
	return bufs, nil
}

// BuildAccelStructs records the build of every BLAS followed by the TLAS.
func (p *Pass) BuildAccelStructs(cmd *gpu.CommandList) error {
	if !p.initialized {
		return ErrNotInitialized
	}
	cmd.BuildAccelStructs(append(p.BLAS(), p.tlas)...)
	p.built = true
	slogger().Debug("raytrace: acceleration structures recorded", "blas", len(p.blas))
	return nil
}

// Built reports whether BuildAccelStructs has been recorded.
func (p *Pass) Built() bool { return p.built }

// Settings returns the current settings.
func (p *Pass) Settings() Settings { return p.settings }

// SetSettings replaces the settings. SamplesPerPixel is clamped to at
// least one.
func (p *Pass) SetSettings(s Settings) { p.settings = s.normalized() }

// SetCamera sets the matrices of the next dispatch. A change from the
// matrices of the previous dispatch restarts accumulation.
func (p *Pass) SetCamera(view, proj mgl32.Mat4) {
	p.view, p.proj = view, proj
}

// SetCameraBuffer sets the uniform-heap index of the buffer holding the
// inverse camera matrices for the next dispatch.
func (p *Pass) SetCameraBuffer(index uint32) { p.cameraBuffer = index }

// ResetAccumulation restarts accumulation at the next dispatch.
func (p *Pass) ResetAccumulation() { p.forceReset = true }

// TotalSamples returns the accumulated samples per pixel.
func (p *Pass) TotalSamples() uint32 { return p.total }

// PushBlock returns the block pushed by the last dispatch.
func (p *Pass) PushBlock() PushBlock { return p.last }

// Dispatches returns the number of dispatches recorded.
func (p *Pass) Dispatches() int { return p.dispatches }

// PrimitiveCount returns the number of BLAS created by Init.
func (p *Pass) PrimitiveCount() int { return p.count }

// TLAS returns the top-level acceleration structure.
func (p *Pass) TLAS() gpu.AccelStruct { return p.tlas }

// BLAS returns the bottom-level acceleration structures in primitive
// order.
func (p *Pass) BLAS() []gpu.AccelStruct { return append([]gpu.AccelStruct(nil), p.blas...) }

// Instances returns the TLAS instance buffer.
func (p *Pass) Instances() gpu.Buffer { return p.instances }

// SceneDescBuffer returns the scene description buffer.
func (p *Pass) SceneDescBuffer() gpu.Buffer { return p.sceneDesc }

func (p *Pass) execute(ctx *graph.PassContext) {
	spp := p.settings.SamplesPerPixel
	reset := p.forceReset ||
		(p.recorded && (p.view != p.lastView || p.proj != p.lastProj))
	if reset {
		p.total = spp
	}

	block := PushBlock{
		FrameIndex:        uint32(p.dev.FrameCounter()), //nolint:gosec // wraps
		AccumulationImage: ctx.DescriptorIndex(p.opts.accumName, gpu.HeapStorageImage),
		OutputImage:       ctx.DescriptorIndex(p.opts.outputName, gpu.HeapStorageImage),
		RayBounces:        p.settings.RayBounces,
		SamplesPerPixel:   spp,
		TotalSamples:      p.total,
		UseNormalMaps:     p.settings.UseNormalMaps,
		UseSkybox:         p.settings.UseSkybox,
		Reset:             reset,
		CameraBuffer:      p.cameraBuffer,
		Width:             ctx.Width,
		Height:            ctx.Height,
	}
	if p.built {
		block.SceneDescBuffer = p.dev.BufferIndex(p.sceneDesc, gpu.HeapStorageBuffer)
		block.InstanceCount = uint32(p.count) //nolint:gosec // bounded by primitive count
		block.InstanceOrder = p.dev.AccelNodeCount(p.tlas) * (bvh.NodeSize / 4)
	}

	var data [PushBlockSize]byte
	block.Encode(data[:])
	ctx.Cmd.BindRayTracingPipeline(p.pipeline)
	ctx.Cmd.PushConstants(data[:])
	ctx.Cmd.DispatchRays(p.tables[0], p.tables[1], p.tables[2], ctx.Width, ctx.Height, 1)

	p.total += spp
	p.lastView, p.lastProj = p.view, p.proj
	p.recorded = true
	p.forceReset = false
	p.last = block
	p.dispatches++
	if reset {
		slogger().Debug("raytrace: accumulation reset", "total", p.total)
	}
}

// releaseScene destroys the resources Init created.
func (p *Pass) releaseScene() {
	if p.tlas.IsValid() {
		p.dev.DestroyAccelStruct(p.tlas)
		p.tlas = gpu.AccelStruct{}
	}
	for _, b := range p.blas {
		p.dev.DestroyAccelStruct(b)
	}
	p.blas = nil
	for m, bufs := range p.meshes {
		p.dev.DestroyBuffer(bufs.vertices)
		p.dev.DestroyBuffer(bufs.indices)
		delete(p.meshes, m)
	}
	for _, b := range []*gpu.Buffer{&p.materials, &p.instances, &p.sceneDesc} {
		if b.IsValid() {
			p.dev.DestroyBuffer(*b)
			*b = gpu.Buffer{}
		}
	}
	p.count = 0
	p.initialized = false
	p.built = false
}

// Destroy releases every resource of the pass through the device's
// deferred destruction. The graph keeps the registered pass.
func (p *Pass) Destroy() {
	p.releaseScene()
	for i := range p.tables {
		if p.tables[i].Buffer.IsValid() {
			p.dev.DestroyShaderBindingTable(p.tables[i])
			p.tables[i] = gpu.ShaderBindingTable{}
		}
	}
	if p.pipeline.IsValid() {
		p.dev.DestroyRayTracingPipeline(p.pipeline)
		p.pipeline = gpu.RayTracingPipeline{}
	}
	for i := range p.shaders {
		if p.shaders[i].IsValid() {
			p.dev.DestroyShader(p.shaders[i])
			p.shaders[i] = gpu.Shader{}
		}
	}
}
