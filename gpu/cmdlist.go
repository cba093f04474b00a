// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/lumen/internal/bvh"
)

// computeGroupSize is the workgroup edge of the ray-generation kernel.
const computeGroupSize = 8

// LoadOp selects how an attachment is initialized at pass begin.
type LoadOp uint8

// Load operations.
const (
	LoadClear LoadOp = iota
	LoadKeep
)

func (op LoadOp) hal() gputypes.LoadOp {
	if op == LoadKeep {
		return gputypes.LoadOpLoad
	}
	return gputypes.LoadOpClear
}

// ColorAttachment is a render-pass color target.
type ColorAttachment struct {
	Texture Texture
	Load    LoadOp
	Clear   [4]float64
}

// DepthAttachment is a render-pass depth target.
type DepthAttachment struct {
	Texture Texture
	Load    LoadOp
	Clear   float32
}

// RenderPassInfo describes a render pass.
type RenderPassInfo struct {
	Label  string
	Colors []ColorAttachment
	Depth  *DepthAttachment
}

// IndexFormat is the element type of an index buffer.
type IndexFormat uint8

// Index formats.
const (
	IndexUint32 IndexFormat = iota
	IndexUint16
)

// Viewport is a render-pass viewport in pixels.
type Viewport struct {
	X, Y, Width, Height float32
	MinDepth, MaxDepth  float32
}

// Rect is a scissor rectangle in pixels.
type Rect struct {
	X, Y, Width, Height uint32
}

// BarrierRecord is one executed image transition.
type BarrierRecord struct {
	Texture Texture
	Before  ResourceState
	After   ResourceState
	Aspect  Aspect
}

type vertexBinding struct {
	buf    hal.Buffer
	offset uint64
	set    bool
}

type indexBinding struct {
	buf    hal.Buffer
	format gputypes.IndexFormat
	offset uint64
	set    bool
}

// CommandList records GPU work for one frame. Command lists come from a
// bounded per-frame pool and are submitted together by SubmitCommandLists.
type CommandList struct {
	d     *Device
	queue QueueType
	label string
	enc   hal.CommandEncoder

	pass       hal.RenderPassEncoder
	pipeline   *pipelineState
	rtPipeline *rtPipelineState
	pushOffset uint32
	vertex     vertexBinding
	index      indexBinding
	viewport   *Viewport
	barriers   []BarrierRecord
}

// BeginCommandList takes a command list from the current frame slot's
// pool. The first call of a frame resets the pool. It panics when more
// than the configured number of lists is taken in one frame.
func (d *Device) BeginCommandList(queue QueueType) *CommandList {
	if d.closed {
		panic("gpu: BeginCommandList on closed device")
	}
	slot := &d.slots[d.currentFrame]
	if !slot.begun {
		slot.begun = true
		slot.used = 0
	}
	if slot.used >= d.opts.maxCommandLists {
		panic(fmt.Sprintf("gpu: more than %d command lists in one frame", d.opts.maxCommandLists))
	}

	var cl *CommandList
	if slot.used < len(slot.lists) {
		cl = slot.lists[slot.used]
		*cl = CommandList{barriers: cl.barriers[:0]}
	} else {
		cl = &CommandList{}
		slot.lists = append(slot.lists, cl)
	}
	slot.used++

	cl.d = d
	cl.queue = queue
	cl.label = fmt.Sprintf("lumen_frame%d_list%d", d.frameCounter, slot.used-1)
	enc, err := d.dev.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: cl.label})
	if err != nil {
		panic(fmt.Sprintf("gpu: create command encoder: %v", err))
	}
	if err := enc.BeginEncoding(cl.label); err != nil {
		panic(fmt.Sprintf("gpu: begin encoding: %v", err))
	}
	cl.enc = enc
	return cl
}

// Label returns the debug label of the list.
func (cl *CommandList) Label() string { return cl.label }

// Queue returns the queue the list records for.
func (cl *CommandList) Queue() QueueType { return cl.queue }

// Device returns the device that owns the list.
func (cl *CommandList) Device() *Device { return cl.d }

// InRenderPass reports whether a render pass is open.
func (cl *CommandList) InRenderPass() bool { return cl.pass != nil }

// BeginRenderPass opens a render pass over the given attachments. The
// attachments must already be in the render-target or depth-write state.
func (cl *CommandList) BeginRenderPass(info RenderPassInfo) {
	if cl.pass != nil {
		panic("gpu: BeginRenderPass inside an open render pass")
	}
	desc := &hal.RenderPassDescriptor{Label: info.Label}
	for _, c := range info.Colors {
		_, view := cl.d.halTexture(c.Texture)
		desc.ColorAttachments = append(desc.ColorAttachments, hal.RenderPassColorAttachment{
			View:       view,
			LoadOp:     c.Load.hal(),
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: gputypes.Color{R: c.Clear[0], G: c.Clear[1], B: c.Clear[2], A: c.Clear[3]},
		})
	}
	if info.Depth != nil {
		_, view := cl.d.halTexture(info.Depth.Texture)
		desc.DepthStencilAttachment = &hal.RenderPassDepthStencilAttachment{
			View:            view,
			DepthLoadOp:     info.Depth.Load.hal(),
			DepthStoreOp:    gputypes.StoreOpStore,
			DepthClearValue: info.Depth.Clear,
		}
	}
	cl.pass = cl.enc.BeginRenderPass(desc)
	cl.applyRenderState()
}

// EndRenderPass closes the open render pass.
func (cl *CommandList) EndRenderPass() {
	if cl.pass == nil {
		panic("gpu: EndRenderPass without an open render pass")
	}
	cl.pass.End()
	cl.pass = nil
	cl.viewport = nil
}

func (cl *CommandList) applyRenderState() {
	if cl.pass == nil {
		return
	}
	if cl.viewport != nil {
		v := cl.viewport
		cl.pass.SetViewport(v.X, v.Y, v.Width, v.Height, v.MinDepth, v.MaxDepth)
	}
	if cl.pipeline != nil && cl.pipeline.render != nil {
		cl.pass.SetPipeline(cl.pipeline.render)
		cl.bindGroups(cl.pass)
	}
	if cl.vertex.set {
		cl.pass.SetVertexBuffer(0, cl.vertex.buf, cl.vertex.offset)
	}
	if cl.index.set {
		cl.pass.SetIndexBuffer(cl.index.buf, cl.index.format, cl.index.offset)
	}
}

// groupBinder is the bind-group surface shared by render and compute
// pass encoders.
type groupBinder interface {
	SetBindGroup(index uint32, group hal.BindGroup, offsets []uint32)
}

func (cl *CommandList) bindGroups(p groupBinder) {
	slot := &cl.d.slots[cl.d.currentFrame]
	p.SetBindGroup(0, cl.d.heaps.current(), nil)
	p.SetBindGroup(1, slot.push.group, []uint32{cl.pushOffset})
}

// SetViewport sets the viewport of the open or next render pass.
func (cl *CommandList) SetViewport(v Viewport) {
	if v.MaxDepth == 0 {
		v.MaxDepth = 1
	}
	cl.viewport = &v
	if cl.pass != nil {
		cl.pass.SetViewport(v.X, v.Y, v.Width, v.Height, v.MinDepth, v.MaxDepth)
	}
}

// SetScissor sets the scissor rectangle of the open render pass.
func (cl *CommandList) SetScissor(r Rect) {
	if cl.pass == nil {
		panic("gpu: SetScissor outside a render pass")
	}
	cl.pass.SetScissorRect(r.X, r.Y, r.Width, r.Height)
}

// BindPipeline binds a graphics or compute pipeline.
func (cl *CommandList) BindPipeline(p Pipeline) {
	cl.pipeline = cl.d.pipeline(p)
	cl.rtPipeline = nil
	if cl.pass != nil && cl.pipeline.render != nil {
		cl.pass.SetPipeline(cl.pipeline.render)
		cl.bindGroups(cl.pass)
	}
}

// BindRayTracingPipeline binds p for DispatchRays.
func (cl *CommandList) BindRayTracingPipeline(p RayTracingPipeline) {
	cl.rtPipeline = cl.d.rtPipeline(p)
	cl.pipeline = nil
}

// BindVertexBuffer binds the vertex stream of the bound pipeline. It
// panics if no pipeline is bound.
func (cl *CommandList) BindVertexBuffer(b Buffer, offset uint64) {
	if cl.pipeline == nil {
		panic("gpu: BindVertexBuffer without a bound pipeline")
	}
	cl.vertex = vertexBinding{buf: cl.d.buffer(b).raw, offset: offset, set: true}
	if cl.pass != nil {
		cl.pass.SetVertexBuffer(0, cl.vertex.buf, offset)
	}
}

// BindIndexBuffer binds the index buffer for DrawIndexed.
func (cl *CommandList) BindIndexBuffer(b Buffer, format IndexFormat, offset uint64) {
	f := gputypes.IndexFormatUint32
	if format == IndexUint16 {
		f = gputypes.IndexFormatUint16
	}
	cl.index = indexBinding{buf: cl.d.buffer(b).raw, format: f, offset: offset, set: true}
	if cl.pass != nil {
		cl.pass.SetIndexBuffer(cl.index.buf, f, offset)
	}
}

// PushConstants sets the push-constant block for subsequent draws and
// dispatches. Blocks larger than PushConstantSize panic.
func (cl *CommandList) PushConstants(data []byte) {
	if len(data) > pushConstantSize {
		panic(fmt.Sprintf("gpu: push constants of %d bytes exceed %d", len(data), pushConstantSize))
	}
	slot := &cl.d.slots[cl.d.currentFrame]
	cl.pushOffset = slot.push.push(cl.d.queue, data)
	if cl.pass != nil {
		cl.pass.SetBindGroup(1, slot.push.group, []uint32{cl.pushOffset})
	}
}

func (cl *CommandList) checkDraw() {
	if cl.pass == nil {
		panic("gpu: draw outside a render pass")
	}
	if cl.pipeline == nil || cl.pipeline.render == nil {
		panic("gpu: draw without a bound graphics pipeline")
	}
}

// Draw draws vertexCount vertices.
func (cl *CommandList) Draw(vertexCount, firstVertex uint32) {
	cl.checkDraw()
	cl.pass.Draw(vertexCount, 1, firstVertex, 0)
}

// DrawInstanced draws instanceCount instances of vertexCount vertices.
func (cl *CommandList) DrawInstanced(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	cl.checkDraw()
	cl.pass.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
}

// DrawIndexed draws indexCount indices from the bound index buffer.
func (cl *CommandList) DrawIndexed(indexCount, firstIndex uint32, baseVertex int32) {
	cl.checkDraw()
	if !cl.index.set {
		panic("gpu: DrawIndexed without an index buffer")
	}
	cl.pass.DrawIndexed(indexCount, 1, firstIndex, baseVertex, 0)
}

func (cl *CommandList) computePass(label string, pipeline hal.ComputePipeline, x, y, z uint32) {
	if cl.pass != nil {
		panic("gpu: dispatch inside a render pass")
	}
	pass := cl.enc.BeginComputePass(&hal.ComputePassDescriptor{Label: label})
	pass.SetPipeline(pipeline)
	cl.bindGroups(pass)
	pass.Dispatch(x, y, z)
	pass.End()
}

// Dispatch runs the bound compute pipeline.
func (cl *CommandList) Dispatch(x, y, z uint32) {
	if cl.pipeline == nil || cl.pipeline.compute == nil {
		panic("gpu: Dispatch without a bound compute pipeline")
	}
	cl.computePass(cl.pipeline.label, cl.pipeline.compute, x, y, z)
}

// DispatchRays traces a width x height x depth grid of rays with the
// bound ray-tracing pipeline.
func (cl *CommandList) DispatchRays(raygen, miss, hit ShaderBindingTable, width, height, depth uint32) {
	st := cl.rtPipeline
	if st == nil {
		panic("gpu: DispatchRays without a bound ray-tracing pipeline")
	}
	cl.d.checkTable(st, raygen, GroupRayGen)
	cl.d.checkTable(st, miss, GroupMiss)
	cl.d.checkTable(st, hit, GroupHit)
	if depth == 0 {
		depth = 1
	}
	gx := (width + computeGroupSize - 1) / computeGroupSize
	gy := (height + computeGroupSize - 1) / computeGroupSize
	cl.computePass(st.info.Label, st.pipeline, gx, gy, depth)
}

// BuildAccelStruct builds a on the host and records the upload of the
// result. Building a TLAS whose instances reference an unbuilt BLAS
// panics.
func (cl *CommandList) BuildAccelStruct(a AccelStruct) {
	if cl.pass != nil {
		panic("gpu: BuildAccelStruct inside a render pass")
	}
	cl.d.recordBuild(cl.enc, cl.d.accel(a))
}

// BuildAccelStructs builds as in order like BuildAccelStruct, computing
// the hierarchies of the bottom-level structures concurrently first. A
// TLAS may reference any BLAS built earlier in as.
func (cl *CommandList) BuildAccelStructs(as ...AccelStruct) {
	if cl.pass != nil {
		panic("gpu: BuildAccelStructs inside a render pass")
	}
	sts := make([]*accelState, len(as))
	var blas []*accelState
	for i, a := range as {
		sts[i] = cl.d.accel(a)
		if sts[i].info.Kind == BLAS {
			blas = append(blas, sts[i])
		}
	}
	trees := make(map[*accelState]*bvh.Tree, len(blas))
	for i, t := range cl.d.buildTrees(blas) {
		trees[blas[i]] = t
	}
	for _, st := range sts {
		if t, ok := trees[st]; ok {
			cl.d.recordTree(cl.enc, st, t)
			continue
		}
		cl.d.recordBuild(cl.enc, st)
	}
}

// Barrier transitions t from before to after. Equal states record
// nothing. Barriers inside a render pass panic.
func (cl *CommandList) Barrier(t Texture, before, after ResourceState) {
	if before == after {
		return
	}
	if cl.pass != nil {
		panic("gpu: barrier inside a render pass")
	}
	raw, _ := cl.d.halTexture(t)
	aspect := aspectOf(cl.d.texture(t).info.Format)
	cl.enc.TransitionTextures([]hal.TextureBarrier{
		textureBarrier(raw, aspect, before.textureUsage(), after.textureUsage()),
	})
	cl.barriers = append(cl.barriers, BarrierRecord{Texture: t, Before: before, After: after, Aspect: aspect})
}

func aspectOf(format gputypes.TextureFormat) Aspect {
	if IsDepthFormat(format) {
		return AspectDepth
	}
	return AspectColor
}

// hal maps a onto the aspect of a barrier's subresource range. Color
// images transition every aspect.
func (a Aspect) hal() gputypes.TextureAspect {
	if a == AspectDepth {
		return gputypes.TextureAspectDepthOnly
	}
	return gputypes.TextureAspectAll
}

// textureBarrier covers every mip level and layer of raw in aspect a.
func textureBarrier(raw hal.Texture, a Aspect, before, after gputypes.TextureUsage) hal.TextureBarrier {
	return hal.TextureBarrier{
		Texture: raw,
		Range:   hal.TextureRange{Aspect: a.hal()},
		Usage:   hal.TextureUsageTransition{OldUsage: before, NewUsage: after},
	}
}

// BarrierLog returns the transitions recorded so far.
func (cl *CommandList) BarrierLog() []BarrierRecord {
	out := make([]BarrierRecord, len(cl.barriers))
	copy(out, cl.barriers)
	return out
}

// CopyBuffer records a buffer to buffer copy.
func (cl *CommandList) CopyBuffer(dst Buffer, dstOffset uint64, src Buffer, srcOffset, size uint64) {
	if cl.pass != nil {
		panic("gpu: CopyBuffer inside a render pass")
	}
	cl.enc.CopyBufferToBuffer(cl.d.buffer(src).raw, cl.d.buffer(dst).raw, []hal.BufferCopy{{
		SrcOffset: srcOffset,
		DstOffset: dstOffset,
		Size:      size,
	}})
}

// end closes the encoder and returns the command buffer.
func (cl *CommandList) end() (hal.CommandBuffer, error) {
	if cl.pass != nil {
		panic(fmt.Sprintf("gpu: %s submitted with an open render pass", cl.label))
	}
	cb, err := cl.enc.EndEncoding()
	cl.enc = nil
	return cb, err
}
