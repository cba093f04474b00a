// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package graph

import (
	"github.com/gogpu/lumen/gpu"
)

// frame tracks the swapchain render pass while a graph executes.
type frame struct {
	g    *Graph
	cmd  *gpu.CommandList
	sc   *gpu.Swapchain
	swap gpu.Texture

	swapState gpu.ResourceState
	open      bool
	cleared   bool
}

// IsRoot reports whether p renders into the swapchain: it has no outputs
// or it is the last registered pass.
func (g *Graph) IsRoot(p *Pass) bool {
	return len(p.outputs) == 0 || p.index == len(g.passes)-1
}

// Execute records every pass into cmd in registration order. Attachment
// states chain from the previous frame and a barrier is recorded only when
// a state changes. The swapchain image is expected in StatePresent and is
// returned to it.
func (g *Graph) Execute(cmd *gpu.CommandList, sc *gpu.Swapchain) {
	if !g.built {
		panic("graph: Execute before Build")
	}
	f := &frame{g: g, cmd: cmd, sc: sc, swap: sc.Current(), swapState: gpu.StatePresent}
	for _, p := range g.passes {
		f.run(p)
	}
	f.closeSwap()
	f.transitionSwap(gpu.StatePresent)
}

func (f *frame) run(p *Pass) {
	if f.needsBarriers(p) {
		f.closeSwap()
		for _, a := range p.outputs {
			f.transition(a, a.info.Type.state())
		}
		for _, a := range p.inputs {
			f.transition(a, gpu.StateShaderResource)
		}
	}

	ctx := &PassContext{Cmd: f.cmd, Pass: p, Graph: f.g}
	if f.g.IsRoot(p) {
		f.openSwap()
		ctx.Width, ctx.Height = f.sc.Width(), f.sc.Height()
		f.cmd.SetViewport(gpu.Viewport{Width: float32(ctx.Width), Height: float32(ctx.Height), MaxDepth: 1})
		f.invoke(p, ctx)
		if f.g.opts.rootPolicy == RootSeparate || p.index == len(f.g.passes)-1 {
			f.closeSwap()
		}
		return
	}

	f.closeSwap()
	first := p.outputs[0]
	ctx.Width, ctx.Height = first.width, first.height
	if first.info.Type == RWTexture {
		f.invoke(p, ctx)
		return
	}

	info := gpu.RenderPassInfo{Label: p.name}
	for _, a := range p.outputs {
		switch a.info.Type {
		case RenderTarget:
			info.Colors = append(info.Colors, gpu.ColorAttachment{Texture: a.texture, Load: gpu.LoadClear})
		case DepthStencil:
			if info.Depth == nil {
				info.Depth = &gpu.DepthAttachment{Texture: a.texture, Load: gpu.LoadClear, Clear: 1}
			}
		}
	}
	f.cmd.BeginRenderPass(info)
	f.cmd.SetViewport(gpu.Viewport{Width: float32(ctx.Width), Height: float32(ctx.Height), MaxDepth: 1})
	f.invoke(p, ctx)
	f.cmd.EndRenderPass()
}

func (f *frame) invoke(p *Pass, ctx *PassContext) {
	if p.execute != nil {
		p.execute(ctx)
	}
}

func (f *frame) needsBarriers(p *Pass) bool {
	for _, a := range p.outputs {
		if a.state != a.info.Type.state() {
			return true
		}
	}
	for _, a := range p.inputs {
		if a.state != gpu.StateShaderResource {
			return true
		}
	}
	return false
}

func (f *frame) transition(a *Attachment, to gpu.ResourceState) {
	if a.state == to {
		return
	}
	f.cmd.Barrier(a.texture, a.state, to)
	slogger().Debug("graph: barrier", "attachment", a.name, "from", a.state.String(), "to", to.String())
	a.state = to
}

func (f *frame) transitionSwap(to gpu.ResourceState) {
	if f.swapState == to {
		return
	}
	f.cmd.Barrier(f.swap, f.swapState, to)
	f.swapState = to
}

// openSwap begins the swapchain render pass unless it is open. Only the
// first opening of a frame clears the image.
func (f *frame) openSwap() {
	if f.open {
		return
	}
	f.transitionSwap(gpu.StateRenderTarget)
	load := gpu.LoadClear
	if f.cleared {
		load = gpu.LoadKeep
	}
	f.cmd.BeginRenderPass(gpu.RenderPassInfo{
		Label:  "swapchain",
		Colors: []gpu.ColorAttachment{{Texture: f.swap, Load: load, Clear: f.g.opts.clearColor}},
	})
	f.open = true
	f.cleared = true
}

func (f *frame) closeSwap() {
	if !f.open {
		return
	}
	f.cmd.EndRenderPass()
	f.open = false
}
