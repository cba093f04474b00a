// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package graph sequences the passes of a frame.
//
// Passes are registered by name and declare the attachments they write
// and read. Build allocates one image per attachment, and Execute runs the
// passes in registration order, inserting a barrier whenever an
// attachment's logical state has to change. Passes without outputs, and
// the last registered pass, are root passes: they render into the
// swapchain image.
//
// A typical frame:
//
//	g := graph.New(dev)
//	rt := g.AddPass("RayTracing", traceRays)
//	rt.AddOutputAttachment("RTOutput", graph.AttachmentInfo{Type: graph.RWTexture, SizeMode: graph.SizeSwapchainRelative})
//	comp := g.AddPass("Composition", compose)
//	comp.AddInputAttachment("RTOutput")
//	if err := g.Build(sc); err != nil { ... }
//
//	cmd := dev.BeginCommandList(gpu.QueueGraphics)
//	g.Execute(cmd, sc)
//	dev.SubmitCommandLists(ctx, sc)
package graph

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/lumen/gpu"
)

// ExecuteFunc records the commands of a pass.
type ExecuteFunc func(ctx *PassContext)

// PassContext is handed to a pass while it executes.
type PassContext struct {
	Cmd   *gpu.CommandList
	Pass  *Pass
	Graph *Graph
	// Width and Height are the size of the render area: the swapchain for
	// root passes, the first output otherwise.
	Width  uint32
	Height uint32
}

// Texture returns the image of the named attachment.
func (c *PassContext) Texture(name string) gpu.Texture { return c.Graph.Texture(name) }

// DescriptorIndex returns the bindless index of the named attachment.
func (c *PassContext) DescriptorIndex(name string, heap gpu.Heap) uint32 {
	return c.Graph.DescriptorIndex(name, heap)
}

// Pass is a registered render-graph pass.
type Pass struct {
	g       *Graph
	name    string
	index   int
	execute ExecuteFunc
	inputs  []*Attachment
	outputs []*Attachment
}

// Name returns the pass name.
func (p *Pass) Name() string { return p.name }

// Index returns the registration index of the pass.
func (p *Pass) Index() int { return p.index }

// Inputs returns the attachments the pass reads, in declaration order.
func (p *Pass) Inputs() []*Attachment { return append([]*Attachment(nil), p.inputs...) }

// Outputs returns the attachments the pass writes, in declaration order.
func (p *Pass) Outputs() []*Attachment { return append([]*Attachment(nil), p.outputs...) }

// AddOutputAttachment declares that p writes the named attachment.
func (p *Pass) AddOutputAttachment(name string, info AttachmentInfo) *Attachment {
	a := p.g.Attachment(name)
	a.info = info
	a.declared = true
	a.writers = addIndex(a.writers, p.index)
	p.outputs = addAttachment(p.outputs, a)
	p.g.built = false
	return a
}

// AddInputAttachment declares that p samples the named attachment.
func (p *Pass) AddInputAttachment(name string) *Attachment {
	a := p.g.Attachment(name)
	a.readers = addIndex(a.readers, p.index)
	p.inputs = addAttachment(p.inputs, a)
	p.g.built = false
	return a
}

// Graph is a render graph. It is not safe for concurrent use.
type Graph struct {
	dev  *gpu.Device
	opts options

	passes      []*Pass
	byName      map[string]*Pass
	attachments map[string]*Attachment
	order       []*Attachment

	width  uint32
	height uint32
	format gputypes.TextureFormat
	built  bool
	allocs int
}

// New returns an empty graph allocating its images on dev.
func New(dev *gpu.Device, opts ...Option) *Graph {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Graph{
		dev:         dev,
		opts:        o,
		byName:      make(map[string]*Pass),
		attachments: make(map[string]*Attachment),
	}
}

// Device returns the device the graph allocates on.
func (g *Graph) Device() *gpu.Device { return g.dev }

// RootPolicy returns the configured root pass policy.
func (g *Graph) RootPolicy() RootPolicy { return g.opts.rootPolicy }

// AddPass registers a pass. Registering an existing name returns the
// existing pass unchanged.
func (g *Graph) AddPass(name string, fn ExecuteFunc) *Pass {
	if p, ok := g.byName[name]; ok {
		return p
	}
	p := &Pass{g: g, name: name, index: len(g.passes), execute: fn}
	g.passes = append(g.passes, p)
	g.byName[name] = p
	g.built = false
	return p
}

// Pass returns the named pass, or nil.
func (g *Graph) Pass(name string) *Pass { return g.byName[name] }

// Passes returns the passes in registration order.
func (g *Graph) Passes() []*Pass { return append([]*Pass(nil), g.passes...) }

// Attachment returns the named attachment, creating it on first use.
func (g *Graph) Attachment(name string) *Attachment {
	if a, ok := g.attachments[name]; ok {
		return a
	}
	a := &Attachment{name: name}
	g.attachments[name] = a
	g.order = append(g.order, a)
	return a
}

// Lookup returns the named attachment without creating it.
func (g *Graph) Lookup(name string) (*Attachment, error) {
	a, ok := g.attachments[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAttachment, name)
	}
	return a, nil
}

// Texture returns the image of the named attachment. It panics if the
// attachment does not exist or is not allocated.
func (g *Graph) Texture(name string) gpu.Texture {
	a, err := g.Lookup(name)
	if err != nil {
		panic(err.Error())
	}
	if !a.texture.IsValid() {
		panic(fmt.Sprintf("graph: attachment %q is not allocated", name))
	}
	return a.texture
}

// DescriptorIndex returns the bindless index of the named attachment's
// image in heap.
func (g *Graph) DescriptorIndex(name string, heap gpu.Heap) uint32 {
	return g.dev.TextureIndex(g.Texture(name), heap)
}

// Size returns the swapchain size the graph was built or resized for.
func (g *Graph) Size() (width, height uint32) { return g.width, g.height }

// Built reports whether the graph is built and unchanged since.
func (g *Graph) Built() bool { return g.built }

// Allocations returns the number of attachment images allocated since the
// graph was created.
func (g *Graph) Allocations() int { return g.allocs }

// Build allocates the attachment images. Allocation walks the graph from
// the last registered pass: a pass allocates its outputs, then recurses
// into the writers of every input that has no image yet, or into the
// previous pass when it has no inputs. Passes the walk does not reach are
// walked afterwards, latest first. Images from an earlier build are
// retired.
func (g *Graph) Build(sc *gpu.Swapchain) error {
	if len(g.passes) == 0 {
		return ErrEmptyGraph
	}
	for _, a := range g.order {
		if len(a.readers) > 0 && len(a.writers) == 0 {
			return fmt.Errorf("%w: %q is read but never written", ErrUnknownAttachment, a.name)
		}
	}
	g.width, g.height, g.format = sc.Width(), sc.Height(), sc.Format()
	g.release()

	visited := make([]bool, len(g.passes))
	for i := len(g.passes) - 1; i >= 0; i-- {
		if err := g.recurseBuild(g.passes[i], visited); err != nil {
			g.release()
			return err
		}
	}
	g.built = true
	slogger().Info("graph: built",
		"passes", len(g.passes), "attachments", len(g.order), "width", g.width, "height", g.height)
	return nil
}

func (g *Graph) recurseBuild(p *Pass, visited []bool) error {
	if visited[p.index] {
		return nil
	}
	visited[p.index] = true
	for _, a := range p.outputs {
		if err := g.allocate(a); err != nil {
			return err
		}
	}
	for _, a := range p.inputs {
		if a.texture.IsValid() {
			continue
		}
		for _, w := range a.writers {
			if err := g.recurseBuild(g.passes[w], visited); err != nil {
				return err
			}
		}
	}
	if len(p.inputs) == 0 && p.index > 0 {
		return g.recurseBuild(g.passes[p.index-1], visited)
	}
	return nil
}

func (g *Graph) allocate(a *Attachment) error {
	if a.texture.IsValid() {
		return nil
	}
	info := a.info
	w, h := info.Width, info.Height
	if info.SizeMode == SizeSwapchainRelative {
		w, h = g.width, g.height
	}
	format := info.Format
	if format == gputypes.TextureFormat(0) {
		switch info.Type {
		case DepthStencil:
			format = gputypes.TextureFormatDepth32Float
		case RWTexture:
			format = g.dev.StorageImageFormat()
		default:
			format = g.format
		}
	}
	bind := info.Type.bind()
	if len(a.readers) > 0 {
		bind |= gpu.BindShaderResource
	}
	tex, err := g.dev.CreateTexture(gpu.TextureInfo{
		Label:        a.name,
		Width:        w,
		Height:       h,
		Format:       format,
		Bind:         bind,
		InitialState: info.Type.state(),
	}, nil)
	if err != nil {
		return fmt.Errorf("graph: allocate %q: %w", a.name, err)
	}
	a.texture = tex
	a.width, a.height = w, h
	a.state = info.Type.state()
	g.allocs++
	slogger().Debug("graph: attachment allocated",
		"name", a.name, "type", info.Type.String(), "width", w, "height", h)
	return nil
}

// release retires every allocated attachment image.
func (g *Graph) release() {
	for _, a := range g.order {
		if a.texture.IsValid() {
			g.dev.DestroyTexture(a.texture)
			a.texture = gpu.Texture{}
		}
	}
	g.built = false
}

// Resize reallocates the swapchain-relative attachments at the new size
// and returns them to the state their type implies. The old images are
// retired through the device's deferred destruction.
func (g *Graph) Resize(width, height uint32) error {
	if width == g.width && height == g.height {
		return nil
	}
	g.width, g.height = width, height
	for _, a := range g.order {
		if !a.declared || a.info.SizeMode != SizeSwapchainRelative || !a.texture.IsValid() {
			continue
		}
		g.dev.DestroyTexture(a.texture)
		a.texture = gpu.Texture{}
		if err := g.allocate(a); err != nil {
			g.built = false
			return err
		}
	}
	slogger().Info("graph: resized", "width", width, "height", height)
	return nil
}

// Destroy retires every attachment image.
func (g *Graph) Destroy() { g.release() }
