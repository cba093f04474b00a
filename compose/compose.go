// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package compose draws a render-graph attachment onto the swapchain with
// a fullscreen triangle.
package compose

import (
	"encoding/binary"
	"fmt"
	"io/fs"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/lumen/gpu"
	"github.com/gogpu/lumen/graph"
	"github.com/gogpu/lumen/internal/color"
	"github.com/gogpu/lumen/shaders"
)

// PassName is the name of the registered root pass.
const PassName = "Composition"

// DefaultInput is the attachment composed by default.
const DefaultInput = "RTOutput"

type options struct {
	fsys   fs.FS
	path   string
	input  string
	format gputypes.TextureFormat
	filter gpu.Filter
}

// Option configures a Pass.
type Option func(*options)

// WithShaderFS loads the fullscreen shaders from fsys.
func WithShaderFS(fsys fs.FS) Option {
	return func(o *options) { o.fsys = fsys }
}

// WithInput selects the attachment to compose. The default is RTOutput.
func WithInput(name string) Option {
	return func(o *options) { o.input = name }
}

// WithColorFormat sets the swapchain format the pipeline renders to. The
// default is RGBA8Unorm.
func WithColorFormat(f gputypes.TextureFormat) Option {
	return func(o *options) { o.format = f }
}

// WithNearestFilter samples the input without filtering.
func WithNearestFilter() Option {
	return func(o *options) { o.filter = gpu.FilterNearest }
}

// Pass is the composition pass.
type Pass struct {
	dev      *gpu.Device
	input    string
	vs, ps   gpu.Shader
	pipeline gpu.Pipeline
	sampler  gpu.Sampler

	push  [3]uint32
	gamma uint32
	draws int
}

// New creates the fullscreen pipeline and registers the root pass
// "Composition" on g, reading the input attachment.
func New(dev *gpu.Device, g *graph.Graph, opts ...Option) (*Pass, error) {
	o := options{
		fsys:   shaders.FS,
		path:   shaders.FullscreenTri,
		input:  DefaultInput,
		format: gputypes.TextureFormatRGBA8Unorm,
	}
	for _, opt := range opts {
		opt(&o)
	}
	p := &Pass{dev: dev, input: o.input, gamma: 1}
	if color.IsSRGB(o.format) {
		p.gamma = 0
	}

	var err error
	if p.vs, err = dev.LoadShader(o.fsys, o.path, gpu.StageVertex); err != nil {
		return nil, fmt.Errorf("compose: %w", err)
	}
	if p.ps, err = dev.LoadShader(o.fsys, o.path, gpu.StagePixel); err != nil {
		p.Destroy()
		return nil, fmt.Errorf("compose: %w", err)
	}
	p.pipeline, err = dev.CreatePipeline(gpu.PipelineInfo{
		Label:        "composition",
		VS:           p.vs,
		PS:           p.ps,
		Blend:        []gpu.BlendMode{gpu.BlendNone},
		ColorFormats: []gputypes.TextureFormat{o.format},
	})
	if err != nil {
		p.Destroy()
		return nil, fmt.Errorf("compose: %w", err)
	}
	p.sampler, err = dev.CreateSampler(gpu.SamplerInfo{
		Label:    "composition",
		Filter:   o.filter,
		AddressU: gpu.AddressClamp,
		AddressV: gpu.AddressClamp,
		AddressW: gpu.AddressClamp,
		MaxLOD:   1,
	})
	if err != nil {
		p.Destroy()
		return nil, fmt.Errorf("compose: %w", err)
	}

	g.AddPass(PassName, p.execute).AddInputAttachment(o.input)
	slogger().Debug("compose: pass registered", "input", o.input)
	return p, nil
}

func (p *Pass) execute(ctx *graph.PassContext) {
	p.push = [3]uint32{
		ctx.DescriptorIndex(p.input, gpu.HeapSampled),
		p.dev.SamplerIndex(p.sampler),
		p.gamma,
	}
	var data [12]byte
	for i, v := range p.push {
		binary.LittleEndian.PutUint32(data[i*4:], v)
	}

	ctx.Cmd.BindPipeline(p.pipeline)
	ctx.Cmd.PushConstants(data[:])
	ctx.Cmd.Draw(3, 0)
	p.draws++
}

// PushConstants returns the sampled image and sampler indices pushed by
// the last draw.
func (p *Pass) PushConstants() (image, sampler uint32) { return p.push[0], p.push[1] }

// EncodesGamma reports whether the shader applies the display gamma
// itself. sRGB targets encode on write and skip it.
func (p *Pass) EncodesGamma() bool { return p.gamma != 0 }

// Draws returns the number of recorded draws.
func (p *Pass) Draws() int { return p.draws }

// Destroy releases the pipeline, shaders and sampler.
func (p *Pass) Destroy() {
	if p.sampler.IsValid() {
		p.dev.DestroySampler(p.sampler)
		p.sampler = gpu.Sampler{}
	}
	if p.pipeline.IsValid() {
		p.dev.DestroyPipeline(p.pipeline)
		p.pipeline = gpu.Pipeline{}
	}
	for _, s := range []*gpu.Shader{&p.vs, &p.ps} {
		if s.IsValid() {
			p.dev.DestroyShader(*s)
			*s = gpu.Shader{}
		}
	}
}
