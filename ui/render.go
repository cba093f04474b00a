// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package ui

import (
	"encoding/binary"
	"fmt"
	"io/fs"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/lumen/gpu"
	"github.com/gogpu/lumen/graph"
	"github.com/gogpu/lumen/internal/color"
	"github.com/gogpu/lumen/shaders"
)

// PassName is the name of the registered UI pass.
const PassName = "UI"

// DefaultMaxSprites is the default capacity of a sprite buffer.
const DefaultMaxSprites = 8192

// pushSize is the projection matrix followed by the sprite buffer, atlas
// and sampler indices.
const pushSize = 16*4 + 3*4

type renderOptions struct {
	fsys       fs.FS
	path       string
	format     gputypes.TextureFormat
	maxSprites int
}

// RenderOption configures a RenderPass.
type RenderOption func(*renderOptions)

// WithShaderFS loads the UI shaders from fsys.
func WithShaderFS(fsys fs.FS) RenderOption {
	return func(o *renderOptions) { o.fsys = fsys }
}

// WithColorFormat sets the format of the target the pass draws to. The
// default is RGBA8Unorm.
func WithColorFormat(f gputypes.TextureFormat) RenderOption {
	return func(o *renderOptions) { o.format = f }
}

// WithMaxSprites sets how many sprites a frame may draw. Extra sprites
// are dropped with a warning.
func WithMaxSprites(n int) RenderOption {
	return func(o *renderOptions) {
		if n > 0 {
			o.maxSprites = n
		}
	}
}

// RenderPass draws the sprites of a Context as one instanced draw of six
// vertices per sprite.
type RenderPass struct {
	dev        *gpu.Device
	ctx        *Context
	maxSprites int

	vs, ps   gpu.Shader
	pipeline gpu.Pipeline
	sampler  gpu.Sampler
	buffers  []gpu.Buffer

	atlas        gpu.Texture
	atlasVersion int

	push   [pushSize]byte
	linear bool
	drawn  int
	frames int
}

// NewRenderPass creates the sprite pipeline and the per-frame sprite
// buffers and registers the pass "UI" on g. The pass writes no
// attachments, so it must be the last registered pass to draw onto the
// swapchain.
func NewRenderPass(dev *gpu.Device, g *graph.Graph, ctx *Context, opts ...RenderOption) (*RenderPass, error) {
	o := renderOptions{
		fsys:       shaders.FS,
		path:       shaders.UI,
		format:     gputypes.TextureFormatRGBA8Unorm,
		maxSprites: DefaultMaxSprites,
	}
	for _, opt := range opts {
		opt(&o)
	}
	p := &RenderPass{
		dev:          dev,
		ctx:          ctx,
		maxSprites:   o.maxSprites,
		atlasVersion: -1,
		linear:       color.IsSRGB(o.format),
	}

	var err error
	if p.vs, err = dev.LoadShader(o.fsys, o.path, gpu.StageVertex); err != nil {
		return nil, fmt.Errorf("ui: %w", err)
	}
	if p.ps, err = dev.LoadShader(o.fsys, o.path, gpu.StagePixel); err != nil {
		p.Destroy()
		return nil, fmt.Errorf("ui: %w", err)
	}
	p.pipeline, err = dev.CreatePipeline(gpu.PipelineInfo{
		Label:        "ui",
		VS:           p.vs,
		PS:           p.ps,
		Blend:        []gpu.BlendMode{gpu.BlendPremultiplied},
		ColorFormats: []gputypes.TextureFormat{o.format},
	})
	if err != nil {
		p.Destroy()
		return nil, fmt.Errorf("ui: %w", err)
	}
	p.sampler, err = dev.CreateSampler(gpu.SamplerInfo{
		Label:    "ui_atlas",
		Filter:   gpu.FilterLinear,
		AddressU: gpu.AddressClamp,
		AddressV: gpu.AddressClamp,
		AddressW: gpu.AddressClamp,
		MaxLOD:   1,
	})
	if err != nil {
		p.Destroy()
		return nil, fmt.Errorf("ui: %w", err)
	}

	p.buffers = make([]gpu.Buffer, dev.FramesInFlight())
	for i := range p.buffers {
		p.buffers[i], err = dev.CreateBuffer(gpu.BufferInfo{
			Label:         fmt.Sprintf("ui_sprites_%d", i),
			Size:          uint64(o.maxSprites) * SpriteSize,
			Stride:        SpriteSize,
			Usage:         gpu.UsageUpload,
			Bind:          gpu.BindShaderResource,
			Misc:          gpu.MiscStructured,
			PersistentMap: true,
		}, nil)
		if err != nil {
			p.Destroy()
			return nil, fmt.Errorf("ui: %w", err)
		}
	}
	if err := p.syncAtlas(); err != nil {
		p.Destroy()
		return nil, err
	}

	g.AddPass(PassName, p.execute)
	slogger().Debug("ui: pass registered", "max_sprites", o.maxSprites, "buffers", len(p.buffers))
	return p, nil
}

// syncAtlas uploads the glyph atlas when glyphs were added since the last
// upload. A font without an atlas gets a single opaque texel.
func (p *RenderPass) syncAtlas() error {
	a := p.ctx.Font().Atlas()
	if a == nil {
		if p.atlas.IsValid() {
			return nil
		}
		return p.uploadAtlas(1, 1, []byte{0xff}, 0)
	}
	v := a.Version()
	if p.atlas.IsValid() && v == p.atlasVersion {
		return nil
	}
	w, h := a.Size()
	pix := make([]byte, len(a.Image().Pix))
	copy(pix, a.Image().Pix)
	return p.uploadAtlas(w, h, pix, v)
}

func (p *RenderPass) uploadAtlas(w, h int, pix []byte, version int) error {
	t, err := p.dev.CreateTexture(gpu.TextureInfo{
		Label:  "ui_atlas",
		Width:  uint32(w), //nolint:gosec // atlas sizes are small
		Height: uint32(h), //nolint:gosec // atlas sizes are small
		Format: gputypes.TextureFormatR8Unorm,
		Bind:   gpu.BindShaderResource,
	}, pix)
	if err != nil {
		return fmt.Errorf("ui: atlas: %w", err)
	}
	if p.atlas.IsValid() {
		p.dev.DestroyTexture(p.atlas)
	}
	p.atlas = t
	p.atlasVersion = version
	slogger().Debug("ui: atlas uploaded", "width", w, "height", h, "version", version)
	return nil
}

func (p *RenderPass) execute(ctx *graph.PassContext) {
	if err := p.syncAtlas(); err != nil {
		panic(fmt.Sprintf("%v (frame %d)", err, p.frames))
	}
	sprites := p.ctx.Sprites()
	if len(sprites) > p.maxSprites {
		panic(fmt.Sprintf("ui: %d sprites exceed the sprite buffer of %d", len(sprites), p.maxSprites))
	}
	buf := p.buffers[p.dev.CurrentFrame()%len(p.buffers)]
	dst := p.dev.Mapped(buf)
	for i := range sprites {
		if p.linear {
			sprites[i].Color = color.Linearize(sprites[i].Color)
		}
		sprites[i].Encode(dst[i*SpriteSize:])
	}

	proj := mgl32.Ortho(0, float32(ctx.Width), float32(ctx.Height), 0, -1, 1)
	for i, v := range proj {
		binary.LittleEndian.PutUint32(p.push[i*4:], math.Float32bits(v))
	}
	binary.LittleEndian.PutUint32(p.push[64:], p.dev.BufferIndex(buf, gpu.HeapStorageBuffer))
	binary.LittleEndian.PutUint32(p.push[68:], p.dev.TextureIndex(p.atlas, gpu.HeapSampled))
	binary.LittleEndian.PutUint32(p.push[72:], p.dev.SamplerIndex(p.sampler))

	ctx.Cmd.BindPipeline(p.pipeline)
	ctx.Cmd.PushConstants(p.push[:])
	if n := len(sprites); n > 0 {
		ctx.Cmd.DrawInstanced(6, uint32(n), 0, 0) //nolint:gosec // bounded by maxSprites
	}
	p.drawn = len(sprites)
	p.frames++
	p.ctx.Reset()
}

// Drawn returns the number of sprites drawn by the last execution.
func (p *RenderPass) Drawn() int { return p.drawn }

// Frames returns the number of executions.
func (p *RenderPass) Frames() int { return p.frames }

// PushConstants returns the bytes pushed by the last execution.
func (p *RenderPass) PushConstants() []byte { return p.push[:] }

// SpriteBuffer returns the sprite buffer of frame slot i.
func (p *RenderPass) SpriteBuffer(i int) gpu.Buffer { return p.buffers[i] }

// Destroy releases the GPU objects of the pass.
func (p *RenderPass) Destroy() {
	for i, b := range p.buffers {
		if b.IsValid() {
			p.dev.DestroyBuffer(b)
			p.buffers[i] = gpu.Buffer{}
		}
	}
	if p.atlas.IsValid() {
		p.dev.DestroyTexture(p.atlas)
		p.atlas = gpu.Texture{}
	}
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
