// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package ui

import (
	"encoding/binary"
	"math"
	"testing"
	"testing/fstest"

	"github.com/gogpu/gputypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/gogpu/lumen/gpu"
	"github.com/gogpu/lumen/gpu/gputest"
	"github.com/gogpu/lumen/graph"
	"github.com/gogpu/lumen/internal/color"
)

func TestRenderPassDrawsSprites(t *testing.T) {
	d := gputest.NewDevice(t)
	sc := gputest.NewSwapchain(t, d, 320, 200)
	g := graph.New(d)
	c := newTestContext()
	p, err := NewRenderPass(d, g, c)
	require.NoError(t, err)
	t.Cleanup(p.Destroy)
	require.True(t, g.IsRoot(g.Pass(PassName)))
	require.NoError(t, g.Build(sc))

	c.NewFrame()
	c.Button("Second")
	c.Button("First")
	slot := d.CurrentFrame()
	cmd := d.BeginCommandList(gpu.QueueGraphics)
	g.Execute(cmd, sc)

	assert.Equal(t, 2, p.Drawn())
	assert.Empty(t, c.Sprites(), "sprites are consumed by the pass")

	buf := p.SpriteBuffer(slot)
	data := d.Mapped(buf)
	f32 := func(b []byte, word int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(b[word*4:]))
	}
	assert.Equal(t, float32(8), f32(data, 1), "first sprite y")
	assert.Equal(t, float32(8+24+6), f32(data[SpriteSize:], 1), "second sprite y")

	push := p.PushConstants()
	u32 := func(word int) uint32 { return binary.LittleEndian.Uint32(push[word*4:]) }
	assert.Equal(t, d.BufferIndex(buf, gpu.HeapStorageBuffer), u32(16))
	assert.InDelta(t, 2.0/320, f32(push, 0), 1e-6, "ortho x scale")
	assert.InDelta(t, -2.0/200, f32(push, 5), 1e-6, "ortho y flips")
	gputest.Submit(t, d, sc)

	// An empty frame binds but draws nothing.
	c.NewFrame()
	cmd = d.BeginCommandList(gpu.QueueGraphics)
	g.Execute(cmd, sc)
	assert.Equal(t, 0, p.Drawn())
	assert.Equal(t, 2, p.Frames())
	gputest.Submit(t, d, sc)
}

func TestRenderPassUploadsAtlas(t *testing.T) {
	d := gputest.NewDevice(t)
	sc := gputest.NewSwapchain(t, d, 128, 64)
	g := graph.New(d)
	f, err := NewShapedFont(goregular.TTF, 14)
	require.NoError(t, err)
	c := New(f)
	p, err := NewRenderPass(d, g, c)
	require.NoError(t, err)
	t.Cleanup(p.Destroy)
	require.NoError(t, g.Build(sc))
	first := p.atlas

	c.NewFrame()
	c.Text("Hi")
	cmd := d.BeginCommandList(gpu.QueueGraphics)
	g.Execute(cmd, sc)
	gputest.Submit(t, d, sc)

	assert.NotEqual(t, first, p.atlas, "new glyphs replace the atlas texture")
	assert.Equal(t, f.Atlas().Version(), p.atlasVersion)
	info := d.TextureInfo(p.atlas)
	assert.Equal(t, uint32(DefaultAtlasSize), info.Width)
	assert.Equal(t, 2, p.Drawn())
}

func TestRenderPassMissingShader(t *testing.T) {
	d := gputest.NewDevice(t)
	g := graph.New(d)
	_, err := NewRenderPass(d, g, newTestContext(), WithShaderFS(fstest.MapFS{}))
	assert.ErrorIs(t, err, gpu.ErrShaderLoad)
	assert.Nil(t, g.Pass(PassName))
}

func TestRenderPassLinearizesForSRGB(t *testing.T) {
	d := gputest.NewDevice(t)
	sc := gputest.NewSwapchain(t, d, 64, 64)
	g := graph.New(d)
	c := newTestContext()
	p, err := NewRenderPass(d, g, c, WithColorFormat(gputypes.TextureFormatBGRA8UnormSrgb))
	require.NoError(t, err)
	t.Cleanup(p.Destroy)
	require.NoError(t, g.Build(sc))

	c.NewFrame()
	c.Button("OK")
	slot := d.CurrentFrame()
	cmd := d.BeginCommandList(gpu.QueueGraphics)
	g.Execute(cmd, sc)
	gputest.Submit(t, d, sc)

	frame := c.Style().Frame
	want := color.Linearize(frame)
	data := d.Mapped(p.SpriteBuffer(slot))
	for i := 0; i < 4; i++ {
		got := math.Float32frombits(binary.LittleEndian.Uint32(data[(8+i)*4:]))
		assert.InDelta(t, want[i], got, 1e-6)
	}
	assert.Less(t, want[0], frame[0])
}

func TestRenderPassSpriteOverflowPanics(t *testing.T) {
	d := gputest.NewDevice(t)
	sc := gputest.NewSwapchain(t, d, 64, 64)
	g := graph.New(d)
	c := newTestContext()
	p, err := NewRenderPass(d, g, c, WithMaxSprites(1))
	require.NoError(t, err)
	t.Cleanup(p.Destroy)
	require.NoError(t, g.Build(sc))

	c.NewFrame()
	c.Button("A")
	c.Button("B")
	cmd := d.BeginCommandList(gpu.QueueGraphics)
	assert.PanicsWithValue(t, "ui: 2 sprites exceed the sprite buffer of 1", func() { g.Execute(cmd, sc) })
}

func TestRenderPassAtlasUploadFailurePanics(t *testing.T) {
	// One sampled slot holds the first atlas, so the grown atlas cannot be
	// bound while the old one is still alive.
	d := gputest.NewDevice(t, gpu.WithHeapSizes(gpu.HeapSizes{Sampled: 1}))
	sc := gputest.NewSwapchain(t, d, 64, 64)
	g := graph.New(d)
	f, err := NewShapedFont(goregular.TTF, 14)
	require.NoError(t, err)
	c := New(f)
	p, err := NewRenderPass(d, g, c)
	require.NoError(t, err)
	t.Cleanup(p.Destroy)
	require.NoError(t, g.Build(sc))

	c.NewFrame()
	c.Text("Hi")
	cmd := d.BeginCommandList(gpu.QueueGraphics)
	defer func() {
		r := recover()
		require.NotNil(t, r, "atlas upload failure must panic")
		msg, ok := r.(string)
		require.True(t, ok)
		assert.Contains(t, msg, "ui: atlas")
		assert.Contains(t, msg, "heap exhausted")
	}()
	g.Execute(cmd, sc)
}
