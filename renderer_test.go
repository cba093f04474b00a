// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package lumen

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/lumen/gpu"
	"github.com/gogpu/lumen/gpu/gputest"
	"github.com/gogpu/lumen/input"
	"github.com/gogpu/lumen/raytrace"
	"github.com/gogpu/lumen/scene"
	"github.com/gogpu/lumen/ui"
)

func newTestRenderer(t *testing.T, w, h uint32, opts ...Option) (*Renderer, *gpu.ReadbackPresenter) {
	t.Helper()
	d := gputest.NewDevice(t)
	p := gpu.NewReadbackPresenter(w, h)
	opts = append([]Option{WithSize(w, h), WithPresenter(p)}, opts...)
	r, err := NewWithDevice(d, scene.CornellBox(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, r.Close()) })
	return r, p
}

func TestRendererFrames(t *testing.T) {
	r, p := newTestRenderer(t, 64, 48)
	require.True(t, r.Graph().Built())
	assert.Equal(t, uint32(64), r.Swapchain().Width())

	for i := 0; i < 3; i++ {
		require.NoError(t, r.Frame(1.0/60))
	}
	assert.True(t, r.RayTracing().Built())
	assert.Equal(t, 3, p.Count())
	require.NotNil(t, p.Last())
	assert.Equal(t, 64, p.Last().Bounds().Dx())
	assert.Equal(t, 48, p.Last().Bounds().Dy())

	s := r.Stats()
	assert.Equal(t, uint64(3), s.Frames)
	assert.Equal(t, uint64(3), s.GPU.Frames)
	assert.Equal(t, 3, s.Dispatches)
	assert.Equal(t, uint32(12), s.Samples, "a still camera keeps accumulating")
	assert.False(t, r.RayTracing().PushBlock().Reset)
	assert.Positive(t, s.AverageFrameTime())
}

func TestRendererCameraUniforms(t *testing.T) {
	cam := scene.NewCamera(mgl32.Vec3{1, 2, 3}, 50)
	r, _ := newTestRenderer(t, 32, 32, WithCamera(cam))
	assert.Same(t, cam, r.Camera())

	slot := r.Device().CurrentFrame()
	require.NoError(t, r.Frame(0))
	data := r.Device().Mapped(r.uniforms[slot])
	f32 := func(word int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(data[word*4:]))
	}
	assert.Equal(t, [4]float32{1, 2, 3, 1}, [4]float32{f32(32), f32(33), f32(34), f32(35)})
	assert.Equal(t,
		r.Device().BufferIndex(r.uniforms[slot], gpu.HeapUniform),
		r.RayTracing().PushBlock().CameraBuffer)
}

func TestRendererCameraMovementResets(t *testing.T) {
	r, _ := newTestRenderer(t, 32, 32)
	require.NoError(t, r.Frame(0.1))
	require.NoError(t, r.Frame(0.1))
	assert.Equal(t, uint32(8), r.Stats().Samples)

	before := r.Camera().Position
	r.OnKey(input.KeyW, input.Press, 0)
	require.NoError(t, r.Frame(0.1))
	assert.NotEqual(t, before, r.Camera().Position)
	assert.True(t, r.RayTracing().PushBlock().Reset)
	assert.Equal(t, uint32(8), r.Stats().Samples)

	r.OnKey(input.KeyW, input.Release, 0)
	require.NoError(t, r.Frame(0.1))
	assert.False(t, r.RayTracing().PushBlock().Reset)
	assert.Equal(t, uint32(12), r.Stats().Samples)
}

func TestRendererResize(t *testing.T) {
	r, p := newTestRenderer(t, 64, 48)
	require.NoError(t, r.Frame(0))

	p.Resize(80, 60)
	require.NoError(t, r.Frame(0), "an out-of-date swapchain skips the frame")
	s := r.Stats()
	assert.Equal(t, uint64(1), s.Skipped)
	assert.Equal(t, 1, s.Resizes)
	assert.Equal(t, 1, p.Count())
	assert.Equal(t, uint32(80), r.Swapchain().Width())
	w, h := r.Graph().Size()
	assert.Equal(t, [2]uint32{80, 60}, [2]uint32{w, h})

	require.NoError(t, r.Frame(0))
	block := r.RayTracing().PushBlock()
	assert.Equal(t, [2]uint32{80, 60}, [2]uint32{block.Width, block.Height})
	assert.True(t, block.Reset)
	assert.Equal(t, 80, p.Last().Bounds().Dx())

	// Same size and zero size are no-ops.
	sc := r.Swapchain()
	require.NoError(t, r.OnResize(80, 60))
	require.NoError(t, r.OnResize(0, 0))
	assert.Same(t, sc, r.Swapchain())
	assert.Equal(t, 1, r.Stats().Resizes)
}

func TestRendererUI(t *testing.T) {
	var clicks int
	skybox := true
	r, _ := newTestRenderer(t, 200, 120, WithFont(ui.NewMonoFont(8, 16)), WithUI(func(c *ui.Context) {
		if c.Button("Reset") {
			clicks++
		}
		c.Checkbox("Skybox", &skybox)
	}))
	require.NoError(t, r.Frame(0))
	assert.Equal(t, 3, r.Stats().Sprites, "button frame, box and check mark")

	w := r.UI().Find("Reset", ui.KindButton)
	require.NotNil(t, w)
	x, y := w.Rect.X+w.Rect.W/2, w.Rect.Y+w.Rect.H/2
	r.OnMouseMove(x, y)
	r.OnMouseButton(input.MouseLeft, input.Press, 0)
	r.OnMouseButton(input.MouseLeft, input.Release, 0)
	assert.Equal(t, 3, r.UI().Pending())

	require.NoError(t, r.Frame(0))
	assert.Equal(t, 1, clicks)
	assert.True(t, skybox)
	assert.Equal(t, 0, r.UI().Pending())

	require.NoError(t, r.Frame(0))
	assert.Equal(t, 1, clicks, "a click is reported once")
}

func TestRendererSettings(t *testing.T) {
	r, _ := newTestRenderer(t, 32, 32, WithSettings(raytrace.Settings{SamplesPerPixel: 2, RayBounces: 3}))
	require.NoError(t, r.Frame(0))
	require.NoError(t, r.Frame(0))
	assert.Equal(t, uint32(4), r.Stats().Samples)

	r.SetSettings(r.Settings())
	require.NoError(t, r.Frame(0))
	assert.False(t, r.RayTracing().PushBlock().Reset, "unchanged settings keep accumulating")

	r.SetSettings(raytrace.Settings{SamplesPerPixel: 1, RayBounces: 8})
	require.NoError(t, r.Frame(0))
	block := r.RayTracing().PushBlock()
	assert.True(t, block.Reset)
	assert.Equal(t, uint32(8), block.RayBounces)
	assert.Equal(t, uint32(1), block.SamplesPerPixel)
}

func TestRendererClose(t *testing.T) {
	d := gputest.NewDevice(t)
	r, err := NewWithDevice(d, scene.CornellBox(), WithSize(16, 16))
	require.NoError(t, err)
	require.NoError(t, r.Frame(0))
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
	assert.ErrorIs(t, r.Frame(0), ErrClosed)
	assert.ErrorIs(t, r.OnResize(8, 8), ErrClosed)

	// The device belongs to the caller and stays usable.
	_, err = d.CreateBuffer(gpu.BufferInfo{Size: 16, Usage: gpu.UsageUpload}, nil)
	assert.NoError(t, err)
}

func TestNewRendererErrors(t *testing.T) {
	d := gputest.NewDevice(t)
	_, err := NewWithDevice(d, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = NewWithDevice(nil, scene.CornellBox())
	assert.ErrorIs(t, err, gpu.ErrNoDevice)

	_, err = NewWithDevice(d, scene.NewMemory(), WithSize(16, 16))
	assert.ErrorIs(t, err, raytrace.ErrEmptyScene)
}

// openNoop opens a HAL device on the noop backend.
func openNoop(t *testing.T) (hal.Device, hal.Queue) {
	t.Helper()
	instance, err := noop.API{}.CreateInstance(nil)
	require.NoError(t, err)
	adapters := instance.EnumerateAdapters(nil)
	require.NotEmpty(t, adapters)
	open, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	require.NoError(t, err)
	t.Cleanup(func() {
		open.Device.Destroy()
		instance.Destroy()
	})
	return open.Device, open.Queue
}

func TestNewOwnsWrapperDevice(t *testing.T) {
	dev, queue := openNoop(t)
	r, err := New(dev, queue, scene.CornellBox(), WithSize(16, 16), WithFramesInFlight(3))
	require.NoError(t, err)
	assert.Equal(t, 3, r.Device().FramesInFlight())
	require.NoError(t, r.Frame(0))
	require.NoError(t, r.Close())

	_, err = r.Device().CreateBuffer(gpu.BufferInfo{Size: 16, Usage: gpu.UsageUpload}, nil)
	assert.ErrorIs(t, err, gpu.ErrDeviceClosed)
}

type testProvider struct {
	dev    any
	queue  any
	format gputypes.TextureFormat
}

func (testProvider) Device() gpucontext.Device               { return nil }
func (testProvider) Queue() gpucontext.Queue                 { return nil }
func (testProvider) Adapter() gpucontext.Adapter             { return nil }
func (testProvider) AdapterInfo() gpucontext.AdapterInfo     { return gpucontext.AdapterInfo{} }
func (p testProvider) SurfaceFormat() gputypes.TextureFormat { return p.format }
func (p testProvider) HalDevice() any                        { return p.dev }
func (p testProvider) HalQueue() any                         { return p.queue }

type plainProvider struct{ testProvider }

func (plainProvider) HalDevice() {}

func TestNewFromProvider(t *testing.T) {
	dev, queue := openNoop(t)
	p := testProvider{dev: dev, queue: queue, format: gputypes.TextureFormatRGBA8UnormSrgb}
	r, err := NewFromProvider(p, scene.CornellBox(), WithSize(16, 16))
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, r.Close()) })
	assert.Equal(t, gputypes.TextureFormatRGBA8UnormSrgb, r.Swapchain().Format(), "surface format")
	assert.False(t, r.Composition().EncodesGamma(), "sRGB surfaces encode on write")
	require.NoError(t, r.Frame(0))

	_, err = NewFromProvider(testProvider{dev: "device", queue: queue}, scene.CornellBox())
	assert.ErrorIs(t, err, ErrNoProvider)
	_, err = NewFromProvider(testProvider{dev: dev}, scene.CornellBox())
	assert.ErrorIs(t, err, ErrNoProvider)
	_, err = NewFromProvider(plainProvider{}, scene.CornellBox())
	assert.ErrorIs(t, err, ErrNoProvider)
}
