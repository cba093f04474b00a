// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package lumen

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/gogpu/lumen/compose"
	"github.com/gogpu/lumen/gpu"
	"github.com/gogpu/lumen/graph"
	"github.com/gogpu/lumen/input"
	"github.com/gogpu/lumen/raytrace"
	"github.com/gogpu/lumen/scene"
	"github.com/gogpu/lumen/ui"
)

// defaultFontSize is the pixel size of the default UI font.
const defaultFontSize = 15

// FrameStats describes the frames a Renderer has produced.
type FrameStats struct {
	// Frames is the number of submitted frames.
	Frames uint64
	// Skipped counts frames dropped because the swapchain was out of date.
	Skipped uint64
	// Resizes counts swapchain recreations.
	Resizes int
	// FrameTime is the CPU time spent recording and submitting the last
	// frame.
	FrameTime time.Duration
	// TotalTime is the sum of all frame times.
	TotalTime time.Duration
	// Samples is the number of samples accumulated per pixel.
	Samples uint32
	// Dispatches is the number of ray dispatches recorded.
	Dispatches int
	// Sprites is the number of UI sprites drawn by the last frame.
	Sprites int
	// GPU holds the device counters.
	GPU gpu.Stats
}

// AverageFrameTime returns TotalTime divided by Frames.
func (s FrameStats) AverageFrameTime() time.Duration {
	if s.Frames == 0 {
		return 0
	}
	return s.TotalTime / time.Duration(s.Frames) //nolint:gosec // frame counts fit
}

// Renderer drives the per-frame loop: it owns the swapchain, the render
// graph with its ray-tracing, composition and UI passes, the camera and
// the per-frame camera uniforms.
//
// Event methods may be called from any goroutine; Frame, OnResize and
// Close must be called from the goroutine that renders.
type Renderer struct {
	dev   *gpu.Device
	owned bool
	opts  options

	sc        *gpu.Swapchain
	presenter gpu.Presenter
	g         *graph.Graph
	rt        *raytrace.Pass
	comp      *compose.Pass
	ui        *ui.Context
	uiPass    *ui.RenderPass
	uniforms  []gpu.Buffer
	cam       *scene.Camera

	mu    sync.Mutex
	kb    input.Keyboard
	mouse input.Mouse

	stats  FrameStats
	closed bool
}

// New creates a Renderer on an opened HAL device. The caller keeps
// ownership of dev and queue; Close releases only what the Renderer
// created.
func New(dev hal.Device, queue hal.Queue, s scene.Scene, opts ...Option) (*Renderer, error) {
	o := resolveOptions(opts)
	d, err := gpu.NewDevice(dev, queue, gpu.WithFramesInFlight(o.framesInFlight))
	if err != nil {
		return nil, fmt.Errorf("lumen: %w", err)
	}
	r, err := newRenderer(d, s, o)
	if err != nil {
		_ = d.Close()
		return nil, err
	}
	r.owned = true
	return r, nil
}

// NewWithDevice creates a Renderer on an existing device. The device is
// not closed by Close.
func NewWithDevice(d *gpu.Device, s scene.Scene, opts ...Option) (*Renderer, error) {
	if d == nil {
		return nil, fmt.Errorf("lumen: %w", gpu.ErrNoDevice)
	}
	return newRenderer(d, s, resolveOptions(opts))
}

// NewFromProvider creates a Renderer sharing the device of a host
// application. The provider must implement HalDevice() any and
// HalQueue() any returning hal.Device and hal.Queue. Its surface format
// is used unless WithFormat overrides it.
func NewFromProvider(p gpucontext.DeviceProvider, s scene.Scene, opts ...Option) (*Renderer, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := p.(halProvider)
	if !ok {
		return nil, ErrNoProvider
	}
	dev, ok := hp.HalDevice().(hal.Device)
	if !ok || dev == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNoProvider)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNoProvider)
	}
	if f := p.SurfaceFormat(); f != gputypes.TextureFormatUndefined {
		opts = append([]Option{WithFormat(f)}, opts...)
	}
	return New(dev, queue, s, opts...)
}

func resolveOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger != nil {
		SetLogger(o.logger)
	}
	return o
}

func newRenderer(d *gpu.Device, s scene.Scene, o options) (r *Renderer, err error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil scene", ErrInvalidConfig)
	}
	r = &Renderer{dev: d, opts: o, presenter: o.presenter}
	if r.presenter == nil {
		r.presenter = gpu.NullPresenter{}
	}
	defer func() {
		if err != nil {
			r.release()
		}
	}()

	r.sc, err = d.CreateSwapchain(r.swapchainInfo(o.width, o.height), r.presenter, nil)
	if err != nil {
		return nil, fmt.Errorf("lumen: %w", err)
	}

	r.g = graph.New(d)
	r.rt, err = raytrace.New(d, r.g, s,
		raytrace.WithSettings(o.settings),
		raytrace.WithShaderFS(o.shaderFS))
	if err != nil {
		return nil, err
	}
	r.comp, err = compose.New(d, r.g,
		compose.WithColorFormat(r.sc.Format()),
		compose.WithShaderFS(o.shaderFS))
	if err != nil {
		return nil, err
	}

	font := o.font
	if font == nil {
		font = defaultFont()
	}
	r.ui = ui.New(font)
	r.uiPass, err = ui.NewRenderPass(d, r.g, r.ui,
		ui.WithColorFormat(r.sc.Format()),
		ui.WithShaderFS(o.shaderFS))
	if err != nil {
		return nil, err
	}

	if err = r.g.Build(r.sc); err != nil {
		return nil, fmt.Errorf("lumen: %w", err)
	}
	if err = r.rt.Init(); err != nil {
		return nil, err
	}

	r.uniforms = make([]gpu.Buffer, d.FramesInFlight())
	for i := range r.uniforms {
		r.uniforms[i], err = d.CreateBuffer(gpu.BufferInfo{
			Label:         fmt.Sprintf("lumen_camera_%d", i),
			Size:          raytrace.CameraUniformSize,
			Usage:         gpu.UsageUpload,
			Bind:          gpu.BindUniform,
			PersistentMap: true,
		}, nil)
		if err != nil {
			return nil, fmt.Errorf("lumen: %w", err)
		}
	}

	r.cam = o.camera
	if r.cam == nil {
		r.cam = scene.DefaultCamera()
		r.cam.SetFOV(o.fov)
	}
	slogger().Info("lumen: renderer ready",
		"width", o.width, "height", o.height,
		"framesInFlight", d.FramesInFlight(),
		"primitives", r.rt.PrimitiveCount())
	return r, nil
}

// defaultFont returns Go Regular, or a fixed-width metric font when it
// cannot be loaded.
func defaultFont() ui.Font {
	f, err := ui.NewShapedFont(goregular.TTF, defaultFontSize)
	if err != nil {
		slogger().Warn("lumen: default font unavailable", "err", err)
		return ui.NewMonoFont(8, 16)
	}
	return f
}

func (r *Renderer) swapchainInfo(width, height uint32) gpu.SwapchainInfo {
	return gpu.SwapchainInfo{
		Width:  width,
		Height: height,
		Images: r.opts.images,
		VSync:  r.opts.vsync,
		Format: r.opts.format,
	}
}

// OnResize recreates the swapchain and the swapchain-relative attachments
// at the new size. A zero size, as reported for minimized windows, is
// ignored.
func (r *Renderer) OnResize(width, height uint32) error {
	if r.closed {
		return ErrClosed
	}
	if width == 0 || height == 0 {
		return nil
	}
	sc, err := r.dev.CreateSwapchain(r.swapchainInfo(width, height), r.presenter, r.sc)
	if err != nil {
		return fmt.Errorf("lumen: resize: %w", err)
	}
	if sc == r.sc {
		return nil
	}
	r.sc = sc
	if err := r.g.Resize(width, height); err != nil {
		return fmt.Errorf("lumen: resize: %w", err)
	}
	r.rt.ResetAccumulation()
	r.stats.Resizes++
	slogger().Info("lumen: resized", "width", width, "height", height)
	return nil
}

// OnMouseMove records a pointer position.
func (r *Renderer) OnMouseMove(x, y float32) {
	r.mu.Lock()
	r.mouse.Move(x, y)
	r.mu.Unlock()
	r.post(ui.MouseMove(x, y))
}

// OnMouseButton records a button press or release at the last pointer
// position.
func (r *Renderer) OnMouseButton(b input.MouseButton, action input.Action, _ input.Mods) {
	r.mu.Lock()
	r.mouse.Button(b, action)
	x, y := r.mouse.Position()
	r.mu.Unlock()
	switch action {
	case input.Press:
		r.post(ui.MouseDown(x, y, b))
	case input.Release:
		r.post(ui.MouseUp(x, y, b))
	}
}

// OnKey records a key event. Presses and repeats reach the UI.
func (r *Renderer) OnKey(key input.Key, action input.Action, mods input.Mods) {
	r.mu.Lock()
	r.kb.Apply(key, action, mods)
	r.mu.Unlock()
	if action == input.Press || action == input.Repeat {
		r.post(ui.KeyDown(key, mods))
	}
}

// OnChar posts a typed character to the UI.
func (r *Renderer) OnChar(ch rune) {
	r.post(ui.Char(ch))
}

func (r *Renderer) post(e ui.Event) {
	if !r.ui.Post(e) {
		slogger().Warn("lumen: ui event dropped", "kind", e.Kind)
	}
}

// Frame renders one frame with a background context. See FrameContext.
func (r *Renderer) Frame(dt float32) error {
	return r.FrameContext(context.Background(), dt)
}

// FrameContext moves the camera by dt seconds of input, declares the UI,
// records the graph and submits it. When the swapchain is out of date it
// is recreated at the presenter's size and the frame is skipped.
func (r *Renderer) FrameContext(ctx context.Context, dt float32) error {
	if r.closed {
		return ErrClosed
	}
	start := time.Now()

	r.mu.Lock()
	r.cam.Update(dt, &r.kb, &r.mouse)
	r.mu.Unlock()

	aspect := float32(r.sc.Width()) / float32(r.sc.Height())
	view, proj := r.cam.View(), r.cam.Projection(aspect)
	slot := r.dev.CurrentFrame()
	u := raytrace.NewCameraUniforms(view, proj, r.cam.Position)
	u.Encode(r.dev.Mapped(r.uniforms[slot]))
	r.rt.SetCameraBuffer(r.dev.BufferIndex(r.uniforms[slot], gpu.HeapUniform))
	r.rt.SetCamera(view, proj)

	r.ui.NewFrame()
	if r.opts.onUI != nil {
		r.opts.onUI(r.ui)
	}

	if err := r.sc.Acquire(); err != nil {
		r.ui.EndFrame(dt)
		r.ui.Reset()
		if !errors.Is(err, gpu.ErrOutOfDate) {
			return fmt.Errorf("lumen: acquire: %w", err)
		}
		r.stats.Skipped++
		w, h := r.presenter.Size()
		slogger().Warn("lumen: swapchain out of date", "width", w, "height", h)
		return r.OnResize(w, h)
	}

	cmd := r.dev.BeginCommandList(gpu.QueueGraphics)
	if !r.rt.Built() {
		if err := r.rt.BuildAccelStructs(cmd); err != nil {
			return err
		}
	}
	r.g.Execute(cmd, r.sc)
	r.ui.EndFrame(dt)
	if err := r.dev.SubmitCommandLists(ctx, r.sc); err != nil {
		return fmt.Errorf("lumen: %w", err)
	}

	elapsed := time.Since(start)
	r.stats.Frames++
	r.stats.FrameTime = elapsed
	r.stats.TotalTime += elapsed
	r.stats.Samples = r.rt.TotalSamples()
	r.stats.Dispatches = r.rt.Dispatches()
	r.stats.Sprites = r.uiPass.Drawn()
	return nil
}

// Settings returns the path-tracer settings.
func (r *Renderer) Settings() raytrace.Settings { return r.rt.Settings() }

// SetSettings replaces the path-tracer settings. Accumulation restarts.
func (r *Renderer) SetSettings(s raytrace.Settings) {
	if s != r.rt.Settings() {
		r.rt.SetSettings(s)
		r.rt.ResetAccumulation()
	}
}

// Device returns the GPU device.
func (r *Renderer) Device() *gpu.Device { return r.dev }

// Graph returns the render graph.
func (r *Renderer) Graph() *graph.Graph { return r.g }

// RayTracing returns the path-tracer pass.
func (r *Renderer) RayTracing() *raytrace.Pass { return r.rt }

// Composition returns the composition pass.
func (r *Renderer) Composition() *compose.Pass { return r.comp }

// UI returns the UI context.
func (r *Renderer) UI() *ui.Context { return r.ui }

// Camera returns the camera.
func (r *Renderer) Camera() *scene.Camera { return r.cam }

// Swapchain returns the current swapchain.
func (r *Renderer) Swapchain() *gpu.Swapchain { return r.sc }

// Stats returns the frame statistics.
func (r *Renderer) Stats() FrameStats {
	s := r.stats
	s.GPU = r.dev.Stats()
	return s
}

// Close waits for the GPU and releases everything the Renderer created.
// Calling Close more than once is a no-op.
func (r *Renderer) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	err := r.dev.WaitIdle()
	r.release()
	if r.owned {
		if cerr := r.dev.Close(); err == nil {
			err = cerr
		}
	}
	slogger().Info("lumen: renderer closed", "frames", r.stats.Frames)
	return err
}

func (r *Renderer) release() {
	for i, b := range r.uniforms {
		if b.IsValid() {
			r.dev.DestroyBuffer(b)
			r.uniforms[i] = gpu.Buffer{}
		}
	}
	if r.uiPass != nil {
		r.uiPass.Destroy()
	}
	if r.comp != nil {
		r.comp.Destroy()
	}
	if r.rt != nil {
		r.rt.Destroy()
	}
	if r.g != nil {
		r.g.Destroy()
	}
	if r.sc != nil {
		r.sc.Destroy()
	}
}
