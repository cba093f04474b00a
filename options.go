// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package lumen

import (
	"io/fs"
	"log/slog"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/lumen/gpu"
	"github.com/gogpu/lumen/raytrace"
	"github.com/gogpu/lumen/scene"
	"github.com/gogpu/lumen/shaders"
	"github.com/gogpu/lumen/ui"
)

// Defaults applied when no option overrides them.
const (
	DefaultWidth           = 1280
	DefaultHeight          = 720
	DefaultFramesInFlight  = 2
	DefaultSwapchainImages = 3
	DefaultFOV             = 60
)

// Option configures a Renderer.
//
// Example:
//
//	r, err := lumen.New(dev, queue, scene.CornellBox(),
//	    lumen.WithSize(1920, 1080),
//	    lumen.WithUI(drawSettings))
type Option func(*options)

type options struct {
	width, height  uint32
	framesInFlight int
	images         int
	vsync          bool
	format         gputypes.TextureFormat
	settings       raytrace.Settings
	fov            float32
	camera         *scene.Camera
	shaderFS       fs.FS
	presenter      gpu.Presenter
	font           ui.Font
	onUI           func(*ui.Context)
	logger         *slog.Logger
}

func defaultOptions() options {
	return options{
		width:          DefaultWidth,
		height:         DefaultHeight,
		framesInFlight: DefaultFramesInFlight,
		images:         DefaultSwapchainImages,
		vsync:          true,
		format:         gputypes.TextureFormatRGBA8Unorm,
		settings:       raytrace.DefaultSettings(),
		fov:            DefaultFOV,
		shaderFS:       shaders.FS,
	}
}

// WithSize sets the initial swapchain size.
func WithSize(width, height uint32) Option {
	return func(o *options) {
		if width > 0 && height > 0 {
			o.width, o.height = width, height
		}
	}
}

// WithFramesInFlight sets how many frames the CPU may record ahead of the
// GPU.
func WithFramesInFlight(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.framesInFlight = n
		}
	}
}

// WithSwapchainImages sets the number of swapchain images.
func WithSwapchainImages(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.images = n
		}
	}
}

// WithVSync enables or disables vertical sync.
func WithVSync(on bool) Option {
	return func(o *options) { o.vsync = on }
}

// WithFormat sets the swapchain format.
func WithFormat(f gputypes.TextureFormat) Option {
	return func(o *options) { o.format = f }
}

// WithSettings sets the initial path-tracer settings.
func WithSettings(s raytrace.Settings) Option {
	return func(o *options) { o.settings = s }
}

// WithFOV sets the vertical field of view in degrees.
func WithFOV(deg float32) Option {
	return func(o *options) { o.fov = deg }
}

// WithCamera uses c instead of the default camera.
func WithCamera(c *scene.Camera) Option {
	return func(o *options) { o.camera = c }
}

// WithShaderFS loads every shader from fsys instead of the embedded set.
func WithShaderFS(fsys fs.FS) Option {
	return func(o *options) { o.shaderFS = fsys }
}

// WithPresenter presents frames through p. The default discards them.
func WithPresenter(p gpu.Presenter) Option {
	return func(o *options) { o.presenter = p }
}

// WithFont sets the UI font. The default is Go Regular.
func WithFont(f ui.Font) Option {
	return func(o *options) { o.font = f }
}

// WithUI sets the function that declares the UI every frame.
func WithUI(fn func(*ui.Context)) Option {
	return func(o *options) { o.onUI = fn }
}

// WithLogger sets the logger for lumen and its sub-packages, as SetLogger
// does.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}
