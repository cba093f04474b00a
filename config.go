// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package lumen

import (
	"bytes"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/gogpu/lumen/raytrace"
	"github.com/gogpu/lumen/scene"
)

// Config is the file form of the renderer options.
//
//	width = 1920
//	height = 1080
//
//	[raytracing]
//	samples_per_pixel = 8
//	ray_bounces = 6
//	use_skybox = true
type Config struct {
	Width           uint32  `toml:"width"`
	Height          uint32  `toml:"height"`
	FramesInFlight  int     `toml:"frames_in_flight"`
	SwapchainImages int     `toml:"swapchain_images"`
	VSync           bool    `toml:"vsync"`
	FOV             float32 `toml:"fov"`

	RayTracing RayTracingConfig `toml:"raytracing"`
}

// RayTracingConfig holds the path-tracer settings of a Config.
type RayTracingConfig struct {
	SamplesPerPixel uint32 `toml:"samples_per_pixel"`
	RayBounces      uint32 `toml:"ray_bounces"`
	UseNormalMaps   bool   `toml:"use_normal_maps"`
	UseSkybox       bool   `toml:"use_skybox"`
}

// DefaultConfig returns the configuration matching the default options.
func DefaultConfig() Config {
	s := raytrace.DefaultSettings()
	return Config{
		Width:           DefaultWidth,
		Height:          DefaultHeight,
		FramesInFlight:  DefaultFramesInFlight,
		SwapchainImages: DefaultSwapchainImages,
		VSync:           true,
		FOV:             DefaultFOV,
		RayTracing: RayTracingConfig{
			SamplesPerPixel: s.SamplesPerPixel,
			RayBounces:      s.RayBounces,
			UseNormalMaps:   s.UseNormalMaps,
			UseSkybox:       s.UseSkybox,
		},
	}
}

// ParseConfig decodes TOML over DefaultConfig, so absent keys keep their
// defaults. Unknown keys are an error. The result is validated.
func ParseConfig(data []byte) (Config, error) {
	c := DefaultConfig()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	c.Validate()
	return c, nil
}

// LoadConfig reads and parses the TOML file at path.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("lumen: read config: %w", err)
	}
	c, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Validate clamps out-of-range values: the FOV to [scene.MinFOV,
// scene.MaxFOV], samples per pixel to at least one and counts to their
// defaults when zero.
func (c *Config) Validate() {
	if c.Width == 0 || c.Height == 0 {
		c.Width, c.Height = DefaultWidth, DefaultHeight
	}
	if c.FramesInFlight < 1 {
		c.FramesInFlight = DefaultFramesInFlight
	}
	if c.SwapchainImages < 1 {
		c.SwapchainImages = DefaultSwapchainImages
	}
	c.FOV = min(max(c.FOV, scene.MinFOV), scene.MaxFOV)
	c.RayTracing.SamplesPerPixel = max(c.RayTracing.SamplesPerPixel, 1)
}

// Marshal encodes c as TOML.
func (c Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}

// Settings returns the path-tracer settings of c.
func (c Config) Settings() raytrace.Settings {
	return raytrace.Settings{
		UseNormalMaps:   c.RayTracing.UseNormalMaps,
		UseSkybox:       c.RayTracing.UseSkybox,
		SamplesPerPixel: c.RayTracing.SamplesPerPixel,
		RayBounces:      c.RayTracing.RayBounces,
	}
}

// Options turns c into renderer options.
func (c Config) Options() []Option {
	return []Option{
		WithSize(c.Width, c.Height),
		WithFramesInFlight(c.FramesInFlight),
		WithSwapchainImages(c.SwapchainImages),
		WithVSync(c.VSync),
		WithFOV(c.FOV),
		WithSettings(c.Settings()),
	}
}
