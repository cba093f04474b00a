// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"

	"github.com/gogpu/lumen"
	"github.com/gogpu/lumen/gpu"
	"github.com/gogpu/lumen/scene"
)

// renderConfig merges the config file, if any, with the flags given on
// the command line.
func renderConfig(ctx *cli.Context) (lumen.Config, error) {
	cfg := lumen.DefaultConfig()
	cfg.Width, cfg.Height = uint32(ctx.Int("width")), uint32(ctx.Int("height")) //nolint:gosec // validated below
	cfg.RayTracing.SamplesPerPixel = uint32(ctx.Int("spp"))                     //nolint:gosec // validated below
	cfg.RayTracing.RayBounces = uint32(ctx.Int("bounces"))                      //nolint:gosec // validated below
	if path := ctx.String("config"); path != "" {
		file, err := lumen.LoadConfig(path)
		if err != nil {
			return lumen.Config{}, err
		}
		if !ctx.IsSet("width") {
			cfg.Width = file.Width
		}
		if !ctx.IsSet("height") {
			cfg.Height = file.Height
		}
		if !ctx.IsSet("spp") {
			cfg.RayTracing.SamplesPerPixel = file.RayTracing.SamplesPerPixel
		}
		if !ctx.IsSet("bounces") {
			cfg.RayTracing.RayBounces = file.RayTracing.RayBounces
		}
		cfg.FramesInFlight = file.FramesInFlight
		cfg.SwapchainImages = file.SwapchainImages
		cfg.FOV = file.FOV
		cfg.RayTracing.UseNormalMaps = file.RayTracing.UseNormalMaps
		cfg.RayTracing.UseSkybox = file.RayTracing.UseSkybox
	}
	if ctx.Int("width") < 0 || ctx.Int("height") < 0 || ctx.Int("spp") < 0 || ctx.Int("bounces") < 0 {
		return lumen.Config{}, errors.New("negative size, spp or bounces")
	}
	cfg.Validate()
	return cfg, nil
}

// renderFrames renders the Cornell box and writes the frames to PNG.
func renderFrames(ctx *cli.Context) error {
	cfg, err := renderConfig(ctx)
	if err != nil {
		return err
	}
	frames := ctx.Int("frames")
	if frames < 1 {
		return fmt.Errorf("--frames must be positive, got %d", frames)
	}
	b, err := lookupBackend(ctx.String("backend"))
	if err != nil {
		return err
	}
	d, closeDevice, err := b.open(cfg.FramesInFlight)
	if err != nil {
		return err
	}
	defer closeDevice()

	out := ctx.String("out")
	numbered := strings.Contains(out, "%d")
	presenter := gpu.NewReadbackPresenter(cfg.Width, cfg.Height)
	presenter.OnFrame = func(frame *gpu.PresentFrame, img *image.RGBA) error {
		if !numbered {
			return nil
		}
		return writePNG(fmt.Sprintf(out, frame.Frame-1), img)
	}

	opts := append(cfg.Options(), lumen.WithPresenter(presenter))
	r, err := lumen.NewWithDevice(d, scene.CornellBox(), opts...)
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()

	lumen.Logger().Info("lumen: rendering", "frames", frames, "width", cfg.Width, "height", cfg.Height,
		"spp", cfg.RayTracing.SamplesPerPixel)
	for i := 0; i < frames; i++ {
		if err := r.Frame(0); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
	}
	if !numbered {
		if err := writePNG(out, presenter.Last()); err != nil {
			return err
		}
	}
	displayFrameStats(os.Stdout, r.Stats())
	return nil
}

func writePNG(path string, img *image.RGBA) error {
	if img == nil {
		return errors.New("no frame was presented")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644) //nolint:gosec // output images are world-readable
}

func displayFrameStats(w io.Writer, stats lumen.FrameStats) {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Statistic", "Value"})
	table.AppendBulk([][]string{
		{"Frames", fmt.Sprintf("%d", stats.Frames)},
		{"Skipped frames", fmt.Sprintf("%d", stats.Skipped)},
		{"Samples per pixel", fmt.Sprintf("%d", stats.Samples)},
		{"Ray dispatches", fmt.Sprintf("%d", stats.Dispatches)},
		{"Average frame time", stats.AverageFrameTime().String()},
		{"Fence waits", fmt.Sprintf("%d", stats.GPU.FenceWaits)},
		{"Deferred releases", fmt.Sprintf("%d", stats.GPU.Released)},
		{"Live buffers", fmt.Sprintf("%d", stats.GPU.Buffers)},
		{"Live textures", fmt.Sprintf("%d", stats.GPU.Textures)},
		{"Live accel structs", fmt.Sprintf("%d", stats.GPU.AccelStructs)},
	})
	table.SetFooter([]string{"TOTAL", stats.TotalTime.String()})
	table.Render()
}
