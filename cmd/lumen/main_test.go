// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) error {
	t.Helper()
	return newApp().Run(append([]string{"lumen"}, args...))
}

func decodeSize(t *testing.T, path string) (int, int) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img.Bounds().Dx(), img.Bounds().Dy()
}

func TestRenderWritesLastFrame(t *testing.T) {
	out := filepath.Join(t.TempDir(), "frame.png")
	require.NoError(t, run(t, "render", "--backend", "noop",
		"--width", "32", "--height", "24", "--frames", "3", "--out", out))
	w, h := decodeSize(t, out)
	assert.Equal(t, [2]int{32, 24}, [2]int{w, h})
}

func TestRenderNumberedFrames(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, run(t, "render", "-b", "noop",
		"--width", "16", "--height", "16", "-n", "2", "-o", filepath.Join(dir, "f%d.png")))
	for _, name := range []string{"f0.png", "f1.png"} {
		assert.FileExists(t, filepath.Join(dir, name))
	}
	assert.NoFileExists(t, filepath.Join(dir, "f2.png"))
}

func TestRenderConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "lumen.toml")
	require.NoError(t, os.WriteFile(cfg, []byte("width = 40\nheight = 20\n\n[raytracing]\nray_bounces = 2\n"), 0o600))
	out := filepath.Join(dir, "frame.png")
	require.NoError(t, run(t, "render", "--backend", "noop", "--config", cfg,
		"--height", "30", "--frames", "1", "--out", out))
	w, h := decodeSize(t, out)
	assert.Equal(t, [2]int{40, 30}, [2]int{w, h}, "flags override the file")
}

func TestRenderErrors(t *testing.T) {
	out := filepath.Join(t.TempDir(), "frame.png")
	assert.Error(t, run(t, "render", "--backend", "nope", "--out", out))
	assert.Error(t, run(t, "render", "--backend", "noop", "--frames", "0", "--out", out))
	assert.Error(t, run(t, "render", "--backend", "noop", "--width", "-1", "--out", out))
	assert.Error(t, run(t, "render", "--backend", "noop", "--config", filepath.Join(t.TempDir(), "missing.toml")))
	assert.NoFileExists(t, out)
}

func TestDevices(t *testing.T) {
	require.NoError(t, run(t, "devices", "--backend", "noop"))

	adapters, err := noopAdapters()
	require.NoError(t, err)
	require.NotEmpty(t, adapters)
	var buf bytes.Buffer
	displayAdapters(&buf, adapters)
	assert.Contains(t, buf.String(), adapters[0].Name)
}

func TestBackendNames(t *testing.T) {
	assert.Contains(t, backendNames(), "noop")
	_, err := lookupBackend("NOOP")
	assert.NoError(t, err)
}
