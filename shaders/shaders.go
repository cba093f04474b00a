// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package shaders embeds the WGSL sources of the shipped passes.
//
// Sources are written against the bindless prelude the gpu package puts
// in front of every WGSL module, so they reach resources through its
// accessors (push_u32, sample_image, buffer_f32, storage_store, ...).
// Paths are given without extension, as gpu.Device.LoadShader expects.
package shaders

import "embed"

// FS holds the shader sources.
//
//go:embed *.wgsl
var FS embed.FS

// Shader paths in FS.
const (
	FullscreenTri = "fullscreen_tri"
	UI            = "ui"
	RTRayGen      = "rt_raygen"
	RTMiss        = "rt_miss"
	RTClosestHit  = "rt_closesthit"
)
