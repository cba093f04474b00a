// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package raytrace

import (
	"io/fs"

	"github.com/gogpu/lumen/shaders"
)

// options holds configuration for a Pass.
type options struct {
	fsys       fs.FS
	rayGen     string
	miss       string
	closestHit string
	maxDepth   uint32
	settings   Settings
	passName   string
	outputName string
	accumName  string
}

func defaultOptions() options {
	return options{
		fsys:       shaders.FS,
		rayGen:     shaders.RTRayGen,
		miss:       shaders.RTMiss,
		closestHit: shaders.RTClosestHit,
		maxDepth:   1,
		settings:   DefaultSettings(),
		passName:   PassName,
		outputName: OutputAttachment,
		accumName:  AccumulationAttachment,
	}
}

// Option configures a Pass.
type Option func(*options)

// WithShaderFS loads the shaders from fsys instead of the embedded set.
func WithShaderFS(fsys fs.FS) Option {
	return func(o *options) {
		o.fsys = fsys
	}
}

// WithShaderPaths overrides the ray-generation, miss and closest-hit
// shader paths, given without extension.
func WithShaderPaths(rayGen, miss, closestHit string) Option {
	return func(o *options) {
		o.rayGen, o.miss, o.closestHit = rayGen, miss, closestHit
	}
}

// WithMaxRecursionDepth sets the pipeline recursion depth. The default is 1.
func WithMaxRecursionDepth(n uint32) Option {
	return func(o *options) {
		if n > 0 {
			o.maxDepth = n
		}
	}
}

// WithSettings sets the initial settings.
func WithSettings(s Settings) Option {
	return func(o *options) {
		o.settings = s.normalized()
	}
}
