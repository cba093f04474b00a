// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/lumen/internal/deferred"
	"github.com/gogpu/lumen/internal/handle"
)

// ShaderStage is the pipeline stage a shader module is created for.
type ShaderStage uint8

// Shader stages.
const (
	StageVertex ShaderStage = iota
	StagePixel
	StageCompute
	StageRayGen
	StageMiss
	StageClosestHit
)

var stageNames = [...]string{"vertex", "pixel", "compute", "raygen", "miss", "closesthit"}

// String returns the stage name.
func (s ShaderStage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("ShaderStage(%d)", uint8(s))
}

// EntryPoint returns the entry-point name the engine expects for stage.
// Miss and closest-hit shaders are linked into the ray-generation kernel
// and have no entry point of their own.
func (s ShaderStage) EntryPoint() string {
	switch s {
	case StageVertex:
		return "vs_main"
	case StagePixel:
		return "fs_main"
	case StageCompute:
		return "cs_main"
	case StageRayGen:
		return "raygen_main"
	default:
		return ""
	}
}

// ShaderSource holds shader code. Exactly one field is set.
type ShaderSource struct {
	WGSL  string
	SPIRV []uint32
}

// Shader is a handle to a shader module owned by a Device.
type Shader struct{ h handle.Handle }

// IsValid reports whether s was returned by a successful shader creation.
func (s Shader) IsValid() bool { return !s.h.IsZero() }

type shaderState struct {
	label  string
	stage  ShaderStage
	source ShaderSource
	module hal.ShaderModule
}

// LoadShader reads a shader from fsys. It tries path+".spv" first, then
// path+".wgsl". A missing or malformed file wraps ErrShaderLoad.
func (d *Device) LoadShader(fsys fs.FS, path string, stage ShaderStage) (Shader, error) {
	if blob, err := fs.ReadFile(fsys, path+".spv"); err == nil {
		words, err := spirvWords(blob)
		if err != nil {
			return Shader{}, fmt.Errorf("%w: %s.spv: %v", ErrShaderLoad, path, err)
		}
		return d.createShader(path, ShaderSource{SPIRV: words}, stage)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return Shader{}, fmt.Errorf("%w: %s.spv: %v", ErrShaderLoad, path, err)
	}

	src, err := fs.ReadFile(fsys, path+".wgsl")
	if err != nil {
		return Shader{}, fmt.Errorf("%w: %s: %v", ErrShaderLoad, path, err)
	}
	return d.createShader(path, ShaderSource{WGSL: string(src)}, stage)
}

// CreateShader creates a shader module from in-memory code.
func (d *Device) CreateShader(label string, src ShaderSource, stage ShaderStage) (Shader, error) {
	return d.createShader(label, src, stage)
}

func (d *Device) createShader(label string, src ShaderSource, stage ShaderStage) (Shader, error) {
	if err := d.checkOpen(); err != nil {
		return Shader{}, err
	}
	if src.WGSL == "" && len(src.SPIRV) == 0 {
		return Shader{}, fmt.Errorf("%w: %s: empty source", ErrShaderLoad, label)
	}
	st := shaderState{label: label, stage: stage, source: src}

	// Miss and hit stages are only linked into a ray-generation kernel. A
	// WGSL ray-generation stage calls into them and is compiled when linked.
	linked := stage == StageMiss || stage == StageClosestHit || (stage == StageRayGen && src.WGSL != "")
	if !linked {
		module, err := d.compileModule(label, src)
		if err != nil {
			return Shader{}, err
		}
		st.module = module
	}
	slogger().Debug("gpu: shader created", "label", label, "stage", stage.String())
	return Shader{h: d.shaders.Insert(st)}, nil
}

// compileModule creates the backend module for src. WGSL sources are
// compiled with the bindless prelude in front.
func (d *Device) compileModule(label string, src ShaderSource) (hal.ShaderModule, error) {
	if src.WGSL != "" {
		src.WGSL = d.heaps.prelude + src.WGSL
	}
	hs := hal.ShaderSource{WGSL: src.WGSL, SPIRV: src.SPIRV}
	if src.WGSL != "" && d.opts.compileSPIRV {
		words, ok := d.spirv.Get(src.WGSL)
		if !ok {
			var err error
			if words, err = compileWGSL(src.WGSL); err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrShaderLoad, label, err)
			}
			d.spirv.Set(src.WGSL, words)
		}
		hs = hal.ShaderSource{SPIRV: words}
	}
	module, err := d.dev.CreateShaderModule(&hal.ShaderModuleDescriptor{Label: label, Source: hs})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrShaderLoad, label, err)
	}
	return module, nil
}

// spirvCacheSize bounds the compiled WGSL sources a device keeps.
const spirvCacheSize = 32

// compileWGSL translates WGSL to SPIR-V words with naga.
func compileWGSL(src string) ([]uint32, error) {
	blob, err := naga.Compile(src)
	if err != nil {
		return nil, err
	}
	return spirvWords(blob)
}

// spirvWords converts a little-endian SPIR-V blob to words.
func spirvWords(blob []byte) ([]uint32, error) {
	if len(blob) == 0 || len(blob)%4 != 0 {
		return nil, fmt.Errorf("spir-v blob of %d bytes is not word aligned", len(blob))
	}
	words := make([]uint32, len(blob)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(blob[i*4:])
	}
	return words, nil
}

func (d *Device) shader(s Shader) *shaderState {
	st, ok := d.shaders.Get(s.h)
	if !ok {
		panic(fmt.Sprintf("gpu: stale or invalid shader handle %v", s.h))
	}
	return st
}

// DestroyShader drops the owner's reference to s.
func (d *Device) DestroyShader(s Shader) {
	st, ok := d.shaders.Remove(s.h)
	if !ok {
		panic(fmt.Sprintf("gpu: destroy of stale shader handle %v", s.h))
	}
	d.retire(deferred.KindShader, func() { d.freeShader(&st) })
}

func (d *Device) freeShader(st *shaderState) {
	if st.module != nil {
		d.dev.DestroyShaderModule(st.module)
		st.module = nil
	}
}
