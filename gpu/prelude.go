// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"fmt"
	"strings"

	"github.com/gogpu/gputypes"
)

// uniformVec4s is the number of vec4 a uniform heap binding exposes. It
// matches the null buffer bound to empty slots.
const uniformVec4s = nullBufferSize / 16

// buildPrelude generates the WGSL declarations every shader module is
// compiled with: one variable per heap slot at its group 0 binding, the
// push-constant block at group 1 and accessor functions that select a
// slot by its bindless index.
//
// Accessors:
//
//	push_u32(word) / push_f32(word)
//	uniform_vec4(buffer, i)
//	sample_image(image, sampler, uv) / load_image(image, coord)
//	buffer_u32(buffer, word) / buffer_f32(buffer, word)
//	storage_load(image, coord) / storage_store(image, coord, value)
//	accel_u32(word)
func (hs *heapSet) buildPrelude() string {
	var b strings.Builder
	w := func(format string, args ...any) { fmt.Fprintf(&b, format, args...) }
	slots := func(h Heap) int { return len(hs.slots[h]) }

	w("// lumen bindless prelude\n")
	w("struct LumenPush { words: array<vec4<u32>, %d> }\n", pushConstantSize/16)
	w("@group(1) @binding(0) var<uniform> lumen_push: LumenPush;\n")
	w("fn push_u32(i: u32) -> u32 { return lumen_push.words[i / 4u][i %% 4u]; }\n")
	w("fn push_f32(i: u32) -> f32 { return bitcast<f32>(push_u32(i)); }\n\n")

	w("struct LumenUniform { data: array<vec4<f32>, %d> }\n", uniformVec4s)
	for i := 0; i < slots(HeapUniform); i++ {
		w("@group(0) @binding(%d) var<uniform> lumen_u%d: LumenUniform;\n", hs.base[HeapUniform]+uint32(i), i) //nolint:gosec // bounded by heap size
	}
	w("fn uniform_vec4(buf: u32, i: u32) -> vec4<f32> {\n\tswitch buf {\n")
	for i := 0; i < slots(HeapUniform); i++ {
		w("\t\tcase %du: { return lumen_u%d.data[i]; }\n", i, i)
	}
	w("\t\tdefault: { return vec4<f32>(0.0); }\n\t}\n}\n\n")

	for i := 0; i < slots(HeapSampled); i++ {
		w("@group(0) @binding(%d) var lumen_t%d: texture_2d<f32>;\n", hs.base[HeapSampled]+uint32(i), i) //nolint:gosec // bounded by heap size
	}
	for i := 0; i < slots(HeapSampler); i++ {
		w("@group(0) @binding(%d) var lumen_s%d: sampler;\n", hs.base[HeapSampler]+uint32(i), i) //nolint:gosec // bounded by heap size
	}
	w("fn sample_with(t: texture_2d<f32>, smp: u32, uv: vec2<f32>) -> vec4<f32> {\n\tswitch smp {\n")
	for i := 0; i < slots(HeapSampler); i++ {
		w("\t\tcase %du: { return textureSampleLevel(t, lumen_s%d, uv, 0.0); }\n", i, i)
	}
	w("\t\tdefault: { return vec4<f32>(0.0); }\n\t}\n}\n")
	w("fn sample_image(img: u32, smp: u32, uv: vec2<f32>) -> vec4<f32> {\n\tswitch img {\n")
	for i := 0; i < slots(HeapSampled); i++ {
		w("\t\tcase %du: { return sample_with(lumen_t%d, smp, uv); }\n", i, i)
	}
	w("\t\tdefault: { return vec4<f32>(0.0); }\n\t}\n}\n")
	w("fn load_image(img: u32, c: vec2<i32>) -> vec4<f32> {\n\tswitch img {\n")
	for i := 0; i < slots(HeapSampled); i++ {
		w("\t\tcase %du: { return textureLoad(lumen_t%d, c, 0); }\n", i, i)
	}
	w("\t\tdefault: { return vec4<f32>(0.0); }\n\t}\n}\n\n")

	for i := 0; i < slots(HeapStorageBuffer); i++ {
		w("@group(0) @binding(%d) var<storage, read> lumen_b%d: array<u32>;\n", hs.base[HeapStorageBuffer]+uint32(i), i) //nolint:gosec // bounded by heap size
	}
	w("fn buffer_u32(buf: u32, word: u32) -> u32 {\n\tswitch buf {\n")
	for i := 0; i < slots(HeapStorageBuffer); i++ {
		w("\t\tcase %du: { return lumen_b%d[word]; }\n", i, i)
	}
	w("\t\tdefault: { return 0u; }\n\t}\n}\n")
	w("fn buffer_f32(buf: u32, word: u32) -> f32 { return bitcast<f32>(buffer_u32(buf, word)); }\n\n")

	format := storageFormatName(hs.d.opts.storageImageFormat)
	for i := 0; i < slots(HeapStorageImage); i++ {
		w("@group(0) @binding(%d) var lumen_img%d: texture_storage_2d<%s, read_write>;\n",
			hs.base[HeapStorageImage]+uint32(i), i, format) //nolint:gosec // bounded by heap size
	}
	w("fn storage_load(img: u32, c: vec2<i32>) -> vec4<f32> {\n\tswitch img {\n")
	for i := 0; i < slots(HeapStorageImage); i++ {
		w("\t\tcase %du: { return textureLoad(lumen_img%d, c); }\n", i, i)
	}
	w("\t\tdefault: { return vec4<f32>(0.0); }\n\t}\n}\n")
	w("fn storage_store(img: u32, c: vec2<i32>, v: vec4<f32>) {\n\tswitch img {\n")
	for i := 0; i < slots(HeapStorageImage); i++ {
		w("\t\tcase %du: { textureStore(lumen_img%d, c, v); }\n", i, i)
	}
	w("\t\tdefault: {}\n\t}\n}\n\n")

	w("@group(0) @binding(%d) var<storage, read> lumen_accel: array<u32>;\n", hs.base[HeapAccelStruct])
	w("fn accel_u32(word: u32) -> u32 { return lumen_accel[word]; }\n")
	w("fn accel_f32(word: u32) -> f32 { return bitcast<f32>(lumen_accel[word]); }\n\n")
	return b.String()
}

func storageFormatName(f gputypes.TextureFormat) string {
	switch f {
	case gputypes.TextureFormatRGBA8Unorm:
		return "rgba8unorm"
	case gputypes.TextureFormatRGBA16Float:
		return "rgba16float"
	default:
		return "rgba32float"
	}
}

// ShaderPrelude returns the WGSL declarations prepended to every WGSL
// shader compiled by the device.
func (d *Device) ShaderPrelude() string { return d.heaps.prelude }
