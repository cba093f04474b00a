// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package raytrace

import "encoding/binary"

// Settings are the user-tunable path-tracer parameters.
type Settings struct {
	UseNormalMaps   bool
	UseSkybox       bool
	SamplesPerPixel uint32
	RayBounces      uint32
}

// DefaultSettings returns 4 samples per pixel, 4 bounces, the skybox on
// and normal maps off.
func DefaultSettings() Settings {
	return Settings{
		UseSkybox:       true,
		SamplesPerPixel: 4,
		RayBounces:      4,
	}
}

// normalized clamps the sample count to at least one.
func (s Settings) normalized() Settings {
	if s.SamplesPerPixel < 1 {
		s.SamplesPerPixel = 1
	}
	return s
}

// PushBlockSize is the encoded size of a PushBlock.
const PushBlockSize = 64

// PushBlock is the per-dispatch constant block of the ray-tracing kernel.
// Image and buffer fields hold bindless indices.
type PushBlock struct {
	FrameIndex        uint32
	AccumulationImage uint32
	OutputImage       uint32
	SceneDescBuffer   uint32
	RayBounces        uint32
	SamplesPerPixel   uint32
	// TotalSamples counts the samples accumulated before this dispatch.
	TotalSamples  uint32
	UseNormalMaps bool
	UseSkybox     bool
	// Reset discards the accumulation image.
	Reset         bool
	CameraBuffer  uint32
	InstanceCount uint32
	InstanceOrder uint32 // word offset of the TLAS instance order
	Width, Height uint32
}

// Encode writes b into dst, which must hold PushBlockSize bytes.
func (b *PushBlock) Encode(dst []byte) {
	_ = dst[PushBlockSize-1]
	words := [...]uint32{
		b.FrameIndex,
		b.AccumulationImage,
		b.OutputImage,
		b.SceneDescBuffer,
		b.RayBounces,
		b.SamplesPerPixel,
		b.TotalSamples,
		boolWord(b.UseNormalMaps),
		boolWord(b.UseSkybox),
		boolWord(b.Reset),
		b.CameraBuffer,
		b.InstanceCount,
		b.InstanceOrder,
		b.Width,
		b.Height,
		0,
	}
	for i, w := range words {
		binary.LittleEndian.PutUint32(dst[i*4:], w)
	}
}

func boolWord(v bool) uint32 {
	if v {
		return 1
	}
	return 0
}
