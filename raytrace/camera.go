// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package raytrace

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// CameraUniformSize is the size of the per-frame camera uniform buffer.
// Every uniform binding exposes sixteen vec4.
const CameraUniformSize = 256

// CameraUniforms is the camera block the ray-generation shader reads:
// the inverse view columns, the inverse projection columns and the
// camera position.
type CameraUniforms struct {
	InvView  mgl32.Mat4
	InvProj  mgl32.Mat4
	Position mgl32.Vec3
}

// NewCameraUniforms inverts view and proj.
func NewCameraUniforms(view, proj mgl32.Mat4, pos mgl32.Vec3) CameraUniforms {
	return CameraUniforms{InvView: view.Inv(), InvProj: proj.Inv(), Position: pos}
}

// Encode writes u into dst, which must hold CameraUniformSize bytes.
func (u *CameraUniforms) Encode(dst []byte) {
	_ = dst[CameraUniformSize-1]
	put := func(word int, v float32) {
		binary.LittleEndian.PutUint32(dst[word*4:], math.Float32bits(v))
	}
	for i, v := range u.InvView {
		put(i, v)
	}
	for i, v := range u.InvProj {
		put(16+i, v)
	}
	put(32, u.Position[0])
	put(33, u.Position[1])
	put(34, u.Position[2])
	put(35, 1)
	clear(dst[36*4 : CameraUniformSize])
}
