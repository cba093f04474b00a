// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package scene

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/lumen/input"
)

func TestVertexEncode(t *testing.T) {
	v := Vertex{
		Position:      [3]float32{1, 2, 3},
		Normal:        [3]float32{0, 1, 0},
		Tangent:       [3]float32{1, 0, 0},
		TexCoord:      [2]float32{0.5, 0.25},
		MaterialIndex: 7,
	}
	buf := make([]byte, VertexSize)
	v.Encode(buf)
	f := func(i int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:])) }
	assert.Equal(t, float32(3), f(2))
	assert.Equal(t, float32(1), f(4))
	assert.Equal(t, float32(0.25), f(10))
	assert.Equal(t, uint32(7), binary.LittleEndian.Uint32(buf[44:]))
}

func TestCornellBox(t *testing.T) {
	s := CornellBox()
	require.Equal(t, 3, s.Len())
	assert.Equal(t, 8, CountPrimitives(s), "six room quads and two cubes")
	assert.Len(t, s.Materials(), 5)

	s.Each(func(e Entity) bool {
		for _, m := range e.Renderable.Meshes {
			for _, p := range m.Primitives {
				require.LessOrEqual(t, int(p.BaseVertex+p.VertexCount), len(m.Vertices))
				require.LessOrEqual(t, int(p.BaseIndex+p.IndexCount), len(m.Indices))
				for _, idx := range m.Indices[p.BaseIndex : p.BaseIndex+p.IndexCount] {
					assert.Less(t, idx, p.VertexCount, "indices are relative to the base vertex")
				}
			}
		}
		return true
	})

	var overrides int
	s.Each(func(e Entity) bool {
		if e.Material != nil {
			overrides++
			idx, ok := MaterialIndex(s, e.Material)
			assert.True(t, ok)
			assert.Equal(t, uint32(4), idx)
		}
		return true
	})
	assert.Equal(t, 1, overrides)
}

func TestEachStops(t *testing.T) {
	s := CornellBox()
	n := 0
	s.Each(func(Entity) bool { n++; return false })
	assert.Equal(t, 1, n)
}

func TestCameraFOVClamp(t *testing.T) {
	c := NewCamera(mgl32.Vec3{}, 5)
	assert.Equal(t, float32(MinFOV), c.FOV())
	c.SetFOV(170)
	assert.Equal(t, float32(MaxFOV), c.FOV())
	c.SetFOV(60)
	assert.Equal(t, float32(60), c.FOV())
}

func TestCameraLooksDownNegativeZ(t *testing.T) {
	c := NewCamera(mgl32.Vec3{0, 0, 5}, 60)
	assert.True(t, c.Forward().ApproxEqual(mgl32.Vec3{0, 0, -1}))
	origin := c.View().Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	assert.InDelta(t, -5, origin.Z(), 1e-5)
}

func TestCameraUpdate(t *testing.T) {
	c := NewCamera(mgl32.Vec3{}, 60)
	view := c.View()

	var kb input.Keyboard
	var mouse input.Mouse
	c.Update(0.5, &kb, &mouse)
	assert.Equal(t, view, c.View(), "no input leaves the camera unchanged")

	kb.Apply(input.KeyW, input.Press, 0)
	c.Update(0.5, &kb, &mouse)
	assert.InDelta(t, -1, c.Position.Z(), 1e-5)

	kb.Apply(input.KeyW, input.Release, 0)
	mouse.Move(0, 0)
	mouse.Move(100, 0)
	c.Update(0.1, &kb, &mouse)
	assert.Zero(t, c.Yaw, "mouse-look needs the right button")

	mouse.Button(input.MouseRight, input.Press)
	mouse.Move(200, 0)
	c.Update(0.1, &kb, &mouse)
	assert.InDelta(t, -100*c.Sensitivity, c.Yaw, 1e-6)

	mouse.Move(200, -1e6)
	c.Update(0.1, &kb, &mouse)
	assert.LessOrEqual(t, float64(c.Pitch), maxPitch+1e-6)
}
