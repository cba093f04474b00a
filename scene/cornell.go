// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package scene

import (
	"github.com/go-gl/mathgl/mgl32"
)

// appendQuad appends the corners a, b, c, d (counter-clockwise seen from
// the side n points to) and two triangles to m, indexed from base.
func appendQuad(m *Mesh, base uint32, a, b, c, d, n mgl32.Vec3, mat uint32) {
	t := b.Sub(a).Normalize()
	uvs := [4][2]float32{{0, 0}, {1, 0}, {1, 1}, {0, 1}}
	for i, p := range [4]mgl32.Vec3{a, b, c, d} {
		m.Vertices = append(m.Vertices, Vertex{
			Position:      p,
			Normal:        n,
			Tangent:       t,
			TexCoord:      uvs[i],
			MaterialIndex: mat,
		})
	}
	first := uint32(len(m.Vertices)-4) - base //nolint:gosec // meshes are small
	m.Indices = append(m.Indices, first, first+1, first+2, first, first+2, first+3)
}

// beginPrimitive starts a primitive at the current end of m.
func beginPrimitive(m *Mesh) Primitive {
	return Primitive{
		BaseVertex: uint32(len(m.Vertices)), //nolint:gosec // meshes are small
		BaseIndex:  uint32(len(m.Indices)),  //nolint:gosec // meshes are small
	}
}

// endPrimitive closes p at the current end of m.
func endPrimitive(m *Mesh, p Primitive) {
	p.VertexCount = uint32(len(m.Vertices)) - p.BaseVertex //nolint:gosec // meshes are small
	p.IndexCount = uint32(len(m.Indices)) - p.BaseIndex    //nolint:gosec // meshes are small
	m.Primitives = append(m.Primitives, p)
}

// addQuadPrimitive appends a one-quad primitive.
func addQuadPrimitive(m *Mesh, a, b, c, d, n mgl32.Vec3, mat uint32) {
	p := beginPrimitive(m)
	appendQuad(m, p.BaseVertex, a, b, c, d, n, mat)
	endPrimitive(m, p)
}

// Cube returns a unit cube centered at the origin as one primitive.
func Cube(mat uint32) *Mesh {
	m := &Mesh{Name: "cube"}
	p := beginPrimitive(m)
	v := func(x, y, z float32) mgl32.Vec3 { return mgl32.Vec3{x * 0.5, y * 0.5, z * 0.5} }
	faces := []struct {
		a, b, c, d, n mgl32.Vec3
	}{
		{v(-1, -1, 1), v(1, -1, 1), v(1, 1, 1), v(-1, 1, 1), mgl32.Vec3{0, 0, 1}},
		{v(1, -1, -1), v(-1, -1, -1), v(-1, 1, -1), v(1, 1, -1), mgl32.Vec3{0, 0, -1}},
		{v(1, -1, 1), v(1, -1, -1), v(1, 1, -1), v(1, 1, 1), mgl32.Vec3{1, 0, 0}},
		{v(-1, -1, -1), v(-1, -1, 1), v(-1, 1, 1), v(-1, 1, -1), mgl32.Vec3{-1, 0, 0}},
		{v(-1, 1, 1), v(1, 1, 1), v(1, 1, -1), v(-1, 1, -1), mgl32.Vec3{0, 1, 0}},
		{v(-1, -1, -1), v(1, -1, -1), v(1, -1, 1), v(-1, -1, 1), mgl32.Vec3{0, -1, 0}},
	}
	for _, f := range faces {
		appendQuad(m, p.BaseVertex, f.a, f.b, f.c, f.d, f.n, mat)
	}
	endPrimitive(m, p)
	return m
}

// CornellBox returns the classic test scene: a 2x2x2 room open towards +Z
// with a red left wall, a green right wall, an area light in the ceiling
// and two boxes. The camera of DefaultCamera looks into the room.
func CornellBox() *Memory {
	s := NewMemory()
	_, white := s.AddMaterial(Material{Name: "white", BaseColor: [4]float32{0.73, 0.73, 0.73, 1}, Roughness: 1})
	_, red := s.AddMaterial(Material{Name: "red", BaseColor: [4]float32{0.65, 0.05, 0.05, 1}, Roughness: 1})
	_, green := s.AddMaterial(Material{Name: "green", BaseColor: [4]float32{0.12, 0.45, 0.15, 1}, Roughness: 1})
	_, light := s.AddMaterial(Material{Name: "light", BaseColor: [4]float32{1, 1, 1, 1}, Emissive: [3]float32{15, 15, 15}, Roughness: 1})
	metal, _ := s.AddMaterial(Material{Name: "metal", BaseColor: [4]float32{0.9, 0.9, 0.9, 1}, Roughness: 0.1, Metallic: 1})

	p := func(x, y, z float32) mgl32.Vec3 { return mgl32.Vec3{x, y, z} }
	room := &Mesh{Name: "room"}
	addQuadPrimitive(room, p(-1, -1, 1), p(1, -1, 1), p(1, -1, -1), p(-1, -1, -1), mgl32.Vec3{0, 1, 0}, white) // floor
	addQuadPrimitive(room, p(-1, 1, -1), p(1, 1, -1), p(1, 1, 1), p(-1, 1, 1), mgl32.Vec3{0, -1, 0}, white)    // ceiling
	addQuadPrimitive(room, p(-1, -1, -1), p(1, -1, -1), p(1, 1, -1), p(-1, 1, -1), mgl32.Vec3{0, 0, 1}, white) // back
	addQuadPrimitive(room, p(-1, -1, 1), p(-1, -1, -1), p(-1, 1, -1), p(-1, 1, 1), mgl32.Vec3{1, 0, 0}, red)   // left
	addQuadPrimitive(room, p(1, -1, -1), p(1, -1, 1), p(1, 1, 1), p(1, 1, -1), mgl32.Vec3{-1, 0, 0}, green)    // right
	addQuadPrimitive(room, p(-0.25, 0.99, -0.25), p(0.25, 0.99, -0.25), p(0.25, 0.99, 0.25), p(-0.25, 0.99, 0.25), mgl32.Vec3{0, -1, 0}, light)
	s.Add(Entity{Transform: mgl32.Ident4(), Renderable: &Renderable{Meshes: []*Mesh{room}}})

	cube := &Renderable{Meshes: []*Mesh{Cube(white)}}
	tall := mgl32.Translate3D(-0.35, -0.4, -0.3).
		Mul4(mgl32.HomogRotate3DY(mgl32.DegToRad(18))).
		Mul4(mgl32.Scale3D(0.6, 1.2, 0.6))
	short := mgl32.Translate3D(0.35, -0.7, 0.3).
		Mul4(mgl32.HomogRotate3DY(mgl32.DegToRad(-17))).
		Mul4(mgl32.Scale3D(0.6, 0.6, 0.6))
	s.Add(Entity{Transform: tall, Renderable: cube})
	s.Add(Entity{Transform: short, Renderable: cube, Material: metal})
	return s
}

// DefaultCamera returns a camera framing CornellBox.
func DefaultCamera() *Camera {
	return NewCamera(mgl32.Vec3{0, 0, 3.4}, 40)
}
