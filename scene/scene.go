// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package scene is the scene data the renderer consumes: meshes made of
// primitives over shared vertex and index arrays, materials, entities
// placing renderables in the world, and the camera.
package scene

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// VertexSize is the encoded size of a Vertex in bytes.
const VertexSize = 48

// Vertex is one mesh vertex as the shaders read it.
type Vertex struct {
	Position      [3]float32
	Normal        [3]float32
	Tangent       [3]float32
	TexCoord      [2]float32
	MaterialIndex uint32
}

// Encode writes v into dst, which must hold VertexSize bytes.
func (v *Vertex) Encode(dst []byte) {
	_ = dst[VertexSize-1]
	off := 0
	put := func(f float32) {
		binary.LittleEndian.PutUint32(dst[off:], math.Float32bits(f))
		off += 4
	}
	for _, f := range v.Position {
		put(f)
	}
	for _, f := range v.Normal {
		put(f)
	}
	for _, f := range v.Tangent {
		put(f)
	}
	put(v.TexCoord[0])
	put(v.TexCoord[1])
	binary.LittleEndian.PutUint32(dst[off:], v.MaterialIndex)
}

// Primitive is a draw range inside a mesh's vertex and index arrays.
// Indices are relative to BaseVertex.
type Primitive struct {
	VertexCount uint32
	IndexCount  uint32
	BaseVertex  uint32
	BaseIndex   uint32
}

// Mesh is a list of primitives sharing one vertex and one index array.
type Mesh struct {
	Name       string
	Vertices   []Vertex
	Indices    []uint32
	Primitives []Primitive
}

// EncodeVertices returns the vertex array in shader layout.
func (m *Mesh) EncodeVertices() []byte {
	out := make([]byte, len(m.Vertices)*VertexSize)
	for i := range m.Vertices {
		m.Vertices[i].Encode(out[i*VertexSize:])
	}
	return out
}

// EncodeIndices returns the index array as little-endian 32-bit values.
func (m *Mesh) EncodeIndices() []byte {
	out := make([]byte, len(m.Indices)*4)
	for i, idx := range m.Indices {
		binary.LittleEndian.PutUint32(out[i*4:], idx)
	}
	return out
}

// Renderable is the drawable part of an entity.
type Renderable struct {
	Meshes []*Mesh
}

// MaterialSize is the encoded size of a Material in bytes.
const MaterialSize = 48

// Material describes a surface for the path tracer.
type Material struct {
	Name      string
	BaseColor [4]float32
	Emissive  [3]float32
	Roughness float32
	Metallic  float32
	// IOR is the index of refraction. Zero means opaque.
	IOR float32
}

// Encode writes m into dst, which must hold MaterialSize bytes.
func (m *Material) Encode(dst []byte) {
	_ = dst[MaterialSize-1]
	vals := [...]float32{
		m.BaseColor[0], m.BaseColor[1], m.BaseColor[2], m.BaseColor[3],
		m.Emissive[0], m.Emissive[1], m.Emissive[2], m.Roughness,
		m.Metallic, m.IOR, 0, 0,
	}
	for i, f := range vals {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(f))
	}
}

// Entity places a renderable in the world. Material, when set, overrides
// the per-vertex material indices of every primitive.
type Entity struct {
	Transform  mgl32.Mat4
	Renderable *Renderable
	Material   *Material
}

// Scene is an enumerable collection of entities.
type Scene interface {
	// Each calls fn for every entity until fn returns false.
	Each(fn func(Entity) bool)
	// Materials returns the material table vertex material indices
	// refer to.
	Materials() []*Material
}

// CountPrimitives returns the number of primitives over every entity.
func CountPrimitives(s Scene) int {
	n := 0
	s.Each(func(e Entity) bool {
		if e.Renderable == nil {
			return true
		}
		for _, m := range e.Renderable.Meshes {
			n += len(m.Primitives)
		}
		return true
	})
	return n
}

// MaterialIndex returns the position of m in s's material table.
func MaterialIndex(s Scene, m *Material) (uint32, bool) {
	for i, v := range s.Materials() {
		if v == m {
			return uint32(i), true //nolint:gosec // material tables are small
		}
	}
	return 0, false
}

// Memory is an in-memory Scene.
type Memory struct {
	entities  []Entity
	materials []*Material
}

// NewMemory returns an empty scene.
func NewMemory() *Memory { return &Memory{} }

// Add appends an entity.
func (m *Memory) Add(e Entity) { m.entities = append(m.entities, e) }

// AddMaterial appends a material to the material table and returns it
// with its index.
func (m *Memory) AddMaterial(mat Material) (*Material, uint32) {
	p := &mat
	m.materials = append(m.materials, p)
	return p, uint32(len(m.materials) - 1) //nolint:gosec // material tables are small
}

// Each calls fn for every entity in insertion order.
func (m *Memory) Each(fn func(Entity) bool) {
	for _, e := range m.entities {
		if !fn(e) {
			return
		}
	}
}

// Materials returns the material table.
func (m *Memory) Materials() []*Material { return m.materials }

// Len returns the number of entities.
func (m *Memory) Len() int { return len(m.entities) }

// Entity returns the i-th entity.
func (m *Memory) Entity(i int) Entity { return m.entities[i] }
