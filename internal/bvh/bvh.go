// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package bvh builds bounding volume hierarchies for the software
// acceleration structures.
//
// The builder scores candidate splits with the surface area heuristic
// (SAH) over a fixed number of bins per axis. Nodes are emitted in
// depth-first order: the left child of an interior node always follows it
// directly, and the node stores the index of its right child.
package bvh

import (
	"encoding/binary"
	"math"
)

// NodeSize is the serialized size of a Node in bytes.
const NodeSize = 32

const (
	// Number of SAH bins evaluated per axis.
	binCount = 16

	// The builder does not try to split an axis whose extent is below
	// this threshold.
	minSideLength float32 = 1e-6
)

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min, Max [3]float32
}

// EmptyAABB returns a box that contains nothing.
func EmptyAABB() AABB {
	return AABB{
		Min: [3]float32{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32},
		Max: [3]float32{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32},
	}
}

// Grow extends b to contain o.
func (b *AABB) Grow(o AABB) {
	for i := 0; i < 3; i++ {
		b.Min[i] = min(b.Min[i], o.Min[i])
		b.Max[i] = max(b.Max[i], o.Max[i])
	}
}

// GrowPoint extends b to contain p.
func (b *AABB) GrowPoint(p [3]float32) {
	for i := 0; i < 3; i++ {
		b.Min[i] = min(b.Min[i], p[i])
		b.Max[i] = max(b.Max[i], p[i])
	}
}

// Center returns the box centroid.
func (b AABB) Center() [3]float32 {
	return [3]float32{
		(b.Min[0] + b.Max[0]) * 0.5,
		(b.Min[1] + b.Max[1]) * 0.5,
		(b.Min[2] + b.Max[2]) * 0.5,
	}
}

// Valid reports whether the box contains at least one point.
func (b AABB) Valid() bool {
	return b.Min[0] <= b.Max[0] && b.Min[1] <= b.Max[1] && b.Min[2] <= b.Max[2]
}

// SurfaceArea returns the box surface area.
func (b AABB) SurfaceArea() float32 {
	if !b.Valid() {
		return 0
	}
	dx, dy, dz := b.Max[0]-b.Min[0], b.Max[1]-b.Min[1], b.Max[2]-b.Min[2]
	return 2 * (dx*dy + dy*dz + dz*dx)
}

// Node is a flattened BVH node.
//
// For leaves Count > 0 and Data is the first entry in the primitive order.
// For interior nodes Count == 0, the left child is the next node and Data
// is the right child index.
type Node struct {
	Bounds AABB
	Data   uint32
	Count  uint32
}

// IsLeaf reports whether n is a leaf.
func (n Node) IsLeaf() bool { return n.Count > 0 }

// Tree is a built hierarchy.
type Tree struct {
	Nodes []Node
	// Order maps leaf ranges to the caller's item indices.
	Order []uint32
}

// Bounds returns the root bounds, or an empty box for an empty tree.
func (t *Tree) Bounds() AABB {
	if len(t.Nodes) == 0 {
		return EmptyAABB()
	}
	return t.Nodes[0].Bounds
}

// Depth returns the maximum depth of the tree.
func (t *Tree) Depth() int {
	if len(t.Nodes) == 0 {
		return 0
	}
	var walk func(i uint32) int
	walk = func(i uint32) int {
		n := t.Nodes[i]
		if n.IsLeaf() {
			return 1
		}
		return 1 + max(walk(i+1), walk(n.Data))
	}
	return walk(0)
}

// SizeFor returns the serialized size of a tree over n items. It is an
// upper bound valid before the build runs.
func SizeFor(n int) uint64 {
	if n <= 0 {
		return NodeSize
	}
	return uint64(2*n-1)*NodeSize + uint64(n)*4 //nolint:gosec // n > 0
}

// Options controls the builder.
type Options struct {
	// MaxLeafItems is the item count at or below which a leaf is created.
	MaxLeafItems int
}

type item struct {
	bounds AABB
	center [3]float32
	index  uint32
}

type builder struct {
	opts  Options
	items []item
	nodes []Node
}

// Build constructs a tree over the given item bounds.
func Build(bounds []AABB, opts Options) *Tree {
	if opts.MaxLeafItems < 1 {
		opts.MaxLeafItems = 1
	}
	b := &builder{
		opts:  opts,
		items: make([]item, len(bounds)),
		nodes: make([]Node, 0, max(1, 2*len(bounds)-1)),
	}
	for i, bb := range bounds {
		b.items[i] = item{bounds: bb, center: bb.Center(), index: uint32(i)} //nolint:gosec // item count fits
	}
	if len(bounds) == 0 {
		return &Tree{Nodes: []Node{{Bounds: EmptyAABB()}}}
	}
	b.partition(0, len(b.items))

	order := make([]uint32, len(b.items))
	for i, it := range b.items {
		order[i] = it.index
	}
	return &Tree{Nodes: b.nodes, Order: order}
}

type bin struct {
	bounds AABB
	count  int
}

// partition builds the subtree over items[lo:hi] and returns its index.
func (b *builder) partition(lo, hi int) uint32 {
	nodeIndex := uint32(len(b.nodes)) //nolint:gosec // bounded by 2n-1
	node := Node{Bounds: EmptyAABB()}
	centroids := EmptyAABB()
	for _, it := range b.items[lo:hi] {
		node.Bounds.Grow(it.bounds)
		centroids.GrowPoint(it.center)
	}
	b.nodes = append(b.nodes, node)

	count := hi - lo
	if count <= b.opts.MaxLeafItems {
		return b.leaf(nodeIndex, lo, hi)
	}

	bestAxis, bestSplit := -1, 0
	bestScore := float32(count) * node.Bounds.SurfaceArea()

	for axis := 0; axis < 3; axis++ {
		extent := centroids.Max[axis] - centroids.Min[axis]
		if extent < minSideLength {
			continue
		}
		var bins [binCount]bin
		for i := range bins {
			bins[i].bounds = EmptyAABB()
		}
		scale := binCount / extent
		for _, it := range b.items[lo:hi] {
			k := binIndex(it.center[axis], centroids.Min[axis], scale)
			bins[k].count++
			bins[k].bounds.Grow(it.bounds)
		}

		// Sweep from the right to get suffix areas, then from the left.
		var rightArea [binCount]float32
		var rightCount [binCount]int
		acc, n := EmptyAABB(), 0
		for i := binCount - 1; i > 0; i-- {
			acc.Grow(bins[i].bounds)
			n += bins[i].count
			rightArea[i] = acc.SurfaceArea()
			rightCount[i] = n
		}
		acc, n = EmptyAABB(), 0
		for i := 0; i < binCount-1; i++ {
			acc.Grow(bins[i].bounds)
			n += bins[i].count
			if n == 0 || rightCount[i+1] == 0 {
				continue
			}
			score := float32(n)*acc.SurfaceArea() + float32(rightCount[i+1])*rightArea[i+1]
			if score < bestScore {
				bestScore, bestAxis, bestSplit = score, axis, i+1
			}
		}
	}

	if bestAxis < 0 {
		return b.leaf(nodeIndex, lo, hi)
	}

	scale := binCount / (centroids.Max[bestAxis] - centroids.Min[bestAxis])
	mid := lo
	for i := lo; i < hi; i++ {
		if binIndex(b.items[i].center[bestAxis], centroids.Min[bestAxis], scale) < bestSplit {
			b.items[i], b.items[mid] = b.items[mid], b.items[i]
			mid++
		}
	}

	b.partition(lo, mid)
	right := b.partition(mid, hi)
	b.nodes[nodeIndex].Data = right
	return nodeIndex
}

func (b *builder) leaf(nodeIndex uint32, lo, hi int) uint32 {
	b.nodes[nodeIndex].Data = uint32(lo)       //nolint:gosec // item index
	b.nodes[nodeIndex].Count = uint32(hi - lo) //nolint:gosec // item count
	return nodeIndex
}

func binIndex(c, lo, scale float32) int {
	k := int((c - lo) * scale)
	if k >= binCount {
		k = binCount - 1
	}
	if k < 0 {
		k = 0
	}
	return k
}

// Serialize writes the tree into dst in little-endian GPU layout: the node
// array followed by the primitive order. It returns the number of bytes
// written. dst must hold at least SizeFor(len(Order)) bytes.
//
// Node layout: min.xyz f32, data u32, max.xyz f32, count u32.
func (t *Tree) Serialize(dst []byte) int {
	off := 0
	for _, n := range t.Nodes {
		putVec(dst[off:], n.Bounds.Min)
		binary.LittleEndian.PutUint32(dst[off+12:], n.Data)
		putVec(dst[off+16:], n.Bounds.Max)
		binary.LittleEndian.PutUint32(dst[off+28:], n.Count)
		off += NodeSize
	}
	for _, idx := range t.Order {
		binary.LittleEndian.PutUint32(dst[off:], idx)
		off += 4
	}
	return off
}

func putVec(dst []byte, v [3]float32) {
	binary.LittleEndian.PutUint32(dst[0:], math.Float32bits(v[0]))
	binary.LittleEndian.PutUint32(dst[4:], math.Float32bits(v[1]))
	binary.LittleEndian.PutUint32(dst[8:], math.Float32bits(v[2]))
}
