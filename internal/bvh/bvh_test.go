// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package bvh

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unitBox(x, y, z float32) AABB {
	return AABB{Min: [3]float32{x, y, z}, Max: [3]float32{x + 1, y + 1, z + 1}}
}

func TestBuildEmpty(t *testing.T) {
	tree := Build(nil, Options{})
	require.Len(t, tree.Nodes, 1)
	assert.False(t, tree.Bounds().Valid())
	assert.Empty(t, tree.Order)
}

func TestBuildSingleLeaf(t *testing.T) {
	tree := Build([]AABB{unitBox(0, 0, 0)}, Options{MaxLeafItems: 1})
	require.Len(t, tree.Nodes, 1)
	assert.True(t, tree.Nodes[0].IsLeaf())
	assert.Equal(t, []uint32{0}, tree.Order)
}

func TestBuildSplitsSeparatedClusters(t *testing.T) {
	var boxes []AABB
	for i := 0; i < 4; i++ {
		boxes = append(boxes, unitBox(float32(i), 0, 0))
	}
	for i := 0; i < 4; i++ {
		boxes = append(boxes, unitBox(100+float32(i), 0, 0))
	}
	tree := Build(boxes, Options{MaxLeafItems: 4})

	root := tree.Nodes[0]
	require.False(t, root.IsLeaf())
	left, right := tree.Nodes[1], tree.Nodes[root.Data]
	assert.True(t, left.IsLeaf())
	assert.True(t, right.IsLeaf())
	assert.Equal(t, uint32(4), left.Count)
	assert.Equal(t, uint32(4), right.Count)
	assert.Less(t, left.Bounds.Max[0], right.Bounds.Min[0])
	assert.Equal(t, float32(104), tree.Bounds().Max[0])
}

func TestBuildCoversEveryItemOnce(t *testing.T) {
	var boxes []AABB
	for i := 0; i < 97; i++ {
		f := float32(i)
		boxes = append(boxes, unitBox(f*1.7, float32(i%7), float32(i%5)*3))
	}
	tree := Build(boxes, Options{MaxLeafItems: 2})

	seen := make(map[uint32]bool)
	for _, n := range tree.Nodes {
		if !n.IsLeaf() {
			continue
		}
		for _, idx := range tree.Order[n.Data : n.Data+n.Count] {
			require.False(t, seen[idx], "item %d in two leaves", idx)
			seen[idx] = true
		}
	}
	assert.Len(t, seen, 97)
	assert.LessOrEqual(t, uint64(len(tree.Nodes)*NodeSize+len(tree.Order)*4), SizeFor(97))
	assert.Greater(t, tree.Depth(), 1)
}

func TestBuildCoincidentCentroidsMakeLeaf(t *testing.T) {
	boxes := []AABB{unitBox(0, 0, 0), unitBox(0, 0, 0), unitBox(0, 0, 0)}
	tree := Build(boxes, Options{MaxLeafItems: 1})
	require.Len(t, tree.Nodes, 1)
	assert.Equal(t, uint32(3), tree.Nodes[0].Count)
}

func TestSerialize(t *testing.T) {
	tree := Build([]AABB{unitBox(1, 2, 3)}, Options{})
	buf := make([]byte, SizeFor(1))
	n := tree.Serialize(buf)
	require.Equal(t, NodeSize+4, n)

	minX := math.Float32frombits(binary.LittleEndian.Uint32(buf[0:]))
	maxZ := math.Float32frombits(binary.LittleEndian.Uint32(buf[24:]))
	assert.Equal(t, float32(1), minX)
	assert.Equal(t, float32(4), maxZ)
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(buf[28:]))
}
