// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package gpu

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
)

type linkedScene struct {
	vertices, indices Buffer
	blas, tlas        AccelStruct
}

// newLinkedScene builds one indexed triangle instanced at x = 5 with
// custom index 3.
func newLinkedScene(t *testing.T, d *Device) linkedScene {
	t.Helper()
	verts := make([]byte, 36)
	putTriangle(verts, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	vb, err := d.CreateBuffer(BufferInfo{Label: "rt_vertices", Usage: UsageUpload, Misc: MiscRayTracingBuildInput}, verts)
	if err != nil {
		t.Fatalf("CreateBuffer(vertices) failed: %v", err)
	}
	idx := make([]byte, 12)
	for i := 0; i < 3; i++ {
		binary.LittleEndian.PutUint32(idx[i*4:], uint32(i))
	}
	ib, err := d.CreateBuffer(BufferInfo{Label: "rt_indices", Usage: UsageUpload, Misc: MiscRayTracingBuildInput}, idx)
	if err != nil {
		t.Fatalf("CreateBuffer(indices) failed: %v", err)
	}
	blas, err := d.CreateAccelStruct(AccelStructInfo{
		Label: "blas",
		Kind:  BLAS,
		Triangles: TriangleGeometry{
			VertexAddress: d.DeviceAddress(vb),
			VertexStride:  12,
			VertexCount:   3,
			IndexAddress:  d.DeviceAddress(ib),
			IndexCount:    3,
		},
	})
	if err != nil {
		t.Fatalf("CreateAccelStruct(blas) failed: %v", err)
	}
	inst := Instance{
		Transform:   [3][4]float32{{1, 0, 0, 5}, {0, 1, 0, 0}, {0, 0, 1, 0}},
		CustomIndex: 3,
		Mask:        0xFF,
		BLAS:        d.AccelAddress(blas),
	}
	records := make([]byte, InstanceSize)
	inst.Encode(records)
	instances, err := d.CreateBuffer(BufferInfo{Label: "instances", Usage: UsageUpload, Misc: MiscRayTracingBuildInput}, records)
	if err != nil {
		t.Fatalf("CreateBuffer(instances) failed: %v", err)
	}
	tlas, err := d.CreateAccelStruct(AccelStructInfo{Label: "tlas", Kind: TLAS, Instances: instances, InstanceCount: 1})
	if err != nil {
		t.Fatalf("CreateAccelStruct(tlas) failed: %v", err)
	}

	cl := d.BeginCommandList(QueueGraphics)
	cl.BuildAccelStructs(blas, tlas)
	submitFrames(t, d, 1)
	return linkedScene{vertices: vb, indices: ib, blas: blas, tlas: tlas}
}

func TestTLASLinksSceneImage(t *testing.T) {
	d, _ := newTestDevice(t)
	s := newLinkedScene(t, d)

	img := d.AccelImage(s.tlas)
	if img == nil {
		t.Fatal("AccelImage is nil after build")
	}
	word := func(w uint32) uint32 { return binary.LittleEndian.Uint32(img[w*4:]) }
	float := func(w uint32) float32 { return math.Float32frombits(word(w)) }

	order := d.AccelNodeCount(s.tlas) * 8
	if got := word(order); got != 0 {
		t.Errorf("instance order[0] = %d, want 0", got)
	}
	rec := order + 1
	wantInv := [12]float32{1, 0, 0, -5, 0, 1, 0, 0, 0, 0, 1, 0}
	for i, want := range wantInv {
		if got := float(rec + uint32(i)); got != want { //nolint:gosec // small index
			t.Errorf("world-to-object word %d = %v, want %v", i, got, want)
		}
	}
	if got := word(rec + 14); got != 3 {
		t.Errorf("custom index = %d, want 3", got)
	}
	if got := word(rec + 15); got != 3 {
		t.Errorf("index count = %d, want 3", got)
	}

	blas := d.accel(s.blas)
	nodes := word(rec + 12)
	blasTree := d.hostData(blas.storage)[:blas.nodes*32]
	if !bytes.Equal(img[nodes*4:nodes*4+uint32(len(blasTree))], blasTree) { //nolint:gosec // small tree
		t.Error("instance node word does not point at the BLAS hierarchy")
	}
	if got, want := word(rec+13), nodes+uint32(blas.nodes)*8; got != want { //nolint:gosec // small tree
		t.Errorf("BLAS order word = %d, want %d", got, want)
	}

	table := rec + InstanceRecordWords
	resolve := func(addr uint64) uint32 {
		hi := uint32(addr >> 32)
		if hi >= word(table) {
			return NoAddress
		}
		base := word(table + 1 + hi)
		if base == NoAddress {
			return NoAddress
		}
		return base + uint32(addr)/4
	}
	v := resolve(d.DeviceAddress(s.vertices))
	if v == NoAddress || !bytes.Equal(img[v*4:v*4+36], d.hostData(s.vertices)) {
		t.Error("vertex address does not resolve to the vertex data")
	}
	i := resolve(d.DeviceAddress(s.indices))
	if i == NoAddress || word(i+2) != 2 {
		t.Error("index address does not resolve to the index data")
	}
	if got := resolve(d.AccelAddress(s.tlas)); got != NoAddress {
		t.Errorf("tlas storage resolves to word %d, want unmapped", got)
	}
}

func TestTLASRebuildRetiresSceneImage(t *testing.T) {
	d, cd := newTestDevice(t, WithFramesInFlight(2))
	s := newLinkedScene(t, d)
	first := d.accel(s.tlas).linked

	cl := d.BeginCommandList(QueueGraphics)
	cl.BuildAccelStruct(s.tlas)
	submitFrames(t, d, 1)
	st := d.accel(s.tlas)
	if st.linked == first {
		t.Fatal("rebuild kept the previous scene image")
	}
	if got := d.heaps.slots[HeapAccelStruct][0].buffer; got != st.linked {
		t.Error("acceleration slot does not hold the new scene image")
	}

	before := cd.destroyedBuffers
	submitFrames(t, d, 3)
	if cd.destroyedBuffers == before {
		t.Error("previous scene image never destroyed")
	}

	d.DestroyAccelStruct(s.tlas)
	if got := d.HeapInUse(HeapAccelStruct); got != 0 {
		t.Errorf("acceleration heap in use after destroy = %d, want 0", got)
	}
}

func TestWorldToObjectSingular(t *testing.T) {
	inv := worldToObject([3][4]float32{})
	for r := range inv {
		for c := range inv[r] {
			if inv[r][c] != 0 {
				t.Fatalf("singular inverse[%d][%d] = %v, want 0", r, c, inv[r][c])
			}
		}
	}
}
