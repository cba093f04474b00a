// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"encoding/binary"
	"fmt"
	"math"
	"slices"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/lumen/internal/bvh"
	"github.com/gogpu/lumen/internal/deferred"
	"github.com/gogpu/lumen/internal/handle"
)

// A TLAS build links the scene image bound at the acceleration-structure
// heap slot. All offsets are in 32-bit words from the start of the image:
//
//	nodes      TLAS hierarchy, bvh.NodeSize/4 words per node
//	order      instance order, one word per instance
//	instances  InstanceRecordWords per instance
//	addresses  table length n, then n word offsets indexed by the high
//	           word of a device address, NoAddress where unmapped
//	data       the host copy of every addressed buffer
//
// An address (hi, lo) resolves to word table[hi] + lo/4. Shaders find the
// instance records right after the order and the table right after the
// records.

// InstanceRecordWords is the size of a linked instance record in words:
// world-to-object rows (12 floats), BLAS node base, BLAS order base,
// custom index and the BLAS index count.
const InstanceRecordWords = 16

// NoAddress marks an address table entry without a linked buffer.
const NoAddress = 0xFFFFFFFF

// linkedBlob is one addressed buffer copied into the image.
type linkedBlob struct {
	id   uint32
	data []byte
}

// linkScene writes the scene image of st, built with tree, into a new
// backend buffer and binds it at the acceleration-structure slot. The
// previous image is retired.
func (d *Device) linkScene(st *accelState, tree *bvh.Tree) {
	img := d.sceneImage(st, tree)
	raw, err := d.dev.CreateBuffer(&hal.BufferDescriptor{
		Label: st.info.Label + "_linked",
		Size:  uint64(len(img)),
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		panic(fmt.Sprintf("gpu: tlas %q: create scene image: %v", st.info.Label, err))
	}
	if err := d.queue.WriteBuffer(raw, 0, img); err != nil {
		d.dev.DestroyBuffer(raw)
		panic(fmt.Sprintf("gpu: tlas %q: upload scene image: %v", st.info.Label, err))
	}
	d.releaseLinked(st)
	st.linked, st.image = raw, img
	d.heaps.setAccel(raw, uint64(len(img)))
	slogger().Debug("gpu: scene image linked", "label", st.info.Label, "bytes", len(img))
}

// releaseLinked unbinds and retires the scene image of st.
func (d *Device) releaseLinked(st *accelState) {
	old := st.linked
	if old == nil {
		return
	}
	if d.heaps != nil {
		d.heaps.clearAccel(old)
	}
	st.linked, st.image = nil, nil
	d.retire(deferred.KindBuffer, func() { d.dev.DestroyBuffer(old) })
}

func (d *Device) sceneImage(st *accelState, tree *bvh.Tree) []byte {
	count := int(st.info.InstanceCount)
	blobs, tableLen := d.addressSpace()

	nodeWords := len(tree.Nodes) * bvh.NodeSize / 4
	instBase := nodeWords + count
	tableBase := instBase + count*InstanceRecordWords
	dataBase := tableBase + 1 + tableLen
	words := dataBase
	for _, b := range blobs {
		words += wordsOf(b.data)
	}

	img := make([]byte, words*4)
	tree.Serialize(img)
	put := func(word int, v uint32) { binary.LittleEndian.PutUint32(img[word*4:], v) }

	put(tableBase, uint32(tableLen)) //nolint:gosec // bounded by the address count
	for i := 0; i < tableLen; i++ {
		put(tableBase+1+i, NoAddress)
	}
	base := make(map[uint32]int, len(blobs))
	at := dataBase
	for _, b := range blobs {
		base[b.id] = at
		put(tableBase+1+int(b.id), uint32(at)) //nolint:gosec // image offsets fit in a word
		copy(img[at*4:], b.data)
		at += wordsOf(b.data)
	}

	records := d.hostData(st.info.Instances)
	for i := 0; i < count; i++ {
		inst := DecodeInstance(records[i*InstanceSize:])
		blas, ok := d.blasByAddress(inst.BLAS)
		if !ok {
			panic(fmt.Sprintf("gpu: tlas %q instance %d references unknown blas %#x", st.info.Label, i, inst.BLAS))
		}
		w := instBase + i*InstanceRecordWords
		inv := worldToObject(inst.Transform)
		for r := 0; r < 3; r++ {
			for c := 0; c < 4; c++ {
				put(w+r*4+c, math.Float32bits(inv[r][c]))
			}
		}
		nodes := base[uint32(inst.BLAS>>32)] + int(uint32(inst.BLAS))/4
		put(w+12, uint32(nodes))                           //nolint:gosec // image offsets fit in a word
		put(w+13, uint32(nodes+blas.nodes*bvh.NodeSize/4)) //nolint:gosec // image offsets fit in a word
		put(w+14, inst.CustomIndex)
		put(w+15, blas.info.Triangles.IndexCount)
	}
	return img
}

// addressSpace returns the host copies of every addressed buffer in
// address order, leaving out TLAS storage, and the address table length.
func (d *Device) addressSpace() ([]linkedBlob, int) {
	tlas := make(map[Buffer]bool)
	d.accels.Each(func(_ handle.Handle, s *accelState) {
		if s.info.Kind == TLAS {
			tlas[s.storage] = true
		}
	})
	ids := make([]uint32, 0, len(d.addresses))
	for id, b := range d.addresses {
		if !tlas[b] {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	blobs := make([]linkedBlob, 0, len(ids))
	tableLen := 0
	for _, id := range ids {
		blobs = append(blobs, linkedBlob{id: id, data: d.hostData(d.addresses[id])})
		tableLen = int(id) + 1
	}
	return blobs, tableLen
}

func wordsOf(b []byte) int { return (len(b) + 3) / 4 }

// worldToObject inverts an object-to-world instance transform. A singular
// transform yields zero rows, so its instance is never hit.
func worldToObject(m [3][4]float32) [3][4]float32 {
	full := mgl32.Mat4FromRows(
		mgl32.Vec4(m[0]),
		mgl32.Vec4(m[1]),
		mgl32.Vec4(m[2]),
		mgl32.Vec4{0, 0, 0, 1},
	)
	inv := full.Inv()
	var out [3][4]float32
	for r := 0; r < 3; r++ {
		out[r] = inv.Row(r)
	}
	return out
}

// AccelImage returns the host copy of the scene image linked by the last
// build of TLAS a, or nil before the first build.
func (d *Device) AccelImage(a AccelStruct) []byte { return d.accel(a).image }
