// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/lumen/internal/bvh"
	"github.com/gogpu/lumen/internal/handle"
	"github.com/gogpu/lumen/internal/parallel"
)

// AccelKind is the level of an acceleration structure.
type AccelKind uint8

// Acceleration structure levels.
const (
	// BLAS is a bottom-level structure over triangle geometry.
	BLAS AccelKind = iota
	// TLAS is a top-level structure over BLAS instances.
	TLAS
)

// String returns the level name.
func (k AccelKind) String() string {
	if k == TLAS {
		return "tlas"
	}
	return "blas"
}

// TriangleGeometry locates the triangles of a BLAS through device
// addresses of ray-tracing build-input buffers. Positions are the first
// three float32 of every vertex. Indices are uint32; a zero IndexCount
// builds a non-indexed list.
type TriangleGeometry struct {
	VertexAddress uint64
	VertexStride  uint32
	VertexCount   uint32
	IndexAddress  uint64
	IndexCount    uint32
}

// AccelStructInfo describes an acceleration structure.
type AccelStructInfo struct {
	Label     string
	Kind      AccelKind
	Triangles TriangleGeometry
	// Instances is a build-input buffer of InstanceCount encoded Instance
	// records. TLAS only.
	Instances     Buffer
	InstanceCount uint32
}

// AccelStruct is a handle to an acceleration structure owned by a Device.
type AccelStruct struct{ h handle.Handle }

// IsValid reports whether a was returned by a successful CreateAccelStruct.
func (a AccelStruct) IsValid() bool { return !a.h.IsZero() }

type accelState struct {
	info    AccelStructInfo
	storage Buffer
	scratch Buffer
	size    uint64
	built   bool
	bounds  bvh.AABB
	nodes   int
	// linked is the scene image of a TLAS, image its host copy.
	linked hal.Buffer
	image  []byte
}

// InstanceSize is the encoded size of an Instance.
const InstanceSize = 64

// Instance is one TLAS entry. Transform holds the first three rows of the
// object-to-world matrix.
type Instance struct {
	Transform   [3][4]float32
	CustomIndex uint32 // low 24 bits
	Mask        uint8
	SBTOffset   uint32 // low 24 bits
	Flags       uint8
	BLAS        uint64
}

// Encode writes i into dst, which must hold InstanceSize bytes.
func (i *Instance) Encode(dst []byte) {
	_ = dst[InstanceSize-1]
	off := 0
	for r := 0; r < 3; r++ {
		for c := 0; c < 4; c++ {
			binary.LittleEndian.PutUint32(dst[off:], math.Float32bits(i.Transform[r][c]))
			off += 4
		}
	}
	binary.LittleEndian.PutUint32(dst[48:], i.CustomIndex&0xFFFFFF|uint32(i.Mask)<<24)
	binary.LittleEndian.PutUint32(dst[52:], i.SBTOffset&0xFFFFFF|uint32(i.Flags)<<24)
	binary.LittleEndian.PutUint64(dst[56:], i.BLAS)
}

// DecodeInstance reads an Instance written by Encode.
func DecodeInstance(src []byte) Instance {
	_ = src[InstanceSize-1]
	var i Instance
	off := 0
	for r := 0; r < 3; r++ {
		for c := 0; c < 4; c++ {
			i.Transform[r][c] = math.Float32frombits(binary.LittleEndian.Uint32(src[off:]))
			off += 4
		}
	}
	w := binary.LittleEndian.Uint32(src[48:])
	i.CustomIndex, i.Mask = w&0xFFFFFF, uint8(w>>24)
	w = binary.LittleEndian.Uint32(src[52:])
	i.SBTOffset, i.Flags = w&0xFFFFFF, uint8(w>>24)
	i.BLAS = binary.LittleEndian.Uint64(src[56:])
	return i
}

// transformBox returns the world bounds of b under the instance transform.
func (i *Instance) transformBox(b bvh.AABB) bvh.AABB {
	out := bvh.EmptyAABB()
	if !b.Valid() {
		return out
	}
	for corner := 0; corner < 8; corner++ {
		p := [3]float32{b.Min[0], b.Min[1], b.Min[2]}
		for axis := 0; axis < 3; axis++ {
			if corner&(1<<axis) != 0 {
				p[axis] = b.Max[axis]
			}
		}
		var w [3]float32
		for r := 0; r < 3; r++ {
			t := i.Transform[r]
			w[r] = t[0]*p[0] + t[1]*p[1] + t[2]*p[2] + t[3]
		}
		out.GrowPoint(w)
	}
	return out
}

func (info *AccelStructInfo) primitiveCount() int {
	if info.Kind == TLAS {
		return int(info.InstanceCount)
	}
	if info.Triangles.IndexCount > 0 {
		return int(info.Triangles.IndexCount / 3)
	}
	return int(info.Triangles.VertexCount / 3)
}

// CreateAccelStruct allocates the storage and scratch buffers of an
// acceleration structure. The result must be built with
// CommandList.BuildAccelStruct before use.
func (d *Device) CreateAccelStruct(info AccelStructInfo) (AccelStruct, error) {
	if err := d.checkOpen(); err != nil {
		return AccelStruct{}, err
	}
	n := info.primitiveCount()
	if n == 0 {
		return AccelStruct{}, fmt.Errorf("%w: %s %q has no primitives", ErrInvalidInfo, info.Kind, info.Label)
	}
	if info.Kind == TLAS && !info.Instances.IsValid() {
		return AccelStruct{}, fmt.Errorf("%w: tlas %q has no instance buffer", ErrInvalidInfo, info.Label)
	}
	size := bvh.SizeFor(n)

	storage, err := d.CreateBuffer(BufferInfo{
		Label: info.Label + "_storage",
		Size:  size,
		Usage: UsageDefault,
		Misc:  MiscRayTracingBuildInput,
	}, nil)
	if err != nil {
		return AccelStruct{}, fmt.Errorf("create %s %q: %w", info.Kind, info.Label, err)
	}
	scratch, err := d.CreateBuffer(BufferInfo{
		Label:         info.Label + "_scratch",
		Size:          size,
		Usage:         UsageUpload,
		PersistentMap: true,
	}, nil)
	if err != nil {
		d.DestroyBuffer(storage)
		return AccelStruct{}, fmt.Errorf("create %s %q: %w", info.Kind, info.Label, err)
	}

	slogger().Debug("gpu: acceleration structure created",
		"label", info.Label, "kind", info.Kind.String(), "primitives", n, "size", size)
	return AccelStruct{h: d.accels.Insert(accelState{
		info:    info,
		storage: storage,
		scratch: scratch,
		size:    size,
		bounds:  bvh.EmptyAABB(),
	})}, nil
}

func (d *Device) accel(a AccelStruct) *accelState {
	st, ok := d.accels.Get(a.h)
	if !ok {
		panic(fmt.Sprintf("gpu: stale or invalid acceleration structure handle %v", a.h))
	}
	return st
}

// AccelAddress returns the device address referenced by TLAS instances.
func (d *Device) AccelAddress(a AccelStruct) uint64 {
	return d.DeviceAddress(d.accel(a).storage)
}

// AccelBuilt reports whether a has been built.
func (d *Device) AccelBuilt(a AccelStruct) bool { return d.accel(a).built }

// AccelNodeCount returns the number of hierarchy nodes of the last build.
// Shaders find the primitive order array right after the nodes.
func (d *Device) AccelNodeCount(a AccelStruct) uint32 {
	return uint32(d.accel(a).nodes) //nolint:gosec // bounded by primitive count
}

// DestroyAccelStruct drops the owner's reference to a.
func (d *Device) DestroyAccelStruct(a AccelStruct) {
	st, ok := d.accels.Remove(a.h)
	if !ok {
		panic(fmt.Sprintf("gpu: destroy of stale acceleration structure handle %v", a.h))
	}
	d.releaseLinked(&st)
	d.DestroyBuffer(st.storage)
	d.DestroyBuffer(st.scratch)
}

func (d *Device) freeAccel(st *accelState) {
	// The storage and scratch buffers are owned by the buffer table.
	if st.linked != nil {
		d.dev.DestroyBuffer(st.linked)
		st.linked, st.image = nil, nil
	}
	st.built = false
}

// blasByAddress finds the BLAS whose storage sits at addr.
func (d *Device) blasByAddress(addr uint64) (*accelState, bool) {
	buf, _, ok := d.ResolveAddress(addr)
	if !ok {
		return nil, false
	}
	var found *accelState
	d.accels.Each(func(_ handle.Handle, st *accelState) {
		if st.info.Kind == BLAS && st.storage == buf {
			found = st
		}
	})
	return found, found != nil
}

// buildTree computes the hierarchy of st on the host.
func (d *Device) buildTree(st *accelState) *bvh.Tree {
	if st.info.Kind == TLAS {
		return d.buildInstances(st)
	}
	return d.buildTriangles(st)
}

func (d *Device) buildTriangles(st *accelState) *bvh.Tree {
	g := st.info.Triangles
	vbuf, voff, ok := d.ResolveAddress(g.VertexAddress)
	if !ok {
		panic(fmt.Sprintf("gpu: blas %q: unresolved vertex address %#x", st.info.Label, g.VertexAddress))
	}
	vertices := d.hostData(vbuf)[voff:]
	var indices []byte
	if g.IndexCount > 0 {
		ibuf, ioff, ok := d.ResolveAddress(g.IndexAddress)
		if !ok {
			panic(fmt.Sprintf("gpu: blas %q: unresolved index address %#x", st.info.Label, g.IndexAddress))
		}
		indices = d.hostData(ibuf)[ioff:]
	}
	stride := g.VertexStride
	if stride == 0 {
		stride = 12
	}
	position := func(v uint32) [3]float32 {
		o := v * stride
		return [3]float32{
			math.Float32frombits(binary.LittleEndian.Uint32(vertices[o:])),
			math.Float32frombits(binary.LittleEndian.Uint32(vertices[o+4:])),
			math.Float32frombits(binary.LittleEndian.Uint32(vertices[o+8:])),
		}
	}

	n := st.info.primitiveCount()
	boxes := make([]bvh.AABB, n)
	for t := 0; t < n; t++ {
		box := bvh.EmptyAABB()
		for k := 0; k < 3; k++ {
			v := uint32(t*3 + k) //nolint:gosec // bounded by primitive count
			if indices != nil {
				v = binary.LittleEndian.Uint32(indices[v*4:])
			}
			box.GrowPoint(position(v))
		}
		boxes[t] = box
	}
	return bvh.Build(boxes, bvh.Options{MaxLeafItems: 4})
}

func (d *Device) buildInstances(st *accelState) *bvh.Tree {
	records := d.hostData(st.info.Instances)
	boxes := make([]bvh.AABB, st.info.InstanceCount)
	for i := range boxes {
		inst := DecodeInstance(records[i*InstanceSize:])
		blas, ok := d.blasByAddress(inst.BLAS)
		if !ok {
			panic(fmt.Sprintf("gpu: tlas %q instance %d references unknown blas %#x", st.info.Label, i, inst.BLAS))
		}
		if !blas.built {
			panic(fmt.Sprintf("gpu: tlas %q instance %d references unbuilt blas %q", st.info.Label, i, blas.info.Label))
		}
		boxes[i] = inst.transformBox(blas.bounds)
	}
	return bvh.Build(boxes, bvh.Options{MaxLeafItems: 1})
}

// buildPool returns the pool building bottom-level hierarchies, starting
// it on first use.
func (d *Device) buildPool() *parallel.Pool {
	if d.builds == nil {
		d.builds = parallel.NewPool(d.opts.buildWorkers)
	}
	return d.builds
}

// buildTrees computes the hierarchies of sts concurrently. A panic in any
// build is re-raised on the calling goroutine.
func (d *Device) buildTrees(sts []*accelState) []*bvh.Tree {
	trees := make([]*bvh.Tree, len(sts))
	var (
		mu     sync.Mutex
		failed any
	)
	d.buildPool().Run(len(sts), func(i int) {
		defer func() {
			if r := recover(); r != nil {
				mu.Lock()
				if failed == nil {
					failed = r
				}
				mu.Unlock()
			}
		}()
		trees[i] = d.buildTree(sts[i])
	})
	if failed != nil {
		panic(failed)
	}
	return trees
}

// recordBuild builds st into its scratch buffer and records the copy into
// storage. A TLAS also links the scene image into the
// acceleration-structure heap slot.
func (d *Device) recordBuild(enc hal.CommandEncoder, st *accelState) {
	d.recordTree(enc, st, d.buildTree(st))
}

func (d *Device) recordTree(enc hal.CommandEncoder, st *accelState, tree *bvh.Tree) {
	scratch := d.Mapped(st.scratch)
	clear(scratch)
	n := tree.Serialize(scratch)

	storage := d.buffer(st.storage)
	copy(storage.shadow, scratch[:n])
	enc.CopyBufferToBuffer(d.buffer(st.scratch).raw, storage.raw, []hal.BufferCopy{{
		SrcOffset: 0,
		DstOffset: 0,
		Size:      alignUp(uint64(n), 4),
	}})
	st.bounds = tree.Bounds()
	st.nodes = len(tree.Nodes)
	st.built = true
	d.stats.AccelBuilds++

	if st.info.Kind == TLAS {
		d.linkScene(st, tree)
	}
	slogger().Debug("gpu: acceleration structure built",
		"label", st.info.Label, "kind", st.info.Kind.String(),
		"nodes", len(tree.Nodes), "depth", tree.Depth())
}
