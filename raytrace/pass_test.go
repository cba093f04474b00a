// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package raytrace

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/lumen/gpu"
	"github.com/gogpu/lumen/gpu/gputest"
	"github.com/gogpu/lumen/graph"
	"github.com/gogpu/lumen/scene"
)

type fixture struct {
	dev  *gpu.Device
	sc   *gpu.Swapchain
	g    *graph.Graph
	pass *Pass
}

func newFixture(t *testing.T, w, h uint32, s scene.Scene) *fixture {
	t.Helper()
	d := gputest.NewDevice(t)
	sc := gputest.NewSwapchain(t, d, w, h)
	g := graph.New(d)
	p, err := New(d, g, s)
	require.NoError(t, err)
	t.Cleanup(p.Destroy)
	g.AddPass("Composition", nil).AddInputAttachment(OutputAttachment)
	require.NoError(t, g.Build(sc))
	return &fixture{dev: d, sc: sc, g: g, pass: p}
}

func (f *fixture) frame(t *testing.T) {
	t.Helper()
	cmd := f.dev.BeginCommandList(gpu.QueueGraphics)
	if !f.pass.Built() {
		require.NoError(t, f.pass.BuildAccelStructs(cmd))
	}
	f.g.Execute(cmd, f.sc)
	gputest.Submit(t, f.dev, f.sc)
}

func TestSettingsClampSamples(t *testing.T) {
	assert.Equal(t, uint32(1), Settings{}.normalized().SamplesPerPixel)
	assert.Equal(t, uint32(4), DefaultSettings().SamplesPerPixel)

	f := newFixture(t, 32, 32, scene.CornellBox())
	f.pass.SetSettings(Settings{SamplesPerPixel: 0, RayBounces: 2})
	assert.Equal(t, uint32(1), f.pass.Settings().SamplesPerPixel)
	assert.Equal(t, uint32(2), f.pass.Settings().RayBounces)
}

func TestPushBlockEncode(t *testing.T) {
	b := PushBlock{
		FrameIndex:      7,
		SamplesPerPixel: 4,
		TotalSamples:    12,
		UseSkybox:       true,
		Reset:           true,
		Width:           640,
		Height:          480,
	}
	var buf [PushBlockSize]byte
	b.Encode(buf[:])
	word := func(i int) uint32 {
		return uint32(buf[i*4]) | uint32(buf[i*4+1])<<8 | uint32(buf[i*4+2])<<16 | uint32(buf[i*4+3])<<24
	}
	assert.Equal(t, uint32(7), word(0))
	assert.Equal(t, uint32(4), word(5))
	assert.Equal(t, uint32(12), word(6))
	assert.Equal(t, uint32(0), word(7), "normal maps")
	assert.Equal(t, uint32(1), word(8), "skybox")
	assert.Equal(t, uint32(1), word(9), "reset")
	assert.Equal(t, uint32(640), word(13))
	assert.Equal(t, uint32(480), word(14))
	assert.LessOrEqual(t, PushBlockSize, gpu.PushConstantSize())
}

func TestNewRegistersAttachments(t *testing.T) {
	f := newFixture(t, 48, 24, scene.CornellBox())
	p := f.g.Pass(PassName)
	require.NotNil(t, p)
	outs := p.Outputs()
	require.Len(t, outs, 2)
	for _, a := range outs {
		assert.Equal(t, graph.RWTexture, a.Info().Type)
		assert.Equal(t, graph.SizeSwapchainRelative, a.Info().SizeMode)
		w, h := a.Size()
		assert.Equal(t, [2]uint32{48, 24}, [2]uint32{w, h})
	}
	assert.Equal(t, OutputAttachment, outs[0].Name())
	assert.Equal(t, AccumulationAttachment, outs[1].Name())
}

func TestInitRecords(t *testing.T) {
	s := scene.CornellBox()
	f := newFixture(t, 32, 32, s)
	require.NoError(t, f.pass.Init())

	n := scene.CountPrimitives(s)
	require.Equal(t, 8, n)
	require.Equal(t, n, f.pass.PrimitiveCount())
	blas := f.pass.BLAS()
	require.Len(t, blas, n)

	var transforms []mgl32.Mat4
	var overrides []uint32
	s.Each(func(e scene.Entity) bool {
		for _, m := range e.Renderable.Meshes {
			for range m.Primitives {
				transforms = append(transforms, e.Transform)
				if e.Material != nil {
					idx, _ := scene.MaterialIndex(s, e.Material)
					overrides = append(overrides, idx)
				} else {
					overrides = append(overrides, NoMaterialOverride)
				}
			}
		}
		return true
	})

	records := f.dev.Mapped(f.pass.Instances())
	descs := f.dev.Mapped(f.pass.SceneDescBuffer())
	for i := 0; i < n; i++ {
		inst := gpu.DecodeInstance(records[i*gpu.InstanceSize:])
		assert.Equal(t, uint32(i), inst.CustomIndex, "instance %d", i)
		assert.Equal(t, uint8(0xFF), inst.Mask, "instance %d", i)
		assert.Equal(t, f.dev.AccelAddress(blas[i]), inst.BLAS, "instance %d", i)
		for r := 0; r < 3; r++ {
			assert.Equal(t, [4]float32(transforms[i].Row(r)), inst.Transform[r], "instance %d row %d", i, r)
		}

		desc := DecodeSceneDesc(descs[i*SceneDescSize:])
		assert.Equal(t, overrides[i], desc.MaterialOverride, "record %d", i)
		assert.NotZero(t, desc.Materials, "record %d", i)
	}

	// Records of one mesh share its buffers and are offset by the
	// primitive's base vertex.
	first := DecodeSceneDesc(descs[0:])
	second := DecodeSceneDesc(descs[SceneDescSize:])
	room := s.Entity(0).Renderable.Meshes[0]
	assert.Equal(t, uint64(room.Primitives[1].BaseVertex)*scene.VertexSize, second.Vertices-first.Vertices)
	assert.Equal(t, uint64(room.Primitives[1].BaseIndex)*4, second.Indices-first.Indices)
}

func TestBuildAccelStructs(t *testing.T) {
	f := newFixture(t, 32, 32, scene.CornellBox())
	cmd := f.dev.BeginCommandList(gpu.QueueGraphics)
	assert.ErrorIs(t, f.pass.BuildAccelStructs(cmd), ErrNotInitialized)

	require.NoError(t, f.pass.Init())
	require.NoError(t, f.pass.BuildAccelStructs(cmd))
	gputest.Submit(t, f.dev, f.sc)
	for _, b := range f.pass.BLAS() {
		assert.True(t, f.dev.AccelBuilt(b))
	}
	assert.True(t, f.dev.AccelBuilt(f.pass.TLAS()))
	assert.NotZero(t, f.dev.AccelNodeCount(f.pass.TLAS()))
}

func TestInitEmptyScene(t *testing.T) {
	f := newFixture(t, 16, 16, scene.NewMemory())
	assert.ErrorIs(t, f.pass.Init(), ErrEmptyScene)
}

func TestAccumulation(t *testing.T) {
	f := newFixture(t, 32, 32, scene.CornellBox())
	require.NoError(t, f.pass.Init())
	cam := scene.DefaultCamera()
	view, proj := cam.View(), cam.Projection(1)

	for i := 0; i < 10; i++ {
		f.pass.SetCamera(view, proj)
		f.frame(t)
		assert.False(t, f.pass.PushBlock().Reset, "frame %d", i+1)
	}
	assert.Equal(t, uint32(40), f.pass.TotalSamples())
	assert.Equal(t, uint32(36), f.pass.PushBlock().TotalSamples)

	cam.Position = cam.Position.Add(mgl32.Vec3{0.1, 0, 0})
	f.pass.SetCamera(cam.View(), proj)
	f.frame(t)
	block := f.pass.PushBlock()
	assert.True(t, block.Reset)
	assert.Equal(t, uint32(4), block.TotalSamples)
	assert.Equal(t, uint32(8), f.pass.TotalSamples())

	f.pass.ResetAccumulation()
	f.frame(t)
	assert.True(t, f.pass.PushBlock().Reset)
	assert.Equal(t, uint32(8), f.pass.TotalSamples())
}

func TestDispatchFollowsResize(t *testing.T) {
	f := newFixture(t, 64, 32, scene.CornellBox())
	require.NoError(t, f.pass.Init())
	f.frame(t)
	block := f.pass.PushBlock()
	assert.Equal(t, [2]uint32{64, 32}, [2]uint32{block.Width, block.Height})
	assert.Equal(t, uint32(8), block.InstanceCount)
	assert.NotZero(t, block.InstanceOrder)

	require.NoError(t, f.g.Resize(100, 50))
	f.sc = gputest.NewSwapchain(t, f.dev, 100, 50)
	f.frame(t)
	block = f.pass.PushBlock()
	assert.Equal(t, [2]uint32{100, 50}, [2]uint32{block.Width, block.Height})
	assert.Equal(t, 2, f.pass.Dispatches())
}
