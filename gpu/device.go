// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/lumen/internal/cache"
	"github.com/gogpu/lumen/internal/deferred"
	"github.com/gogpu/lumen/internal/handle"
	"github.com/gogpu/lumen/internal/parallel"
)

// Stats reports device counters.
type Stats struct {
	// Frames is the number of submitted frames.
	Frames uint64
	// FenceWaits is the number of host-side waits for a frame slot at
	// frame end.
	FenceWaits uint64
	// LastWaitSlot is the frame slot waited on by the last submit.
	LastWaitSlot int
	// Released is the number of objects destroyed by the deferred queue.
	Released uint64
	// PendingReleases is the number of objects waiting in the deferred queue.
	PendingReleases int
	// Buffers, Textures and AccelStructs count live handles.
	Buffers      int
	Textures     int
	AccelStructs int
	// OneShotSubmits counts creation-time submit-and-wait round trips.
	OneShotSubmits uint64
	// AccelBuilds counts acceleration-structure builds.
	AccelBuilds uint64
	// SPIRVCacheHits counts WGSL compilations served from the cache.
	SPIRVCacheHits uint64
}

// frameSlot holds the per-frame-in-flight state.
type frameSlot struct {
	submission uint64 // queue index of the last submit, 0 before the first
	lists      []*CommandList
	used       int
	begun      bool
	submitted  []hal.CommandBuffer
	push       *pushRing
}

// Device is the GPU device abstraction. It owns every backend object
// created through it in side tables addressed by generational handles.
//
// Device is not safe for concurrent use. All calls come from the frame
// thread; the GPU is the only other agent.
type Device struct {
	dev   hal.Device
	queue hal.Queue
	opts  deviceOptions

	owned    bool
	instance hal.Instance

	destroyQueue *deferred.Queue
	builds       *parallel.Pool
	spirv        *cache.Cache[string, []uint32]
	frameCounter uint64
	currentFrame int
	slots        []frameSlot

	buffers      handle.Pool[bufferState]
	textures     handle.Pool[textureState]
	samplers     handle.Pool[samplerState]
	shaders      handle.Pool[shaderState]
	pipelines    handle.Pool[pipelineState]
	rtPipelines  handle.Pool[rtPipelineState]
	accels       handle.Pool[accelState]
	addresses    map[uint32]Buffer
	nextAddress  uint32
	pipelineIDs  uint32
	heaps        *heapSet
	pushLayout   hal.BindGroupLayout
	layout       hal.PipelineLayout
	stats        Stats
	closed       bool
	adapterLabel string
}

// NewDevice wraps an opened HAL device and queue. The caller keeps
// ownership of dev; Close releases only the objects created through the
// returned Device.
func NewDevice(dev hal.Device, queue hal.Queue, opts ...DeviceOption) (*Device, error) {
	if dev == nil || queue == nil {
		return nil, ErrNoDevice
	}
	o := defaultDeviceOptions()
	for _, opt := range opts {
		opt(&o)
	}

	d := &Device{
		dev:          dev,
		queue:        queue,
		opts:         o,
		destroyQueue: deferred.New(o.framesInFlight),
		slots:        make([]frameSlot, o.framesInFlight),
		addresses:    make(map[uint32]Buffer),
		nextAddress:  1,
		spirv:        cache.New[string, []uint32](spirvCacheSize),
	}
	if err := d.init(); err != nil {
		d.releaseAll()
		return nil, err
	}
	slogger().Info("gpu: device ready",
		"framesInFlight", o.framesInFlight,
		"adapter", d.adapterLabel)
	return d, nil
}

func (d *Device) init() error {
	for i := range d.slots {
		d.slots[i].lists = make([]*CommandList, 0, d.opts.maxCommandLists)
	}

	heaps, err := newHeapSet(d)
	if err != nil {
		return err
	}
	d.heaps = heaps

	if err := d.createPushResources(); err != nil {
		return err
	}

	layout, err := d.dev.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "lumen_pipeline_layout",
		BindGroupLayouts: []hal.BindGroupLayout{d.heaps.layout, d.pushLayout},
	})
	if err != nil {
		return fmt.Errorf("gpu: create pipeline layout: %w", err)
	}
	d.layout = layout
	return nil
}

// AdapterInfo describes an adapter exposed by a backend.
type AdapterInfo struct {
	Name       string
	DeviceType gputypes.DeviceType
	Index      int
}

// Adapters enumerates the adapters of the given backend.
func Adapters(backend gputypes.Backend) ([]AdapterInfo, error) {
	b, ok := hal.GetBackend(backend)
	if !ok {
		return nil, fmt.Errorf("%w: backend %v not registered", ErrNoDevice, backend)
	}
	instance, err := b.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("gpu: create instance: %w", err)
	}
	defer instance.Destroy()

	exposed := instance.EnumerateAdapters(nil)
	infos := make([]AdapterInfo, 0, len(exposed))
	for i := range exposed {
		infos = append(infos, AdapterInfo{
			Name:       exposed[i].Info.Name,
			DeviceType: exposed[i].Info.DeviceType,
			Index:      i,
		})
	}
	return infos, nil
}

// Open creates a device on the first discrete or integrated adapter of
// the given backend, falling back to the first adapter.
func Open(backend gputypes.Backend, opts ...DeviceOption) (*Device, error) {
	b, ok := hal.GetBackend(backend)
	if !ok {
		return nil, fmt.Errorf("%w: backend %v not registered", ErrNoDevice, backend)
	}
	instance, err := b.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("gpu: create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("%w: no adapters found", ErrNoDevice)
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("%w: open %s: %v", ErrNoDevice, selected.Info.Name, err)
	}

	d, err := NewDevice(openDev.Device, openDev.Queue, opts...)
	if err != nil {
		openDev.Device.Destroy()
		instance.Destroy()
		return nil, err
	}
	d.owned = true
	d.instance = instance
	d.adapterLabel = selected.Info.Name
	slogger().Info("gpu: adapter selected", "name", selected.Info.Name)
	return d, nil
}

// HAL returns the underlying HAL device and queue.
func (d *Device) HAL() (hal.Device, hal.Queue) { return d.dev, d.queue }

// FramesInFlight returns the number of frames in flight.
func (d *Device) FramesInFlight() int { return len(d.slots) }

// FrameCounter returns the global frame counter. It increments once per
// SubmitCommandLists.
func (d *Device) FrameCounter() uint64 { return d.frameCounter }

// CurrentFrame returns the current frame slot in [0, FramesInFlight()).
func (d *Device) CurrentFrame() int { return d.currentFrame }

// StorageImageFormat returns the format shared by every unordered-access
// image.
func (d *Device) StorageImageFormat() gputypes.TextureFormat { return d.opts.storageImageFormat }

// Stats returns device counters.
func (d *Device) Stats() Stats {
	s := d.stats
	s.Released = d.destroyQueue.Released()
	s.PendingReleases = d.destroyQueue.Pending()
	s.Buffers = d.buffers.Len()
	s.Textures = d.textures.Len()
	s.AccelStructs = d.accels.Len()
	s.SPIRVCacheHits = d.spirv.Stats().Hits
	return s
}

// HeapInUse returns the number of allocated descriptors in heap.
func (d *Device) HeapInUse(h Heap) int { return d.heaps.alloc[h].InUse() }

// retire enqueues release for destruction once no in-flight frame can
// reference the object.
func (d *Device) retire(kind deferred.Kind, release func()) {
	d.destroyQueue.Push(kind, d.frameCounter, release)
}

// WaitIdle blocks until every submitted frame has completed.
func (d *Device) WaitIdle() error {
	for i := range d.slots {
		if err := d.waitSubmission(d.slots[i].submission); err != nil {
			return fmt.Errorf("gpu: wait idle on frame slot %d: %w", i, err)
		}
	}
	return nil
}

// Close waits for the GPU, destroys every pending and live object created
// through d and, if d opened the HAL device itself, the device.
func (d *Device) Close() error {
	if d.closed {
		return nil
	}
	err := d.WaitIdle()
	d.releaseAll()
	d.closed = true
	if d.builds != nil {
		d.builds.Close()
	}
	if d.owned {
		d.dev.Destroy()
		if d.instance != nil {
			d.instance.Destroy()
		}
	}
	return err
}

func (d *Device) releaseAll() {
	d.destroyQueue.Flush()

	d.accels.Each(func(_ handle.Handle, s *accelState) { d.freeAccel(s) })
	d.rtPipelines.Each(func(_ handle.Handle, s *rtPipelineState) { d.freeRTPipeline(s) })
	d.pipelines.Each(func(_ handle.Handle, s *pipelineState) { d.freePipeline(s) })
	d.shaders.Each(func(_ handle.Handle, s *shaderState) { d.freeShader(s) })
	d.samplers.Each(func(_ handle.Handle, s *samplerState) { d.dev.DestroySampler(s.raw) })
	d.textures.Each(func(_ handle.Handle, s *textureState) { d.freeTexture(s) })
	d.buffers.Each(func(_ handle.Handle, s *bufferState) { d.freeBuffer(s) })
	d.buffers = handle.Pool[bufferState]{}
	d.textures = handle.Pool[textureState]{}
	d.samplers = handle.Pool[samplerState]{}
	d.shaders = handle.Pool[shaderState]{}
	d.pipelines = handle.Pool[pipelineState]{}
	d.rtPipelines = handle.Pool[rtPipelineState]{}
	d.accels = handle.Pool[accelState]{}

	for i := range d.slots {
		s := &d.slots[i]
		for _, cb := range s.submitted {
			d.dev.FreeCommandBuffer(cb)
		}
		s.submitted = nil
		if s.push != nil {
			s.push.destroy(d.dev)
			s.push = nil
		}
	}
	if d.layout != nil {
		d.dev.DestroyPipelineLayout(d.layout)
		d.layout = nil
	}
	if d.pushLayout != nil {
		d.dev.DestroyBindGroupLayout(d.pushLayout)
		d.pushLayout = nil
	}
	if d.heaps != nil {
		d.heaps.destroy()
		d.heaps = nil
	}
}

// submitAndWait submits one recorded encoder and blocks until it
// completes. It serves creation-time uploads and readback.
func (d *Device) submitAndWait(label string, record func(enc hal.CommandEncoder)) error {
	enc, err := d.dev.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return fmt.Errorf("gpu: %s: create encoder: %w", label, err)
	}
	if err := enc.BeginEncoding(label); err != nil {
		return fmt.Errorf("gpu: %s: begin encoding: %w", label, err)
	}
	record(enc)
	cb, err := enc.EndEncoding()
	if err != nil {
		return fmt.Errorf("gpu: %s: end encoding: %w", label, err)
	}
	defer d.dev.FreeCommandBuffer(cb)

	idx, err := d.queue.Submit([]hal.CommandBuffer{cb})
	if err != nil {
		return fmt.Errorf("gpu: %s: submit: %w", label, err)
	}
	if err := d.waitSubmission(idx); err != nil {
		return fmt.Errorf("gpu: %s: wait for GPU: %w", label, err)
	}
	d.stats.OneShotSubmits++
	return nil
}

func (d *Device) checkOpen() error {
	if d.closed {
		return ErrDeviceClosed
	}
	return nil
}
