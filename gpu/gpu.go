// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package gpu is the device abstraction of the renderer.
//
// A Device owns every backend object created through it and hands out
// small generational handles (Buffer, Texture, Sampler, Shader, Pipeline,
// RayTracingPipeline, AccelStruct). Using a handle after it was destroyed
// panics instead of touching freed memory.
//
// # Frames in flight
//
// The device keeps FramesInFlight frame slots, each remembering the queue
// submission index of its last submit alongside a command-list pool and a
// push-constant ring. SubmitCommandLists submits the current slot, then
// waits exactly once, on the slot it is about to reuse, by polling the
// queue until that index completed.
// Destroy calls never free immediately: objects are queued with the frame
// counter at the time of the call and released once
// stamp + FramesInFlight < FrameCounter.
//
// # Bindless resources
//
// Resources are not bound per draw. Creating a buffer, texture or sampler
// assigns it an index in one of the descriptor heaps (see Heap), and
// shaders index the heaps at bind group 0. Per-draw parameters, typically
// those indices, travel in a PushConstantSize byte block at group 1.
//
// # Ray tracing
//
// Acceleration structures are built on the host as SAH bounding volume
// hierarchies and uploaded through the command list. Ray-tracing pipelines
// link their ray-generation, miss and closest-hit stages into one compute
// kernel that traverses the uploaded hierarchy.
package gpu
