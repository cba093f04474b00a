// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package lumen is a frame-graph renderer that path-traces a scene on the
// GPU, composes the result onto the swapchain and draws an immediate-mode
// UI on top.
//
// A Renderer owns one frame loop. The host forwards window events to the
// On* methods and calls Frame once per displayed frame:
//
//	r, err := lumen.New(dev, queue, scene.CornellBox(),
//	    lumen.WithPresenter(surface),
//	    lumen.WithUI(func(c *ui.Context) {
//	        if c.Button("Reset") {
//	            r.RayTracing().ResetAccumulation()
//	        }
//	    }))
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//
//	for running {
//	    if err := r.Frame(dt); err != nil {
//	        return err
//	    }
//	}
//
// Frames are recorded on the device's frame slots: the camera uniforms of
// a slot are written while the GPU may still read the uniforms of the
// other slots, and resources released by a frame are destroyed once every
// slot has cycled past it.
//
// Sub-packages:
//   - gpu: device, bindless heaps, deferred destruction, swapchain
//   - graph: render graph with automatic barriers
//   - raytrace: progressive path tracer pass
//   - compose: fullscreen composition pass
//   - ui: immediate-mode widgets and their sprite pass
//   - scene, input: scene description, camera and input snapshots
package lumen
