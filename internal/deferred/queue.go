// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package deferred retires GPU objects once no in-flight frame can
// reference them.
//
// Entries are stamped with the global frame counter when their owner drops
// them. An entry stamped at frame F is released by the first Process call
// that observes a counter greater than F+latency, which is after the fence
// wait that proves frame F+latency has completed on the GPU.
package deferred

import "fmt"

// Kind segments the queue by object type. Segments are drained in Kind
// order so that views go before their textures and bind groups before the
// buffers they reference.
type Kind uint8

// Object kinds, in release order.
const (
	KindBindGroup Kind = iota
	KindPipeline
	KindShader
	KindView
	KindSampler
	KindAccelStruct
	KindTexture
	KindBuffer
	KindSwapchain
	KindDescriptor
	kindCount
)

var kindNames = [kindCount]string{
	"bind-group", "pipeline", "shader", "view", "sampler",
	"accel-struct", "texture", "buffer", "swapchain", "descriptor",
}

// String returns the kind name.
func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

type entry struct {
	stamp   uint64
	release func()
}

// Queue is a kind-segmented destruction queue.
// Queue is not safe for concurrent use; it belongs to the frame thread.
type Queue struct {
	latency  uint64
	segments [kindCount][]entry
	released uint64
}

// New creates a queue that holds entries for latency frames.
func New(latency int) *Queue {
	if latency < 1 {
		latency = 1
	}
	return &Queue{latency: uint64(latency)}
}

// Latency returns the number of frames entries are held for.
func (q *Queue) Latency() int { return int(q.latency) } //nolint:gosec // small

// Push enqueues release under kind, stamped with the frame counter.
// Stamps within a segment must be non-decreasing.
func (q *Queue) Push(kind Kind, stamp uint64, release func()) {
	if kind >= kindCount {
		panic(fmt.Sprintf("deferred: invalid kind %d", kind))
	}
	seg := q.segments[kind]
	if n := len(seg); n > 0 && seg[n-1].stamp > stamp {
		panic(fmt.Sprintf("deferred: %s stamp %d precedes %d", kind, stamp, seg[n-1].stamp))
	}
	q.segments[kind] = append(seg, entry{stamp: stamp, release: release})
}

// Retired reports whether an entry stamped at stamp may be released at
// counter.
func (q *Queue) Retired(stamp, counter uint64) bool {
	return stamp+q.latency < counter
}

// Process releases every retired entry and returns the number released.
func (q *Queue) Process(counter uint64) int {
	n := 0
	for k := range q.segments {
		seg := q.segments[k]
		i := 0
		for i < len(seg) && q.Retired(seg[i].stamp, counter) {
			seg[i].release()
			seg[i] = entry{}
			i++
		}
		if i > 0 {
			q.segments[k] = seg[i:]
			n += i
		}
	}
	q.released += uint64(n) //nolint:gosec // non-negative
	return n
}

// Flush releases every entry regardless of stamp.
func (q *Queue) Flush() int {
	n := 0
	for k := range q.segments {
		for _, e := range q.segments[k] {
			e.release()
			n++
		}
		q.segments[k] = nil
	}
	q.released += uint64(n) //nolint:gosec // non-negative
	return n
}

// Pending returns the number of queued entries.
func (q *Queue) Pending() int {
	n := 0
	for k := range q.segments {
		n += len(q.segments[k])
	}
	return n
}

// PendingKind returns the number of queued entries of kind.
func (q *Queue) PendingKind(kind Kind) int { return len(q.segments[kind]) }

// Released returns the total number of entries released so far.
func (q *Queue) Released() uint64 { return q.released }
