// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package handle implements generational handles over a slot pool.
//
// A Handle is a small copyable value. Removing an entry bumps the slot
// generation, so handles that outlive their entry fail validation instead
// of aliasing a newer object stored in the same slot.
package handle

import "fmt"

// Handle identifies an entry in a Pool. The zero Handle is never valid.
type Handle struct {
	index uint32
	gen   uint32
}

// IsZero reports whether h is the zero handle.
func (h Handle) IsZero() bool { return h.gen == 0 }

// Index returns the slot index of h.
func (h Handle) Index() uint32 { return h.index }

// Generation returns the generation of h.
func (h Handle) Generation() uint32 { return h.gen }

// String returns a string representation of the handle.
func (h Handle) String() string {
	return fmt.Sprintf("Handle(%d#%d)", h.index, h.gen)
}

type slot[T any] struct {
	value T
	gen   uint32 // odd while occupied
}

// Pool stores values addressed by generational handles.
// Pool is not safe for concurrent use.
type Pool[T any] struct {
	slots []slot[T]
	free  []uint32
	live  int
}

// Insert stores v and returns its handle.
func (p *Pool[T]) Insert(v T) Handle {
	var idx uint32
	if n := len(p.free); n > 0 {
		idx = p.free[n-1]
		p.free = p.free[:n-1]
	} else {
		idx = uint32(len(p.slots)) //nolint:gosec // slot count fits in uint32
		p.slots = append(p.slots, slot[T]{})
	}
	s := &p.slots[idx]
	s.gen++
	s.value = v
	p.live++
	return Handle{index: idx, gen: s.gen}
}

// Get returns a pointer to the value for h.
// The pointer is valid until the next Insert.
func (p *Pool[T]) Get(h Handle) (*T, bool) {
	if !p.valid(h) {
		return nil, false
	}
	return &p.slots[h.index].value, true
}

// Remove deletes the value for h and returns it.
func (p *Pool[T]) Remove(h Handle) (T, bool) {
	var zero T
	if !p.valid(h) {
		return zero, false
	}
	s := &p.slots[h.index]
	v := s.value
	s.value = zero
	s.gen++
	p.free = append(p.free, h.index)
	p.live--
	return v, true
}

// Contains reports whether h refers to a live entry.
func (p *Pool[T]) Contains(h Handle) bool { return p.valid(h) }

// Len returns the number of live entries.
func (p *Pool[T]) Len() int { return p.live }

// Each calls fn for every live entry in slot order.
func (p *Pool[T]) Each(fn func(Handle, *T)) {
	for i := range p.slots {
		s := &p.slots[i]
		if s.gen&1 == 1 {
			fn(Handle{index: uint32(i), gen: s.gen}, &s.value) //nolint:gosec // bounded by Insert
		}
	}
}

func (p *Pool[T]) valid(h Handle) bool {
	if h.gen == 0 || int(h.index) >= len(p.slots) {
		return false
	}
	s := &p.slots[h.index]
	return s.gen == h.gen && s.gen&1 == 1
}
