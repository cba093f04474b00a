// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package bindless allocates descriptor indices within fixed-size heaps.
//
// Indices are handed out lowest-first from a word bitmap. Freed indices are
// reusable immediately; callers that need reuse to wait for in-flight
// frames route Free through a deferred destruction queue.
package bindless

import (
	"fmt"
	"math/bits"
)

// Allocator hands out indices in [0, Cap()).
type Allocator struct {
	name  string
	words []uint64
	cap   int
	used  int
	peak  int
}

// NewAllocator creates an allocator with capacity n.
func NewAllocator(name string, n int) *Allocator {
	if n < 0 {
		n = 0
	}
	return &Allocator{
		name:  name,
		words: make([]uint64, (n+63)/64),
		cap:   n,
	}
}

// Name returns the heap name.
func (a *Allocator) Name() string { return a.name }

// Cap returns the heap capacity.
func (a *Allocator) Cap() int { return a.cap }

// InUse returns the number of allocated indices.
func (a *Allocator) InUse() int { return a.used }

// Peak returns the highest number of simultaneously allocated indices.
func (a *Allocator) Peak() int { return a.peak }

// Alloc returns the lowest free index.
func (a *Allocator) Alloc() (uint32, bool) {
	for w, word := range a.words {
		if word == ^uint64(0) {
			continue
		}
		bit := bits.TrailingZeros64(^word)
		idx := w*64 + bit
		if idx >= a.cap {
			return 0, false
		}
		a.words[w] |= 1 << uint(bit)
		a.used++
		if a.used > a.peak {
			a.peak = a.used
		}
		return uint32(idx), true //nolint:gosec // idx < cap
	}
	return 0, false
}

// Free releases idx. Freeing an index that is not allocated panics.
func (a *Allocator) Free(idx uint32) {
	if int(idx) >= a.cap {
		panic(fmt.Sprintf("bindless: %s index %d out of range [0,%d)", a.name, idx, a.cap))
	}
	w, bit := idx/64, idx%64
	if a.words[w]&(1<<bit) == 0 {
		panic(fmt.Sprintf("bindless: %s index %d freed twice", a.name, idx))
	}
	a.words[w] &^= 1 << bit
	a.used--
}

// Allocated reports whether idx is currently allocated.
func (a *Allocator) Allocated(idx uint32) bool {
	if int(idx) >= a.cap {
		return false
	}
	return a.words[idx/64]&(1<<(idx%64)) != 0
}

// Each calls fn for every allocated index in ascending order.
func (a *Allocator) Each(fn func(idx uint32)) {
	for w, word := range a.words {
		for word != 0 {
			bit := bits.TrailingZeros64(word)
			fn(uint32(w*64 + bit)) //nolint:gosec // bounded by cap
			word &^= 1 << uint(bit)
		}
	}
}
