// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package bindless

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocatorLowestFirst(t *testing.T) {
	a := NewAllocator("sampled", 130)
	for want := uint32(0); want < 130; want++ {
		got, ok := a.Alloc()
		require.True(t, ok)
		require.Equal(t, want, got)
	}
	_, ok := a.Alloc()
	assert.False(t, ok, "heap must report exhaustion")
	assert.Equal(t, 130, a.InUse())

	a.Free(65)
	a.Free(3)
	got, ok := a.Alloc()
	require.True(t, ok)
	assert.Equal(t, uint32(3), got)
	got, _ = a.Alloc()
	assert.Equal(t, uint32(65), got)
	assert.Equal(t, 130, a.Peak())
}

func TestAllocatorDoubleFreePanics(t *testing.T) {
	a := NewAllocator("uniform", 4)
	idx, _ := a.Alloc()
	a.Free(idx)
	assert.Panics(t, func() { a.Free(idx) })
	assert.Panics(t, func() { a.Free(10) })
}

func TestAllocatorEach(t *testing.T) {
	a := NewAllocator("storage", 70)
	for range 70 {
		a.Alloc()
	}
	for i := uint32(0); i < 70; i++ {
		if i%10 != 0 {
			a.Free(i)
		}
	}
	var got []uint32
	a.Each(func(idx uint32) { got = append(got, idx) })
	assert.Equal(t, []uint32{0, 10, 20, 30, 40, 50, 60}, got)
	assert.True(t, a.Allocated(60))
	assert.False(t, a.Allocated(61))
}

func TestAllocatorSingleton(t *testing.T) {
	a := NewAllocator("accel", 1)
	idx, ok := a.Alloc()
	require.True(t, ok)
	assert.Equal(t, uint32(0), idx)
	_, ok = a.Alloc()
	assert.False(t, ok)
}
