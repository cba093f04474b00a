// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package handle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolInsertGet(t *testing.T) {
	var p Pool[string]
	a := p.Insert("a")
	b := p.Insert("b")

	require.False(t, a.IsZero())
	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, p.Len())

	v, ok := p.Get(a)
	require.True(t, ok)
	assert.Equal(t, "a", *v)
}

func TestPoolStaleHandle(t *testing.T) {
	var p Pool[int]
	h := p.Insert(7)

	v, ok := p.Remove(h)
	require.True(t, ok)
	assert.Equal(t, 7, v)

	_, ok = p.Get(h)
	assert.False(t, ok, "removed handle must not resolve")

	// Reuse of the slot must not revive the old handle.
	h2 := p.Insert(9)
	assert.Equal(t, h.Index(), h2.Index())
	assert.NotEqual(t, h.Generation(), h2.Generation())
	assert.False(t, p.Contains(h))
	assert.True(t, p.Contains(h2))

	_, ok = p.Remove(h)
	assert.False(t, ok, "double remove must fail")
}

func TestPoolZeroHandle(t *testing.T) {
	var p Pool[int]
	p.Insert(1)
	_, ok := p.Get(Handle{})
	assert.False(t, ok)
}

func TestPoolEach(t *testing.T) {
	var p Pool[int]
	hs := []Handle{p.Insert(1), p.Insert(2), p.Insert(3)}
	p.Remove(hs[1])

	sum := 0
	p.Each(func(_ Handle, v *int) { sum += *v })
	assert.Equal(t, 4, sum)
	assert.Equal(t, 2, p.Len())
}
