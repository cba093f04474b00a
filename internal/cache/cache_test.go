// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package cache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSet(t *testing.T) {
	c := New[string, int](4)
	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Set("a", 1)
	c.Set("a", 2)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, c.Len())

	s := c.Stats()
	assert.Equal(t, uint64(1), s.Hits)
	assert.Equal(t, uint64(1), s.Misses)
	assert.InDelta(t, 0.5, s.HitRate(), 1e-9)
	assert.Zero(t, Stats{}.HitRate())
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	c := New[int, string](3)
	c.Set(1, "one")
	c.Set(2, "two")
	c.Set(3, "three")
	_, _ = c.Get(1)
	c.Set(4, "four")

	_, ok := c.Get(2)
	assert.False(t, ok, "2 was the oldest")
	for _, k := range []int{1, 3, 4} {
		_, ok := c.Get(k)
		assert.True(t, ok, "key %d", k)
	}
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, uint64(1), c.Stats().Evictions)
}

func TestGetOrCreate(t *testing.T) {
	c := New[string, int](2)
	calls := 0
	create := func() int { calls++; return 7 }
	assert.Equal(t, 7, c.GetOrCreate("k", create))
	assert.Equal(t, 7, c.GetOrCreate("k", create))
	assert.Equal(t, 1, calls)
}

func TestDeleteAndClear(t *testing.T) {
	c := New[int, int](0)
	assert.Equal(t, 1, c.Capacity())
	c.Set(1, 1)
	assert.True(t, c.Delete(1))
	assert.False(t, c.Delete(1))

	c.Set(2, 2)
	c.Clear()
	assert.Zero(t, c.Len())
	c.Set(3, 3)
	v, ok := c.Get(3)
	assert.True(t, ok)
	assert.Equal(t, 3, v)
}

func TestConcurrentUse(t *testing.T) {
	c := New[int, int](16)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				c.Set(i%32, g)
				_, _ = c.Get(i % 32)
			}
		}(g)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 16)
}
