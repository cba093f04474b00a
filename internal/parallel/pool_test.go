// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package parallel

import (
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPoolWorkers(t *testing.T) {
	p := NewPool(3)
	defer p.Close()
	assert.Equal(t, 3, p.Workers())
	assert.True(t, p.Running())

	q := NewPool(0)
	defer q.Close()
	assert.Equal(t, runtime.GOMAXPROCS(0), q.Workers())
}

func TestRunVisitsEveryIndex(t *testing.T) {
	p := NewPool(4)
	defer p.Close()

	const n = 257
	var hits [n]atomic.Int32
	p.Run(n, func(i int) { hits[i].Add(1) })
	for i := range hits {
		require.Equal(t, int32(1), hits[i].Load(), "index %d", i)
	}
	assert.Equal(t, uint64(n), p.Jobs())

	p.Run(0, func(int) { t.Fatal("no jobs expected") })
	assert.Equal(t, uint64(n), p.Jobs())
}

func TestRunUnevenJobs(t *testing.T) {
	p := NewPool(2)
	defer p.Close()

	var sum atomic.Int64
	p.Run(16, func(i int) {
		if i == 0 {
			time.Sleep(20 * time.Millisecond)
		}
		sum.Add(int64(i))
	})
	assert.Equal(t, int64(120), sum.Load())
}

func TestRunAfterClose(t *testing.T) {
	p := NewPool(2)
	p.Close()
	p.Close()
	assert.False(t, p.Running())

	var count int
	p.Run(5, func(int) { count++ })
	assert.Equal(t, 5, count, "a closed pool runs jobs inline")
}

func TestRunConcurrentBatches(t *testing.T) {
	p := NewPool(4)
	defer p.Close()

	var total atomic.Int64
	done := make(chan struct{})
	for range 8 {
		go func() {
			p.Run(50, func(int) { total.Add(1) })
			done <- struct{}{}
		}()
	}
	for range 8 {
		<-done
	}
	assert.Equal(t, int64(400), total.Load())
}
