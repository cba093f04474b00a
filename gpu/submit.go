// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"context"
	"fmt"
	"time"

	"github.com/gogpu/wgpu/hal"
)

// SubmitCommandLists ends the current frame. It submits every command
// list taken this frame in acquisition order, presents sc when it is not
// nil, advances the frame counter and waits for the frame that last used
// the next slot. Objects whose retirement window has passed are destroyed
// before it returns.
func (d *Device) SubmitCommandLists(ctx context.Context, sc *Swapchain) error {
	if err := d.checkOpen(); err != nil {
		return err
	}
	slot := &d.slots[d.currentFrame]

	d.flushHostWrites()

	cbs := make([]hal.CommandBuffer, 0, slot.used)
	var endErr error
	for _, cl := range slot.lists[:slot.used] {
		cb, err := cl.end()
		if err != nil {
			endErr = fmt.Errorf("gpu: end %s: %w", cl.label, err)
			break
		}
		cbs = append(cbs, cb)
	}
	slot.submitted = append(slot.submitted, cbs...)
	slot.used = 0
	slot.begun = false
	if endErr != nil {
		return endErr
	}

	value := d.frameCounter + 1
	idx, err := d.queue.Submit(cbs)
	if err != nil {
		return fmt.Errorf("gpu: submit frame %d: %w", value, err)
	}
	slot.submission = idx

	var presentErr error
	if sc != nil {
		presentErr = sc.present(ctx)
	}

	d.frameCounter = value
	d.stats.Frames++

	next := (d.currentFrame + 1) % len(d.slots)
	if err := d.waitSlot(next); err != nil {
		return err
	}
	d.currentFrame = next
	d.destroyQueue.Process(d.frameCounter)

	if presentErr != nil {
		return fmt.Errorf("gpu: present: %w", presentErr)
	}
	return nil
}

// waitSlot blocks until the last submission of slot i completed and
// recycles its per-frame resources. It is called exactly once per
// submitted frame.
func (d *Device) waitSlot(i int) error {
	s := &d.slots[i]
	err := d.waitSubmission(s.submission)
	d.stats.FenceWaits++
	d.stats.LastWaitSlot = i
	if err != nil {
		return fmt.Errorf("gpu: wait for frame slot %d: %w", i, err)
	}
	for _, cb := range s.submitted {
		d.dev.FreeCommandBuffer(cb)
	}
	s.submitted = s.submitted[:0]
	s.push.reset()
	return nil
}

const (
	minPollInterval = 20 * time.Microsecond
	maxPollInterval = time.Millisecond
)

// waitSubmission polls the queue until submission idx completed. Index 0
// names no submission and returns after a single poll.
func (d *Device) waitSubmission(idx uint64) error {
	deadline := time.Now().Add(d.opts.fenceTimeout)
	interval := minPollInterval
	for {
		if d.queue.PollCompleted() >= idx {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("submission %d: timeout after %v", idx, d.opts.fenceTimeout)
		}
		time.Sleep(interval)
		interval = min(interval*2, maxPollInterval)
	}
}
