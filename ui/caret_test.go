// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/lumen/input"
)

func TestTextInputEditing(t *testing.T) {
	c := newTestContext()
	buf := []rune("hello")
	c.NewFrame()
	c.TextInput("Name", &buf)
	c.EndFrame(0)

	w := c.Find("Name", KindTextInput)
	require.NotNil(t, w)
	left := w.Rect.X + c.Style().Padding
	y := w.Rect.Y + w.Rect.H/2

	c.NewFrame()
	c.Dispatch(MouseDown(left+2*8+1, y, input.MouseLeft))
	cs := c.Caret(w.ID)
	require.NotNil(t, cs)
	assert.Equal(t, CaretDragging, cs.Mode)
	assert.Equal(t, 2, cs.Caret)
	assert.Equal(t, 2, cs.Anchor)

	c.Dispatch(MouseMove(left+4*8, y))
	assert.Equal(t, CaretHighlighting, cs.Mode)
	assert.Equal(t, 4, cs.Caret)
	lo, hi := cs.Selection()
	assert.Equal(t, [2]int{2, 4}, [2]int{lo, hi})
	assert.Equal(t, float32(32), cs.CaretX)
	assert.Equal(t, float32(16), cs.AnchorX)

	c.Dispatch(MouseUp(left+4*8, y, input.MouseLeft))
	assert.Equal(t, CaretIdle, cs.Mode)
	assert.True(t, cs.HasSelection(), "selection persists")
	assert.Equal(t, w.ID, c.Active())

	c.Dispatch(Char('X'))
	assert.Equal(t, "heXo", string(buf))
	assert.Equal(t, 3, cs.Caret)
	assert.Equal(t, 3, cs.Anchor)
	assert.Equal(t, CaretTyping, cs.Mode)

	c.Dispatch(KeyDown(input.KeyBackspace, 0))
	assert.Equal(t, "heo", string(buf))
	assert.Equal(t, 2, cs.Caret)

	c.Dispatch(KeyDown(input.KeyLeft, input.ModShift))
	assert.Equal(t, 1, cs.Caret)
	assert.Equal(t, 2, cs.Anchor)
	c.Dispatch(Char('Y'))
	assert.Equal(t, "hYo", string(buf))
	assert.Equal(t, 2, cs.Caret)

	assert.True(t, c.TextInput("Name", &buf))
	c.EndFrame(0)
	assert.Equal(t, w.ID, c.Active(), "text inputs keep focus after a click")

	c.NewFrame()
	assert.False(t, c.TextInput("Name", &buf))
	c.EndFrame(0)
}

func TestCaretClamps(t *testing.T) {
	c := newTestContext()
	buf := []rune("ab")
	c.NewFrame()
	c.TextInput("Field", &buf)
	c.EndFrame(0)
	w := c.Find("Field", KindTextInput)

	// Far right of the text puts the caret at the end.
	c.NewFrame()
	c.Dispatch(MouseDown(w.Rect.X+w.Rect.W-1, w.Rect.Y+1, input.MouseLeft))
	c.Dispatch(MouseUp(w.Rect.X+w.Rect.W-1, w.Rect.Y+1, input.MouseLeft))
	cs := c.Caret(w.ID)
	assert.Equal(t, 2, cs.Caret)

	c.Dispatch(KeyDown(input.KeyRight, 0))
	assert.Equal(t, 2, cs.Caret)
	c.Dispatch(KeyDown(input.KeyHome, 0))
	c.Dispatch(KeyDown(input.KeyLeft, 0))
	assert.Equal(t, 0, cs.Caret)
	c.Dispatch(KeyDown(input.KeyBackspace, 0))
	assert.Equal(t, "ab", string(buf))
	c.Dispatch(KeyDown(input.KeyDelete, 0))
	assert.Equal(t, "b", string(buf))

	// Shrinking the buffer behind the widget's back is tolerated.
	c.Dispatch(KeyDown(input.KeyEnd, 0))
	buf = buf[:0]
	c.TextInput("Field", &buf)
	assert.Equal(t, 0, cs.Caret)
	c.EndFrame(0)
}

func TestCaretBlink(t *testing.T) {
	c := newTestContext()
	var buf []rune
	c.NewFrame()
	c.TextInput("Field", &buf)
	c.EndFrame(0)
	w := c.Find("Field", KindTextInput)
	x, y := center(w.Rect)
	c.Dispatch(MouseDown(x, y, input.MouseLeft))
	c.Dispatch(MouseUp(x, y, input.MouseLeft))

	rate := c.Style().CaretBlinkRate
	c.EndFrame(rate / 2)
	cs := c.Caret(w.ID)
	assert.InDelta(t, rate/2, cs.Blink, 1e-6)

	c.NewFrame()
	c.TextInput("Field", &buf)
	caretDrawn := len(c.Sprites()) == 2
	assert.True(t, caretDrawn, "caret drawn while the timer is below the rate")
	c.EndFrame(rate)

	c.NewFrame()
	c.TextInput("Field", &buf)
	assert.Len(t, c.Sprites(), 1, "caret hidden above the rate")
	c.EndFrame(rate)
	assert.Zero(t, cs.Blink, "timer wraps at twice the rate")
}
