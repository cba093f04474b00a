// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package ui

import (
	"slices"

	"github.com/chewxy/math32"

	"github.com/gogpu/lumen/input"
)

// CaretMode is the state of a text input's caret.
type CaretMode uint8

// Caret modes.
const (
	CaretIdle CaretMode = iota
	CaretTyping
	CaretDragging
	CaretHighlighting
)

// String returns the mode name.
func (m CaretMode) String() string {
	switch m {
	case CaretTyping:
		return "typing"
	case CaretDragging:
		return "dragging"
	case CaretHighlighting:
		return "highlighting"
	default:
		return "idle"
	}
}

// CaretState is the caret and selection of one text input. Caret and
// Anchor are rune indices, CaretX and AnchorX their pixel offsets from
// the start of the text. The selection is [min(Anchor, Caret),
// max(Anchor, Caret)).
type CaretState struct {
	Mode    CaretMode
	Caret   int
	Anchor  int
	CaretX  float32
	AnchorX float32
	Blink   float32
}

// Selection returns the selected rune range.
func (s *CaretState) Selection() (lo, hi int) {
	return min(s.Anchor, s.Caret), max(s.Anchor, s.Caret)
}

// HasSelection reports whether a non-empty range is selected.
func (s *CaretState) HasSelection() bool { return s.Anchor != s.Caret }

// Caret returns the caret state of text input id, or nil.
func (c *Context) Caret(id ID) *CaretState { return c.carets[id] }

func (c *Context) caret(id ID) *CaretState {
	cs := c.carets[id]
	if cs == nil {
		cs = &CaretState{}
		c.carets[id] = cs
	}
	return cs
}

func (c *Context) textLeft(w *WidgetState) float32 { return w.Rect.X + c.style.Padding }

// glyphAt returns the rune boundary of w's text nearest to x.
func (c *Context) glyphAt(w *WidgetState, x float32) int {
	if w.buf == nil {
		return 0
	}
	_, offsets := measure(c.font, *w.buf)
	local := x - c.textLeft(w)
	i, _ := slices.BinarySearch(offsets, local)
	if i >= len(offsets) {
		return len(offsets) - 1
	}
	if i > 0 && math32.Abs(local-offsets[i-1]) <= math32.Abs(offsets[i]-local) {
		return i - 1
	}
	return i
}

// syncCaret clamps the indices to the text and recomputes their offsets.
func (c *Context) syncCaret(w *WidgetState, cs *CaretState) {
	var text []rune
	if w.buf != nil {
		text = *w.buf
	}
	cs.Caret = max(0, min(cs.Caret, len(text)))
	cs.Anchor = max(0, min(cs.Anchor, len(text)))
	_, offsets := measure(c.font, text)
	cs.CaretX = offsets[cs.Caret]
	cs.AnchorX = offsets[cs.Anchor]
}

func (c *Context) caretDown(w *WidgetState, x float32) {
	cs := c.caret(w.ID)
	cs.Caret = c.glyphAt(w, x)
	cs.Anchor = cs.Caret
	cs.Mode = CaretDragging
	cs.Blink = 0
	c.syncCaret(w, cs)
}

func (c *Context) caretDrag(w *WidgetState, x float32) {
	cs := c.caret(w.ID)
	if cs.Mode != CaretDragging && cs.Mode != CaretHighlighting {
		return
	}
	cs.Caret = c.glyphAt(w, x)
	if cs.Caret != cs.Anchor {
		cs.Mode = CaretHighlighting
	}
	c.syncCaret(w, cs)
}

func (c *Context) caretUp(w *WidgetState) {
	cs := c.caret(w.ID)
	if cs.Mode == CaretDragging || cs.Mode == CaretHighlighting {
		cs.Mode = CaretIdle
	}
}

// caretChar replaces the selection, or inserts at the caret, with r.
func (c *Context) caretChar(w *WidgetState, r rune) {
	if w.buf == nil || r < 0x20 {
		return
	}
	cs := c.caret(w.ID)
	c.syncCaret(w, cs)
	lo, hi := cs.Selection()
	*w.buf = slices.Replace(*w.buf, lo, hi, r)
	cs.Caret, cs.Anchor = lo+1, lo+1
	cs.Mode = CaretTyping
	cs.Blink = 0
	w.changed = true
	c.syncCaret(w, cs)
}

func (c *Context) caretKey(w *WidgetState, e Event) {
	if w.buf == nil {
		return
	}
	cs := c.caret(w.ID)
	c.syncCaret(w, cs)
	n := len(*w.buf)
	shift := e.Mods.Has(input.ModShift)
	move := func(to int) {
		cs.Caret = max(0, min(to, n))
		if !shift {
			cs.Anchor = cs.Caret
		}
	}
	switch e.Key {
	case input.KeyLeft:
		move(cs.Caret - 1)
	case input.KeyRight:
		move(cs.Caret + 1)
	case input.KeyHome:
		move(0)
	case input.KeyEnd:
		move(n)
	case input.KeyBackspace:
		lo, hi := cs.Selection()
		if lo == hi {
			if lo == 0 {
				return
			}
			lo--
		}
		c.deleteRange(w, cs, lo, hi)
	case input.KeyDelete:
		lo, hi := cs.Selection()
		if lo == hi {
			if hi == n {
				return
			}
			hi++
		}
		c.deleteRange(w, cs, lo, hi)
	default:
		return
	}
	cs.Mode = CaretTyping
	cs.Blink = 0
	c.syncCaret(w, cs)
}

func (c *Context) deleteRange(w *WidgetState, cs *CaretState, lo, hi int) {
	*w.buf = slices.Delete(*w.buf, lo, hi)
	cs.Caret, cs.Anchor = lo, lo
	w.changed = true
}
