// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package ui

import (
	"fmt"
	"strconv"
)

func (c *Context) rect(r Rect, color Color, z float32) {
	if r.Empty() || color[3] == 0 {
		return
	}
	c.sprites = append(c.sprites, Sprite{
		Pos:   [2]float32{r.X, r.Y},
		Size:  [2]float32{r.W, r.H},
		Color: color,
		Z:     z,
	})
}

// text draws s with its line box at x, y and returns its width.
func (c *Context) text(x, y float32, s []rune, color Color, z float32) float32 {
	atlas := c.font.Atlas()
	pen := x
	for _, r := range s {
		if g, ok := c.font.Glyph(r); ok && atlas != nil {
			uv0, uv1 := atlas.UV(g.Region)
			c.sprites = append(c.sprites, Sprite{
				Pos:   [2]float32{pen + g.OffsetX, y + g.OffsetY},
				Size:  [2]float32{float32(g.Region.Width), float32(g.Region.Height)},
				UV0:   uv0,
				UV1:   uv1,
				Color: color,
				Z:     z,
				Glyph: true,
			})
		}
		pen += c.font.Advance(r)
	}
	return pen - x
}

func (c *Context) frameColor(w *WidgetState) Color {
	switch {
	case w.Actions.Has(Pressed):
		return c.style.FramePressed
	case w.Actions.Has(Hovered):
		return c.style.FrameHovered
	}
	return c.style.Frame
}

// Text draws a line of text. Text is not interactive and has no identity.
func (c *Context) Text(s string) {
	runes := []rune(s)
	w, _ := measure(c.font, runes)
	r := c.place(w, c.rowHeight(), 0)
	c.text(r.X, r.Y+c.style.Padding, runes, c.style.Text, c.allocZ()+1)
}

// Textf draws formatted text.
func (c *Context) Textf(format string, args ...any) { c.Text(fmt.Sprintf(format, args...)) }

// Button draws a push button and reports whether it was clicked.
func (c *Context) Button(label string) bool {
	w := c.widget(WidgetID(label, KindButton, 0), KindButton, label, 0)
	pad := c.style.Padding
	w.Rect = c.place(textWidth(c.font, label)+2*pad, c.rowHeight(), 0)
	z := c.allocZ()
	c.rect(w.Rect, c.frameColor(w), z)
	c.text(w.Rect.X+pad, w.Rect.Y+pad, []rune(label), c.style.Text, z+1)
	return w.Actions.Has(Clicked)
}

// Checkbox draws a box with a label and flips *v when clicked. It reports
// whether *v changed.
func (c *Context) Checkbox(label string, v *bool) bool {
	w := c.widget(WidgetID(label, KindCheckbox, 0), KindCheckbox, label, 0)
	pad := c.style.Padding
	box := c.rowHeight()
	w.Rect = c.place(box+pad+textWidth(c.font, label), box, 0)
	clicked := w.Actions.Has(Clicked)
	if clicked {
		*v = !*v
	}
	z := c.allocZ()
	c.rect(Rect{X: w.Rect.X, Y: w.Rect.Y, W: box, H: box}, c.frameColor(w), z)
	if *v {
		c.rect(Rect{X: w.Rect.X + pad, Y: w.Rect.Y + pad, W: box - 2*pad, H: box - 2*pad}, c.style.Check, z+1)
	}
	c.text(w.Rect.X+box+pad, w.Rect.Y+pad, []rune(label), c.style.Text, z+1)
	return clicked
}

// SliderFloat draws a horizontal slider editing *v in [min, max] with the
// label to its right. Dragging sets the value from the pointer position.
// It reports whether *v changed since the last frame.
func (c *Context) SliderFloat(label string, v *float32, min, max float32) bool {
	w := c.widget(WidgetID(label, KindSlider, addressOf(v)), KindSlider, label, 0)
	w.value, w.min, w.max = v, min, max
	pad := c.style.Padding
	track := c.style.SliderWidth
	w.Rect = c.place(track, c.rowHeight(), c.style.Spacing+textWidth(c.font, label))

	z := c.allocZ()
	c.rect(w.Rect, c.frameColor(w), z)
	hw := c.style.SliderHandle
	t := float32(0)
	if max > min {
		t = (*v - min) / (max - min)
		t = clamp01(t)
	}
	handle := Rect{X: w.Rect.X + t*(track-hw), Y: w.Rect.Y, W: hw, H: w.Rect.H}
	c.rect(handle, c.style.Handle, z+1)

	value := []rune(strconv.FormatFloat(float64(*v), 'f', 2, 32))
	vw, _ := measure(c.font, value)
	c.text(w.Rect.X+(track-vw)/2, w.Rect.Y+pad, value, c.style.Text, z+2)
	c.text(w.Rect.X+track+c.style.Spacing, w.Rect.Y+pad, []rune(label), c.style.Text, z+1)
	return w.changed
}

func clamp01(t float32) float32 {
	switch {
	case t < 0:
		return 0
	case t > 1:
		return 1
	}
	return t
}

// TextInput draws an editable text field over *buf with the label to its
// right. Clicking it takes keyboard focus until another widget is pressed.
// It reports whether *buf changed since the last frame.
func (c *Context) TextInput(label string, buf *[]rune) bool {
	w := c.widget(WidgetID(label, KindTextInput, 0), KindTextInput, label, 0)
	w.buf = buf
	pad := c.style.Padding
	w.Rect = c.place(c.style.InputWidth, c.rowHeight(), c.style.Spacing+textWidth(c.font, label))

	z := c.allocZ()
	color := c.style.Frame
	if c.active == w.ID {
		color = c.style.FrameHovered
	}
	c.rect(w.Rect, color, z)
	left := c.textLeft(w)
	c.text(left, w.Rect.Y+pad, *buf, c.style.Text, z+1)
	c.text(w.Rect.X+w.Rect.W+c.style.Spacing, w.Rect.Y+pad, []rune(label), c.style.Text, z+1)

	if c.active == w.ID {
		cs := c.caret(w.ID)
		c.syncCaret(w, cs)
		lineH := c.font.LineHeight()
		if cs.HasSelection() {
			x0, x1 := min(cs.CaretX, cs.AnchorX), max(cs.CaretX, cs.AnchorX)
			c.rect(Rect{X: left + x0, Y: w.Rect.Y + pad, W: x1 - x0, H: lineH}, c.style.Selection, z+2)
		} else if cs.Blink <= c.style.CaretBlinkRate {
			c.rect(Rect{X: left + cs.CaretX, Y: w.Rect.Y + pad, W: c.style.CaretWidth, H: lineH}, c.style.Caret, z+2)
		}
	}
	return w.changed
}
