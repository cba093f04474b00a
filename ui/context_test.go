// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/lumen/input"
)

// Test layout with an 8x16 mono font: rows are 24 pixels high, the first
// widget sits at (8, 8) and text starts 4 pixels inside a widget.
func newTestContext(opts ...Option) *Context {
	return New(NewMonoFont(8, 16), opts...)
}

func center(r Rect) (x, y float32) { return r.X + r.W/2, r.Y + r.H/2 }

func TestWidgetIdentity(t *testing.T) {
	c := newTestContext()

	c.NewFrame()
	c.Button("Save")
	save := c.Find("Save", KindButton)
	require.NotNil(t, save)
	assert.Equal(t, WidgetID("Save", KindButton, 0), save.ID)
	assert.Panics(t, func() { c.Button("Save") }, "same label twice in one frame")
	c.EndFrame(0)

	c.NewFrame()
	c.Button("Save")
	c.EndFrame(0)
	assert.Same(t, save, c.Widget(WidgetID("Save", KindButton, 0)))
	assert.Equal(t, 1, c.Len())

	assert.NotEqual(t, WidgetID("Save", KindButton, 0), WidgetID("Save", KindCheckbox, 0))
	var a, b float32
	assert.NotEqual(t,
		WidgetID("Gain", KindSlider, addressOf(&a)),
		WidgetID("Gain", KindSlider, addressOf(&b)))
}

func TestMaxWidgets(t *testing.T) {
	c := newTestContext(WithMaxWidgets(2))
	c.NewFrame()
	c.Button("A")
	c.Button("B")
	assert.Panics(t, func() { c.Button("C") })
}

func TestEventQueue(t *testing.T) {
	c := newTestContext(WithEventQueue(2))
	assert.True(t, c.Post(MouseMove(1, 1)))
	assert.True(t, c.Post(MouseMove(2, 2)))
	assert.False(t, c.Post(MouseMove(3, 3)))
	assert.Equal(t, 2, c.Pending())
	c.NewFrame()
	assert.Equal(t, 0, c.Pending())
}

func TestEventMousePanics(t *testing.T) {
	x, y, b := MouseDown(3, 4, input.MouseRight).Mouse()
	assert.Equal(t, [2]float32{3, 4}, [2]float32{x, y})
	assert.Equal(t, input.MouseRight, b)
	assert.Panics(t, func() { Char('a').Mouse() })
	assert.Panics(t, func() { KeyDown(input.KeyA, 0).Mouse() })
}

func TestLayoutSameLine(t *testing.T) {
	c := newTestContext()
	c.NewFrame()
	c.Button("A")
	c.SameLine()
	c.Button("B")
	c.Button("C")
	a, b, cc := c.Find("A", KindButton), c.Find("B", KindButton), c.Find("C", KindButton)

	assert.Equal(t, Rect{X: 8, Y: 8, W: 16, H: 24}, a.Rect)
	assert.Equal(t, Rect{X: 8 + 16 + 6, Y: 8, W: 16, H: 24}, b.Rect)
	assert.Equal(t, Rect{X: 8, Y: 8 + 24 + 6, W: 16, H: 24}, cc.Rect)
	c.EndFrame(0)

	// The cursor starts over every frame.
	c.NewFrame()
	c.Button("C")
	assert.Equal(t, Rect{X: 8, Y: 8, W: 16, H: 24}, cc.Rect)
}

func TestButtonClick(t *testing.T) {
	c := newTestContext()
	c.NewFrame()
	assert.False(t, c.Button("OK"))
	c.EndFrame(0)
	x, y := center(c.Find("OK", KindButton).Rect)

	c.Post(MouseMove(x, y))
	c.Post(MouseDown(x, y, input.MouseLeft))
	c.Post(MouseUp(x, y, input.MouseLeft))
	c.NewFrame()
	assert.True(t, c.Button("OK"))
	c.EndFrame(0)
	assert.Equal(t, ID(0), c.Active())

	c.NewFrame()
	assert.False(t, c.Button("OK"), "click lasts one frame")
	c.EndFrame(0)

	// Releasing outside the rect cancels the click.
	c.Post(MouseDown(x, y, input.MouseLeft))
	c.Post(MouseUp(x+100, y, input.MouseLeft))
	c.NewFrame()
	assert.False(t, c.Button("OK"))
	assert.Equal(t, ID(0), c.Active())
	c.EndFrame(0)
}

func TestCheckboxToggles(t *testing.T) {
	c := newTestContext()
	var v bool
	c.NewFrame()
	c.Checkbox("Skybox", &v)
	c.EndFrame(0)
	x, y := center(c.Find("Skybox", KindCheckbox).Rect)

	c.Post(MouseDown(x, y, input.MouseLeft))
	c.Post(MouseUp(x, y, input.MouseLeft))
	c.NewFrame()
	assert.True(t, c.Checkbox("Skybox", &v))
	assert.True(t, v)
	c.EndFrame(0)

	c.NewFrame()
	assert.False(t, c.Checkbox("Skybox", &v))
	assert.True(t, v)
	c.EndFrame(0)
}

func TestSliderDrag(t *testing.T) {
	c := newTestContext()
	v := float32(50)
	c.NewFrame()
	c.SliderFloat("Gain", &v, 10, 110)
	c.EndFrame(0)

	w := c.Find("Gain", KindSlider)
	require.NotNil(t, w)
	left, y := w.Rect.X, w.Rect.Y+w.Rect.H/2
	span := c.Style().SliderWidth - c.Style().SliderHandle

	c.NewFrame()
	c.Dispatch(MouseDown(left, y, input.MouseLeft))
	assert.InDelta(t, 10, v, 1e-4)
	c.Dispatch(MouseMove(left+span, y))
	assert.InDelta(t, 110, v, 1e-4)
	c.Dispatch(MouseMove(left+span/2, y))
	assert.InDelta(t, 60, v, 0.5)

	// Dragging past the track clamps.
	c.Dispatch(MouseMove(left+span+40, y))
	assert.InDelta(t, 110, v, 1e-4)
	c.Dispatch(MouseMove(left-40, y))
	assert.InDelta(t, 10, v, 1e-4)
	c.Dispatch(MouseUp(left-40, y, input.MouseLeft))

	assert.True(t, c.SliderFloat("Gain", &v, 10, 110))
	c.EndFrame(0)
	assert.Equal(t, ID(0), c.Active())

	// Motion without a press leaves the value alone.
	c.NewFrame()
	c.Dispatch(MouseMove(left+span, y))
	assert.InDelta(t, 10, v, 1e-4)
	assert.False(t, c.SliderFloat("Gain", &v, 10, 110))
	c.EndFrame(0)
}

func declareFileMenu(c *Context) (open, clicked bool) {
	open = c.BeginMenu("File")
	clicked = c.MenuItem("Open")
	c.EndMenu()
	return open, clicked
}

func TestMenuClick(t *testing.T) {
	c := newTestContext()
	c.NewFrame()
	open, _ := declareFileMenu(c)
	assert.False(t, open)
	c.EndFrame(0)

	file := c.Find("File", KindMenu)
	item := c.Find("Open", KindMenuItem)
	require.NotNil(t, file)
	require.NotNil(t, item)
	assert.Equal(t, file.ID, item.Parent)
	assert.True(t, item.Rect.Empty(), "entries of a closed menu are not laid out")

	x, y := center(file.Rect)
	c.NewFrame()
	c.Dispatch(MouseMove(x, y))
	assert.Equal(t, file.ID, c.Hovered())
	assert.True(t, file.Actions.Has(Hovered))
	c.Dispatch(MouseDown(x, y, input.MouseLeft))
	assert.Equal(t, file.ID, c.Active())
	assert.True(t, file.Actions.Has(Pressed))
	c.Dispatch(MouseUp(x, y, input.MouseLeft))
	assert.Equal(t, file.ID, c.Active(), "menus stay active after a click")
	assert.True(t, file.Actions.Has(Clicked))

	open, clicked := declareFileMenu(c)
	assert.True(t, open)
	assert.False(t, clicked)
	c.EndFrame(0)
	assert.False(t, file.Actions.Has(Clicked))
	assert.Equal(t, file.ID, c.Active())
	assert.False(t, item.Rect.Empty())
	assert.Equal(t, file.Rect.Y+file.Rect.H, item.Rect.Y)

	x, y = center(item.Rect)
	c.Post(MouseMove(x, y))
	c.Post(MouseDown(x, y, input.MouseLeft))
	c.Post(MouseUp(x, y, input.MouseLeft))
	c.NewFrame()
	assert.Equal(t, item.ID, c.Hovered())
	open, clicked = declareFileMenu(c)
	assert.True(t, open)
	assert.True(t, clicked)
	c.EndFrame(0)
	assert.Equal(t, ID(0), c.Active())

	c.NewFrame()
	open, clicked = declareFileMenu(c)
	assert.False(t, open)
	assert.False(t, clicked)
	c.EndFrame(0)
}

func TestMenuExcludesOtherWidgets(t *testing.T) {
	c := newTestContext()
	frame := func() {
		c.NewFrame()
		if c.BeginMenu("View") {
			c.MenuItem("Reset camera")
		}
		c.EndMenu()
		c.Button("Below")
		c.EndFrame(0)
	}
	frame()
	view := c.Find("View", KindMenu)
	below := c.Find("Below", KindButton)
	x, y := center(view.Rect)
	c.Post(MouseDown(x, y, input.MouseLeft))
	c.Post(MouseUp(x, y, input.MouseLeft))
	frame()
	frame()

	// The dropdown covers the button; only the menu entry is hit.
	item := c.Find("Reset camera", KindMenuItem)
	require.NotNil(t, item)
	bx, by := center(below.Rect)
	require.True(t, item.Rect.Contains(bx, by))
	c.Dispatch(MouseMove(bx, by))
	assert.Equal(t, item.ID, c.Hovered())

	// Clicking outside closes the menu.
	c.Dispatch(MouseDown(500, 500, input.MouseLeft))
	assert.Equal(t, ID(0), c.Active())
	c.Dispatch(MouseMove(bx, by))
	assert.Equal(t, below.ID, c.Hovered())
}

func TestMenuDimensionsLag(t *testing.T) {
	c := newTestContext()
	c.NewFrame()
	c.BeginMenu("File")
	c.MenuItem("Open")
	c.EndMenu()
	c.EndFrame(0)
	file := c.Find("File", KindMenu)
	x, y := center(file.Rect)
	c.Dispatch(MouseDown(x, y, input.MouseLeft))
	c.Dispatch(MouseUp(x, y, input.MouseLeft))

	c.NewFrame()
	c.BeginMenu("File")
	c.MenuItem("A much longer entry")
	c.EndMenu()
	assert.Equal(t, Dims{}, c.LastMenuDimensions(file.ID), "sized one frame late")
	c.EndFrame(0)

	want := Dims{W: 19*8 + 8, H: 24}
	assert.Equal(t, want, c.LastMenuDimensions(file.ID))
}

func TestEndMenuUnbalanced(t *testing.T) {
	c := newTestContext()
	c.NewFrame()
	assert.Panics(t, c.EndMenu)
	assert.Panics(t, func() { c.MenuItem("Orphan") })

	c.BeginMenu("File")
	assert.Panics(t, func() { c.EndFrame(0) })
}

func TestSubmenuItemsScopedByParent(t *testing.T) {
	c := newTestContext()
	c.NewFrame()
	c.BeginMenu("File")
	c.MenuItem("Close")
	c.EndMenu()
	c.BeginMenu("Window")
	assert.NotPanics(t, func() { c.MenuItem("Close") })
	c.EndMenu()
	c.EndFrame(0)
}

func TestSpritesStableSort(t *testing.T) {
	s := []Sprite{
		{Z: 2, Color: Color{1}},
		{Z: 1, Color: Color{2}},
		{Z: 2, Color: Color{3}},
		{Z: 0, Color: Color{4}},
		{Z: 1, Color: Color{5}},
	}
	sortSprites(s)
	var got []float32
	for _, sp := range s {
		got = append(got, sp.Color[0])
	}
	assert.Equal(t, []float32{4, 2, 5, 1, 3}, got)
}

func TestSpritesZOrder(t *testing.T) {
	c := newTestContext()
	c.NewFrame()
	c.Button("First")
	c.Button("Second")
	sprites := c.Sprites()
	require.Len(t, sprites, 2)
	assert.Less(t, sprites[0].Z, sprites[1].Z)
	assert.Equal(t, float32(8), sprites[0].Pos[1])

	c.Reset()
	assert.Empty(t, c.Sprites())
}
