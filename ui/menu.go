// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package ui

import "github.com/chewxy/math32"

// BeginMenu declares a menu and reports whether its dropdown is open.
// At the top level the menu is a button in the layout flow; inside
// another menu it is a submenu entry. Every BeginMenu must be matched by
// EndMenu, whether or not the menu is open.
//
// A root menu opens when clicked and stays open while it or one of its
// entries is active. A submenu opens while hovered.
func (c *Context) BeginMenu(label string) bool {
	var parent *menuFrame
	var parentID ID
	if n := len(c.menus); n > 0 {
		parent = &c.menus[n-1]
		parentID = parent.id
	}
	id := withParent(WidgetID(label, KindMenu, 0), parentID)
	w := c.widget(id, KindMenu, label, parentID)
	pad := c.style.Padding
	width := textWidth(c.font, label) + 2*pad

	var z float32
	frame := menuFrame{id: id}
	switch {
	case parent == nil:
		w.Rect = c.place(width, c.rowHeight(), 0)
		z = c.allocZ()
		frame.depth = 1
		frame.x, frame.y = w.Rect.X, w.Rect.Y+w.Rect.H
	case !parent.open:
		w.Rect = Rect{}
		c.menus = append(c.menus, frame)
		return false
	default:
		w.Rect = c.entry(parent, width)
		z = float32(parent.depth)*menuLayer + 1 + c.allocZ()
		frame.depth = parent.depth + 1
		frame.x, frame.y = w.Rect.X+w.Rect.W, w.Rect.Y
	}

	frame.open = c.isOpen(id)
	c.rect(w.Rect, c.frameColor(w), z)
	c.text(w.Rect.X+pad, w.Rect.Y+pad, []rune(label), c.style.Text, z+1)

	if frame.open {
		dims := c.lastMenuDims[id]
		frame.width = math32.Max(dims.W, c.style.MenuMinWidth)
		bg := Rect{X: frame.x, Y: frame.y, W: frame.width, H: dims.H}
		c.rect(bg, c.style.MenuBackground, float32(frame.depth)*menuLayer)
	}
	c.menus = append(c.menus, frame)
	return frame.open
}

// MenuItem declares an entry of the current menu and reports whether it
// was clicked. Entries of a closed menu are not laid out and return false.
func (c *Context) MenuItem(label string) bool {
	if len(c.menus) == 0 {
		panic("ui: MenuItem outside BeginMenu")
	}
	parent := &c.menus[len(c.menus)-1]
	id := withParent(WidgetID(label, KindMenuItem, 0), parent.id)
	w := c.widget(id, KindMenuItem, label, parent.id)
	if !parent.open {
		w.Rect = Rect{}
		return false
	}
	pad := c.style.Padding
	w.Rect = c.entry(parent, textWidth(c.font, label)+2*pad)
	z := float32(parent.depth)*menuLayer + 1 + c.allocZ()
	if w.Actions.Has(Hovered) {
		c.rect(w.Rect, c.style.FrameHovered, z)
	}
	c.text(w.Rect.X+pad, w.Rect.Y+pad, []rune(label), c.style.Text, z+1)
	return w.Actions.Has(Clicked)
}

// EndMenu closes the innermost BeginMenu.
func (c *Context) EndMenu() {
	if len(c.menus) == 0 {
		panic("ui: EndMenu without BeginMenu")
	}
	c.menus = c.menus[:len(c.menus)-1]
}

// entry stacks a row of the given width below the previous entries of
// menu f and grows the menu's measured dimensions.
func (c *Context) entry(f *menuFrame, width float32) Rect {
	h := c.rowHeight()
	r := Rect{X: f.x, Y: f.y, W: math32.Max(width, f.width), H: h}
	f.y += h
	d := c.menuDims[f.id]
	d.W = math32.Max(d.W, width)
	d.H += h
	c.menuDims[f.id] = d
	return r
}
