// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package ui is an immediate-mode widget layer drawn as sprites.
//
// The application declares its widgets every frame. Each declaration looks
// up the widget's persistent state by identity, lays it out at the cursor,
// appends sprites and returns what happened to it since the last frame.
// Input events are queued with Post and dispatched at the start of the
// next frame, so a declaration always sees the events that arrived before
// it.
//
//	ctx.NewFrame()
//	if ctx.Button("Reset") {
//		...
//	}
//	ctx.SliderFloat("Exposure", &exposure, 0, 4)
//	// the render pass draws ctx.Sprites()
//	ctx.EndFrame(dt)
package ui

import (
	"fmt"
	"sync"

	"github.com/chewxy/math32"

	"github.com/gogpu/lumen/input"
)

// Defaults for the Context options.
const (
	DefaultMaxWidgets = 1024
	DefaultEventQueue = 64
)

// menuLayer separates the z range of each menu depth.
const menuLayer = 1e5

// Option configures a Context.
type Option func(*Context)

// WithStyle sets the style.
func WithStyle(s Style) Option { return func(c *Context) { c.style = s } }

// WithMaxWidgets sets how many widgets may exist. Declaring more panics.
func WithMaxWidgets(n int) Option {
	return func(c *Context) {
		if n > 0 {
			c.maxWidgets = n
		}
	}
}

// WithEventQueue sets the capacity of the event queue.
func WithEventQueue(n int) Option {
	return func(c *Context) {
		if n > 0 {
			c.queueCap = n
		}
	}
}

// Dims is the size of a menu's dropdown.
type Dims struct {
	W, H float32
}

type layout struct {
	rowY, rowH float32
	nextY      float32
	lastRight  float32
	placed     bool
	sameLine   bool
}

type menuFrame struct {
	id    ID
	depth int
	open  bool
	x, y  float32
	width float32
}

// Context holds the state of one UI: the persistent widget table, the
// event queue and the sprites of the frame being declared.
//
// Declarations, NewFrame, Dispatch and EndFrame must be called from one
// goroutine. Post may be called from any goroutine.
type Context struct {
	font       Font
	style      Style
	maxWidgets int

	widgets map[ID]*WidgetState
	order   []ID
	seen    map[ID]struct{}
	frame   uint64

	lay   layout
	nextZ float32

	active, hovered ID
	lastHoveredMenu ID
	mouseX, mouseY  float32

	menus        []menuFrame
	menuDims     map[ID]Dims
	lastMenuDims map[ID]Dims

	carets map[ID]*CaretState

	mu       sync.Mutex
	queue    []Event
	queueCap int

	sprites []Sprite
}

// New returns a Context that measures text with font.
func New(font Font, opts ...Option) *Context {
	c := &Context{
		font:         font,
		style:        DefaultStyle(),
		maxWidgets:   DefaultMaxWidgets,
		queueCap:     DefaultEventQueue,
		widgets:      make(map[ID]*WidgetState),
		seen:         make(map[ID]struct{}),
		menuDims:     make(map[ID]Dims),
		lastMenuDims: make(map[ID]Dims),
		carets:       make(map[ID]*CaretState),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.queue = make([]Event, 0, c.queueCap)
	c.resetLayout()
	return c
}

// Font returns the font the context measures text with.
func (c *Context) Font() Font { return c.font }

// Style returns the current style.
func (c *Context) Style() Style { return c.style }

// Frame returns the number of completed frames.
func (c *Context) Frame() uint64 { return c.frame }

// Post queues e for the next NewFrame. It returns false and drops the
// event when the queue is full.
func (c *Context) Post(e Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queue) >= c.queueCap {
		slogger().Warn("ui: event queue full", "kind", e.Kind)
		return false
	}
	c.queue = append(c.queue, e)
	return true
}

// Pending returns the number of queued events.
func (c *Context) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// NewFrame starts the declarations of a frame. It resets the cursor and
// the sprite array and dispatches the queued events against the layout of
// the previous frame.
func (c *Context) NewFrame() {
	c.Reset()
	c.mu.Lock()
	events := append([]Event(nil), c.queue...)
	c.queue = c.queue[:0]
	c.mu.Unlock()
	for _, e := range events {
		c.Dispatch(e)
	}
}

// Reset clears the sprite array and moves the cursor back to the origin.
func (c *Context) Reset() {
	c.sprites = c.sprites[:0]
	c.resetLayout()
}

func (c *Context) resetLayout() {
	c.lay = layout{nextY: c.style.Origin[1]}
	c.nextZ = 0
}

// EndFrame finishes a frame. Clicks last one frame: they are cleared here
// and the clicked widget stops being active unless it is a text input or
// a menu. dt is the frame time in seconds and drives the caret blink.
//
// Menu sizes measured this frame are used by the next one, so a menu
// opened for the first time is sized one frame late.
func (c *Context) EndFrame(dt float32) {
	if len(c.menus) != 0 {
		panic(fmt.Sprintf("ui: %d BeginMenu calls without EndMenu", len(c.menus)))
	}
	for _, id := range c.order {
		w := c.widgets[id]
		if w.Actions.Has(Clicked) {
			w.Actions &^= Clicked
			if id == c.active && !w.Kind.retainsActive() {
				c.setActive(0)
			}
		}
		w.changed = false
	}

	if a := c.widgets[c.active]; a != nil && a.Kind == KindTextInput {
		cs := c.caret(a.ID)
		cs.Blink += dt
		if rate := c.style.CaretBlinkRate; cs.Blink >= 2*rate {
			cs.Blink = 0
		}
	}

	c.lastMenuDims, c.menuDims = c.menuDims, c.lastMenuDims
	clear(c.menuDims)
	clear(c.seen)
	c.frame++
}

// Sprites returns the sprites of the frame in draw order: ascending z,
// declaration order among equal z.
func (c *Context) Sprites() []Sprite {
	out := make([]Sprite, len(c.sprites))
	copy(out, c.sprites)
	sortSprites(out)
	return out
}

// Len returns the number of widgets ever declared.
func (c *Context) Len() int { return len(c.order) }

// Widget returns the state of id, or nil.
func (c *Context) Widget(id ID) *WidgetState { return c.widgets[id] }

// Find returns the first declared widget with the given label and kind,
// or nil.
func (c *Context) Find(label string, kind Kind) *WidgetState {
	for _, id := range c.order {
		if w := c.widgets[id]; w.Kind == kind && w.Label == label {
			return w
		}
	}
	return nil
}

// Active returns the widget that owns the pointer or keyboard, or 0.
func (c *Context) Active() ID { return c.active }

// Hovered returns the widget under the pointer, or 0.
func (c *Context) Hovered() ID { return c.hovered }

// LastMenuDimensions returns the dropdown size of menu id measured in the
// previous frame.
func (c *Context) LastMenuDimensions(id ID) Dims { return c.lastMenuDims[id] }

// widget returns the state of id, creating it on first use, and marks it
// declared in this frame. Declaring an identity twice in one frame panics.
func (c *Context) widget(id ID, kind Kind, label string, parent ID) *WidgetState {
	if _, dup := c.seen[id]; dup {
		panic(fmt.Sprintf("ui: %s %q declared twice in one frame", kind, label))
	}
	c.seen[id] = struct{}{}
	w := c.widgets[id]
	if w == nil {
		if len(c.order) >= c.maxWidgets {
			panic(fmt.Sprintf("ui: more than %d widgets", c.maxWidgets))
		}
		w = &WidgetState{ID: id, Kind: kind, Label: label}
		c.widgets[id] = w
		c.order = append(c.order, id)
	}
	w.Parent = parent
	w.frame = c.frame
	return w
}

// place lays out a widget of width x height at the cursor. extra is
// footprint to its right, such as a label, that is not part of its rect.
func (c *Context) place(width, height, extra float32) Rect {
	l := &c.lay
	var r Rect
	if l.sameLine && l.placed {
		r = Rect{X: l.lastRight + c.style.Spacing, Y: l.rowY, W: width, H: height}
		l.rowH = math32.Max(l.rowH, height)
	} else {
		l.rowY = l.nextY
		l.rowH = height
		r = Rect{X: c.style.Origin[0], Y: l.rowY, W: width, H: height}
	}
	l.nextY = l.rowY + l.rowH + c.style.Spacing
	l.lastRight = r.X + width + extra
	l.placed = true
	l.sameLine = false
	return r
}

// SameLine places the next widget to the right of the previous one.
func (c *Context) SameLine() { c.lay.sameLine = true }

// Cursor returns where the next widget on a new row would be placed.
func (c *Context) Cursor() (x, y float32) { return c.style.Origin[0], c.lay.nextY }

func (c *Context) allocZ() float32 {
	z := c.nextZ
	c.nextZ += 4
	return z
}

func (c *Context) rowHeight() float32 { return c.font.LineHeight() + 2*c.style.Padding }

func (c *Context) setActive(id ID) {
	c.active = id
	if id == 0 {
		c.lastHoveredMenu = 0
	}
}

// visible reports whether w was laid out recently enough to be hit.
func (c *Context) visible(w *WidgetState) bool {
	return w.frame+1 >= c.frame && !w.Rect.Empty()
}

// isAncestor reports whether menu a is a parent, grandparent and so on
// of id.
func (c *Context) isAncestor(a, id ID) bool {
	for w := c.widgets[id]; w != nil && w.Parent != 0; w = c.widgets[w.Parent] {
		if w.Parent == a {
			return true
		}
	}
	return false
}

// isOpen reports whether the dropdown of menu id is shown. A menu is open
// while it or one of its descendants is active. A submenu also opens when
// it, or a submenu below it, was the last hovered submenu and its parent
// is open.
func (c *Context) isOpen(id ID) bool {
	if id == 0 {
		return false
	}
	if c.active == id || c.isAncestor(id, c.active) {
		return true
	}
	w := c.widgets[id]
	if w == nil || w.Parent == 0 || c.lastHoveredMenu == 0 {
		return false
	}
	if c.lastHoveredMenu != id && !c.isAncestor(id, c.lastHoveredMenu) {
		return false
	}
	return c.isOpen(w.Parent)
}

// hitTest returns the last declared widget under x, y. Menu entries are
// only hit while their menu is open and other widgets are ignored while a
// menu owns the pointer.
func (c *Context) hitTest(x, y float32) ID {
	menuActive := false
	if a := c.widgets[c.active]; a != nil && a.Kind.isMenu() {
		menuActive = true
	}
	var hit ID
	for _, id := range c.order {
		w := c.widgets[id]
		if !c.visible(w) || !w.Rect.Contains(x, y) {
			continue
		}
		if w.Kind.isMenu() {
			if w.Parent != 0 && !c.isOpen(w.Parent) {
				continue
			}
		} else if menuActive {
			continue
		}
		hit = id
	}
	return hit
}

func (c *Context) updateHover(x, y float32) {
	c.mouseX, c.mouseY = x, y
	id := c.hitTest(x, y)
	if id == c.hovered {
		return
	}
	if old := c.widgets[c.hovered]; old != nil {
		old.Actions &^= Hovered
	}
	c.hovered = id
	if w := c.widgets[id]; w != nil {
		w.Actions |= Hovered
		if w.Kind == KindMenu && w.Parent != 0 {
			c.lastHoveredMenu = id
		}
	}
}

// Dispatch runs one event through the widget state machine.
func (c *Context) Dispatch(e Event) {
	switch e.Kind {
	case EventMouseMove:
		c.updateHover(e.X, e.Y)
		if a := c.widgets[c.active]; a != nil && a.Actions.Has(Pressed) {
			c.drag(a, e.X)
		}
	case EventMouseDown:
		if e.Button != input.MouseLeft {
			return
		}
		c.updateHover(e.X, e.Y)
		w := c.widgets[c.hovered]
		if w == nil {
			c.setActive(0)
			return
		}
		w.Actions |= Pressed
		c.setActive(w.ID)
		switch w.Kind {
		case KindSlider:
			c.setSlider(w, e.X)
		case KindTextInput:
			c.caretDown(w, e.X)
		}
	case EventMouseUp:
		if e.Button != input.MouseLeft {
			return
		}
		c.updateHover(e.X, e.Y)
		a := c.widgets[c.active]
		if a == nil {
			return
		}
		wasPressed := a.Actions.Has(Pressed)
		a.Actions &^= Pressed
		if a.Kind == KindTextInput {
			c.caretUp(a)
		}
		if wasPressed && c.hovered == a.ID {
			a.Actions |= Clicked
			return
		}
		if !a.Kind.retainsActive() {
			c.setActive(0)
		}
	case EventKeyDown:
		if a := c.widgets[c.active]; a != nil && a.Kind == KindTextInput {
			c.caretKey(a, e)
		}
	case EventChar:
		if a := c.widgets[c.active]; a != nil && a.Kind == KindTextInput {
			c.caretChar(a, e.Char)
		}
	}
}

func (c *Context) drag(w *WidgetState, x float32) {
	switch w.Kind {
	case KindSlider:
		c.setSlider(w, x)
	case KindTextInput:
		c.caretDrag(w, x)
	}
}

// setSlider maps x on the track to the slider value. The handle's left
// edge follows the pointer, so the value spans the track minus the handle.
func (c *Context) setSlider(w *WidgetState, x float32) {
	if w.value == nil {
		return
	}
	span := w.Rect.W - c.style.SliderHandle
	if span <= 0 {
		return
	}
	t := (x - w.Rect.X) / span
	t = math32.Max(0, math32.Min(1, t))
	v := w.min + t*(w.max-w.min)
	if v != *w.value {
		*w.value = v
		w.changed = true
	}
}
