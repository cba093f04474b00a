// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package ui

import (
	"fmt"

	"github.com/gogpu/lumen/input"
)

// EventKind is the type of a UI event.
type EventKind uint8

// Event kinds.
const (
	EventMouseMove EventKind = iota
	EventMouseDown
	EventMouseUp
	EventKeyDown
	EventKeyUp
	EventChar
)

var eventNames = [...]string{"mouse-move", "mouse-down", "mouse-up", "key-down", "key-up", "char"}

// String returns the kind name.
func (k EventKind) String() string {
	if int(k) < len(eventNames) {
		return eventNames[k]
	}
	return fmt.Sprintf("EventKind(%d)", uint8(k))
}

// IsMouse reports whether k carries a pointer position.
func (k EventKind) IsMouse() bool { return k <= EventMouseUp }

// Event is an input event for the UI. X and Y are in pixels from the top
// left corner of the window.
type Event struct {
	Kind   EventKind
	X, Y   float32
	Button input.MouseButton
	Key    input.Key
	Mods   input.Mods
	Char   rune
}

// Mouse returns the pointer position and button of a mouse event. It
// panics for other kinds.
func (e Event) Mouse() (x, y float32, b input.MouseButton) {
	if !e.Kind.IsMouse() {
		panic(fmt.Sprintf("ui: Mouse called on %s event", e.Kind))
	}
	return e.X, e.Y, e.Button
}

// MouseMove returns a pointer motion event.
func MouseMove(x, y float32) Event { return Event{Kind: EventMouseMove, X: x, Y: y} }

// MouseDown returns a button press at x, y.
func MouseDown(x, y float32, b input.MouseButton) Event {
	return Event{Kind: EventMouseDown, X: x, Y: y, Button: b}
}

// MouseUp returns a button release at x, y.
func MouseUp(x, y float32, b input.MouseButton) Event {
	return Event{Kind: EventMouseUp, X: x, Y: y, Button: b}
}

// KeyDown returns a key press or repeat.
func KeyDown(k input.Key, mods input.Mods) Event {
	return Event{Kind: EventKeyDown, Key: k, Mods: mods}
}

// Char returns a text input event.
func Char(r rune) Event { return Event{Kind: EventChar, Char: r} }
