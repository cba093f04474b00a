// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package input holds the keyboard and mouse snapshots fed by the
// windowing system.
package input

// Key is a keyboard key.
type Key int

// Keyboard keys.
const (
	KeyUnknown Key = iota
	Key0
	Key1
	Key2
	Key3
	Key4
	Key5
	Key6
	Key7
	Key8
	Key9
	KeyA
	KeyB
	KeyC
	KeyD
	KeyE
	KeyF
	KeyG
	KeyH
	KeyI
	KeyJ
	KeyK
	KeyL
	KeyM
	KeyN
	KeyO
	KeyP
	KeyQ
	KeyR
	KeyS
	KeyT
	KeyU
	KeyV
	KeyW
	KeyX
	KeyY
	KeyZ
	KeySpace
	KeyEscape
	KeyEnter
	KeyTab
	KeyBackspace
	KeyDelete
	KeyInsert
	KeyHome
	KeyEnd
	KeyPageUp
	KeyPageDown
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyLeftShift
	KeyRightShift
	KeyLeftControl
	KeyRightControl
	KeyLeftAlt
	KeyRightAlt
	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12
	keyCount
)

// Action is what happened to a key or button.
type Action uint8

// Actions.
const (
	Release Action = iota
	Press
	Repeat
)

// String returns the action name.
func (a Action) String() string {
	switch a {
	case Press:
		return "press"
	case Repeat:
		return "repeat"
	default:
		return "release"
	}
}

// Mods is a set of modifier keys held during an event.
type Mods uint8

// Modifier flags.
const (
	ModShift Mods = 1 << iota
	ModControl
	ModAlt
	ModSuper
)

// Has reports whether all of o are held.
func (m Mods) Has(o Mods) bool { return m&o == o }

// MouseButton is a pointer button.
type MouseButton uint8

// Mouse buttons.
const (
	MouseLeft MouseButton = iota
	MouseRight
	MouseMiddle
	mouseButtonCount
)

// Keyboard is the set of keys currently held.
type Keyboard struct {
	down [keyCount]bool
	mods Mods
}

// Apply records a key event.
func (k *Keyboard) Apply(key Key, action Action, mods Mods) {
	k.mods = mods
	if key <= KeyUnknown || key >= keyCount {
		return
	}
	k.down[key] = action != Release
}

// Pressed reports whether key is held.
func (k *Keyboard) Pressed(key Key) bool {
	if key <= KeyUnknown || key >= keyCount {
		return false
	}
	return k.down[key]
}

// Mods returns the modifiers of the last key event.
func (k *Keyboard) Mods() Mods { return k.mods }

// Reset releases every key.
func (k *Keyboard) Reset() { *k = Keyboard{} }

// Mouse is the pointer position, the motion accumulated since the last
// Delta call and the buttons currently held.
type Mouse struct {
	x, y    float32
	dx, dy  float32
	seen    bool
	buttons [mouseButtonCount]bool
}

// Move records a pointer position. The first position only places the
// pointer, later ones accumulate motion.
func (m *Mouse) Move(x, y float32) {
	if m.seen {
		m.dx += x - m.x
		m.dy += y - m.y
	}
	m.x, m.y = x, y
	m.seen = true
}

// Button records a button event.
func (m *Mouse) Button(b MouseButton, action Action) {
	if b >= mouseButtonCount {
		return
	}
	m.buttons[b] = action != Release
}

// Position returns the last pointer position.
func (m *Mouse) Position() (x, y float32) { return m.x, m.y }

// Pressed reports whether b is held.
func (m *Mouse) Pressed(b MouseButton) bool {
	return b < mouseButtonCount && m.buttons[b]
}

// Delta returns the accumulated motion and clears it.
func (m *Mouse) Delta() (dx, dy float32) {
	dx, dy = m.dx, m.dy
	m.dx, m.dy = 0, 0
	return dx, dy
}
