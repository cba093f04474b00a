// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package ui

import "fmt"

// Kind is the type of a widget. It is part of the widget identity.
type Kind uint8

// Widget kinds.
const (
	KindButton Kind = iota + 1
	KindCheckbox
	KindSlider
	KindTextInput
	KindMenu
	KindMenuItem
)

var kindNames = [...]string{"", "button", "checkbox", "slider", "text-input", "menu", "menu-item"}

// String returns the kind name.
func (k Kind) String() string {
	if k > 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// isMenu reports whether k takes part in the menu hierarchy.
func (k Kind) isMenu() bool { return k == KindMenu || k == KindMenuItem }

// retainsActive reports whether a click leaves the widget active.
func (k Kind) retainsActive() bool { return k == KindMenu || k == KindTextInput }

// Actions is the set of interaction flags of a widget.
type Actions uint8

// Action flags.
const (
	Hovered Actions = 1 << iota
	Pressed
	Clicked
)

// Has reports whether all of o are set.
func (a Actions) Has(o Actions) bool { return a&o == o }

// String returns the set flags, e.g. "hovered|pressed".
func (a Actions) String() string {
	if a == 0 {
		return "none"
	}
	var s string
	for i, name := range [...]string{"hovered", "pressed", "clicked"} {
		if a&(1<<i) == 0 {
			continue
		}
		if s != "" {
			s += "|"
		}
		s += name
	}
	return s
}

// WidgetState is the state a widget keeps across frames.
type WidgetState struct {
	ID      ID
	Kind    Kind
	Label   string
	Rect    Rect
	Parent  ID
	Actions Actions

	// frame is the last frame the widget was declared in.
	frame uint64

	value    *float32
	min, max float32
	buf      *[]rune
	changed  bool
}
