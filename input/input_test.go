// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyboard(t *testing.T) {
	var kb Keyboard
	kb.Apply(KeyW, Press, 0)
	kb.Apply(KeyA, Press, ModShift)
	kb.Apply(KeyA, Repeat, ModShift)
	assert.True(t, kb.Pressed(KeyW))
	assert.True(t, kb.Pressed(KeyA))
	assert.True(t, kb.Mods().Has(ModShift))

	kb.Apply(KeyW, Release, 0)
	assert.False(t, kb.Pressed(KeyW))
	assert.False(t, kb.Pressed(KeyUnknown))
	assert.False(t, kb.Pressed(Key(-3)))

	kb.Reset()
	assert.False(t, kb.Pressed(KeyA))
}

func TestMouseDelta(t *testing.T) {
	var m Mouse
	m.Move(100, 50)
	dx, dy := m.Delta()
	assert.Zero(t, dx, "first move only places the pointer")
	assert.Zero(t, dy)

	m.Move(110, 40)
	m.Move(115, 45)
	dx, dy = m.Delta()
	assert.Equal(t, float32(15), dx)
	assert.Equal(t, float32(-5), dy)

	dx, dy = m.Delta()
	assert.Zero(t, dx, "Delta consumes the motion")
	assert.Zero(t, dy)

	x, y := m.Position()
	assert.Equal(t, float32(115), x)
	assert.Equal(t, float32(45), y)
}

func TestMouseButtons(t *testing.T) {
	var m Mouse
	m.Button(MouseRight, Press)
	assert.True(t, m.Pressed(MouseRight))
	assert.False(t, m.Pressed(MouseLeft))
	m.Button(MouseRight, Release)
	assert.False(t, m.Pressed(MouseRight))
	m.Button(MouseButton(42), Press)
	assert.False(t, m.Pressed(MouseButton(42)))
}
