// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/lumen/input"
)

// Field of view limits in degrees.
const (
	MinFOV = 10
	MaxFOV = 110
)

// maxPitch keeps the camera from flipping over the up axis.
const maxPitch = 89 * math.Pi / 180

var worldUp = mgl32.Vec3{0, 1, 0}

// Camera is a first-person camera. Orientation is a quaternion built from
// pitch and yaw.
type Camera struct {
	Position mgl32.Vec3
	// Pitch and Yaw are in radians. Zero looks down -Z.
	Pitch float32
	Yaw   float32

	Near float32
	Far  float32
	// Speed is the movement speed in units per second.
	Speed float32
	// Sensitivity is the mouse-look rate in radians per pixel.
	Sensitivity float32

	fov float32
}

// NewCamera returns a camera at pos with the given vertical field of view
// in degrees.
func NewCamera(pos mgl32.Vec3, fov float32) *Camera {
	c := &Camera{
		Position:    pos,
		Near:        0.01,
		Far:         1000,
		Speed:       2,
		Sensitivity: 0.003,
	}
	c.SetFOV(fov)
	return c
}

// FOV returns the vertical field of view in degrees.
func (c *Camera) FOV() float32 { return c.fov }

// SetFOV sets the vertical field of view, clamped to [MinFOV, MaxFOV].
func (c *Camera) SetFOV(deg float32) {
	c.fov = mgl32.Clamp(deg, MinFOV, MaxFOV)
}

// Orientation returns the camera rotation.
func (c *Camera) Orientation() mgl32.Quat {
	yaw := mgl32.QuatRotate(c.Yaw, worldUp)
	pitch := mgl32.QuatRotate(c.Pitch, mgl32.Vec3{1, 0, 0})
	return yaw.Mul(pitch).Normalize()
}

// Forward returns the view direction.
func (c *Camera) Forward() mgl32.Vec3 {
	return c.Orientation().Rotate(mgl32.Vec3{0, 0, -1})
}

// Right returns the camera's right vector.
func (c *Camera) Right() mgl32.Vec3 {
	return c.Orientation().Rotate(mgl32.Vec3{1, 0, 0})
}

// View returns the world to view matrix.
func (c *Camera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Position.Add(c.Forward()), worldUp)
}

// Projection returns the perspective projection for the given aspect
// ratio.
func (c *Camera) Projection(aspect float32) mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(c.fov), aspect, c.Near, c.Far)
}

// Look turns the camera by a mouse motion in pixels.
func (c *Camera) Look(dx, dy float32) {
	c.Yaw -= dx * c.Sensitivity
	c.Pitch = mgl32.Clamp(c.Pitch-dy*c.Sensitivity, -maxPitch, maxPitch)
}

// Update moves the camera for dt seconds: WASD moves in the view plane,
// Q and E move down and up, Shift doubles the speed. Mouse motion turns
// the camera while the right button is held; the motion is consumed
// either way.
func (c *Camera) Update(dt float32, kb *input.Keyboard, mouse *input.Mouse) {
	dx, dy := mouse.Delta()
	if mouse.Pressed(input.MouseRight) {
		c.Look(dx, dy)
	}

	var move mgl32.Vec3
	fwd, right := c.Forward(), c.Right()
	if kb.Pressed(input.KeyW) {
		move = move.Add(fwd)
	}
	if kb.Pressed(input.KeyS) {
		move = move.Sub(fwd)
	}
	if kb.Pressed(input.KeyD) {
		move = move.Add(right)
	}
	if kb.Pressed(input.KeyA) {
		move = move.Sub(right)
	}
	if kb.Pressed(input.KeyE) {
		move = move.Add(worldUp)
	}
	if kb.Pressed(input.KeyQ) {
		move = move.Sub(worldUp)
	}
	if move.Len() == 0 {
		return
	}
	speed := c.Speed
	if kb.Pressed(input.KeyLeftShift) || kb.Pressed(input.KeyRightShift) {
		speed *= 2
	}
	c.Position = c.Position.Add(move.Normalize().Mul(speed * dt))
}
