// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package ui

import (
	"encoding/binary"
	"math"
	"slices"
)

// SpriteSize is the encoded size of a Sprite.
const SpriteSize = 64

// Sprite is one textured or solid quad in pixel space.
type Sprite struct {
	Pos   [2]float32
	Size  [2]float32
	UV0   [2]float32
	UV1   [2]float32
	Color [4]float32
	Z     float32
	// Glyph modulates Color by the atlas coverage.
	Glyph bool
}

// Encode writes s into dst, which must hold SpriteSize bytes.
func (s *Sprite) Encode(dst []byte) {
	_ = dst[SpriteSize-1]
	vals := [...]float32{
		s.Pos[0], s.Pos[1], s.Size[0], s.Size[1],
		s.UV0[0], s.UV0[1], s.UV1[0], s.UV1[1],
		s.Color[0], s.Color[1], s.Color[2], s.Color[3],
		s.Z,
	}
	for i, v := range vals {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(v))
	}
	var flags uint32
	if s.Glyph {
		flags |= 1
	}
	binary.LittleEndian.PutUint32(dst[52:], flags)
	binary.LittleEndian.PutUint64(dst[56:], 0)
}

// sortSprites orders sprites by ascending Z, keeping declaration order
// among equal Z.
func sortSprites(s []Sprite) {
	slices.SortStableFunc(s, func(a, b Sprite) int {
		switch {
		case a.Z < b.Z:
			return -1
		case a.Z > b.Z:
			return 1
		}
		return 0
	})
}

// Rect is an axis-aligned rectangle in pixels.
type Rect struct {
	X, Y, W, H float32
}

// Contains reports whether the point lies inside r.
func (r Rect) Contains(x, y float32) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// Empty reports whether r has no area.
func (r Rect) Empty() bool { return r.W <= 0 || r.H <= 0 }
