// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package ui

import (
	"errors"
	"testing"

	"github.com/go-text/typesetting/di"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/goregular"
)

func TestAtlasShelves(t *testing.T) {
	a := NewAtlas(64, 1)
	w, h := a.Size()
	assert.Equal(t, [2]int{64, 64}, [2]int{w, h})

	r1, err := a.Allocate(30, 10)
	require.NoError(t, err)
	r2, err := a.Allocate(30, 8)
	require.NoError(t, err)
	r3, err := a.Allocate(20, 20)
	require.NoError(t, err)

	assert.Equal(t, AtlasRegion{X: 0, Y: 0, Width: 30, Height: 10}, r1)
	assert.Equal(t, AtlasRegion{X: 31, Y: 0, Width: 30, Height: 8}, r2, "fits on the first shelf")
	assert.Equal(t, AtlasRegion{X: 0, Y: 11, Width: 20, Height: 20}, r3, "too tall for the first shelf")
	assert.Equal(t, 3, a.Len())

	_, err = a.Allocate(65, 1)
	assert.ErrorIs(t, err, ErrAtlasFull)
	_, err = a.Allocate(0, 4)
	assert.Error(t, err)

	for {
		if _, err = a.Allocate(16, 16); err != nil {
			break
		}
	}
	assert.ErrorIs(t, err, ErrAtlasFull)

	uv0, uv1 := a.UV(AtlasRegion{X: 16, Y: 32, Width: 16, Height: 16})
	assert.Equal(t, [2]float32{0.25, 0.5}, uv0)
	assert.Equal(t, [2]float32{0.5, 0.75}, uv1)
}

func TestMonoFont(t *testing.T) {
	f := NewMonoFont(7, 13)
	w, offsets := measure(f, []rune("abc"))
	assert.Equal(t, float32(21), w)
	assert.Equal(t, []float32{0, 7, 14, 21}, offsets)
	assert.Equal(t, float32(13), f.LineHeight())
	_, ok := f.Glyph('a')
	assert.False(t, ok)
	assert.Nil(t, f.Atlas())
}

func TestShapedFont(t *testing.T) {
	f, err := NewShapedFont(goregular.TTF, 16)
	require.NoError(t, err)

	assert.Greater(t, f.LineHeight(), float32(0))
	assert.Greater(t, f.Ascent(), float32(0))
	assert.Greater(t, f.Advance('W'), f.Advance('i'))
	assert.Equal(t, f.Advance('W'), f.Advance('W'))
	assert.Equal(t, uint64(2), f.advance.Stats().Hits, "advances are shaped once")

	g, ok := f.Glyph('g')
	require.True(t, ok)
	assert.True(t, g.Region.IsValid())
	assert.Equal(t, 1, f.Atlas().Len())
	v := f.Atlas().Version()

	again, ok := f.Glyph('g')
	require.True(t, ok)
	assert.Equal(t, g, again, "glyphs are rasterized once")
	assert.Equal(t, v, f.Atlas().Version())

	_, ok = f.Glyph(' ')
	assert.False(t, ok, "space has no pixels")

	// Text drawn with a shaped font emits glyph sprites.
	c := New(f)
	c.NewFrame()
	c.Button("Go")
	var glyphs int
	for _, s := range c.Sprites() {
		if s.Glyph {
			glyphs++
		}
	}
	assert.Equal(t, 2, glyphs)
}

func TestRuneDirection(t *testing.T) {
	assert.Equal(t, di.DirectionLTR, runeDirection('a'))
	assert.Equal(t, di.DirectionLTR, runeDirection('1'))
	assert.Equal(t, di.DirectionRTL, runeDirection('\u05D0'), "hebrew alef")
	assert.Equal(t, di.DirectionRTL, runeDirection('\u0628'), "arabic beh")
}

func TestShapedFontInvalid(t *testing.T) {
	_, err := NewShapedFont([]byte("not a font"), 16)
	assert.True(t, errors.Is(err, ErrNoFont))
	_, err = NewShapedFont(goregular.TTF, 0)
	assert.ErrorIs(t, err, ErrNoFont)
}
