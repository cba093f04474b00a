// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package ui

// Font measures and rasterizes the glyphs the UI draws.
type Font interface {
	// Advance returns the horizontal pen advance of r in pixels.
	Advance(r rune) float32

	// LineHeight returns the distance between two baselines in pixels.
	LineHeight() float32

	// Glyph returns the atlas region holding the coverage of r. It
	// returns false for glyphs without pixels, such as spaces.
	Glyph(r rune) (Glyph, bool)

	// Atlas returns the glyph atlas, or nil if the font draws no glyphs.
	Atlas() *Atlas
}

// Glyph locates a rasterized glyph in the atlas. The offset is from the
// top left corner of the line box to the top left corner of the region.
type Glyph struct {
	Region  AtlasRegion
	OffsetX float32
	OffsetY float32
}

// MonoFont is a fixed-width font without glyph images. Text drawn with it
// produces no glyph sprites, which keeps layouts predictable.
type MonoFont struct {
	Width  float32
	Height float32
}

// NewMonoFont returns a font whose glyphs are all width x height.
func NewMonoFont(width, height float32) *MonoFont {
	return &MonoFont{Width: width, Height: height}
}

// Advance implements Font.
func (f *MonoFont) Advance(rune) float32 { return f.Width }

// LineHeight implements Font.
func (f *MonoFont) LineHeight() float32 { return f.Height }

// Glyph implements Font.
func (f *MonoFont) Glyph(rune) (Glyph, bool) { return Glyph{}, false }

// Atlas implements Font.
func (f *MonoFont) Atlas() *Atlas { return nil }

// measure returns the width of s and the pen offsets before each rune,
// with one trailing entry for the end of the text.
func measure(f Font, s []rune) (width float32, offsets []float32) {
	offsets = make([]float32, len(s)+1)
	for i, r := range s {
		width += f.Advance(r)
		offsets[i+1] = width
	}
	return width, offsets
}

func textWidth(f Font, s string) float32 {
	var w float32
	for _, r := range s {
		w += f.Advance(r)
	}
	return w
}
