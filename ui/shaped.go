// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package ui

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/go-text/typesetting/di"
	"github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/unicode/bidi"

	"github.com/gogpu/lumen/internal/cache"
)

// advanceCacheSize bounds the shaped advances a font remembers.
const advanceCacheSize = 1024

// ShapedFont measures runes with the HarfBuzz shaper from go-text and
// rasterizes them with an x/image OpenType face into a shared atlas.
//
// ShapedFont is safe for concurrent use.
type ShapedFont struct {
	mu      sync.Mutex
	size    float64
	face    *font.Face
	shaper  shaping.HarfbuzzShaper
	raster  xfont.Face
	ascent  float32
	line    float32
	atlas   *Atlas
	advance *cache.Cache[rune, float32]
	glyphs  map[rune]glyphEntry
}

type glyphEntry struct {
	glyph Glyph
	ok    bool
}

// NewShapedFont parses ttf and prepares a face of size pixels. Glyphs are
// packed into a new atlas of DefaultAtlasSize.
func NewShapedFont(ttf []byte, size float64) (*ShapedFont, error) {
	return NewShapedFontAtlas(ttf, size, NewAtlas(DefaultAtlasSize, 1))
}

// NewShapedFontAtlas is like NewShapedFont but packs glyphs into atlas.
func NewShapedFontAtlas(ttf []byte, size float64, atlas *Atlas) (*ShapedFont, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: size %v", ErrNoFont, size)
	}
	face, err := font.ParseTTF(bytes.NewReader(ttf))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoFont, err)
	}
	parsed, err := opentype.Parse(ttf)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoFont, err)
	}
	raster, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: xfont.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoFont, err)
	}
	m := raster.Metrics()
	f := &ShapedFont{
		size:    size,
		face:    face,
		raster:  raster,
		ascent:  fixedToFloat(m.Ascent),
		line:    fixedToFloat(m.Height),
		atlas:   atlas,
		advance: cache.New[rune, float32](advanceCacheSize),
		glyphs:  make(map[rune]glyphEntry),
	}
	slogger().Debug("ui: font loaded", "size", size, "line_height", f.line)
	return f, nil
}

// Size returns the font size in pixels.
func (f *ShapedFont) Size() float64 { return f.size }

// Advance implements Font.
func (f *ShapedFont) Advance(r rune) float32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.advance.GetOrCreate(r, func() float32 { return f.shape(r) })
}

// shape returns the advance of r as a one-rune run.
func (f *ShapedFont) shape(r rune) float32 {
	text := []rune{r}
	out := f.shaper.Shape(shaping.Input{
		Text:      text,
		RunStart:  0,
		RunEnd:    len(text),
		Direction: runeDirection(r),
		Face:      f.face,
		Size:      fixed.Int26_6(f.size * 64),
		Script:    language.LookupScript(r),
		Language:  language.NewLanguage("en"),
	})
	return fixedToFloat(out.Advance)
}

// runeDirection returns the shaping direction of r's bidi class.
func runeDirection(r rune) di.Direction {
	props, _ := bidi.LookupRune(r)
	switch props.Class() {
	case bidi.R, bidi.AL:
		return di.DirectionRTL
	}
	return di.DirectionLTR
}

// LineHeight implements Font.
func (f *ShapedFont) LineHeight() float32 { return f.line }

// Ascent returns the distance from the top of the line box to the
// baseline.
func (f *ShapedFont) Ascent() float32 { return f.ascent }

// Atlas implements Font.
func (f *ShapedFont) Atlas() *Atlas { return f.atlas }

// Glyph implements Font. The first request for a rune rasterizes it into
// the atlas. A full atlas is logged and the rune is drawn as blank.
func (f *ShapedFont) Glyph(r rune) (Glyph, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.glyphs[r]; ok {
		return e.glyph, e.ok
	}
	dot := fixed.Point26_6{Y: fixed.Int26_6(f.ascent * 64)}
	dr, mask, maskp, _, ok := f.raster.Glyph(dot, r)
	if !ok || dr.Empty() {
		f.glyphs[r] = glyphEntry{}
		return Glyph{}, false
	}
	region, err := f.atlas.Add(mask, dr, maskp)
	if err != nil {
		slogger().Warn("ui: glyph dropped", "rune", string(r), "err", err)
		f.glyphs[r] = glyphEntry{}
		return Glyph{}, false
	}
	g := Glyph{Region: region, OffsetX: float32(dr.Min.X), OffsetY: float32(dr.Min.Y)}
	f.glyphs[r] = glyphEntry{glyph: g, ok: true}
	return g, true
}

func fixedToFloat(v fixed.Int26_6) float32 { return float32(v) / 64 }
