// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package ui

import (
	"fmt"
	"image"
	"sync"

	"golang.org/x/image/draw"
)

// Atlas sizes.
const (
	// DefaultAtlasSize is the default glyph atlas dimension.
	DefaultAtlasSize = 512

	// MinAtlasSize is the smallest atlas dimension.
	MinAtlasSize = 64
)

// AtlasRegion is a rectangle of atlas texels.
type AtlasRegion struct {
	X, Y          int
	Width, Height int
}

// IsValid reports whether r has an area.
func (r AtlasRegion) IsValid() bool { return r.Width > 0 && r.Height > 0 }

// String returns a string representation of the region.
func (r AtlasRegion) String() string {
	return fmt.Sprintf("Region(%d,%d %dx%d)", r.X, r.Y, r.Width, r.Height)
}

// shelf is one row of the packer. Items on a shelf share its top edge.
type shelf struct {
	y      int
	height int
	nextX  int
}

// Atlas is a single-channel coverage image packed with glyphs by shelf
// packing: a glyph goes on the first shelf with room for it, or on a new
// shelf below the last one.
type Atlas struct {
	mu      sync.Mutex
	img     *image.Alpha
	shelves []shelf
	padding int
	version int
	count   int
}

// NewAtlas returns an empty square atlas. Sizes below MinAtlasSize are
// raised to it.
func NewAtlas(size, padding int) *Atlas {
	if size < MinAtlasSize {
		size = MinAtlasSize
	}
	if padding < 0 {
		padding = 0
	}
	return &Atlas{img: image.NewAlpha(image.Rect(0, 0, size, size)), padding: padding}
}

// Size returns the atlas dimensions.
func (a *Atlas) Size() (width, height int) {
	b := a.img.Bounds()
	return b.Dx(), b.Dy()
}

// Image returns the coverage image. Callers must not modify it.
func (a *Atlas) Image() *image.Alpha { return a.img }

// Version changes every time pixels are added.
func (a *Atlas) Version() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.version
}

// Len returns the number of packed images.
func (a *Atlas) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.count
}

// Allocate reserves a width x height region.
func (a *Atlas) Allocate(width, height int) (AtlasRegion, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.allocate(width, height)
}

func (a *Atlas) allocate(width, height int) (AtlasRegion, error) {
	if width <= 0 || height <= 0 {
		return AtlasRegion{}, fmt.Errorf("ui: atlas region %dx%d", width, height)
	}
	aw, ah := a.Size()
	pw, ph := width+a.padding, height+a.padding
	if pw > aw || ph > ah {
		return AtlasRegion{}, ErrAtlasFull
	}

	for i := range a.shelves {
		s := &a.shelves[i]
		if s.nextX+pw > aw || ph > s.height {
			continue
		}
		r := AtlasRegion{X: s.nextX, Y: s.y, Width: width, Height: height}
		s.nextX += pw
		a.count++
		return r, nil
	}

	y := 0
	if n := len(a.shelves); n > 0 {
		y = a.shelves[n-1].y + a.shelves[n-1].height
	}
	if y+ph > ah {
		return AtlasRegion{}, ErrAtlasFull
	}
	a.shelves = append(a.shelves, shelf{y: y, height: ph, nextX: pw})
	a.count++
	return AtlasRegion{X: 0, Y: y, Width: width, Height: height}, nil
}

// Add packs mask, reading it from sp, and returns its region.
func (a *Atlas) Add(mask image.Image, r image.Rectangle, sp image.Point) (AtlasRegion, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	region, err := a.allocate(r.Dx(), r.Dy())
	if err != nil {
		return AtlasRegion{}, err
	}
	dst := image.Rect(region.X, region.Y, region.X+region.Width, region.Y+region.Height)
	draw.Draw(a.img, dst, mask, sp, draw.Src)
	a.version++
	return region, nil
}

// UV returns the normalized texture coordinates of r.
func (a *Atlas) UV(r AtlasRegion) (uv0, uv1 [2]float32) {
	w, h := a.Size()
	fw, fh := float32(w), float32(h)
	uv0 = [2]float32{float32(r.X) / fw, float32(r.Y) / fh}
	uv1 = [2]float32{float32(r.X+r.Width) / fw, float32(r.Y+r.Height) / fh}
	return uv0, uv1
}
