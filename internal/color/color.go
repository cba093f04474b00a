// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package color converts between sRGB-encoded and linear color values.
package color

import (
	"math"

	"github.com/gogpu/gputypes"
)

// SRGBToLinear decodes an sRGB component in [0, 1].
func SRGBToLinear(s float32) float32 {
	if s <= 0.04045 {
		return s / 12.92
	}
	return float32(math.Pow(float64((s+0.055)/1.055), 2.4))
}

// LinearToSRGB encodes a linear component in [0, 1].
func LinearToSRGB(l float32) float32 {
	if l <= 0.0031308 {
		return l * 12.92
	}
	return 1.055*float32(math.Pow(float64(l), 1.0/2.4)) - 0.055
}

// Linearize decodes a premultiplied sRGB color. The components are
// unpremultiplied for decoding; alpha is linear already.
func Linearize(c [4]float32) [4]float32 {
	a := c[3]
	if a <= 0 {
		return [4]float32{}
	}
	for i := 0; i < 3; i++ {
		c[i] = SRGBToLinear(min(c[i]/a, 1)) * a
	}
	return c
}

// IsSRGB reports whether the hardware encodes writes to f as sRGB.
func IsSRGB(f gputypes.TextureFormat) bool {
	switch f {
	case gputypes.TextureFormatRGBA8UnormSrgb, gputypes.TextureFormatBGRA8UnormSrgb:
		return true
	}
	return false
}
