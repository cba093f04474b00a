// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package color

import (
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/stretchr/testify/assert"
)

func TestTransferFunctions(t *testing.T) {
	tests := []struct {
		srgb, linear float32
	}{
		{0, 0},
		{1, 1},
		{0.04045, 0.04045 / 12.92},
		{0.5, 0.21404},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.linear, SRGBToLinear(tt.srgb), 1e-4, "decode %v", tt.srgb)
		assert.InDelta(t, tt.srgb, LinearToSRGB(tt.linear), 1e-4, "encode %v", tt.linear)
	}
	for i := 0; i <= 255; i++ {
		v := float32(i) / 255
		assert.InDelta(t, v, LinearToSRGB(SRGBToLinear(v)), 1e-5)
	}
}

func TestLinearize(t *testing.T) {
	got := Linearize([4]float32{0.25, 0.5, 0, 0.5})
	assert.InDelta(t, 0.5*0.21404, got[0], 1e-4, "unpremultiplied 0.5")
	assert.InDelta(t, 0.5, got[1], 1e-6, "white stays at alpha")
	assert.Zero(t, got[2])
	assert.Equal(t, float32(0.5), got[3])

	assert.Equal(t, [4]float32{}, Linearize([4]float32{0.2, 0.2, 0.2, 0}))
	assert.Equal(t, [4]float32{1, 1, 1, 1}, Linearize([4]float32{1, 1, 1, 1}))
}

func TestIsSRGB(t *testing.T) {
	assert.True(t, IsSRGB(gputypes.TextureFormatRGBA8UnormSrgb))
	assert.True(t, IsSRGB(gputypes.TextureFormatBGRA8UnormSrgb))
	assert.False(t, IsSRGB(gputypes.TextureFormatRGBA8Unorm))
}
