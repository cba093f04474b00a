// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package ui

// Color is a premultiplied RGBA color.
type Color [4]float32

// RGBA returns the premultiplied form of a straight-alpha color.
func RGBA(r, g, b, a float32) Color { return Color{r * a, g * a, b * a, a} }

// Style holds the metrics and colors widgets are laid out and drawn with.
type Style struct {
	// Origin is where the first widget of a frame is placed.
	Origin [2]float32
	// Padding is the space between a widget's frame and its text.
	Padding float32
	// Spacing is the gap between widgets.
	Spacing float32

	SliderWidth    float32
	SliderHandle   float32
	InputWidth     float32
	MenuMinWidth   float32
	CaretWidth     float32
	CaretBlinkRate float32
	Text           Color
	Frame          Color
	FrameHovered   Color
	FramePressed   Color
	Check          Color
	Handle         Color
	MenuBackground Color
	Selection      Color
	Caret          Color
}

// DefaultStyle returns the built-in dark style.
func DefaultStyle() Style {
	return Style{
		Origin:         [2]float32{8, 8},
		Padding:        4,
		Spacing:        6,
		SliderWidth:    160,
		SliderHandle:   10,
		InputWidth:     160,
		MenuMinWidth:   80,
		CaretWidth:     1,
		CaretBlinkRate: 0.5,
		Text:           RGBA(0.92, 0.92, 0.92, 1),
		Frame:          RGBA(0.20, 0.22, 0.27, 0.9),
		FrameHovered:   RGBA(0.28, 0.32, 0.40, 0.9),
		FramePressed:   RGBA(0.16, 0.42, 0.70, 1),
		Check:          RGBA(0.30, 0.60, 0.95, 1),
		Handle:         RGBA(0.55, 0.60, 0.70, 1),
		MenuBackground: RGBA(0.12, 0.13, 0.16, 0.95),
		Selection:      RGBA(0.25, 0.45, 0.80, 0.6),
		Caret:          RGBA(1, 1, 1, 1),
	}
}
