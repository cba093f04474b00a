// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package graph

// RootPolicy selects how root passes share the swapchain render pass.
type RootPolicy uint8

const (
	// RootChained opens one swapchain render pass at the first root pass
	// and keeps it open for every following root pass. The first root
	// pass clears the image, the last pass closes the render pass.
	RootChained RootPolicy = iota

	// RootSeparate opens and closes a swapchain render pass around every
	// root pass. Only the first one clears.
	RootSeparate
)

// String returns the policy name.
func (p RootPolicy) String() string {
	if p == RootSeparate {
		return "separate"
	}
	return "chained"
}

// options holds configuration for a Graph.
type options struct {
	rootPolicy RootPolicy
	clearColor [4]float64
}

func defaultOptions() options {
	return options{
		rootPolicy: RootChained,
		clearColor: [4]float64{0, 0, 0, 1},
	}
}

// Option configures a Graph.
type Option func(*options)

// WithRootPolicy sets the root pass policy. The default is RootChained.
func WithRootPolicy(p RootPolicy) Option {
	return func(o *options) {
		o.rootPolicy = p
	}
}

// WithClearColor sets the color the swapchain image is cleared to by the
// first root pass of a frame.
func WithClearColor(r, g, b, a float64) Option {
	return func(o *options) {
		o.clearColor = [4]float64{r, g, b, a}
	}
}
