// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"context"
	"fmt"

	"github.com/gogpu/gputypes"
)

// SwapchainInfo describes a swapchain.
type SwapchainInfo struct {
	Width  uint32
	Height uint32
	Images int
	VSync  bool
	Format gputypes.TextureFormat
}

// Swapchain is a ring of presentable images. The images are ordinary
// device textures that start in StatePresent; frames render into the
// current image and hand it to the Presenter at submit.
type Swapchain struct {
	d         *Device
	info      SwapchainInfo
	presenter Presenter
	images    []Texture
	current   int
	retired   bool
}

// CreateSwapchain creates a swapchain presenting through p. When previous
// has identical info it is returned unchanged; otherwise its images are
// retired through deferred destruction.
func (d *Device) CreateSwapchain(info SwapchainInfo, p Presenter, previous *Swapchain) (*Swapchain, error) {
	if err := d.checkOpen(); err != nil {
		return nil, err
	}
	if info.Images < 1 {
		info.Images = 1
	}
	if info.Format == gputypes.TextureFormat(0) {
		info.Format = gputypes.TextureFormatRGBA8Unorm
	}
	if previous != nil && !previous.retired && previous.info == info && previous.presenter == p {
		return previous, nil
	}
	if info.Width == 0 || info.Height == 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrSwapchainUnavailable, info.Width, info.Height)
	}
	if p == nil {
		p = NullPresenter{}
	}

	sc := &Swapchain{d: d, info: info, presenter: p}
	for i := 0; i < info.Images; i++ {
		t, err := d.CreateTexture(TextureInfo{
			Label:        fmt.Sprintf("lumen_swapchain_%d", i),
			Width:        info.Width,
			Height:       info.Height,
			Format:       info.Format,
			Bind:         BindRenderTarget,
			InitialState: StatePresent,
		}, nil)
		if err != nil {
			sc.release()
			return nil, fmt.Errorf("%w: %v", ErrSwapchainUnavailable, err)
		}
		sc.images = append(sc.images, t)
	}
	if previous != nil {
		previous.release()
	}
	slogger().Info("gpu: swapchain created",
		"width", info.Width, "height", info.Height, "images", info.Images, "vsync", info.VSync)
	return sc, nil
}

func (sc *Swapchain) release() {
	if sc.retired {
		return
	}
	for _, t := range sc.images {
		sc.d.DestroyTexture(t)
	}
	sc.images = nil
	sc.retired = true
}

// Destroy retires the swapchain images.
func (sc *Swapchain) Destroy() { sc.release() }

// Acquire prepares the current image for rendering. It returns
// ErrOutOfDate when the presenter reports a size different from the
// swapchain's.
func (sc *Swapchain) Acquire() error {
	if sc.retired {
		return ErrOutOfDate
	}
	if w, h := sc.presenter.Size(); w != 0 && h != 0 && (w != sc.info.Width || h != sc.info.Height) {
		return ErrOutOfDate
	}
	return nil
}

// Current returns the image frames render into.
func (sc *Swapchain) Current() Texture { return sc.images[sc.current] }

// CurrentIndex returns the index of the current image.
func (sc *Swapchain) CurrentIndex() int { return sc.current }

// Info returns the description the swapchain was created with.
func (sc *Swapchain) Info() SwapchainInfo { return sc.info }

// Width returns the image width.
func (sc *Swapchain) Width() uint32 { return sc.info.Width }

// Height returns the image height.
func (sc *Swapchain) Height() uint32 { return sc.info.Height }

// Format returns the image format.
func (sc *Swapchain) Format() gputypes.TextureFormat { return sc.info.Format }

// Presenter returns the presenter images are handed to.
func (sc *Swapchain) Presenter() Presenter { return sc.presenter }

func (sc *Swapchain) present(ctx context.Context) error {
	frame := &PresentFrame{
		Device:  sc.d,
		Texture: sc.Current(),
		Index:   sc.current,
		Width:   sc.info.Width,
		Height:  sc.info.Height,
		Frame:   sc.d.frameCounter + 1,
	}
	err := sc.presenter.Present(ctx, frame)
	sc.current = (sc.current + 1) % len(sc.images)
	return err
}
