// Package chromedp implements capture.Provider on a Chrome DevTools tab.
package chromedp

import (
	"context"
	"fmt"
	"math"

	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/menta2k/visual-assert/pkg/types"
)

// Browser wraps a chromedp tab context created by chromedp.NewContext.
type Browser struct {
	tab context.Context
}

// New wraps tab. Navigation and lifecycle stay with the caller.
func New(tab context.Context) *Browser {
	return &Browser{tab: tab}
}

// run executes actions on the tab, aborting when ctx is done.
func (b *Browser) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(b.tab)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

// WaitReady waits until selector is present in the DOM.
func (b *Browser) WaitReady(ctx context.Context, selector string) error {
	return b.run(ctx, chromedp.WaitReady(selector, chromedp.ByQuery))
}

// BoundingBox returns the element's border box in document pixels, so it
// stays valid as a ClipScreenshot clip when the page is scrolled.
func (b *Browser) BoundingBox(ctx context.Context, selector string) (*types.BoundingBox, error) {
	var (
		model  *dom.BoxModel
		scroll []float64
	)
	err := b.run(ctx,
		chromedp.Dimensions(selector, &model, chromedp.ByQuery),
		chromedp.Evaluate(`[window.scrollX, window.scrollY]`, &scroll),
	)
	if err != nil {
		return nil, err
	}
	if len(scroll) != 2 {
		return nil, fmt.Errorf("unexpected scroll offset %v", scroll)
	}
	return documentBox(model, scroll[0], scroll[1]), nil
}

// documentBox shifts the viewport border quad of model by the scroll offset.
func documentBox(model *dom.BoxModel, scrollX, scrollY float64) *types.BoundingBox {
	if model == nil || len(model.Border) < 2 {
		return nil
	}
	return &types.BoundingBox{
		X:      model.Border[0] + scrollX,
		Y:      model.Border[1] + scrollY,
		Width:  float64(model.Width),
		Height: float64(model.Height),
	}
}

// ElementScreenshot captures selector as PNG.
func (b *Browser) ElementScreenshot(ctx context.Context, selector string) ([]byte, error) {
	var buf []byte
	if err := b.run(ctx, chromedp.Screenshot(selector, &buf, chromedp.ByQuery)); err != nil {
		return nil, err
	}
	return buf, nil
}

// ClipScreenshot captures a document rectangle as PNG, including parts
// outside the current viewport.
func (b *Browser) ClipScreenshot(ctx context.Context, clip types.Rect) ([]byte, error) {
	if clip.Width <= 0 || clip.Height <= 0 {
		return nil, fmt.Errorf("empty clip %+v", clip)
	}
	vp := clipViewport(clip)
	var buf []byte
	err := b.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, err = page.CaptureScreenshot().
			WithFormat(page.CaptureScreenshotFormatPng).
			WithCaptureBeyondViewport(true).
			WithFromSurface(true).
			WithClip(vp).
			Do(ctx)
		return err
	}))
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// clipViewport snaps clip to whole pixels, keeping its far edges in place.
// Chrome mis-renders fractional clips.
func clipViewport(clip types.Rect) *page.Viewport {
	x, y := math.Round(clip.X), math.Round(clip.Y)
	return &page.Viewport{
		X:      x,
		Y:      y,
		Width:  math.Round(clip.X + clip.Width - x),
		Height: math.Round(clip.Y + clip.Height - y),
		Scale:  1,
	}
}
