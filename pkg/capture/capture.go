// Package capture defines the element/page screenshot collaborator and an
// in-memory implementation backed by a single page image.
package capture

import (
	"context"
	"fmt"
	"image"

	"github.com/menta2k/visual-assert/pkg/processing"
	"github.com/menta2k/visual-assert/pkg/types"
)

// Provider is the browser-side capture surface. Elements are addressed by
// selector.
type Provider interface {
	WaitReady(ctx context.Context, selector string) error
	// BoundingBox returns nil when the element has no layout box.
	BoundingBox(ctx context.Context, selector string) (*types.BoundingBox, error)
	ElementScreenshot(ctx context.Context, selector string) ([]byte, error)
	ClipScreenshot(ctx context.Context, clip types.Rect) ([]byte, error)
}

// Element waits for selector and returns its screenshot.
func Element(ctx context.Context, p Provider, selector string) ([]byte, error) {
	if err := p.WaitReady(ctx, selector); err != nil {
		return nil, fmt.Errorf("wait for %s: %w", selector, err)
	}
	buf, err := p.ElementScreenshot(ctx, selector)
	if err != nil {
		return nil, fmt.Errorf("screenshot %s: %w", selector, err)
	}
	return buf, nil
}

// Page is a Provider over a pre-rendered page image. Screenshots are PNG.
type Page struct {
	image     image.Image
	elements  map[string]types.BoundingBox
	processor *processing.Processor
}

// NewPage creates a Page from an image and element boxes.
func NewPage(img image.Image, elements map[string]types.BoundingBox) *Page {
	if elements == nil {
		elements = map[string]types.BoundingBox{}
	}
	return &Page{image: img, elements: elements, processor: processing.NewProcessor()}
}

// WaitReady fails if the selector is unknown.
func (p *Page) WaitReady(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := p.elements[selector]; !ok {
		return fmt.Errorf("element %q not found", selector)
	}
	return nil
}

// BoundingBox returns the registered box for selector, or nil.
func (p *Page) BoundingBox(_ context.Context, selector string) (*types.BoundingBox, error) {
	box, ok := p.elements[selector]
	if !ok {
		return nil, nil
	}
	return &box, nil
}

// ElementScreenshot crops the element's box.
func (p *Page) ElementScreenshot(ctx context.Context, selector string) ([]byte, error) {
	box, ok := p.elements[selector]
	if !ok {
		return nil, fmt.Errorf("element %q not found", selector)
	}
	return p.ClipScreenshot(ctx, types.Rect(box))
}

// ClipScreenshot crops clip out of the page image.
func (p *Page) ClipScreenshot(ctx context.Context, clip types.Rect) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cropped, err := p.processor.CropRect(p.image, clip)
	if err != nil {
		return nil, err
	}
	return p.processor.Encode(cropped, "png", 0)
}
