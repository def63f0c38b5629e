package regions

import (
	"fmt"
	"image"

	"github.com/menta2k/visual-assert/pkg/processing"
	"github.com/menta2k/visual-assert/pkg/types"
)

// DefaultCornerSize is the side of each corner square in pixels.
const DefaultCornerSize = 10

// Corner names, in the order Corners returns them.
const (
	TopLeft     = "top-left"
	TopRight    = "top-right"
	BottomLeft  = "bottom-left"
	BottomRight = "bottom-right"
)

// Corners returns the four size×size squares anchored at the corners of box,
// ordered top-left, top-right, bottom-left, bottom-right. Boxes smaller than
// size produce overlapping or negative-origin squares; the caller's capture
// surface decides how to clip them.
func Corners(box types.BoundingBox, size float64) []types.Corner {
	right := box.X + box.Width - size
	bottom := box.Y + box.Height - size

	return []types.Corner{
		{Name: TopLeft, Rect: types.Rect{X: box.X, Y: box.Y, Width: size, Height: size}},
		{Name: TopRight, Rect: types.Rect{X: right, Y: box.Y, Width: size, Height: size}},
		{Name: BottomLeft, Rect: types.Rect{X: box.X, Y: bottom, Width: size, Height: size}},
		{Name: BottomRight, Rect: types.Rect{X: right, Y: bottom, Width: size, Height: size}},
	}
}

// ImageBox returns the box covering the whole image, relative to its origin.
func ImageBox(img image.Image) types.BoundingBox {
	b := img.Bounds()
	return types.BoundingBox{Width: float64(b.Dx()), Height: float64(b.Dy())}
}

// Cropper cuts corner regions out of a decoded image.
type Cropper struct {
	processor *processing.Processor
	size      float64
}

// New creates a Cropper with the default corner size.
func New() *Cropper {
	return NewWithSize(DefaultCornerSize)
}

// NewWithSize creates a Cropper with a custom corner size.
func NewWithSize(size float64) *Cropper {
	if size <= 0 {
		size = DefaultCornerSize
	}
	return &Cropper{processor: processing.NewProcessor(), size: size}
}

// Size returns the corner side length.
func (c *Cropper) Size() float64 {
	return c.size
}

// CropCorners returns the four corner crops of img keyed by corner name.
func (c *Cropper) CropCorners(img image.Image) (map[string]image.Image, error) {
	out := make(map[string]image.Image, 4)
	for _, corner := range Corners(ImageBox(img), c.size) {
		cropped, err := c.processor.CropRect(img, corner.Rect)
		if err != nil {
			return nil, fmt.Errorf("crop %s: %w", corner.Name, err)
		}
		out[corner.Name] = cropped
	}
	return out, nil
}

// Overlay draws the corner squares over img for debugging.
func (c *Cropper) Overlay(img image.Image) image.Image {
	corners := Corners(ImageBox(img), c.size)
	rects := make([]types.Rect, len(corners))
	for i, corner := range corners {
		rects[i] = corner.Rect
	}
	return c.processor.CreateRegionOverlay(img, rects)
}
