package processing

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"io"
	"math"
	"os"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/visual-assert/pkg/types"
)

// Processor handles image decoding, encoding and cropping
type Processor struct{}

// NewProcessor creates a new image processor
func NewProcessor() *Processor {
	return &Processor{}
}

// decoders are tried in order. imaging covers the formats registered with
// package image; chai2010/webp also handles the lossless variants.
var decoders = []func(io.Reader) (image.Image, error){
	func(r io.Reader) (image.Image, error) { return imaging.Decode(r) },
	webp.Decode,
}

// Decode decodes a PNG, JPEG or WebP buffer
func (p *Processor) Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, errors.New("image: empty buffer")
	}
	for _, decode := range decoders {
		if img, err := decode(bytes.NewReader(data)); err == nil {
			return img, nil
		}
	}
	return nil, errors.New("image: unknown or unsupported format")
}

// LoadImage reads and decodes the file at path
func (p *Processor) LoadImage(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	img, err := p.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// Encode encodes an image as png, jpg or webp. WebP output is lossless.
func (p *Processor) Encode(img image.Image, format string, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeTo(&buf, img, format, quality, true); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeTo(w io.Writer, img image.Image, format string, quality int, lossless bool) error {
	switch strings.ToLower(format) {
	case "webp":
		return webp.Encode(w, img, &webp.Options{Lossless: lossless, Quality: float32(quality)})
	case "jpg", "jpeg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	default:
		return imaging.Encode(w, img, imaging.PNG)
	}
}

// PrepareImageForModel shrinks img to fit within maxDim on its longer side
// and returns it base64 encoded, as png or otherwise jpg.
func (p *Processor) PrepareImageForModel(img image.Image, format string, maxDim int, quality int) (string, error) {
	if maxDim > 0 {
		img = imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)
	}
	if !strings.EqualFold(format, "png") {
		format = "jpg"
	}
	data, err := p.Encode(img, format, quality)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// CropRect crops an image to a rectangle given in pixels relative to the
// image origin. Fractional edges are rounded outward.
func (p *Processor) CropRect(img image.Image, r types.Rect) (*image.NRGBA, error) {
	bounds := img.Bounds()
	x0 := bounds.Min.X + int(math.Floor(r.X))
	y0 := bounds.Min.Y + int(math.Floor(r.Y))
	x1 := bounds.Min.X + int(math.Ceil(r.X+r.Width))
	y1 := bounds.Min.Y + int(math.Ceil(r.Y+r.Height))

	rect := image.Rect(x0, y0, x1, y1).Intersect(bounds)
	if rect.Empty() {
		return nil, fmt.Errorf("empty crop rectangle %+v", r)
	}
	return imaging.Crop(img, rect), nil
}

// SaveImage encodes img and writes it to path. Unknown formats are written as png.
func (p *Processor) SaveImage(img image.Image, path, format string, quality int, lossless bool) error {
	var buf bytes.Buffer
	if err := encodeTo(&buf, img, format, quality, lossless); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// cornerPalette colors overlay outlines in corner order.
var cornerPalette = []color.NRGBA{
	{0, 255, 0, 255},
	{255, 204, 0, 255},
	{255, 0, 0, 255},
	{0, 170, 255, 255},
}

// CreateRegionOverlay outlines each rectangle on a copy of img
func (p *Processor) CreateRegionOverlay(img image.Image, rects []types.Rect) image.Image {
	canvas := imaging.Clone(img)
	b := canvas.Bounds()
	stroke := int(math.Max(1, 0.004*float64(min(b.Dx(), b.Dy()))))

	for i, r := range rects {
		outline(canvas, pixelRect(r), &image.Uniform{C: cornerPalette[i%len(cornerPalette)]}, stroke)
	}
	return canvas
}

// pixelRect rounds r outward to whole pixels, at least one pixel wide.
func pixelRect(r types.Rect) image.Rectangle {
	x0, y0 := int(math.Floor(r.X)), int(math.Floor(r.Y))
	x1, y1 := int(math.Ceil(r.X+r.Width)), int(math.Ceil(r.Y+r.Height))
	return image.Rect(x0, y0, max(x1, x0+1), max(y1, y0+1))
}

// outline paints the four edges of r, stroke pixels thick, clipped to dst.
func outline(dst draw.Image, r image.Rectangle, src image.Image, stroke int) {
	stroke = min(stroke, r.Dx(), r.Dy())
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+stroke),
		image.Rect(r.Min.X, r.Max.Y-stroke, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+stroke, r.Max.Y),
		image.Rect(r.Max.X-stroke, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(dst.Bounds()), src, image.Point{}, draw.Src)
	}
}
