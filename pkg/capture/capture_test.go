package capture

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/visual-assert/pkg/types"
)

func newTestPage() *Page {
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(10, 20, 50, 40), &image.Uniform{C: color.RGBA{255, 0, 0, 255}}, image.Point{}, draw.Src)
	return NewPage(img, map[string]types.BoundingBox{
		"#box": {X: 10, Y: 20, Width: 40, Height: 20},
	})
}

func TestElementScreenshot(t *testing.T) {
	page := newTestPage()

	buf, err := Element(context.Background(), page, "#box")
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(buf))
	require.NoError(t, err)
	assert.Equal(t, 40, img.Bounds().Dx())
	assert.Equal(t, 20, img.Bounds().Dy())
	r, g, b, _ := img.At(0, 0).RGBA()
	assert.Equal(t, []uint32{255, 0, 0}, []uint32{r >> 8, g >> 8, b >> 8})
}

func TestElementMissing(t *testing.T) {
	page := newTestPage()
	_, err := Element(context.Background(), page, "#nope")
	assert.ErrorContains(t, err, "#nope")

	box, err := page.BoundingBox(context.Background(), "#nope")
	require.NoError(t, err)
	assert.Nil(t, box)
}

func TestClipScreenshot(t *testing.T) {
	page := newTestPage()
	buf, err := page.ClipScreenshot(context.Background(), types.Rect{X: 90, Y: 90, Width: 10, Height: 10})
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(buf))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 10, 10), img.Bounds())
}

func TestCancelledContext(t *testing.T) {
	page := newTestPage()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, page.WaitReady(ctx, "#box"))
	_, err := page.ClipScreenshot(ctx, types.Rect{Width: 1, Height: 1})
	assert.Error(t, err)
}
