package vision

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
)

// createTestImage fills the left 3/4 with one color and the rest with another
func createTestImage(width, height int, main, other color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x < 3*width/4 {
				img.Set(x, y, main)
			} else {
				img.Set(x, y, other)
			}
		}
	}
	return img
}

func TestNew(t *testing.T) {
	analyzer := New()
	if analyzer == nil {
		t.Fatal("New() returned nil")
	}
	if analyzer.config.QuantizeBits != 4 {
		t.Errorf("Expected 4 quantize bits, got %d", analyzer.config.QuantizeBits)
	}
}

func TestNewWithConfigDefaults(t *testing.T) {
	analyzer := NewWithConfig(DetectionConfig{QuantizeBits: 12})
	if analyzer.config.QuantizeBits != 4 {
		t.Errorf("Expected invalid bits to fall back to 4, got %d", analyzer.config.QuantizeBits)
	}
	if analyzer.config.MaxColors != 10 {
		t.Errorf("Expected MaxColors 10, got %d", analyzer.config.MaxColors)
	}
}

func TestDominantColors(t *testing.T) {
	analyzer := New()
	img := createTestImage(40, 10, color.RGBA{255, 0, 0, 255}, color.RGBA{0, 0, 255, 255})

	colors := analyzer.DominantColors(img)
	if len(colors) != 2 {
		t.Fatalf("Expected 2 colors, got %d", len(colors))
	}
	first := colors[0]
	if first.Red != 255 || first.Green != 0 || first.Blue != 0 {
		t.Errorf("Expected pure red first, got %+v", first)
	}
	if first.PixelFraction != 0.75 {
		t.Errorf("Expected pixel fraction 0.75, got %f", first.PixelFraction)
	}
	if colors[1].Blue != 255 {
		t.Errorf("Expected blue second, got %+v", colors[1])
	}
}

func TestDominantColorsAveragesBucket(t *testing.T) {
	analyzer := New()
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.RGBA{250, 0, 0, 255})
	img.Set(1, 0, color.RGBA{254, 0, 0, 255})

	colors := analyzer.DominantColors(img)
	if len(colors) != 1 || colors[0].Red != 252 {
		t.Errorf("Expected a single swatch with red 252, got %+v", colors)
	}
}

func TestDominantColorsTransparent(t *testing.T) {
	analyzer := New()
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	if colors := analyzer.DominantColors(img); colors != nil {
		t.Errorf("Expected no colors for a transparent image, got %+v", colors)
	}
}

func TestLocalEngine(t *testing.T) {
	engine := NewLocalEngine(nil, nil)
	var buf bytes.Buffer
	if err := png.Encode(&buf, createTestImage(8, 8, color.White, color.White)); err != nil {
		t.Fatal(err)
	}

	colors, err := engine.DetectImageProperties(context.Background(), buf.Bytes())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(colors) != 1 || colors[0].Red != 255 {
		t.Errorf("Expected white, got %+v", colors)
	}

	if _, err := engine.DetectLabels(context.Background(), buf.Bytes()); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Expected ErrUnsupported for labels, got %v", err)
	}
	if _, err := engine.DetectLogos(context.Background(), buf.Bytes()); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Expected ErrUnsupported for logos, got %v", err)
	}
	if _, err := engine.DetectDocumentText(context.Background(), buf.Bytes()); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Expected ErrUnsupported for text, got %v", err)
	}
}

type staticText string

func (s staticText) RecognizeText(context.Context, []byte) (string, error) { return string(s), nil }

func TestLocalEngineText(t *testing.T) {
	engine := NewLocalEngine(nil, staticText("Hello"))
	text, err := engine.DetectDocumentText(context.Background(), nil)
	if err != nil || text != "Hello" {
		t.Errorf("Expected Hello, got %q (%v)", text, err)
	}
}

func BenchmarkDominantColors(b *testing.B) {
	analyzer := New()
	img := createTestImage(640, 480, color.RGBA{10, 20, 30, 255}, color.RGBA{200, 100, 0, 255})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		analyzer.DominantColors(img)
	}
}
