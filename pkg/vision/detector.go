package vision

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sort"

	"github.com/menta2k/visual-assert/pkg/processing"
	"github.com/menta2k/visual-assert/pkg/types"
)

// ErrUnsupported is returned for recognition kinds the local engine cannot do.
var ErrUnsupported = errors.New("not supported by the local engine")

// ColorAnalyzer estimates dominant colors from a pixel histogram
type ColorAnalyzer struct {
	config DetectionConfig
}

// DetectionConfig holds configuration for dominant-color estimation
type DetectionConfig struct {
	// QuantizeBits is how many high bits of each channel form a bucket key.
	QuantizeBits uint
	// MaxColors limits the number of swatches returned.
	MaxColors int
	// MinPixelFraction drops buckets covering less of the image than this.
	MinPixelFraction float64
}

// New creates a new ColorAnalyzer with default configuration
func New() *ColorAnalyzer {
	return &ColorAnalyzer{
		config: DetectionConfig{
			QuantizeBits:     4,
			MaxColors:        10,
			MinPixelFraction: 0.001,
		},
	}
}

// NewWithConfig creates a new ColorAnalyzer with custom configuration
func NewWithConfig(config DetectionConfig) *ColorAnalyzer {
	if config.QuantizeBits == 0 || config.QuantizeBits > 8 {
		config.QuantizeBits = 4
	}
	if config.MaxColors <= 0 {
		config.MaxColors = 10
	}
	return &ColorAnalyzer{config: config}
}

type bucket struct {
	key              uint32
	count            int
	sumR, sumG, sumB int
}

// DominantColors returns the most frequent color buckets in img, most
// frequent first. Each swatch is the mean color of its bucket; fully
// transparent pixels are ignored.
func (d *ColorAnalyzer) DominantColors(img image.Image) []types.ColorInfo {
	bounds := img.Bounds()
	shift := 8 - d.config.QuantizeBits
	buckets := make(map[uint32]*bucket)
	total := 0

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := img.At(x, y).RGBA()
			if a == 0 {
				continue
			}
			r8, g8, b8 := int(r>>8), int(g>>8), int(b>>8)

			key := uint32(r8>>shift)<<16 | uint32(g8>>shift)<<8 | uint32(b8>>shift)
			bk, ok := buckets[key]
			if !ok {
				bk = &bucket{key: key}
				buckets[key] = bk
			}
			bk.count++
			bk.sumR += r8
			bk.sumG += g8
			bk.sumB += b8
			total++
		}
	}
	if total == 0 {
		return nil
	}

	sorted := make([]*bucket, 0, len(buckets))
	for _, bk := range buckets {
		sorted = append(sorted, bk)
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].count != sorted[j].count {
			return sorted[i].count > sorted[j].count
		}
		return sorted[i].key < sorted[j].key
	})

	var colors []types.ColorInfo
	for _, bk := range sorted {
		fraction := float64(bk.count) / float64(total)
		if fraction < d.config.MinPixelFraction {
			break
		}
		n := float64(bk.count)
		colors = append(colors, types.ColorInfo{
			Red:           float64(bk.sumR) / n,
			Green:         float64(bk.sumG) / n,
			Blue:          float64(bk.sumB) / n,
			Score:         fraction,
			PixelFraction: fraction,
		})
		if len(colors) >= d.config.MaxColors {
			break
		}
	}
	return colors
}

// TextRecognizer transcribes an encoded image.
type TextRecognizer interface {
	RecognizeText(ctx context.Context, image []byte) (string, error)
}

// LocalEngine is an offline client.RecognitionEngine: image properties come
// from the histogram analyzer and text from an optional local OCR.
type LocalEngine struct {
	analyzer  *ColorAnalyzer
	processor *processing.Processor
	text      TextRecognizer
}

// NewLocalEngine creates a LocalEngine. text may be nil.
func NewLocalEngine(analyzer *ColorAnalyzer, text TextRecognizer) *LocalEngine {
	if analyzer == nil {
		analyzer = New()
	}
	return &LocalEngine{analyzer: analyzer, processor: processing.NewProcessor(), text: text}
}

// DetectLabels is not available offline.
func (e *LocalEngine) DetectLabels(context.Context, []byte) ([]types.RawAnnotation, error) {
	return nil, fmt.Errorf("label detection: %w", ErrUnsupported)
}

// DetectLogos is not available offline.
func (e *LocalEngine) DetectLogos(context.Context, []byte) ([]types.RawAnnotation, error) {
	return nil, fmt.Errorf("logo detection: %w", ErrUnsupported)
}

// DetectDocumentText delegates to the local OCR, if configured.
func (e *LocalEngine) DetectDocumentText(ctx context.Context, image []byte) (string, error) {
	if e.text == nil {
		return "", fmt.Errorf("text detection: %w", ErrUnsupported)
	}
	return e.text.RecognizeText(ctx, image)
}

// DetectImageProperties decodes the image and returns its dominant colors.
func (e *LocalEngine) DetectImageProperties(ctx context.Context, image []byte) ([]types.ColorInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := e.processor.Decode(image)
	if err != nil {
		return nil, err
	}
	return e.analyzer.DominantColors(img), nil
}
