// Package pixeldiff counts differing pixels between two raster screenshots
// using an anti-aliasing aware matcher.
package pixeldiff

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/corona10/goimagehash"
	"github.com/orisano/pixelmatch"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/visual-assert/pkg/processing"
)

// DefaultThreshold is the matcher's per-pixel color tolerance.
const DefaultThreshold = 0.1

// SizeMismatchPass is returned by DiffPixelCounts when dimensions differ
// and IgnoreSizeDifference is set. It is a signal, not a pixel count; use
// Diff to tell it apart from a real count of 2.
const SizeMismatchPass = 2

// ErrInvalidThreshold is returned for a tolerance outside [0,1].
var ErrInvalidThreshold = errors.New("threshold must be within [0,1]")

// ErrDimensionMismatch is returned when two images have different sizes and
// the caller did not ask to ignore it.
var ErrDimensionMismatch = errors.New("image dimensions differ")

// Options controls DiffPixelCounts.
type Options struct {
	IgnoreSizeDifference bool
	// Threshold is the per-pixel tolerance in [0,1]. Nil means
	// DefaultThreshold; zero is an exact match.
	Threshold *float64
}

// Tolerance returns v as an Options.Threshold value.
func Tolerance(v float64) *float64 {
	return &v
}

func (o Options) threshold() float64 {
	if o.Threshold == nil {
		return DefaultThreshold
	}
	return *o.Threshold
}

func checkThreshold(t float64) error {
	// NaN fails both comparisons
	if !(t >= 0 && t <= 1) {
		return fmt.Errorf("%w: got %v", ErrInvalidThreshold, t)
	}
	return nil
}

// ArtifactWriter receives the visual diff raster produced by CompareImages.
type ArtifactWriter interface {
	WriteDiff(img image.Image) error
}

// Engine decodes screenshots and compares them.
type Engine struct {
	processor *processing.Processor
	artifact  ArtifactWriter
	logger    *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithArtifactWriter sets where CompareImages writes diff images.
func WithArtifactWriter(w ArtifactWriter) Option {
	return func(e *Engine) { e.artifact = w }
}

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an Engine. By default diff artifacts go to ./diff.png.
func New(opts ...Option) *Engine {
	p := processing.NewProcessor()
	e := &Engine{
		processor: p,
		artifact:  NewFileArtifact(p, "diff.png", "png"),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result is the outcome of Diff.
type Result struct {
	DiffPixels  int  `json:"diff_pixels"`
	Width       int  `json:"width"`
	Height      int  `json:"height"`
	SizeSkipped bool `json:"size_skipped"`
}

// DiffPixelCounts returns how many pixels differ between a and b.
//
// When sizes differ and opts.IgnoreSizeDifference is set, it returns
// SizeMismatchPass after reading only the image headers. Without the flag a
// size mismatch is an ErrDimensionMismatch.
func (e *Engine) DiffPixelCounts(a, b []byte, opts Options) (int, error) {
	res, err := e.Diff(a, b, opts)
	if err != nil {
		return 0, err
	}
	if res.SizeSkipped {
		return SizeMismatchPass, nil
	}
	return res.DiffPixels, nil
}

// Diff is DiffPixelCounts with the size-skip reported explicitly.
func (e *Engine) Diff(a, b []byte, opts Options) (Result, error) {
	threshold := opts.threshold()
	if err := checkThreshold(threshold); err != nil {
		return Result{}, err
	}

	cfgA, cfgB, err := decodeConfigs(a, b)
	if err != nil {
		return Result{}, err
	}
	if cfgA.Width != cfgB.Width || cfgA.Height != cfgB.Height {
		if opts.IgnoreSizeDifference {
			e.logger.Debug("size difference ignored",
				zap.Int("width_a", cfgA.Width), zap.Int("height_a", cfgA.Height),
				zap.Int("width_b", cfgB.Width), zap.Int("height_b", cfgB.Height))
			return Result{Width: cfgA.Width, Height: cfgA.Height, SizeSkipped: true}, nil
		}
		return Result{}, mismatch(cfgA, cfgB)
	}

	imgA, imgB, err := e.decodePair(a, b)
	if err != nil {
		return Result{}, err
	}

	n, err := pixelmatch.MatchPixel(imgA, imgB, pixelmatch.Threshold(threshold))
	if err != nil {
		return Result{}, fmt.Errorf("pixel match failed: %w", err)
	}

	e.logger.Debug("pixel diff", zap.Int("diff_pixels", n), zap.Float64("threshold", threshold))
	return Result{DiffPixels: n, Width: cfgA.Width, Height: cfgA.Height}, nil
}

// CompareImages returns the number of differing pixels between two
// equal-sized images at the given tolerance in [0,1]. When any pixel differs the diff raster is handed to the
// artifact writer; a write failure is logged and otherwise ignored.
func (e *Engine) CompareImages(a, b []byte, threshold float64) (int, error) {
	if err := checkThreshold(threshold); err != nil {
		return 0, err
	}
	cfgA, cfgB, err := decodeConfigs(a, b)
	if err != nil {
		return 0, err
	}
	if cfgA.Width != cfgB.Width || cfgA.Height != cfgB.Height {
		return 0, mismatch(cfgA, cfgB)
	}

	imgA, imgB, err := e.decodePair(a, b)
	if err != nil {
		return 0, err
	}

	var out image.Image
	n, err := pixelmatch.MatchPixel(imgA, imgB, pixelmatch.Threshold(threshold), pixelmatch.WriteTo(&out))
	if err != nil {
		return 0, fmt.Errorf("pixel match failed: %w", err)
	}

	if n > 0 && out != nil && e.artifact != nil {
		if err := e.artifact.WriteDiff(out); err != nil {
			e.logger.Warn("failed to write diff artifact", zap.Error(err))
		}
	}

	e.logger.Debug("image compare", zap.Int("diff_pixels", n), zap.Float64("threshold", threshold))
	return n, nil
}

// HashDistance returns the Hamming distance between the perceptual hashes
// of a and b. It tolerates size differences and is cheap, so it is useful as
// a coarse pre-check before a pixel diff.
func (e *Engine) HashDistance(a, b []byte) (int, error) {
	imgA, imgB, err := e.decodePair(a, b)
	if err != nil {
		return 0, err
	}
	hashA, err := goimagehash.PerceptionHash(imgA)
	if err != nil {
		return 0, fmt.Errorf("hash image A: %w", err)
	}
	hashB, err := goimagehash.PerceptionHash(imgB)
	if err != nil {
		return 0, fmt.Errorf("hash image B: %w", err)
	}
	return hashA.Distance(hashB)
}

func (e *Engine) decodePair(a, b []byte) (image.Image, image.Image, error) {
	imgA, err := e.processor.Decode(a)
	if err != nil {
		return nil, nil, fmt.Errorf("decode image A: %w", err)
	}
	imgB, err := e.processor.Decode(b)
	if err != nil {
		return nil, nil, fmt.Errorf("decode image B: %w", err)
	}
	return imgA, imgB, nil
}

func decodeConfigs(a, b []byte) (image.Config, image.Config, error) {
	cfgA, _, err := image.DecodeConfig(bytes.NewReader(a))
	if err != nil {
		return image.Config{}, image.Config{}, fmt.Errorf("decode image A: %w", err)
	}
	cfgB, _, err := image.DecodeConfig(bytes.NewReader(b))
	if err != nil {
		return image.Config{}, image.Config{}, fmt.Errorf("decode image B: %w", err)
	}
	return cfgA, cfgB, nil
}

func mismatch(a, b image.Config) error {
	return fmt.Errorf("%w: %dx%d vs %dx%d", ErrDimensionMismatch, a.Width, a.Height, b.Width, b.Height)
}
