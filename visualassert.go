// Package visualassert provides visual and content verification for
// end-to-end tests: color comparison, pixel diffs against reference
// screenshots, and assertions over labels, logos, text and dominant colors
// reported by a recognition engine.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"log"
//		"os"
//
//		visualassert "github.com/menta2k/visual-assert"
//		"github.com/menta2k/visual-assert/pkg/gcv"
//	)
//
//	func main() {
//		ctx := context.Background()
//		engine, err := gcv.NewEngine(ctx, nil)
//		if err != nil {
//			log.Fatal(err)
//		}
//		defer engine.Close()
//
//		kit := visualassert.NewWithOptions(visualassert.Options{Engine: engine})
//
//		reference, err := kit.LoadReferenceScreenshot("home.png")
//		if err != nil {
//			log.Fatal(err)
//		}
//		current, err := os.ReadFile("home-current.png")
//		if err != nil {
//			log.Fatal(err)
//		}
//		if err := kit.AssertScreenshotMatches(reference, current, 0); err != nil {
//			log.Fatal(err)
//		}
//		if err := kit.AssertContainsLabels(ctx, current, []string{"Text"}, false); err != nil {
//			log.Fatal(err)
//		}
//	}
//
// The package consists of four layers:
//
// 1. Colors (pkg/colors): hex parsing and perceptual color distance
// 2. Pixel diff (pkg/pixeldiff): anti-aliasing aware pixel counts and diff artifacts
// 3. Recognition (pkg/recognition): filtered, ranked engine annotations and text
// 4. Verdict (pkg/verdict): assertions returning *verdict.Failure on mismatch
//
// Recognition engines live in pkg/gcv (Google Cloud Vision), pkg/ollama and
// pkg/llamacpp (vision language models via pkg/detection) and pkg/vision
// (offline histogram colors). Browser capture lives in pkg/capture.
package visualassert

import (
	"context"

	"go.uber.org/zap"

	"github.com/menta2k/visual-assert/pkg/capture"
	"github.com/menta2k/visual-assert/pkg/client"
	"github.com/menta2k/visual-assert/pkg/colors"
	"github.com/menta2k/visual-assert/pkg/ocr"
	"github.com/menta2k/visual-assert/pkg/pixeldiff"
	"github.com/menta2k/visual-assert/pkg/processing"
	"github.com/menta2k/visual-assert/pkg/recognition"
	"github.com/menta2k/visual-assert/pkg/reference"
	"github.com/menta2k/visual-assert/pkg/regions"
	"github.com/menta2k/visual-assert/pkg/types"
	"github.com/menta2k/visual-assert/pkg/verdict"
	"github.com/menta2k/visual-assert/pkg/vision"
)

// Version of the visual-assert library
const Version = "1.0.0"

// Options configures a Toolkit. Zero values fall back to defaults.
type Options struct {
	// Engine answers label, logo, text and image-properties requests.
	// Defaults to the offline vision.LocalEngine.
	Engine client.RecognitionEngine
	// OCR enables DetectTextLocal.
	OCR         ocr.Engine
	OCRLanguage string

	ReferenceDir         string
	// DiffThreshold is the pixel tolerance in [0,1]; nil means
	// pixeldiff.DefaultThreshold.
	DiffThreshold        *float64
	IgnoreSizeDifference bool
	ArtifactPath         string
	ArtifactFormat       string
	// PassBelow is the diff count AssertImagesSimilar must stay under.
	PassBelow  int
	CornerSize float64

	Logger *zap.Logger
}

// Toolkit provides a high-level interface over the verification packages
type Toolkit struct {
	store      *reference.Store
	diff       *pixeldiff.Engine
	recognizer *recognition.Normalizer
	options    Options
}

// New creates a Toolkit with the offline engine and default settings
func New() *Toolkit {
	return NewWithOptions(Options{})
}

// NewWithOptions creates a Toolkit from opts
func NewWithOptions(opts Options) *Toolkit {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.DiffThreshold == nil {
		opts.DiffThreshold = pixeldiff.Tolerance(pixeldiff.DefaultThreshold)
	}
	if opts.ArtifactPath == "" {
		opts.ArtifactPath = "diff.png"
	}
	if opts.PassBelow <= 0 {
		opts.PassBelow = pixeldiff.SizeMismatchPass
	}
	if opts.CornerSize <= 0 {
		opts.CornerSize = regions.DefaultCornerSize
	}

	store := reference.New()
	if opts.ReferenceDir != "" {
		cfg := store.Config()
		cfg.Dir = opts.ReferenceDir
		store = reference.NewWithConfig(cfg)
	}

	engine := opts.Engine
	var reader *ocr.Reader
	if opts.OCR != nil {
		reader = ocr.NewReader(opts.OCR, opts.OCRLanguage, opts.Logger.Named("ocr"))
	}
	if engine == nil {
		var text vision.TextRecognizer
		if reader != nil {
			text = reader
		}
		engine = vision.NewLocalEngine(vision.New(), text)
	}

	recOpts := []recognition.Option{recognition.WithLogger(opts.Logger.Named("recognition"))}
	if reader != nil {
		recOpts = append(recOpts, recognition.WithOCR(reader))
	}

	artifact := pixeldiff.NewFileArtifact(processing.NewProcessor(), opts.ArtifactPath, opts.ArtifactFormat)

	return &Toolkit{
		store: store,
		diff: pixeldiff.New(
			pixeldiff.WithArtifactWriter(artifact),
			pixeldiff.WithLogger(opts.Logger.Named("pixeldiff")),
		),
		recognizer: recognition.New(engine, recOpts...),
		options:    opts,
	}
}

// Recognizer returns the underlying normalizer
func (t *Toolkit) Recognizer() *recognition.Normalizer {
	return t.recognizer
}

// DiffEngine returns the underlying pixel diff engine
func (t *Toolkit) DiffEngine() *pixeldiff.Engine {
	return t.diff
}

// HexToColor parses #rgb or #rrggbb. ok is false for anything else.
func HexToColor(hex string) (c types.Color, ok bool) {
	return colors.ParseHex(hex)
}

// ColorToHex formats a color as zero-padded #rrggbb
func ColorToHex(r, g, b uint8) string {
	return colors.ToHex(r, g, b)
}

// ColorDistance returns the CIEDE2000 distance between two hex colors
func ColorDistance(colorA, colorB string) (float64, error) {
	return colors.Distance(colorA, colorB)
}

// AreVisuallySame reports whether two hex colors are within distance 2
func AreVisuallySame(colorA, colorB string) (bool, error) {
	return colors.VisuallySame(colorA, colorB)
}

// LoadReferenceScreenshot reads a named screenshot from the reference directory
func (t *Toolkit) LoadReferenceScreenshot(name string) ([]byte, error) {
	return t.store.Load(name)
}

// SaveReferenceScreenshot stores a screenshot under name
func (t *Toolkit) SaveReferenceScreenshot(name string, data []byte) error {
	return t.store.Save(name, data)
}

// ListReferenceScreenshots returns the names of stored reference screenshots
func (t *Toolkit) ListReferenceScreenshots() ([]string, error) {
	return t.store.List()
}

// ReferencePath returns the file path of a named reference screenshot
func (t *Toolkit) ReferencePath(name string) string {
	return t.store.Path(name)
}

// DiffPixelCounts counts differing pixels using the Toolkit's threshold and
// size policy
func (t *Toolkit) DiffPixelCounts(a, b []byte) (int, error) {
	return t.diff.DiffPixelCounts(a, b, t.diffOptions())
}

// CompareImages counts differing pixels of equal-sized images and writes
// the diff artifact when any differ
func (t *Toolkit) CompareImages(a, b []byte) (int, error) {
	return t.diff.CompareImages(a, b, *t.options.DiffThreshold)
}

// CaptureScreenshot waits for selector and returns its screenshot
func (t *Toolkit) CaptureScreenshot(ctx context.Context, p capture.Provider, selector string) ([]byte, error) {
	return capture.Element(ctx, p, selector)
}

// ExtractLabels returns detected labels, highest score first
func (t *Toolkit) ExtractLabels(ctx context.Context, image []byte) ([]types.Annotation, error) {
	return t.recognizer.ExtractLabels(ctx, image)
}

// ExtractLogos returns detected logos in engine order
func (t *Toolkit) ExtractLogos(ctx context.Context, image []byte) ([]types.Annotation, error) {
	return t.recognizer.ExtractLogos(ctx, image)
}

// ExtractText returns lower-cased document text and its lines
func (t *Toolkit) ExtractText(ctx context.Context, image []byte) (types.TextResult, error) {
	return t.recognizer.ExtractText(ctx, image)
}

// ExtractTextFromElement extracts the text of an element's screenshot
func (t *Toolkit) ExtractTextFromElement(ctx context.Context, p capture.Provider, selector string) (types.TextResult, error) {
	return t.recognizer.ExtractTextFromElement(ctx, p, selector)
}

// DetectDominantColor returns the image's dominant color as #rrggbb
func (t *Toolkit) DetectDominantColor(ctx context.Context, image []byte) (string, error) {
	return t.recognizer.DetectDominantColor(ctx, image)
}

// DetectElementDominantColor returns an element's dominant color as #rrggbb
func (t *Toolkit) DetectElementDominantColor(ctx context.Context, p capture.Provider, selector string) (string, error) {
	return t.recognizer.DetectElementDominantColor(ctx, p, selector)
}

// DetectTextLocal recognizes text with the configured local OCR engine
func (t *Toolkit) DetectTextLocal(ctx context.Context, image []byte) (string, error) {
	return t.recognizer.DetectTextLocal(ctx, image)
}

// AssertContainsLabels checks detected labels; see verdict.AssertContainsLabels
func (t *Toolkit) AssertContainsLabels(ctx context.Context, image []byte, expected []string, onlyHighest bool) error {
	return verdict.AssertContainsLabels(ctx, t.recognizer, image, expected, onlyHighest)
}

// AssertContainsLogos checks that every expected logo is detected
func (t *Toolkit) AssertContainsLogos(ctx context.Context, image []byte, expected []string) error {
	return verdict.AssertContainsLogos(ctx, t.recognizer, image, expected)
}

// AssertOcrText checks document text; see verdict.AssertOcrText
//
// Deprecated: use ExtractText.
func (t *Toolkit) AssertOcrText(ctx context.Context, image []byte, expected string, noTextExpected bool) error {
	return verdict.AssertOcrText(ctx, t.recognizer, image, expected, noTextExpected)
}

// AssertOcrTextInElement checks the text of an element's screenshot
func (t *Toolkit) AssertOcrTextInElement(ctx context.Context, p capture.Provider, selector, expected string, noTextExpected bool) error {
	return verdict.AssertOcrTextInElement(ctx, t.recognizer, p, selector, expected, noTextExpected)
}

// AssertCornerColors checks the four corners of an element against expected
func (t *Toolkit) AssertCornerColors(ctx context.Context, p capture.Provider, selector string, expected types.Color) error {
	return verdict.AssertCornerColors(ctx, t.recognizer, p, selector, t.options.CornerSize, expected)
}

// SampleCornerColors checks the four corners of box against expected
func (t *Toolkit) SampleCornerColors(ctx context.Context, p capture.Provider, box types.BoundingBox, expected types.Color) error {
	return verdict.SampleCornerColors(ctx, t.recognizer, p, box, t.options.CornerSize, expected)
}

// AssertColorsVisuallySame checks two hex colors are indistinguishable
func (t *Toolkit) AssertColorsVisuallySame(colorA, colorB string) error {
	return verdict.AssertColorsVisuallySame(colorA, colorB)
}

// AssertImagesSimilar passes when fewer than PassBelow pixels differ
func (t *Toolkit) AssertImagesSimilar(a, b []byte) error {
	return verdict.AssertImagesSimilar(t.diff, a, b, t.diffOptions(), t.options.PassBelow)
}

// AssertScreenshotMatches compares actual with reference, allowing up to
// maxDiffPixels differing pixels
func (t *Toolkit) AssertScreenshotMatches(reference, actual []byte, maxDiffPixels int) error {
	return verdict.AssertScreenshotMatches(t.diff, reference, actual, maxDiffPixels, *t.options.DiffThreshold)
}

func (t *Toolkit) diffOptions() pixeldiff.Options {
	return pixeldiff.Options{
		IgnoreSizeDifference: t.options.IgnoreSizeDifference,
		Threshold:            t.options.DiffThreshold,
	}
}
