// Package recognition turns raw engine annotations into ranked, filtered
// results and lower-cased text.
package recognition

import (
	"context"
	"errors"
	"sort"
	"strings"

	"go.uber.org/zap"

	apperrors "github.com/menta2k/visual-assert/internal/errors"
	"github.com/menta2k/visual-assert/pkg/capture"
	"github.com/menta2k/visual-assert/pkg/client"
	"github.com/menta2k/visual-assert/pkg/colors"
	"github.com/menta2k/visual-assert/pkg/ocr"
	"github.com/menta2k/visual-assert/pkg/types"
)

var (
	// ErrNoDominantColor is returned when image-properties detection reports no swatch.
	ErrNoDominantColor = errors.New("no dominant color detected")
	// ErrNoText marks a text check that found nothing in the image.
	ErrNoText = errors.New("no text detected")
	// ErrNoLocalOCR is returned by DetectTextLocal when no OCR reader is configured.
	ErrNoLocalOCR = errors.New("local OCR is not configured")
)

// Engine call names used in errors and logs.
const (
	CallLabels     = "label detection"
	CallLogos      = "logo detection"
	CallText       = "document text detection"
	CallProperties = "image properties detection"
	CallLocalOCR   = "local text recognition"
)

// Normalizer wraps an injected recognition engine.
type Normalizer struct {
	engine client.RecognitionEngine
	ocr    *ocr.Reader
	logger *zap.Logger
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(n *Normalizer) {
		if l != nil {
			n.logger = l
		}
	}
}

// WithOCR sets the local OCR reader used by DetectTextLocal.
func WithOCR(r *ocr.Reader) Option {
	return func(n *Normalizer) { n.ocr = r }
}

// New creates a Normalizer over engine.
func New(engine client.RecognitionEngine, opts ...Option) *Normalizer {
	n := &Normalizer{engine: engine, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// ExtractLabels returns valid label annotations, highest score first.
func (n *Normalizer) ExtractLabels(ctx context.Context, image []byte) ([]types.Annotation, error) {
	raw, err := n.engine.DetectLabels(ctx, image)
	if err != nil {
		return nil, apperrors.FromEngine(err, CallLabels)
	}
	labels := Valid(raw)
	sort.SliceStable(labels, func(i, j int) bool {
		return labels[i].Score > labels[j].Score
	})
	n.logger.Debug("labels extracted", zap.Int("raw", len(raw)), zap.Int("valid", len(labels)))
	return labels, nil
}

// ExtractLogos returns valid logo annotations in engine order.
func (n *Normalizer) ExtractLogos(ctx context.Context, image []byte) ([]types.Annotation, error) {
	raw, err := n.engine.DetectLogos(ctx, image)
	if err != nil {
		return nil, apperrors.FromEngine(err, CallLogos)
	}
	logos := Valid(raw)
	n.logger.Debug("logos extracted", zap.Int("raw", len(raw)), zap.Int("valid", len(logos)))
	return logos, nil
}

// ExtractText returns the lower-cased document text and its lines. No text
// yields an empty result, not an error.
func (n *Normalizer) ExtractText(ctx context.Context, image []byte) (types.TextResult, error) {
	text, err := n.engine.DetectDocumentText(ctx, image)
	if err != nil {
		return types.TextResult{}, apperrors.FromEngine(err, CallText)
	}
	return NormalizeText(text), nil
}

// DominantColor returns the engine's top-ranked dominant color.
func (n *Normalizer) DominantColor(ctx context.Context, image []byte) (types.Color, error) {
	swatches, err := n.engine.DetectImageProperties(ctx, image)
	if err != nil {
		return types.Color{}, apperrors.FromEngine(err, CallProperties)
	}
	if len(swatches) == 0 {
		return types.Color{}, apperrors.Wrap(ErrNoDominantColor, apperrors.KindEngine, CallProperties+" returned no colors").
			WithMetadata("call", CallProperties)
	}
	top := swatches[0]
	c := colors.FromFloat(top.Red, top.Green, top.Blue)
	n.logger.Debug("dominant color", zap.String("hex", colors.Hex(c)), zap.Int("swatches", len(swatches)))
	return c, nil
}

// DetectDominantColor returns the top-ranked dominant color as #rrggbb.
func (n *Normalizer) DetectDominantColor(ctx context.Context, image []byte) (string, error) {
	c, err := n.DominantColor(ctx, image)
	if err != nil {
		return "", err
	}
	return colors.Hex(c), nil
}

// ExtractTextFromElement screenshots selector and extracts its text.
func (n *Normalizer) ExtractTextFromElement(ctx context.Context, p capture.Provider, selector string) (types.TextResult, error) {
	buf, err := capture.Element(ctx, p, selector)
	if err != nil {
		return types.TextResult{}, err
	}
	return n.ExtractText(ctx, buf)
}

// DetectElementDominantColor screenshots selector and returns its dominant color.
func (n *Normalizer) DetectElementDominantColor(ctx context.Context, p capture.Provider, selector string) (string, error) {
	buf, err := capture.Element(ctx, p, selector)
	if err != nil {
		return "", err
	}
	return n.DetectDominantColor(ctx, buf)
}

// RegionColor captures clip from the page and returns its dominant color.
func (n *Normalizer) RegionColor(ctx context.Context, p capture.Provider, clip types.Rect) (types.Color, error) {
	buf, err := p.ClipScreenshot(ctx, clip)
	if err != nil {
		return types.Color{}, err
	}
	return n.DominantColor(ctx, buf)
}

// DetectTextLocal recognizes text with the local OCR engine.
func (n *Normalizer) DetectTextLocal(ctx context.Context, image []byte) (string, error) {
	if n.ocr == nil {
		return "", apperrors.Wrap(ErrNoLocalOCR, apperrors.KindInvalidInput, CallLocalOCR+" unavailable")
	}
	return n.ocr.RecognizeText(ctx, image)
}

// Valid keeps annotations that carry both a description and a score.
func Valid(raw []types.RawAnnotation) []types.Annotation {
	out := make([]types.Annotation, 0, len(raw))
	for _, a := range raw {
		if a.Description == nil || *a.Description == "" || a.Score == nil {
			continue
		}
		out = append(out, types.Annotation{Description: *a.Description, Score: *a.Score})
	}
	return out
}

// NormalizeText lower-cases text and splits it on newlines.
func NormalizeText(text string) types.TextResult {
	if text == "" {
		return types.TextResult{Text: "", Lines: []string{}}
	}
	lower := strings.ToLower(text)
	return types.TextResult{Text: lower, Lines: strings.Split(lower, "\n")}
}

// Descriptions returns the descriptions of annotations in order.
func Descriptions(annotations []types.Annotation) []string {
	out := make([]string, len(annotations))
	for i, a := range annotations {
		out[i] = a.Description
	}
	return out
}
