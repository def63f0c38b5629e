// Package gcv implements client.RecognitionEngine on Google Cloud Vision.
package gcv

import (
	"context"
	"fmt"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/menta2k/visual-assert/pkg/types"
)

// Annotator is the subset of the Vision client the engine calls.
type Annotator interface {
	BatchAnnotateImages(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest) (*visionpb.BatchAnnotateImagesResponse, error)
}

// Engine sends single-feature annotate requests to Cloud Vision.
type Engine struct {
	annotator Annotator
	closer    func() error
	logger    *zap.Logger
}

// NewEngine dials Cloud Vision with application default credentials unless
// opts say otherwise. Close releases the connection.
func NewEngine(ctx context.Context, logger *zap.Logger, opts ...option.ClientOption) (*Engine, error) {
	c, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create vision client: %w", err)
	}
	e := NewWithAnnotator(clientAnnotator{c: c}, logger)
	e.closer = c.Close
	return e, nil
}

type clientAnnotator struct {
	c *vision.ImageAnnotatorClient
}

func (a clientAnnotator) BatchAnnotateImages(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest) (*visionpb.BatchAnnotateImagesResponse, error) {
	return a.c.BatchAnnotateImages(ctx, req)
}

// NewWithAnnotator wraps an existing annotator.
func NewWithAnnotator(a Annotator, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{annotator: a, logger: logger}
}

// Close releases the underlying client, if the engine owns one.
func (e *Engine) Close() error {
	if e.closer == nil {
		return nil
	}
	return e.closer()
}

func (e *Engine) annotate(ctx context.Context, image []byte, feature visionpb.Feature_Type) (*visionpb.AnnotateImageResponse, error) {
	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image:    &visionpb.Image{Content: image},
			Features: []*visionpb.Feature{{Type: feature}},
		}},
	}

	resp, err := e.annotator.BatchAnnotateImages(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.GetResponses()) == 0 {
		return nil, fmt.Errorf("%s: empty response", feature)
	}
	r := resp.GetResponses()[0]
	if st := r.GetError(); st != nil && st.GetCode() != 0 {
		return nil, fmt.Errorf("%s: %s (code %d)", feature, st.GetMessage(), st.GetCode())
	}

	e.logger.Debug("vision annotate", zap.String("feature", feature.String()))
	return r, nil
}

// DetectLabels runs LABEL_DETECTION.
func (e *Engine) DetectLabels(ctx context.Context, image []byte) ([]types.RawAnnotation, error) {
	r, err := e.annotate(ctx, image, visionpb.Feature_LABEL_DETECTION)
	if err != nil {
		return nil, err
	}
	return toRaw(r.GetLabelAnnotations()), nil
}

// DetectLogos runs LOGO_DETECTION.
func (e *Engine) DetectLogos(ctx context.Context, image []byte) ([]types.RawAnnotation, error) {
	r, err := e.annotate(ctx, image, visionpb.Feature_LOGO_DETECTION)
	if err != nil {
		return nil, err
	}
	return toRaw(r.GetLogoAnnotations()), nil
}

// DetectDocumentText runs DOCUMENT_TEXT_DETECTION.
func (e *Engine) DetectDocumentText(ctx context.Context, image []byte) (string, error) {
	r, err := e.annotate(ctx, image, visionpb.Feature_DOCUMENT_TEXT_DETECTION)
	if err != nil {
		return "", err
	}
	return r.GetFullTextAnnotation().GetText(), nil
}

// DetectImageProperties runs IMAGE_PROPERTIES.
func (e *Engine) DetectImageProperties(ctx context.Context, image []byte) ([]types.ColorInfo, error) {
	r, err := e.annotate(ctx, image, visionpb.Feature_IMAGE_PROPERTIES)
	if err != nil {
		return nil, err
	}
	infos := r.GetImagePropertiesAnnotation().GetDominantColors().GetColors()
	out := make([]types.ColorInfo, 0, len(infos))
	for _, ci := range infos {
		if ci.GetColor() == nil {
			continue
		}
		out = append(out, types.ColorInfo{
			Red:           float64(ci.GetColor().GetRed()),
			Green:         float64(ci.GetColor().GetGreen()),
			Blue:          float64(ci.GetColor().GetBlue()),
			Score:         float64(ci.GetScore()),
			PixelFraction: float64(ci.GetPixelFraction()),
		})
	}
	return out, nil
}

// toRaw maps entity annotations. Proto3 has no null scalars, so an empty
// description or a zero score is reported as absent.
func toRaw(in []*visionpb.EntityAnnotation) []types.RawAnnotation {
	out := make([]types.RawAnnotation, 0, len(in))
	for _, a := range in {
		var raw types.RawAnnotation
		if d := a.GetDescription(); d != "" {
			raw.Description = types.StringPtr(d)
		}
		if s := a.GetScore(); s != 0 {
			raw.Score = types.Float64Ptr(float64(s))
		}
		out = append(out, raw)
	}
	return out
}
