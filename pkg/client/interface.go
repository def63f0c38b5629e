package client

import (
	"context"

	"github.com/menta2k/visual-assert/pkg/types"
)

// RecognitionEngine is an external vision service. Each call takes an
// encoded image buffer and returns the engine's raw annotations.
type RecognitionEngine interface {
	DetectLabels(ctx context.Context, image []byte) ([]types.RawAnnotation, error)
	DetectLogos(ctx context.Context, image []byte) ([]types.RawAnnotation, error)
	// DetectDocumentText returns the full detected text, or "" when none.
	DetectDocumentText(ctx context.Context, image []byte) (string, error)
	// DetectImageProperties returns dominant colors, most prominent first.
	DetectImageProperties(ctx context.Context, image []byte) ([]types.ColorInfo, error)
}

// VisionClient is a chat-style vision model backend that answers a prompt
// about a base64-encoded image.
type VisionClient interface {
	SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error)
}
