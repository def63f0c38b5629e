// Package tesseract adapts gosseract to the ocr.Engine interface.
package tesseract

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"

	"github.com/menta2k/visual-assert/pkg/ocr"
)

// Engine creates one gosseract client per session.
type Engine struct{}

// New creates a Tesseract engine.
func New() *Engine {
	return &Engine{}
}

// CreateSession acquires a Tesseract client configured for language.
func (e *Engine) CreateSession(_ context.Context, language string) (ocr.Session, error) {
	c := gosseract.NewClient()
	if err := c.SetLanguage(language); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("set language %s: %w", language, err)
	}
	return &session{client: c}, nil
}

type session struct {
	client *gosseract.Client
}

func (s *session) Recognize(ctx context.Context, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := s.client.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("load image: %w", err)
	}
	return s.client.Text()
}

func (s *session) Release() error {
	return s.client.Close()
}
