// Package ocr runs a local OCR engine with a scoped session lifecycle:
// acquire, configure language, recognize, release.
package ocr

import (
	"context"
	"strings"

	"go.uber.org/zap"

	apperrors "github.com/menta2k/visual-assert/internal/errors"
)

// DefaultLanguage is the recognition language used when none is set.
const DefaultLanguage = "eng"

// Session is one acquired OCR worker.
type Session interface {
	Recognize(ctx context.Context, image []byte) (string, error)
	Release() error
}

// Engine creates OCR sessions configured for a language.
type Engine interface {
	CreateSession(ctx context.Context, language string) (Session, error)
}

// Reader recognizes text with a fresh session per call.
type Reader struct {
	engine   Engine
	language string
	logger   *zap.Logger
}

// NewReader creates a Reader. An empty language means DefaultLanguage.
func NewReader(engine Engine, language string, logger *zap.Logger) *Reader {
	if language == "" {
		language = DefaultLanguage
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{engine: engine, language: language, logger: logger}
}

// RecognizeText returns the trimmed text in image. The session is released
// on every path; a release error is returned only if recognition succeeded.
func (r *Reader) RecognizeText(ctx context.Context, image []byte) (text string, err error) {
	session, err := r.engine.CreateSession(ctx, r.language)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.KindResource, "create OCR session").
			WithMetadata("language", r.language)
	}
	r.logger.Debug("ocr session acquired", zap.String("language", r.language))

	defer func() {
		if rerr := session.Release(); rerr != nil {
			r.logger.Warn("ocr session release failed", zap.Error(rerr))
			if err == nil {
				err = apperrors.Wrap(rerr, apperrors.KindResource, "release OCR session")
			}
			return
		}
		r.logger.Debug("ocr session released")
	}()

	if err := ctx.Err(); err != nil {
		return "", apperrors.FromEngine(err, "recognize")
	}
	raw, err := session.Recognize(ctx, image)
	if err != nil {
		return "", apperrors.FromEngine(err, "recognize")
	}
	return strings.TrimSpace(raw), nil
}
