// Package backend builds the recognition engine selected in configuration.
package backend

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/menta2k/visual-assert/internal/config"
	"github.com/menta2k/visual-assert/pkg/client"
	"github.com/menta2k/visual-assert/pkg/detection"
	"github.com/menta2k/visual-assert/pkg/gcv"
	"github.com/menta2k/visual-assert/pkg/llamacpp"
	"github.com/menta2k/visual-assert/pkg/ocr"
	"github.com/menta2k/visual-assert/pkg/ollama"
	"github.com/menta2k/visual-assert/pkg/vision"
)

// Engine is a recognition engine plus its cleanup.
type Engine struct {
	client.RecognitionEngine
	close func() error
}

// Close releases the engine's connections.
func (e *Engine) Close() error {
	if e.close == nil {
		return nil
	}
	return e.close()
}

// New builds the engine for cfg.Backend. text is the local OCR used by the
// local backend and may be nil.
func New(ctx context.Context, cfg config.RecognitionConfig, text *ocr.Reader, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := time.Duration(cfg.Timeout) * time.Second
	detCfg := detection.Config{
		Model:       cfg.Model,
		SendFormat:  cfg.SendFormat,
		MaxDim:      cfg.MaxDimension,
		SendQuality: cfg.SendQuality,
	}

	switch cfg.Backend {
	case config.BackendGCV:
		e, err := gcv.NewEngine(ctx, logger)
		if err != nil {
			return nil, fmt.Errorf("create vision client: %w", err)
		}
		return &Engine{RecognitionEngine: e, close: e.Close}, nil

	case config.BackendOllama:
		c, err := ollama.NewClient(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("create ollama client: %w", err)
		}
		if timeout > 0 {
			c.SetTimeout(timeout)
		}
		return &Engine{RecognitionEngine: detection.NewDetector(c, detCfg, logger)}, nil

	case config.BackendLlamaCpp:
		c, err := llamacpp.NewClient(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("create llama.cpp client: %w", err)
		}
		if timeout > 0 {
			c.SetTimeout(timeout)
		}
		return &Engine{RecognitionEngine: detection.NewDetector(c, detCfg, logger)}, nil

	case config.BackendLocal:
		var recognizer vision.TextRecognizer
		if text != nil {
			recognizer = text
		}
		return &Engine{RecognitionEngine: vision.NewLocalEngine(vision.New(), recognizer)}, nil

	default:
		return nil, fmt.Errorf("unknown recognition backend %q", cfg.Backend)
	}
}
