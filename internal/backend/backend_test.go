package backend

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/visual-assert/internal/config"
	"github.com/menta2k/visual-assert/pkg/detection"
	"github.com/menta2k/visual-assert/pkg/vision"
)

func TestNewLLMBackends(t *testing.T) {
	for _, backend := range []string{config.BackendOllama, config.BackendLlamaCpp} {
		cfg := config.Default().Recognition
		cfg.Backend = backend

		e, err := New(context.Background(), cfg, nil, nil)
		require.NoError(t, err, backend)
		assert.IsType(t, &detection.Detector{}, e.RecognitionEngine)
		assert.NoError(t, e.Close())
	}
}

func TestNewLocalWithoutOCR(t *testing.T) {
	cfg := config.Default().Recognition
	cfg.Backend = config.BackendLocal

	e, err := New(context.Background(), cfg, nil, nil)
	require.NoError(t, err)

	_, err = e.DetectDocumentText(context.Background(), nil)
	assert.True(t, errors.Is(err, vision.ErrUnsupported))
}

func TestNewInvalid(t *testing.T) {
	cfg := config.Default().Recognition
	cfg.Backend = "azure"
	_, err := New(context.Background(), cfg, nil, nil)
	assert.ErrorContains(t, err, "azure")

	cfg.Backend = config.BackendOllama
	cfg.URL = "not a url"
	_, err = New(context.Background(), cfg, nil, nil)
	assert.Error(t, err)
}
