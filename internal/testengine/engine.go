// Package testengine provides a scripted client.RecognitionEngine for tests.
package testengine

import (
	"context"
	"sync"

	"github.com/menta2k/visual-assert/pkg/types"
)

// Engine returns canned results. Colors, when set, is consumed one entry per
// DetectImageProperties call; otherwise Properties is returned every time.
type Engine struct {
	Labels     []types.RawAnnotation
	Logos      []types.RawAnnotation
	Text       string
	Properties []types.ColorInfo
	Colors     [][]types.ColorInfo
	Err        error

	mu    sync.Mutex
	calls map[string]int
}

// Swatch builds a single-swatch properties result.
func Swatch(r, g, b float64) []types.ColorInfo {
	return []types.ColorInfo{{Red: r, Green: g, Blue: b, Score: 1, PixelFraction: 1}}
}

// Calls reports how many times kind was invoked.
func (e *Engine) Calls(kind string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls[kind]
}

func (e *Engine) record(kind string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.calls == nil {
		e.calls = make(map[string]int)
	}
	e.calls[kind]++
	return e.calls[kind]
}

func (e *Engine) DetectLabels(context.Context, []byte) ([]types.RawAnnotation, error) {
	e.record("labels")
	return e.Labels, e.Err
}

func (e *Engine) DetectLogos(context.Context, []byte) ([]types.RawAnnotation, error) {
	e.record("logos")
	return e.Logos, e.Err
}

func (e *Engine) DetectDocumentText(context.Context, []byte) (string, error) {
	e.record("text")
	return e.Text, e.Err
}

func (e *Engine) DetectImageProperties(context.Context, []byte) ([]types.ColorInfo, error) {
	n := e.record("properties")
	if e.Err != nil {
		return nil, e.Err
	}
	if e.Colors != nil {
		if n > len(e.Colors) {
			return nil, nil
		}
		return e.Colors[n-1], nil
	}
	return e.Properties, nil
}
