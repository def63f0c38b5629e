package detection

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/menta2k/visual-assert/pkg/client"
	"github.com/menta2k/visual-assert/pkg/processing"
	"github.com/menta2k/visual-assert/pkg/types"
)

// LabelPrompt asks the model for generic image labels.
const LabelPrompt = `You are an image labeler.

Return JSON only:
{"labels": [{"description": "string", "score": 0.0}]}

RULES
- Up to 10 labels describing objects, materials, scenes and concepts in the image.
- description: short English noun phrase, Title Case (e.g. "Cat", "Font", "Screenshot").
- score: confidence in [0,1].
- If nothing is recognizable, return {"labels": []}.
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// LogoPrompt asks the model for brand logos.
const LogoPrompt = `You are a brand logo detector.

Return JSON only:
{"logos": [{"description": "string", "score": 0.0}]}

RULES
- description: the brand name exactly as commonly written (e.g. "Google", "Coca-Cola").
- score: confidence in [0,1].
- Only include logos that are actually visible. If none, return {"logos": []}.
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// TextPrompt asks the model to transcribe all visible text.
const TextPrompt = `You are an OCR engine.

Return JSON only:
{"text": "string"}

RULES
- Transcribe all visible text in reading order, preserving line breaks as \n.
- Do not translate, correct or summarize.
- If there is no text, return {"text": ""}.
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// ColorPrompt asks the model for dominant colors.
const ColorPrompt = `You are an image color analyzer.

Return JSON only:
{"colors": [{"red": 0, "green": 0, "blue": 0, "score": 0.0, "pixel_fraction": 0.0}]}

RULES
- Up to 5 dominant colors, most prominent first.
- red/green/blue: integers in [0,255].
- score and pixel_fraction: values in [0,1].
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// Config controls how images are sent to the model.
type Config struct {
	Model       string
	SendFormat  string
	MaxDim      int
	SendQuality int
}

// Detector implements client.RecognitionEngine by prompting a vision model
type Detector struct {
	client    client.VisionClient
	processor *processing.Processor
	config    Config
	logger    *zap.Logger
}

// NewDetector creates a new detector with a vision client
func NewDetector(c client.VisionClient, config Config, logger *zap.Logger) *Detector {
	if config.SendFormat == "" {
		config.SendFormat = "jpg"
	}
	if config.SendQuality == 0 {
		config.SendQuality = 85
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{
		client:    c,
		processor: processing.NewProcessor(),
		config:    config,
		logger:    logger,
	}
}

// DetectLabels asks the model for labels
func (d *Detector) DetectLabels(ctx context.Context, image []byte) ([]types.RawAnnotation, error) {
	var out struct {
		Labels []types.RawAnnotation `json:"labels"`
	}
	if err := d.query(ctx, image, LabelPrompt, &out); err != nil {
		return nil, err
	}
	return out.Labels, nil
}

// DetectLogos asks the model for logos
func (d *Detector) DetectLogos(ctx context.Context, image []byte) ([]types.RawAnnotation, error) {
	var out struct {
		Logos []types.RawAnnotation `json:"logos"`
	}
	if err := d.query(ctx, image, LogoPrompt, &out); err != nil {
		return nil, err
	}
	return out.Logos, nil
}

// DetectDocumentText asks the model to transcribe the image
func (d *Detector) DetectDocumentText(ctx context.Context, image []byte) (string, error) {
	var out struct {
		Text string `json:"text"`
	}
	if err := d.query(ctx, image, TextPrompt, &out); err != nil {
		return "", err
	}
	return out.Text, nil
}

// DetectImageProperties asks the model for dominant colors
func (d *Detector) DetectImageProperties(ctx context.Context, image []byte) ([]types.ColorInfo, error) {
	var out struct {
		Colors []types.ColorInfo `json:"colors"`
	}
	if err := d.query(ctx, image, ColorPrompt, &out); err != nil {
		return nil, err
	}
	return out.Colors, nil
}

func (d *Detector) query(ctx context.Context, image []byte, prompt string, v any) error {
	img, err := d.processor.Decode(image)
	if err != nil {
		return err
	}
	imgB64, err := d.processor.PrepareImageForModel(img, d.config.SendFormat, d.config.MaxDim, d.config.SendQuality)
	if err != nil {
		return fmt.Errorf("prepare image: %w", err)
	}

	raw, err := d.client.SimpleQuery(ctx, d.config.Model, prompt, imgB64)
	if err != nil {
		return err
	}
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("empty response from vision model")
	}

	clean := sanitizeModelJSON(raw)
	if err := json.Unmarshal([]byte(clean), v); err != nil {
		d.logger.Debug("unparseable model response", zap.String("raw", raw))
		return fmt.Errorf("failed to parse model response: %w", err)
	}
	return nil
}

var (
	reBlock    = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reLine     = regexp.MustCompile(`(?m)^\s*//.*$`)
	reTrailing = regexp.MustCompile(`,(\s*[}\]])`)
)

// sanitizeModelJSON removes code fences, comments, and trailing commas from JSON response
func sanitizeModelJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	// Strip triple-backtick fences if present
	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.TrimSpace(raw)
	raw = strings.Trim(raw, "`")

	raw = reBlock.ReplaceAllString(raw, "")
	// Only whole-line // comments: transcribed text may contain "//" (URLs).
	raw = reLine.ReplaceAllString(raw, "")
	raw = reTrailing.ReplaceAllString(raw, "$1")

	// Keep only the outermost {...}
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}
