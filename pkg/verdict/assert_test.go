package verdict

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/visual-assert/internal/testengine"
	"github.com/menta2k/visual-assert/pkg/capture"
	"github.com/menta2k/visual-assert/pkg/colors"
	"github.com/menta2k/visual-assert/pkg/pixeldiff"
	"github.com/menta2k/visual-assert/pkg/recognition"
	"github.com/menta2k/visual-assert/pkg/types"
)

var red = types.Color{R: 255}

func labels(pairs ...any) []types.RawAnnotation {
	var out []types.RawAnnotation
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, types.RawAnnotation{
			Description: types.StringPtr(pairs[i].(string)),
			Score:       types.Float64Ptr(pairs[i+1].(float64)),
		})
	}
	return out
}

func failure(t *testing.T, err error) *Failure {
	t.Helper()
	var f *Failure
	require.True(t, errors.As(err, &f), "expected *Failure, got %v", err)
	return f
}

func TestAssertContainsLabelsOnlyHighest(t *testing.T) {
	ctx := context.Background()

	n := recognition.New(&testengine.Engine{Labels: labels("dog", 0.6, "cat", 0.9)})
	assert.NoError(t, AssertContainsLabels(ctx, n, nil, []string{"cat"}, true))

	n = recognition.New(&testengine.Engine{Labels: labels("dog", 0.95, "cat", 0.9)})
	err := AssertContainsLabels(ctx, n, nil, []string{"cat"}, true)
	f := failure(t, err)
	assert.Equal(t, "highest label", f.Check)
	assert.Contains(t, f.Actual, `"dog"`)

	n = recognition.New(&testengine.Engine{})
	f = failure(t, AssertContainsLabels(ctx, n, nil, []string{"cat"}, true))
	assert.Equal(t, "no labels", f.Actual)
}

func TestAssertContainsLabelsSuperset(t *testing.T) {
	ctx := context.Background()
	n := recognition.New(&testengine.Engine{Labels: labels("dog", 0.6, "cat", 0.9, "pet", 0.8)})

	assert.NoError(t, AssertContainsLabels(ctx, n, nil, []string{"pet", "dog"}, false))

	f := failure(t, AssertContainsLabels(ctx, n, nil, []string{"pet", "bird"}, false))
	assert.Equal(t, `missing ["bird"]`, f.Detail)
	assert.Equal(t, `["cat", "pet", "dog"]`, f.Actual)
}

func TestAssertContainsLogos(t *testing.T) {
	ctx := context.Background()
	n := recognition.New(&testengine.Engine{Logos: labels("Acme", 0.7, "Globex", 0.9)})

	assert.NoError(t, AssertContainsLogos(ctx, n, nil, []string{"Globex", "Acme"}))
	f := failure(t, AssertContainsLogos(ctx, n, nil, []string{"Initech"}))
	assert.Equal(t, "logos", f.Check)
}

func TestAssertOcrText(t *testing.T) {
	ctx := context.Background()
	n := recognition.New(&testengine.Engine{Text: "Welcome Back\nSign In"})

	assert.NoError(t, AssertOcrText(ctx, n, nil, "SIGN in", false))

	f := failure(t, AssertOcrText(ctx, n, nil, "logout", false))
	assert.Equal(t, `text containing "logout"`, f.Expected)

	f = failure(t, AssertOcrText(ctx, n, nil, "", true))
	assert.Contains(t, f.Error(), "welcome back")
}

func TestAssertOcrTextNoText(t *testing.T) {
	ctx := context.Background()
	n := recognition.New(&testengine.Engine{})

	assert.NoError(t, AssertOcrText(ctx, n, nil, "", true))

	err := AssertOcrText(ctx, n, nil, "anything", false)
	f := failure(t, err)
	assert.Equal(t, "No text detected in the image", f.Detail)
	assert.ErrorIs(t, err, recognition.ErrNoText)
}

func TestAssertOcrTextEngineError(t *testing.T) {
	n := recognition.New(&testengine.Engine{Err: errors.New("boom")})
	err := AssertOcrText(context.Background(), n, nil, "x", false)
	require.Error(t, err)
	assert.False(t, IsFailure(err))
}

func redSquarePage() *capture.Page {
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{255, 0, 0, 255}}, image.Point{}, draw.Src)
	return capture.NewPage(img, map[string]types.BoundingBox{
		"#square": {X: 20, Y: 20, Width: 60, Height: 60},
	})
}

func TestAssertCornerColorsAllRed(t *testing.T) {
	engine := &testengine.Engine{Properties: testengine.Swatch(255, 0, 0)}
	n := recognition.New(engine)

	err := AssertCornerColors(context.Background(), n, redSquarePage(), "#square", 10, red)
	assert.NoError(t, err)
	assert.Equal(t, 4, engine.Calls("properties"))
}

func TestAssertCornerColorsOneCornerGreen(t *testing.T) {
	engine := &testengine.Engine{Colors: [][]types.ColorInfo{
		testengine.Swatch(255, 0, 0),
		testengine.Swatch(255, 0, 0),
		testengine.Swatch(0, 255, 0),
		testengine.Swatch(255, 0, 0),
	}}
	n := recognition.New(engine)

	err := AssertCornerColors(context.Background(), n, redSquarePage(), "#square", 10, red)
	f := failure(t, err)
	assert.Equal(t, "bottom-left corner color", f.Check)
	assert.Equal(t, "#ff0000", f.Expected)
	assert.Equal(t, "#00ff00", f.Actual)
	assert.Contains(t, err.Error(), "bottom-left")
	assert.Equal(t, 3, engine.Calls("properties"))
}

func TestAssertCornerColorsMissingColor(t *testing.T) {
	engine := &testengine.Engine{Colors: [][]types.ColorInfo{testengine.Swatch(255, 0, 0)}}
	n := recognition.New(engine)

	err := AssertCornerColors(context.Background(), n, redSquarePage(), "#square", 10, red)
	require.Error(t, err)
	assert.ErrorIs(t, err, recognition.ErrNoDominantColor)
	assert.Contains(t, err.Error(), "top-right")
}

func TestAssertCornerColorsMissingElement(t *testing.T) {
	n := recognition.New(&testengine.Engine{Properties: testengine.Swatch(255, 0, 0)})
	err := AssertCornerColors(context.Background(), n, redSquarePage(), "#nope", 10, red)
	require.Error(t, err)
	assert.False(t, IsFailure(err))
}

type boxlessPage struct{ *capture.Page }

func (boxlessPage) BoundingBox(context.Context, string) (*types.BoundingBox, error) { return nil, nil }

func TestAssertCornerColorsZeroBox(t *testing.T) {
	engine := &testengine.Engine{Properties: testengine.Swatch(255, 0, 0)}
	n := recognition.New(engine)
	page := boxlessPage{redSquarePage()}

	// The zero box puts three corners at negative offsets, which the page
	// cannot clip.
	err := AssertCornerColors(context.Background(), n, page, "#square", 10, red)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "top-right")
	assert.Equal(t, 1, engine.Calls("properties"))
}

func TestSampleCornerColors(t *testing.T) {
	engine := &testengine.Engine{Properties: testengine.Swatch(255, 0, 0)}
	n := recognition.New(engine)
	box := types.BoundingBox{X: 0, Y: 0, Width: 100, Height: 100}

	require.NoError(t, SampleCornerColors(context.Background(), n, redSquarePage(), box, 0, red))
	assert.Equal(t, 4, engine.Calls("properties"))

	err := SampleCornerColors(context.Background(), n, redSquarePage(), box, 10, types.Color{B: 255})
	f := failure(t, err)
	assert.Equal(t, "top-left corner color", f.Check)
}

func TestAssertColorsVisuallySame(t *testing.T) {
	assert.NoError(t, AssertColorsVisuallySame("#ff0000", "#fe0000"))

	f := failure(t, AssertColorsVisuallySame("#000000", "#ffffff"))
	assert.Equal(t, "visually same colors", f.Check)

	err := AssertColorsVisuallySame("nope", "#ffffff")
	assert.ErrorIs(t, err, colors.ErrInvalidHex)
	assert.False(t, IsFailure(err))
}

func encodePNG(t *testing.T, w, h int, fill color.Color, block image.Rectangle) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(img, block, &image.Uniform{C: fill}, image.Point{}, draw.Src)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type discardArtifact struct{ writes int }

func (d *discardArtifact) WriteDiff(image.Image) error { d.writes++; return nil }

func TestAssertImagesSimilar(t *testing.T) {
	e := pixeldiff.New(pixeldiff.WithArtifactWriter(&discardArtifact{}))
	plain := encodePNG(t, 20, 20, color.White, image.Rectangle{})
	dotted := encodePNG(t, 20, 20, color.Black, image.Rect(5, 5, 10, 10))
	bigger := encodePNG(t, 30, 20, color.White, image.Rectangle{})

	assert.NoError(t, AssertImagesSimilar(e, plain, plain, pixeldiff.Options{}, 2))

	f := failure(t, AssertImagesSimilar(e, plain, dotted, pixeldiff.Options{}, 2))
	assert.Equal(t, "image similarity", f.Check)

	assert.NoError(t, AssertImagesSimilar(e, plain, bigger, pixeldiff.Options{IgnoreSizeDifference: true}, 2))

	err := AssertImagesSimilar(e, plain, bigger, pixeldiff.Options{}, 2)
	assert.ErrorIs(t, err, pixeldiff.ErrDimensionMismatch)
}

func TestAssertScreenshotMatches(t *testing.T) {
	artifact := &discardArtifact{}
	e := pixeldiff.New(pixeldiff.WithArtifactWriter(artifact))
	plain := encodePNG(t, 20, 20, color.White, image.Rectangle{})
	dotted := encodePNG(t, 20, 20, color.Black, image.Rect(5, 5, 10, 10))

	assert.NoError(t, AssertScreenshotMatches(e, plain, plain, 0, pixeldiff.DefaultThreshold))
	assert.Equal(t, 0, artifact.writes)

	f := failure(t, AssertScreenshotMatches(e, plain, dotted, 0, pixeldiff.DefaultThreshold))
	assert.Contains(t, f.Actual, "differing pixels")
	assert.Equal(t, 1, artifact.writes)

	assert.NoError(t, AssertScreenshotMatches(e, plain, dotted, 400, pixeldiff.DefaultThreshold))
}

func TestFailureError(t *testing.T) {
	f := &Failure{Check: "labels", Expected: `["cat"]`, Actual: `["dog"]`, Detail: `missing ["cat"]`}
	assert.Equal(t, `labels failed: missing ["cat"] (expected ["cat"], actual ["dog"])`, f.Error())
	assert.True(t, IsFailure(f))
	assert.False(t, IsFailure(errors.New("x")))
}

func TestRequire(t *testing.T) {
	Require(t, nil)
}
