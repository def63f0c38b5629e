package recognition

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apperrors "github.com/menta2k/visual-assert/internal/errors"
	"github.com/menta2k/visual-assert/internal/testengine"
	"github.com/menta2k/visual-assert/pkg/capture"
	"github.com/menta2k/visual-assert/pkg/ocr"
	"github.com/menta2k/visual-assert/pkg/types"
)

func raw(desc string, score float64) types.RawAnnotation {
	return types.RawAnnotation{Description: types.StringPtr(desc), Score: types.Float64Ptr(score)}
}

func mixedAnnotations() []types.RawAnnotation {
	return []types.RawAnnotation{
		raw("dog", 0.7),
		{Description: types.StringPtr("no score")},
		raw("cat", 0.95),
		{Score: types.Float64Ptr(0.99)},
		raw("", 0.5),
		raw("pet", 0.8),
	}
}

func TestExtractLabelsFiltersAndSorts(t *testing.T) {
	n := New(&testengine.Engine{Labels: mixedAnnotations()})

	labels, err := n.ExtractLabels(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []types.Annotation{
		{Description: "cat", Score: 0.95},
		{Description: "pet", Score: 0.8},
		{Description: "dog", Score: 0.7},
	}, labels)
}

func TestExtractLabelsEmpty(t *testing.T) {
	labels, err := New(&testengine.Engine{}).ExtractLabels(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, labels)
}

func TestExtractLogosKeepsEngineOrder(t *testing.T) {
	n := New(&testengine.Engine{Logos: mixedAnnotations()})

	logos, err := n.ExtractLogos(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"dog", "cat", "pet"}, Descriptions(logos))
}

func TestExtractText(t *testing.T) {
	n := New(&testengine.Engine{Text: "Hello World\nSecond LINE"})

	res, err := n.ExtractText(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "hello world\nsecond line", res.Text)
	assert.Equal(t, []string{"hello world", "second line"}, res.Lines)
}

func TestExtractTextNone(t *testing.T) {
	res, err := New(&testengine.Engine{}).ExtractText(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "", res.Text)
	assert.NotNil(t, res.Lines)
	assert.Empty(t, res.Lines)
}

func TestDetectDominantColorZeroPadded(t *testing.T) {
	n := New(&testengine.Engine{Properties: []types.ColorInfo{
		{Red: 5, Green: 10, Blue: 255, Score: 0.6},
		{Red: 255, Green: 255, Blue: 255, Score: 0.4},
	}})

	hex, err := n.DetectDominantColor(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "#050aff", hex)
}

func TestDetectDominantColorNone(t *testing.T) {
	_, err := New(&testengine.Engine{}).DetectDominantColor(context.Background(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoDominantColor)
	assert.True(t, apperrors.IsKind(err, apperrors.KindEngine))
}

func TestEngineErrorsNameTheCall(t *testing.T) {
	n := New(&testengine.Engine{Err: errors.New("quota exceeded")})
	ctx := context.Background()

	_, err := n.ExtractLabels(ctx, nil)
	assert.ErrorContains(t, err, CallLabels)
	_, err = n.ExtractLogos(ctx, nil)
	assert.ErrorContains(t, err, CallLogos)
	_, err = n.ExtractText(ctx, nil)
	assert.ErrorContains(t, err, CallText)
	_, err = n.DetectDominantColor(ctx, nil)
	assert.ErrorContains(t, err, CallProperties)
}

func TestEngineTimeout(t *testing.T) {
	n := New(&testengine.Engine{Err: status.Error(codes.DeadlineExceeded, "slow")})

	_, err := n.ExtractLabels(context.Background(), nil)
	assert.True(t, apperrors.IsKind(err, apperrors.KindTimeout))
}

func newRedPage() *capture.Page {
	img := image.NewRGBA(image.Rect(0, 0, 50, 50))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{255, 0, 0, 255}}, image.Point{}, draw.Src)
	return capture.NewPage(img, map[string]types.BoundingBox{"#hero": {X: 0, Y: 0, Width: 50, Height: 50}})
}

func TestElementVariants(t *testing.T) {
	engine := &testengine.Engine{Text: "Welcome", Properties: testengine.Swatch(255, 0, 0)}
	n := New(engine)
	page := newRedPage()

	res, err := n.ExtractTextFromElement(context.Background(), page, "#hero")
	require.NoError(t, err)
	assert.Equal(t, "welcome", res.Text)

	hex, err := n.DetectElementDominantColor(context.Background(), page, "#hero")
	require.NoError(t, err)
	assert.Equal(t, "#ff0000", hex)

	_, err = n.ExtractTextFromElement(context.Background(), page, "#missing")
	assert.Error(t, err)
	assert.Equal(t, 1, engine.Calls("text"))
}

func TestRegionColor(t *testing.T) {
	n := New(&testengine.Engine{Properties: testengine.Swatch(254.6, 0.2, 0)})

	c, err := n.RegionColor(context.Background(), newRedPage(), types.Rect{Width: 10, Height: 10})
	require.NoError(t, err)
	assert.Equal(t, types.Color{R: 255, G: 0, B: 0}, c)
}

type stubSession struct{ released bool }

func (s *stubSession) Recognize(context.Context, []byte) (string, error) { return " local text ", nil }
func (s *stubSession) Release() error                                   { s.released = true; return nil }

type stubOCR struct{ session *stubSession }

func (e stubOCR) CreateSession(context.Context, string) (ocr.Session, error) { return e.session, nil }

func TestDetectTextLocal(t *testing.T) {
	_, err := New(&testengine.Engine{}).DetectTextLocal(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoLocalOCR)

	session := &stubSession{}
	n := New(&testengine.Engine{}, WithOCR(ocr.NewReader(stubOCR{session: session}, "", nil)))
	text, err := n.DetectTextLocal(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "local text", text)
	assert.True(t, session.released)
}

func TestNormalizeText(t *testing.T) {
	res := NormalizeText("A\nB\n")
	assert.Equal(t, []string{"a", "b", ""}, res.Lines)
}
