package verdict

import (
	"context"
	"fmt"
	"strings"

	"github.com/menta2k/visual-assert/pkg/capture"
	"github.com/menta2k/visual-assert/pkg/colors"
	"github.com/menta2k/visual-assert/pkg/pixeldiff"
	"github.com/menta2k/visual-assert/pkg/recognition"
	"github.com/menta2k/visual-assert/pkg/regions"
	"github.com/menta2k/visual-assert/pkg/types"
)

// AssertContainsLabels checks the detected labels. With onlyHighest, the
// top-ranked label must be one of expected; otherwise every expected label
// must be detected. Extra labels are allowed.
func AssertContainsLabels(ctx context.Context, n *recognition.Normalizer, image []byte, expected []string, onlyHighest bool) error {
	labels, err := n.ExtractLabels(ctx, image)
	if err != nil {
		return err
	}
	detected := recognition.Descriptions(labels)

	if onlyHighest {
		if len(labels) == 0 {
			return &Failure{
				Check:    "highest label",
				Expected: "one of " + quoteList(expected),
				Actual:   "no labels",
				Detail:   "no labels detected in the image",
			}
		}
		top := labels[0].Description
		for _, e := range expected {
			if e == top {
				return nil
			}
		}
		return &Failure{
			Check:    "highest label",
			Expected: "one of " + quoteList(expected),
			Actual:   fmt.Sprintf("%q (score %.2f)", top, labels[0].Score),
		}
	}

	if missing := missingFrom(detected, expected); len(missing) > 0 {
		return &Failure{
			Check:    "labels",
			Expected: quoteList(expected),
			Actual:   quoteList(detected),
			Detail:   "missing " + quoteList(missing),
		}
	}
	return nil
}

// AssertContainsLogos checks that every expected logo is detected.
func AssertContainsLogos(ctx context.Context, n *recognition.Normalizer, image []byte, expected []string) error {
	logos, err := n.ExtractLogos(ctx, image)
	if err != nil {
		return err
	}
	detected := recognition.Descriptions(logos)
	if missing := missingFrom(detected, expected); len(missing) > 0 {
		return &Failure{
			Check:    "logos",
			Expected: quoteList(expected),
			Actual:   quoteList(detected),
			Detail:   "missing " + quoteList(missing),
		}
	}
	return nil
}

// AssertOcrText checks the document text of image. With noTextExpected any
// detected text fails; otherwise the lower-cased text must contain expected.
//
// Deprecated: use ExtractText and check the lines directly.
func AssertOcrText(ctx context.Context, n *recognition.Normalizer, image []byte, expected string, noTextExpected bool) error {
	res, err := n.ExtractText(ctx, image)
	if err != nil {
		return err
	}
	return checkText(res.Text, expected, noTextExpected)
}

// AssertOcrTextInElement is AssertOcrText on a screenshot of selector.
func AssertOcrTextInElement(ctx context.Context, n *recognition.Normalizer, p capture.Provider, selector, expected string, noTextExpected bool) error {
	res, err := n.ExtractTextFromElement(ctx, p, selector)
	if err != nil {
		return err
	}
	return checkText(res.Text, expected, noTextExpected)
}

func checkText(text, expected string, noTextExpected bool) error {
	if noTextExpected {
		if text != "" {
			return &Failure{
				Check:    "text",
				Expected: "no text",
				Actual:   fmt.Sprintf("%q", text),
				Detail:   "text detected in the image: " + text,
			}
		}
		return nil
	}
	if text == "" {
		return &Failure{
			Check:    "text",
			Expected: fmt.Sprintf("%q", expected),
			Actual:   "no text",
			Detail:   "No text detected in the image",
			Err:      recognition.ErrNoText,
		}
	}
	if !strings.Contains(text, strings.ToLower(expected)) {
		return &Failure{
			Check:    "text",
			Expected: fmt.Sprintf("text containing %q", strings.ToLower(expected)),
			Actual:   fmt.Sprintf("%q", text),
		}
	}
	return nil
}

// AssertCornerColors waits for selector, reads its bounding box and runs
// SampleCornerColors on it. An element without a layout box is treated as
// the zero box.
func AssertCornerColors(ctx context.Context, n *recognition.Normalizer, p capture.Provider, selector string, size float64, expected types.Color) error {
	if err := p.WaitReady(ctx, selector); err != nil {
		return fmt.Errorf("wait for %s: %w", selector, err)
	}
	box, err := p.BoundingBox(ctx, selector)
	if err != nil {
		return fmt.Errorf("bounding box of %s: %w", selector, err)
	}
	if box == nil {
		box = &types.BoundingBox{}
	}
	if err := SampleCornerColors(ctx, n, p, *box, size, expected); err != nil {
		return fmt.Errorf("%s: %w", selector, err)
	}
	return nil
}

// SampleCornerColors checks that the dominant color of each corner square of
// box is visually the same as expected. Corners are checked top-left,
// top-right, bottom-left, bottom-right and the first mismatch is returned.
func SampleCornerColors(ctx context.Context, n *recognition.Normalizer, p capture.Provider, box types.BoundingBox, size float64, expected types.Color) error {
	if size <= 0 {
		size = regions.DefaultCornerSize
	}

	want := colors.Hex(expected)
	for _, corner := range regions.Corners(box, size) {
		got, err := n.RegionColor(ctx, p, corner.Rect)
		if err != nil {
			return fmt.Errorf("%s corner: %w", corner.Name, err)
		}
		if d := colors.Difference(expected, got); d >= colors.VisuallySameThreshold {
			return &Failure{
				Check:    corner.Name + " corner color",
				Expected: want,
				Actual:   colors.Hex(got),
				Detail:   fmt.Sprintf("%s corner differs by %.2f", corner.Name, d),
			}
		}
	}
	return nil
}

// AssertColorsVisuallySame checks two hex colors are within the visual
// sameness threshold.
func AssertColorsVisuallySame(colorA, colorB string) error {
	d, err := colors.Distance(colorA, colorB)
	if err != nil {
		return err
	}
	if d > colors.VisuallySameThreshold {
		return &Failure{
			Check:    "visually same colors",
			Expected: fmt.Sprintf("%s within %.0f of %s", colorB, colors.VisuallySameThreshold, colorA),
			Actual:   fmt.Sprintf("distance %.2f", d),
		}
	}
	return nil
}

// AssertImagesSimilar passes when fewer than passBelow pixels differ, or when
// sizes differ and opts.IgnoreSizeDifference is set.
func AssertImagesSimilar(e *pixeldiff.Engine, a, b []byte, opts pixeldiff.Options, passBelow int) error {
	res, err := e.Diff(a, b, opts)
	if err != nil {
		return err
	}
	if res.SizeSkipped || res.DiffPixels < passBelow {
		return nil
	}
	return &Failure{
		Check:    "image similarity",
		Expected: fmt.Sprintf("fewer than %d differing pixels", passBelow),
		Actual:   fmt.Sprintf("%d differing pixels", res.DiffPixels),
	}
}

// AssertScreenshotMatches compares actual against reference and fails when
// more than maxDiffPixels differ. A diff artifact is written on any difference.
func AssertScreenshotMatches(e *pixeldiff.Engine, reference, actual []byte, maxDiffPixels int, threshold float64) error {
	n, err := e.CompareImages(reference, actual, threshold)
	if err != nil {
		return err
	}
	if n > maxDiffPixels {
		return &Failure{
			Check:    "screenshot match",
			Expected: fmt.Sprintf("at most %d differing pixels", maxDiffPixels),
			Actual:   fmt.Sprintf("%d differing pixels", n),
		}
	}
	return nil
}

func missingFrom(detected, expected []string) []string {
	have := make(map[string]struct{}, len(detected))
	for _, d := range detected {
		have[d] = struct{}{}
	}
	var missing []string
	for _, e := range expected {
		if _, ok := have[e]; !ok {
			missing = append(missing, e)
		}
	}
	return missing
}
