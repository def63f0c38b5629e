package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/menta2k/visual-assert/internal/utils"
	"github.com/menta2k/visual-assert/pkg/capture"
	cdpcapture "github.com/menta2k/visual-assert/pkg/capture/chromedp"
	"github.com/menta2k/visual-assert/pkg/colors"
	"github.com/menta2k/visual-assert/pkg/pixeldiff"
	"github.com/menta2k/visual-assert/pkg/processing"
	"github.com/menta2k/visual-assert/pkg/regions"
	"github.com/menta2k/visual-assert/pkg/types"
	"github.com/menta2k/visual-assert/pkg/verdict"
)

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: %s %s\n", name, commands[name].usage)
		fs.PrintDefaults()
	}
	return fs
}

func printJSON(v any) error {
	js, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Println(string(js))
	return err
}

func readInput(path string) ([]byte, error) {
	if path == "" {
		return nil, errors.New("missing -in")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func runDiff(_ context.Context, e *env, args []string) error {
	fs := newFlagSet("diff")
	a := fs.String("a", "", "first image")
	b := fs.String("b", "", "second image")
	ignoreSize := fs.Bool("ignore-size", e.cfg.Diff.IgnoreSizeDifference, "treat differing sizes as a pass")
	threshold := fs.Float64("threshold", e.cfg.Diff.Threshold, "per-pixel tolerance (0..1)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	dataA, err := readInput(*a)
	if err != nil {
		return err
	}
	dataB, err := readInput(*b)
	if err != nil {
		return err
	}

	res, err := e.kit.DiffEngine().Diff(dataA, dataB, pixeldiff.Options{IgnoreSizeDifference: *ignoreSize, Threshold: pixeldiff.Tolerance(*threshold)})
	if err != nil {
		return err
	}
	return printJSON(res)
}

func runCompare(_ context.Context, e *env, args []string) error {
	fs := newFlagSet("compare")
	ref := fs.String("reference", "", "reference screenshot name or path")
	actual := fs.String("actual", "", "actual screenshot path")
	maxDiff := fs.Int("max", 0, "maximum differing pixels")
	artifactDir := fs.String("artifact-dir", "", "write <reference>_diff.<format> here instead of the configured artifact path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var reference []byte
	var err error
	if utils.FileExists(*ref) {
		reference, err = os.ReadFile(*ref)
	} else {
		reference, err = e.kit.LoadReferenceScreenshot(*ref)
	}
	if err != nil {
		return err
	}
	current, err := readInput(*actual)
	if err != nil {
		return err
	}

	diff, artifactPath := e.kit.DiffEngine(), e.cfg.Diff.ArtifactPath
	if *artifactDir != "" {
		artifactPath = utils.DiffArtifactFilename(*ref, *artifactDir, e.cfg.Diff.ArtifactFormat)
		diff = pixeldiff.New(
			pixeldiff.WithArtifactWriter(pixeldiff.NewFileArtifact(processing.NewProcessor(), artifactPath, e.cfg.Diff.ArtifactFormat)),
			pixeldiff.WithLogger(e.logger.Named("pixeldiff")),
		)
	}

	if err := verdict.AssertScreenshotMatches(diff, reference, current, *maxDiff, e.cfg.Diff.Threshold); err != nil {
		if verdict.IsFailure(err) {
			e.logger.Info("diff artifact written", zap.String("path", artifactPath))
		}
		return err
	}
	fmt.Println("PASS")
	return nil
}

func runColor(_ context.Context, _ *env, args []string) error {
	fs := newFlagSet("color")
	a := fs.String("a", "", "first color")
	b := fs.String("b", "", "second color")
	if err := fs.Parse(args); err != nil {
		return err
	}

	d, err := colors.Distance(*a, *b)
	if err != nil {
		return err
	}
	return printJSON(map[string]any{
		"distance":      d,
		"visually_same": d <= colors.VisuallySameThreshold,
	})
}

func runLabels(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("labels")
	in := fs.String("in", "", "image")
	expect := fs.String("expect", "", "comma-separated expected labels")
	top := fs.Bool("top", false, "only check the highest scoring label")
	if err := fs.Parse(args); err != nil {
		return err
	}
	data, err := readInput(*in)
	if err != nil {
		return err
	}

	if *expect != "" {
		if err := e.kit.AssertContainsLabels(ctx, data, splitList(*expect), *top); err != nil {
			return err
		}
	}
	labels, err := e.kit.ExtractLabels(ctx, data)
	if err != nil {
		return err
	}
	return printJSON(labels)
}

func runLogos(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("logos")
	in := fs.String("in", "", "image")
	expect := fs.String("expect", "", "comma-separated expected logos")
	if err := fs.Parse(args); err != nil {
		return err
	}
	data, err := readInput(*in)
	if err != nil {
		return err
	}

	if *expect != "" {
		if err := e.kit.AssertContainsLogos(ctx, data, splitList(*expect)); err != nil {
			return err
		}
	}
	logos, err := e.kit.ExtractLogos(ctx, data)
	if err != nil {
		return err
	}
	return printJSON(logos)
}

func runText(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("text")
	in := fs.String("in", "", "image")
	expect := fs.String("expect", "", "expected substring")
	none := fs.Bool("none", false, "expect no text at all")
	if err := fs.Parse(args); err != nil {
		return err
	}
	data, err := readInput(*in)
	if err != nil {
		return err
	}

	if *expect != "" || *none {
		return e.kit.AssertOcrText(ctx, data, *expect, *none)
	}
	res, err := e.kit.ExtractText(ctx, data)
	if err != nil {
		return err
	}
	return printJSON(res)
}

func runOCR(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("ocr")
	in := fs.String("in", "", "image")
	if err := fs.Parse(args); err != nil {
		return err
	}
	data, err := readInput(*in)
	if err != nil {
		return err
	}

	text, err := e.kit.DetectTextLocal(ctx, data)
	if err != nil {
		return err
	}
	fmt.Println(text)
	return nil
}

func runDominant(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("dominant")
	in := fs.String("in", "", "image")
	if err := fs.Parse(args); err != nil {
		return err
	}
	data, err := readInput(*in)
	if err != nil {
		return err
	}

	hex, err := e.kit.DetectDominantColor(ctx, data)
	if err != nil {
		return err
	}
	fmt.Println(hex)
	return nil
}

func runCorners(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("corners")
	in := fs.String("in", "", "image whose corners are checked")
	url := fs.String("url", "", "page URL (with -selector)")
	selector := fs.String("selector", "", "element selector on the page")
	hex := fs.String("color", "", "expected color, #rgb or #rrggbb")
	size := fs.Float64("size", e.cfg.Corners.Size, "corner square size in pixels")
	overlay := fs.String("overlay", "", "write a corner overlay of -in to this path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	expected, ok := colors.ParseHex(*hex)
	if !ok {
		return fmt.Errorf("-color: %q: %w", *hex, colors.ErrInvalidHex)
	}

	if *url != "" {
		return withBrowser(ctx, *url, func(p capture.Provider) error {
			return verdict.AssertCornerColors(ctx, e.kit.Recognizer(), p, *selector, *size, expected)
		})
	}

	data, err := readInput(*in)
	if err != nil {
		return err
	}
	processor := processing.NewProcessor()
	img, err := processor.Decode(data)
	if err != nil {
		return err
	}
	if *overlay != "" {
		cropper := regions.NewWithSize(*size)
		format := utils.GetFileExtension(*overlay)
		if err := processor.SaveImage(cropper.Overlay(img), *overlay, format, 92, false); err != nil {
			return fmt.Errorf("save overlay: %w", err)
		}
	}

	const element = "image"
	page := capture.NewPage(img, map[string]types.BoundingBox{element: regions.ImageBox(img)})
	return verdict.AssertCornerColors(ctx, e.kit.Recognizer(), page, element, *size, expected)
}

func runShot(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("shot")
	url := fs.String("url", "", "page URL")
	selector := fs.String("selector", "body", "element selector")
	out := fs.String("out", "", "write the screenshot to this file")
	save := fs.String("save", "", "store the screenshot as a named reference")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *url == "" || (*out == "" && *save == "") {
		fs.Usage()
		return flag.ErrHelp
	}

	return withBrowser(ctx, *url, func(p capture.Provider) error {
		buf, err := e.kit.CaptureScreenshot(ctx, p, *selector)
		if err != nil {
			return err
		}
		if *out != "" {
			if err := os.WriteFile(*out, buf, 0o644); err != nil {
				return err
			}
			e.logger.Info("wrote screenshot", zap.String("path", *out))
		}
		if *save != "" {
			if err := e.kit.SaveReferenceScreenshot(*save, buf); err != nil {
				return err
			}
			e.logger.Info("saved reference", zap.String("name", *save), zap.String("dir", e.cfg.Reference.Dir))
		}
		return nil
	})
}

func runRefs(_ context.Context, e *env, args []string) error {
	fs := newFlagSet("refs")
	if err := fs.Parse(args); err != nil {
		return err
	}
	names, err := e.kit.ListReferenceScreenshots()
	if err != nil {
		return err
	}
	for _, name := range names {
		size := "?"
		if info, err := os.Stat(e.kit.ReferencePath(name)); err == nil {
			size = utils.FormatFileSize(info.Size())
		}
		fmt.Printf("%-40s %s\n", name, size)
	}
	return nil
}

// withBrowser opens url in a headless Chrome tab and runs fn against it.
func withBrowser(ctx context.Context, url string, fn func(capture.Provider) error) error {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, chromedp.DefaultExecAllocatorOptions[:]...)
	defer cancelAlloc()
	tab, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	if err := chromedp.Run(tab, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return fn(cdpcapture.New(tab))
}
