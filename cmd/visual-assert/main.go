package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"go.uber.org/zap"

	visualassert "github.com/menta2k/visual-assert"
	"github.com/menta2k/visual-assert/internal/backend"
	"github.com/menta2k/visual-assert/internal/config"
	"github.com/menta2k/visual-assert/pkg/ocr"
	"github.com/menta2k/visual-assert/pkg/ocr/tesseract"
	"github.com/menta2k/visual-assert/pkg/pixeldiff"
	"github.com/menta2k/visual-assert/pkg/verdict"
)

type command struct {
	usage string
	// recognition is true when the command needs the configured engine.
	recognition bool
	run         func(ctx context.Context, env *env, args []string) error
}

var commands = map[string]command{
	"diff":     {usage: "-a a.png -b b.png [-ignore-size] [-threshold 0.1]", run: runDiff},
	"compare":  {usage: "-reference name|path -actual path [-max 0]", run: runCompare},
	"color":    {usage: "-a #rrggbb -b #rrggbb", run: runColor},
	"labels":   {usage: "-in image [-expect a,b] [-top]", recognition: true, run: runLabels},
	"logos":    {usage: "-in image [-expect a,b]", recognition: true, run: runLogos},
	"text":     {usage: "-in image [-expect substring] [-none]", recognition: true, run: runText},
	"ocr":      {usage: "-in image", run: runOCR},
	"dominant": {usage: "-in image", recognition: true, run: runDominant},
	"corners":  {usage: "-color #rrggbb (-in image | -url URL -selector sel) [-size 10] [-overlay out.png]", recognition: true, run: runCorners},
	"shot":     {usage: "-url URL -selector sel (-out file | -save name)", run: runShot},
	"refs":     {usage: "", run: runRefs},
}

// env carries what every command needs.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	kit    *visualassert.Toolkit
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s [-config file] [-v] <command> [flags]\n\ncommands:\n", filepath.Base(os.Args[0]))
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %-9s %s\n", name, commands[name].usage)
	}
}

func main() {
	var configPath string
	var verbose bool
	var backendName string

	flag.StringVar(&configPath, "config", config.GetConfigPath(), "config file (JSON)")
	flag.BoolVar(&verbose, "v", false, "verbose development logging")
	flag.StringVar(&backendName, "backend", "", "recognition backend override: gcv|ollama|llamacpp|local")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}
	cmd, ok := commands[flag.Arg(0)]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", flag.Arg(0))
		usage()
		os.Exit(2)
	}

	logger := newLogger(verbose)
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}
	if backendName != "" {
		cfg.Recognition.Backend = backendName
		if err := cfg.Validate(); err != nil {
			logger.Fatal("invalid backend", zap.Error(err))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kit, closeEngine, err := newToolkit(ctx, cfg, logger, cmd.recognition)
	if err != nil {
		logger.Fatal("failed to initialize", zap.Error(err))
	}
	defer func() {
		if err := closeEngine(); err != nil {
			logger.Warn("failed to close recognition engine", zap.Error(err))
		}
	}()

	err = cmd.run(ctx, &env{cfg: cfg, logger: logger, kit: kit}, flag.Args()[1:])
	switch {
	case err == nil:
	case verdict.IsFailure(err):
		fmt.Fprintln(os.Stderr, "FAIL:", err)
		closeAndExit(closeEngine, logger, 1)
	case errors.Is(err, flag.ErrHelp):
		closeAndExit(closeEngine, logger, 2)
	default:
		logger.Error("command failed", zap.String("command", flag.Arg(0)), zap.Error(err))
		closeAndExit(closeEngine, logger, 3)
	}
}

func closeAndExit(closeEngine func() error, logger *zap.Logger, code int) {
	_ = closeEngine()
	_ = logger.Sync()
	os.Exit(code)
}

func newLogger(verbose bool) *zap.Logger {
	var logger *zap.Logger
	var err error
	if verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// newToolkit wires the toolkit from cfg. The configured recognition engine
// is only built when withEngine is set, so offline commands never dial out.
func newToolkit(ctx context.Context, cfg *config.Config, logger *zap.Logger, withEngine bool) (*visualassert.Toolkit, func() error, error) {
	tess := tesseract.New()
	opts := visualassert.Options{
		OCR:                  tess,
		OCRLanguage:          cfg.OCR.Language,
		ReferenceDir:         cfg.Reference.Dir,
		DiffThreshold:        pixeldiff.Tolerance(cfg.Diff.Threshold),
		IgnoreSizeDifference: cfg.Diff.IgnoreSizeDifference,
		ArtifactPath:         cfg.Diff.ArtifactPath,
		ArtifactFormat:       cfg.Diff.ArtifactFormat,
		PassBelow:            cfg.Diff.PassBelow,
		CornerSize:           cfg.Corners.Size,
		Logger:               logger,
	}

	closeEngine := func() error { return nil }
	if withEngine {
		reader := ocr.NewReader(tess, cfg.OCR.Language, logger.Named("ocr"))
		engine, err := backend.New(ctx, cfg.Recognition, reader, logger.Named(cfg.Recognition.Backend))
		if err != nil {
			return nil, nil, err
		}
		opts.Engine = engine
		closeEngine = engine.Close
		logger.Debug("recognition engine ready", zap.String("backend", cfg.Recognition.Backend))
	}

	return visualassert.NewWithOptions(opts), closeEngine, nil
}
