package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/screen-ocr/internal/capture"
	"github.com/ironsheep/screen-ocr/internal/config"
	"github.com/ironsheep/screen-ocr/internal/debug"
	"github.com/ironsheep/screen-ocr/internal/detection"
	"github.com/ironsheep/screen-ocr/internal/gemini"
	"github.com/ironsheep/screen-ocr/internal/imaging"
	"github.com/ironsheep/screen-ocr/internal/logging"
	"github.com/ironsheep/screen-ocr/internal/ocr"
	"github.com/ironsheep/screen-ocr/internal/pdf"
	"github.com/ironsheep/screen-ocr/internal/server"
	"github.com/ironsheep/screen-ocr/internal/tesseract"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("screen-ocr %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			fmt.Printf("  Tesseract:  %s\n", tesseract.Version())
			return
		case "--help", "-h", "help":
			printHelp(os.Stdout)
			return
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "screen-ocr: %v\n", err)
		os.Exit(2)
	}

	logger := logging.New(cfg.LogLevel)
	log := logging.Component(logger, "main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, dumper, closeEngine, err := buildService(ctx, cfg, logger)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize OCR")
	}
	defer func() {
		if err := closeEngine(); err != nil {
			log.WithError(err).Warn("Failed to close OCR engine")
		}
	}()

	defaults, err := defaultOptions(cfg)
	if err != nil {
		log.WithError(err).Fatal("Invalid defaults")
	}

	if len(os.Args) > 1 && os.Args[1] == "ocr" {
		code := runOCR(ctx, svc, defaults, os.Args[2:], os.Stdout, os.Stderr, logging.Component(logger, "cli"))
		if err := closeEngine(); err != nil {
			log.WithError(err).Warn("Failed to close OCR engine")
		}
		stop()
		os.Exit(code)
	}

	log.WithFields(logrus.Fields{
		"version": Version,
		"commit":  GitCommit,
		"engine":  cfg.Engine,
	}).Info("Screen OCR MCP server starting")

	srv := server.New(svc, server.Options{
		Defaults: defaults,
		Capture: capture.ControllerOptions{
			Debounce: cfg.CaptureDebounce(),
			Dumper:   dumper,
		},
		Version: Version,
	}, logging.Component(logger, "server"))
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		log.WithError(err).Fatal("Server error")
	}
}

// buildService wires the configured engine, detector and debug dumper into
// an ocr.Service. The returned func releases the engine and the debug log.
func buildService(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*ocr.Service, *debug.Dumper, func() error, error) {
	dumper := debug.New(cfg.DebugDir, logging.Component(logger, "debug"))
	if dumper.Enabled() {
		if err := dumper.PrepareDir(); err != nil {
			return nil, nil, nil, err
		}
		logger.WithField("dir", dumper.Dir()).Info("Debug dumps enabled")
	}

	var (
		rec     ocr.Recognizer
		det     detection.BlockDetector
		closeFn = func() error { return nil }
	)
	switch cfg.Engine {
	case config.EngineGemini:
		g, err := gemini.New(ctx, gemini.Options{
			APIKey:    cfg.GeminiAPIKey,
			Model:     cfg.GeminiModel,
			FastModel: cfg.GeminiFastModel,
		}, logging.Component(logger, "gemini"))
		if err != nil {
			return nil, nil, nil, err
		}
		rec = g
		det = &detection.EdgeDensityDetector{}
		closeFn = g.Close
	default:
		t := tesseract.New(tesseract.Options{
			TessdataPrefix: cfg.TessdataPrefix,
			AutoLanguages:  cfg.AutoLanguages,
		}, logging.Component(logger, "tesseract"))
		rec = t
		det = t
		closeFn = t.Close
	}
	closeEngine := closeFn
	closeFn = func() error {
		return errors.Join(closeEngine(), dumper.Close())
	}

	svc, err := ocr.NewService(rec, det, ocr.Config{
		BatchSize: cfg.BatchSize,
		Prepare: imaging.PrepareOptions{
			MaxWorkingDimension: cfg.MaxDimension,
			MinEnhanceArea:      cfg.MinEnhanceArea,
		},
		Thresholds: ocr.Thresholds{
			StrongLetters: cfg.StrongLetters,
			StrongRatio:   cfg.StrongRatio,
			GoodRatio:     cfg.GoodRatio,
		},
		SystemLanguages: cfg.SystemLanguages,
		Dumper:          dumper,
	}, logrus.NewEntry(logger))
	if err != nil {
		if cerr := closeFn(); cerr != nil {
			logger.WithError(cerr).Warn("Failed to close OCR engine")
		}
		return nil, nil, nil, err
	}
	return svc, dumper, closeFn, nil
}

func defaultOptions(cfg *config.Config) (ocr.Options, error) {
	acc, err := ocr.ParseAccuracyMode(cfg.Accuracy)
	if err != nil {
		return ocr.Options{}, err
	}
	lang, err := ocr.ParseLanguageMode(cfg.Language)
	if err != nil {
		return ocr.Options{}, err
	}
	return ocr.Options{Accuracy: acc, Language: lang}, nil
}

// runOCR implements the one-shot "ocr <file>" command and returns the exit
// code: 0 when text was found, 1 when none was, 2 on errors. PDF files are
// recognized page by page.
func runOCR(ctx context.Context, svc *ocr.Service, defaults ocr.Options, args []string, stdout, stderr io.Writer, log *logrus.Entry) int {
	fs := flag.NewFlagSet("ocr", flag.ContinueOnError)
	fs.SetOutput(stderr)
	accuracy := fs.String("accuracy", defaults.Accuracy.String(), "standard or high")
	language := fs.String("language", string(defaults.Language), "auto, system, english, russian or a BCP-47 tag")
	noRetry := fs.Bool("no-retry", false, "do not retry at high accuracy when nothing is found")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "usage: screen-ocr ocr [-accuracy standard|high] [-language mode] [-no-retry] <image|pdf>")
		return 2
	}

	acc, err := ocr.ParseAccuracyMode(*accuracy)
	if err != nil {
		fmt.Fprintf(stderr, "screen-ocr: %v\n", err)
		return 2
	}
	lang, err := ocr.ParseLanguageMode(*language)
	if err != nil {
		fmt.Fprintf(stderr, "screen-ocr: %v\n", err)
		return 2
	}

	opts := ocr.Options{Accuracy: acc, Language: lang}
	text, err := recognizeFile(ctx, svc, fs.Arg(0), opts, !*noRetry, log)
	if err != nil {
		fmt.Fprintf(stderr, "screen-ocr: %v\n", err)
		return 2
	}
	text = strings.TrimSpace(text)
	if text == "" {
		fmt.Fprintln(stderr, "Could not recognize any text.")
		return 1
	}
	fmt.Fprintln(stdout, text)
	return 0
}

func recognizeFile(ctx context.Context, svc *ocr.Service, path string, opts ocr.Options, retry bool, log *logrus.Entry) (string, error) {
	if pdf.IsPDF(path) {
		res, err := pdf.ExtractText(ctx, svc, path, opts, log)
		if err != nil {
			return "", err
		}
		return res.Text, nil
	}

	img, err := imaging.NewImageCache().Load(path)
	if err != nil {
		return "", err
	}
	var res *ocr.Result
	if retry {
		res, err = svc.RunWithRetry(ctx, img, opts)
	} else {
		res, err = svc.Run(ctx, img, opts)
	}
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

func printHelp(w io.Writer) {
	fmt.Fprintln(w, "screen-ocr - text recognition for screen captures")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  screen-ocr                 Run the MCP server on stdin/stdout")
	fmt.Fprintln(w, "  screen-ocr ocr <image>     Print the text of an image")
	fmt.Fprintln(w, "  screen-ocr ocr <pdf>       Print the text of a scanned PDF, page by page")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	fmt.Fprintln(w, "  --version, -v    Print version information")
	fmt.Fprintln(w, "  --help, -h       Print this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment variables (also read from .env):")
	fmt.Fprintln(w, "  SCREENOCR_ENGINE=tesseract|gemini    Recognition engine")
	fmt.Fprintln(w, "  SCREENOCR_ACCURACY=standard|high     Default accuracy")
	fmt.Fprintln(w, "  SCREENOCR_LANGUAGE=auto              Default language mode")
	fmt.Fprintln(w, "  SCREENOCR_LANGUAGES=en-US,ru-RU      Languages tried by auto-detection")
	fmt.Fprintln(w, "  SCREENOCR_LOG_LEVEL=debug            Log level (logs go to stderr)")
	fmt.Fprintln(w, "  SCREENOCR_DEBUG_DIR=/tmp/screen-ocr  Write candidate images and a debug log")
	fmt.Fprintln(w, "  GEMINI_API_KEY=...                   Required for the gemini engine")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "In server mode, configure it in your MCP client (e.g., Claude Desktop).")
}
