package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/screen-ocr/internal/candidate"
	"github.com/ironsheep/screen-ocr/internal/detection"
	"github.com/ironsheep/screen-ocr/internal/imaging"
)

// Dumper receives diagnostic artifacts of a run. The debug package
// provides the file-backed implementation.
type Dumper interface {
	Enabled() bool
	Logf(format string, args ...interface{})
	Save(img image.Image, name string)
}

// sessionDumper is implemented by dumpers that tag their output with the
// session ID of a run.
type sessionDumper interface {
	WithSession(id string) Dumper
}

// sessionDump returns the dumper for one run, or nil when dumping is off.
func (s *Service) sessionDump(session string) Dumper {
	if s.dumper == nil || !s.dumper.Enabled() {
		return nil
	}
	if sd, ok := s.dumper.(sessionDumper); ok {
		return sd.WithSession(session)
	}
	return s.dumper
}

// Config tunes a Service. Zero values select the defaults.
type Config struct {
	BatchSize  int
	Prepare    imaging.PrepareOptions
	Thresholds Thresholds

	// SystemLanguages are the BCP-47 tags used for the auto and system
	// language modes. Defaults to en-US.
	SystemLanguages []string

	Dumper Dumper
}

// Options are the per-call settings of PerformOCR.
type Options struct {
	Accuracy AccuracyMode
	Language LanguageMode
}

// Result describes a completed run.
type Result struct {
	Text string `json:"text"`

	// Label is the candidate the text came from.
	Label string `json:"label,omitempty"`

	// Strong reports whether the search stopped early on a strong result.
	Strong bool `json:"strong"`

	// Retried reports whether the run was repeated at High accuracy.
	Retried bool `json:"retried,omitempty"`

	Accuracy       string            `json:"accuracy"`
	Candidates     []CandidateResult `json:"candidates"`
	Attempts       int               `json:"attempts"`
	Batches        int               `json:"batches"`
	RegionCount    int               `json:"region_count"`
	PreferInverted bool              `json:"prefer_inverted"`
	Scale          float64           `json:"scale"`
	Duration       time.Duration     `json:"duration_ns"`
	Session        string            `json:"session"`
}

// Service runs the recognition pipeline. Create one at start-up and share
// it.
type Service struct {
	recognizer      Recognizer
	detector        detection.BlockDetector
	scorer          Scorer
	batchSize       int
	prepare         imaging.PrepareOptions
	systemLanguages []string
	dumper          Dumper
	log             *logrus.Entry
}

// NewService creates a Service. det may be nil, in which case the region
// pass never runs. log may be nil to discard logs.
func NewService(rec Recognizer, det detection.BlockDetector, cfg Config, log *logrus.Entry) (*Service, error) {
	if rec == nil {
		return nil, errors.New("ocr: recognizer is required")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if len(cfg.SystemLanguages) == 0 {
		cfg.SystemLanguages = []string{"en-US"}
	}
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = logrus.NewEntry(l)
	}

	return &Service{
		recognizer:      rec,
		detector:        det,
		scorer:          NewScorer(cfg.Thresholds),
		batchSize:       cfg.BatchSize,
		prepare:         cfg.Prepare,
		systemLanguages: cfg.SystemLanguages,
		dumper:          cfg.Dumper,
		log:             log.WithField("component", "ocr"),
	}, nil
}

// Scorer returns the scorer used by the service.
func (s *Service) Scorer() Scorer {
	return s.scorer
}

// PerformOCR returns the best text found in img.
//
// An empty string means no text was found. Errors are an *Error with
// CodeInput for an image that cannot be processed, or ctx's error.
func (s *Service) PerformOCR(ctx context.Context, img image.Image, opts Options) (string, error) {
	res, err := s.Run(ctx, img, opts)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// ExtractText runs PerformOCR and retries once at High accuracy when a
// Standard run found nothing. The text is trimmed.
func (s *Service) ExtractText(ctx context.Context, img image.Image, opts Options) (string, error) {
	res, err := s.RunWithRetry(ctx, img, opts)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Text), nil
}

// RunWithRetry is Run with the High accuracy retry of ExtractText.
func (s *Service) RunWithRetry(ctx context.Context, img image.Image, opts Options) (*Result, error) {
	res, err := s.Run(ctx, img, opts)
	if err != nil {
		return nil, err
	}
	if opts.Accuracy != Standard || strings.TrimSpace(res.Text) != "" {
		return res, nil
	}

	s.log.WithField("session", res.Session).Info("No text at standard accuracy, retrying at high")
	retry, err := s.Run(ctx, img, Options{Accuracy: High, Language: opts.Language})
	if err != nil {
		return nil, err
	}
	retry.Retried = true
	return retry, nil
}

// Run executes the full pipeline once and reports how the text was found.
func (s *Service) Run(ctx context.Context, img image.Image, opts Options) (*Result, error) {
	if err := imaging.Validate(img); err != nil {
		return nil, NewInputError(err)
	}
	if opts.Language == "" {
		opts.Language = LanguageAuto
	}

	start := time.Now()
	session := uuid.NewString()
	log := s.log.WithFields(logrus.Fields{
		"session":  session,
		"accuracy": opts.Accuracy.String(),
		"language": string(opts.Language),
	})

	dump := s.sessionDump(session)
	a := s.analyze(ctx, img, opts.Accuracy, log)
	prepared, set, regions := a.Prepared, a.Set, a.Regions
	dumpCandidates(dump, opts, set)
	dumpRegions(dump, set.DetectionImage, regions)

	out, err := s.search(ctx, set.Candidates, runParams{
		mode:     opts.Accuracy,
		language: opts.Language,
		regions:  regions,
		log:      log,
	})
	if err != nil {
		return nil, err
	}
	text, label := out.text()

	res := &Result{
		Text:           text,
		Label:          label,
		Strong:         out.strong,
		Accuracy:       opts.Accuracy.String(),
		Candidates:     out.results,
		Batches:        out.batches,
		RegionCount:    len(regions),
		PreferInverted: set.PreferInverted,
		Scale:          prepared.Scale,
		Duration:       time.Since(start),
		Session:        session,
	}
	for _, r := range out.results {
		res.Attempts += r.Attempts
	}

	sc := ScoreText(text)
	log.WithFields(logrus.Fields{
		"label":    label,
		"strong":   out.strong,
		"batches":  out.batches,
		"attempts": res.Attempts,
		"letters":  sc.Letters,
		"duration": res.Duration.String(),
	}).Info("OCR finished")
	if dump != nil {
		dump.Logf("Final %s: letters=%d ratio=%.2f strong=%t", label, sc.Letters, sc.Ratio, out.strong)
	}
	return res, nil
}

// Analysis holds everything a run computes before recognition starts.
type Analysis struct {
	Prepared imaging.Prepared
	Set      candidate.Set

	// Regions found on Set.DetectionImage, in reading order.
	Regions []detection.Region
}

// Analyze prepares img, renders its candidates and detects text regions
// without recognizing anything.
func (s *Service) Analyze(ctx context.Context, img image.Image, mode AccuracyMode) (*Analysis, error) {
	if err := imaging.Validate(img); err != nil {
		return nil, NewInputError(err)
	}
	return s.analyze(ctx, img, mode, s.log.WithField("accuracy", mode.String())), nil
}

func (s *Service) analyze(ctx context.Context, img image.Image, mode AccuracyMode, log *logrus.Entry) *Analysis {
	prepared := imaging.Prepare(img, s.prepare)
	set := candidate.Generate(prepared.Image, mode.candidateMode())
	log.WithFields(logrus.Fields{
		"candidates":      strings.Join(set.Labels(), ","),
		"prefer_inverted": set.PreferInverted,
		"scale":           prepared.Scale,
		"enhanced":        prepared.Enhanced,
	}).Debug("Prepared candidates")
	for _, c := range set.Candidates {
		if len(c.Skipped) > 0 {
			log.WithField("candidate", c.Label).Debugf("Skipped render stages: %s", strings.Join(c.Skipped, ","))
		}
	}

	regions, err := detection.DetectRegions(ctx, s.detector, set.DetectionImage)
	if err != nil {
		log.WithError(NewDetectionError(err)).Warn("Continuing without text regions")
		regions = nil
	}
	log.WithField("regions", len(regions)).Debug("Detected text regions")

	return &Analysis{Prepared: prepared, Set: set, Regions: regions}
}

func dumpCandidates(dump Dumper, opts Options, set candidate.Set) {
	if dump == nil {
		return
	}
	dump.Logf("OCR mode=%s language=%s pipelines=%s", opts.Accuracy, opts.Language, strings.Join(set.Labels(), ", "))
	for i, c := range set.Candidates {
		dump.Save(c.Image, fmt.Sprintf("pipeline_%d_%s", i, c.Label))
	}
}

func dumpRegions(dump Dumper, img image.Image, regions []detection.Region) {
	if dump == nil {
		return
	}
	dump.Logf("Detected text regions: %d", len(regions))
	rects := make([]image.Rectangle, len(regions))
	for i, r := range regions {
		rects[i] = r.Pixels(img)
	}
	dump.Save(imaging.OverlayRects(img, rects, "#FF0000", 2), "detection_regions")
}
