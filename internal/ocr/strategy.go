package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/screen-ocr/internal/candidate"
	"github.com/ironsheep/screen-ocr/internal/detection"
)

// Stage names reported in CandidateResult.Stage and in logs.
const (
	StageQuick  = "quick"
	StageRegion = "region"
	StageFull   = "full"
)

// CandidateResult is the text one candidate produced.
type CandidateResult struct {
	Label string `json:"label"`
	Text  string `json:"text"`

	// Stage is the pass the text came from; empty when nothing was found.
	Stage string `json:"stage,omitempty"`

	// Attempts counts recognition calls made for the candidate.
	Attempts int `json:"attempts"`
}

// runParams are shared read-only by every candidate of a run.
type runParams struct {
	mode     AccuracyMode
	language LanguageMode
	regions  []detection.Region
	log      *logrus.Entry
}

// recognizeCandidate runs the quick, region and full passes on c.
func (s *Service) recognizeCandidate(ctx context.Context, c candidate.Candidate, p runParams) CandidateResult {
	res := CandidateResult{Label: c.Label}

	var recent, recentStage string
	note := func(stage, text string) {
		if strings.TrimSpace(text) != "" {
			recent, recentStage = text, stage
		}
	}

	quick := s.attempt(ctx, &res, p, StageQuick, s.request(c, nil, QuickConfig(p.mode), p.language))
	note(StageQuick, quick)
	if s.scorer.IsStrong(quick) {
		res.Text, res.Stage = quick, StageQuick
		return res
	}
	best, bestStage := quick, StageQuick

	if len(p.regions) > 0 {
		regionText := s.regionPass(ctx, &res, c, p)
		note(StageRegion, regionText)
		if s.scorer.IsStrong(regionText) {
			res.Text, res.Stage = regionText, StageRegion
			return res
		}
		if ScoreText(regionText).better(ScoreText(best)) {
			best, bestStage = regionText, StageRegion
		}
	}

	full := s.fullPass(ctx, &res, c, p)
	note(StageFull, full)
	if ScoreText(full).better(ScoreText(best)) {
		best, bestStage = full, StageFull
	}

	if !s.scorer.IsGood(best) && recent != "" {
		best, bestStage = recent, recentStage
	}
	if strings.TrimSpace(best) == "" {
		bestStage = ""
	}
	res.Text, res.Stage = best, bestStage
	return res
}

// regionPass recognizes each region with the ranked configs and joins the
// non-empty texts with newlines.
func (s *Service) regionPass(ctx context.Context, res *CandidateResult, c candidate.Candidate, p runParams) string {
	configs := RankedConfigs(p.mode)
	var lines []string

	for i := range p.regions {
		region := p.regions[i]
		for _, cfg := range configs {
			text := s.attempt(ctx, res, p, StageRegion, s.request(c, &region, cfg, p.language))
			if strings.TrimSpace(text) != "" {
				lines = append(lines, text)
				break
			}
		}
	}
	return strings.Join(lines, "\n")
}

// fullPass tries every ranked config with every fallback language mode and
// returns the first non-empty text, or the last text seen.
func (s *Service) fullPass(ctx context.Context, res *CandidateResult, c candidate.Candidate, p runParams) string {
	var last string
	for _, cfg := range RankedConfigs(p.mode) {
		for _, lm := range p.language.fallbackModes() {
			text := s.attempt(ctx, res, p, StageFull, s.request(c, nil, cfg, lm))
			last = text
			if strings.TrimSpace(text) != "" {
				return text
			}
		}
	}
	return last
}

func (s *Service) request(c candidate.Candidate, region *detection.Region, cfg RecognitionConfig, lm LanguageMode) Request {
	langs, auto := lm.hints(s.systemLanguages)
	return Request{
		Image:      c.Image,
		Region:     region,
		Config:     cfg,
		Languages:  langs,
		AutoDetect: auto,
	}
}

// attempt makes one recognition call. Failures are logged and count as no
// text.
func (s *Service) attempt(ctx context.Context, res *CandidateResult, p runParams, stage string, req Request) string {
	res.Attempts++
	text, err := s.callRecognizer(ctx, req)
	if err != nil {
		p.log.WithFields(logrus.Fields{
			"candidate": res.Label,
			"stage":     stage,
			"config":    req.Config.String(),
		}).WithError(NewEngineError(stage, res.Label, err)).Warn("Recognition attempt failed")
		return ""
	}
	return text
}

// callRecognizer converts an engine panic into an error.
func (s *Service) callRecognizer(ctx context.Context, req Request) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("recognizer panicked: %v", r)
		}
	}()
	return s.recognizer.Recognize(ctx, req)
}
