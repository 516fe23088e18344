package ocr

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/screen-ocr/internal/candidate"
)

// DefaultBatchSize is the number of candidates recognized concurrently.
const DefaultBatchSize = 2

// searchOutcome is the fold of all candidate results of a run.
type searchOutcome struct {
	best      string
	bestScore Score
	bestLabel string

	// fallback is the text of the most recently folded candidate.
	fallback      string
	fallbackLabel string

	strong  bool
	batches int
	results []CandidateResult
}

// text returns the best text, or the fallback when no candidate was good.
func (o searchOutcome) text() (string, string) {
	if strings.TrimSpace(o.best) != "" {
		return o.best, o.bestLabel
	}
	return o.fallback, o.fallbackLabel
}

// search runs candidates in batches and stops after the first batch that
// produced a strong result. Candidates never fail on their own; the only
// error is ctx's, after which no further batch is started.
func (s *Service) search(ctx context.Context, cands []candidate.Candidate, p runParams) (searchOutcome, error) {
	var out searchOutcome

	for start := 0; start < len(cands); start += s.batchSize {
		end := min(start+s.batchSize, len(cands))
		batch := cands[start:end]
		results := make([]CandidateResult, len(batch))

		var g errgroup.Group
		g.SetLimit(s.batchSize)
		for i, c := range batch {
			i, c := i, c
			g.Go(func() error {
				results[i] = s.recognizeCandidate(ctx, c, p)
				return ctx.Err()
			})
		}
		err := g.Wait()
		out.batches++

		strongFound := false
		for _, r := range results {
			out.results = append(out.results, r)
			out.fallback, out.fallbackLabel = r.Text, r.Label

			sc := ScoreText(r.Text)
			p.log.WithFields(logrus.Fields{
				"candidate": r.Label,
				"stage":     r.Stage,
				"letters":   sc.Letters,
				"ratio":     sc.Ratio,
				"attempts":  r.Attempts,
			}).Debug("Candidate finished")

			if !s.scorer.good(sc) {
				continue
			}
			if sc.better(out.bestScore) {
				out.best, out.bestScore, out.bestLabel = r.Text, sc, r.Label
			}
			if s.scorer.strong(sc) {
				strongFound = true
			}
		}

		if strongFound && strings.TrimSpace(out.best) != "" {
			out.strong = true
			return out, nil
		}
		if err != nil {
			p.log.WithError(err).WithField("batches", out.batches).Warn("Search interrupted")
			return out, err
		}
	}
	return out, nil
}
