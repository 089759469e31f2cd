package usecase

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"NewsAnalyzer/internal/domain"
	"NewsAnalyzer/internal/ports"
)

const (
	labelReliable   = "reliable"
	labelUnreliable = "unreliable"
)

// ScorerOptions tune inference calls.
type ScorerOptions struct {
	Timeout       time.Duration
	MaxInputRunes int
}

// Scorer combines a sentiment capability and a zero-shot reliability capability.
type Scorer struct {
	sentiment   ports.SentimentClassifier
	reliability ports.ZeroShotClassifier
	timeout     time.Duration
	maxRunes    int
}

var _ ports.Scorer = (*Scorer)(nil)

// NewScorer wires both classification capabilities.
func NewScorer(sentiment ports.SentimentClassifier, reliability ports.ZeroShotClassifier, opts ScorerOptions) *Scorer {
	return &Scorer{
		sentiment:   sentiment,
		reliability: reliability,
		timeout:     opts.Timeout,
		maxRunes:    opts.MaxInputRunes,
	}
}

// Score classifies title and body together. Empty text fails with ErrInvalidInput;
// any capability failure, timeout or out-of-range output fails with ErrScoringUnavailable.
func (s *Scorer) Score(ctx context.Context, title, body string) (domain.Score, error) {
	text := strings.TrimSpace(strings.TrimSpace(title) + " " + strings.TrimSpace(body))
	if text == "" {
		return domain.Score{}, fmt.Errorf("%w: empty text", domain.ErrInvalidInput)
	}
	if s.sentiment == nil || s.reliability == nil {
		return domain.Score{}, fmt.Errorf("%w: classifier not configured", domain.ErrScoringUnavailable)
	}
	text = truncateRunes(text, s.maxRunes)

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	label, confidence, err := s.scoreSentiment(ctx, text)
	if err != nil {
		return domain.Score{}, fmt.Errorf("%w: sentiment: %w", domain.ErrScoringUnavailable, err)
	}

	unreliable, err := s.scoreReliability(ctx, text)
	if err != nil {
		return domain.Score{}, fmt.Errorf("%w: reliability: %w", domain.ErrScoringUnavailable, err)
	}

	return domain.Score{
		SentimentLabel:         label,
		SentimentScore:         confidence,
		ReliabilityProbability: unreliable,
	}, nil
}

func (s *Scorer) scoreSentiment(ctx context.Context, text string) (domain.SentimentLabel, float64, error) {
	ranked, err := s.sentiment.ClassifySentiment(ctx, text)
	if err != nil {
		return "", 0, err
	}
	if len(ranked) == 0 {
		return "", 0, fmt.Errorf("no sentiment labels returned")
	}

	best := ranked[0]
	if !inUnitRange(best.Score) {
		return "", 0, fmt.Errorf("sentiment score %v out of range", best.Score)
	}
	label, ok := normalizeSentiment(best.Label)
	if !ok {
		return "", 0, fmt.Errorf("unrecognised sentiment label %q", best.Label)
	}
	return label, best.Score, nil
}

// scoreReliability frames reliability as a forced choice and returns P(unreliable).
func (s *Scorer) scoreReliability(ctx context.Context, text string) (float64, error) {
	ranked, err := s.reliability.ClassifyZeroShot(ctx, text, []string{labelReliable, labelUnreliable})
	if err != nil {
		return 0, err
	}

	var reliable, unreliable float64
	var seenReliable, seenUnreliable bool
	for _, item := range ranked {
		if !inUnitRange(item.Score) {
			return 0, fmt.Errorf("%s score %v out of range", item.Label, item.Score)
		}
		switch strings.ToLower(strings.TrimSpace(item.Label)) {
		case labelReliable:
			reliable, seenReliable = item.Score, true
		case labelUnreliable:
			unreliable, seenUnreliable = item.Score, true
		}
	}
	if !seenReliable || !seenUnreliable {
		return 0, fmt.Errorf("reliability labels missing from result")
	}

	total := reliable + unreliable
	if total <= 0 {
		return 0, fmt.Errorf("reliability scores sum to zero")
	}
	return unreliable / total, nil
}

func normalizeSentiment(label string) (domain.SentimentLabel, bool) {
	switch strings.ToUpper(strings.TrimSpace(label)) {
	case "POSITIVE", "POS":
		return domain.SentimentPositive, true
	case "NEGATIVE", "NEG":
		return domain.SentimentNegative, true
	case "NEUTRAL", "NEU":
		return domain.SentimentNeutral, true
	default:
		return "", false
	}
}

func inUnitRange(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}

func truncateRunes(text string, max int) string {
	if max <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}
