package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"NewsAnalyzer/internal/domain"
	"NewsAnalyzer/internal/logging"
	"NewsAnalyzer/internal/ports"
)

// AnalyzeRequest is a single caller-supplied article.
type AnalyzeRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Source  string `json:"source"`
	URL     string `json:"url"`
}

// AnalyzerOptions bound the external calls of a one-off analysis.
type AnalyzerOptions struct {
	ScoreTimeout time.Duration
	SaveTimeout  time.Duration
}

// Analyzer scores and stores one article outside of a batch.
type Analyzer struct {
	scorer     ports.Scorer
	repository ports.ArticleRepository
	opts       AnalyzerOptions
	logger     *slog.Logger
	now        func() time.Time
}

// NewAnalyzer builds the one-off analysis use case.
func NewAnalyzer(scorer ports.Scorer, repository ports.ArticleRepository, opts AnalyzerOptions, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Analyzer{
		scorer:     scorer,
		repository: repository,
		opts:       opts,
		logger:     logger.With("component", "analyzer"),
		now:        time.Now,
	}
}

// Analyze scores the article and persists it with the current time as its
// publication time. A URL that is already stored fails with ErrDuplicateURL.
func (a *Analyzer) Analyze(ctx context.Context, req AnalyzeRequest) (domain.EnrichedArticle, error) {
	title := strings.TrimSpace(req.Title)
	url := strings.TrimSpace(req.URL)
	content := strings.TrimSpace(req.Content)

	if title == "" || url == "" {
		return domain.EnrichedArticle{}, fmt.Errorf("%w: title and url are required", domain.ErrInvalidArgument)
	}
	if content == "" {
		return domain.EnrichedArticle{}, fmt.Errorf("%w: content is empty", domain.ErrInvalidInput)
	}

	scoreCtx, cancel := withOptionalTimeout(ctx, a.opts.ScoreTimeout)
	score, err := a.scorer.Score(scoreCtx, title, content)
	cancel()
	if err != nil {
		if !errors.Is(err, domain.ErrInvalidInput) && !errors.Is(err, domain.ErrScoringUnavailable) {
			err = fmt.Errorf("%w: %w", domain.ErrScoringUnavailable, err)
		}
		return domain.EnrichedArticle{}, fmt.Errorf("score article: %w", err)
	}
	if !validScore(score) {
		return domain.EnrichedArticle{}, fmt.Errorf("%w: score out of range", domain.ErrScoringUnavailable)
	}

	article := domain.Enrich(title, content, strings.TrimSpace(req.Source), url, a.now(), score)
	saveCtx, cancel := withOptionalTimeout(ctx, a.opts.SaveTimeout)
	saved, err := a.repository.Save(saveCtx, article)
	cancel()
	if err != nil {
		if !errors.Is(err, domain.ErrDuplicateURL) && !errors.Is(err, domain.ErrInvalidArgument) {
			err = asStoreError("save", err)
		}
		return domain.EnrichedArticle{}, fmt.Errorf("save article: %w", err)
	}

	a.logger.Info("article analyzed",
		"url", saved.URL,
		"sentiment", saved.SentimentLabel,
		"fake_news_probability", saved.ReliabilityProbability,
	)
	return saved, nil
}
