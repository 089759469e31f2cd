package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"NewsAnalyzer/internal/domain"
	"NewsAnalyzer/internal/logging"
	"NewsAnalyzer/internal/ports"
)

// Outcome labels reported to the PipelineObserver.
const (
	OutcomeProcessed = "processed"
	OutcomeSkipped   = "skipped"
	OutcomeError     = "error"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// PipelineOptions bound concurrency and per-call latency.
type PipelineOptions struct {
	Concurrency           int
	FetchTimeout          time.Duration
	ScoreTimeout          time.Duration
	SaveTimeout           time.Duration
	StoreFailureThreshold int
}

// PipelineDeps wires all driven adapters into the ingestion pipeline.
type PipelineDeps struct {
	Source     ports.ArticleSource
	Repository ports.ArticleRepository
	Scorer     ports.Scorer
	Observer   ports.PipelineObserver
	Logger     *slog.Logger
	Options    PipelineOptions
}

// Pipeline fetches, scores and stores articles, reporting one outcome per article.
type Pipeline struct {
	source     ports.ArticleSource
	repository ports.ArticleRepository
	scorer     ports.Scorer
	observer   ports.PipelineObserver
	logger     *slog.Logger
	opts       PipelineOptions

	now      func() time.Time
	newRunID func() string
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	opts := deps.Options
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}

	return &Pipeline{
		source:     deps.Source,
		repository: deps.Repository,
		scorer:     deps.Scorer,
		observer:   deps.Observer,
		logger:     logger.With("component", "pipeline"),
		opts:       opts,
		now:        time.Now,
		newRunID:   uuid.NewString,
	}
}

type outcomeKind int

const (
	outcomePending outcomeKind = iota
	outcomeProcessed
	outcomeSkipped
	outcomeFailed
)

type articleOutcome struct {
	kind         outcomeKind
	url          string
	reason       string
	metricReason string
	storeFailure bool
}

func processed(url string) articleOutcome {
	return articleOutcome{kind: outcomeProcessed, url: url}
}

func skipped(url, reason string) articleOutcome {
	return articleOutcome{kind: outcomeSkipped, url: url, reason: reason, metricReason: reason}
}

func failed(url, metricReason string, err error) articleOutcome {
	return articleOutcome{kind: outcomeFailed, url: url, reason: err.Error(), metricReason: metricReason}
}

// Ingest runs one batch for query over the last windowDays days. When ctx is
// cancelled mid-batch the partial result is returned together with the
// context error; articles already stored stay stored.
func (p *Pipeline) Ingest(ctx context.Context, query string, windowDays int) (domain.IngestResult, error) {
	if windowDays < 1 {
		return domain.IngestResult{}, fmt.Errorf("%w: window must be at least 1 day, got %d",
			domain.ErrInvalidArgument, windowDays)
	}
	if p.source == nil || p.repository == nil || p.scorer == nil {
		return domain.IngestResult{}, fmt.Errorf("pipeline is not fully wired")
	}

	started := p.now()
	runID := p.newRunID()
	logger := p.logger.With("run_id", runID, "query", query, "window_days", windowDays)

	fetchCtx, cancel := withOptionalTimeout(ctx, p.opts.FetchTimeout)
	raw, err := p.source.Fetch(fetchCtx, query, windowDays)
	cancel()
	if err != nil {
		logger.Warn("fetch failed", "error", err)
		return domain.IngestResult{}, fmt.Errorf("fetch articles: %w", err)
	}

	outcomes := make([]articleOutcome, len(raw))

	var g errgroup.Group
	g.SetLimit(p.opts.Concurrency)
	for i := range raw {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			outcomes[i] = p.processArticle(ctx, logger, i, raw[i])
			return nil
		})
	}
	_ = g.Wait()

	result := p.aggregate(runID, len(raw), outcomes)
	result.Duration = p.now().Sub(started)

	if p.observer != nil {
		p.observer.ObserveBatch(result.Fetched, result.Duration)
	}

	if threshold := p.opts.StoreFailureThreshold; threshold > 0 {
		if failures := countStoreFailures(outcomes); failures >= threshold {
			warning := fmt.Sprintf("%d store failures in one batch (threshold %d): repository may be unavailable",
				failures, threshold)
			result.Warnings = append(result.Warnings, warning)
			logger.Warn("store failure threshold reached", "failures", failures, "threshold", threshold)
		}
	}

	logger.Info("ingestion finished",
		"fetched", result.Fetched,
		"processed", result.Processed,
		"skipped", result.Skipped,
		"errors", len(result.Errors),
		"duration", result.Duration,
	)

	if pending := result.Fetched - result.Accounted(); pending > 0 {
		logger.Warn("ingestion cancelled", "unprocessed", pending)
		return result, fmt.Errorf("ingestion cancelled with %d articles unprocessed: %w", pending, ctx.Err())
	}

	return result, nil
}

func (p *Pipeline) aggregate(runID string, fetched int, outcomes []articleOutcome) domain.IngestResult {
	result := domain.IngestResult{
		RunID:   runID,
		Fetched: fetched,
		Errors:  []domain.ItemFailure{},
		Skips:   []domain.ItemFailure{},
	}

	for _, o := range outcomes {
		switch o.kind {
		case outcomeProcessed:
			result.Processed++
			p.observe(OutcomeProcessed, "")
		case outcomeSkipped:
			result.Skipped++
			result.Skips = append(result.Skips, domain.ItemFailure{URL: o.url, Reason: o.reason})
			p.observe(OutcomeSkipped, o.metricReason)
		case outcomeFailed:
			result.Errors = append(result.Errors, domain.ItemFailure{URL: o.url, Reason: o.reason})
			p.observe(OutcomeError, o.metricReason)
		}
	}

	result.Sort()
	return result
}

func (p *Pipeline) observe(outcome, reason string) {
	if p.observer != nil {
		p.observer.ObserveOutcome(outcome, reason)
	}
}

// processArticle carries one article to a terminal outcome. Outcomes for
// different articles never depend on each other.
func (p *Pipeline) processArticle(ctx context.Context, logger *slog.Logger, index int, raw domain.RawArticle) articleOutcome {
	if ctx.Err() != nil {
		return articleOutcome{}
	}

	url := strings.TrimSpace(raw.URL)
	label := url
	if label == "" {
		label = fmt.Sprintf("article#%d", index)
	}

	outcome := p.runSteps(ctx, label, url, raw)
	switch outcome.kind {
	case outcomeProcessed:
		logger.Debug("article stored", "url", label)
	case outcomeSkipped:
		logger.Debug("article skipped", "url", label, "reason", outcome.reason)
	case outcomeFailed:
		logger.Debug("article failed", "url", label, "reason", outcome.reason)
	}
	return outcome
}

func (p *Pipeline) runSteps(ctx context.Context, label, url string, raw domain.RawArticle) articleOutcome {
	publishedAt, ok := parseTimestamp(raw.PublishedAt)
	if !ok {
		return skipped(label, domain.ReasonUnparseableTimestamp)
	}

	body := strings.TrimSpace(raw.Body)
	if body == "" {
		body = strings.TrimSpace(raw.Summary)
	}
	if body == "" {
		return skipped(label, domain.ReasonEmptyContent)
	}

	if url == "" {
		return failed(label, "missing_url", errors.New(domain.ReasonMissingURL))
	}

	existsCtx, cancel := withOptionalTimeout(ctx, p.opts.SaveTimeout)
	exists, err := p.repository.Exists(existsCtx, url)
	cancel()
	if err != nil {
		o := failed(label, "store_unavailable", asStoreError("check existing", err))
		o.storeFailure = true
		return o
	}
	if exists {
		return skipped(label, domain.ReasonDuplicate)
	}

	title := strings.TrimSpace(raw.Title)

	scoreCtx, cancel := withOptionalTimeout(ctx, p.opts.ScoreTimeout)
	score, err := p.scorer.Score(scoreCtx, title, body)
	cancel()
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return failed(label, "invalid_input", err)
		}
		if !errors.Is(err, domain.ErrScoringUnavailable) {
			err = fmt.Errorf("%w: %w", domain.ErrScoringUnavailable, err)
		}
		return failed(label, "scoring_unavailable", err)
	}
	if !validScore(score) {
		return failed(label, "scoring_unavailable",
			fmt.Errorf("%w: score out of range (%s %.4f, reliability %.4f)", domain.ErrScoringUnavailable,
				score.SentimentLabel, score.SentimentScore, score.ReliabilityProbability))
	}

	article := domain.Enrich(title, body, strings.TrimSpace(raw.SourceName), url, publishedAt, score)

	saveCtx, cancel := withOptionalTimeout(ctx, p.opts.SaveTimeout)
	_, err = p.repository.Save(saveCtx, article)
	cancel()
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateURL) {
			return skipped(label, domain.ReasonDuplicate)
		}
		o := failed(label, "store_unavailable", asStoreError("save", err))
		o.storeFailure = true
		return o
	}

	return processed(label)
}

func parseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

func validScore(s domain.Score) bool {
	return s.SentimentLabel.Valid() && inUnitRange(s.SentimentScore) && inUnitRange(s.ReliabilityProbability)
}

func asStoreError(op string, err error) error {
	if errors.Is(err, domain.ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrStoreUnavailable, op, err)
}

func countStoreFailures(outcomes []articleOutcome) int {
	n := 0
	for _, o := range outcomes {
		if o.storeFailure {
			n++
		}
	}
	return n
}

func withOptionalTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
