package ports

import (
	"context"
	"time"

	"NewsAnalyzer/internal/domain"
)

// ArticleSource pulls candidate articles published within the last windowDays.
type ArticleSource interface {
	Fetch(ctx context.Context, query string, windowDays int) ([]domain.RawArticle, error)
}

// ArticleRepository persists enriched articles; URL uniqueness is enforced by the store.
type ArticleRepository interface {
	Exists(ctx context.Context, url string) (bool, error)
	Save(ctx context.Context, article domain.EnrichedArticle) (domain.EnrichedArticle, error)
	List(ctx context.Context, offset, limit int) ([]domain.EnrichedArticle, error)
	Count(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
}

// Scorer produces sentiment and reliability judgments for an article.
type Scorer interface {
	Score(ctx context.Context, title, body string) (domain.Score, error)
}

// LabelScore is one ranked entry returned by a classification capability.
type LabelScore struct {
	Label string
	Score float64
}

// SentimentClassifier returns sentiment labels ranked best first.
type SentimentClassifier interface {
	ClassifySentiment(ctx context.Context, text string) ([]LabelScore, error)
}

// ZeroShotClassifier scores text against caller-supplied candidate labels.
type ZeroShotClassifier interface {
	ClassifyZeroShot(ctx context.Context, text string, labels []string) ([]LabelScore, error)
}

// Notifier streams ingestion reports to Telegram or other channels.
type Notifier interface {
	PublishReport(ctx context.Context, report string) error
}

// PipelineObserver receives per-article outcomes (metrics, tracing).
type PipelineObserver interface {
	ObserveOutcome(outcome, reason string)
	ObserveBatch(fetched int, duration time.Duration)
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
