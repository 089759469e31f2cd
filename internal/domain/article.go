package domain

import "time"

// RawArticle is a candidate article as returned by the upstream provider.
type RawArticle struct {
	Title       string
	Body        string
	Summary     string
	SourceName  string
	URL         string
	PublishedAt string
}

// SentimentLabel is the polarity reported by the scorer.
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "POSITIVE"
	SentimentNegative SentimentLabel = "NEGATIVE"
	SentimentNeutral  SentimentLabel = "NEUTRAL"
)

// Valid reports whether the label belongs to the known scheme.
func (l SentimentLabel) Valid() bool {
	switch l {
	case SentimentPositive, SentimentNegative, SentimentNeutral:
		return true
	}
	return false
}

// Score holds both judgments produced for a single text.
type Score struct {
	SentimentLabel         SentimentLabel
	SentimentScore         float64
	ReliabilityProbability float64
}

// EnrichedArticle is the persisted, scored form of an article.
type EnrichedArticle struct {
	ID                     int64          `json:"id"`
	Title                  string         `json:"title"`
	Content                string         `json:"content"`
	SourceName             string         `json:"source"`
	URL                    string         `json:"url"`
	PublishedAt            time.Time      `json:"published_at"`
	SentimentLabel         SentimentLabel `json:"sentiment_label"`
	SentimentScore         float64        `json:"sentiment_score"`
	ReliabilityProbability float64        `json:"fake_news_probability"`
	CreatedAt              time.Time      `json:"created_at"`
}

// Enrich combines normalized article fields with a score.
func Enrich(title, content, source, url string, publishedAt time.Time, score Score) EnrichedArticle {
	return EnrichedArticle{
		Title:                  title,
		Content:                content,
		SourceName:             source,
		URL:                    url,
		PublishedAt:            publishedAt.UTC(),
		SentimentLabel:         score.SentimentLabel,
		SentimentScore:         score.SentimentScore,
		ReliabilityProbability: score.ReliabilityProbability,
	}
}
