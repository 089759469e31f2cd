// Package metrics exports ingestion pipeline counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"NewsAnalyzer/internal/ports"
)

const namespace = "news_analyzer"

// Metrics holds the pipeline Prometheus collectors.
type Metrics struct {
	ArticlesTotal *prometheus.CounterVec
	BatchesTotal  prometheus.Counter
	FetchedTotal  prometheus.Counter
	BatchDuration prometheus.Histogram
	registry      *prometheus.Registry
}

var _ ports.PipelineObserver = (*Metrics)(nil)

// New registers the collectors on a dedicated registry so that several
// instances (one per test) never collide.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		ArticlesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_total",
			Help:      "Articles by terminal outcome (processed, skipped, error) and reason",
		}, []string{"outcome", "reason"}),
		BatchesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Completed ingestion batches",
		}),
		FetchedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetched_articles_total",
			Help:      "Articles returned by the news source",
		}),
		BatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Wall time of one ingestion batch",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		registry: reg,
	}
}

// ObserveOutcome counts one article outcome.
func (m *Metrics) ObserveOutcome(outcome, reason string) {
	m.ArticlesTotal.WithLabelValues(outcome, reason).Inc()
}

// ObserveBatch records a finished batch.
func (m *Metrics) ObserveBatch(fetched int, duration time.Duration) {
	m.BatchesTotal.Inc()
	m.FetchedTotal.Add(float64(fetched))
	m.BatchDuration.Observe(duration.Seconds())
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
