// Package api exposes the ingestion and analysis use cases over HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"NewsAnalyzer/internal/domain"
	"NewsAnalyzer/internal/logging"
	"NewsAnalyzer/internal/usecase"
)

// Ingester runs one ingestion batch.
type Ingester interface {
	Ingest(ctx context.Context, query string, windowDays int) (domain.IngestResult, error)
}

// Analyzer scores and stores a single article.
type Analyzer interface {
	Analyze(ctx context.Context, req usecase.AnalyzeRequest) (domain.EnrichedArticle, error)
}

// ArticleStore is the read side of the repository used by the handlers.
type ArticleStore interface {
	List(ctx context.Context, offset, limit int) ([]domain.EnrichedArticle, error)
	Count(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
}

// Options tune request defaults.
type Options struct {
	ProjectName  string
	DefaultDays  int
	DefaultLimit int
	MaxLimit     int
}

// Handler serves the news analyzer endpoints.
type Handler struct {
	ingester Ingester
	analyzer Analyzer
	store    ArticleStore
	opts     Options
	logger   *slog.Logger
}

// NewHandler creates the HTTP handler set.
func NewHandler(ingester Ingester, analyzer Analyzer, store ArticleStore, opts Options, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.Discard()
	}
	if opts.DefaultDays < 1 {
		opts.DefaultDays = 1
	}
	if opts.DefaultLimit < 1 {
		opts.DefaultLimit = 10
	}
	if opts.MaxLimit < opts.DefaultLimit {
		opts.MaxLimit = opts.DefaultLimit
	}
	return &Handler{
		ingester: ingester,
		analyzer: analyzer,
		store:    store,
		opts:     opts,
		logger:   logger.With("component", "api"),
	}
}

// FetchNews handles POST /fetch-news?query=&days=.
func (h *Handler) FetchNews(c *gin.Context) {
	days, ok := intQuery(c, "days", h.opts.DefaultDays)
	if !ok {
		return
	}

	result, err := h.ingester.Ingest(c.Request.Context(), c.Query("query"), days)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListArticles handles GET /articles?skip=&limit=. The total row count is
// returned in the X-Total-Count header.
func (h *Handler) ListArticles(c *gin.Context) {
	skip, ok := intQuery(c, "skip", 0)
	if !ok {
		return
	}
	limit, ok := intQuery(c, "limit", h.opts.DefaultLimit)
	if !ok {
		return
	}
	if skip < 0 || limit < 1 || limit > h.opts.MaxLimit {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "skip must be >= 0 and limit between 1 and " + strconv.Itoa(h.opts.MaxLimit),
		})
		return
	}

	articles, err := h.store.List(c.Request.Context(), skip, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if total, countErr := h.store.Count(c.Request.Context()); countErr == nil {
		c.Header("X-Total-Count", strconv.Itoa(total))
	} else {
		h.logger.Warn("count articles failed", "error", countErr)
	}

	c.JSON(http.StatusOK, articles)
}

// Analyze handles POST /analyze.
func (h *Handler) Analyze(c *gin.Context) {
	var req usecase.AnalyzeRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindErr.Error()})
		return
	}

	article, err := h.analyzer.Analyze(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, article)
}

// Health handles GET /health.
func (h *Handler) Health(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
			"error":  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": h.opts.ProjectName,
	})
}

func (h *Handler) respondError(c *gin.Context, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// StatusFor maps a domain error onto an HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrDuplicateURL):
		return http.StatusConflict
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrScoringUnavailable), errors.Is(err, domain.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func intQuery(c *gin.Context, key string, fallback int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": key + " must be an integer"})
		return 0, false
	}
	return v, true
}
