package newsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"NewsAnalyzer/internal/config"
	"NewsAnalyzer/internal/domain"
	"NewsAnalyzer/internal/ports"
)

const everythingPath = "/v2/everything"

// errMaximumResults marks NewsAPI's "maximumResultsReached" answer for pages
// beyond the plan's result cap.
var errMaximumResults = errors.New("maximum results reached")

// Client implements ports.ArticleSource against the NewsAPI "everything" endpoint.
type Client struct {
	baseURL       string
	apiKey        string
	language      string
	sortBy        string
	pageSize      int
	maxPages      int
	maxWindowDays int
	client        *http.Client
	limiter       *rate.Limiter
	logger        *slog.Logger
	now           func() time.Time
}

var _ ports.ArticleSource = (*Client)(nil)

// NewClient wires an HTTP client; nil client falls back to one with cfg.Timeout.
func NewClient(cfg config.NewsAPIConfig, client *http.Client, logger *slog.Logger) *Client {
	if client == nil {
		timeout := cfg.Timeout.Duration
		if timeout <= 0 {
			timeout = 20 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 100
	}
	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = 1
	}
	maxWindow := cfg.MaxWindowDays
	if maxWindow <= 0 {
		maxWindow = 30
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &Client{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:        cfg.APIKey,
		language:      cfg.Language,
		sortBy:        cfg.SortBy,
		pageSize:      pageSize,
		maxPages:      maxPages,
		maxWindowDays: maxWindow,
		client:        client,
		limiter:       rate.NewLimiter(limit, 1),
		logger:        logger,
		now:           time.Now,
	}
}

// Fetch returns every article published since now minus windowDays, optionally filtered by query.
func (c *Client) Fetch(ctx context.Context, query string, windowDays int) ([]domain.RawArticle, error) {
	if windowDays < 1 || windowDays > c.maxWindowDays {
		return nil, fmt.Errorf("%w: window must be between 1 and %d days, got %d",
			domain.ErrInvalidArgument, c.maxWindowDays, windowDays)
	}

	from := c.now().UTC().Add(-time.Duration(windowDays) * 24 * time.Hour)
	c.debug("fetch articles", "query", query, "window_days", windowDays, "from", from.Format(time.RFC3339))

	var results []domain.RawArticle
	for page := 1; page <= c.maxPages; page++ {
		pageURL, err := c.buildPageURL(query, from, page)
		if err != nil {
			return nil, err
		}

		resp, err := c.fetchPage(ctx, pageURL)
		if err != nil {
			if page > 1 && errors.Is(err, errMaximumResults) {
				c.debug("result cap reached, keeping fetched pages", "page", page, "count", len(results))
				break
			}
			return nil, fmt.Errorf("page %d: %w", page, err)
		}

		for _, item := range resp.Articles {
			results = append(results, toRawArticle(item))
		}
		c.debug("page fetched", "page", page, "count", len(resp.Articles), "total", resp.TotalResults)

		if len(resp.Articles) < c.pageSize || len(results) >= resp.TotalResults {
			break
		}
	}

	return results, nil
}

type everythingResponse struct {
	Status       string        `json:"status"`
	Code         string        `json:"code"`
	Message      string        `json:"message"`
	TotalResults int           `json:"totalResults"`
	Articles     []articleItem `json:"articles"`
}

type articleItem struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
}

func (c *Client) fetchPage(ctx context.Context, pageURL string) (*everythingResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "NewsAnalyzer/1.0")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request articles: %w", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", domain.ErrUpstreamUnavailable, err)
	}

	var parsed everythingResponse
	decodeErr := json.Unmarshal(body, &parsed)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || parsed.Code == "rateLimited":
		return nil, fmt.Errorf("%w: newsapi returned %s: %s", domain.ErrRateLimited, resp.Status, parsed.Message)
	case parsed.Code == "maximumResultsReached":
		return nil, fmt.Errorf("%w: %w: %s", domain.ErrUpstreamUnavailable, errMaximumResults, parsed.Message)
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, fmt.Errorf("%w: newsapi returned %s", domain.ErrUpstreamUnavailable, resp.Status)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: newsapi returned %s: %s %s",
			domain.ErrUpstreamUnavailable, resp.Status, parsed.Code, strings.TrimSpace(parsed.Message))
	case decodeErr != nil:
		return nil, fmt.Errorf("%w: decode response: %w", domain.ErrUpstreamUnavailable, decodeErr)
	case parsed.Status == "error":
		return nil, fmt.Errorf("%w: newsapi error %s: %s", domain.ErrUpstreamUnavailable, parsed.Code, parsed.Message)
	}

	return &parsed, nil
}

func (c *Client) buildPageURL(query string, from time.Time, page int) (string, error) {
	parsed, err := url.Parse(c.baseURL + everythingPath)
	if err != nil {
		return "", fmt.Errorf("invalid newsapi base url %s: %w", c.baseURL, err)
	}

	q := parsed.Query()
	if query = strings.TrimSpace(query); query != "" {
		q.Set("q", query)
	}
	q.Set("from", from.Format(time.RFC3339))
	if c.language != "" {
		q.Set("language", c.language)
	}
	if c.sortBy != "" {
		q.Set("sortBy", c.sortBy)
	}
	q.Set("pageSize", strconv.Itoa(c.pageSize))
	q.Set("page", strconv.Itoa(page))
	parsed.RawQuery = q.Encode()
	return parsed.String(), nil
}

func toRawArticle(item articleItem) domain.RawArticle {
	return domain.RawArticle{
		Title:       cleanText(item.Title),
		Body:        cleanText(item.Content),
		Summary:     cleanText(item.Description),
		SourceName:  strings.TrimSpace(item.Source.Name),
		URL:         strings.TrimSpace(item.URL),
		PublishedAt: strings.TrimSpace(item.PublishedAt),
	}
}

func (c *Client) debug(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
