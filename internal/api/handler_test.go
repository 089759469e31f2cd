package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsAnalyzer/internal/api"
	"NewsAnalyzer/internal/domain"
	"NewsAnalyzer/internal/usecase"
)

type mockIngester struct {
	ingestFunc func(query string, days int) (domain.IngestResult, error)
}

func (m *mockIngester) Ingest(_ context.Context, query string, days int) (domain.IngestResult, error) {
	if m.ingestFunc != nil {
		return m.ingestFunc(query, days)
	}
	return domain.IngestResult{}, nil
}

type mockAnalyzer struct {
	analyzeFunc func(req usecase.AnalyzeRequest) (domain.EnrichedArticle, error)
}

func (m *mockAnalyzer) Analyze(_ context.Context, req usecase.AnalyzeRequest) (domain.EnrichedArticle, error) {
	if m.analyzeFunc != nil {
		return m.analyzeFunc(req)
	}
	return domain.EnrichedArticle{}, nil
}

type mockStore struct {
	listFunc func(offset, limit int) ([]domain.EnrichedArticle, error)
	total    int
	pingErr  error
}

func (m *mockStore) List(_ context.Context, offset, limit int) ([]domain.EnrichedArticle, error) {
	if m.listFunc != nil {
		return m.listFunc(offset, limit)
	}
	return []domain.EnrichedArticle{}, nil
}

func (m *mockStore) Count(context.Context) (int, error) { return m.total, nil }

func (m *mockStore) Ping(context.Context) error { return m.pingErr }

func setupTestRouter(t *testing.T, ing api.Ingester, an api.Analyzer, store api.ArticleStore) *gin.Engine {
	t.Helper()

	gin.SetMode(gin.TestMode)

	h := api.NewHandler(ing, an, store, api.Options{
		ProjectName:  "News Analyzer",
		DefaultDays:  1,
		DefaultLimit: 10,
		MaxLimit:     100,
	}, nil)
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("# metrics"))
	})
	return api.NewRouter(h, metrics, "/api/v1", nil)
}

func doRequest(t *testing.T, router *gin.Engine, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()

	req, err := http.NewRequestWithContext(t.Context(), method, target, bytes.NewBuffer(body))
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestFetchNews_Success(t *testing.T) {
	var gotQuery string
	var gotDays int
	ing := &mockIngester{ingestFunc: func(query string, days int) (domain.IngestResult, error) {
		gotQuery, gotDays = query, days
		return domain.IngestResult{
			RunID:     "run-1",
			Fetched:   3,
			Processed: 2,
			Skipped:   1,
			Errors:    []domain.ItemFailure{},
			Skips:     []domain.ItemFailure{{URL: "https://x", Reason: domain.ReasonDuplicate}},
		}, nil
	}}
	router := setupTestRouter(t, ing, &mockAnalyzer{}, &mockStore{})

	w := doRequest(t, router, http.MethodPost, "/api/v1/fetch-news?query=climate&days=3", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, "climate", gotQuery)
	assert.Equal(t, 3, gotDays)

	var result domain.IngestResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, domain.ReasonDuplicate, result.Skips[0].Reason)
}

func TestFetchNews_DefaultsDays(t *testing.T) {
	var gotDays int
	ing := &mockIngester{ingestFunc: func(_ string, days int) (domain.IngestResult, error) {
		gotDays = days
		return domain.IngestResult{}, nil
	}}
	router := setupTestRouter(t, ing, &mockAnalyzer{}, &mockStore{})

	w := doRequest(t, router, http.MethodPost, "/api/v1/fetch-news", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, gotDays)
}

func TestFetchNews_ErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: window", domain.ErrInvalidArgument), http.StatusBadRequest},
		{fmt.Errorf("fetch: %w", domain.ErrRateLimited), http.StatusTooManyRequests},
		{fmt.Errorf("fetch: %w", domain.ErrUpstreamUnavailable), http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		ing := &mockIngester{ingestFunc: func(string, int) (domain.IngestResult, error) {
			return domain.IngestResult{}, tc.err
		}}
		router := setupTestRouter(t, ing, &mockAnalyzer{}, &mockStore{})

		w := doRequest(t, router, http.MethodPost, "/api/v1/fetch-news?days=1", nil)
		assert.Equal(t, tc.want, w.Code, "error %v", tc.err)
		assert.Contains(t, w.Body.String(), `"error"`)
	}
}

func TestFetchNews_RejectsNonIntegerDays(t *testing.T) {
	router := setupTestRouter(t, &mockIngester{}, &mockAnalyzer{}, &mockStore{})

	w := doRequest(t, router, http.MethodPost, "/api/v1/fetch-news?days=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListArticles_Paging(t *testing.T) {
	var gotOffset, gotLimit int
	store := &mockStore{
		total: 42,
		listFunc: func(offset, limit int) ([]domain.EnrichedArticle, error) {
			gotOffset, gotLimit = offset, limit
			return []domain.EnrichedArticle{{
				ID:             1,
				Title:          "Title",
				URL:            "https://example.com/1",
				PublishedAt:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
				SentimentLabel: domain.SentimentPositive,
				SentimentScore: 0.9,
			}}, nil
		},
	}
	router := setupTestRouter(t, &mockIngester{}, &mockAnalyzer{}, store)

	w := doRequest(t, router, http.MethodGet, "/api/v1/articles?skip=20&limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 20, gotOffset)
	assert.Equal(t, 5, gotLimit)
	assert.Equal(t, "42", w.Header().Get("X-Total-Count"))

	var articles []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &articles))
	require.Len(t, articles, 1)
	assert.Equal(t, "POSITIVE", articles[0]["sentiment_label"])
}

func TestListArticles_Defaults(t *testing.T) {
	var gotOffset, gotLimit int
	store := &mockStore{listFunc: func(offset, limit int) ([]domain.EnrichedArticle, error) {
		gotOffset, gotLimit = offset, limit
		return []domain.EnrichedArticle{}, nil
	}}
	router := setupTestRouter(t, &mockIngester{}, &mockAnalyzer{}, store)

	w := doRequest(t, router, http.MethodGet, "/api/v1/articles", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, gotOffset)
	assert.Equal(t, 10, gotLimit)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestListArticles_InvalidPaging(t *testing.T) {
	router := setupTestRouter(t, &mockIngester{}, &mockAnalyzer{}, &mockStore{})

	for _, target := range []string{
		"/api/v1/articles?skip=-1",
		"/api/v1/articles?limit=0",
		"/api/v1/articles?limit=101",
		"/api/v1/articles?limit=ten",
	} {
		w := doRequest(t, router, http.MethodGet, target, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
	}
}

func TestListArticles_StoreUnavailable(t *testing.T) {
	store := &mockStore{listFunc: func(int, int) ([]domain.EnrichedArticle, error) {
		return nil, fmt.Errorf("%w: connection refused", domain.ErrStoreUnavailable)
	}}
	router := setupTestRouter(t, &mockIngester{}, &mockAnalyzer{}, store)

	w := doRequest(t, router, http.MethodGet, "/api/v1/articles", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAnalyze_Created(t *testing.T) {
	var got usecase.AnalyzeRequest
	an := &mockAnalyzer{analyzeFunc: func(req usecase.AnalyzeRequest) (domain.EnrichedArticle, error) {
		got = req
		return domain.EnrichedArticle{ID: 9, Title: req.Title, URL: req.URL, SentimentLabel: domain.SentimentNeutral}, nil
	}}
	router := setupTestRouter(t, &mockIngester{}, an, &mockStore{})

	body, err := json.Marshal(map[string]string{
		"title":   "Budget approved",
		"content": "Parliament approved the budget.",
		"source":  "Gazette",
		"url":     "https://example.com/budget",
	})
	require.NoError(t, err)

	w := doRequest(t, router, http.MethodPost, "/api/v1/analyze", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "Gazette", got.Source)

	var article map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &article))
	assert.InDelta(t, 9, article["id"], 0)
}

func TestAnalyze_ErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: content", domain.ErrInvalidInput), http.StatusBadRequest},
		{fmt.Errorf("save: %w", domain.ErrDuplicateURL), http.StatusConflict},
		{fmt.Errorf("score: %w", domain.ErrScoringUnavailable), http.StatusServiceUnavailable},
	}

	for _, tc := range cases {
		an := &mockAnalyzer{analyzeFunc: func(usecase.AnalyzeRequest) (domain.EnrichedArticle, error) {
			return domain.EnrichedArticle{}, tc.err
		}}
		router := setupTestRouter(t, &mockIngester{}, an, &mockStore{})

		w := doRequest(t, router, http.MethodPost, "/api/v1/analyze", []byte(`{"title":"t","content":"c","url":"u"}`))
		assert.Equal(t, tc.want, w.Code, "error %v", tc.err)
	}
}

func TestAnalyze_BadJSON(t *testing.T) {
	router := setupTestRouter(t, &mockIngester{}, &mockAnalyzer{}, &mockStore{})

	w := doRequest(t, router, http.MethodPost, "/api/v1/analyze", []byte(`{"title":`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealth(t *testing.T) {
	router := setupTestRouter(t, &mockIngester{}, &mockAnalyzer{}, &mockStore{})
	w := doRequest(t, router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "News Analyzer")

	router = setupTestRouter(t, &mockIngester{}, &mockAnalyzer{}, &mockStore{pingErr: domain.ErrStoreUnavailable})
	w = doRequest(t, router, http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMetricsRoute(t *testing.T) {
	router := setupTestRouter(t, &mockIngester{}, &mockAnalyzer{}, &mockStore{})
	w := doRequest(t, router, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "# metrics", w.Body.String())
}
