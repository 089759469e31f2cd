package newsapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"NewsAnalyzer/internal/config"
	"NewsAnalyzer/internal/domain"
)

const samplePage = `{
  "status": "ok",
  "totalResults": 2,
  "articles": [
    {
      "source": {"id": null, "name": "Example Times"},
      "title": "Markets rally",
      "description": "Stocks <b>rose</b> sharply.",
      "content": "Stocks rose sharply on Monday after… [+2345 chars]",
      "url": "https://example.com/markets",
      "publishedAt": "2024-01-01T00:00:00Z"
    },
    {
      "source": {"id": null, "name": "Daily"},
      "title": "Quiet day",
      "description": "Nothing happened.",
      "content": null,
      "url": "https://example.com/quiet",
      "publishedAt": "2024-01-01T03:00:00Z"
    }
  ]
}`

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()

	c := NewClient(config.NewsAPIConfig{
		BaseURL:       baseURL,
		APIKey:        "secret",
		Language:      "en",
		SortBy:        "publishedAt",
		PageSize:      2,
		MaxPages:      3,
		MaxWindowDays: 30,
	}, nil, nil)
	c.now = func() time.Time { return time.Date(2024, time.January, 3, 12, 0, 0, 0, time.UTC) }
	return c
}

func TestFetchBuildsRequestAndMapsArticles(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/everything" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("X-Api-Key"); got != "secret" {
			t.Errorf("unexpected api key %q", got)
		}
		q := r.URL.Query()
		if q.Get("q") != "bitcoin" || q.Get("language") != "en" || q.Get("sortBy") != "publishedAt" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		if q.Get("from") != "2024-01-01T12:00:00Z" {
			t.Errorf("unexpected from %s", q.Get("from"))
		}
		_, _ = w.Write([]byte(samplePage))
	}))
	defer server.Close()

	articles, err := newTestClient(t, server.URL).Fetch(context.Background(), " bitcoin ", 2)
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(articles))
	}

	first := articles[0]
	if first.Body != "Stocks rose sharply on Monday after" {
		t.Fatalf("unexpected body: %q", first.Body)
	}
	if first.Summary != "Stocks rose sharply." {
		t.Fatalf("unexpected summary: %q", first.Summary)
	}
	if first.SourceName != "Example Times" || first.PublishedAt != "2024-01-01T00:00:00Z" {
		t.Fatalf("unexpected article: %+v", first)
	}
	if articles[1].Body != "" || articles[1].Summary != "Nothing happened." {
		t.Fatalf("null content should map to empty body: %+v", articles[1])
	}
}

func TestFetchRejectsWindowBeforeIO(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	for _, window := range []int{0, -1, 31} {
		_, err := c.Fetch(context.Background(), "", window)
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("window %d: expected ErrInvalidArgument, got %v", window, err)
		}
	}
	if calls.Load() != 0 {
		t.Fatalf("expected no upstream calls, got %d", calls.Load())
	}
}

func TestFetchMapsUpstreamFailures(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"throttled", http.StatusTooManyRequests, `{"status":"error","code":"rateLimited","message":"slow down"}`, domain.ErrRateLimited},
		{"server error", http.StatusBadGateway, ``, domain.ErrUpstreamUnavailable},
		{"bad key", http.StatusUnauthorized, `{"status":"error","code":"apiKeyInvalid","message":"nope"}`, domain.ErrUpstreamUnavailable},
		{"garbage", http.StatusOK, `not json`, domain.ErrUpstreamUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			_, err := newTestClient(t, server.URL).Fetch(context.Background(), "x", 1)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestFetchUnreachableUpstream(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	baseURL := server.URL
	server.Close()

	_, err := newTestClient(t, baseURL).Fetch(context.Background(), "x", 1)
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
}

func TestFetchFollowsPages(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		page := r.URL.Query().Get("page")
		switch page {
		case "1":
			fmt.Fprint(w, `{"status":"ok","totalResults":3,"articles":[
				{"title":"a","url":"u1","publishedAt":"2024-01-01T00:00:00Z"},
				{"title":"b","url":"u2","publishedAt":"2024-01-01T00:00:00Z"}]}`)
		case "2":
			fmt.Fprint(w, `{"status":"ok","totalResults":3,"articles":[
				{"title":"c","url":"u3","publishedAt":"2024-01-01T00:00:00Z"}]}`)
		default:
			t.Errorf("unexpected page %s", page)
		}
	}))
	defer server.Close()

	articles, err := newTestClient(t, server.URL).Fetch(context.Background(), "", 1)
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(articles) != 3 || calls.Load() != 2 {
		t.Fatalf("expected 3 articles over 2 calls, got %d over %d", len(articles), calls.Load())
	}
}

func TestFetchKeepsPagesBeforeResultCap(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "1" {
			fmt.Fprint(w, `{"status":"ok","totalResults":10,"articles":[
				{"title":"a","url":"u1","publishedAt":"2024-01-01T00:00:00Z"},
				{"title":"b","url":"u2","publishedAt":"2024-01-01T00:00:00Z"}]}`)
			return
		}
		w.WriteHeader(http.StatusUpgradeRequired)
		fmt.Fprint(w, `{"status":"error","code":"maximumResultsReached","message":"developer accounts are limited"}`)
	}))
	defer server.Close()

	articles, err := newTestClient(t, server.URL).Fetch(context.Background(), "", 1)
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("expected the 2 articles of page 1, got %d", len(articles))
	}
}

func TestFetchResultCapOnFirstPageFails(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUpgradeRequired)
		fmt.Fprint(w, `{"status":"error","code":"maximumResultsReached","message":"limited"}`)
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).Fetch(context.Background(), "", 1)
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
}

func TestCleanText(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"":                                "",
		"  plain   text ":                 "plain text",
		"<p>Hello <i>world</i></p>":       "Hello world",
		"Tom &amp; Jerry":                 "Tom & Jerry",
		"Cut here… [+120 chars]":          "Cut here",
		"Line one\r\nLine two [+9 chars]": "Line one Line two",
		"Stocks fell as x<b and y rose":   "Stocks fell as x<b and y rose",
		"AT&amp;T deal":                   "AT&T deal",
		"if a < b &amp;&amp; c > d":       "if a < b && c > d",
		"Rates <br/>rose":                 "Rates rose",
	}
	for in, want := range cases {
		if got := cleanText(in); got != want {
			t.Fatalf("cleanText(%q) = %q, want %q", in, got, want)
		}
	}
}
