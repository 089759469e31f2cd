package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"NewsAnalyzer/internal/domain"
	"NewsAnalyzer/internal/ports"
)

type fakeSource struct {
	mu       sync.Mutex
	articles []domain.RawArticle
	err      error
	calls    int
	onFetch  func()
	// hang blocks Fetch until ctx is done.
	hang bool
}

func (s *fakeSource) Fetch(ctx context.Context, _ string, _ int) ([]domain.RawArticle, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.onFetch != nil {
		s.onFetch()
	}
	if s.hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.err != nil {
		return nil, s.err
	}
	out := make([]domain.RawArticle, len(s.articles))
	copy(out, s.articles)
	return out, nil
}

func (s *fakeSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// memRepository enforces URL uniqueness the way a unique index would.
type memRepository struct {
	mu        sync.Mutex
	byURL     map[string]domain.EnrichedArticle
	nextID    int64
	existsErr error
	saveErr   func(domain.EnrichedArticle) error
	// hangOn makes Exists and Save for the URL block until ctx is done.
	hangOn map[string]bool
	exists int
	saves  int
}

func newMemRepository() *memRepository {
	return &memRepository{byURL: map[string]domain.EnrichedArticle{}}
}

var _ ports.ArticleRepository = (*memRepository)(nil)

func (r *memRepository) Exists(ctx context.Context, url string) (bool, error) {
	if r.hangOn["exists "+url] {
		<-ctx.Done()
		return false, ctx.Err()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exists++
	if r.existsErr != nil {
		return false, r.existsErr
	}
	_, ok := r.byURL[url]
	return ok, nil
}

func (r *memRepository) Save(ctx context.Context, article domain.EnrichedArticle) (domain.EnrichedArticle, error) {
	if r.hangOn["save "+article.URL] {
		<-ctx.Done()
		return domain.EnrichedArticle{}, ctx.Err()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	if r.saveErr != nil {
		if err := r.saveErr(article); err != nil {
			return domain.EnrichedArticle{}, err
		}
	}
	if _, ok := r.byURL[article.URL]; ok {
		return domain.EnrichedArticle{}, fmt.Errorf("%w: %s", domain.ErrDuplicateURL, article.URL)
	}
	r.nextID++
	article.ID = r.nextID
	article.CreatedAt = time.Now().UTC()
	r.byURL[article.URL] = article
	return article, nil
}

func (r *memRepository) List(_ context.Context, offset, limit int) ([]domain.EnrichedArticle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.EnrichedArticle, 0, len(r.byURL))
	for _, a := range r.byURL {
		out = append(out, a)
	}
	if offset >= len(out) {
		return []domain.EnrichedArticle{}, nil
	}
	end := min(offset+limit, len(out))
	return out[offset:end], nil
}

func (r *memRepository) Count(context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byURL), nil
}

func (r *memRepository) Ping(context.Context) error { return nil }

func (r *memRepository) Calls() (exists, saves int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.exists, r.saves
}

func (r *memRepository) All() []domain.EnrichedArticle {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.EnrichedArticle, 0, len(r.byURL))
	for _, a := range r.byURL {
		out = append(out, a)
	}
	return out
}

type scoreFunc func(ctx context.Context, title, body string) (domain.Score, error)

func (f scoreFunc) Score(ctx context.Context, title, body string) (domain.Score, error) {
	return f(ctx, title, body)
}

func fixedScorer(score domain.Score) scoreFunc {
	return func(context.Context, string, string) (domain.Score, error) { return score, nil }
}

var sampleScore = domain.Score{
	SentimentLabel:         domain.SentimentPositive,
	SentimentScore:         0.8,
	ReliabilityProbability: 0.1,
}

type recordingObserver struct {
	mu       sync.Mutex
	outcomes map[string]int
	batches  int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{outcomes: map[string]int{}}
}

func (o *recordingObserver) ObserveOutcome(outcome, reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes[outcome+"/"+reason]++
}

func (o *recordingObserver) ObserveBatch(int, time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.batches++
}

type fakeSentiment struct {
	ranked []ports.LabelScore
	err    error
	texts  []string
}

func (f *fakeSentiment) ClassifySentiment(_ context.Context, text string) ([]ports.LabelScore, error) {
	f.texts = append(f.texts, text)
	return f.ranked, f.err
}

type fakeZeroShot struct {
	ranked []ports.LabelScore
	err    error
	labels []string
}

func (f *fakeZeroShot) ClassifyZeroShot(_ context.Context, _ string, labels []string) ([]ports.LabelScore, error) {
	f.labels = labels
	return f.ranked, f.err
}

func rawArticle(url, published string) domain.RawArticle {
	return domain.RawArticle{
		Title:       "Title " + url,
		Body:        "Body of " + url,
		SourceName:  "Wire",
		URL:         url,
		PublishedAt: published,
	}
}
