package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"NewsAnalyzer/internal/domain"
	"NewsAnalyzer/internal/logging"
)

// Ingester runs one ingestion batch.
type Ingester interface {
	Ingest(ctx context.Context, query string, windowDays int) (domain.IngestResult, error)
}

var _ Ingester = (*Pipeline)(nil)

// RetryPolicy configures caller-driven retries of a whole batch. Rate-limited
// failures back off from a longer initial interval than upstream outages.
type RetryPolicy struct {
	UpstreamInitial     time.Duration
	RateLimitedInitial  time.Duration
	MaxInterval         time.Duration
	MaxElapsed          time.Duration
	RandomizationFactor float64
}

// DefaultRetryPolicy returns the intervals used by the scheduler and CLI.
func DefaultRetryPolicy(maxElapsed time.Duration) RetryPolicy {
	return RetryPolicy{
		UpstreamInitial:     2 * time.Second,
		RateLimitedInitial:  30 * time.Second,
		MaxInterval:         2 * time.Minute,
		MaxElapsed:          maxElapsed,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
	}
}

// Retryable reports whether a fetch failure is worth another attempt.
func Retryable(err error) bool {
	return errors.Is(err, domain.ErrUpstreamUnavailable) || errors.Is(err, domain.ErrRateLimited)
}

// RetryIngest calls ing.Ingest until it succeeds, fails permanently, the
// policy gives up or ctx is done. Only upstream and rate-limit failures are retried.
func RetryIngest(ctx context.Context, ing Ingester, query string, windowDays int, policy RetryPolicy, logger *slog.Logger) (domain.IngestResult, error) {
	if logger == nil {
		logger = logging.Discard()
	}

	b := newErrorAwareBackOff(policy)
	var result domain.IngestResult

	operation := func() error {
		res, err := ing.Ingest(ctx, query, windowDays)
		result = res
		b.last = err
		if err == nil {
			return nil
		}
		if !Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		logger.Warn("ingestion attempt failed, retrying", "query", query, "error", err, "wait", wait)
	}

	err := backoff.RetryNotify(operation, backoff.WithContext(b, ctx), notify)
	return result, err
}

// errorAwareBackOff picks the schedule matching the last observed failure.
type errorAwareBackOff struct {
	upstream    *backoff.ExponentialBackOff
	rateLimited *backoff.ExponentialBackOff
	last        error
}

func newErrorAwareBackOff(policy RetryPolicy) *errorAwareBackOff {
	build := func(initial time.Duration) *backoff.ExponentialBackOff {
		eb := backoff.NewExponentialBackOff()
		if initial > 0 {
			eb.InitialInterval = initial
		}
		if policy.MaxInterval > 0 {
			eb.MaxInterval = policy.MaxInterval
		}
		eb.MaxElapsedTime = policy.MaxElapsed
		eb.RandomizationFactor = policy.RandomizationFactor
		eb.Reset()
		return eb
	}

	return &errorAwareBackOff{
		upstream:    build(policy.UpstreamInitial),
		rateLimited: build(policy.RateLimitedInitial),
	}
}

func (b *errorAwareBackOff) NextBackOff() time.Duration {
	if errors.Is(b.last, domain.ErrRateLimited) {
		return b.rateLimited.NextBackOff()
	}
	return b.upstream.NextBackOff()
}

func (b *errorAwareBackOff) Reset() {
	b.upstream.Reset()
	b.rateLimited.Reset()
	b.last = nil
}
