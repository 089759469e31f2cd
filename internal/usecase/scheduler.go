package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"NewsAnalyzer/internal/domain"
	"NewsAnalyzer/internal/logging"
	"NewsAnalyzer/internal/ports"
)

// ScheduleOptions select what a scheduled run ingests.
type ScheduleOptions struct {
	Queries    []string
	WindowDays int
	Retry      RetryPolicy
}

// Scheduler wires the cron driver with the ingestion use case.
type Scheduler struct {
	driver   ports.Scheduler
	ingester Ingester
	notifier ports.Notifier
	opts     ScheduleOptions
	logger   *slog.Logger
}

// QueryReport is the outcome of one query within a scheduled run.
type QueryReport struct {
	Query  string
	Result domain.IngestResult
	Err    error
}

// NewScheduler returns a helper to start/stop recurring ingestion.
func NewScheduler(driver ports.Scheduler, ingester Ingester, notifier ports.Notifier, opts ScheduleOptions, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = logging.Discard()
	}
	if len(opts.Queries) == 0 {
		opts.Queries = []string{""}
	}
	if opts.WindowDays < 1 {
		opts.WindowDays = 1
	}
	return &Scheduler{
		driver:   driver,
		ingester: ingester,
		notifier: notifier,
		opts:     opts,
		logger:   logger.With("component", "scheduler"),
	}
}

// Start registers the ingestion job with the driver.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.ingester == nil {
		return nil
	}

	job := func(trigger time.Time) {
		if _, err := s.RunOnce(ctx, trigger); err != nil {
			s.logger.Error("scheduled ingestion failed", "error", err)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}

// RunOnce ingests every configured query and publishes a report. Query
// failures are collected; one failing query does not stop the others.
func (s *Scheduler) RunOnce(ctx context.Context, trigger time.Time) ([]QueryReport, error) {
	reports := make([]QueryReport, 0, len(s.opts.Queries))
	var errs []error

	for _, query := range s.opts.Queries {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		result, err := RetryIngest(ctx, s.ingester, query, s.opts.WindowDays, s.opts.Retry, s.logger)
		reports = append(reports, QueryReport{Query: query, Result: result, Err: err})
		if err != nil {
			errs = append(errs, fmt.Errorf("query %q: %w", query, err))
		}
	}

	if s.notifier != nil && len(reports) > 0 {
		if err := s.notifier.PublishReport(ctx, buildReportMessage(trigger, reports)); err != nil {
			errs = append(errs, fmt.Errorf("publish report: %w", err))
		}
	}

	return reports, errors.Join(errs...)
}

func buildReportMessage(trigger time.Time, reports []QueryReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "News ingestion %s\n\n", trigger.UTC().Format("2006-01-02 15:04 MST"))

	for _, report := range reports {
		name := report.Query
		if name == "" {
			name = "(all)"
		}
		if report.Err != nil {
			fmt.Fprintf(&b, "- %s: failed: %v\n", name, report.Err)
			continue
		}
		r := report.Result
		fmt.Fprintf(&b, "- %s: fetched %d, stored %d, skipped %d, errors %d\n",
			name, r.Fetched, r.Processed, r.Skipped, len(r.Errors))
		for _, warning := range r.Warnings {
			fmt.Fprintf(&b, "  warning: %s\n", warning)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}
