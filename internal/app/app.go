package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"

	"NewsAnalyzer/internal/api"
	"NewsAnalyzer/internal/config"
	"NewsAnalyzer/internal/domain"
	"NewsAnalyzer/internal/infrastructure/llm"
	"NewsAnalyzer/internal/infrastructure/metrics"
	"NewsAnalyzer/internal/infrastructure/ml"
	"NewsAnalyzer/internal/infrastructure/newsapi"
	"NewsAnalyzer/internal/infrastructure/scheduler"
	"NewsAnalyzer/internal/infrastructure/storage"
	"NewsAnalyzer/internal/infrastructure/telegram"
	"NewsAnalyzer/internal/logging"
	"NewsAnalyzer/internal/ports"
	"NewsAnalyzer/internal/usecase"
)

const reliabilityBackendChatGPT = "chatgpt"

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	repo      *storage.Repository
	pipeline  *usecase.Pipeline
	analyzer  *usecase.Analyzer
	metrics   *metrics.Metrics
	scheduler *usecase.Scheduler
}

// New builds the application: store, source, scorer, pipeline and, when
// enabled, the cron scheduler with its Telegram report.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.NewWithFormat(cfg.Logging.Level, cfg.Logging.Format, nil)
	}

	repo, err := storage.Open(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	scorer, err := buildScorer(cfg)
	if err != nil {
		_ = repo.Close()
		return nil, err
	}

	m := metrics.New()
	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:     newsapi.NewClient(cfg.NewsAPI, nil, baseLogger),
		Repository: repo,
		Scorer:     scorer,
		Observer:   m,
		Logger:     baseLogger,
		Options: usecase.PipelineOptions{
			Concurrency:           cfg.Pipeline.Concurrency,
			FetchTimeout:          cfg.Pipeline.FetchTimeout.Duration,
			ScoreTimeout:          cfg.Pipeline.ScoreTimeout.Duration,
			SaveTimeout:           cfg.Pipeline.SaveTimeout.Duration,
			StoreFailureThreshold: cfg.Pipeline.StoreFailureThreshold,
		},
	})

	a := &Application{
		cfg:      cfg,
		logger:   baseLogger,
		repo:     repo,
		pipeline: pipeline,
		analyzer: usecase.NewAnalyzer(scorer, repo, usecase.AnalyzerOptions{
			ScoreTimeout: cfg.Pipeline.ScoreTimeout.Duration,
			SaveTimeout:  cfg.Pipeline.SaveTimeout.Duration,
		}, baseLogger),
		metrics:  m,
	}

	if cfg.Scheduler.Enabled {
		if err := scheduler.Validate(cfg.Scheduler.CronExpression); err != nil {
			_ = repo.Close()
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidArgument, err)
		}
		a.scheduler = usecase.NewScheduler(
			scheduler.NewCronScheduler(cfg.Scheduler.CronExpression, cfg.Scheduler.Location(), baseLogger),
			pipeline,
			a.buildNotifier(),
			usecase.ScheduleOptions{
				Queries:    cfg.Scheduler.Queries,
				WindowDays: cfg.Scheduler.WindowDays,
				Retry:      a.retryPolicy(),
			},
			baseLogger,
		)
	}

	return a, nil
}

func buildScorer(cfg config.Config) (*usecase.Scorer, error) {
	hf := ml.NewClient(cfg.Scoring)

	var reliability ports.ZeroShotClassifier = hf
	if strings.EqualFold(cfg.Scoring.ReliabilityBackend, reliabilityBackendChatGPT) {
		if cfg.ChatGPT.APIKey == "" {
			return nil, fmt.Errorf("%w: chatgpt reliability backend needs CHATGPT_API_KEY", domain.ErrInvalidArgument)
		}
		reliability = llm.NewChatGPTClient(cfg.ChatGPT)
	}

	return usecase.NewScorer(hf, reliability, usecase.ScorerOptions{
		Timeout:       cfg.Scoring.Timeout.Duration,
		MaxInputRunes: cfg.Scoring.MaxInputRunes,
	}), nil
}

func (a *Application) buildNotifier() ports.Notifier {
	tg := a.cfg.Notifications.Telegram
	if tg.BotToken == "" || tg.ChatID == "" {
		return nil
	}

	n, err := telegram.NewNotifier(tg.BotToken, tg.ChatID, tg.Endpoint, nil)
	if err != nil {
		a.logger.Warn("telegram notifier disabled", "error", err)
		return nil
	}
	return n
}

func (a *Application) retryPolicy() usecase.RetryPolicy {
	return usecase.DefaultRetryPolicy(a.cfg.Pipeline.RetryMaxElapsed.Duration)
}

// Close releases the store.
func (a *Application) Close() error {
	return a.repo.Close()
}

// Migrate creates the schema if needed.
func (a *Application) Migrate(ctx context.Context) error {
	return a.repo.Migrate(ctx)
}

// Ingest runs one batch with caller-driven retries of transient fetch failures.
func (a *Application) Ingest(ctx context.Context, query string, windowDays int) (domain.IngestResult, error) {
	return usecase.RetryIngest(ctx, a.pipeline, query, windowDays, a.retryPolicy(), a.logger)
}

// List returns stored articles, newest first.
func (a *Application) List(ctx context.Context, skip, limit int) ([]domain.EnrichedArticle, int, error) {
	articles, err := a.repo.List(ctx, skip, limit)
	if err != nil {
		return nil, 0, err
	}
	total, err := a.repo.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	return articles, total, nil
}

// Serve migrates the store, starts the scheduler if configured and serves
// HTTP until ctx is done.
func (a *Application) Serve(ctx context.Context) error {
	if err := a.Migrate(ctx); err != nil {
		return err
	}

	if a.scheduler != nil {
		if err := a.scheduler.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		defer func() {
			if err := a.scheduler.Stop(context.Background()); err != nil {
				a.logger.Warn("stop scheduler", "error", err)
			}
		}()
	}

	if !strings.EqualFold(a.cfg.Logging.Level, "debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	handler := api.NewHandler(a.pipeline, a.analyzer, a.repo, api.Options{
		ProjectName:  a.cfg.ProjectName,
		DefaultDays:  1,
		DefaultLimit: a.cfg.Server.DefaultLimit,
		MaxLimit:     a.cfg.Server.MaxLimit,
	}, a.logger)
	router := api.NewRouter(handler, a.metrics.Handler(), a.cfg.Server.APIPrefix, a.logger)

	return api.Serve(ctx, a.cfg.Server.Addr, router, a.logger)
}
