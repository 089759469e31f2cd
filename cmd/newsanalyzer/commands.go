package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"NewsAnalyzer/internal/app"
	"NewsAnalyzer/internal/config"
	"NewsAnalyzer/internal/logging"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "newsanalyzer",
		Short:         "Fetch, score and store news articles",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML config file (overrides "+config.PathEnv+")")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		newServeCommand(opts),
		newIngestCommand(opts),
		newListCommand(opts),
		newMigrateCommand(opts),
	)
	return root
}

func (o *rootOptions) load() (config.Config, *slog.Logger) {
	if o.configPath != "" {
		_ = os.Setenv(config.PathEnv, o.configPath)
	}
	cfg := config.Load()
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	return cfg, logging.NewWithFormat(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
}

func (o *rootOptions) application() (*app.Application, *slog.Logger, error) {
	cfg, logger := o.load()
	application, err := app.New(cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("build application: %w", err)
	}
	return application, logger, nil
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API (and the scheduler, when enabled)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, logger, err := opts.application()
			if err != nil {
				return err
			}
			defer application.Close()

			if err := application.Serve(cmd.Context()); err != nil {
				logger.Error("application stopped", "error", err)
				return err
			}
			return nil
		},
	}
}

func newIngestCommand(opts *rootOptions) *cobra.Command {
	var (
		query string
		days  int
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Run one ingestion batch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, _, err := opts.application()
			if err != nil {
				return err
			}
			defer application.Close()

			if err := application.Migrate(cmd.Context()); err != nil {
				return err
			}

			result, err := application.Ingest(cmd.Context(), query, days)
			if result.RunID != "" {
				renderIngestResult(cmd.OutOrStdout(), result)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&query, "query", "", "search keywords (empty for all)")
	cmd.Flags().IntVar(&days, "days", 1, "look-back window in days")
	return cmd
}

func newListCommand(opts *rootOptions) *cobra.Command {
	var skip, limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored articles, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, _, err := opts.application()
			if err != nil {
				return err
			}
			defer application.Close()

			if err := application.Migrate(cmd.Context()); err != nil {
				return err
			}

			articles, total, err := application.List(cmd.Context(), skip, limit)
			if err != nil {
				return err
			}
			renderArticles(cmd.OutOrStdout(), articles, total)
			return nil
		},
	}
	cmd.Flags().IntVar(&skip, "skip", 0, "number of articles to skip")
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum number of articles")
	return cmd
}

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the article table and indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, logger, err := opts.application()
			if err != nil {
				return err
			}
			defer application.Close()

			if err := application.Migrate(cmd.Context()); err != nil {
				return err
			}
			logger.Info("schema ready")
			return nil
		},
	}
}
