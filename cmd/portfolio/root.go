package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"portfolio/internal/apperr"
	"portfolio/internal/config"
	"portfolio/internal/github"
	"portfolio/internal/logging"
	"portfolio/internal/metrics"
	tracing "portfolio/internal/otel"
	"portfolio/internal/service"
	"portfolio/internal/storage"
)

const shutdownTimeout = 5 * time.Second

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "portfolio",
		Short: "Render a GitHub Pages project portfolio into index.html",
		Long: `Lists the public repositories of GITHUB_ACTOR, keeps those with GitHub Pages
enabled that are not forks, and renders them into TEMPLATE_PATH (default
template.html), writing OUTPUT_PATH (default index.html).

All settings come from the environment; a .env file is loaded if present.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx)
		},
	}
}

func run(ctx context.Context) error {
	cfg, cfgErr := config.Load()

	logCfg := config.LogConfig{Level: "info", Format: "json"}
	if cfg != nil {
		logCfg = cfg.Log
	}
	log, err := logging.New(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		return err
	}
	defer func() { _ = log.Sync() }()

	if cfgErr != nil {
		return fail(log, cfgErr)
	}

	shutdown, err := tracing.Init(ctx, log)
	if err != nil {
		return fail(log, err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			log.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	m, err := metrics.New()
	if err != nil {
		return fail(log, err)
	}
	defer pushMetrics(log, m, cfg)

	var store storage.Storage
	if cfg.MinIO.Enabled() {
		store, err = storage.NewMinIO(ctx, cfg.MinIO)
		if err != nil {
			m.ObserveFailure(string(apperr.KindOf(err)), 0)
			return fail(log, err)
		}
	}

	fetcher := github.NewClient(cfg.GitHub,
		github.WithLogger(log),
		github.WithMetrics(m),
	)

	if _, err := service.NewGenerator(cfg, fetcher, store, m, log).Run(ctx); err != nil {
		return fail(log, err)
	}
	return nil
}

func fail(log *zap.Logger, err error) error {
	fields := []zap.Field{
		zap.String("kind", string(apperr.KindOf(err))),
		zap.Error(err),
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		fields = append(fields, zap.String("op", ae.Op))
	}
	log.Error("portfolio generation failed", fields...)
	return err
}

func pushMetrics(log *zap.Logger, m *metrics.Metrics, cfg *config.AppConfig) {
	if cfg.Metrics.PushgatewayURL == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := m.Push(ctx, cfg.Metrics.PushgatewayURL, cfg.Metrics.Job, cfg.GitHub.Actor); err != nil {
		log.Warn("metrics push failed", zap.Error(err))
	}
}
