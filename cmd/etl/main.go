package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/couchcryptid/ocean-grid-etl/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/ocean-grid-etl/internal/adapter/kafka"
	"github.com/couchcryptid/ocean-grid-etl/internal/bootstrap"
	"github.com/couchcryptid/ocean-grid-etl/internal/config"
	"github.com/couchcryptid/ocean-grid-etl/internal/lookup"
	"github.com/couchcryptid/ocean-grid-etl/internal/observability"
	"github.com/couchcryptid/ocean-grid-etl/internal/pipeline"
	"github.com/couchcryptid/ocean-grid-etl/internal/store/badgerstore"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to read .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	if err := run(cfg, logger, metrics); err != nil {
		logger.Error("service failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := badgerstore.Open(cfg.StorePath, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("store close error", "error", err)
		}
	}()

	idx, err := bootstrap.EnsureGrid(ctx, cfg.Grid, cfg.LandShapefile, st, logger, metrics)
	if err != nil {
		return err
	}
	cal, err := bootstrap.EnsureCalendar(ctx, st, logger)
	if err != nil {
		return err
	}

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	locator := lookup.NewCachedLocator(idx, cfg.LookupCacheSize, metrics)
	tagger := pipeline.NewTagger(locator, cal, logger, metrics)

	p := pipeline.New(reader, tagger, pipeline.MultiLoader{writer, st}, logger, metrics, cfg.BatchSize)

	api := httpadapter.NewAPI(idx, cal, st, logger, metrics)
	srv := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.AllReady(st, p), api, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start ETL pipeline.
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("pipeline did not stop before shutdown timeout")
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}
