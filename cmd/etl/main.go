// Command etl runs the agricultural survey ETL service: the field record
// pipeline and the weather telemetry pipeline, with health, readiness, and
// metrics endpoints exposed while runs are in flight.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/majindogo/agri-survey-etl/internal/adapter/csvsource"
	httpadapter "github.com/majindogo/agri-survey-etl/internal/adapter/http"
	kafkaadapter "github.com/majindogo/agri-survey-etl/internal/adapter/kafka"
	"github.com/majindogo/agri-survey-etl/internal/adapter/sqlsource"
	"github.com/majindogo/agri-survey-etl/internal/config"
	"github.com/majindogo/agri-survey-etl/internal/domain"
	"github.com/majindogo/agri-survey-etl/internal/observability"
	"github.com/majindogo/agri-survey-etl/internal/pipeline"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	patterns, err := domain.CompilePatterns(patternPairs(cfg.Bundle))
	if err != nil {
		logger.Error("invalid measurement patterns", "error", err)
		return 1
	}

	tabular := sqlsource.New(cfg.DBDriver, cfg.DBDSN, logger)
	records := csvsource.NewClient(cfg.FetchTimeout, logger)

	fieldCfg := pipeline.FieldConfig{
		Query:           cfg.Bundle.SQLQuery,
		SwapFirst:       cfg.Bundle.ColumnSwap.First,
		SwapSecond:      cfg.Bundle.ColumnSwap.Second,
		FieldIDColumn:   cfg.Bundle.FieldIDColumn,
		ElevationColumn: cfg.Bundle.ElevationColumn,
		CropColumn:      cfg.Bundle.CropColumn,
		StationColumn:   cfg.Bundle.StationColumn,
		CropCorrections: cfg.Bundle.CropCorrections,
		MappingSource:   cfg.Bundle.StationMappingSource,
	}
	weatherCfg := pipeline.WeatherConfig{
		MessagesSource: cfg.Bundle.WeatherMessagesSource,
		Patterns:       patterns,
	}

	var exporter pipeline.Exporter
	var closeExporter func() error
	if cfg.ExportEnabled {
		kafkaExporter := kafkaadapter.NewExporter(cfg.KafkaBrokers, cfg.KafkaFieldTopic, cfg.KafkaSummaryTopic, logger)
		exporter = kafkaExporter
		closeExporter = kafkaExporter.Close
		logger.Info("kafka export enabled",
			"field_topic", cfg.KafkaFieldTopic,
			"summary_topic", cfg.KafkaSummaryTopic,
		)
	} else {
		logger.Info("kafka export disabled")
	}

	runner := pipeline.NewRunner(
		func() *pipeline.FieldProcessor {
			return pipeline.NewFieldProcessor(tabular, records, fieldCfg, logger, metrics)
		},
		func() *pipeline.WeatherProcessor {
			return pipeline.NewWeatherProcessor(records, weatherCfg, logger, metrics)
		},
		exporter,
		cfg.Bundle.FieldIDColumn,
		cfg.RunInterval,
		clockwork.NewRealClock(),
		logger,
		metrics,
	)

	srv := httpadapter.NewServer(cfg.HTTPAddr, runner, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	exitCode := 0
	runDone := make(chan error, 1)
	go func() { runDone <- runner.Run(ctx) }()

	select {
	case <-ctx.Done():
		logger.Info("shutting down", "reason", ctx.Err())
	case err := <-runDone:
		if err != nil {
			logger.Error("pipeline run failed", "error", err)
			exitCode = 1
		} else {
			logger.Info("pipeline run complete")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if closeExporter != nil {
		if err := closeExporter(); err != nil {
			logger.Error("kafka exporter close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return exitCode
}

func patternPairs(b *config.Bundle) []domain.KindPattern {
	pairs := make([]domain.KindPattern, len(b.Patterns))
	for i, p := range b.Patterns {
		pairs[i] = domain.KindPattern{Kind: p.Kind, Expr: p.Pattern}
	}
	return pairs
}
