// Package pipeline implements the two survey ETL pipelines and their
// orchestration.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/majindogo/agri-survey-etl/internal/domain"
	"github.com/majindogo/agri-survey-etl/internal/frame"
	"github.com/majindogo/agri-survey-etl/internal/observability"
)

// Exporter publishes pipeline outputs downstream. Export failures fail the
// run; the outputs themselves are already complete at that point.
type Exporter interface {
	ExportFieldRecords(ctx context.Context, f *frame.Frame, fieldIDColumn string) error
	ExportSummaries(ctx context.Context, table domain.SummaryTable) error
}

// Runner executes both pipelines, once or on an interval. Each run builds
// fresh processors: a processor is single-writer and run-to-completion, so
// nothing is shared between runs, and the two pipelines within a run are
// independent of each other.
type Runner struct {
	newField   func() *FieldProcessor
	newWeather func() *WeatherProcessor
	exporter   Exporter // nil disables export
	fieldIDCol string

	interval time.Duration
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics
	ready    atomic.Bool
}

// NewRunner creates a Runner. Pass a nil exporter to disable export and a
// zero interval to run once.
func NewRunner(
	newField func() *FieldProcessor,
	newWeather func() *WeatherProcessor,
	exporter Exporter,
	fieldIDCol string,
	interval time.Duration,
	clock clockwork.Clock,
	logger *slog.Logger,
	metrics *observability.Metrics,
) *Runner {
	return &Runner{
		newField:   newField,
		newWeather: newWeather,
		exporter:   exporter,
		fieldIDCol: fieldIDCol,
		interval:   interval,
		clock:      clock,
		logger:     logger,
		metrics:    metrics,
	}
}

// CheckReadiness returns nil once both pipelines have completed a full
// successful run.
func (r *Runner) CheckReadiness(_ context.Context) error {
	if !r.ready.Load() {
		return errors.New("no successful pipeline run yet")
	}
	return nil
}

// RunOnce executes the field and weather pipelines and, when export is
// enabled, publishes both outputs. Any failure aborts the run; the caller
// decides whether to retry the whole run.
func (r *Runner) RunOnce(ctx context.Context) (*frame.Frame, domain.SummaryTable, error) {
	enriched, err := r.runField(ctx)
	if err != nil {
		return nil, domain.SummaryTable{}, err
	}

	summary, err := r.runWeather(ctx)
	if err != nil {
		return nil, domain.SummaryTable{}, err
	}

	if r.exporter != nil {
		if err := r.exporter.ExportFieldRecords(ctx, enriched, r.fieldIDCol); err != nil {
			return nil, domain.SummaryTable{}, err
		}
		r.metrics.RecordsExported.WithLabelValues("field_records").Add(float64(enriched.Len()))

		if err := r.exporter.ExportSummaries(ctx, summary); err != nil {
			return nil, domain.SummaryTable{}, err
		}
		r.metrics.RecordsExported.WithLabelValues("station_summaries").Add(float64(summary.Size()))
	}

	r.ready.Store(true)
	r.metrics.LastRunEpoch.Set(float64(r.clock.Now().Unix()))
	return enriched, summary, nil
}

// Run executes RunOnce and, when an interval is configured, keeps re-running
// until the context is cancelled. With a zero interval it returns after the
// single run.
func (r *Runner) Run(ctx context.Context) error {
	for {
		if _, _, err := r.RunOnce(ctx); err != nil {
			if r.interval <= 0 {
				return err
			}
			r.logger.Error("pipeline run failed", "error", err)
		}

		if r.interval <= 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			r.logger.Info("runner stopping", "reason", ctx.Err())
			return nil
		case <-r.clock.After(r.interval):
		}
	}
}

func (r *Runner) runField(ctx context.Context) (*frame.Frame, error) {
	start := r.clock.Now()
	enriched, err := r.newField().Process(ctx)
	r.observeRun("field", start, err)
	return enriched, err
}

func (r *Runner) runWeather(ctx context.Context) (domain.SummaryTable, error) {
	start := r.clock.Now()
	summary, err := r.newWeather().Process(ctx)
	r.observeRun("weather", start, err)
	return summary, err
}

func (r *Runner) observeRun(pipeline string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	r.metrics.PipelineRuns.WithLabelValues(pipeline, outcome).Inc()
	r.metrics.RunDuration.WithLabelValues(pipeline).Observe(r.clock.Since(start).Seconds())
}
