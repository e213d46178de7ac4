package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/majindogo/agri-survey-etl/internal/domain"
	"github.com/majindogo/agri-survey-etl/internal/observability"
)

// MessageSource supplies raw weather-station messages.
type MessageSource interface {
	FetchMessages(ctx context.Context, location string) ([]domain.StationMessage, error)
}

// WeatherConfig carries the configuration the weather pipeline consumes.
type WeatherConfig struct {
	MessagesSource string
	Patterns       domain.PatternSet
}

// WeatherProcessor turns raw station messages into per-station measurement
// means. Like the field pipeline it is single-writer, run-to-completion: one
// processor per run, no concurrent method calls.
type WeatherProcessor struct {
	source  MessageSource
	cfg     WeatherConfig
	logger  *slog.Logger
	metrics *observability.Metrics

	// messages is nil until Load succeeds; readings is nil until
	// ExtractMessages runs. nil is "not processed", distinct from a
	// processed, zero-row slice.
	messages []domain.StationMessage
	loaded   bool
	readings []domain.Reading
}

// NewWeatherProcessor creates a weather pipeline over the given source.
func NewWeatherProcessor(source MessageSource, cfg WeatherConfig, logger *slog.Logger, metrics *observability.Metrics) *WeatherProcessor {
	return &WeatherProcessor{
		source:  source,
		cfg:     cfg,
		logger:  logger.With("pipeline", "weather"),
		metrics: metrics,
	}
}

// Load fetches the raw station messages from the record source.
func (p *WeatherProcessor) Load(ctx context.Context) error {
	msgs, err := p.source.FetchMessages(ctx, p.cfg.MessagesSource)
	if err != nil {
		return fmt.Errorf("load station messages: %w", err)
	}
	p.messages = msgs
	p.loaded = true
	p.logger.Info("station messages loaded", "rows", len(msgs))
	return nil
}

// ExtractMessages runs measurement extraction over every loaded message,
// producing readings aligned one-to-one with input order and count. Messages
// no pattern matches become sentinel readings, not errors; a matched but
// non-numeric capture is fatal. Invoked before Load it warns and returns nil
// readings ("not processed"), which callers must distinguish from a
// processed, empty slice.
func (p *WeatherProcessor) ExtractMessages() ([]domain.Reading, error) {
	if !p.loaded {
		p.logger.Warn("station messages not loaded, skipping extraction")
		return nil, nil
	}

	readings := make([]domain.Reading, 0, len(p.messages))
	for _, msg := range p.messages {
		m, err := p.cfg.Patterns.Extract(msg.Message)
		if err != nil {
			return nil, fmt.Errorf("extract measurement for station %s: %w", msg.StationID, err)
		}
		if m.Known() {
			p.metrics.MeasurementsExtracted.WithLabelValues(m.Kind).Inc()
		} else {
			p.metrics.UnmatchedMessages.Inc()
			p.logger.Debug("no measurement match", "station", msg.StationID, "message", msg.Message)
		}
		readings = append(readings, domain.Reading{
			StationID:   msg.StationID,
			Message:     msg.Message,
			Measurement: m,
		})
	}

	p.readings = readings
	p.metrics.MessagesProcessed.Add(float64(len(readings)))
	p.logger.Info("messages processed", "rows", len(readings))
	return readings, nil
}

// CalculateMeans aggregates the extracted readings into a station summary.
// The second return is false when extraction has not run yet; the stage
// warns and yields no summary rather than raising.
func (p *WeatherProcessor) CalculateMeans() (domain.SummaryTable, bool) {
	if p.readings == nil {
		p.logger.Warn("no extracted readings, cannot calculate means")
		return domain.SummaryTable{}, false
	}
	table := domain.Summarize(p.readings)
	p.logger.Info("mean values calculated", "stations", len(table.Stations), "kinds", len(table.Kinds))
	return table, true
}

// Process runs the full pipeline: load, extract, aggregate.
func (p *WeatherProcessor) Process(ctx context.Context) (domain.SummaryTable, error) {
	if err := p.Load(ctx); err != nil {
		return domain.SummaryTable{}, err
	}
	if _, err := p.ExtractMessages(); err != nil {
		return domain.SummaryTable{}, err
	}
	table, ok := p.CalculateMeans()
	if !ok {
		return domain.SummaryTable{}, fmt.Errorf("no readings available for aggregation")
	}
	p.logger.Info("weather data processing complete")
	return table, nil
}
