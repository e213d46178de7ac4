package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/majindogo/agri-survey-etl/internal/domain"
	"github.com/majindogo/agri-survey-etl/internal/frame"
	"github.com/majindogo/agri-survey-etl/internal/observability"
)

// TabularSource supplies survey rows for a caller-supplied query.
type TabularSource interface {
	Query(ctx context.Context, query string) (*frame.Frame, error)
}

// MappingSource supplies the field-to-station mapping records.
type MappingSource interface {
	FetchMappings(ctx context.Context, location string) ([]domain.StationMapping, error)
}

// fieldState tracks pipeline progress. Each operation requires the prior
// state and advances it; out-of-order invocation is logged and skipped
// rather than raised, so an orchestrator can decide how to proceed.
type fieldState int

const (
	stateUnloaded fieldState = iota
	stateLoaded
	stateColumnsFixed
	stateCorrected
	stateMapped
)

func (s fieldState) String() string {
	switch s {
	case stateUnloaded:
		return "unloaded"
	case stateLoaded:
		return "loaded"
	case stateColumnsFixed:
		return "columns-fixed"
	case stateCorrected:
		return "corrected"
	case stateMapped:
		return "mapped"
	default:
		return "invalid"
	}
}

// FieldConfig carries the configuration the field pipeline consumes.
type FieldConfig struct {
	Query           string
	SwapFirst       string
	SwapSecond      string
	FieldIDColumn   string
	ElevationColumn string
	CropColumn      string
	StationColumn   string
	CropCorrections map[string]string
	MappingSource   string
}

// FieldProcessor cleans and enriches field survey records: load, column
// identity correction, value corrections, station mapping. A processor owns
// its working frame exclusively for a single run-to-completion pass; its
// methods must not be called concurrently.
type FieldProcessor struct {
	source   TabularSource
	mappings MappingSource
	cfg      FieldConfig
	logger   *slog.Logger
	metrics  *observability.Metrics

	df    *frame.Frame
	state fieldState
}

// NewFieldProcessor creates a field pipeline over the given sources.
func NewFieldProcessor(source TabularSource, mappings MappingSource, cfg FieldConfig, logger *slog.Logger, metrics *observability.Metrics) *FieldProcessor {
	return &FieldProcessor{
		source:   source,
		mappings: mappings,
		cfg:      cfg,
		logger:   logger.With("pipeline", "field"),
		metrics:  metrics,
	}
}

// Frame returns the working frame, nil before Ingest.
func (p *FieldProcessor) Frame() *frame.Frame { return p.df }

// Ingest loads field records from the tabular source. An empty result set
// is a hard failure (domain.ErrEmptyResult surfaces unchanged).
func (p *FieldProcessor) Ingest(ctx context.Context) (*frame.Frame, error) {
	if p.state != stateUnloaded {
		p.logger.Warn("ingest skipped: data already loaded", "state", p.state.String())
		return p.df, nil
	}

	f, err := p.source.Query(ctx, p.cfg.Query)
	if err != nil {
		return nil, fmt.Errorf("ingest field records: %w", err)
	}

	p.df = f
	p.state = stateLoaded
	p.metrics.FieldRowsIngested.Add(float64(f.Len()))
	p.logger.Info("field records loaded", "rows", f.Len(), "columns", f.Width())
	return f, nil
}

// RenameColumns exchanges the configured pair of swapped column names,
// leaving values untouched. The swap is atomic: on any failure the frame
// keeps its original names.
func (p *FieldProcessor) RenameColumns() error {
	if p.state != stateLoaded {
		p.logger.Warn("rename skipped: pipeline not in loaded state", "state", p.state.String())
		return nil
	}

	if err := p.df.SwapNames(p.cfg.SwapFirst, p.cfg.SwapSecond); err != nil {
		return fmt.Errorf("swap columns %q and %q: %w", p.cfg.SwapFirst, p.cfg.SwapSecond, err)
	}

	p.state = stateColumnsFixed
	p.logger.Info("swapped columns", "first", p.cfg.SwapFirst, "second", p.cfg.SwapSecond)
	return nil
}

// ApplyCorrections replaces elevations with their absolute value and remaps
// crop labels through the correction table; unrecognized labels pass through
// unchanged. Both corrections are idempotent.
func (p *FieldProcessor) ApplyCorrections() error {
	if p.state != stateColumnsFixed {
		p.logger.Warn("corrections skipped: columns not fixed yet", "state", p.state.String())
		return nil
	}

	err := p.df.Apply(p.cfg.ElevationColumn, func(v any) (any, error) {
		elev, err := frame.ToFloat(v)
		if err != nil {
			return nil, err
		}
		return math.Abs(elev), nil
	})
	if err != nil {
		return fmt.Errorf("correct elevations: %w", err)
	}

	err = p.df.Apply(p.cfg.CropColumn, func(v any) (any, error) {
		label, err := frame.ToString(v)
		if err != nil {
			return nil, err
		}
		if canonical, ok := p.cfg.CropCorrections[label]; ok {
			return canonical, nil
		}
		return label, nil
	})
	if err != nil {
		return fmt.Errorf("correct crop labels: %w", err)
	}

	p.state = stateCorrected
	p.logger.Info("corrections applied",
		"elevation_column", p.cfg.ElevationColumn,
		"crop_column", p.cfg.CropColumn,
	)
	return nil
}

// AttachStations left-joins the station mapping onto the working frame by
// field id. Every existing row is kept exactly once; unmatched rows get a
// null station. Duplicate field ids in the mapping source are a
// configuration defect and are deduplicated keep-first with a warning.
func (p *FieldProcessor) AttachStations(ctx context.Context) error {
	if p.state != stateCorrected {
		p.logger.Warn("station mapping skipped: corrections not applied yet", "state", p.state.String())
		return nil
	}

	mappings, err := p.mappings.FetchMappings(ctx, p.cfg.MappingSource)
	if err != nil {
		return fmt.Errorf("fetch station mappings: %w", err)
	}

	byField := make(map[string]string, len(mappings))
	for _, m := range mappings {
		if _, dup := byField[m.FieldID]; dup {
			p.logger.Warn("duplicate station mapping, keeping first", "field_id", m.FieldID)
			p.metrics.DuplicateMappings.Inc()
			continue
		}
		byField[m.FieldID] = m.StationID
	}

	stations := make([]any, p.df.Len())
	unmapped := 0
	for i := 0; i < p.df.Len(); i++ {
		id, err := p.df.Value(p.cfg.FieldIDColumn, i)
		if err != nil {
			return fmt.Errorf("read field id: %w", err)
		}
		if station, ok := byField[frame.Key(id)]; ok {
			stations[i] = station
		} else {
			stations[i] = nil
			unmapped++
		}
	}

	if err := p.df.WithColumn(p.cfg.StationColumn, stations); err != nil {
		return fmt.Errorf("attach station column: %w", err)
	}

	p.state = stateMapped
	p.metrics.UnmappedFields.Add(float64(unmapped))
	p.logger.Info("station mapping attached",
		"mapped", p.df.Len()-unmapped,
		"unmapped", unmapped,
	)
	return nil
}

// Process runs the full pipeline in its fixed order and returns the
// enriched frame.
func (p *FieldProcessor) Process(ctx context.Context) (*frame.Frame, error) {
	if _, err := p.Ingest(ctx); err != nil {
		return nil, err
	}
	if err := p.RenameColumns(); err != nil {
		return nil, err
	}
	if err := p.ApplyCorrections(); err != nil {
		return nil, err
	}
	if err := p.AttachStations(ctx); err != nil {
		return nil, err
	}
	p.logger.Info("field data processing complete", "rows", p.df.Len())
	return p.df, nil
}
