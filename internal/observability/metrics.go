package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// survey ETL pipelines.
type Metrics struct {
	FieldRowsIngested prometheus.Counter
	UnmappedFields    prometheus.Counter
	DuplicateMappings prometheus.Counter

	MessagesProcessed     prometheus.Counter
	MeasurementsExtracted *prometheus.CounterVec // label: kind
	UnmatchedMessages     prometheus.Counter

	PipelineRuns *prometheus.CounterVec   // labels: pipeline={field,weather}, outcome={success,error}
	RunDuration  *prometheus.HistogramVec // label: pipeline
	LastRunEpoch prometheus.Gauge

	RecordsExported *prometheus.CounterVec // label: output={field_records,station_summaries}
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.FieldRowsIngested,
		m.UnmappedFields,
		m.DuplicateMappings,
		m.MessagesProcessed,
		m.MeasurementsExtracted,
		m.UnmatchedMessages,
		m.PipelineRuns,
		m.RunDuration,
		m.LastRunEpoch,
		m.RecordsExported,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		FieldRowsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agri_etl",
			Name:      "field_rows_ingested_total",
			Help:      "Total field survey rows loaded from the tabular source.",
		}),
		UnmappedFields: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agri_etl",
			Name:      "unmapped_fields_total",
			Help:      "Field rows with no station mapping after the left join.",
		}),
		DuplicateMappings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agri_etl",
			Name:      "duplicate_mappings_total",
			Help:      "Duplicate field ids in the mapping source, dropped keep-first.",
		}),
		MessagesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agri_etl",
			Name:      "messages_processed_total",
			Help:      "Total station messages run through measurement extraction.",
		}),
		MeasurementsExtracted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agri_etl",
			Name:      "measurements_extracted_total",
			Help:      "Extracted measurements by kind.",
		}, []string{"kind"}),
		UnmatchedMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agri_etl",
			Name:      "unmatched_messages_total",
			Help:      "Station messages no pattern matched.",
		}),
		PipelineRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agri_etl",
			Name:      "pipeline_runs_total",
			Help:      "Pipeline runs by pipeline and outcome.",
		}, []string{"pipeline", "outcome"}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "agri_etl",
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete pipeline run.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"pipeline"}),
		LastRunEpoch: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "agri_etl",
			Name:      "last_successful_run_timestamp_seconds",
			Help:      "Unix time of the last run where both pipelines succeeded.",
		}),
		RecordsExported: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agri_etl",
			Name:      "records_exported_total",
			Help:      "Records published to sink topics by output.",
		}, []string{"output"}),
	}
}
