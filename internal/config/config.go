// Package config loads service settings from the environment and the
// pipeline bundle from a YAML file. The bundle carries everything the
// pipelines consume: the survey query, the swapped-column pair, the crop
// correction table, the record-source locations, and the ordered
// measurement pattern table.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all service settings, populated from environment variables,
// plus the pipeline bundle loaded from PIPELINE_CONFIG.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// RunInterval re-runs both pipelines on this interval; zero means run
	// once and exit.
	RunInterval time.Duration

	DBDriver     string
	DBDSN        string
	FetchTimeout time.Duration

	// Kafka export configuration (feature-flagged).
	ExportEnabled     bool
	KafkaBrokers      []string
	KafkaFieldTopic   string
	KafkaSummaryTopic string

	Bundle *Bundle
}

// ColumnSwap names the two columns believed swapped upstream, in the order
// they should be exchanged.
type ColumnSwap struct {
	First  string `yaml:"first"`
	Second string `yaml:"second"`
}

// PatternRule is one entry of the ordered measurement pattern table.
type PatternRule struct {
	Kind    string `yaml:"kind"`
	Pattern string `yaml:"pattern"`
}

// Bundle is the pipeline configuration consumed by the core.
type Bundle struct {
	SQLQuery string `yaml:"sql_query"`

	ColumnSwap      ColumnSwap        `yaml:"column_swap"`
	FieldIDColumn   string            `yaml:"field_id_column"`
	ElevationColumn string            `yaml:"elevation_column"`
	CropColumn      string            `yaml:"crop_column"`
	StationColumn   string            `yaml:"station_column"`
	CropCorrections map[string]string `yaml:"crop_corrections"`

	StationMappingSource  string `yaml:"station_mapping_source"`
	WeatherMessagesSource string `yaml:"weather_messages_source"`

	// Patterns is ordered; extraction resolves ambiguous messages by this
	// declaration order.
	Patterns []PatternRule `yaml:"patterns"`
}

// Load reads configuration from the environment (and an optional .env file),
// applying defaults where unset, then loads and validates the bundle.
func Load() (*Config, error) {
	_ = godotenv.Load() // a missing .env is fine

	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	runInterval, err := parseDuration("RUN_INTERVAL", "0s")
	if err != nil {
		return nil, err
	}
	fetchTimeout, err := parseDuration("FETCH_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		RunInterval:     runInterval,

		DBDriver:     envOrDefault("DB_DRIVER", "sqlite3"),
		DBDSN:        os.Getenv("DB_DSN"),
		FetchTimeout: fetchTimeout,

		ExportEnabled:     os.Getenv("EXPORT_ENABLED") == "true",
		KafkaBrokers:      splitList(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaFieldTopic:   envOrDefault("KAFKA_FIELD_TOPIC", "enriched-field-records"),
		KafkaSummaryTopic: envOrDefault("KAFKA_SUMMARY_TOPIC", "station-summaries"),
	}

	if cfg.DBDriver != "sqlite3" && cfg.DBDriver != "mysql" {
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	if cfg.DBDSN == "" {
		return nil, errors.New("DB_DSN is required")
	}
	if cfg.ExportEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("EXPORT_ENABLED is true but KAFKA_BROKERS is empty")
		}
		if cfg.KafkaFieldTopic == "" || cfg.KafkaSummaryTopic == "" {
			return nil, errors.New("EXPORT_ENABLED is true but a sink topic is empty")
		}
	}

	bundle, err := LoadBundle(envOrDefault("PIPELINE_CONFIG", "config/pipeline.yaml"))
	if err != nil {
		return nil, err
	}
	cfg.Bundle = bundle

	return cfg, nil
}

// LoadBundle reads and validates a pipeline bundle file.
func LoadBundle(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pipeline bundle: %w", err)
	}
	var b Bundle
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parse pipeline bundle %s: %w", path, err)
	}
	b.applyDefaults()
	if err := b.validate(); err != nil {
		return nil, fmt.Errorf("pipeline bundle %s: %w", path, err)
	}
	return &b, nil
}

func (b *Bundle) applyDefaults() {
	if b.FieldIDColumn == "" {
		b.FieldIDColumn = "Field_ID"
	}
	if b.ElevationColumn == "" {
		b.ElevationColumn = "Elevation"
	}
	if b.CropColumn == "" {
		b.CropColumn = "Crop_type"
	}
	if b.StationColumn == "" {
		b.StationColumn = "Weather_station"
	}
}

func (b *Bundle) validate() error {
	if strings.TrimSpace(b.SQLQuery) == "" {
		return errors.New("sql_query is required")
	}
	if b.ColumnSwap.First == "" || b.ColumnSwap.Second == "" {
		return errors.New("column_swap needs both names")
	}
	if b.ColumnSwap.First == b.ColumnSwap.Second {
		return errors.New("column_swap names must differ")
	}
	if b.StationMappingSource == "" {
		return errors.New("station_mapping_source is required")
	}
	if b.WeatherMessagesSource == "" {
		return errors.New("weather_messages_source is required")
	}
	if len(b.Patterns) == 0 {
		return errors.New("at least one measurement pattern is required")
	}
	for _, p := range b.Patterns {
		if p.Kind == "" || p.Pattern == "" {
			return fmt.Errorf("pattern entry %+v needs both kind and pattern", p)
		}
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDuration(key, fallback string) (time.Duration, error) {
	raw := envOrDefault(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return d, nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
