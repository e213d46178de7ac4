package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/majindogo/agri-survey-etl/internal/config"
)

const bundleYAML = `
sql_query: SELECT * FROM field_survey
column_swap:
  first: Annual_yield
  second: Crop_type
crop_corrections:
  cassaval: cassava
  wheatn: wheat
station_mapping_source: https://example.com/mapping.csv
weather_messages_source: https://example.com/messages.csv
patterns:
  - kind: Rainfall
    pattern: '(\d+(\.\d+)?)\s?mm'
  - kind: Temperature
    pattern: '(\d+(\.\d+)?)\s?C'
`

func writeBundle(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DSN", "survey.db")
	t.Setenv("PIPELINE_CONFIG", writeBundle(t, bundleYAML))

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, time.Duration(0), cfg.RunInterval)
	assert.Equal(t, "sqlite3", cfg.DBDriver)
	assert.Equal(t, "survey.db", cfg.DBDSN)
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout)
	assert.False(t, cfg.ExportEnabled)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	require.NotNil(t, cfg.Bundle)
}

func TestLoadCustomValues(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("RUN_INTERVAL", "15m")
	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("DB_DSN", "user:pass@tcp(db:3306)/survey")
	t.Setenv("EXPORT_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("PIPELINE_CONFIG", writeBundle(t, bundleYAML))

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.HTTPAddr)
	assert.Equal(t, 15*time.Minute, cfg.RunInterval)
	assert.Equal(t, "mysql", cfg.DBDriver)
	assert.True(t, cfg.ExportEnabled)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	bundle := writeBundle(t, bundleYAML)

	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "missing DSN",
			env:  map[string]string{},
			want: "DB_DSN",
		},
		{
			name: "unsupported driver",
			env:  map[string]string{"DB_DSN": "x", "DB_DRIVER": "postgres"},
			want: "DB_DRIVER",
		},
		{
			name: "bad interval",
			env:  map[string]string{"DB_DSN": "x", "RUN_INTERVAL": "soon"},
			want: "RUN_INTERVAL",
		},
		{
			name: "export without brokers",
			env:  map[string]string{"DB_DSN": "x", "EXPORT_ENABLED": "true", "KAFKA_BROKERS": " , "},
			want: "KAFKA_BROKERS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("PIPELINE_CONFIG", bundle)
			t.Setenv("DB_DSN", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := config.Load()

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadBundle(t *testing.T) {
	b, err := config.LoadBundle(writeBundle(t, bundleYAML))
	require.NoError(t, err)

	assert.Equal(t, "SELECT * FROM field_survey", b.SQLQuery)
	assert.Equal(t, "Annual_yield", b.ColumnSwap.First)
	assert.Equal(t, "Crop_type", b.ColumnSwap.Second)
	assert.Equal(t, "cassava", b.CropCorrections["cassaval"])

	// Unset column names fall back to the survey schema defaults.
	assert.Equal(t, "Field_ID", b.FieldIDColumn)
	assert.Equal(t, "Elevation", b.ElevationColumn)
	assert.Equal(t, "Crop_type", b.CropColumn)
	assert.Equal(t, "Weather_station", b.StationColumn)

	// Pattern order is the tiebreak for ambiguous messages and must survive
	// the round trip.
	require.Len(t, b.Patterns, 2)
	assert.Equal(t, "Rainfall", b.Patterns[0].Kind)
	assert.Equal(t, "Temperature", b.Patterns[1].Kind)
}

func TestLoadBundleValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing query",
			yaml: `
column_swap: {first: a, second: b}
station_mapping_source: s
weather_messages_source: w
patterns: [{kind: k, pattern: p}]
`,
			want: "sql_query",
		},
		{
			name: "identical swap names",
			yaml: `
sql_query: SELECT 1
column_swap: {first: a, second: a}
station_mapping_source: s
weather_messages_source: w
patterns: [{kind: k, pattern: p}]
`,
			want: "column_swap",
		},
		{
			name: "no patterns",
			yaml: `
sql_query: SELECT 1
column_swap: {first: a, second: b}
station_mapping_source: s
weather_messages_source: w
`,
			want: "pattern",
		},
		{
			name: "pattern missing kind",
			yaml: `
sql_query: SELECT 1
column_swap: {first: a, second: b}
station_mapping_source: s
weather_messages_source: w
patterns: [{pattern: p}]
`,
			want: "kind",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.LoadBundle(writeBundle(t, tt.yaml))

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadBundleMissingFile(t *testing.T) {
	_, err := config.LoadBundle(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
