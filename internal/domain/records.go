package domain

import "errors"

var (
	// ErrEmptyResult reports that the tabular data source returned zero
	// rows. An empty survey result is a data-quality failure, never a
	// valid empty dataset.
	ErrEmptyResult = errors.New("query returned an empty result set")

	// ErrEmptySource reports that a remote record source held no rows.
	ErrEmptySource = errors.New("record source is empty or invalid")
)

// StationMapping associates a surveyed field with the weather station
// relevant to it. At most one station per field is meaningful; duplicate
// field ids in the source are a configuration defect handled at join time.
type StationMapping struct {
	FieldID   string `csv:"Field_ID"`
	StationID string `csv:"Weather_station"`
}

// StationMessage is one raw telemetry message from a weather station.
// Messages carry no uniqueness constraint.
type StationMessage struct {
	StationID string `csv:"Weather_station_ID"`
	Message   string `csv:"Message"`
}

// Reading is a StationMessage annotated with its extracted measurement.
// The embedded Measurement is the zero sentinel when no pattern matched.
type Reading struct {
	StationID string
	Message   string
	Measurement
}
