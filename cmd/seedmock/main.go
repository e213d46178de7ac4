// Command seedmock writes a synthetic survey database and the two station
// CSVs so the ETL service can be run end-to-end locally. The generated data
// reproduces the upstream defects the pipelines exist to fix: swapped column
// labels, signed elevations, misspelled crop labels, and telemetry messages
// that match no pattern.
//
// Usage:
//
//	go run ./cmd/seedmock -db data/survey.db \
//	  -mappings data/station_mapping.csv \
//	  -messages data/station_messages.csv
//
// Run the service against the output with:
//
//	DB_DSN=data/survey.db PIPELINE_CONFIG=config/pipeline.local.yaml go run ./cmd/etl
//
// where the local bundle queries "SELECT * FROM field_survey" and points
// both sources at the generated CSVs.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/jszwec/csvutil"
	_ "github.com/mattn/go-sqlite3"

	"github.com/majindogo/agri-survey-etl/internal/domain"
)

var crops = []string{"cassava", "cassaval", "wheat", "wheatn", "tea", "teaa", "maize", "banana"}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	dbPath := flag.String("db", "data/survey.db", "output path for the SQLite survey database")
	mappingsOut := flag.String("mappings", "data/station_mapping.csv", "output path for the station mapping CSV")
	messagesOut := flag.String("messages", "data/station_messages.csv", "output path for the station messages CSV")
	fields := flag.Int("fields", 50, "number of field records")
	stations := flag.Int("stations", 4, "number of weather stations")
	seed := flag.Int64("seed", 1, "random seed, fixed for reproducible fixtures")
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))

	if err := writeDatabase(*dbPath, *fields, rng); err != nil {
		return fmt.Errorf("write survey database: %w", err)
	}
	if err := writeMappings(*mappingsOut, *fields, *stations, rng); err != nil {
		return fmt.Errorf("write station mappings: %w", err)
	}
	if err := writeMessages(*messagesOut, *stations, rng); err != nil {
		return fmt.Errorf("write station messages: %w", err)
	}

	log.Printf("seeded %d fields, %d stations", *fields, *stations)
	return nil
}

func writeDatabase(path string, fields int, rng *rand.Rand) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	// Start fresh so reruns stay deterministic.
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return err
	}
	defer db.Close()

	// Annual_yield and Crop_type are deliberately swapped, matching the
	// upstream labeling defect the field pipeline corrects.
	const schema = `
	CREATE TABLE field_survey (
		Field_ID     INTEGER PRIMARY KEY,
		Elevation    REAL NOT NULL,
		Annual_yield TEXT NOT NULL,
		Crop_type    REAL NOT NULL,
		Rainfall     REAL NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO field_survey (Field_ID, Elevation, Annual_yield, Crop_type, Rainfall) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := 1; i <= fields; i++ {
		elevation := rng.Float64()*1500 + 50
		if rng.Intn(3) == 0 {
			elevation = -elevation // sign is not meaningful upstream
		}
		crop := crops[rng.Intn(len(crops))]
		yield := rng.Float64() * 10
		rainfall := rng.Float64() * 1200

		if _, err := stmt.Exec(i, elevation, crop, yield, rainfall); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func writeMappings(path string, fields, stations int, rng *rand.Rand) error {
	mappings := make([]domain.StationMapping, 0, fields)
	for i := 1; i <= fields; i++ {
		// Leave some fields unmapped so the left join has absent stations.
		if rng.Intn(10) == 0 {
			continue
		}
		mappings = append(mappings, domain.StationMapping{
			FieldID:   fmt.Sprint(i),
			StationID: fmt.Sprintf("ST-%d", rng.Intn(stations)),
		})
	}
	return writeCSV(path, mappings)
}

func writeMessages(path string, stations int, rng *rand.Rand) error {
	templates := []func() string{
		func() string { return fmt.Sprintf("Rainfall: %.1f mm measured at dawn", rng.Float64()*60) },
		func() string { return fmt.Sprintf("Temperature at noon was %.1f C", rng.Float64()*35) },
		func() string { return fmt.Sprintf("Pollution at %.2f", rng.Float64()*20) },
		func() string { return "station offline" },
	}

	messages := make([]domain.StationMessage, 0, stations*25)
	for s := 0; s < stations; s++ {
		for i := 0; i < 25; i++ {
			messages = append(messages, domain.StationMessage{
				StationID: fmt.Sprintf("ST-%d", s),
				Message:   templates[rng.Intn(len(templates))](),
			})
		}
	}
	return writeCSV(path, messages)
}

func writeCSV[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := csvutil.Marshal(records)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
