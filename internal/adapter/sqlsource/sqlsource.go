// Package sqlsource adapts a relational database into the pipelines'
// tabular data source. The database is opaque to the core: it accepts a
// connection descriptor and a query and hands back rows.
package sqlsource

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/majindogo/agri-survey-etl/internal/domain"
	"github.com/majindogo/agri-survey-etl/internal/frame"

	// Drivers selected by the DB_DRIVER setting.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

// Source executes queries against a database/sql driver and returns the
// result as a frame. The connection is scoped to a single Query call and is
// released on every exit path.
type Source struct {
	driver string
	dsn    string
	logger *slog.Logger
}

// New creates a Source for the given driver name and DSN.
func New(driver, dsn string, logger *slog.Logger) *Source {
	return &Source{driver: driver, dsn: dsn, logger: logger}
}

// Query runs the given SQL and returns every row as a frame keyed by the
// result set's column names. A zero-row result returns
// [domain.ErrEmptyResult]: by policy an empty survey result is a
// data-quality failure, not a valid empty dataset.
func (s *Source) Query(ctx context.Context, query string) (*frame.Frame, error) {
	db, err := sql.Open(s.driver, s.dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", s.driver, err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("connect to %s database: %w", s.driver, err)
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read result columns: %w", err)
	}

	f, err := frame.New(columns...)
	if err != nil {
		return nil, fmt.Errorf("build result frame: %w", err)
	}

	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row %d: %w", f.Len(), err)
		}
		// Drivers hand text back as []byte; normalize so labels compare
		// and remap as strings.
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		if err := f.AppendRow(values...); err != nil {
			return nil, fmt.Errorf("append row %d: %w", f.Len(), err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate result set: %w", err)
	}

	if f.Len() == 0 {
		return nil, domain.ErrEmptyResult
	}

	s.logger.Info("query executed", "rows", f.Len(), "columns", len(columns))
	return f, nil
}
