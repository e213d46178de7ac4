// Package frame provides a small column-oriented table for survey rows whose
// column set is determined by a caller-supplied query rather than a fixed
// schema. Columns are addressed by name; renames operate on the name
// namespace without touching cell values.
package frame

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrMissingColumn is returned when an operation names a column the
	// frame does not have.
	ErrMissingColumn = errors.New("column not found")

	// ErrDuplicateColumn is returned when a frame would end up with two
	// columns of the same name.
	ErrDuplicateColumn = errors.New("duplicate column name")
)

// Frame is a column-oriented table. Column names form a flat namespace;
// values are stored per column in row order.
type Frame struct {
	names []string
	cols  [][]any
}

// New creates an empty frame with the given column names.
func New(names ...string) (*Frame, error) {
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if name == "" {
			return nil, errors.New("empty column name")
		}
		if _, ok := seen[name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, name)
		}
		seen[name] = struct{}{}
	}
	f := &Frame{
		names: append([]string(nil), names...),
		cols:  make([][]any, len(names)),
	}
	return f, nil
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	if len(f.cols) == 0 {
		return 0
	}
	return len(f.cols[0])
}

// Width returns the number of columns.
func (f *Frame) Width() int { return len(f.names) }

// Columns returns a copy of the column names in order.
func (f *Frame) Columns() []string {
	return append([]string(nil), f.names...)
}

// Has reports whether the frame contains a column with the given name.
func (f *Frame) Has(name string) bool {
	return f.index(name) >= 0
}

func (f *Frame) index(name string) int {
	for i, n := range f.names {
		if n == name {
			return i
		}
	}
	return -1
}

// AppendRow appends one row. The number of values must match the width.
func (f *Frame) AppendRow(values ...any) error {
	if len(values) != len(f.names) {
		return fmt.Errorf("row has %d values, frame has %d columns", len(values), len(f.names))
	}
	for i, v := range values {
		f.cols[i] = append(f.cols[i], v)
	}
	return nil
}

// Value returns the cell at (column, row).
func (f *Frame) Value(name string, row int) (any, error) {
	i := f.index(name)
	if i < 0 {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
	}
	if row < 0 || row >= len(f.cols[i]) {
		return nil, fmt.Errorf("row %d out of range for column %q", row, name)
	}
	return f.cols[i][row], nil
}

// Row returns one row as a name-to-value map, for serialization.
func (f *Frame) Row(row int) (map[string]any, error) {
	if row < 0 || row >= f.Len() {
		return nil, fmt.Errorf("row %d out of range", row)
	}
	m := make(map[string]any, len(f.names))
	for i, name := range f.names {
		m[name] = f.cols[i][row]
	}
	return m, nil
}

// SwapNames exchanges two column names without touching their values. The
// swap goes through a placeholder name probed for uniqueness, and commits a
// rebuilt namespace only once every step has succeeded, so the frame is
// never observable in a half-renamed state.
func (f *Frame) SwapNames(first, second string) error {
	if first == second {
		return fmt.Errorf("cannot swap column %q with itself", first)
	}
	if !f.Has(first) {
		return fmt.Errorf("%w: %q", ErrMissingColumn, first)
	}
	if !f.Has(second) {
		return fmt.Errorf("%w: %q", ErrMissingColumn, second)
	}

	placeholder := "__column_swap__"
	for f.Has(placeholder) {
		placeholder += "_"
	}

	names := append([]string(nil), f.names...)
	rename := func(from, to string) {
		for i, n := range names {
			if n == from {
				names[i] = to
				return
			}
		}
	}
	rename(first, placeholder)
	rename(second, first)
	rename(placeholder, second)

	f.names = names
	return nil
}

// Apply replaces every value in the named column with fn(value). The new
// column is built in full before it is committed, so a failing fn leaves the
// frame unchanged.
func (f *Frame) Apply(name string, fn func(any) (any, error)) error {
	i := f.index(name)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrMissingColumn, name)
	}
	updated := make([]any, len(f.cols[i]))
	for row, v := range f.cols[i] {
		out, err := fn(v)
		if err != nil {
			return fmt.Errorf("column %q row %d: %w", name, row, err)
		}
		updated[row] = out
	}
	f.cols[i] = updated
	return nil
}

// WithColumn appends a new column. The value count must match the row count
// and the name must not collide with an existing column.
func (f *Frame) WithColumn(name string, values []any) error {
	if name == "" {
		return errors.New("empty column name")
	}
	if f.Has(name) {
		return fmt.Errorf("%w: %q", ErrDuplicateColumn, name)
	}
	if len(values) != f.Len() {
		return fmt.Errorf("column %q has %d values, frame has %d rows", name, len(values), f.Len())
	}
	f.names = append(f.names, name)
	f.cols = append(f.cols, append([]any(nil), values...))
	return nil
}

// Float returns the cell at (column, row) coerced to float64.
func (f *Frame) Float(name string, row int) (float64, error) {
	v, err := f.Value(name, row)
	if err != nil {
		return 0, err
	}
	out, err := ToFloat(v)
	if err != nil {
		return 0, fmt.Errorf("column %q row %d: %w", name, row, err)
	}
	return out, nil
}

// ToFloat coerces a cell value to float64. It accepts the numeric and text
// shapes database/sql drivers produce.
func ToFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case int:
		return float64(x), nil
	case string:
		out, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0, fmt.Errorf("not numeric: %q", x)
		}
		return out, nil
	case []byte:
		return ToFloat(string(x))
	case nil:
		return 0, errors.New("value is null")
	default:
		return 0, fmt.Errorf("not numeric: %T", v)
	}
}

// ToString coerces a cell value to its string form.
func ToString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case nil:
		return "", errors.New("value is null")
	default:
		return fmt.Sprint(x), nil
	}
}

// Key renders a cell value as a join key. Integral floats and integers
// produce the same key, so a numeric id read by one driver as int64 and by
// another as float64 still joins against its text form.
func Key(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}
