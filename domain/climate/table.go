package climate

import (
	"fmt"
	"math"

	"climatrend/domain/core"
)

// Month column names in calendar order
var MonthColumns = []string{
	"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
}

// Season column names. Seasonal values come precomputed from the source and
// are NOT derived from the month columns (DJF spans a year boundary).
var SeasonColumns = []string{"DJF", "MAM", "JJA", "SON"}

// YearColumn is the header name of the year field
const YearColumn = "Year"

// AnnualColumn is the derived mean-of-available-months column
const AnnualColumn = "annual_temp"

// Missing is the in-memory representation of "no value". Sentinel tokens and
// failed coercions become Missing, never zero.
func Missing() float64 { return math.NaN() }

// IsMissing reports whether a value is "no value"
func IsMissing(v float64) bool { return math.IsNaN(v) }

// Table is the cleaned observation table: one row per year, stored columnar.
// It is immutable after cleaning; a reload produces a fresh Table that the
// owner swaps in atomically, so concurrent readers never see partial state.
type Table struct {
	Section Section

	// Columns preserves the value-column order of the source header
	// (Year excluded). Cleaning never reorders or renames columns.
	Columns []string

	// Years is row-aligned with every column slice
	Years []int

	// Data maps column name to row-aligned values; Missing() marks gaps
	Data map[string][]float64

	// Annual is the derived annual_temp column: mean of the non-missing
	// months per row, Missing() when all twelve are absent
	Annual []float64
}

// RowCount returns the number of year records
func (t *Table) RowCount() int { return len(t.Years) }

// Column returns the row-aligned values for a named column
func (t *Table) Column(name string) ([]float64, bool) {
	if name == AnnualColumn {
		return t.Annual, true
	}
	vals, ok := t.Data[name]
	return vals, ok
}

// HasColumn reports whether the table carries a named value column
func (t *Table) HasColumn(name string) bool {
	_, ok := t.Column(name)
	return ok
}

// AnnualSeries returns the (year, annual_temp) series
func (t *Table) AnnualSeries() Series {
	return Series{Key: AnnualColumn, Years: t.Years, Values: t.Annual}
}

// ColumnSeries returns the (year, value) series for a named column
func (t *Table) ColumnSeries(name string) (Series, bool) {
	vals, ok := t.Column(name)
	if !ok {
		return Series{}, false
	}
	return Series{Key: name, Years: t.Years, Values: vals}, true
}

// YearRange returns the first and last year in table order
func (t *Table) YearRange() (first, last int) {
	if len(t.Years) == 0 {
		return 0, 0
	}
	return t.Years[0], t.Years[len(t.Years)-1]
}

// Validate ensures the table is internally consistent
func (t *Table) Validate() error {
	rows := len(t.Years)
	if len(t.Annual) != rows {
		return fmt.Errorf("annual column has %d rows, expected %d: %w", len(t.Annual), rows, core.ErrColumnMismatch)
	}
	if len(t.Data) != len(t.Columns) {
		return fmt.Errorf("table holds %d columns, header names %d: %w", len(t.Data), len(t.Columns), core.ErrColumnMismatch)
	}
	for _, name := range t.Columns {
		vals, ok := t.Data[name]
		if !ok {
			return fmt.Errorf("column %q named in header but not stored: %w", name, core.ErrColumnMismatch)
		}
		if len(vals) != rows {
			return fmt.Errorf("column %q has %d rows, expected %d: %w", name, len(vals), rows, core.ErrColumnMismatch)
		}
	}
	return nil
}

// Series is a row-aligned (year, value) sequence over one column
type Series struct {
	Key    string    `json:"key"`
	Years  []int     `json:"years"`
	Values []float64 `json:"values"`
}

// Len returns the series length
func (s Series) Len() int { return len(s.Values) }

// ValidPairs filters out missing values, returning aligned year/value slices
func (s Series) ValidPairs() (xs, ys []float64) {
	for i, v := range s.Values {
		if IsMissing(v) {
			continue
		}
		xs = append(xs, float64(s.Years[i]))
		ys = append(ys, v)
	}
	return xs, ys
}

// ValidValues returns the non-missing values in order
func (s Series) ValidValues() []float64 {
	out := make([]float64, 0, len(s.Values))
	for _, v := range s.Values {
		if !IsMissing(v) {
			out = append(out, v)
		}
	}
	return out
}
