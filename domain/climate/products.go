package climate

import (
	"encoding/json"
	"math"
	"time"

	"climatrend/domain/core"
)

// Float is a float64 that marshals "no value" as JSON null. Product types use
// it so summaries and derived series serialize without tripping encoding/json
// on NaN; compute paths stay on plain float64.
type Float float64

// F wraps a computed value for serialization
func F(v float64) Float { return Float(v) }

// Defined reports whether the value is present
func (f Float) Defined() bool { return !math.IsNaN(float64(f)) }

// Value returns the underlying float64 (NaN when undefined)
func (f Float) Value() float64 { return float64(f) }

func (f Float) MarshalJSON() ([]byte, error) {
	if math.IsNaN(float64(f)) {
		return []byte("null"), nil
	}
	return json.Marshal(float64(f))
}

func (f *Float) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = Float(math.NaN())
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

// Trend is a least-squares polynomial fit of a value series against year.
// Ephemeral: recomputed on every request, never cached.
type Trend struct {
	Degree int       `json:"degree"`
	Coeffs []float64 `json:"coeffs"` // ascending power: c0 + c1*x + c2*x^2
	Points int       `json:"points"` // valid (year, value) pairs used
}

// Slope returns the linear coefficient (°C/year for degree-1 fits)
func (t Trend) Slope() float64 {
	if len(t.Coeffs) < 2 {
		return math.NaN()
	}
	return t.Coeffs[1]
}

// Intercept returns the constant coefficient
func (t Trend) Intercept() float64 {
	if len(t.Coeffs) < 1 {
		return math.NaN()
	}
	return t.Coeffs[0]
}

// Leading returns the highest-order coefficient (the quadratic term for
// degree-2 fits, reported as "quadratic trend")
func (t Trend) Leading() float64 {
	if len(t.Coeffs) != t.Degree+1 {
		return math.NaN()
	}
	return t.Coeffs[t.Degree]
}

// Extremum pairs a year with its annual value
type Extremum struct {
	Year  int   `json:"year"`
	Value Float `json:"value"`
}

// SeasonTrend is one season's degree-1 slope; Slope is null when that season
// had too few valid points (recorded in Summary.Failures)
type SeasonTrend struct {
	Season string `json:"season"`
	Slope  Float  `json:"slope"`
}

// Variability bundles the spread measures of the summary
type Variability struct {
	AnnualStd      Float `json:"annual_std"`
	MeanMonthlyStd Float `json:"mean_monthly_std"`
	MeanSeasonStd  Float `json:"mean_seasonal_std"`
}

// ComputationFailure records one summary field that could not be computed.
// Field-level failures never invalidate the rest of the summary.
type ComputationFailure struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Summary is the per-request statistics bundle over the current table.
// It has no lifecycle of its own: computed fresh, identical inputs produce
// bitwise-identical output.
type Summary struct {
	Section    Section        `json:"section"`
	FirstYear  int            `json:"first_year"`
	LastYear   int            `json:"last_year"`
	Records    int            `json:"records"`
	Mean       Float          `json:"mean"`
	Std        Float          `json:"std"`
	TrendSlope Float          `json:"trend_slope"` // °C/year
	Quadratic  Float          `json:"quadratic_trend"`
	Warmest    Extremum       `json:"warmest"`
	Coldest    Extremum       `json:"coldest"`
	Seasonal   []SeasonTrend  `json:"seasonal_trends"`
	Spread     Variability    `json:"variability"`
	// Acceleration is late-half slope minus early-half slope
	Acceleration Float                `json:"acceleration"`
	Failures     []ComputationFailure `json:"failures,omitempty"`
}

// DecadalRow aggregates annual_temp over one decade bucket (floor(year/10)*10).
// Count reports rows with a defined annual_temp.
type DecadalRow struct {
	Decade int   `json:"decade"`
	Mean   Float `json:"mean"`
	Std    Float `json:"std"`
	Count  int   `json:"count"`
}

// DecadalChange is the delta of consecutive decadal means; the first decade
// carries a null delta to keep positional alignment.
type DecadalChange struct {
	Decade int   `json:"decade"`
	Delta  Float `json:"delta"`
}

// SeriesPoint is one (year, value) sample of a derived series
type SeriesPoint struct {
	Year  int   `json:"year"`
	Value Float `json:"value"`
}

// MonthlyCell is one cell of the long-form year x month table, ordered
// year-major with months in calendar order
type MonthlyCell struct {
	Year  int    `json:"year"`
	Month string `json:"month"`
	Value Float  `json:"value"`
}

// MonthlyProfileRow describes one month's values across all years
type MonthlyProfileRow struct {
	Month  string `json:"month"`
	Count  int    `json:"count"`
	Mean   Float  `json:"mean"`
	Std    Float  `json:"std"`
	Min    Float  `json:"min"`
	P25    Float  `json:"p25"`
	Median Float  `json:"median"`
	P75    Float  `json:"p75"`
	Max    Float  `json:"max"`
}

// Products bundles the derived series handed to presentation consumers
type Products struct {
	Decadal []DecadalRow    `json:"decadal"`
	Changes []DecadalChange `json:"decadal_changes"`
	Rolling []SeriesPoint   `json:"rolling"`
	YoY     []SeriesPoint   `json:"year_over_year"`
	Monthly []MonthlyCell   `json:"monthly"`
	Window  int             `json:"rolling_window"`
}

// Snapshot is the audit record of one successful load
type Snapshot struct {
	ID         core.SnapshotID `json:"id" db:"id"`
	Section    Section         `json:"section" db:"section"`
	SourcePath string          `json:"source_path" db:"source_path"`
	SourceHash core.SourceHash `json:"source_hash" db:"source_hash"`
	Rows       int             `json:"rows" db:"row_count"`
	FirstYear  int             `json:"first_year" db:"first_year"`
	LastYear   int             `json:"last_year" db:"last_year"`
	LoadedAt   time.Time       `json:"loaded_at" db:"loaded_at"`
}
