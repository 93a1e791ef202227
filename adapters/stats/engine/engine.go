package engine

import (
	stderrors "errors"
	"fmt"
	"time"

	"github.com/montanaflynn/stats"

	"climatrend/domain/climate"
	"climatrend/internal"
	"climatrend/internal/errors"
)

// StatsEngine computes summary statistics and trend fits over a cleaned
// table. Everything here is pure and per-request: the table is never
// mutated and identical inputs produce identical summaries.
type StatsEngine struct {
	logger *internal.Logger
}

// NewStatsEngine creates a new statistical engine
func NewStatsEngine() *StatsEngine {
	return &StatsEngine{
		logger: internal.DefaultLogger.WithTag("StatsEngine"),
	}
}

// Summarize computes the full statistics bundle for a table. A computation
// without enough valid data leaves its field null and is recorded in
// Failures; it never invalidates the rest of the summary.
func (e *StatsEngine) Summarize(table *climate.Table) *climate.Summary {
	startTime := time.Now()

	s := &climate.Summary{
		Section:      table.Section,
		Records:      table.RowCount(),
		Mean:         missing(),
		Std:          missing(),
		TrendSlope:   missing(),
		Quadratic:    missing(),
		Warmest:      climate.Extremum{Value: missing()},
		Coldest:      climate.Extremum{Value: missing()},
		Acceleration: missing(),
		Spread: climate.Variability{
			AnnualStd:      missing(),
			MeanMonthlyStd: missing(),
			MeanSeasonStd:  missing(),
		},
	}
	s.FirstYear, s.LastYear = table.YearRange()

	annual := table.AnnualSeries()
	e.summarizeMoments(annual, s)
	e.summarizeTrends(annual, s)
	e.summarizeExtremes(annual, s)
	e.summarizeSeasons(table, s)
	e.summarizeSpread(table, s)
	e.summarizeAcceleration(annual, s)

	e.logger.Debug("summary for %q: %d records, %d failures, %.2fms",
		table.Section, s.Records, len(s.Failures),
		float64(time.Since(startTime).Nanoseconds())/1e6)
	return s
}

// FitColumns fits column y against column x for an arbitrary pair; the Year
// column may serve as either side. Pairs with a missing operand are ignored.
func (e *StatsEngine) FitColumns(table *climate.Table, xCol, yCol string, degree int) (*climate.Trend, error) {
	xs, err := columnValues(table, xCol)
	if err != nil {
		return nil, err
	}
	ys, err := columnValues(table, yCol)
	if err != nil {
		return nil, err
	}

	px := make([]float64, 0, len(xs))
	py := make([]float64, 0, len(ys))
	for i := range xs {
		if climate.IsMissing(xs[i]) || climate.IsMissing(ys[i]) {
			continue
		}
		px = append(px, xs[i])
		py = append(py, ys[i])
	}

	coeffs, err := Polyfit(px, py, degree)
	if err != nil {
		return nil, err
	}
	return &climate.Trend{Degree: degree, Coeffs: coeffs, Points: len(px)}, nil
}

// summarizeMoments fills the mean and sample deviation of annual_temp
func (e *StatsEngine) summarizeMoments(annual climate.Series, s *climate.Summary) {
	valid := annual.ValidValues()
	if len(valid) == 0 {
		e.fail(s, "mean", "no valid annual values")
		e.fail(s, "std", "no valid annual values")
		return
	}

	mean, _ := stats.Mean(valid)
	s.Mean = climate.F(mean)

	if len(valid) < 2 {
		e.fail(s, "std", "fewer than 2 valid annual values")
		return
	}
	std, _ := stats.StandardDeviationSample(valid)
	s.Std = climate.F(std)
	s.Spread.AnnualStd = climate.F(std)
}

// summarizeTrends fills the linear slope and the quadratic leading term
func (e *StatsEngine) summarizeTrends(annual climate.Series, s *climate.Summary) {
	if trend, err := FitSeries(annual, 1); err != nil {
		e.fail(s, "trend_slope", failureReason(err))
	} else {
		s.TrendSlope = climate.F(trend.Slope())
	}

	if quad, err := FitSeries(annual, 2); err != nil {
		e.fail(s, "quadratic_trend", failureReason(err))
	} else {
		s.Quadratic = climate.F(quad.Leading())
	}
}

// summarizeExtremes finds the warmest and coldest years. Ties resolve to
// the earliest row.
func (e *StatsEngine) summarizeExtremes(annual climate.Series, s *climate.Summary) {
	warmIdx, coldIdx := -1, -1
	for i, v := range annual.Values {
		if climate.IsMissing(v) {
			continue
		}
		if warmIdx < 0 || v > annual.Values[warmIdx] {
			warmIdx = i
		}
		if coldIdx < 0 || v < annual.Values[coldIdx] {
			coldIdx = i
		}
	}
	if warmIdx < 0 {
		e.fail(s, "warmest", "no valid annual values")
		e.fail(s, "coldest", "no valid annual values")
		return
	}

	s.Warmest = climate.Extremum{Year: annual.Years[warmIdx], Value: climate.F(annual.Values[warmIdx])}
	s.Coldest = climate.Extremum{Year: annual.Years[coldIdx], Value: climate.F(annual.Values[coldIdx])}
}

// summarizeSeasons fits each season independently. The summary always lists
// all four seasons; a season without a usable fit keeps a null slope.
func (e *StatsEngine) summarizeSeasons(table *climate.Table, s *climate.Summary) {
	s.Seasonal = make([]climate.SeasonTrend, 0, len(climate.SeasonColumns))
	for _, season := range climate.SeasonColumns {
		entry := climate.SeasonTrend{Season: season, Slope: missing()}

		series, ok := table.ColumnSeries(season)
		if !ok {
			e.fail(s, "seasonal:"+season, "column not present")
			s.Seasonal = append(s.Seasonal, entry)
			continue
		}

		if trend, err := FitSeries(series, 1); err != nil {
			e.fail(s, "seasonal:"+season, failureReason(err))
		} else {
			entry.Slope = climate.F(trend.Slope())
		}
		s.Seasonal = append(s.Seasonal, entry)
	}
}

// summarizeSpread fills the averaged per-month and per-season deviations
func (e *StatsEngine) summarizeSpread(table *climate.Table, s *climate.Summary) {
	if v, ok := meanColumnStd(table, climate.MonthColumns); ok {
		s.Spread.MeanMonthlyStd = climate.F(v)
	} else {
		e.fail(s, "mean_monthly_std", "no month column has 2 or more valid values")
	}

	if v, ok := meanColumnStd(table, climate.SeasonColumns); ok {
		s.Spread.MeanSeasonStd = climate.F(v)
	} else {
		e.fail(s, "mean_seasonal_std", "no season column has 2 or more valid values")
	}
}

// summarizeAcceleration splits the rows at the midpoint and reports the
// late half's slope minus the early half's
func (e *StatsEngine) summarizeAcceleration(annual climate.Series, s *climate.Summary) {
	half := annual.Len() / 2
	early := climate.Series{Key: annual.Key, Years: annual.Years[:half], Values: annual.Values[:half]}
	late := climate.Series{Key: annual.Key, Years: annual.Years[half:], Values: annual.Values[half:]}

	earlyTrend, err := FitSeries(early, 1)
	if err != nil {
		e.fail(s, "acceleration", "early half: "+failureReason(err))
		return
	}
	lateTrend, err := FitSeries(late, 1)
	if err != nil {
		e.fail(s, "acceleration", "late half: "+failureReason(err))
		return
	}

	s.Acceleration = climate.F(lateTrend.Slope() - earlyTrend.Slope())
}

func (e *StatsEngine) fail(s *climate.Summary, field, reason string) {
	s.Failures = append(s.Failures, climate.ComputationFailure{Field: field, Reason: reason})
	e.logger.Debug("summary field %s unavailable: %s", field, reason)
}

// meanColumnStd averages the sample deviation of each listed column that can
// produce one; columns that are absent or too sparse are skipped
func meanColumnStd(table *climate.Table, columns []string) (float64, bool) {
	stds := make([]float64, 0, len(columns))
	for _, name := range columns {
		col, ok := table.Column(name)
		if !ok {
			continue
		}
		defined := make([]float64, 0, len(col))
		for _, v := range col {
			if !climate.IsMissing(v) {
				defined = append(defined, v)
			}
		}
		if len(defined) < 2 {
			continue
		}
		std, _ := stats.StandardDeviationSample(defined)
		stds = append(stds, std)
	}
	if len(stds) == 0 {
		return 0, false
	}
	mean, _ := stats.Mean(stds)
	return mean, true
}

// columnValues resolves a column for fitting, with Year as the x axis
func columnValues(table *climate.Table, name string) ([]float64, error) {
	if name == climate.YearColumn {
		out := make([]float64, len(table.Years))
		for i, y := range table.Years {
			out[i] = float64(y)
		}
		return out, nil
	}
	col, ok := table.Column(name)
	if !ok {
		return nil, errors.NotFound(fmt.Sprintf("column %q", name))
	}
	return col, nil
}

// failureReason unwraps the human-readable part of a computation error
func failureReason(err error) string {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

func missing() climate.Float {
	return climate.F(climate.Missing())
}
