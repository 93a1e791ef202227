package aggregate

import (
	"sort"
	"time"

	"github.com/montanaflynn/stats"

	"climatrend/domain/climate"
	"climatrend/internal"
)

// Aggregator derives decadal, rolling and monthly views from a cleaned
// table. Every method is pure: the table is read, never mutated, so
// aggregations can run concurrently against a shared table.
type Aggregator struct {
	logger *internal.Logger
}

// NewAggregator creates a new aggregator
func NewAggregator() *Aggregator {
	return &Aggregator{
		logger: internal.DefaultLogger.WithTag("Aggregator"),
	}
}

// Decade maps a year to its calendar decade bucket (1987 -> 1980)
func Decade(year int) int {
	return (year / 10) * 10
}

// DecadalMeans groups annual anomalies into decade buckets. A decade appears
// when the table has at least one row in it; its mean and std cover the rows
// whose annual value is defined, and Count reports how many those are.
func (a *Aggregator) DecadalMeans(table *climate.Table) []climate.DecadalRow {
	startTime := time.Now()

	groups := make(map[int][]float64)
	present := make(map[int]bool)
	for i, year := range table.Years {
		d := Decade(year)
		present[d] = true
		if v := table.Annual[i]; !climate.IsMissing(v) {
			groups[d] = append(groups[d], v)
		}
	}

	decades := make([]int, 0, len(present))
	for d := range present {
		decades = append(decades, d)
	}
	sort.Ints(decades)

	rows := make([]climate.DecadalRow, 0, len(decades))
	for _, d := range decades {
		row := climate.DecadalRow{
			Decade: d,
			Mean:   climate.F(climate.Missing()),
			Std:    climate.F(climate.Missing()),
			Count:  len(groups[d]),
		}
		if vals := groups[d]; len(vals) > 0 {
			mean, _ := stats.Mean(vals)
			row.Mean = climate.F(mean)
			if len(vals) > 1 {
				std, _ := stats.StandardDeviationSample(vals)
				row.Std = climate.F(std)
			}
		}
		rows = append(rows, row)
	}

	a.logger.Debug("decadal means over %d rows -> %d decades in %.2fms",
		table.RowCount(), len(rows), float64(time.Since(startTime).Nanoseconds())/1e6)
	return rows
}

// DecadalChanges diffs consecutive decadal means. The result is aligned with
// the input: the first decade carries a null delta, and a delta is null
// whenever either side of the difference is.
func (a *Aggregator) DecadalChanges(rows []climate.DecadalRow) []climate.DecadalChange {
	changes := make([]climate.DecadalChange, len(rows))
	for i, row := range rows {
		change := climate.DecadalChange{
			Decade: row.Decade,
			Delta:  climate.F(climate.Missing()),
		}
		if i > 0 {
			prev := rows[i-1].Mean
			if prev.Defined() && row.Mean.Defined() {
				change.Delta = climate.F(row.Mean.Value() - prev.Value())
			}
		}
		changes[i] = change
	}
	return changes
}

// RollingMean computes a trailing mean over the given window. A position is
// defined only when its whole window is inside the series and every value in
// it is defined; everything else is missing.
func RollingMean(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		if window < 1 || i < window-1 {
			out[i] = climate.Missing()
			continue
		}
		sum := 0.0
		defined := 0
		for j := i - window + 1; j <= i; j++ {
			if !climate.IsMissing(values[j]) {
				sum += values[j]
				defined++
			}
		}
		if defined < window {
			out[i] = climate.Missing()
			continue
		}
		out[i] = sum / float64(window)
	}
	return out
}

// YearOverYear computes first differences. The first position and any
// position with a missing operand are missing.
func YearOverYear(values []float64) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		if i == 0 || climate.IsMissing(values[i]) || climate.IsMissing(values[i-1]) {
			out[i] = climate.Missing()
			continue
		}
		out[i] = values[i] - values[i-1]
	}
	return out
}

// RollingSeries pairs the table's years with the trailing rolling mean of
// annual_temp
func (a *Aggregator) RollingSeries(table *climate.Table, window int) []climate.SeriesPoint {
	return toSeriesPoints(table.Years, RollingMean(table.Annual, window))
}

// YoYSeries pairs the table's years with year-over-year annual deltas
func (a *Aggregator) YoYSeries(table *climate.Table) []climate.SeriesPoint {
	return toSeriesPoints(table.Years, YearOverYear(table.Annual))
}

// MonthlyLongForm melts the month columns into (year, month, value) cells,
// year-major with months in calendar order. Missing cells are kept so
// consumers see the table's true shape.
func (a *Aggregator) MonthlyLongForm(table *climate.Table) []climate.MonthlyCell {
	months := presentMonths(table)
	cells := make([]climate.MonthlyCell, 0, len(table.Years)*len(months))
	for i, year := range table.Years {
		for _, m := range months {
			cells = append(cells, climate.MonthlyCell{
				Year:  year,
				Month: m,
				Value: climate.F(table.Data[m][i]),
			})
		}
	}
	return cells
}

// MonthlyProfile describes each month's distribution across all years.
// Months without enough defined values carry null statistics but still
// appear, so the profile always lists the table's months in order.
func (a *Aggregator) MonthlyProfile(table *climate.Table) []climate.MonthlyProfileRow {
	months := presentMonths(table)
	rows := make([]climate.MonthlyProfileRow, 0, len(months))
	for _, m := range months {
		defined := definedOnly(table.Data[m])
		row := climate.MonthlyProfileRow{
			Month:  m,
			Count:  len(defined),
			Mean:   climate.F(climate.Missing()),
			Std:    climate.F(climate.Missing()),
			Min:    climate.F(climate.Missing()),
			P25:    climate.F(climate.Missing()),
			Median: climate.F(climate.Missing()),
			P75:    climate.F(climate.Missing()),
			Max:    climate.F(climate.Missing()),
		}
		if len(defined) > 0 {
			mean, _ := stats.Mean(defined)
			min, _ := stats.Min(defined)
			max, _ := stats.Max(defined)
			median, _ := stats.Median(defined)
			p25, _ := stats.Percentile(defined, 25)
			p75, _ := stats.Percentile(defined, 75)
			row.Mean = climate.F(mean)
			row.Min = climate.F(min)
			row.Max = climate.F(max)
			row.Median = climate.F(median)
			row.P25 = climate.F(p25)
			row.P75 = climate.F(p75)
		}
		if len(defined) > 1 {
			std, _ := stats.StandardDeviationSample(defined)
			row.Std = climate.F(std)
		}
		rows = append(rows, row)
	}
	return rows
}

// presentMonths lists the calendar months the table actually has columns for
func presentMonths(table *climate.Table) []string {
	months := make([]string, 0, len(climate.MonthColumns))
	for _, m := range climate.MonthColumns {
		if table.HasColumn(m) {
			months = append(months, m)
		}
	}
	return months
}

// definedOnly filters out missing values
func definedOnly(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !climate.IsMissing(v) {
			out = append(out, v)
		}
	}
	return out
}

func toSeriesPoints(years []int, values []float64) []climate.SeriesPoint {
	points := make([]climate.SeriesPoint, len(values))
	for i, v := range values {
		points[i] = climate.SeriesPoint{Year: years[i], Value: climate.F(v)}
	}
	return points
}
