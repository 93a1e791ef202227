package gistemp

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"climatrend/domain/climate"
	"climatrend/internal"
	"climatrend/internal/errors"
)

// SentinelMissing is the dataset's placeholder for an absent measurement.
// It always cleans to "no value", never to zero.
const SentinelMissing = "*******"

// Cleaner turns a raw SectionData into a typed, analysis-ready Table.
// Year parse failures drop the whole row; value parse failures (including
// the sentinel) become missing cells. annual_temp is the mean of whichever
// months a row actually has.
type Cleaner struct {
	logger *internal.Logger
}

// NewCleaner creates a cleaner with the default logger
func NewCleaner() *Cleaner {
	return &Cleaner{
		logger: internal.DefaultLogger.WithTag("Cleaner"),
	}
}

// Clean converts raw string rows into the numeric Table. It returns a load
// error when the section has no Year column or no row survives cleaning.
func (c *Cleaner) Clean(data *SectionData) (*climate.Table, error) {
	startTime := time.Now()

	yearIdx := -1
	for i, col := range data.Header {
		if col == climate.YearColumn {
			yearIdx = i
			break
		}
	}
	if yearIdx < 0 {
		return nil, errors.LoadFailed(fmt.Sprintf(
			"section %q header has no %s column", data.Section, climate.YearColumn))
	}

	valueColumns := make([]string, 0, len(data.Header)-1)
	for i, col := range data.Header {
		if i != yearIdx {
			valueColumns = append(valueColumns, col)
		}
	}

	table := &climate.Table{
		Section: data.Section,
		Columns: valueColumns,
		Data:    make(map[string][]float64, len(valueColumns)),
	}
	for _, col := range valueColumns {
		table.Data[col] = make([]float64, 0, len(data.Rows))
	}

	droppedYears := 0
	sentinelCells := 0
	for _, row := range data.Rows {
		year, ok := parseYear(row[yearIdx])
		if !ok {
			droppedYears++
			continue
		}
		table.Years = append(table.Years, year)

		for i, col := range data.Header {
			if i == yearIdx {
				continue
			}
			value, wasSentinel := cleanCell(row[i])
			if wasSentinel {
				sentinelCells++
			}
			table.Data[col] = append(table.Data[col], value)
		}
	}

	if droppedYears > 0 {
		c.logger.Warn("section %q: dropped %d rows with unparseable %s",
			data.Section, droppedYears, climate.YearColumn)
	}
	if len(table.Years) == 0 {
		return nil, errors.LoadFailed(fmt.Sprintf(
			"section %q: no rows survived cleaning (%d dropped)", data.Section, droppedYears))
	}

	table.Annual = annualMeans(table)

	if err := table.Validate(); err != nil {
		return nil, errors.LoadFailedWrap(err, fmt.Sprintf("section %q: cleaned table inconsistent", data.Section))
	}

	c.logger.Info("section %q cleaned (%d rows kept, %d dropped, %d sentinel cells) in %.2fms",
		data.Section, len(table.Years), droppedYears, sentinelCells,
		float64(time.Since(startTime).Nanoseconds())/1e6)

	return table, nil
}

// parseYear coerces a Year cell to an integer year. Non-numeric cells
// invalidate the whole row.
func parseYear(cell string) (int, bool) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, false
	}
	return int(f), true
}

// cleanCell coerces a value cell to float64. The sentinel and anything else
// unparseable become missing. The second return reports a sentinel hit.
func cleanCell(cell string) (float64, bool) {
	if cell == SentinelMissing {
		return climate.Missing(), true
	}
	f, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return climate.Missing(), false
	}
	return f, false
}

// annualMeans computes annual_temp per row: the mean of the months that
// have values, or missing when no month does. Months absent from the
// header simply do not participate.
func annualMeans(table *climate.Table) []float64 {
	months := make([][]float64, 0, len(climate.MonthColumns))
	for _, m := range climate.MonthColumns {
		if col, ok := table.Data[m]; ok {
			months = append(months, col)
		}
	}

	annual := make([]float64, len(table.Years))
	for i := range table.Years {
		sum := 0.0
		count := 0
		for _, col := range months {
			if !climate.IsMissing(col[i]) {
				sum += col[i]
				count++
			}
		}
		if count == 0 {
			annual[i] = climate.Missing()
		} else {
			annual[i] = sum / float64(count)
		}
	}
	return annual
}
