package excel

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"climatrend/domain/climate"
	"climatrend/internal"
	"climatrend/internal/metrics"
	"climatrend/ports"
)

// Sheet names of the exported workbook, in tab order
const (
	SheetObservations   = "Observations"
	SheetDecadal        = "Decadal"
	SheetRolling        = "Rolling"
	SheetSummary        = "Summary"
	SheetMonthlyProfile = "MonthlyProfile"
)

// Exporter writes the current analysis to xlsx workbooks and csv files.
// It reads through the presentation port only, so an export can never
// trigger a load or observe a half-swapped table.
type Exporter struct {
	reader    ports.AnalysisReader
	collector *metrics.Collector
	logger    *internal.Logger
}

// NewExporter creates a report exporter over the given analysis reader
func NewExporter(reader ports.AnalysisReader, collector *metrics.Collector) ports.ReportExporter {
	return &Exporter{
		reader:    reader,
		collector: collector,
		logger:    internal.DefaultLogger.WithTag("Exporter"),
	}
}

// ExportWorkbook writes the five-sheet analysis workbook. Missing values
// become empty cells, never zeros.
func (e *Exporter) ExportWorkbook(ctx context.Context, path string) error {
	startTime := time.Now()

	table, err := e.reader.Table(ctx)
	if err != nil {
		return fmt.Errorf("failed to read table for export: %w", err)
	}
	summary, err := e.reader.Summary(ctx)
	if err != nil {
		return fmt.Errorf("failed to compute summary for export: %w", err)
	}
	products, err := e.reader.Products(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to compute products for export: %w", err)
	}
	profile, err := e.reader.MonthlyProfile(ctx)
	if err != nil {
		return fmt.Errorf("failed to compute monthly profile for export: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetObservations); err != nil {
		return fmt.Errorf("failed to create workbook: %w", err)
	}
	for _, name := range []string{SheetDecadal, SheetRolling, SheetSummary, SheetMonthlyProfile} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
	}
	f.SetActiveSheet(0)

	if err := e.writeObservations(f, table); err != nil {
		return err
	}
	if err := e.writeDecadal(f, products); err != nil {
		return err
	}
	if err := e.writeRolling(f, products); err != nil {
		return err
	}
	if err := e.writeSummary(f, summary); err != nil {
		return err
	}
	if err := e.writeMonthlyProfile(f, profile); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}

	if e.collector != nil {
		e.collector.RecordExport("xlsx")
	}
	e.logger.Info("exported workbook %s (%d rows, section %s) in %.2fms",
		path, table.RowCount(), table.Section, float64(time.Since(startTime).Nanoseconds())/1e6)
	return nil
}

// ExportCSV writes the cleaned observation table. Column order matches the
// source header, with the derived annual mean appended last.
func (e *Exporter) ExportCSV(ctx context.Context, path string) error {
	startTime := time.Now()

	table, err := e.reader.Table(ctx)
	if err != nil {
		return fmt.Errorf("failed to read table for export: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create csv file %s: %w", path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	defer w.Flush()

	header := make([]string, 0, len(table.Columns)+2)
	header = append(header, climate.YearColumn)
	header = append(header, table.Columns...)
	header = append(header, climate.AnnualColumn)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for i, year := range table.Years {
		record := make([]string, 0, len(header))
		record = append(record, strconv.Itoa(year))
		for _, col := range table.Columns {
			record = append(record, formatValue(table.Data[col][i]))
		}
		record = append(record, formatValue(table.Annual[i]))
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row %d: %w", year, err)
		}
	}
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush csv %s: %w", path, err)
	}

	if e.collector != nil {
		e.collector.RecordExport("csv")
	}
	e.logger.Info("exported csv %s (%d rows) in %.2fms",
		path, table.RowCount(), float64(time.Since(startTime).Nanoseconds())/1e6)
	return nil
}

func (e *Exporter) writeObservations(f *excelize.File, table *climate.Table) error {
	header := make([]interface{}, 0, len(table.Columns)+2)
	header = append(header, climate.YearColumn)
	for _, col := range table.Columns {
		header = append(header, col)
	}
	header = append(header, climate.AnnualColumn)
	if err := setRow(f, SheetObservations, 1, header); err != nil {
		return err
	}

	for i, year := range table.Years {
		row := make([]interface{}, 0, len(header))
		row = append(row, year)
		for _, col := range table.Columns {
			row = append(row, numCell(table.Data[col][i]))
		}
		row = append(row, numCell(table.Annual[i]))
		if err := setRow(f, SheetObservations, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func (e *Exporter) writeDecadal(f *excelize.File, products *climate.Products) error {
	if err := setRow(f, SheetDecadal, 1, []interface{}{"Decade", "Mean", "Std", "Count", "Change"}); err != nil {
		return err
	}
	for i, row := range products.Decadal {
		// Changes is positionally aligned with Decadal
		var delta interface{}
		if i < len(products.Changes) {
			delta = floatCell(products.Changes[i].Delta)
		}
		cells := []interface{}{row.Decade, floatCell(row.Mean), floatCell(row.Std), row.Count, delta}
		if err := setRow(f, SheetDecadal, i+2, cells); err != nil {
			return err
		}
	}
	return nil
}

func (e *Exporter) writeRolling(f *excelize.File, products *climate.Products) error {
	rollingHeader := fmt.Sprintf("Rolling Mean (w=%d)", products.Window)
	if err := setRow(f, SheetRolling, 1, []interface{}{climate.YearColumn, rollingHeader, "Year over Year"}); err != nil {
		return err
	}
	for i, point := range products.Rolling {
		var yoy interface{}
		if i < len(products.YoY) {
			yoy = floatCell(products.YoY[i].Value)
		}
		cells := []interface{}{point.Year, floatCell(point.Value), yoy}
		if err := setRow(f, SheetRolling, i+2, cells); err != nil {
			return err
		}
	}
	return nil
}

func (e *Exporter) writeSummary(f *excelize.File, summary *climate.Summary) error {
	rows := [][]interface{}{
		{"Section", string(summary.Section)},
		{"First Year", summary.FirstYear},
		{"Last Year", summary.LastYear},
		{"Records", summary.Records},
		{"Mean Anomaly", floatCell(summary.Mean)},
		{"Std Dev", floatCell(summary.Std)},
		{"Trend Slope (per year)", floatCell(summary.TrendSlope)},
		{"Quadratic Term", floatCell(summary.Quadratic)},
		{"Warmest Year", summary.Warmest.Year},
		{"Warmest Anomaly", floatCell(summary.Warmest.Value)},
		{"Coldest Year", summary.Coldest.Year},
		{"Coldest Anomaly", floatCell(summary.Coldest.Value)},
		{"Acceleration", floatCell(summary.Acceleration)},
	}
	for _, season := range summary.Seasonal {
		rows = append(rows, []interface{}{
			fmt.Sprintf("%s Slope (per year)", season.Season), floatCell(season.Slope),
		})
	}
	for _, failure := range summary.Failures {
		rows = append(rows, []interface{}{
			fmt.Sprintf("Failed: %s", failure.Field), failure.Reason,
		})
	}
	for i, cells := range rows {
		if err := setRow(f, SheetSummary, i+1, cells); err != nil {
			return err
		}
	}
	return nil
}

func (e *Exporter) writeMonthlyProfile(f *excelize.File, profile []climate.MonthlyProfileRow) error {
	header := []interface{}{"Month", "Count", "Mean", "Std", "Min", "P25", "Median", "P75", "Max"}
	if err := setRow(f, SheetMonthlyProfile, 1, header); err != nil {
		return err
	}
	for i, row := range profile {
		cells := []interface{}{
			row.Month, row.Count,
			floatCell(row.Mean), floatCell(row.Std),
			floatCell(row.Min), floatCell(row.P25), floatCell(row.Median), floatCell(row.P75), floatCell(row.Max),
		}
		if err := setRow(f, SheetMonthlyProfile, i+2, cells); err != nil {
			return err
		}
	}
	return nil
}

// setRow writes one row of cells; nil entries leave their cell empty
func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	for i, v := range values {
		if v == nil {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return fmt.Errorf("failed to address cell (%d,%d): %w", i+1, row, err)
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("failed to write cell %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}

// numCell converts a raw table value to a cell value, nil when missing
func numCell(v float64) interface{} {
	if climate.IsMissing(v) {
		return nil
	}
	return v
}

// floatCell converts a nullable float to a cell value, nil when undefined
func floatCell(v climate.Float) interface{} {
	if !v.Defined() {
		return nil
	}
	return v.Value()
}

// formatValue renders a table value for csv output; missing becomes empty
func formatValue(v float64) string {
	if climate.IsMissing(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
