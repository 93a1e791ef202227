package ports

import (
	"context"
)

// ReportExporter writes the current analysis to files for offline use
type ReportExporter interface {
	// ExportWorkbook writes the multi-sheet workbook (observations,
	// aggregates, summary) to the given path
	ExportWorkbook(ctx context.Context, path string) error

	// ExportCSV writes the cleaned observation table to the given path
	ExportCSV(ctx context.Context, path string) error
}
