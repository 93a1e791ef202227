package ports

import (
	"context"

	"climatrend/domain/climate"
)

// AnalysisReader provides read-only access to the current analysis state for
// presentation consumers (HTTP handlers, exporters, chart pages). Renderers
// can see the table and its derived products but can never trigger a load or
// mutate analysis state through this port.
type AnalysisReader interface {
	// Section reports the currently loaded section; empty before any load
	Section() climate.Section

	// Sections lists the sections available in the source file
	Sections(ctx context.Context) ([]climate.Section, error)

	// Table returns the current cleaned table
	Table(ctx context.Context) (*climate.Table, error)

	// Snapshot returns the audit record of the current table's load
	Snapshot(ctx context.Context) (*climate.Snapshot, error)

	// Summary computes the statistics bundle for the current table
	Summary(ctx context.Context) (*climate.Summary, error)

	// Products computes the derived series; window <= 0 selects the
	// configured rolling window
	Products(ctx context.Context, window int) (*climate.Products, error)

	// MonthlyProfile describes each month's distribution across all years
	MonthlyProfile(ctx context.Context) ([]climate.MonthlyProfileRow, error)

	// Fit computes a least-squares fit for an arbitrary column pair
	Fit(ctx context.Context, xCol, yCol string, degree int) (*climate.Trend, error)
}
