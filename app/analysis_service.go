package app

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"climatrend/adapters/stats/aggregate"
	"climatrend/adapters/stats/engine"
	"climatrend/domain/climate"
	"climatrend/internal"
	"climatrend/internal/errors"
	"climatrend/internal/metrics"
	"climatrend/ports"
)

// tableState pairs a table with its load snapshot so both swap together
type tableState struct {
	table    *climate.Table
	snapshot *climate.Snapshot
}

// AnalysisService owns the current table and serves every consumer from it.
// A load builds the replacement table completely off to the side and swaps
// it in atomically: concurrent readers see either the previous table or the
// new one, never a partial state. A failed load leaves the current table
// untouched.
type AnalysisService struct {
	loader     ports.DatasetLoader
	archive    ports.SnapshotArchive // nil when archiving is disabled
	aggregator *aggregate.Aggregator
	engine     *engine.StatsEngine
	collector  *metrics.Collector
	window     int

	current atomic.Pointer[tableState]
	logger  *internal.Logger
}

// NewAnalysisService creates the analysis service. archive may be nil.
func NewAnalysisService(loader ports.DatasetLoader, archive ports.SnapshotArchive, collector *metrics.Collector, window int) *AnalysisService {
	return &AnalysisService{
		loader:     loader,
		archive:    archive,
		aggregator: aggregate.NewAggregator(),
		engine:     engine.NewStatsEngine(),
		collector:  collector,
		window:     window,
		logger:     internal.DefaultLogger.WithTag("AnalysisService"),
	}
}

// Load reads and cleans the given section and makes it the current table.
// The snapshot is archived best-effort: an archive failure is logged and
// counted but never fails the load.
func (s *AnalysisService) Load(ctx context.Context, section climate.Section) (*climate.Snapshot, error) {
	startTime := time.Now()

	table, snapshot, err := s.loader.Load(section)
	if err != nil {
		s.collector.RecordLoadFailure(string(section))
		return nil, err
	}

	s.current.Store(&tableState{table: table, snapshot: snapshot})

	s.collector.RecordLoad(string(section), table.RowCount())
	s.collector.LoadDuration.Observe(time.Since(startTime).Seconds())
	s.logger.Info("section %q active: %d rows, years %d-%d",
		section, snapshot.Rows, snapshot.FirstYear, snapshot.LastYear)

	if s.archive != nil {
		if err := s.archive.Save(ctx, snapshot); err != nil {
			s.collector.RecordArchiveFailure()
			s.logger.Warn("snapshot %s not archived: %v", snapshot.ID, err)
		}
	}

	return snapshot, nil
}

// Loaded reports whether a table is currently active
func (s *AnalysisService) Loaded() bool {
	return s.current.Load() != nil
}

// Section reports the currently loaded section; empty before any load
func (s *AnalysisService) Section() climate.Section {
	state := s.current.Load()
	if state == nil {
		return ""
	}
	return state.table.Section
}

// Sections lists the sections available in the source file
func (s *AnalysisService) Sections(ctx context.Context) ([]climate.Section, error) {
	return s.loader.Sections()
}

// Table returns the current cleaned table
func (s *AnalysisService) Table(ctx context.Context) (*climate.Table, error) {
	state := s.current.Load()
	if state == nil {
		return nil, errors.NotFound("dataset")
	}
	return state.table, nil
}

// Snapshot returns the audit record of the current table's load
func (s *AnalysisService) Snapshot(ctx context.Context) (*climate.Snapshot, error) {
	state := s.current.Load()
	if state == nil {
		return nil, errors.NotFound("dataset")
	}
	return state.snapshot, nil
}

// Summary computes the statistics bundle for the current table
func (s *AnalysisService) Summary(ctx context.Context) (*climate.Summary, error) {
	table, err := s.Table(ctx)
	if err != nil {
		return nil, err
	}

	timer := s.collector.NewTimer(s.collector.SummaryDuration)
	defer timer.ObserveDuration()
	return s.engine.Summarize(table), nil
}

// Products computes the derived series. The aggregations are independent
// reads of the same immutable table, so they run concurrently.
func (s *AnalysisService) Products(ctx context.Context, window int) (*climate.Products, error) {
	table, err := s.Table(ctx)
	if err != nil {
		return nil, err
	}
	if window <= 0 {
		window = s.window
	}
	if window < 1 {
		return nil, errors.InvalidInput(fmt.Sprintf("rolling window must be >= 1, got %d", window))
	}

	timer := s.collector.NewTimer(s.collector.ProductsDuration)
	defer timer.ObserveDuration()

	products := &climate.Products{Window: window}
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		products.Decadal = s.aggregator.DecadalMeans(table)
		products.Changes = s.aggregator.DecadalChanges(products.Decadal)
		return nil
	})
	g.Go(func() error {
		products.Rolling = s.aggregator.RollingSeries(table, window)
		return nil
	})
	g.Go(func() error {
		products.YoY = s.aggregator.YoYSeries(table)
		return nil
	})
	g.Go(func() error {
		products.Monthly = s.aggregator.MonthlyLongForm(table)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return products, nil
}

// MonthlyProfile describes each month's distribution across all years
func (s *AnalysisService) MonthlyProfile(ctx context.Context) ([]climate.MonthlyProfileRow, error) {
	table, err := s.Table(ctx)
	if err != nil {
		return nil, err
	}
	return s.aggregator.MonthlyProfile(table), nil
}

// Fit computes a least-squares fit for an arbitrary column pair
func (s *AnalysisService) Fit(ctx context.Context, xCol, yCol string, degree int) (*climate.Trend, error) {
	table, err := s.Table(ctx)
	if err != nil {
		return nil, err
	}
	return s.engine.FitColumns(table, xCol, yCol, degree)
}
