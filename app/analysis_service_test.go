package app

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"climatrend/domain/climate"
	"climatrend/domain/core"
	"climatrend/internal/errors"
	"climatrend/internal/metrics"
	"climatrend/ports"
)

type tablePair struct {
	table    *climate.Table
	snapshot *climate.Snapshot
}

type stubLoader struct {
	pairs    []tablePair
	err      error
	calls    int
	sections []climate.Section
}

func (l *stubLoader) Load(section climate.Section) (*climate.Table, *climate.Snapshot, error) {
	if l.err != nil {
		return nil, nil, l.err
	}
	p := l.pairs[l.calls%len(l.pairs)]
	l.calls++
	return p.table, p.snapshot, nil
}

func (l *stubLoader) Sections() ([]climate.Section, error) {
	return l.sections, nil
}

type stubArchive struct {
	mu    sync.Mutex
	saved []*climate.Snapshot
	err   error
}

func (a *stubArchive) Save(ctx context.Context, s *climate.Snapshot) error {
	if a.err != nil {
		return a.err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.saved = append(a.saved, s)
	return nil
}

func (a *stubArchive) GetByID(ctx context.Context, id core.SnapshotID) (*climate.Snapshot, error) {
	return nil, core.ErrSnapshotNotFound
}

func (a *stubArchive) List(ctx context.Context, limit int) ([]climate.Snapshot, error) {
	return nil, nil
}

func (a *stubArchive) LatestBySection(ctx context.Context, section climate.Section) (*climate.Snapshot, error) {
	return nil, core.ErrSnapshotNotFound
}

func makePair(rows int, base float64) tablePair {
	table := &climate.Table{
		Section: climate.SectionGHCN,
		Columns: []string{"Jan"},
		Years:   make([]int, rows),
		Data:    map[string][]float64{"Jan": make([]float64, rows)},
		Annual:  make([]float64, rows),
	}
	for i := 0; i < rows; i++ {
		table.Years[i] = 2000 + i
		table.Data["Jan"][i] = base + 0.1*float64(i)
		table.Annual[i] = base + 0.1*float64(i)
	}
	first, last := table.YearRange()
	snapshot := &climate.Snapshot{
		ID:        core.NewSnapshotID(),
		Section:   climate.SectionGHCN,
		Rows:      rows,
		FirstYear: first,
		LastYear:  last,
	}
	return tablePair{table: table, snapshot: snapshot}
}

func newTestService(loader ports.DatasetLoader, archive ports.SnapshotArchive, window int) *AnalysisService {
	collector := metrics.NewCollectorWith("climatrend", prometheus.NewRegistry())
	return NewAnalysisService(loader, archive, collector, window)
}

func TestLoadMakesTableCurrent(t *testing.T) {
	ctx := context.Background()
	pair := makePair(5, 0.0)
	svc := newTestService(&stubLoader{pairs: []tablePair{pair}}, nil, 10)

	if svc.Loaded() {
		t.Error("Loaded() = true before any load")
	}
	if _, err := svc.Table(ctx); errors.GetCode(err) != errors.CodeNotFound {
		t.Errorf("Table() before load: code = %s, want %s", errors.GetCode(err), errors.CodeNotFound)
	}

	snapshot, err := svc.Load(ctx, climate.SectionGHCN)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if snapshot.ID != pair.snapshot.ID {
		t.Error("Load() returned a different snapshot")
	}

	table, err := svc.Table(ctx)
	if err != nil {
		t.Fatalf("Table() error: %v", err)
	}
	if table.RowCount() != 5 {
		t.Errorf("RowCount() = %d, want 5", table.RowCount())
	}
	if svc.Section() != climate.SectionGHCN {
		t.Errorf("Section() = %q, want %q", svc.Section(), climate.SectionGHCN)
	}
}

func TestFailedLoadKeepsPreviousTable(t *testing.T) {
	ctx := context.Background()
	pair := makePair(5, 0.0)
	loader := &stubLoader{pairs: []tablePair{pair}}
	svc := newTestService(loader, nil, 10)

	if _, err := svc.Load(ctx, climate.SectionGHCN); err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	loader.err = errors.LoadFailed("source went away")
	if _, err := svc.Load(ctx, climate.SectionAIRSv6); err == nil {
		t.Fatal("expected load error")
	}

	table, err := svc.Table(ctx)
	if err != nil {
		t.Fatalf("Table() after failed load: %v", err)
	}
	if table.RowCount() != 5 || table.Section != climate.SectionGHCN {
		t.Error("failed load must leave the previous table in place")
	}
}

func TestArchiveReceivesSnapshot(t *testing.T) {
	ctx := context.Background()
	pair := makePair(3, 0.2)
	archive := &stubArchive{}
	svc := newTestService(&stubLoader{pairs: []tablePair{pair}}, archive, 10)

	snapshot, err := svc.Load(ctx, climate.SectionGHCN)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(archive.saved) != 1 {
		t.Fatalf("archive received %d snapshots, want 1", len(archive.saved))
	}
	if archive.saved[0].ID != snapshot.ID {
		t.Error("archived snapshot differs from the returned one")
	}
}

func TestArchiveFailureDoesNotFailLoad(t *testing.T) {
	ctx := context.Background()
	pair := makePair(3, 0.2)
	archive := &stubArchive{err: errors.DatabaseError("archive down")}
	svc := newTestService(&stubLoader{pairs: []tablePair{pair}}, archive, 10)

	if _, err := svc.Load(ctx, climate.SectionGHCN); err != nil {
		t.Fatalf("Load() must succeed despite archive failure, got: %v", err)
	}
	if !svc.Loaded() {
		t.Error("table not active after load with failing archive")
	}
}

func TestProductsWindowSelection(t *testing.T) {
	ctx := context.Background()
	pair := makePair(15, 0.0)
	svc := newTestService(&stubLoader{pairs: []tablePair{pair}}, nil, 10)
	if _, err := svc.Load(ctx, climate.SectionGHCN); err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	products, err := svc.Products(ctx, 0)
	if err != nil {
		t.Fatalf("Products() error: %v", err)
	}
	if products.Window != 10 {
		t.Errorf("default Window = %d, want 10", products.Window)
	}

	products, err = svc.Products(ctx, 3)
	if err != nil {
		t.Fatalf("Products() error: %v", err)
	}
	if products.Window != 3 {
		t.Errorf("Window = %d, want 3", products.Window)
	}

	if len(products.Rolling) != 15 || len(products.YoY) != 15 {
		t.Errorf("series lengths = %d/%d, want 15/15", len(products.Rolling), len(products.YoY))
	}
	if len(products.Decadal) == 0 || len(products.Changes) != len(products.Decadal) {
		t.Errorf("decadal lengths = %d/%d, want equal and non-zero",
			len(products.Decadal), len(products.Changes))
	}
}

// The bundle is assembled concurrently; repeated calls over the same table
// must serialize identically (missing values included, as null).
func TestProductsDeterministic(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(&stubLoader{pairs: []tablePair{makePair(15, 0.0)}}, nil, 10)
	if _, err := svc.Load(ctx, climate.SectionGHCN); err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	first, err := svc.Products(ctx, 4)
	if err != nil {
		t.Fatalf("Products() error: %v", err)
	}
	second, err := svc.Products(ctx, 4)
	if err != nil {
		t.Fatalf("Products() error: %v", err)
	}

	firstJSON, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("marshaling products: %v", err)
	}
	secondJSON, err := json.Marshal(second)
	if err != nil {
		t.Fatalf("marshaling products: %v", err)
	}
	if !bytes.Equal(firstJSON, secondJSON) {
		t.Error("identical Products() calls produced different bundles")
	}
}

func TestSummaryBeforeLoad(t *testing.T) {
	svc := newTestService(&stubLoader{pairs: []tablePair{makePair(3, 0)}}, nil, 10)

	_, err := svc.Summary(context.Background())
	if errors.GetCode(err) != errors.CodeNotFound {
		t.Errorf("Summary() before load: code = %s, want %s", errors.GetCode(err), errors.CodeNotFound)
	}
}

func TestConcurrentReadersDuringSwap(t *testing.T) {
	ctx := context.Background()
	loader := &stubLoader{pairs: []tablePair{makePair(5, 0.0), makePair(8, 1.0)}}
	svc := newTestService(loader, nil, 10)
	if _, err := svc.Load(ctx, climate.SectionGHCN); err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				table, err := svc.Table(ctx)
				if err != nil {
					t.Errorf("Table() during swap: %v", err)
					return
				}
				if err := table.Validate(); err != nil {
					t.Errorf("reader observed inconsistent table: %v", err)
					return
				}
				if rows := table.RowCount(); rows != 5 && rows != 8 {
					t.Errorf("reader observed partial table with %d rows", rows)
					return
				}
			}
		}()
	}

	for i := 0; i < 200; i++ {
		if _, err := svc.Load(ctx, climate.SectionGHCN); err != nil {
			t.Fatalf("Load() error during swap loop: %v", err)
		}
	}
	close(done)
	wg.Wait()
}
