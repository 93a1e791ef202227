package testkit

import (
	"path/filepath"
	"testing"

	"climatrend/adapters/gistemp"
	"climatrend/domain/climate"
)

func TestGeneratorDeterminism(t *testing.T) {
	first := NewGenerator(7).Dataset(climate.SectionGHCN)
	second := NewGenerator(7).Dataset(climate.SectionGHCN)
	if first != second {
		t.Error("same seed produced different datasets")
	}

	other := NewGenerator(8).Dataset(climate.SectionGHCN)
	if first == other {
		t.Error("different seeds produced identical datasets")
	}
}

func TestGeneratorDatasetLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "synthetic.csv")
	gen := NewGenerator(42)
	if err := gen.WriteDataset(path, climate.KnownSections()...); err != nil {
		t.Fatalf("WriteDataset() error: %v", err)
	}

	loader := gistemp.NewLoader(path)

	sections, err := loader.Sections()
	if err != nil {
		t.Fatalf("Sections() error: %v", err)
	}
	if len(sections) != len(climate.KnownSections()) {
		t.Fatalf("expected %d sections, got %v", len(climate.KnownSections()), sections)
	}

	table, snapshot, err := loader.Load(climate.SectionAIRSv6)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	wantRows := gen.LastYear - gen.FirstYear + 1
	if table.RowCount() != wantRows {
		t.Errorf("expected %d rows, got %d", wantRows, table.RowCount())
	}
	if snapshot.FirstYear != gen.FirstYear || snapshot.LastYear != gen.LastYear {
		t.Errorf("snapshot year range %d-%d, want %d-%d",
			snapshot.FirstYear, snapshot.LastYear, gen.FirstYear, gen.LastYear)
	}
	for _, col := range climate.MonthColumns {
		if !table.HasColumn(col) {
			t.Errorf("generated table missing month column %s", col)
		}
	}
	for _, col := range climate.SeasonColumns {
		if !table.HasColumn(col) {
			t.Errorf("generated table missing season column %s", col)
		}
	}
}

func TestGeneratorWarmingTrend(t *testing.T) {
	gen := NewGenerator(3)
	gen.Noise = 0
	gen.MissingRate = 0

	path := filepath.Join(t.TempDir(), "trend.csv")
	if err := gen.WriteDataset(path, climate.SectionGHCN); err != nil {
		t.Fatalf("WriteDataset() error: %v", err)
	}

	table, _, err := gistemp.NewLoader(path).Load(climate.SectionGHCN)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	first := table.Annual[0]
	last := table.Annual[len(table.Annual)-1]
	if climate.IsMissing(first) || climate.IsMissing(last) {
		t.Fatal("noise-free dataset produced missing annual values")
	}
	want := gen.Warming * float64(gen.LastYear-gen.FirstYear)
	if got := last - first; got < want-0.02 || got > want+0.02 {
		t.Errorf("annual rise %.3f, expected about %.3f", got, want)
	}
}

func TestGeneratorAllMissing(t *testing.T) {
	gen := NewGenerator(1)
	gen.MissingRate = 1.0

	path := filepath.Join(t.TempDir(), "gaps.csv")
	if err := gen.WriteDataset(path, climate.SectionAIRSv7); err != nil {
		t.Fatalf("WriteDataset() error: %v", err)
	}

	table, _, err := gistemp.NewLoader(path).Load(climate.SectionAIRSv7)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	// rows survive on a valid Year alone; every value cell is the sentinel
	if table.RowCount() != gen.LastYear-gen.FirstYear+1 {
		t.Fatalf("expected all rows kept, got %d", table.RowCount())
	}
	for i := range table.Annual {
		if !climate.IsMissing(table.Annual[i]) {
			t.Errorf("year %d: annual value defined despite fully missing months", table.Years[i])
		}
	}
}
