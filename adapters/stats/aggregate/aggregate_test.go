package aggregate

import (
	"math"
	"testing"

	"climatrend/domain/climate"
)

func annualTable(years []int, annual []float64) *climate.Table {
	return &climate.Table{
		Section: climate.SectionGHCN,
		Years:   years,
		Data:    map[string][]float64{},
		Annual:  annual,
	}
}

func TestDecade(t *testing.T) {
	tests := []struct {
		year int
		want int
	}{
		{1880, 1880},
		{1987, 1980},
		{2000, 2000},
		{2009, 2000},
		{2010, 2010},
	}
	for _, tt := range tests {
		if got := Decade(tt.year); got != tt.want {
			t.Errorf("Decade(%d) = %d, want %d", tt.year, got, tt.want)
		}
	}
}

func TestDecadalMeansBuckets(t *testing.T) {
	table := annualTable(
		[]int{2005, 2009, 2010},
		[]float64{0.4, 0.6, 0.9},
	)

	rows := NewAggregator().DecadalMeans(table)
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}

	if rows[0].Decade != 2000 || rows[1].Decade != 2010 {
		t.Errorf("decades = [%d %d], want [2000 2010]", rows[0].Decade, rows[1].Decade)
	}
	if math.Abs(rows[0].Mean.Value()-0.5) > 1e-12 {
		t.Errorf("2000s mean = %v, want 0.5", rows[0].Mean.Value())
	}
	if rows[0].Count != 2 || rows[1].Count != 1 {
		t.Errorf("counts = [%d %d], want [2 1]", rows[0].Count, rows[1].Count)
	}
	// Single-value decade has no sample std
	if rows[1].Std.Defined() {
		t.Errorf("2010s std = %v, want null", rows[1].Std.Value())
	}
}

func TestDecadalMeansSampleStd(t *testing.T) {
	table := annualTable(
		[]int{2000, 2001, 2002, 2003},
		[]float64{1, 2, 3, 4},
	)

	rows := NewAggregator().DecadalMeans(table)
	if len(rows) != 1 {
		t.Fatalf("len(rows) = %d, want 1", len(rows))
	}

	want := math.Sqrt(5.0 / 3.0) // sample variance of 1..4 is 5/3
	if math.Abs(rows[0].Std.Value()-want) > 1e-12 {
		t.Errorf("std = %v, want %v", rows[0].Std.Value(), want)
	}
}

func TestDecadalMeansMissingValues(t *testing.T) {
	table := annualTable(
		[]int{1990, 1991, 2000},
		[]float64{climate.Missing(), climate.Missing(), 0.3},
	)

	rows := NewAggregator().DecadalMeans(table)
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2 (all-missing decade still listed)", len(rows))
	}
	if rows[0].Decade != 1990 || rows[0].Count != 0 {
		t.Errorf("1990s row = %+v, want Count 0", rows[0])
	}
	if rows[0].Mean.Defined() {
		t.Errorf("1990s mean = %v, want null", rows[0].Mean.Value())
	}
}

func TestDecadalMeansDoNotMutateTable(t *testing.T) {
	years := []int{2005, 2009, 2010}
	annual := []float64{0.4, 0.6, 0.9}
	table := annualTable(years, annual)

	NewAggregator().DecadalMeans(table)

	for i, y := range []int{2005, 2009, 2010} {
		if table.Years[i] != y {
			t.Fatalf("Years mutated: %v", table.Years)
		}
	}
	for i, v := range []float64{0.4, 0.6, 0.9} {
		if table.Annual[i] != v {
			t.Fatalf("Annual mutated: %v", table.Annual)
		}
	}
}

func TestDecadalChangesAlignment(t *testing.T) {
	rows := []climate.DecadalRow{
		{Decade: 1990, Mean: climate.F(0.2)},
		{Decade: 2000, Mean: climate.F(0.5)},
		{Decade: 2010, Mean: climate.F(0.9)},
	}

	changes := NewAggregator().DecadalChanges(rows)
	if len(changes) != 3 {
		t.Fatalf("len(changes) = %d, want 3", len(changes))
	}
	if changes[0].Delta.Defined() {
		t.Errorf("first delta = %v, want null", changes[0].Delta.Value())
	}
	if math.Abs(changes[1].Delta.Value()-0.3) > 1e-12 {
		t.Errorf("changes[1] = %v, want 0.3", changes[1].Delta.Value())
	}
	if math.Abs(changes[2].Delta.Value()-0.4) > 1e-12 {
		t.Errorf("changes[2] = %v, want 0.4", changes[2].Delta.Value())
	}
}

func TestDecadalChangesMissingMean(t *testing.T) {
	rows := []climate.DecadalRow{
		{Decade: 1990, Mean: climate.F(0.2)},
		{Decade: 2000, Mean: climate.F(climate.Missing())},
		{Decade: 2010, Mean: climate.F(0.9)},
	}

	changes := NewAggregator().DecadalChanges(rows)
	if changes[1].Delta.Defined() || changes[2].Delta.Defined() {
		t.Error("deltas touching a null mean must be null")
	}
}

func TestRollingMeanWarmup(t *testing.T) {
	values := make([]float64, 15)
	for i := range values {
		values[i] = float64(i)
	}

	out := RollingMean(values, 10)
	if len(out) != 15 {
		t.Fatalf("len(out) = %d, want 15", len(out))
	}

	definedCount := 0
	for i, v := range out {
		if i < 9 {
			if !climate.IsMissing(v) {
				t.Errorf("out[%d] = %v, want missing during warmup", i, v)
			}
			continue
		}
		if climate.IsMissing(v) {
			t.Errorf("out[%d] missing, want defined", i)
			continue
		}
		definedCount++
	}
	if definedCount != 6 {
		t.Errorf("defined positions = %d, want 6", definedCount)
	}

	if math.Abs(out[9]-4.5) > 1e-12 {
		t.Errorf("out[9] = %v, want 4.5", out[9])
	}
	if math.Abs(out[14]-9.5) > 1e-12 {
		t.Errorf("out[14] = %v, want 9.5", out[14])
	}
}

func TestRollingMeanMissingInsideWindow(t *testing.T) {
	values := []float64{1, 2, climate.Missing(), 4, 5, 6}

	out := RollingMean(values, 3)
	// Windows [0..2], [1..3], [2..4] all contain the missing value
	for i := 2; i <= 4; i++ {
		if !climate.IsMissing(out[i]) {
			t.Errorf("out[%d] = %v, want missing (window overlaps gap)", i, out[i])
		}
	}
	if math.Abs(out[5]-5.0) > 1e-12 {
		t.Errorf("out[5] = %v, want 5.0", out[5])
	}
}

func TestRollingMeanWindowLargerThanSeries(t *testing.T) {
	out := RollingMean([]float64{1, 2, 3}, 10)
	for i, v := range out {
		if !climate.IsMissing(v) {
			t.Errorf("out[%d] = %v, want missing", i, v)
		}
	}
}

func TestYearOverYear(t *testing.T) {
	values := []float64{0.0, 0.1, climate.Missing(), 0.4, 0.5}

	out := YearOverYear(values)
	if !climate.IsMissing(out[0]) {
		t.Errorf("out[0] = %v, want missing", out[0])
	}
	if math.Abs(out[1]-0.1) > 1e-12 {
		t.Errorf("out[1] = %v, want 0.1", out[1])
	}
	if !climate.IsMissing(out[2]) || !climate.IsMissing(out[3]) {
		t.Error("differences touching a gap must be missing")
	}
	if math.Abs(out[4]-0.1) > 1e-12 {
		t.Errorf("out[4] = %v, want 0.1", out[4])
	}
}

func monthlyTable() *climate.Table {
	return &climate.Table{
		Section: climate.SectionGHCN,
		Columns: []string{"Jan", "Feb"},
		Years:   []int{2000, 2001, 2002},
		Data: map[string][]float64{
			"Jan": {0.1, 0.3, 0.5},
			"Feb": {0.2, climate.Missing(), 0.6},
		},
		Annual: []float64{0.15, 0.3, 0.55},
	}
}

func TestMonthlyLongFormOrder(t *testing.T) {
	cells := NewAggregator().MonthlyLongForm(monthlyTable())
	if len(cells) != 6 {
		t.Fatalf("len(cells) = %d, want 6", len(cells))
	}

	// Year-major, months in calendar order
	if cells[0].Year != 2000 || cells[0].Month != "Jan" {
		t.Errorf("cells[0] = %+v, want 2000/Jan", cells[0])
	}
	if cells[1].Year != 2000 || cells[1].Month != "Feb" {
		t.Errorf("cells[1] = %+v, want 2000/Feb", cells[1])
	}
	if cells[2].Year != 2001 {
		t.Errorf("cells[2].Year = %d, want 2001", cells[2].Year)
	}

	// The gap cell is kept, as null
	if cells[3].Month != "Feb" || cells[3].Value.Defined() {
		t.Errorf("cells[3] = %+v, want null Feb 2001", cells[3])
	}
}

func TestMonthlyProfile(t *testing.T) {
	rows := NewAggregator().MonthlyProfile(monthlyTable())
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}

	jan := rows[0]
	if jan.Month != "Jan" || jan.Count != 3 {
		t.Fatalf("jan = %+v, want Month Jan Count 3", jan)
	}
	if math.Abs(jan.Mean.Value()-0.3) > 1e-12 {
		t.Errorf("jan.Mean = %v, want 0.3", jan.Mean.Value())
	}
	if math.Abs(jan.Min.Value()-0.1) > 1e-12 || math.Abs(jan.Max.Value()-0.5) > 1e-12 {
		t.Errorf("jan min/max = %v/%v, want 0.1/0.5", jan.Min.Value(), jan.Max.Value())
	}

	feb := rows[1]
	if feb.Count != 2 {
		t.Errorf("feb.Count = %d, want 2 (missing cell excluded)", feb.Count)
	}
	if math.Abs(feb.Mean.Value()-0.4) > 1e-12 {
		t.Errorf("feb.Mean = %v, want 0.4", feb.Mean.Value())
	}
}

func TestMonthlyProfileSingleValueMonth(t *testing.T) {
	table := &climate.Table{
		Section: climate.SectionGHCN,
		Columns: []string{"Jan"},
		Years:   []int{2000, 2001},
		Data: map[string][]float64{
			"Jan": {0.4, climate.Missing()},
		},
		Annual: []float64{0.4, climate.Missing()},
	}

	rows := NewAggregator().MonthlyProfile(table)
	if rows[0].Count != 1 {
		t.Fatalf("Count = %d, want 1", rows[0].Count)
	}
	if !rows[0].Mean.Defined() {
		t.Error("single-value month should still have a mean")
	}
	if rows[0].Std.Defined() {
		t.Error("single-value month has no sample std")
	}
}

func TestRollingSeriesPairsYears(t *testing.T) {
	table := annualTable([]int{2000, 2001, 2002}, []float64{1, 2, 3})

	points := NewAggregator().RollingSeries(table, 2)
	if len(points) != 3 {
		t.Fatalf("len(points) = %d, want 3", len(points))
	}
	if points[0].Year != 2000 || points[0].Value.Defined() {
		t.Errorf("points[0] = %+v, want 2000/null", points[0])
	}
	if points[1].Year != 2001 || math.Abs(points[1].Value.Value()-1.5) > 1e-12 {
		t.Errorf("points[1] = %+v, want 2001/1.5", points[1])
	}
}
