package climate

import (
	"encoding/json"
	"math"
	"testing"
)

func buildTestTable() *Table {
	t := &Table{
		Section: SectionGHCN,
		Columns: []string{"Jan", "Feb"},
		Years:   []int{2000, 2001, 2002},
		Data: map[string][]float64{
			"Jan": {0.1, 0.2, 0.3},
			"Feb": {0.4, Missing(), 0.6},
		},
		Annual: []float64{0.25, 0.2, 0.45},
	}
	return t
}

// TestTableValidate tests structural consistency checks
func TestTableValidate(t *testing.T) {
	t.Run("consistent table passes", func(t *testing.T) {
		table := buildTestTable()
		if err := table.Validate(); err != nil {
			t.Fatalf("Validate() returned error for consistent table: %v", err)
		}
	})

	t.Run("ragged column fails", func(t *testing.T) {
		table := buildTestTable()
		table.Data["Jan"] = []float64{0.1}
		if err := table.Validate(); err == nil {
			t.Fatal("Validate() accepted ragged column")
		}
	})

	t.Run("missing named column fails", func(t *testing.T) {
		table := buildTestTable()
		delete(table.Data, "Feb")
		if err := table.Validate(); err == nil {
			t.Fatal("Validate() accepted header name without stored column")
		}
	})

	t.Run("annual misaligned fails", func(t *testing.T) {
		table := buildTestTable()
		table.Annual = table.Annual[:1]
		if err := table.Validate(); err == nil {
			t.Fatal("Validate() accepted misaligned annual column")
		}
	})
}

// TestTableColumnLookup tests column access including the derived column
func TestTableColumnLookup(t *testing.T) {
	table := buildTestTable()

	if vals, ok := table.Column("Jan"); !ok || len(vals) != 3 {
		t.Errorf("Column(Jan) = (%v, %v), want 3 values", vals, ok)
	}
	if vals, ok := table.Column(AnnualColumn); !ok || len(vals) != 3 {
		t.Errorf("Column(annual_temp) = (%v, %v), want derived column", vals, ok)
	}
	if _, ok := table.Column("Mar"); ok {
		t.Error("Column(Mar) reported present on a two-column table")
	}
}

// TestSeriesValidPairs tests missing-value filtering for fits
func TestSeriesValidPairs(t *testing.T) {
	s := Series{
		Key:    "Feb",
		Years:  []int{2000, 2001, 2002},
		Values: []float64{0.4, Missing(), 0.6},
	}

	xs, ys := s.ValidPairs()
	if len(xs) != 2 || len(ys) != 2 {
		t.Fatalf("ValidPairs() returned %d/%d values, want 2/2", len(xs), len(ys))
	}
	if xs[0] != 2000 || xs[1] != 2002 {
		t.Errorf("ValidPairs() years = %v, want [2000 2002]", xs)
	}
	if ys[0] != 0.4 || ys[1] != 0.6 {
		t.Errorf("ValidPairs() values = %v, want [0.4 0.6]", ys)
	}

	if got := s.ValidValues(); len(got) != 2 {
		t.Errorf("ValidValues() = %v, want 2 entries", got)
	}
}

// TestYearRange tests first/last year reporting
func TestYearRange(t *testing.T) {
	table := buildTestTable()
	first, last := table.YearRange()
	if first != 2000 || last != 2002 {
		t.Errorf("YearRange() = (%d, %d), want (2000, 2002)", first, last)
	}

	empty := &Table{}
	first, last = empty.YearRange()
	if first != 0 || last != 0 {
		t.Errorf("YearRange() on empty table = (%d, %d), want (0, 0)", first, last)
	}
}

// TestFloatJSON tests that missing values serialize as null, never zero
func TestFloatJSON(t *testing.T) {
	tests := []struct {
		name     string
		value    Float
		expected string
	}{
		{"defined value", F(0.85), "0.85"},
		{"missing value", F(Missing()), "null"},
		{"zero is not null", F(0), "0"},
		{"negative anomaly", F(-0.12), "-0.12"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			data, err := json.Marshal(test.value)
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}
			if string(data) != test.expected {
				t.Errorf("Marshal(%v) = %s, want %s", float64(test.value), data, test.expected)
			}
		})
	}

	t.Run("null round-trips to missing", func(t *testing.T) {
		var f Float
		if err := json.Unmarshal([]byte("null"), &f); err != nil {
			t.Fatalf("Unmarshal failed: %v", err)
		}
		if !math.IsNaN(float64(f)) {
			t.Errorf("Unmarshal(null) = %v, want NaN", float64(f))
		}
	})
}

// TestMissingConvention pins the missing-value representation
func TestMissingConvention(t *testing.T) {
	if !IsMissing(Missing()) {
		t.Error("IsMissing(Missing()) = false")
	}
	if IsMissing(0) {
		t.Error("IsMissing(0) = true; zero must never mean missing")
	}
	if IsMissing(-1.5) {
		t.Error("IsMissing(-1.5) = true")
	}
}
