// Package testkit generates synthetic anomaly datasets in the multi-section
// text layout the loader consumes. Values follow a configurable warming trend
// with seeded noise, so tests get realistic inputs that reproduce exactly.
package testkit

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"strings"

	"climatrend/domain/climate"
)

// Generator produces synthetic anomaly sections. All fields may be adjusted
// before the first call to Dataset; a zero MissingRate produces complete
// tables.
type Generator struct {
	rng *rand.Rand

	// FirstYear and LastYear bound the generated rows, inclusive
	FirstYear int
	LastYear  int

	// Base is the anomaly at FirstYear, Warming the per-year increase
	Base    float64
	Warming float64

	// Noise is the spread of per-cell jitter around the trend
	Noise float64

	// MissingRate is the probability that a month cell becomes the
	// sentinel token instead of a value
	MissingRate float64
}

// NewGenerator creates a generator with a mild warming trend. The same seed
// always yields the same dataset text.
func NewGenerator(seed int64) *Generator {
	return &Generator{
		rng:         rand.New(rand.NewSource(seed)),
		FirstYear:   1950,
		LastYear:    2020,
		Base:        -0.10,
		Warming:     0.018,
		Noise:       0.08,
		MissingRate: 0.02,
	}
}

// Dataset renders a complete multi-section file: a preamble the parser
// discards, then one block per requested section.
func (g *Generator) Dataset(sections ...climate.Section) string {
	var b strings.Builder
	b.WriteString("Land-Ocean Temperature Index (C)\n")
	b.WriteString("--------------------------------\n\n")
	for _, section := range sections {
		b.WriteString(g.SectionBlock(section))
		b.WriteString("\n")
	}
	return b.String()
}

// WriteDataset writes the rendered dataset to path
func (g *Generator) WriteDataset(path string, sections ...climate.Section) error {
	if err := os.WriteFile(path, []byte(g.Dataset(sections...)), 0o644); err != nil {
		return fmt.Errorf("failed to write synthetic dataset: %w", err)
	}
	return nil
}

// SectionBlock renders one section: its label line, the column header, and a
// data row per year with twelve month cells and four season cells.
func (g *Generator) SectionBlock(section climate.Section) string {
	var b strings.Builder
	b.WriteString(labelLine(section))
	b.WriteString("\n")
	b.WriteString(climate.YearColumn)
	for _, m := range climate.MonthColumns {
		b.WriteString(",")
		b.WriteString(m)
	}
	for _, s := range climate.SeasonColumns {
		b.WriteString(",")
		b.WriteString(s)
	}
	b.WriteString("\n")

	for year := g.FirstYear; year <= g.LastYear; year++ {
		months := g.yearRow(year)
		b.WriteString(fmt.Sprintf("%d", year))
		for _, v := range months {
			b.WriteString(",")
			b.WriteString(formatCell(v))
		}
		for _, season := range seasonMeans(months) {
			b.WriteString(",")
			b.WriteString(formatCell(season))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// yearRow generates the twelve month anomalies for one year. A missing cell
// is climate.Missing(), rendered later as the sentinel token.
func (g *Generator) yearRow(year int) []float64 {
	row := make([]float64, len(climate.MonthColumns))
	trend := g.Base + g.Warming*float64(year-g.FirstYear)
	for month := range row {
		if g.MissingRate > 0 && g.rng.Float64() < g.MissingRate {
			row[month] = climate.Missing()
			continue
		}
		// small seasonal wobble so months differ within a year
		wobble := 0.03 * math.Sin(2*math.Pi*float64(month)/12)
		row[month] = trend + wobble + g.Noise*g.rng.NormFloat64()
	}
	return row
}

// seasonMeans derives the four season cells from the month cells. The source
// publishes seasons as their own columns, so the generator does too; a season
// with any missing month stays missing.
func seasonMeans(months []float64) []float64 {
	groups := [][]int{
		{11, 0, 1}, // DJF
		{2, 3, 4},  // MAM
		{5, 6, 7},  // JJA
		{8, 9, 10}, // SON
	}
	out := make([]float64, len(groups))
	for i, idx := range groups {
		sum := 0.0
		for _, m := range idx {
			sum += months[m]
		}
		out[i] = sum / float64(len(idx))
		if math.IsNaN(out[i]) {
			out[i] = climate.Missing()
		}
	}
	return out
}

func formatCell(v float64) string {
	if climate.IsMissing(v) {
		return "*******"
	}
	return fmt.Sprintf("%.2f", v)
}

// labelLine renders a section introduction line the way the published files
// phrase them. The parser only requires the label substring.
func labelLine(section climate.Section) string {
	switch section {
	case climate.SectionGHCN:
		return fmt.Sprintf("Station data, %s", section)
	default:
		return fmt.Sprintf("Global annual means, %s", section)
	}
}
