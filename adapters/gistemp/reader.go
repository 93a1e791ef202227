package gistemp

import (
	"fmt"
	"os"
	"strings"
	"time"

	"climatrend/domain/climate"
	"climatrend/domain/core"
	"climatrend/internal"
	"climatrend/internal/errors"
)

// SectionData is the raw, untyped parse of one dataset section
type SectionData struct {
	Section climate.Section
	Header  []string
	Rows    [][]string

	// SkippedRows counts data rows rejected for column-count mismatch
	SkippedRows int

	// SourceHash fingerprints the raw file content the section came from
	SourceHash core.SourceHash
}

// Reader parses multi-section comma-delimited anomaly files. Every line
// belongs to the most recently seen section label; lines before any label
// and blank lines are discarded. The first retained line of a section is its
// comma-split column header, all following lines are data rows.
type Reader struct {
	filePath string
	logger   *internal.Logger
}

// NewReader creates a reader for the given source file
func NewReader(filePath string) *Reader {
	return &Reader{
		filePath: filePath,
		logger:   internal.DefaultLogger.WithTag("Reader"),
	}
}

// Read parses the file and returns the selected section's raw table. The
// other sections are scanned and discarded. Any failure here aborts the
// load: no partial table escapes.
func (r *Reader) Read(section climate.Section) (*SectionData, error) {
	startTime := time.Now()

	content, err := os.ReadFile(r.filePath)
	if err != nil {
		return nil, errors.LoadFailedWrap(err, fmt.Sprintf("cannot read dataset file %s", r.filePath))
	}
	r.logger.Debug("read %s (%d bytes) in %.2fms",
		r.filePath, len(content), float64(time.Since(startTime).Nanoseconds())/1e6)

	sections := splitSections(string(content))
	lines, ok := sections[section]
	if !ok {
		return nil, errors.LoadFailed(fmt.Sprintf("section %q not present in %s", section, r.filePath))
	}
	if len(lines) == 0 {
		return nil, errors.LoadFailed(fmt.Sprintf("section %q of %s is empty", section, r.filePath))
	}

	data := &SectionData{
		Section:    section,
		Header:     splitFields(lines[0]),
		SourceHash: core.ComputeSourceHash(content),
	}

	for _, line := range lines[1:] {
		fields := splitFields(line)
		if len(fields) != len(data.Header) {
			data.SkippedRows++
			continue
		}
		data.Rows = append(data.Rows, fields)
	}

	if data.SkippedRows > 0 {
		r.logger.Warn("section %q: rejected %d rows whose column count != %d",
			section, data.SkippedRows, len(data.Header))
	}
	if len(data.Rows) == 0 {
		return nil, errors.LoadFailed(fmt.Sprintf(
			"section %q of %s has no usable data rows (%d rejected)",
			section, r.filePath, data.SkippedRows))
	}

	r.logger.Info("section %q parsed (%d columns, %d rows, %d skipped) in %.2fms",
		section, len(data.Header), len(data.Rows), data.SkippedRows,
		float64(time.Since(startTime).Nanoseconds())/1e6)

	return data, nil
}

// Sections scans the file and reports which known sections it contains
func (r *Reader) Sections() ([]climate.Section, error) {
	content, err := os.ReadFile(r.filePath)
	if err != nil {
		return nil, errors.LoadFailedWrap(err, fmt.Sprintf("cannot read dataset file %s", r.filePath))
	}

	found := splitSections(string(content))
	var out []climate.Section
	for _, s := range climate.KnownSections() {
		if _, ok := found[s]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

// splitSections groups non-blank lines under the most recent section label.
// A label line itself is consumed by the switch and is not data.
func splitSections(content string) map[climate.Section][]string {
	sections := make(map[climate.Section][]string)
	var current climate.Section
	haveCurrent := false

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimRight(line, "\r")

		if s, ok := climate.DetectSection(line); ok {
			current = s
			haveCurrent = true
			if _, seen := sections[current]; !seen {
				sections[current] = []string{}
			}
			continue
		}
		if !haveCurrent || strings.TrimSpace(line) == "" {
			continue
		}
		sections[current] = append(sections[current], line)
	}

	return sections
}

func splitFields(line string) []string {
	parts := strings.Split(line, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
