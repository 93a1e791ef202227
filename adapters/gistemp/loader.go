package gistemp

import (
	"time"

	"climatrend/domain/climate"
	"climatrend/domain/core"
)

// Loader composes Reader and Cleaner into the full load pipeline:
// raw file -> selected section -> typed table, plus a Snapshot record
// describing the load for archival.
type Loader struct {
	filePath string
	cleaner  *Cleaner
}

// NewLoader creates a loader for the given source file
func NewLoader(filePath string) *Loader {
	return &Loader{
		filePath: filePath,
		cleaner:  NewCleaner(),
	}
}

// Load reads, selects and cleans one section. Any error is a load error
// and the caller gets neither table nor snapshot.
func (l *Loader) Load(section climate.Section) (*climate.Table, *climate.Snapshot, error) {
	raw, err := NewReader(l.filePath).Read(section)
	if err != nil {
		return nil, nil, err
	}

	table, err := l.cleaner.Clean(raw)
	if err != nil {
		return nil, nil, err
	}

	firstYear, lastYear := table.YearRange()
	snapshot := &climate.Snapshot{
		ID:         core.NewSnapshotID(),
		Section:    section,
		SourcePath: l.filePath,
		SourceHash: raw.SourceHash,
		Rows:       table.RowCount(),
		FirstYear:  firstYear,
		LastYear:   lastYear,
		LoadedAt:   time.Now().UTC(),
	}
	return table, snapshot, nil
}

// Sections reports which known sections the source file contains
func (l *Loader) Sections() ([]climate.Section, error) {
	return NewReader(l.filePath).Sections()
}
