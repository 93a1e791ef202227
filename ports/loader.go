package ports

import (
	"climatrend/domain/climate"
)

// DatasetLoader produces a cleaned table from a configured source file.
// Loading is all-or-nothing: an error means no table and no snapshot, and
// the caller's previous table must stay in place.
type DatasetLoader interface {
	Load(section climate.Section) (*climate.Table, *climate.Snapshot, error)
	Sections() ([]climate.Section, error)
}
