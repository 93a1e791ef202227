package ports

import (
	"context"

	"climatrend/domain/climate"
	"climatrend/domain/core"
)

// SnapshotArchive persists the audit trail of dataset loads. The archive is
// optional infrastructure: callers treat a write failure as a warning, never
// as a pipeline failure.
type SnapshotArchive interface {
	Save(ctx context.Context, snapshot *climate.Snapshot) error
	GetByID(ctx context.Context, id core.SnapshotID) (*climate.Snapshot, error)
	List(ctx context.Context, limit int) ([]climate.Snapshot, error)
	LatestBySection(ctx context.Context, section climate.Section) (*climate.Snapshot, error)
}
