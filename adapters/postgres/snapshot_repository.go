package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"climatrend/domain/climate"
	"climatrend/domain/core"
	"climatrend/ports"
)

// SnapshotRepositoryImpl implements SnapshotArchive for PostgreSQL
type SnapshotRepositoryImpl struct {
	db *sqlx.DB
}

// NewSnapshotRepository creates a new PostgreSQL snapshot repository
func NewSnapshotRepository(db *sqlx.DB) ports.SnapshotArchive {
	return &SnapshotRepositoryImpl{db: db}
}

// Save inserts one load audit record
func (r *SnapshotRepositoryImpl) Save(ctx context.Context, snapshot *climate.Snapshot) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO snapshots (id, section, source_path, source_hash, row_count, first_year, last_year, loaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, snapshot.ID, snapshot.Section, snapshot.SourcePath, snapshot.SourceHash,
		snapshot.Rows, snapshot.FirstYear, snapshot.LastYear, snapshot.LoadedAt)

	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// GetByID retrieves a snapshot by its ID
func (r *SnapshotRepositoryImpl) GetByID(ctx context.Context, id core.SnapshotID) (*climate.Snapshot, error) {
	var snapshot climate.Snapshot
	err := r.db.GetContext(ctx, &snapshot, `
		SELECT id, section, source_path, source_hash, row_count, first_year, last_year, loaded_at
		FROM snapshots
		WHERE id = $1
	`, id)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("snapshot %s: %w", id, core.ErrSnapshotNotFound)
		}
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	return &snapshot, nil
}

// List returns the most recent snapshots, newest first
func (r *SnapshotRepositoryImpl) List(ctx context.Context, limit int) ([]climate.Snapshot, error) {
	if limit <= 0 {
		limit = 50
	}

	var snapshots []climate.Snapshot
	err := r.db.SelectContext(ctx, &snapshots, `
		SELECT id, section, source_path, source_hash, row_count, first_year, last_year, loaded_at
		FROM snapshots
		ORDER BY loaded_at DESC
		LIMIT $1
	`, limit)

	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	return snapshots, nil
}

// LatestBySection returns the most recent snapshot for a section
func (r *SnapshotRepositoryImpl) LatestBySection(ctx context.Context, section climate.Section) (*climate.Snapshot, error) {
	var snapshot climate.Snapshot
	err := r.db.GetContext(ctx, &snapshot, `
		SELECT id, section, source_path, source_hash, row_count, first_year, last_year, loaded_at
		FROM snapshots
		WHERE section = $1
		ORDER BY loaded_at DESC
		LIMIT 1
	`, section)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("section %s: %w", section, core.ErrSnapshotNotFound)
		}
		return nil, fmt.Errorf("failed to get latest snapshot: %w", err)
	}
	return &snapshot, nil
}
