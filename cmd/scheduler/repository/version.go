package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/planfab/scheduler/cmd/scheduler/models"
	"github.com/planfab/scheduler/common/db"
)

// VersionRepository handles database operations for schedule versions
type VersionRepository struct {
	db *db.DB
}

// NewVersionRepository creates a new version repository
func NewVersionRepository(database *db.DB) *VersionRepository {
	return &VersionRepository{db: database}
}

// LockScheduleInTx serializes concurrent version creators for one
// schedule. The advisory lock is transaction-scoped and released
// automatically on commit or rollback.
func (r *VersionRepository) LockScheduleInTx(ctx context.Context, tx pgx.Tx, scheduleID int64) error {
	_, err := tx.Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtextextended('schedule_versions:' || $1::text, 0))`,
		scheduleID,
	)
	if err != nil {
		return fmt.Errorf("failed to acquire schedule tx lock: %w", err)
	}
	return nil
}

// NextVersionNumberInTx computes max(version_number)+1 for a schedule.
// Must be called after LockScheduleInTx; the unique constraint on
// (schedule_id, version_number) is the backstop.
func (r *VersionRepository) NextVersionNumberInTx(ctx context.Context, tx pgx.Tx, scheduleID int64) (int, error) {
	var next int
	err := tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(version_number), 0) + 1 FROM schedule_versions WHERE schedule_id = $1`,
		scheduleID,
	).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("failed to compute next version number: %w", err)
	}
	return next, nil
}

// GetLatestInTx retrieves the latest version inside a transaction
func (r *VersionRepository) GetLatestInTx(ctx context.Context, tx pgx.Tx, scheduleID int64) (*models.ScheduleVersion, error) {
	row := tx.QueryRow(ctx, selectVersionSQL+` WHERE schedule_id = $1 ORDER BY version_number DESC LIMIT 1`, scheduleID)
	return scanVersion(row)
}

// CreateInTx inserts a new version inside a transaction
func (r *VersionRepository) CreateInTx(ctx context.Context, tx pgx.Tx, version *models.ScheduleVersion) error {
	snapshotJSON, err := json.Marshal(version.SnapshotData)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	metricsJSON, err := json.Marshal(version.Metrics)
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	query := `
		INSERT INTO schedule_versions (
			id, schedule_id, version_number, version_tag, created_by, source,
			comment, snapshot_data, checksum, metrics, parent_version_id, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at
	`

	err = tx.QueryRow(ctx, query,
		version.ID,
		version.ScheduleID,
		version.VersionNumber,
		version.VersionTag,
		version.CreatedBy,
		version.Source,
		version.Comment,
		snapshotJSON,
		version.Checksum,
		metricsJSON,
		version.ParentVersionID,
		version.Status,
	).Scan(&version.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create schedule version: %w", err)
	}

	return nil
}

// GetLatest retrieves the highest-numbered version for a schedule,
// or nil if no version exists yet
func (r *VersionRepository) GetLatest(ctx context.Context, scheduleID int64) (*models.ScheduleVersion, error) {
	row := r.db.QueryRow(ctx, selectVersionSQL+` WHERE schedule_id = $1 ORDER BY version_number DESC LIMIT 1`, scheduleID)
	return scanVersion(row)
}

// GetByID retrieves a version by id, or nil if missing
func (r *VersionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ScheduleVersion, error) {
	row := r.db.QueryRow(ctx, selectVersionSQL+` WHERE id = $1`, id)
	return scanVersion(row)
}

// GetHistory retrieves versions newest first, joined with creator
// display names
func (r *VersionRepository) GetHistory(ctx context.Context, scheduleID int64, limit int) ([]*models.ScheduleVersionWithCreator, error) {
	query := `
		SELECT
			sv.id, sv.schedule_id, sv.version_number, sv.version_tag, sv.created_by,
			sv.source, sv.comment, sv.snapshot_data, sv.checksum, sv.metrics,
			sv.parent_version_id, sv.status, sv.created_at,
			u.display_name
		FROM schedule_versions sv
		JOIN users u ON sv.created_by = u.id
		WHERE sv.schedule_id = $1
		ORDER BY sv.version_number DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, scheduleID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get version history: %w", err)
	}
	defer rows.Close()

	var history []*models.ScheduleVersionWithCreator
	for rows.Next() {
		entry := &models.ScheduleVersionWithCreator{}
		var snapshotJSON, metricsJSON []byte
		err := rows.Scan(
			&entry.ID,
			&entry.ScheduleID,
			&entry.VersionNumber,
			&entry.VersionTag,
			&entry.CreatedBy,
			&entry.Source,
			&entry.Comment,
			&snapshotJSON,
			&entry.Checksum,
			&metricsJSON,
			&entry.ParentVersionID,
			&entry.Status,
			&entry.CreatedAt,
			&entry.CreatedByName,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan version history entry: %w", err)
		}

		if err := json.Unmarshal(snapshotJSON, &entry.SnapshotData); err != nil {
			return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
		}
		if err := json.Unmarshal(metricsJSON, &entry.Metrics); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metrics: %w", err)
		}

		history = append(history, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating version history: %w", err)
	}

	return history, nil
}

const selectVersionSQL = `
	SELECT id, schedule_id, version_number, version_tag, created_by, source,
	       comment, snapshot_data, checksum, metrics, parent_version_id, status, created_at
	FROM schedule_versions`

func scanVersion(row pgx.Row) (*models.ScheduleVersion, error) {
	version := &models.ScheduleVersion{}
	var snapshotJSON, metricsJSON []byte

	err := row.Scan(
		&version.ID,
		&version.ScheduleID,
		&version.VersionNumber,
		&version.VersionTag,
		&version.CreatedBy,
		&version.Source,
		&version.Comment,
		&snapshotJSON,
		&version.Checksum,
		&metricsJSON,
		&version.ParentVersionID,
		&version.Status,
		&version.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan schedule version: %w", err)
	}

	if err := json.Unmarshal(snapshotJSON, &version.SnapshotData); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	if err := json.Unmarshal(metricsJSON, &version.Metrics); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metrics: %w", err)
	}

	return version, nil
}
