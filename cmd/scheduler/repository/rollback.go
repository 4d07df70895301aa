package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/planfab/scheduler/cmd/scheduler/models"
	"github.com/planfab/scheduler/common/db"
)

// RollbackRepository persists rollback audit records
type RollbackRepository struct {
	db *db.DB
}

// NewRollbackRepository creates a new rollback repository
func NewRollbackRepository(database *db.DB) *RollbackRepository {
	return &RollbackRepository{db: database}
}

// Create inserts a rollback audit record
func (r *RollbackRepository) Create(ctx context.Context, rb *models.VersionRollback) error {
	affected, err := json.Marshal(rb.AffectedOperations)
	if err != nil {
		return fmt.Errorf("failed to marshal affected operations: %w", err)
	}

	query := `
		INSERT INTO version_rollbacks (
			id, schedule_id, from_version_id, to_version_id, rollback_reason,
			rollback_type, affected_operations, performed_by, approved,
			approved_by, approved_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at
	`

	err = r.db.QueryRow(ctx, query,
		rb.ID,
		rb.ScheduleID,
		rb.FromVersionID,
		rb.ToVersionID,
		rb.RollbackReason,
		rb.RollbackType,
		affected,
		rb.PerformedBy,
		rb.Approved,
		rb.ApprovedBy,
		rb.ApprovedAt,
	).Scan(&rb.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create rollback record: %w", err)
	}

	return nil
}

// ListBySchedule retrieves rollback history for a schedule, newest first
func (r *RollbackRepository) ListBySchedule(ctx context.Context, scheduleID int64, limit int) ([]*models.VersionRollback, error) {
	query := `
		SELECT id, schedule_id, from_version_id, to_version_id, rollback_reason,
		       rollback_type, affected_operations, performed_by, approved,
		       approved_by, approved_at, created_at
		FROM version_rollbacks
		WHERE schedule_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, scheduleID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list rollbacks: %w", err)
	}
	defer rows.Close()

	var rollbacks []*models.VersionRollback
	for rows.Next() {
		rb := &models.VersionRollback{}
		var affected []byte
		err := rows.Scan(
			&rb.ID,
			&rb.ScheduleID,
			&rb.FromVersionID,
			&rb.ToVersionID,
			&rb.RollbackReason,
			&rb.RollbackType,
			&affected,
			&rb.PerformedBy,
			&rb.Approved,
			&rb.ApprovedBy,
			&rb.ApprovedAt,
			&rb.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rollback: %w", err)
		}
		if len(affected) > 0 {
			if err := json.Unmarshal(affected, &rb.AffectedOperations); err != nil {
				return nil, fmt.Errorf("failed to unmarshal affected operations: %w", err)
			}
		}
		rollbacks = append(rollbacks, rb)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rollbacks: %w", err)
	}

	return rollbacks, nil
}
