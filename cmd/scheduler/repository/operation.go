package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/planfab/scheduler/cmd/scheduler/models"
	"github.com/planfab/scheduler/common/db"
)

// OperationRepository reads live schedulable operations and writes
// snapshot content back during rollback. The rows themselves are owned
// by the scheduling side of the application.
type OperationRepository struct {
	db *db.DB
}

// NewOperationRepository creates a new operation repository
func NewOperationRepository(database *db.DB) *OperationRepository {
	return &OperationRepository{db: database}
}

// ListBySchedule retrieves all operations belonging to a schedule,
// ordered deterministically for canonical snapshots
func (r *OperationRepository) ListBySchedule(ctx context.Context, scheduleID int64) ([]*models.Operation, error) {
	query := `
		SELECT id, schedule_id, job_id, name, scheduled_start, scheduled_end,
		       manually_scheduled, constraint_type, constraint_date, sequence_number,
		       resource_id, due_date, quantity, setup_cost, run_cost, setup_hours
		FROM job_operations
		WHERE schedule_id = $1
		ORDER BY id ASC
	`

	rows, err := r.db.Query(ctx, query, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list operations: %w", err)
	}
	defer rows.Close()

	var operations []*models.Operation
	for rows.Next() {
		op := &models.Operation{}
		err := rows.Scan(
			&op.ID,
			&op.ScheduleID,
			&op.JobID,
			&op.Name,
			&op.ScheduledStart,
			&op.ScheduledEnd,
			&op.ManuallyScheduled,
			&op.ConstraintType,
			&op.ConstraintDate,
			&op.SequenceNumber,
			&op.ResourceID,
			&op.DueDate,
			&op.Quantity,
			&op.SetupCost,
			&op.RunCost,
			&op.SetupHours,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan operation: %w", err)
		}
		operations = append(operations, op)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating operations: %w", err)
	}

	return operations, nil
}

// ApplySnapshot writes snapshot fields back onto the live operation
// rows in a single transaction. Only the schedule-owned fields are
// restored; quantities and costs stay untouched.
func (r *OperationRepository) ApplySnapshot(ctx context.Context, operations []models.OperationSnapshot) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		query := `
			UPDATE job_operations
			SET scheduled_start = $2,
			    scheduled_end = $3,
			    manually_scheduled = $4,
			    constraint_type = $5,
			    constraint_date = $6,
			    sequence_number = $7
			WHERE id = $1
		`

		for _, op := range operations {
			_, err := tx.Exec(ctx, query,
				op.ID,
				op.ScheduledStart,
				op.ScheduledEnd,
				op.ManuallyScheduled,
				op.ConstraintType,
				op.ConstraintDate,
				op.SequenceNumber,
			)
			if err != nil {
				return fmt.Errorf("failed to apply snapshot to operation %d: %w", op.ID, err)
			}
		}

		return nil
	})
}
