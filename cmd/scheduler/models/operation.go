package models

import "time"

// Operation is a live schedulable operation row. Owned by the scheduling
// side of the application; the versioning engine reads these when
// building snapshots and writes them back during rollback.
// Maps to: job_operations table
type Operation struct {
	ID                int64      `db:"id" json:"id"`
	ScheduleID        int64      `db:"schedule_id" json:"schedule_id"`
	JobID             int64      `db:"job_id" json:"job_id"`
	Name              string     `db:"name" json:"name"`
	ScheduledStart    *time.Time `db:"scheduled_start" json:"scheduled_start,omitempty"`
	ScheduledEnd      *time.Time `db:"scheduled_end" json:"scheduled_end,omitempty"`
	ManuallyScheduled bool       `db:"manually_scheduled" json:"manually_scheduled"`
	ConstraintType    *string    `db:"constraint_type" json:"constraint_type,omitempty"`
	ConstraintDate    *time.Time `db:"constraint_date" json:"constraint_date,omitempty"`
	SequenceNumber    int        `db:"sequence_number" json:"sequence_number"`
	ResourceID        *string    `db:"resource_id" json:"resource_id,omitempty"`
	DueDate           *time.Time `db:"due_date" json:"due_date,omitempty"`
	Quantity          float64    `db:"quantity" json:"quantity"`
	SetupCost         float64    `db:"setup_cost" json:"setup_cost"`
	RunCost           float64    `db:"run_cost" json:"run_cost"`
	SetupHours        float64    `db:"setup_hours" json:"setup_hours"`
}

// Snapshot converts the live row into its snapshot form
func (o *Operation) Snapshot() OperationSnapshot {
	return OperationSnapshot{
		ID:                o.ID,
		JobID:             o.JobID,
		Name:              o.Name,
		ScheduledStart:    o.ScheduledStart,
		ScheduledEnd:      o.ScheduledEnd,
		ManuallyScheduled: o.ManuallyScheduled,
		ConstraintType:    o.ConstraintType,
		ConstraintDate:    o.ConstraintDate,
		SequenceNumber:    o.SequenceNumber,
		ResourceID:        o.ResourceID,
		DueDate:           o.DueDate,
		Quantity:          o.Quantity,
		SetupCost:         o.SetupCost,
		RunCost:           o.RunCost,
		SetupHours:        o.SetupHours,
	}
}
