package models

import (
	"time"

	"github.com/google/uuid"
)

// RollbackType of a restore operation
type RollbackType string

const (
	RollbackFull RollbackType = "full"
)

// VersionRollback is the audit record of a restore. Rollback is
// forward-only: the restored content becomes a new version and history
// is never rewritten.
// Maps to: version_rollbacks table
type VersionRollback struct {
	ID                 uuid.UUID           `db:"id" json:"id"`
	ScheduleID         int64               `db:"schedule_id" json:"schedule_id"`
	FromVersionID      *uuid.UUID          `db:"from_version_id" json:"from_version_id,omitempty"`
	ToVersionID        uuid.UUID           `db:"to_version_id" json:"to_version_id"`
	RollbackReason     string              `db:"rollback_reason" json:"rollback_reason"`
	RollbackType       RollbackType        `db:"rollback_type" json:"rollback_type"`
	AffectedOperations []OperationSnapshot `db:"affected_operations" json:"affected_operations,omitempty"`
	PerformedBy        int64               `db:"performed_by" json:"performed_by"`
	Approved           bool                `db:"approved" json:"approved"`
	ApprovedBy         *int64              `db:"approved_by" json:"approved_by,omitempty"`
	ApprovedAt         *time.Time          `db:"approved_at" json:"approved_at,omitempty"`
	CreatedAt          time.Time           `db:"created_at" json:"created_at"`
}
