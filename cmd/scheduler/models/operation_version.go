package models

import (
	"time"

	"github.com/google/uuid"
)

// ChangeType of a per-operation change record
type ChangeType string

const (
	ChangeCreated ChangeType = "created"
	ChangeUpdated ChangeType = "updated"
	ChangeDeleted ChangeType = "deleted"
)

// OperationVersion is a best-effort change record attached to a version.
// Write failures here must never invalidate the parent version.
// Maps to: operation_versions table
type OperationVersion struct {
	ID             uuid.UUID      `db:"id" json:"id"`
	VersionID      uuid.UUID      `db:"version_id" json:"version_id"`
	OperationID    int64          `db:"operation_id" json:"operation_id"`
	ChangeType     ChangeType     `db:"change_type" json:"change_type"`
	ChangedFields  []string       `db:"changed_fields" json:"changed_fields,omitempty"`
	PreviousValues map[string]any `db:"previous_values" json:"previous_values,omitempty"`
	NewValues      map[string]any `db:"new_values" json:"new_values,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
}
