package models

import (
	"time"

	"github.com/google/uuid"
)

// VersionSource identifies what triggered a snapshot
type VersionSource string

const (
	SourceManual       VersionSource = "manual"
	SourceOptimization VersionSource = "optimization"
	SourceImport       VersionSource = "import"
	SourceAutoSave     VersionSource = "auto-save"
)

// VersionStatus of a schedule version
type VersionStatus string

const (
	StatusActive VersionStatus = "active"
)

// VersionNone is the "no version exists yet" sentinel used by
// concurrency checks.
const VersionNone = 0

// ScheduleVersion is an immutable snapshot of one schedule at a point in
// time. Rows are append-only and never mutated after insert.
// Maps to: schedule_versions table
type ScheduleVersion struct {
	ID              uuid.UUID      `db:"id" json:"id"`
	ScheduleID      int64          `db:"schedule_id" json:"schedule_id"`
	VersionNumber   int            `db:"version_number" json:"version_number"`
	VersionTag      *string        `db:"version_tag" json:"version_tag,omitempty"`
	CreatedBy       int64          `db:"created_by" json:"created_by"`
	Source          VersionSource  `db:"source" json:"source"`
	Comment         *string        `db:"comment" json:"comment,omitempty"`
	SnapshotData    Snapshot       `db:"snapshot_data" json:"snapshot_data"`
	Checksum        string         `db:"checksum" json:"checksum"`
	Metrics         Metrics        `db:"metrics" json:"metrics"`
	ParentVersionID *uuid.UUID     `db:"parent_version_id" json:"parent_version_id,omitempty"`
	Status          VersionStatus  `db:"status" json:"status"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
}

// ScheduleVersionWithCreator joins the creator's display name for
// history views.
type ScheduleVersionWithCreator struct {
	ScheduleVersion
	CreatedByName string `json:"created_by_name"`
}

// Snapshot is a complete, self-contained capture of a schedule's
// operations, resources and derived dependencies.
type Snapshot struct {
	ScheduleID   int64               `json:"scheduleId"`
	Operations   []OperationSnapshot `json:"operations"`
	Resources    []ResourceSnapshot  `json:"resources"`
	Dependencies []Dependency        `json:"dependencies"`
	Metadata     SnapshotMetadata    `json:"metadata"`
}

// SnapshotMetadata describes the capture itself
type SnapshotMetadata struct {
	OperationCount int           `json:"operationCount"`
	Timestamp      time.Time     `json:"timestamp"`
	Source         VersionSource `json:"source"`
}

// OperationSnapshot is the per-operation slice of a snapshot
type OperationSnapshot struct {
	ID                int64      `json:"id"`
	JobID             int64      `json:"jobId"`
	Name              string     `json:"name"`
	ScheduledStart    *time.Time `json:"scheduledStart"`
	ScheduledEnd      *time.Time `json:"scheduledEnd"`
	ManuallyScheduled bool       `json:"manuallyScheduled"`
	ConstraintType    *string    `json:"constraintType"`
	ConstraintDate    *time.Time `json:"constraintDate"`
	SequenceNumber    int        `json:"sequenceNumber"`
	ResourceID        *string    `json:"resourceId"`
	DueDate           *time.Time `json:"dueDate"`
	Quantity          float64    `json:"quantity"`
	SetupCost         float64    `json:"setupCost"`
	RunCost           float64    `json:"runCost"`
	SetupHours        float64    `json:"setupHours"`
}

// ResourceSnapshot is a placeholder slot for the resource collaborator.
// Kept in the wire format for forward compatibility even while empty.
type ResourceSnapshot struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DependencyType of a derived inter-operation edge
type DependencyType string

const (
	FinishToStart DependencyType = "finish_to_start"
)

// Dependency is a derived edge between two operations of the same job.
// Dependencies are recomputed from job + sequence ordering on every
// capture; the sequence number is the source of truth, not this edge.
type Dependency struct {
	PredecessorID int64          `json:"predecessorId"`
	SuccessorID   int64          `json:"successorId"`
	Type          DependencyType `json:"type"`
	LagHours      float64        `json:"lagHours"`
}

// ConcurrencyCheck is the structured result of an optimistic concurrency
// check. A mismatch is a normal outcome, not an error.
type ConcurrencyCheck struct {
	IsValid         bool     `json:"is_valid"`
	CurrentVersion  int      `json:"current_version"`
	ExpectedVersion int      `json:"expected_version"`
	Conflicts       []string `json:"conflicts,omitempty"`
}
