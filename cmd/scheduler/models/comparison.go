package models

import (
	"time"

	"github.com/google/uuid"
)

// ComparisonDiff is the comparison type recorded for structural diffs
const ComparisonDiff = "diff"

// VersionComparison is a persisted diff between two versions.
// Maps to: version_comparisons table
type VersionComparison struct {
	ID             uuid.UUID    `db:"id" json:"id"`
	VersionID1     uuid.UUID    `db:"version_id_1" json:"version_id_1"`
	VersionID2     uuid.UUID    `db:"version_id_2" json:"version_id_2"`
	ComparisonType string       `db:"comparison_type" json:"comparison_type"`
	Differences    VersionDiff  `db:"differences" json:"differences"`
	ConflictCount  int          `db:"conflict_count" json:"conflict_count"`
	MetricsDelta   MetricsDelta `db:"metrics_delta" json:"metrics_delta"`
	CreatedBy      int64        `db:"created_by" json:"created_by"`
	CreatedAt      time.Time    `db:"created_at" json:"created_at"`
}

// VersionDiff holds the structural differences between two snapshots.
// Resources are reserved for future extension and stay empty for now.
type VersionDiff struct {
	Operations OperationDiff `json:"operations"`
	Resources  ResourceDiff  `json:"resources"`
	Conflicts  []string      `json:"conflicts"`
}

// OperationDiff buckets operation-level changes
type OperationDiff struct {
	Added    []OperationSnapshot `json:"added"`
	Removed  []OperationSnapshot `json:"removed"`
	Modified []ModifiedOperation `json:"modified"`
}

// ModifiedOperation keeps both sides of a changed operation
type ModifiedOperation struct {
	ID     int64             `json:"id"`
	Before OperationSnapshot `json:"before"`
	After  OperationSnapshot `json:"after"`
}

// ResourceDiff buckets resource-level changes (reserved)
type ResourceDiff struct {
	Added    []ResourceSnapshot `json:"added"`
	Removed  []ResourceSnapshot `json:"removed"`
	Modified []ResourceSnapshot `json:"modified"`
}
