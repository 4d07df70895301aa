package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/planfab/scheduler/cmd/scheduler/models"
	"github.com/planfab/scheduler/cmd/scheduler/repository"
	"github.com/planfab/scheduler/common/logger"
)

// SnapshotService captures a schedule's full state at one instant.
// Building a snapshot has no side effects; it is a pure read + transform
// over the live operation rows.
type SnapshotService struct {
	operations *repository.OperationRepository
	log        *logger.Logger
}

// NewSnapshotService creates a new snapshot service
func NewSnapshotService(operations *repository.OperationRepository, log *logger.Logger) *SnapshotService {
	return &SnapshotService{
		operations: operations,
		log:        log,
	}
}

// Build captures the current state of a schedule
func (s *SnapshotService) Build(ctx context.Context, scheduleID int64, source models.VersionSource) (*models.Snapshot, error) {
	operations, err := s.operations.ListBySchedule(ctx, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("failed to load operations for snapshot: %w", err)
	}

	snapshots := make([]models.OperationSnapshot, 0, len(operations))
	for _, op := range operations {
		snapshots = append(snapshots, op.Snapshot())
	}

	snapshot := &models.Snapshot{
		ScheduleID: scheduleID,
		Operations: snapshots,
		// Resource collaborator not wired yet, slot kept for forward
		// compatibility
		Resources:    []models.ResourceSnapshot{},
		Dependencies: DeriveDependencies(snapshots),
		Metadata: models.SnapshotMetadata{
			OperationCount: len(snapshots),
			Timestamp:      time.Now().UTC(),
			Source:         source,
		},
	}

	s.log.Debug("snapshot built",
		"schedule_id", scheduleID,
		"operations", len(snapshots),
		"dependencies", len(snapshot.Dependencies),
	)

	return snapshot, nil
}

// DeriveDependencies recomputes the finish-to-start edges implied by
// job + sequence ordering. Within one job, the operation at sequence N
// precedes the operation at the next higher sequence. The sequence
// number stays the source of truth; the edge list is derived on every
// capture and never stored.
func DeriveDependencies(operations []models.OperationSnapshot) []models.Dependency {
	byJob := make(map[int64][]models.OperationSnapshot)
	for _, op := range operations {
		byJob[op.JobID] = append(byJob[op.JobID], op)
	}

	jobIDs := make([]int64, 0, len(byJob))
	for jobID := range byJob {
		jobIDs = append(jobIDs, jobID)
	}
	sort.Slice(jobIDs, func(i, j int) bool { return jobIDs[i] < jobIDs[j] })

	deps := []models.Dependency{}
	for _, jobID := range jobIDs {
		ops := byJob[jobID]
		sort.Slice(ops, func(i, j int) bool {
			if ops[i].SequenceNumber != ops[j].SequenceNumber {
				return ops[i].SequenceNumber < ops[j].SequenceNumber
			}
			return ops[i].ID < ops[j].ID
		})

		for i := 0; i < len(ops)-1; i++ {
			deps = append(deps, models.Dependency{
				PredecessorID: ops[i].ID,
				SuccessorID:   ops[i+1].ID,
				Type:          models.FinishToStart,
				LagHours:      0,
			})
		}
	}

	return deps
}
