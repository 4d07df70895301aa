package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/planfab/scheduler/cmd/scheduler/models"
	"github.com/planfab/scheduler/common/logger"
)

// ErrRollbackNotApproved is returned when the approval policy rejects a
// rollback
var ErrRollbackNotApproved = errors.New("rollback not approved by policy")

// versionManager is the version surface the rollback service depends
// on. *VersionService is the production implementation.
type versionManager interface {
	GetVersion(ctx context.Context, versionID uuid.UUID) (*models.ScheduleVersion, error)
	GetLatestVersion(ctx context.Context, scheduleID int64) (*models.ScheduleVersion, error)
	CreateVersionFromSnapshot(ctx context.Context, scheduleID, userID int64, source models.VersionSource, comment, tag *string, snapshot *models.Snapshot) (*models.ScheduleVersion, error)
}

// snapshotApplier rewrites live operation rows from snapshot content
type snapshotApplier interface {
	ApplySnapshot(ctx context.Context, operations []models.OperationSnapshot) error
}

// rollbackStore persists rollback audit records
type rollbackStore interface {
	Create(ctx context.Context, rollback *models.VersionRollback) error
	ListBySchedule(ctx context.Context, scheduleID int64, limit int) ([]*models.VersionRollback, error)
}

// RollbackService restores a schedule to a prior version's content.
// Rollback is forward-only: the restored content becomes a brand-new
// version and history is never truncated or rewritten.
type RollbackService struct {
	versions   versionManager
	operations snapshotApplier
	rollbacks  rollbackStore
	policy     *ApprovalPolicy
	log        *logger.Logger
}

// NewRollbackService creates a new rollback service
func NewRollbackService(
	versions versionManager,
	operations snapshotApplier,
	rollbacks rollbackStore,
	policy *ApprovalPolicy,
	log *logger.Logger,
) *RollbackService {
	return &RollbackService{
		versions:   versions,
		operations: operations,
		rollbacks:  rollbacks,
		policy:     policy,
		log:        log,
	}
}

// RollbackToVersion restores a schedule to a target version. The target
// version's snapshot becomes the content of a new version, the audit
// record links the pre-rollback latest to the target, and the live
// operation rows are rewritten to match.
func (s *RollbackService) RollbackToVersion(ctx context.Context, scheduleID int64, targetVersionID uuid.UUID, userID int64, reason string) (*models.ScheduleVersion, error) {
	target, err := s.versions.GetVersion(ctx, targetVersionID)
	if err != nil {
		return nil, err
	}
	if target == nil || target.ScheduleID != scheduleID {
		return nil, fmt.Errorf("%w: %s", ErrVersionNotFound, targetVersionID)
	}

	current, err := s.versions.GetLatestVersion(ctx, scheduleID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	record := &models.VersionRollback{
		ID:                 uuid.New(),
		ScheduleID:         scheduleID,
		ToVersionID:        target.ID,
		RollbackReason:     reason,
		RollbackType:       models.RollbackFull,
		AffectedOperations: target.SnapshotData.Operations,
		PerformedBy:        userID,
	}
	if current != nil {
		record.FromVersionID = &current.ID
	}

	approved, err := s.policy.Approve(record, target.Metrics)
	if err != nil {
		return nil, err
	}
	if !approved {
		return nil, fmt.Errorf("%w: schedule %d to version %d", ErrRollbackNotApproved, scheduleID, target.VersionNumber)
	}

	record.Approved = true
	record.ApprovedBy = &userID
	record.ApprovedAt = &now

	if err := s.rollbacks.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to record rollback: %w", err)
	}

	comment := fmt.Sprintf("Rollback to version %d: %s", target.VersionNumber, reason)
	tag := fmt.Sprintf("rollback-v%d", target.VersionNumber)
	snapshot := target.SnapshotData

	newVersion, err := s.versions.CreateVersionFromSnapshot(ctx, scheduleID, userID, models.SourceManual, &comment, &tag, &snapshot)
	if err != nil {
		return nil, err
	}

	if err := s.operations.ApplySnapshot(ctx, target.SnapshotData.Operations); err != nil {
		return nil, fmt.Errorf("failed to apply snapshot to live operations: %w", err)
	}

	s.log.Info("schedule rolled back",
		"schedule_id", scheduleID,
		"target_version", target.VersionNumber,
		"new_version", newVersion.VersionNumber,
		"performed_by", userID,
	)

	return newVersion, nil
}

// GetRollbackHistory returns a schedule's rollback audit records,
// newest first
func (s *RollbackService) GetRollbackHistory(ctx context.Context, scheduleID int64, limit int) ([]*models.VersionRollback, error) {
	return s.rollbacks.ListBySchedule(ctx, scheduleID, limit)
}
