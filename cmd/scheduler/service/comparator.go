package service

import (
	"context"
	"encoding/json"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/google/uuid"
	"github.com/planfab/scheduler/cmd/scheduler/models"
	"github.com/planfab/scheduler/common/logger"
)

// versionGetter resolves a version by id. *VersionService is the
// production implementation.
type versionGetter interface {
	GetVersion(ctx context.Context, versionID uuid.UUID) (*models.ScheduleVersion, error)
}

// comparisonStore persists computed comparisons
type comparisonStore interface {
	Create(ctx context.Context, comparison *models.VersionComparison) error
}

// ComparatorService computes and persists diffs between two versions
type ComparatorService struct {
	versions    versionGetter
	comparisons comparisonStore
	log         *logger.Logger
}

// NewComparatorService creates a new comparator service
func NewComparatorService(versions versionGetter, comparisons comparisonStore, log *logger.Logger) *ComparatorService {
	return &ComparatorService{
		versions:    versions,
		comparisons: comparisons,
		log:         log,
	}
}

// CompareVersions diffs two versions, persists the comparison and
// returns it. Fails if either version is missing.
func (s *ComparatorService) CompareVersions(ctx context.Context, versionID1, versionID2 uuid.UUID, userID int64) (*models.VersionComparison, error) {
	v1, err := s.versions.GetVersion(ctx, versionID1)
	if err != nil {
		return nil, err
	}
	if v1 == nil {
		return nil, fmt.Errorf("%w: %s", ErrVersionNotFound, versionID1)
	}

	v2, err := s.versions.GetVersion(ctx, versionID2)
	if err != nil {
		return nil, err
	}
	if v2 == nil {
		return nil, fmt.Errorf("%w: %s", ErrVersionNotFound, versionID2)
	}

	diff, err := DiffSnapshots(&v1.SnapshotData, &v2.SnapshotData)
	if err != nil {
		return nil, err
	}

	comparison := &models.VersionComparison{
		ID:             uuid.New(),
		VersionID1:     versionID1,
		VersionID2:     versionID2,
		ComparisonType: models.ComparisonDiff,
		Differences:    *diff,
		ConflictCount:  len(diff.Conflicts),
		MetricsDelta:   v1.Metrics.Delta(v2.Metrics),
		CreatedBy:      userID,
	}

	if err := s.comparisons.Create(ctx, comparison); err != nil {
		return nil, err
	}

	s.log.Info("versions compared",
		"version_id_1", versionID1,
		"version_id_2", versionID2,
		"added", len(diff.Operations.Added),
		"removed", len(diff.Operations.Removed),
		"modified", len(diff.Operations.Modified),
	)

	return comparison, nil
}

// DiffSnapshots computes the structural operation diff between two
// snapshots. An id present only in the second snapshot is added, only
// in the first removed, in both with differing content modified.
// Resources are carried as an empty bucket until that collaborator is
// wired.
func DiffSnapshots(before, after *models.Snapshot) (*models.VersionDiff, error) {
	beforeByID := make(map[int64]models.OperationSnapshot, len(before.Operations))
	for _, op := range before.Operations {
		beforeByID[op.ID] = op
	}

	diff := &models.VersionDiff{
		Operations: models.OperationDiff{
			Added:    []models.OperationSnapshot{},
			Removed:  []models.OperationSnapshot{},
			Modified: []models.ModifiedOperation{},
		},
		Resources: models.ResourceDiff{
			Added:    []models.ResourceSnapshot{},
			Removed:  []models.ResourceSnapshot{},
			Modified: []models.ResourceSnapshot{},
		},
		Conflicts: []string{},
	}

	for _, op := range after.Operations {
		prev, existed := beforeByID[op.ID]
		if !existed {
			diff.Operations.Added = append(diff.Operations.Added, op)
			continue
		}
		delete(beforeByID, op.ID)

		same, err := operationsEqual(prev, op)
		if err != nil {
			return nil, err
		}
		if same {
			continue
		}

		diff.Operations.Modified = append(diff.Operations.Modified, models.ModifiedOperation{
			ID:     op.ID,
			Before: prev,
			After:  op,
		})
		diff.Conflicts = append(diff.Conflicts,
			fmt.Sprintf("operation %d (%s) differs between versions", op.ID, op.Name))
	}

	for _, op := range before.Operations {
		if _, removed := beforeByID[op.ID]; removed {
			diff.Operations.Removed = append(diff.Operations.Removed, op)
		}
	}

	return diff, nil
}

func operationsEqual(a, b models.OperationSnapshot) (bool, error) {
	aJSON, err := json.Marshal(a)
	if err != nil {
		return false, fmt.Errorf("failed to marshal operation %d: %w", a.ID, err)
	}
	bJSON, err := json.Marshal(b)
	if err != nil {
		return false, fmt.Errorf("failed to marshal operation %d: %w", b.ID, err)
	}

	return jsonpatch.Equal(aJSON, bJSON), nil
}
