package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/planfab/scheduler/cmd/scheduler/models"
	"github.com/planfab/scheduler/common/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffSnapshots_ResourceMove(t *testing.T) {
	r1 := "R1"
	r2 := "R2"

	a := scheduledOp(1, ts(8, 0), ts(10, 0))
	a.Name = "A"
	a.ResourceID = &r1

	b1 := scheduledOp(2, ts(10, 0), ts(12, 0))
	b1.Name = "B"
	b1.ResourceID = &r1

	b2 := b1
	b2.ResourceID = &r2

	before := &models.Snapshot{ScheduleID: 1, Operations: []models.OperationSnapshot{a, b1}}
	after := &models.Snapshot{ScheduleID: 1, Operations: []models.OperationSnapshot{a, b2}}

	diff, err := DiffSnapshots(before, after)
	require.NoError(t, err)

	assert.Empty(t, diff.Operations.Added)
	assert.Empty(t, diff.Operations.Removed)
	require.Len(t, diff.Operations.Modified, 1)

	modified := diff.Operations.Modified[0]
	assert.Equal(t, int64(2), modified.ID)
	require.NotNil(t, modified.Before.ResourceID)
	require.NotNil(t, modified.After.ResourceID)
	assert.Equal(t, "R1", *modified.Before.ResourceID)
	assert.Equal(t, "R2", *modified.After.ResourceID)

	assert.Len(t, diff.Conflicts, 1)
}

func TestDiffSnapshots_AddedAndRemoved(t *testing.T) {
	a := scheduledOp(1, ts(8, 0), ts(10, 0))
	b := scheduledOp(2, ts(10, 0), ts(12, 0))
	c := scheduledOp(3, ts(12, 0), ts(14, 0))

	before := &models.Snapshot{ScheduleID: 1, Operations: []models.OperationSnapshot{a, b}}
	after := &models.Snapshot{ScheduleID: 1, Operations: []models.OperationSnapshot{b, c}}

	diff, err := DiffSnapshots(before, after)
	require.NoError(t, err)

	require.Len(t, diff.Operations.Added, 1)
	assert.Equal(t, int64(3), diff.Operations.Added[0].ID)
	require.Len(t, diff.Operations.Removed, 1)
	assert.Equal(t, int64(1), diff.Operations.Removed[0].ID)
	assert.Empty(t, diff.Operations.Modified)
	assert.Empty(t, diff.Conflicts)
}

func TestDiffSnapshots_IdenticalSnapshots(t *testing.T) {
	ops := []models.OperationSnapshot{
		scheduledOp(1, ts(8, 0), ts(10, 0)),
		scheduledOp(2, ts(10, 0), ts(12, 0)),
	}
	snapshot := &models.Snapshot{ScheduleID: 1, Operations: ops}

	diff, err := DiffSnapshots(snapshot, snapshot)
	require.NoError(t, err)

	assert.Empty(t, diff.Operations.Added)
	assert.Empty(t, diff.Operations.Removed)
	assert.Empty(t, diff.Operations.Modified)
}

func TestMetricsDelta_FieldWise(t *testing.T) {
	v1 := models.Metrics{Makespan: 10, OTIF: 80, ConstraintViolations: 2}
	v2 := models.Metrics{Makespan: 8, OTIF: 95, ConstraintViolations: 1}

	delta := v1.Delta(v2)

	assert.InDelta(t, -2, delta.Makespan, 1e-9)
	assert.InDelta(t, 15, delta.OTIF, 1e-9)
	assert.Equal(t, -1, delta.ConstraintViolations)
}

type fakeComparisonStore struct {
	saved []*models.VersionComparison
}

func (f *fakeComparisonStore) Create(ctx context.Context, comparison *models.VersionComparison) error {
	f.saved = append(f.saved, comparison)
	return nil
}

func TestCompareVersions_RecordsDiffComparison(t *testing.T) {
	ctx := context.Background()

	op := scheduledOp(1, ts(8, 0), ts(10, 0))
	moved := op
	moved.ResourceID = strPtr("R2")

	v1 := &models.ScheduleVersion{
		ID:           uuid.New(),
		ScheduleID:   1,
		SnapshotData: models.Snapshot{ScheduleID: 1, Operations: []models.OperationSnapshot{op}},
		Metrics:      models.Metrics{Makespan: 4},
	}
	v2 := &models.ScheduleVersion{
		ID:           uuid.New(),
		ScheduleID:   1,
		SnapshotData: models.Snapshot{ScheduleID: 1, Operations: []models.OperationSnapshot{moved}},
		Metrics:      models.Metrics{Makespan: 6},
	}

	mgr := &fakeVersionManager{byID: map[uuid.UUID]*models.ScheduleVersion{v1.ID: v1, v2.ID: v2}}
	store := &fakeComparisonStore{}
	svc := NewComparatorService(mgr, store, logger.New("error", "json"))

	comparison, err := svc.CompareVersions(ctx, v1.ID, v2.ID, 9)
	require.NoError(t, err)

	assert.Equal(t, models.ComparisonDiff, comparison.ComparisonType)
	assert.Equal(t, v1.ID, comparison.VersionID1)
	assert.Equal(t, v2.ID, comparison.VersionID2)
	assert.Equal(t, 1, comparison.ConflictCount)
	assert.Equal(t, int64(9), comparison.CreatedBy)
	assert.InDelta(t, 2, comparison.MetricsDelta.Makespan, 1e-9)

	require.Len(t, store.saved, 1)
	assert.Equal(t, comparison, store.saved[0])
}

func TestCompareVersions_MissingVersion(t *testing.T) {
	ctx := context.Background()

	mgr := &fakeVersionManager{byID: map[uuid.UUID]*models.ScheduleVersion{}}
	store := &fakeComparisonStore{}
	svc := NewComparatorService(mgr, store, logger.New("error", "json"))

	_, err := svc.CompareVersions(ctx, uuid.New(), uuid.New(), 9)
	assert.ErrorIs(t, err, ErrVersionNotFound)
	assert.Empty(t, store.saved)
}
