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

type fakeVersionManager struct {
	byID    map[uuid.UUID]*models.ScheduleVersion
	latest  *models.ScheduleVersion
	created *models.ScheduleVersion

	createdSource   models.VersionSource
	createdComment  *string
	createdTag      *string
	createdSnapshot *models.Snapshot
}

func (f *fakeVersionManager) GetVersion(ctx context.Context, versionID uuid.UUID) (*models.ScheduleVersion, error) {
	return f.byID[versionID], nil
}

func (f *fakeVersionManager) GetLatestVersion(ctx context.Context, scheduleID int64) (*models.ScheduleVersion, error) {
	return f.latest, nil
}

func (f *fakeVersionManager) CreateVersionFromSnapshot(ctx context.Context, scheduleID, userID int64, source models.VersionSource, comment, tag *string, snapshot *models.Snapshot) (*models.ScheduleVersion, error) {
	f.createdSource = source
	f.createdComment = comment
	f.createdTag = tag
	f.createdSnapshot = snapshot
	return f.created, nil
}

type fakeSnapshotApplier struct {
	applied []models.OperationSnapshot
}

func (f *fakeSnapshotApplier) ApplySnapshot(ctx context.Context, operations []models.OperationSnapshot) error {
	f.applied = operations
	return nil
}

type fakeRollbackStore struct {
	records []*models.VersionRollback
}

func (f *fakeRollbackStore) Create(ctx context.Context, rollback *models.VersionRollback) error {
	f.records = append(f.records, rollback)
	return nil
}

func (f *fakeRollbackStore) ListBySchedule(ctx context.Context, scheduleID int64, limit int) ([]*models.VersionRollback, error) {
	return f.records, nil
}

func rollbackFixture(t *testing.T, expression string) (*RollbackService, *fakeVersionManager, *fakeSnapshotApplier, *fakeRollbackStore, *models.ScheduleVersion) {
	t.Helper()

	target := &models.ScheduleVersion{
		ID:            uuid.New(),
		ScheduleID:    1,
		VersionNumber: 3,
		SnapshotData: models.Snapshot{
			ScheduleID: 1,
			Operations: []models.OperationSnapshot{scheduledOp(1, ts(8, 0), ts(10, 0))},
		},
	}
	latest := &models.ScheduleVersion{
		ID:            uuid.New(),
		ScheduleID:    1,
		VersionNumber: 5,
	}

	mgr := &fakeVersionManager{
		byID:    map[uuid.UUID]*models.ScheduleVersion{target.ID: target},
		latest:  latest,
		created: &models.ScheduleVersion{ID: uuid.New(), ScheduleID: 1, VersionNumber: 6},
	}
	applier := &fakeSnapshotApplier{}
	store := &fakeRollbackStore{}

	policy, err := NewApprovalPolicy(expression)
	require.NoError(t, err)

	svc := NewRollbackService(mgr, applier, store, policy, logger.New("error", "json"))
	return svc, mgr, applier, store, target
}

func TestRollbackToVersion_TagsRestoredVersion(t *testing.T) {
	ctx := context.Background()
	svc, mgr, applier, store, target := rollbackFixture(t, "true")

	newVersion, err := svc.RollbackToVersion(ctx, 1, target.ID, 9, "wrong resource assignment")
	require.NoError(t, err)
	assert.Equal(t, 6, newVersion.VersionNumber)

	require.NotNil(t, mgr.createdTag)
	assert.Equal(t, "rollback-v3", *mgr.createdTag)
	require.NotNil(t, mgr.createdComment)
	assert.Equal(t, "Rollback to version 3: wrong resource assignment", *mgr.createdComment)
	assert.Equal(t, models.SourceManual, mgr.createdSource)
	require.NotNil(t, mgr.createdSnapshot)
	assert.Equal(t, target.SnapshotData, *mgr.createdSnapshot)

	assert.Equal(t, target.SnapshotData.Operations, applier.applied)

	require.Len(t, store.records, 1)
	record := store.records[0]
	require.NotNil(t, record.FromVersionID)
	assert.Equal(t, mgr.latest.ID, *record.FromVersionID)
	assert.Equal(t, target.ID, record.ToVersionID)
	assert.True(t, record.Approved)
	require.NotNil(t, record.ApprovedBy)
	assert.Equal(t, int64(9), *record.ApprovedBy)
}

func TestRollbackToVersion_UnknownTarget(t *testing.T) {
	ctx := context.Background()
	svc, _, _, store, _ := rollbackFixture(t, "true")

	_, err := svc.RollbackToVersion(ctx, 1, uuid.New(), 9, "restore")
	assert.ErrorIs(t, err, ErrVersionNotFound)
	assert.Empty(t, store.records)
}

func TestRollbackToVersion_WrongSchedule(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _, target := rollbackFixture(t, "true")

	_, err := svc.RollbackToVersion(ctx, 2, target.ID, 9, "restore")
	assert.ErrorIs(t, err, ErrVersionNotFound)
}

func TestRollbackToVersion_PolicyDenied(t *testing.T) {
	ctx := context.Background()
	svc, mgr, applier, store, target := rollbackFixture(t, "false")

	_, err := svc.RollbackToVersion(ctx, 1, target.ID, 9, "restore")
	assert.ErrorIs(t, err, ErrRollbackNotApproved)
	assert.Empty(t, store.records)
	assert.Nil(t, mgr.createdTag)
	assert.Nil(t, applier.applied)
}
