package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/planfab/scheduler/cmd/scheduler/models"
	"github.com/planfab/scheduler/common/config"
	"github.com/planfab/scheduler/common/logger"
	commonredis "github.com/planfab/scheduler/common/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return fn(nil)
}

type fakeVersionStore struct {
	versions []*models.ScheduleVersion
}

func (f *fakeVersionStore) latest(scheduleID int64) *models.ScheduleVersion {
	var latest *models.ScheduleVersion
	for _, v := range f.versions {
		if v.ScheduleID != scheduleID {
			continue
		}
		if latest == nil || v.VersionNumber > latest.VersionNumber {
			latest = v
		}
	}
	return latest
}

func (f *fakeVersionStore) LockScheduleInTx(ctx context.Context, tx pgx.Tx, scheduleID int64) error {
	return nil
}

func (f *fakeVersionStore) NextVersionNumberInTx(ctx context.Context, tx pgx.Tx, scheduleID int64) (int, error) {
	if latest := f.latest(scheduleID); latest != nil {
		return latest.VersionNumber + 1, nil
	}
	return 1, nil
}

func (f *fakeVersionStore) GetLatestInTx(ctx context.Context, tx pgx.Tx, scheduleID int64) (*models.ScheduleVersion, error) {
	return f.latest(scheduleID), nil
}

func (f *fakeVersionStore) CreateInTx(ctx context.Context, tx pgx.Tx, version *models.ScheduleVersion) error {
	f.versions = append(f.versions, version)
	return nil
}

func (f *fakeVersionStore) GetLatest(ctx context.Context, scheduleID int64) (*models.ScheduleVersion, error) {
	return f.latest(scheduleID), nil
}

func (f *fakeVersionStore) GetByID(ctx context.Context, versionID uuid.UUID) (*models.ScheduleVersion, error) {
	for _, v := range f.versions {
		if v.ID == versionID {
			return v, nil
		}
	}
	return nil, nil
}

func (f *fakeVersionStore) GetHistory(ctx context.Context, scheduleID int64, limit int) ([]*models.ScheduleVersionWithCreator, error) {
	return nil, nil
}

type fakeLatestCache struct {
	values  map[string]string
	failSet bool
}

func (f *fakeLatestCache) Get(ctx context.Context, key string) (string, error) {
	value, ok := f.values[key]
	if !ok {
		return "", commonredis.ErrNotFound
	}
	return value, nil
}

func (f *fakeLatestCache) SetWithExpiry(ctx context.Context, key, value string, expiry time.Duration) error {
	if f.failSet {
		return errors.New("connection refused")
	}
	f.values[key] = value
	return nil
}

func (f *fakeLatestCache) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.values, key)
	}
	return nil
}

func newTestVersionService(store *fakeVersionStore, redis *fakeLatestCache) *VersionService {
	svc := &VersionService{
		db:       fakeTxRunner{},
		versions: store,
		cfg:      &config.Config{Versioning: config.VersioningConfig{HistoryLimit: 50}},
		log:      logger.New("error", "json"),
	}
	if redis != nil {
		svc.redis = redis
	}
	return svc
}

func testSnapshot(scheduleID int64) *models.Snapshot {
	return &models.Snapshot{
		ScheduleID: scheduleID,
		Operations: []models.OperationSnapshot{scheduledOp(1, ts(8, 0), ts(10, 0))},
	}
}

func TestCreateVersionFromSnapshot_SequentialNumbering(t *testing.T) {
	ctx := context.Background()
	store := &fakeVersionStore{}
	svc := newTestVersionService(store, nil)

	v1, err := svc.CreateVersionFromSnapshot(ctx, 1, 7, models.SourceManual, nil, nil, testSnapshot(1))
	require.NoError(t, err)
	assert.Equal(t, 1, v1.VersionNumber)
	assert.Nil(t, v1.ParentVersionID)

	v2, err := svc.CreateVersionFromSnapshot(ctx, 1, 7, models.SourceManual, nil, nil, testSnapshot(1))
	require.NoError(t, err)
	assert.Equal(t, 2, v2.VersionNumber)
	require.NotNil(t, v2.ParentVersionID)
	assert.Equal(t, v1.ID, *v2.ParentVersionID)

	v3, err := svc.CreateVersionFromSnapshot(ctx, 1, 7, models.SourceOptimization, nil, nil, testSnapshot(1))
	require.NoError(t, err)
	assert.Equal(t, 3, v3.VersionNumber)
	require.NotNil(t, v3.ParentVersionID)
	assert.Equal(t, v2.ID, *v3.ParentVersionID)

	// Another schedule numbers independently
	other, err := svc.CreateVersionFromSnapshot(ctx, 2, 7, models.SourceManual, nil, nil, testSnapshot(2))
	require.NoError(t, err)
	assert.Equal(t, 1, other.VersionNumber)
}

func TestCheckConcurrency_StaleExpectedVersion(t *testing.T) {
	ctx := context.Background()
	store := &fakeVersionStore{}
	svc := newTestVersionService(store, nil)

	_, err := svc.CreateVersionFromSnapshot(ctx, 1, 7, models.SourceManual, nil, nil, testSnapshot(1))
	require.NoError(t, err)
	_, err = svc.CreateVersionFromSnapshot(ctx, 1, 7, models.SourceManual, nil, nil, testSnapshot(1))
	require.NoError(t, err)

	check, err := svc.CheckConcurrency(ctx, 1, 1)
	require.NoError(t, err)
	assert.False(t, check.IsValid)
	assert.Equal(t, 2, check.CurrentVersion)
	assert.Equal(t, 1, check.ExpectedVersion)
	require.Len(t, check.Conflicts, 1)
	assert.Contains(t, check.Conflicts[0], "current version is 2")
}

func TestCheckConcurrency_MatchingVersion(t *testing.T) {
	ctx := context.Background()
	store := &fakeVersionStore{}
	svc := newTestVersionService(store, nil)

	_, err := svc.CreateVersionFromSnapshot(ctx, 1, 7, models.SourceManual, nil, nil, testSnapshot(1))
	require.NoError(t, err)
	_, err = svc.CreateVersionFromSnapshot(ctx, 1, 7, models.SourceManual, nil, nil, testSnapshot(1))
	require.NoError(t, err)

	check, err := svc.CheckConcurrency(ctx, 1, 2)
	require.NoError(t, err)
	assert.True(t, check.IsValid)
	assert.Equal(t, 2, check.CurrentVersion)
	assert.Empty(t, check.Conflicts)
}

func TestCheckConcurrency_NoVersionsYet(t *testing.T) {
	ctx := context.Background()
	svc := newTestVersionService(&fakeVersionStore{}, nil)

	check, err := svc.CheckConcurrency(ctx, 1, models.VersionNone)
	require.NoError(t, err)
	assert.True(t, check.IsValid)
	assert.Equal(t, models.VersionNone, check.CurrentVersion)

	check, err = svc.CheckConcurrency(ctx, 1, 1)
	require.NoError(t, err)
	assert.False(t, check.IsValid)
	assert.Equal(t, models.VersionNone, check.CurrentVersion)
}

func TestCheckConcurrency_CachedFastPath(t *testing.T) {
	ctx := context.Background()
	redis := &fakeLatestCache{values: map[string]string{
		latestVersionKey(1): "5",
	}}
	svc := newTestVersionService(&fakeVersionStore{}, redis)

	check, err := svc.CheckConcurrency(ctx, 1, 5)
	require.NoError(t, err)
	assert.True(t, check.IsValid)
	assert.Equal(t, 5, check.CurrentVersion)
}

func TestCheckConcurrency_EvictsCacheOnWriteFailure(t *testing.T) {
	ctx := context.Background()
	store := &fakeVersionStore{}
	redis := &fakeLatestCache{values: map[string]string{}}
	svc := newTestVersionService(store, redis)

	_, err := svc.CreateVersionFromSnapshot(ctx, 1, 7, models.SourceManual, nil, nil, testSnapshot(1))
	require.NoError(t, err)
	assert.Equal(t, "1", redis.values[latestVersionKey(1)])

	// A failed write-through must not leave the previous number behind
	redis.failSet = true
	_, err = svc.CreateVersionFromSnapshot(ctx, 1, 7, models.SourceManual, nil, nil, testSnapshot(1))
	require.NoError(t, err)
	_, cached := redis.values[latestVersionKey(1)]
	assert.False(t, cached)

	check, err := svc.CheckConcurrency(ctx, 1, 2)
	require.NoError(t, err)
	assert.True(t, check.IsValid)
	assert.Equal(t, 2, check.CurrentVersion)
}
