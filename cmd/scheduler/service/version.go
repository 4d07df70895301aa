package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/planfab/scheduler/cmd/scheduler/models"
	"github.com/planfab/scheduler/common/cache"
	"github.com/planfab/scheduler/common/config"
	"github.com/planfab/scheduler/common/logger"
	"github.com/planfab/scheduler/common/queue"
	commonredis "github.com/planfab/scheduler/common/redis"
)

// ErrVersionNotFound is returned when a referenced version does not exist
var ErrVersionNotFound = errors.New("version not found")

// TopicVersionCreated carries freshly committed version ids to the
// change tracker
const TopicVersionCreated = "version.created"

const versionCacheTTL = 10 * time.Minute

// VersionCreatedEvent is the queue payload published after a version
// commits
type VersionCreatedEvent struct {
	VersionID       uuid.UUID  `json:"version_id"`
	ScheduleID      int64      `json:"schedule_id"`
	ParentVersionID *uuid.UUID `json:"parent_version_id,omitempty"`
}

// txRunner runs a function inside a database transaction. *db.DB is the
// production implementation.
type txRunner interface {
	WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// versionStore is the persistence surface the version service depends
// on. *repository.VersionRepository is the production implementation.
type versionStore interface {
	LockScheduleInTx(ctx context.Context, tx pgx.Tx, scheduleID int64) error
	NextVersionNumberInTx(ctx context.Context, tx pgx.Tx, scheduleID int64) (int, error)
	GetLatestInTx(ctx context.Context, tx pgx.Tx, scheduleID int64) (*models.ScheduleVersion, error)
	CreateInTx(ctx context.Context, tx pgx.Tx, version *models.ScheduleVersion) error
	GetLatest(ctx context.Context, scheduleID int64) (*models.ScheduleVersion, error)
	GetByID(ctx context.Context, versionID uuid.UUID) (*models.ScheduleVersion, error)
	GetHistory(ctx context.Context, scheduleID int64, limit int) ([]*models.ScheduleVersionWithCreator, error)
}

// latestCache is the shared fast path for latest version numbers.
// *commonredis.Client is the production implementation.
type latestCache interface {
	Get(ctx context.Context, key string) (string, error)
	SetWithExpiry(ctx context.Context, key, value string, expiry time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// VersionService is the source of truth for schedule versions. Version
// numbering is serialized per schedule inside a transaction; everything
// downstream of the commit (change tracking, caches) is best effort.
type VersionService struct {
	db        txRunner
	versions  versionStore
	snapshots *SnapshotService
	queue     queue.Queue
	redis     latestCache
	cache     cache.Cache
	cfg       *config.Config
	log       *logger.Logger
}

// NewVersionService creates a new version service. redis and cache may
// be nil when those layers are disabled.
func NewVersionService(
	database txRunner,
	versions versionStore,
	snapshots *SnapshotService,
	q queue.Queue,
	redisClient *commonredis.Client,
	memCache cache.Cache,
	cfg *config.Config,
	log *logger.Logger,
) *VersionService {
	s := &VersionService{
		db:        database,
		versions:  versions,
		snapshots: snapshots,
		queue:     q,
		cache:     memCache,
		cfg:       cfg,
		log:       log,
	}
	if redisClient != nil {
		s.redis = redisClient
	}
	return s
}

// CreateVersion captures the schedule's current state as a new version
func (s *VersionService) CreateVersion(ctx context.Context, scheduleID, userID int64, source models.VersionSource, comment, tag *string) (*models.ScheduleVersion, error) {
	snapshot, err := s.snapshots.Build(ctx, scheduleID, source)
	if err != nil {
		return nil, err
	}

	return s.createFromSnapshot(ctx, scheduleID, userID, source, comment, tag, snapshot)
}

// CreateVersionFromSnapshot persists a caller-supplied snapshot as a new
// version. Used by rollback, where the restored content comes from a
// historical version rather than the live rows.
func (s *VersionService) CreateVersionFromSnapshot(ctx context.Context, scheduleID, userID int64, source models.VersionSource, comment, tag *string, snapshot *models.Snapshot) (*models.ScheduleVersion, error) {
	return s.createFromSnapshot(ctx, scheduleID, userID, source, comment, tag, snapshot)
}

func (s *VersionService) createFromSnapshot(ctx context.Context, scheduleID, userID int64, source models.VersionSource, comment, tag *string, snapshot *models.Snapshot) (*models.ScheduleVersion, error) {
	checksum, err := ComputeChecksum(snapshot)
	if err != nil {
		return nil, err
	}

	version := &models.ScheduleVersion{
		ID:           uuid.New(),
		ScheduleID:   scheduleID,
		CreatedBy:    userID,
		Source:       source,
		Comment:      comment,
		VersionTag:   tag,
		SnapshotData: *snapshot,
		Checksum:     checksum,
		Metrics:      ComputeMetrics(snapshot),
		Status:       models.StatusActive,
	}

	err = s.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := s.versions.LockScheduleInTx(ctx, tx, scheduleID); err != nil {
			return err
		}

		parent, err := s.versions.GetLatestInTx(ctx, tx, scheduleID)
		if err != nil {
			return err
		}
		if parent != nil {
			version.ParentVersionID = &parent.ID
		}

		number, err := s.versions.NextVersionNumberInTx(ctx, tx, scheduleID)
		if err != nil {
			return err
		}
		version.VersionNumber = number

		return s.versions.CreateInTx(ctx, tx, version)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create version for schedule %d: %w", scheduleID, err)
	}

	s.log.Info("version created",
		"schedule_id", scheduleID,
		"version_id", version.ID,
		"version_number", version.VersionNumber,
		"source", version.Source,
	)

	// Everything past the commit is best effort
	s.publishCreated(ctx, version)
	s.cacheLatestNumber(ctx, scheduleID, version.VersionNumber)

	return version, nil
}

func (s *VersionService) publishCreated(ctx context.Context, version *models.ScheduleVersion) {
	if s.queue == nil {
		return
	}

	event := VersionCreatedEvent{
		VersionID:       version.ID,
		ScheduleID:      version.ScheduleID,
		ParentVersionID: version.ParentVersionID,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		s.log.Error("failed to marshal version event", "version_id", version.ID, "error", err)
		return
	}

	if err := s.queue.Publish(ctx, TopicVersionCreated, version.ID.String(), payload); err != nil {
		s.log.Error("failed to publish version event", "version_id", version.ID, "error", err)
	}
}

// cacheLatestNumber keeps a write-through copy of the latest version
// number so concurrency checks can skip the database on the happy path.
// A failed write evicts the key: a missing entry falls back to the
// store, a stale one would be served as truth until it expires.
func (s *VersionService) cacheLatestNumber(ctx context.Context, scheduleID int64, number int) {
	if s.redis == nil {
		return
	}

	key := latestVersionKey(scheduleID)
	if err := s.redis.SetWithExpiry(ctx, key, strconv.Itoa(number), versionCacheTTL); err != nil {
		s.log.Warn("failed to cache latest version number", "schedule_id", scheduleID, "error", err)
		if delErr := s.redis.Delete(ctx, key); delErr != nil {
			s.log.Warn("failed to evict latest version key", "schedule_id", scheduleID, "error", delErr)
		}
	}
}

// GetLatestVersion returns the newest version for a schedule, or nil if
// no version exists yet
func (s *VersionService) GetLatestVersion(ctx context.Context, scheduleID int64) (*models.ScheduleVersion, error) {
	return s.versions.GetLatest(ctx, scheduleID)
}

// GetVersion returns one version by id, or nil if it does not exist.
// Versions are immutable after insert, so caching them is safe.
func (s *VersionService) GetVersion(ctx context.Context, versionID uuid.UUID) (*models.ScheduleVersion, error) {
	cacheKey := "version:" + versionID.String()

	if s.cache != nil {
		if data, ok, err := s.cache.Get(ctx, cacheKey); err == nil && ok {
			version := &models.ScheduleVersion{}
			if err := json.Unmarshal(data, version); err == nil {
				return version, nil
			}
		}
	}

	version, err := s.versions.GetByID(ctx, versionID)
	if err != nil || version == nil {
		return version, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(version); err == nil {
			if err := s.cache.Set(ctx, cacheKey, data, versionCacheTTL); err != nil {
				s.log.Warn("failed to cache version", "version_id", versionID, "error", err)
			}
		}
	}

	return version, nil
}

// GetVersionHistory returns versions newest first, joined with the
// creator's display name. limit <= 0 falls back to the configured
// default.
func (s *VersionService) GetVersionHistory(ctx context.Context, scheduleID int64, limit int) ([]*models.ScheduleVersionWithCreator, error) {
	if limit <= 0 {
		limit = s.cfg.Versioning.HistoryLimit
	}

	return s.versions.GetHistory(ctx, scheduleID, limit)
}

// CheckConcurrency reports whether a caller's expected version number
// still matches the latest stored one. A mismatch is an expected
// outcome, returned as data rather than an error.
func (s *VersionService) CheckConcurrency(ctx context.Context, scheduleID int64, expectedVersion int) (*models.ConcurrencyCheck, error) {
	current, err := s.currentVersionNumber(ctx, scheduleID)
	if err != nil {
		return nil, err
	}

	check := &models.ConcurrencyCheck{
		IsValid:         current == expectedVersion,
		CurrentVersion:  current,
		ExpectedVersion: expectedVersion,
	}

	if !check.IsValid {
		check.Conflicts = []string{
			fmt.Sprintf("schedule was modified: current version is %d, expected %d", current, expectedVersion),
		}
	}

	return check, nil
}

func (s *VersionService) currentVersionNumber(ctx context.Context, scheduleID int64) (int, error) {
	if s.redis != nil {
		value, err := s.redis.Get(ctx, latestVersionKey(scheduleID))
		if err == nil {
			if number, convErr := strconv.Atoi(value); convErr == nil {
				return number, nil
			}
		} else if !errors.Is(err, commonredis.ErrNotFound) {
			s.log.Warn("latest version cache read failed", "schedule_id", scheduleID, "error", err)
		}
	}

	latest, err := s.versions.GetLatest(ctx, scheduleID)
	if err != nil {
		return 0, err
	}
	if latest == nil {
		return models.VersionNone, nil
	}

	s.cacheLatestNumber(ctx, scheduleID, latest.VersionNumber)

	return latest.VersionNumber, nil
}

func latestVersionKey(scheduleID int64) string {
	return fmt.Sprintf("schedule:%d:latest_version", scheduleID)
}
