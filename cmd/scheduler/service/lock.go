package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/planfab/scheduler/cmd/scheduler/models"
	"github.com/planfab/scheduler/cmd/scheduler/repository"
	"github.com/planfab/scheduler/common/config"
	"github.com/planfab/scheduler/common/db"
	"github.com/planfab/scheduler/common/logger"
)

// ErrInvalidLockType is returned for lock types outside read/write/exclusive
var ErrInvalidLockType = errors.New("invalid lock type")

// LockService hands out advisory TTL locks on schedules. Locks prevent
// conflicts the Concurrency Arbiter would otherwise only detect after
// the fact. Acquisition is non-blocking: a conflict returns nil, not an
// error, and the caller retries or surfaces "in use".
type LockService struct {
	db       *db.DB
	locks    *repository.LockRepository
	versions *VersionService
	cfg      *config.Config
	log      *logger.Logger
}

// NewLockService creates a new lock service
func NewLockService(
	database *db.DB,
	locks *repository.LockRepository,
	versions *VersionService,
	cfg *config.Config,
	log *logger.Logger,
) *LockService {
	return &LockService{
		db:       database,
		locks:    locks,
		versions: versions,
		cfg:      cfg,
		log:      log,
	}
}

// AcquireLock attempts to take a lock on a schedule. Returns nil, nil
// when an active lock conflicts with the request. The conflict check
// and insert run in one transaction under a per-schedule advisory lock
// so two simultaneous acquirers cannot both slip past the check.
func (s *LockService) AcquireLock(ctx context.Context, scheduleID int64, versionID *uuid.UUID, userID int64, lockType models.LockType, sessionID string, purpose *string) (*models.ScheduleLock, error) {
	if !lockType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLockType, lockType)
	}

	currentVersion, err := s.versions.currentVersionNumber(ctx, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve current version: %w", err)
	}

	now := time.Now().UTC()
	lock := &models.ScheduleLock{
		ID:              uuid.New(),
		ScheduleID:      scheduleID,
		VersionID:       versionID,
		LockType:        lockType,
		LockedBy:        userID,
		SessionID:       sessionID,
		Purpose:         purpose,
		ExpectedVersion: currentVersion,
		ActualVersion:   currentVersion,
		ExpiresAt:       now.Add(s.cfg.Versioning.LockTTL),
		IsActive:        true,
	}

	var conflicted bool
	err = s.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := s.locks.LockScheduleInTx(ctx, tx, scheduleID); err != nil {
			return err
		}

		existing, err := s.locks.ListActiveInTx(ctx, tx, scheduleID, now)
		if err != nil {
			return err
		}

		for _, held := range existing {
			if conflicts(held.LockType, lockType) {
				conflicted = true
				return nil
			}
		}

		return s.locks.CreateInTx(ctx, tx, lock)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock for schedule %d: %w", scheduleID, err)
	}

	if conflicted {
		s.log.Debug("lock conflict",
			"schedule_id", scheduleID,
			"lock_type", lockType,
			"session_id", sessionID,
		)
		return nil, nil
	}

	s.log.Info("lock acquired",
		"schedule_id", scheduleID,
		"lock_id", lock.ID,
		"lock_type", lockType,
		"expires_at", lock.ExpiresAt,
	)

	return lock, nil
}

// ReleaseLock deactivates a lock. Returns false if the lock was already
// inactive or unknown.
func (s *LockService) ReleaseLock(ctx context.Context, lockID uuid.UUID) (bool, error) {
	released, err := s.locks.Release(ctx, lockID)
	if err != nil {
		return false, err
	}

	if released {
		s.log.Info("lock released", "lock_id", lockID)
	}

	return released, nil
}

// ListActiveLocks returns a schedule's unexpired active locks
func (s *LockService) ListActiveLocks(ctx context.Context, scheduleID int64) ([]*models.ScheduleLock, error) {
	return s.locks.ListActive(ctx, scheduleID, time.Now().UTC())
}

// CleanupExpiredLocks deactivates every lock past its TTL. Locks are
// never proactively expired, so this must run on a recurring schedule.
func (s *LockService) CleanupExpiredLocks(ctx context.Context) (int64, error) {
	swept, err := s.locks.DeactivateExpired(ctx, time.Now().UTC())
	if err != nil {
		return 0, err
	}

	if swept > 0 {
		s.log.Info("expired locks deactivated", "count", swept)
	}

	return swept, nil
}

// conflicts is the lock compatibility policy. Exclusive conflicts with
// everything in both directions, write conflicts only with write. Read
// neither blocks nor is blocked by write; that asymmetry is intentional
// and kept in this one function so it can be revisited without touching
// call sites.
func conflicts(existing, requested models.LockType) bool {
	if existing == models.LockExclusive || requested == models.LockExclusive {
		return true
	}
	return existing == models.LockWrite && requested == models.LockWrite
}
