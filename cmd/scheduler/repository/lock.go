package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/planfab/scheduler/cmd/scheduler/models"
	"github.com/planfab/scheduler/common/db"
)

// LockRepository handles advisory schedule locks. These are the only
// mutable rows in the versioning subsystem; acquisition must run inside
// a transaction holding the per-schedule advisory lock so two callers
// cannot both pass the conflict check.
type LockRepository struct {
	db *db.DB
}

// NewLockRepository creates a new lock repository
func NewLockRepository(database *db.DB) *LockRepository {
	return &LockRepository{db: database}
}

// LockScheduleInTx serializes concurrent acquirers for one schedule
func (r *LockRepository) LockScheduleInTx(ctx context.Context, tx pgx.Tx, scheduleID int64) error {
	_, err := tx.Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtextextended('schedule_locks:' || $1::text, 0))`,
		scheduleID,
	)
	if err != nil {
		return fmt.Errorf("failed to acquire lock tx lock: %w", err)
	}
	return nil
}

// ListActiveInTx retrieves unexpired active locks for a schedule inside
// a transaction
func (r *LockRepository) ListActiveInTx(ctx context.Context, tx pgx.Tx, scheduleID int64, now time.Time) ([]*models.ScheduleLock, error) {
	rows, err := tx.Query(ctx, selectLockSQL+` WHERE schedule_id = $1 AND is_active AND expires_at > $2`, scheduleID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list active locks: %w", err)
	}
	defer rows.Close()

	return scanLocks(rows)
}

// ListActive retrieves unexpired active locks for a schedule
func (r *LockRepository) ListActive(ctx context.Context, scheduleID int64, now time.Time) ([]*models.ScheduleLock, error) {
	rows, err := r.db.Query(ctx, selectLockSQL+` WHERE schedule_id = $1 AND is_active AND expires_at > $2`, scheduleID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list active locks: %w", err)
	}
	defer rows.Close()

	return scanLocks(rows)
}

// CreateInTx inserts a new lock inside a transaction
func (r *LockRepository) CreateInTx(ctx context.Context, tx pgx.Tx, lock *models.ScheduleLock) error {
	query := `
		INSERT INTO schedule_locks (
			id, schedule_id, version_id, lock_type, locked_by, session_id,
			purpose, expected_version, actual_version, expires_at, is_active
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING acquired_at
	`

	err := tx.QueryRow(ctx, query,
		lock.ID,
		lock.ScheduleID,
		lock.VersionID,
		lock.LockType,
		lock.LockedBy,
		lock.SessionID,
		lock.Purpose,
		lock.ExpectedVersion,
		lock.ActualVersion,
		lock.ExpiresAt,
		lock.IsActive,
	).Scan(&lock.AcquiredAt)

	if err != nil {
		return fmt.Errorf("failed to create schedule lock: %w", err)
	}

	return nil
}

// Release deactivates a lock. Returns false if the lock was not active.
func (r *LockRepository) Release(ctx context.Context, lockID uuid.UUID) (bool, error) {
	result, err := r.db.Exec(ctx,
		`UPDATE schedule_locks SET is_active = FALSE WHERE id = $1 AND is_active`,
		lockID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to release lock: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// DeactivateExpired flips is_active off for every lock whose TTL has
// lapsed. Returns the number of swept locks.
func (r *LockRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.Exec(ctx,
		`UPDATE schedule_locks SET is_active = FALSE WHERE is_active AND expires_at < $1`,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate expired locks: %w", err)
	}

	return result.RowsAffected(), nil
}

const selectLockSQL = `
	SELECT id, schedule_id, version_id, lock_type, locked_by, session_id,
	       purpose, expected_version, actual_version, acquired_at, expires_at, is_active
	FROM schedule_locks`

func scanLocks(rows pgx.Rows) ([]*models.ScheduleLock, error) {
	var locks []*models.ScheduleLock
	for rows.Next() {
		lock := &models.ScheduleLock{}
		err := rows.Scan(
			&lock.ID,
			&lock.ScheduleID,
			&lock.VersionID,
			&lock.LockType,
			&lock.LockedBy,
			&lock.SessionID,
			&lock.Purpose,
			&lock.ExpectedVersion,
			&lock.ActualVersion,
			&lock.AcquiredAt,
			&lock.ExpiresAt,
			&lock.IsActive,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule lock: %w", err)
		}
		locks = append(locks, lock)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schedule locks: %w", err)
	}

	return locks, nil
}
