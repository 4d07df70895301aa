package models

import (
	"time"

	"github.com/google/uuid"
)

// LockType of an advisory schedule lock
type LockType string

const (
	LockRead      LockType = "read"
	LockWrite     LockType = "write"
	LockExclusive LockType = "exclusive"
)

// Valid reports whether t is a known lock type
func (t LockType) Valid() bool {
	switch t {
	case LockRead, LockWrite, LockExclusive:
		return true
	}
	return false
}

// ScheduleLock is an advisory, TTL-based reservation on a schedule.
// Callers are expected to honor it; the storage engine does not enforce
// it. A lock whose expiry has passed is treated as inactive everywhere
// even before the sweeper deactivates the row.
// Maps to: schedule_locks table
type ScheduleLock struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	ScheduleID      int64      `db:"schedule_id" json:"schedule_id"`
	VersionID       *uuid.UUID `db:"version_id" json:"version_id,omitempty"`
	LockType        LockType   `db:"lock_type" json:"lock_type"`
	LockedBy        int64      `db:"locked_by" json:"locked_by"`
	SessionID       string     `db:"session_id" json:"session_id"`
	Purpose         *string    `db:"purpose" json:"purpose,omitempty"`
	ExpectedVersion int        `db:"expected_version" json:"expected_version"`
	ActualVersion   int        `db:"actual_version" json:"actual_version"`
	AcquiredAt      time.Time  `db:"acquired_at" json:"acquired_at"`
	ExpiresAt       time.Time  `db:"expires_at" json:"expires_at"`
	IsActive        bool       `db:"is_active" json:"is_active"`
}

// Expired reports whether the lock's TTL has lapsed
func (l *ScheduleLock) Expired(now time.Time) bool {
	return now.After(l.ExpiresAt)
}
