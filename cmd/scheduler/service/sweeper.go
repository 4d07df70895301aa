package service

import (
	"context"
	"time"

	"github.com/planfab/scheduler/common/config"
	"github.com/planfab/scheduler/common/logger"
	commonredis "github.com/planfab/scheduler/common/redis"
)

const sweeperLeaderKey = "scheduler:lock_sweeper:leader"

// LockSweeper periodically deactivates expired locks. With Redis
// available, a SetNX leader key keeps multiple replicas from sweeping
// at the same time; without it every instance sweeps, which is safe but
// redundant.
type LockSweeper struct {
	locks *LockService
	redis *commonredis.Client
	cfg   *config.Config
	log   *logger.Logger
}

// NewLockSweeper creates a new lock sweeper. redisClient may be nil.
func NewLockSweeper(locks *LockService, redisClient *commonredis.Client, cfg *config.Config, log *logger.Logger) *LockSweeper {
	return &LockSweeper{
		locks: locks,
		redis: redisClient,
		cfg:   cfg,
		log:   log,
	}
}

// Run sweeps on the configured interval until ctx is done
func (s *LockSweeper) Run(ctx context.Context) {
	interval := s.cfg.Versioning.LockSweepInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Info("lock sweeper started", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			s.log.Info("lock sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *LockSweeper) sweep(ctx context.Context) {
	if !s.acquireLeadership(ctx) {
		return
	}

	if _, err := s.locks.CleanupExpiredLocks(ctx); err != nil {
		s.log.Error("lock sweep failed", "error", err)
	}
}

func (s *LockSweeper) acquireLeadership(ctx context.Context) bool {
	if s.redis == nil {
		return true
	}

	// Lease slightly shorter than the interval so leadership rotates
	// even if a leader dies mid-cycle
	lease := s.cfg.Versioning.LockSweepInterval - time.Second
	if lease <= 0 {
		lease = s.cfg.Versioning.LockSweepInterval
	}

	ok, err := s.redis.SetNX(ctx, sweeperLeaderKey, time.Now().UTC().Format(time.RFC3339), lease)
	if err != nil {
		s.log.Warn("sweeper leader election failed, sweeping anyway", "error", err)
		return true
	}

	return ok
}
