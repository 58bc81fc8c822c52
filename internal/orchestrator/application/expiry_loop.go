package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/ticketmesh/orderflow/pkg/idempotency"
)

// lockName is a single well-known key: only one Orchestrator replica
// at a time is allowed to run a sweep. The repository's
// SELECT ... FOR UPDATE SKIP LOCKED already keeps concurrent sweeps on
// disjoint rows; the lock additionally keeps replicas from sweeping in
// the same tick.
const lockName = "expiry-loop"

type ExpiryLoop struct {
	log       *slog.Logger
	repo      Repository
	lock      *idempotency.Lock
	interval  time.Duration
	batchSize int
	leaseTTL  time.Duration
}

func NewExpiryLoop(log *slog.Logger, repo Repository, lock *idempotency.Lock, interval time.Duration, batchSize int) *ExpiryLoop {
	return &ExpiryLoop{
		log:       log,
		repo:      repo,
		lock:      lock,
		interval:  interval,
		batchSize: batchSize,
		leaseTTL:  interval / 2,
	}
}

func (l *ExpiryLoop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			l.tick(ctx)
		}
	}
}

func (l *ExpiryLoop) tick(ctx context.Context) {
	acquired, err := l.lock.TryAcquire(ctx, lockName, l.leaseTTL)
	if err != nil {
		l.log.Error("expiry loop lock failed", "error", err)
		return
	}
	if !acquired {
		l.log.Debug("expiry loop skipped, another replica holds the lock")
		return
	}
	defer func() {
		if err := l.lock.Release(ctx, lockName); err != nil {
			l.log.Warn("expiry loop lock release failed", "error", err)
		}
	}()

	n, err := l.repo.SweepExpired(ctx, time.Now(), l.batchSize)
	if err != nil {
		l.log.Error("expiry sweep failed", "error", err)
		return
	}
	if n > 0 {
		l.log.Info("expiry sweep completed", "expired_count", n)
	}
}
