// Package lease provides a Redis-backed per-resource lease so that events for
// the same resource are handled by one process at a time.
package lease

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/UMD-DRASTIC/drastic-trellis/internal/db"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/logger"
)

const keyPrefix = "drastic:lock:"

// store is the consumer interface for lease operations (ISP).
type store interface {
	AcquireLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, token string) (bool, error)
}

// Lease acquires expiring locks keyed by resource IRI.
type Lease struct {
	store store
	ttl   time.Duration
	poll  time.Duration
}

// New creates a lease manager. ttl bounds how long a crashed holder blocks others.
func New(s store, ttl time.Duration) *Lease {
	poll := ttl / 20
	if poll <= 0 || poll > 100*time.Millisecond {
		poll = 100 * time.Millisecond
	}
	return &Lease{store: s, ttl: ttl, poll: poll}
}

// Lock polls until the lease for key is taken or ctx is done.
func (l *Lease) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := keyPrefix + key
	token := uuid.NewString()

	for {
		ok, err := l.store.AcquireLock(ctx, redisKey, token, l.ttl)
		if err != nil {
			return nil, fmt.Errorf("lease %s: %w", key, err)
		}
		if ok {
			return l.releaser(ctx, redisKey, token), nil
		}

		t := time.NewTimer(l.poll)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, fmt.Errorf("lease %s: %w", key, errors.Join(db.ErrLockHeld, ctx.Err()))
		case <-t.C:
		}
	}
}

func (l *Lease) releaser(ctx context.Context, key, token string) func() {
	log := logger.FromContext(ctx)
	return func() {
		// The caller's ctx may already be cancelled; release must still run.
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		released, err := l.store.ReleaseLock(rctx, key, token)
		switch {
		case err != nil:
			log.Warn("lease release failed", zap.String("key", key), zap.Error(err))
		case !released:
			log.Warn("lease expired before release", zap.String("key", key), zap.Duration("ttl", l.ttl))
		}
	}
}
