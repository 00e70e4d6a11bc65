package db

import (
	"context"
	"time"
)

// Store is the coordination store facade combining all sub-interfaces.
type Store interface {
	Pinger
	Locker
	SetStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Locker provides token-owned expiring locks.
type Locker interface {
	// AcquireLock sets key to token only if key is absent. Reports whether
	// the lock was taken.
	AcquireLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	// ReleaseLock deletes key only if it still holds token. Reports whether
	// the key was deleted.
	ReleaseLock(ctx context.Context, key, token string) (bool, error)
}

// SetStore provides set membership operations.
type SetStore interface {
	// SAdd adds member to the set at key. Reports whether member was new.
	SAdd(ctx context.Context, key, member string) (bool, error)
	// SRem removes member from the set at key.
	SRem(ctx context.Context, key, member string) error
	// Expire sets TTL on a key. When nx=true, only if the key has no expiry yet.
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
	Del(ctx context.Context, key string) error
}
