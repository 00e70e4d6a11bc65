// Package visited records which resources a crawl has already emitted.
package visited

import (
	"context"
	"fmt"
	"time"
)

const keyPrefix = "drastic:crawl:"

// store is the consumer interface for visited-set operations (ISP).
type store interface {
	SAdd(ctx context.Context, key, member string) (bool, error)
	SRem(ctx context.Context, key, member string) error
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// Set is a per-crawl visited set stored as a Redis SET with a TTL.
type Set struct {
	store store
	ttl   time.Duration
}

// New creates a visited set. ttl bounds how long a finished crawl's set lingers.
func New(s store, ttl time.Duration) *Set {
	return &Set{store: s, ttl: ttl}
}

// FirstVisit marks iri as visited within crawlID and reports whether this
// call was the first to do so.
func (s *Set) FirstVisit(ctx context.Context, crawlID, iri string) (bool, error) {
	key := keyPrefix + crawlID
	added, err := s.store.SAdd(ctx, key, iri)
	if err != nil {
		return false, fmt.Errorf("visited SADD %s: %w", key, err)
	}
	if added {
		// Set TTL only once per crawl so the window is measured from the first visit.
		if err := s.store.Expire(ctx, key, s.ttl, true); err != nil {
			return false, fmt.Errorf("visited EXPIRE %s: %w", key, err)
		}
	}
	return added, nil
}

// Forget removes iri from the crawl so a redelivered request visits it again.
func (s *Set) Forget(ctx context.Context, crawlID, iri string) error {
	key := keyPrefix + crawlID
	if err := s.store.SRem(ctx, key, iri); err != nil {
		return fmt.Errorf("visited SREM %s: %w", key, err)
	}
	return nil
}
