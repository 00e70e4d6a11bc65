package redis

import (
	"context"
	"time"

	"github.com/redis/rueidis"

	"github.com/UMD-DRASTIC/drastic-trellis/internal/db"
)

// releaseScript deletes the lock key only while it still holds the caller's token.
const releaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then return redis.call("DEL", KEYS[1]) else return 0 end`

// AcquireLock runs SET key token NX PX ttl.
func (s *Store) AcquireLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	cmd := s.b().Set().Key(key).Value(token).Nx().PxMilliseconds(ttl.Milliseconds()).Build()
	err := s.do(ctx, cmd).Error()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return false, nil
		}
		return false, &db.Error{Op: db.OpSet, Err: err}
	}
	return true, nil
}

// ReleaseLock deletes key if its value still equals token.
func (s *Store) ReleaseLock(ctx context.Context, key, token string) (bool, error) {
	cmd := s.b().Eval().Script(releaseScript).Numkeys(1).Key(key).Arg(token).Build()
	n, err := s.do(ctx, cmd).AsInt64()
	if err != nil {
		return false, &db.Error{Op: db.OpEval, Err: err}
	}
	return n == 1, nil
}
