package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// All lock keys live under one keyspace so housekeeping locks never
// collide with the limiter counters sharing the same redis.
const lockKeyspace = "emberhollow:lock:"

// releaseIfOwner deletes the lock only when the stored token matches, so
// an expired lock that another replica re-acquired is never released out
// from under it.
const releaseIfOwner = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

// Locker is a SetNX lock with an owner token. The scheduler uses it to
// keep each housekeeping pass single-flight across replicas.
type Locker struct {
	client  *redis.Client
	release *redis.Script
}

func NewLocker(client *redis.Client) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{
		client:  client,
		release: redis.NewScript(releaseIfOwner),
	}
}

// TryLock attempts to take the named lock for at most ttl. The returned
// token identifies this holder and must be passed back to Release.
func (l *Locker) TryLock(ctx context.Context, name string, ttl time.Duration) (string, bool, error) {
	if l == nil || l.client == nil {
		return "", false, errors.New("lock client not configured")
	}
	if name == "" {
		return "", false, errors.New("lock name is empty")
	}
	if ttl <= 0 {
		return "", false, errors.New("lock ttl must be positive")
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, lockKeyspace+name, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

func (l *Locker) Release(ctx context.Context, name, token string) error {
	if l == nil || l.client == nil {
		return nil
	}
	if name == "" || token == "" {
		return nil
	}
	return l.release.Run(ctx, l.client, []string{lockKeyspace + name}, token).Err()
}
