package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker guards a job against concurrent runs across instances.
type Locker interface {
	// TryLock returns ok=false without error when the lock is held elsewhere.
	// unlock reports a failed release; the key then lives until its TTL.
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func() error, ok bool, err error)
}

// releaseScript deletes the key only if it still holds our token, so an
// expired lock taken over by another instance is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisLocker struct {
	client *redis.Client
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

func LockKey(job string) string {
	return fmt.Sprintf("lock:job:%s", job)
}

func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func() error, bool, error) {
	token := uuid.New().String()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}

	unlock := func() error {
		// Use a fresh context: the caller's may already be cancelled.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err(); err != nil {
			return fmt.Errorf("failed to release lock %s: %w", key, err)
		}
		return nil
	}
	return unlock, true, nil
}
