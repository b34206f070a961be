package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const lockKeyPrefix = "lock:"

// ErrLockHeld is returned when the lock is still held by someone else once
// the caller's context is done.
var ErrLockHeld = errors.New("lock held by another owner")

// releaseScript deletes the lock only if it still carries our token, so a
// holder whose TTL expired cannot release a lock taken over by someone else.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LockStore handles distributed locking in Redis. Locks are SETNX keys with
// a TTL holding a random owner token.
type LockStore struct {
	client     *redis.Client
	ttl        time.Duration
	retryDelay time.Duration
}

// NewLockStore creates a new LockStore. ttl bounds how long a crashed holder
// can keep a key locked.
func NewLockStore(client *redis.Client, ttl time.Duration) *LockStore {
	return &LockStore{
		client:     client,
		ttl:        ttl,
		retryDelay: 25 * time.Millisecond,
	}
}

// Acquire attempts to take the lock for key once. It returns the owner token
// on success and an empty token if the lock is already held.
func (s *LockStore) Acquire(ctx context.Context, key string) (string, error) {
	token := uuid.NewString()

	ok, err := s.client.SetNX(ctx, lockKeyPrefix+key, token, s.ttl).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	return token, nil
}

// Release releases the lock for key if token still owns it.
func (s *LockStore) Release(ctx context.Context, key, token string) error {
	return releaseScript.Run(ctx, s.client, []string{lockKeyPrefix + key}, token).Err()
}

// Lock blocks until the lock for key is taken or ctx is done, polling at a
// fixed interval.
func (s *LockStore) Lock(ctx context.Context, key string) (func(), error) {
	ticker := time.NewTicker(s.retryDelay)
	defer ticker.Stop()

	for {
		token, err := s.Acquire(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if token != "" {
			return func() {
				// The request context may already be done.
				ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
				defer cancel()
				_ = s.Release(ctx, key, token)
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s", ErrLockHeld, key)
		case <-ticker.C:
		}
	}
}
