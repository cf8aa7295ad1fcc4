package cache

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

var ErrLockNotObtained = errors.New("lock not obtained")

// Release frees a lock obtained from a Locker.
type Release func(ctx context.Context) error

type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration) (Release, error)
}

type redisLocker struct {
	client *redislock.Client
	retry  redislock.RetryStrategy
}

// NewRedisLocker waits up to roughly wait for a held lock before giving up.
func NewRedisLocker(rdb *redis.Client, wait time.Duration) Locker {
	step := 25 * time.Millisecond
	attempts := int(wait / step)
	if attempts < 1 {
		attempts = 1
	}
	return &redisLocker{
		client: redislock.New(rdb),
		retry:  redislock.LimitRetry(redislock.LinearBackoff(step), attempts),
	}
}

func (l *redisLocker) Obtain(ctx context.Context, key string, ttl time.Duration) (Release, error) {
	lock, err := l.client.Obtain(ctx, key, ttl, &redislock.Options{RetryStrategy: l.retry})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrLockNotObtained
	}
	if err != nil {
		return nil, err
	}
	return lock.Release, nil
}

// NoopLocker is used when redis is not configured; the database still serializes writers.
type NoopLocker struct{}

func (NoopLocker) Obtain(context.Context, string, time.Duration) (Release, error) {
	return func(context.Context) error { return nil }, nil
}
