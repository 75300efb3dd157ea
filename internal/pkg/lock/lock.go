package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

var ErrNotObtained = errors.New("lock not obtained")

// Locker hands out named mutual exclusion locks.
type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration) (Lock, error)
}

type Lock interface {
	// Refresh extends a held lock to ttl from now. It fails with
	// ErrNotObtained once the lock has expired or changed hands.
	Refresh(ctx context.Context, ttl time.Duration) error
	Release(ctx context.Context) error
}

// RedisLocker shares locks across instances through Redis.
type RedisLocker struct {
	client *redislock.Client
}

func NewRedisLocker(rdb *redis.Client) *RedisLocker {
	return &RedisLocker{client: redislock.New(rdb)}
}

func (l *RedisLocker) Obtain(ctx context.Context, key string, ttl time.Duration) (Lock, error) {
	lk, err := l.client.Obtain(ctx, key, ttl, nil)
	if err == redislock.ErrNotObtained {
		return nil, ErrNotObtained
	} else if err != nil {
		return nil, fmt.Errorf("failed to obtain lock %s: %w", key, err)
	}
	return &redisLock{lock: lk}, nil
}

type redisLock struct {
	lock *redislock.Lock
}

func (lk *redisLock) Refresh(ctx context.Context, ttl time.Duration) error {
	err := lk.lock.Refresh(ctx, ttl, nil)
	if err == redislock.ErrNotObtained {
		return ErrNotObtained
	} else if err != nil {
		return fmt.Errorf("failed to refresh lock %s: %w", lk.lock.Key(), err)
	}
	return nil
}

func (lk *redisLock) Release(ctx context.Context) error {
	return lk.lock.Release(ctx)
}

// LocalLocker is an in-process Locker for single instance deployments.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]time.Time
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]time.Time)}
}

func (l *LocalLocker) Obtain(_ context.Context, key string, ttl time.Duration) (Lock, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if exp, ok := l.held[key]; ok && now.Before(exp) {
		return nil, ErrNotObtained
	}
	exp := now.Add(ttl)
	l.held[key] = exp
	return &localLock{locker: l, key: key, exp: exp}, nil
}

type localLock struct {
	locker *LocalLocker
	key    string
	exp    time.Time
	once   sync.Once
}

func (lk *localLock) Refresh(_ context.Context, ttl time.Duration) error {
	lk.locker.mu.Lock()
	defer lk.locker.mu.Unlock()

	now := time.Now()
	exp, ok := lk.locker.held[lk.key]
	if !ok || !exp.Equal(lk.exp) || !now.Before(exp) {
		return ErrNotObtained
	}
	lk.exp = now.Add(ttl)
	lk.locker.held[lk.key] = lk.exp
	return nil
}

func (lk *localLock) Release(context.Context) error {
	lk.once.Do(func() {
		lk.locker.mu.Lock()
		defer lk.locker.mu.Unlock()
		// An expired lock may have been taken over; leave the new holder alone.
		if exp, ok := lk.locker.held[lk.key]; ok && exp.Equal(lk.exp) {
			delete(lk.locker.held, lk.key)
		}
	})
	return nil
}
