// Package lock serializes ledger commands per business unit.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"github.com/newdim001/biz-pro/internal/shared"
)

// ErrBusy indicates the lock could not be obtained before the deadline.
var ErrBusy = fmt.Errorf("lock: resource busy: %w", shared.ErrConflict)

// Release frees an acquired lock.
type Release func()

// Locker acquires named exclusive locks.
type Locker interface {
	Acquire(ctx context.Context, key string) (Release, error)
}

// RedisLocker holds locks in Redis so several processes share them.
type RedisLocker struct {
	client  *redislock.Client
	ttl     time.Duration
	backoff time.Duration
	retries int
}

// NewRedisLocker builds a RedisLocker. ttl bounds how long a crashed holder
// keeps the lock.
func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	backoff := 50 * time.Millisecond
	return &RedisLocker{
		client:  redislock.New(client),
		ttl:     ttl,
		backoff: backoff,
		retries: int(ttl / backoff),
	}
}

// Acquire obtains key, retrying until the lock frees, retries run out or ctx ends.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (Release, error) {
	held, err := l.client.Obtain(ctx, key, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(l.backoff), l.retries),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%w: %s", ErrBusy, key)
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrBusy, key, ctxErr)
		}
		return nil, fmt.Errorf("lock: obtain %s: %v: %w", key, err, shared.ErrPersistence)
	}
	return func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = held.Release(releaseCtx)
	}, nil
}

// LocalLocker is an in-process keyed mutex for single-instance deployments.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

// NewLocalLocker builds LocalLocker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{slots: make(map[string]*slot)}
}

// Acquire blocks until key is free or ctx ends.
func (l *LocalLocker) Acquire(ctx context.Context, key string) (Release, error) {
	l.mu.Lock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	l.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-s.ch
				l.unref(key, s)
			})
		}, nil
	case <-ctx.Done():
		l.unref(key, s)
		return nil, fmt.Errorf("%w: %s: %v", ErrBusy, key, ctx.Err())
	}
}

func (l *LocalLocker) unref(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

// Noop grants every lock immediately.
type Noop struct{}

// Acquire implements Locker.
func (Noop) Acquire(context.Context, string) (Release, error) {
	return func() {}, nil
}
