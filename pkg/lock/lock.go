// Package lock provides the mutual-exclusion primitive guarding the
// persist-a-winner step of a draw round. The contract is the same whether the
// lock lives in process (single orchestrator) or in redis (several).
package lock

import (
	"context"
	"sync"
	"time"
)

const retryEvery = 50 * time.Millisecond

type Locker interface {
	// Acquire tries to take the lock for key until wait elapses. An acquired
	// lock expires after ttl so a crashed holder cannot wedge the round
	// forever. Returns false if the lock is still held by someone else when
	// the wait runs out.
	Acquire(ctx context.Context, key string, wait, ttl time.Duration) (bool, error)

	Release(ctx context.Context, key string) error
}

type inProcessLocker struct {
	mutex sync.Mutex
	held  map[string]time.Time
}

func NewInProcessLocker() *inProcessLocker {
	return &inProcessLocker{held: map[string]time.Time{}}
}

func (l *inProcessLocker) Acquire(
	ctx context.Context, key string, wait, ttl time.Duration,
) (bool, error) {
	deadline := time.Now().Add(wait)
	for {
		if l.tryAcquire(key, ttl) {
			return true, nil
		}

		if !time.Now().Before(deadline) {
			return false, nil
		}

		timer := time.NewTimer(retryEvery)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false, ctx.Err()
		case <-timer.C:
		}
	}
}

func (l *inProcessLocker) tryAcquire(key string, ttl time.Duration) bool {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if expiry, ok := l.held[key]; ok && time.Now().Before(expiry) {
		return false
	}

	l.held[key] = time.Now().Add(ttl)
	return true
}

func (l *inProcessLocker) Release(ctx context.Context, key string) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	delete(l.held, key)
	return nil
}
