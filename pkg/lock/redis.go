package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync"
	"github.com/rafflelive/backend/pkg/xredis"
)

type redisLocker struct {
	redisClient xredis.Client

	// token held per key so Release cannot delete a lock this instance no
	// longer owns.
	tokens *xsync.MapOf[string, string]
}

func NewRedisLocker(redisClient xredis.Client) *redisLocker {
	return &redisLocker{
		redisClient: redisClient,
		tokens:      xsync.NewMapOf[string](),
	}
}

func (l *redisLocker) Acquire(
	ctx context.Context, key string, wait, ttl time.Duration,
) (bool, error) {
	token := uuid.NewString()
	deadline := time.Now().Add(wait)
	for {
		ok, err := l.redisClient.SetNX(ctx, key, token, ttl)
		if err != nil {
			return false, err
		}

		if ok {
			l.tokens.Store(key, token)
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

func (l *redisLocker) Release(ctx context.Context, key string) error {
	token, ok := l.tokens.LoadAndDelete(key)
	if !ok {
		return nil
	}

	return l.redisClient.DelIfValue(ctx, key, token)
}
