package submitapplication

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultLockTTL = time.Minute

	lockKeyPrefix = "site:careers:submitting:"
)

// FormLock holds one in-flight submission per form instance.
type FormLock struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewFormLock(rdb redis.Cmdable, ttl time.Duration) *FormLock {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &FormLock{rdb: rdb, ttl: ttl}
}

// Acquire reports whether token was free and is now held by the caller.
func (l *FormLock) Acquire(ctx context.Context, token string) (bool, error) {
	ok, err := l.rdb.SetNX(ctx, lockKeyPrefix+token, 1, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("form lock SETNX: %w", err)
	}
	return ok, nil
}

func (l *FormLock) Release(ctx context.Context, token string) error {
	if err := l.rdb.Del(ctx, lockKeyPrefix+token).Err(); err != nil {
		return fmt.Errorf("form lock DEL: %w", err)
	}
	return nil
}
