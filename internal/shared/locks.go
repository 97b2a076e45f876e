package shared

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bsm/redislock"
)

// ErrLockHeld indicates another worker owns the critical section.
var ErrLockHeld = errors.New("shared: lock held elsewhere")

// ReportLockKey builds redis keys guarding one vendor week of report generation.
func ReportLockKey(vendorID string, year, week int) string {
	return fmt.Sprintf("sellthru:%s:%d:W%02d:lock", strings.ToUpper(vendorID), year, week)
}

// Locker hands out short-lived redis locks.
type Locker struct {
	client *redislock.Client
	ttl    time.Duration
}

// NewLocker wraps a redis client. A non-positive ttl falls back to one minute.
func NewLocker(client redislock.RedisClient, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Locker{client: redislock.New(client), ttl: ttl}
}

// Acquire obtains key without retrying. The returned release func is safe to
// call once the work is done, even if the lock has already expired.
func (l *Locker) Acquire(ctx context.Context, key string) (func(context.Context) error, error) {
	if l == nil || l.client == nil {
		return nil, errors.New("shared: locker not initialised")
	}
	lock, err := l.client.Obtain(ctx, key, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%w: %s", ErrLockHeld, key)
	}
	if err != nil {
		return nil, fmt.Errorf("shared: obtain lock %s: %w", key, err)
	}
	return func(ctx context.Context) error {
		if err := lock.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			return err
		}
		return nil
	}, nil
}
