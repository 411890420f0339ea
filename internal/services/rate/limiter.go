package rate

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// WindowStore is the redis-backed fixed-window counter surface.
type WindowStore interface {
	IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	WindowState(ctx context.Context, key string) (int64, time.Duration, error)
}

// Limiter throttles like attempts per user across two fixed windows. It is
// ambient anti-spam in front of the state machine and is unrelated to the
// per-pair cooldown.
type Limiter struct {
	store   WindowStore
	windows []window
}

type window struct {
	keyPrefix string
	span      time.Duration
	limit     int
}

func NewLimiter(store WindowStore, perMinute, per10Sec int) *Limiter {
	l := &Limiter{store: store}
	if perMinute > 0 {
		l.windows = append(l.windows, window{keyPrefix: "burst:likes:min:", span: time.Minute, limit: perMinute})
	}
	if per10Sec > 0 {
		l.windows = append(l.windows, window{keyPrefix: "burst:likes:10s:", span: 10 * time.Second, limit: per10Sec})
	}
	return l
}

// AllowLike consumes one attempt from every window. When any window is over
// its limit it returns allowed=false and the longest remaining TTL in whole
// seconds.
func (l *Limiter) AllowLike(ctx context.Context, userID int64) (int64, bool, error) {
	if userID <= 0 {
		return 0, false, fmt.Errorf("invalid user id")
	}
	if l.store == nil {
		return 0, false, fmt.Errorf("rate limiter store is nil")
	}

	var retryAfterSec int64
	for _, win := range l.windows {
		count, ttl, err := l.store.IncrementWindow(ctx, win.key(userID), win.span)
		if err != nil {
			return 0, false, err
		}
		if count > int64(win.limit) {
			retryAfterSec = max(retryAfterSec, ceilSeconds(ttl))
		}
	}

	if retryAfterSec > 0 {
		return retryAfterSec, false, nil
	}
	return 0, true, nil
}

// RetryAfterLike reports the current wait without consuming an attempt.
func (l *Limiter) RetryAfterLike(ctx context.Context, userID int64) (int64, error) {
	if userID <= 0 {
		return 0, fmt.Errorf("invalid user id")
	}
	if l.store == nil {
		return 0, fmt.Errorf("rate limiter store is nil")
	}

	var retryAfterSec int64
	for _, win := range l.windows {
		count, ttl, err := l.store.WindowState(ctx, win.key(userID))
		if err != nil {
			return 0, err
		}
		if count >= int64(win.limit) {
			retryAfterSec = max(retryAfterSec, ceilSeconds(ttl))
		}
	}

	return retryAfterSec, nil
}

func (w window) key(userID int64) string {
	return w.keyPrefix + strconv.FormatInt(userID, 10)
}

func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	sec := int64(d / time.Second)
	if d%time.Second != 0 {
		sec++
	}
	if sec <= 0 {
		sec = 1
	}
	return sec
}
