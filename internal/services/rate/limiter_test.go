package rate

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	redrepo "github.com/b0ho/glimpse-backend/internal/repo/redis"
)

func newLimiter(t *testing.T, perMinute, per10Sec int) (*Limiter, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewLimiter(redrepo.NewRateRepo(client), perMinute, per10Sec), mr
}

func TestLimiterBlocksWhenWindowFills(t *testing.T) {
	cases := []struct {
		name      string
		perMinute int
		per10Sec  int
		allowed   int
	}{
		{name: "ten second window", perMinute: 100, per10Sec: 2, allowed: 2},
		{name: "minute window", perMinute: 3, per10Sec: 100, allowed: 3},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			limiter, _ := newLimiter(t, tc.perMinute, tc.per10Sec)
			ctx := context.Background()

			for i := 0; i < tc.allowed; i++ {
				retryAfter, allowed, err := limiter.AllowLike(ctx, 42)
				if err != nil {
					t.Fatalf("allow #%d: %v", i+1, err)
				}
				if !allowed || retryAfter != 0 {
					t.Fatalf("allow #%d: allowed=%v retry_after=%d", i+1, allowed, retryAfter)
				}
			}

			retryAfter, allowed, err := limiter.AllowLike(ctx, 42)
			if err != nil {
				t.Fatalf("allow over limit: %v", err)
			}
			if allowed {
				t.Fatalf("expected block after %d attempts", tc.allowed)
			}
			if retryAfter <= 0 {
				t.Fatalf("expected positive retry_after, got %d", retryAfter)
			}
		})
	}
}

func TestLimiterReopensAfterWindowExpires(t *testing.T) {
	limiter, mr := newLimiter(t, 100, 2)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _, err := limiter.AllowLike(ctx, 42)
		if err != nil {
			t.Fatalf("allow #%d: %v", i+1, err)
		}
	}

	if after, err := limiter.RetryAfterLike(ctx, 42); err != nil || after <= 0 {
		t.Fatalf("expected positive retry_after while blocked, got %d err=%v", after, err)
	}

	mr.FastForward(11 * time.Second)

	retryAfter, allowed, err := limiter.AllowLike(ctx, 42)
	if err != nil {
		t.Fatalf("allow after window: %v", err)
	}
	if !allowed || retryAfter != 0 {
		t.Fatalf("window did not reopen: allowed=%v retry_after=%d", allowed, retryAfter)
	}
}

func TestLimiterIsolatesUsers(t *testing.T) {
	limiter, _ := newLimiter(t, 100, 1)
	ctx := context.Background()

	if _, allowed, err := limiter.AllowLike(ctx, 42); err != nil || !allowed {
		t.Fatalf("first user first attempt blocked: allowed=%v err=%v", allowed, err)
	}
	if _, allowed, err := limiter.AllowLike(ctx, 42); err != nil || allowed {
		t.Fatalf("first user second attempt should block: allowed=%v err=%v", allowed, err)
	}
	if _, allowed, err := limiter.AllowLike(ctx, 77); err != nil || !allowed {
		t.Fatalf("second user must have an independent window: allowed=%v err=%v", allowed, err)
	}
}
