package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const cooldownPrefix = "cooldown:"

type CooldownRepo struct {
	client *goredis.Client
}

func NewCooldownRepo(client *goredis.Client) *CooldownRepo {
	return &CooldownRepo{client: client}
}

// Record marks a directed attempt from one user toward another. The key
// expires on its own once the window passes, so there is nothing to clean up.
func (r *CooldownRepo) Record(ctx context.Context, fromUserID, toUserID int64, at time.Time, window time.Duration) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if fromUserID <= 0 || toUserID <= 0 || window <= 0 {
		return fmt.Errorf("invalid cooldown payload")
	}

	key := cooldownKey(fromUserID, toUserID)
	if err := r.client.Set(ctx, key, at.Unix(), window).Err(); err != nil {
		return fmt.Errorf("set cooldown key: %w", err)
	}

	return nil
}

// Remaining reports how long the directed cooldown still has to run. A zero
// duration with found=false means no cooldown is tracked for the pair.
func (r *CooldownRepo) Remaining(ctx context.Context, fromUserID, toUserID int64) (time.Duration, bool, error) {
	if r.client == nil {
		return 0, false, fmt.Errorf("redis client is nil")
	}
	if fromUserID <= 0 || toUserID <= 0 {
		return 0, false, fmt.Errorf("invalid cooldown payload")
	}

	ttl, err := r.client.TTL(ctx, cooldownKey(fromUserID, toUserID)).Result()
	if err != nil {
		return 0, false, fmt.Errorf("read cooldown ttl: %w", err)
	}
	if ttl <= 0 {
		return 0, false, nil
	}

	return ttl, true, nil
}

func (r *CooldownRepo) Clear(ctx context.Context, fromUserID, toUserID int64) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if fromUserID <= 0 || toUserID <= 0 {
		return fmt.Errorf("invalid cooldown payload")
	}

	if err := r.client.Del(ctx, cooldownKey(fromUserID, toUserID)).Err(); err != nil {
		return fmt.Errorf("delete cooldown key: %w", err)
	}

	return nil
}

func cooldownKey(fromUserID, toUserID int64) string {
	return cooldownPrefix + strconv.FormatInt(fromUserID, 10) + ":" + strconv.FormatInt(toUserID, 10)
}
