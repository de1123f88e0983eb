package cooldown

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"dipwatch/internal/domain/model"
)

// Redis backs cooldowns with SET EX keys so suppression survives process
// restarts and expires without any sweeper.
type Redis struct {
	rdb    *redis.Client
	prefix string
}

func NewRedis(rdb *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = "dipwatch"
	}
	return &Redis{rdb: rdb, prefix: prefix}
}

func (r *Redis) key(alertID string, level model.Level) string {
	return r.prefix + ":cooldown:" + entryKey(alertID, level)
}

func (r *Redis) IsSuppressed(ctx context.Context, alertID string, level model.Level) (bool, error) {
	n, err := r.rdb.Exists(ctx, r.key(alertID, level)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *Redis) Suppress(ctx context.Context, alertID string, level model.Level, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return r.rdb.Set(ctx, r.key(alertID, level), "1", ttl).Err()
}
