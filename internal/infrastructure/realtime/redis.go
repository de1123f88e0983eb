package realtime

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"dipwatch/internal/domain/model"
)

// RedisEmitter publishes alert events on a user-scoped pub/sub channel.
// Delivery is at-least-once; UI consumers are expected to be idempotent
// about duplicate payloads.
type RedisEmitter struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisEmitter(rdb *redis.Client, prefix string) *RedisEmitter {
	if prefix == "" {
		prefix = "dipwatch"
	}
	return &RedisEmitter{rdb: rdb, prefix: prefix}
}

// UserChannel is the pub/sub channel carrying one user's events.
func (e *RedisEmitter) UserChannel(userID string) string {
	return e.prefix + ":user:" + userID
}

type envelope struct {
	Event   string             `json:"event"`
	Payload model.AlertPayload `json:"payload"`
}

func (e *RedisEmitter) EmitToUser(ctx context.Context, userID, event string, p model.AlertPayload) error {
	b, err := json.Marshal(envelope{Event: event, Payload: p})
	if err != nil {
		return err
	}
	return e.rdb.Publish(ctx, e.UserChannel(userID), string(b)).Err()
}

// Subscribe attaches to one user's channel; consumers (SSE bridges, bots)
// read messages until the context is cancelled.
func (e *RedisEmitter) Subscribe(ctx context.Context, userID string) *redis.PubSub {
	return e.rdb.Subscribe(ctx, e.UserChannel(userID))
}

// LogEmitter is the no-redis fallback: events only reach the log.
type LogEmitter struct{}

func (LogEmitter) EmitToUser(_ context.Context, userID, event string, p model.AlertPayload) error {
	log.Info().
		Str("user", userID).
		Str("event", event).
		Str("symbol", p.Symbol).
		Str("level", p.Level).
		Float64("price", p.Price).
		Msg("realtime emit (log only)")
	return nil
}
