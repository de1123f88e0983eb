package port

import (
	"context"
	"time"

	"dipwatch/internal/domain/model"
)

// CooldownStore suppresses repeated notifications per (alert, level).
// A registration expires on its own after ttl; absence means free to fire.
type CooldownStore interface {
	IsSuppressed(ctx context.Context, alertID string, level model.Level) (bool, error)
	Suppress(ctx context.Context, alertID string, level model.Level, ttl time.Duration) error
}
