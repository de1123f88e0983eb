package port

import (
	"context"

	"dipwatch/internal/domain/model"
)

// Notifier hands a fully composed payload to the external delivery
// collaborator (webhook, email gateway). Fire-and-forget from the
// evaluator's point of view.
type Notifier interface {
	Send(ctx context.Context, p model.AlertPayload) error
}

// Realtime emits an event to a user-scoped live channel. At-least-once
// delivery is acceptable.
type Realtime interface {
	EmitToUser(ctx context.Context, userID, event string, p model.AlertPayload) error
}
