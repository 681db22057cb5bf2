package ports

import (
	"context"

	"autoreply-project/internal/domain"
)

// ReplyGenerator turns an extracted message into reply text.
type ReplyGenerator interface {
	Reply(ctx context.Context, msg *domain.Message) (string, domain.Outcome)
}

// Messenger delivers an inbound message to a webhook and returns the
// passive reply it answered with.
type Messenger interface {
	Send(ctx context.Context, msg *domain.Message) (*domain.Reply, error)
}
