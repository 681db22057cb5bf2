package ports

import "context"

// ReplyCache remembers replies per inbound message so redeliveries of the
// same message are answered identically.
type ReplyCache interface {
	// Get returns the cached reply or domain.ErrNotFound.
	Get(ctx context.Context, sender, msgID string) (string, error)

	// Put stores a reply. An existing entry is kept.
	Put(ctx context.Context, sender, msgID, content string) error
}
