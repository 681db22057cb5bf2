package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"autoreply-project/internal/domain"
)

// KeyPatternReply is the cache key of a reply: sender, then message id.
const KeyPatternReply = "autoreply:reply:%s:%s"

// ReplyCache implements ports.ReplyCache. The platform redelivers a message
// when the first response is slow; caching by sender and message id makes
// every delivery get the same reply.
type ReplyCache struct {
	client *Client
	ttl    time.Duration
}

// NewReplyCache creates a reply cache whose entries expire after ttl.
func NewReplyCache(client *Client, ttl time.Duration) *ReplyCache {
	return &ReplyCache{
		client: client,
		ttl:    ttl,
	}
}

// Get returns the cached reply, or domain.ErrNotFound.
func (c *ReplyCache) Get(ctx context.Context, sender, msgID string) (string, error) {
	content, err := c.client.Get(ctx, replyKey(sender, msgID))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("get cached reply: %w", err)
	}
	return content, nil
}

// Put stores a reply unless one is already cached for the message; the
// first reply wins.
func (c *ReplyCache) Put(ctx context.Context, sender, msgID, content string) error {
	if _, err := c.client.SetNX(ctx, replyKey(sender, msgID), content, c.ttl); err != nil {
		return fmt.Errorf("cache reply: %w", err)
	}
	return nil
}

// Forget removes a cached reply.
func (c *ReplyCache) Forget(ctx context.Context, sender, msgID string) error {
	if err := c.client.Del(ctx, replyKey(sender, msgID)); err != nil {
		return fmt.Errorf("delete cached reply: %w", err)
	}
	return nil
}

func replyKey(sender, msgID string) string {
	return fmt.Sprintf(KeyPatternReply, sender, msgID)
}
