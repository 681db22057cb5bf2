package ports

import (
	"context"

	"autoreply-project/internal/config"
)

// ReplyConfigLoader loads the reply table once at startup.
type ReplyConfigLoader interface {
	// Load returns a normalized, validated reply configuration.
	Load(ctx context.Context) (*config.ReplyConfig, error)
}
