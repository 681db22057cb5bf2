package ports

import "context"

// TokenSource provides the shared token used to sign webhook requests.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}
