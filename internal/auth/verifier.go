package auth

import (
	"context"
	"errors"
)

// ErrInvalidToken covers malformed, expired and wrongly signed tokens.
var ErrInvalidToken = errors.New("invalid token")

// Verifier turns a bearer token into a stable user id.
type Verifier interface {
	Verify(ctx context.Context, token string) (string, error)
}
