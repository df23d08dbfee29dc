package auth

import (
	"context"
	"errors"
	"time"
)

// ErrTokenRevoked is returned for tokens that were logged out.
var ErrTokenRevoked = errors.New("JWT has been revoked")

// RevocationStore remembers logged out session IDs (JWT IDs) for as long as
// their tokens would otherwise be valid.
type RevocationStore interface {
	// Revoke 吊销 jti，直到 until 之后自动失效。
	Revoke(ctx context.Context, jti string, until time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}
