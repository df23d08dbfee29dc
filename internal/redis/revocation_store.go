package redis

import (
	"context"
	"fmt"
	"time"

	"crosspost/internal/auth"

	"github.com/redis/go-redis/v9"
)

const revokedKeyPrefix = "crosspost:session:revoked:"

// revocationStore keeps one expiring key per logged out session.
type revocationStore struct {
	client *redis.Client
}

// NewRedisRevocationStore 创建一个基于 Redis 的 auth.RevocationStore。
func NewRedisRevocationStore(client *redis.Client) auth.RevocationStore {
	return &revocationStore{client: client}
}

func (s *revocationStore) Revoke(ctx context.Context, jti string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		// expired tokens are rejected by ValidateToken anyway
		return nil
	}
	if err := s.client.Set(ctx, revokedKeyPrefix+jti, until.Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("revoke session %s: %w", jti, err)
	}
	return nil
}

func (s *revocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := s.client.Exists(ctx, revokedKeyPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("check session %s: %w", jti, err)
	}
	return n > 0, nil
}
