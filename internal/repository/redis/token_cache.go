package redis

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"account-service/internal/client"
	"account-service/internal/util"
)

const revokedPrefix = "revoked:"

// TokenCache keeps a fast revocation set in front of the store. Entries
// carry the token's remaining lifetime as their TTL, so the set cleans
// itself up.
type TokenCache struct {
	client *client.RedisClient
}

func NewTokenCache(client *client.RedisClient) *TokenCache {
	return &TokenCache{client: client}
}

// MarkRevoked records a revoked token until its natural expiry.
func (c *TokenCache) MarkRevoked(ctx context.Context, tokenString string, ttl time.Duration) error {
	if ttl <= 0 {
		// Already past its expiry; nothing to remember.
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	key := revokedPrefix + tokenString
	if err := c.client.Set(ctx, key, "1", ttl); err != nil {
		util.Error("Failed to mark token revoked in cache",
			zap.Duration("ttl", ttl),
			zap.Error(err))
		return fmt.Errorf("failed to mark token revoked: %w", err)
	}

	return nil
}

// IsRevoked reports whether the token is in the revocation set.
func (c *TokenCache) IsRevoked(ctx context.Context, tokenString string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	exists, err := c.client.Exists(ctx, revokedPrefix+tokenString)
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return exists, nil
}
