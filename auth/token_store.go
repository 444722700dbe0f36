package auth

import (
	"context"
	"time"

	"delivery-marketplace/cache"
)

const revokedTokenKeyPrefix = "revoked:token:"

// Revocations tracks logged-out tokens until they expire on their own.
type Revocations interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) bool
}

// TokenStore keeps revoked token ids in Redis.
type TokenStore struct {
	cache *cache.Client
}

var _ Revocations = (*TokenStore)(nil)

func NewTokenStore(c *cache.Client) *TokenStore {
	return &TokenStore{cache: c}
}

// Revoke marks the token id as revoked for ttl.
func (s *TokenStore) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if tokenID == "" || ttl <= 0 {
		return nil
	}
	return s.cache.Set(ctx, revokedTokenKeyPrefix+tokenID, []byte("1"), ttl)
}

// IsRevoked never reports true when Redis is unavailable.
func (s *TokenStore) IsRevoked(ctx context.Context, tokenID string) bool {
	if tokenID == "" {
		return false
	}
	data, _ := s.cache.Get(ctx, revokedTokenKeyPrefix+tokenID)
	return data != nil
}
