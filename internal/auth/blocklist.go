// File: internal/auth/blocklist.go
package auth

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// TokenBlocklistService stores revoked token ids (jti).
type TokenBlocklistService interface {
	AddToBlocklist(ctx context.Context, jti string, expiresAt time.Time) error
	IsBlocklisted(ctx context.Context, jti string) (bool, error)
}

// InMemoryBlocklistService keeps revoked ids in a go-cache with per-item TTL.
// go-cache is safe for concurrent use on its own.
type InMemoryBlocklistService struct {
	cache *cache.Cache
}

// NewInMemoryBlocklistService sweeps expired entries every cleanupInterval.
func NewInMemoryBlocklistService(cleanupInterval time.Duration) *InMemoryBlocklistService {
	return &InMemoryBlocklistService{
		cache: cache.New(cache.NoExpiration, cleanupInterval),
	}
}

// ProvideBlocklist is the wire provider.
func ProvideBlocklist() TokenBlocklistService {
	return NewInMemoryBlocklistService(10 * time.Minute)
}

func (s *InMemoryBlocklistService) AddToBlocklist(_ context.Context, jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	s.cache.Set(jti, struct{}{}, ttl)
	return nil
}

func (s *InMemoryBlocklistService) IsBlocklisted(_ context.Context, jti string) (bool, error) {
	_, found := s.cache.Get(jti)
	return found, nil
}

// Len reports how many ids are currently blocklisted.
func (s *InMemoryBlocklistService) Len() int {
	return s.cache.ItemCount()
}
