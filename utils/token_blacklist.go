package utils

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const blacklistPrefix = "jwt:blacklist:"

// TokenBlacklist records revoked token ids until their natural expiry.
// Redis is preferred so revocations are shared between instances; without it the
// list lives in process memory.
type TokenBlacklist struct {
	rc  *redis.Client
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]time.Time
}

// NewTokenBlacklist returns a blacklist backed by rc, or memory only when rc is nil.
func NewTokenBlacklist(rc *redis.Client) *TokenBlacklist {
	return &TokenBlacklist{rc: rc, now: time.Now, entries: map[string]time.Time{}}
}

// Revoke blacklists tokenID until expiresAt. Already expired tokens are ignored.
func (b *TokenBlacklist) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(b.now())
	if tokenID == "" || ttl <= 0 {
		return nil
	}
	if b.rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return b.rc.Set(ctx, blacklistPrefix+tokenID, "1", ttl).Err()
	}
	b.mu.Lock()
	b.entries[tokenID] = expiresAt
	b.mu.Unlock()
	return nil
}

// IsRevoked checks if a token was revoked before natural expiration.
func (b *TokenBlacklist) IsRevoked(ctx context.Context, tokenID string) bool {
	if b.rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		n, err := b.rc.Exists(ctx, blacklistPrefix+tokenID).Result()
		if err != nil {
			// Fail open: a Redis outage must not sign every user out.
			Sugar.Warnf("blacklist lookup failed: %v", err)
			return false
		}
		return n > 0
	}

	b.mu.RLock()
	expiresAt, ok := b.entries[tokenID]
	b.mu.RUnlock()
	if !ok {
		return false
	}
	if b.now().After(expiresAt) {
		b.mu.Lock()
		delete(b.entries, tokenID)
		b.mu.Unlock()
		return false
	}
	return true
}

// Sweep drops in-memory entries whose token has expired anyway.
func (b *TokenBlacklist) Sweep() {
	now := b.now()
	b.mu.Lock()
	for id, exp := range b.entries {
		if now.After(exp) {
			delete(b.entries, id)
		}
	}
	b.mu.Unlock()
}
