package cache

import (
	"context"
	"time"
)

// NoOpCache is a cache implementation that does nothing.
// Used as a fallback when Redis is unavailable - all operations succeed
// but no actual caching occurs (always cache miss).
type NoOpCache struct{}

// NewNoOpCache creates a new no-op cache instance
func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

// GetSummary always returns nil (cache miss)
func (c *NoOpCache) GetSummary(ctx context.Context, key string) (*Summary, error) {
	return nil, nil
}

// SetSummary does nothing and always succeeds
func (c *NoOpCache) SetSummary(ctx context.Context, key string, summary *Summary, ttl time.Duration) error {
	return nil
}

// Close does nothing and always succeeds
func (c *NoOpCache) Close() error {
	return nil
}
