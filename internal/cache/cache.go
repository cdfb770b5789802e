package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Cache stores finished summaries so re-uploading the same document at the
// same detail level skips the model calls entirely.
type Cache interface {
	// GetSummary retrieves a cached summary by key. Returns nil on a miss.
	GetSummary(ctx context.Context, key string) (*Summary, error)

	// SetSummary stores a summary with TTL.
	SetSummary(ctx context.Context, key string, summary *Summary, ttl time.Duration) error

	// Close closes the cache connection.
	Close() error
}

// Summary is the cached form of a finished run.
type Summary struct {
	Text       string `json:"text"`
	WordCount  int    `json:"word_count"`
	Level      string `json:"level"`
	ChunkCount int    `json:"chunk_count"`
}

// Key derives a deterministic cache key from the raw document bytes and the
// requested detail level, so identical content at a different level caches
// separately.
func Key(content []byte, level string) string {
	sum := sha256.Sum256(content)
	return fmt.Sprintf("%s:%s", hex.EncodeToString(sum[:]), level)
}
