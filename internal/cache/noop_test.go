package cache

import (
	"context"
	"testing"
	"time"
)

func TestNoOpCacheAlwaysMisses(t *testing.T) {
	c := NewNoOpCache()
	ctx := context.Background()

	if err := c.SetSummary(ctx, "key", &Summary{Text: "text"}, time.Minute); err != nil {
		t.Fatalf("SetSummary: %v", err)
	}
	got, err := c.GetSummary(ctx, "key")
	if err != nil {
		t.Fatalf("GetSummary: %v", err)
	}
	if got != nil {
		t.Error("noop cache returned a hit")
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestKeyDistinguishesLevelAndContent(t *testing.T) {
	a := Key([]byte("document one"), "concise")
	b := Key([]byte("document one"), "balanced")
	c := Key([]byte("document two"), "concise")

	if a == b {
		t.Error("same content at different levels must cache separately")
	}
	if a == c {
		t.Error("different content must cache separately")
	}
	if a != Key([]byte("document one"), "concise") {
		t.Error("key derivation must be deterministic")
	}
}
