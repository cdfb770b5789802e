package llm

import "context"

// Client is a minimal completion interface to allow pluggable providers.
// A single request/response pair per call; no streaming.
type Client interface {
	Complete(ctx context.Context, system, prompt string, maxTokens int) (string, error)
}
