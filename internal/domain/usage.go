package domain

import (
	"context"
	"sync"
)

type usageKey struct{}

// Usage collects provider token usage for a single HTTP request.
// The handler puts a pointer into the context, services add to it,
// the handler reports it in response headers.
type Usage struct {
	mu              sync.Mutex
	embeddingTokens int
	llmTokens       int
	used            bool
}

// NewContextWithUsage returns a context with an attached usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *Usage) {
	u := &Usage{}
	return context.WithValue(ctx, usageKey{}, u), u
}

// UsageFromContext extracts the collector. Returns nil if not set.
func UsageFromContext(ctx context.Context) *Usage {
	u, _ := ctx.Value(usageKey{}).(*Usage)
	return u
}

// AddEmbeddingTokens records embedding tokens. Safe on a nil receiver.
func (u *Usage) AddEmbeddingTokens(n int) {
	if u == nil {
		return
	}
	u.mu.Lock()
	u.embeddingTokens += n
	u.used = true
	u.mu.Unlock()
}

// AddLLMTokens records chat completion tokens. Safe on a nil receiver.
func (u *Usage) AddLLMTokens(n int) {
	if u == nil {
		return
	}
	u.mu.Lock()
	u.llmTokens += n
	u.used = true
	u.mu.Unlock()
}

// EmbeddingTokens returns recorded embedding tokens.
func (u *Usage) EmbeddingTokens() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.embeddingTokens
}

// LLMTokens returns recorded chat completion tokens.
func (u *Usage) LLMTokens() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.llmTokens
}

// Used reports whether any provider was called, even on a cache hit with 0 tokens.
func (u *Usage) Used() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.used
}
