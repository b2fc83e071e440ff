package resilience

import (
	"context"

	"github.com/redparrot-ai/redparrot/pkg/provider/llm"
)

// LLMChain implements [llm.Provider] with automatic failover across multiple
// model backends. Each backend has its own breaker; when the primary fails
// or its breaker is open, the next healthy fallback is tried.
type LLMChain struct {
	chain *Chain[llm.Provider]
}

// Compile-time interface assertion.
var _ llm.Provider = (*LLMChain)(nil)

// NewLLMChain creates an [LLMChain] with primary as the preferred backend.
func NewLLMChain(primary llm.Provider, cfg ChainConfig) *LLMChain {
	return &LLMChain{chain: NewChain(primary, primary.Name(), cfg)}
}

// Add registers an additional model backend as a fallback.
func (c *LLMChain) Add(provider llm.Provider) {
	c.chain.Add(provider.Name(), provider)
}

// Name implements [llm.Provider].
func (c *LLMChain) Name() string { return "chain" }

// Complete sends the request to the first healthy backend and returns its
// response.
func (c *LLMChain) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return ExecuteWithResult(c.chain, func(p llm.Provider) (*llm.CompletionResponse, error) {
		return p.Complete(ctx, req)
	})
}

// StreamCompletion sends the request to the first healthy backend and
// returns its chunk channel. Only the initial connection attempt is covered
// by failover; once a stream is established, mid-stream errors are surfaced
// to the caller as "error" chunks.
func (c *LLMChain) StreamCompletion(ctx context.Context, req llm.CompletionRequest) (<-chan llm.Chunk, error) {
	return ExecuteWithResult(c.chain, func(p llm.Provider) (<-chan llm.Chunk, error) {
		return p.StreamCompletion(ctx, req)
	})
}

// Capabilities returns the capabilities of the primary. Static metadata does
// not participate in failover.
func (c *LLMChain) Capabilities() llm.Capabilities {
	if len(c.chain.entries) > 0 {
		return c.chain.entries[0].value.Capabilities()
	}
	return llm.Capabilities{}
}
