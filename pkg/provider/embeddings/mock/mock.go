// Package mock provides a test double for the embeddings package.
//
// The mock derives a deterministic pseudo-vector from each input string, so
// similarity-based code paths can be tested without a live backend: equal
// inputs always embed to equal vectors.
package mock

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/redparrot-ai/redparrot/pkg/provider/embeddings"
)

// Provider is a mock implementation of embeddings.Provider.
type Provider struct {
	mu sync.Mutex

	// Dim is the dimensionality of generated vectors. Defaults to 8.
	Dim int

	// EmbedErr, if non-nil, is returned from every Embed and EmbedBatch
	// call.
	EmbedErr error

	// Vectors, if non-nil, maps input text to a fixed vector, overriding
	// the derived one.
	Vectors map[string][]float32

	// EmbedCalls records every text passed to Embed or EmbedBatch.
	EmbedCalls []string
}

// Compile-time interface check.
var _ embeddings.Provider = (*Provider)(nil)

// Embed implements [embeddings.Provider].
func (p *Provider) Embed(_ context.Context, text string) ([]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.EmbedCalls = append(p.EmbedCalls, text)
	if p.EmbedErr != nil {
		return nil, p.EmbedErr
	}
	return p.vectorFor(text), nil
}

// EmbedBatch implements [embeddings.Provider].
func (p *Provider) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.EmbedCalls = append(p.EmbedCalls, texts...)
	if p.EmbedErr != nil {
		return nil, p.EmbedErr
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = p.vectorFor(t)
	}
	return out, nil
}

// Dimensions implements [embeddings.Provider].
func (p *Provider) Dimensions() int {
	if p.Dim <= 0 {
		return 8
	}
	return p.Dim
}

// ModelID implements [embeddings.Provider].
func (p *Provider) ModelID() string { return "mock-embedding" }

// vectorFor derives a stable unit-ish vector from text. Caller holds mu.
func (p *Provider) vectorFor(text string) []float32 {
	if v, ok := p.Vectors[text]; ok {
		return v
	}
	dim := p.Dim
	if dim <= 0 {
		dim = 8
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()

	out := make([]float32, dim)
	for i := range out {
		seed = seed*6364136223846793005 + 1442695040888963407
		out[i] = float32(seed%2000)/1000 - 1
	}
	return out
}
