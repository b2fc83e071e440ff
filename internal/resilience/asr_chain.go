package resilience

import (
	"context"
	"errors"

	"github.com/redparrot-ai/redparrot/pkg/provider/asr"
)

// ASRChain implements [asr.Provider] with automatic failover across multiple
// transcription backends. Each backend has its own breaker; when the primary
// fails or its breaker is open, the next healthy fallback is tried.
type ASRChain struct {
	chain *Chain[asr.Provider]
}

// Compile-time interface assertion.
var _ asr.Provider = (*ASRChain)(nil)

// NewASRChain creates an [ASRChain] with primary as the preferred backend.
func NewASRChain(primary asr.Provider, cfg ChainConfig) *ASRChain {
	return &ASRChain{chain: NewChain(primary, primary.Name(), cfg)}
}

// Add registers an additional transcription backend as a fallback.
func (c *ASRChain) Add(provider asr.Provider) {
	c.chain.Add(provider.Name(), provider)
}

// Name implements [asr.Provider].
func (c *ASRChain) Name() string { return "chain" }

// Transcribe sends the chunk to the first healthy backend. A backend
// reporting [asr.ErrNoSpeech] counts as healthy: silence is an answer, not a
// failure, so it neither trips the breaker nor triggers failover.
func (c *ASRChain) Transcribe(ctx context.Context, req asr.Request) (*asr.Transcript, error) {
	var noSpeech bool
	t, err := ExecuteWithResult(c.chain, func(p asr.Provider) (*asr.Transcript, error) {
		t, err := p.Transcribe(ctx, req)
		if errors.Is(err, asr.ErrNoSpeech) {
			noSpeech = true
			return nil, nil
		}
		return t, err
	})
	if err != nil {
		return nil, err
	}
	if noSpeech {
		return nil, asr.ErrNoSpeech
	}
	return t, nil
}
