// Package mock provides test doubles for the llm package interfaces.
//
// Use Provider to script completion responses and streamed chunks:
//
//	p := &mock.Provider{
//	    Responses: []*llm.CompletionResponse{{Content: "Use a hash map."}},
//	    Chunks:    []llm.Chunk{{Text: "Use a "}, {Text: "hash map."}, {FinishReason: "stop"}},
//	}
package mock

import (
	"context"
	"sync"

	"github.com/redparrot-ai/redparrot/pkg/provider/llm"
)

// CompleteCall records a single invocation of Provider.Complete.
type CompleteCall struct {
	// Ctx is the context passed to Complete.
	Ctx context.Context
	// Req is the request passed to Complete.
	Req llm.CompletionRequest
}

// StreamCall records a single invocation of Provider.StreamCompletion.
type StreamCall struct {
	// Ctx is the context passed to StreamCompletion.
	Ctx context.Context
	// Req is the request passed to StreamCompletion.
	Req llm.CompletionRequest
}

// Provider is a mock implementation of llm.Provider.
type Provider struct {
	mu sync.Mutex

	// ProviderName is returned by Name. Defaults to "mock" when empty.
	ProviderName string

	// Responses are returned from successive Complete calls. When the
	// script runs out, the last entry repeats.
	Responses []*llm.CompletionResponse

	// CompleteErrs are returned from successive Complete calls alongside a
	// nil response. A nil entry means that call succeeds.
	CompleteErrs []error

	// CompleteFn, if non-nil, overrides the scripted Complete behaviour.
	CompleteFn func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)

	// Chunks are emitted from every StreamCompletion call, in order, on a
	// channel that is then closed.
	Chunks []llm.Chunk

	// StreamErr, if non-nil, is returned from StreamCompletion before any
	// chunk is emitted.
	StreamErr error

	// Caps is returned by Capabilities.
	Caps llm.Capabilities

	// CompleteCalls records every call to Complete.
	CompleteCalls []CompleteCall

	// StreamCalls records every call to StreamCompletion.
	StreamCalls []StreamCall
}

// Compile-time interface check.
var _ llm.Provider = (*Provider)(nil)

// Name implements [llm.Provider].
func (p *Provider) Name() string {
	if p.ProviderName == "" {
		return "mock"
	}
	return p.ProviderName
}

// Complete records the call and plays back the next scripted result.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	n := len(p.CompleteCalls)
	p.CompleteCalls = append(p.CompleteCalls, CompleteCall{Ctx: ctx, Req: req})
	fn := p.CompleteFn
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if n < len(p.CompleteErrs) && p.CompleteErrs[n] != nil {
		return nil, p.CompleteErrs[n]
	}
	if len(p.Responses) == 0 {
		return &llm.CompletionResponse{}, nil
	}
	if n >= len(p.Responses) {
		n = len(p.Responses) - 1
	}
	return p.Responses[n], nil
}

// StreamCompletion records the call and emits the scripted chunks on a
// freshly created channel.
func (p *Provider) StreamCompletion(ctx context.Context, req llm.CompletionRequest) (<-chan llm.Chunk, error) {
	p.mu.Lock()
	p.StreamCalls = append(p.StreamCalls, StreamCall{Ctx: ctx, Req: req})
	chunks := make([]llm.Chunk, len(p.Chunks))
	copy(chunks, p.Chunks)
	streamErr := p.StreamErr
	p.mu.Unlock()

	if streamErr != nil {
		return nil, streamErr
	}

	ch := make(chan llm.Chunk, len(chunks))
	go func() {
		defer close(ch)
		for _, c := range chunks {
			select {
			case ch <- c:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

// Capabilities implements [llm.Provider].
func (p *Provider) Capabilities() llm.Capabilities {
	if p.Caps == (llm.Capabilities{}) {
		return llm.Capabilities{ContextWindow: 128_000, MaxOutputTokens: 4_096, SupportsStreaming: true}
	}
	return p.Caps
}

// CompleteCallCount returns the number of Complete calls. Thread-safe.
func (p *Provider) CompleteCallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.CompleteCalls)
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CompleteCalls = nil
	p.StreamCalls = nil
}
