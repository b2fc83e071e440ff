// Package mock provides test doubles for the asr package interfaces.
//
// Use Provider to script transcripts and errors per call and to inspect
// which requests the pipeline issued:
//
//	p := &mock.Provider{
//	    Transcripts: []*asr.Transcript{{Text: "tell me about yourself"}},
//	}
//	got, _ := p.Transcribe(ctx, req)
package mock

import (
	"context"
	"sync"

	"github.com/redparrot-ai/redparrot/pkg/provider/asr"
)

// TranscribeCall records a single invocation of Provider.Transcribe.
type TranscribeCall struct {
	// Ctx is the context passed to Transcribe.
	Ctx context.Context
	// Req is the request passed to Transcribe.
	Req asr.Request
}

// Provider is a mock implementation of asr.Provider.
type Provider struct {
	mu sync.Mutex

	// ProviderName is returned by Name. Defaults to "mock" when empty.
	ProviderName string

	// Transcripts are returned from successive Transcribe calls. When the
	// script runs out, the last entry repeats.
	Transcripts []*asr.Transcript

	// Errs are returned from successive Transcribe calls alongside a nil
	// transcript. A nil entry means that call succeeds.
	Errs []error

	// TranscribeFn, if non-nil, overrides the scripted behaviour entirely.
	TranscribeFn func(ctx context.Context, req asr.Request) (*asr.Transcript, error)

	// Calls records every call to Transcribe.
	Calls []TranscribeCall
}

// Compile-time interface check.
var _ asr.Provider = (*Provider)(nil)

// Name implements [asr.Provider].
func (p *Provider) Name() string {
	if p.ProviderName == "" {
		return "mock"
	}
	return p.ProviderName
}

// Transcribe records the call and plays back the next scripted result.
func (p *Provider) Transcribe(ctx context.Context, req asr.Request) (*asr.Transcript, error) {
	p.mu.Lock()
	n := len(p.Calls)
	p.Calls = append(p.Calls, TranscribeCall{Ctx: ctx, Req: req})
	fn := p.TranscribeFn
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if n < len(p.Errs) && p.Errs[n] != nil {
		return nil, p.Errs[n]
	}
	if len(p.Transcripts) == 0 {
		return &asr.Transcript{}, nil
	}
	if n >= len(p.Transcripts) {
		n = len(p.Transcripts) - 1
	}
	return p.Transcripts[n], nil
}

// CallCount returns the number of Transcribe calls. Thread-safe.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = nil
}
