// Package mock provides a test double for the capture package.
//
// Use Source to drive the pipeline with scripted PCM pushes:
//
//	src := mock.New()
//	pipe := pipeline.New(..., src, ...)
//	_ = pipe.Start(ctx)
//	src.Push(pcm)
package mock

import (
	"context"
	"sync"

	"github.com/redparrot-ai/redparrot/pkg/audio/capture"
)

// Source is a scripted implementation of [capture.Source].
type Source struct {
	mu sync.Mutex

	// StartErr, if non-nil, is returned from Start.
	StartErr error

	// fn is registered via SetCallback and receives pushed PCM.
	fn capture.SampleFunc

	started bool
	stops   int
}

// Compile-time interface check.
var _ capture.Source = (*Source)(nil)

// New returns an idle mock source.
func New() *Source {
	return &Source{}
}

// SetCallback registers the sample sink, mirroring how production sources
// take the callback at construction.
func (s *Source) SetCallback(fn capture.SampleFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fn = fn
}

// Start implements [capture.Source].
func (s *Source) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.StartErr != nil {
		return s.StartErr
	}
	s.started = true
	return nil
}

// Stop implements [capture.Source].
func (s *Source) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = false
	s.stops++
	return nil
}

// Started reports whether the source is currently running.
func (s *Source) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// Stops returns how many times Stop has been called.
func (s *Source) Stops() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stops
}

// Push delivers pcm to the registered callback as if captured live.
// Pushes before Start or after Stop are dropped.
func (s *Source) Push(pcm []byte) {
	s.mu.Lock()
	fn := s.fn
	started := s.started
	s.mu.Unlock()
	if started && fn != nil {
		fn(pcm)
	}
}
