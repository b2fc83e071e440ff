//go:build !whispercpp

// Package whisper implements asr.Provider with an in-process whisper.cpp
// model. The real implementation lives in native.go behind the whispercpp
// build tag; this stub lets the rest of the tree compile without CGO.
package whisper

import (
	"context"
	"errors"

	"github.com/redparrot-ai/redparrot/pkg/provider/asr"
)

// ErrUnavailable is returned when the binary was built without whisper.cpp
// support.
var ErrUnavailable = errors.New("whisper: built without whispercpp tag")

// Available reports whether the native whisper backend is compiled in.
func Available() bool { return false }

// Provider is a stub that satisfies asr.Provider when the native backend is
// absent.
type Provider struct{}

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithLanguage is a no-op on the stub.
func WithLanguage(string) Option {
	return func(*Provider) {}
}

// New returns an error when the native backend is not built.
func New(modelPath string, opts ...Option) (*Provider, error) {
	return nil, ErrUnavailable
}

// Close implements the io.Closer surface of the native provider.
func (p *Provider) Close() error { return nil }

// Name implements [asr.Provider].
func (p *Provider) Name() string { return "whisper" }

// Transcribe implements [asr.Provider].
func (p *Provider) Transcribe(context.Context, asr.Request) (*asr.Transcript, error) {
	return nil, ErrUnavailable
}
