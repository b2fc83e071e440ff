//go:build whispercpp

// This file contains the Provider implementation backed by the whisper.cpp
// CGO bindings. The whisper.cpp static library (libwhisper.a) and headers
// (whisper.h) must be available at link time via LIBRARY_PATH and
// C_INCLUDE_PATH environment variables. Builds without the whispercpp tag
// get the stub in stub.go instead.

package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/redparrot-ai/redparrot/pkg/audio"
	"github.com/redparrot-ai/redparrot/pkg/provider/asr"
)

// Available reports that the native backend is compiled in.
func Available() bool { return true }

// Compile-time assertion that Provider satisfies asr.Provider.
var _ asr.Provider = (*Provider)(nil)

// Provider implements asr.Provider using the whisper.cpp Go bindings,
// eliminating network overhead entirely. The model is loaded once at startup
// and shared across all transcription calls.
type Provider struct {
	model    whisperlib.Model
	language string

	// Whisper contexts are not thread-safe and creating one per call is
	// expensive; serialise inference instead. The pipeline's concurrency
	// limit bounds how many callers can queue here.
	inferMu sync.Mutex
}

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithLanguage sets the ISO 639-1 language code used when a request carries
// no hint. Defaults to "en".
func WithLanguage(lang string) Option {
	return func(p *Provider) { p.language = lang }
}

// New creates a Provider that loads the whisper.cpp model from the given
// file path. The caller must call Close when the provider is no longer
// needed.
func New(modelPath string, opts ...Option) (*Provider, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}
	p := &Provider{model: model, language: "en"}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Close releases the whisper model.
func (p *Provider) Close() error {
	if p.model != nil {
		return p.model.Close()
	}
	return nil
}

// Name implements [asr.Provider].
func (p *Provider) Name() string { return "whisper" }

// Transcribe implements [asr.Provider]. The frame's PCM is converted to
// float32 mono samples and run through a fresh whisper context.
func (p *Provider) Transcribe(ctx context.Context, req asr.Request) (*asr.Transcript, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	samples := audio.PCMToFloat32(req.Frame.PCM, req.Frame.Channels)
	if len(samples) == 0 {
		return nil, asr.ErrNoSpeech
	}

	lang := req.Language
	if lang == "" {
		lang = p.language
	}

	p.inferMu.Lock()
	defer p.inferMu.Unlock()

	wctx, err := p.model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("whisper: create context: %w", err)
	}
	if err := wctx.SetLanguage(lang); err != nil {
		return nil, fmt.Errorf("whisper: set language %q: %w", lang, err)
	}
	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return nil, fmt.Errorf("whisper: process audio: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("whisper: read segment: %w", err)
		}
		text := strings.TrimSpace(segment.Text)
		if text != "" && !strings.EqualFold(text, "[BLANK_AUDIO]") {
			parts = append(parts, text)
		}
	}

	text := strings.Join(parts, " ")
	if text == "" {
		return nil, asr.ErrNoSpeech
	}

	return &asr.Transcript{
		Text:           text,
		Language:       lang,
		SourceDuration: req.Frame.Duration,
		ProducedAt:     time.Now(),
	}, nil
}
