// Package asr defines the Provider interface for audio transcription backends.
//
// An ASR provider turns one captured audio chunk into text. Unlike streaming
// speech APIs, the pipeline works in fixed-duration batches: the chunker emits
// a frame roughly every three seconds and each frame is transcribed as an
// independent request. That keeps provider implementations trivially
// swappable — a hosted HTTP API and an in-process whisper.cpp model expose
// the exact same surface.
//
// Implementations must be safe for concurrent use; the pipeline issues up to
// its configured concurrency limit of Transcribe calls in parallel.
package asr

import (
	"context"
	"errors"
	"time"

	"github.com/redparrot-ai/redparrot/pkg/audio"
)

// ErrNoSpeech is returned by Transcribe when the backend decides the chunk
// contains no usable speech. Callers should drop the chunk silently rather
// than treat it as a failure.
var ErrNoSpeech = errors.New("asr: no speech detected")

// Request carries one audio chunk to a transcription backend.
type Request struct {
	// Frame is the PCM chunk to transcribe.
	Frame audio.AudioFrame

	// Language is the ISO 639-1 hint (e.g., "en"). Empty means auto-detect
	// where the backend supports it.
	Language string
}

// Transcript is the result of transcribing a single audio chunk.
type Transcript struct {
	// Text is the raw transcribed text, trimmed of surrounding whitespace.
	Text string

	// Language is the language the backend recognised, when reported.
	Language string

	// Confidence is the backend's confidence in [0,1]. Zero when the
	// backend does not report one.
	Confidence float64

	// SourceDuration is the duration of the audio that produced this text.
	SourceDuration time.Duration

	// ProducedAt is when the backend returned the result.
	ProducedAt time.Time
}

// Provider is the abstraction over any transcription backend.
type Provider interface {
	// Transcribe converts one audio chunk to text. It blocks until the
	// backend responds or ctx is done. Returns [ErrNoSpeech] (possibly
	// wrapped) when the chunk holds no speech.
	Transcribe(ctx context.Context, req Request) (*Transcript, error)

	// Name identifies the backend for logs and metrics (e.g., "groq").
	Name() string
}
