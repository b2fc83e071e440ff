// Package capture abstracts audio acquisition for the RedParrot pipeline.
//
// A [Source] pushes raw PCM sample buffers into the pipeline as they arrive
// from the operating system. The pipeline never pulls; chunking happens
// downstream on its own timer regardless of capture cadence.
//
// The production implementation is backed by malgo (miniaudio), which
// supports both microphone capture and system-audio loopback on the
// platforms we care about. Tests use the mock subpackage.
package capture

import (
	"context"
	"errors"
)

// ErrPermissionDenied is returned by [Source.Start] when the OS refuses
// access to the requested capture device. This is fatal to pipeline start.
var ErrPermissionDenied = errors.New("capture: device access denied")

// Kind selects which audio endpoint a source records from.
type Kind string

const (
	// KindMicrophone captures the default input device.
	KindMicrophone Kind = "microphone"

	// KindSystem captures the system playback loopback (what the machine
	// is playing — the interviewer's voice in a remote call).
	KindSystem Kind = "system"

	// KindBoth captures microphone and loopback simultaneously.
	KindBoth Kind = "both"
)

// IsValid reports whether k is a recognised capture kind.
func (k Kind) IsValid() bool {
	return k == KindMicrophone || k == KindSystem || k == KindBoth
}

// SampleFunc receives raw 16-bit LE PCM as it is captured. Implementations
// are invoked from the capture device's internal thread and must not block.
type SampleFunc func(pcm []byte)

// Config describes the capture format requested from the device.
type Config struct {
	// SampleRate in Hz. The device is asked for this rate directly; malgo
	// resamples internally when the hardware rate differs.
	SampleRate int

	// Channels is the requested channel count (1 for the STT pipeline).
	Channels int
}

// Source is a push-based audio supplier. Implementations deliver PCM to the
// SampleFunc registered at construction until Stop is called.
//
// Implementations must be safe for concurrent use.
type Source interface {
	// Start begins capture. The supplied ctx governs only the startup
	// attempt; once started, capture continues until Stop. Returns
	// [ErrPermissionDenied] (possibly wrapped) when device access fails.
	Start(ctx context.Context) error

	// Stop halts capture and releases the device. Safe to call more than
	// once; subsequent calls return nil.
	Stop() error
}

// Multi fans capture from several sources into one logical source. Start
// failures are unwound: if any underlying source fails to start, the ones
// already started are stopped before the error is returned.
type Multi struct {
	sources []Source
}

// NewMulti combines the given sources. Used for [KindBoth].
func NewMulti(sources ...Source) *Multi {
	return &Multi{sources: sources}
}

// Start implements [Source].
func (m *Multi) Start(ctx context.Context) error {
	for i, s := range m.sources {
		if err := s.Start(ctx); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = m.sources[j].Stop()
			}
			return err
		}
	}
	return nil
}

// Stop implements [Source]. All underlying sources are stopped; the first
// error encountered is returned.
func (m *Multi) Stop() error {
	var firstErr error
	for _, s := range m.sources {
		if err := s.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
