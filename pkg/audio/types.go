// Package audio defines the frame type and PCM helpers shared by the capture
// and transcription stages of the RedParrot pipeline.
//
// All PCM data is 16-bit little-endian signed integer samples. Mono at 16 kHz
// is the canonical pipeline format (what Whisper-family models expect);
// conversion helpers bring other capture formats into line.
package audio

import "time"

// DefaultSampleRate is the canonical pipeline sample rate in Hz.
const DefaultSampleRate = 16000

// AudioFrame is one fixed-duration slice of captured audio flowing through
// the pipeline. Frames are produced by the chunker and owned exclusively by
// the transcription stage until transcribed; they are not retained afterward.
type AudioFrame struct {
	// PCM is 16-bit little-endian signed PCM data.
	PCM []byte

	// SampleRate in Hz (e.g., 16000).
	SampleRate int

	// Channels is the channel count. The chunker always emits mono.
	Channels int

	// Start marks when the first sample of this frame was captured.
	Start time.Time

	// Duration is the audible length of the frame.
	Duration time.Duration
}

// DurationOf computes the playback duration of a PCM byte slice.
func DurationOf(pcm []byte, sampleRate, channels int) time.Duration {
	if sampleRate <= 0 || channels <= 0 {
		return 0
	}
	samples := len(pcm) / (2 * channels)
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}
