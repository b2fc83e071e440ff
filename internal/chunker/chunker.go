// Package chunker slices the continuous capture stream into fixed-duration
// chunks for transcription.
//
// The chunker is push-based on the input side (capture callbacks append PCM
// under a lock) and timer-driven on the output side: every chunk interval
// the accumulated buffer is cut, gated on RMS energy, and either emitted as
// an [audio.AudioFrame] or dropped as silence. The buffer always resets on
// the tick, so a chunk never spans two intervals.
package chunker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/redparrot-ai/redparrot/pkg/audio"
)

// EmitFunc receives each speech chunk the chunker produces. It is called
// from the chunker's timer goroutine and should hand off quickly.
type EmitFunc func(frame audio.AudioFrame)

// Config tunes a [Chunker].
type Config struct {
	// SampleRate of the incoming PCM in Hz. Default: 16000.
	SampleRate int

	// Channels of the incoming PCM. Default: 1.
	Channels int

	// ChunkDuration is the slice interval. Default: 3s.
	ChunkDuration time.Duration

	// RMSThreshold is the normalised energy gate in [0,1]. Chunks below it
	// are dropped as silence. Default: 0.01.
	RMSThreshold float64
}

// Stats counts chunker outcomes. Retrieved via [Chunker.Stats].
type Stats struct {
	// Emitted is the number of speech chunks handed to the emit callback.
	Emitted uint64

	// Dropped is the number of chunks discarded by the silence gate.
	Dropped uint64
}

// Chunker accumulates PCM and emits fixed-duration speech chunks.
type Chunker struct {
	cfg  Config
	emit EmitFunc

	mu    sync.Mutex
	buf   []byte
	start time.Time
	stats Stats
}

// New creates a chunker delivering chunks to emit. Zero-value config fields
// are replaced with the documented defaults.
func New(cfg Config, emit EmitFunc) *Chunker {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = audio.DefaultSampleRate
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.ChunkDuration <= 0 {
		cfg.ChunkDuration = 3 * time.Second
	}
	if cfg.RMSThreshold <= 0 {
		cfg.RMSThreshold = 0.01
	}
	return &Chunker{cfg: cfg, emit: emit}
}

// Push appends captured PCM to the current chunk. Safe to call from the
// capture device's data thread.
func (c *Chunker) Push(pcm []byte) {
	if len(pcm) == 0 {
		return
	}
	c.mu.Lock()
	if len(c.buf) == 0 {
		c.start = time.Now()
	}
	c.buf = append(c.buf, pcm...)
	c.mu.Unlock()
}

// Run drives the chunk timer until ctx is done. A partial chunk remaining at
// shutdown is cut one last time so trailing speech is not lost.
func (c *Chunker) Run(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.ChunkDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.cut()
			return
		case <-ticker.C:
			c.cut()
		}
	}
}

// Stats returns a snapshot of the emit/drop counters.
func (c *Chunker) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// cut takes the accumulated buffer, applies the silence gate, and emits or
// drops it. The buffer is reset regardless of the outcome.
func (c *Chunker) cut() {
	c.mu.Lock()
	pcm := c.buf
	start := c.start
	c.buf = nil

	if len(pcm) == 0 {
		c.mu.Unlock()
		return
	}

	rms := audio.RMS(pcm)
	if rms < c.cfg.RMSThreshold {
		c.stats.Dropped++
		c.mu.Unlock()
		slog.Debug("chunk dropped as silence", "rms", rms, "bytes", len(pcm))
		return
	}
	c.stats.Emitted++
	c.mu.Unlock()

	c.emit(audio.AudioFrame{
		PCM:        pcm,
		SampleRate: c.cfg.SampleRate,
		Channels:   c.cfg.Channels,
		Start:      start,
		Duration:   audio.DurationOf(pcm, c.cfg.SampleRate, c.cfg.Channels),
	})
}
