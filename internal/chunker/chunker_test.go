package chunker

import (
	"context"
	"encoding/binary"
	"testing"
	"time"

	"github.com/redparrot-ai/redparrot/pkg/audio"
)

// loudPCM builds a full-scale square wave of n samples.
func loudPCM(n int) []byte {
	out := make([]byte, n*2)
	for i := 0; i < n; i++ {
		s := int16(16000)
		if i%2 == 1 {
			s = -16000
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

func collectChunker(cfg Config) (*Chunker, *[]audio.AudioFrame) {
	frames := &[]audio.AudioFrame{}
	c := New(cfg, func(f audio.AudioFrame) {
		*frames = append(*frames, f)
	})
	return c, frames
}

func TestCut_EmitsSpeech(t *testing.T) {
	c, frames := collectChunker(Config{SampleRate: 16000, Channels: 1})

	pcm := loudPCM(16000)
	c.Push(pcm)
	c.cut()

	if len(*frames) != 1 {
		t.Fatalf("emitted %d frames, want 1", len(*frames))
	}
	f := (*frames)[0]
	if len(f.PCM) != len(pcm) {
		t.Errorf("frame bytes = %d, want %d", len(f.PCM), len(pcm))
	}
	if f.Duration != time.Second {
		t.Errorf("Duration = %v, want 1s", f.Duration)
	}
	if got := c.Stats(); got.Emitted != 1 || got.Dropped != 0 {
		t.Errorf("stats = %+v", got)
	}
}

func TestCut_DropsSilence(t *testing.T) {
	c, frames := collectChunker(Config{})

	c.Push(make([]byte, 16000*2))
	c.cut()

	if len(*frames) != 0 {
		t.Fatalf("silent chunk was emitted")
	}
	if got := c.Stats(); got.Dropped != 1 {
		t.Errorf("stats = %+v, want 1 drop", got)
	}
}

func TestCut_EmptyBufferIsNoop(t *testing.T) {
	c, frames := collectChunker(Config{})
	c.cut()

	if len(*frames) != 0 {
		t.Fatal("empty cut emitted a frame")
	}
	if got := c.Stats(); got != (Stats{}) {
		t.Errorf("stats = %+v, want zero", got)
	}
}

func TestCut_ResetsBufferEachTick(t *testing.T) {
	c, frames := collectChunker(Config{})

	c.Push(loudPCM(8000))
	c.cut()
	c.cut()

	if len(*frames) != 1 {
		t.Fatalf("emitted %d frames, want 1 (buffer must reset)", len(*frames))
	}
}

func TestRun_FlushesOnCancel(t *testing.T) {
	c, frames := collectChunker(Config{ChunkDuration: time.Hour})
	c.Push(loudPCM(4000))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()
	cancel()
	<-done

	if len(*frames) != 1 {
		t.Fatalf("emitted %d frames on shutdown flush, want 1", len(*frames))
	}
}
