package audio

import (
	"encoding/binary"
	"math"
	"testing"
	"time"
)

// pcm16 builds a little-endian PCM byte slice from int16 samples.
func pcm16(samples ...int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

func TestRMS_Silence(t *testing.T) {
	if got := RMS(pcm16(0, 0, 0, 0)); got != 0 {
		t.Fatalf("RMS of silence = %v, want 0", got)
	}
	if got := RMS(nil); got != 0 {
		t.Fatalf("RMS of empty = %v, want 0", got)
	}
}

func TestRMS_FullScale(t *testing.T) {
	// Alternating full-scale samples give RMS ≈ 1.0.
	got := RMS(pcm16(32767, -32768, 32767, -32768))
	if math.Abs(got-1.0) > 0.01 {
		t.Fatalf("RMS of full-scale = %v, want ~1.0", got)
	}
}

func TestStereoToMono_Averages(t *testing.T) {
	// One stereo frame: L=100, R=300 → mono 200.
	got := StereoToMono(pcm16(100, 300))
	want := pcm16(200)
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	if s := int16(binary.LittleEndian.Uint16(got)); s != 200 {
		t.Fatalf("mono sample = %d, want 200", s)
	}
}

func TestResampleMono16_Identity(t *testing.T) {
	in := pcm16(1, 2, 3, 4)
	got := ResampleMono16(in, 16000, 16000)
	if &got[0] != &in[0] {
		t.Fatal("same-rate resample should return input unchanged")
	}
}

func TestResampleMono16_Downsample(t *testing.T) {
	in := pcm16(0, 100, 200, 300, 400, 500, 600, 700)
	got := ResampleMono16(in, 32000, 16000)
	if len(got) != len(in)/2 {
		t.Fatalf("downsampled len = %d, want %d", len(got), len(in)/2)
	}
}

func TestPCMToFloat32_Mono(t *testing.T) {
	got := PCMToFloat32(pcm16(16384), 1)
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if math.Abs(float64(got[0])-0.5) > 0.001 {
		t.Fatalf("sample = %v, want ~0.5", got[0])
	}
}

func TestDurationOf(t *testing.T) {
	// 16000 mono samples at 16 kHz = 1 second.
	pcm := make([]byte, 16000*2)
	if got := DurationOf(pcm, 16000, 1); got != time.Second {
		t.Fatalf("DurationOf = %v, want 1s", got)
	}
}

func TestEncodeWAV_Header(t *testing.T) {
	pcm := pcm16(1, 2, 3)
	wav := EncodeWAV(pcm, 16000, 1)
	if len(wav) != wavHeaderSize+len(pcm) {
		t.Fatalf("wav len = %d, want %d", len(wav), wavHeaderSize+len(pcm))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Fatal("missing RIFF/WAVE magic")
	}
	if rate := binary.LittleEndian.Uint32(wav[24:28]); rate != 16000 {
		t.Fatalf("sample rate = %d, want 16000", rate)
	}
	if size := binary.LittleEndian.Uint32(wav[40:44]); int(size) != len(pcm) {
		t.Fatalf("data size = %d, want %d", size, len(pcm))
	}
}
