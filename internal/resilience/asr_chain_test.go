package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/redparrot-ai/redparrot/pkg/provider/asr"
	asrmock "github.com/redparrot-ai/redparrot/pkg/provider/asr/mock"
)

func TestASRChain_FailsOverToBackup(t *testing.T) {
	primary := &asrmock.Provider{
		ProviderName: "primary",
		Errs:         []error{errBoom},
	}
	backup := &asrmock.Provider{
		ProviderName: "backup",
		Transcripts:  []*asr.Transcript{{Text: "walk me through your resume"}},
	}

	chain := NewASRChain(primary, testChainConfig())
	chain.Add(backup)

	got, err := chain.Transcribe(context.Background(), asr.Request{})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got.Text != "walk me through your resume" {
		t.Fatalf("Text = %q", got.Text)
	}
	if primary.CallCount() != 1 || backup.CallCount() != 1 {
		t.Fatalf("calls = %d/%d, want 1/1", primary.CallCount(), backup.CallCount())
	}
}

func TestASRChain_NoSpeechIsNotFailure(t *testing.T) {
	primary := &asrmock.Provider{
		ProviderName: "primary",
		Errs:         []error{asr.ErrNoSpeech},
	}
	backup := &asrmock.Provider{
		ProviderName: "backup",
		Transcripts:  []*asr.Transcript{{Text: "should not be reached"}},
	}

	chain := NewASRChain(primary, testChainConfig())
	chain.Add(backup)

	_, err := chain.Transcribe(context.Background(), asr.Request{})
	if !errors.Is(err, asr.ErrNoSpeech) {
		t.Fatalf("err = %v, want ErrNoSpeech", err)
	}
	if backup.CallCount() != 0 {
		t.Fatalf("backup was consulted %d times for silence", backup.CallCount())
	}
}

func TestASRChain_AllFail(t *testing.T) {
	primary := &asrmock.Provider{ProviderName: "primary", Errs: []error{errBoom}}
	chain := NewASRChain(primary, testChainConfig())

	_, err := chain.Transcribe(context.Background(), asr.Request{})
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("err = %v, want ErrExhausted", err)
	}
}
