package store

import (
	"context"
	"errors"
	"strings"
	"testing"

	embmock "github.com/redparrot-ai/redparrot/pkg/provider/embeddings/mock"
)

func TestMemStore_SessionLifecycle(t *testing.T) {
	m := NewMemStore()
	ctx := context.Background()

	s, err := m.StartSession(ctx, "Acme")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if s.ID == "" || s.Company != "Acme" || s.StartedAt.IsZero() {
		t.Errorf("session = %+v", s)
	}

	if err := m.EndSession(ctx, s.ID); err != nil {
		t.Errorf("EndSession: %v", err)
	}
	if err := m.EndSession(ctx, "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("EndSession(missing) = %v, want ErrSessionNotFound", err)
	}
}

func TestMemStore_RecallOrdersByDistance(t *testing.T) {
	m := NewMemStore()
	ctx := context.Background()

	records := []AnswerRecord{
		{Question: "near", Answer: "a", Embedding: []float32{1, 0, 0}},
		{Question: "far", Answer: "b", Embedding: []float32{0, 1, 0}},
		{Question: "close", Answer: "c", Embedding: []float32{0.9, 0.1, 0}},
	}
	for _, rec := range records {
		if err := m.SaveAnswer(ctx, rec); err != nil {
			t.Fatalf("SaveAnswer: %v", err)
		}
	}

	got, err := m.RecallSimilar(ctx, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("RecallSimilar: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d results, want 2", len(got))
	}
	if got[0].Record.Question != "near" || got[1].Record.Question != "close" {
		t.Errorf("order = %q, %q", got[0].Record.Question, got[1].Record.Question)
	}
	if got[0].Distance > got[1].Distance {
		t.Errorf("distances not ascending: %v, %v", got[0].Distance, got[1].Distance)
	}
}

func TestMemStore_RecallSkipsMismatchedDimensions(t *testing.T) {
	m := NewMemStore()
	ctx := context.Background()

	m.SaveAnswer(ctx, AnswerRecord{Question: "q", Embedding: []float32{1, 0}})
	m.SaveAnswer(ctx, AnswerRecord{Question: "unembedded"})

	got, err := m.RecallSimilar(ctx, []float32{1, 0, 0}, 5)
	if err != nil {
		t.Fatalf("RecallSimilar: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d results, want 0", len(got))
	}
}

func TestRecaller_RememberThenContext(t *testing.T) {
	m := NewMemStore()
	r := NewRecaller(m, &embmock.Provider{}, 2)
	ctx := context.Background()

	err := r.Remember(ctx, AnswerRecord{
		Question: "How would you design a cache?",
		Answer:   "Layered cache with TTL jitter.",
	})
	if err != nil {
		t.Fatalf("Remember: %v", err)
	}

	lines, err := r.Context(ctx, "How would you design a cache?")
	if err != nil {
		t.Fatalf("Context: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("got %d recall lines, want 1", len(lines))
	}
	if !strings.Contains(lines[0], "Layered cache with TTL jitter.") {
		t.Errorf("recall line = %q", lines[0])
	}
}

func TestRecaller_EmbedFailureStillSaves(t *testing.T) {
	m := NewMemStore()
	r := NewRecaller(m, &embmock.Provider{EmbedErr: errors.New("quota")}, 0)
	ctx := context.Background()

	if err := r.Remember(ctx, AnswerRecord{Question: "q", Answer: "a"}); err != nil {
		t.Fatalf("Remember with failing embedder: %v", err)
	}
	if len(m.answers) != 1 {
		t.Fatalf("record not saved")
	}
	if m.answers[0].Embedding != nil {
		t.Errorf("failed embedding produced a vector")
	}
}

func TestRecaller_NilEmbedderDisablesRecall(t *testing.T) {
	r := NewRecaller(NewMemStore(), nil, 0)
	lines, err := r.Context(context.Background(), "anything")
	if err != nil || lines != nil {
		t.Errorf("got %v, %v; want nil, nil", lines, err)
	}
}
