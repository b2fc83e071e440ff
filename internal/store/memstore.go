package store

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"
)

// Compile-time interface check.
var _ Store = (*MemStore)(nil)

// MemStore is an in-memory [Store]. It is the default when no Postgres DSN
// is configured, and the fixture of choice in tests.
type MemStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	answers  []AnswerRecord
	nextID   int64
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{sessions: make(map[string]*Session)}
}

// StartSession implements [Store].
func (m *MemStore) StartSession(_ context.Context, company string) (*Session, error) {
	s := &Session{
		ID:        newSessionID(),
		Company:   company,
		StartedAt: time.Now(),
	}
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s, nil
}

// EndSession implements [Store].
func (m *MemStore) EndSession(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	s.EndedAt = time.Now()
	return nil
}

// SaveAnswer implements [Store].
func (m *MemStore) SaveAnswer(_ context.Context, rec AnswerRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	rec.ID = m.nextID
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	m.answers = append(m.answers, rec)
	return nil
}

// RecallSimilar implements [Store] with an exact cosine-distance scan.
func (m *MemStore) RecallSimilar(_ context.Context, embedding []float32, limit int) ([]RecallResult, error) {
	if len(embedding) == 0 || limit <= 0 {
		return nil, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var results []RecallResult
	for _, rec := range m.answers {
		if len(rec.Embedding) != len(embedding) {
			continue
		}
		results = append(results, RecallResult{
			Record:   rec,
			Distance: cosineDistance(embedding, rec.Embedding),
		})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Distance < results[j].Distance })
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Close implements [Store]. No-op for the in-memory store.
func (m *MemStore) Close() {}

// cosineDistance returns 1 - cosine similarity, matching pgvector's <=>
// operator.
func cosineDistance(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}
