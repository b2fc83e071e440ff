// Package store persists interview sessions and the answers generated in
// them, and retrieves answers to similar past questions for prompt context.
//
// Two implementations exist: [MemStore] for tests and credential-less runs,
// and the PostgreSQL-backed [PGStore] which uses pgvector for the similarity
// index. Both are safe for concurrent use.
package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"
)

// ErrSessionNotFound is returned when a session ID is unknown to the store.
var ErrSessionNotFound = errors.New("store: session not found")

// Session is one interview run.
type Session struct {
	// ID uniquely identifies the session.
	ID string

	// Company is the hiring company, when configured.
	Company string

	// StartedAt is when the pipeline started.
	StartedAt time.Time

	// EndedAt is when the session was closed. Zero while still running.
	EndedAt time.Time
}

// AnswerRecord is one generated answer persisted for later recall.
type AnswerRecord struct {
	// ID is assigned by the store on save.
	ID int64

	// SessionID links the record to its session.
	SessionID string

	// Question is the cleaned question text.
	Question string

	// QuestionType is the detected category.
	QuestionType string

	// Answer is the generated answer text.
	Answer string

	// Length is the variant size ("short", "medium", "long").
	Length string

	// Embedding is the question's embedding vector. May be nil when no
	// embeddings provider is configured; such records are excluded from
	// similarity recall.
	Embedding []float32

	// CreatedAt is when the answer was generated.
	CreatedAt time.Time
}

// RecallResult pairs a recalled record with its cosine distance to the
// query. Smaller is more similar.
type RecallResult struct {
	Record   AnswerRecord
	Distance float64
}

// Store is the persistence abstraction used by the pipeline.
type Store interface {
	// StartSession creates and returns a new session.
	StartSession(ctx context.Context, company string) (*Session, error)

	// EndSession marks the session as finished.
	EndSession(ctx context.Context, sessionID string) error

	// SaveAnswer persists one generated answer.
	SaveAnswer(ctx context.Context, rec AnswerRecord) error

	// RecallSimilar returns up to limit records whose question embeddings
	// are closest to embedding, most similar first.
	RecallSimilar(ctx context.Context, embedding []float32, limit int) ([]RecallResult, error)

	// Close releases any held resources.
	Close()
}

// newSessionID returns a random 16-byte hex identifier.
func newSessionID() string {
	var b [16]byte
	rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
