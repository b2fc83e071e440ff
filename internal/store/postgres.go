package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

// Compile-time interface check.
var _ Store = (*PGStore)(nil)

const ddlSessions = `
CREATE TABLE IF NOT EXISTS sessions (
    id          TEXT         PRIMARY KEY,
    company     TEXT         NOT NULL DEFAULT '',
    started_at  TIMESTAMPTZ  NOT NULL DEFAULT now(),
    ended_at    TIMESTAMPTZ
);
`

// ddlAnswers is instantiated with the embedding dimension, which must match
// the configured embeddings model.
const ddlAnswers = `
CREATE TABLE IF NOT EXISTS answers (
    id             BIGSERIAL    PRIMARY KEY,
    session_id     TEXT         NOT NULL REFERENCES sessions (id),
    question       TEXT         NOT NULL,
    question_type  TEXT         NOT NULL DEFAULT '',
    answer         TEXT         NOT NULL,
    length         TEXT         NOT NULL DEFAULT '',
    embedding      vector(%d),
    created_at     TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_answers_session_id
    ON answers (session_id);

CREATE INDEX IF NOT EXISTS idx_answers_embedding
    ON answers USING hnsw (embedding vector_cosine_ops);
`

// PGStore is the PostgreSQL-backed [Store]. Similarity recall runs over a
// pgvector HNSW index with cosine distance.
type PGStore struct {
	pool *pgxpool.Pool
}

// Ping verifies database connectivity. Used by the readiness probe.
func (p *PGStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// NewPGStore connects to the database at dsn, registers pgvector types on
// every connection, and ensures the schema exists. embeddingDimensions must
// match the embeddings model; changing it later requires a manual schema
// migration.
func NewPGStore(ctx context.Context, dsn string, embeddingDimensions int) (*PGStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("store: parse dsn: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("store: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}

	if err := migrate(ctx, pool, embeddingDimensions); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return &PGStore{pool: pool}, nil
}

// migrate installs the pgvector extension and creates the tables.
func migrate(ctx context.Context, pool *pgxpool.Pool, dims int) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		ddlSessions,
		fmt.Sprintf(ddlAnswers, dims),
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// StartSession implements [Store].
func (p *PGStore) StartSession(ctx context.Context, company string) (*Session, error) {
	s := &Session{
		ID:        newSessionID(),
		Company:   company,
		StartedAt: time.Now(),
	}
	const q = `INSERT INTO sessions (id, company, started_at) VALUES ($1, $2, $3)`
	if _, err := p.pool.Exec(ctx, q, s.ID, s.Company, s.StartedAt); err != nil {
		return nil, fmt.Errorf("store: start session: %w", err)
	}
	return s, nil
}

// EndSession implements [Store].
func (p *PGStore) EndSession(ctx context.Context, sessionID string) error {
	const q = `UPDATE sessions SET ended_at = now() WHERE id = $1`
	tag, err := p.pool.Exec(ctx, q, sessionID)
	if err != nil {
		return fmt.Errorf("store: end session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// SaveAnswer implements [Store].
func (p *PGStore) SaveAnswer(ctx context.Context, rec AnswerRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	var embedding any
	if len(rec.Embedding) > 0 {
		embedding = pgvector.NewVector(rec.Embedding)
	}

	const q = `
		INSERT INTO answers
		    (session_id, question, question_type, answer, length, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := p.pool.Exec(ctx, q,
		rec.SessionID,
		rec.Question,
		rec.QuestionType,
		rec.Answer,
		rec.Length,
		embedding,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("store: save answer: %w", err)
	}
	return nil
}

// RecallSimilar implements [Store]. Records saved without an embedding are
// excluded.
func (p *PGStore) RecallSimilar(ctx context.Context, embedding []float32, limit int) ([]RecallResult, error) {
	if len(embedding) == 0 || limit <= 0 {
		return nil, nil
	}

	const q = `
		SELECT id, session_id, question, question_type, answer, length, created_at,
		       embedding <=> $1 AS distance
		FROM   answers
		WHERE  embedding IS NOT NULL
		ORDER  BY distance
		LIMIT  $2`

	rows, err := p.pool.Query(ctx, q, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("store: recall: %w", err)
	}

	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (RecallResult, error) {
		var r RecallResult
		err := row.Scan(
			&r.Record.ID,
			&r.Record.SessionID,
			&r.Record.Question,
			&r.Record.QuestionType,
			&r.Record.Answer,
			&r.Record.Length,
			&r.Record.CreatedAt,
			&r.Distance,
		)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("store: recall scan: %w", err)
	}
	return results, nil
}

// Close releases the connection pool.
func (p *PGStore) Close() {
	p.pool.Close()
}
