package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redparrot-ai/redparrot/pkg/provider/embeddings"
)

// DefaultRecallLimit bounds how many past answers are injected into a
// prompt.
const DefaultRecallLimit = 3

// Recaller ties a [Store] to an embeddings provider: it embeds question
// text on the way in (Remember) and on the way out (Context). A nil
// embedder degrades gracefully to persistence without similarity recall.
type Recaller struct {
	store    Store
	embedder embeddings.Provider
	limit    int
}

// NewRecaller creates a Recaller. embedder may be nil; limit <= 0 selects
// [DefaultRecallLimit].
func NewRecaller(s Store, embedder embeddings.Provider, limit int) *Recaller {
	if limit <= 0 {
		limit = DefaultRecallLimit
	}
	return &Recaller{store: s, embedder: embedder, limit: limit}
}

// Remember persists one generated answer, embedding its question text when
// an embedder is configured. Embedding failures are logged and the record
// is saved without a vector rather than lost.
func (r *Recaller) Remember(ctx context.Context, rec AnswerRecord) error {
	if r.embedder != nil && rec.Question != "" {
		vec, err := r.embedder.Embed(ctx, rec.Question)
		if err != nil {
			slog.Warn("question embedding failed, saving without vector",
				"model", r.embedder.ModelID(), "err", err)
		} else {
			rec.Embedding = vec
		}
	}
	if err := r.store.SaveAnswer(ctx, rec); err != nil {
		return fmt.Errorf("store: remember: %w", err)
	}
	return nil
}

// Context returns prompt-ready lines describing answers previously given to
// questions similar to questionText. Returns nil when no embedder is
// configured or nothing similar is stored.
func (r *Recaller) Context(ctx context.Context, questionText string) ([]string, error) {
	if r.embedder == nil || questionText == "" {
		return nil, nil
	}

	vec, err := r.embedder.Embed(ctx, questionText)
	if err != nil {
		return nil, fmt.Errorf("store: recall embed: %w", err)
	}
	results, err := r.store.RecallSimilar(ctx, vec, r.limit)
	if err != nil {
		return nil, err
	}

	lines := make([]string, 0, len(results))
	for _, res := range results {
		lines = append(lines, fmt.Sprintf("Asked %q, answered: %s", res.Record.Question, res.Record.Answer))
	}
	return lines, nil
}
