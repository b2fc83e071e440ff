package answer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redparrot-ai/redparrot/internal/detector"
	"github.com/redparrot-ai/redparrot/pkg/provider/llm"
)

// OnToken receives incremental answer text as the model produces it. Tokens
// arrive in delivery order from a single goroutine.
type OnToken func(token string)

// GenerateStream produces a single length variant with incremental token
// delivery. Prompt construction and provider selection are identical to
// [Generator.Generate]; only the delivery mechanism differs. The returned
// variant carries the full polished text, or the error that ended the
// stream.
func (g *Generator) GenerateStream(ctx context.Context, q *detector.Question, pctx Context, length Length, onToken OnToken) Variant {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	chunks, err := g.provider.StreamCompletion(ctx, llm.CompletionRequest{
		SystemPrompt: BuildSystemPrompt(pctx),
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: BuildUserPrompt(q, length)},
		},
		Temperature: generationTemperature,
		MaxTokens:   maxTokensFor(length),
	})
	if err != nil {
		return Variant{
			Length:  length,
			Err:     fmt.Errorf("answer: %s stream: %w", length, err),
			Elapsed: time.Since(start),
		}
	}

	var sb strings.Builder
	var streamErr error
	for chunk := range chunks {
		if chunk.FinishReason == "error" {
			streamErr = fmt.Errorf("answer: %s stream: %s", length, chunk.Text)
			break
		}
		if chunk.Text != "" {
			sb.WriteString(chunk.Text)
			if onToken != nil {
				onToken(chunk.Text)
			}
		}
	}
	elapsed := time.Since(start)

	if streamErr != nil {
		return Variant{Length: length, Err: streamErr, Elapsed: elapsed}
	}
	return Variant{Length: length, Text: Polish(sb.String()), Elapsed: elapsed}
}
