package answer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode"

	"golang.org/x/sync/errgroup"

	"github.com/redparrot-ai/redparrot/internal/detector"
	"github.com/redparrot-ai/redparrot/pkg/provider/llm"
)

const (
	defaultTimeout = 30 * time.Second

	// generationTemperature keeps answers varied but on-topic.
	generationTemperature = 0.7
)

// Variant is one generated answer length. Exactly one of Text and Err is
// meaningful: a failed variant carries its error so the caller can show an
// explicit failure marker instead of stale or substituted text.
type Variant struct {
	// Length identifies which size this variant is.
	Length Length

	// Text is the polished answer. Empty when Err is non-nil.
	Text string

	// Err marks this variant as failed.
	Err error

	// Elapsed is how long the backend call took.
	Elapsed time.Duration
}

// Bundle collects the three variants generated for one question.
type Bundle struct {
	// Question is the detected question the bundle answers.
	Question *detector.Question

	// Variants holds one entry per length, failed or not.
	Variants map[Length]Variant

	// CreatedAt is when generation finished.
	CreatedAt time.Time
}

// Succeeded returns the variants that produced text, in canonical length
// order.
func (b *Bundle) Succeeded() []Variant {
	var out []Variant
	for _, l := range Lengths {
		if v, ok := b.Variants[l]; ok && v.Err == nil {
			out = append(out, v)
		}
	}
	return out
}

// Config tunes a [Generator].
type Config struct {
	// Timeout bounds each individual completion call. Default: 30s.
	Timeout time.Duration
}

// OnVariant is invoked as each variant finishes, successful or not. Called
// from the generator's worker goroutines.
type OnVariant func(v Variant)

// Generator fans a question out into three concurrent completion requests.
type Generator struct {
	provider llm.Provider
	timeout  time.Duration
}

// New creates a generator over the given LLM provider.
func New(provider llm.Provider, cfg Config) *Generator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Generator{provider: provider, timeout: cfg.Timeout}
}

// Generate produces all three length variants for q concurrently and waits
// for every variant to finish or fail. Partial failure never blocks the
// surviving variants; the returned bundle always contains an entry per
// length. onVariant may be nil.
func (g *Generator) Generate(ctx context.Context, q *detector.Question, pctx Context, onVariant OnVariant) *Bundle {
	system := BuildSystemPrompt(pctx)

	var mu sync.Mutex
	variants := make(map[Length]Variant, len(Lengths))

	// Failures land in the variant itself, so the group never aborts early
	// and always waits for all three lengths.
	var eg errgroup.Group
	for _, length := range Lengths {
		eg.Go(func() error {
			v := g.generateOne(ctx, system, q, length)
			mu.Lock()
			variants[length] = v
			mu.Unlock()
			if onVariant != nil {
				onVariant(v)
			}
			return nil
		})
	}
	eg.Wait()

	return &Bundle{
		Question:  q,
		Variants:  variants,
		CreatedAt: time.Now(),
	}
}

// generateOne runs the single completion call for one length variant.
func (g *Generator) generateOne(ctx context.Context, system string, q *detector.Question, length Length) Variant {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	resp, err := g.provider.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: system,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: BuildUserPrompt(q, length)},
		},
		Temperature: generationTemperature,
		MaxTokens:   maxTokensFor(length),
	})
	elapsed := time.Since(start)

	if err != nil {
		slog.Warn("answer variant failed",
			"length", length, "provider", g.provider.Name(), "err", err)
		return Variant{
			Length:  length,
			Err:     fmt.Errorf("answer: %s variant: %w", length, err),
			Elapsed: elapsed,
		}
	}

	return Variant{
		Length:  length,
		Text:    Polish(resp.Content),
		Elapsed: elapsed,
	}
}

// maxTokensFor leaves headroom above the word target so the model is not
// cut off mid-sentence.
func maxTokensFor(l Length) int {
	return l.WordTarget() * 2
}

// fillerPrefixes are openings models like to lead with. Longest first so the
// most specific phrase wins.
var fillerPrefixes = []string{
	"i'd be happy to help with that",
	"i'd be happy to",
	"great question",
	"here is",
	"here's",
	"certainly",
	"of course",
	"absolutely",
	"sure",
	"i'll",
}

// Polish strips a leading filler phrase from generated text and normalises
// the capitalisation of the first character.
func Polish(text string) string {
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)

	for _, filler := range fillerPrefixes {
		if !strings.HasPrefix(lower, filler) {
			continue
		}
		rest := trimmed[len(filler):]
		if rest != "" && unicode.IsLetter(rune(rest[0])) {
			// Not a phrase boundary, e.g. "surely".
			continue
		}
		// When the filler introduces the answer with a colon or its own
		// line, drop the whole intro clause.
		if i := strings.IndexAny(rest, ":\n"); i >= 0 && i < 60 {
			rest = rest[i+1:]
		}
		trimmed = strings.TrimLeft(rest, " ,.!:;\n")
		break
	}
	return capitalizeFirst(trimmed)
}

func capitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
