// Package transcript repairs technical terms that speech recognition
// reliably mishears ("coobernetties" for "kubernetes", "post grass" for
// "postgresql") before the text reaches question detection.
//
// Matching is two-stage per token:
//
//  1. Phonetic candidate filtering: Double Metaphone codes are computed for
//     the token and for each lexicon term. Terms sharing at least one code
//     with the token become candidates.
//
//  2. Jaro-Winkler ranking: among phonetic candidates, the term with the
//     highest Jaro-Winkler similarity (case-insensitive) wins, provided its
//     score clears the phonetic threshold. When no candidate survives, a
//     secondary pass tests pure Jaro-Winkler similarity against all terms
//     using a stricter fuzzy threshold.
//
// Multi-word terms ("load balancer") are handled by also testing bigram
// windows of the input. The corrector runs entirely in-process; it adds no
// latency worth measuring to the chunk cadence.
package transcript

import (
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.70
	defaultFuzzyThreshold    = 0.88
)

// Correction records one replaced span.
type Correction struct {
	// Original is the text as transcribed.
	Original string

	// Corrected is the lexicon term that replaced it.
	Corrected string

	// Score is the Jaro-Winkler similarity that justified the replacement.
	Score float64
}

// Option is a functional option for configuring a [Corrector].
type Option func(*Corrector)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score required for a
// phonetically-matched term to be accepted. Default: 0.70.
func WithPhoneticThreshold(threshold float64) Option {
	return func(c *Corrector) { c.phoneticThreshold = threshold }
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score required when no
// phonetic match is found. Default: 0.88.
func WithFuzzyThreshold(threshold float64) Option {
	return func(c *Corrector) { c.fuzzyThreshold = threshold }
}

// Corrector repairs misheard lexicon terms in transcribed text. Read-only
// after construction and safe for concurrent use.
type Corrector struct {
	lexicon           []string
	phoneticThreshold float64
	fuzzyThreshold    float64
}

// New returns a Corrector over the given lexicon. An empty lexicon yields a
// corrector whose Correct is the identity function.
func New(lexicon []string, opts ...Option) *Corrector {
	c := &Corrector{
		lexicon:           lexicon,
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Correct scans text token by token, replacing spans that phonetically match
// a lexicon term. The original casing of unmatched text and all punctuation
// is preserved.
func (c *Corrector) Correct(text string) (string, []Correction) {
	if len(c.lexicon) == 0 || strings.TrimSpace(text) == "" {
		return text, nil
	}

	tokens := strings.Fields(text)
	out := make([]string, 0, len(tokens))
	var corrections []Correction

	for i := 0; i < len(tokens); i++ {
		// Bigram window first so multi-word terms beat their halves.
		if i+1 < len(tokens) {
			pair := trimWord(tokens[i]) + " " + trimWord(tokens[i+1])
			if term, score, ok := c.match(pair); ok && strings.Contains(term, " ") {
				lead, _ := splitWord(tokens[i])
				_, trail := splitWord(tokens[i+1])
				out = append(out, lead+term+trail)
				corrections = append(corrections, Correction{Original: pair, Corrected: term, Score: score})
				i++
				continue
			}
		}

		lead, trail := splitWord(tokens[i])
		word := strings.TrimPrefix(strings.TrimSuffix(tokens[i], trail), lead)
		if term, score, ok := c.match(word); ok {
			out = append(out, lead+term+trail)
			corrections = append(corrections, Correction{Original: word, Corrected: term, Score: score})
			continue
		}
		out = append(out, tokens[i])
	}

	return strings.Join(out, " "), corrections
}

// match finds the lexicon term most phonetically similar to word. When
// matched is false, the word should be kept unchanged.
func (c *Corrector) match(word string) (term string, score float64, matched bool) {
	wordLower := strings.ToLower(word)
	if wordLower == "" {
		return "", 0, false
	}

	// An exact lexicon hit needs no correction.
	for _, t := range c.lexicon {
		if strings.EqualFold(t, word) {
			return "", 0, false
		}
	}

	inputCodes := metaphoneCodes(strings.Fields(wordLower))

	var (
		best         string
		bestScore    float64
		bestPhonetic bool
	)
	for _, entry := range c.lexicon {
		entryLower := strings.ToLower(strings.TrimSpace(entry))
		if entryLower == "" {
			continue
		}
		entryTokens := strings.Fields(entryLower)
		phonetic := codesOverlap(inputCodes, metaphoneCodes(entryTokens))
		jw := matchr.JaroWinkler(strings.ReplaceAll(wordLower, " ", ""), strings.Join(entryTokens, ""), false)

		switch {
		case phonetic && jw >= c.phoneticThreshold:
			if !bestPhonetic || jw > bestScore {
				best, bestScore, bestPhonetic = entry, jw, true
			}
		case !phonetic && !bestPhonetic && jw >= c.fuzzyThreshold && jw > bestScore:
			best, bestScore = entry, jw
		}
	}

	if best == "" {
		return "", 0, false
	}
	return best, bestScore, true
}

// metaphoneCodes returns the union of Double Metaphone codes for tokens.
// Empty codes are excluded.
func metaphoneCodes(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		p, s := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if s != "" {
			codes[s] = struct{}{}
		}
	}
	return codes
}

// codesOverlap reports whether the two code sets share at least one code.
func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}

// splitWord separates leading and trailing punctuation from a token.
func splitWord(token string) (lead, trail string) {
	start := 0
	for start < len(token) && !isWordRune(rune(token[start])) {
		start++
	}
	end := len(token)
	for end > start && !isWordRune(rune(token[end-1])) {
		end--
	}
	return token[:start], token[end:]
}

// trimWord strips surrounding punctuation from a token.
func trimWord(token string) string {
	lead, trail := splitWord(token)
	return strings.TrimPrefix(strings.TrimSuffix(token, trail), lead)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
