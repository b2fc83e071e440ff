// Package detector accumulates transcribed speech fragments and decides
// when the interviewer has finished asking a question.
//
// Transcription hands the detector short fragments on a fixed cadence, so a
// single question usually arrives in pieces. The detector buffers fragments
// until the utterance looks complete, tests whether it reads as a question,
// classifies it into an interview category, and emits a cleaned [Question]
// at most once per debounce window. Text that completes but does not read
// as a question is discarded and never re-emitted.
package detector

import (
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode"
)

const (
	// defaultMinQuestionGap suppresses re-detection while an answer for the
	// previous question is still being generated.
	defaultMinQuestionGap = 2 * time.Second

	// bufferCap is the maximum buffered length before truncation.
	bufferCap = 400

	// bufferKeep is the trailing window kept when the cap is exceeded.
	bufferKeep = 300

	// minConfidence rejects classifications too weak to act on.
	minConfidence = 0.3

	// maxKeywords caps the extracted keyword list.
	maxKeywords = 5
)

// Question is a detected, cleaned interview question ready for answer
// generation.
type Question struct {
	// Text is the cleaned question: leading capital, terminal punctuation.
	Text string

	// Type is the interview category the question was classified into.
	Type QuestionType

	// Confidence is the detection confidence in [0,1].
	Confidence float64

	// Keywords are up to five technical terms found in the question.
	Keywords []string

	// Format is the suggested answer structure for this question type.
	Format FormatHint

	// DetectedAt is when the question was emitted.
	DetectedAt time.Time
}

// Config tunes a [Detector].
type Config struct {
	// MinQuestionGap is the debounce window between emitted questions.
	// Default: 2s.
	MinQuestionGap time.Duration
}

// Detector turns a stream of transcript fragments into detected questions.
// Methods must not be called concurrently from multiple goroutines; the
// pipeline feeds it from a single loop.
type Detector struct {
	cfg Config
	now func() time.Time

	mu           sync.Mutex
	buffer       string
	lastFragment string
	lastEmit     time.Time
}

// New creates a detector. Zero-value config fields take the documented
// defaults.
func New(cfg Config) *Detector {
	if cfg.MinQuestionGap <= 0 {
		cfg.MinQuestionGap = defaultMinQuestionGap
	}
	return &Detector{cfg: cfg, now: time.Now}
}

// Feed appends one transcript fragment and returns a detected question, or
// nil when the buffered speech is incomplete, not a question, or debounced.
func (d *Detector) Feed(fragment string) *Question {
	frag := strings.TrimSpace(fragment)
	if frag == "" {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	// Overlapping chunk windows make the transcriber repeat itself.
	if frag == d.lastFragment {
		return nil
	}
	d.lastFragment = frag

	lowerBuf := strings.ToLower(d.buffer)
	lowerFrag := strings.ToLower(frag)
	switch {
	case d.buffer == "":
		d.buffer = frag
	case strings.Contains(lowerBuf, lowerFrag):
		// Fragment is already buffered, an upstream retrigger.
	case strings.Contains(lowerFrag, lowerBuf):
		// Fragment extends the buffer, as when the transcriber re-emits a
		// growing utterance. Keep the longest form only.
		d.buffer = frag
	default:
		d.buffer = strings.TrimSpace(d.buffer + " " + frag)
	}
	if len(d.buffer) > bufferCap {
		d.buffer = strings.TrimSpace(d.buffer[len(d.buffer)-bufferKeep:])
	}

	lower := strings.ToLower(d.buffer)
	if !isComplete(lower) {
		return nil
	}

	if !looksLikeQuestion(lower) {
		slog.Debug("discarding completed non-question", "len", len(d.buffer))
		d.buffer = ""
		return nil
	}

	qtype, confidence := classify(lower)
	if confidence < minConfidence {
		d.buffer = ""
		return nil
	}

	now := d.now()
	if !d.lastEmit.IsZero() && now.Sub(d.lastEmit) < d.cfg.MinQuestionGap {
		// Debounced. The buffer stays so the question can still emit once
		// the gap has passed.
		return nil
	}

	q := &Question{
		Text:       cleanText(d.buffer),
		Type:       qtype,
		Confidence: confidence,
		Keywords:   extractKeywords(lower),
		Format:     FormatFor(qtype),
		DetectedAt: now,
	}
	d.lastEmit = now
	d.buffer = ""
	slog.Debug("question detected",
		"type", q.Type, "confidence", q.Confidence, "keywords", q.Keywords)
	return q
}

// Reset clears all buffered state. Used when a session stops.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.buffer = ""
	d.lastFragment = ""
	d.lastEmit = time.Time{}
}

// isComplete reports whether the lower-cased buffer reads as a finished
// utterance rather than a mid-sentence fragment.
func isComplete(lower string) bool {
	if terminalPunct.MatchString(lower) {
		return true
	}
	for _, phrase := range closingPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	words := strings.Fields(lower)
	if len(words) >= 8 {
		first := words[0]
		for _, ind := range questionIndicators {
			if strings.HasPrefix(first, strings.Fields(ind)[0]) {
				return true
			}
		}
	}
	return false
}

// looksLikeQuestion reports whether the lower-cased buffer is interrogative
// at all, before any category classification.
func looksLikeQuestion(lower string) bool {
	if strings.Contains(lower, "?") {
		return true
	}
	for _, ind := range questionIndicators {
		if strings.HasPrefix(lower, ind+" ") || strings.HasPrefix(lower, ind+",") {
			return true
		}
	}
	for _, phrase := range interviewPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// classify matches the buffer against the category tables. Text that
// matches no category falls back to general at fixed 0.5 confidence.
func classify(lower string) (QuestionType, float64) {
	for _, tp := range questionPatterns {
		for _, re := range tp.patterns {
			if re.MatchString(lower) {
				return tp.qtype, confidenceOf(lower)
			}
		}
	}
	return TypeGeneral, 0.5
}

// confidenceOf scores how question-like the text is: 0.6 base, bonuses for
// a question mark and for multiple interrogative words, a penalty for very
// short text, clamped to [0,1].
func confidenceOf(lower string) float64 {
	confidence := 0.6
	if strings.Contains(lower, "?") {
		confidence += 0.2
	}
	if distinctInterrogatives(lower) >= 2 {
		confidence += 0.1
	}
	if len(strings.Fields(lower)) < 5 {
		confidence -= 0.2
	}
	if confidence < 0 {
		return 0
	}
	if confidence > 1 {
		return 1
	}
	return confidence
}

func distinctInterrogatives(lower string) int {
	seen := make(map[string]struct{})
	for _, m := range interrogativeWords.FindAllString(lower, -1) {
		seen[m] = struct{}{}
	}
	return len(seen)
}

// extractKeywords pulls recognized technical terms out of the question,
// deduplicated in order of first appearance.
func extractKeywords(lower string) []string {
	var keywords []string
	seen := make(map[string]struct{})
	for _, m := range technicalTerms.FindAllString(lower, -1) {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		keywords = append(keywords, m)
		if len(keywords) == maxKeywords {
			break
		}
	}
	return keywords
}

// cleanText capitalizes the first letter and guarantees terminal
// punctuation, appending a question mark when none is present.
func cleanText(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return text
	}
	runes := []rune(text)
	runes[0] = unicode.ToUpper(runes[0])
	text = string(runes)
	if !terminalPunct.MatchString(text) {
		text += "?"
	}
	return text
}
