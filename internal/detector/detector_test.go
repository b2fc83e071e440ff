package detector

import (
	"math"
	"strings"
	"testing"
	"time"
)

// clockDetector pins the detector's clock so debounce is deterministic.
func clockDetector(cfg Config) (*Detector, *time.Time) {
	d := New(cfg)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return now }
	return d, &now
}

func TestFeed_AccumulatesFragmentsUntilComplete(t *testing.T) {
	d, _ := clockDetector(Config{})

	if q := d.Feed("tell me about a time when"); q != nil {
		t.Fatalf("incomplete fragment emitted %+v", q)
	}
	q := d.Feed("you led a project?")
	if q == nil {
		t.Fatal("completed question was not emitted")
	}
	if q.Type != TypeBehavioral {
		t.Errorf("Type = %q, want behavioral", q.Type)
	}
	if q.Format != FormatSTAR {
		t.Errorf("Format = %q, want STAR", q.Format)
	}
	// 0.6 base, +0.2 question mark, +0.1 two interrogative words.
	if math.Abs(q.Confidence-0.9) > 1e-9 {
		t.Errorf("Confidence = %v, want 0.9", q.Confidence)
	}
	if q.Text != "Tell me about a time when you led a project?" {
		t.Errorf("Text = %q", q.Text)
	}
}

func TestFeed_ClassifiesCategories(t *testing.T) {
	tests := []struct {
		in         string
		wantType   QuestionType
		wantFormat FormatHint
	}{
		{"What is the difference between a process and a thread?", TypeTechnical, FormatTechnical},
		{"What would you do if a release broke production?", TypeSituational, FormatSTAR},
		{"What are your strengths as an engineer?", TypeCompetency, FormatConcise},
		{"Can you code a solution that reverses a linked list?", TypeCoding, FormatTechnical},
		{"How would you design a URL shortener?", TypeSystemDesign, FormatDetailed},
	}
	for _, tt := range tests {
		t.Run(string(tt.wantType), func(t *testing.T) {
			d, _ := clockDetector(Config{})
			q := d.Feed(tt.in)
			if q == nil {
				t.Fatalf("Feed(%q) emitted nothing", tt.in)
			}
			if q.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", q.Type, tt.wantType)
			}
			if q.Format != tt.wantFormat {
				t.Errorf("Format = %q, want %q", q.Format, tt.wantFormat)
			}
		})
	}
}

func TestFeed_GrowingUtteranceEmitsOnce(t *testing.T) {
	d, _ := clockDetector(Config{})

	var emitted []*Question
	for _, frag := range []string{
		"Tell",
		"Tell me about",
		"Tell me about a time when you led a team.",
	} {
		if q := d.Feed(frag); q != nil {
			emitted = append(emitted, q)
		}
	}

	if len(emitted) != 1 {
		t.Fatalf("emitted %d questions, want exactly 1", len(emitted))
	}
	q := emitted[0]
	if q.Type != TypeBehavioral || q.Format != FormatSTAR {
		t.Errorf("got %q/%q, want behavioral/STAR", q.Type, q.Format)
	}
	if q.Text != "Tell me about a time when you led a team." {
		t.Errorf("Text = %q", q.Text)
	}
}

func TestFeed_DuplicateFragmentIgnored(t *testing.T) {
	d, _ := clockDetector(Config{})

	d.Feed("how does garbage collection")
	d.Feed("how does garbage collection")
	q := d.Feed("work in go?")
	if q == nil {
		t.Fatal("question not emitted")
	}
	if strings.Count(strings.ToLower(q.Text), "garbage collection") != 1 {
		t.Errorf("duplicate fragment was appended twice: %q", q.Text)
	}
}

func TestFeed_SubstringFragmentNotReappended(t *testing.T) {
	d, _ := clockDetector(Config{})

	d.Feed("can you explain how indexes speed up")
	// Overlap repeats the tail of the previous fragment.
	d.Feed("indexes speed up")
	q := d.Feed("a database query?")
	if q == nil {
		t.Fatal("question not emitted")
	}
	if strings.Count(strings.ToLower(q.Text), "indexes speed up") != 1 {
		t.Errorf("overlapping text duplicated: %q", q.Text)
	}
}

func TestFeed_NonQuestionDiscardedOnce(t *testing.T) {
	d, _ := clockDetector(Config{})

	if q := d.Feed("I worked at a bank for five years."); q != nil {
		t.Fatalf("statement emitted as question: %+v", q)
	}
	if d.buffer != "" {
		t.Errorf("buffer = %q, want cleared after discard", d.buffer)
	}
	if q := d.Feed("It was a good job."); q != nil {
		t.Fatalf("discarded text re-emitted: %+v", q)
	}
}

func TestFeed_GeneralFallback(t *testing.T) {
	d, _ := clockDetector(Config{})

	q := d.Feed("Is this role fully remote?")
	if q == nil {
		t.Fatal("question not emitted")
	}
	if q.Type != TypeGeneral || q.Confidence != 0.5 {
		t.Errorf("got %q/%v, want general/0.5", q.Type, q.Confidence)
	}
	if q.Format != FormatConcise {
		t.Errorf("Format = %q, want concise", q.Format)
	}
}

func TestFeed_DebounceKeepsBuffer(t *testing.T) {
	d, now := clockDetector(Config{MinQuestionGap: 2 * time.Second})

	if q := d.Feed("How would you design a cache?"); q == nil {
		t.Fatal("first question not emitted")
	}

	*now = now.Add(500 * time.Millisecond)
	if q := d.Feed("What is the difference between tcp and udp"); q != nil {
		t.Fatalf("question emitted inside debounce window: %+v", q)
	}

	*now = now.Add(3 * time.Second)
	q := d.Feed("and when would you pick each?")
	if q == nil {
		t.Fatal("buffered question lost during debounce")
	}
	if !strings.Contains(strings.ToLower(q.Text), "tcp and udp") {
		t.Errorf("debounced text missing from emission: %q", q.Text)
	}
}

func TestFeed_ClosingPhraseCompletes(t *testing.T) {
	d, _ := clockDetector(Config{})

	q := d.Feed("tell me about your experience with concurrency please")
	if q == nil {
		t.Fatal("closing phrase did not complete the utterance")
	}
	if q.Type != TypeBehavioral {
		t.Errorf("Type = %q, want behavioral", q.Type)
	}
	if !strings.HasSuffix(q.Text, "?") {
		t.Errorf("cleaned text missing terminal punctuation: %q", q.Text)
	}
	if !strings.HasPrefix(q.Text, "Tell") {
		t.Errorf("cleaned text not capitalized: %q", q.Text)
	}
}

func TestFeed_KeywordExtraction(t *testing.T) {
	d, _ := clockDetector(Config{})

	q := d.Feed("How would you design a system covering api security and performance testing and deployment?")
	if q == nil {
		t.Fatal("question not emitted")
	}
	if len(q.Keywords) != maxKeywords {
		t.Fatalf("Keywords = %v, want %d entries", q.Keywords, maxKeywords)
	}
	want := []string{"design", "system", "api", "security", "performance"}
	for i, k := range want {
		if q.Keywords[i] != k {
			t.Errorf("Keywords[%d] = %q, want %q", i, q.Keywords[i], k)
		}
	}
}

func TestFeed_BufferTruncatedAtCap(t *testing.T) {
	d, _ := clockDetector(Config{})

	long := strings.Repeat("lorem ipsum dolor ", 30)
	if q := d.Feed(long); q != nil {
		t.Fatalf("filler emitted as question: %+v", q)
	}
	if len(d.buffer) > bufferKeep {
		t.Errorf("buffer length = %d, want <= %d after truncation", len(d.buffer), bufferKeep)
	}
}

func TestFeed_EmptyFragmentIsNoop(t *testing.T) {
	d, _ := clockDetector(Config{})
	if q := d.Feed("   "); q != nil {
		t.Fatalf("blank fragment emitted %+v", q)
	}
}

func TestReset_ClearsState(t *testing.T) {
	d, _ := clockDetector(Config{})
	d.Feed("how does a b-tree")
	d.Reset()
	if d.buffer != "" || d.lastFragment != "" {
		t.Errorf("state survived reset: buffer=%q lastFragment=%q", d.buffer, d.lastFragment)
	}
}
