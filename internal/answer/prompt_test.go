package answer

import (
	"strings"
	"testing"

	"github.com/redparrot-ai/redparrot/internal/detector"
)

func TestBuildSystemPrompt_Sections(t *testing.T) {
	ctx := Context{
		Resume:             "Staff engineer, 8 years of Go.",
		JobDescription:     "Backend engineer on the payments team.",
		Company:            "Acme",
		CustomInstructions: "Mention the open-source work.",
		Recall:             []string{"Q: caching? A: layered cache with TTL jitter."},
	}
	got := BuildSystemPrompt(ctx)

	for _, want := range []string{
		"first person",
		"interviewing at Acme",
		"## Candidate Background",
		"Staff engineer, 8 years of Go.",
		"## Role",
		"## Answers Given to Similar Questions",
		"## Additional Instructions",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}
}

func TestBuildSystemPrompt_OmitsEmptySections(t *testing.T) {
	got := BuildSystemPrompt(Context{})
	if strings.Contains(got, "##") {
		t.Errorf("empty context rendered sections:\n%s", got)
	}
}

func TestBuildUserPrompt_Deterministic(t *testing.T) {
	q := behavioralQuestion()
	a := BuildUserPrompt(q, LengthMedium)
	b := BuildUserPrompt(q, LengthMedium)
	if a != b {
		t.Error("prompt construction is not deterministic")
	}
}

func TestBuildUserPrompt_EncodesLengthAndFormat(t *testing.T) {
	tests := []struct {
		length   Length
		wantWord string
		wantSecs string
	}{
		{LengthShort, "75 words", "30 seconds"},
		{LengthMedium, "150 words", "60 seconds"},
		{LengthLong, "225 words", "90 seconds"},
	}
	q := behavioralQuestion()
	for _, tt := range tests {
		got := BuildUserPrompt(q, tt.length)
		if !strings.Contains(got, tt.wantWord) || !strings.Contains(got, tt.wantSecs) {
			t.Errorf("%s prompt missing length target: %q", tt.length, got)
		}
		if !strings.Contains(got, "STAR") {
			t.Errorf("%s prompt missing STAR guidance", tt.length)
		}
	}
}

func TestBuildUserPrompt_TechnicalGuidance(t *testing.T) {
	q := &detector.Question{
		Text:     "What is the difference between TCP and UDP?",
		Type:     detector.TypeTechnical,
		Format:   detector.FormatTechnical,
		Keywords: []string{"performance"},
	}
	got := BuildUserPrompt(q, LengthShort)
	if !strings.Contains(got, "trade-offs") {
		t.Errorf("technical prompt missing structure guidance: %q", got)
	}
	if !strings.Contains(got, "Touch on: performance.") {
		t.Errorf("prompt missing keywords: %q", got)
	}
}
