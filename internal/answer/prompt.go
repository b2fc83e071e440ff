// Package answer turns detected interview questions into spoken-answer
// drafts.
//
// For every question the generator requests three length variants from the
// LLM backend concurrently, one prompt per target speaking time. Prompt
// construction is deterministic for a given (question, context, length)
// triple so canned-backend tests stay reproducible.
package answer

import (
	"fmt"
	"strings"
	"time"

	"github.com/redparrot-ai/redparrot/internal/detector"
)

// Length selects one answer variant size.
type Length string

const (
	// LengthShort targets roughly 75 words, 30 seconds of speech.
	LengthShort Length = "short"

	// LengthMedium targets roughly 150 words, 60 seconds of speech.
	LengthMedium Length = "medium"

	// LengthLong targets roughly 225 words, 90 seconds of speech.
	LengthLong Length = "long"
)

// Lengths lists every variant in generation order.
var Lengths = []Length{LengthShort, LengthMedium, LengthLong}

// IsValid reports whether l is a recognised length.
func (l Length) IsValid() bool {
	return l == LengthShort || l == LengthMedium || l == LengthLong
}

// WordTarget is the approximate word count an answer of this length should
// have.
func (l Length) WordTarget() int {
	switch l {
	case LengthShort:
		return 75
	case LengthLong:
		return 225
	default:
		return 150
	}
}

// SpeakingTime is how long an answer of this length takes to say out loud.
func (l Length) SpeakingTime() time.Duration {
	switch l {
	case LengthShort:
		return 30 * time.Second
	case LengthLong:
		return 90 * time.Second
	default:
		return 60 * time.Second
	}
}

// Context carries the candidate and role information woven into every
// prompt. All fields are optional; empty sections are omitted.
type Context struct {
	// Resume is the candidate's background rendered as plain text.
	Resume string

	// JobDescription is the role being interviewed for.
	JobDescription string

	// Company is the hiring company's name.
	Company string

	// CustomInstructions is free-form user guidance appended to the system
	// prompt.
	CustomInstructions string

	// Recall holds answers to similar questions from earlier sessions,
	// retrieved from the session store.
	Recall []string
}

// BuildSystemPrompt renders the role and candidate context into the system
// prompt shared by all three length variants of one question.
func BuildSystemPrompt(ctx Context) string {
	var sb strings.Builder
	sb.WriteString("You are an interview answer assistant. You draft answers the candidate " +
		"can speak aloud, written in the first person as the candidate. " +
		"Be specific and natural; never mention that you are an AI or that the answer was generated.")

	if ctx.Company != "" {
		sb.WriteString(fmt.Sprintf("\n\nThe candidate is interviewing at %s.", ctx.Company))
	}
	if ctx.Resume != "" {
		sb.WriteString("\n\n## Candidate Background\n")
		sb.WriteString(ctx.Resume)
	}
	if ctx.JobDescription != "" {
		sb.WriteString("\n\n## Role\n")
		sb.WriteString(ctx.JobDescription)
	}
	if len(ctx.Recall) > 0 {
		sb.WriteString("\n\n## Answers Given to Similar Questions\n")
		for _, r := range ctx.Recall {
			sb.WriteString("- ")
			sb.WriteString(r)
			sb.WriteString("\n")
		}
	}
	if ctx.CustomInstructions != "" {
		sb.WriteString("\n\n## Additional Instructions\n")
		sb.WriteString(ctx.CustomInstructions)
	}
	return sb.String()
}

// BuildUserPrompt renders one question and length target into the user
// message for a single completion request.
func BuildUserPrompt(q *detector.Question, length Length) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("The interviewer asked a %s question:\n\n%q\n\n", q.Type, q.Text))
	sb.WriteString(fmt.Sprintf("Draft an answer of about %d words (%.0f seconds of speech). ",
		length.WordTarget(), length.SpeakingTime().Seconds()))
	sb.WriteString(formatGuidance(q.Format))
	if len(q.Keywords) > 0 {
		sb.WriteString(fmt.Sprintf(" Touch on: %s.", strings.Join(q.Keywords, ", ")))
	}
	return sb.String()
}

// formatGuidance spells out the structure the answer should follow for each
// format hint.
func formatGuidance(f detector.FormatHint) string {
	switch f {
	case detector.FormatSTAR:
		return "Structure it as STAR: the Situation, the Task you owned, the Action you took, and the measurable Result."
	case detector.FormatTechnical:
		return "Lead with the direct technical answer, then explain the reasoning and trade-offs. Include a short concrete example, with code if the question calls for it."
	case detector.FormatDetailed:
		return "Start from requirements and constraints, then walk through the architecture component by component, and close with scaling considerations."
	default:
		return "Answer directly and conversationally without extra scaffolding."
	}
}
