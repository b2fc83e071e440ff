package detector

import "regexp"

// QuestionType classifies a detected interview question and drives the
// answer format hint.
type QuestionType string

const (
	TypeBehavioral   QuestionType = "behavioral"
	TypeTechnical    QuestionType = "technical"
	TypeSituational  QuestionType = "situational"
	TypeCompetency   QuestionType = "competency"
	TypeCoding       QuestionType = "coding"
	TypeSystemDesign QuestionType = "system-design"
	TypeGeneral      QuestionType = "general"
)

// FormatHint suggests how an answer to this question type should be shaped.
type FormatHint string

const (
	// FormatSTAR structures the answer as Situation, Task, Action, Result.
	FormatSTAR FormatHint = "STAR"

	// FormatTechnical leads with the direct technical answer, then
	// reasoning and trade-offs.
	FormatTechnical FormatHint = "technical"

	// FormatDetailed walks through requirements and architecture first.
	FormatDetailed FormatHint = "detailed"

	// FormatConcise answers directly without scaffolding.
	FormatConcise FormatHint = "concise"
)

// FormatFor maps a question type to its suggested answer format.
func FormatFor(t QuestionType) FormatHint {
	switch t {
	case TypeBehavioral, TypeSituational:
		return FormatSTAR
	case TypeTechnical, TypeCoding:
		return FormatTechnical
	case TypeSystemDesign:
		return FormatDetailed
	default:
		return FormatConcise
	}
}

// typePatterns pairs a question type with the phrase patterns that signal
// it. Evaluation order is fixed so that classification is deterministic
// when several categories match at the same confidence.
type typePatterns struct {
	qtype    QuestionType
	patterns []*regexp.Regexp
}

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile("(?i)" + e)
	}
	return out
}

// questionPatterns is the classification table, checked against the
// lower-cased buffer.
var questionPatterns = []typePatterns{
	{TypeBehavioral, compileAll(
		`tell me about a time when`,
		`describe a situation where`,
		`give me an example of`,
		`have you ever had to`,
		`can you share an experience`,
		`walk me through a time`,
		`describe a challenge you faced`,
		`tell me about your experience with`,
		`how did you handle`,
		`what did you do when`,
		`describe the most difficult`,
		`tell me about a project`,
	)},
	{TypeTechnical, compileAll(
		`how does .+ work`,
		`what is the difference between`,
		`explain .+ to me`,
		`how would you implement`,
		`what are the advantages of`,
		`can you explain`,
		`what is your understanding of`,
		`describe how .+ works`,
		`what happens when`,
		`why would you use`,
		`compare .+ and`,
		`what's the time complexity`,
		`how do you optimize`,
	)},
	{TypeSituational, compileAll(
		`what would you do if`,
		`how would you approach`,
		`imagine you`,
		`suppose you`,
		`if you were`,
		`how would you handle`,
		`what if`,
		`let's say`,
		`hypothetically`,
	)},
	{TypeCompetency, compileAll(
		`what are your strengths`,
		`what is your greatest`,
		`how do you prioritize`,
		`how do you manage`,
		`what's your approach to`,
		`how do you stay`,
		`what motivates you`,
		`how do you deal with`,
	)},
	{TypeCoding, compileAll(
		`write a function`,
		`implement .+ algorithm`,
		`solve this problem`,
		`code a solution`,
		`write code to`,
		`can you code`,
		`leetcode`,
		`hackerrank`,
		`data structure`,
		`reverse .+ string`,
		`find .+ in .+ array`,
		`sort .+ array`,
	)},
	{TypeSystemDesign, compileAll(
		`design a system`,
		`how would you design`,
		`architect .+ solution`,
		`scale .+ to`,
		`design .+ like`,
		`build .+ from scratch`,
		`high-level design`,
		`system architecture`,
	)},
}

// questionIndicators are openers that mark a sentence as interrogative.
// Multi-word entries match as a leading phrase.
var questionIndicators = []string{
	"what", "why", "how", "when", "where", "who", "which",
	"can you", "could you", "would you", "do you", "did you",
	"tell me", "describe", "explain", "share", "walk me through",
}

// interviewPhrases are mid-sentence markers typical of interviewer speech.
var interviewPhrases = []string{
	"tell me about", "walk me through", "describe",
	"explain", "what is your", "how do you", "why do you",
}

// closingPhrases mark the interviewer yielding the floor, which completes
// the buffered utterance even without terminal punctuation.
var closingPhrases = []string{
	"please", "thank you", "go ahead",
}

// interrogativeWords counts distinct question words for the confidence
// bonus.
var interrogativeWords = regexp.MustCompile(`(?i)\b(what|how|why|when|where|who|which|tell|describe|explain)\b`)

// technicalTerms extracts domain keywords from the question text.
var technicalTerms = regexp.MustCompile(`(?i)\b(api|database|algorithm|function|class|system|design|performance|security|testing|deployment)\b`)

// terminalPunct matches a sentence-final punctuation mark.
var terminalPunct = regexp.MustCompile(`[.?!]$`)
