// Package profile builds the candidate context injected into answer
// prompts: a structured resume parsed from plain text, the job description,
// and the hiring company.
//
// Parsing is heuristic and section-based. File-format extraction (PDF,
// DOCX) is out of scope; callers supply plain text.
package profile

import (
	"regexp"
	"strings"
)

const (
	maxExperienceItems = 5
	maxSkills          = 30
	maxEducationItems  = 3
	maxProjects        = 5
)

// Experience is one employment entry.
type Experience struct {
	Company  string
	Role     string
	Duration string
}

// Education is one degree entry.
type Education struct {
	Degree string
	Year   string
}

// Project is one personal or side project entry.
type Project struct {
	Name         string
	Description  string
	Technologies []string
}

// Resume is the structured result of parsing a plain-text resume.
type Resume struct {
	// RawText is the unmodified input.
	RawText string

	Name       string
	Title      string
	Summary    string
	Skills     []string
	Experience []Experience
	Education  []Education
	Projects   []Project

	// ParseConfidence estimates how much of the resume was recognised, in
	// [0,1].
	ParseConfidence float64
}

// skillKeywords are technologies recognised anywhere in the resume text.
var skillKeywords = []string{
	"javascript", "typescript", "python", "java", "c++", "c#", "ruby", "go", "rust", "swift",
	"kotlin", "php", "scala", "matlab", "perl", "sql", "html", "css", "sass", "less",
	"react", "angular", "vue", "node.js", "express", "django", "flask", "spring", "rails",
	"next.js", "nuxt", "svelte", "jquery", "bootstrap", "tailwind", "material-ui", "redux",
	"aws", "azure", "gcp", "docker", "kubernetes", "terraform", "jenkins", "gitlab", "github",
	"circleci", "ansible", "puppet", "chef", "nginx", "apache", "linux", "unix", "bash",
	"postgresql", "mysql", "mongodb", "redis", "elasticsearch", "cassandra", "dynamodb",
	"oracle", "sqlite", "neo4j", "graphql", "rest", "api",
	"machine learning", "deep learning", "tensorflow", "pytorch", "keras", "scikit-learn",
	"nlp", "computer vision", "data science", "pandas", "numpy", "jupyter",
}

var experienceHeaders = []string{
	"experience", "work experience", "professional experience", "employment history",
	"work history", "career history", "professional background",
}

var summaryHeaders = []string{
	"professional summary", "summary", "about", "profile", "objective",
}

var (
	namePattern     = regexp.MustCompile(`^([A-Z][a-z]+\s+){1,3}[A-Z][a-z]+$`)
	titlePattern    = regexp.MustCompile(`(?i)senior|junior|lead|principal|staff|engineer|developer|manager|director|analyst|designer|architect|consultant`)
	contactPattern  = regexp.MustCompile(`(?i)@|\+?\d{1,3}[-.\s]?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}|linkedin\.com|github\.com|http`)
	expEntryPattern = regexp.MustCompile(`(?im)^([A-Z][^•\n|]+?)\s*[|•–-]\s*([^•\n|]+?)(?:\s*[|•–-]\s*(\d{4}\s*[–-]\s*(?:\d{4}|present|current)))?\s*$`)
	degreePattern   = regexp.MustCompile(`(?im)(bachelor|master|phd|doctorate|mba|bsc|msc|bs|ba|ms|ma)[^\n]*?(?:\s+(?:in|of)\s+([^\n,]+))?$`)
	yearPattern     = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	projectName     = regexp.MustCompile(`^[•*-]?\s*([^:–-]+)`)
	multiSpace      = regexp.MustCompile(` +`)
	multiBlank      = regexp.MustCompile(`\n\s*\n`)
)

// ParseResume parses a plain-text resume into structured fields. It never
// fails; unrecognised sections are simply left empty and reflected in
// ParseConfidence.
func ParseResume(text string) *Resume {
	normalized := normalize(text)

	r := &Resume{
		RawText:    text,
		Name:       extractName(normalized),
		Title:      extractTitle(normalized),
		Summary:    extractSummary(normalized),
		Skills:     extractSkills(normalized),
		Experience: extractExperience(normalized),
		Education:  extractEducation(normalized),
		Projects:   extractProjects(normalized),
	}
	r.ParseConfidence = confidence(r)
	return r
}

func normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, "\t", " ")
	text = multiSpace.ReplaceAllString(text, " ")
	text = multiBlank.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

func nonEmptyLines(text string) []string {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func extractName(text string) string {
	lines := nonEmptyLines(text)
	if len(lines) > 5 {
		lines = lines[:5]
	}
	for _, line := range lines {
		if contactPattern.MatchString(line) || isSectionHeader(line) {
			continue
		}
		if namePattern.MatchString(line) {
			return line
		}
		if len(line) > 3 && len(line) < 50 {
			return line
		}
	}
	return ""
}

func extractTitle(text string) string {
	lines := nonEmptyLines(text)
	if len(lines) > 10 {
		lines = lines[:10]
	}
	for _, line := range lines {
		if len(line) > 5 && len(line) < 80 &&
			titlePattern.MatchString(line) && !contactPattern.MatchString(line) {
			return line
		}
	}
	return ""
}

func extractSummary(text string) string {
	body := sectionAfter(text, summaryHeaders, []string{"experience", "education", "skills"})
	if len(body) > 50 && len(body) < 1000 {
		return body
	}
	return ""
}

func extractExperience(text string) []Experience {
	section := sectionAfter(text, experienceHeaders, []string{"education", "skills", "projects", "certifications"})
	if section == "" {
		return nil
	}

	var out []Experience
	for _, m := range expEntryPattern.FindAllStringSubmatch(section, -1) {
		company, role := strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
		if company == "" || role == "" {
			continue
		}
		out = append(out, Experience{
			Company:  company,
			Role:     role,
			Duration: strings.TrimSpace(m[3]),
		})
		if len(out) == maxExperienceItems {
			break
		}
	}
	return out
}

func extractSkills(text string) []string {
	seen := make(map[string]struct{})
	var skills []string
	add := func(s string) {
		s = strings.ToLower(strings.TrimSpace(s))
		if len(s) <= 1 || len(s) >= 50 {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		skills = append(skills, s)
	}

	section := sectionAfter(text, []string{"technical skills", "skills", "technologies"},
		[]string{"experience", "education"})
	for _, item := range strings.FieldsFunc(section, func(r rune) bool {
		return r == ',' || r == '•' || r == '|' || r == ';' || r == '\n'
	}) {
		add(item)
	}

	lower := strings.ToLower(text)
	for _, kw := range skillKeywords {
		if strings.Contains(lower, kw) {
			add(kw)
		}
	}

	if len(skills) > maxSkills {
		skills = skills[:maxSkills]
	}
	return skills
}

func extractEducation(text string) []Education {
	section := sectionAfter(text, []string{"education", "academic"}, []string{"experience", "skills"})
	if section == "" {
		return nil
	}

	var out []Education
	for _, m := range degreePattern.FindAllStringSubmatch(section, -1) {
		degree := strings.TrimSpace(m[1])
		if field := strings.TrimSpace(m[2]); field != "" {
			degree += " " + field
		}
		out = append(out, Education{
			Degree: degree,
			Year:   yearPattern.FindString(m[0]),
		})
		if len(out) == maxEducationItems {
			break
		}
	}
	return out
}

func extractProjects(text string) []Project {
	section := sectionAfter(text, []string{"personal projects", "side projects", "projects"},
		[]string{"experience", "education", "skills"})
	if section == "" {
		return nil
	}

	var out []Project
	for _, line := range nonEmptyLines(section) {
		if len(line) < 10 {
			continue
		}
		m := projectName.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		out = append(out, Project{
			Name:         strings.TrimSpace(m[1]),
			Description:  line,
			Technologies: technologiesIn(line),
		})
		if len(out) == maxProjects {
			break
		}
	}
	return out
}

func technologiesIn(text string) []string {
	lower := strings.ToLower(text)
	var out []string
	for _, kw := range skillKeywords {
		if strings.Contains(lower, kw) {
			out = append(out, kw)
		}
		if len(out) == 10 {
			break
		}
	}
	return out
}

// sectionAfter returns the text between the first occurrence of any header
// (matched at the start of a line, case-insensitive) and the earliest
// following stop header or blank line gap.
func sectionAfter(text string, headers, stops []string) string {
	lower := strings.ToLower(text)

	start := -1
	for _, h := range headers {
		idx := lineIndex(lower, h)
		if idx < 0 {
			continue
		}
		after := idx + len(h)
		// Skip a trailing colon and whitespace after the header.
		for after < len(text) && (text[after] == ':' || text[after] == ' ' || text[after] == '\n') {
			after++
		}
		if start == -1 || after < start {
			start = after
		}
	}
	if start < 0 || start >= len(text) {
		return ""
	}

	body := text[start:]
	end := len(body)
	if i := strings.Index(body, "\n\n"); i >= 0 && i < end {
		end = i
	}
	lowerBody := strings.ToLower(body)
	for _, s := range stops {
		if i := lineIndex(lowerBody, s); i >= 0 && i < end {
			end = i
		}
	}
	return strings.TrimSpace(body[:end])
}

// lineIndex returns the byte offset of needle when it appears at the start
// of a line in haystack, or -1.
func lineIndex(haystack, needle string) int {
	if strings.HasPrefix(haystack, needle) {
		return 0
	}
	if i := strings.Index(haystack, "\n"+needle); i >= 0 {
		return i + 1
	}
	return -1
}

func confidence(r *Resume) float64 {
	score := 0.0
	if r.Name != "" {
		score += 0.2
	}
	if r.Title != "" {
		score += 0.15
	}
	if len(r.Experience) > 0 {
		score += 0.25
	}
	if len(r.Skills) > 0 {
		score += 0.2
	}
	if len(r.Education) > 0 {
		score += 0.2
	}
	if score > 1 {
		return 1
	}
	return score
}

func isSectionHeader(line string) bool {
	lower := strings.ToLower(strings.TrimSpace(line))
	headers := append([]string{}, experienceHeaders...)
	headers = append(headers,
		"education", "skills", "projects", "certifications", "awards",
		"summary", "objective", "contact", "references",
	)
	for _, h := range headers {
		if lower == h || strings.HasPrefix(lower, h+":") {
			return true
		}
	}
	return false
}
