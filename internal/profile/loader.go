package profile

import (
	"fmt"
	"os"
	"strings"

	"github.com/redparrot-ai/redparrot/internal/config"
)

// Profile bundles everything the prompt builder knows about the candidate
// and the role.
type Profile struct {
	// Resume is nil when no resume path is configured.
	Resume *Resume

	// JobDescription is the plain-text role description, possibly empty.
	JobDescription string

	// Company is the hiring company's name, possibly empty.
	Company string
}

// Load reads the resume and job description files named in cfg and parses
// the resume. Missing paths are not errors; the corresponding fields stay
// empty.
func Load(cfg config.ProfileConfig) (*Profile, error) {
	p := &Profile{Company: cfg.Company}

	if cfg.ResumePath != "" {
		data, err := os.ReadFile(cfg.ResumePath)
		if err != nil {
			return nil, fmt.Errorf("profile: read resume: %w", err)
		}
		p.Resume = ParseResume(string(data))
	}
	if cfg.JobDescriptionPath != "" {
		data, err := os.ReadFile(cfg.JobDescriptionPath)
		if err != nil {
			return nil, fmt.Errorf("profile: read job description: %w", err)
		}
		p.JobDescription = strings.TrimSpace(string(data))
	}
	return p, nil
}

// ResumeText renders the parsed resume as compact plain text for prompt
// injection. Returns "" when no resume is loaded.
func (p *Profile) ResumeText() string {
	if p.Resume == nil {
		return ""
	}
	r := p.Resume

	var sb strings.Builder
	if r.Name != "" {
		sb.WriteString(r.Name)
		sb.WriteString("\n")
	}
	if r.Title != "" {
		sb.WriteString(r.Title)
		sb.WriteString("\n")
	}
	if r.Summary != "" {
		sb.WriteString("\n")
		sb.WriteString(r.Summary)
		sb.WriteString("\n")
	}
	if len(r.Experience) > 0 {
		sb.WriteString("\nExperience:\n")
		for _, e := range r.Experience {
			sb.WriteString(fmt.Sprintf("- %s, %s", e.Role, e.Company))
			if e.Duration != "" {
				sb.WriteString(" (" + e.Duration + ")")
			}
			sb.WriteString("\n")
		}
	}
	if len(r.Skills) > 0 {
		sb.WriteString("\nSkills: ")
		sb.WriteString(strings.Join(r.Skills, ", "))
		sb.WriteString("\n")
	}
	if len(r.Education) > 0 {
		sb.WriteString("\nEducation:\n")
		for _, e := range r.Education {
			sb.WriteString("- " + e.Degree)
			if e.Year != "" {
				sb.WriteString(" (" + e.Year + ")")
			}
			sb.WriteString("\n")
		}
	}
	return strings.TrimSpace(sb.String())
}

// Lexicon returns the technical terms the transcript corrector should know
// about: configured terms first, then resume skills.
func (p *Profile) Lexicon(configured []string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(term string) {
		term = strings.TrimSpace(term)
		key := strings.ToLower(term)
		if term == "" {
			return
		}
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, term)
	}
	for _, t := range configured {
		add(t)
	}
	if p.Resume != nil {
		for _, s := range p.Resume.Skills {
			add(s)
		}
	}
	return out
}
