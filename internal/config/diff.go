package config

// ReloadDiff describes what changed between two configs. Only fields that
// can be applied without restarting the pipeline are tracked; everything
// else (providers, audio format, store) requires a restart.
type ReloadDiff struct {
	// LogLevelChanged is set when server.log_level changed.
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// AnswerChanged is set when answer.default_length or
	// answer.custom_instructions changed.
	AnswerChanged bool

	// ProfileChanged is set when any profile field changed. The caller
	// re-reads the resume and job description files.
	ProfileChanged bool

	// DetectorChanged is set when detector.min_question_gap_ms or the
	// lexicon changed.
	DetectorChanged bool
}

// Any reports whether the diff carries at least one applicable change.
func (d ReloadDiff) Any() bool {
	return d.LogLevelChanged || d.AnswerChanged || d.ProfileChanged || d.DetectorChanged
}

// Diff compares old and new configs and returns the hot-applicable changes.
func Diff(old, new *Config) ReloadDiff {
	d := ReloadDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}
	if old.Answer != new.Answer {
		d.AnswerChanged = true
	}
	if old.Profile != new.Profile {
		d.ProfileChanged = true
	}
	if old.Detector.MinQuestionGapMs != new.Detector.MinQuestionGapMs ||
		!equalStrings(old.Detector.Lexicon, new.Detector.Lexicon) {
		d.DetectorChanged = true
	}
	return d
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
