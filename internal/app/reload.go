package app

import (
	"log/slog"

	"github.com/redparrot-ai/redparrot/internal/config"
	"github.com/redparrot-ai/redparrot/internal/profile"
)

// ApplyReload applies the hot-reloadable differences between the old and new
// configs to the running app: log level, answer tuning, profile context, and
// detector settings. Everything else (providers, audio format, store)
// requires a restart and is ignored with a log line.
//
// Intended as the change callback of a [config.Watcher].
func (a *App) ApplyReload(old, new *config.Config) {
	d := config.Diff(old, new)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.cfg = new

	if !d.Any() {
		slog.Info("config reloaded, no hot-applicable changes")
		return
	}

	if d.LogLevelChanged && a.logLevel != nil {
		a.logLevel.Set(SlogLevel(d.NewLogLevel))
		slog.Info("log level changed", "level", d.NewLogLevel)
	}

	if d.ProfileChanged {
		prof, err := profile.Load(new.Profile)
		if err != nil {
			slog.Warn("profile reload failed, keeping previous profile", "err", err)
		} else {
			a.prof = prof
			slog.Info("profile reloaded", "company", new.Profile.Company)
		}
	}

	if d.ProfileChanged || d.AnswerChanged {
		a.pipe.UpdatePrompt(promptContext(new, a.prof))
		slog.Info("prompt context updated")
	}

	if d.DetectorChanged {
		a.pipe.UpdateDetector(detectorConfig(new))
		a.pipe.UpdateCorrector(a.corrector(new))
		slog.Info("detector settings updated",
			"min_question_gap_ms", new.Detector.MinQuestionGapMs,
			"lexicon_terms", len(new.Detector.Lexicon),
		)
	}
}
