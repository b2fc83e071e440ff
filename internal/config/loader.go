package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied by [ApplyDefaults] for zero-value fields.
const (
	DefaultListenAddr      = ":8321"
	DefaultSampleRate      = 16000
	DefaultChunkDurationMs = 3000
	DefaultRMSThreshold    = 0.01
	DefaultMaxConcurrent   = 2
	DefaultTimeout         = 30 * time.Second
	DefaultQuestionGapMs   = 2000
	DefaultEmbeddingDims   = 1536
	DefaultRecallLimit     = 3
)

// Load reads the YAML configuration file at path and returns a validated
// [Config] with defaults applied. It is a convenience wrapper around
// [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills zero-value fields with the documented defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = DefaultListenAddr
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Audio.Source == "" {
		cfg.Audio.Source = "microphone"
	}
	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = DefaultSampleRate
	}
	if cfg.Audio.ChunkDurationMs <= 0 {
		cfg.Audio.ChunkDurationMs = DefaultChunkDurationMs
	}
	if cfg.Audio.RMSThreshold <= 0 {
		cfg.Audio.RMSThreshold = DefaultRMSThreshold
	}
	if cfg.ASR.Provider == "" {
		cfg.ASR.Provider = ASRAuto
	}
	if cfg.ASR.MaxConcurrent <= 0 {
		cfg.ASR.MaxConcurrent = DefaultMaxConcurrent
	}
	if cfg.ASR.Timeout <= 0 {
		cfg.ASR.Timeout = DefaultTimeout
	}
	if cfg.AI.Provider == "" {
		cfg.AI.Provider = AIAuto
	}
	if cfg.AI.Timeout <= 0 {
		cfg.AI.Timeout = DefaultTimeout
	}
	if cfg.AI.Cloud.Backend == "" {
		cfg.AI.Cloud.Backend = "groq"
	}
	if cfg.AI.Cloud.Model == "" {
		cfg.AI.Cloud.Model = "llama-3.3-70b-versatile"
	}
	if cfg.AI.Local.Backend == "" {
		cfg.AI.Local.Backend = "ollama"
	}
	if cfg.AI.Local.Model == "" {
		cfg.AI.Local.Model = "llama3.2"
	}
	if cfg.Answer.DefaultLength == "" {
		cfg.Answer.DefaultLength = AnswerMedium
	}
	if cfg.Detector.MinQuestionGapMs <= 0 {
		cfg.Detector.MinQuestionGapMs = DefaultQuestionGapMs
	}
	if cfg.Store.EmbeddingDimensions <= 0 {
		cfg.Store.EmbeddingDimensions = DefaultEmbeddingDims
	}
	if cfg.Store.RecallLimit <= 0 {
		cfg.Store.RecallLimit = DefaultRecallLimit
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if !cfg.Audio.Source.IsValid() {
		errs = append(errs, fmt.Errorf("audio.source %q is invalid; valid values: microphone, system, both", cfg.Audio.Source))
	}
	if cfg.Audio.RMSThreshold >= 1 {
		errs = append(errs, fmt.Errorf("audio.rms_threshold %.3f is out of range (0, 1)", cfg.Audio.RMSThreshold))
	}
	if !cfg.ASR.Provider.IsValid() {
		errs = append(errs, fmt.Errorf("asr.provider %q is invalid; valid values: groq, whisper-native, auto", cfg.ASR.Provider))
	}
	if !cfg.AI.Provider.IsValid() {
		errs = append(errs, fmt.Errorf("ai.provider %q is invalid; valid values: cloud, local, auto", cfg.AI.Provider))
	}
	if !cfg.Answer.DefaultLength.IsValid() {
		errs = append(errs, fmt.Errorf("answer.default_length %q is invalid; valid values: short, medium, long", cfg.Answer.DefaultLength))
	}

	// Backend availability cross-checks.
	needsWhisper := cfg.ASR.Provider == ASRWhisperNative || cfg.ASR.Provider == ASRAuto
	if needsWhisper && cfg.ASR.Whisper.ModelPath == "" && cfg.ASR.Provider == ASRWhisperNative {
		errs = append(errs, fmt.Errorf("asr.whisper.model_path is required when asr.provider is whisper-native"))
	}
	if cfg.ASR.Provider == ASRAuto && cfg.ASR.Whisper.ModelPath == "" {
		slog.Warn("asr.whisper.model_path is empty; auto mode runs without a local fallback")
	}
	if cfg.Store.PostgresDSN == "" {
		slog.Warn("store.postgres_dsn is empty; sessions are kept in memory and lost on exit")
	}

	return errors.Join(errs...)
}
