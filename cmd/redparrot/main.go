// Command redparrot is the main entry point for the RedParrot interview
// copilot server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/redparrot-ai/redparrot/internal/app"
	"github.com/redparrot-ai/redparrot/internal/config"
	"github.com/redparrot-ai/redparrot/internal/observe"
	"github.com/redparrot-ai/redparrot/internal/resilience"
	"github.com/redparrot-ai/redparrot/pkg/provider/asr"
	"github.com/redparrot-ai/redparrot/pkg/provider/asr/groq"
	"github.com/redparrot-ai/redparrot/pkg/provider/asr/whisper"
	"github.com/redparrot-ai/redparrot/pkg/provider/embeddings"
	oaembed "github.com/redparrot-ai/redparrot/pkg/provider/embeddings/openai"
	"github.com/redparrot-ai/redparrot/pkg/provider/llm"
	"github.com/redparrot-ai/redparrot/pkg/provider/llm/anyllm"
	oallm "github.com/redparrot-ai/redparrot/pkg/provider/llm/openai"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "redparrot: config file %q not found\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "redparrot: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logLevel := new(slog.LevelVar)
	logLevel.Set(app.SlogLevel(cfg.Server.LogLevel))
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("redparrot starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "redparrot",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(sctx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Providers ─────────────────────────────────────────────────────────────
	providers, err := buildProviders(cfg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	printStartupSummary(cfg, providers)

	// ── Application ───────────────────────────────────────────────────────────
	application, err := app.New(ctx, cfg, providers,
		app.WithLogLevelVar(logLevel),
		app.WithVersion(version),
	)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	// ── Config hot reload ─────────────────────────────────────────────────────
	watcher, err := config.NewWatcher(*configPath, application.ApplyReload)
	if err != nil {
		slog.Warn("config watcher disabled", "err", err)
	} else {
		defer watcher.Stop()
	}

	slog.Info("server ready — press Ctrl+C to shut down")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")

	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// buildProviders instantiates the ASR, LLM, and embeddings backends named in
// cfg, wrapping fallback groups around them when provider selection is auto.
func buildProviders(cfg *config.Config) (*app.Providers, error) {
	asrProv, err := buildASR(cfg.ASR)
	if err != nil {
		return nil, fmt.Errorf("create asr provider %q: %w", cfg.ASR.Provider, err)
	}
	slog.Info("provider created", "kind", "asr", "name", asrProv.Name())

	llmProv, err := buildLLM(cfg.AI)
	if err != nil {
		return nil, fmt.Errorf("create ai provider %q: %w", cfg.AI.Provider, err)
	}
	slog.Info("provider created", "kind", "llm", "name", llmProv.Name())

	return &app.Providers{
		ASR:        asrProv,
		LLM:        llmProv,
		Embeddings: buildEmbeddings(cfg.Store),
	}, nil
}

// buildASR constructs the transcription backend. In auto mode the hosted
// Groq backend is primary and local whisper.cpp, when compiled in and given
// a model, is the fallback.
func buildASR(cfg config.ASRConfig) (asr.Provider, error) {
	switch cfg.Provider {
	case config.ASRGroq:
		return buildGroq(cfg)

	case config.ASRWhisperNative:
		return buildWhisperNative(cfg)

	case config.ASRAuto:
		primary, err := buildGroq(cfg)
		if err != nil {
			return nil, err
		}
		chain := resilience.NewASRChain(primary, resilience.ChainConfig{})
		if whisper.Available() && cfg.Whisper.ModelPath != "" {
			fallback, err := buildWhisperNative(cfg)
			if err != nil {
				slog.Warn("local whisper fallback unavailable", "err", err)
			} else {
				chain.Add(fallback)
				slog.Info("asr fallback registered", "name", fallback.Name())
			}
		}
		return chain, nil
	}
	return nil, fmt.Errorf("unknown asr provider %q", cfg.Provider)
}

func buildGroq(cfg config.ASRConfig) (asr.Provider, error) {
	key := cfg.Groq.APIKey
	if key == "" {
		key = os.Getenv("GROQ_API_KEY")
	}
	var opts []groq.Option
	if cfg.Groq.Model != "" {
		opts = append(opts, groq.WithModel(cfg.Groq.Model))
	}
	return groq.New(key, opts...)
}

func buildWhisperNative(cfg config.ASRConfig) (asr.Provider, error) {
	var opts []whisper.Option
	if cfg.Language != "" {
		opts = append(opts, whisper.WithLanguage(cfg.Language))
	}
	return whisper.New(cfg.Whisper.ModelPath, opts...)
}

// buildLLM constructs the answer-generation backend. In auto mode the cloud
// model is primary with the local Ollama model as fallback.
func buildLLM(cfg config.AIConfig) (llm.Provider, error) {
	switch cfg.Provider {
	case config.AICloud:
		return buildModel(cfg.Cloud)

	case config.AILocal:
		return buildModel(cfg.Local)

	case config.AIAuto:
		primary, err := buildModel(cfg.Cloud)
		if err != nil {
			return nil, err
		}
		chain := resilience.NewLLMChain(primary, resilience.ChainConfig{})
		fallback, err := buildModel(cfg.Local)
		if err != nil {
			slog.Warn("local model fallback unavailable", "err", err)
		} else {
			chain.Add(fallback)
			slog.Info("llm fallback registered", "name", fallback.Name())
		}
		return chain, nil
	}
	return nil, fmt.Errorf("unknown ai provider %q", cfg.Provider)
}

// buildModel constructs one LLM backend. The openai backend goes through the
// official SDK; everything else goes through any-llm-go.
func buildModel(mc config.ModelConfig) (llm.Provider, error) {
	if mc.Backend == "openai" {
		key := mc.APIKey
		if key == "" {
			key = os.Getenv("OPENAI_API_KEY")
		}
		var opts []oallm.Option
		if mc.BaseURL != "" {
			opts = append(opts, oallm.WithBaseURL(mc.BaseURL))
		}
		return oallm.New(key, mc.Model, opts...)
	}

	var opts []anyllmlib.Option
	if mc.APIKey != "" {
		opts = append(opts, anyllmlib.WithAPIKey(mc.APIKey))
	}
	if mc.BaseURL != "" {
		opts = append(opts, anyllmlib.WithBaseURL(mc.BaseURL))
	}
	return anyllm.New(mc.Backend, mc.Model, opts...)
}

// buildEmbeddings constructs the recall embedder. Returns nil, disabling
// recall, when no OpenAI key is configured.
func buildEmbeddings(cfg config.StoreConfig) embeddings.Provider {
	key := cfg.OpenAIAPIKey
	if key == "" {
		key = os.Getenv("OPENAI_API_KEY")
	}
	if key == "" {
		return nil
	}
	p, err := oaembed.New(key, "")
	if err != nil {
		slog.Warn("embeddings provider unavailable, recall disabled", "err", err)
		return nil
	}
	slog.Info("provider created", "kind", "embeddings", "model", p.ModelID())
	return p
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config, providers *app.Providers) {
	store := "memory"
	if cfg.Store.PostgresDSN != "" {
		store = "postgres"
	}
	recall := "disabled"
	if providers.Embeddings != nil {
		recall = "enabled"
	}

	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║        RedParrot — startup summary    ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printRow("ASR", string(cfg.ASR.Provider))
	printRow("AI", string(cfg.AI.Provider))
	printRow("Audio source", string(cfg.Audio.Source))
	printRow("Store", store)
	printRow("Recall", recall)
	printRow("Company", cfg.Profile.Company)
	printRow("Listen addr", cfg.Server.ListenAddr)
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printRow(kind, value string) {
	if value == "" {
		value = "(not configured)"
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-14s  : %-19s ║\n", kind, value)
}
