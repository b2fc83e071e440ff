// Package app wires all RedParrot subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run executes the pipeline and HTTP server until the context is
// cancelled, and Shutdown tears everything down in order.
//
// For testing, inject mock implementations via functional options
// (WithStore, WithSourceFactory, etc.). When an option is not provided, New
// creates real implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/redparrot-ai/redparrot/internal/answer"
	"github.com/redparrot-ai/redparrot/internal/chunker"
	"github.com/redparrot-ai/redparrot/internal/config"
	"github.com/redparrot-ai/redparrot/internal/detector"
	"github.com/redparrot-ai/redparrot/internal/display"
	"github.com/redparrot-ai/redparrot/internal/health"
	"github.com/redparrot-ai/redparrot/internal/observe"
	"github.com/redparrot-ai/redparrot/internal/pipeline"
	"github.com/redparrot-ai/redparrot/internal/profile"
	"github.com/redparrot-ai/redparrot/internal/store"
	"github.com/redparrot-ai/redparrot/internal/transcript"
	"github.com/redparrot-ai/redparrot/pkg/audio/capture"
	"github.com/redparrot-ai/redparrot/pkg/provider/asr"
	"github.com/redparrot-ai/redparrot/pkg/provider/embeddings"
	"github.com/redparrot-ai/redparrot/pkg/provider/llm"
)

// statsInterval is how often pipeline counters are pumped into metrics.
const statsInterval = 10 * time.Second

// Providers holds one interface value per provider slot. ASR and LLM are
// required; Embeddings is optional and enables similarity recall. Populated
// by main.go from the config.
type Providers struct {
	ASR        asr.Provider
	LLM        llm.Provider
	Embeddings embeddings.Provider
}

// App owns all subsystem lifetimes and orchestrates the RedParrot copilot.
type App struct {
	mu  sync.Mutex
	cfg *config.Config

	providers *Providers

	// Subsystems — initialised in New, torn down in Shutdown.
	store    store.Store
	recaller *store.Recaller
	prof     *profile.Profile
	session  *store.Session
	hub      *display.Hub
	metrics  *observe.Metrics
	pipe     *pipeline.Pipeline
	srv      *http.Server

	version   string
	logLevel  *slog.LevelVar
	newSource func(capture.SampleFunc) (capture.Source, error)

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithStore injects a session store instead of creating one from config.
func WithStore(s store.Store) Option {
	return func(a *App) { a.store = s }
}

// WithSourceFactory injects the capture source factory instead of opening a
// real audio device.
func WithSourceFactory(f func(capture.SampleFunc) (capture.Source, error)) Option {
	return func(a *App) { a.newSource = f }
}

// WithMetrics injects a metrics instance instead of using the global default.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithLogLevelVar hands the app the level var backing the process logger so
// config reloads can adjust verbosity.
func WithLogLevelVar(v *slog.LevelVar) Option {
	return func(a *App) { a.logLevel = v }
}

// WithVersion sets the build version reported by /healthz.
func WithVersion(v string) Option {
	return func(a *App) { a.version = v }
}

// New creates an App by wiring all subsystems together: the session store,
// the recall index, the candidate profile, the transcript corrector, the
// answer generator, the pipeline, and the HTTP surface. The providers struct
// comes from main.go. Use Option functions to inject test doubles.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil || providers.ASR == nil {
		return nil, errors.New("app: an ASR provider is required")
	}
	if providers.LLM == nil {
		return nil, errors.New("app: an LLM provider is required")
	}

	a := &App{
		cfg:       cfg,
		providers: providers,
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	if a.newSource == nil {
		a.newSource = captureFactory(cfg.Audio)
	}

	// ── 1. Session store + recall ────────────────────────────────────────
	if err := a.initStore(ctx); err != nil {
		return nil, fmt.Errorf("app: init store: %w", err)
	}

	// ── 2. Candidate profile ─────────────────────────────────────────────
	prof, err := profile.Load(cfg.Profile)
	if err != nil {
		return nil, fmt.Errorf("app: load profile: %w", err)
	}
	a.prof = prof

	// ── 3. Pipeline ──────────────────────────────────────────────────────
	if err := a.initPipeline(); err != nil {
		return nil, fmt.Errorf("app: init pipeline: %w", err)
	}

	// ── 4. HTTP surface ──────────────────────────────────────────────────
	a.initServer()

	return a, nil
}

// initStore connects the configured store, opens the interview session, and
// wires the recall index when an embeddings provider is available.
func (a *App) initStore(ctx context.Context) error {
	if a.store == nil {
		if dsn := a.cfg.Store.PostgresDSN; dsn != "" {
			dims := a.cfg.Store.EmbeddingDimensions
			pg, err := store.NewPGStore(ctx, dsn, dims)
			if err != nil {
				return err
			}
			a.store = pg
			slog.Info("session store connected", "backend", "postgres", "dimensions", dims)
		} else {
			a.store = store.NewMemStore()
			slog.Info("session store connected", "backend", "memory")
		}
		a.closers = append(a.closers, func() error {
			a.store.Close()
			return nil
		})
	}

	sess, err := a.store.StartSession(ctx, a.cfg.Profile.Company)
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	a.session = sess
	slog.Info("interview session opened", "session_id", sess.ID)

	if a.providers.Embeddings != nil {
		a.recaller = store.NewRecaller(a.store, a.providers.Embeddings, a.cfg.Store.RecallLimit)
	} else {
		slog.Info("no embeddings provider configured, recall disabled")
	}
	return nil
}

// initPipeline assembles the capture → detection → generation pipeline with
// the display hub and metrics attached as observers.
func (a *App) initPipeline() error {
	gen := answer.New(instrumentLLM(a.providers.LLM, a.metrics), answer.Config{
		Timeout: a.cfg.AI.Timeout,
	})

	pipe, err := pipeline.New(pipeline.Config{
		NewSource: a.newSource,
		ASR:       instrumentASR(a.providers.ASR, a.metrics),
		Generator: gen,
		Corrector: a.corrector(a.cfg),
		Recaller:  a.recaller,
		SessionID: a.session.ID,
		Prompt:    promptContext(a.cfg, a.prof),
		Chunker: chunker.Config{
			SampleRate:    a.cfg.Audio.SampleRate,
			ChunkDuration: time.Duration(a.cfg.Audio.ChunkDurationMs) * time.Millisecond,
			RMSThreshold:  a.cfg.Audio.RMSThreshold,
		},
		Detector:      detectorConfig(a.cfg),
		Language:      a.cfg.ASR.Language,
		MaxConcurrent: a.cfg.ASR.MaxConcurrent,
		ASRTimeout:    a.cfg.ASR.Timeout,
	})
	if err != nil {
		return err
	}

	a.hub = display.NewHub()
	pipe.AddObserver(a.hub)
	pipe.AddObserver(&metricsObserver{m: a.metrics})
	a.pipe = pipe
	return nil
}

// initServer builds the HTTP mux: health probes, the display WebSocket, and
// the Prometheus scrape endpoint, all behind the tracing middleware.
func (a *App) initServer() {
	checks := []health.Checker{
		{Name: "pipeline", Check: func(context.Context) error {
			if s := a.pipe.State(); s == pipeline.StateError {
				return fmt.Errorf("pipeline state %s", s)
			}
			return nil
		}},
	}
	if pinger, ok := a.store.(interface{ Ping(context.Context) error }); ok {
		checks = append(checks, health.Checker{Name: "store", Check: pinger.Ping})
	}

	mux := http.NewServeMux()
	health.New(checks...).WithVersion(a.version).Register(mux)
	a.hub.Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	a.srv = &http.Server{
		Addr:              a.cfg.Server.ListenAddr,
		Handler:           observe.Middleware(a.metrics)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// corrector builds the transcript corrector from the configured lexicon plus
// the skills parsed out of the resume. Returns nil when the merged lexicon is
// empty.
func (a *App) corrector(cfg *config.Config) *transcript.Corrector {
	lexicon := a.prof.Lexicon(cfg.Detector.Lexicon)
	if len(lexicon) == 0 {
		return nil
	}
	return transcript.New(lexicon)
}

// Pipeline exposes the pipeline for observer registration before Run.
func (a *App) Pipeline() *pipeline.Pipeline { return a.pipe }

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run starts the pipeline and the HTTP server and blocks until ctx is
// cancelled or the server fails. Call Shutdown afterwards.
func (a *App) Run(ctx context.Context) error {
	if err := a.pipe.Start(ctx); err != nil {
		return fmt.Errorf("app: start pipeline: %w", err)
	}
	a.metrics.ActiveSessions.Add(ctx, 1)

	errCh := make(chan error, 1)
	if a.srv.Addr != "" {
		go func() {
			slog.Info("http server listening", "addr", a.srv.Addr)
			if err := a.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}

	go a.pumpStats(ctx)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("app: http server: %w", err)
	}
}

// pumpStats periodically converts pipeline counter snapshots into metric
// increments.
func (a *App) pumpStats(ctx context.Context) {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	var last pipeline.Stats
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cur := a.pipe.Stats()
			a.metrics.ChunksEmitted.Add(ctx, int64(cur.Chunker.Emitted-last.Chunker.Emitted))
			a.metrics.TranscriptionsDropped.Add(ctx, int64(cur.TranscriptionsDropped-last.TranscriptionsDropped))
			a.metrics.StaleAnswersDiscarded.Add(ctx, int64(cur.StaleDiscarded-last.StaleDiscarded))
			last = cur
		}
	}
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown tears down all subsystems in order: pipeline, session, display,
// HTTP server, then the store. It respects the context deadline; closers
// remaining when ctx expires are skipped.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down")

		if err := a.pipe.Stop(); err != nil {
			slog.Warn("pipeline stop error", "err", err)
		}
		a.metrics.ActiveSessions.Add(ctx, -1)

		if err := a.store.EndSession(ctx, a.session.ID); err != nil {
			slog.Warn("end session error", "err", err)
		}

		a.hub.Close()

		if err := a.srv.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Warn("http shutdown error", "err", err)
		}

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// captureFactory builds the real audio source factory for the configured
// endpoint selection.
func captureFactory(cfg config.AudioConfig) func(capture.SampleFunc) (capture.Source, error) {
	devCfg := capture.Config{SampleRate: cfg.SampleRate, Channels: 1}

	if cfg.Source == capture.KindBoth {
		return func(fn capture.SampleFunc) (capture.Source, error) {
			mic, err := capture.NewDevice(capture.KindMicrophone, devCfg, fn)
			if err != nil {
				return nil, err
			}
			sys, err := capture.NewDevice(capture.KindSystem, devCfg, fn)
			if err != nil {
				return nil, err
			}
			return capture.NewMulti(mic, sys), nil
		}
	}

	return func(fn capture.SampleFunc) (capture.Source, error) {
		return capture.NewDevice(cfg.Source, devCfg, fn)
	}
}

// promptContext assembles the static prompt context from config and profile.
func promptContext(cfg *config.Config, prof *profile.Profile) answer.Context {
	pctx := answer.Context{
		Company:            cfg.Profile.Company,
		CustomInstructions: cfg.Answer.CustomInstructions,
	}
	if prof != nil {
		pctx.Resume = prof.ResumeText()
		pctx.JobDescription = prof.JobDescription
		if pctx.Company == "" {
			pctx.Company = prof.Company
		}
	}
	return pctx
}

// detectorConfig converts the config block to detector settings.
func detectorConfig(cfg *config.Config) detector.Config {
	return detector.Config{
		MinQuestionGap: time.Duration(cfg.Detector.MinQuestionGapMs) * time.Millisecond,
	}
}

// SlogLevel maps a config log level onto its slog equivalent.
func SlogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
