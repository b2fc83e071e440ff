// Package pipeline orchestrates the streaming interview loop: captured
// audio is chunked, transcribed, scanned for questions, and answered.
//
// The orchestrator is the single writer of all shared state. Concurrency
// lives only in the independent backend calls (transcription up to a fixed
// cap, the three answer variants per question); their results are funnelled
// back through serialised handlers. A generation epoch counter, incremented
// on every detected question, identifies the current question cycle so that
// late answers for superseded questions are discarded instead of being
// attributed to the wrong question.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/redparrot-ai/redparrot/internal/answer"
	"github.com/redparrot-ai/redparrot/internal/chunker"
	"github.com/redparrot-ai/redparrot/internal/detector"
	"github.com/redparrot-ai/redparrot/internal/store"
	"github.com/redparrot-ai/redparrot/internal/transcript"
	"github.com/redparrot-ai/redparrot/pkg/audio"
	"github.com/redparrot-ai/redparrot/pkg/audio/capture"
	"github.com/redparrot-ai/redparrot/pkg/provider/asr"
)

const (
	defaultMaxConcurrent = 2
	defaultASRTimeout    = 30 * time.Second
)

// ErrAlreadyRunning is returned by Start when the pipeline is not idle.
var ErrAlreadyRunning = errors.New("pipeline: already running")

// Generator is the answer-generation dependency of the pipeline, satisfied
// by [answer.Generator].
type Generator interface {
	Generate(ctx context.Context, q *detector.Question, pctx answer.Context, onVariant answer.OnVariant) *answer.Bundle
}

// Config wires the pipeline's collaborators. NewSource, ASR and Generator
// are required.
type Config struct {
	// NewSource builds the capture source that feeds fn with raw PCM.
	// Called once per pipeline; the source is started and stopped with the
	// pipeline.
	NewSource func(fn capture.SampleFunc) (capture.Source, error)

	// ASR transcribes audio chunks.
	ASR asr.Provider

	// Generator produces answer variants for detected questions.
	Generator Generator

	// Corrector repairs misheard technical terms before detection.
	// Optional.
	Corrector *transcript.Corrector

	// Recaller persists answers and retrieves similar past answers for
	// prompt context. Optional.
	Recaller *store.Recaller

	// SessionID tags persisted answers. Only used when Recaller is set.
	SessionID string

	// Prompt carries the static prompt context (resume, job description,
	// company, custom instructions). The Recall field is filled per
	// question.
	Prompt answer.Context

	// Chunker configures audio chunking.
	Chunker chunker.Config

	// Detector configures question detection.
	Detector detector.Config

	// Language is the ISO 639-1 transcription hint. Empty means
	// auto-detect.
	Language string

	// MaxConcurrent caps in-flight transcription calls; chunks beyond the
	// cap are dropped. Default: 2.
	MaxConcurrent int

	// ASRTimeout bounds each transcription call. Default: 30s.
	ASRTimeout time.Duration
}

// Stats is a snapshot of pipeline counters.
type Stats struct {
	// Chunker reports chunk emission and silence-gate drops.
	Chunker chunker.Stats

	// TranscriptionsDropped counts chunks discarded because the
	// concurrency cap was saturated.
	TranscriptionsDropped uint64

	// QuestionsDetected counts emitted questions.
	QuestionsDetected uint64

	// StaleDiscarded counts answer variants and bundles thrown away
	// because a newer question superseded their epoch.
	StaleDiscarded uint64
}

// Pipeline is the orchestrator. Create with [New], then Start. Observers
// must be registered before Start.
type Pipeline struct {
	cfg    Config
	chunk  *chunker.Chunker
	det    *detector.Detector
	source capture.Source

	observers []Observer
	sem       *semaphore.Weighted

	// fragMu serialises fragment handling so the detector has a single
	// writer.
	fragMu sync.Mutex

	mu        sync.Mutex
	state     State
	active    bool
	epoch     uint64
	runCtx    context.Context
	cancel    context.CancelFunc
	dropped   uint64
	questions uint64
	stale     uint64

	wg sync.WaitGroup
}

// New validates cfg and builds an idle pipeline.
func New(cfg Config) (*Pipeline, error) {
	if cfg.NewSource == nil {
		return nil, errors.New("pipeline: NewSource must not be nil")
	}
	if cfg.ASR == nil {
		return nil, errors.New("pipeline: ASR must not be nil")
	}
	if cfg.Generator == nil {
		return nil, errors.New("pipeline: Generator must not be nil")
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = defaultMaxConcurrent
	}
	if cfg.ASRTimeout <= 0 {
		cfg.ASRTimeout = defaultASRTimeout
	}

	p := &Pipeline{
		cfg:   cfg,
		det:   detector.New(cfg.Detector),
		sem:   semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		state: StateIdle,
	}
	p.chunk = chunker.New(cfg.Chunker, p.handleFrame)

	source, err := cfg.NewSource(p.chunk.Push)
	if err != nil {
		return nil, fmt.Errorf("pipeline: create source: %w", err)
	}
	p.source = source
	return p, nil
}

// AddObserver registers an observer. Must be called before Start.
func (p *Pipeline) AddObserver(o Observer) {
	p.observers = append(p.observers, o)
}

// Start begins capture and transitions idle → initializing → listening.
// If audio acquisition fails the pipeline stays idle and the error is
// returned; nothing else is fatal after this point.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.state != StateIdle {
		p.mu.Unlock()
		return ErrAlreadyRunning
	}
	p.setStateLocked(StateInitializing)
	p.mu.Unlock()

	if err := p.source.Start(ctx); err != nil {
		p.mu.Lock()
		p.setStateLocked(StateError)
		p.setStateLocked(StateIdle)
		p.mu.Unlock()
		return fmt.Errorf("pipeline: start capture: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)

	p.mu.Lock()
	p.active = true
	p.runCtx = runCtx
	p.cancel = cancel
	p.setStateLocked(StateListening)
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.chunk.Run(runCtx)
	}()

	slog.Info("pipeline started",
		"asr", p.cfg.ASR.Name(), "max_concurrent", p.cfg.MaxConcurrent)
	return nil
}

// Stop halts capture and returns the pipeline to idle. In-flight backend
// calls are allowed to finish but their results are discarded. Safe to call
// when already stopped.
func (p *Pipeline) Stop() error {
	p.mu.Lock()
	if !p.active {
		p.mu.Unlock()
		return nil
	}
	p.active = false
	cancel := p.cancel
	p.mu.Unlock()

	cancel()
	err := p.source.Stop()
	p.wg.Wait()
	p.det.Reset()

	p.mu.Lock()
	p.setStateLocked(StateIdle)
	p.mu.Unlock()

	if err != nil {
		return fmt.Errorf("pipeline: stop capture: %w", err)
	}
	slog.Info("pipeline stopped")
	return nil
}

// State returns the current lifecycle state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Stats returns a snapshot of the pipeline counters.
func (p *Pipeline) Stats() Stats {
	p.mu.Lock()
	dropped, questions, stale := p.dropped, p.questions, p.stale
	p.mu.Unlock()
	return Stats{
		Chunker:               p.chunk.Stats(),
		TranscriptionsDropped: dropped,
		QuestionsDetected:     questions,
		StaleDiscarded:        stale,
	}
}

// UpdatePrompt swaps the static prompt context. Questions detected after the
// call generate with the new context; in-flight generations keep the old one.
func (p *Pipeline) UpdatePrompt(pctx answer.Context) {
	p.mu.Lock()
	p.cfg.Prompt = pctx
	p.mu.Unlock()
}

// UpdateCorrector replaces the transcript corrector. Pass nil to disable
// correction.
func (p *Pipeline) UpdateCorrector(c *transcript.Corrector) {
	p.fragMu.Lock()
	p.cfg.Corrector = c
	p.fragMu.Unlock()
}

// UpdateDetector rebuilds the question detector with cfg. The rolling
// fragment buffer starts empty afterwards.
func (p *Pipeline) UpdateDetector(cfg detector.Config) {
	p.fragMu.Lock()
	p.det = detector.New(cfg)
	p.fragMu.Unlock()
}

// handleFrame receives each speech chunk from the chunker and dispatches a
// transcription call, dropping the chunk when the concurrency cap is
// saturated. Live audio keeps renewing itself, so dropping is cheaper than
// queueing stale speech.
func (p *Pipeline) handleFrame(frame audio.AudioFrame) {
	p.mu.Lock()
	if !p.active {
		p.mu.Unlock()
		return
	}
	runCtx := p.runCtx
	p.mu.Unlock()

	if !p.sem.TryAcquire(1) {
		p.mu.Lock()
		p.dropped++
		p.mu.Unlock()
		slog.Debug("chunk dropped, transcription cap saturated", "duration", frame.Duration)
		return
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.sem.Release(1)
		p.transcribe(runCtx, frame)
	}()
}

// transcribe runs one ASR call and hands non-empty text to the fragment
// handler. Backend errors are reported and swallowed; the chunk stream
// continues.
func (p *Pipeline) transcribe(ctx context.Context, frame audio.AudioFrame) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.ASRTimeout)
	defer cancel()

	tr, err := p.cfg.ASR.Transcribe(ctx, asr.Request{Frame: frame, Language: p.cfg.Language})
	if err != nil {
		if !errors.Is(err, asr.ErrNoSpeech) {
			p.notifyError(fmt.Errorf("pipeline: transcription: %w", err))
		}
		return
	}
	if tr.Text == "" {
		return
	}
	p.handleFragment(tr.Text)
}

// handleFragment is the serialised path from transcription result to
// question detection. It is the only writer of the detector's buffer.
func (p *Pipeline) handleFragment(text string) {
	p.fragMu.Lock()
	defer p.fragMu.Unlock()

	if !p.isActive() {
		return
	}

	p.setState(StateTranscribing)
	if p.cfg.Corrector != nil {
		corrected, corrections := p.cfg.Corrector.Correct(text)
		if len(corrections) > 0 {
			slog.Debug("transcript corrected", "corrections", len(corrections))
		}
		text = corrected
	}
	p.notifyTranscription(text)

	p.setState(StateDetecting)
	q := p.det.Feed(text)
	if q == nil {
		p.setState(StateListening)
		return
	}

	// Claim a new epoch before anything observes the question. Late
	// results for earlier questions compare against this and are
	// discarded, so an answer for question N-1 can never be attributed to
	// question N.
	p.mu.Lock()
	p.epoch++
	epoch := p.epoch
	p.questions++
	runCtx := p.runCtx
	p.setStateLocked(StateGenerating)
	p.mu.Unlock()

	p.notifyQuestion(*q)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.generate(runCtx, epoch, q)
	}()
}

// generate runs the three-variant fan-out for one question cycle.
func (p *Pipeline) generate(ctx context.Context, epoch uint64, q *detector.Question) {
	p.mu.Lock()
	pctx := p.cfg.Prompt
	p.mu.Unlock()
	if p.cfg.Recaller != nil {
		recall, err := p.cfg.Recaller.Context(ctx, q.Text)
		if err != nil {
			slog.Warn("recall lookup failed", "err", err)
		} else {
			pctx.Recall = recall
		}
	}

	bundle := p.cfg.Generator.Generate(ctx, q, pctx, func(v answer.Variant) {
		if !p.isCurrent(epoch) {
			p.markStale()
			slog.Debug("stale answer variant discarded", "length", v.Length, "epoch", epoch)
			return
		}
		if v.Err != nil {
			p.notifyError(v.Err)
		}
		p.notifyAnswer(*q, v)
	})

	if !p.isCurrent(epoch) {
		p.markStale()
		slog.Debug("stale answer bundle discarded", "epoch", epoch)
		return
	}

	if p.cfg.Recaller != nil {
		for _, v := range bundle.Succeeded() {
			err := p.cfg.Recaller.Remember(ctx, store.AnswerRecord{
				SessionID:    p.cfg.SessionID,
				Question:     q.Text,
				QuestionType: string(q.Type),
				Answer:       v.Text,
				Length:       string(v.Length),
			})
			if err != nil {
				slog.Warn("answer persistence failed", "err", err)
			}
		}
	}

	p.mu.Lock()
	if p.active && p.epoch == epoch {
		p.setStateLocked(StateListening)
	}
	p.mu.Unlock()
}

// isCurrent reports whether epoch is still the live question cycle and the
// session is active.
func (p *Pipeline) isCurrent(epoch uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active && p.epoch == epoch
}

func (p *Pipeline) markStale() {
	p.mu.Lock()
	p.stale++
	p.mu.Unlock()
}

func (p *Pipeline) isActive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// setState transitions to s unless the pipeline has been stopped.
func (p *Pipeline) setState(s State) {
	p.mu.Lock()
	if !p.active {
		p.mu.Unlock()
		return
	}
	p.setStateLocked(s)
	p.mu.Unlock()
}

// setStateLocked records and announces a state change. Caller holds mu.
func (p *Pipeline) setStateLocked(s State) {
	if p.state == s {
		return
	}
	p.state = s
	for _, o := range p.observers {
		o.OnStateChange(s)
	}
}

func (p *Pipeline) notifyTranscription(fragment string) {
	if !p.isActive() {
		return
	}
	for _, o := range p.observers {
		o.OnTranscription(fragment)
	}
}

func (p *Pipeline) notifyQuestion(q detector.Question) {
	if !p.isActive() {
		return
	}
	for _, o := range p.observers {
		o.OnQuestionDetected(q)
	}
}

func (p *Pipeline) notifyAnswer(q detector.Question, v answer.Variant) {
	if !p.isActive() {
		return
	}
	for _, o := range p.observers {
		o.OnAnswerReady(q, v)
	}
}

func (p *Pipeline) notifyError(err error) {
	slog.Error("pipeline backend error", "err", err)
	if !p.isActive() {
		return
	}
	for _, o := range p.observers {
		o.OnError(err)
	}
}
