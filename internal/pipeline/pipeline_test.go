package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redparrot-ai/redparrot/internal/answer"
	"github.com/redparrot-ai/redparrot/internal/detector"
	"github.com/redparrot-ai/redparrot/internal/transcript"
	"github.com/redparrot-ai/redparrot/pkg/audio"
	"github.com/redparrot-ai/redparrot/pkg/audio/capture"
	capmock "github.com/redparrot-ai/redparrot/pkg/audio/capture/mock"
	"github.com/redparrot-ai/redparrot/pkg/provider/asr"
	asrmock "github.com/redparrot-ai/redparrot/pkg/provider/asr/mock"
	"github.com/redparrot-ai/redparrot/pkg/provider/llm"
	llmmock "github.com/redparrot-ai/redparrot/pkg/provider/llm/mock"
)

// recorder captures observer callbacks for assertions.
type recorder struct {
	mu        sync.Mutex
	fragments []string
	questions []detector.Question
	answers   []answer.Variant
	answerFor []string
	states    []State
	errs      []error
}

func (r *recorder) OnTranscription(fragment string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fragments = append(r.fragments, fragment)
}

func (r *recorder) OnQuestionDetected(q detector.Question) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.questions = append(r.questions, q)
}

func (r *recorder) OnAnswerReady(q detector.Question, v answer.Variant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.answers = append(r.answers, v)
	r.answerFor = append(r.answerFor, q.Text)
}

func (r *recorder) OnStateChange(state State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
}

func (r *recorder) OnError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recorder) counts() (fragments, questions, answers, errs int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.fragments), len(r.questions), len(r.answers), len(r.errs)
}

// waitFor polls cond until it holds or the deadline expires.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}

func sourceFactory(src *capmock.Source) func(capture.SampleFunc) (capture.Source, error) {
	return func(fn capture.SampleFunc) (capture.Source, error) {
		src.SetCallback(fn)
		return src, nil
	}
}

func echoGenerator() *answer.Generator {
	provider := &llmmock.Provider{
		Responses: []*llm.CompletionResponse{{Content: "My answer."}},
	}
	return answer.New(provider, answer.Config{})
}

func testFrame() audio.AudioFrame {
	return audio.AudioFrame{
		PCM:        []byte{0x10, 0x20},
		SampleRate: 16000,
		Channels:   1,
		Duration:   time.Second,
	}
}

func newTestPipeline(t *testing.T, mutate func(*Config)) (*Pipeline, *recorder) {
	t.Helper()
	cfg := Config{
		NewSource: sourceFactory(capmock.New()),
		ASR:       &asrmock.Provider{},
		Generator: echoGenerator(),
		Detector:  detector.Config{MinQuestionGap: time.Nanosecond},
	}
	if mutate != nil {
		mutate(&cfg)
	}
	p, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rec := &recorder{}
	p.AddObserver(rec)
	return p, rec
}

func TestStartStop_Lifecycle(t *testing.T) {
	src := capmock.New()
	p, rec := newTestPipeline(t, func(c *Config) { c.NewSource = sourceFactory(src) })

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := p.State(); got != StateListening {
		t.Errorf("state after start = %q, want listening", got)
	}
	if !src.Started() {
		t.Error("capture source not started")
	}
	if err := p.Start(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Start = %v, want ErrAlreadyRunning", err)
	}

	if err := p.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if got := p.State(); got != StateIdle {
		t.Errorf("state after stop = %q, want idle", got)
	}
	if err := p.Stop(); err != nil {
		t.Errorf("second Stop = %v, want nil", err)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.states) < 2 || rec.states[0] != StateInitializing || rec.states[1] != StateListening {
		t.Errorf("states = %v", rec.states)
	}
}

func TestStart_AcquisitionFailureStaysIdle(t *testing.T) {
	src := capmock.New()
	src.StartErr = capture.ErrPermissionDenied
	p, _ := newTestPipeline(t, func(c *Config) { c.NewSource = sourceFactory(src) })

	err := p.Start(context.Background())
	if !errors.Is(err, capture.ErrPermissionDenied) {
		t.Fatalf("Start = %v, want wrapped ErrPermissionDenied", err)
	}
	if got := p.State(); got != StateIdle {
		t.Errorf("state after failed start = %q, want idle", got)
	}
}

func TestFrameToAnswer_FullCycle(t *testing.T) {
	asrProvider := &asrmock.Provider{
		Transcripts: []*asr.Transcript{{Text: "What is the difference between TCP and UDP?"}},
	}
	p, rec := newTestPipeline(t, func(c *Config) { c.ASR = asrProvider })

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop()

	p.handleFrame(testFrame())

	waitFor(t, func() bool {
		_, questions, answers, _ := rec.counts()
		return questions == 1 && answers == 3
	})

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.questions[0].Type != detector.TypeTechnical {
		t.Errorf("question type = %q, want technical", rec.questions[0].Type)
	}
	if rec.questions[0].Confidence < 0.6 {
		t.Errorf("confidence = %v, want >= 0.6", rec.questions[0].Confidence)
	}
	if len(rec.fragments) != 1 {
		t.Errorf("fragments = %v", rec.fragments)
	}
	for _, v := range rec.answers {
		if v.Err != nil || v.Text == "" {
			t.Errorf("variant %s = %+v", v.Length, v)
		}
	}
}

func TestCorrectorRunsBeforeDetection(t *testing.T) {
	asrProvider := &asrmock.Provider{
		Transcripts: []*asr.Transcript{{Text: "can you explain coobernetes to me?"}},
	}
	p, rec := newTestPipeline(t, func(c *Config) {
		c.ASR = asrProvider
		c.Corrector = transcript.New([]string{"kubernetes"})
	})

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop()

	p.handleFrame(testFrame())

	waitFor(t, func() bool {
		_, questions, _, _ := rec.counts()
		return questions == 1
	})

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if !strings.Contains(rec.fragments[0], "kubernetes") {
		t.Errorf("fragment not corrected: %q", rec.fragments[0])
	}
	if !strings.Contains(strings.ToLower(rec.questions[0].Text), "kubernetes") {
		t.Errorf("question not corrected: %q", rec.questions[0].Text)
	}
}

func TestConcurrencyCap_DropsExcessChunks(t *testing.T) {
	release := make(chan struct{})
	asrProvider := &asrmock.Provider{
		TranscribeFn: func(ctx context.Context, _ asr.Request) (*asr.Transcript, error) {
			select {
			case <-release:
			case <-ctx.Done():
			}
			return nil, asr.ErrNoSpeech
		},
	}
	p, _ := newTestPipeline(t, func(c *Config) {
		c.ASR = asrProvider
		c.MaxConcurrent = 2
	})

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop()

	p.handleFrame(testFrame())
	p.handleFrame(testFrame())
	waitFor(t, func() bool { return asrProvider.CallCount() == 2 })

	p.handleFrame(testFrame())

	if got := p.Stats().TranscriptionsDropped; got != 1 {
		t.Errorf("TranscriptionsDropped = %d, want 1", got)
	}
	if got := asrProvider.CallCount(); got != 2 {
		t.Errorf("backend calls = %d, want 2 (third frame must not queue)", got)
	}
	close(release)
}

// scriptedGenerator blocks every Generate call until proceed is signalled,
// so tests can overlap question cycles deterministically.
type scriptedGenerator struct {
	started chan *detector.Question
	proceed chan struct{}
}

func (g *scriptedGenerator) Generate(_ context.Context, q *detector.Question, _ answer.Context, onVariant answer.OnVariant) *answer.Bundle {
	g.started <- q
	<-g.proceed
	v := answer.Variant{Length: answer.LengthShort, Text: "answer to " + q.Text}
	if onVariant != nil {
		onVariant(v)
	}
	return &answer.Bundle{
		Question: q,
		Variants: map[answer.Length]answer.Variant{answer.LengthShort: v},
	}
}

func TestEpochIsolation_StaleAnswersDiscarded(t *testing.T) {
	gen := &scriptedGenerator{
		started: make(chan *detector.Question, 2),
		proceed: make(chan struct{}),
	}
	p, rec := newTestPipeline(t, func(c *Config) { c.Generator = gen })

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop()

	p.handleFragment("How would you design a URL shortener?")
	first := <-gen.started

	p.handleFragment("What is the difference between TCP and UDP?")
	second := <-gen.started

	close(gen.proceed)

	waitFor(t, func() bool {
		_, _, answers, _ := rec.counts()
		return answers == 1
	})
	time.Sleep(20 * time.Millisecond)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.answers) != 1 {
		t.Fatalf("delivered %d answers, want 1 (stale must be discarded)", len(rec.answers))
	}
	if rec.answerFor[0] != second.Text {
		t.Errorf("answer attributed to %q, want %q", rec.answerFor[0], second.Text)
	}
	if rec.answers[0].Text == "answer to "+first.Text {
		t.Errorf("stale answer for %q delivered", first.Text)
	}
	if got := p.Stats().StaleDiscarded; got == 0 {
		t.Error("StaleDiscarded = 0, want at least 1")
	}
}

func TestUpdateCorrector_AppliesToLaterFragments(t *testing.T) {
	asrProvider := &asrmock.Provider{
		Transcripts: []*asr.Transcript{
			{Text: "can you explain coobernetes to me?"},
			{Text: "can you explain coobernetes to me?"},
		},
	}
	p, rec := newTestPipeline(t, func(c *Config) { c.ASR = asrProvider })

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop()

	p.handleFrame(testFrame())
	waitFor(t, func() bool {
		fragments, _, _, _ := rec.counts()
		return fragments == 1
	})

	p.UpdateCorrector(transcript.New([]string{"kubernetes"}))
	p.UpdateDetector(detector.Config{MinQuestionGap: time.Nanosecond})

	p.handleFrame(testFrame())
	waitFor(t, func() bool {
		fragments, _, _, _ := rec.counts()
		return fragments == 2
	})

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if strings.Contains(rec.fragments[0], "kubernetes") {
		t.Errorf("first fragment corrected before reload: %q", rec.fragments[0])
	}
	if !strings.Contains(rec.fragments[1], "kubernetes") {
		t.Errorf("second fragment not corrected after reload: %q", rec.fragments[1])
	}
}

// capturingGenerator records the prompt context of each Generate call.
type capturingGenerator struct {
	mu   sync.Mutex
	ctxs []answer.Context
}

func (g *capturingGenerator) Generate(_ context.Context, q *detector.Question, pctx answer.Context, onVariant answer.OnVariant) *answer.Bundle {
	g.mu.Lock()
	g.ctxs = append(g.ctxs, pctx)
	g.mu.Unlock()
	v := answer.Variant{Length: answer.LengthShort, Text: "ok"}
	if onVariant != nil {
		onVariant(v)
	}
	return &answer.Bundle{
		Question: q,
		Variants: map[answer.Length]answer.Variant{answer.LengthShort: v},
	}
}

func TestUpdatePrompt_AppliesToNextQuestion(t *testing.T) {
	gen := &capturingGenerator{}
	p, rec := newTestPipeline(t, func(c *Config) {
		c.Generator = gen
		c.Prompt = answer.Context{Company: "Initrode"}
	})

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop()

	p.handleFragment("What is the difference between TCP and UDP?")
	waitFor(t, func() bool {
		_, _, answers, _ := rec.counts()
		return answers == 1
	})

	p.UpdatePrompt(answer.Context{Company: "Acme"})

	p.handleFragment("How would you design a URL shortener?")
	waitFor(t, func() bool {
		_, _, answers, _ := rec.counts()
		return answers == 2
	})

	gen.mu.Lock()
	defer gen.mu.Unlock()
	if len(gen.ctxs) != 2 {
		t.Fatalf("Generate calls = %d, want 2", len(gen.ctxs))
	}
	if gen.ctxs[0].Company != "Initrode" || gen.ctxs[1].Company != "Acme" {
		t.Errorf("companies = %q, %q; want Initrode then Acme",
			gen.ctxs[0].Company, gen.ctxs[1].Company)
	}
}

func TestStop_SuppressesObservers(t *testing.T) {
	p, rec := newTestPipeline(t, nil)

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := p.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	p.handleFragment("What is the difference between TCP and UDP?")

	fragments, questions, answers, _ := rec.counts()
	if fragments != 0 || questions != 0 || answers != 0 {
		t.Errorf("callbacks after stop: fragments=%d questions=%d answers=%d",
			fragments, questions, answers)
	}
}

func TestTranscriptionError_ReportedAndNonFatal(t *testing.T) {
	backendErr := errors.New("upstream 500")
	asrProvider := &asrmock.Provider{Errs: []error{backendErr}}
	p, rec := newTestPipeline(t, func(c *Config) { c.ASR = asrProvider })

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop()

	p.handleFrame(testFrame())

	waitFor(t, func() bool {
		_, _, _, errs := rec.counts()
		return errs == 1
	})

	rec.mu.Lock()
	err := rec.errs[0]
	rec.mu.Unlock()
	if !errors.Is(err, backendErr) {
		t.Errorf("observer error = %v, want wrapped backend error", err)
	}
	if got := p.State(); got != StateListening {
		t.Errorf("state after backend error = %q, want listening", got)
	}
}

func TestNoSpeech_IsSilent(t *testing.T) {
	asrProvider := &asrmock.Provider{Errs: []error{asr.ErrNoSpeech}}
	p, rec := newTestPipeline(t, func(c *Config) { c.ASR = asrProvider })

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop()

	p.handleFrame(testFrame())
	waitFor(t, func() bool { return asrProvider.CallCount() == 1 })
	time.Sleep(10 * time.Millisecond)

	fragments, _, _, errs := rec.counts()
	if fragments != 0 || errs != 0 {
		t.Errorf("no-speech produced fragments=%d errs=%d", fragments, errs)
	}
}
