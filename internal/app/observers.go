package app

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/redparrot-ai/redparrot/internal/answer"
	"github.com/redparrot-ai/redparrot/internal/detector"
	"github.com/redparrot-ai/redparrot/internal/observe"
	"github.com/redparrot-ai/redparrot/internal/pipeline"
	"github.com/redparrot-ai/redparrot/pkg/provider/asr"
	"github.com/redparrot-ai/redparrot/pkg/provider/llm"
)

// metricsObserver converts pipeline events into metric increments. It is
// registered alongside the display hub.
type metricsObserver struct {
	m *observe.Metrics
}

var _ pipeline.Observer = (*metricsObserver)(nil)

func (o *metricsObserver) OnTranscription(string) {}

func (o *metricsObserver) OnQuestionDetected(q detector.Question) {
	o.m.RecordQuestionDetected(context.Background(), string(q.Type))
}

func (o *metricsObserver) OnAnswerReady(_ detector.Question, v answer.Variant) {
	ctx := context.Background()
	status := "ok"
	if v.Err != nil {
		status = "error"
	}
	o.m.RecordAnswerVariant(ctx, string(v.Length), status)
	o.m.GenerationDuration.Record(ctx, v.Elapsed.Seconds(),
		metric.WithAttributes(observe.Attr("length", string(v.Length))),
	)
}

func (o *metricsObserver) OnStateChange(pipeline.State) {}

func (o *metricsObserver) OnError(error) {}

// instrumentedASR wraps an ASR provider with latency, in-flight, and error
// metrics.
type instrumentedASR struct {
	asr.Provider
	m *observe.Metrics
}

func instrumentASR(p asr.Provider, m *observe.Metrics) asr.Provider {
	return &instrumentedASR{Provider: p, m: m}
}

func (i *instrumentedASR) Transcribe(ctx context.Context, req asr.Request) (*asr.Transcript, error) {
	i.m.TranscriptionsInFlight.Add(ctx, 1)
	defer i.m.TranscriptionsInFlight.Add(ctx, -1)

	start := time.Now()
	tr, err := i.Provider.Transcribe(ctx, req)
	i.m.ASRDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(observe.Attr("provider", i.Provider.Name())),
	)
	if err != nil && !errors.Is(err, asr.ErrNoSpeech) {
		i.m.RecordProviderError(ctx, i.Provider.Name(), "asr")
	}
	return tr, err
}

// instrumentedLLM wraps an LLM provider with error metrics. Latency is
// recorded per answer variant by the metrics observer.
type instrumentedLLM struct {
	llm.Provider
	m *observe.Metrics
}

func instrumentLLM(p llm.Provider, m *observe.Metrics) llm.Provider {
	return &instrumentedLLM{Provider: p, m: m}
}

func (i *instrumentedLLM) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	resp, err := i.Provider.Complete(ctx, req)
	if err != nil {
		i.m.RecordProviderError(ctx, i.Provider.Name(), "llm")
	}
	return resp, err
}
