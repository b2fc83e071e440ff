// Package observe provides application-wide observability primitives for
// RedParrot: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all RedParrot metrics.
const meterName = "github.com/redparrot-ai/redparrot"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// ASRDuration tracks speech-to-text transcription latency.
	ASRDuration metric.Float64Histogram

	// GenerationDuration tracks answer generation latency. Use with attribute:
	//   attribute.String("length", ...)
	GenerationDuration metric.Float64Histogram

	// --- Counters ---

	// ChunksEmitted counts audio chunks handed to transcription.
	ChunksEmitted metric.Int64Counter

	// TranscriptionsDropped counts chunks discarded because the concurrency
	// cap was reached.
	TranscriptionsDropped metric.Int64Counter

	// StaleAnswersDiscarded counts answers thrown away because a newer
	// question superseded them before they arrived.
	StaleAnswersDiscarded metric.Int64Counter

	// QuestionsDetected counts emitted questions. Use with attribute:
	//   attribute.String("type", ...)
	QuestionsDetected metric.Int64Counter

	// AnswerVariants counts finished answer variants. Use with attributes:
	//   attribute.String("length", ...), attribute.String("status", ...)
	AnswerVariants metric.Int64Counter

	// --- Error counters ---

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of live interview sessions.
	ActiveSessions metric.Int64UpDownCounter

	// TranscriptionsInFlight tracks chunks currently at the ASR backend.
	TranscriptionsInFlight metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for streaming-pipeline latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.ASRDuration, err = m.Float64Histogram("redparrot.asr.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.GenerationDuration, err = m.Float64Histogram("redparrot.generation.duration",
		metric.WithDescription("Latency of answer generation by variant length."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	// Counters.
	if met.ChunksEmitted, err = m.Int64Counter("redparrot.chunks.emitted",
		metric.WithDescription("Total audio chunks handed to transcription."),
	); err != nil {
		return nil, err
	}
	if met.TranscriptionsDropped, err = m.Int64Counter("redparrot.transcriptions.dropped",
		metric.WithDescription("Total chunks discarded at the transcription concurrency cap."),
	); err != nil {
		return nil, err
	}
	if met.StaleAnswersDiscarded, err = m.Int64Counter("redparrot.answers.stale_discarded",
		metric.WithDescription("Total answers discarded because their question was superseded."),
	); err != nil {
		return nil, err
	}
	if met.QuestionsDetected, err = m.Int64Counter("redparrot.questions.detected",
		metric.WithDescription("Total questions emitted by type."),
	); err != nil {
		return nil, err
	}
	if met.AnswerVariants, err = m.Int64Counter("redparrot.answer.variants",
		metric.WithDescription("Total finished answer variants by length and status."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.ProviderErrors, err = m.Int64Counter("redparrot.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("redparrot.active_sessions",
		metric.WithDescription("Number of live interview sessions."),
	); err != nil {
		return nil, err
	}
	if met.TranscriptionsInFlight, err = m.Int64UpDownCounter("redparrot.transcriptions.in_flight",
		metric.WithDescription("Chunks currently at the ASR backend."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("redparrot.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordQuestionDetected records a detected question with its type.
func (m *Metrics) RecordQuestionDetected(ctx context.Context, questionType string) {
	m.QuestionsDetected.Add(ctx, 1,
		metric.WithAttributes(attribute.String("type", questionType)),
	)
}

// RecordAnswerVariant records one finished answer variant with the standard
// attribute set.
func (m *Metrics) RecordAnswerVariant(ctx context.Context, length, status string) {
	m.AnswerVariants.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("length", length),
			attribute.String("status", status),
		),
	)
}

// RecordProviderError is a convenience method that records a provider error
// counter increment.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}
