package pipeline

import (
	"github.com/redparrot-ai/redparrot/internal/answer"
	"github.com/redparrot-ai/redparrot/internal/detector"
)

// Observer receives pipeline events. All callbacks are fire-and-forget: the
// pipeline never consumes a return value and never retries a delivery.
//
// OnTranscription, OnQuestionDetected and OnAnswerReady are suppressed once
// Stop has been called, even for backend calls that were already in flight.
// Callbacks may arrive from different goroutines; implementations must be
// safe for concurrent use, should return quickly, and must not call back
// into the pipeline.
type Observer interface {
	// OnTranscription delivers one corrected transcript fragment.
	OnTranscription(fragment string)

	// OnQuestionDetected delivers each detected question exactly once.
	OnQuestionDetected(q detector.Question)

	// OnAnswerReady delivers one finished answer variant for q, failed or
	// not. Variants for a question arrive in completion order, not length
	// order.
	OnAnswerReady(q detector.Question, v answer.Variant)

	// OnStateChange delivers every state transition.
	OnStateChange(state State)

	// OnError delivers recoverable backend errors. The pipeline keeps
	// running after every error delivered here.
	OnError(err error)
}
