package pipeline

// State is the orchestrator's lifecycle state. Transitions follow
// idle → initializing → listening, then cycle through transcribing,
// detecting and generating while running. Stop returns to idle from any
// state.
type State string

const (
	// StateIdle means the pipeline is not running.
	StateIdle State = "idle"

	// StateInitializing covers audio acquisition and backend validation
	// during Start.
	StateInitializing State = "initializing"

	// StateListening means audio is being captured and chunked.
	StateListening State = "listening"

	// StateTranscribing means at least one chunk is at the ASR backend.
	StateTranscribing State = "transcribing"

	// StateDetecting means a fragment is being fed to the question
	// detector.
	StateDetecting State = "detecting"

	// StateGenerating means answers for the current question are in
	// flight.
	StateGenerating State = "generating"

	// StateError marks a failed start before the pipeline falls back to
	// idle.
	StateError State = "error"
)
