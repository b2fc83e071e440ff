// Package groq implements asr.Provider on top of Groq's hosted Whisper API.
//
// Audio chunks are WAV-encoded and uploaded as multipart form data to the
// OpenAI-compatible transcriptions endpoint. The verbose_json response format
// is requested so that per-segment no_speech_prob and avg_logprob are
// available for confidence scoring; the plain SDK response types do not
// expose those fields.
package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/redparrot-ai/redparrot/pkg/audio"
	"github.com/redparrot-ai/redparrot/pkg/provider/asr"
)

const (
	defaultBaseURL = "https://api.groq.com/openai/v1/audio/transcriptions"
	defaultModel   = "whisper-large-v3-turbo"
	defaultTimeout = 30 * time.Second

	// Segments with a higher no-speech probability than this are treated as
	// silence or background noise, matching Whisper's own default cutoff.
	noSpeechThreshold = 0.6
)

// Compile-time assertion that Provider satisfies asr.Provider.
var _ asr.Provider = (*Provider)(nil)

// Provider transcribes audio chunks via the Groq Whisper API.
type Provider struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithBaseURL overrides the transcriptions endpoint URL. Useful for proxies
// and test servers.
func WithBaseURL(url string) Option {
	return func(p *Provider) { p.baseURL = url }
}

// WithModel selects the Whisper model. Defaults to whisper-large-v3-turbo.
func WithModel(model string) Option {
	return func(p *Provider) { p.model = model }
}

// WithHTTPClient replaces the HTTP client used for uploads. The default
// client applies a 30 second timeout per request.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.client = c }
}

// New creates a Groq transcription provider.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("groq: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		model:   defaultModel,
		client:  &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Name implements [asr.Provider].
func (p *Provider) Name() string { return "groq" }

// response mirrors the verbose_json payload of the transcriptions endpoint.
type response struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Segments []struct {
		Text         string  `json:"text"`
		NoSpeechProb float64 `json:"no_speech_prob"`
		AvgLogProb   float64 `json:"avg_logprob"`
	} `json:"segments"`
}

// Transcribe implements [asr.Provider]. The frame's PCM is wrapped in a WAV
// container and uploaded in a single request.
func (p *Provider) Transcribe(ctx context.Context, req asr.Request) (*asr.Transcript, error) {
	wav := audio.EncodeWAV(req.Frame.PCM, req.Frame.SampleRate, req.Frame.Channels)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "chunk.wav")
	if err != nil {
		return nil, fmt.Errorf("groq: build form: %w", err)
	}
	if _, err := part.Write(wav); err != nil {
		return nil, fmt.Errorf("groq: write form: %w", err)
	}
	_ = writer.WriteField("model", p.model)
	_ = writer.WriteField("response_format", "verbose_json")
	if req.Language != "" {
		_ = writer.WriteField("language", req.Language)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("groq: finalise form: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, &body)
	if err != nil {
		return nil, fmt.Errorf("groq: build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("groq: upload chunk: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("groq: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("groq: API error %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var parsed response
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, fmt.Errorf("groq: parse response: %w", err)
	}

	text := strings.TrimSpace(parsed.Text)
	maxNoSpeech, avgLogProb := aggregateSegments(parsed)
	if text == "" || maxNoSpeech > noSpeechThreshold {
		return nil, asr.ErrNoSpeech
	}

	return &asr.Transcript{
		Text:           text,
		Language:       parsed.Language,
		Confidence:     confidenceFromLogProb(avgLogProb),
		SourceDuration: req.Frame.Duration,
		ProducedAt:     time.Now(),
	}, nil
}

// aggregateSegments folds per-segment stats into the worst-case no-speech
// probability and the mean average log probability.
func aggregateSegments(r response) (maxNoSpeech, avgLogProb float64) {
	if len(r.Segments) == 0 {
		return 0, 0
	}
	var sum float64
	for _, seg := range r.Segments {
		if seg.NoSpeechProb > maxNoSpeech {
			maxNoSpeech = seg.NoSpeechProb
		}
		sum += seg.AvgLogProb
	}
	return maxNoSpeech, sum / float64(len(r.Segments))
}

// confidenceFromLogProb maps Whisper's average token log probability to a
// [0,1] confidence. A log probability of 0 means every token was certain.
func confidenceFromLogProb(avgLogProb float64) float64 {
	c := math.Exp(avgLogProb)
	if c > 1 {
		c = 1
	}
	if c < 0 {
		c = 0
	}
	return c
}
