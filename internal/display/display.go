// Package display streams pipeline events to connected WebSocket clients.
//
// The [Hub] implements [pipeline.Observer]: every transcription, question,
// answer variant, state change and error is encoded as a JSON [Event] and
// broadcast to all clients connected to the /ws endpoint. The hub is a pure
// transport; rendering is left entirely to the client.
package display

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/redparrot-ai/redparrot/internal/answer"
	"github.com/redparrot-ai/redparrot/internal/detector"
	"github.com/redparrot-ai/redparrot/internal/pipeline"
)

// Event types carried in [Event.Type].
const (
	EventTranscription = "transcription"
	EventQuestion      = "question"
	EventAnswer        = "answer"
	EventState         = "state"
	EventError         = "error"
)

// Event is one JSON frame sent to display clients. Only the fields relevant
// to the event type are populated.
type Event struct {
	Type string    `json:"type"`
	At   time.Time `json:"at"`

	// EventTranscription
	Fragment string `json:"fragment,omitempty"`

	// EventQuestion and EventAnswer
	Question     string  `json:"question,omitempty"`
	QuestionType string  `json:"question_type,omitempty"`
	Confidence   float64 `json:"confidence,omitempty"`

	// EventAnswer
	Length string `json:"length,omitempty"`
	Answer string `json:"answer,omitempty"`

	// EventState
	State string `json:"state,omitempty"`

	// EventAnswer and EventError
	Error string `json:"error,omitempty"`
}

// clientBuffer is the per-client send queue depth. A client that falls this
// far behind is disconnected rather than allowed to stall the broadcast.
const clientBuffer = 32

// writeTimeout bounds a single frame write to one client.
const writeTimeout = 5 * time.Second

type client struct {
	send chan []byte
}

// Hub accepts WebSocket connections and fans pipeline events out to them.
// The zero value is not usable; create hubs with [NewHub].
type Hub struct {
	now func() time.Time

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

var _ pipeline.Observer = (*Hub)(nil)

// NewHub creates an empty hub ready to accept connections.
func NewHub() *Hub {
	return &Hub{
		now:     time.Now,
		clients: make(map[*client]struct{}),
	}
}

// ServeWS upgrades the request to a WebSocket connection and streams events
// until the client disconnects or the hub shuts down.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Debug("display: websocket accept failed", "error", err)
		return
	}

	c := &client{send: make(chan []byte, clientBuffer)}
	if !h.add(c) {
		conn.Close(websocket.StatusGoingAway, "shutting down")
		return
	}
	defer h.remove(c)

	// CloseRead discards incoming frames and cancels the returned context
	// when the client goes away.
	ctx := conn.CloseRead(r.Context())

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case msg, ok := <-c.send:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "shutting down")
				return
			}
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Write(wctx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				conn.Close(websocket.StatusNormalClosure, "")
				return
			}
		}
	}
}

// Register adds the /ws route to mux.
func (h *Hub) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws", h.ServeWS)
}

// Close disconnects all clients and rejects future connections.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}

// ClientCount reports the number of currently connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) add(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Broadcast sends ev to every connected client. Clients whose send queue is
// full are disconnected.
func (h *Hub) Broadcast(ev Event) {
	if ev.At.IsZero() {
		ev.At = h.now()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Error("display: encode event", "type", ev.Type, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			delete(h.clients, c)
			close(c.send)
			slog.Debug("display: dropped slow client")
		}
	}
}

// OnTranscription implements [pipeline.Observer].
func (h *Hub) OnTranscription(fragment string) {
	h.Broadcast(Event{Type: EventTranscription, Fragment: fragment})
}

// OnQuestionDetected implements [pipeline.Observer].
func (h *Hub) OnQuestionDetected(q detector.Question) {
	h.Broadcast(Event{
		Type:         EventQuestion,
		Question:     q.Text,
		QuestionType: string(q.Type),
		Confidence:   q.Confidence,
	})
}

// OnAnswerReady implements [pipeline.Observer].
func (h *Hub) OnAnswerReady(q detector.Question, v answer.Variant) {
	ev := Event{
		Type:     EventAnswer,
		Question: q.Text,
		Length:   string(v.Length),
		Answer:   v.Text,
	}
	if v.Err != nil {
		ev.Error = v.Err.Error()
	}
	h.Broadcast(ev)
}

// OnStateChange implements [pipeline.Observer].
func (h *Hub) OnStateChange(state pipeline.State) {
	h.Broadcast(Event{Type: EventState, State: string(state)})
}

// OnError implements [pipeline.Observer].
func (h *Hub) OnError(err error) {
	h.Broadcast(Event{Type: EventError, Error: err.Error()})
}
