package realtime

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mcoot/gridarena/internal/model"
)

const (
	// Time allowed to write a message to the peer
	sseWriteWait = 10 * time.Second

	// Time between keepalive comments
	sseKeepalivePeriod = 30 * time.Second

	// Buffer size for outgoing events
	streamBufferSize = 256
)

// StreamSubscriber buffers room events for a spectator stream
type StreamSubscriber struct {
	id       string
	playerID model.PlayerID
	events   chan *model.Event
	closed   chan struct{}
	once     sync.Once
}

// NewStreamSubscriber creates a subscriber with a unique spectator ID
func NewStreamSubscriber(playerID model.PlayerID) *StreamSubscriber {
	return &StreamSubscriber{
		id:       "spectator:" + uuid.NewString(),
		playerID: playerID,
		events:   make(chan *model.Event, streamBufferSize),
		closed:   make(chan struct{}),
	}
}

func (s *StreamSubscriber) ID() string { return s.id }

func (s *StreamSubscriber) Deliver(event *model.Event) bool {
	select {
	case s.events <- event:
		return true
	default:
		return false
	}
}

func (s *StreamSubscriber) HubClosed(model.RoomID) {
	s.once.Do(func() { close(s.closed) })
}

// Events returns the buffered event channel
func (s *StreamSubscriber) Events() <-chan *model.Event {
	return s.events
}

// Closed is closed once the room's hub has stopped
func (s *StreamSubscriber) Closed() <-chan struct{} {
	return s.closed
}

// ServeSSE streams the events delivered to sub until the client goes away
// or the room's hub stops. The caller attaches sub to the room first.
func ServeSSE(w http.ResponseWriter, r *http.Request, sub *StreamSubscriber, roomID model.RoomID, logger *slog.Logger) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}
	rc := http.NewResponseController(w)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	logger = logger.With(
		slog.String("room_id", string(roomID)),
		slog.String("subscriber", sub.ID()),
		slog.String("player_id", string(sub.playerID)))
	logger.Info("spectator stream opened")
	defer logger.Info("spectator stream closed")

	write := func(msg []byte) bool {
		_ = rc.SetWriteDeadline(time.Now().Add(sseWriteWait))
		if _, err := w.Write(msg); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	if !write(formatSSEMessage("connected", `{"room_id":"`+string(roomID)+`"}`)) {
		return
	}

	ticker := time.NewTicker(sseKeepalivePeriod)
	defer ticker.Stop()

	for {
		select {
		case event := <-sub.Events():
			data, err := json.Marshal(event)
			if err != nil {
				logger.Error("failed to encode event", slog.Any("error", err))
				continue
			}
			if !write(formatSSEMessage(string(event.Type), string(data))) {
				return
			}

		case <-sub.Closed():
			// Flush anything the hub delivered before stopping
			for {
				select {
				case event := <-sub.Events():
					if data, err := json.Marshal(event); err == nil {
						write(formatSSEMessage(string(event.Type), string(data)))
					}
				default:
					write(formatSSEMessage("closed", `{"room_id":"`+string(roomID)+`"}`))
					return
				}
			}

		case <-ticker.C:
			if !write([]byte(": keepalive\n\n")) {
				return
			}

		case <-r.Context().Done():
			return
		}
	}
}

// formatSSEMessage formats an SSE message with event name and data.
// Each line of data gets its own "data: " prefix.
func formatSSEMessage(eventName, data string) []byte {
	var b strings.Builder
	b.WriteString("event: ")
	b.WriteString(eventName)
	b.WriteString("\n")
	for _, line := range splitLines(data) {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return []byte(b.String())
}

// splitLines splits a string into lines, dropping carriage returns
func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.TrimSuffix(s, "\n")
	return strings.Split(s, "\n")
}
