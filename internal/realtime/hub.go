package realtime

import (
	"log/slog"
	"sync/atomic"

	"github.com/mcoot/gridarena/internal/model"
)

const defaultQueueSize = 1024

type opKind int

const (
	opRegister opKind = iota
	opUnregister
	opPublish
	opUnicast
	opStop
)

// op is a single hub instruction. All instructions share one queue so that
// registration, broadcast and shutdown are applied in the order issued.
type op struct {
	kind   opKind
	sub    Subscriber
	target string // subscriber ID for opUnregister and opUnicast
	only   bool   // opUnregister: remove only if the registered subscriber is sub
	event  *model.Event
}

// Hub fans events out to the subscribers of a single room.
// A Hub with an empty room ID serves the global lobby audience.
type Hub struct {
	roomID  model.RoomID
	ops     chan op
	done    chan struct{}
	clients atomic.Int32
	logger  *slog.Logger

	// Owned by the Run goroutine
	subs map[string]Subscriber
}

// NewHub creates a new Hub for a room
func NewHub(roomID model.RoomID, queueSize int, logger *slog.Logger) *Hub {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	hubName := string(roomID)
	if hubName == "" {
		hubName = "global"
	}
	return &Hub{
		roomID: roomID,
		ops:    make(chan op, queueSize),
		done:   make(chan struct{}),
		subs:   make(map[string]Subscriber),
		logger: logger.With(slog.String("hub", hubName)),
	}
}

// Run processes hub instructions until Stop is handled
func (h *Hub) Run() {
	h.logger.Debug("hub started")
	for o := range h.ops {
		switch o.kind {
		case opRegister:
			if prev, ok := h.subs[o.sub.ID()]; ok && prev != o.sub {
				h.logger.Debug("subscriber replaced", slog.String("subscriber", o.sub.ID()))
			}
			h.subs[o.sub.ID()] = o.sub
			h.clients.Store(int32(len(h.subs)))
			h.logger.Debug("subscriber registered",
				slog.String("subscriber", o.sub.ID()),
				slog.Int("total_subscribers", len(h.subs)))

		case opUnregister:
			current, ok := h.subs[o.target]
			if !ok || (o.only && current != o.sub) {
				continue
			}
			delete(h.subs, o.target)
			h.clients.Store(int32(len(h.subs)))
			h.logger.Debug("subscriber unregistered",
				slog.String("subscriber", o.target),
				slog.Int("total_subscribers", len(h.subs)))

		case opPublish:
			dropped := 0
			for id, sub := range h.subs {
				if !sub.Deliver(o.event) {
					dropped++
					h.logger.Warn("event dropped - subscriber buffer full",
						slog.String("subscriber", id),
						slog.String("event", string(o.event.Type)))
				}
			}
			if dropped > 0 {
				h.logger.Warn("broadcast partial failure",
					slog.Int("sent", len(h.subs)-dropped),
					slog.Int("dropped", dropped))
			}

		case opUnicast:
			sub, ok := h.subs[o.target]
			if !ok {
				continue
			}
			if !sub.Deliver(o.event) {
				h.logger.Warn("unicast dropped - subscriber buffer full",
					slog.String("subscriber", o.target),
					slog.String("event", string(o.event.Type)))
			}

		case opStop:
			count := len(h.subs)
			for id, sub := range h.subs {
				sub.HubClosed(h.roomID)
				delete(h.subs, id)
			}
			h.clients.Store(0)
			close(h.done)
			h.logger.Debug("hub stopped", slog.Int("detached_subscribers", count))
			return
		}
	}
}

// enqueue queues an instruction unless the hub has stopped
func (h *Hub) enqueue(o op) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.ops <- o:
		return true
	case <-h.done:
		return false
	}
}

// Register adds a subscriber to the hub
func (h *Hub) Register(sub Subscriber) {
	h.enqueue(op{kind: opRegister, sub: sub})
}

// Unregister removes the subscriber with the given ID
func (h *Hub) Unregister(id string) {
	h.enqueue(op{kind: opUnregister, target: id})
}

// UnregisterSubscriber removes sub only if it is still the registered
// subscriber for its ID
func (h *Hub) UnregisterSubscriber(sub Subscriber) {
	h.enqueue(op{kind: opUnregister, target: sub.ID(), sub: sub, only: true})
}

// Publish queues an event for every subscriber
func (h *Hub) Publish(event *model.Event) {
	if !h.enqueue(op{kind: opPublish, event: event}) {
		h.logger.Debug("publish to stopped hub ignored", slog.String("event", string(event.Type)))
	}
}

// PublishTo queues an event for a single subscriber
func (h *Hub) PublishTo(id string, event *model.Event) {
	h.enqueue(op{kind: opUnicast, target: id, event: event})
}

// Stop shuts the hub down once previously queued instructions are handled
func (h *Hub) Stop() {
	h.enqueue(op{kind: opStop})
}

// Done is closed when the hub has stopped
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// ClientCount returns the number of registered subscribers
func (h *Hub) ClientCount() int {
	return int(h.clients.Load())
}
