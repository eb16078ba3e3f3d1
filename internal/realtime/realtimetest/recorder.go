// Package realtimetest provides an in-process publisher for tests.
package realtimetest

import (
	"slices"
	"sync"

	"github.com/mcoot/gridarena/internal/model"
	"github.com/mcoot/gridarena/internal/realtime"
)

// Sent is one recorded delivery. SubscriberID is empty for broadcasts and
// RoomID is empty for global notifications.
type Sent struct {
	RoomID       model.RoomID
	SubscriberID string
	Event        *model.Event
}

// Recorder is a synchronous realtime.Publisher that records every event in
// order and forwards it to the subscribers it knows about
type Recorder struct {
	mu     sync.Mutex
	sent   []Sent
	subs   map[model.RoomID]map[string]realtime.Subscriber
	global map[string]realtime.Subscriber
	closed []model.RoomID
}

var _ realtime.Publisher = (*Recorder)(nil)

// NewRecorder creates an empty Recorder
func NewRecorder() *Recorder {
	return &Recorder{
		subs:   make(map[model.RoomID]map[string]realtime.Subscriber),
		global: make(map[string]realtime.Subscriber),
	}
}

func (r *Recorder) Broadcast(roomID model.RoomID, event *model.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, Sent{RoomID: roomID, Event: event})
	for _, sub := range r.subs[roomID] {
		sub.Deliver(event)
	}
}

func (r *Recorder) Unicast(roomID model.RoomID, subscriberID string, event *model.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, Sent{RoomID: roomID, SubscriberID: subscriberID, Event: event})
	if sub, ok := r.subs[roomID][subscriberID]; ok {
		sub.Deliver(event)
	}
}

func (r *Recorder) NotifyGlobal(event *model.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, Sent{Event: event})
	for _, sub := range r.global {
		sub.Deliver(event)
	}
}

func (r *Recorder) Subscribe(roomID model.RoomID, sub realtime.Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.subs[roomID] == nil {
		r.subs[roomID] = make(map[string]realtime.Subscriber)
	}
	r.subs[roomID][sub.ID()] = sub
}

func (r *Recorder) Unsubscribe(roomID model.RoomID, subscriberID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subs[roomID], subscriberID)
}

func (r *Recorder) CloseRoom(roomID model.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = append(r.closed, roomID)
	delete(r.subs, roomID)
}

// SubscribeGlobal attaches a subscriber to global notifications
func (r *Recorder) SubscribeGlobal(sub realtime.Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.global[sub.ID()] = sub
}

// UnsubscribeGlobal detaches sub if it is still the registered subscriber
// for its ID
func (r *Recorder) UnsubscribeGlobal(sub realtime.Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.global[sub.ID()] == sub {
		delete(r.global, sub.ID())
	}
}

// Sent returns every recorded delivery in order
func (r *Recorder) Sent() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.sent)
}

// Broadcasts returns the events broadcast to a room in order
func (r *Recorder) Broadcasts(roomID model.RoomID) []*model.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Event
	for _, s := range r.sent {
		if s.RoomID == roomID && s.SubscriberID == "" {
			out = append(out, s.Event)
		}
	}
	return out
}

// Types returns the types of the events broadcast to a room in order
func (r *Recorder) Types(roomID model.RoomID) []model.EventType {
	var out []model.EventType
	for _, e := range r.Broadcasts(roomID) {
		out = append(out, e.Type)
	}
	return out
}

// Unicasts returns the events sent to one subscriber of a room in order
func (r *Recorder) Unicasts(roomID model.RoomID, subscriberID string) []*model.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Event
	for _, s := range r.sent {
		if s.RoomID == roomID && s.SubscriberID == subscriberID {
			out = append(out, s.Event)
		}
	}
	return out
}

// Global returns the global notifications in order
func (r *Recorder) Global() []*model.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Event
	for _, s := range r.sent {
		if s.RoomID == "" && s.SubscriberID == "" {
			out = append(out, s.Event)
		}
	}
	return out
}

// Closed returns the rooms whose hubs were closed
func (r *Recorder) Closed() []model.RoomID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.closed)
}

// Reset forgets every recorded delivery
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = nil
	r.closed = nil
}
