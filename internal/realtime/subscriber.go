package realtime

import "github.com/mcoot/gridarena/internal/model"

// Subscriber receives events fanned out by a hub
type Subscriber interface {
	// ID identifies the subscriber within a hub. Registering a second
	// subscriber with the same ID replaces the first.
	ID() string

	// Deliver hands an event to the subscriber without blocking and
	// reports whether it was accepted.
	Deliver(event *model.Event) bool

	// HubClosed is called once when the hub stops while the subscriber
	// is still registered.
	HubClosed(roomID model.RoomID)
}

// Publisher is the broadcast surface the game engines depend on
type Publisher interface {
	// Broadcast fans an event out to every subscriber of a room, in enqueue order
	Broadcast(roomID model.RoomID, event *model.Event)

	// Unicast delivers an event to one subscriber of a room, ordered with
	// the room's broadcasts
	Unicast(roomID model.RoomID, subscriberID string, event *model.Event)

	// NotifyGlobal fans an event out to every connected client
	NotifyGlobal(event *model.Event)

	// Subscribe attaches a subscriber to a room
	Subscribe(roomID model.RoomID, sub Subscriber)

	// Unsubscribe detaches the subscriber with the given ID from a room
	Unsubscribe(roomID model.RoomID, subscriberID string)

	// CloseRoom stops a room's hub after draining queued events
	CloseRoom(roomID model.RoomID)
}
