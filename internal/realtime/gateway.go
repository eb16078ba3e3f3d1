package realtime

import (
	"log/slog"
	"sync"

	"github.com/mcoot/gridarena/internal/model"
)

// Gateway owns one hub per active room plus the global lobby hub
type Gateway struct {
	mu        sync.Mutex
	hubs      map[model.RoomID]*roomHub
	global    *Hub
	queueSize int
	logger    *slog.Logger
}

// roomHub is a room's hub plus what keeps it alive. A hub opened only by
// spectators stops with its last spectator; once the room publishes or
// subscribes a player it lives until CloseRoom.
type roomHub struct {
	hub        *Hub
	inPlay     bool
	spectators int
}

// Ensure Gateway implements Publisher
var _ Publisher = (*Gateway)(nil)

// NewGateway creates a Gateway and starts its global hub
func NewGateway(queueSize int, logger *slog.Logger) *Gateway {
	logger = logger.With(slog.String("component", "realtime"))
	g := &Gateway{
		hubs:      make(map[model.RoomID]*roomHub),
		global:    NewHub("", queueSize, logger),
		queueSize: queueSize,
		logger:    logger,
	}
	go g.global.Run()
	return g
}

// entry returns the hub entry for a room, starting one if needed.
// Caller holds g.mu.
func (g *Gateway) entry(roomID model.RoomID) *roomHub {
	if rh, ok := g.hubs[roomID]; ok {
		return rh
	}
	rh := &roomHub{hub: NewHub(roomID, g.queueSize, g.logger)}
	g.hubs[roomID] = rh
	go rh.hub.Run()
	return rh
}

// hub returns the hub for a room in play, creating it if needed
func (g *Gateway) hub(roomID model.RoomID) *Hub {
	g.mu.Lock()
	defer g.mu.Unlock()
	rh := g.entry(roomID)
	rh.inPlay = true
	return rh.hub
}

// existing returns the hub for a room, or nil if none is running
func (g *Gateway) existing(roomID model.RoomID) *Hub {
	g.mu.Lock()
	defer g.mu.Unlock()
	if rh, ok := g.hubs[roomID]; ok {
		return rh.hub
	}
	return nil
}

func (g *Gateway) Broadcast(roomID model.RoomID, event *model.Event) {
	g.hub(roomID).Publish(event)
}

func (g *Gateway) Unicast(roomID model.RoomID, subscriberID string, event *model.Event) {
	if hub := g.existing(roomID); hub != nil {
		hub.PublishTo(subscriberID, event)
	}
}

func (g *Gateway) NotifyGlobal(event *model.Event) {
	g.global.Publish(event)
}

func (g *Gateway) Subscribe(roomID model.RoomID, sub Subscriber) {
	g.hub(roomID).Register(sub)
}

func (g *Gateway) Unsubscribe(roomID model.RoomID, subscriberID string) {
	if hub := g.existing(roomID); hub != nil {
		hub.Unregister(subscriberID)
	}
}

// Spectate attaches a spectator to a room and returns the func that
// detaches it. Detaching the last spectator of a room that never came into
// play stops its hub.
func (g *Gateway) Spectate(roomID model.RoomID, sub Subscriber) (release func()) {
	g.mu.Lock()
	rh := g.entry(roomID)
	rh.spectators++
	rh.hub.Register(sub)
	g.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { g.release(roomID, rh, sub) })
	}
}

func (g *Gateway) release(roomID model.RoomID, rh *roomHub, sub Subscriber) {
	rh.hub.UnregisterSubscriber(sub)

	g.mu.Lock()
	rh.spectators--
	idle := rh.spectators == 0 && !rh.inPlay && g.hubs[roomID] == rh
	if idle {
		delete(g.hubs, roomID)
	}
	g.mu.Unlock()

	if idle {
		rh.hub.Stop()
		g.logger.Debug("spectator hub stopped", slog.String("room_id", string(roomID)))
	}
}

// SubscribeGlobal attaches a subscriber to lobby-wide notifications
func (g *Gateway) SubscribeGlobal(sub Subscriber) {
	g.global.Register(sub)
}

// UnsubscribeGlobal detaches sub from lobby-wide notifications if it has
// not been replaced by a newer subscriber with the same ID
func (g *Gateway) UnsubscribeGlobal(sub Subscriber) {
	g.global.UnregisterSubscriber(sub)
}

func (g *Gateway) CloseRoom(roomID model.RoomID) {
	g.mu.Lock()
	rh, ok := g.hubs[roomID]
	delete(g.hubs, roomID)
	g.mu.Unlock()

	if ok {
		rh.hub.Stop()
		g.logger.Info("room hub removed", slog.String("room_id", string(roomID)))
	}
}

// RoomSubscriberCount returns the subscribers attached to a room's hub
func (g *Gateway) RoomSubscriberCount(roomID model.RoomID) int {
	if hub := g.existing(roomID); hub != nil {
		return hub.ClientCount()
	}
	return 0
}

// ActiveRooms returns the number of rooms with a running hub
func (g *Gateway) ActiveRooms() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.hubs)
}

// Close stops every hub
func (g *Gateway) Close() {
	g.mu.Lock()
	hubs := g.hubs
	g.hubs = make(map[model.RoomID]*roomHub)
	g.mu.Unlock()

	for _, rh := range hubs {
		rh.hub.Stop()
	}
	g.global.Stop()
}
