package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/mcoot/gridarena/internal/dependencies/clock"
	"github.com/mcoot/gridarena/internal/dependencies/random"
	"github.com/mcoot/gridarena/internal/model"
	"github.com/mcoot/gridarena/internal/realtime"
	"github.com/mcoot/gridarena/internal/storage"
)

// maxAttempts bounds retries when a room is purged or a player moves
// between lookup and lock
const maxAttempts = 8

var errRetry = errors.New("room changed during lookup")

// retirable is implemented by subscribers that a newer connection can
// replace while their join waits on the player's lock
type retirable interface {
	Retired() bool
}

func retired(sub realtime.Subscriber) bool {
	rs, ok := sub.(retirable)
	return ok && rs.Retired()
}

// Registry owns room membership and the live per-room state cache.
// Every mutation of a room runs under that room's lock, spanning validation,
// the durable write and the cache update. Joins and leaves also hold the
// player's lock so one player's membership changes never interleave.
type Registry struct {
	store  storage.Storage
	pub    realtime.Publisher
	clock  clock.Clock
	random random.Random
	rules  model.Rules
	logger *slog.Logger

	members *playerLocks

	mu    sync.Mutex
	rooms map[model.RoomID]*roomState
	index map[model.PlayerID]model.RoomID
}

// New creates a Registry
func New(store storage.Storage, pub realtime.Publisher, clk clock.Clock, rnd random.Random, rules model.Rules, logger *slog.Logger) *Registry {
	return &Registry{
		store:   store,
		pub:     pub,
		clock:   clk,
		random:  rnd,
		rules:   rules,
		logger:  logger.With(slog.String("component", "registry")),
		members: newPlayerLocks(),
		rooms:   make(map[model.RoomID]*roomState),
		index:   make(map[model.PlayerID]model.RoomID),
	}
}

// Rules returns the game rules the registry was built with
func (r *Registry) Rules() model.Rules {
	return r.rules
}

func persistence(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", model.ErrPersistence, op, err)
}

// CreateRoom creates an empty room. maxPlayers <= 0 uses the default capacity.
func (r *Registry) CreateRoom(ctx context.Context, name string, maxPlayers int) (*model.Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, model.ErrInvalidRoomName
	}
	if maxPlayers <= 0 {
		maxPlayers = r.rules.DefaultMaxPlayers
	}

	now := r.clock.Now()
	room := &model.Room{
		ID:         model.RoomID(uuid.NewString()),
		Name:       name,
		MaxPlayers: maxPlayers,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := r.store.SaveRoom(ctx, room); err != nil {
		return nil, persistence("save room", err)
	}

	r.mu.Lock()
	r.rooms[room.ID] = newRoomState(room.Clone())
	r.mu.Unlock()

	r.logger.Info("room created",
		slog.String("room_id", string(room.ID)),
		slog.String("name", name),
		slog.Int("max_players", maxPlayers))

	r.notifyRooms(ctx)
	return room, nil
}

// ListRooms returns the lobby list
func (r *Registry) ListRooms(ctx context.Context) ([]model.RoomSummary, error) {
	rooms, err := r.store.ListRooms(ctx)
	if err != nil {
		return nil, persistence("list rooms", err)
	}
	summaries := make([]model.RoomSummary, len(rooms))
	for i, room := range rooms {
		summaries[i] = room.Summary()
	}
	return summaries, nil
}

// RoomOf returns the room a player is currently joined to
func (r *Registry) RoomOf(playerID model.PlayerID) (model.RoomID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	roomID, ok := r.index[playerID]
	return roomID, ok
}

// Snapshot returns the occupant map of a room. Rooms not held in the live
// cache are read from storage.
func (r *Registry) Snapshot(ctx context.Context, roomID model.RoomID) (*model.RoomSnapshot, error) {
	r.mu.Lock()
	rs, ok := r.rooms[roomID]
	r.mu.Unlock()

	if ok {
		rs.mu.Lock()
		defer rs.mu.Unlock()
		if !rs.removed {
			return rs.snapshot(), nil
		}
	}

	loaded, err := r.loadRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return loaded.snapshot(), nil
}

// Join moves a player into a room, leaving any previous room first.
// sub, when non-nil, is attached to the room's broadcast channel and
// receives a room_snapshot after the player_joined broadcast.
func (r *Registry) Join(ctx context.Context, playerID model.PlayerID, roomID model.RoomID, sub realtime.Subscriber) (*model.RoomSnapshot, error) {
	release := r.members.lock(playerID)
	defer release()

	if sub != nil && retired(sub) {
		return nil, model.ErrSuperseded
	}

	for range maxAttempts {
		snap, changed, err := r.tryJoin(ctx, playerID, roomID, sub)
		if errors.Is(err, errRetry) {
			continue
		}
		if changed {
			r.notifyRooms(ctx)
		}
		return snap, err
	}
	return nil, fmt.Errorf("join %s: %w", roomID, errRetry)
}

func (r *Registry) tryJoin(ctx context.Context, playerID model.PlayerID, roomID model.RoomID, sub realtime.Subscriber) (*model.RoomSnapshot, bool, error) {
	target, err := r.acquire(ctx, roomID)
	if err != nil {
		return nil, false, err
	}

	r.mu.Lock()
	oldID, inRoom := r.index[playerID]
	var old *roomState
	if inRoom && oldID != roomID {
		old = r.rooms[oldID]
	}
	r.mu.Unlock()

	unlock := lockRooms(target, old)
	defer unlock()

	if target.removed || (old != nil && old.removed) {
		return nil, false, errRetry
	}
	if current, ok := r.RoomOf(playerID); ok != inRoom || current != oldID {
		return nil, false, errRetry
	}

	// Rejoining the current room only rebinds the subscriber
	if inRoom && oldID == roomID {
		r.attach(target, playerID, sub)
		return target.snapshot(), false, nil
	}

	if target.room.IsFull() {
		return nil, false, model.ErrRoomFull
	}

	var profile *model.Player
	if old != nil {
		profile = old.profiles[playerID].Clone()
	} else {
		profile, err = r.store.GetPlayer(ctx, playerID)
		if err != nil {
			if errors.Is(err, model.ErrPlayerNotFound) {
				return nil, false, err
			}
			return nil, false, persistence("load player", err)
		}
	}

	prevProfile := profile.Clone()
	now := r.clock.Now()
	r.placeForJoin(target, profile)
	profile.CurrentRoom = roomID
	profile.UpdatedAt = now

	var undo undoLog

	// Durable writes: the new room, the profile, then the old room
	prevTarget := target.room.Clone()
	nextTarget := target.room.Clone()
	nextTarget.AddMember(playerID)
	nextTarget.UpdatedAt = now
	if err := r.store.SaveRoom(ctx, nextTarget); err != nil {
		return nil, false, persistence("save room", err)
	}
	undo.add(func(ctx context.Context) error { return r.store.SaveRoom(ctx, prevTarget) })

	if err := r.store.SavePlayer(ctx, profile); err != nil {
		undo.rollback(ctx, r.logger)
		return nil, false, persistence("save player", err)
	}
	undo.add(func(ctx context.Context) error { return r.store.SavePlayer(ctx, prevProfile) })

	var purgeOld bool
	if old != nil {
		nextOld := old.room.Clone()
		nextOld.RemoveMember(playerID)
		nextOld.UpdatedAt = now
		purgeOld = len(nextOld.Members) == 0
		if purgeOld {
			err = r.store.DeleteRoom(ctx, oldID)
		} else {
			err = r.store.SaveRoom(ctx, nextOld)
		}
		if err != nil {
			undo.rollback(ctx, r.logger)
			return nil, false, persistence("update previous room", err)
		}
		old.room = nextOld
	}

	// Cache updates
	target.room = nextTarget
	target.put(profile)

	var leftName string
	if old != nil {
		leftName = old.profiles[playerID].Username
		old.drop(playerID)
		r.pub.Unsubscribe(oldID, string(playerID))
		r.pub.Broadcast(oldID, r.event(model.EventPlayerLeft, oldID, playerID, model.PlayerLeftPayload{
			PlayerID: playerID,
			Username: leftName,
		}))
		if purgeOld {
			r.purge(old)
		}
	}

	r.mu.Lock()
	r.index[playerID] = roomID
	r.mu.Unlock()

	r.pub.Broadcast(roomID, r.event(model.EventPlayerJoined, roomID, playerID, model.PlayerJoinedPayload{
		Player: target.live[playerID],
	}))
	r.attach(target, playerID, sub)

	r.logger.Info("player joined room",
		slog.String("player_id", string(playerID)),
		slog.String("room_id", string(roomID)),
		slog.String("previous_room", string(oldID)),
		slog.Int("members", len(target.room.Members)))

	return target.snapshot(), true, nil
}

// attach subscribes sub to the room and sends it the current snapshot
func (r *Registry) attach(rs *roomState, playerID model.PlayerID, sub realtime.Subscriber) {
	if sub == nil {
		return
	}
	r.pub.Subscribe(rs.id, sub)
	r.pub.Unicast(rs.id, sub.ID(), r.event(model.EventRoomSnapshot, rs.id, playerID, rs.snapshot()))
}

// placeForJoin keeps the stored position when it is free and in bounds,
// otherwise picks a random free cell
func (r *Registry) placeForJoin(rs *roomState, p *model.Player) {
	if p.Health <= 0 || p.Health > r.rules.MaxHealth {
		p.Health = r.rules.MaxHealth
	}
	if _, taken := rs.occupiedBy(p.Position); r.rules.Arena.Contains(p.Position) && !taken {
		return
	}
	if pos, ok := r.randomFreeCell(rs); ok {
		p.Position = pos
		return
	}
	p.Position = model.Position{}
}

// randomFreeCell picks a uniformly random unoccupied cell
func (r *Registry) randomFreeCell(rs *roomState) (model.Position, bool) {
	return random.Choice(r.random, rs.freeCells(r.rules.Arena))
}

// Leave removes a player from their room and returns the remaining
// occupants. It returns nil without error when the player is in no room.
func (r *Registry) Leave(ctx context.Context, playerID model.PlayerID) (*model.RoomSnapshot, error) {
	release := r.members.lock(playerID)
	defer release()

	for range maxAttempts {
		snap, err := r.tryLeave(ctx, playerID)
		if errors.Is(err, errRetry) {
			continue
		}
		if snap != nil {
			r.notifyRooms(ctx)
		}
		return snap, err
	}
	return nil, fmt.Errorf("leave: %w", errRetry)
}

func (r *Registry) tryLeave(ctx context.Context, playerID model.PlayerID) (*model.RoomSnapshot, error) {
	r.mu.Lock()
	roomID, ok := r.index[playerID]
	rs := r.rooms[roomID]
	r.mu.Unlock()
	if !ok || rs == nil {
		return nil, nil
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.removed {
		return nil, errRetry
	}
	if current, ok := r.RoomOf(playerID); !ok || current != roomID {
		return nil, errRetry
	}

	now := r.clock.Now()
	prevProfile := rs.profiles[playerID].Clone()
	profile := prevProfile.Clone()
	profile.CurrentRoom = ""
	profile.UpdatedAt = now

	nextRoom := rs.room.Clone()
	nextRoom.RemoveMember(playerID)
	nextRoom.UpdatedAt = now
	purge := len(nextRoom.Members) == 0

	if err := r.store.SavePlayer(ctx, profile); err != nil {
		return nil, persistence("save player", err)
	}

	var err error
	if purge {
		err = r.store.DeleteRoom(ctx, roomID)
	} else {
		err = r.store.SaveRoom(ctx, nextRoom)
	}
	if err != nil {
		if rerr := r.store.SavePlayer(ctx, prevProfile); rerr != nil {
			r.logger.Error("compensating write failed", slog.Any("error", rerr))
		}
		return nil, persistence("update room", err)
	}

	rs.room = nextRoom
	rs.drop(playerID)

	r.mu.Lock()
	delete(r.index, playerID)
	r.mu.Unlock()

	r.pub.Unsubscribe(roomID, string(playerID))
	r.pub.Broadcast(roomID, r.event(model.EventPlayerLeft, roomID, playerID, model.PlayerLeftPayload{
		PlayerID: playerID,
		Username: profile.Username,
	}))
	if purge {
		r.purge(rs)
	}

	r.logger.Info("player left room",
		slog.String("player_id", string(playerID)),
		slog.String("room_id", string(roomID)),
		slog.Bool("purged", purge))

	return rs.snapshot(), nil
}

// purge drops an empty room from the live cache and stops its hub.
// Caller holds rs.mu.
func (r *Registry) purge(rs *roomState) {
	rs.removed = true
	r.mu.Lock()
	if r.rooms[rs.id] == rs {
		delete(r.rooms, rs.id)
	}
	r.mu.Unlock()
	r.pub.CloseRoom(rs.id)
	r.logger.Info("room purged", slog.String("room_id", string(rs.id)))
}

// Rebind attaches a new subscriber for a player already in a room and
// sends it a snapshot. It reports false when the player is in no room.
func (r *Registry) Rebind(playerID model.PlayerID, sub realtime.Subscriber) (model.RoomID, bool) {
	release := r.members.lock(playerID)
	defer release()

	for range maxAttempts {
		r.mu.Lock()
		roomID, ok := r.index[playerID]
		rs := r.rooms[roomID]
		r.mu.Unlock()
		if !ok || rs == nil {
			return "", false
		}

		rs.mu.Lock()
		if rs.removed {
			rs.mu.Unlock()
			continue
		}
		if _, member := rs.live[playerID]; !member {
			rs.mu.Unlock()
			return "", false
		}
		r.attach(rs, playerID, sub)
		rs.mu.Unlock()
		return roomID, true
	}
	return "", false
}

// Reconcile clears memberships left in storage by a previous process.
// No connection survives a restart, so every stored member is stale and
// rooms that had members are purged.
func (r *Registry) Reconcile(ctx context.Context) error {
	rooms, err := r.store.ListRooms(ctx)
	if err != nil {
		return persistence("list rooms", err)
	}

	cleared := 0
	for _, room := range rooms {
		if len(room.Members) == 0 {
			continue
		}
		for _, id := range room.Members {
			p, err := r.store.GetPlayer(ctx, id)
			if err != nil {
				if errors.Is(err, model.ErrPlayerNotFound) {
					continue
				}
				return persistence("load player", err)
			}
			if p.CurrentRoom != room.ID {
				continue
			}
			p.CurrentRoom = ""
			p.UpdatedAt = r.clock.Now()
			if err := r.store.SavePlayer(ctx, p); err != nil {
				return persistence("save player", err)
			}
			cleared++
		}
		if err := r.store.DeleteRoom(ctx, room.ID); err != nil {
			return persistence("delete room", err)
		}
		r.logger.Info("stale room purged", slog.String("room_id", string(room.ID)))
	}

	if cleared > 0 {
		r.logger.Info("stale memberships cleared", slog.Int("players", cleared))
	}
	return nil
}

// acquire returns the cached state for a room, loading it from storage
func (r *Registry) acquire(ctx context.Context, roomID model.RoomID) (*roomState, error) {
	r.mu.Lock()
	rs, ok := r.rooms[roomID]
	r.mu.Unlock()
	if ok {
		return rs, nil
	}

	loaded, err := r.loadRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.rooms[roomID]; ok {
		return existing, nil
	}
	r.rooms[roomID] = loaded
	return loaded, nil
}

// loadRoom builds a room's live state from storage
func (r *Registry) loadRoom(ctx context.Context, roomID model.RoomID) (*roomState, error) {
	room, err := r.store.GetRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, model.ErrRoomNotFound) {
			return nil, err
		}
		return nil, persistence("load room", err)
	}

	rs := newRoomState(room)
	for _, id := range room.Members {
		p, err := r.store.GetPlayer(ctx, id)
		if err != nil {
			if errors.Is(err, model.ErrPlayerNotFound) {
				continue
			}
			return nil, persistence("load player", err)
		}
		rs.put(p)
	}
	return rs, nil
}

// notifyRooms sends the refreshed lobby list to every connected client
func (r *Registry) notifyRooms(ctx context.Context) {
	rooms, err := r.ListRooms(ctx)
	if err != nil {
		r.logger.Warn("room list unavailable for room_update", slog.Any("error", err))
		return
	}
	r.pub.NotifyGlobal(r.event(model.EventRoomUpdate, "", "", model.RoomUpdatePayload{Rooms: rooms}))
}

func (r *Registry) event(t model.EventType, roomID model.RoomID, playerID model.PlayerID, payload any) *model.Event {
	return &model.Event{
		Type:      t,
		Timestamp: r.clock.Now(),
		RoomID:    roomID,
		PlayerID:  playerID,
		Payload:   payload,
	}
}
