package registry

import (
	"context"
	"log/slog"
	"maps"
	"time"

	"github.com/mcoot/gridarena/internal/model"
)

// Tx is a view of one room held under its lock. Engines read member state,
// commit changes and broadcast through it so that every step of an intent
// is serialized with the room's other mutations.
type Tx struct {
	ctx context.Context
	r   *Registry
	rs  *roomState
}

// WithMember runs fn under the room's lock after checking that playerID is
// a member. Rooms that are not live count as ErrNotInRoom.
func (r *Registry) WithMember(ctx context.Context, roomID model.RoomID, playerID model.PlayerID, fn func(tx *Tx) error) error {
	for range maxAttempts {
		r.mu.Lock()
		rs, ok := r.rooms[roomID]
		r.mu.Unlock()
		if !ok {
			return model.ErrNotInRoom
		}

		rs.mu.Lock()
		if rs.removed {
			rs.mu.Unlock()
			continue
		}
		if _, member := rs.live[playerID]; !member {
			rs.mu.Unlock()
			return model.ErrNotInRoom
		}
		err := fn(&Tx{ctx: ctx, r: r, rs: rs})
		rs.mu.Unlock()
		return err
	}
	return errRetry
}

// RoomID returns the room the transaction is bound to
func (tx *Tx) RoomID() model.RoomID {
	return tx.rs.id
}

// Now returns the registry clock's current time
func (tx *Tx) Now() time.Time {
	return tx.r.clock.Now()
}

// State returns a member's live state
func (tx *Tx) State(id model.PlayerID) (model.PlayerState, bool) {
	s, ok := tx.rs.live[id]
	return s, ok
}

// Members returns the member ids in ascending order
func (tx *Tx) Members() []model.PlayerID {
	return tx.rs.sortedIDs()
}

// Occupants returns a copy of the full occupant map
func (tx *Tx) Occupants() map[model.PlayerID]model.PlayerState {
	return maps.Clone(tx.rs.live)
}

// OccupiedBy returns the member standing on pos, if any
func (tx *Tx) OccupiedBy(pos model.Position) (model.PlayerID, bool) {
	return tx.rs.occupiedBy(pos)
}

// RandomFreeCell picks a uniformly random unoccupied arena cell
func (tx *Tx) RandomFreeCell() (model.Position, bool) {
	return tx.r.randomFreeCell(tx.rs)
}

// Commit persists the given member states and then updates the live cache.
// If any write fails, the writes already made are reverted and the cache is
// left unchanged.
func (tx *Tx) Commit(states ...model.PlayerState) error {
	ctx := tx.ctx
	now := tx.r.clock.Now()

	next := make([]*model.Player, 0, len(states))
	for _, s := range states {
		prev, ok := tx.rs.profiles[s.PlayerID]
		if !ok {
			return model.ErrTargetNotInRoom
		}
		p := prev.Clone()
		s.ApplyTo(p)
		p.UpdatedAt = now
		next = append(next, p)
	}

	var undo undoLog
	for _, p := range next {
		if err := tx.r.store.SavePlayer(ctx, p); err != nil {
			undo.rollback(ctx, tx.r.logger)
			tx.r.logger.Error("commit failed",
				slog.String("room_id", string(tx.rs.id)),
				slog.String("player_id", string(p.ID)),
				slog.Any("error", err))
			return persistence("save player", err)
		}
		prev := tx.rs.profiles[p.ID]
		undo.add(func(ctx context.Context) error { return tx.r.store.SavePlayer(ctx, prev) })
	}

	for _, p := range next {
		tx.rs.put(p)
	}
	return nil
}

// Broadcast fans an event out to the room, ordered after every event
// previously broadcast for it
func (tx *Tx) Broadcast(t model.EventType, playerID model.PlayerID, payload any) {
	tx.r.pub.Broadcast(tx.rs.id, tx.r.event(t, tx.rs.id, playerID, payload))
}
