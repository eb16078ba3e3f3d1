package registry

import (
	"maps"
	"slices"
	"sync"

	"github.com/mcoot/gridarena/internal/model"
)

// roomState is the live cache of one room: the durable room record plus the
// durable profile and transient state of every member.
type roomState struct {
	id       model.RoomID // immutable
	mu       sync.Mutex
	room     *model.Room
	profiles map[model.PlayerID]*model.Player
	live     map[model.PlayerID]model.PlayerState

	// removed is set once the room is purged; holders of a stale pointer retry
	removed bool
}

func newRoomState(room *model.Room) *roomState {
	return &roomState{
		id:       room.ID,
		room:     room,
		profiles: make(map[model.PlayerID]*model.Player),
		live:     make(map[model.PlayerID]model.PlayerState),
	}
}

func (rs *roomState) put(p *model.Player) {
	rs.profiles[p.ID] = p
	rs.live[p.ID] = model.StateFromPlayer(p)
}

func (rs *roomState) drop(id model.PlayerID) {
	delete(rs.profiles, id)
	delete(rs.live, id)
}

func (rs *roomState) snapshot() *model.RoomSnapshot {
	return &model.RoomSnapshot{
		RoomID:     rs.room.ID,
		Name:       rs.room.Name,
		MaxPlayers: rs.room.MaxPlayers,
		Players:    maps.Clone(rs.live),
	}
}

// occupiedBy returns the member standing on pos, if any
func (rs *roomState) occupiedBy(pos model.Position) (model.PlayerID, bool) {
	for _, id := range rs.sortedIDs() {
		if rs.live[id].Position == pos {
			return id, true
		}
	}
	return "", false
}

// freeCells lists arena cells no member occupies, in row-major order
func (rs *roomState) freeCells(arena model.Arena) []model.Position {
	taken := make(map[model.Position]bool, len(rs.live))
	for _, s := range rs.live {
		taken[s.Position] = true
	}
	free := make([]model.Position, 0, max(arena.Cells()-len(taken), 0))
	for y := 0; y < arena.Height; y++ {
		for x := 0; x < arena.Width; x++ {
			pos := model.Position{X: x, Y: y}
			if !taken[pos] {
				free = append(free, pos)
			}
		}
	}
	return free
}

func (rs *roomState) sortedIDs() []model.PlayerID {
	ids := slices.Collect(maps.Keys(rs.live))
	slices.Sort(ids)
	return ids
}

// lockRooms locks up to two rooms in id order and returns the unlock func
func lockRooms(a, b *roomState) func() {
	if b == nil || a == b {
		a.mu.Lock()
		return a.mu.Unlock
	}
	first, second := a, b
	if second.id < first.id {
		first, second = second, first
	}
	first.mu.Lock()
	second.mu.Lock()
	return func() {
		second.mu.Unlock()
		first.mu.Unlock()
	}
}
