package model

import (
	"slices"
	"time"
)

// RoomID uniquely identifies a room
type RoomID string

// Room is an isolated match instance grouping a bounded set of players
type Room struct {
	ID         RoomID
	Name       string
	MaxPlayers int
	Members    []PlayerID // In join order
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// HasMember returns true if the player is currently joined
func (r *Room) HasMember(id PlayerID) bool {
	return slices.Contains(r.Members, id)
}

// IsFull returns true if no further player may join
func (r *Room) IsFull() bool {
	return len(r.Members) >= r.MaxPlayers
}

// AddMember appends the player if not already present
func (r *Room) AddMember(id PlayerID) {
	if !r.HasMember(id) {
		r.Members = append(r.Members, id)
	}
}

// RemoveMember removes the player and reports whether they were present
func (r *Room) RemoveMember(id PlayerID) bool {
	idx := slices.Index(r.Members, id)
	if idx < 0 {
		return false
	}
	r.Members = slices.Delete(r.Members, idx, idx+1)
	return true
}

// Clone returns a deep copy of the room
func (r *Room) Clone() *Room {
	c := *r
	c.Members = slices.Clone(r.Members)
	return &c
}

// Summary returns the lobby-list view of the room
func (r *Room) Summary() RoomSummary {
	return RoomSummary{
		ID:          r.ID,
		Name:        r.Name,
		PlayerCount: len(r.Members),
		MaxPlayers:  r.MaxPlayers,
	}
}

// RoomSummary is a lightweight lobby-list entry
type RoomSummary struct {
	ID          RoomID `json:"id"`
	Name        string `json:"name"`
	PlayerCount int    `json:"player_count"`
	MaxPlayers  int    `json:"max_players"`
}

// RoomSnapshot is the full occupant map of a room at one point in time
type RoomSnapshot struct {
	RoomID     RoomID                   `json:"room_id"`
	Name       string                   `json:"name"`
	MaxPlayers int                      `json:"max_players"`
	Players    map[PlayerID]PlayerState `json:"players"`
}

// PlayerIDs returns the occupants sorted by id
func (s *RoomSnapshot) PlayerIDs() []PlayerID {
	ids := make([]PlayerID, 0, len(s.Players))
	for id := range s.Players {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
