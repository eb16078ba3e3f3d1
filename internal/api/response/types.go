package response

import (
	"time"

	"github.com/mcoot/gridarena/internal/model"
	"github.com/mcoot/gridarena/internal/services/achievement"
	"github.com/mcoot/gridarena/internal/services/auth"
)

// Player represents a player's profile in API responses
type Player struct {
	ID            string         `json:"id"`
	Username      string         `json:"username"`
	Avatar        string         `json:"avatar,omitempty"`
	IsGuest       bool           `json:"is_guest"`
	Position      model.Position `json:"position"`
	Health        int            `json:"health"`
	Score         int            `json:"score"`
	Kills         int            `json:"kills"`
	Deaths        int            `json:"deaths"`
	Wins          int            `json:"wins"`
	LifetimeScore int            `json:"lifetime_score"`
	CurrentRoom   string         `json:"current_room,omitempty"`
}

// PlayerFromModel converts a model.Player to a response Player
func PlayerFromModel(p *model.Player) Player {
	return Player{
		ID:            string(p.ID),
		Username:      p.Username,
		Avatar:        p.Avatar,
		IsGuest:       p.IsGuest,
		Position:      p.Position,
		Health:        p.Health,
		Score:         p.Score,
		Kills:         p.Kills,
		Deaths:        p.Deaths,
		Wins:          p.Wins,
		LifetimeScore: p.LifetimeScore,
		CurrentRoom:   string(p.CurrentRoom),
	}
}

// AuthResponse is the response for authentication endpoints
type AuthResponse struct {
	SessionToken string    `json:"session_token"`
	PlayerID     string    `json:"player_id"`
	Username     string    `json:"username"`
	IsGuest      bool      `json:"is_guest"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// AuthResponseFromSession creates an AuthResponse from a session
func AuthResponseFromSession(s *auth.Session) AuthResponse {
	return AuthResponse{
		SessionToken: s.Token,
		PlayerID:     string(s.PlayerID),
		Username:     s.Username,
		IsGuest:      s.IsGuest,
		ExpiresAt:    s.ExpiresAt,
	}
}

// LeaderboardEntry is one ranked row of the leaderboard
type LeaderboardEntry struct {
	Rank          int    `json:"rank"`
	PlayerID      string `json:"player_id"`
	Username      string `json:"username"`
	LifetimeScore int    `json:"lifetime_score"`
	Wins          int    `json:"wins"`
	Kills         int    `json:"kills"`
}

// Leaderboard is the response for the leaderboard endpoint
type Leaderboard struct {
	Entries []LeaderboardEntry `json:"entries"`
}

// LeaderboardFromPlayers ranks players in the order given, starting at 1
func LeaderboardFromPlayers(players []*model.Player) Leaderboard {
	entries := make([]LeaderboardEntry, len(players))
	for i, p := range players {
		entries[i] = LeaderboardEntry{
			Rank:          i + 1,
			PlayerID:      string(p.ID),
			Username:      p.Username,
			LifetimeScore: p.LifetimeScore,
			Wins:          p.Wins,
			Kills:         p.Kills,
		}
	}
	return Leaderboard{Entries: entries}
}

// Achievement is a catalog entry annotated for the caller
type Achievement struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Requirement string     `json:"requirement"`
	Icon        string     `json:"icon,omitempty"`
	Achieved    bool       `json:"achieved"`
	UnlockedAt  *time.Time `json:"unlocked_at,omitempty"`
}

// Achievements is the response for the achievements endpoint
type Achievements struct {
	Achievements []Achievement `json:"achievements"`
}

// AchievementsFromStatuses converts per-player achievement statuses
func AchievementsFromStatuses(statuses []achievement.Status) Achievements {
	out := make([]Achievement, len(statuses))
	for i, s := range statuses {
		out[i] = Achievement{
			ID:          string(s.Achievement.ID),
			Name:        s.Achievement.Name,
			Description: s.Achievement.Description,
			Requirement: s.Achievement.Requirement,
			Icon:        s.Achievement.Icon,
			Achieved:    s.Achieved,
		}
		if s.Achieved {
			at := s.UnlockedAt
			out[i].UnlockedAt = &at
		}
	}
	return Achievements{Achievements: out}
}

// Room is a room's lobby-list entry
type Room struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PlayerCount int    `json:"player_count"`
	MaxPlayers  int    `json:"max_players"`
}

// RoomFromSummary converts a model.RoomSummary
func RoomFromSummary(s model.RoomSummary) Room {
	return Room{
		ID:          string(s.ID),
		Name:        s.Name,
		PlayerCount: s.PlayerCount,
		MaxPlayers:  s.MaxPlayers,
	}
}

// RoomList is the response for the room list endpoint
type RoomList struct {
	Rooms []Room `json:"rooms"`
}

// RoomListFromSummaries converts lobby summaries
func RoomListFromSummaries(summaries []model.RoomSummary) RoomList {
	rooms := make([]Room, len(summaries))
	for i, s := range summaries {
		rooms[i] = RoomFromSummary(s)
	}
	return RoomList{Rooms: rooms}
}

// RoomOccupant is a player's live state within a room snapshot
type RoomOccupant struct {
	PlayerID string         `json:"player_id"`
	Username string         `json:"username"`
	Avatar   string         `json:"avatar,omitempty"`
	Position model.Position `json:"position"`
	Health   int            `json:"health"`
	Kills    int            `json:"kills"`
	Deaths   int            `json:"deaths"`
	Score    int            `json:"score"`
	Wins     int            `json:"wins"`
}

// RoomSnapshot is the response for a single room
type RoomSnapshot struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	MaxPlayers int            `json:"max_players"`
	Players    []RoomOccupant `json:"players"`
}

// RoomSnapshotFromModel converts a snapshot, listing occupants in id order
func RoomSnapshotFromModel(s *model.RoomSnapshot) RoomSnapshot {
	ids := s.PlayerIDs()
	players := make([]RoomOccupant, len(ids))
	for i, id := range ids {
		st := s.Players[id]
		players[i] = RoomOccupant{
			PlayerID: string(st.PlayerID),
			Username: st.Username,
			Avatar:   st.Avatar,
			Position: st.Position,
			Health:   st.Health,
			Kills:    st.Kills,
			Deaths:   st.Deaths,
			Score:    st.Score,
			Wins:     st.Wins,
		}
	}
	return RoomSnapshot{
		ID:         string(s.RoomID),
		Name:       s.Name,
		MaxPlayers: s.MaxPlayers,
		Players:    players,
	}
}

// Health is the response for the health endpoint
type Health struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
	ActiveRooms int    `json:"active_rooms"`
}
