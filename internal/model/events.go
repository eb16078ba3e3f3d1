package model

import "time"

// EventType identifies the type of event
type EventType string

const (
	// Room events
	EventPlayerJoined        EventType = "player_joined"
	EventPlayerLeft          EventType = "player_left"
	EventPlayerMoved         EventType = "player_moved"
	EventPlayerStatsUpdated  EventType = "player_stats_updated"
	EventAttackLaunched      EventType = "attack_launched"
	EventAchievementUnlocked EventType = "achievement_unlocked"
	EventGameWon             EventType = "game_won"

	// Global events
	EventRoomUpdate EventType = "room_update"

	// Unicast events, sent only to the originating connection
	EventAuthenticated EventType = "authenticated"
	EventRoomSnapshot  EventType = "room_snapshot"
	EventError         EventType = "error"
)

// Event is the base structure for all outbound events
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	RoomID    RoomID    `json:"room_id,omitempty"`   // Empty for global and session events
	PlayerID  PlayerID  `json:"player_id,omitempty"` // The player who triggered or is affected
	Payload   any       `json:"payload,omitempty"`   // Type-specific data
}

// PlayerJoinedPayload contains data for player joined events
type PlayerJoinedPayload struct {
	Player PlayerState `json:"player"`
}

// PlayerLeftPayload contains data for player left events
type PlayerLeftPayload struct {
	PlayerID PlayerID `json:"player_id"`
	Username string   `json:"username"`
}

// PlayerMovedPayload carries the mover and the full occupant map
type PlayerMovedPayload struct {
	PlayerID PlayerID                 `json:"player_id"`
	Position Position                 `json:"position"`
	Players  map[PlayerID]PlayerState `json:"players"`
}

// PlayerStatsUpdatedPayload contains the player's state after a combat change
type PlayerStatsUpdatedPayload struct {
	Player PlayerState `json:"player"`
}

// AttackLaunchedPayload is emitted for every attack, hit or miss
type AttackLaunchedPayload struct {
	PlayerID   PlayerID `json:"player_id"`
	AttackType string   `json:"attack_type"`
	Position   Position `json:"position"`
}

// AchievementUnlockedPayload contains data for achievement unlocked events
type AchievementUnlockedPayload struct {
	PlayerID    PlayerID        `json:"player_id"`
	Username    string          `json:"username"`
	Achievement AchievementInfo `json:"achievement"`
}

// AchievementInfo is the client view of a catalog entry
type AchievementInfo struct {
	ID          AchievementID `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Icon        string        `json:"icon,omitempty"`
}

// InfoOf returns the client view of the achievement
func InfoOf(a Achievement) AchievementInfo {
	return AchievementInfo{ID: a.ID, Name: a.Name, Description: a.Description, Icon: a.Icon}
}

// GameWonPayload names the winner of a round
type GameWonPayload struct {
	WinnerID PlayerID `json:"winner_id"`
	Winner   string   `json:"winner"`
	Wins     int      `json:"wins"`
}

// RoomUpdatePayload carries the refreshed lobby list
type RoomUpdatePayload struct {
	Rooms []RoomSummary `json:"rooms"`
}

// AuthenticatedPayload confirms the identity bound to a connection
type AuthenticatedPayload struct {
	PlayerID PlayerID `json:"player_id"`
	Username string   `json:"username"`
	RoomID   RoomID   `json:"room_id,omitempty"` // Set when the session resumed into a room
}

// ErrorPayload reports a rejected intent to its originating connection
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
