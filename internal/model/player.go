package model

import "time"

// PlayerID uniquely identifies a player across the system
type PlayerID string

// Player is the durable profile of a participant, owned by the profile store
type Player struct {
	ID       PlayerID
	Username string
	Avatar   string // Avatar reference, empty if none
	IsGuest  bool   // true for unregistered players

	// Arena state as of the last committed change
	Position Position
	Health   int

	// Round stats (reset on a win)
	Score int
	Kills int

	// Lifetime stats
	Deaths        int
	Wins          int
	LifetimeScore int // Never decreases

	CurrentRoom RoomID // Empty when not in a room
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewPlayer returns a profile with fresh arena stats
func NewPlayer(id PlayerID, username string, isGuest bool, maxHealth int, now time.Time) *Player {
	return &Player{
		ID:        id,
		Username:  username,
		IsGuest:   isGuest,
		Health:    maxHealth,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a copy that shares no memory with p
func (p *Player) Clone() *Player {
	c := *p
	return &c
}

// Credentials holds login data for a registered player.
// Stored separately from the profile so the hash never travels with game state.
type Credentials struct {
	PlayerID     PlayerID
	Username     string // login username (immutable)
	PasswordHash string // bcrypt hash
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PlayerState is the transient per-room view of a player held in the live cache
type PlayerState struct {
	PlayerID      PlayerID `json:"player_id"`
	Username      string   `json:"username"`
	Avatar        string   `json:"avatar,omitempty"`
	Position      Position `json:"position"`
	Health        int      `json:"health"`
	Kills         int      `json:"kills"`
	Deaths        int      `json:"deaths"`
	Score         int      `json:"score"`
	LifetimeScore int      `json:"lifetime_score"`
	Wins          int      `json:"wins"`
}

// StateFromPlayer derives the live state from a durable profile
func StateFromPlayer(p *Player) PlayerState {
	return PlayerState{
		PlayerID:      p.ID,
		Username:      p.Username,
		Avatar:        p.Avatar,
		Position:      p.Position,
		Health:        p.Health,
		Kills:         p.Kills,
		Deaths:        p.Deaths,
		Score:         p.Score,
		LifetimeScore: p.LifetimeScore,
		Wins:          p.Wins,
	}
}

// ApplyTo copies the client-visible fields of s onto the durable profile p
func (s PlayerState) ApplyTo(p *Player) {
	p.Position = s.Position
	p.Health = s.Health
	p.Kills = s.Kills
	p.Deaths = s.Deaths
	p.Score = s.Score
	p.LifetimeScore = s.LifetimeScore
	p.Wins = s.Wins
}

// Stat returns the named stat, used for achievement requirements
func (s PlayerState) Stat(name string) (int, bool) {
	switch name {
	case StatKills:
		return s.Kills, true
	case StatDeaths:
		return s.Deaths, true
	case StatWins:
		return s.Wins, true
	case StatScore:
		return s.Score, true
	case StatLifetimeScore:
		return s.LifetimeScore, true
	default:
		return 0, false
	}
}

// Stat names usable in achievement requirements
const (
	StatKills         = "kills"
	StatDeaths        = "deaths"
	StatWins          = "wins"
	StatScore         = "score"
	StatLifetimeScore = "lifetime_score"
)
