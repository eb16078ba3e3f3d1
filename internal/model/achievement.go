package model

import "time"

// AchievementID identifies a catalog entry
type AchievementID string

// Achievement is an immutable catalog entry.
// Requirement has the form "<stat>_<threshold>", e.g. "kills_10".
type Achievement struct {
	ID          AchievementID
	Name        string
	Description string
	Requirement string
	Icon        string
}

// UnlockRecord is the append-only record of a player earning an achievement
type UnlockRecord struct {
	PlayerID      PlayerID
	AchievementID AchievementID
	UnlockedAt    time.Time
}

// DefaultAchievements returns the catalog seeded into empty stores
func DefaultAchievements() []Achievement {
	return []Achievement{
		{ID: "killer", Name: "Killer", Description: "Get 10 kills", Requirement: "kills_10", Icon: "killer.png"},
		{ID: "champion", Name: "Champion", Description: "Win 5 games", Requirement: "wins_5", Icon: "champion.png"},
		{ID: "master", Name: "Master", Description: "Reach 1000 points", Requirement: "score_1000", Icon: "master.png"},
	}
}
