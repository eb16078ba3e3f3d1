package redis

import (
	"fmt"

	"github.com/mcoot/gridarena/internal/model"
)

// Key prefix for all arena data
const keyPrefix = "arena"

// playerKey returns the Redis key for a Player profile
func playerKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:player:%s", keyPrefix, id)
}

// credentialsKey returns the Redis key for the Credentials of a username
func credentialsKey(username string) string {
	return fmt.Sprintf("%s:credentials:%s", keyPrefix, username)
}

// leaderboardKey returns the Redis key for the ZSET of lifetime scores
func leaderboardKey() string {
	return fmt.Sprintf("%s:idx:leaderboard", keyPrefix)
}

// roomKey returns the Redis key for a Room
func roomKey(id model.RoomID) string {
	return fmt.Sprintf("%s:room:%s", keyPrefix, id)
}

// roomsIndexKey returns the Redis key for the SET of known room ids
func roomsIndexKey() string {
	return fmt.Sprintf("%s:idx:rooms", keyPrefix)
}

// achievementsKey returns the Redis key for the achievement catalog HASH
func achievementsKey() string {
	return fmt.Sprintf("%s:achievements", keyPrefix)
}

// unlocksKey returns the Redis key for a player's unlock ledger HASH
func unlocksKey(playerID model.PlayerID) string {
	return fmt.Sprintf("%s:unlocks:%s", keyPrefix, playerID)
}
