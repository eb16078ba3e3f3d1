package storage

import (
	"context"

	"github.com/mcoot/gridarena/internal/model"
)

// Storage defines the interface for data persistence.
// Implementations return copies; callers may mutate results freely.
type Storage interface {
	// Profile operations
	SavePlayer(ctx context.Context, player *model.Player) error
	GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error)
	DeletePlayer(ctx context.Context, id model.PlayerID) error
	// ListTopPlayers returns up to n players by lifetime score descending, ties by id
	ListTopPlayers(ctx context.Context, n int) ([]*model.Player, error)

	// Credential operations
	SaveCredentials(ctx context.Context, creds *model.Credentials) error
	GetCredentialsByUsername(ctx context.Context, username string) (*model.Credentials, error)

	// Room operations
	SaveRoom(ctx context.Context, room *model.Room) error
	GetRoom(ctx context.Context, id model.RoomID) (*model.Room, error)
	DeleteRoom(ctx context.Context, id model.RoomID) error
	ListRooms(ctx context.Context) ([]*model.Room, error)

	// Achievement catalog operations, listed in id order
	SaveAchievements(ctx context.Context, achievements []model.Achievement) error
	ListAchievements(ctx context.Context) ([]model.Achievement, error)

	// Unlock ledger operations
	HasAchievement(ctx context.Context, playerID model.PlayerID, id model.AchievementID) (bool, error)
	// GrantAchievement records the unlock if absent and reports whether it was newly granted
	GrantAchievement(ctx context.Context, record model.UnlockRecord) (bool, error)
	ListUnlocks(ctx context.Context, playerID model.PlayerID) ([]model.UnlockRecord, error)
}
