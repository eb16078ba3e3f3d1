package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/mcoot/gridarena/internal/model"
	"github.com/mcoot/gridarena/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	players      map[model.PlayerID]*model.Player
	credentials  map[string]*model.Credentials // keyed by username
	rooms        map[model.RoomID]*model.Room
	achievements map[model.AchievementID]model.Achievement
	unlocks      map[model.PlayerID]map[model.AchievementID]model.UnlockRecord
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		players:      make(map[model.PlayerID]*model.Player),
		credentials:  make(map[string]*model.Credentials),
		rooms:        make(map[model.RoomID]*model.Room),
		achievements: make(map[model.AchievementID]model.Achievement),
		unlocks:      make(map[model.PlayerID]map[model.AchievementID]model.UnlockRecord),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Profile operations

func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players[player.ID] = player.Clone()
	return nil
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	player, ok := s.players[id]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	return player.Clone(), nil
}

func (s *Storage) DeletePlayer(ctx context.Context, id model.PlayerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.players, id)
	return nil
}

func (s *Storage) ListTopPlayers(ctx context.Context, n int) ([]*model.Player, error) {
	s.mu.RLock()
	players := make([]*model.Player, 0, len(s.players))
	for _, p := range s.players {
		players = append(players, p.Clone())
	}
	s.mu.RUnlock()

	storage.SortLeaderboard(players)
	if n >= 0 && len(players) > n {
		players = players[:n]
	}
	return players, nil
}

// Credential operations

func (s *Storage) SaveCredentials(ctx context.Context, creds *model.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *creds
	s.credentials[creds.Username] = &c
	return nil
}

func (s *Storage) GetCredentialsByUsername(ctx context.Context, username string) (*model.Credentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	creds, ok := s.credentials[username]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	c := *creds
	return &c, nil
}

// Room operations

func (s *Storage) SaveRoom(ctx context.Context, room *model.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[room.ID] = room.Clone()
	return nil
}

func (s *Storage) GetRoom(ctx context.Context, id model.RoomID) (*model.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[id]
	if !ok {
		return nil, model.ErrRoomNotFound
	}
	return room.Clone(), nil
}

func (s *Storage) DeleteRoom(ctx context.Context, id model.RoomID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, id)
	return nil
}

func (s *Storage) ListRooms(ctx context.Context) ([]*model.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rooms := make([]*model.Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		rooms = append(rooms, r.Clone())
	}
	slices.SortFunc(rooms, func(a, b *model.Room) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return rooms, nil
}

// Achievement catalog operations

func (s *Storage) SaveAchievements(ctx context.Context, achievements []model.Achievement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range achievements {
		s.achievements[a.ID] = a
	}
	return nil
}

func (s *Storage) ListAchievements(ctx context.Context) ([]model.Achievement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]model.Achievement, 0, len(s.achievements))
	for _, a := range s.achievements {
		result = append(result, a)
	}
	storage.SortAchievements(result)
	return result, nil
}

// Unlock ledger operations

func (s *Storage) HasAchievement(ctx context.Context, playerID model.PlayerID, id model.AchievementID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.unlocks[playerID][id]
	return ok, nil
}

func (s *Storage) GrantAchievement(ctx context.Context, record model.UnlockRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ledger, ok := s.unlocks[record.PlayerID]
	if !ok {
		ledger = make(map[model.AchievementID]model.UnlockRecord)
		s.unlocks[record.PlayerID] = ledger
	}
	if _, exists := ledger[record.AchievementID]; exists {
		return false, nil
	}
	ledger[record.AchievementID] = record
	return true, nil
}

func (s *Storage) ListUnlocks(ctx context.Context, playerID model.PlayerID) ([]model.UnlockRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]model.UnlockRecord, 0, len(s.unlocks[playerID]))
	for _, r := range s.unlocks[playerID] {
		result = append(result, r)
	}
	slices.SortFunc(result, func(a, b model.UnlockRecord) int {
		return a.UnlockedAt.Compare(b.UnlockedAt)
	})
	return result, nil
}
