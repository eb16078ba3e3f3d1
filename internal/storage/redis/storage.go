package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/gridarena/internal/model"
	"github.com/mcoot/gridarena/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.MinIdleConns > 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	if cfg.CommandTimeout > 0 {
		opts.ReadTimeout = cfg.CommandTimeout
		opts.WriteTimeout = cfg.CommandTimeout
	}

	client := redis.NewClient(opts)

	connectTimeout := cfg.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Profile operations

func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	data, err := json.Marshal(player)
	if err != nil {
		return err
	}

	// Apply TTL only for guest players
	var ttl time.Duration
	if player.IsGuest {
		ttl = s.cfg.GuestPlayerTTL
	}

	// Profile and leaderboard entry change together
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, playerKey(player.ID), data, ttl)
	pipe.ZAdd(ctx, leaderboardKey(), redis.Z{
		Score:  float64(player.LifetimeScore),
		Member: string(player.ID),
	})
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	data, err := s.client.Get(ctx, playerKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}

	var player model.Player
	if err := json.Unmarshal(data, &player); err != nil {
		return nil, err
	}
	return &player, nil
}

func (s *Storage) DeletePlayer(ctx context.Context, id model.PlayerID) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, playerKey(id))
	pipe.ZRem(ctx, leaderboardKey(), string(id))
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Storage) ListTopPlayers(ctx context.Context, n int) ([]*model.Player, error) {
	if n == 0 {
		return []*model.Player{}, nil
	}

	ids, err := s.leaderboardCandidates(ctx, n)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*model.Player{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = playerKey(model.PlayerID(id))
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	players := make([]*model.Player, 0, len(values))
	var expired []any
	for i, val := range values {
		if val == nil {
			expired = append(expired, ids[i]) // Guest profile expired
			continue
		}
		raw, ok := val.(string)
		if !ok {
			continue
		}
		var player model.Player
		if err := json.Unmarshal([]byte(raw), &player); err != nil {
			continue // Skip invalid data
		}
		players = append(players, &player)
	}

	if len(expired) > 0 {
		_ = s.client.ZRem(ctx, leaderboardKey(), expired...).Err()
	}

	storage.SortLeaderboard(players)
	if n > 0 && len(players) > n {
		players = players[:n]
	}
	return players, nil
}

// leaderboardCandidates returns the members that can appear in the top n.
// Redis orders equal scores by member descending, so every member tied with
// the nth score is fetched and the final order is applied in Go.
func (s *Storage) leaderboardCandidates(ctx context.Context, n int) ([]string, error) {
	if n < 0 {
		return s.client.ZRevRange(ctx, leaderboardKey(), 0, -1).Result()
	}

	top, err := s.client.ZRevRangeWithScores(ctx, leaderboardKey(), 0, int64(n-1)).Result()
	if err != nil {
		return nil, err
	}
	if len(top) < n {
		ids := make([]string, len(top))
		for i, z := range top {
			ids[i], _ = z.Member.(string)
		}
		return ids, nil
	}

	cutoff := strconv.FormatFloat(top[len(top)-1].Score, 'f', -1, 64)
	return s.client.ZRevRangeByScore(ctx, leaderboardKey(), &redis.ZRangeBy{
		Max: "+inf",
		Min: cutoff,
	}).Result()
}

// Credential operations

func (s *Storage) SaveCredentials(ctx context.Context, creds *model.Credentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, credentialsKey(creds.Username), data, 0).Err() // No TTL
}

func (s *Storage) GetCredentialsByUsername(ctx context.Context, username string) (*model.Credentials, error) {
	data, err := s.client.Get(ctx, credentialsKey(username)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}

	var creds model.Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, err
	}
	return &creds, nil
}

// Room operations

func (s *Storage) SaveRoom(ctx context.Context, room *model.Room) error {
	data, err := json.Marshal(room)
	if err != nil {
		return err
	}

	// Use pipeline for atomic save + index update
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, roomKey(room.ID), data, s.cfg.RoomTTL)
	pipe.SAdd(ctx, roomsIndexKey(), string(room.ID))
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetRoom(ctx context.Context, id model.RoomID) (*model.Room, error) {
	data, err := s.client.Get(ctx, roomKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrRoomNotFound
		}
		return nil, err
	}

	var room model.Room
	if err := json.Unmarshal(data, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (s *Storage) DeleteRoom(ctx context.Context, id model.RoomID) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, roomKey(id))
	pipe.SRem(ctx, roomsIndexKey(), string(id))
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Storage) ListRooms(ctx context.Context) ([]*model.Room, error) {
	ids, err := s.client.SMembers(ctx, roomsIndexKey()).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*model.Room{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = roomKey(model.RoomID(id))
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	rooms := make([]*model.Room, 0, len(values))
	var stale []any
	for i, val := range values {
		if val == nil {
			stale = append(stale, ids[i]) // Room may have expired
			continue
		}
		raw, ok := val.(string)
		if !ok {
			continue
		}
		var room model.Room
		if err := json.Unmarshal([]byte(raw), &room); err != nil {
			continue // Skip invalid data
		}
		rooms = append(rooms, &room)
	}

	if len(stale) > 0 {
		_ = s.client.SRem(ctx, roomsIndexKey(), stale...).Err()
	}

	slices.SortFunc(rooms, func(a, b *model.Room) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return rooms, nil
}

// Achievement catalog operations

func (s *Storage) SaveAchievements(ctx context.Context, achievements []model.Achievement) error {
	if len(achievements) == 0 {
		return nil
	}

	fields := make([]any, 0, len(achievements)*2)
	for _, a := range achievements {
		data, err := json.Marshal(a)
		if err != nil {
			return err
		}
		fields = append(fields, string(a.ID), string(data))
	}
	return s.client.HSet(ctx, achievementsKey(), fields...).Err()
}

func (s *Storage) ListAchievements(ctx context.Context) ([]model.Achievement, error) {
	entries, err := s.client.HGetAll(ctx, achievementsKey()).Result()
	if err != nil {
		return nil, err
	}

	result := make([]model.Achievement, 0, len(entries))
	for _, raw := range entries {
		var a model.Achievement
		if err := json.Unmarshal([]byte(raw), &a); err != nil {
			continue // Skip invalid data
		}
		result = append(result, a)
	}
	storage.SortAchievements(result)
	return result, nil
}

// Unlock ledger operations

func (s *Storage) HasAchievement(ctx context.Context, playerID model.PlayerID, id model.AchievementID) (bool, error) {
	return s.client.HExists(ctx, unlocksKey(playerID), string(id)).Result()
}

func (s *Storage) GrantAchievement(ctx context.Context, record model.UnlockRecord) (bool, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return false, err
	}
	// HSETNX makes the grant an atomic insert-if-absent
	return s.client.HSetNX(ctx, unlocksKey(record.PlayerID), string(record.AchievementID), data).Result()
}

func (s *Storage) ListUnlocks(ctx context.Context, playerID model.PlayerID) ([]model.UnlockRecord, error) {
	entries, err := s.client.HGetAll(ctx, unlocksKey(playerID)).Result()
	if err != nil {
		return nil, err
	}

	result := make([]model.UnlockRecord, 0, len(entries))
	for _, raw := range entries {
		var r model.UnlockRecord
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			continue // Skip invalid data
		}
		result = append(result, r)
	}
	slices.SortFunc(result, func(a, b model.UnlockRecord) int {
		return a.UnlockedAt.Compare(b.UnlockedAt)
	})
	return result, nil
}
