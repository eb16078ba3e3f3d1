package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/gridarena/internal/model"
	"github.com/mcoot/gridarena/internal/storage/storagetest"
)

type StorageSuite struct {
	storagetest.Suite
	mini    *miniredis.Miniredis
	storage *Storage
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	client := redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	cfg := DefaultConfig()
	cfg.GuestPlayerTTL = time.Hour
	cfg.RoomTTL = time.Hour

	s.storage = NewWithClient(client, cfg)
	s.Storage = s.storage
	s.Ctx = context.Background()
}

func (s *StorageSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
	if s.mini != nil {
		s.mini.Close()
	}
}

func (s *StorageSuite) TestGuestPlayerTTL() {
	guest := &model.Player{ID: "p_guest", IsGuest: true, Health: 100}
	registered := &model.Player{ID: "p_registered", IsGuest: false, Health: 100}

	s.Require().NoError(s.storage.SavePlayer(s.Ctx, guest))
	s.Require().NoError(s.storage.SavePlayer(s.Ctx, registered))

	guestTTL := s.mini.TTL(playerKey(guest.ID))
	registeredTTL := s.mini.TTL(playerKey(registered.ID))

	s.True(guestTTL > 0, "Guest player should have TTL")
	s.Equal(time.Duration(0), registeredTTL, "Registered player should not have TTL")
}

func (s *StorageSuite) TestExpiredGuestDropsOffLeaderboard() {
	s.Require().NoError(s.storage.SavePlayer(s.Ctx, &model.Player{ID: "p_guest", IsGuest: true, LifetimeScore: 900}))
	s.Require().NoError(s.storage.SavePlayer(s.Ctx, &model.Player{ID: "p_registered", LifetimeScore: 100}))

	s.mini.FastForward(2 * time.Hour)

	top, err := s.storage.ListTopPlayers(s.Ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(top, 1)
	s.Equal(model.PlayerID("p_registered"), top[0].ID)

	members, err := s.mini.ZMembers(leaderboardKey())
	s.Require().NoError(err)
	s.Equal([]string{"p_registered"}, members)
}

func (s *StorageSuite) TestLeaderboardTiesAtCutoff() {
	for _, id := range []model.PlayerID{"p_e", "p_d", "p_c", "p_b", "p_a"} {
		s.Require().NoError(s.storage.SavePlayer(s.Ctx, &model.Player{ID: id, LifetimeScore: 500}))
	}

	top, err := s.storage.ListTopPlayers(s.Ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(top, 2)
	s.Equal(model.PlayerID("p_a"), top[0].ID)
	s.Equal(model.PlayerID("p_b"), top[1].ID)
}

func (s *StorageSuite) TestDeletePlayerRemovesLeaderboardEntry() {
	s.Require().NoError(s.storage.SavePlayer(s.Ctx, &model.Player{ID: "p_1", LifetimeScore: 10}))
	s.Require().NoError(s.storage.DeletePlayer(s.Ctx, "p_1"))

	s.False(s.mini.Exists(leaderboardKey()))
	s.False(s.mini.Exists(playerKey("p_1")))
}

func (s *StorageSuite) TestRoomTTLAndIndex() {
	room := &model.Room{ID: "room-1", Name: "Arena", MaxPlayers: 4}
	s.Require().NoError(s.storage.SaveRoom(s.Ctx, room))

	s.True(s.mini.TTL(roomKey(room.ID)) > 0)
	isMember, err := s.mini.SIsMember(roomsIndexKey(), "room-1")
	s.Require().NoError(err)
	s.True(isMember)
}

func (s *StorageSuite) TestListRoomsPrunesExpired() {
	s.Require().NoError(s.storage.SaveRoom(s.Ctx, &model.Room{ID: "room-1", Name: "Arena", MaxPlayers: 4}))

	s.mini.FastForward(2 * time.Hour)

	rooms, err := s.storage.ListRooms(s.Ctx)
	s.Require().NoError(err)
	s.Empty(rooms)

	isMember, err := s.mini.SIsMember(roomsIndexKey(), "room-1")
	s.Require().NoError(err)
	s.False(isMember)
}

func (s *StorageSuite) TestUnlockLedgerUsesHash() {
	granted, err := s.storage.GrantAchievement(s.Ctx, model.UnlockRecord{PlayerID: "p_1", AchievementID: "killer", UnlockedAt: time.Now()})
	s.Require().NoError(err)
	s.True(granted)

	keys, err := s.mini.HKeys(unlocksKey("p_1"))
	s.Require().NoError(err)
	s.Equal([]string{"killer"}, keys)
}

func (s *StorageSuite) TestConnectionFailure() {
	s.mini.Close()

	_, err := s.storage.GetPlayer(s.Ctx, "p_1")
	s.Error(err)
	s.NotErrorIs(err, model.ErrPlayerNotFound)
}

func TestNewConnects(t *testing.T) {
	mini := miniredis.RunT(t)

	cfg := DefaultConfig()
	cfg.URL = "redis://" + mini.Addr()
	store, err := New(cfg)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	require.NoError(t, store.SavePlayer(context.Background(), &model.Player{ID: "p1", Health: 100}))
	assert.True(t, mini.Exists(playerKey("p1")))
}

func TestNewFailsWithoutServer(t *testing.T) {
	mini := miniredis.RunT(t)
	addr := mini.Addr()
	mini.Close()

	cfg := DefaultConfig()
	cfg.URL = "redis://" + addr
	cfg.ConnectTimeout = 500 * time.Millisecond
	_, err := New(cfg)
	assert.Error(t, err)

	cfg.URL = "not a url"
	_, err = New(cfg)
	assert.Error(t, err)
}
