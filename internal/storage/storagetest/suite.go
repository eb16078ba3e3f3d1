// Package storagetest holds the behavior every storage backend must share.
package storagetest

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/gridarena/internal/model"
	"github.com/mcoot/gridarena/internal/storage"
)

// Suite runs the common storage contract against a backend.
// Backend suites embed it and set Storage in SetupTest.
type Suite struct {
	suite.Suite
	Storage storage.Storage
	Ctx     context.Context
}

var epoch = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func (s *Suite) player(id model.PlayerID, lifetime int) *model.Player {
	p := model.NewPlayer(id, string(id)+"-name", false, 100, epoch)
	p.LifetimeScore = lifetime
	return p
}

// Profile tests

func (s *Suite) TestSaveAndGetPlayer() {
	player := s.player("p_1", 0)
	player.Position = model.Position{X: 3, Y: 4}
	player.Kills = 2
	player.CurrentRoom = "room-1"

	s.Require().NoError(s.Storage.SavePlayer(s.Ctx, player))

	got, err := s.Storage.GetPlayer(s.Ctx, "p_1")
	s.Require().NoError(err)
	s.Equal(player.ID, got.ID)
	s.Equal(player.Username, got.Username)
	s.Equal(model.Position{X: 3, Y: 4}, got.Position)
	s.Equal(2, got.Kills)
	s.Equal(100, got.Health)
	s.Equal(model.RoomID("room-1"), got.CurrentRoom)
}

func (s *Suite) TestGetPlayerNotFound() {
	_, err := s.Storage.GetPlayer(s.Ctx, "missing")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *Suite) TestGetPlayerReturnsCopy() {
	s.Require().NoError(s.Storage.SavePlayer(s.Ctx, s.player("p_1", 0)))

	got, err := s.Storage.GetPlayer(s.Ctx, "p_1")
	s.Require().NoError(err)
	got.Health = 1

	again, err := s.Storage.GetPlayer(s.Ctx, "p_1")
	s.Require().NoError(err)
	s.Equal(100, again.Health)
}

func (s *Suite) TestDeletePlayer() {
	s.Require().NoError(s.Storage.SavePlayer(s.Ctx, s.player("p_1", 0)))
	s.Require().NoError(s.Storage.DeletePlayer(s.Ctx, "p_1"))

	_, err := s.Storage.GetPlayer(s.Ctx, "p_1")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *Suite) TestListTopPlayers() {
	s.Require().NoError(s.Storage.SavePlayer(s.Ctx, s.player("p_a", 100)))
	s.Require().NoError(s.Storage.SavePlayer(s.Ctx, s.player("p_b", 700)))
	s.Require().NoError(s.Storage.SavePlayer(s.Ctx, s.player("p_c", 300)))
	s.Require().NoError(s.Storage.SavePlayer(s.Ctx, s.player("p_d", 300)))

	top, err := s.Storage.ListTopPlayers(s.Ctx, 3)
	s.Require().NoError(err)
	s.Require().Len(top, 3)
	s.Equal(model.PlayerID("p_b"), top[0].ID)
	s.Equal(model.PlayerID("p_c"), top[1].ID)
	s.Equal(model.PlayerID("p_d"), top[2].ID)
}

func (s *Suite) TestListTopPlayersReflectsUpdates() {
	p := s.player("p_a", 100)
	s.Require().NoError(s.Storage.SavePlayer(s.Ctx, p))
	s.Require().NoError(s.Storage.SavePlayer(s.Ctx, s.player("p_b", 200)))

	p.LifetimeScore = 900
	s.Require().NoError(s.Storage.SavePlayer(s.Ctx, p))

	top, err := s.Storage.ListTopPlayers(s.Ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(top, 2)
	s.Equal(model.PlayerID("p_a"), top[0].ID)
	s.Equal(900, top[0].LifetimeScore)
}

func (s *Suite) TestListTopPlayersEmpty() {
	top, err := s.Storage.ListTopPlayers(s.Ctx, 10)
	s.Require().NoError(err)
	s.Empty(top)
}

// Credential tests

func (s *Suite) TestSaveAndGetCredentials() {
	creds := &model.Credentials{
		PlayerID:     "p_1",
		Username:     "alice",
		PasswordHash: "hash123",
		CreatedAt:    epoch,
		UpdatedAt:    epoch,
	}
	s.Require().NoError(s.Storage.SaveCredentials(s.Ctx, creds))

	got, err := s.Storage.GetCredentialsByUsername(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Equal(creds.PlayerID, got.PlayerID)
	s.Equal("hash123", got.PasswordHash)
}

func (s *Suite) TestGetCredentialsNotFound() {
	_, err := s.Storage.GetCredentialsByUsername(s.Ctx, "nobody")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

// Room tests

func (s *Suite) TestSaveAndGetRoom() {
	room := &model.Room{
		ID:         "room-1",
		Name:       "Arena",
		MaxPlayers: 4,
		Members:    []model.PlayerID{"p_1", "p_2"},
		CreatedAt:  epoch,
		UpdatedAt:  epoch,
	}
	s.Require().NoError(s.Storage.SaveRoom(s.Ctx, room))

	got, err := s.Storage.GetRoom(s.Ctx, "room-1")
	s.Require().NoError(err)
	s.Equal("Arena", got.Name)
	s.Equal(4, got.MaxPlayers)
	s.Equal([]model.PlayerID{"p_1", "p_2"}, got.Members)
}

func (s *Suite) TestSaveRoomOverwritesMembers() {
	room := &model.Room{ID: "room-1", Name: "Arena", MaxPlayers: 4, Members: []model.PlayerID{"p_1"}, CreatedAt: epoch}
	s.Require().NoError(s.Storage.SaveRoom(s.Ctx, room))

	room.Members = nil
	s.Require().NoError(s.Storage.SaveRoom(s.Ctx, room))

	got, err := s.Storage.GetRoom(s.Ctx, "room-1")
	s.Require().NoError(err)
	s.Empty(got.Members)
}

func (s *Suite) TestGetRoomNotFound() {
	_, err := s.Storage.GetRoom(s.Ctx, "missing")
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *Suite) TestDeleteRoom() {
	s.Require().NoError(s.Storage.SaveRoom(s.Ctx, &model.Room{ID: "room-1", Name: "Arena", MaxPlayers: 2, CreatedAt: epoch}))
	s.Require().NoError(s.Storage.DeleteRoom(s.Ctx, "room-1"))

	_, err := s.Storage.GetRoom(s.Ctx, "room-1")
	s.ErrorIs(err, model.ErrRoomNotFound)

	rooms, err := s.Storage.ListRooms(s.Ctx)
	s.Require().NoError(err)
	s.Empty(rooms)
}

func (s *Suite) TestListRooms() {
	s.Require().NoError(s.Storage.SaveRoom(s.Ctx, &model.Room{ID: "room-b", Name: "B", MaxPlayers: 2, CreatedAt: epoch.Add(time.Minute)}))
	s.Require().NoError(s.Storage.SaveRoom(s.Ctx, &model.Room{ID: "room-a", Name: "A", MaxPlayers: 2, CreatedAt: epoch}))

	rooms, err := s.Storage.ListRooms(s.Ctx)
	s.Require().NoError(err)
	s.Require().Len(rooms, 2)
	s.Equal(model.RoomID("room-a"), rooms[0].ID)
	s.Equal(model.RoomID("room-b"), rooms[1].ID)
}

// Achievement tests

func (s *Suite) TestSaveAndListAchievements() {
	s.Require().NoError(s.Storage.SaveAchievements(s.Ctx, model.DefaultAchievements()))

	got, err := s.Storage.ListAchievements(s.Ctx)
	s.Require().NoError(err)
	s.Require().Len(got, 3)
	s.Equal(model.AchievementID("champion"), got[0].ID)
	s.Equal(model.AchievementID("killer"), got[1].ID)
	s.Equal("kills_10", got[1].Requirement)
	s.Equal(model.AchievementID("master"), got[2].ID)
}

func (s *Suite) TestSaveAchievementsIsIdempotent() {
	s.Require().NoError(s.Storage.SaveAchievements(s.Ctx, model.DefaultAchievements()))
	s.Require().NoError(s.Storage.SaveAchievements(s.Ctx, model.DefaultAchievements()))

	got, err := s.Storage.ListAchievements(s.Ctx)
	s.Require().NoError(err)
	s.Len(got, 3)
}

func (s *Suite) TestGrantAchievementOnce() {
	record := model.UnlockRecord{PlayerID: "p_1", AchievementID: "killer", UnlockedAt: epoch}

	has, err := s.Storage.HasAchievement(s.Ctx, "p_1", "killer")
	s.Require().NoError(err)
	s.False(has)

	granted, err := s.Storage.GrantAchievement(s.Ctx, record)
	s.Require().NoError(err)
	s.True(granted)

	granted, err = s.Storage.GrantAchievement(s.Ctx, record)
	s.Require().NoError(err)
	s.False(granted, "second grant must be a no-op")

	has, err = s.Storage.HasAchievement(s.Ctx, "p_1", "killer")
	s.Require().NoError(err)
	s.True(has)

	has, err = s.Storage.HasAchievement(s.Ctx, "p_2", "killer")
	s.Require().NoError(err)
	s.False(has)
}

func (s *Suite) TestListUnlocks() {
	_, err := s.Storage.GrantAchievement(s.Ctx, model.UnlockRecord{PlayerID: "p_1", AchievementID: "master", UnlockedAt: epoch.Add(time.Minute)})
	s.Require().NoError(err)
	_, err = s.Storage.GrantAchievement(s.Ctx, model.UnlockRecord{PlayerID: "p_1", AchievementID: "killer", UnlockedAt: epoch})
	s.Require().NoError(err)

	unlocks, err := s.Storage.ListUnlocks(s.Ctx, "p_1")
	s.Require().NoError(err)
	s.Require().Len(unlocks, 2)
	s.Equal(model.AchievementID("killer"), unlocks[0].AchievementID)
	s.True(unlocks[0].UnlockedAt.Equal(epoch))
	s.Equal(model.AchievementID("master"), unlocks[1].AchievementID)

	none, err := s.Storage.ListUnlocks(s.Ctx, "p_2")
	s.Require().NoError(err)
	s.Empty(none)
}
