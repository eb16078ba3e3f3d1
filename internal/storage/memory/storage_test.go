package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/gridarena/internal/model"
	"github.com/mcoot/gridarena/internal/storage/storagetest"
)

type StorageSuite struct {
	storagetest.Suite
	storage *Storage
}

var createdAt = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.storage = New()
	s.Storage = s.storage
	s.Ctx = context.Background()
}

func (s *StorageSuite) TestSavePlayerStoresCopy() {
	player := model.NewPlayer("p_1", "alice", false, 100, createdAt)
	s.Require().NoError(s.storage.SavePlayer(s.Ctx, player))

	player.Health = 5

	got, err := s.storage.GetPlayer(s.Ctx, "p_1")
	s.Require().NoError(err)
	s.Equal(100, got.Health)
}

func (s *StorageSuite) TestRoomMembersAreCopied() {
	room := &model.Room{ID: "room-1", Name: "Arena", MaxPlayers: 2, Members: []model.PlayerID{"p_1"}}
	s.Require().NoError(s.storage.SaveRoom(s.Ctx, room))

	got, err := s.storage.GetRoom(s.Ctx, "room-1")
	s.Require().NoError(err)
	got.Members[0] = "p_other"

	again, err := s.storage.GetRoom(s.Ctx, "room-1")
	s.Require().NoError(err)
	s.Equal(model.PlayerID("p_1"), again.Members[0])
}

func (s *StorageSuite) TestListTopPlayersNegativeLimitReturnsAll() {
	for _, id := range []model.PlayerID{"p_1", "p_2", "p_3"} {
		s.Require().NoError(s.storage.SavePlayer(s.Ctx, model.NewPlayer(id, string(id), true, 100, createdAt)))
	}

	top, err := s.storage.ListTopPlayers(s.Ctx, -1)
	s.Require().NoError(err)
	s.Len(top, 3)
}
