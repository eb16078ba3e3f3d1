package combat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/gridarena/internal/dependencies/mocks"
	"github.com/mcoot/gridarena/internal/model"
	"github.com/mcoot/gridarena/internal/realtime/realtimetest"
	"github.com/mcoot/gridarena/internal/services/achievement"
	"github.com/mcoot/gridarena/internal/services/registry"
	"github.com/mcoot/gridarena/internal/storage/memory"
	"github.com/mcoot/gridarena/internal/storage/storagetest"
	"github.com/mcoot/gridarena/internal/testutil"
)

type EngineSuite struct {
	suite.Suite
	store    *memory.Storage
	faulty   *storagetest.Faulty
	pub      *realtimetest.Recorder
	clock    *mocks.MockClock
	random   *mocks.MockRandom
	registry *registry.Registry
	engine   *Engine
	roomID   model.RoomID
	ctx      context.Context
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.setup(model.DefaultRules())
}

func (s *EngineSuite) setup(rules model.Rules) {
	s.store = memory.New()
	s.faulty = storagetest.NewFaulty(s.store)
	s.pub = realtimetest.NewRecorder()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.ctx = context.Background()
	logger := testutil.NopLogger()

	achievements := achievement.New(s.faulty, s.clock, logger)
	s.Require().NoError(achievements.EnsureCatalog(s.ctx))

	s.registry = registry.New(s.faulty, s.pub, s.clock, s.random, rules, logger)
	s.engine = New(s.registry, achievements, logger)

	room, err := s.registry.CreateRoom(s.ctx, "Arena", 4)
	s.Require().NoError(err)
	s.roomID = room.ID
}

func (s *EngineSuite) join(id string, pos model.Position, mutate func(p *model.Player)) {
	p := model.NewPlayer(model.PlayerID(id), "user-"+id, true, 100, s.clock.Now())
	p.Position = pos
	if mutate != nil {
		mutate(p)
	}
	s.Require().NoError(s.store.SavePlayer(s.ctx, p))
	_, err := s.registry.Join(s.ctx, p.ID, s.roomID, nil)
	s.Require().NoError(err)
	s.pub.Reset()
}

func withHealth(h int) func(p *model.Player) {
	return func(p *model.Player) { p.Health = h }
}

func (s *EngineSuite) state(id model.PlayerID) model.PlayerState {
	snap, err := s.registry.Snapshot(s.ctx, s.roomID)
	s.Require().NoError(err)
	st, ok := snap.Players[id]
	s.Require().True(ok)
	return st
}

// Attack tests

func (s *EngineSuite) TestAttackMissOnlyAnnounces() {
	s.join("a", model.Position{X: 5, Y: 5}, nil)
	s.join("b", model.Position{X: 7, Y: 5}, nil)

	out, err := s.engine.Attack(s.ctx, "a", s.roomID)
	s.Require().NoError(err)
	s.False(out.Hit)

	events := s.pub.Broadcasts(s.roomID)
	s.Require().Len(events, 1)
	s.Equal(model.EventAttackLaunched, events[0].Type)
	payload := events[0].Payload.(model.AttackLaunchedPayload)
	s.Equal(model.PlayerID("a"), payload.PlayerID)
	s.Equal(model.AttackTypeMelee, payload.AttackType)
	s.Equal(model.Position{X: 5, Y: 5}, payload.Position)
	s.Equal(100, s.state("b").Health)
}

func (s *EngineSuite) TestAttackHitDamagesDefender() {
	s.join("a", model.Position{X: 5, Y: 5}, nil)
	s.join("b", model.Position{X: 6, Y: 6}, nil)

	out, err := s.engine.Attack(s.ctx, "a", s.roomID)
	s.Require().NoError(err)
	s.True(out.Hit)
	s.False(out.Killed)
	s.Equal(model.PlayerID("b"), out.TargetID)

	s.Equal(80, s.state("b").Health)
	stored, _ := s.store.GetPlayer(s.ctx, "b")
	s.Equal(80, stored.Health)

	s.Equal([]model.EventType{
		model.EventAttackLaunched,
		model.EventPlayerStatsUpdated,
		model.EventPlayerStatsUpdated,
	}, s.pub.Types(s.roomID))
	events := s.pub.Broadcasts(s.roomID)
	s.Equal(model.PlayerID("b"), events[1].Payload.(model.PlayerStatsUpdatedPayload).Player.PlayerID)
	s.Equal(model.PlayerID("a"), events[2].Payload.(model.PlayerStatsUpdatedPayload).Player.PlayerID)
}

func (s *EngineSuite) TestAttackPicksLowestIDInRange() {
	s.join("a", model.Position{X: 5, Y: 5}, nil)
	s.join("c", model.Position{X: 4, Y: 4}, nil)
	s.join("b", model.Position{X: 6, Y: 5}, nil)

	out, err := s.engine.Attack(s.ctx, "a", s.roomID)
	s.Require().NoError(err)
	s.Equal(model.PlayerID("b"), out.TargetID)
	s.Equal(100, s.state("c").Health)
}

func (s *EngineSuite) TestAttackKillRespawnsDefender() {
	s.join("a", model.Position{X: 5, Y: 5}, nil)
	s.join("b", model.Position{X: 5, Y: 6}, withHealth(20))
	s.random.QueueIntn(42)

	out, err := s.engine.Attack(s.ctx, "a", s.roomID)
	s.Require().NoError(err)
	s.True(out.Killed)
	s.False(out.Won)

	defender := s.state("b")
	s.Equal(100, defender.Health)
	s.Equal(1, defender.Deaths)
	s.NotEqual(model.Position{X: 5, Y: 5}, defender.Position)
	s.NotEqual(model.Position{X: 5, Y: 6}, defender.Position)
	s.Equal(model.Position{X: 2, Y: 2}, defender.Position)

	attacker := s.state("a")
	s.Equal(1, attacker.Kills)
	s.Equal(100, attacker.Score)
	s.Equal(100, attacker.LifetimeScore)

	stored, _ := s.store.GetPlayer(s.ctx, "b")
	s.Equal(defender.Position, stored.Position)
	s.Equal(1, stored.Deaths)
	stored, _ = s.store.GetPlayer(s.ctx, "a")
	s.Equal(1, stored.Kills)

	s.Equal([]model.EventType{
		model.EventAttackLaunched,
		model.EventPlayerStatsUpdated,
		model.EventPlayerStatsUpdated,
	}, s.pub.Types(s.roomID))
}

func (s *EngineSuite) TestAttackRespawnFallsBackToOriginWhenArenaFull() {
	rules := model.DefaultRules()
	rules.Arena = model.Arena{Width: 2, Height: 1}
	s.setup(rules)
	s.join("a", model.Position{X: 1, Y: 0}, nil)
	s.join("b", model.Position{X: 0, Y: 0}, withHealth(20))

	out, err := s.engine.Attack(s.ctx, "a", s.roomID)
	s.Require().NoError(err)
	s.True(out.Killed)
	s.Equal(model.Position{}, s.state("b").Position)
	s.Equal(100, s.state("b").Health)
}

func (s *EngineSuite) TestAttackWinningKillResetsRound() {
	s.join("a", model.Position{X: 5, Y: 5}, func(p *model.Player) {
		p.Kills = 9
		p.Score = 900
		p.LifetimeScore = 2000
	})
	s.join("b", model.Position{X: 5, Y: 6}, withHealth(20))
	s.join("c", model.Position{X: 10, Y: 10}, func(p *model.Player) {
		p.Kills = 3
		p.Score = 300
		p.LifetimeScore = 300
	})

	out, err := s.engine.Attack(s.ctx, "a", s.roomID)
	s.Require().NoError(err)
	s.True(out.Won)

	attacker := s.state("a")
	s.Equal(1, attacker.Wins)
	s.Equal(2000+100+500, attacker.LifetimeScore)
	for _, id := range []model.PlayerID{"a", "b", "c"} {
		st := s.state(id)
		s.Zero(st.Kills, "kills of %s", id)
		s.Zero(st.Score, "score of %s", id)
	}
	s.Equal(300, s.state("c").LifetimeScore)

	stored, _ := s.store.GetPlayer(s.ctx, "c")
	s.Zero(stored.Kills)
	stored, _ = s.store.GetPlayer(s.ctx, "a")
	s.Equal(1, stored.Wins)
	s.Equal(2600, stored.LifetimeScore)

	s.Equal([]model.EventType{
		model.EventAttackLaunched,
		model.EventAchievementUnlocked,
		model.EventAchievementUnlocked,
		model.EventGameWon,
		model.EventPlayerStatsUpdated,
		model.EventPlayerStatsUpdated,
	}, s.pub.Types(s.roomID))

	events := s.pub.Broadcasts(s.roomID)
	s.Equal(model.AchievementID("killer"), events[1].Payload.(model.AchievementUnlockedPayload).Achievement.ID)
	s.Equal(model.AchievementID("master"), events[2].Payload.(model.AchievementUnlockedPayload).Achievement.ID)
	won := events[3].Payload.(model.GameWonPayload)
	s.Equal(model.PlayerID("a"), won.WinnerID)
	s.Equal("user-a", won.Winner)
	s.Equal(1, won.Wins)
}

func (s *EngineSuite) TestAttackAchievementsUnlockOnce() {
	s.join("a", model.Position{X: 5, Y: 5}, func(p *model.Player) { p.Score = 900 })
	s.join("b", model.Position{X: 5, Y: 6}, withHealth(20))

	out, err := s.engine.Attack(s.ctx, "a", s.roomID)
	s.Require().NoError(err)
	s.Len(out.Unlocked, 1)

	// Second kill keeps score above the threshold without a new unlock
	s.Require().NoError(s.registry.WithMember(s.ctx, s.roomID, "b", func(tx *registry.Tx) error {
		st, _ := tx.State("b")
		st.Health = 20
		st.Position = model.Position{X: 5, Y: 6}
		return tx.Commit(st)
	}))
	s.pub.Reset()

	out, err = s.engine.Attack(s.ctx, "a", s.roomID)
	s.Require().NoError(err)
	s.True(out.Killed)
	s.Empty(out.Unlocked)
	s.NotContains(s.pub.Types(s.roomID), model.EventAchievementUnlocked)
}

func (s *EngineSuite) TestAttackByNonMember() {
	_, err := s.engine.Attack(s.ctx, "stranger", s.roomID)
	s.ErrorIs(err, model.ErrNotInRoom)
	s.Empty(s.pub.Broadcasts(s.roomID))
}

func (s *EngineSuite) TestAttackPersistenceFailureKeepsState() {
	s.join("a", model.Position{X: 5, Y: 5}, nil)
	s.join("b", model.Position{X: 5, Y: 6}, nil)
	s.faulty.Fail(storagetest.OpSavePlayer, 1)

	_, err := s.engine.Attack(s.ctx, "a", s.roomID)
	s.ErrorIs(err, model.ErrPersistence)

	s.Equal(100, s.state("b").Health)
	s.Equal([]model.EventType{model.EventAttackLaunched}, s.pub.Types(s.roomID))
}

// PlayerHit tests

func (s *EngineSuite) TestPlayerHitUsesDefaultDamage() {
	s.join("a", model.Position{X: 0, Y: 0}, nil)
	s.join("b", model.Position{X: 19, Y: 14}, nil)

	out, err := s.engine.PlayerHit(s.ctx, "a", s.roomID, "b", 0)
	s.Require().NoError(err)
	s.True(out.Hit)
	s.Equal(90, s.state("b").Health)
	s.Equal([]model.EventType{
		model.EventPlayerStatsUpdated,
		model.EventPlayerStatsUpdated,
	}, s.pub.Types(s.roomID))
}

func (s *EngineSuite) TestPlayerHitCustomDamage() {
	s.join("a", model.Position{X: 0, Y: 0}, nil)
	s.join("b", model.Position{X: 3, Y: 3}, nil)

	_, err := s.engine.PlayerHit(s.ctx, "a", s.roomID, "b", 35)
	s.Require().NoError(err)
	s.Equal(65, s.state("b").Health)
}

func (s *EngineSuite) TestPlayerHitKillSkipsLifetimeAndTeleport() {
	s.join("a", model.Position{X: 0, Y: 0}, nil)
	s.join("b", model.Position{X: 3, Y: 3}, withHealth(10))

	out, err := s.engine.PlayerHit(s.ctx, "a", s.roomID, "b", 0)
	s.Require().NoError(err)
	s.True(out.Killed)

	defender := s.state("b")
	s.Equal(100, defender.Health)
	s.Equal(1, defender.Deaths)
	s.Equal(model.Position{X: 3, Y: 3}, defender.Position)

	attacker := s.state("a")
	s.Equal(1, attacker.Kills)
	s.Equal(100, attacker.Score)
	s.Zero(attacker.LifetimeScore)
}

func (s *EngineSuite) TestPlayerHitTargetNotInRoom() {
	s.join("a", model.Position{X: 0, Y: 0}, nil)

	_, err := s.engine.PlayerHit(s.ctx, "a", s.roomID, "ghost", 10)
	s.ErrorIs(err, model.ErrTargetNotInRoom)
	s.Empty(s.pub.Broadcasts(s.roomID))
}

func (s *EngineSuite) TestPlayerHitSelf() {
	s.join("a", model.Position{X: 0, Y: 0}, nil)

	_, err := s.engine.PlayerHit(s.ctx, "a", s.roomID, "a", 10)
	s.ErrorIs(err, model.ErrInvalidIntent)
}
