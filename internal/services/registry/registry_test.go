package registry

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/gridarena/internal/dependencies/mocks"
	"github.com/mcoot/gridarena/internal/model"
	"github.com/mcoot/gridarena/internal/realtime/realtimetest"
	"github.com/mcoot/gridarena/internal/storage/memory"
	"github.com/mcoot/gridarena/internal/storage/storagetest"
	"github.com/mcoot/gridarena/internal/testutil"
)

type fakeSub struct {
	id string

	mu     sync.Mutex
	events []*model.Event
}

func (f *fakeSub) ID() string { return f.id }

func (f *fakeSub) Deliver(e *model.Event) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return true
}

func (f *fakeSub) HubClosed(model.RoomID) {}

type retiringSub struct {
	fakeSub
	retired atomic.Bool
}

func (r *retiringSub) Retired() bool { return r.retired.Load() }

type RegistrySuite struct {
	suite.Suite
	store    *memory.Storage
	faulty   *storagetest.Faulty
	pub      *realtimetest.Recorder
	clock    *mocks.MockClock
	random   *mocks.MockRandom
	registry *Registry
	ctx      context.Context
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	s.store = memory.New()
	s.faulty = storagetest.NewFaulty(s.store)
	s.pub = realtimetest.NewRecorder()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.registry = New(s.faulty, s.pub, s.clock, s.random, model.DefaultRules(), testutil.NopLogger())
	s.ctx = context.Background()
}

func (s *RegistrySuite) createPlayer(id string) *model.Player {
	p := model.NewPlayer(model.PlayerID(id), "user-"+id, true, 100, s.clock.Now())
	s.Require().NoError(s.store.SavePlayer(s.ctx, p))
	return p
}

func (s *RegistrySuite) createPlayerAt(id string, pos model.Position) *model.Player {
	p := model.NewPlayer(model.PlayerID(id), "user-"+id, true, 100, s.clock.Now())
	p.Position = pos
	s.Require().NoError(s.store.SavePlayer(s.ctx, p))
	return p
}

func (s *RegistrySuite) createRoom(maxPlayers int) model.RoomID {
	room, err := s.registry.CreateRoom(s.ctx, "Arena", maxPlayers)
	s.Require().NoError(err)
	return room.ID
}

// CreateRoom tests

func (s *RegistrySuite) TestCreateRoomPersistsAndNotifies() {
	room, err := s.registry.CreateRoom(s.ctx, "  Pit  ", 0)
	s.Require().NoError(err)

	s.Equal("Pit", room.Name)
	s.Equal(4, room.MaxPlayers)
	s.Empty(room.Members)

	stored, err := s.store.GetRoom(s.ctx, room.ID)
	s.Require().NoError(err)
	s.Equal(room.Name, stored.Name)

	global := s.pub.Global()
	s.Require().Len(global, 1)
	s.Equal(model.EventRoomUpdate, global[0].Type)
	payload := global[0].Payload.(model.RoomUpdatePayload)
	s.Require().Len(payload.Rooms, 1)
	s.Equal(room.ID, payload.Rooms[0].ID)
}

func (s *RegistrySuite) TestCreateRoomRejectsBlankName() {
	_, err := s.registry.CreateRoom(s.ctx, "   ", 4)
	s.ErrorIs(err, model.ErrInvalidRoomName)
}

func (s *RegistrySuite) TestListRoomsReportsPlayerCounts() {
	roomID := s.createRoom(4)
	s.createPlayer("p1")
	_, err := s.registry.Join(s.ctx, "p1", roomID, nil)
	s.Require().NoError(err)

	rooms, err := s.registry.ListRooms(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(rooms, 1)
	s.Equal(1, rooms[0].PlayerCount)
	s.Equal(4, rooms[0].MaxPlayers)
}

// Join tests

func (s *RegistrySuite) TestJoinPlacesPlayerAndBroadcasts() {
	roomID := s.createRoom(4)
	s.createPlayer("p1")
	sub := &fakeSub{id: "p1"}

	snap, err := s.registry.Join(s.ctx, "p1", roomID, sub)
	s.Require().NoError(err)

	s.Require().Contains(snap.Players, model.PlayerID("p1"))
	s.Equal(100, snap.Players["p1"].Health)
	s.Equal(model.Position{}, snap.Players["p1"].Position)

	s.Equal([]model.EventType{model.EventPlayerJoined}, s.pub.Types(roomID))
	unicasts := s.pub.Unicasts(roomID, "p1")
	s.Require().Len(unicasts, 1)
	s.Equal(model.EventRoomSnapshot, unicasts[0].Type)

	room, _ := s.store.GetRoom(s.ctx, roomID)
	s.Equal([]model.PlayerID{"p1"}, room.Members)
	profile, _ := s.store.GetPlayer(s.ctx, "p1")
	s.Equal(roomID, profile.CurrentRoom)

	current, ok := s.registry.RoomOf("p1")
	s.True(ok)
	s.Equal(roomID, current)
}

func (s *RegistrySuite) TestJoinKeepsFreeStoredPosition() {
	roomID := s.createRoom(4)
	s.createPlayerAt("p1", model.Position{X: 5, Y: 5})

	snap, err := s.registry.Join(s.ctx, "p1", roomID, nil)
	s.Require().NoError(err)
	s.Equal(model.Position{X: 5, Y: 5}, snap.Players["p1"].Position)
	s.Empty(s.random.IntnCalls)
}

func (s *RegistrySuite) TestJoinRelocatesWhenStoredCellTaken() {
	roomID := s.createRoom(4)
	s.createPlayer("p1")
	s.createPlayer("p2")
	_, err := s.registry.Join(s.ctx, "p1", roomID, nil)
	s.Require().NoError(err)

	// Free cells in row-major order start at (1,0)
	s.random.QueueIntn(3)
	snap, err := s.registry.Join(s.ctx, "p2", roomID, nil)
	s.Require().NoError(err)
	s.Equal(model.Position{X: 4, Y: 0}, snap.Players["p2"].Position)
	s.Equal([]int{20*15 - 1}, s.random.IntnCalls)
}

func (s *RegistrySuite) TestJoinRelocatesOutOfBoundsPosition() {
	roomID := s.createRoom(4)
	s.createPlayerAt("p1", model.Position{X: 40, Y: 2})

	s.random.QueueIntn(21)
	snap, err := s.registry.Join(s.ctx, "p1", roomID, nil)
	s.Require().NoError(err)
	s.Equal(model.Position{X: 1, Y: 1}, snap.Players["p1"].Position)
}

func (s *RegistrySuite) TestJoinRestoresHealthOfDeadProfile() {
	roomID := s.createRoom(4)
	p := s.createPlayer("p1")
	p.Health = 0
	s.Require().NoError(s.store.SavePlayer(s.ctx, p))

	snap, err := s.registry.Join(s.ctx, "p1", roomID, nil)
	s.Require().NoError(err)
	s.Equal(100, snap.Players["p1"].Health)
}

func (s *RegistrySuite) TestJoinFullRoomIsRejected() {
	roomID := s.createRoom(2)
	s.createPlayer("p1")
	s.createPlayer("p2")
	s.createPlayer("p3")
	_, err := s.registry.Join(s.ctx, "p1", roomID, nil)
	s.Require().NoError(err)
	_, err = s.registry.Join(s.ctx, "p2", roomID, nil)
	s.Require().NoError(err)

	_, err = s.registry.Join(s.ctx, "p3", roomID, nil)
	s.ErrorIs(err, model.ErrRoomFull)

	snap, err := s.registry.Snapshot(s.ctx, roomID)
	s.Require().NoError(err)
	s.Len(snap.Players, 2)
	s.NotContains(snap.Players, model.PlayerID("p3"))

	profile, _ := s.store.GetPlayer(s.ctx, "p3")
	s.Empty(profile.CurrentRoom)
	_, ok := s.registry.RoomOf("p3")
	s.False(ok)
	s.Len(s.pub.Types(roomID), 2)
}

func (s *RegistrySuite) TestConcurrentJoinsNeverExceedCapacity() {
	roomID := s.createRoom(4)
	const n = 20
	for i := range n {
		s.createPlayer(fmt.Sprintf("p%02d", i))
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = s.registry.Join(s.ctx, model.PlayerID(fmt.Sprintf("p%02d", i)), roomID, nil)
		}()
	}
	wg.Wait()

	joined := 0
	for _, err := range errs {
		if err == nil {
			joined++
			continue
		}
		s.ErrorIs(err, model.ErrRoomFull)
	}
	s.Equal(4, joined)

	room, _ := s.store.GetRoom(s.ctx, roomID)
	s.Len(room.Members, 4)
	snap, _ := s.registry.Snapshot(s.ctx, roomID)
	s.Len(snap.Players, 4)

	seen := make(map[model.Position]bool)
	for _, st := range snap.Players {
		s.False(seen[st.Position], "two players share %v", st.Position)
		seen[st.Position] = true
	}
}

// memberships returns the stored rooms that list playerID as a member
func (s *RegistrySuite) memberships(playerID model.PlayerID, rooms ...model.RoomID) []model.RoomID {
	var found []model.RoomID
	for _, id := range rooms {
		room, err := s.store.GetRoom(s.ctx, id)
		if err != nil {
			s.Require().ErrorIs(err, model.ErrRoomNotFound)
			continue
		}
		if slices.Contains(room.Members, playerID) {
			found = append(found, id)
		}
	}
	return found
}

// requireSingleMembership checks that storage, the profile and the live
// index all agree on at most one room for playerID
func (s *RegistrySuite) requireSingleMembership(playerID model.PlayerID, rooms ...model.RoomID) {
	found := s.memberships(playerID, rooms...)
	s.Require().LessOrEqual(len(found), 1, "stored as a member of %v", found)

	profile, err := s.store.GetPlayer(s.ctx, playerID)
	s.Require().NoError(err)
	indexed, ok := s.registry.RoomOf(playerID)

	if len(found) == 0 {
		s.Empty(profile.CurrentRoom)
		s.False(ok)
		return
	}
	s.Equal(found[0], profile.CurrentRoom)
	s.True(ok)
	s.Equal(found[0], indexed)

	snap, err := s.registry.Snapshot(s.ctx, found[0])
	s.Require().NoError(err)
	s.Contains(snap.Players, playerID)
}

func (s *RegistrySuite) TestConcurrentJoinsOfOnePlayerPickOneRoom() {
	s.createPlayer("p1")
	s.faulty.Delay(storagetest.OpGetPlayer, 2*time.Millisecond)

	for range 10 {
		roomA := s.createRoom(4)
		roomB := s.createRoom(4)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i, roomID := range []model.RoomID{roomA, roomB} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, errs[i] = s.registry.Join(s.ctx, "p1", roomID, nil)
			}()
		}
		wg.Wait()

		s.Require().NoError(errs[0])
		s.Require().NoError(errs[1])
		s.Len(s.memberships("p1", roomA, roomB), 1)
		s.requireSingleMembership("p1", roomA, roomB)

		_, err := s.registry.Leave(s.ctx, "p1")
		s.Require().NoError(err)
		s.requireSingleMembership("p1", roomA, roomB)
	}
}

func (s *RegistrySuite) TestConcurrentJoinAndLeaveOfOnePlayerStayConsistent() {
	s.createPlayer("p1")
	s.faulty.Delay(storagetest.OpGetPlayer, 2*time.Millisecond)

	for range 10 {
		roomA := s.createRoom(4)
		roomB := s.createRoom(4)
		_, err := s.registry.Join(s.ctx, "p1", roomA, nil)
		s.Require().NoError(err)

		var wg sync.WaitGroup
		var joinErr, leaveErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, joinErr = s.registry.Join(s.ctx, "p1", roomB, nil)
		}()
		go func() {
			defer wg.Done()
			_, leaveErr = s.registry.Leave(s.ctx, "p1")
		}()
		wg.Wait()

		s.Require().NoError(joinErr)
		s.Require().NoError(leaveErr)
		s.Empty(s.memberships("p1", roomA))
		s.requireSingleMembership("p1", roomA, roomB)

		_, err = s.registry.Leave(s.ctx, "p1")
		s.Require().NoError(err)
	}
}

func (s *RegistrySuite) TestConcurrentJoinsOfManyPlayersAcrossRooms() {
	rooms := []model.RoomID{s.createRoom(8), s.createRoom(8), s.createRoom(8)}
	// One resident per room keeps switches from purging it
	for i, roomID := range rooms {
		id := fmt.Sprintf("resident%d", i)
		s.createPlayer(id)
		_, err := s.registry.Join(s.ctx, model.PlayerID(id), roomID, nil)
		s.Require().NoError(err)
	}
	const n = 6
	for i := range n {
		s.createPlayer(fmt.Sprintf("p%02d", i))
	}
	s.faulty.Delay(storagetest.OpGetPlayer, time.Millisecond)

	var wg sync.WaitGroup
	for i := range n {
		for _, roomID := range rooms {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.registry.Join(s.ctx, model.PlayerID(fmt.Sprintf("p%02d", i)), roomID, nil)
				s.NoError(err)
			}()
		}
	}
	wg.Wait()

	total := 0
	for i := range n {
		id := model.PlayerID(fmt.Sprintf("p%02d", i))
		s.requireSingleMembership(id, rooms...)
		total += len(s.memberships(id, rooms...))
	}
	s.Equal(n, total)
}

func (s *RegistrySuite) TestJoinForRetiredSubscriberIsRejected() {
	roomID := s.createRoom(4)
	s.createPlayer("p1")
	sub := &retiringSub{fakeSub: fakeSub{id: "p1"}}
	sub.retired.Store(true)

	_, err := s.registry.Join(s.ctx, "p1", roomID, sub)
	s.ErrorIs(err, model.ErrSuperseded)
	s.requireSingleMembership("p1", roomID)
	s.Empty(sub.events)
}

func (s *RegistrySuite) TestJoinForLiveRetirableSubscriber() {
	roomID := s.createRoom(4)
	s.createPlayer("p1")
	sub := &retiringSub{fakeSub: fakeSub{id: "p1"}}

	_, err := s.registry.Join(s.ctx, "p1", roomID, sub)
	s.Require().NoError(err)
	s.requireSingleMembership("p1", roomID)
}

func (s *RegistrySuite) TestPlayerLocksAreReleased() {
	roomID := s.createRoom(4)
	s.createPlayer("p1")
	_, err := s.registry.Join(s.ctx, "p1", roomID, nil)
	s.Require().NoError(err)
	_, err = s.registry.Leave(s.ctx, "p1")
	s.Require().NoError(err)
	s.Equal(0, s.registry.members.len())
}

func (s *RegistrySuite) TestJoinUnknownRoom() {
	s.createPlayer("p1")
	_, err := s.registry.Join(s.ctx, "p1", "missing", nil)
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *RegistrySuite) TestJoinUnknownPlayer() {
	roomID := s.createRoom(4)
	_, err := s.registry.Join(s.ctx, "ghost", roomID, nil)
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *RegistrySuite) TestJoinSwitchesRoomsAndPurgesEmptyRoom() {
	roomA := s.createRoom(4)
	roomB := s.createRoom(4)
	s.createPlayer("p1")
	_, err := s.registry.Join(s.ctx, "p1", roomA, nil)
	s.Require().NoError(err)

	snap, err := s.registry.Join(s.ctx, "p1", roomB, nil)
	s.Require().NoError(err)
	s.Contains(snap.Players, model.PlayerID("p1"))

	s.Equal([]model.EventType{model.EventPlayerJoined, model.EventPlayerLeft}, s.pub.Types(roomA))
	s.Contains(s.pub.Closed(), roomA)
	_, err = s.store.GetRoom(s.ctx, roomA)
	s.ErrorIs(err, model.ErrRoomNotFound)

	current, _ := s.registry.RoomOf("p1")
	s.Equal(roomB, current)
	profile, _ := s.store.GetPlayer(s.ctx, "p1")
	s.Equal(roomB, profile.CurrentRoom)
}

func (s *RegistrySuite) TestJoinSwitchKeepsOccupiedRoom() {
	roomA := s.createRoom(4)
	roomB := s.createRoom(4)
	s.createPlayer("p1")
	s.createPlayer("p2")
	_, _ = s.registry.Join(s.ctx, "p1", roomA, nil)
	_, _ = s.registry.Join(s.ctx, "p2", roomA, nil)

	_, err := s.registry.Join(s.ctx, "p1", roomB, nil)
	s.Require().NoError(err)

	room, err := s.store.GetRoom(s.ctx, roomA)
	s.Require().NoError(err)
	s.Equal([]model.PlayerID{"p2"}, room.Members)
	s.NotContains(s.pub.Closed(), roomA)
}

func (s *RegistrySuite) TestRejoinSameRoomOnlyRebinds() {
	roomID := s.createRoom(4)
	s.createPlayer("p1")
	_, err := s.registry.Join(s.ctx, "p1", roomID, &fakeSub{id: "p1"})
	s.Require().NoError(err)

	_, err = s.registry.Join(s.ctx, "p1", roomID, &fakeSub{id: "p1"})
	s.Require().NoError(err)

	s.Equal([]model.EventType{model.EventPlayerJoined}, s.pub.Types(roomID))
	s.Len(s.pub.Unicasts(roomID, "p1"), 2)
}

func (s *RegistrySuite) TestJoinRollsBackWhenProfileSaveFails() {
	roomID := s.createRoom(4)
	s.createPlayer("p1")
	s.faulty.Fail(storagetest.OpSavePlayer, 1)

	_, err := s.registry.Join(s.ctx, "p1", roomID, nil)
	s.ErrorIs(err, model.ErrPersistence)

	room, _ := s.store.GetRoom(s.ctx, roomID)
	s.Empty(room.Members)
	_, ok := s.registry.RoomOf("p1")
	s.False(ok)
	s.Empty(s.pub.Types(roomID))

	// The failure was transient; the next attempt succeeds
	_, err = s.registry.Join(s.ctx, "p1", roomID, nil)
	s.NoError(err)
}

func (s *RegistrySuite) TestJoinRollsBackWhenPreviousRoomUpdateFails() {
	roomA := s.createRoom(4)
	roomB := s.createRoom(4)
	s.createPlayer("p1")
	_, err := s.registry.Join(s.ctx, "p1", roomA, nil)
	s.Require().NoError(err)
	s.faulty.Fail(storagetest.OpDeleteRoom, 1)

	_, err = s.registry.Join(s.ctx, "p1", roomB, nil)
	s.ErrorIs(err, model.ErrPersistence)

	current, _ := s.registry.RoomOf("p1")
	s.Equal(roomA, current)
	profile, _ := s.store.GetPlayer(s.ctx, "p1")
	s.Equal(roomA, profile.CurrentRoom)
	b, _ := s.store.GetRoom(s.ctx, roomB)
	s.Empty(b.Members)
	a, _ := s.store.GetRoom(s.ctx, roomA)
	s.Equal([]model.PlayerID{"p1"}, a.Members)
}

// Leave tests

func (s *RegistrySuite) TestLeaveBroadcastsAndPurgesEmptyRoom() {
	roomID := s.createRoom(4)
	s.createPlayer("p1")
	_, _ = s.registry.Join(s.ctx, "p1", roomID, nil)

	snap, err := s.registry.Leave(s.ctx, "p1")
	s.Require().NoError(err)
	s.Empty(snap.Players)

	types := s.pub.Types(roomID)
	s.Equal(model.EventPlayerLeft, types[len(types)-1])
	s.Contains(s.pub.Closed(), roomID)
	_, err = s.store.GetRoom(s.ctx, roomID)
	s.ErrorIs(err, model.ErrRoomNotFound)

	profile, _ := s.store.GetPlayer(s.ctx, "p1")
	s.Empty(profile.CurrentRoom)
	_, ok := s.registry.RoomOf("p1")
	s.False(ok)
}

func (s *RegistrySuite) TestLeaveKeepsRoomWithRemainingPlayers() {
	roomID := s.createRoom(4)
	s.createPlayer("p1")
	s.createPlayer("p2")
	_, _ = s.registry.Join(s.ctx, "p1", roomID, nil)
	_, _ = s.registry.Join(s.ctx, "p2", roomID, nil)

	snap, err := s.registry.Leave(s.ctx, "p1")
	s.Require().NoError(err)
	s.Len(snap.Players, 1)
	s.Contains(snap.Players, model.PlayerID("p2"))
	s.Empty(s.pub.Closed())
}

func (s *RegistrySuite) TestLeaveWhenNotInRoom() {
	s.createPlayer("p1")
	snap, err := s.registry.Leave(s.ctx, "p1")
	s.NoError(err)
	s.Nil(snap)
}

func (s *RegistrySuite) TestLeaveRollsBackWhenRoomSaveFails() {
	roomID := s.createRoom(4)
	s.createPlayer("p1")
	s.createPlayer("p2")
	_, _ = s.registry.Join(s.ctx, "p1", roomID, nil)
	_, _ = s.registry.Join(s.ctx, "p2", roomID, nil)
	s.faulty.Fail(storagetest.OpSaveRoom, 1)

	_, err := s.registry.Leave(s.ctx, "p1")
	s.ErrorIs(err, model.ErrPersistence)

	profile, _ := s.store.GetPlayer(s.ctx, "p1")
	s.Equal(roomID, profile.CurrentRoom)
	current, _ := s.registry.RoomOf("p1")
	s.Equal(roomID, current)
	snap, _ := s.registry.Snapshot(s.ctx, roomID)
	s.Len(snap.Players, 2)
}

// Snapshot and Reconcile tests

func (s *RegistrySuite) TestSnapshotReadsUncachedRoomFromStorage() {
	p := s.createPlayerAt("p1", model.Position{X: 2, Y: 3})
	room := &model.Room{ID: "stored", Name: "Stored", MaxPlayers: 4, Members: []model.PlayerID{p.ID}}
	s.Require().NoError(s.store.SaveRoom(s.ctx, room))

	snap, err := s.registry.Snapshot(s.ctx, "stored")
	s.Require().NoError(err)
	s.Equal(model.Position{X: 2, Y: 3}, snap.Players["p1"].Position)
}

func (s *RegistrySuite) TestSnapshotUnknownRoom() {
	_, err := s.registry.Snapshot(s.ctx, "missing")
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *RegistrySuite) TestReconcileClearsStaleMemberships() {
	p := s.createPlayer("p1")
	p.CurrentRoom = "stale"
	s.Require().NoError(s.store.SavePlayer(s.ctx, p))
	s.Require().NoError(s.store.SaveRoom(s.ctx, &model.Room{
		ID: "stale", Name: "Stale", MaxPlayers: 4, Members: []model.PlayerID{"p1", "gone"},
	}))
	s.Require().NoError(s.store.SaveRoom(s.ctx, &model.Room{ID: "empty", Name: "Empty", MaxPlayers: 4}))

	s.Require().NoError(s.registry.Reconcile(s.ctx))

	_, err := s.store.GetRoom(s.ctx, "stale")
	s.ErrorIs(err, model.ErrRoomNotFound)
	_, err = s.store.GetRoom(s.ctx, "empty")
	s.NoError(err)
	profile, _ := s.store.GetPlayer(s.ctx, "p1")
	s.Empty(profile.CurrentRoom)
}

// Rebind tests

func (s *RegistrySuite) TestRebindSendsSnapshotToNewSubscriber() {
	roomID := s.createRoom(4)
	s.createPlayer("p1")
	_, _ = s.registry.Join(s.ctx, "p1", roomID, nil)

	got, ok := s.registry.Rebind("p1", &fakeSub{id: "p1"})
	s.True(ok)
	s.Equal(roomID, got)
	s.Len(s.pub.Unicasts(roomID, "p1"), 1)
}

func (s *RegistrySuite) TestRebindWhenNotInRoom() {
	_, ok := s.registry.Rebind("p1", &fakeSub{id: "p1"})
	s.False(ok)
}

// Tx tests

func (s *RegistrySuite) TestWithMemberRejectsNonMember() {
	roomID := s.createRoom(4)
	called := false
	err := s.registry.WithMember(s.ctx, roomID, "p1", func(*Tx) error {
		called = true
		return nil
	})
	s.ErrorIs(err, model.ErrNotInRoom)
	s.False(called)
}

func (s *RegistrySuite) TestCommitPersistsAndUpdatesCache() {
	roomID := s.createRoom(4)
	s.createPlayer("p1")
	_, _ = s.registry.Join(s.ctx, "p1", roomID, nil)

	err := s.registry.WithMember(s.ctx, roomID, "p1", func(tx *Tx) error {
		st, ok := tx.State("p1")
		s.Require().True(ok)
		st.Kills = 3
		st.Position = model.Position{X: 7, Y: 7}
		return tx.Commit(st)
	})
	s.Require().NoError(err)

	profile, _ := s.store.GetPlayer(s.ctx, "p1")
	s.Equal(3, profile.Kills)
	s.Equal(model.Position{X: 7, Y: 7}, profile.Position)
	s.Equal(roomID, profile.CurrentRoom)
	snap, _ := s.registry.Snapshot(s.ctx, roomID)
	s.Equal(3, snap.Players["p1"].Kills)
}

func (s *RegistrySuite) TestCommitFailureRevertsEarlierWrites() {
	roomID := s.createRoom(4)
	s.createPlayer("p1")
	s.createPlayer("p2")
	_, _ = s.registry.Join(s.ctx, "p1", roomID, nil)
	_, _ = s.registry.Join(s.ctx, "p2", roomID, nil)
	s.faulty.FailAfter(storagetest.OpSavePlayer, 1)

	err := s.registry.WithMember(s.ctx, roomID, "p1", func(tx *Tx) error {
		a, _ := tx.State("p1")
		b, _ := tx.State("p2")
		a.Score = 50
		b.Score = 60
		return tx.Commit(a, b)
	})
	s.ErrorIs(err, model.ErrPersistence)

	p1, _ := s.store.GetPlayer(s.ctx, "p1")
	s.Zero(p1.Score)
	p2, _ := s.store.GetPlayer(s.ctx, "p2")
	s.Zero(p2.Score)
	snap, _ := s.registry.Snapshot(s.ctx, roomID)
	s.Zero(snap.Players["p1"].Score)
	s.Zero(snap.Players["p2"].Score)
}
