package session

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mcoot/gridarena/internal/dependencies/clock"
	"github.com/mcoot/gridarena/internal/model"
	"github.com/mcoot/gridarena/internal/realtime"
)

// State is a connection's position in the session lifecycle
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticated
	StateInRoom
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	case StateInRoom:
		return "in_room"
	case StateDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Session is one connection's view of the game. Intents on a session are
// handled one at a time, in arrival order.
type Session struct {
	c      *Coordinator
	conn   Conn
	logger *slog.Logger

	mu       sync.Mutex
	state    State
	playerID model.PlayerID
	username string
	roomID   model.RoomID
	openedAt time.Time

	// superseded is set when a newer connection authenticates as the same
	// player; the session then closes without leave cleanup
	superseded atomic.Bool
}

var _ realtime.Subscriber = (*Session)(nil)

// ID returns the subscriber id, which is the player id once authenticated
func (s *Session) ID() string {
	return string(s.playerID)
}

// Deliver forwards a fanned-out event to the connection
func (s *Session) Deliver(event *model.Event) bool {
	return s.conn.Send(event)
}

// HubClosed is a no-op: a room hub only stops once the room has no members
func (s *Session) HubClosed(model.RoomID) {}

// Retired reports whether a newer connection has taken over the player
func (s *Session) Retired() bool {
	return s.superseded.Load()
}

// State returns the current lifecycle state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// PlayerID returns the authenticated player, empty before authentication
func (s *Session) PlayerID() model.PlayerID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playerID
}

// RoomID returns the current room, empty outside a room
func (s *Session) RoomID() model.RoomID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomID
}

// Handle applies one intent. Failures are reported to this connection only;
// soft rejections are dropped silently.
func (s *Session) Handle(ctx context.Context, intent model.Intent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateDisconnected || s.superseded.Load() {
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("panic handling intent",
				slog.Any("panic", rec),
				slog.String("intent", string(intent.IntentType())),
				slog.String("stack", string(debug.Stack())))
			s.report(fmt.Errorf("panic: %v", rec))
		}
	}()

	if err := s.dispatch(ctx, intent); err != nil {
		s.report(err)
	}
}

func (s *Session) dispatch(ctx context.Context, intent model.Intent) error {
	switch in := intent.(type) {
	case model.AuthenticateIntent:
		return s.authenticate(ctx, in.Token)
	case model.JoinRoomIntent:
		return s.join(ctx, in.RoomID)
	case model.LeaveRoomIntent:
		return s.leave(ctx)
	case model.MoveIntent:
		if err := s.requireRoom(); err != nil {
			return err
		}
		return s.c.movement.Move(ctx, s.playerID, s.roomID, in.Position)
	case model.AttackIntent:
		if err := s.requireRoom(); err != nil {
			return err
		}
		_, err := s.c.combat.Attack(ctx, s.playerID, s.roomID)
		return err
	case model.PlayerHitIntent:
		if err := s.requireRoom(); err != nil {
			return err
		}
		_, err := s.c.combat.PlayerHit(ctx, s.playerID, s.roomID, in.TargetID, in.Damage)
		return err
	default:
		return fmt.Errorf("%w: %T", model.ErrUnknownIntent, intent)
	}
}

func (s *Session) authenticate(ctx context.Context, token string) error {
	if s.state != StateUnauthenticated {
		return model.ErrAlreadyAuthenticated
	}

	playerID, err := s.c.auth.VerifyIdentity(ctx, token)
	if err != nil {
		return model.ErrUnauthenticated
	}
	player, err := s.c.storage.GetPlayer(ctx, playerID)
	if err != nil {
		return err
	}

	s.playerID = playerID
	s.username = player.Username
	s.state = StateAuthenticated
	s.logger = s.logger.With(slog.String("player_id", string(playerID)))

	if old := s.c.bind(s); old != nil {
		s.logger.Info("connection superseded", slog.String("old_conn_id", old.conn.ID()))
		old.conn.Close()
	}
	s.c.fanout.SubscribeGlobal(s)

	resumeRoom, _ := s.c.registry.RoomOf(playerID)
	s.conn.Send(s.c.event(model.EventAuthenticated, "", playerID, model.AuthenticatedPayload{
		PlayerID: playerID,
		Username: s.username,
		RoomID:   resumeRoom,
	}))

	if roomID, ok := s.c.registry.Rebind(playerID, s); ok {
		s.state = StateInRoom
		s.roomID = roomID
		s.logger.Info("session resumed", slog.String("room_id", string(roomID)))
		return nil
	}

	s.logger.Info("session authenticated")
	return nil
}

func (s *Session) join(ctx context.Context, roomID model.RoomID) error {
	if s.state == StateUnauthenticated {
		return model.ErrUnauthenticated
	}
	if _, err := s.c.registry.Join(ctx, s.playerID, roomID, s); err != nil {
		return err
	}
	s.state = StateInRoom
	s.roomID = roomID
	return nil
}

func (s *Session) leave(ctx context.Context) error {
	if err := s.requireRoom(); err != nil {
		return err
	}
	if _, err := s.c.registry.Leave(ctx, s.playerID); err != nil {
		return err
	}
	s.state = StateAuthenticated
	s.roomID = ""
	return nil
}

func (s *Session) requireRoom() error {
	switch s.state {
	case StateUnauthenticated:
		return model.ErrUnauthenticated
	case StateInRoom:
		return nil
	default:
		return model.ErrNotInRoom
	}
}

// Reject reports a frame that could not be decoded into an intent
func (s *Session) Reject(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateDisconnected {
		return
	}
	s.report(err)
}

// report sends an error event to this connection unless err is a soft
// rejection
func (s *Session) report(err error) {
	code, soft := ErrorCode(err)
	if soft {
		s.logger.Debug("intent rejected", slog.Any("error", err))
		return
	}
	if code == CodeInternal || code == CodePersistence {
		s.logger.Error("intent failed", slog.String("code", code), slog.Any("error", err))
	} else {
		s.logger.Debug("intent refused", slog.String("code", code), slog.Any("error", err))
	}
	s.conn.Send(s.c.event(model.EventError, s.roomID, s.playerID, model.ErrorPayload{
		Code:    code,
		Message: errorMessage(code, err),
	}))
}

// Close ends the session. A session closed while in a room leaves it
// exactly as an explicit leave would, unless a newer connection has taken
// over the player.
func (s *Session) Close(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateDisconnected {
		return
	}
	prev := s.state
	s.state = StateDisconnected

	if prev == StateUnauthenticated {
		return
	}
	s.c.fanout.UnsubscribeGlobal(s)
	if s.superseded.Load() || !s.c.unbind(s) {
		s.logger.Debug("superseded session closed")
		return
	}
	defer s.c.cleaned()

	// A join finished by a superseded connection can leave the player in a
	// room this session never saw, so cleanup goes by the registry
	if _, err := s.c.registry.Leave(ctx, s.playerID); err != nil {
		s.logger.Error("disconnect cleanup failed",
			slog.String("room_id", string(s.roomID)),
			slog.Any("error", err))
	}
	s.roomID = ""
	s.logger.Info("session closed",
		slog.String("previous_state", prev.String()),
		slog.Duration("connected_for", clock.Since(s.c.clock, s.openedAt)))
}
