package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mcoot/gridarena/internal/dependencies/clock"
	"github.com/mcoot/gridarena/internal/model"
	"github.com/mcoot/gridarena/internal/realtime"
	"github.com/mcoot/gridarena/internal/services/combat"
	"github.com/mcoot/gridarena/internal/services/movement"
	"github.com/mcoot/gridarena/internal/services/registry"
	"github.com/mcoot/gridarena/internal/storage"
)

// IdentityVerifier resolves a session token to the player it belongs to
type IdentityVerifier interface {
	VerifyIdentity(ctx context.Context, token string) (model.PlayerID, error)
}

// Fanout is the broadcast surface a connection subscribes through
type Fanout interface {
	realtime.Publisher
	SubscribeGlobal(sub realtime.Subscriber)
	UnsubscribeGlobal(sub realtime.Subscriber)
}

// Conn is the outbound half of a client connection
type Conn interface {
	// ID identifies the connection in logs
	ID() string
	// Send queues an event without blocking and reports whether it was accepted
	Send(event *model.Event) bool
	// Close terminates the connection
	Close()
}

// Coordinator runs the per-connection state machine and dispatches
// intents to the game engines
type Coordinator struct {
	auth     IdentityVerifier
	storage  storage.Storage
	registry *registry.Registry
	movement *movement.Engine
	combat   *combat.Engine
	fanout   Fanout
	clock    clock.Clock
	logger   *slog.Logger

	mu       sync.Mutex
	active   map[model.PlayerID]*Session
	cleaning int // unbound sessions still running disconnect cleanup
}

// New creates a Coordinator
func New(
	auth IdentityVerifier,
	storage storage.Storage,
	reg *registry.Registry,
	mov *movement.Engine,
	cmb *combat.Engine,
	fanout Fanout,
	clk clock.Clock,
	logger *slog.Logger,
) *Coordinator {
	return &Coordinator{
		auth:     auth,
		storage:  storage,
		registry: reg,
		movement: mov,
		combat:   cmb,
		fanout:   fanout,
		clock:    clk,
		logger:   logger.With(slog.String("component", "session")),
		active:   make(map[model.PlayerID]*Session),
	}
}

// Open starts an unauthenticated session for a new connection
func (c *Coordinator) Open(conn Conn) *Session {
	return &Session{
		c:        c,
		conn:     conn,
		logger:   c.logger.With(slog.String("conn_id", conn.ID())),
		state:    StateUnauthenticated,
		openedAt: c.clock.Now(),
	}
}

// Connected returns the number of authenticated connections
func (c *Coordinator) Connected() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.active)
}

// Lookup returns the live session bound to a player
func (c *Coordinator) Lookup(playerID model.PlayerID) (*Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.active[playerID]
	return s, ok
}

// Shutdown closes every authenticated connection. Each session then runs its
// normal disconnect cleanup from the transport.
func (c *Coordinator) Shutdown() {
	c.mu.Lock()
	conns := make([]Conn, 0, len(c.active))
	for _, s := range c.active {
		conns = append(conns, s.conn)
	}
	c.mu.Unlock()

	for _, conn := range conns {
		conn.Close()
	}
	c.logger.Info("closed live connections", slog.Int("count", len(conns)))
}

// bind makes s the live session for its player and returns the session it
// replaced, if any
func (c *Coordinator) bind(s *Session) *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	old := c.active[s.playerID]
	c.active[s.playerID] = s
	if old != nil && old != s {
		old.superseded.Store(true)
		return old
	}
	return nil
}

// unbind drops s if it is still the live session for its player and
// reports whether it was
func (c *Coordinator) unbind(s *Session) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active[s.playerID] != s {
		return false
	}
	delete(c.active, s.playerID)
	c.cleaning++
	return true
}

// cleaned marks the disconnect cleanup of an unbound session as finished
func (c *Coordinator) cleaned() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleaning--
}

// Idle returns true when no session is bound and no disconnect cleanup is
// still running
func (c *Coordinator) Idle() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.active) == 0 && c.cleaning == 0
}

func (c *Coordinator) event(t model.EventType, roomID model.RoomID, playerID model.PlayerID, payload any) *model.Event {
	return &model.Event{
		Type:      t,
		Timestamp: c.clock.Now(),
		RoomID:    roomID,
		PlayerID:  playerID,
		Payload:   payload,
	}
}
