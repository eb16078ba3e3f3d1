package factory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/mcoot/gridarena/internal/dependencies/mocks"
	"github.com/mcoot/gridarena/internal/model"
	"github.com/mcoot/gridarena/internal/realtime"
	"github.com/mcoot/gridarena/internal/services/auth"
	"github.com/mcoot/gridarena/internal/storage/memory"
	"github.com/mcoot/gridarena/internal/testutil"
)

// TestEpoch is the mock clock's starting time
var TestEpoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// NewTestApp creates an App over in-memory storage with a mocked clock and
// random source. The broadcast gateway is the real one, so deliveries are
// asynchronous.
func NewTestApp() *TestApp {
	mockClock := mocks.NewMockClock(TestEpoch)
	mockRandom := mocks.NewMockRandom()

	app := newWithDependencies(memory.New(), mockClock, mockRandom, auth.DefaultConfig(), model.DefaultRules(),
		DefaultBroadcastQueue, testutil.NopLogger())

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
	}
}

// Guest creates a guest player and returns its id
func (a *TestApp) Guest(ctx context.Context, name string) (model.PlayerID, error) {
	session, err := a.AuthService.CreateGuestPlayer(ctx, name)
	if err != nil {
		return "", err
	}
	return session.PlayerID, nil
}

// EventCollector is a realtime subscriber that keeps every delivered event
type EventCollector struct {
	id string

	mu     sync.Mutex
	events []*model.Event
}

var _ realtime.Subscriber = (*EventCollector)(nil)

// NewEventCollector creates a collector subscribing as id
func NewEventCollector(id model.PlayerID) *EventCollector {
	return &EventCollector{id: string(id)}
}

func (c *EventCollector) ID() string { return c.id }

func (c *EventCollector) Deliver(e *model.Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return true
}

func (c *EventCollector) HubClosed(model.RoomID) {}

// Has reports whether an event of type t was delivered
func (c *EventCollector) Has(t model.EventType) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.ContainsFunc(c.events, func(e *model.Event) bool { return e.Type == t })
}
