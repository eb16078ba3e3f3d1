package storagetest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mcoot/gridarena/internal/model"
	"github.com/mcoot/gridarena/internal/storage"
)

// ErrInjected is returned by a Faulty store for operations set to fail
var ErrInjected = errors.New("injected storage failure")

// Operations a Faulty store can be told to fail
const (
	OpGetPlayer        = "GetPlayer"
	OpSavePlayer       = "SavePlayer"
	OpSaveRoom         = "SaveRoom"
	OpDeleteRoom       = "DeleteRoom"
	OpGrantAchievement = "GrantAchievement"
)

// Faulty wraps a Storage and fails or slows chosen operations on demand
type Faulty struct {
	storage.Storage

	mu     sync.Mutex
	fails  map[string]int // remaining failures per op; negative means always
	grace  map[string]int // successful calls allowed before failures start
	calls  map[string]int
	delays map[string]time.Duration
}

var _ storage.Storage = (*Faulty)(nil)

// NewFaulty wraps inner
func NewFaulty(inner storage.Storage) *Faulty {
	return &Faulty{
		Storage: inner,
		fails:   make(map[string]int),
		grace:   make(map[string]int),
		calls:   make(map[string]int),
		delays:  make(map[string]time.Duration),
	}
}

// Fail makes the next n calls of op fail. A negative n fails every call.
func (f *Faulty) Fail(op string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fails[op] = n
}

// FailAfter lets the next ok calls of op succeed and fails the one after
func (f *Faulty) FailAfter(op string, ok int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fails[op] = 1
	f.grace[op] = ok
}

// Delay makes every call of op sleep for d before running
func (f *Faulty) Delay(op string, d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delays[op] = d
}

// Heal clears every injected failure and delay
func (f *Faulty) Heal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	clear(f.fails)
	clear(f.grace)
	clear(f.delays)
}

// Calls returns how many times op was attempted
func (f *Faulty) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *Faulty) check(op string) error {
	f.mu.Lock()
	d := f.delays[op]
	f.mu.Unlock()
	if d > 0 {
		time.Sleep(d)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	if f.grace[op] > 0 {
		f.grace[op]--
		return nil
	}
	n, ok := f.fails[op]
	if !ok || n == 0 {
		return nil
	}
	if n > 0 {
		f.fails[op] = n - 1
	}
	return ErrInjected
}

func (f *Faulty) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	if err := f.check(OpGetPlayer); err != nil {
		return nil, err
	}
	return f.Storage.GetPlayer(ctx, id)
}

func (f *Faulty) SavePlayer(ctx context.Context, player *model.Player) error {
	if err := f.check(OpSavePlayer); err != nil {
		return err
	}
	return f.Storage.SavePlayer(ctx, player)
}

func (f *Faulty) SaveRoom(ctx context.Context, room *model.Room) error {
	if err := f.check(OpSaveRoom); err != nil {
		return err
	}
	return f.Storage.SaveRoom(ctx, room)
}

func (f *Faulty) DeleteRoom(ctx context.Context, id model.RoomID) error {
	if err := f.check(OpDeleteRoom); err != nil {
		return err
	}
	return f.Storage.DeleteRoom(ctx, id)
}

func (f *Faulty) GrantAchievement(ctx context.Context, record model.UnlockRecord) (bool, error) {
	if err := f.check(OpGrantAchievement); err != nil {
		return false, err
	}
	return f.Storage.GrantAchievement(ctx, record)
}
