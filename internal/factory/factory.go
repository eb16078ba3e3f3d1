package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/mcoot/gridarena/internal/api"
	"github.com/mcoot/gridarena/internal/dependencies/clock"
	"github.com/mcoot/gridarena/internal/dependencies/random"
	"github.com/mcoot/gridarena/internal/model"
	"github.com/mcoot/gridarena/internal/realtime"
	"github.com/mcoot/gridarena/internal/services/achievement"
	"github.com/mcoot/gridarena/internal/services/auth"
	"github.com/mcoot/gridarena/internal/services/combat"
	"github.com/mcoot/gridarena/internal/services/movement"
	"github.com/mcoot/gridarena/internal/services/registry"
	"github.com/mcoot/gridarena/internal/session"
	"github.com/mcoot/gridarena/internal/storage"
	"github.com/mcoot/gridarena/internal/storage/memory"
	"github.com/mcoot/gridarena/internal/storage/postgres"
	redisstorage "github.com/mcoot/gridarena/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory   = "memory"
	StorageTypeRedis    = "redis"
	StorageTypePostgres = "postgres"
)

// DefaultBroadcastQueue is the per-room hub queue length
const DefaultBroadcastQueue = 256

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random
	Rules  model.Rules

	// Services
	Gateway      *realtime.Gateway
	AuthService  *auth.Service
	Achievements *achievement.Service
	Registry     *registry.Registry
	Movement     *movement.Engine
	Combat       *combat.Engine
	Coordinator  *session.Coordinator

	logger *slog.Logger
}

// Config holds configuration for the application factory
type Config struct {
	// AuthConfig holds configuration for the auth service (optional)
	// If zero value, defaults to auth.DefaultConfig()
	AuthConfig auth.Config
	// Rules holds the game constants (optional)
	// If nil, defaults to model.DefaultRules()
	Rules *model.Rules
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory", "redis" or "postgres")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// PostgresDSN is the database URL (required if StorageType is "postgres")
	PostgresDSN string
	// BroadcastQueue is the per-room event queue length (optional)
	BroadcastQueue int
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	store, err := newStorage(cfg)
	if err != nil {
		return nil, err
	}

	rules := model.DefaultRules()
	if cfg.Rules != nil {
		rules = *cfg.Rules
	}

	authCfg := cfg.AuthConfig
	if authCfg.StartingHealth <= 0 {
		authCfg.StartingHealth = rules.MaxHealth
	}

	queue := cfg.BroadcastQueue
	if queue <= 0 {
		queue = DefaultBroadcastQueue
	}

	return newWithDependencies(store, clock.New(), random.New(), authCfg, rules, queue, logger), nil
}

func newStorage(cfg Config) (storage.Storage, error) {
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		return memory.New(), nil
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		return redisstorage.New(*cfg.RedisConfig)
	case StorageTypePostgres:
		if cfg.PostgresDSN == "" {
			return nil, errors.New("PostgresDSN required when StorageType is postgres")
		}
		return postgres.New(cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("invalid StorageType %q: must be 'memory', 'redis' or 'postgres'", storageType)
	}
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Storage,
	clk clock.Clock,
	rnd random.Random,
	authCfg auth.Config,
	rules model.Rules,
	queue int,
	logger *slog.Logger,
) *App {
	gateway := realtime.NewGateway(queue, logger)
	authService := auth.New(store, clk, rnd, authCfg, logger)
	achievements := achievement.New(store, clk, logger)
	reg := registry.New(store, gateway, clk, rnd, rules, logger)
	mov := movement.New(reg, logger)
	cmb := combat.New(reg, achievements, logger)
	coordinator := session.New(authService, store, reg, mov, cmb, gateway, clk, logger)

	return &App{
		Storage:      store,
		Clock:        clk,
		Random:       rnd,
		Rules:        rules,
		Gateway:      gateway,
		AuthService:  authService,
		Achievements: achievements,
		Registry:     reg,
		Movement:     mov,
		Combat:       cmb,
		Coordinator:  coordinator,
		logger:       logger,
	}
}

// Start prepares durable state for serving: seeds the achievement catalog
// and clears room memberships left behind by a previous process
func (a *App) Start(ctx context.Context) error {
	if err := a.Achievements.EnsureCatalog(ctx); err != nil {
		return fmt.Errorf("seed achievements: %w", err)
	}
	if err := a.Registry.Reconcile(ctx); err != nil {
		return fmt.Errorf("reconcile rooms: %w", err)
	}
	return nil
}

// Handler returns the HTTP surface wired to the app's services
func (a *App) Handler() http.Handler {
	return api.NewRouter(api.RouterConfig{
		Logger:       a.logger,
		Storage:      a.Storage,
		AuthService:  a.AuthService,
		Registry:     a.Registry,
		Achievements: a.Achievements,
		Gateway:      a.Gateway,
		Coordinator:  a.Coordinator,
	})
}

// Close stops the broadcast hubs and releases the storage backend
func (a *App) Close() error {
	a.Gateway.Close()
	if closer, ok := a.Storage.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
