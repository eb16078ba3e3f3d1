package achievement

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/mcoot/gridarena/internal/dependencies/clock"
	"github.com/mcoot/gridarena/internal/model"
	"github.com/mcoot/gridarena/internal/storage"
)

// Service evaluates the achievement catalog against player stats and
// records unlocks in the ledger
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	logger  *slog.Logger
}

// New creates an achievement Service
func New(storage storage.Storage, clock clock.Clock, logger *slog.Logger) *Service {
	return &Service{
		storage: storage,
		clock:   clock,
		logger:  logger.With(slog.String("component", "achievement")),
	}
}

// Status is a catalog entry annotated for one player
type Status struct {
	Achievement model.Achievement
	Achieved    bool
	UnlockedAt  time.Time
}

// ParseRequirement splits a "<stat>_<threshold>" requirement
func ParseRequirement(req string) (string, int, error) {
	idx := strings.LastIndexByte(req, '_')
	if idx <= 0 || idx == len(req)-1 {
		return "", 0, fmt.Errorf("%w: %q", model.ErrInvalidRequirement, req)
	}
	stat := req[:idx]
	threshold, err := strconv.Atoi(req[idx+1:])
	if err != nil || threshold < 0 {
		return "", 0, fmt.Errorf("%w: %q", model.ErrInvalidRequirement, req)
	}
	if _, ok := (model.PlayerState{}).Stat(stat); !ok {
		return "", 0, fmt.Errorf("%w: unknown stat %q", model.ErrInvalidRequirement, stat)
	}
	return stat, threshold, nil
}

// Met reports whether state satisfies the achievement's requirement
func Met(a model.Achievement, state model.PlayerState) (bool, error) {
	stat, threshold, err := ParseRequirement(a.Requirement)
	if err != nil {
		return false, err
	}
	value, _ := state.Stat(stat)
	return value >= threshold, nil
}

// EnsureCatalog seeds the default catalog when the store holds none
func (s *Service) EnsureCatalog(ctx context.Context) error {
	existing, err := s.storage.ListAchievements(ctx)
	if err != nil {
		return fmt.Errorf("%w: list achievements: %v", model.ErrPersistence, err)
	}
	if len(existing) > 0 {
		return nil
	}

	defaults := model.DefaultAchievements()
	if err := s.storage.SaveAchievements(ctx, defaults); err != nil {
		return fmt.Errorf("%w: seed achievements: %v", model.ErrPersistence, err)
	}
	s.logger.Info("achievement catalog seeded", slog.Int("count", len(defaults)))
	return nil
}

// Catalog returns every achievement in id order
func (s *Service) Catalog(ctx context.Context) ([]model.Achievement, error) {
	catalog, err := s.storage.ListAchievements(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list achievements: %v", model.ErrPersistence, err)
	}
	return catalog, nil
}

// Check grants every achievement whose requirement state now meets and
// returns those newly unlocked. Already-held achievements are skipped, so
// repeated checks with unchanged stats unlock nothing.
func (s *Service) Check(ctx context.Context, state model.PlayerState) ([]model.Achievement, error) {
	catalog, err := s.Catalog(ctx)
	if err != nil {
		return nil, err
	}

	var unlocked []model.Achievement
	for _, a := range catalog {
		met, err := Met(a, state)
		if err != nil {
			s.logger.Warn("skipping achievement with bad requirement",
				slog.String("achievement_id", string(a.ID)),
				slog.Any("error", err))
			continue
		}
		if !met {
			continue
		}

		granted, err := s.storage.GrantAchievement(ctx, model.UnlockRecord{
			PlayerID:      state.PlayerID,
			AchievementID: a.ID,
			UnlockedAt:    s.clock.Now(),
		})
		if err != nil {
			s.logger.Error("failed to grant achievement",
				slog.String("player_id", string(state.PlayerID)),
				slog.String("achievement_id", string(a.ID)),
				slog.Any("error", err))
			continue
		}
		if !granted {
			continue
		}

		s.logger.Info("achievement unlocked",
			slog.String("player_id", string(state.PlayerID)),
			slog.String("achievement_id", string(a.ID)))
		unlocked = append(unlocked, a)
	}
	return unlocked, nil
}

// List returns the catalog annotated with the player's unlocks
func (s *Service) List(ctx context.Context, playerID model.PlayerID) ([]Status, error) {
	catalog, err := s.Catalog(ctx)
	if err != nil {
		return nil, err
	}

	held := make(map[model.AchievementID]time.Time)
	if playerID != "" {
		unlocks, err := s.storage.ListUnlocks(ctx, playerID)
		if err != nil {
			return nil, fmt.Errorf("%w: list unlocks: %v", model.ErrPersistence, err)
		}
		for _, u := range unlocks {
			held[u.AchievementID] = u.UnlockedAt
		}
	}

	statuses := make([]Status, len(catalog))
	for i, a := range catalog {
		at, ok := held[a.ID]
		statuses[i] = Status{Achievement: a, Achieved: ok, UnlockedAt: at}
	}
	return statuses, nil
}
