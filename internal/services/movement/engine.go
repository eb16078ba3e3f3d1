package movement

import (
	"context"
	"log/slog"

	"github.com/mcoot/gridarena/internal/model"
	"github.com/mcoot/gridarena/internal/services/registry"
)

// Engine validates and applies position changes
type Engine struct {
	registry *registry.Registry
	arena    model.Arena
	logger   *slog.Logger
}

// New creates a movement Engine
func New(reg *registry.Registry, logger *slog.Logger) *Engine {
	return &Engine{
		registry: reg,
		arena:    reg.Rules().Arena,
		logger:   logger.With(slog.String("component", "movement")),
	}
}

// Move relocates a player to target. On success the room receives a
// player_moved event carrying the full occupant map. A rejected move
// changes nothing and broadcasts nothing.
func (e *Engine) Move(ctx context.Context, playerID model.PlayerID, roomID model.RoomID, target model.Position) error {
	return e.registry.WithMember(ctx, roomID, playerID, func(tx *registry.Tx) error {
		if !e.arena.Contains(target) {
			return model.ErrOutOfBounds
		}

		state, _ := tx.State(playerID)
		if state.Position == target {
			return nil
		}
		if occupant, taken := tx.OccupiedBy(target); taken {
			e.logger.Debug("move rejected",
				slog.String("player_id", string(playerID)),
				slog.String("occupant", string(occupant)),
				slog.Int("x", target.X),
				slog.Int("y", target.Y))
			return model.ErrCellOccupied
		}

		state.Position = target
		if err := tx.Commit(state); err != nil {
			return err
		}

		tx.Broadcast(model.EventPlayerMoved, playerID, model.PlayerMovedPayload{
			PlayerID: playerID,
			Position: target,
			Players:  tx.Occupants(),
		})
		return nil
	})
}
