package combat

import (
	"context"
	"log/slog"

	"github.com/mcoot/gridarena/internal/model"
	"github.com/mcoot/gridarena/internal/services/achievement"
	"github.com/mcoot/gridarena/internal/services/registry"
)

// Achievements is the unlock check run after every kill
type Achievements interface {
	Check(ctx context.Context, state model.PlayerState) ([]model.Achievement, error)
}

var _ Achievements = (*achievement.Service)(nil)

// Engine resolves attacks, kills, respawns and round wins
type Engine struct {
	registry     *registry.Registry
	achievements Achievements
	rules        model.Rules
	logger       *slog.Logger
}

// New creates a combat Engine
func New(reg *registry.Registry, achievements Achievements, logger *slog.Logger) *Engine {
	return &Engine{
		registry:     reg,
		achievements: achievements,
		rules:        reg.Rules(),
		logger:       logger.With(slog.String("component", "combat")),
	}
}

// Outcome describes what an attack did
type Outcome struct {
	Hit      bool
	TargetID model.PlayerID
	Killed   bool
	Won      bool
	Unlocked []model.Achievement
	Attacker model.PlayerState
	Defender model.PlayerState
}

// Attack resolves a melee attack from the attacker's current cell. The
// defender is the occupant with the lowest id within melee range.
//
// Events are broadcast in this order: attack_launched, then on a hit any
// achievement_unlocked, game_won when the kill ends the round, and finally
// player_stats_updated for the defender and then the attacker.
func (e *Engine) Attack(ctx context.Context, attackerID model.PlayerID, roomID model.RoomID) (Outcome, error) {
	var out Outcome
	err := e.registry.WithMember(ctx, roomID, attackerID, func(tx *registry.Tx) error {
		attacker, _ := tx.State(attackerID)

		tx.Broadcast(model.EventAttackLaunched, attackerID, model.AttackLaunchedPayload{
			PlayerID:   attackerID,
			AttackType: model.AttackTypeMelee,
			Position:   attacker.Position,
		})

		targetID, ok := e.meleeTarget(tx, attacker)
		if !ok {
			out.Attacker = attacker
			return nil
		}
		defender, _ := tx.State(targetID)
		out.Hit = true
		out.TargetID = targetID

		defender.Health -= e.rules.MeleeDamage
		if defender.Health <= 0 {
			out.Killed = true
			e.creditKill(&attacker, true)
			e.respawn(tx, &defender)
			if attacker.Kills >= e.rules.WinKills {
				out.Won = true
				attacker.Wins++
				attacker.LifetimeScore += e.rules.WinBonus
			}
		}

		if err := tx.Commit(defender, attacker); err != nil {
			return err
		}

		if out.Killed {
			out.Unlocked = e.checkAchievements(ctx, tx, attacker)
		}

		var resetErr error
		if out.Won {
			resetErr = e.resetRound(tx, attacker)
		}

		out.Defender, _ = tx.State(targetID)
		out.Attacker, _ = tx.State(attackerID)
		tx.Broadcast(model.EventPlayerStatsUpdated, targetID, model.PlayerStatsUpdatedPayload{Player: out.Defender})
		tx.Broadcast(model.EventPlayerStatsUpdated, attackerID, model.PlayerStatsUpdatedPayload{Player: out.Attacker})
		return resetErr
	})
	return out, err
}

// PlayerHit applies direct damage to an explicit target, bypassing the range
// check. A kill credits kills and score but not lifetime score, and the
// defender respawns in place. Damage <= 0 uses the default direct-hit damage.
func (e *Engine) PlayerHit(ctx context.Context, attackerID model.PlayerID, roomID model.RoomID, targetID model.PlayerID, damage int) (Outcome, error) {
	if targetID == attackerID {
		return Outcome{}, model.ErrInvalidIntent
	}
	if damage <= 0 {
		damage = e.rules.DirectHitDamage
	}

	var out Outcome
	err := e.registry.WithMember(ctx, roomID, attackerID, func(tx *registry.Tx) error {
		defender, ok := tx.State(targetID)
		if !ok {
			return model.ErrTargetNotInRoom
		}
		attacker, _ := tx.State(attackerID)
		out.Hit = true
		out.TargetID = targetID

		defender.Health -= damage
		if defender.Health <= 0 {
			out.Killed = true
			e.creditKill(&attacker, false)
			defender.Deaths++
			defender.Health = e.rules.MaxHealth
		}

		if err := tx.Commit(defender, attacker); err != nil {
			return err
		}

		if out.Killed {
			out.Unlocked = e.checkAchievements(ctx, tx, attacker)
		}

		out.Defender, _ = tx.State(targetID)
		out.Attacker, _ = tx.State(attackerID)
		tx.Broadcast(model.EventPlayerStatsUpdated, targetID, model.PlayerStatsUpdatedPayload{Player: out.Defender})
		tx.Broadcast(model.EventPlayerStatsUpdated, attackerID, model.PlayerStatsUpdatedPayload{Player: out.Attacker})
		return nil
	})
	return out, err
}

// meleeTarget returns the lowest-id occupant within melee range
func (e *Engine) meleeTarget(tx *registry.Tx, attacker model.PlayerState) (model.PlayerID, bool) {
	for _, id := range tx.Members() {
		if id == attacker.PlayerID {
			continue
		}
		other, _ := tx.State(id)
		if attacker.Position.Chebyshev(other.Position) <= e.rules.MeleeRange {
			return id, true
		}
	}
	return "", false
}

func (e *Engine) creditKill(attacker *model.PlayerState, lifetime bool) {
	attacker.Kills++
	attacker.Score += e.rules.KillScore
	if lifetime {
		attacker.LifetimeScore += e.rules.KillScore
	}
}

// respawn restores the defender and moves them to a random free cell
func (e *Engine) respawn(tx *registry.Tx, defender *model.PlayerState) {
	defender.Deaths++
	defender.Health = e.rules.MaxHealth
	pos, ok := tx.RandomFreeCell()
	if !ok {
		e.logger.Warn("no free cell for respawn, using origin",
			slog.String("room_id", string(tx.RoomID())),
			slog.String("player_id", string(defender.PlayerID)))
		pos = model.Position{}
	}
	defender.Position = pos
}

// checkAchievements runs the unlock check and broadcasts each new unlock.
// A failed check is logged; the kill stands.
func (e *Engine) checkAchievements(ctx context.Context, tx *registry.Tx, state model.PlayerState) []model.Achievement {
	unlocked, err := e.achievements.Check(ctx, state)
	if err != nil {
		e.logger.Error("achievement check failed",
			slog.String("player_id", string(state.PlayerID)),
			slog.Any("error", err))
		return nil
	}
	for _, a := range unlocked {
		tx.Broadcast(model.EventAchievementUnlocked, state.PlayerID, model.AchievementUnlockedPayload{
			PlayerID:    state.PlayerID,
			Username:    state.Username,
			Achievement: model.InfoOf(a),
		})
	}
	return unlocked
}

// resetRound zeroes kills and score for every occupant and announces the
// winner
func (e *Engine) resetRound(tx *registry.Tx, winner model.PlayerState) error {
	members := tx.Members()
	states := make([]model.PlayerState, 0, len(members))
	for _, id := range members {
		st, _ := tx.State(id)
		st.Kills = 0
		st.Score = 0
		states = append(states, st)
	}
	if err := tx.Commit(states...); err != nil {
		e.logger.Error("round reset failed",
			slog.String("room_id", string(tx.RoomID())),
			slog.Any("error", err))
		return err
	}

	e.logger.Info("round won",
		slog.String("room_id", string(tx.RoomID())),
		slog.String("winner_id", string(winner.PlayerID)),
		slog.Int("wins", winner.Wins))

	tx.Broadcast(model.EventGameWon, winner.PlayerID, model.GameWonPayload{
		WinnerID: winner.PlayerID,
		Winner:   winner.Username,
		Wins:     winner.Wins,
	})
	return nil
}
