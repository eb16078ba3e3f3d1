package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mcoot/gridarena/internal/api/apierr"
	"github.com/mcoot/gridarena/internal/api/middleware"
	"github.com/mcoot/gridarena/internal/api/response"
	"github.com/mcoot/gridarena/internal/model"
	"github.com/mcoot/gridarena/internal/services/achievement"
	"github.com/mcoot/gridarena/internal/storage"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
)

// StatsHandler handles the leaderboard and achievement endpoints
type StatsHandler struct {
	storage      storage.Storage
	achievements *achievement.Service
	logger       *slog.Logger
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(storage storage.Storage, achievements *achievement.Service, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{
		storage:      storage,
		achievements: achievements,
		logger:       logger.With(slog.String("component", "stats_handler")),
	}
}

// Leaderboard handles GET /api/v1/leaderboard?limit=n
func (h *StatsHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := defaultLeaderboardLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			apierr.WriteError(w, apierr.NewInvalidRequestError("limit must be a positive integer"))
			return
		}
		limit = min(n, maxLeaderboardLimit)
	}

	players, err := h.storage.ListTopPlayers(r.Context(), limit)
	if err != nil {
		writeError(w, h.logger, "list leaderboard", err)
		return
	}

	response.JSON(w, http.StatusOK, response.LeaderboardFromPlayers(players))
}

// Achievements handles GET /api/v1/achievements. Anonymous callers get the
// catalog with nothing achieved.
func (h *StatsHandler) Achievements(w http.ResponseWriter, r *http.Request) {
	var playerID model.PlayerID
	if session := middleware.GetSession(r.Context()); session != nil {
		playerID = session.PlayerID
	}

	statuses, err := h.achievements.List(r.Context(), playerID)
	if err != nil {
		writeError(w, h.logger, "list achievements", err)
		return
	}

	response.JSON(w, http.StatusOK, response.AchievementsFromStatuses(statuses))
}
