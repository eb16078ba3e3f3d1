package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/gridarena/internal/api/apierr"
	"github.com/mcoot/gridarena/internal/api/handler"
	"github.com/mcoot/gridarena/internal/api/middleware"
	"github.com/mcoot/gridarena/internal/api/response"
	basemiddleware "github.com/mcoot/gridarena/internal/middleware"
	"github.com/mcoot/gridarena/internal/realtime"
	"github.com/mcoot/gridarena/internal/services/achievement"
	"github.com/mcoot/gridarena/internal/services/auth"
	"github.com/mcoot/gridarena/internal/services/registry"
	"github.com/mcoot/gridarena/internal/session"
	"github.com/mcoot/gridarena/internal/storage"
	"github.com/mcoot/gridarena/internal/transport/ws"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger       *slog.Logger
	Storage      storage.Storage
	AuthService  *auth.Service
	Registry     *registry.Registry
	Achievements *achievement.Service
	Gateway      *realtime.Gateway
	Coordinator  *session.Coordinator
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	playerHandler := handler.NewPlayerHandler(cfg.AuthService, cfg.Storage, cfg.Logger)
	roomHandler := handler.NewRoomHandler(cfg.Registry, cfg.Gateway, cfg.Logger)
	statsHandler := handler.NewStatsHandler(cfg.Storage, cfg.Achievements, cfg.Logger)
	wsHandler := ws.NewHandler(cfg.Coordinator, cfg.Logger)

	// Create middleware
	authMiddleware := middleware.Auth(cfg.AuthService)
	optionalAuthMiddleware := middleware.OptionalAuth(cfg.AuthService)
	loggingMiddleware := basemiddleware.Logging(cfg.Logger)
	recoveryMiddleware := basemiddleware.Recovery(cfg.Logger, func(w http.ResponseWriter, _ *http.Request, _ any) {
		apierr.WriteError(w, apierr.NewInternalError())
	})

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	// Player routes (no auth required for creating players/logging in)
	api.HandleFunc("/players/guest", playerHandler.CreateGuest).Methods(http.MethodPost)
	api.HandleFunc("/players/register", playerHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/players/login", playerHandler.Login).Methods(http.MethodPost)

	// Protected player routes
	playerProtected := api.PathPrefix("/players").Subrouter()
	playerProtected.Use(authMiddleware)
	playerProtected.HandleFunc("/me", playerHandler.GetMe).Methods(http.MethodGet)
	playerProtected.HandleFunc("/logout", playerHandler.Logout).Methods(http.MethodPost)

	// Room routes; listing and viewing are public
	api.HandleFunc("/rooms", roomHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/rooms/{id}", roomHandler.Get).Methods(http.MethodGet)

	roomsProtected := api.PathPrefix("/rooms").Subrouter()
	roomsProtected.Use(authMiddleware)
	roomsProtected.HandleFunc("", roomHandler.Create).Methods(http.MethodPost)
	roomsProtected.HandleFunc("/{id}/events", roomHandler.Events).Methods(http.MethodGet)

	// Stats routes
	api.HandleFunc("/leaderboard", statsHandler.Leaderboard).Methods(http.MethodGet)
	api.Handle("/achievements", optionalAuthMiddleware(http.HandlerFunc(statsHandler.Achievements))).Methods(http.MethodGet)

	// Realtime sessions authenticate inside the socket
	api.Handle("/ws", wsHandler).Methods(http.MethodGet)

	// Health check endpoint (no auth)
	api.HandleFunc("/health", healthHandler(cfg.Coordinator, cfg.Gateway)).Methods(http.MethodGet)

	return r
}

func healthHandler(coordinator *session.Coordinator, gateway *realtime.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		response.JSON(w, http.StatusOK, response.Health{
			Status:      "ok",
			Connections: coordinator.Connected(),
			ActiveRooms: gateway.ActiveRooms(),
		})
	}
}
