package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/gridarena/internal/api/apierr"
	"github.com/mcoot/gridarena/internal/api/middleware"
	"github.com/mcoot/gridarena/internal/api/request"
	"github.com/mcoot/gridarena/internal/api/response"
	"github.com/mcoot/gridarena/internal/model"
	"github.com/mcoot/gridarena/internal/realtime"
	"github.com/mcoot/gridarena/internal/services/registry"
)

// RoomHandler handles room-related endpoints
type RoomHandler struct {
	registry *registry.Registry
	gateway  *realtime.Gateway
	logger   *slog.Logger
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(reg *registry.Registry, gateway *realtime.Gateway, logger *slog.Logger) *RoomHandler {
	return &RoomHandler{
		registry: reg,
		gateway:  gateway,
		logger:   logger.With(slog.String("component", "room_handler")),
	}
}

// List handles GET /api/v1/rooms
func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.registry.ListRooms(r.Context())
	if err != nil {
		writeError(w, h.logger, "list rooms", err)
		return
	}

	response.JSON(w, http.StatusOK, response.RoomListFromSummaries(summaries))
}

// Create handles POST /api/v1/rooms
func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.WriteError(w, apierr.NewInvalidRequestError("invalid request body"))
		return
	}
	if req.MaxPlayers < 0 {
		apierr.WriteError(w, apierr.NewInvalidRequestError("max_players must not be negative"))
		return
	}

	room, err := h.registry.CreateRoom(r.Context(), req.Name, req.MaxPlayers)
	if err != nil {
		writeError(w, h.logger, "create room", err)
		return
	}

	response.Created(w, "/api/v1/rooms/"+string(room.ID), response.RoomFromSummary(room.Summary()))
}

// Get handles GET /api/v1/rooms/{id}
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	roomID := model.RoomID(mux.Vars(r)["id"])

	snap, err := h.registry.Snapshot(r.Context(), roomID)
	if err != nil {
		writeError(w, h.logger, "get room", err)
		return
	}

	response.JSON(w, http.StatusOK, response.RoomSnapshotFromModel(snap))
}

// Events handles GET /api/v1/rooms/{id}/events, streaming the room's
// events to a spectator as SSE
func (h *RoomHandler) Events(w http.ResponseWriter, r *http.Request) {
	roomID := model.RoomID(mux.Vars(r)["id"])

	sub := realtime.NewStreamSubscriber(middleware.GetPlayerID(r.Context()))
	release := h.gateway.Spectate(roomID, sub)
	defer release()

	// Checked after attaching, so a purge from here on stops the stream's hub
	if _, err := h.registry.Snapshot(r.Context(), roomID); err != nil {
		writeError(w, h.logger, "open room stream", err)
		return
	}

	realtime.ServeSSE(w, r, sub, roomID, h.logger)
}
