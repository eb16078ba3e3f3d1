// Package ws carries sessions over websocket connections.
package ws

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/gridarena/internal/model"
	"github.com/mcoot/gridarena/internal/realtime/codec"
	"github.com/mcoot/gridarena/internal/services/auth"
	"github.com/mcoot/gridarena/internal/session"
)

// Handler upgrades HTTP requests to websocket sessions
type Handler struct {
	coordinator *session.Coordinator
	upgrader    websocket.Upgrader
	logger      *slog.Logger
}

// NewHandler creates a websocket Handler
func NewHandler(coordinator *session.Coordinator, logger *slog.Logger) *Handler {
	return &Handler{
		coordinator: coordinator,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			Subprotocols:    codec.Subprotocols,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger.With(slog.String("component", "ws")),
	}
}

// ServeHTTP runs one connection until the client goes away. A token carried
// by the upgrade request (Bearer header, session cookie or ?token=)
// authenticates the session straight away.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	wsConn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	conn := newConn(wsConn, codec.ForSubprotocol(wsConn.Subprotocol()), h.logger)
	sess := h.coordinator.Open(conn)
	conn.logger.Debug("connection opened", slog.String("remote", r.RemoteAddr))

	// Intents outlive the upgrade request's context
	ctx := context.WithoutCancel(r.Context())

	go conn.writePump()

	if token := auth.TokenFromRequest(r); token != "" {
		sess.Handle(ctx, model.AuthenticateIntent{Token: token})
	}

	h.readPump(ctx, conn, sess)

	conn.Close()
	sess.Close(ctx)
	conn.logger.Debug("connection closed")
}

func (h *Handler) readPump(ctx context.Context, conn *Conn, sess *session.Session) {
	ws := conn.ws
	ws.SetReadLimit(maxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				conn.logger.Debug("read failed", slog.Any("error", err))
			}
			return
		}

		intent, err := conn.codec.DecodeIntent(data)
		if err != nil {
			sess.Reject(err)
			continue
		}
		sess.Handle(ctx, intent)
	}
}
