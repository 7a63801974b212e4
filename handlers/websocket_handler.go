package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/openkmj/timjs/middleware"
	"github.com/openkmj/timjs/realtime"
)

type WebSocketHandler struct {
	hub      *realtime.Hub
	upgrader websocket.Upgrader
}

// NewWebSocketHandler accepts handshakes from the given origins; "*" allows
// any origin.
func NewWebSocketHandler(hub *realtime.Hub, allowedOrigins []string) *WebSocketHandler {
	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

// ServeWs subscribes the caller to their team's notification stream.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	logger := middleware.LoggerFromContext(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		logger.WarnContext(r.Context(), "websocket upgrade failed", slog.Int64("user_id", user.ID), slog.Any("error", err))
		return
	}

	client := realtime.NewClient(h.hub, conn, user.TeamID, user.ID)
	if !h.hub.Join(client) {
		logger.WarnContext(r.Context(), "websocket hub stopped, dropping connection", slog.Int64("user_id", user.ID))
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		_ = conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()

	logger.InfoContext(r.Context(), "websocket client registered", slog.Int64("user_id", user.ID), slog.String("room", client.Room))
}
