package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"realtimehub/internal/auth"
	"realtimehub/internal/config"
	"realtimehub/internal/models"
	"realtimehub/internal/realtime"
	"realtimehub/internal/services"
	"realtimehub/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type WebSocketHandlers struct {
	authService *auth.Service
	roomService *services.RoomService
	hub         *realtime.Hub
	cfg         *config.Config
	upgrader    websocket.Upgrader
}

func NewWebSocketHandlers(authService *auth.Service, roomService *services.RoomService, hub *realtime.Hub, cfg *config.Config) *WebSocketHandlers {
	return &WebSocketHandlers{
		authService: authService,
		roomService: roomService,
		hub:         hub,
		cfg:         cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // Configure for production
		},
	}
}

func (h *WebSocketHandlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	apiKey := r.URL.Query().Get("apiKey")
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		userID = "anon-" + uuid.NewString()
	}

	// Upgrade before authenticating: an auth failure is reported as an
	// error frame on the socket, then the socket is closed.
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Upgrade error: %v", err)
		return
	}

	key, err := h.authService.ResolveKey(r.Context(), apiKey)
	if err != nil {
		logger.Debug("Rejected connection with key %q: %v", apiKey, err)
		closeWithError(conn, "invalid or inactive API key")
		return
	}

	client := realtime.NewClient(conn,
		h.cfg.WebSocket.SendBuffer,
		h.cfg.WebSocket.WriteTimeout,
		h.cfg.WebSocket.PongTimeout,
	)
	session := realtime.NewSession(h.hub, h.roomService, realtime.NewConn(userID, key.ProjectID, client))

	go session.Run(context.Background(), client)
}

// closeWithError writes a single error frame directly to the raw socket and
// closes it. Used only on the pre-registration path, before the write pump
// exists.
func closeWithError(conn *websocket.Conn, message string) {
	frame := &models.ServerFrame{Type: models.FrameError, Message: message}
	if data, err := json.Marshal(frame); err == nil {
		conn.WriteMessage(websocket.TextMessage, data)
	}
	conn.Close()
}
