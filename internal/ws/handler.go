package ws

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/indexnow-studio/backend/internal/domain"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS is handled at the HTTP level
	},
}

// TokenVerifier validates a bearer token from the handshake.
type TokenVerifier interface {
	VerifyToken(token string) (*domain.JWTClaims, error)
}

// Handler upgrades HTTP connections and attaches clients to the hub.
type Handler struct {
	hub    *Hub
	auth   TokenVerifier
	logger *zap.Logger
}

// NewHandler creates a WebSocket handler.
func NewHandler(hub *Hub, auth TokenVerifier, logger *zap.Logger) *Handler {
	return &Handler{hub: hub, auth: auth, logger: logger}
}

// Handle upgrades HTTP to WebSocket.
// URL: /ws?token=JWT_TOKEN&userId=USER_ID
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "token required", http.StatusUnauthorized)
		return
	}

	claims, err := h.auth.VerifyToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	// The handshake userId must match the token subject.
	if userID := r.URL.Query().Get("userId"); userID != "" && userID != claims.Sub {
		http.Error(w, "user mismatch", http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}

	client := newClient(h.hub, conn, claims.Sub, h.logger)
	h.hub.register(client)
	h.logger.Info("ws connected", zap.String("user_id", claims.Sub))

	go client.writePump()
	go client.readPump()
}
