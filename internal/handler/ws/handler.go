package ws

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"teamwire-backend/internal/domain"
	"teamwire-backend/internal/middleware"
	"teamwire-backend/internal/realtime"
)

// UserDirectory resolves profiles for new connections
type UserDirectory interface {
	GetByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in dev, restrict in production
	},
}

// Handler upgrades authenticated HTTP requests to WebSocket connections
type Handler struct {
	hub   *Hub
	users UserDirectory
	log   *zap.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, users UserDirectory, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		hub:   hub,
		users: users,
		log:   log,
	}
}

// ServeWS handles GET /ws. Auth middleware has already validated the
// token (header or query param) and stored the caller's identity.
func (h *Handler) ServeWS(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	profile := &realtime.UserProfile{UserID: userID}
	if user, err := h.users.GetByID(c.Request.Context(), userID); err == nil {
		profile.DisplayName = user.DisplayName
		profile.AvatarURL = user.AvatarURL
	} else {
		// Token is valid; a profile lookup failure degrades fan-out
		// payloads but does not block the connection.
		h.log.Warn("failed to load profile on connect",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		if username, ok := middleware.GetUsername(c); ok {
			profile.DisplayName = username
		}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return
	}

	client := newClient(h.hub, conn, profile, h.log)
	h.hub.connect(client)

	go client.writePump()
	go client.readPump()
}
