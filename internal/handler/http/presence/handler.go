package presence

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"teamwire-backend/pkg/response"
)

// PresenceStore is the read side of presence tracking
type PresenceStore interface {
	IsUserOnline(ctx context.Context, userID uuid.UUID) (bool, error)
	GetOnlineUsers(ctx context.Context) ([]uuid.UUID, error)
}

// Handler handles presence HTTP requests
type Handler struct {
	presence PresenceStore
}

// NewHandler creates a new presence handler
func NewHandler(presence PresenceStore) *Handler {
	return &Handler{presence: presence}
}

// GetOnlineUsers lists currently online user IDs
// GET /v1/presence/online
func (h *Handler) GetOnlineUsers(c *gin.Context) {
	users, err := h.presence.GetOnlineUsers(c.Request.Context())
	if err != nil {
		response.InternalError(c, "Failed to get online users")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"online": users})
}

// GetUserPresence reports one user's online status
// GET /v1/presence/:id
func (h *Handler) GetUserPresence(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "Invalid user ID")
		return
	}

	online, err := h.presence.IsUserOnline(c.Request.Context(), userID)
	if err != nil {
		response.InternalError(c, "Failed to check presence")
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"user_id": userID,
		"online":  online,
	})
}
