package call

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"teamwire-backend/internal/domain"
	"teamwire-backend/internal/middleware"
	"teamwire-backend/internal/service/call"
	apperrors "teamwire-backend/pkg/errors"
	"teamwire-backend/pkg/response"
)

// Handler handles call HTTP requests
type Handler struct {
	callService *call.Service
}

// NewHandler creates a new call handler
func NewHandler(callService *call.Service) *Handler {
	return &Handler{
		callService: callService,
	}
}

// StartCallRequest represents start call request
type StartCallRequest struct {
	Kind        string `json:"kind" binding:"required,oneof=channel dm"`
	ChannelID   string `json:"channel_id,omitempty"`
	RecipientID string `json:"recipient_id,omitempty"`
}

// ActiveCallQuery represents query parameters for looking up a room's
// active call
type ActiveCallQuery struct {
	ChannelID   string `form:"channel_id"`
	RecipientID string `form:"recipient_id"`
}

// StartCall creates a new call
// POST /v1/calls
func (h *Handler) StartCall(c *gin.Context) {
	var req StartCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "Not authenticated")
		return
	}

	input := &call.StartCallInput{
		Kind:      domain.CallKind(req.Kind),
		StarterID: userID,
	}
	switch input.Kind {
	case domain.CallKindChannel:
		channelID, err := uuid.Parse(req.ChannelID)
		if err != nil {
			response.ValidationError(c, "Invalid channel ID")
			return
		}
		input.ChannelID = &channelID
	case domain.CallKindDM:
		recipientID, err := uuid.Parse(req.RecipientID)
		if err != nil {
			response.ValidationError(c, "Invalid recipient ID")
			return
		}
		input.RecipientID = &recipientID
	}

	started, err := h.callService.StartCall(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, started)
}

// JoinCall adds the caller to a call's participant set
// POST /v1/calls/:id/join
func (h *Handler) JoinCall(c *gin.Context) {
	callID, userID, ok := h.callAndUser(c)
	if !ok {
		return
	}

	joined, err := h.callService.JoinCall(c.Request.Context(), callID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, joined)
}

// LeaveCall removes the caller from a call's participant set
// POST /v1/calls/:id/leave
func (h *Handler) LeaveCall(c *gin.Context) {
	callID, userID, ok := h.callAndUser(c)
	if !ok {
		return
	}

	left, err := h.callService.LeaveCall(c.Request.Context(), callID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, left)
}

// EndCall forces a call inactive
// POST /v1/calls/:id/end
func (h *Handler) EndCall(c *gin.Context) {
	callID, _, ok := h.callAndUser(c)
	if !ok {
		return
	}

	ended, err := h.callService.EndCall(c.Request.Context(), callID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, ended)
}

// GetCall retrieves a call by ID
// GET /v1/calls/:id
func (h *Handler) GetCall(c *gin.Context) {
	callID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "Invalid call ID")
		return
	}

	found, err := h.callService.GetCall(c.Request.Context(), callID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, found)
}

// GetActiveCall looks up the active call for a channel or DM pair.
// Returns data: null when the room has no active call, so clients can
// decide between starting and joining with one request.
// GET /v1/calls/active?channel_id=uuid | recipient_id=uuid
func (h *Handler) GetActiveCall(c *gin.Context) {
	var query ActiveCallQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "Not authenticated")
		return
	}

	var (
		active *domain.Call
		err    error
	)
	switch {
	case query.ChannelID != "":
		channelID, parseErr := uuid.Parse(query.ChannelID)
		if parseErr != nil {
			response.ValidationError(c, "Invalid channel ID")
			return
		}
		active, err = h.callService.GetActiveCallForChannel(c.Request.Context(), channelID)
	case query.RecipientID != "":
		recipientID, parseErr := uuid.Parse(query.RecipientID)
		if parseErr != nil {
			response.ValidationError(c, "Invalid recipient ID")
			return
		}
		active, err = h.callService.GetActiveCallForDM(c.Request.Context(), userID, recipientID)
	default:
		response.ValidationError(c, "channel_id or recipient_id required")
		return
	}

	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, active)
}

// GetMyCalls lists the caller's active calls
// GET /v1/calls/mine
func (h *Handler) GetMyCalls(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "Not authenticated")
		return
	}

	calls, err := h.callService.GetUserActiveCalls(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, calls)
}

func (h *Handler) callAndUser(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	callID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "Invalid call ID")
		return uuid.Nil, uuid.Nil, false
	}

	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "Not authenticated")
		return uuid.Nil, uuid.Nil, false
	}

	return callID, userID, true
}

func respondError(c *gin.Context, err error) {
	appErr := apperrors.GetAppError(err)
	response.Error(c, appErr.StatusCode, string(appErr.Code), appErr.Message)
}
