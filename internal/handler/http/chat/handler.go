package chat

import (
	"encoding/base64"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"teamwire-backend/internal/domain"
	"teamwire-backend/internal/middleware"
	"teamwire-backend/internal/service/chat"
	apperrors "teamwire-backend/pkg/errors"
	"teamwire-backend/pkg/response"
)

// Handler handles chat HTTP requests
type Handler struct {
	chatService *chat.Service
}

// NewHandler creates a new chat handler
func NewHandler(chatService *chat.Service) *Handler {
	return &Handler{
		chatService: chatService,
	}
}

// SendMessageRequest represents send message request. Exactly one of
// channel_id / recipient_id selects the room.
type SendMessageRequest struct {
	ChannelID   string                 `json:"channel_id,omitempty"`
	RecipientID string                 `json:"recipient_id,omitempty"`
	Content     string                 `json:"content" binding:"required"`
	MessageType string                 `json:"message_type" binding:"omitempty,oneof=text image file"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// GetMessagesQuery represents query parameters for listing messages
type GetMessagesQuery struct {
	ChannelID   string `form:"channel_id"`
	RecipientID string `form:"recipient_id"`
	Bucket      int    `form:"bucket"`
	Limit       int    `form:"limit"`
	PageState   string `form:"page_state"` // Base64 encoded
}

// MessagesPage is one page of room history
type MessagesPage struct {
	Messages  []*domain.MessageResponse `json:"messages"`
	PageState string                    `json:"page_state,omitempty"`
}

// SendMessage handles sending a new message
// POST /v1/messages
func (h *Handler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	senderID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "Not authenticated")
		return
	}

	room, ok := resolveRoom(c, req.ChannelID, req.RecipientID, senderID)
	if !ok {
		return
	}

	message, err := h.chatService.SendMessage(c.Request.Context(), &chat.SendMessageInput{
		Room:        room,
		SenderID:    senderID,
		Content:     req.Content,
		MessageType: req.MessageType,
		Metadata:    req.Metadata,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, message)
}

// GetMessages retrieves room history, newest first
// GET /v1/messages?channel_id=uuid&limit=50&page_state=base64
func (h *Handler) GetMessages(c *gin.Context) {
	var query GetMessagesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "Not authenticated")
		return
	}

	room, ok := resolveRoom(c, query.ChannelID, query.RecipientID, userID)
	if !ok {
		return
	}

	var pageState []byte
	if query.PageState != "" {
		decoded, err := base64.StdEncoding.DecodeString(query.PageState)
		if err != nil {
			response.ValidationError(c, "Invalid page state")
			return
		}
		pageState = decoded
	}

	output, err := h.chatService.GetMessages(c.Request.Context(), &chat.GetMessagesInput{
		Room:      room,
		Bucket:    query.Bucket,
		Limit:     query.Limit,
		PageState: pageState,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	page := &MessagesPage{Messages: output.Messages}
	if len(output.PageState) > 0 {
		page.PageState = base64.StdEncoding.EncodeToString(output.PageState)
	}

	response.Success(c, http.StatusOK, page)
}

// resolveRoom derives the room from a channel or recipient reference.
// Writes the error response itself when neither parses.
func resolveRoom(c *gin.Context, channelID, recipientID string, userID uuid.UUID) (domain.Room, bool) {
	switch {
	case channelID != "":
		id, err := uuid.Parse(channelID)
		if err != nil {
			response.ValidationError(c, "Invalid channel ID")
			return "", false
		}
		return domain.ChannelRoom(id), true
	case recipientID != "":
		id, err := uuid.Parse(recipientID)
		if err != nil {
			response.ValidationError(c, "Invalid recipient ID")
			return "", false
		}
		return domain.DMRoom(domain.DMRoomKey(userID, id)), true
	default:
		response.ValidationError(c, "channel_id or recipient_id required")
		return "", false
	}
}

func respondError(c *gin.Context, err error) {
	appErr := apperrors.GetAppError(err)
	response.Error(c, appErr.StatusCode, string(appErr.Code), appErr.Message)
}
