package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message represents a chat message entity
// Maps to the Cassandra messages table, partitioned by room + bucket
type Message struct {
	MessageID   uuid.UUID              `json:"message_id" cql:"message_id"`
	Room        Room                   `json:"room" cql:"room"`
	SenderID    uuid.UUID              `json:"sender_id" cql:"sender_id"`
	Content     string                 `json:"content" cql:"content"`
	MessageType string                 `json:"message_type" cql:"message_type"` // text, image, file
	Metadata    map[string]interface{} `json:"metadata,omitempty" cql:"metadata"`
	CreatedAt   time.Time              `json:"created_at" cql:"created_at"`
	Bucket      int                    `json:"-" cql:"bucket"`
}

// CalculateBucket returns the monthly partition bucket for a timestamp (YYYYMM)
func CalculateBucket(t time.Time) int {
	return t.Year()*100 + int(t.Month())
}

// MessageCreate represents data needed to send a message.
// Exactly one of ChannelID / RecipientID must be set; for DMs the room
// key is derived from sender + recipient.
type MessageCreate struct {
	ChannelID   *uuid.UUID             `json:"channel_id,omitempty"`
	RecipientID *uuid.UUID             `json:"recipient_id,omitempty"`
	Content     string                 `json:"content" binding:"required"`
	MessageType string                 `json:"message_type" binding:"required,oneof=text image file"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// MessageResponse represents the message returned to clients and fanned
// out as message:new
type MessageResponse struct {
	MessageID   uuid.UUID              `json:"message_id"`
	Room        Room                   `json:"room"`
	SenderID    uuid.UUID              `json:"sender_id"`
	SenderName  string                 `json:"sender_name,omitempty"`
	Content     string                 `json:"content"`
	MessageType string                 `json:"message_type"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}
