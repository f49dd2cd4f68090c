package chat

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"teamwire-backend/internal/domain"
	"teamwire-backend/internal/realtime"
	apperrors "teamwire-backend/pkg/errors"
	"teamwire-backend/pkg/metrics"
)

// MessageRepository is the persistence contract for chat messages
type MessageRepository interface {
	Save(message *domain.Message) error
	GetByRoom(room domain.Room, bucket int, limit int, pageState []byte) ([]*domain.Message, []byte, error)
}

// UserRepository resolves sender profiles for fan-out payloads
type UserRepository interface {
	GetByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
}

// Service handles message delivery: durable write first, then
// best-effort fan-out. A failed write fails the request and nothing is
// fanned out; a failed fan-out never fails the request.
type Service struct {
	messages MessageRepository
	users    UserRepository
	notifier realtime.Notifier
	metrics  *metrics.Metrics
	log      *zap.Logger
}

// NewService creates a new chat service
func NewService(messages MessageRepository, users UserRepository, notifier realtime.Notifier, m *metrics.Metrics, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		messages: messages,
		users:    users,
		notifier: notifier,
		metrics:  m,
		log:      log,
	}
}

// SendMessageInput contains message creation data. Room is already
// resolved by the handler from channel_id or recipient_id.
type SendMessageInput struct {
	Room        domain.Room
	SenderID    uuid.UUID
	Content     string
	MessageType string
	Metadata    map[string]interface{}
}

// SendMessage persists the message and fans out message:new to the
// room, excluding the sender
func (s *Service) SendMessage(ctx context.Context, input *SendMessageInput) (*domain.MessageResponse, error) {
	if input.Content == "" {
		return nil, apperrors.MissingFieldError("content")
	}
	messageType := input.MessageType
	if messageType == "" {
		messageType = "text"
	}

	now := time.Now()
	message := &domain.Message{
		MessageID:   uuid.New(),
		Room:        input.Room,
		SenderID:    input.SenderID,
		Content:     input.Content,
		MessageType: messageType,
		Metadata:    input.Metadata,
		CreatedAt:   now,
		Bucket:      domain.CalculateBucket(now),
	}

	if err := s.messages.Save(message); err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	response := &domain.MessageResponse{
		MessageID:   message.MessageID,
		Room:        message.Room,
		SenderID:    message.SenderID,
		Content:     message.Content,
		MessageType: message.MessageType,
		Metadata:    message.Metadata,
		CreatedAt:   message.CreatedAt,
	}
	if sender, err := s.users.GetByID(ctx, input.SenderID); err == nil {
		response.SenderName = sender.DisplayName
	} else {
		s.log.Warn("failed to load sender profile",
			zap.String("user_id", input.SenderID.String()),
			zap.Error(err))
	}

	s.notifier.Notify(ctx, message.Room, realtime.EventMessageNew, response, input.SenderID)

	if s.metrics != nil {
		s.metrics.RecordMessageSent(string(message.Room.Kind()))
	}

	return response, nil
}

// GetMessagesInput contains history query parameters
type GetMessagesInput struct {
	Room      domain.Room
	Bucket    int // 0 means the current month
	Limit     int
	PageState []byte
}

// GetMessagesOutput carries one page of history plus the cursor for the
// next page. An empty cursor means the bucket is exhausted; callers
// step to the previous month's bucket to continue.
type GetMessagesOutput struct {
	Messages  []*domain.MessageResponse
	PageState []byte
}

// GetMessages returns a page of room history, newest first
func (s *Service) GetMessages(ctx context.Context, input *GetMessagesInput) (*GetMessagesOutput, error) {
	bucket := input.Bucket
	if bucket == 0 {
		bucket = domain.CalculateBucket(time.Now())
	}
	limit := input.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	messages, nextPageState, err := s.messages.GetByRoom(input.Room, bucket, limit, input.PageState)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	responses := make([]*domain.MessageResponse, 0, len(messages))
	for _, m := range messages {
		responses = append(responses, &domain.MessageResponse{
			MessageID:   m.MessageID,
			Room:        m.Room,
			SenderID:    m.SenderID,
			Content:     m.Content,
			MessageType: m.MessageType,
			Metadata:    m.Metadata,
			CreatedAt:   m.CreatedAt,
		})
	}

	return &GetMessagesOutput{
		Messages:  responses,
		PageState: nextPageState,
	}, nil
}
