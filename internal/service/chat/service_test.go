package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"teamwire-backend/internal/domain"
	"teamwire-backend/internal/realtime"
	apperrors "teamwire-backend/pkg/errors"
)

// Mocks

type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) Save(message *domain.Message) error {
	args := m.Called(message)
	return args.Error(0)
}

func (m *MockMessageRepository) GetByRoom(room domain.Room, bucket int, limit int, pageState []byte) ([]*domain.Message, []byte, error) {
	args := m.Called(room, bucket, limit, pageState)
	var messages []*domain.Message
	if args.Get(0) != nil {
		messages = args.Get(0).([]*domain.Message)
	}
	var next []byte
	if args.Get(1) != nil {
		next = args.Get(1).([]byte)
	}
	return messages, next, args.Error(2)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, room domain.Room, event string, data any, exclude uuid.UUID) {
	m.Called(ctx, room, event, data, exclude)
}

func newTestService() (*Service, *MockMessageRepository, *MockUserRepository, *MockNotifier) {
	messages := new(MockMessageRepository)
	users := new(MockUserRepository)
	notifier := new(MockNotifier)
	svc := NewService(messages, users, notifier, nil, nil)
	return svc, messages, users, notifier
}

// Tests

func TestSendMessagePersistsThenNotifies(t *testing.T) {
	svc, messages, users, notifier := newTestService()
	room := domain.ChannelRoom(uuid.New())
	senderID := uuid.New()

	messages.On("Save", mock.AnythingOfType("*domain.Message")).Return(nil)
	users.On("GetByID", mock.Anything, senderID).Return(&domain.User{
		UserID:      senderID,
		DisplayName: "Alice",
	}, nil)
	notifier.On("Notify", mock.Anything, room, realtime.EventMessageNew, mock.MatchedBy(func(data any) bool {
		resp, ok := data.(*domain.MessageResponse)
		return ok && resp.Content == "hello" && resp.SenderName == "Alice"
	}), senderID).Return()

	sent, err := svc.SendMessage(context.Background(), &SendMessageInput{
		Room:     room,
		SenderID: senderID,
		Content:  "hello",
	})

	assert.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, sent.MessageID)
	assert.Equal(t, "text", sent.MessageType, "message type defaults to text")
	assert.Equal(t, room, sent.Room)
	messages.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestSendMessagePersistenceFailureSkipsFanOut(t *testing.T) {
	svc, messages, _, notifier := newTestService()
	room := domain.ChannelRoom(uuid.New())

	messages.On("Save", mock.Anything).Return(errors.New("write timeout"))

	_, err := svc.SendMessage(context.Background(), &SendMessageInput{
		Room:     room,
		SenderID: uuid.New(),
		Content:  "hello",
	})

	assert.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeDatabase, apperrors.GetAppError(err).Code)
	notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSendMessageRequiresContent(t *testing.T) {
	svc, messages, _, _ := newTestService()

	_, err := svc.SendMessage(context.Background(), &SendMessageInput{
		Room:     domain.ChannelRoom(uuid.New()),
		SenderID: uuid.New(),
	})

	assert.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeMissingField, apperrors.GetAppError(err).Code)
	messages.AssertNotCalled(t, "Save", mock.Anything)
}

func TestSendMessageProfileFailureDegradesGracefully(t *testing.T) {
	svc, messages, users, notifier := newTestService()
	room := domain.DMRoom("dm-a-b")
	senderID := uuid.New()

	messages.On("Save", mock.Anything).Return(nil)
	users.On("GetByID", mock.Anything, senderID).Return(nil, errors.New("unavailable"))
	notifier.On("Notify", mock.Anything, room, realtime.EventMessageNew, mock.Anything, senderID).Return()

	sent, err := svc.SendMessage(context.Background(), &SendMessageInput{
		Room:     room,
		SenderID: senderID,
		Content:  "hi",
	})

	assert.NoError(t, err, "a missing profile must not fail a persisted message")
	assert.Empty(t, sent.SenderName)
	notifier.AssertExpectations(t)
}

func TestGetMessagesDefaultsAndPaging(t *testing.T) {
	svc, messages, _, _ := newTestService()
	room := domain.ChannelRoom(uuid.New())
	stored := []*domain.Message{
		{MessageID: uuid.New(), Room: room, Content: "newest"},
		{MessageID: uuid.New(), Room: room, Content: "older"},
	}
	next := []byte("cursor")

	messages.On("GetByRoom", room, mock.AnythingOfType("int"), 50, []byte(nil)).Return(stored, next, nil)

	output, err := svc.GetMessages(context.Background(), &GetMessagesInput{Room: room})

	assert.NoError(t, err)
	assert.Len(t, output.Messages, 2)
	assert.Equal(t, "newest", output.Messages[0].Content)
	assert.Equal(t, next, output.PageState)
}

func TestGetMessagesClampsLimit(t *testing.T) {
	svc, messages, _, _ := newTestService()
	room := domain.ChannelRoom(uuid.New())

	messages.On("GetByRoom", room, 202601, 50, []byte(nil)).Return(nil, nil, nil)

	output, err := svc.GetMessages(context.Background(), &GetMessagesInput{
		Room:   room,
		Bucket: 202601,
		Limit:  500,
	})

	assert.NoError(t, err)
	assert.Empty(t, output.Messages)
}
