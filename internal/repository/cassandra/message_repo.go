package cassandra

import (
	"fmt"

	"github.com/gocql/gocql"
	"github.com/google/uuid"

	"teamwire-backend/internal/domain"
)

// MessageRepository handles message storage in Cassandra.
// Messages are partitioned by (room, bucket) so a single hot room
// cannot grow one partition without bound.
type MessageRepository struct {
	session *gocql.Session
}

// NewMessageRepository creates a new MessageRepository
func NewMessageRepository(session *gocql.Session) *MessageRepository {
	return &MessageRepository{session: session}
}

// Save inserts a new message into Cassandra
func (r *MessageRepository) Save(message *domain.Message) error {
	if message.Bucket == 0 {
		message.Bucket = domain.CalculateBucket(message.CreatedAt)
	}

	if message.MessageID == uuid.Nil {
		message.MessageID = uuid.New()
	}

	query := `
		INSERT INTO messages (
			room, bucket, message_id, sender_id, content,
			message_type, metadata, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := r.session.Query(query,
		string(message.Room),
		message.Bucket,
		message.MessageID,
		message.SenderID,
		message.Content,
		message.MessageType,
		message.Metadata,
		message.CreatedAt,
	).Exec()

	if err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}

	return nil
}

// GetByRoom retrieves messages for a room with cursor-based pagination.
// Order comes from the storage layer's clustering key (created_at DESC),
// independent of fan-out delivery order.
func (r *MessageRepository) GetByRoom(
	room domain.Room,
	bucket int,
	limit int,
	pageState []byte,
) ([]*domain.Message, []byte, error) {
	query := `
		SELECT room, bucket, message_id, sender_id, content,
		       message_type, metadata, created_at
		FROM messages
		WHERE room = ? AND bucket = ?
		ORDER BY created_at DESC
		LIMIT ?
	`

	iter := r.session.Query(query, string(room), bucket, limit).PageState(pageState).Iter()

	var messages []*domain.Message
	var roomStr string

	for {
		message := &domain.Message{}
		if !iter.Scan(
			&roomStr,
			&message.Bucket,
			&message.MessageID,
			&message.SenderID,
			&message.Content,
			&message.MessageType,
			&message.Metadata,
			&message.CreatedAt,
		) {
			break
		}
		message.Room = domain.Room(roomStr)
		messages = append(messages, message)
	}

	nextPageState := iter.PageState()

	if err := iter.Close(); err != nil {
		return nil, nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	return messages, nextPageState, nil
}
