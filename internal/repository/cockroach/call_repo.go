package cockroach

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"teamwire-backend/internal/domain"
)

// CallRepository handles call data operations.
//
// Schema:
//
//	calls(call_id UUID PK, kind STRING, channel_id UUID NULL,
//	      dm_room_key STRING NULL, started_by UUID, is_active BOOL,
//	      started_at TIMESTAMPTZ, ended_at TIMESTAMPTZ NULL, duration INT)
//	call_participants(call_id UUID, user_id UUID, joined_at TIMESTAMPTZ,
//	      PRIMARY KEY (call_id, user_id))
//
// A partial unique index on (kind, channel_id, dm_room_key) WHERE is_active
// backs the one-active-call-per-room invariant.
type CallRepository struct {
	pool *pgxpool.Pool
}

// NewCallRepository creates a new call repository
func NewCallRepository(pool *pgxpool.Pool) *CallRepository {
	return &CallRepository{pool: pool}
}

// CreateActive inserts a new active call together with its initial
// participants. Returns ErrActiveCallExists if the room already has an
// active call; the guard and the insert run in one statement so two
// concurrent starts cannot both win.
func (r *CallRepository) CreateActive(ctx context.Context, call *domain.Call) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		INSERT INTO calls (
			call_id, kind, channel_id, dm_room_key, started_by, is_active, started_at, duration
		)
		SELECT $1, $2, $3, $4, $5, true, $6, 0
		WHERE NOT EXISTS (
			SELECT 1 FROM calls
			WHERE is_active
			  AND kind = $2
			  AND channel_id IS NOT DISTINCT FROM $3
			  AND dm_room_key IS NOT DISTINCT FROM $4
		)
	`, call.CallID, call.Kind, call.ChannelID, call.DMRoomKey, call.StartedBy, call.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to create call: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrActiveCallExists
	}

	for _, userID := range call.Participants {
		if _, err := tx.Exec(ctx, `
			INSERT INTO call_participants (call_id, user_id, joined_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (call_id, user_id) DO NOTHING
		`, call.CallID, userID, call.StartedAt); err != nil {
			return fmt.Errorf("failed to add initial participant: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit call creation: %w", err)
	}

	return nil
}

// GetByID retrieves a call with its participant set
func (r *CallRepository) GetByID(ctx context.Context, callID uuid.UUID) (*domain.Call, error) {
	query := `
		SELECT call_id, kind, channel_id, dm_room_key, started_by, is_active,
		       started_at, ended_at, duration
		FROM calls
		WHERE call_id = $1
	`

	call := &domain.Call{}
	err := r.pool.QueryRow(ctx, query, callID).Scan(
		&call.CallID,
		&call.Kind,
		&call.ChannelID,
		&call.DMRoomKey,
		&call.StartedBy,
		&call.IsActive,
		&call.StartedAt,
		&call.EndedAt,
		&call.Duration,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get call: %w", err)
	}

	call.Participants, err = r.Participants(ctx, callID)
	if err != nil {
		return nil, err
	}

	return call, nil
}

// GetActiveByRoom retrieves the active call for a room, if any.
// Returns ErrNotFound when the room has no active call.
func (r *CallRepository) GetActiveByRoom(ctx context.Context, kind domain.CallKind, channelID *uuid.UUID, dmRoomKey *string) (*domain.Call, error) {
	query := `
		SELECT call_id
		FROM calls
		WHERE is_active
		  AND kind = $1
		  AND channel_id IS NOT DISTINCT FROM $2
		  AND dm_room_key IS NOT DISTINCT FROM $3
	`

	var callID uuid.UUID
	err := r.pool.QueryRow(ctx, query, kind, channelID, dmRoomKey).Scan(&callID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get active call: %w", err)
	}

	return r.GetByID(ctx, callID)
}

// GetActiveByUser retrieves all active calls the user participates in
func (r *CallRepository) GetActiveByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Call, error) {
	query := `
		SELECT c.call_id
		FROM calls c
		JOIN call_participants cp ON c.call_id = cp.call_id
		WHERE c.is_active AND cp.user_id = $1
		ORDER BY c.started_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user calls: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan call id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read user calls: %w", err)
	}

	calls := make([]*domain.Call, 0, len(ids))
	for _, id := range ids {
		call, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		calls = append(calls, call)
	}

	return calls, nil
}

// AddParticipant adds a participant to a call. Adding an existing
// participant is a no-op.
func (r *CallRepository) AddParticipant(ctx context.Context, callID, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO call_participants (call_id, user_id, joined_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (call_id, user_id) DO NOTHING
	`, callID, userID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to add participant: %w", err)
	}
	return nil
}

// RemoveParticipant removes a participant from a call. Removing a user
// that is not a participant is a no-op.
func (r *CallRepository) RemoveParticipant(ctx context.Context, callID, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM call_participants
		WHERE call_id = $1 AND user_id = $2
	`, callID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove participant: %w", err)
	}
	return nil
}

// Participants retrieves the participant set in join order
func (r *CallRepository) Participants(ctx context.Context, callID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT user_id
		FROM call_participants
		WHERE call_id = $1
		ORDER BY joined_at ASC
	`, callID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	defer rows.Close()

	var participants []uuid.UUID
	for rows.Next() {
		var userID uuid.UUID
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, userID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read participants: %w", err)
	}

	return participants, nil
}

// CountParticipants returns the current participant count
func (r *CallRepository) CountParticipants(ctx context.Context, callID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM call_participants WHERE call_id = $1
	`, callID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count participants: %w", err)
	}
	return count, nil
}

// End marks a call inactive and records its end time and duration.
// The update is conditional on is_active, so only one of several racing
// end attempts observes the transition; it reports whether this call
// performed it.
func (r *CallRepository) End(ctx context.Context, callID uuid.UUID, endedAt time.Time, duration int) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE calls
		SET is_active = false, ended_at = $2, duration = $3
		WHERE call_id = $1 AND is_active
	`, callID, endedAt, duration)
	if err != nil {
		return false, fmt.Errorf("failed to end call: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
