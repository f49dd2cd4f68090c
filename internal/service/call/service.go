package call

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"teamwire-backend/internal/domain"
	"teamwire-backend/internal/realtime"
	"teamwire-backend/internal/repository/cockroach"
	apperrors "teamwire-backend/pkg/errors"
	"teamwire-backend/pkg/metrics"
)

// CallRepository is the persistence contract for call records
type CallRepository interface {
	CreateActive(ctx context.Context, call *domain.Call) error
	GetByID(ctx context.Context, callID uuid.UUID) (*domain.Call, error)
	GetActiveByRoom(ctx context.Context, kind domain.CallKind, channelID *uuid.UUID, dmRoomKey *string) (*domain.Call, error)
	GetActiveByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Call, error)
	AddParticipant(ctx context.Context, callID, userID uuid.UUID) error
	RemoveParticipant(ctx context.Context, callID, userID uuid.UUID) error
	Participants(ctx context.Context, callID uuid.UUID) ([]uuid.UUID, error)
	CountParticipants(ctx context.Context, callID uuid.UUID) (int, error)
	End(ctx context.Context, callID uuid.UUID, endedAt time.Time, duration int) (bool, error)
}

// UserRepository resolves public profile fields for fan-out payloads
type UserRepository interface {
	GetByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
}

// Service owns the call lifecycle: NONE → ACTIVE → ENDED, with ENDED
// terminal. All mutations of one call are serialized on a per-call
// lock; the conditional persisted update in End backs that up across
// instances, so the terminal transition (and its call:ended fan-out)
// happens exactly once whether triggered by the last leave or by an
// explicit end.
type Service struct {
	calls    CallRepository
	users    UserRepository
	notifier realtime.Notifier
	metrics  *metrics.Metrics
	log      *zap.Logger

	locks *keyedLocks
}

// NewService creates a new call service
func NewService(calls CallRepository, users UserRepository, notifier realtime.Notifier, m *metrics.Metrics, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		calls:    calls,
		users:    users,
		notifier: notifier,
		metrics:  m,
		log:      log,
		locks:    newKeyedLocks(),
	}
}

// StartCallInput contains call creation data
type StartCallInput struct {
	Kind        domain.CallKind
	ChannelID   *uuid.UUID // channel calls
	RecipientID *uuid.UUID // DM calls: the other party
	StarterID   uuid.UUID
}

// StartCall creates a new active call with the starter as its only
// participant and announces call:started to the backing room. Returns
// a conflict error if the room already has an active call; callers are
// expected to query GetActiveCall first and join instead.
func (s *Service) StartCall(ctx context.Context, input *StartCallInput) (*domain.Call, error) {
	call := &domain.Call{
		CallID:       uuid.New(),
		Kind:         input.Kind,
		StartedBy:    input.StarterID,
		Participants: []uuid.UUID{input.StarterID},
		IsActive:     true,
		StartedAt:    time.Now(),
	}

	switch input.Kind {
	case domain.CallKindChannel:
		if input.ChannelID == nil {
			return nil, apperrors.MissingFieldError("channel_id")
		}
		call.ChannelID = input.ChannelID
	case domain.CallKindDM:
		if input.RecipientID == nil {
			return nil, apperrors.MissingFieldError("recipient_id")
		}
		key := domain.DMRoomKey(input.StarterID, *input.RecipientID)
		call.DMRoomKey = &key
	default:
		return nil, apperrors.InvalidInputError("kind must be channel or dm")
	}

	if err := s.calls.CreateActive(ctx, call); err != nil {
		if errors.Is(err, cockroach.ErrActiveCallExists) {
			return nil, apperrors.ActiveCallExistsError()
		}
		return nil, apperrors.DatabaseError(err)
	}

	if s.metrics != nil {
		s.metrics.CallStarted(string(call.Kind))
	}

	// The starter already has local state; everyone else in the backing
	// room learns there is a call to join.
	s.notifier.Notify(ctx, call.Room(), realtime.EventCallStarted, &realtime.CallStartedPayload{
		CallID:       call.CallID,
		Kind:         string(call.Kind),
		ChannelID:    call.ChannelID,
		DMRoomID:     call.DMRoomKey,
		StartedBy:    call.StartedBy,
		Participants: call.Participants,
		StartedAt:    call.StartedAt,
	}, input.StarterID)

	return call, nil
}

// JoinCall idempotently adds the user to the call's participant set and
// announces call:user-joined with the joiner's public profile
func (s *Service) JoinCall(ctx context.Context, callID, userID uuid.UUID) (*domain.Call, error) {
	unlock := s.locks.Lock(callID)
	defer unlock()

	call, err := s.getCall(ctx, callID)
	if err != nil {
		return nil, err
	}
	if !call.IsActive {
		return nil, apperrors.CallEndedError()
	}

	if err := s.calls.AddParticipant(ctx, callID, userID); err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	if !call.HasParticipant(userID) {
		call.Participants = append(call.Participants, userID)
	}

	payload := &realtime.UserJoinedPayload{
		CallID: &call.CallID,
		UserID: userID,
	}
	if user, err := s.users.GetByID(ctx, userID); err == nil {
		payload.UserName = user.DisplayName
		payload.AvatarURL = user.AvatarURL
	} else {
		// The participant is already durably added; fan out with the
		// identity alone rather than failing the join.
		s.log.Warn("failed to load joiner profile",
			zap.String("call_id", callID.String()),
			zap.String("user_id", userID.String()),
			zap.Error(err))
	}

	s.notifier.Notify(ctx, call.Room(), realtime.EventCallUserJoined, payload, userID)

	return call, nil
}

// LeaveCall removes the user from the participant set. When the set
// becomes empty the call ends automatically through the same terminal
// transition as an explicit end.
func (s *Service) LeaveCall(ctx context.Context, callID, userID uuid.UUID) (*domain.Call, error) {
	unlock := s.locks.Lock(callID)
	defer unlock()

	call, err := s.getCall(ctx, callID)
	if err != nil {
		return nil, err
	}

	if err := s.calls.RemoveParticipant(ctx, callID, userID); err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	remaining := call.Participants[:0]
	for _, p := range call.Participants {
		if p != userID {
			remaining = append(remaining, p)
		}
	}
	call.Participants = remaining

	s.notifier.Notify(ctx, call.Room(), realtime.EventCallUserLeft, &realtime.UserLeftPayload{
		CallID: &call.CallID,
		UserID: userID,
	}, userID)

	count, err := s.calls.CountParticipants(ctx, callID)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	if count == 0 && call.IsActive {
		if err := s.end(ctx, call, time.Now()); err != nil {
			return nil, err
		}
	}

	return call, nil
}

// EndCall forces the call inactive regardless of participant count.
// Ending an already-ended call is a no-op.
func (s *Service) EndCall(ctx context.Context, callID uuid.UUID) (*domain.Call, error) {
	unlock := s.locks.Lock(callID)
	defer unlock()

	call, err := s.getCall(ctx, callID)
	if err != nil {
		return nil, err
	}
	if !call.IsActive {
		return call, nil
	}

	if err := s.end(ctx, call, time.Now()); err != nil {
		return nil, err
	}

	return call, nil
}

// GetCall retrieves a call by id
func (s *Service) GetCall(ctx context.Context, callID uuid.UUID) (*domain.Call, error) {
	return s.getCall(ctx, callID)
}

// GetActiveCallForChannel returns the channel's active call, or nil if
// there is none
func (s *Service) GetActiveCallForChannel(ctx context.Context, channelID uuid.UUID) (*domain.Call, error) {
	call, err := s.calls.GetActiveByRoom(ctx, domain.CallKindChannel, &channelID, nil)
	if err != nil {
		if errors.Is(err, cockroach.ErrNotFound) {
			return nil, nil
		}
		return nil, apperrors.DatabaseError(err)
	}
	return call, nil
}

// GetActiveCallForDM returns the active call for a DM pair, or nil if
// there is none. Either ordering of the pair resolves the same room.
func (s *Service) GetActiveCallForDM(ctx context.Context, userA, userB uuid.UUID) (*domain.Call, error) {
	key := domain.DMRoomKey(userA, userB)
	call, err := s.calls.GetActiveByRoom(ctx, domain.CallKindDM, nil, &key)
	if err != nil {
		if errors.Is(err, cockroach.ErrNotFound) {
			return nil, nil
		}
		return nil, apperrors.DatabaseError(err)
	}
	return call, nil
}

// GetUserActiveCalls lists the active calls the user participates in
func (s *Service) GetUserActiveCalls(ctx context.Context, userID uuid.UUID) ([]*domain.Call, error) {
	calls, err := s.calls.GetActiveByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	return calls, nil
}

// LeaveActiveByRoom resolves the room's active call and removes the
// user from it. Called by the transport layer on connection teardown
// for every call room the connection belonged to; a room with no
// active call is not an error.
func (s *Service) LeaveActiveByRoom(ctx context.Context, kind domain.CallKind, roomRef string, userID uuid.UUID) error {
	var (
		call *domain.Call
		err  error
	)
	switch kind {
	case domain.CallKindChannel:
		channelID, parseErr := uuid.Parse(roomRef)
		if parseErr != nil {
			return apperrors.InvalidInputError("invalid channel reference")
		}
		call, err = s.calls.GetActiveByRoom(ctx, kind, &channelID, nil)
	case domain.CallKindDM:
		call, err = s.calls.GetActiveByRoom(ctx, kind, nil, &roomRef)
	default:
		return apperrors.InvalidInputError("invalid call kind")
	}
	if err != nil {
		if errors.Is(err, cockroach.ErrNotFound) {
			return nil
		}
		return apperrors.DatabaseError(err)
	}

	_, err = s.LeaveCall(ctx, call.CallID, userID)
	return err
}

func (s *Service) getCall(ctx context.Context, callID uuid.UUID) (*domain.Call, error) {
	call, err := s.calls.GetByID(ctx, callID)
	if err != nil {
		if errors.Is(err, cockroach.ErrNotFound) {
			return nil, apperrors.CallNotFoundError()
		}
		return nil, apperrors.DatabaseError(err)
	}
	return call, nil
}

// end performs the terminal transition. Duration is whole seconds,
// clamped to zero against clock skew. The conditional update reports
// whether this caller performed the transition, so call:ended is
// fanned out exactly once even when an auto-end races an explicit end.
func (s *Service) end(ctx context.Context, call *domain.Call, endedAt time.Time) error {
	duration := int(endedAt.Sub(call.StartedAt).Milliseconds() / 1000)
	if duration < 0 {
		duration = 0
	}

	ended, err := s.calls.End(ctx, call.CallID, endedAt, duration)
	if err != nil {
		return apperrors.DatabaseError(err)
	}
	if !ended {
		return nil
	}

	call.IsActive = false
	call.EndedAt = &endedAt
	call.Duration = duration

	if s.metrics != nil {
		s.metrics.CallEnded(duration)
	}

	s.notifier.Notify(ctx, call.Room(), realtime.EventCallEnded, &realtime.CallEndedPayload{
		CallID: call.CallID,
	}, uuid.Nil)

	return nil
}
