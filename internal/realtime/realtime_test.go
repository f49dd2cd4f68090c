package realtime

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// fakeSession records deliveries in memory
type fakeSession struct {
	id      string
	profile *UserProfile

	mu     sync.Mutex
	events []deliveredEvent
	fail   bool
}

type deliveredEvent struct {
	Event string
	Data  any
}

func newFakeSession(userID uuid.UUID, name string) *fakeSession {
	return &fakeSession{
		id: uuid.NewString(),
		profile: &UserProfile{
			UserID:      userID,
			DisplayName: name,
		},
	}
}

func (s *fakeSession) ID() string         { return s.id }
func (s *fakeSession) UserID() uuid.UUID  { return s.profile.UserID }
func (s *fakeSession) User() *UserProfile { return s.profile }

func (s *fakeSession) Send(event string, data any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("send failed")
	}
	s.events = append(s.events, deliveredEvent{Event: event, Data: data})
	return nil
}

func (s *fakeSession) received() []deliveredEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]deliveredEvent, len(s.events))
	copy(out, s.events)
	return out
}
