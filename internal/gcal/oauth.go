package gcal

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// StateStore issues single-use OAuth state values.
type StateStore struct {
	ttl time.Duration
	now func() time.Time

	mu     sync.Mutex
	issued map[string]time.Time
}

func NewStateStore(ttl time.Duration) *StateStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &StateStore{ttl: ttl, now: time.Now, issued: map[string]time.Time{}}
}

func (s *StateStore) Issue() string {
	state := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, exp := range s.issued {
		if now.After(exp) {
			delete(s.issued, k)
		}
	}
	s.issued[state] = now.Add(s.ttl)
	return state
}

// Consume reports whether state was issued and has not expired; it can succeed once.
func (s *StateStore) Consume(state string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.issued[state]
	if !ok {
		return false
	}
	delete(s.issued, state)
	return !s.now().After(exp)
}
