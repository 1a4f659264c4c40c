package scheduling

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

var testLoc = time.FixedZone("IDT", 3*60*60)

func at(day time.Time, hour, minute int) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, day.Location())
}

type memStore struct {
	mu     sync.Mutex
	tokens map[string]*oauth2.Token
}

func newMemStore(emails ...string) *memStore {
	s := &memStore{tokens: map[string]*oauth2.Token{}}
	for _, e := range emails {
		s.tokens[e] = &oauth2.Token{AccessToken: "access-" + e, RefreshToken: "refresh"}
	}
	return s
}

func (s *memStore) Get(_ context.Context, email string) (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens[email], nil
}

func (s *memStore) Set(_ context.Context, email string, tok *oauth2.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[email] = tok
	return nil
}

func (s *memStore) Has(ctx context.Context, email string) (bool, error) {
	tok, err := s.Get(ctx, email)
	return tok != nil, err
}

type fakeGateway struct {
	mu        sync.Mutex
	events    []CalendarEvent
	listErr   error
	insertErr error
	listed    [][2]time.Time
	inserted  []EventDraft
}

func (g *fakeGateway) ListEvents(_ context.Context, auth Authorization, _ string, from, to time.Time) ([]CalendarEvent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if auth.Token == nil {
		return nil, errors.New("no token")
	}
	g.listed = append(g.listed, [2]time.Time{from, to})
	if g.listErr != nil {
		return nil, g.listErr
	}
	return g.events, nil
}

func (g *fakeGateway) InsertEvent(_ context.Context, _ Authorization, _ string, draft EventDraft) (*InsertedEvent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.insertErr != nil {
		return nil, g.insertErr
	}
	g.inserted = append(g.inserted, draft)
	return &InsertedEvent{
		ID:       "evt-1",
		HTMLLink: "https://calendar.example/evt-1",
		Start:    draft.Start.UTC(),
		End:      draft.End.UTC(),
	}, nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []Notification
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, msg Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return n.err
}

type memHolder struct {
	mu       sync.Mutex
	held     map[string]bool
	released []string
}

func (h *memHolder) Hold(_ context.Context, key string) (func(context.Context), bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.held == nil {
		h.held = map[string]bool{}
	}
	if h.held[key] {
		return nil, false, nil
	}
	h.held[key] = true
	return func(context.Context) {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.held, key)
		h.released = append(h.released, key)
	}, true, nil
}
