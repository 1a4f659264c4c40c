package gcal

import (
	"sync"

	"golang.org/x/oauth2"
)

// persistingTokenSource calls save whenever the underlying source hands out a new access token.
type persistingTokenSource struct {
	base oauth2.TokenSource
	save func(*oauth2.Token)

	mu   sync.Mutex
	last string
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	changed := tok.AccessToken != s.last
	s.last = tok.AccessToken
	s.mu.Unlock()

	if changed && s.save != nil {
		s.save(tok)
	}
	return tok, nil
}
