package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/oauth2"
)

// FileStore keeps trainer tokens in a JSON file keyed by email.
// The whole map is loaded once and the file is rewritten on every Set.
type FileStore struct {
	path   string
	mu     sync.RWMutex
	tokens map[string]*oauth2.Token
}

func OpenFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path, tokens: map[string]*oauth2.Token{}}
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(raw, &s.tokens); err != nil {
		return nil, fmt.Errorf("parse credentials file: %w", err)
	}
	return s, nil
}

func (s *FileStore) Get(_ context.Context, email string) (*oauth2.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tok, ok := s.tokens[normalizeEmail(email)]
	if !ok {
		return nil, nil
	}
	cp := *tok
	return &cp, nil
}

func (s *FileStore) Set(_ context.Context, email string, tok *oauth2.Token) error {
	if tok == nil {
		return errors.New("nil token")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *tok
	s.tokens[normalizeEmail(email)] = &cp
	return s.flushLocked()
}

func (s *FileStore) Has(ctx context.Context, email string) (bool, error) {
	tok, err := s.Get(ctx, email)
	return tok != nil, err
}

func (s *FileStore) flushLocked() error {
	raw, err := json.MarshalIndent(s.tokens, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create credentials dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".credentials-*.json")
	if err != nil {
		return fmt.Errorf("write credentials file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write credentials file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("write credentials file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write credentials file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace credentials file: %w", err)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
