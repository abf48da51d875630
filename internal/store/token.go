// Package store persists the teacher's access token between runs.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	dirName  = ".mergington"
	fileName = "teacher_token"
)

// FileStore keeps the token in a single file. If envToken is set it wins
// over the file on Load until Clear is called.
type FileStore struct {
	path     string
	envToken string
}

// NewFileStore returns a store rooted at path.
func NewFileStore(path, envToken string) *FileStore {
	return &FileStore{path: path, envToken: strings.TrimSpace(envToken)}
}

// DefaultPath returns ~/.mergington/teacher_token.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, dirName, fileName), nil
}

// Path returns the token file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load returns the stored token using precedence: env var > file > empty.
// A missing file is not an error.
func (s *FileStore) Load() (string, error) {
	if s.envToken != "" {
		return s.envToken, nil
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("store.Load: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Save writes token with owner-only permissions.
func (s *FileStore) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("store.Save: create dir: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(token), 0600); err != nil {
		return fmt.Errorf("store.Save: %w", err)
	}
	return nil
}

// Clear removes the token file. Clearing an absent token succeeds.
func (s *FileStore) Clear() error {
	s.envToken = ""
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("store.Clear: %w", err)
	}
	return nil
}

// MemoryStore is an in-process store, used by tests and ephemeral runs.
type MemoryStore struct {
	mu    sync.Mutex
	token string
}

// NewMemoryStore returns a store preloaded with token.
func NewMemoryStore(token string) *MemoryStore {
	return &MemoryStore{token: token}
}

func (s *MemoryStore) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

func (s *MemoryStore) Save(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}
