// Package storage persists the session and preferences as JSON files.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/infokelas/kelas/internal/api"
)

// Well-known keys.
const (
	KeyToken = "token"
	KeyUser  = "user"
	KeyTheme = "theme"
)

// Theme values.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// ErrInvalidKey indicates a key is empty or contains path traversal components.
var ErrInvalidKey = errors.New("storage: invalid key")

// FileStore persists values as JSON files under a base directory.
// It is safe for concurrent use.
type FileStore struct {
	baseDir string
	mu      sync.Mutex
}

// NewFileStore creates a FileStore that saves under baseDir.
func NewFileStore(baseDir string) *FileStore {
	return &FileStore{baseDir: baseDir}
}

// Dir returns the base directory.
func (s *FileStore) Dir() string { return s.baseDir }

// Save writes v as JSON under key. Files are private to the user since the
// token is a bearer credential.
func (s *FileStore) Save(key string, v any) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: marshaling %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(s.baseDir, 0o700); err != nil {
		return fmt.Errorf("storage: creating directory: %w", err)
	}
	if err := os.WriteFile(p, data, 0o600); err != nil {
		return fmt.Errorf("storage: writing %s: %w", p, err)
	}
	return nil
}

// Load reads key into v. Returns (false, nil) when nothing is stored.
func (s *FileStore) Load(key string, v any) (bool, error) {
	p, err := s.path(key)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	data, err := os.ReadFile(p)
	s.mu.Unlock()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("storage: reading %s: %w", p, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("storage: parsing %s: %w", p, err)
	}
	return true, nil
}

// Remove deletes key. Removing a missing key is not an error.
func (s *FileStore) Remove(key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("storage: removing %s: %w", p, err)
	}
	return nil
}

// path rejects keys that are empty, dot-segments, or contain path separators.
func (s *FileStore) path(key string) (string, error) {
	if key == "" || key == "." || key == ".." || key != filepath.Base(key) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(s.baseDir, key+".json"), nil
}

// Token returns the stored bearer token, or "" when signed out.
func (s *FileStore) Token() (string, error) {
	var tok string
	if _, err := s.Load(KeyToken, &tok); err != nil {
		return "", err
	}
	return tok, nil
}

// User returns the stored user summary.
func (s *FileStore) User() (api.User, bool, error) {
	var u api.User
	found, err := s.Load(KeyUser, &u)
	return u, found, err
}

// SaveSession stores the token and user of a successful login.
func (s *FileStore) SaveSession(token string, u api.User) error {
	if err := s.Save(KeyToken, token); err != nil {
		return err
	}
	return s.Save(KeyUser, u)
}

// SaveUser replaces the stored user summary.
func (s *FileStore) SaveUser(u api.User) error {
	return s.Save(KeyUser, u)
}

// ClearCredentials removes the token and user. The theme survives.
func (s *FileStore) ClearCredentials() error {
	return errors.Join(s.Remove(KeyToken), s.Remove(KeyUser))
}

// Theme returns the stored theme, defaulting to light.
func (s *FileStore) Theme() (string, error) {
	theme := ThemeLight
	if _, err := s.Load(KeyTheme, &theme); err != nil {
		return ThemeLight, err
	}
	if theme != ThemeDark {
		theme = ThemeLight
	}
	return theme, nil
}

// SetTheme stores the theme.
func (s *FileStore) SetTheme(theme string) error {
	if theme != ThemeLight && theme != ThemeDark {
		return fmt.Errorf("storage: unknown theme %q", theme)
	}
	return s.Save(KeyTheme, theme)
}
