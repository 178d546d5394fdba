// Package settings persists the user's shortcut choice as a single JSON
// record. Writes replace the whole file through a rename so an
// interrupted save never leaves a half-written record behind.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"vozflow/apperr"
)

const FileName = "settings.json"

var ErrNoShortcut = errors.New("no saved shortcut")

type record struct {
	Shortcut string `json:"shortcut"`
}

type Store struct {
	path string
	mu   sync.Mutex
}

func Open(dir string) *Store {
	return &Store{path: filepath.Join(dir, FileName)}
}

// DefaultDir is <UserConfigDir>/vozflow.
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "vozflow"), nil
}

func (s *Store) Path() string { return s.path }

// LoadShortcut returns ErrNoShortcut when the file is absent. A file that
// exists but cannot be read or parsed yields a Configuration error that
// wraps ErrNoShortcut, so callers can treat both as "nothing saved".
func (s *Store) LoadShortcut() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNoShortcut
	}
	if err != nil {
		return "", apperr.Wrap(apperr.Configuration, "read settings", errors.Join(ErrNoShortcut, err))
	}

	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return "", apperr.Wrap(apperr.Configuration, "parse settings", errors.Join(ErrNoShortcut, err))
	}
	shortcut := strings.TrimSpace(r.Shortcut)
	if shortcut == "" {
		return "", ErrNoShortcut
	}
	return shortcut, nil
}

func (s *Store) SaveShortcut(shortcut string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(record{Shortcut: shortcut}, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(s.path, data)
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".settings-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp settings: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp settings: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp settings: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}
