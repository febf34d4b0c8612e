package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// TokenFile keeps the CLI session on disk, readable only by the owner.
type TokenFile struct {
	Path string
}

// DefaultTokenPath is ~/.config/agri/agri_token.json (or the platform equivalent).
func DefaultTokenPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "agri", "agri_token.json")
}

// Load returns ErrNoSession when nothing has been saved.
func (f TokenFile) Load() (*Session, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("token file %s: %w", f.Path, err)
	}
	if !s.Authenticated() {
		return nil, ErrNoSession
	}
	return &s, nil
}

func (f TokenFile) Save(s *Session) error {
	if !s.Authenticated() {
		return ErrNoSession
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, f.Path)
}

// Clear removes the file; a missing file is not an error.
func (f TokenFile) Clear() error {
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
