// Package session holds the authenticated identity between runs of the
// terminal client. One slot, one JSON document, valid until explicit
// logout.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"kasku/internal/domain"
)

// Session is the persisted projection of the authenticated user plus the
// API token. It never contains the credential.
type Session struct {
	NIS      string      `json:"nis"`
	Username string      `json:"username"`
	FullName string      `json:"full_name"`
	Role     domain.Role `json:"role"`
	Position string      `json:"position"`
	Bio      string      `json:"bio"`
	PhotoURL *string     `json:"photo_url"`
	Token    string      `json:"token"`
}

// FromUser builds a session for the given identity and token.
func FromUser(user *domain.User, token string) Session {
	return Session{
		NIS:      user.NIS,
		Username: user.Username,
		FullName: user.FullName,
		Role:     user.Role,
		Position: user.Position,
		Bio:      user.Bio,
		PhotoURL: user.PhotoURL,
		Token:    token,
	}
}

// Store persists at most one session. Restore returns nil when no session
// exists; a malformed record is purged and treated as absent.
type Store interface {
	Restore() (*Session, error)
	Establish(sess Session) error
	Clear() error
}

// FileStore keeps the session as a single JSON file, written whole.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Restore() (*Session, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil || sess.NIS == "" {
		// Corrupt record: drop it rather than failing every startup.
		_ = os.Remove(s.path)
		return nil, nil
	}
	return &sess, nil
}

func (s *FileStore) Establish(sess Session) error {
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	// Write-then-rename keeps the slot whole even if we crash mid-write.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

var _ Store = (*FileStore)(nil)
