// Package session keeps the logged-in profile on disk between CLI runs.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/lakron/internal/identity/domain"
	"github.com/felixgeelhaar/lakron/internal/shared/infrastructure/security"
)

// FileStore stores the session as JSON in a file only the owner can read.
type FileStore struct {
	path string
}

// NewFileStore creates a store at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the session file location.
func (s *FileStore) Path() string {
	return s.path
}

// Save writes the session, replacing any previous one.
func (s *FileStore) Save(sess domain.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := security.WritePrivateFile(s.path, data); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// Load reads the stored session.
func (s *FileStore) Load() (domain.Session, error) {
	data, err := security.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.Session{}, domain.ErrNoSession
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("read session: %w", err)
	}

	var sess domain.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return domain.Session{}, fmt.Errorf("decode session: %w", err)
	}
	if sess.ProfileID == uuid.Nil {
		return domain.Session{}, domain.ErrNoSession
	}
	return sess, nil
}

// Clear removes the session file.
func (s *FileStore) Clear() error {
	return security.RemoveFile(s.path)
}
