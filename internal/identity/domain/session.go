package domain

import (
	"errors"

	"github.com/google/uuid"
)

// ErrNoSession is returned when nobody is logged in.
var ErrNoSession = errors.New("not logged in")

// Session is an authenticated profile together with the data key derived
// from its password. The key never leaves the local machine.
type Session struct {
	ProfileID uuid.UUID `json:"profile_id"`
	Name      string    `json:"name"`
	Key       []byte    `json:"key"`
}

// SessionStore persists the active session between commands.
type SessionStore interface {
	Save(s Session) error
	// Load returns ErrNoSession when no session is stored.
	Load() (Session, error)
	Clear() error
}
