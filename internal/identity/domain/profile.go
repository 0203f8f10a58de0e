// Package domain models profiles: named owners of a task collection, each
// protected by one password.
package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

var (
	ErrEmptyProfileName = errors.New("profile name cannot be empty")
	ErrProfileExists    = errors.New("a profile with this name already exists")
	ErrWeakPassword     = errors.New("password must be at least 8 characters")
	ErrInvalidPassword  = errors.New("no profile matches this password")
	ErrProfileNotFound  = errors.New("profile not found")
)

// Profile is a stored profile. PasswordHash is an encoded argon2id hash and
// KeySalt seeds derivation of the profile's encryption key.
type Profile struct {
	ID           uuid.UUID
	Name         string
	PasswordHash string
	KeySalt      []byte
	CreatedAt    time.Time
}

// NewProfile validates the name and builds an unsaved profile.
func NewProfile(name, passwordHash string, keySalt []byte) (Profile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Profile{}, ErrEmptyProfileName
	}
	return Profile{
		ID:           uuid.New(),
		Name:         name,
		PasswordHash: passwordHash,
		KeySalt:      keySalt,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// ValidatePassword checks the password policy.
func ValidatePassword(password string) error {
	if len([]rune(password)) < MinPasswordLength {
		return ErrWeakPassword
	}
	return nil
}

// Repository persists profiles.
type Repository interface {
	Create(ctx context.Context, profile Profile) error
	FindByID(ctx context.Context, id uuid.UUID) (Profile, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	// List returns every profile ordered by creation time.
	List(ctx context.Context) ([]Profile, error)
}
