// Package auth creates profiles and logs them in.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/lakron/internal/identity/domain"
	sharedApplication "github.com/felixgeelhaar/lakron/internal/shared/application"
	"github.com/felixgeelhaar/lakron/internal/shared/infrastructure/crypto"
)

// PasswordHasher hashes passwords and checks them against stored hashes.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) (bool, error)
}

// Service handles profile creation and password login. Password checks and
// key derivation never leave this package.
type Service struct {
	profiles   domain.Repository
	uow        sharedApplication.UnitOfWork
	hasher     PasswordHasher
	iterations int
	logger     *slog.Logger
}

// NewService creates an auth service. iterations is the PBKDF2 work factor
// for data keys.
func NewService(profiles domain.Repository, uow sharedApplication.UnitOfWork, hasher PasswordHasher, iterations int, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		profiles:   profiles,
		uow:        uow,
		hasher:     hasher,
		iterations: iterations,
		logger:     logger,
	}
}

// CreateProfile registers a profile and returns a session for it.
func (s *Service) CreateProfile(ctx context.Context, name, password string) (domain.Session, error) {
	if err := domain.ValidatePassword(password); err != nil {
		return domain.Session{}, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return domain.Session{}, fmt.Errorf("hash password: %w", err)
	}
	salt, err := crypto.NewSalt()
	if err != nil {
		return domain.Session{}, err
	}

	profile, err := domain.NewProfile(name, hash, salt)
	if err != nil {
		return domain.Session{}, err
	}

	err = sharedApplication.WithUnitOfWork(ctx, s.uow, func(txCtx context.Context) error {
		exists, err := s.profiles.ExistsByName(txCtx, profile.Name)
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrProfileExists
		}
		return s.profiles.Create(txCtx, profile)
	})
	if err != nil {
		if errors.Is(err, domain.ErrProfileExists) {
			return domain.Session{}, domain.ErrProfileExists
		}
		return domain.Session{}, fmt.Errorf("create profile: %w", err)
	}

	s.logger.InfoContext(ctx, "profile created", "profile_id", profile.ID)
	return s.session(profile, password)
}

// Authenticate finds the profile whose password matches. Profiles are
// identified by password alone, so every stored hash is tried in turn.
func (s *Service) Authenticate(ctx context.Context, password string) (domain.Session, error) {
	if password == "" {
		return domain.Session{}, domain.ErrInvalidPassword
	}

	profiles, err := s.profiles.List(ctx)
	if err != nil {
		return domain.Session{}, fmt.Errorf("list profiles: %w", err)
	}

	for _, p := range profiles {
		ok, err := s.hasher.Verify(password, p.PasswordHash)
		if err != nil {
			s.logger.WarnContext(ctx, "skipping profile with unreadable password hash",
				"profile_id", p.ID,
				"error", err,
			)
			continue
		}
		if ok {
			s.logger.InfoContext(ctx, "profile authenticated", "profile_id", p.ID)
			return s.session(p, password)
		}
	}
	return domain.Session{}, domain.ErrInvalidPassword
}

func (s *Service) session(p domain.Profile, password string) (domain.Session, error) {
	key, err := crypto.DeriveKey(password, p.KeySalt, s.iterations)
	if err != nil {
		return domain.Session{}, fmt.Errorf("derive key: %w", err)
	}
	return domain.Session{ProfileID: p.ID, Name: p.Name, Key: key}, nil
}
