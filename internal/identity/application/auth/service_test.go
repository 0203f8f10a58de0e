package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/lakron/internal/identity/domain"
	"github.com/felixgeelhaar/lakron/internal/identity/infrastructure/passwords"
	"github.com/felixgeelhaar/lakron/internal/shared/infrastructure/crypto"
)

type mockProfileRepo struct {
	mock.Mock
}

func (m *mockProfileRepo) Create(ctx context.Context, p domain.Profile) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockProfileRepo) FindByID(ctx context.Context, id uuid.UUID) (domain.Profile, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Profile), args.Error(1)
}

func (m *mockProfileRepo) ExistsByName(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)
	return args.Bool(0), args.Error(1)
}

func (m *mockProfileRepo) List(ctx context.Context) ([]domain.Profile, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Profile), args.Error(1)
}

// passthroughUoW runs everything on the caller's context.
type passthroughUoW struct {
	commits, rollbacks int
}

func (u *passthroughUoW) Begin(ctx context.Context) (context.Context, error) { return ctx, nil }
func (u *passthroughUoW) Commit(context.Context) error                       { u.commits++; return nil }
func (u *passthroughUoW) Rollback(context.Context) error                     { u.rollbacks++; return nil }

func fastHasher() *passwords.Argon2Hasher {
	return passwords.NewArgon2Hasher(passwords.Params{Time: 1, Memory: 64, Threads: 1, KeyLen: 16, SaltLen: 8})
}

func newTestService(repo domain.Repository, uow *passthroughUoW) *Service {
	return NewService(repo, uow, fastHasher(), 1000, nil)
}

func TestService_CreateProfile(t *testing.T) {
	repo := new(mockProfileRepo)
	uow := &passthroughUoW{}
	svc := newTestService(repo, uow)
	ctx := context.Background()

	repo.On("ExistsByName", ctx, "home").Return(false, nil)
	repo.On("Create", ctx, mock.MatchedBy(func(p domain.Profile) bool {
		return p.Name == "home" && len(p.KeySalt) == crypto.SaltSize && p.PasswordHash != "correct horse"
	})).Return(nil)

	sess, err := svc.CreateProfile(ctx, " home ", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "home", sess.Name)
	assert.NotEqual(t, uuid.Nil, sess.ProfileID)
	assert.Len(t, sess.Key, crypto.KeySize)
	assert.Equal(t, 1, uow.commits)
	repo.AssertExpectations(t)
}

func TestService_CreateProfile_Validation(t *testing.T) {
	svc := newTestService(new(mockProfileRepo), &passthroughUoW{})
	ctx := context.Background()

	_, err := svc.CreateProfile(ctx, "home", "short")
	assert.ErrorIs(t, err, domain.ErrWeakPassword)

	_, err = svc.CreateProfile(ctx, "   ", "long enough")
	assert.ErrorIs(t, err, domain.ErrEmptyProfileName)
}

func TestService_CreateProfile_Duplicate(t *testing.T) {
	ctx := context.Background()

	t.Run("detected before insert", func(t *testing.T) {
		repo := new(mockProfileRepo)
		uow := &passthroughUoW{}
		repo.On("ExistsByName", ctx, "home").Return(true, nil)

		_, err := newTestService(repo, uow).CreateProfile(ctx, "home", "long enough")
		assert.ErrorIs(t, err, domain.ErrProfileExists)
		assert.Equal(t, 1, uow.rollbacks)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("lost race on insert", func(t *testing.T) {
		repo := new(mockProfileRepo)
		repo.On("ExistsByName", ctx, "home").Return(false, nil)
		repo.On("Create", ctx, mock.Anything).Return(domain.ErrProfileExists)

		_, err := newTestService(repo, &passthroughUoW{}).CreateProfile(ctx, "home", "long enough")
		assert.ErrorIs(t, err, domain.ErrProfileExists)
	})

	t.Run("store failure is wrapped", func(t *testing.T) {
		repo := new(mockProfileRepo)
		storeErr := errors.New("disk I/O error")
		repo.On("ExistsByName", ctx, "home").Return(false, storeErr)

		_, err := newTestService(repo, &passthroughUoW{}).CreateProfile(ctx, "home", "long enough")
		assert.ErrorIs(t, err, storeErr)
	})
}

func TestService_Authenticate(t *testing.T) {
	ctx := context.Background()
	hasher := fastHasher()

	mkProfile := func(name, password string) domain.Profile {
		hash, err := hasher.Hash(password)
		require.NoError(t, err)
		salt, err := crypto.NewSalt()
		require.NoError(t, err)
		p, err := domain.NewProfile(name, hash, salt)
		require.NoError(t, err)
		return p
	}

	home := mkProfile("home", "home password")
	work := mkProfile("work", "work password")
	broken := home
	broken.ID = uuid.New()
	broken.PasswordHash = "garbage"

	repo := new(mockProfileRepo)
	repo.On("List", ctx).Return([]domain.Profile{broken, home, work}, nil)
	svc := newTestService(repo, &passthroughUoW{})

	sess, err := svc.Authenticate(ctx, "work password")
	require.NoError(t, err)
	assert.Equal(t, work.ID, sess.ProfileID)
	assert.Equal(t, "work", sess.Name)

	again, err := svc.Authenticate(ctx, "work password")
	require.NoError(t, err)
	assert.Equal(t, sess.Key, again.Key, "key derivation is deterministic")

	other, err := svc.Authenticate(ctx, "home password")
	require.NoError(t, err)
	assert.NotEqual(t, sess.Key, other.Key)

	_, err = svc.Authenticate(ctx, "nobody's password")
	assert.ErrorIs(t, err, domain.ErrInvalidPassword)

	_, err = svc.Authenticate(ctx, "")
	assert.ErrorIs(t, err, domain.ErrInvalidPassword)
}

func TestService_Authenticate_ListFails(t *testing.T) {
	ctx := context.Background()
	repo := new(mockProfileRepo)
	repo.On("List", ctx).Return(nil, errors.New("connection refused"))

	_, err := newTestService(repo, &passthroughUoW{}).Authenticate(ctx, "whatever1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrInvalidPassword)
}
