package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/felixgeelhaar/lakron/internal/schedule/domain"
	"github.com/felixgeelhaar/lakron/internal/shared/infrastructure/resilience"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) ListByProfile(ctx context.Context, profileID uuid.UUID) ([]domain.Task, error) {
	args := m.Called(ctx, profileID)
	tasks, _ := args.Get(0).([]domain.Task)
	return tasks, args.Error(1)
}

func (m *mockRepository) FindByID(ctx context.Context, id uuid.UUID) (domain.Task, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Task), args.Error(1)
}

func (m *mockRepository) Create(ctx context.Context, task domain.Task) (domain.Task, error) {
	args := m.Called(ctx, task)
	return args.Get(0).(domain.Task), args.Error(1)
}

func (m *mockRepository) Update(ctx context.Context, id uuid.UUID, patch domain.Patch) (domain.Task, error) {
	args := m.Called(ctx, id, patch)
	return args.Get(0).(domain.Task), args.Error(1)
}

func (m *mockRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func newTestBreaker() *resilience.Breaker {
	return resilience.NewBreaker(resilience.BreakerConfig{
		Name:             "tasks",
		FailureThreshold: 2,
		Timeout:          time.Hour,
		Expected:         []error{domain.ErrNotFound},
	}, nil, nil)
}

func TestBreakerRepository_OpensOnOutage(t *testing.T) {
	inner := new(mockRepository)
	inner.On("ListByProfile", mock.Anything, mock.Anything).Return(nil, errors.New("dial tcp: refused"))
	repo := NewBreakerRepository(inner, newTestBreaker())
	ctx := context.Background()

	_, err := repo.ListByProfile(ctx, uuid.New())
	assert.Error(t, err)
	_, err = repo.ListByProfile(ctx, uuid.New())
	assert.Error(t, err)

	_, err = repo.ListByProfile(ctx, uuid.New())
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	inner.AssertNumberOfCalls(t, "ListByProfile", 2)
}

func TestBreakerRepository_NotFoundPassesThrough(t *testing.T) {
	inner := new(mockRepository)
	inner.On("Delete", mock.Anything, mock.Anything).Return(domain.ErrNotFound)
	inner.On("FindByID", mock.Anything, mock.Anything).Return(domain.Task{}, domain.ErrNotFound)
	repo := NewBreakerRepository(inner, newTestBreaker())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, repo.Delete(ctx, uuid.New()), domain.ErrNotFound)
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, domain.ErrNotFound)
	}
	inner.AssertNumberOfCalls(t, "Delete", 3)
}

func TestBreakerRepository_ForwardsWrites(t *testing.T) {
	inner := new(mockRepository)
	id := uuid.New()
	done := true
	patch := domain.Patch{Completed: &done}
	inner.On("Create", mock.Anything, mock.Anything).Return(domain.Task{ID: id}, nil)
	inner.On("Update", mock.Anything, id, patch).Return(domain.Task{ID: id, Completed: true}, nil)
	repo := NewBreakerRepository(inner, newTestBreaker())
	ctx := context.Background()

	created, err := repo.Create(ctx, domain.Task{Title: "x"})
	assert.NoError(t, err)
	assert.Equal(t, id, created.ID)

	updated, err := repo.Update(ctx, id, patch)
	assert.NoError(t, err)
	assert.True(t, updated.Completed)
	inner.AssertExpectations(t)
}
