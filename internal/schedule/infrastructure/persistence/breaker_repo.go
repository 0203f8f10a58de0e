package persistence

import (
	"context"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/lakron/internal/schedule/domain"
	"github.com/felixgeelhaar/lakron/internal/shared/infrastructure/resilience"
)

// BreakerRepository sends every call to the wrapped repository through a
// circuit breaker so an unreachable store fails fast.
type BreakerRepository struct {
	next    domain.Repository
	breaker *resilience.Breaker
}

// NewBreakerRepository wraps next. domain.ErrNotFound never trips the breaker.
func NewBreakerRepository(next domain.Repository, breaker *resilience.Breaker) *BreakerRepository {
	return &BreakerRepository{next: next, breaker: breaker}
}

func (r *BreakerRepository) ListByProfile(ctx context.Context, profileID uuid.UUID) ([]domain.Task, error) {
	return resilience.Do(r.breaker, func() ([]domain.Task, error) {
		return r.next.ListByProfile(ctx, profileID)
	})
}

func (r *BreakerRepository) FindByID(ctx context.Context, id uuid.UUID) (domain.Task, error) {
	return resilience.Do(r.breaker, func() (domain.Task, error) {
		return r.next.FindByID(ctx, id)
	})
}

func (r *BreakerRepository) Create(ctx context.Context, task domain.Task) (domain.Task, error) {
	return resilience.Do(r.breaker, func() (domain.Task, error) {
		return r.next.Create(ctx, task)
	})
}

func (r *BreakerRepository) Update(ctx context.Context, id uuid.UUID, patch domain.Patch) (domain.Task, error) {
	return resilience.Do(r.breaker, func() (domain.Task, error) {
		return r.next.Update(ctx, id, patch)
	})
}

func (r *BreakerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return resilience.Run(r.breaker, func() error {
		return r.next.Delete(ctx, id)
	})
}
