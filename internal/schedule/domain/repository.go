package domain

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned by a Repository for an unknown task id.
var ErrNotFound = errors.New("task not found")

// Repository is the durable task store.
type Repository interface {
	// ListByProfile returns every task of the profile ordered by date then time.
	ListByProfile(ctx context.Context, profileID uuid.UUID) ([]Task, error)
	FindByID(ctx context.Context, id uuid.UUID) (Task, error)
	// Create assigns the id and creation time and returns the stored record.
	Create(ctx context.Context, task Task) (Task, error)
	Update(ctx context.Context, id uuid.UUID, patch Patch) (Task, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
