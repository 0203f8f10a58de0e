// Package commands holds the task write use cases. Writes go through the
// reconciliation engine so the live collection reflects them at once.
package commands

import (
	"context"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/lakron/internal/schedule/domain"
)

// TaskEngine is the part of reconcile.Engine the write handlers need.
type TaskEngine interface {
	Add(ctx context.Context, task domain.Task) (domain.Task, error)
	Toggle(ctx context.Context, id uuid.UUID) (domain.Task, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
