package changefeed

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/lakron/internal/schedule/domain"
	"github.com/felixgeelhaar/lakron/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/lakron/pkg/observability"
)

// PublishingRepository publishes a change on the bus after every successful
// write to the wrapped repository. A failed publish is logged; the write
// itself has already succeeded.
type PublishingRepository struct {
	domain.Repository
	publisher eventbus.Publisher
	logger    *slog.Logger
	metrics   observability.Metrics
}

// NewPublishingRepository decorates repo.
func NewPublishingRepository(repo domain.Repository, publisher eventbus.Publisher, logger *slog.Logger, metrics observability.Metrics) *PublishingRepository {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	return &PublishingRepository{
		Repository: repo,
		publisher:  publisher,
		logger:     logger,
		metrics:    metrics,
	}
}

func (r *PublishingRepository) Create(ctx context.Context, task domain.Task) (domain.Task, error) {
	created, err := r.Repository.Create(ctx, task)
	if err != nil {
		return created, err
	}
	r.publish(ctx, domain.ChangeEvent{Kind: domain.ChangeInsert, Record: created})
	return created, nil
}

func (r *PublishingRepository) Update(ctx context.Context, id uuid.UUID, patch domain.Patch) (domain.Task, error) {
	updated, err := r.Repository.Update(ctx, id, patch)
	if err != nil {
		return updated, err
	}
	r.publish(ctx, domain.ChangeEvent{Kind: domain.ChangeUpdate, Record: updated})
	return updated, nil
}

// Delete looks the task up first so the notification can be routed to its
// profile.
func (r *PublishingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	existing, err := r.Repository.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := r.Repository.Delete(ctx, id); err != nil {
		return err
	}
	r.publish(ctx, domain.ChangeEvent{
		Kind:   domain.ChangeDelete,
		Record: domain.Task{ID: existing.ID, ProfileID: existing.ProfileID},
	})
	return nil
}

func (r *PublishingRepository) publish(ctx context.Context, ev domain.ChangeEvent) {
	body, err := Encode(ev)
	if err != nil {
		r.logger.Error("failed to encode change", "task_id", ev.Record.ID, "error", err)
		return
	}
	if err := r.publisher.Publish(ctx, ev.RoutingKey(), body); err != nil {
		r.logger.Warn("failed to publish change",
			"routing_key", ev.RoutingKey(),
			"error", err,
		)
		return
	}
	r.metrics.Counter(observability.MetricEventsPublished, 1, observability.T("kind", string(ev.Kind)))
}
