package services

import (
	"context"

	"publication-backend/application/ports"
	"publication-backend/domain/events"
	"publication-backend/pkg/observability"

	"go.uber.org/zap"
)

// committer commits units of work and hands the resulting events to the
// bus and the business metrics. Publishing is best effort: the store is the
// source of truth and a failed publish never fails the operation.
type committer struct {
	publisher ports.EventPublisher
	metrics   *observability.Collector
	logger    *zap.Logger
}

func (c committer) commit(ctx context.Context, uow ports.UnitOfWork) error {
	if err := uow.Commit(ctx); err != nil {
		return err
	}

	committed := uow.CommittedEvents()
	c.record(committed)
	if c.publisher == nil || len(committed) == 0 {
		return nil
	}
	if err := c.publisher.Publish(ctx, committed); err != nil {
		c.logger.Warn("Failed to publish domain events",
			zap.Int("count", len(committed)),
			zap.Error(err),
		)
		c.countPublished("error", len(committed))
		return nil
	}
	c.countPublished("ok", len(committed))
	return nil
}

func (c committer) record(committed []events.DomainEvent) {
	if c.metrics == nil {
		return
	}
	for _, event := range committed {
		switch e := event.(type) {
		case events.ResourceLifecycleChanged:
			c.metrics.ResourceTransitions.WithLabelValues(e.GetEventType()).Inc()
		case events.TicketCreated:
			c.metrics.TicketTransitions.WithLabelValues(e.TicketType, e.Status).Inc()
		case events.TicketStatusChanged:
			c.metrics.TicketTransitions.WithLabelValues(e.TicketType, e.NewStatus).Inc()
		}
	}
}

func (c committer) countPublished(status string, n int) {
	if c.metrics == nil {
		return
	}
	c.metrics.EventsPublished.WithLabelValues(status).Add(float64(n))
}
