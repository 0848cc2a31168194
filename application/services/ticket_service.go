package services

import (
	"context"
	"fmt"

	"publication-backend/application/ports"
	"publication-backend/domain/config"
	"publication-backend/domain/core/aggregates"
	"publication-backend/domain/core/entities"
	"publication-backend/domain/core/valueobjects"
	"publication-backend/pkg/errors"
	"publication-backend/pkg/observability"

	"go.uber.org/zap"
)

// CreateTicketRequest carries the variant specific input of a new ticket
type CreateTicketRequest struct {
	Type               entities.TicketType
	Message            string
	Comment            string
	ResponsibilityArea string
}

// TicketService drives the ticket state machine and its side effects on
// the resource and its files
type TicketService struct {
	repo   ports.PublicationRepository
	config *config.DomainConfig
	logger *zap.Logger
	committer
}

// NewTicketService creates a new ticket service
func NewTicketService(
	repo ports.PublicationRepository,
	publisher ports.EventPublisher,
	cfg *config.DomainConfig,
	metrics *observability.Collector,
	logger *zap.Logger,
) *TicketService {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &TicketService{
		repo:      repo,
		config:    cfg,
		logger:    logger,
		committer: committer{publisher: publisher, metrics: metrics, logger: logger},
	}
}

// CreateTicket opens a ticket of the requested variant for a resource.
// A second active ticket of the same variant is refused with a conflict;
// the uniqueness guard decides races the pre-check cannot see.
func (s *TicketService) CreateTicket(ctx context.Context, user valueobjects.UserInstance, resourceID valueobjects.Identifier, req CreateTicketRequest) (*entities.TicketEntry, error) {
	if !req.Type.IsValid() {
		return nil, errors.NewValidationError("type", "unknown ticket type "+string(req.Type))
	}

	agg, err := s.repo.GetResourceAggregate(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	if existing, ok := agg.ActiveTicket(req.Type); ok {
		return nil, errors.NewConflictError(fmt.Sprintf("%s %s is already open for resource", req.Type, existing.Identifier)).
			WithDetail("ticketIdentifier", existing.Identifier.String())
	}

	ticket, err := s.newTicket(user, agg, req)
	if err != nil {
		return nil, err
	}

	uow := s.repo.NewUnitOfWork()
	if err := uow.RegisterInsert(ticket); err != nil {
		return nil, err
	}
	if err := s.commit(ctx, uow); err != nil {
		return nil, errors.Wrap(err, "create ticket")
	}

	s.logger.Info("Ticket created",
		zap.String("ticketID", ticket.Identifier.String()),
		zap.String("ticketType", string(ticket.Type)),
		zap.String("resourceID", resourceID.String()),
		zap.String("status", string(ticket.Status)),
	)
	return ticket, nil
}

func (s *TicketService) newTicket(user valueobjects.UserInstance, agg *aggregates.ResourceAggregate, req CreateTicketRequest) (*entities.TicketEntry, error) {
	resource := agg.Resource
	switch req.Type {
	case entities.TicketTypeDoiRequest:
		return entities.NewDoiRequest(resource, user)
	case entities.TicketTypePublishingRequest:
		workflow := user.PublishingWorkflow
		if !workflow.IsValid() {
			workflow = s.config.DefaultPublishingWorkflow
		}
		return entities.NewPublishingRequest(resource, user, workflow, agg.PendingFiles(), "")
	case entities.TicketTypeFilesApprovalThesis:
		return entities.NewFilesApprovalThesis(resource, user, agg.PendingFiles(), "", req.ResponsibilityArea)
	case entities.TicketTypeUnpublishRequest:
		return entities.NewUnpublishRequest(resource, user, req.Comment)
	default:
		return entities.NewGeneralSupportRequest(resource, user, req.Message)
	}
}

// CompleteTicket finalizes a ticket and applies its effect on the resource.
// File approval tickets approve every file still pending and publish the
// resource; unpublish requests unpublish it. Everything is one transaction.
func (s *TicketService) CompleteTicket(ctx context.Context, ticketID valueobjects.Identifier, actor string) (*entities.TicketEntry, error) {
	ticket, agg, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	resource := agg.Resource

	var remaining []valueobjects.Identifier
	if approval := ticket.FileApproval(); approval != nil {
		remaining = append(remaining, approval.FilesForApproval...)
	}
	if err := ticket.Complete(resource, actor); err != nil {
		return nil, err
	}

	uow := s.repo.NewUnitOfWork()
	if err := uow.RegisterUpdate(ticket); err != nil {
		return nil, err
	}

	switch {
	case ticket.Type.IsFileApproval():
		for _, id := range remaining {
			file, ok := agg.File(id)
			if !ok || !file.IsPending() {
				continue
			}
			if err := file.Approve(actor); err != nil {
				return nil, err
			}
			if err := uow.RegisterUpdate(file); err != nil {
				return nil, err
			}
		}
		if resource.Status != entities.ResourceStatusPublished {
			if err := resource.Publish(actor); err != nil {
				return nil, err
			}
			if err := uow.RegisterUpdate(resource); err != nil {
				return nil, err
			}
		}
	case ticket.Type == entities.TicketTypeUnpublishRequest:
		if err := resource.Unpublish(actor, unpublishComment(ticket, "")); err != nil {
			return nil, err
		}
		if err := uow.RegisterUpdate(resource); err != nil {
			return nil, err
		}
	}

	if err := s.commit(ctx, uow); err != nil {
		return nil, errors.Wrap(err, "complete ticket")
	}

	s.logger.Info("Ticket completed",
		zap.String("ticketID", ticketID.String()),
		zap.String("ticketType", string(ticket.Type)),
		zap.String("resourceStatus", string(resource.Status)),
	)
	return ticket, nil
}

// CloseTicket rejects a ticket
func (s *TicketService) CloseTicket(ctx context.Context, ticketID valueobjects.Identifier, actor string) (*entities.TicketEntry, error) {
	return s.mutate(ctx, ticketID, "close ticket", func(t *entities.TicketEntry) (bool, error) {
		return true, t.Close(actor)
	})
}

// RemoveTicket withdraws a ticket that was never picked up
func (s *TicketService) RemoveTicket(ctx context.Context, ticketID valueobjects.Identifier, actor string) (*entities.TicketEntry, error) {
	return s.mutate(ctx, ticketID, "remove ticket", func(t *entities.TicketEntry) (bool, error) {
		return true, t.Remove(actor)
	})
}

// MarkPending picks up a new ticket
func (s *TicketService) MarkPending(ctx context.Context, ticketID valueobjects.Identifier, actor string) (*entities.TicketEntry, error) {
	return s.mutate(ctx, ticketID, "mark ticket pending", func(t *entities.TicketEntry) (bool, error) {
		return true, t.MarkPending(actor)
	})
}

// Assign sets the curator responsible for a ticket
func (s *TicketService) Assign(ctx context.Context, ticketID valueobjects.Identifier, assignee string) (*entities.TicketEntry, error) {
	return s.mutate(ctx, ticketID, "assign ticket", func(t *entities.TicketEntry) (bool, error) {
		return true, t.Assign(assignee)
	})
}

// MarkViewed adds user to the ticket's viewers. Viewing twice writes nothing.
func (s *TicketService) MarkViewed(ctx context.Context, ticketID valueobjects.Identifier, user string) (*entities.TicketEntry, error) {
	return s.mutate(ctx, ticketID, "mark ticket viewed", func(t *entities.TicketEntry) (bool, error) {
		return t.MarkViewedBy(user), nil
	})
}

// MarkUnviewed removes user from the ticket's viewers
func (s *TicketService) MarkUnviewed(ctx context.Context, ticketID valueobjects.Identifier, user string) (*entities.TicketEntry, error) {
	return s.mutate(ctx, ticketID, "mark ticket unviewed", func(t *entities.TicketEntry) (bool, error) {
		return t.MarkUnviewedBy(user), nil
	})
}

// ApproveFile approves one file of a file approval ticket. The ticket's
// file bookkeeping and the file record change together.
func (s *TicketService) ApproveFile(ctx context.Context, ticketID, fileID valueobjects.Identifier, actor string) (*entities.TicketEntry, error) {
	return s.decideFile(ctx, ticketID, fileID, "approve file",
		(*entities.TicketEntry).ApproveFile,
		func(f *entities.FileEntry) error { return f.Approve(actor) },
	)
}

// RejectFile rejects one file of a file approval ticket
func (s *TicketService) RejectFile(ctx context.Context, ticketID, fileID valueobjects.Identifier, actor string) (*entities.TicketEntry, error) {
	return s.decideFile(ctx, ticketID, fileID, "reject file",
		(*entities.TicketEntry).RejectFile,
		func(f *entities.FileEntry) error { return f.Reject(actor) },
	)
}

func (s *TicketService) decideFile(
	ctx context.Context,
	ticketID, fileID valueobjects.Identifier,
	operation string,
	decideTicket func(*entities.TicketEntry, valueobjects.Identifier) error,
	decideFile func(*entities.FileEntry) error,
) (*entities.TicketEntry, error) {
	ticket, err := s.repo.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	file, err := s.repo.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if !file.ResourceIdentifier.Equals(ticket.ResourceIdentifier) {
		return nil, errors.NewValidationError("fileIdentifier", "file belongs to another resource")
	}

	if err := decideTicket(ticket, fileID); err != nil {
		return nil, err
	}
	if err := decideFile(file); err != nil {
		return nil, err
	}

	uow := s.repo.NewUnitOfWork()
	if err := uow.RegisterUpdate(ticket); err != nil {
		return nil, err
	}
	if err := uow.RegisterUpdate(file); err != nil {
		return nil, err
	}
	if err := s.commit(ctx, uow); err != nil {
		return nil, errors.Wrap(err, operation)
	}
	return ticket, nil
}

// mutate loads a ticket, applies change and writes it back when change
// reports a modification
func (s *TicketService) mutate(ctx context.Context, ticketID valueobjects.Identifier, operation string, change func(*entities.TicketEntry) (bool, error)) (*entities.TicketEntry, error) {
	ticket, err := s.repo.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	changed, err := change(ticket)
	if err != nil {
		return nil, err
	}
	if !changed {
		return ticket, nil
	}

	uow := s.repo.NewUnitOfWork()
	if err := uow.RegisterUpdate(ticket); err != nil {
		return nil, err
	}
	if err := s.commit(ctx, uow); err != nil {
		return nil, errors.Wrap(err, operation)
	}

	s.logger.Debug("Ticket updated",
		zap.String("ticketID", ticketID.String()),
		zap.String("operation", operation),
		zap.String("status", string(ticket.Status)),
	)
	return ticket, nil
}

// load returns the ticket together with its resource's aggregate
func (s *TicketService) load(ctx context.Context, ticketID valueobjects.Identifier) (*entities.TicketEntry, *aggregates.ResourceAggregate, error) {
	ticket, err := s.repo.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, nil, err
	}
	agg, err := s.repo.GetResourceAggregate(ctx, ticket.ResourceIdentifier)
	if err != nil {
		return nil, nil, err
	}
	return ticket, agg, nil
}
