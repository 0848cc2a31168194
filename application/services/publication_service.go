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

// PublishOutcome reports what a publish request did. Ticket is set when
// pending files routed the request to curator approval.
type PublishOutcome struct {
	Resource *entities.Resource
	Ticket   *entities.TicketEntry
}

// PublicationService drives the resource lifecycle. Every operation reads
// what it needs, applies the domain transitions in memory and writes all
// touched records in a single unit of work.
type PublicationService struct {
	repo     ports.PublicationRepository
	channels ports.ChannelClaimResolver
	config   *config.DomainConfig
	logger   *zap.Logger
	committer
}

// NewPublicationService creates a new publication service
func NewPublicationService(
	repo ports.PublicationRepository,
	channels ports.ChannelClaimResolver,
	publisher ports.EventPublisher,
	cfg *config.DomainConfig,
	metrics *observability.Collector,
	logger *zap.Logger,
) *PublicationService {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &PublicationService{
		repo:      repo,
		channels:  channels,
		config:    cfg,
		logger:    logger,
		committer: committer{publisher: publisher, metrics: metrics, logger: logger},
	}
}

// CreateResource persists a new draft owned by user
func (s *PublicationService) CreateResource(ctx context.Context, user valueobjects.UserInstance, description entities.EntityDescription) (*entities.Resource, error) {
	resource, err := entities.NewResource(user, description)
	if err != nil {
		return nil, err
	}

	uow := s.repo.NewUnitOfWork()
	if err := uow.RegisterInsert(resource); err != nil {
		return nil, err
	}
	if err := s.commit(ctx, uow); err != nil {
		return nil, errors.Wrap(err, "create resource")
	}

	s.logger.Info("Resource created",
		zap.String("resourceID", resource.Identifier.String()),
		zap.String("customerID", resource.Customer()),
	)
	return resource, nil
}

// ImportResource persists a fully formed resource from an external source.
// Importing the same source record twice fails with a conflict.
func (s *PublicationService) ImportResource(ctx context.Context, resource *entities.Resource, source entities.ImportSource, actor string) (*entities.Resource, error) {
	imported, err := entities.NewImportedResource(resource, source, actor)
	if err != nil {
		return nil, err
	}

	uow := s.repo.NewUnitOfWork()
	if err := uow.RegisterInsert(imported); err != nil {
		return nil, err
	}
	if err := s.commit(ctx, uow); err != nil {
		return nil, errors.Wrap(err, "import resource")
	}

	s.logger.Info("Resource imported",
		zap.String("resourceID", imported.Identifier.String()),
		zap.String("source", source.Source),
		zap.String("sourceIdentifier", source.SourceIdentifier),
	)
	return imported, nil
}

// UpdateMetadata replaces the descriptive metadata of a resource
func (s *PublicationService) UpdateMetadata(ctx context.Context, resourceID valueobjects.Identifier, description entities.EntityDescription) (*entities.Resource, error) {
	resource, err := s.repo.GetResource(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	if err := resource.UpdateMetadata(description); err != nil {
		return nil, err
	}
	if err := s.writeUpdates(ctx, "update metadata", resource); err != nil {
		return nil, err
	}
	return resource, nil
}

// AttachFile adds an uploaded file to a resource
func (s *PublicationService) AttachFile(ctx context.Context, user valueobjects.UserInstance, resourceID valueobjects.Identifier, file entities.File) (*entities.FileEntry, error) {
	resource, err := s.repo.GetResource(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	if resource.Status.IsRemovedOrPendingRemoval() {
		return nil, errors.NewIllegalTransitionError("resource", string(resource.Status), string(resource.Status)).
			WithDetail("field", "associatedArtifacts")
	}

	entry, err := entities.NewFileEntry(file, resource, user)
	if err != nil {
		return nil, err
	}

	uow := s.repo.NewUnitOfWork()
	if err := uow.RegisterInsert(entry); err != nil {
		return nil, err
	}
	if err := s.commit(ctx, uow); err != nil {
		return nil, errors.Wrap(err, "attach file")
	}
	return entry, nil
}

// RemoveFile soft-deletes a file. The record stays readable by identifier.
func (s *PublicationService) RemoveFile(ctx context.Context, fileID valueobjects.Identifier, actor string) (*entities.FileEntry, error) {
	entry, err := s.repo.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if entry.IsSoftDeleted() {
		return entry, nil
	}
	if err := entry.SoftDelete(actor); err != nil {
		return nil, err
	}
	if err := s.writeUpdates(ctx, "remove file", entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Publish publishes a resource on behalf of user. Without pending files the
// resource goes straight to PUBLISHED. With pending files a file approval
// ticket is opened and the customer's publishing workflow decides how far
// the resource itself moves.
func (s *PublicationService) Publish(ctx context.Context, user valueobjects.UserInstance, resourceID valueobjects.Identifier) (*PublishOutcome, error) {
	agg, err := s.repo.GetResourceAggregate(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	resource := agg.Resource
	if resource.Status == entities.ResourceStatusPublished {
		return &PublishOutcome{Resource: resource}, nil
	}

	pending := agg.PendingFiles()
	if len(pending) == 0 {
		if err := resource.Publish(user.Username); err != nil {
			return nil, err
		}
		if err := s.writeUpdates(ctx, "publish", resource); err != nil {
			return nil, err
		}
		s.logger.Info("Resource published", zap.String("resourceID", resourceID.String()))
		return &PublishOutcome{Resource: resource}, nil
	}

	return s.publishWithPendingFiles(ctx, user, agg, pending)
}

func (s *PublicationService) publishWithPendingFiles(ctx context.Context, user valueobjects.UserInstance, agg *aggregates.ResourceAggregate, pending []*entities.FileEntry) (*PublishOutcome, error) {
	resource := agg.Resource
	if err := resource.CanPublish(); err != nil {
		return nil, err
	}
	ticketType := entities.TicketTypePublishingRequest
	if resource.IsDegree(s.config) {
		ticketType = entities.TicketTypeFilesApprovalThesis
	}
	if existing, ok := agg.ActiveTicket(ticketType); ok {
		return nil, errors.NewConflictError(fmt.Sprintf("%s %s is already open for resource", ticketType, existing.Identifier)).
			WithDetail("ticketIdentifier", existing.Identifier.String())
	}

	claim := s.resolveClaim(ctx, resource)
	receivingOrganization := user.TopLevelOrgID
	if claim != nil && claim.CustomerID != resource.Customer() && claim.OrganizationID != "" {
		receivingOrganization = claim.OrganizationID
	}

	workflow := user.PublishingWorkflow
	if !workflow.IsValid() {
		workflow = s.config.DefaultPublishingWorkflow
	}

	var ticket *entities.TicketEntry
	var err error
	if ticketType == entities.TicketTypeFilesApprovalThesis {
		ticket, err = entities.NewFilesApprovalThesis(resource, user, pending, receivingOrganization, "")
	} else {
		ticket, err = entities.NewPublishingRequest(resource, user, workflow, pending, receivingOrganization)
	}
	if err != nil {
		return nil, err
	}

	uow := s.repo.NewUnitOfWork()
	resourceChanged := false

	switch workflow {
	case valueobjects.WorkflowMetadataOnly:
		if resource.Status == entities.ResourceStatusDraft {
			if err := resource.PublishMetadata(user.Username); err != nil {
				return nil, err
			}
			resourceChanged = true
		}
	case valueobjects.WorkflowMetadataAndFiles:
		for _, file := range pending {
			if err := file.Approve(user.Username); err != nil {
				return nil, err
			}
			if err := uow.RegisterUpdate(file); err != nil {
				return nil, err
			}
		}
		if err := resource.Publish(user.Username); err != nil {
			return nil, err
		}
		resourceChanged = true
		if err := completeTicket(ticket, resource, user.Username); err != nil {
			return nil, err
		}
	}

	if resourceChanged {
		if err := uow.RegisterUpdate(resource); err != nil {
			return nil, err
		}
	}
	if err := uow.RegisterInsert(ticket); err != nil {
		return nil, err
	}
	if claim != nil && !agg.HasChannel(claim.ChannelIdentifier) {
		_, channelType, _ := resource.Channel()
		channel, err := entities.NewPublicationChannel(resource, claim.ChannelIdentifier, channelType, claim.CustomerID, claim.OrganizationID)
		if err != nil {
			return nil, err
		}
		if err := uow.RegisterInsert(channel); err != nil {
			return nil, err
		}
	}

	if err := s.commit(ctx, uow); err != nil {
		return nil, errors.Wrap(err, "publish with pending files")
	}

	s.logger.Info("Publish routed to file approval",
		zap.String("resourceID", resource.Identifier.String()),
		zap.String("ticketID", ticket.Identifier.String()),
		zap.String("ticketType", string(ticket.Type)),
		zap.String("workflow", string(workflow)),
		zap.String("resourceStatus", string(resource.Status)),
	)
	return &PublishOutcome{Resource: resource, Ticket: ticket}, nil
}

// resolveClaim looks up the claim on the resource's channel. Lookup
// failures are logged and treated as unclaimed so the requesting tenant's
// own workflow applies.
func (s *PublicationService) resolveClaim(ctx context.Context, resource *entities.Resource) *ports.ChannelClaim {
	channelID, _, ok := resource.Channel()
	if !ok || s.channels == nil {
		return nil
	}

	lookupCtx := ctx
	if s.config.ChannelLookupTimeout > 0 {
		var cancel context.CancelFunc
		lookupCtx, cancel = context.WithTimeout(ctx, s.config.ChannelLookupTimeout)
		defer cancel()
	}

	claim, err := s.channels.ResolveClaim(lookupCtx, channelID)
	if err != nil {
		s.logger.Warn("Channel claim lookup failed, falling back to requesting customer",
			zap.String("resourceID", resource.Identifier.String()),
			zap.String("channel", channelID),
			zap.Error(err),
		)
		return nil
	}
	if claim != nil && claim.ChannelIdentifier == "" {
		claim.ChannelIdentifier = channelID
	}
	return claim
}

// Republish restores an unpublished resource
func (s *PublicationService) Republish(ctx context.Context, resourceID valueobjects.Identifier, actor string) (*entities.Resource, error) {
	resource, err := s.repo.GetResource(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	if err := resource.Republish(actor); err != nil {
		return nil, err
	}
	if err := s.writeUpdates(ctx, "republish", resource); err != nil {
		return nil, err
	}
	return resource, nil
}

// Unpublish withdraws a published resource. The withdrawal is recorded as a
// completed UnpublishRequest in the same transaction: an open request is
// completed, otherwise one is created already completed.
func (s *PublicationService) Unpublish(ctx context.Context, user valueobjects.UserInstance, resourceID valueobjects.Identifier, comment string) (*entities.Resource, error) {
	agg, err := s.repo.GetResourceAggregate(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	resource := agg.Resource
	if resource.Status != entities.ResourceStatusPublished {
		return nil, errors.NewIllegalTransitionError("resource", string(resource.Status), string(entities.ResourceStatusUnpublished))
	}

	uow := s.repo.NewUnitOfWork()
	ticket, existing := agg.ActiveTicket(entities.TicketTypeUnpublishRequest)
	if !existing {
		ticket, err = entities.NewUnpublishRequest(resource, user, comment)
		if err != nil {
			return nil, err
		}
	}
	if err := completeTicket(ticket, resource, user.Username); err != nil {
		return nil, err
	}
	if err := resource.Unpublish(user.Username, unpublishComment(ticket, comment)); err != nil {
		return nil, err
	}

	if err := uow.RegisterUpdate(resource); err != nil {
		return nil, err
	}
	if existing {
		err = uow.RegisterUpdate(ticket)
	} else {
		err = uow.RegisterInsert(ticket)
	}
	if err != nil {
		return nil, err
	}
	if err := s.commit(ctx, uow); err != nil {
		return nil, errors.Wrap(err, "unpublish")
	}

	s.logger.Info("Resource unpublished",
		zap.String("resourceID", resourceID.String()),
		zap.String("ticketID", ticket.Identifier.String()),
	)
	return resource, nil
}

func unpublishComment(ticket *entities.TicketEntry, comment string) string {
	if comment == "" && ticket.Unpublish != nil {
		return ticket.Unpublish.Comment
	}
	return comment
}

// Delete soft-deletes a resource and retires its active tickets
func (s *PublicationService) Delete(ctx context.Context, resourceID valueobjects.Identifier, actor string) (*entities.Resource, error) {
	return s.retire(ctx, resourceID, actor, "delete", (*entities.Resource).Delete)
}

// MarkForDeletion parks a resource awaiting deletion and retires its active tickets
func (s *PublicationService) MarkForDeletion(ctx context.Context, resourceID valueobjects.Identifier, actor string) (*entities.Resource, error) {
	return s.retire(ctx, resourceID, actor, "mark for deletion", (*entities.Resource).MarkForDeletion)
}

func (s *PublicationService) retire(ctx context.Context, resourceID valueobjects.Identifier, actor, operation string, transition func(*entities.Resource, string) error) (*entities.Resource, error) {
	agg, err := s.repo.GetResourceAggregate(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	resource := agg.Resource
	before := resource.Status
	if err := transition(resource, actor); err != nil {
		return nil, err
	}
	if resource.Status == before {
		return resource, nil
	}

	uow := s.repo.NewUnitOfWork()
	if err := uow.RegisterUpdate(resource); err != nil {
		return nil, err
	}
	for _, ticket := range agg.ActiveTickets() {
		if err := retireTicket(ticket, actor); err != nil {
			return nil, err
		}
		if err := uow.RegisterUpdate(ticket); err != nil {
			return nil, err
		}
	}
	if err := s.commit(ctx, uow); err != nil {
		return nil, errors.Wrap(err, operation)
	}

	s.logger.Info("Resource retired",
		zap.String("resourceID", resourceID.String()),
		zap.String("status", string(resource.Status)),
	)
	return resource, nil
}

// completeTicket finalizes a ticket, picking it up first when still NEW
func completeTicket(ticket *entities.TicketEntry, resource *entities.Resource, actor string) error {
	if ticket.Status == entities.TicketStatusNew {
		if err := ticket.MarkPending(actor); err != nil {
			return err
		}
	}
	return ticket.Complete(resource, actor)
}

// retireTicket withdraws a ticket nobody picked up and closes one in progress
func retireTicket(ticket *entities.TicketEntry, actor string) error {
	if ticket.Status == entities.TicketStatusNew {
		return ticket.Remove(actor)
	}
	return ticket.Close(actor)
}

// LinkToParent records child as part of parent. A child has at most one parent.
func (s *PublicationService) LinkToParent(ctx context.Context, parentID, childID valueobjects.Identifier, role entities.RelationshipRole) (*entities.ResourceRelationship, error) {
	parent, err := s.repo.GetResource(ctx, parentID)
	if err != nil {
		return nil, err
	}
	child, err := s.repo.GetResource(ctx, childID)
	if err != nil {
		return nil, err
	}

	link, err := entities.NewResourceRelationship(parent, child, role)
	if err != nil {
		return nil, err
	}

	uow := s.repo.NewUnitOfWork()
	if err := uow.RegisterInsert(link); err != nil {
		return nil, err
	}
	if err := s.commit(ctx, uow); err != nil {
		return nil, errors.Wrap(err, "link to parent")
	}
	return link, nil
}

func (s *PublicationService) writeUpdates(ctx context.Context, operation string, items ...entities.Entity) error {
	uow := s.repo.NewUnitOfWork()
	for _, item := range items {
		if err := uow.RegisterUpdate(item); err != nil {
			return err
		}
	}
	if err := s.commit(ctx, uow); err != nil {
		return errors.Wrap(err, operation)
	}
	return nil
}
