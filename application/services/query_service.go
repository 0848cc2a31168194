package services

import (
	"context"

	"publication-backend/application/ports"
	"publication-backend/domain/core/aggregates"
	"publication-backend/domain/core/entities"
	"publication-backend/domain/core/valueobjects"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ResourceExport is the bulk read handed to reporting consumers
type ResourceExport struct {
	Resource      *entities.Resource               `json:"resource"`
	Files         []*entities.FileEntry            `json:"files"`
	Tickets       []*entities.TicketEntry          `json:"tickets"`
	Channels      []*entities.PublicationChannel   `json:"publicationChannels,omitempty"`
	Relationships []*entities.ResourceRelationship `json:"relationships,omitempty"`
}

// QueryService serves the read paths
type QueryService struct {
	repo   ports.PublicationRepository
	logger *zap.Logger
}

// NewQueryService creates a new query service
func NewQueryService(repo ports.PublicationRepository, logger *zap.Logger) *QueryService {
	return &QueryService{repo: repo, logger: logger}
}

// GetResource returns the resource with its files merged into its artifacts
func (s *QueryService) GetResource(ctx context.Context, resourceID valueobjects.Identifier) (*entities.Resource, error) {
	agg, err := s.repo.GetResourceAggregate(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	return agg.Resource, nil
}

func (s *QueryService) GetAggregate(ctx context.Context, resourceID valueobjects.Identifier) (*aggregates.ResourceAggregate, error) {
	return s.repo.GetResourceAggregate(ctx, resourceID)
}

func (s *QueryService) GetTicket(ctx context.Context, ticketID valueobjects.Identifier) (*entities.TicketEntry, error) {
	return s.repo.GetTicket(ctx, ticketID)
}

func (s *QueryService) ListTickets(ctx context.Context, resourceID valueobjects.Identifier, includeRemoved bool) ([]*entities.TicketEntry, error) {
	return s.repo.ListAllTicketsForResource(ctx, resourceID, includeRemoved)
}

func (s *QueryService) ListByOwner(ctx context.Context, customerID, owner string) ([]entities.EntitySummary, error) {
	return s.repo.ListByOwner(ctx, customerID, owner)
}

func (s *QueryService) ListResources(ctx context.Context, customerID string, limit int) ([]*entities.Resource, error) {
	return s.repo.ListResourcesByCustomer(ctx, customerID, limit)
}

// Export reads the aggregate and the full ticket history concurrently
func (s *QueryService) Export(ctx context.Context, resourceID valueobjects.Identifier) (*ResourceExport, error) {
	var agg *aggregates.ResourceAggregate
	var tickets []*entities.TicketEntry

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		agg, err = s.repo.GetResourceAggregate(gctx, resourceID)
		return err
	})
	g.Go(func() error {
		var err error
		tickets, err = s.repo.ListAllTicketsForResource(gctx, resourceID, true)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logger.Debug("Resource exported",
		zap.String("resourceID", resourceID.String()),
		zap.Int("files", len(agg.Files)),
		zap.Int("tickets", len(tickets)),
	)
	return &ResourceExport{
		Resource:      agg.Resource,
		Files:         agg.ActiveFiles(),
		Tickets:       tickets,
		Channels:      agg.Channels,
		Relationships: agg.Relationships,
	}, nil
}
