// Package repository is the persistence engine of the publication domain:
// entity writes grouped into units of work, and the reads that rebuild
// entities, aggregates and owner listings from the single table.
package repository

import (
	"context"
	"fmt"

	"publication-backend/application/ports"
	"publication-backend/domain/core/aggregates"
	"publication-backend/domain/core/entities"
	"publication-backend/domain/core/valueobjects"
	"publication-backend/infrastructure/persistence/dao"
	"publication-backend/infrastructure/persistence/store"
	pkgerrors "publication-backend/pkg/errors"

	"go.uber.org/zap"
)

// Repository reads and writes publication entities on a store.Store
type Repository struct {
	store    store.Store
	maxItems int
	logger   *zap.Logger
}

// NewRepository creates a repository. maxItems bounds every unit of work it
// hands out; zero means the store ceiling.
func NewRepository(s store.Store, maxItems int, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{
		store:    s,
		maxItems: maxItems,
		logger:   logger,
	}
}

var _ ports.PublicationRepository = (*Repository)(nil)

// NewUnitOfWork starts a write transaction
func (r *Repository) NewUnitOfWork() ports.UnitOfWork {
	return NewUnitOfWork(r.store, r.maxItems, r.logger)
}

// FindByIdentifier locates an entity by type and identifier alone. The
// identifier index yields the primary key, which is then read consistently.
func (r *Repository) FindByIdentifier(ctx context.Context, entityType entities.EntityType, id valueobjects.Identifier) (entities.Entity, bool, error) {
	records, err := r.store.Query(ctx, store.Query{
		Index:        store.IndexByTypeAndIdentifier,
		PartitionKey: dao.EntityKey(entityType, id),
		Limit:        1,
	})
	if err != nil {
		return nil, false, err
	}
	if len(records) == 0 {
		return nil, false, nil
	}

	record, ok, err := r.store.Get(ctx, records[0].Key())
	if err != nil || !ok {
		return nil, false, err
	}
	entity, ok, err := dao.FromRecord(record)
	if err != nil || !ok {
		return nil, false, err
	}
	return entity, true, nil
}

// GetResource returns the resource or a NotFound error
func (r *Repository) GetResource(ctx context.Context, id valueobjects.Identifier) (*entities.Resource, error) {
	entity, err := r.get(ctx, entities.EntityTypeResource, id)
	if err != nil {
		return nil, err
	}
	return entity.(*entities.Resource), nil
}

// GetTicket returns the ticket or a NotFound error
func (r *Repository) GetTicket(ctx context.Context, id valueobjects.Identifier) (*entities.TicketEntry, error) {
	entity, err := r.get(ctx, entities.EntityTypeTicket, id)
	if err != nil {
		return nil, err
	}
	return entity.(*entities.TicketEntry), nil
}

// GetFile returns the file entry, soft-deleted or not, or a NotFound error
func (r *Repository) GetFile(ctx context.Context, id valueobjects.Identifier) (*entities.FileEntry, error) {
	entity, err := r.get(ctx, entities.EntityTypeFileEntry, id)
	if err != nil {
		return nil, err
	}
	return entity.(*entities.FileEntry), nil
}

func (r *Repository) get(ctx context.Context, entityType entities.EntityType, id valueobjects.Identifier) (entities.Entity, error) {
	entity, ok, err := r.FindByIdentifier(ctx, entityType, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, pkgerrors.NewNotFoundError(fmt.Sprintf("%s %s", entityType, id)).
			WithDetail("identifier", id.String())
	}
	return entity, nil
}

// ListByOwner summarizes what owner holds within customerID. Deleted
// resources and files and removed tickets are left out. Only record
// attributes are read.
func (r *Repository) ListByOwner(ctx context.Context, customerID, owner string) ([]entities.EntitySummary, error) {
	records, err := r.store.Query(ctx, store.Query{
		Index:        store.IndexByCustomerOwner,
		PartitionKey: dao.OwnerPartition(customerID, owner),
	})
	if err != nil {
		return nil, err
	}

	summaries := make([]entities.EntitySummary, 0, len(records))
	for _, record := range records {
		if dao.IsGuard(record) {
			continue
		}
		summary, err := dao.SummaryOf(record)
		if err != nil {
			return nil, err
		}
		if hiddenFromOwner(summary) {
			continue
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func hiddenFromOwner(s entities.EntitySummary) bool {
	switch entities.EntityType(s.EntityType) {
	case entities.EntityTypeResource:
		return s.Status == string(entities.ResourceStatusDeleted)
	case entities.EntityTypeFileEntry:
		return s.Status == entities.FileEntryDeletedStatus
	case entities.EntityTypeTicket:
		return s.Status == string(entities.TicketStatusRemoved)
	}
	return false
}

// GetResourceAggregate reads the resource partition and folds it into the
// resource together with its files, tickets, channels and relationships
func (r *Repository) GetResourceAggregate(ctx context.Context, resourceID valueobjects.Identifier) (*aggregates.ResourceAggregate, error) {
	resource, err := r.GetResource(ctx, resourceID)
	if err != nil {
		return nil, err
	}

	items, err := r.resourcePartition(ctx, resource.Customer(), resourceID, "")
	if err != nil {
		return nil, err
	}
	// The partition index may lag the consistent read; the latter wins
	folded := make([]entities.Entity, 0, len(items)+1)
	for _, item := range items {
		if existing, ok := item.(*entities.Resource); ok && existing.Identifier == resource.Identifier {
			continue
		}
		folded = append(folded, item)
	}
	folded = append(folded, resource)

	aggregate, err := aggregates.Fold(folded)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("Resource aggregate loaded",
		zap.String("resourceID", resourceID.String()),
		zap.Int("files", len(aggregate.Files)),
		zap.Int("tickets", len(aggregate.Tickets)))
	return aggregate, nil
}

// ListAllTicketsForResource returns the tickets of a resource ordered by
// identifier. Removed tickets are included only on request.
func (r *Repository) ListAllTicketsForResource(ctx context.Context, resourceID valueobjects.Identifier, includeRemoved bool) ([]*entities.TicketEntry, error) {
	resource, err := r.GetResource(ctx, resourceID)
	if err != nil {
		return nil, err
	}

	items, err := r.resourcePartition(ctx, resource.Customer(), resourceID, entities.EntityTypeTicket)
	if err != nil {
		return nil, err
	}

	tickets := make([]*entities.TicketEntry, 0, len(items))
	for _, item := range items {
		ticket, ok := item.(*entities.TicketEntry)
		if !ok || (!includeRemoved && ticket.Status == entities.TicketStatusRemoved) {
			continue
		}
		tickets = append(tickets, ticket)
	}
	return tickets, nil
}

// ListResourcesByCustomer returns the customer's resources newest first.
// limit <= 0 reads the whole partition.
func (r *Repository) ListResourcesByCustomer(ctx context.Context, customerID string, limit int) ([]*entities.Resource, error) {
	records, err := r.store.Query(ctx, store.Query{
		PartitionKey:  dao.TypePartition(entities.EntityTypeResource, customerID),
		SortKeyPrefix: string(entities.EntityTypeResource) + ":",
		Descending:    true,
		Limit:         limit,
	})
	if err != nil {
		return nil, err
	}

	items, err := dao.FromRecords(records)
	if err != nil {
		return nil, err
	}
	resources := make([]*entities.Resource, 0, len(items))
	for _, item := range items {
		if resource, ok := item.(*entities.Resource); ok {
			resources = append(resources, resource)
		}
	}
	return resources, nil
}

// resourcePartition reads one resource's index partition, optionally
// narrowed to one entity type
func (r *Repository) resourcePartition(ctx context.Context, customerID string, resourceID valueobjects.Identifier, entityType entities.EntityType) ([]entities.Entity, error) {
	q := store.Query{
		Index:        store.IndexByCustomerResource,
		PartitionKey: dao.ResourcePartition(customerID, resourceID),
	}
	if entityType != "" {
		q.SortKeyPrefix = dao.ResourceSortPrefix(entityType)
	}

	records, err := r.store.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	return dao.FromRecords(records)
}
