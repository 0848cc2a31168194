package ports

import (
	"context"

	"publication-backend/domain/core/aggregates"
	"publication-backend/domain/core/entities"
	"publication-backend/domain/core/valueobjects"
	"publication-backend/domain/events"
)

// UnitOfWork groups entity writes into one atomic store transaction
// This is a port in hexagonal architecture - the domain doesn't know about the implementation
type UnitOfWork interface {
	// RegisterInsert adds the first persistence of an entity
	RegisterInsert(entity entities.Entity) error

	// RegisterUpdate adds a replacement conditioned on the entity's current version
	RegisterUpdate(entity entities.Entity) error

	// Len is the number of store operations registered
	Len() int

	// Commit writes everything or nothing
	Commit(ctx context.Context) error

	// CommittedEvents lists the domain events of a successful commit
	CommittedEvents() []events.DomainEvent
}

// PublicationRepository reads publication entities and opens units of work
type PublicationRepository interface {
	// NewUnitOfWork starts a write transaction
	NewUnitOfWork() UnitOfWork

	// FindByIdentifier locates an entity by type and identifier; absence is not an error
	FindByIdentifier(ctx context.Context, entityType entities.EntityType, id valueobjects.Identifier) (entities.Entity, bool, error)

	// GetResource, GetTicket and GetFile report absence as NotFound
	GetResource(ctx context.Context, id valueobjects.Identifier) (*entities.Resource, error)
	GetTicket(ctx context.Context, id valueobjects.Identifier) (*entities.TicketEntry, error)
	GetFile(ctx context.Context, id valueobjects.Identifier) (*entities.FileEntry, error)

	// ListByOwner summarizes an owner's entities, hiding deleted and removed ones
	ListByOwner(ctx context.Context, customerID, owner string) ([]entities.EntitySummary, error)

	// GetResourceAggregate rebuilds a resource with everything in its partition
	GetResourceAggregate(ctx context.Context, resourceID valueobjects.Identifier) (*aggregates.ResourceAggregate, error)

	// ListAllTicketsForResource lists tickets, removed ones only on request
	ListAllTicketsForResource(ctx context.Context, resourceID valueobjects.Identifier, includeRemoved bool) ([]*entities.TicketEntry, error)

	// ListResourcesByCustomer lists a customer's resources newest first
	ListResourcesByCustomer(ctx context.Context, customerID string, limit int) ([]*entities.Resource, error)
}
