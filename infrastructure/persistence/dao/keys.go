package dao

import (
	"fmt"

	"publication-backend/domain/core/entities"
	"publication-backend/domain/core/valueobjects"
	"publication-backend/infrastructure/persistence/store"
)

// GuardType is the type attribute of uniqueness guard records
const GuardType = "UniquenessEntry"

// resourceOrder places each entity kind inside a resource partition; the
// resource itself sorts first.
var resourceOrder = map[entities.EntityType]int{
	entities.EntityTypeResource:             0,
	entities.EntityTypeFileEntry:            1,
	entities.EntityTypeTicket:               2,
	entities.EntityTypePublicationChannel:   3,
	entities.EntityTypeResourceRelationship: 4,
}

// TypePartition is the primary partition of an entity type within a customer
func TypePartition(entityType entities.EntityType, customerID string) string {
	return fmt.Sprintf("%s:%s", entityType, customerID)
}

// EntityKey is the primary sort key and the GSI3 key of an entity
func EntityKey(entityType entities.EntityType, id valueobjects.Identifier) string {
	return fmt.Sprintf("%s:%s", entityType, id)
}

// PrimaryKey is where an entity's primary record lives
func PrimaryKey(entityType entities.EntityType, customerID string, id valueobjects.Identifier) store.Key {
	return store.Key{
		PartitionKey: TypePartition(entityType, customerID),
		SortKey:      EntityKey(entityType, id),
	}
}

// OwnerPartition is the GSI1 partition of one owner within a customer
func OwnerPartition(customerID, owner string) string {
	return fmt.Sprintf("Customer:%s:Owner:%s", customerID, owner)
}

// ResourcePartition is the GSI2 partition holding every record of one resource
func ResourcePartition(customerID string, resourceID valueobjects.Identifier) string {
	return fmt.Sprintf("Customer:%s:Resource:%s", customerID, resourceID)
}

// ResourceSortPrefix narrows a resource partition query to one entity type
func ResourceSortPrefix(entityType entities.EntityType) string {
	return fmt.Sprintf("%d:%s:", resourceOrder[entityType], entityType)
}

// ResourceSortKey is the GSI2 sort key of an entity
func ResourceSortKey(entityType entities.EntityType, id valueobjects.Identifier) string {
	return ResourceSortPrefix(entityType) + id.String()
}

// ResourceGuardKey makes a resource identifier globally unique
func ResourceGuardKey(id valueobjects.Identifier) store.Key {
	return guardKey(fmt.Sprintf("%s:Resource:%s", GuardType, id))
}

// ImportGuardKey makes an imported source record land at most once
func ImportGuardKey(source entities.ImportSource) store.Key {
	return guardKey(fmt.Sprintf("%s:Import:%s:%s", GuardType, source.Source, source.SourceIdentifier))
}

// TicketGuardKey exists while a ticket of the variant is active for the resource
func TicketGuardKey(ticketType entities.TicketType, resourceID valueobjects.Identifier) store.Key {
	return guardKey(fmt.Sprintf("%s:Ticket:%s:%s", GuardType, ticketType, resourceID))
}

// relationshipMirrorKey places a copy of a relationship under the parent
func relationshipMirrorKey(r *entities.ResourceRelationship) store.Key {
	return store.Key{
		PartitionKey: TypePartition(entities.EntityTypeResourceRelationship, r.CustomerID),
		SortKey: fmt.Sprintf("%s:Parent:%s",
			EntityKey(entities.EntityTypeResourceRelationship, r.ChildIdentifier), r.ParentIdentifier),
	}
}

func guardKey(k string) store.Key {
	return store.Key{PartitionKey: k, SortKey: k}
}
