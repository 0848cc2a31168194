// Package dao maps entities to the physical records of the single table and
// back. Mapping is deterministic and free of side effects; version tokens
// are supplied by the caller.
package dao

import (
	"fmt"
	"strings"
	"time"

	"publication-backend/domain/core/entities"
	"publication-backend/domain/core/valueobjects"
	"publication-backend/infrastructure/persistence/store"
	pkgerrors "publication-backend/pkg/errors"
)

// RecordSet is the physical representation of one entity write
type RecordSet struct {
	// Primary carries the entity payload and its index projections
	Primary store.Record
	// Mirrors are payload copies placed in other partitions
	Mirrors []store.Record
	// Guards are uniqueness records planted with the write
	Guards []store.Record
	// ReleasedGuards are uniqueness records removed with the write
	ReleasedGuards []store.Key
}

// Records lists every record the set puts
func (s RecordSet) Records() []store.Record {
	out := make([]store.Record, 0, 1+len(s.Mirrors)+len(s.Guards))
	out = append(out, s.Primary)
	out = append(out, s.Mirrors...)
	return append(out, s.Guards...)
}

// ToRecords maps entity to its records as stored under version. inserting
// selects the guards planted on first persistence; otherwise the guards an
// update releases are reported.
func ToRecords(entity entities.Entity, version valueobjects.RowVersion, inserting bool) (RecordSet, error) {
	primary, err := primaryRecord(entity, version)
	if err != nil {
		return RecordSet{}, err
	}
	set := RecordSet{Primary: primary}

	switch e := entity.(type) {
	case *entities.Resource:
		if inserting {
			set.Guards = append(set.Guards, guardRecord(ResourceGuardKey(e.Identifier)))
			for _, detail := range e.ImportDetails {
				set.Guards = append(set.Guards, guardRecord(ImportGuardKey(detail.ImportSource)))
			}
		}
	case *entities.TicketEntry:
		if inserting && e.HoldsGuard() {
			set.Guards = append(set.Guards, guardRecord(TicketGuardKey(e.Type, e.ResourceIdentifier)))
		}
		if !inserting && e.ReleasesGuard() {
			set.ReleasedGuards = append(set.ReleasedGuards, TicketGuardKey(e.Type, e.ResourceIdentifier))
		}
	case *entities.ResourceRelationship:
		mirror := primary
		mirrorKey := relationshipMirrorKey(e)
		mirror.PK0, mirror.SK0 = mirrorKey.PartitionKey, mirrorKey.SortKey
		mirror.PK2 = ResourcePartition(e.CustomerID, e.ParentIdentifier)
		mirror.PK3, mirror.SK3 = "", ""
		set.Mirrors = append(set.Mirrors, mirror)
	}
	return set, nil
}

func primaryRecord(entity entities.Entity, version valueobjects.RowVersion) (store.Record, error) {
	var payload interface{} = entity
	if resource, ok := entity.(*entities.Resource); ok {
		// files are stored as FileEntry records and merged back on read
		inline := *resource
		inline.AssociatedArtifacts = resource.NonFileArtifacts()
		payload = &inline
	}
	data, err := EncodePayload(payload)
	if err != nil {
		return store.Record{}, pkgerrors.NewInternalError("encode entity payload").WithCause(err)
	}

	entityType := entity.EntityType()
	key := PrimaryKey(entityType, entity.Customer(), entity.ID())
	identifierKey := EntityKey(entityType, entity.ID())

	record := store.Record{
		PK0:          key.PartitionKey,
		SK0:          key.SortKey,
		PK2:          ResourcePartition(entity.Customer(), entity.ResourceID()),
		SK2:          ResourceSortKey(entityType, entity.ID()),
		PK3:          identifierKey,
		SK3:          identifierKey,
		Type:         recordType(entity),
		Version:      version.String(),
		Status:       entity.StatusName(),
		ModifiedDate: entity.Modified().UTC().Format(time.RFC3339Nano),
		Data:         data,
	}
	if owner := entity.OwnerName(); owner != "" {
		record.PK1 = OwnerPartition(entity.Customer(), owner)
		record.SK1 = identifierKey
	}
	return record, nil
}

// recordType is the type attribute; tickets are tagged with their variant
func recordType(entity entities.Entity) string {
	if ticket, ok := entity.(*entities.TicketEntry); ok {
		return string(ticket.Type)
	}
	return string(entity.EntityType())
}

func guardRecord(key store.Key) store.Record {
	return store.Record{PK0: key.PartitionKey, SK0: key.SortKey, Type: GuardType}
}

// IsGuard reports whether r is a uniqueness guard
func IsGuard(r store.Record) bool {
	return r.Type == GuardType
}

// EntityTypeOf returns the entity type a record type attribute denotes
func EntityTypeOf(recordType string) (entities.EntityType, bool) {
	switch entities.EntityType(recordType) {
	case entities.EntityTypeResource, entities.EntityTypeFileEntry,
		entities.EntityTypePublicationChannel, entities.EntityTypeResourceRelationship:
		return entities.EntityType(recordType), true
	}
	if entities.TicketType(recordType).IsValid() {
		return entities.EntityTypeTicket, true
	}
	return "", false
}

// FromRecord rebuilds the entity stored in r. Guard records yield (nil, false, nil).
func FromRecord(r store.Record) (entities.Entity, bool, error) {
	if IsGuard(r) {
		return nil, false, nil
	}
	entityType, ok := EntityTypeOf(r.Type)
	if !ok {
		return nil, false, pkgerrors.NewInternalError(fmt.Sprintf("unknown record type %q at %s", r.Type, r.SK0))
	}

	var entity entities.Entity
	switch entityType {
	case entities.EntityTypeResource:
		entity = &entities.Resource{}
	case entities.EntityTypeFileEntry:
		entity = &entities.FileEntry{}
	case entities.EntityTypeTicket:
		entity = &entities.TicketEntry{}
	case entities.EntityTypePublicationChannel:
		entity = &entities.PublicationChannel{}
	case entities.EntityTypeResourceRelationship:
		entity = &entities.ResourceRelationship{}
	}

	if err := DecodePayload(r.Data, entity); err != nil {
		return nil, false, pkgerrors.NewInternalError("decode record " + r.SK0).WithCause(err)
	}
	entity.SetVersion(valueobjects.RowVersion(r.Version))

	if ticket, ok := entity.(*entities.TicketEntry); ok {
		if string(ticket.Type) != r.Type {
			return nil, false, pkgerrors.NewInternalError(
				fmt.Sprintf("ticket %s payload type %s does not match record type %s", ticket.Identifier, ticket.Type, r.Type))
		}
		ticket.SyncStoredStatus()
	}
	return entity, true, nil
}

// FromRecords rebuilds every entity in records in input order, skipping guards
func FromRecords(records []store.Record) ([]entities.Entity, error) {
	out := make([]entities.Entity, 0, len(records))
	for _, r := range records {
		entity, ok, err := FromRecord(r)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, entity)
		}
	}
	return out, nil
}

// SummaryOf builds a summary from record attributes without decoding the payload
func SummaryOf(r store.Record) (entities.EntitySummary, error) {
	entityType, ok := EntityTypeOf(r.Type)
	if !ok {
		return entities.EntitySummary{}, pkgerrors.NewInternalError(fmt.Sprintf("unknown record type %q", r.Type))
	}
	modified, err := time.Parse(time.RFC3339Nano, r.ModifiedDate)
	if err != nil {
		return entities.EntitySummary{}, pkgerrors.NewInternalError("parse modified date of " + r.SK0).WithCause(err)
	}
	return entities.EntitySummary{
		Identifier:   strings.TrimPrefix(r.SK0, string(entityType)+":"),
		EntityType:   string(entityType),
		Type:         r.Type,
		Status:       r.Status,
		ModifiedDate: modified,
	}, nil
}
