package entities

import (
	"time"

	"publication-backend/domain/core/valueobjects"
	"publication-backend/domain/events"
)

// EntityType discriminates the persisted entity kinds sharing the table
type EntityType string

const (
	EntityTypeResource             EntityType = "Resource"
	EntityTypeFileEntry            EntityType = "FileEntry"
	EntityTypeTicket               EntityType = "Ticket"
	EntityTypePublicationChannel   EntityType = "PublicationChannel"
	EntityTypeResourceRelationship EntityType = "ResourceRelationship"
)

// Entity is any persisted domain object. Entities never carry storage keys;
// the persistence layer derives those from the values exposed here.
type Entity interface {
	ID() valueobjects.Identifier
	EntityType() EntityType
	// ResourceID names the resource whose partition the entity belongs to
	ResourceID() valueobjects.Identifier
	Customer() string
	OwnerName() string
	StatusName() string
	Version() valueobjects.RowVersion
	SetVersion(valueobjects.RowVersion)
	Created() time.Time
	Modified() time.Time
}

// EventSource is implemented by entities that record domain events
type EventSource interface {
	GetUncommittedEvents() []events.DomainEvent
	MarkEventsAsCommitted()
}

// eventLog is embedded by entities that raise domain events
type eventLog struct {
	events []events.DomainEvent
}

// GetUncommittedEvents returns events raised since the last commit
func (l *eventLog) GetUncommittedEvents() []events.DomainEvent {
	return l.events
}

// MarkEventsAsCommitted clears the pending event list
func (l *eventLog) MarkEventsAsCommitted() {
	l.events = nil
}

func (l *eventLog) addEvent(event events.DomainEvent) {
	l.events = append(l.events, event)
}

func now() time.Time {
	return time.Now().UTC()
}

// EntitySummary is the lightweight listing view of any entity, built from
// stored attributes alone
type EntitySummary struct {
	Identifier   string    `json:"identifier"`
	EntityType   string    `json:"entityType"`
	Type         string    `json:"type"`
	Status       string    `json:"status"`
	ModifiedDate time.Time `json:"modifiedDate"`
}
