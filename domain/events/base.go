package events

import (
	"time"
)

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetCustomerID() string
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregateId"`
	EventType   string    `json:"eventType"`
	CustomerID  string    `json:"customerId"`
	Timestamp   time.Time `json:"timestamp"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetCustomerID() string   { return e.CustomerID }

// Event type names as published on the bus
const (
	TypeResourceCreated           = "resource.created"
	TypeResourcePublished         = "resource.published"
	TypeResourceMetadataPublished = "resource.metadata_published"
	TypeResourceUnpublished       = "resource.unpublished"
	TypeResourceRepublished       = "resource.republished"
	TypeResourceDeleted           = "resource.deleted"
	TypeResourceMarkedForDeletion = "resource.marked_for_deletion"
	TypeResourceImported          = "resource.imported"

	TypeTicketCreated       = "ticket.created"
	TypeTicketStatusChanged = "ticket.status_changed"

	TypeFileApproved = "file.approved"
	TypeFileRejected = "file.rejected"
)

// Resource Events

// ResourceLifecycleChanged is raised whenever a resource moves between
// lifecycle states or is first persisted.
type ResourceLifecycleChanged struct {
	BaseEvent
	ResourceID string `json:"resourceId"`
	Actor      string `json:"actor"`
	OldStatus  string `json:"oldStatus,omitempty"`
	NewStatus  string `json:"newStatus"`
}

// NewResourceLifecycleChanged creates a ResourceLifecycleChanged event
func NewResourceLifecycleChanged(eventType, resourceID, customerID, actor, oldStatus, newStatus string, timestamp time.Time) ResourceLifecycleChanged {
	return ResourceLifecycleChanged{
		BaseEvent: BaseEvent{
			AggregateID: resourceID,
			EventType:   eventType,
			CustomerID:  customerID,
			Timestamp:   timestamp,
		},
		ResourceID: resourceID,
		Actor:      actor,
		OldStatus:  oldStatus,
		NewStatus:  newStatus,
	}
}

// Ticket Events

// TicketCreated is raised when a ticket is opened for a resource
type TicketCreated struct {
	BaseEvent
	TicketID   string `json:"ticketId"`
	TicketType string `json:"ticketType"`
	ResourceID string `json:"resourceId"`
	Status     string `json:"status"`
}

// NewTicketCreated creates a TicketCreated event
func NewTicketCreated(ticketID, ticketType, resourceID, customerID, status string, timestamp time.Time) TicketCreated {
	return TicketCreated{
		BaseEvent: BaseEvent{
			AggregateID: resourceID,
			EventType:   TypeTicketCreated,
			CustomerID:  customerID,
			Timestamp:   timestamp,
		},
		TicketID:   ticketID,
		TicketType: ticketType,
		ResourceID: resourceID,
		Status:     status,
	}
}

// TicketStatusChanged is raised on every ticket state machine transition
type TicketStatusChanged struct {
	BaseEvent
	TicketID   string `json:"ticketId"`
	TicketType string `json:"ticketType"`
	ResourceID string `json:"resourceId"`
	Actor      string `json:"actor"`
	OldStatus  string `json:"oldStatus"`
	NewStatus  string `json:"newStatus"`
}

// NewTicketStatusChanged creates a TicketStatusChanged event
func NewTicketStatusChanged(ticketID, ticketType, resourceID, customerID, actor, oldStatus, newStatus string, timestamp time.Time) TicketStatusChanged {
	return TicketStatusChanged{
		BaseEvent: BaseEvent{
			AggregateID: resourceID,
			EventType:   TypeTicketStatusChanged,
			CustomerID:  customerID,
			Timestamp:   timestamp,
		},
		TicketID:   ticketID,
		TicketType: ticketType,
		ResourceID: resourceID,
		Actor:      actor,
		OldStatus:  oldStatus,
		NewStatus:  newStatus,
	}
}

// File Events

// FileDecided is raised when a curator approves or rejects a pending file
type FileDecided struct {
	BaseEvent
	FileID     string `json:"fileId"`
	ResourceID string `json:"resourceId"`
	Actor      string `json:"actor"`
	FileType   string `json:"fileType"`
}

// NewFileDecided creates a FileDecided event; eventType is TypeFileApproved or TypeFileRejected
func NewFileDecided(eventType, fileID, resourceID, customerID, actor, fileType string, timestamp time.Time) FileDecided {
	return FileDecided{
		BaseEvent: BaseEvent{
			AggregateID: resourceID,
			EventType:   eventType,
			CustomerID:  customerID,
			Timestamp:   timestamp,
		},
		FileID:     fileID,
		ResourceID: resourceID,
		Actor:      actor,
		FileType:   fileType,
	}
}
