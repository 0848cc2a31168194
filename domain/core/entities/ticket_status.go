package entities

import (
	"encoding/json"
	"fmt"
)

// TicketStatus is a state of the ticket state machine
type TicketStatus string

const (
	TicketStatusNew       TicketStatus = "NEW"
	TicketStatusPending   TicketStatus = "PENDING"
	TicketStatusCompleted TicketStatus = "COMPLETED"
	TicketStatusClosed    TicketStatus = "CLOSED"
	TicketStatusRemoved   TicketStatus = "REMOVED"
)

// legacyTicketStatuses maps historical wire names to current states. They are
// only ever read, never written.
var legacyTicketStatuses = map[string]TicketStatus{
	"REQUESTED": TicketStatusPending,
	"APPROVED":  TicketStatusCompleted,
	"REJECTED":  TicketStatusClosed,
	"New":       TicketStatusNew,
	"Read":      TicketStatusPending,
	"Pending":   TicketStatusPending,
	"Completed": TicketStatusCompleted,
	"Closed":    TicketStatusClosed,
}

// ticketTransitions is the variant independent transition table
var ticketTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusNew:     {TicketStatusPending, TicketStatusClosed, TicketStatusRemoved},
	TicketStatusPending: {TicketStatusCompleted, TicketStatusClosed},
}

// ParseTicketStatus accepts current and legacy status names
func ParseTicketStatus(s string) (TicketStatus, error) {
	status := TicketStatus(s)
	if status.IsValid() {
		return status, nil
	}
	if legacy, ok := legacyTicketStatuses[s]; ok {
		return legacy, nil
	}
	return "", fmt.Errorf("unknown ticket status %q", s)
}

// IsValid reports whether s is a current status name
func (s TicketStatus) IsValid() bool {
	switch s {
	case TicketStatusNew, TicketStatusPending, TicketStatusCompleted, TicketStatusClosed, TicketStatusRemoved:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is legal
func (s TicketStatus) IsTerminal() bool {
	return s == TicketStatusCompleted || s == TicketStatusClosed || s == TicketStatusRemoved
}

// IsActive reports whether a ticket in this status holds its uniqueness guard
func (s TicketStatus) IsActive() bool {
	return s == TicketStatusNew || s == TicketStatusPending
}

// CanTransitionTo reports whether the table allows s -> target
func (s TicketStatus) CanTransitionTo(target TicketStatus) bool {
	for _, allowed := range ticketTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// UnmarshalJSON accepts legacy names
func (s *TicketStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseTicketStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
