package ports

import (
	"context"

	"publication-backend/domain/events"
)

// EventPublisher hands committed domain events to the event bus
type EventPublisher interface {
	Publish(ctx context.Context, events []events.DomainEvent) error
}

// ChannelClaim names the customer that has claimed a publication channel
type ChannelClaim struct {
	ChannelIdentifier string
	CustomerID        string
	OrganizationID    string
}

// ChannelClaimResolver looks up channel claims. A nil claim with a nil
// error means the channel is unclaimed.
type ChannelClaimResolver interface {
	ResolveClaim(ctx context.Context, channelIdentifier string) (*ChannelClaim, error)
}
