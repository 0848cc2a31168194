package aggregates

import (
	"fmt"
	"sort"

	"publication-backend/domain/core/entities"
	"publication-backend/domain/core/valueobjects"
	pkgerrors "publication-backend/pkg/errors"
)

// ResourceAggregate is a resource together with every record stored in its
// partition: files, tickets, channel claims and relationship links.
type ResourceAggregate struct {
	Resource      *entities.Resource
	Files         []*entities.FileEntry
	Tickets       []*entities.TicketEntry
	Channels      []*entities.PublicationChannel
	Relationships []*entities.ResourceRelationship
}

// Fold assembles an aggregate from entities in any order. The result does
// not depend on input order; exactly one resource must be present.
func Fold(items []entities.Entity) (*ResourceAggregate, error) {
	agg := &ResourceAggregate{}
	resources := 0

	for _, item := range items {
		switch e := item.(type) {
		case *entities.Resource:
			resources++
			agg.Resource = e
		case *entities.FileEntry:
			agg.Files = append(agg.Files, e)
		case *entities.TicketEntry:
			agg.Tickets = append(agg.Tickets, e)
		case *entities.PublicationChannel:
			agg.Channels = append(agg.Channels, e)
		case *entities.ResourceRelationship:
			agg.Relationships = append(agg.Relationships, e)
		default:
			return nil, pkgerrors.NewInternalError(fmt.Sprintf("unexpected %T in resource partition", item))
		}
	}

	if resources != 1 {
		return nil, pkgerrors.NewInternalError(
			fmt.Sprintf("resource partition holds %d resource records, expected exactly one", resources))
	}

	sort.Slice(agg.Files, func(i, j int) bool { return less(agg.Files[i].ID(), agg.Files[j].ID()) })
	sort.Slice(agg.Tickets, func(i, j int) bool { return less(agg.Tickets[i].ID(), agg.Tickets[j].ID()) })
	sort.Slice(agg.Channels, func(i, j int) bool { return less(agg.Channels[i].ID(), agg.Channels[j].ID()) })
	sort.Slice(agg.Relationships, func(i, j int) bool {
		a, b := agg.Relationships[i], agg.Relationships[j]
		if !a.ChildIdentifier.Equals(b.ChildIdentifier) {
			return less(a.ChildIdentifier, b.ChildIdentifier)
		}
		return less(a.ParentIdentifier, b.ParentIdentifier)
	})

	files := make([]entities.File, 0, len(agg.Files))
	for _, f := range agg.ActiveFiles() {
		files = append(files, f.File)
	}
	agg.Resource.AssociatedArtifacts = entities.MergeFiles(agg.Resource.NonFileArtifacts(), files)

	return agg, nil
}

func less(a, b valueobjects.Identifier) bool {
	return a.String() < b.String()
}

// ActiveFiles returns the files that are not soft-deleted
func (a *ResourceAggregate) ActiveFiles() []*entities.FileEntry {
	var out []*entities.FileEntry
	for _, f := range a.Files {
		if !f.IsSoftDeleted() {
			out = append(out, f)
		}
	}
	return out
}

// PendingFiles returns the files awaiting curator approval
func (a *ResourceAggregate) PendingFiles() []*entities.FileEntry {
	var out []*entities.FileEntry
	for _, f := range a.Files {
		if f.IsPending() {
			out = append(out, f)
		}
	}
	return out
}

// File returns the file with id
func (a *ResourceAggregate) File(id valueobjects.Identifier) (*entities.FileEntry, bool) {
	for _, f := range a.Files {
		if f.ID().Equals(id) {
			return f, true
		}
	}
	return nil, false
}

// TicketsView returns the tickets, leaving out REMOVED ones unless asked
func (a *ResourceAggregate) TicketsView(includeRemoved bool) []*entities.TicketEntry {
	out := make([]*entities.TicketEntry, 0, len(a.Tickets))
	for _, t := range a.Tickets {
		if includeRemoved || t.Status != entities.TicketStatusRemoved {
			out = append(out, t)
		}
	}
	return out
}

// ActiveTicket returns the non-terminal ticket of the variant, if any
func (a *ResourceAggregate) ActiveTicket(ticketType entities.TicketType) (*entities.TicketEntry, bool) {
	for _, t := range a.Tickets {
		if t.Type == ticketType && t.Status.IsActive() {
			return t, true
		}
	}
	return nil, false
}

// ActiveTickets returns every non-terminal ticket
func (a *ResourceAggregate) ActiveTickets() []*entities.TicketEntry {
	var out []*entities.TicketEntry
	for _, t := range a.Tickets {
		if t.Status.IsActive() {
			out = append(out, t)
		}
	}
	return out
}

// HasChannel reports whether the channel claim is already projected
func (a *ResourceAggregate) HasChannel(channelIdentifier string) bool {
	for _, c := range a.Channels {
		if c.ChannelIdentifier == channelIdentifier {
			return true
		}
	}
	return false
}

// Parent returns the link to the resource's parent, if any
func (a *ResourceAggregate) Parent() (*entities.ResourceRelationship, bool) {
	for _, r := range a.Relationships {
		if r.ChildIdentifier.Equals(a.Resource.Identifier) {
			return r, true
		}
	}
	return nil, false
}

// Children returns the links to resources that name this one as parent
func (a *ResourceAggregate) Children() []*entities.ResourceRelationship {
	var out []*entities.ResourceRelationship
	for _, r := range a.Relationships {
		if r.ParentIdentifier.Equals(a.Resource.Identifier) {
			out = append(out, r)
		}
	}
	return out
}
