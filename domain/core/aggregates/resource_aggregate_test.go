package aggregates

import (
	"testing"

	"publication-backend/domain/core/entities"
	"publication-backend/domain/core/valueobjects"
	pkgerrors "publication-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	resource *entities.Resource
	open     *entities.FileEntry
	deleted  *entities.FileEntry
	ticket   *entities.TicketEntry
	removed  *entities.TicketEntry
	channel  *entities.PublicationChannel
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	user := valueobjects.UserInstance{Username: "owner", CustomerID: "c1", TopLevelOrgID: "unit"}

	resource, err := entities.NewResource(user, entities.EntityDescription{MainTitle: "A Study"})
	require.NoError(t, err)
	resource.AssociatedArtifacts = entities.AssociatedArtifacts{
		entities.NewLinkArtifact(entities.AssociatedLink{ID: "https://example.org/data"}),
	}

	open, err := entities.NewFileEntry(entities.File{Name: "open.pdf", Type: entities.FileTypeOpen}, resource, user)
	require.NoError(t, err)
	deleted, err := entities.NewFileEntry(entities.File{Name: "gone.pdf", Type: entities.FileTypeOpen}, resource, user)
	require.NoError(t, err)
	require.NoError(t, deleted.SoftDelete("owner"))

	ticket, err := entities.NewGeneralSupportRequest(resource, user, "help")
	require.NoError(t, err)
	removed, err := entities.NewDoiRequest(resource, user)
	require.NoError(t, err)
	require.NoError(t, removed.Remove("owner"))

	channel, err := entities.NewPublicationChannel(resource, "journal-1", "Journal", "c2", "org-2")
	require.NoError(t, err)

	return fixture{resource, open, deleted, ticket, removed, channel}
}

func (f fixture) items() []entities.Entity {
	return []entities.Entity{f.resource, f.open, f.deleted, f.ticket, f.removed, f.channel}
}

func TestFoldIsOrderIndependent(t *testing.T) {
	f := newFixture(t)
	items := f.items()

	orders := [][]int{
		{0, 1, 2, 3, 4, 5},
		{5, 4, 3, 2, 1, 0},
		{3, 1, 5, 0, 2, 4},
		{2, 0, 4, 1, 5, 3},
	}

	var first *ResourceAggregate
	for _, order := range orders {
		permuted := make([]entities.Entity, len(order))
		for i, idx := range order {
			permuted[i] = items[idx]
		}

		agg, err := Fold(permuted)
		require.NoError(t, err)

		assert.Len(t, agg.Resource.AssociatedArtifacts, 2, "link plus the one active file")
		assert.Len(t, agg.Resource.AssociatedArtifacts.Files(), 1)
		assert.Equal(t, f.open.ID(), agg.Resource.AssociatedArtifacts.Files()[0].Identifier)
		assert.Len(t, agg.TicketsView(false), 1)
		assert.Len(t, agg.TicketsView(true), 2)
		assert.True(t, agg.HasChannel("journal-1"))

		if first == nil {
			first = agg
			continue
		}
		assert.Equal(t, first.Files, agg.Files)
		assert.Equal(t, first.Tickets, agg.Tickets)
		assert.Equal(t, first.Resource.AssociatedArtifacts, agg.Resource.AssociatedArtifacts)
	}
}

func TestFoldRequiresExactlyOneResource(t *testing.T) {
	f := newFixture(t)

	_, err := Fold([]entities.Entity{f.open, f.ticket})
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeInternal))

	_, err = Fold([]entities.Entity{f.resource, f.resource.Copy()})
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeInternal))
}

func TestActiveTicket(t *testing.T) {
	f := newFixture(t)
	agg, err := Fold(f.items())
	require.NoError(t, err)

	ticket, ok := agg.ActiveTicket(entities.TicketTypeGeneralSupportRequest)
	require.True(t, ok)
	assert.Equal(t, f.ticket.Identifier, ticket.Identifier)

	_, ok = agg.ActiveTicket(entities.TicketTypeDoiRequest)
	assert.False(t, ok, "removed tickets are not active")
}
