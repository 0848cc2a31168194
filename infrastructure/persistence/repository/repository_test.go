package repository

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"publication-backend/domain/core/entities"
	"publication-backend/domain/core/valueobjects"
	"publication-backend/domain/events"
	"publication-backend/infrastructure/persistence/memory"
	"publication-backend/infrastructure/persistence/sqlite"
	"publication-backend/infrastructure/persistence/store"
	pkgerrors "publication-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var owner = valueobjects.UserInstance{Username: "owner@unit", CustomerID: "c1", TopLevelOrgID: "unit"}

// eachStore runs fn against every local store implementation
func eachStore(t *testing.T, fn func(t *testing.T, repo *Repository)) {
	t.Run("memory", func(t *testing.T) {
		fn(t, NewRepository(memory.NewStore(zap.NewNop()), 0, zap.NewNop()))
	})
	t.Run("sqlite", func(t *testing.T) {
		s, err := sqlite.Open(filepath.Join(t.TempDir(), "records.db"), zap.NewNop())
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		fn(t, NewRepository(s, 0, zap.NewNop()))
	})
}

func insert(t *testing.T, repo *Repository, items ...entities.Entity) {
	t.Helper()
	uow := repo.NewUnitOfWork()
	for _, item := range items {
		require.NoError(t, uow.RegisterInsert(item))
	}
	require.NoError(t, uow.Commit(context.Background()))
}

func update(repo *Repository, items ...entities.Entity) error {
	uow := repo.NewUnitOfWork()
	for _, item := range items {
		if err := uow.RegisterUpdate(item); err != nil {
			return err
		}
	}
	return uow.Commit(context.Background())
}

func newResource(t *testing.T, title string) *entities.Resource {
	t.Helper()
	resource, err := entities.NewResource(owner, entities.EntityDescription{MainTitle: title})
	require.NoError(t, err)
	return resource
}

func TestInsertAndFind(t *testing.T) {
	eachStore(t, func(t *testing.T, repo *Repository) {
		ctx := context.Background()
		resource := newResource(t, "A Study")
		insert(t, repo, resource)
		assert.False(t, resource.Version().IsZero())

		got, err := repo.GetResource(ctx, resource.Identifier)
		require.NoError(t, err)
		assert.Equal(t, resource.EntityDescription, got.EntityDescription)
		assert.Equal(t, resource.Version(), got.Version())

		_, ok, err := repo.FindByIdentifier(ctx, entities.EntityTypeTicket, resource.Identifier)
		require.NoError(t, err)
		assert.False(t, ok, "identifier lookups are scoped by entity type")

		_, err = repo.GetResource(ctx, valueobjects.NextIdentifier())
		assert.True(t, pkgerrors.IsNotFound(err))
		_, err = repo.GetTicket(ctx, valueobjects.NextIdentifier())
		assert.True(t, pkgerrors.IsNotFound(err))
		_, err = repo.GetFile(ctx, valueobjects.NextIdentifier())
		assert.True(t, pkgerrors.IsNotFound(err))
	})
}

func TestResourceIdentifierIsUnique(t *testing.T) {
	eachStore(t, func(t *testing.T, repo *Repository) {
		resource := newResource(t, "A Study")
		insert(t, repo, resource)

		duplicate := newResource(t, "Another Study")
		duplicate.Identifier = resource.Identifier
		uow := repo.NewUnitOfWork()
		require.NoError(t, uow.RegisterInsert(duplicate))
		err := uow.Commit(context.Background())
		assert.True(t, pkgerrors.IsConflict(err))
		assert.True(t, duplicate.Version().IsZero(), "failed commit leaves the entity unversioned")
	})
}

func TestImportSourceLandsOnce(t *testing.T) {
	eachStore(t, func(t *testing.T, repo *Repository) {
		source := entities.ImportSource{Source: "Cristin", SourceIdentifier: "12345"}

		first, err := entities.NewImportedResource(newResource(t, "Imported"), source, "importer")
		require.NoError(t, err)
		insert(t, repo, first)

		second, err := entities.NewImportedResource(newResource(t, "Imported again"), source, "importer")
		require.NoError(t, err)
		uow := repo.NewUnitOfWork()
		require.NoError(t, uow.RegisterInsert(second))
		assert.True(t, pkgerrors.IsConflict(uow.Commit(context.Background())))
	})
}

func TestConcurrentTicketCreationHasOneWinner(t *testing.T) {
	eachStore(t, func(t *testing.T, repo *Repository) {
		ctx := context.Background()
		resource := newResource(t, "A Study")
		require.NoError(t, resource.Publish("owner@unit"))
		insert(t, repo, resource)

		const writers = 8
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
			conflicts int
		)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ticket, err := entities.NewDoiRequest(resource, owner)
				if err != nil {
					return
				}
				uow := repo.NewUnitOfWork()
				if err := uow.RegisterInsert(ticket); err != nil {
					return
				}
				err = uow.Commit(ctx)

				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					successes++
				case pkgerrors.IsConflict(err):
					conflicts++
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, successes)
		assert.Equal(t, writers-1, conflicts)

		tickets, err := repo.ListAllTicketsForResource(ctx, resource.Identifier, true)
		require.NoError(t, err)
		assert.Len(t, tickets, 1)
	})
}

func TestTerminalTicketReleasesGuard(t *testing.T) {
	eachStore(t, func(t *testing.T, repo *Repository) {
		ctx := context.Background()
		resource := newResource(t, "A Study")
		insert(t, repo, resource)

		first, err := entities.NewDoiRequest(resource, owner)
		require.NoError(t, err)
		insert(t, repo, first)

		stored, err := repo.GetTicket(ctx, first.Identifier)
		require.NoError(t, err)
		require.NoError(t, stored.Close("curator"))
		require.NoError(t, update(repo, stored))
		assert.Equal(t, entities.TicketStatusClosed, stored.StoredStatus())

		second, err := entities.NewDoiRequest(resource, owner)
		require.NoError(t, err)
		insert(t, repo, second)

		tickets, err := repo.ListAllTicketsForResource(ctx, resource.Identifier, false)
		require.NoError(t, err)
		assert.Len(t, tickets, 2)
	})
}

func TestStaleUpdateConflicts(t *testing.T) {
	eachStore(t, func(t *testing.T, repo *Repository) {
		ctx := context.Background()
		resource := newResource(t, "A Study")
		insert(t, repo, resource)

		a, err := repo.GetResource(ctx, resource.Identifier)
		require.NoError(t, err)
		b, err := repo.GetResource(ctx, resource.Identifier)
		require.NoError(t, err)

		require.NoError(t, a.Publish("owner@unit"))
		require.NoError(t, update(repo, a))

		require.NoError(t, b.PublishMetadata("owner@unit"))
		staleVersion := b.Version()
		err = update(repo, b)
		assert.True(t, pkgerrors.IsConflict(err))
		assert.True(t, pkgerrors.Retryable(err))
		assert.Equal(t, staleVersion, b.Version())

		current, err := repo.GetResource(ctx, resource.Identifier)
		require.NoError(t, err)
		assert.Equal(t, entities.ResourceStatusPublished, current.Status)
	})
}

func TestUpdateOfMissingEntityIsNotFound(t *testing.T) {
	eachStore(t, func(t *testing.T, repo *Repository) {
		ghost := newResource(t, "Never stored")
		ghost.SetVersion(valueobjects.NextVersion())
		assert.True(t, pkgerrors.IsNotFound(update(repo, ghost)))
	})
}

func TestUpdateRequiresStoredVersion(t *testing.T) {
	repo := NewRepository(memory.NewStore(zap.NewNop()), 0, zap.NewNop())
	uow := repo.NewUnitOfWork()
	err := uow.RegisterUpdate(newResource(t, "Fresh"))
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeInternal))
}

func TestOversizedUnitNeverReachesStore(t *testing.T) {
	s := memory.NewStore(zap.NewNop())
	repo := NewRepository(s, 0, zap.NewNop())
	resource := newResource(t, "A Study")
	insert(t, repo, resource)
	before := s.Len()

	uow := repo.NewUnitOfWork()
	for i := 0; i <= store.MaxTransactionItems; i++ {
		file, err := entities.NewFileEntry(entities.File{Name: "part.pdf"}, resource, owner)
		require.NoError(t, err)
		require.NoError(t, uow.RegisterInsert(file))
	}
	require.Equal(t, store.MaxTransactionItems+1, uow.Len())

	err := uow.Commit(context.Background())
	assert.True(t, pkgerrors.IsTransactionTooLarge(err))
	assert.Equal(t, before, s.Len())
}

func TestConfiguredCeilingIsEnforced(t *testing.T) {
	repo := NewRepository(memory.NewStore(zap.NewNop()), 2, zap.NewNop())
	resource := newResource(t, "A Study")

	uow := repo.NewUnitOfWork()
	require.NoError(t, uow.RegisterInsert(resource))
	file, err := entities.NewFileEntry(entities.File{Name: "a.pdf"}, resource, owner)
	require.NoError(t, err)
	require.NoError(t, uow.RegisterInsert(file))

	assert.True(t, pkgerrors.IsTransactionTooLarge(uow.Commit(context.Background())))
}

func TestUnitOfWorkIsSingleUse(t *testing.T) {
	repo := NewRepository(memory.NewStore(zap.NewNop()), 0, zap.NewNop())
	uow := repo.NewUnitOfWork()
	require.NoError(t, uow.RegisterInsert(newResource(t, "A Study")))
	require.NoError(t, uow.Commit(context.Background()))

	assert.Error(t, uow.RegisterInsert(newResource(t, "Late")))
	assert.Error(t, uow.Commit(context.Background()))
}

func TestCommitCollectsEvents(t *testing.T) {
	repo := NewRepository(memory.NewStore(zap.NewNop()), 0, zap.NewNop())
	resource := newResource(t, "A Study")
	ticket, err := entities.NewDoiRequest(resource, owner)
	require.NoError(t, err)

	uow := repo.NewUnitOfWork()
	require.NoError(t, uow.RegisterInsert(resource))
	require.NoError(t, uow.RegisterInsert(ticket))
	require.NoError(t, uow.Commit(context.Background()))

	committed := uow.CommittedEvents()
	require.Len(t, committed, 2)
	assert.Equal(t, events.TypeResourceCreated, committed[0].GetEventType())
	assert.Equal(t, events.TypeTicketCreated, committed[1].GetEventType())
	assert.Empty(t, resource.GetUncommittedEvents())
}

func TestSoftDeletedFilesAreRetained(t *testing.T) {
	eachStore(t, func(t *testing.T, repo *Repository) {
		ctx := context.Background()
		resource := newResource(t, "A Study")
		kept, err := entities.NewFileEntry(entities.File{Name: "kept.pdf", Type: entities.FileTypeOpen}, resource, owner)
		require.NoError(t, err)
		dropped, err := entities.NewFileEntry(entities.File{Name: "dropped.pdf", Type: entities.FileTypeOpen}, resource, owner)
		require.NoError(t, err)
		insert(t, repo, resource, kept, dropped)

		require.NoError(t, dropped.SoftDelete("owner@unit"))
		require.NoError(t, update(repo, dropped))

		stored, err := repo.GetFile(ctx, dropped.ID())
		require.NoError(t, err)
		assert.True(t, stored.IsSoftDeleted())

		aggregate, err := repo.GetResourceAggregate(ctx, resource.Identifier)
		require.NoError(t, err)
		assert.Len(t, aggregate.Files, 2)
		require.Len(t, aggregate.ActiveFiles(), 1)
		assert.Equal(t, kept.ID(), aggregate.ActiveFiles()[0].ID())
		require.Len(t, aggregate.Resource.AssociatedArtifacts.Files(), 1)

		summaries, err := repo.ListByOwner(ctx, "c1", "owner@unit")
		require.NoError(t, err)
		for _, s := range summaries {
			assert.NotEqual(t, dropped.ID().String(), s.Identifier)
		}
	})
}

func TestAggregateRoundTrip(t *testing.T) {
	eachStore(t, func(t *testing.T, repo *Repository) {
		ctx := context.Background()
		parent := newResource(t, "Anthology")
		child := newResource(t, "Chapter One")

		file, err := entities.NewFileEntry(entities.File{Name: "chapter.pdf"}, child, owner)
		require.NoError(t, err)
		ticket, err := entities.NewGeneralSupportRequest(child, owner, "help")
		require.NoError(t, err)
		channel, err := entities.NewPublicationChannel(child, "publisher-1", "Publisher", "c2", "org-2")
		require.NoError(t, err)
		link, err := entities.NewResourceRelationship(parent, child, entities.RoleChapterOf)
		require.NoError(t, err)

		insert(t, repo, parent, child, file, ticket, channel, link)

		aggregate, err := repo.GetResourceAggregate(ctx, child.Identifier)
		require.NoError(t, err)
		assert.Equal(t, child.Identifier, aggregate.Resource.Identifier)
		assert.Len(t, aggregate.Files, 1)
		assert.Len(t, aggregate.Tickets, 1)
		assert.True(t, aggregate.HasChannel("publisher-1"))
		gotParent, ok := aggregate.Parent()
		require.True(t, ok)
		assert.Equal(t, parent.Identifier, gotParent.ParentIdentifier)
		assert.Empty(t, aggregate.Children())

		parentAggregate, err := repo.GetResourceAggregate(ctx, parent.Identifier)
		require.NoError(t, err)
		require.Len(t, parentAggregate.Children(), 1)
		assert.Equal(t, child.Identifier, parentAggregate.Children()[0].ChildIdentifier)
		assert.Empty(t, parentAggregate.Files)

		again, err := repo.GetResourceAggregate(ctx, child.Identifier)
		require.NoError(t, err)
		assert.Equal(t, aggregate.Resource.AssociatedArtifacts, again.Resource.AssociatedArtifacts)
	})
}

func TestChildHasAtMostOneParent(t *testing.T) {
	eachStore(t, func(t *testing.T, repo *Repository) {
		first := newResource(t, "First")
		second := newResource(t, "Second")
		child := newResource(t, "Child")
		insert(t, repo, first, second, child)

		a, err := entities.NewResourceRelationship(first, child, entities.RolePartOf)
		require.NoError(t, err)
		insert(t, repo, a)

		b, err := entities.NewResourceRelationship(second, child, entities.RolePartOf)
		require.NoError(t, err)
		uow := repo.NewUnitOfWork()
		require.NoError(t, uow.RegisterInsert(b))
		assert.True(t, pkgerrors.IsConflict(uow.Commit(context.Background())))
	})
}

func TestListByOwnerHidesDeletedAndRemoved(t *testing.T) {
	eachStore(t, func(t *testing.T, repo *Repository) {
		ctx := context.Background()
		live := newResource(t, "Live")
		gone := newResource(t, "Gone")
		ticket, err := entities.NewDoiRequest(live, owner)
		require.NoError(t, err)
		insert(t, repo, live, gone, ticket)

		require.NoError(t, gone.Delete("owner@unit"))
		require.NoError(t, ticket.Remove("owner@unit"))
		require.NoError(t, update(repo, gone, ticket))

		summaries, err := repo.ListByOwner(ctx, "c1", "owner@unit")
		require.NoError(t, err)
		require.Len(t, summaries, 1)
		assert.Equal(t, live.Identifier.String(), summaries[0].Identifier)
		assert.Equal(t, "Resource", summaries[0].EntityType)
		assert.Equal(t, "DRAFT", summaries[0].Status)

		stillThere, err := repo.GetResource(ctx, gone.Identifier)
		require.NoError(t, err)
		assert.Equal(t, entities.ResourceStatusDeleted, stillThere.Status)

		all, err := repo.ListAllTicketsForResource(ctx, live.Identifier, true)
		require.NoError(t, err)
		assert.Len(t, all, 1)
		visible, err := repo.ListAllTicketsForResource(ctx, live.Identifier, false)
		require.NoError(t, err)
		assert.Empty(t, visible)
	})
}

func TestListResourcesByCustomerNewestFirst(t *testing.T) {
	eachStore(t, func(t *testing.T, repo *Repository) {
		ctx := context.Background()
		var created []*entities.Resource
		for _, title := range []string{"First", "Second", "Third"} {
			r := newResource(t, title)
			insert(t, repo, r)
			created = append(created, r)
		}

		listed, err := repo.ListResourcesByCustomer(ctx, "c1", 2)
		require.NoError(t, err)
		require.Len(t, listed, 2)
		assert.Equal(t, created[2].Identifier, listed[0].Identifier)
		assert.Equal(t, created[1].Identifier, listed[1].Identifier)

		none, err := repo.ListResourcesByCustomer(ctx, "other", 0)
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}
