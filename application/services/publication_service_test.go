package services

import (
	"context"
	"errors"
	"testing"

	"publication-backend/application/ports"
	"publication-backend/domain/config"
	"publication-backend/domain/core/entities"
	"publication-backend/domain/core/valueobjects"
	"publication-backend/domain/events"
	pkgerrors "publication-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPublishWithoutPendingFiles(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	resource := env.createResource(t, titled("A Study"))

	outcome, err := env.pubs.Publish(ctx, owner, resource.Identifier)
	require.NoError(t, err)
	assert.Nil(t, outcome.Ticket)
	assert.Equal(t, entities.ResourceStatusPublished, outcome.Resource.Status)
	require.NotNil(t, outcome.Resource.PublishedDate)
	publishedDate := *outcome.Resource.PublishedDate

	again, err := env.pubs.Publish(ctx, owner, resource.Identifier)
	require.NoError(t, err)
	assert.True(t, publishedDate.Equal(*again.Resource.PublishedDate))

	assert.Equal(t, []string{events.TypeResourceCreated, events.TypeResourcePublished}, env.publisher.Types())
}

func TestPublishRequiresMainTitle(t *testing.T) {
	tests := []struct {
		name        string
		pendingFile bool
		workflow    valueobjects.PublishingWorkflow
	}{
		{"no pending files", false, ""},
		{"pending files, requires approval", true, valueobjects.WorkflowRequiresApproval},
		{"pending files, metadata only", true, valueobjects.WorkflowMetadataOnly},
		{"pending files, metadata and files", true, valueobjects.WorkflowMetadataAndFiles},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			ctx := context.Background()
			resource := env.createResource(t, titled(""))
			if tt.pendingFile {
				env.attachPending(t, resource, "a.pdf")
			}

			outcome, err := env.pubs.Publish(ctx, withUser(tt.workflow), resource.Identifier)
			require.True(t, pkgerrors.IsValidation(err), "got %v", err)
			assert.Nil(t, outcome)
			assert.Equal(t, "entityDescription.mainTitle", pkgerrors.GetAppError(err).Details["field"])

			agg, err := env.repo.GetResourceAggregate(ctx, resource.Identifier)
			require.NoError(t, err)
			assert.Equal(t, entities.ResourceStatusDraft, agg.Resource.Status)
			assert.Empty(t, agg.Tickets, "nothing is written for an untitled resource")

			all, err := env.repo.ListAllTicketsForResource(ctx, resource.Identifier, true)
			require.NoError(t, err)
			assert.Empty(t, all)
		})
	}
}

func TestPublishWithPendingFilesFollowsWorkflow(t *testing.T) {
	tests := []struct {
		name           string
		workflow       valueobjects.PublishingWorkflow
		resourceStatus entities.ResourceStatus
		ticketStatus   entities.TicketStatus
		fileType       entities.FileType
	}{
		{"requires approval", valueobjects.WorkflowRequiresApproval, entities.ResourceStatusDraft, entities.TicketStatusPending, entities.FileTypePendingOpen},
		{"metadata only", valueobjects.WorkflowMetadataOnly, entities.ResourceStatusPublishedMetadata, entities.TicketStatusPending, entities.FileTypePendingOpen},
		{"metadata and files", valueobjects.WorkflowMetadataAndFiles, entities.ResourceStatusPublished, entities.TicketStatusCompleted, entities.FileTypeOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			ctx := context.Background()
			resource := env.createResource(t, titled("A Study"))
			file := env.attachPending(t, resource, "a.pdf")

			outcome, err := env.pubs.Publish(ctx, withUser(tt.workflow), resource.Identifier)
			require.NoError(t, err)
			require.NotNil(t, outcome.Ticket)
			assert.Equal(t, entities.TicketTypePublishingRequest, outcome.Ticket.Type)
			assert.Equal(t, tt.workflow, outcome.Ticket.PublishingRequest.Workflow)

			agg, err := env.repo.GetResourceAggregate(ctx, resource.Identifier)
			require.NoError(t, err)
			assert.Equal(t, tt.resourceStatus, agg.Resource.Status)
			require.Len(t, agg.Tickets, 1)
			assert.Equal(t, tt.ticketStatus, agg.Tickets[0].Status)

			stored, err := env.repo.GetFile(ctx, file.ID())
			require.NoError(t, err)
			assert.Equal(t, tt.fileType, stored.File.Type)
		})
	}
}

func TestPublishUsesConfiguredDefaultWorkflow(t *testing.T) {
	env := newTestEnv(t)
	resource := env.createResource(t, titled("A Study"))
	env.attachPending(t, resource, "a.pdf")

	outcome, err := env.pubs.Publish(context.Background(), owner, resource.Identifier)
	require.NoError(t, err)
	assert.Equal(t, valueobjects.WorkflowRequiresApproval, outcome.Ticket.PublishingRequest.Workflow)
	assert.Len(t, outcome.Ticket.PublishingRequest.FilesForApproval, 1)
}

func TestPublishWithPendingFilesRefusesSecondRequest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	resource := env.createResource(t, titled("A Study"))
	env.attachPending(t, resource, "a.pdf")

	_, err := env.pubs.Publish(ctx, owner, resource.Identifier)
	require.NoError(t, err)

	_, err = env.pubs.Publish(ctx, owner, resource.Identifier)
	assert.True(t, pkgerrors.IsConflict(err))

	tickets, err := env.repo.ListAllTicketsForResource(ctx, resource.Identifier, true)
	require.NoError(t, err)
	assert.Len(t, tickets, 1)
}

func TestPublishDegreeOpensThesisApproval(t *testing.T) {
	env := newTestEnv(t)
	description := titled("A Thesis")
	description.Reference = &entities.Reference{PublicationInstance: &entities.PublicationInstance{Type: "DegreePhd"}}
	resource := env.createResource(t, description)
	env.attachPending(t, resource, "thesis.pdf")

	outcome, err := env.pubs.Publish(context.Background(), owner, resource.Identifier)
	require.NoError(t, err)
	assert.Equal(t, entities.TicketTypeFilesApprovalThesis, outcome.Ticket.Type)
	assert.Len(t, outcome.Ticket.FilesApproval.FilesForApproval, 1)
}

func channelDescription() entities.EntityDescription {
	description := titled("A Study")
	description.Reference = &entities.Reference{PublicationContext: &entities.PublicationContext{
		Type:              "Journal",
		ChannelIdentifier: "channel-1",
		ChannelType:       "Journal",
	}}
	return description
}

func TestPublishRoutesToClaimingCustomer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	resource := env.createResource(t, channelDescription())
	env.attachPending(t, resource, "a.pdf")

	env.channels.On("ResolveClaim", mock.Anything, "channel-1").
		Return(&ports.ChannelClaim{ChannelIdentifier: "channel-1", CustomerID: "c2", OrganizationID: "org-2"}, nil).Once()

	outcome, err := env.pubs.Publish(ctx, owner, resource.Identifier)
	require.NoError(t, err)
	assert.Equal(t, "org-2", outcome.Ticket.ReceivingOrganizationID)

	agg, err := env.repo.GetResourceAggregate(ctx, resource.Identifier)
	require.NoError(t, err)
	assert.True(t, agg.HasChannel("channel-1"))
	require.Len(t, agg.Channels, 1)
	assert.Equal(t, "c2", agg.Channels[0].ClaimedByCustomerID)
	env.channels.AssertExpectations(t)
}

func TestPublishFallsBackWhenClaimLookupFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	resource := env.createResource(t, channelDescription())
	env.attachPending(t, resource, "a.pdf")

	env.channels.On("ResolveClaim", mock.Anything, "channel-1").
		Return(nil, pkgerrors.NewUnavailableError("channel registry", errors.New("timeout"))).Once()

	outcome, err := env.pubs.Publish(ctx, owner, resource.Identifier)
	require.NoError(t, err)
	assert.Equal(t, owner.TopLevelOrgID, outcome.Ticket.ReceivingOrganizationID)

	agg, err := env.repo.GetResourceAggregate(ctx, resource.Identifier)
	require.NoError(t, err)
	assert.Empty(t, agg.Channels)
}

func TestPublishBoundsClaimLookup(t *testing.T) {
	cfg := config.DefaultDomainConfig()
	cfg.ChannelLookupTimeout = 1
	env := newTestEnv(t)
	env.pubs = NewPublicationService(env.repo, env.channels, env.publisher, cfg, nil, zap.NewNop())
	resource := env.createResource(t, channelDescription())
	env.attachPending(t, resource, "a.pdf")

	env.channels.On("ResolveClaim", mock.Anything, "channel-1").
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.DeadlineExceeded).Once()

	outcome, err := env.pubs.Publish(context.Background(), owner, resource.Identifier)
	require.NoError(t, err)
	assert.NotNil(t, outcome.Ticket)
}

func TestRepublishOnlyFromUnpublished(t *testing.T) {
	env := newTestEnv(t)
	resource := env.createResource(t, titled("A Study"))

	_, err := env.pubs.Republish(context.Background(), resource.Identifier, curator)
	assert.True(t, pkgerrors.IsIllegalTransition(err))

	stored, err := env.repo.GetResource(context.Background(), resource.Identifier)
	require.NoError(t, err)
	assert.Equal(t, entities.ResourceStatusDraft, stored.Status)
	assert.Equal(t, resource.Version(), stored.Version())
}

func TestUnpublishRecordsCompletedRequest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	resource := env.createResource(t, titled("A Study"))
	_, err := env.pubs.Publish(ctx, owner, resource.Identifier)
	require.NoError(t, err)

	unpublished, err := env.pubs.Unpublish(ctx, owner, resource.Identifier, "duplicate")
	require.NoError(t, err)
	assert.Equal(t, entities.ResourceStatusUnpublished, unpublished.Status)
	assert.Equal(t, "duplicate", unpublished.ResourceEvent.Comment)

	tickets, err := env.repo.ListAllTicketsForResource(ctx, resource.Identifier, true)
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, entities.TicketTypeUnpublishRequest, tickets[0].Type)
	assert.Equal(t, entities.TicketStatusCompleted, tickets[0].Status)

	republished, err := env.pubs.Republish(ctx, resource.Identifier, curator)
	require.NoError(t, err)
	assert.Equal(t, entities.ResourceStatusPublished, republished.Status)
}

func TestUnpublishCompletesOpenRequest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	resource := env.createResource(t, titled("A Study"))
	_, err := env.pubs.Publish(ctx, owner, resource.Identifier)
	require.NoError(t, err)
	request, err := env.tickets.CreateTicket(ctx, owner, resource.Identifier,
		CreateTicketRequest{Type: entities.TicketTypeUnpublishRequest, Comment: "wrong file"})
	require.NoError(t, err)

	unpublished, err := env.pubs.Unpublish(ctx, owner, resource.Identifier, "")
	require.NoError(t, err)
	assert.Equal(t, "wrong file", unpublished.ResourceEvent.Comment)

	stored, err := env.repo.GetTicket(ctx, request.Identifier)
	require.NoError(t, err)
	assert.Equal(t, entities.TicketStatusCompleted, stored.Status)

	tickets, err := env.repo.ListAllTicketsForResource(ctx, resource.Identifier, true)
	require.NoError(t, err)
	assert.Len(t, tickets, 1)
}

func TestUnpublishDraftIsIllegal(t *testing.T) {
	env := newTestEnv(t)
	resource := env.createResource(t, titled("A Study"))

	_, err := env.pubs.Unpublish(context.Background(), owner, resource.Identifier, "why")
	assert.True(t, pkgerrors.IsIllegalTransition(err))
}

func TestMarkForDeletionRetiresActiveTickets(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	resource := env.createResource(t, titled("A Study"))
	doi, err := env.tickets.CreateTicket(ctx, owner, resource.Identifier, CreateTicketRequest{Type: entities.TicketTypeDoiRequest})
	require.NoError(t, err)
	support, err := env.tickets.CreateTicket(ctx, owner, resource.Identifier, CreateTicketRequest{Type: entities.TicketTypeGeneralSupportRequest, Message: "help"})
	require.NoError(t, err)
	_, err = env.tickets.MarkPending(ctx, support.Identifier, curator)
	require.NoError(t, err)

	marked, err := env.pubs.MarkForDeletion(ctx, resource.Identifier, owner.Username)
	require.NoError(t, err)
	assert.Equal(t, entities.ResourceStatusDraftForDeletion, marked.Status)

	storedDoi, err := env.repo.GetTicket(ctx, doi.Identifier)
	require.NoError(t, err)
	assert.Equal(t, entities.TicketStatusRemoved, storedDoi.Status)
	storedSupport, err := env.repo.GetTicket(ctx, support.Identifier)
	require.NoError(t, err)
	assert.Equal(t, entities.TicketStatusClosed, storedSupport.Status)

	_, err = env.tickets.CreateTicket(ctx, owner, resource.Identifier, CreateTicketRequest{Type: entities.TicketTypeDoiRequest})
	require.True(t, pkgerrors.IsValidation(err))
	assert.Equal(t, "resource.status", pkgerrors.GetAppError(err).Details["field"])
}

func TestDeleteKeepsRecordReadable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	resource := env.createResource(t, titled("A Study"))

	deleted, err := env.pubs.Delete(ctx, resource.Identifier, owner.Username)
	require.NoError(t, err)
	assert.Equal(t, entities.ResourceStatusDeleted, deleted.Status)

	stored, err := env.repo.GetResource(ctx, resource.Identifier)
	require.NoError(t, err)
	assert.Equal(t, entities.ResourceStatusDeleted, stored.Status)

	_, err = env.pubs.Delete(ctx, resource.Identifier, owner.Username)
	assert.True(t, pkgerrors.IsIllegalTransition(err))
}

func TestDeletePublishedIsIllegal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	resource := env.createResource(t, titled("A Study"))
	_, err := env.pubs.Publish(ctx, owner, resource.Identifier)
	require.NoError(t, err)

	_, err = env.pubs.Delete(ctx, resource.Identifier, owner.Username)
	assert.True(t, pkgerrors.IsIllegalTransition(err))
}

func TestImportSameSourceTwiceConflicts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	source := entities.ImportSource{Source: "Cristin", SourceIdentifier: "1234"}

	first := &entities.Resource{Publisher: entities.Organization{ID: "c1"}, ResourceOwner: entities.ResourceOwner{Owner: "importer"}, EntityDescription: titled("Imported")}
	imported, err := env.pubs.ImportResource(ctx, first, source, "importer")
	require.NoError(t, err)
	assert.Equal(t, entities.ResourceStatusPublished, imported.Status)
	assert.Equal(t, entities.ImportedResourceEvent, imported.ResourceEvent.Type)

	second := &entities.Resource{Publisher: entities.Organization{ID: "c1"}, ResourceOwner: entities.ResourceOwner{Owner: "importer"}, EntityDescription: titled("Imported again")}
	_, err = env.pubs.ImportResource(ctx, second, source, "importer")
	assert.True(t, pkgerrors.IsConflict(err))

	_, found, err := env.repo.FindByIdentifier(ctx, entities.EntityTypeResource, second.Identifier)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLinkToParentAllowsOneParent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	anthology := env.createResource(t, titled("Anthology"))
	other := env.createResource(t, titled("Other anthology"))
	chapter := env.createResource(t, titled("Chapter"))

	_, err := env.pubs.LinkToParent(ctx, anthology.Identifier, chapter.Identifier, entities.RoleChapterOf)
	require.NoError(t, err)

	_, err = env.pubs.LinkToParent(ctx, other.Identifier, chapter.Identifier, entities.RoleChapterOf)
	assert.True(t, pkgerrors.IsConflict(err))

	agg, err := env.repo.GetResourceAggregate(ctx, anthology.Identifier)
	require.NoError(t, err)
	require.Len(t, agg.Children(), 1)
	assert.Equal(t, chapter.Identifier, agg.Children()[0].ChildIdentifier)
}

func TestRemoveFileSoftDeletes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	resource := env.createResource(t, titled("A Study"))
	file := env.attachPending(t, resource, "a.pdf")

	removed, err := env.pubs.RemoveFile(ctx, file.ID(), owner.Username)
	require.NoError(t, err)
	assert.True(t, removed.IsSoftDeleted())

	agg, err := env.repo.GetResourceAggregate(ctx, resource.Identifier)
	require.NoError(t, err)
	assert.Empty(t, agg.ActiveFiles())
	assert.Empty(t, agg.Resource.AssociatedArtifacts.Files())

	stored, err := env.repo.GetFile(ctx, file.ID())
	require.NoError(t, err)
	assert.True(t, stored.IsSoftDeleted())

	again, err := env.pubs.RemoveFile(ctx, file.ID(), owner.Username)
	require.NoError(t, err)
	assert.Equal(t, stored.Version(), again.Version())
}

func TestAttachFileToRetiredResourceIsIllegal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	resource := env.createResource(t, titled("A Study"))
	_, err := env.pubs.MarkForDeletion(ctx, resource.Identifier, owner.Username)
	require.NoError(t, err)

	_, err = env.pubs.AttachFile(ctx, owner, resource.Identifier, entities.File{Name: "late.pdf"})
	assert.True(t, pkgerrors.IsIllegalTransition(err))
}

func TestEventPublishFailureDoesNotFailOperation(t *testing.T) {
	env := newTestEnv(t)
	env.publisher = new(MockEventPublisher)
	env.publisher.On("Publish", mock.Anything, mock.Anything).Return(errors.New("bus down"))
	env.pubs = NewPublicationService(env.repo, env.channels, env.publisher, nil, env.metrics, zap.NewNop())

	resource, err := env.pubs.CreateResource(context.Background(), owner, titled("A Study"))
	require.NoError(t, err)

	stored, err := env.repo.GetResource(context.Background(), resource.Identifier)
	require.NoError(t, err)
	assert.Equal(t, resource.Identifier, stored.Identifier)
	env.publisher.AssertNumberOfCalls(t, "Publish", 1)
}
