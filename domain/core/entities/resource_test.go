package entities

import (
	"testing"

	"publication-backend/domain/config"
	"publication-backend/domain/events"
	pkgerrors "publication-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewResource(t *testing.T) {
	resource, err := NewResource(testUser(), EntityDescription{MainTitle: "A Study"})
	require.NoError(t, err)

	assert.Equal(t, ResourceStatusDraft, resource.Status)
	assert.Equal(t, "customer-20754", resource.Customer())
	assert.Equal(t, testUser().Username, resource.OwnerName())
	assert.False(t, resource.ID().IsZero())
	assert.True(t, resource.Version().IsZero())
	require.Len(t, resource.GetUncommittedEvents(), 1)
	assert.Equal(t, events.TypeResourceCreated, resource.GetUncommittedEvents()[0].GetEventType())
}

func TestNewResourceRequiresOwner(t *testing.T) {
	user := testUser()
	user.Username = ""

	_, err := NewResource(user, EntityDescription{})
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestPublishScenario(t *testing.T) {
	resource := draftResource(t, "A Study")

	require.NoError(t, resource.Publish(testUser().Username))
	assert.Equal(t, ResourceStatusPublished, resource.Status)
	require.NotNil(t, resource.PublishedDate)
	require.NotNil(t, resource.ResourceEvent)
	assert.Equal(t, PublishedResourceEvent, resource.ResourceEvent.Type)
	require.Len(t, resource.GetUncommittedEvents(), 1)

	publishedDate := *resource.PublishedDate
	event := *resource.ResourceEvent

	require.NoError(t, resource.Publish(testUser().Username))
	assert.Equal(t, publishedDate, *resource.PublishedDate)
	assert.Equal(t, event, *resource.ResourceEvent)
	assert.Len(t, resource.GetUncommittedEvents(), 1, "second publish records nothing")
}

func TestPublishRequiresMainTitle(t *testing.T) {
	resource := draftResource(t, "   ")

	err := resource.Publish("owner")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
	assert.Equal(t, "entityDescription.mainTitle", pkgerrors.GetAppError(err).Details["field"])
	assert.Equal(t, ResourceStatusDraft, resource.Status)
}

func TestCanPublish(t *testing.T) {
	untitled := draftResource(t, " ")
	assert.True(t, pkgerrors.IsValidation(untitled.CanPublish()))

	assert.NoError(t, draftResource(t, "A Study").CanPublish())
	assert.True(t, pkgerrors.IsIllegalTransition(resourceIn(t, ResourceStatusDraftForDeletion).CanPublish()))
	assert.True(t, pkgerrors.IsIllegalTransition(resourceIn(t, ResourceStatusDeleted).CanPublish()))
}

func TestLifecycleTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    ResourceStatus
		op      func(*Resource) error
		want    ResourceStatus
		illegal bool
	}{
		{"publish draft", ResourceStatusDraft, func(r *Resource) error { return r.Publish("a") }, ResourceStatusPublished, false},
		{"publish metadata-only", ResourceStatusPublishedMetadata, func(r *Resource) error { return r.Publish("a") }, ResourceStatusPublished, false},
		{"publish unpublished", ResourceStatusUnpublished, func(r *Resource) error { return r.Publish("a") }, ResourceStatusPublished, false},
		{"publish deleted", ResourceStatusDeleted, func(r *Resource) error { return r.Publish("a") }, ResourceStatusDeleted, true},
		{"publish marked for deletion", ResourceStatusDraftForDeletion, func(r *Resource) error { return r.Publish("a") }, ResourceStatusDraftForDeletion, true},
		{"republish draft", ResourceStatusDraft, func(r *Resource) error { return r.Republish("a") }, ResourceStatusDraft, true},
		{"republish published", ResourceStatusPublished, func(r *Resource) error { return r.Republish("a") }, ResourceStatusPublished, true},
		{"republish unpublished", ResourceStatusUnpublished, func(r *Resource) error { return r.Republish("a") }, ResourceStatusPublished, false},
		{"unpublish published", ResourceStatusPublished, func(r *Resource) error { return r.Unpublish("a", "duplicate") }, ResourceStatusUnpublished, false},
		{"unpublish draft", ResourceStatusDraft, func(r *Resource) error { return r.Unpublish("a", "duplicate") }, ResourceStatusDraft, true},
		{"delete draft", ResourceStatusDraft, func(r *Resource) error { return r.Delete("a") }, ResourceStatusDeleted, false},
		{"delete unpublished", ResourceStatusUnpublished, func(r *Resource) error { return r.Delete("a") }, ResourceStatusDeleted, false},
		{"delete marked", ResourceStatusDraftForDeletion, func(r *Resource) error { return r.Delete("a") }, ResourceStatusDeleted, false},
		{"delete published", ResourceStatusPublished, func(r *Resource) error { return r.Delete("a") }, ResourceStatusPublished, true},
		{"delete deleted", ResourceStatusDeleted, func(r *Resource) error { return r.Delete("a") }, ResourceStatusDeleted, true},
		{"mark published", ResourceStatusPublished, func(r *Resource) error { return r.MarkForDeletion("a") }, ResourceStatusDraftForDeletion, false},
		{"mark deleted", ResourceStatusDeleted, func(r *Resource) error { return r.MarkForDeletion("a") }, ResourceStatusDeleted, true},
		{"metadata from draft", ResourceStatusDraft, func(r *Resource) error { return r.PublishMetadata("a") }, ResourceStatusPublishedMetadata, false},
		{"metadata from unpublished", ResourceStatusUnpublished, func(r *Resource) error { return r.PublishMetadata("a") }, ResourceStatusUnpublished, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resource := resourceIn(t, tt.from)
			before := resource.ModifiedDate

			err := tt.op(resource)
			if tt.illegal {
				assert.True(t, pkgerrors.IsIllegalTransition(err), "got %v", err)
				assert.Equal(t, before, resource.ModifiedDate)
				assert.Empty(t, resource.GetUncommittedEvents())
			} else {
				require.NoError(t, err)
				assert.Len(t, resource.GetUncommittedEvents(), 1)
			}
			assert.Equal(t, tt.want, resource.Status)
		})
	}
}

func TestUnpublishRequiresComment(t *testing.T) {
	resource := resourceIn(t, ResourceStatusPublished)
	err := resource.Unpublish("curator", " ")
	assert.True(t, pkgerrors.IsValidation(err))
	assert.Equal(t, ResourceStatusPublished, resource.Status)
}

func TestNewImportedResource(t *testing.T) {
	resource := &Resource{
		ResourceOwner:     ResourceOwner{Owner: "importer"},
		Publisher:         Organization{ID: "customer-1"},
		EntityDescription: EntityDescription{MainTitle: "Imported"},
	}

	imported, err := NewImportedResource(resource, ImportSource{Source: "Cristin", SourceIdentifier: "42"}, "importer")
	require.NoError(t, err)

	assert.Equal(t, ResourceStatusPublished, imported.Status)
	assert.NotNil(t, imported.PublishedDate)
	assert.Equal(t, ImportedResourceEvent, imported.ResourceEvent.Type)
	require.Len(t, imported.ImportDetails, 1)
	assert.Equal(t, "42", imported.ImportDetails[0].ImportSource.SourceIdentifier)

	_, err = NewImportedResource(resource, ImportSource{Source: "Cristin"}, "importer")
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestIsDegree(t *testing.T) {
	resource := draftResource(t, "Thesis")
	resource.EntityDescription.Reference = &Reference{PublicationInstance: &PublicationInstance{Type: "DegreeMaster"}}
	assert.True(t, resource.IsDegree(config.DefaultDomainConfig()))

	resource.EntityDescription.Reference.PublicationInstance.Type = "AcademicArticle"
	assert.False(t, resource.IsDegree(nil))
}

func TestMergeFilesIsOrderIndependent(t *testing.T) {
	link := NewLinkArtifact(AssociatedLink{ID: "https://example.org"})
	a := File{Identifier: mustID(t), Name: "a", Type: FileTypeOpen}
	b := File{Identifier: mustID(t), Name: "b", Type: FileTypeOpen}

	first := MergeFiles(AssociatedArtifacts{link}, []File{a, b})
	second := MergeFiles(AssociatedArtifacts{link, NewFileArtifact(a)}, []File{b, a})

	assert.Equal(t, first, second)
	assert.Len(t, first, 3)
	assert.Equal(t, AssociatedArtifacts{link}, first.WithoutFiles())
}
