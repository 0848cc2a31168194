package entities

import (
	"strings"
	"time"

	"publication-backend/domain/config"
	"publication-backend/domain/core/valueobjects"
	"publication-backend/domain/events"
	pkgerrors "publication-backend/pkg/errors"
	"publication-backend/pkg/utils"
)

// ResourceStatus is the publication lifecycle state
type ResourceStatus string

const (
	ResourceStatusDraft             ResourceStatus = "DRAFT"
	ResourceStatusPublishedMetadata ResourceStatus = "PUBLISHED_METADATA"
	ResourceStatusPublished         ResourceStatus = "PUBLISHED"
	ResourceStatusUnpublished       ResourceStatus = "UNPUBLISHED"
	ResourceStatusDeleted           ResourceStatus = "DELETED"
	ResourceStatusDraftForDeletion  ResourceStatus = "DRAFT_FOR_DELETION"
)

// IsValid reports whether s is a known status
func (s ResourceStatus) IsValid() bool {
	switch s {
	case ResourceStatusDraft, ResourceStatusPublishedMetadata, ResourceStatusPublished,
		ResourceStatusUnpublished, ResourceStatusDeleted, ResourceStatusDraftForDeletion:
		return true
	}
	return false
}

// IsPublishable reports whether Publish may move the resource to PUBLISHED
func (s ResourceStatus) IsPublishable() bool {
	return s == ResourceStatusDraft || s == ResourceStatusPublishedMetadata || s == ResourceStatusUnpublished
}

// IsTerminal reports whether no further lifecycle transition is possible
func (s ResourceStatus) IsTerminal() bool {
	return s == ResourceStatusDeleted
}

// IsRemovedOrPendingRemoval reports whether tickets may no longer be opened
func (s ResourceStatus) IsRemovedOrPendingRemoval() bool {
	return s == ResourceStatusDeleted || s == ResourceStatusDraftForDeletion
}

// ResourceEventType names the last lifecycle transition of a resource
type ResourceEventType string

const (
	PublishedResourceEvent   ResourceEventType = "PublishedResourceEvent"
	UnpublishedResourceEvent ResourceEventType = "UnpublishedResourceEvent"
	RepublishedResourceEvent ResourceEventType = "RepublishedResourceEvent"
	DeletedResourceEvent     ResourceEventType = "DeletedResourceEvent"
	ImportedResourceEvent    ResourceEventType = "ImportedResourceEvent"
	MarkedForDeletionEvent   ResourceEventType = "MarkedForDeletionResourceEvent"
)

// ResourceEvent captures the last lifecycle transition with its actor
type ResourceEvent struct {
	Type        ResourceEventType `json:"type"`
	User        string            `json:"user"`
	Institution string            `json:"institution,omitempty"`
	Date        time.Time         `json:"date"`
	Comment     string            `json:"comment,omitempty"`
	Source      *ImportSource     `json:"importSource,omitempty"`
}

// ResourceOwner identifies the user who owns the resource
type ResourceOwner struct {
	Owner            string `json:"owner" validate:"required"`
	OwnerAffiliation string `json:"ownerAffiliation,omitempty"`
}

// Organization references a customer or unit
type Organization struct {
	ID string `json:"id" validate:"required"`
}

// PublicationDate is a possibly partial date
type PublicationDate struct {
	Year  string `json:"year,omitempty"`
	Month string `json:"month,omitempty"`
	Day   string `json:"day,omitempty"`
}

// Contributor is a person credited on the resource
type Contributor struct {
	Name          string   `json:"name" validate:"required"`
	Role          string   `json:"role,omitempty"`
	Sequence      int      `json:"sequence,omitempty"`
	Affiliations  []string `json:"affiliations,omitempty"`
	Corresponding bool     `json:"correspondingAuthor,omitempty"`
}

// PublicationContext describes where the resource was published
type PublicationContext struct {
	Type              string `json:"type"`
	ChannelIdentifier string `json:"channelIdentifier,omitempty"`
	ChannelType       string `json:"channelType,omitempty"`
}

// PublicationInstance describes what kind of publication the resource is
type PublicationInstance struct {
	Type string `json:"type"`
}

// Reference ties the resource to its publication channel and instance type
type Reference struct {
	Doi                 string               `json:"doi,omitempty"`
	PublicationContext  *PublicationContext  `json:"publicationContext,omitempty"`
	PublicationInstance *PublicationInstance `json:"publicationInstance,omitempty"`
}

// EntityDescription holds the descriptive metadata
type EntityDescription struct {
	MainTitle         string            `json:"mainTitle,omitempty"`
	AlternativeTitles map[string]string `json:"alternativeTitles,omitempty"`
	Abstract          string            `json:"abstract,omitempty"`
	Language          string            `json:"language,omitempty"`
	PublicationDate   *PublicationDate  `json:"publicationDate,omitempty"`
	Contributors      []Contributor     `json:"contributors,omitempty" validate:"dive"`
	Tags              []string          `json:"tags,omitempty"`
	Reference         *Reference        `json:"reference,omitempty"`
}

// AdditionalIdentifier is an identifier assigned by another system
type AdditionalIdentifier struct {
	SourceName string `json:"sourceName" validate:"required"`
	Value      string `json:"value" validate:"required"`
}

// Funding credits a funding source
type Funding struct {
	Source     string `json:"source" validate:"required"`
	Identifier string `json:"identifier,omitempty"`
	Label      string `json:"label,omitempty"`
}

// ImportSource names the external system and record a resource came from
type ImportSource struct {
	Source           string `json:"source" validate:"required"`
	SourceIdentifier string `json:"sourceIdentifier" validate:"required"`
}

// ImportDetail records one import of the resource
type ImportDetail struct {
	ImportSource ImportSource `json:"importSource"`
	ImportDate   time.Time    `json:"importDate"`
}

// Resource is the publication metadata aggregate root.
// Status changes only through the lifecycle methods below.
type Resource struct {
	Identifier            valueobjects.Identifier `json:"identifier"`
	Status                ResourceStatus          `json:"status"`
	ResourceOwner         ResourceOwner           `json:"resourceOwner"`
	Publisher             Organization            `json:"publisher"`
	CreatedDate           time.Time               `json:"createdDate"`
	ModifiedDate          time.Time               `json:"modifiedDate"`
	PublishedDate         *time.Time              `json:"publishedDate,omitempty"`
	EntityDescription     EntityDescription       `json:"entityDescription"`
	AdditionalIdentifiers []AdditionalIdentifier  `json:"additionalIdentifiers,omitempty" validate:"dive"`
	Fundings              []Funding               `json:"fundings,omitempty" validate:"dive"`
	Subjects              []string                `json:"subjects,omitempty"`
	Doi                   string                  `json:"doi,omitempty"`
	Handle                string                  `json:"handle,omitempty"`
	AssociatedArtifacts   AssociatedArtifacts     `json:"associatedArtifacts,omitempty"`
	ResourceEvent         *ResourceEvent          `json:"resourceEvent,omitempty"`
	ImportDetails         []ImportDetail          `json:"importDetails,omitempty"`

	version valueobjects.RowVersion
	eventLog
}

// NewResource creates a draft resource owned by the calling user
func NewResource(user valueobjects.UserInstance, description EntityDescription) (*Resource, error) {
	if user.Username == "" {
		return nil, pkgerrors.NewValidationError("resourceOwner.owner", "owner cannot be empty")
	}
	if user.CustomerID == "" {
		return nil, pkgerrors.NewValidationError("publisher.id", "customer cannot be empty")
	}

	ts := now()
	resource := &Resource{
		Identifier:        valueobjects.NextIdentifier(),
		Status:            ResourceStatusDraft,
		ResourceOwner:     ResourceOwner{Owner: user.Username, OwnerAffiliation: user.TopLevelOrgID},
		Publisher:         Organization{ID: user.CustomerID},
		CreatedDate:       ts,
		ModifiedDate:      ts,
		EntityDescription: description,
	}
	if err := resource.Validate(); err != nil {
		return nil, err
	}

	resource.raise(events.TypeResourceCreated, user.Username, "", ts)
	return resource, nil
}

// NewImportedResource prepares a fully formed resource handed over by the
// import pipeline. The resource keeps its status and metadata; an import
// event and detail are stamped on it.
func NewImportedResource(resource *Resource, source ImportSource, actor string) (*Resource, error) {
	if resource == nil {
		return nil, pkgerrors.NewValidationError("resource", "resource cannot be nil")
	}
	if err := utils.ValidateStruct(source); err != nil {
		return nil, err
	}

	ts := now()
	if resource.Identifier.IsZero() {
		resource.Identifier = valueobjects.NextIdentifier()
	}
	if resource.Status == "" {
		resource.Status = ResourceStatusPublished
	}
	if resource.CreatedDate.IsZero() {
		resource.CreatedDate = ts
	}
	if resource.Status == ResourceStatusPublished && resource.PublishedDate == nil {
		resource.PublishedDate = &ts
	}
	resource.ModifiedDate = ts
	resource.ImportDetails = append(resource.ImportDetails, ImportDetail{ImportSource: source, ImportDate: ts})
	resource.ResourceEvent = &ResourceEvent{
		Type:   ImportedResourceEvent,
		User:   actor,
		Date:   ts,
		Source: &source,
	}
	if err := resource.Validate(); err != nil {
		return nil, err
	}

	resource.raise(events.TypeResourceImported, actor, "", ts)
	return resource, nil
}

// Validate checks the structural constraints of a resource
func (r *Resource) Validate() error {
	if !r.Status.IsValid() {
		return pkgerrors.NewValidationError("status", "unknown resource status "+string(r.Status))
	}
	return utils.ValidateStruct(r)
}

// Entity implementation

func (r *Resource) ID() valueobjects.Identifier                { return r.Identifier }
func (r *Resource) EntityType() EntityType                     { return EntityTypeResource }
func (r *Resource) ResourceID() valueobjects.Identifier        { return r.Identifier }
func (r *Resource) Customer() string                           { return r.Publisher.ID }
func (r *Resource) OwnerName() string                          { return r.ResourceOwner.Owner }
func (r *Resource) StatusName() string                         { return string(r.Status) }
func (r *Resource) Version() valueobjects.RowVersion           { return r.version }
func (r *Resource) SetVersion(version valueobjects.RowVersion) { r.version = version }
func (r *Resource) Created() time.Time                         { return r.CreatedDate }
func (r *Resource) Modified() time.Time                        { return r.ModifiedDate }

// MainTitle returns the trimmed main title
func (r *Resource) MainTitle() string {
	return strings.TrimSpace(r.EntityDescription.MainTitle)
}

// InstanceType returns the publication instance type, if any
func (r *Resource) InstanceType() string {
	ref := r.EntityDescription.Reference
	if ref == nil || ref.PublicationInstance == nil {
		return ""
	}
	return ref.PublicationInstance.Type
}

// Channel returns the publication channel the resource is published in, if any
func (r *Resource) Channel() (identifier, channelType string, ok bool) {
	ref := r.EntityDescription.Reference
	if ref == nil || ref.PublicationContext == nil || ref.PublicationContext.ChannelIdentifier == "" {
		return "", "", false
	}
	return ref.PublicationContext.ChannelIdentifier, ref.PublicationContext.ChannelType, true
}

// IsDegree reports whether the resource is a degree thesis under cfg
func (r *Resource) IsDegree(cfg *config.DomainConfig) bool {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return cfg.IsDegree(r.InstanceType())
}

// CanPublish reports why the resource cannot be published from its current
// state. Opening a file approval ticket on publish requires it as well.
func (r *Resource) CanPublish() error {
	if !r.Status.IsPublishable() {
		return pkgerrors.NewIllegalTransitionError("resource", string(r.Status), string(ResourceStatusPublished))
	}
	return r.requireMainTitle()
}

func (r *Resource) requireMainTitle() error {
	if r.MainTitle() == "" {
		return pkgerrors.NewValidationError("entityDescription.mainTitle", "resource cannot be published without a main title")
	}
	return nil
}

// Publish moves the resource to PUBLISHED. Publishing a published resource
// is a no-op.
func (r *Resource) Publish(actor string) error {
	if r.Status == ResourceStatusPublished {
		return nil
	}
	if err := r.CanPublish(); err != nil {
		return err
	}

	old := r.Status
	ts := now()
	r.Status = ResourceStatusPublished
	r.PublishedDate = &ts
	r.ModifiedDate = ts
	r.ResourceEvent = &ResourceEvent{Type: PublishedResourceEvent, User: actor, Date: ts}

	r.raise(events.TypeResourcePublished, actor, old, ts)
	return nil
}

// PublishMetadata publishes only the metadata of a draft, leaving files to
// curator approval.
func (r *Resource) PublishMetadata(actor string) error {
	if r.Status == ResourceStatusPublishedMetadata {
		return nil
	}
	if r.Status != ResourceStatusDraft {
		return pkgerrors.NewIllegalTransitionError("resource", string(r.Status), string(ResourceStatusPublishedMetadata))
	}
	if err := r.requireMainTitle(); err != nil {
		return err
	}

	ts := now()
	r.Status = ResourceStatusPublishedMetadata
	r.ModifiedDate = ts

	r.raise(events.TypeResourceMetadataPublished, actor, ResourceStatusDraft, ts)
	return nil
}

// Republish restores an unpublished resource
func (r *Resource) Republish(actor string) error {
	if r.Status != ResourceStatusUnpublished {
		return pkgerrors.NewIllegalTransitionError("resource", string(r.Status), string(ResourceStatusPublished))
	}
	if err := r.requireMainTitle(); err != nil {
		return err
	}

	ts := now()
	r.Status = ResourceStatusPublished
	r.PublishedDate = &ts
	r.ModifiedDate = ts
	r.ResourceEvent = &ResourceEvent{Type: RepublishedResourceEvent, User: actor, Date: ts}

	r.raise(events.TypeResourceRepublished, actor, ResourceStatusUnpublished, ts)
	return nil
}

// Unpublish withdraws a published resource
func (r *Resource) Unpublish(actor, comment string) error {
	if r.Status != ResourceStatusPublished {
		return pkgerrors.NewIllegalTransitionError("resource", string(r.Status), string(ResourceStatusUnpublished))
	}
	if strings.TrimSpace(comment) == "" {
		return pkgerrors.NewValidationError("comment", "unpublishing requires a comment")
	}

	ts := now()
	r.Status = ResourceStatusUnpublished
	r.ModifiedDate = ts
	r.ResourceEvent = &ResourceEvent{Type: UnpublishedResourceEvent, User: actor, Date: ts, Comment: comment}

	r.raise(events.TypeResourceUnpublished, actor, ResourceStatusPublished, ts)
	return nil
}

// Delete soft-deletes the resource. The record stays readable by identifier.
func (r *Resource) Delete(actor string) error {
	switch r.Status {
	case ResourceStatusDraft, ResourceStatusPublishedMetadata, ResourceStatusUnpublished, ResourceStatusDraftForDeletion:
	default:
		return pkgerrors.NewIllegalTransitionError("resource", string(r.Status), string(ResourceStatusDeleted))
	}

	old := r.Status
	ts := now()
	r.Status = ResourceStatusDeleted
	r.ModifiedDate = ts
	r.ResourceEvent = &ResourceEvent{Type: DeletedResourceEvent, User: actor, Date: ts}

	r.raise(events.TypeResourceDeleted, actor, old, ts)
	return nil
}

// MarkForDeletion parks a non-terminal resource awaiting deletion
func (r *Resource) MarkForDeletion(actor string) error {
	if r.Status == ResourceStatusDraftForDeletion {
		return nil
	}
	if r.Status.IsTerminal() {
		return pkgerrors.NewIllegalTransitionError("resource", string(r.Status), string(ResourceStatusDraftForDeletion))
	}

	old := r.Status
	ts := now()
	r.Status = ResourceStatusDraftForDeletion
	r.ModifiedDate = ts
	r.ResourceEvent = &ResourceEvent{Type: MarkedForDeletionEvent, User: actor, Date: ts}

	r.raise(events.TypeResourceMarkedForDeletion, actor, old, ts)
	return nil
}

// UpdateMetadata replaces the descriptive metadata
func (r *Resource) UpdateMetadata(description EntityDescription) error {
	if r.Status.IsTerminal() {
		return pkgerrors.NewIllegalTransitionError("resource", string(r.Status), string(r.Status))
	}
	previous := r.EntityDescription
	r.EntityDescription = description
	if err := r.Validate(); err != nil {
		r.EntityDescription = previous
		return err
	}
	r.ModifiedDate = now()
	return nil
}

// NonFileArtifacts returns the artifacts stored inline on the resource record
func (r *Resource) NonFileArtifacts() AssociatedArtifacts {
	return r.AssociatedArtifacts.WithoutFiles()
}

// Copy returns a deep enough copy for snapshotting into tickets and tests
func (r *Resource) Copy() *Resource {
	c := *r
	c.AssociatedArtifacts = append(AssociatedArtifacts(nil), r.AssociatedArtifacts...)
	c.eventLog = eventLog{}
	return &c
}

func (r *Resource) raise(eventType, actor string, old ResourceStatus, ts time.Time) {
	r.addEvent(events.NewResourceLifecycleChanged(
		eventType,
		r.Identifier.String(),
		r.Publisher.ID,
		actor,
		string(old),
		string(r.Status),
		ts,
	))
}
