package entities

import (
	"time"

	"publication-backend/domain/core/valueobjects"
	pkgerrors "publication-backend/pkg/errors"

	"github.com/google/uuid"
)

// PublicationChannel records which customer claims the channel a resource
// is published in. It lives in the resource's partition.
type PublicationChannel struct {
	Identifier              valueobjects.Identifier `json:"identifier"`
	ResourceIdentifier      valueobjects.Identifier `json:"resourceIdentifier"`
	CustomerID              string                  `json:"customerId" validate:"required"`
	ChannelIdentifier       string                  `json:"channelIdentifier" validate:"required"`
	ChannelType             string                  `json:"channelType,omitempty"`
	ClaimedByCustomerID     string                  `json:"claimedByCustomerId" validate:"required"`
	ClaimedByOrganizationID string                  `json:"claimedByOrganizationId,omitempty"`
	CreatedDate             time.Time               `json:"createdDate"`
	ModifiedDate            time.Time               `json:"modifiedDate"`

	version valueobjects.RowVersion
}

// PublicationChannelIdentifier derives the projection identifier from the
// resource and channel, so projecting the same claim twice collides.
func PublicationChannelIdentifier(resourceID valueobjects.Identifier, channelIdentifier string) valueobjects.Identifier {
	namespace, err := uuid.Parse(resourceID.String())
	if err != nil {
		namespace = uuid.NameSpaceURL
	}
	return valueobjects.MustParseIdentifier(uuid.NewSHA1(namespace, []byte(channelIdentifier)).String())
}

// NewPublicationChannel projects a channel claim onto resource
func NewPublicationChannel(resource *Resource, channelIdentifier, channelType, claimedByCustomer, claimedByOrganization string) (*PublicationChannel, error) {
	if resource == nil {
		return nil, pkgerrors.NewValidationError("resourceIdentifier", "channel must belong to a resource")
	}
	if channelIdentifier == "" {
		return nil, pkgerrors.NewValidationError("channelIdentifier", "channel identifier is required")
	}
	if claimedByCustomer == "" {
		return nil, pkgerrors.NewValidationError("claimedByCustomerId", "claiming customer is required")
	}

	ts := now()
	return &PublicationChannel{
		Identifier:              PublicationChannelIdentifier(resource.Identifier, channelIdentifier),
		ResourceIdentifier:      resource.Identifier,
		CustomerID:              resource.Customer(),
		ChannelIdentifier:       channelIdentifier,
		ChannelType:             channelType,
		ClaimedByCustomerID:     claimedByCustomer,
		ClaimedByOrganizationID: claimedByOrganization,
		CreatedDate:             ts,
		ModifiedDate:            ts,
	}, nil
}

// Entity implementation

func (c *PublicationChannel) ID() valueobjects.Identifier                { return c.Identifier }
func (c *PublicationChannel) EntityType() EntityType                     { return EntityTypePublicationChannel }
func (c *PublicationChannel) ResourceID() valueobjects.Identifier        { return c.ResourceIdentifier }
func (c *PublicationChannel) Customer() string                           { return c.CustomerID }
func (c *PublicationChannel) OwnerName() string                          { return "" }
func (c *PublicationChannel) StatusName() string                         { return "" }
func (c *PublicationChannel) Version() valueobjects.RowVersion           { return c.version }
func (c *PublicationChannel) SetVersion(version valueobjects.RowVersion) { c.version = version }
func (c *PublicationChannel) Created() time.Time                         { return c.CreatedDate }
func (c *PublicationChannel) Modified() time.Time                        { return c.ModifiedDate }

// RelationshipRole names how a child relates to its parent
type RelationshipRole string

const (
	RoleChapterOf RelationshipRole = "CHAPTER_OF"
	RolePartOf    RelationshipRole = "PART_OF"
)

// ResourceRelationship links a child resource to its single parent.
// It is keyed by the child, so a second parent collides with the first.
type ResourceRelationship struct {
	ParentIdentifier valueobjects.Identifier `json:"parentIdentifier"`
	ChildIdentifier  valueobjects.Identifier `json:"childIdentifier"`
	CustomerID       string                  `json:"customerId" validate:"required"`
	Role             RelationshipRole        `json:"role" validate:"required"`
	CreatedDate      time.Time               `json:"createdDate"`
	ModifiedDate     time.Time               `json:"modifiedDate"`

	version valueobjects.RowVersion
}

// NewResourceRelationship links child to parent. Both must share a customer.
func NewResourceRelationship(parent, child *Resource, role RelationshipRole) (*ResourceRelationship, error) {
	if parent == nil || child == nil {
		return nil, pkgerrors.NewValidationError("parentIdentifier", "relationship needs both resources")
	}
	if parent.Identifier.Equals(child.Identifier) {
		return nil, pkgerrors.NewValidationError("parentIdentifier", "a resource cannot be its own parent")
	}
	if parent.Customer() != child.Customer() {
		return nil, pkgerrors.NewValidationError("parentIdentifier", "parent belongs to another customer")
	}
	if role == "" {
		role = RolePartOf
	}

	ts := now()
	return &ResourceRelationship{
		ParentIdentifier: parent.Identifier,
		ChildIdentifier:  child.Identifier,
		CustomerID:       child.Customer(),
		Role:             role,
		CreatedDate:      ts,
		ModifiedDate:     ts,
	}, nil
}

// Entity implementation

func (r *ResourceRelationship) ID() valueobjects.Identifier                { return r.ChildIdentifier }
func (r *ResourceRelationship) EntityType() EntityType                     { return EntityTypeResourceRelationship }
func (r *ResourceRelationship) ResourceID() valueobjects.Identifier        { return r.ChildIdentifier }
func (r *ResourceRelationship) Customer() string                           { return r.CustomerID }
func (r *ResourceRelationship) OwnerName() string                          { return "" }
func (r *ResourceRelationship) StatusName() string                         { return string(r.Role) }
func (r *ResourceRelationship) Version() valueobjects.RowVersion           { return r.version }
func (r *ResourceRelationship) SetVersion(version valueobjects.RowVersion) { r.version = version }
func (r *ResourceRelationship) Created() time.Time                         { return r.CreatedDate }
func (r *ResourceRelationship) Modified() time.Time                        { return r.ModifiedDate }
