package entities

import (
	"sort"
	"strings"
	"time"

	"publication-backend/domain/core/valueobjects"
	"publication-backend/domain/events"
	pkgerrors "publication-backend/pkg/errors"
	"publication-backend/pkg/utils"
)

// TicketType tags the ticket variants
type TicketType string

const (
	TicketTypeDoiRequest            TicketType = "DoiRequest"
	TicketTypePublishingRequest     TicketType = "PublishingRequestCase"
	TicketTypeFilesApprovalThesis   TicketType = "FilesApprovalThesis"
	TicketTypeUnpublishRequest      TicketType = "UnpublishRequest"
	TicketTypeGeneralSupportRequest TicketType = "GeneralSupportRequest"
)

// TicketTypes lists every variant
var TicketTypes = []TicketType{
	TicketTypeDoiRequest,
	TicketTypePublishingRequest,
	TicketTypeFilesApprovalThesis,
	TicketTypeUnpublishRequest,
	TicketTypeGeneralSupportRequest,
}

// IsValid reports whether t is a known variant
func (t TicketType) IsValid() bool {
	for _, known := range TicketTypes {
		if t == known {
			return true
		}
	}
	return false
}

// IsFileApproval reports whether the variant tracks per-file decisions
func (t TicketType) IsFileApproval() bool {
	return t == TicketTypePublishingRequest || t == TicketTypeFilesApprovalThesis
}

// DoiRequestDetails is the DoiRequest payload
type DoiRequestDetails struct {
	ResourceStatus ResourceStatus `json:"resourceStatus"`
}

// PublishingRequestDetails is the PublishingRequestCase payload
type PublishingRequestDetails struct {
	Workflow valueobjects.PublishingWorkflow `json:"workflow"`
	FileApproval
}

// FilesApprovalDetails is the FilesApprovalThesis payload
type FilesApprovalDetails struct {
	ResponsibilityArea string `json:"responsibilityArea,omitempty"`
	FileApproval
}

// UnpublishDetails is the UnpublishRequest payload
type UnpublishDetails struct {
	Comment string `json:"comment,omitempty"`
}

// SupportDetails is the GeneralSupportRequest payload
type SupportDetails struct {
	Message string `json:"message,omitempty"`
}

// TicketEntry is a workflow case attached to one resource. Shared fields
// live on the struct; exactly one variant payload, selected by Type, is set.
type TicketEntry struct {
	Identifier              valueobjects.Identifier `json:"identifier"`
	Type                    TicketType              `json:"type"`
	ResourceIdentifier      valueobjects.Identifier `json:"resourceIdentifier"`
	CustomerID              string                  `json:"customerId" validate:"required"`
	ReceivingOrganizationID string                  `json:"receivingOrganizationId,omitempty"`
	Owner                   string                  `json:"owner" validate:"required"`
	OwnerAffiliation        string                  `json:"ownerAffiliation,omitempty"`
	Status                  TicketStatus            `json:"status"`
	ViewedBy                []string                `json:"viewedBy,omitempty"`
	Assignee                string                  `json:"assignee,omitempty"`
	FinalizedBy             string                  `json:"finalizedBy,omitempty"`
	FinalizedDate           *time.Time              `json:"finalizedDate,omitempty"`
	CreatedDate             time.Time               `json:"createdDate"`
	ModifiedDate            time.Time               `json:"modifiedDate"`

	DoiRequest        *DoiRequestDetails        `json:"doiRequest,omitempty"`
	PublishingRequest *PublishingRequestDetails `json:"publishingRequest,omitempty"`
	FilesApproval     *FilesApprovalDetails     `json:"filesApproval,omitempty"`
	Unpublish         *UnpublishDetails         `json:"unpublish,omitempty"`
	Support           *SupportDetails           `json:"support,omitempty"`

	version valueobjects.RowVersion
	// storedStatus is the status last read from or written to the store
	storedStatus TicketStatus
	eventLog
}

// NewDoiRequest opens a DOI request for resource
func NewDoiRequest(resource *Resource, user valueobjects.UserInstance) (*TicketEntry, error) {
	ticket, err := newTicket(TicketTypeDoiRequest, resource, user)
	if err != nil {
		return nil, err
	}
	ticket.DoiRequest = &DoiRequestDetails{ResourceStatus: resource.Status}
	return ticket.opened()
}

// NewPublishingRequest opens a publishing request covering the pending files
func NewPublishingRequest(resource *Resource, user valueobjects.UserInstance, workflow valueobjects.PublishingWorkflow, files []*FileEntry, receivingOrganization string) (*TicketEntry, error) {
	if !workflow.IsValid() {
		return nil, pkgerrors.NewValidationError("workflow", "unknown publishing workflow "+string(workflow))
	}
	ticket, err := newTicket(TicketTypePublishingRequest, resource, user)
	if err != nil {
		return nil, err
	}
	ticket.PublishingRequest = &PublishingRequestDetails{Workflow: workflow, FileApproval: NewFileApproval(files)}
	ticket.receiveAt(receivingOrganization)
	return ticket.opened()
}

// NewFilesApprovalThesis opens a file approval case for a degree resource
func NewFilesApprovalThesis(resource *Resource, user valueobjects.UserInstance, files []*FileEntry, receivingOrganization, responsibilityArea string) (*TicketEntry, error) {
	ticket, err := newTicket(TicketTypeFilesApprovalThesis, resource, user)
	if err != nil {
		return nil, err
	}
	ticket.FilesApproval = &FilesApprovalDetails{ResponsibilityArea: responsibilityArea, FileApproval: NewFileApproval(files)}
	ticket.receiveAt(receivingOrganization)
	return ticket.opened()
}

// NewUnpublishRequest opens an unpublish request for a published resource
func NewUnpublishRequest(resource *Resource, user valueobjects.UserInstance, comment string) (*TicketEntry, error) {
	ticket, err := newTicket(TicketTypeUnpublishRequest, resource, user)
	if err != nil {
		return nil, err
	}
	ticket.Unpublish = &UnpublishDetails{Comment: comment}
	return ticket.opened()
}

// NewGeneralSupportRequest opens a support case
func NewGeneralSupportRequest(resource *Resource, user valueobjects.UserInstance, message string) (*TicketEntry, error) {
	ticket, err := newTicket(TicketTypeGeneralSupportRequest, resource, user)
	if err != nil {
		return nil, err
	}
	ticket.Support = &SupportDetails{Message: message}
	return ticket.opened()
}

func newTicket(ticketType TicketType, resource *Resource, user valueobjects.UserInstance) (*TicketEntry, error) {
	if resource == nil {
		return nil, pkgerrors.NewValidationError("resourceIdentifier", "ticket must belong to a resource")
	}
	if err := checkCreation(ticketType, resource); err != nil {
		return nil, err
	}

	ts := now()
	return &TicketEntry{
		Identifier:              valueobjects.NextIdentifier(),
		Type:                    ticketType,
		ResourceIdentifier:      resource.Identifier,
		CustomerID:              resource.Customer(),
		ReceivingOrganizationID: user.TopLevelOrgID,
		Owner:                   user.Username,
		OwnerAffiliation:        user.TopLevelOrgID,
		Status:                  initialTicketStatus(ticketType, resource),
		CreatedDate:             ts,
		ModifiedDate:            ts,
	}, nil
}

// initialTicketStatus lets owners draft DOI and support requests before
// the resource is published
func initialTicketStatus(ticketType TicketType, resource *Resource) TicketStatus {
	if resource.Status == ResourceStatusDraft &&
		(ticketType == TicketTypeDoiRequest || ticketType == TicketTypeGeneralSupportRequest) {
		return TicketStatusNew
	}
	return TicketStatusPending
}

func (t *TicketEntry) receiveAt(organization string) {
	if organization != "" {
		t.ReceivingOrganizationID = organization
	}
}

func (t *TicketEntry) opened() (*TicketEntry, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	t.addEvent(events.NewTicketCreated(t.Identifier.String(), string(t.Type), t.ResourceIdentifier.String(),
		t.CustomerID, string(t.Status), t.CreatedDate))
	return t, nil
}

// Validate checks the structural constraints and the union tag
func (t *TicketEntry) Validate() error {
	if !t.Type.IsValid() {
		return pkgerrors.NewValidationError("type", "unknown ticket type "+string(t.Type))
	}
	if !t.Status.IsValid() {
		return pkgerrors.NewValidationError("status", "unknown ticket status "+string(t.Status))
	}
	if t.ResourceIdentifier.IsZero() {
		return pkgerrors.NewValidationError("resourceIdentifier", "ticket must belong to a resource")
	}
	if t.payloadTag() != t.Type {
		return pkgerrors.NewValidationError("type", "ticket payload does not match type "+string(t.Type))
	}
	return utils.ValidateStruct(t)
}

// payloadTag returns the variant of the single payload set, or "" when the
// payload count is not exactly one
func (t *TicketEntry) payloadTag() TicketType {
	var tag TicketType
	count := 0
	if t.DoiRequest != nil {
		tag, count = TicketTypeDoiRequest, count+1
	}
	if t.PublishingRequest != nil {
		tag, count = TicketTypePublishingRequest, count+1
	}
	if t.FilesApproval != nil {
		tag, count = TicketTypeFilesApprovalThesis, count+1
	}
	if t.Unpublish != nil {
		tag, count = TicketTypeUnpublishRequest, count+1
	}
	if t.Support != nil {
		tag, count = TicketTypeGeneralSupportRequest, count+1
	}
	if count != 1 {
		return ""
	}
	return tag
}

// Entity implementation

func (t *TicketEntry) ID() valueobjects.Identifier                { return t.Identifier }
func (t *TicketEntry) EntityType() EntityType                     { return EntityTypeTicket }
func (t *TicketEntry) ResourceID() valueobjects.Identifier        { return t.ResourceIdentifier }
func (t *TicketEntry) Customer() string                           { return t.CustomerID }
func (t *TicketEntry) OwnerName() string                          { return t.Owner }
func (t *TicketEntry) StatusName() string                         { return string(t.Status) }
func (t *TicketEntry) Version() valueobjects.RowVersion           { return t.version }
func (t *TicketEntry) SetVersion(version valueobjects.RowVersion) { t.version = version }
func (t *TicketEntry) Created() time.Time                         { return t.CreatedDate }
func (t *TicketEntry) Modified() time.Time                        { return t.ModifiedDate }

// FileApproval returns the per-file sub-state of file approval tickets
func (t *TicketEntry) FileApproval() *FileApproval {
	switch {
	case t.PublishingRequest != nil:
		return &t.PublishingRequest.FileApproval
	case t.FilesApproval != nil:
		return &t.FilesApproval.FileApproval
	}
	return nil
}

// HoldsGuard reports whether the ticket must own its active-ticket guard
func (t *TicketEntry) HoldsGuard() bool {
	return t.Status.IsActive()
}

// ReleasesGuard reports whether persisting the ticket must remove the guard
// planted while it was active
func (t *TicketEntry) ReleasesGuard() bool {
	return t.storedStatus.IsActive() && !t.Status.IsActive()
}

// StoredStatus is the status the store currently holds for the ticket
func (t *TicketEntry) StoredStatus() TicketStatus {
	return t.storedStatus
}

// SyncStoredStatus records that the current status has been persisted
func (t *TicketEntry) SyncStoredStatus() {
	t.storedStatus = t.Status
}

// MarkPending moves a new ticket to PENDING
func (t *TicketEntry) MarkPending(actor string) error {
	return t.transition(TicketStatusPending, actor, nil)
}

// Complete finalizes the ticket. File approval tickets approve every file
// still pending; resource is consulted by the variant hooks.
func (t *TicketEntry) Complete(resource *Resource, actor string) error {
	if err := t.transition(TicketStatusCompleted, actor, resource); err != nil {
		return err
	}
	if approval := t.FileApproval(); approval != nil {
		approval.ApproveRemaining()
	}
	return nil
}

// Close rejects the ticket
func (t *TicketEntry) Close(actor string) error {
	return t.transition(TicketStatusClosed, actor, nil)
}

// Remove withdraws a ticket that was never picked up
func (t *TicketEntry) Remove(actor string) error {
	return t.transition(TicketStatusRemoved, actor, nil)
}

// Assign sets the curator responsible for the ticket
func (t *TicketEntry) Assign(assignee string) error {
	if t.Status.IsTerminal() {
		return pkgerrors.NewIllegalTransitionError("ticket", string(t.Status), string(t.Status)).
			WithDetail("field", "assignee")
	}
	t.Assignee = strings.TrimSpace(assignee)
	t.ModifiedDate = now()
	return nil
}

// MarkViewedBy adds user to the viewers. It reports whether the set changed.
func (t *TicketEntry) MarkViewedBy(user string) bool {
	i := sort.SearchStrings(t.ViewedBy, user)
	if i < len(t.ViewedBy) && t.ViewedBy[i] == user {
		return false
	}
	t.ViewedBy = append(t.ViewedBy, "")
	copy(t.ViewedBy[i+1:], t.ViewedBy[i:])
	t.ViewedBy[i] = user
	return true
}

// MarkUnviewedBy removes user from the viewers. It reports whether the set changed.
func (t *TicketEntry) MarkUnviewedBy(user string) bool {
	i := sort.SearchStrings(t.ViewedBy, user)
	if i >= len(t.ViewedBy) || t.ViewedBy[i] != user {
		return false
	}
	t.ViewedBy = append(t.ViewedBy[:i], t.ViewedBy[i+1:]...)
	return true
}

// ApproveFile records approval of one pending file
func (t *TicketEntry) ApproveFile(id valueobjects.Identifier) error {
	approval, err := t.openFileApproval()
	if err != nil {
		return err
	}
	if err := approval.Approve(id); err != nil {
		return err
	}
	t.ModifiedDate = now()
	return nil
}

// RejectFile records rejection of one pending file
func (t *TicketEntry) RejectFile(id valueobjects.Identifier) error {
	approval, err := t.openFileApproval()
	if err != nil {
		return err
	}
	if err := approval.Reject(id); err != nil {
		return err
	}
	t.ModifiedDate = now()
	return nil
}

func (t *TicketEntry) openFileApproval() (*FileApproval, error) {
	approval := t.FileApproval()
	if approval == nil {
		return nil, pkgerrors.NewValidationError("type", string(t.Type)+" does not track file approvals")
	}
	if t.Status.IsTerminal() {
		return nil, pkgerrors.NewIllegalTransitionError("ticket", string(t.Status), string(t.Status))
	}
	return approval, nil
}

func (t *TicketEntry) transition(target TicketStatus, actor string, resource *Resource) error {
	if !t.Status.CanTransitionTo(target) {
		return pkgerrors.NewIllegalTransitionError("ticket", string(t.Status), string(target))
	}
	if target == TicketStatusCompleted {
		if err := checkCompletion(t.Type, resource); err != nil {
			return err
		}
	}

	old := t.Status
	ts := now()
	t.Status = target
	t.ModifiedDate = ts
	if target.IsTerminal() {
		t.FinalizedBy = actor
		t.FinalizedDate = &ts
	}

	t.addEvent(events.NewTicketStatusChanged(t.Identifier.String(), string(t.Type), t.ResourceIdentifier.String(),
		t.CustomerID, actor, string(old), string(target), ts))
	return nil
}

// Variant hooks

func checkCreation(ticketType TicketType, resource *Resource) error {
	switch ticketType {
	case TicketTypePublishingRequest, TicketTypeFilesApprovalThesis, TicketTypeDoiRequest:
		if resource.Status.IsRemovedOrPendingRemoval() {
			return resourceStatusError(ticketType, resource, "cannot be opened for a resource in status")
		}
	case TicketTypeUnpublishRequest:
		if resource.Status != ResourceStatusPublished {
			return resourceStatusError(ticketType, resource, "requires a published resource, found")
		}
	case TicketTypeGeneralSupportRequest:
		if resource.Status == ResourceStatusDeleted {
			return resourceStatusError(ticketType, resource, "cannot be opened for a resource in status")
		}
	default:
		return pkgerrors.NewValidationError("type", "unknown ticket type "+string(ticketType))
	}
	return nil
}

func checkCompletion(ticketType TicketType, resource *Resource) error {
	switch ticketType {
	case TicketTypeDoiRequest, TicketTypeUnpublishRequest:
		if resource == nil || resource.Status != ResourceStatusPublished {
			return resourceStatusError(ticketType, resource, "can only be completed for a published resource, found")
		}
	case TicketTypePublishingRequest, TicketTypeFilesApprovalThesis:
		if resource == nil || resource.Status.IsRemovedOrPendingRemoval() {
			return resourceStatusError(ticketType, resource, "cannot be completed for a resource in status")
		}
	}
	return nil
}

func resourceStatusError(ticketType TicketType, resource *Resource, message string) error {
	status := "UNKNOWN"
	if resource != nil {
		status = string(resource.Status)
	}
	return pkgerrors.NewValidationError("resource.status", string(ticketType)+" "+message+" "+status)
}
