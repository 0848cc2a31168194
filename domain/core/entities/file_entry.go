package entities

import (
	"time"

	"publication-backend/domain/core/valueobjects"
	"publication-backend/domain/events"
	pkgerrors "publication-backend/pkg/errors"
	"publication-backend/pkg/utils"
)

// FileEventType names the last transition of a file
type FileEventType string

const (
	FileUploadedEvent FileEventType = "FileUploadedEvent"
	FileApprovedEvent FileEventType = "FileApprovedEvent"
	FileRejectedEvent FileEventType = "FileRejectedEvent"
	FileUpdatedEvent  FileEventType = "FileUpdatedEvent"
	FileDeletedEvent  FileEventType = "FileDeletedEvent"
)

// FileEvent captures the last file transition
type FileEvent struct {
	Type FileEventType `json:"type"`
	User string        `json:"user"`
	Date time.Time     `json:"date"`
}

// FileEntryDeletedStatus is the status attribute of a soft-deleted file
const FileEntryDeletedStatus = "DELETED"

// FileEntry is an uploaded file attached to exactly one resource.
// Its identifier is the wrapped file's identifier.
type FileEntry struct {
	ResourceIdentifier valueobjects.Identifier `json:"resourceIdentifier"`
	CustomerID         string                  `json:"customerId" validate:"required"`
	Owner              string                  `json:"owner" validate:"required"`
	OwnerAffiliation   string                  `json:"ownerAffiliation,omitempty"`
	File               File                    `json:"file"`
	FileEvent          *FileEvent              `json:"fileEvent,omitempty"`
	CreatedDate        time.Time               `json:"createdDate"`
	ModifiedDate       time.Time               `json:"modifiedDate"`

	version valueobjects.RowVersion
	eventLog
}

// NewFileEntry attaches file to resource on behalf of user
func NewFileEntry(file File, resource *Resource, user valueobjects.UserInstance) (*FileEntry, error) {
	if resource == nil {
		return nil, pkgerrors.NewValidationError("resourceIdentifier", "file must belong to a resource")
	}
	if file.Identifier.IsZero() {
		file.Identifier = valueobjects.NextIdentifier()
	}
	if file.Type == "" {
		file.Type = FileTypeUploaded
	}

	ts := now()
	if file.UploadDetails == nil {
		file.UploadDetails = &UploadDetails{UploadedBy: user.Username, UploadedDate: ts}
	}

	entry := &FileEntry{
		ResourceIdentifier: resource.Identifier,
		CustomerID:         resource.Customer(),
		Owner:              user.Username,
		OwnerAffiliation:   user.TopLevelOrgID,
		File:               file,
		FileEvent:          &FileEvent{Type: FileUploadedEvent, User: user.Username, Date: ts},
		CreatedDate:        ts,
		ModifiedDate:       ts,
	}
	if err := entry.Validate(); err != nil {
		return nil, err
	}
	return entry, nil
}

// Validate checks the structural constraints of a file entry
func (f *FileEntry) Validate() error {
	if f.ResourceIdentifier.IsZero() {
		return pkgerrors.NewValidationError("resourceIdentifier", "file must belong to a resource")
	}
	if !f.File.Type.IsValid() {
		return pkgerrors.NewValidationError("file.type", "unknown file type "+string(f.File.Type))
	}
	return utils.ValidateStruct(f)
}

// Entity implementation

func (f *FileEntry) ID() valueobjects.Identifier                { return f.File.Identifier }
func (f *FileEntry) EntityType() EntityType                     { return EntityTypeFileEntry }
func (f *FileEntry) ResourceID() valueobjects.Identifier        { return f.ResourceIdentifier }
func (f *FileEntry) Customer() string                           { return f.CustomerID }
func (f *FileEntry) OwnerName() string                          { return f.Owner }
func (f *FileEntry) Version() valueobjects.RowVersion           { return f.version }
func (f *FileEntry) SetVersion(version valueobjects.RowVersion) { f.version = version }
func (f *FileEntry) Created() time.Time                         { return f.CreatedDate }
func (f *FileEntry) Modified() time.Time                        { return f.ModifiedDate }

// StatusName is the file type, or DELETED once soft-deleted
func (f *FileEntry) StatusName() string {
	if f.IsSoftDeleted() {
		return FileEntryDeletedStatus
	}
	return string(f.File.Type)
}

// IsSoftDeleted reports whether the file was removed from its resource
func (f *FileEntry) IsSoftDeleted() bool {
	return f.FileEvent != nil && f.FileEvent.Type == FileDeletedEvent
}

// IsPending reports whether the file awaits curator approval
func (f *FileEntry) IsPending() bool {
	return !f.IsSoftDeleted() && f.File.Type.IsPending()
}

// Approve finalizes a pending file
func (f *FileEntry) Approve(actor string) error {
	if err := f.requirePending(f.File.Type.approved()); err != nil {
		return err
	}
	f.File.Type = f.File.Type.approved()
	f.stamp(FileApprovedEvent, actor)
	f.addEvent(events.NewFileDecided(events.TypeFileApproved, f.ID().String(), f.ResourceIdentifier.String(),
		f.CustomerID, actor, string(f.File.Type), f.ModifiedDate))
	return nil
}

// Reject turns a pending file into a rejected file
func (f *FileEntry) Reject(actor string) error {
	if err := f.requirePending(FileTypeRejected); err != nil {
		return err
	}
	f.File.Type = FileTypeRejected
	f.stamp(FileRejectedEvent, actor)
	f.addEvent(events.NewFileDecided(events.TypeFileRejected, f.ID().String(), f.ResourceIdentifier.String(),
		f.CustomerID, actor, string(f.File.Type), f.ModifiedDate))
	return nil
}

// Update replaces the file metadata. The identifier cannot change.
func (f *FileEntry) Update(file File, actor string) error {
	if f.IsSoftDeleted() {
		return pkgerrors.NewIllegalTransitionError("file", FileEntryDeletedStatus, string(file.Type))
	}
	if !file.Identifier.Equals(f.File.Identifier) {
		return pkgerrors.NewValidationError("file.identifier", "file identifier cannot change")
	}
	if !file.Type.IsValid() {
		return pkgerrors.NewValidationError("file.type", "unknown file type "+string(file.Type))
	}
	if file.UploadDetails == nil {
		file.UploadDetails = f.File.UploadDetails
	}
	f.File = file
	f.stamp(FileUpdatedEvent, actor)
	return nil
}

// SoftDelete hides the file from its resource while keeping the record.
// Deleting a deleted file is a no-op.
func (f *FileEntry) SoftDelete(actor string) error {
	if f.IsSoftDeleted() {
		return nil
	}
	f.stamp(FileDeletedEvent, actor)
	return nil
}

func (f *FileEntry) requirePending(target FileType) error {
	if f.IsSoftDeleted() {
		return pkgerrors.NewIllegalTransitionError("file", FileEntryDeletedStatus, string(target))
	}
	if !f.File.Type.IsPending() {
		return pkgerrors.NewIllegalTransitionError("file", string(f.File.Type), string(target))
	}
	return nil
}

func (f *FileEntry) stamp(eventType FileEventType, actor string) {
	ts := now()
	f.ModifiedDate = ts
	f.FileEvent = &FileEvent{Type: eventType, User: actor, Date: ts}
}
