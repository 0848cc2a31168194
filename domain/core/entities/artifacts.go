package entities

import (
	"sort"
	"time"

	"publication-backend/domain/core/valueobjects"
)

// ArtifactType tags the variants of an associated artifact
type ArtifactType string

const (
	ArtifactTypeLink ArtifactType = "AssociatedLink"
	ArtifactTypeNull ArtifactType = "NullAssociatedArtifact"
)

// FileType tags the variants of a file
type FileType string

const (
	FileTypeUploaded        FileType = "UploadedFile"
	FileTypePendingOpen     FileType = "PendingOpenFile"
	FileTypePendingInternal FileType = "PendingInternalFile"
	FileTypeOpen            FileType = "OpenFile"
	FileTypeInternal        FileType = "InternalFile"
	FileTypeHidden          FileType = "HiddenFile"
	FileTypeRejected        FileType = "RejectedFile"
)

// IsValid reports whether t is a known file type
func (t FileType) IsValid() bool {
	switch t {
	case FileTypeUploaded, FileTypePendingOpen, FileTypePendingInternal, FileTypeOpen,
		FileTypeInternal, FileTypeHidden, FileTypeRejected:
		return true
	}
	return false
}

// IsPending reports whether the file awaits a curator decision
func (t FileType) IsPending() bool {
	return t == FileTypePendingOpen || t == FileTypePendingInternal
}

// approved maps a pending type to its approved counterpart
func (t FileType) approved() FileType {
	if t == FileTypePendingInternal {
		return FileTypeInternal
	}
	return FileTypeOpen
}

// UploadDetails records who uploaded a file and when
type UploadDetails struct {
	UploadedBy   string    `json:"uploadedBy"`
	UploadedDate time.Time `json:"uploadedDate"`
}

// File is an uploaded artifact in one of its lifecycle variants
type File struct {
	Identifier       valueobjects.Identifier `json:"identifier"`
	Type             FileType                `json:"type"`
	Name             string                  `json:"name" validate:"required"`
	MimeType         string                  `json:"mimeType,omitempty"`
	Size             int64                   `json:"size,omitempty" validate:"min=0"`
	License          string                  `json:"license,omitempty"`
	PublisherVersion string                  `json:"publisherVersion,omitempty"`
	EmbargoDate      *time.Time              `json:"embargoDate,omitempty"`
	UploadDetails    *UploadDetails          `json:"uploadDetails,omitempty"`
}

// AssociatedLink is an external link stored inline on a resource
type AssociatedLink struct {
	ID          string `json:"id" validate:"required"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

// AssociatedArtifact is a tagged union over links, the null artifact and
// files. Exactly one payload matching Type is set.
type AssociatedArtifact struct {
	Type ArtifactType    `json:"type"`
	Link *AssociatedLink `json:"link,omitempty"`
	File *File           `json:"file,omitempty"`
}

// NewLinkArtifact wraps a link
func NewLinkArtifact(link AssociatedLink) AssociatedArtifact {
	return AssociatedArtifact{Type: ArtifactTypeLink, Link: &link}
}

// NullArtifact marks a resource that deliberately has no artifacts
func NullArtifact() AssociatedArtifact {
	return AssociatedArtifact{Type: ArtifactTypeNull}
}

// NewFileArtifact wraps a file
func NewFileArtifact(file File) AssociatedArtifact {
	return AssociatedArtifact{Type: ArtifactType(file.Type), File: &file}
}

// IsFile reports whether the artifact is a file
func (a AssociatedArtifact) IsFile() bool {
	return a.File != nil || FileType(a.Type).IsValid()
}

// AssociatedArtifacts is the artifact list of a resource
type AssociatedArtifacts []AssociatedArtifact

// WithoutFiles returns only the artifacts stored inline on the resource
func (a AssociatedArtifacts) WithoutFiles() AssociatedArtifacts {
	out := make(AssociatedArtifacts, 0, len(a))
	for _, artifact := range a {
		if !artifact.IsFile() {
			out = append(out, artifact)
		}
	}
	return out
}

// Files returns the file artifacts
func (a AssociatedArtifacts) Files() []File {
	var files []File
	for _, artifact := range a {
		if artifact.File != nil {
			files = append(files, *artifact.File)
		}
	}
	return files
}

// MergeFiles combines inline artifacts with the given files. Files are
// ordered by identifier so the result does not depend on read order.
func MergeFiles(inline AssociatedArtifacts, files []File) AssociatedArtifacts {
	sorted := append([]File(nil), files...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Identifier.String() < sorted[j].Identifier.String()
	})

	merged := inline.WithoutFiles()
	for _, f := range sorted {
		merged = append(merged, NewFileArtifact(f))
	}
	return merged
}
