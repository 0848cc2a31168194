package entities

import (
	"publication-backend/domain/core/valueobjects"
	pkgerrors "publication-backend/pkg/errors"
)

// FileApproval tracks the per-file decisions of a file approval ticket,
// independent of the ticket's own status.
type FileApproval struct {
	FilesForApproval []valueobjects.Identifier `json:"filesForApproval,omitempty"`
	ApprovedFiles    []valueobjects.Identifier `json:"approvedFiles,omitempty"`
	RejectedFiles    []valueobjects.Identifier `json:"rejectedFiles,omitempty"`
}

// NewFileApproval starts tracking the pending files among entries
func NewFileApproval(entries []*FileEntry) FileApproval {
	var approval FileApproval
	for _, entry := range entries {
		if entry.IsPending() {
			approval.FilesForApproval = append(approval.FilesForApproval, entry.ID())
		}
	}
	return approval
}

// HasPending reports whether any file still awaits a decision
func (a *FileApproval) HasPending() bool {
	return len(a.FilesForApproval) > 0
}

// IsAwaiting reports whether id awaits a decision
func (a *FileApproval) IsAwaiting(id valueobjects.Identifier) bool {
	return indexOf(a.FilesForApproval, id) >= 0
}

// Approve moves id from pending to approved
func (a *FileApproval) Approve(id valueobjects.Identifier) error {
	if err := a.take(id); err != nil {
		return err
	}
	a.ApprovedFiles = append(a.ApprovedFiles, id)
	return nil
}

// Reject moves id from pending to rejected
func (a *FileApproval) Reject(id valueobjects.Identifier) error {
	if err := a.take(id); err != nil {
		return err
	}
	a.RejectedFiles = append(a.RejectedFiles, id)
	return nil
}

// ApproveRemaining approves every file still pending and returns them
func (a *FileApproval) ApproveRemaining() []valueobjects.Identifier {
	remaining := a.FilesForApproval
	a.ApprovedFiles = append(a.ApprovedFiles, remaining...)
	a.FilesForApproval = nil
	return remaining
}

func (a *FileApproval) take(id valueobjects.Identifier) error {
	i := indexOf(a.FilesForApproval, id)
	if i < 0 {
		return pkgerrors.NewValidationError("filesForApproval", "file "+id.String()+" is not awaiting approval")
	}
	a.FilesForApproval = append(a.FilesForApproval[:i:i], a.FilesForApproval[i+1:]...)
	return nil
}

func indexOf(ids []valueobjects.Identifier, id valueobjects.Identifier) int {
	for i, candidate := range ids {
		if candidate.Equals(id) {
			return i
		}
	}
	return -1
}
