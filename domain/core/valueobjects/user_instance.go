package valueobjects

// PublishingWorkflow is a customer's policy for publishing resources with files.
type PublishingWorkflow string

const (
	// WorkflowMetadataOnly lets the registrator publish metadata while files wait for approval.
	WorkflowMetadataOnly PublishingWorkflow = "REGISTRATOR_PUBLISHES_METADATA_ONLY"
	// WorkflowMetadataAndFiles lets the registrator publish metadata and files directly.
	WorkflowMetadataAndFiles PublishingWorkflow = "REGISTRATOR_PUBLISHES_METADATA_AND_FILES"
	// WorkflowRequiresApproval holds both metadata and files until a curator approves.
	WorkflowRequiresApproval PublishingWorkflow = "REGISTRATOR_REQUIRES_APPROVAL_FOR_METADATA_AND_FILES"
)

// IsValid reports whether w is a known workflow
func (w PublishingWorkflow) IsValid() bool {
	switch w {
	case WorkflowMetadataOnly, WorkflowMetadataAndFiles, WorkflowRequiresApproval:
		return true
	}
	return false
}

// UserInstance is the resolved caller handed in by the authorization layer.
// It is trusted as given.
type UserInstance struct {
	Username           string
	CustomerID         string
	TopLevelOrgID      string
	AccessRights       []string
	PublishingWorkflow PublishingWorkflow
}

// HasAccessRight reports whether the user carries the named right
func (u UserInstance) HasAccessRight(right string) bool {
	for _, r := range u.AccessRights {
		if r == right {
			return true
		}
	}
	return false
}
