package entities

import (
	"testing"

	"publication-backend/domain/core/valueobjects"

	"github.com/stretchr/testify/require"
)

func testUser() valueobjects.UserInstance {
	return valueobjects.UserInstance{
		Username:           "1234@20754.0.0.0",
		CustomerID:         "customer-20754",
		TopLevelOrgID:      "20754.0.0.0",
		PublishingWorkflow: valueobjects.WorkflowRequiresApproval,
	}
}

func draftResource(t *testing.T, title string) *Resource {
	t.Helper()
	resource, err := NewResource(testUser(), EntityDescription{MainTitle: title})
	require.NoError(t, err)
	resource.MarkEventsAsCommitted()
	return resource
}

func resourceIn(t *testing.T, status ResourceStatus) *Resource {
	t.Helper()
	resource := draftResource(t, "A Study")
	resource.Status = status
	return resource
}

func pendingFile(t *testing.T, resource *Resource, fileType FileType) *FileEntry {
	t.Helper()
	entry, err := NewFileEntry(File{Name: "thesis.pdf", Type: fileType}, resource, testUser())
	require.NoError(t, err)
	return entry
}
