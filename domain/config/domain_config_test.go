package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"publication-backend/domain/core/valueobjects"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDomainConfig(t *testing.T) {
	assert.Equal(t, valueobjects.WorkflowRequiresApproval, LoadDomainConfig("production").DefaultPublishingWorkflow)
	assert.Equal(t, valueobjects.WorkflowMetadataAndFiles, LoadDomainConfig("development").DefaultPublishingWorkflow)
	assert.Equal(t, MaxStoreTransactionItems, LoadDomainConfig("test").MaxTransactionItems)
}

func TestLoadDomainConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "domain.yaml")
	content := []byte("maxTransactionItems: 25\ndefaultPublishingWorkflow: REGISTRATOR_PUBLISHES_METADATA_ONLY\nchannelLookupTimeout: 500ms\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := LoadDomainConfigFile(path, DefaultDomainConfig())
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.MaxTransactionItems)
	assert.Equal(t, valueobjects.WorkflowMetadataOnly, cfg.DefaultPublishingWorkflow)
	assert.Equal(t, 500*time.Millisecond, cfg.ChannelLookupTimeout)
	assert.True(t, cfg.IsDegree("DegreePhd"), "unset keys keep their defaults")
}

func TestLoadDomainConfigFileRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "domain.yaml")
	require.NoError(t, os.WriteFile(path, []byte("maxTransactionItems: 500\n"), 0o600))

	_, err := LoadDomainConfigFile(path, DefaultDomainConfig())
	assert.Error(t, err)
}

func TestIsDegree(t *testing.T) {
	cfg := DefaultDomainConfig()
	assert.True(t, cfg.IsDegree("DegreeMaster"))
	assert.False(t, cfg.IsDegree("AcademicArticle"))
}
