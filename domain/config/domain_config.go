package config

import (
	"fmt"
	"os"
	"time"

	"publication-backend/domain/core/valueobjects"

	"gopkg.in/yaml.v3"
)

// MaxStoreTransactionItems is the largest number of items the backing store
// accepts in one atomic write.
const MaxStoreTransactionItems = 100

// DomainConfig holds all configurable business rules and constraints
type DomainConfig struct {
	// Transaction limits
	MaxTransactionItems int `yaml:"maxTransactionItems"`

	// Publication instance types that route pending files to a thesis approval ticket
	DegreeInstanceTypes []string `yaml:"degreeInstanceTypes"`

	// Workflow used when the caller's customer has none configured
	DefaultPublishingWorkflow valueobjects.PublishingWorkflow `yaml:"defaultPublishingWorkflow"`

	// Time constraints
	ChannelLookupTimeout time.Duration `yaml:"channelLookupTimeout"`
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		MaxTransactionItems: MaxStoreTransactionItems,
		DegreeInstanceTypes: []string{
			"DegreeBachelor",
			"DegreeMaster",
			"DegreePhd",
			"DegreeLicentiate",
			"ArtisticDegreePhd",
			"OtherStudentWork",
		},
		DefaultPublishingWorkflow: valueobjects.WorkflowRequiresApproval,
		ChannelLookupTimeout:      3 * time.Second,
	}
}

// ProductionDomainConfig returns production-specific configuration
func ProductionDomainConfig() *DomainConfig {
	return DefaultDomainConfig()
}

// DevelopmentDomainConfig returns development-specific configuration
func DevelopmentDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()

	// Registrators publish directly in development
	config.DefaultPublishingWorkflow = valueobjects.WorkflowMetadataAndFiles
	config.ChannelLookupTimeout = 10 * time.Second

	return config
}

// LoadDomainConfig loads domain configuration based on environment
func LoadDomainConfig(environment string) *DomainConfig {
	switch environment {
	case "production":
		return ProductionDomainConfig()
	case "development":
		return DevelopmentDomainConfig()
	default:
		return DefaultDomainConfig()
	}
}

// LoadDomainConfigFile overlays the YAML file at path on top of base.
// Keys missing from the file keep their base values.
func LoadDomainConfigFile(path string, base *DomainConfig) (*DomainConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read domain config: %w", err)
	}

	merged := *base
	merged.DegreeInstanceTypes = append([]string(nil), base.DegreeInstanceTypes...)
	if err := yaml.Unmarshal(data, &merged); err != nil {
		return nil, fmt.Errorf("parse domain config: %w", err)
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}

// Validate checks if the configuration is valid
func (c *DomainConfig) Validate() error {
	if c.MaxTransactionItems <= 0 || c.MaxTransactionItems > MaxStoreTransactionItems {
		return fmt.Errorf("maxTransactionItems must be between 1 and %d, got %d",
			MaxStoreTransactionItems, c.MaxTransactionItems)
	}
	if !c.DefaultPublishingWorkflow.IsValid() {
		return fmt.Errorf("unknown publishing workflow %q", c.DefaultPublishingWorkflow)
	}
	return nil
}

// IsDegree reports whether the publication instance type is a degree
func (c *DomainConfig) IsDegree(instanceType string) bool {
	for _, t := range c.DegreeInstanceTypes {
		if t == instanceType {
			return true
		}
	}
	return false
}
