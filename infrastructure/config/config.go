package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Store backends
const (
	StoreDynamoDB = "dynamodb"
	StoreSQLite   = "sqlite"
	StoreMemory   = "memory"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string

	// Storage configuration
	StoreBackend     string
	AWSRegion        string
	TableName        string
	DynamoDBEndpoint string // local override, e.g. dynamodb-local
	SQLitePath       string
	TableWaitTimeout time.Duration

	// Messaging
	EventBusName string

	// External services
	ChannelRegistryURL     string
	ChannelRegistryTimeout time.Duration

	// Domain rules overlay
	DomainConfigFile string

	// Logging
	LogLevel string

	// Feature flags
	EnableMetrics bool
	EnableTracing bool
	OTLPEndpoint  string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),

		StoreBackend:     getEnv("STORE_BACKEND", StoreDynamoDB),
		AWSRegion:        getEnv("AWS_REGION", "eu-west-1"),
		TableName:        getEnv("TABLE_NAME", "publications"),
		DynamoDBEndpoint: getEnv("DYNAMODB_ENDPOINT", ""),
		SQLitePath:       getEnv("SQLITE_PATH", "publications.db"),
		TableWaitTimeout: time.Duration(getEnvInt("TABLE_WAIT_TIMEOUT_S", 120)) * time.Second,

		EventBusName: getEnv("EVENT_BUS_NAME", ""),

		ChannelRegistryURL:     getEnv("CHANNEL_REGISTRY_URL", ""),
		ChannelRegistryTimeout: time.Duration(getEnvInt("CHANNEL_REGISTRY_TIMEOUT_MS", 3000)) * time.Millisecond,

		DomainConfigFile: getEnv("DOMAIN_CONFIG_FILE", ""),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		EnableMetrics: getEnvBool("ENABLE_METRICS", true),
		EnableTracing: getEnvBool("ENABLE_TRACING", false),
		OTLPEndpoint:  getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case StoreDynamoDB:
		if c.TableName == "" {
			return fmt.Errorf("TABLE_NAME is required for the %s store", StoreDynamoDB)
		}
	case StoreSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the %s store", StoreSQLite)
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	if c.IsProduction() && c.StoreBackend == StoreMemory {
		return fmt.Errorf("the %s store cannot be used in production", StoreMemory)
	}
	if c.ChannelRegistryTimeout <= 0 {
		return fmt.Errorf("CHANNEL_REGISTRY_TIMEOUT_MS must be positive")
	}

	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
