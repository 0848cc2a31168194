package di

import (
	"context"
	"fmt"
	"strings"

	"publication-backend/application/ports"
	"publication-backend/application/services"
	domainconfig "publication-backend/domain/config"
	"publication-backend/infrastructure/config"
	"publication-backend/infrastructure/external/channelregistry"
	"publication-backend/infrastructure/messaging/eventbridge"
	"publication-backend/infrastructure/persistence/dynamodb"
	"publication-backend/infrastructure/persistence/instrumented"
	"publication-backend/infrastructure/persistence/memory"
	"publication-backend/infrastructure/persistence/repository"
	"publication-backend/infrastructure/persistence/sqlite"
	"publication-backend/infrastructure/persistence/store"
	"publication-backend/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// MetricsNamespace prefixes every exported metric
const MetricsNamespace = "publication"

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client, pointed at
// DYNAMODB_ENDPOINT when one is configured
func ProvideDynamoDBClient(awsCfg aws.Config, cfg *config.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg, func(o *awsdynamodb.Options) {
		if cfg.DynamoDBEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.DynamoDBEndpoint)
		}
	})
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideMetrics creates the Prometheus collector
func ProvideMetrics() *observability.Collector {
	return observability.NewCollector(MetricsNamespace)
}

// ProvideTracer installs the OTLP tracer provider when tracing is enabled.
// The cleanup flushes pending spans.
func ProvideTracer(cfg *config.Config, logger *zap.Logger) (trace.Tracer, func(), error) {
	if !cfg.EnableTracing {
		return observability.NoopTracer(), func() {}, nil
	}

	tp, err := observability.InitTracing(observability.TracingConfig{
		Environment: cfg.Environment,
		Endpoint:    cfg.OTLPEndpoint,
	})
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Warn("Tracer shutdown failed", zap.Error(err))
		}
	}
	return tp.Tracer(), cleanup, nil
}

// ProvideStore opens the configured store backend and decorates it with
// metrics and tracing
func ProvideStore(
	cfg *config.Config,
	client *awsdynamodb.Client,
	metrics *observability.Collector,
	tracer trace.Tracer,
	logger *zap.Logger,
) (store.Store, func(), error) {
	var inner store.Store
	cleanup := func() {}

	switch cfg.StoreBackend {
	case config.StoreDynamoDB:
		inner = dynamodb.NewStore(client, cfg.TableName, logger)
	case config.StoreSQLite:
		db, err := sqlite.Open(cfg.SQLitePath, logger)
		if err != nil {
			return nil, nil, err
		}
		inner = db
		cleanup = func() {
			if err := db.Close(); err != nil {
				logger.Warn("SQLite store close failed", zap.Error(err))
			}
		}
	case config.StoreMemory:
		inner = memory.NewStore(logger)
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	logger.Info("Store configured", zap.String("backend", cfg.StoreBackend))
	return instrumented.NewStore(inner, metrics, tracer, logger), cleanup, nil
}

// ProvideDomainConfig loads the business rules for the environment and
// overlays DOMAIN_CONFIG_FILE when set
func ProvideDomainConfig(cfg *config.Config) (*domainconfig.DomainConfig, error) {
	domainCfg := domainconfig.LoadDomainConfig(cfg.Environment)
	if cfg.DomainConfigFile == "" {
		return domainCfg, nil
	}
	return domainconfig.LoadDomainConfigFile(cfg.DomainConfigFile, domainCfg)
}

// ProvideRepository creates the publication repository
func ProvideRepository(s store.Store, domainCfg *domainconfig.DomainConfig, logger *zap.Logger) ports.PublicationRepository {
	return repository.NewRepository(s, domainCfg.MaxTransactionItems, logger)
}

// ProvideEventPublisher creates the EventBridge publisher. Without a bus
// name events are not published.
func ProvideEventPublisher(client *awseventbridge.Client, cfg *config.Config, logger *zap.Logger) ports.EventPublisher {
	if cfg.EventBusName == "" {
		logger.Info("EVENT_BUS_NAME not set, lifecycle events are not published")
		return nil
	}
	return eventbridge.NewPublisher(client, cfg.EventBusName, logger)
}

// ProvideChannelResolver creates the channel registry client. Without a
// registry URL every channel is treated as unclaimed.
func ProvideChannelResolver(cfg *config.Config, logger *zap.Logger) ports.ChannelClaimResolver {
	if cfg.ChannelRegistryURL == "" {
		logger.Info("CHANNEL_REGISTRY_URL not set, channel claims are not resolved")
		return nil
	}
	registryCfg := channelregistry.DefaultConfig(cfg.ChannelRegistryURL)
	registryCfg.Timeout = cfg.ChannelRegistryTimeout
	return channelregistry.NewClient(registryCfg, logger)
}

// ProvidePublicationService creates the publication lifecycle service
func ProvidePublicationService(
	repo ports.PublicationRepository,
	channels ports.ChannelClaimResolver,
	publisher ports.EventPublisher,
	domainCfg *domainconfig.DomainConfig,
	metrics *observability.Collector,
	logger *zap.Logger,
) *services.PublicationService {
	return services.NewPublicationService(repo, channels, publisher, domainCfg, metrics, logger)
}

// ProvideTicketService creates the ticket service
func ProvideTicketService(
	repo ports.PublicationRepository,
	publisher ports.EventPublisher,
	domainCfg *domainconfig.DomainConfig,
	metrics *observability.Collector,
	logger *zap.Logger,
) *services.TicketService {
	return services.NewTicketService(repo, publisher, domainCfg, metrics, logger)
}

// ProvideQueryService creates the read service
func ProvideQueryService(repo ports.PublicationRepository, logger *zap.Logger) *services.QueryService {
	return services.NewQueryService(repo, logger)
}
