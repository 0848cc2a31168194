// Package di assembles the application from configuration.
package di

import (
	"publication-backend/application/ports"
	"publication-backend/application/services"
	domainconfig "publication-backend/domain/config"
	"publication-backend/infrastructure/config"
	"publication-backend/infrastructure/persistence/store"
	"publication-backend/pkg/observability"

	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config       *config.Config
	DomainConfig *domainconfig.DomainConfig
	Logger       *zap.Logger
	Store        store.Store
	Repository   ports.PublicationRepository
	Publications *services.PublicationService
	Tickets      *services.TicketService
	Queries      *services.QueryService
	Metrics      *observability.Collector
}
