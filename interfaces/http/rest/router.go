// Package rest exposes the read side of the publication store over HTTP.
package rest

import (
	"net/http"

	"publication-backend/application/services"
	"publication-backend/interfaces/http/rest/handlers"
	"publication-backend/interfaces/http/rest/middleware"
	"publication-backend/pkg/observability"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Router creates and configures the HTTP router
type Router struct {
	queries       *services.QueryService
	metrics       *observability.Collector
	exposeMetrics bool
	logger        *zap.Logger
}

// NewRouter creates a new router instance. metrics may be nil.
func NewRouter(
	queries *services.QueryService,
	metrics *observability.Collector,
	exposeMetrics bool,
	logger *zap.Logger,
) *Router {
	return &Router{
		queries:       queries,
		metrics:       metrics,
		exposeMetrics: exposeMetrics,
		logger:        logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() *chi.Mux {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))
	if rt.metrics != nil {
		router.Use(middleware.Metrics(rt.metrics))
	}

	router.Get("/health", rt.healthCheck)
	if rt.metrics != nil && rt.exposeMetrics {
		router.Method(http.MethodGet, "/metrics", rt.metrics.Handler())
	}

	resourceHandler := handlers.NewResourceHandler(rt.queries, rt.logger)
	router.Route("/resources/{resourceID}", func(r chi.Router) {
		r.Get("/", resourceHandler.GetResource)
		r.Get("/tickets", resourceHandler.ListTickets)
		r.Get("/export", resourceHandler.Export)
	})
	router.Route("/customers/{customerID}", func(r chi.Router) {
		r.Get("/resources", resourceHandler.ListResources)
		r.Get("/owners/{owner}", resourceHandler.ListByOwner)
	})

	ticketHandler := handlers.NewTicketHandler(rt.queries, rt.logger)
	router.Get("/tickets/{ticketID}", ticketHandler.GetTicket)

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}
