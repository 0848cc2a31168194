package handlers

import (
	"net/http"
	"strconv"

	"publication-backend/application/services"
	"publication-backend/domain/core/valueobjects"
	pkgerrors "publication-backend/pkg/errors"
	"publication-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// DefaultListLimit caps list responses when no limit is given
const DefaultListLimit = 100

// ResourceHandler serves the read-only resource endpoints
type ResourceHandler struct {
	queries *services.QueryService
	logger  *zap.Logger
}

// NewResourceHandler creates a new resource handler
func NewResourceHandler(queries *services.QueryService, logger *zap.Logger) *ResourceHandler {
	return &ResourceHandler{
		queries: queries,
		logger:  logger,
	}
}

// listQuery holds the validated query parameters of list endpoints
type listQuery struct {
	CustomerID string `json:"customerId" validate:"required"`
	Owner      string `json:"owner" validate:"omitempty,max=256"`
	Limit      int    `json:"limit" validate:"min=1,max=1000"`
}

// GetResource handles GET /resources/{resourceID}
func (h *ResourceHandler) GetResource(w http.ResponseWriter, r *http.Request) {
	resourceID, err := identifierParam(r, "resourceID")
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	resource, err := h.queries.GetResource(r.Context(), resourceID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, resource)
}

// ListTickets handles GET /resources/{resourceID}/tickets. Removed tickets
// are listed only with includeRemoved=true.
func (h *ResourceHandler) ListTickets(w http.ResponseWriter, r *http.Request) {
	resourceID, err := identifierParam(r, "resourceID")
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	includeRemoved, _ := strconv.ParseBool(r.URL.Query().Get("includeRemoved"))

	tickets, err := h.queries.ListTickets(r.Context(), resourceID, includeRemoved)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"tickets": tickets,
		"count":   len(tickets),
	})
}

// Export handles GET /resources/{resourceID}/export
func (h *ResourceHandler) Export(w http.ResponseWriter, r *http.Request) {
	resourceID, err := identifierParam(r, "resourceID")
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	export, err := h.queries.Export(r.Context(), resourceID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, export)
}

// ListByOwner handles GET /customers/{customerID}/owners/{owner}
func (h *ResourceHandler) ListByOwner(w http.ResponseWriter, r *http.Request) {
	query := listQuery{
		CustomerID: chi.URLParam(r, "customerID"),
		Owner:      chi.URLParam(r, "owner"),
		Limit:      DefaultListLimit,
	}
	if err := utils.ValidateStruct(query); err != nil {
		respondError(w, h.logger, err)
		return
	}

	entries, err := h.queries.ListByOwner(r.Context(), query.CustomerID, query.Owner)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}

// ListResources handles GET /customers/{customerID}/resources
func (h *ResourceHandler) ListResources(w http.ResponseWriter, r *http.Request) {
	query := listQuery{
		CustomerID: chi.URLParam(r, "customerID"),
		Limit:      DefaultListLimit,
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, h.logger, pkgerrors.NewValidationError("limit", "limit must be a number"))
			return
		}
		query.Limit = limit
	}
	if err := utils.ValidateStruct(query); err != nil {
		respondError(w, h.logger, err)
		return
	}

	resources, err := h.queries.ListResources(r.Context(), query.CustomerID, query.Limit)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"resources": resources,
		"count":     len(resources),
	})
}

func identifierParam(r *http.Request, name string) (valueobjects.Identifier, error) {
	id, err := valueobjects.ParseIdentifier(chi.URLParam(r, name))
	if err != nil {
		return valueobjects.Identifier{}, pkgerrors.NewValidationError(name, "invalid identifier")
	}
	return id, nil
}
