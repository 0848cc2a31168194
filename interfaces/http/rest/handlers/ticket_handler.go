package handlers

import (
	"net/http"

	"publication-backend/application/services"

	"go.uber.org/zap"
)

// TicketHandler serves the read-only ticket endpoints
type TicketHandler struct {
	queries *services.QueryService
	logger  *zap.Logger
}

// NewTicketHandler creates a new ticket handler
func NewTicketHandler(queries *services.QueryService, logger *zap.Logger) *TicketHandler {
	return &TicketHandler{
		queries: queries,
		logger:  logger,
	}
}

// GetTicket handles GET /tickets/{ticketID}
func (h *TicketHandler) GetTicket(w http.ResponseWriter, r *http.Request) {
	ticketID, err := identifierParam(r, "ticketID")
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	ticket, err := h.queries.GetTicket(r.Context(), ticketID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, ticket)
}
