package handlers

import (
	"encoding/json"
	"net/http"

	pkgerrors "publication-backend/pkg/errors"

	"go.uber.org/zap"
)

// errorBody is the JSON shape of every error response
type errorBody struct {
	Error   bool                   `json:"error"`
	Type    pkgerrors.ErrorType    `json:"type"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, logger *zap.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode response", zap.Error(err))
	}
}

// respondError reports err with the status of its AppError type. Errors
// without one are logged and reported as internal.
func respondError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status := pkgerrors.HTTPStatus(err)
	body := errorBody{Error: true, Type: pkgerrors.ErrorTypeInternal, Message: "internal error"}

	if appErr := pkgerrors.GetAppError(err); appErr != nil {
		body.Type = appErr.Type
		body.Message = appErr.Message
		body.Details = appErr.Details
	}
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", zap.Error(err), zap.Int("status", status))
		body.Details = nil
	}
	respondJSON(w, logger, status, body)
}
