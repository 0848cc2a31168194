package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		check     func(error) bool
		status    int
		retryable bool
	}{
		{"conflict", NewConflictError("stale version"), IsConflict, http.StatusConflict, true},
		{"not found", NewNotFoundError("resource"), IsNotFound, http.StatusNotFound, false},
		{"validation", NewValidationError("entityDescription.mainTitle", "main title is required"), IsValidation, http.StatusBadRequest, false},
		{"illegal transition", NewIllegalTransitionError("resource", "DRAFT", "PUBLISHED"), IsIllegalTransition, http.StatusUnprocessableEntity, false},
		{"too large", NewTransactionTooLargeError(101, 100), IsTransactionTooLarge, http.StatusRequestEntityTooLarge, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("outer: %w", tt.err)
			assert.True(t, tt.check(wrapped))
			assert.Equal(t, tt.status, HTTPStatus(wrapped))
			assert.Equal(t, tt.retryable, Retryable(wrapped))
		})
	}
}

func TestValidationErrorNamesField(t *testing.T) {
	err := NewValidationError("entityDescription.mainTitle", "main title is required")
	assert.Equal(t, "entityDescription.mainTitle", err.Details["field"])
}

func TestWrapKeepsType(t *testing.T) {
	err := Wrap(NewConflictError("guard exists"), "create ticket")
	assert.True(t, IsConflict(err))
	assert.Contains(t, err.Error(), "create ticket")

	plain := Wrap(fmt.Errorf("boom"), "query")
	assert.True(t, IsType(plain, ErrorTypeInternal))
	assert.Nil(t, Wrap(nil, "nothing"))
}

func TestHTTPStatusDefaultsToInternal(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(fmt.Errorf("raw")))
}
