package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/atelier-api/internal/api/shared"
	"github.com/phrazzld/atelier-api/internal/blob"
	"github.com/phrazzld/atelier-api/internal/domain"
	"github.com/phrazzld/atelier-api/internal/service"
	"github.com/phrazzld/atelier-api/internal/service/auth"
	"github.com/phrazzld/atelier-api/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestMapErrorToStatusCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"expired token", auth.ErrExpiredToken, http.StatusUnauthorized},
		{"wrong token type", fmt.Errorf("validate: %w", auth.ErrWrongTokenType), http.StatusUnauthorized},
		{"unauthorized", domain.ErrUnauthorized, http.StatusUnauthorized},
		{"task not found", service.ErrTaskNotFound, http.StatusNotFound},
		{"wrapped store not found", fmt.Errorf("get: %w", store.ErrTaskNotFound), http.StatusNotFound},
		{"duplicate", store.ErrDuplicate, http.StatusConflict},
		{"invalid transition", store.ErrInvalidTransition, http.StatusConflict},
		{"validation", domain.NewValidationError("quality", "is not supported", domain.ErrInvalidQuality), http.StatusBadRequest},
		{"empty body", shared.ErrEmptyBody, http.StatusBadRequest},
		{"object name", fmt.Errorf("%w: empty", blob.ErrInvalidObjectName), http.StatusBadRequest},
		{"invalid entity", store.ErrInvalidEntity, http.StatusBadRequest},
		{"unknown", errors.New("pq: connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.status, MapErrorToStatusCode(tt.err))
		})
	}
}

func TestGetSafeErrorMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, "An unexpected error occurred"},
		{"expired", auth.ErrExpiredToken, "Token expired"},
		{"template", service.ErrTemplateNotFound, "Template not found"},
		{"field", domain.NewValidationError("aspect_ratio", "is not supported", domain.ErrInvalidAspectRatio),
			"Invalid aspect_ratio is not supported"},
		{"internal details hidden", errors.New("dial tcp 10.0.0.5:5432: refused"), "An unexpected error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, GetSafeErrorMessage(tt.err))
		})
	}
}

func TestSanitizeValidationError(t *testing.T) {
	t.Parallel()

	err := shared.ValidateRequest(&SignUploadRequest{ExpiresSeconds: 100000})
	assert.Equal(t, "Invalid object_name: required field", GetSafeErrorMessage(err))
	assert.Equal(t, http.StatusBadRequest, MapErrorToStatusCode(err))

	assert.Equal(t, "Validation error", SanitizeValidationError(nil))
}

func TestHandleAPIError(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/tasks/x", nil)
	HandleAPIError(rr, req, fmt.Errorf("lookup failed: %w", service.ErrTaskNotFound), "")

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"error":"Task not found"}`, rr.Body.String())

	rr = httptest.NewRecorder()
	HandleAPIError(rr, req, errors.New("secret dsn"), "Failed to load")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "secret dsn")
	assert.Contains(t, rr.Body.String(), "Failed to load")
}
