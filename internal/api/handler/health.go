// Package handler provides HTTP handlers for the REST API.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/remiblancher/qsig/internal/api/dto"
	apierrors "github.com/remiblancher/qsig/internal/api/errors"
)

// HealthHandler handles health and readiness endpoints.
type HealthHandler struct {
	version string
	checks  map[string]func() bool
}

// NewHealthHandler creates a new HealthHandler. Each check contributes to
// readiness under its name.
func NewHealthHandler(version string, checks map[string]func() bool) *HealthHandler {
	return &HealthHandler{
		version: version,
		checks:  checks,
	}
}

// Health handles GET /health.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, dto.HealthResponse{
		Status:  "ok",
		Version: h.version,
	})
}

// Ready handles GET /ready.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	checks := map[string]bool{"server": true}
	allReady := true
	for name, check := range h.checks {
		ok := check()
		checks[name] = ok
		allReady = allReady && ok
	}

	status := http.StatusOK
	if !allReady {
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, dto.ReadyResponse{Ready: allReady, Checks: checks})
}

// respondJSON writes a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

// respondError writes an error response.
func respondError(w http.ResponseWriter, status int, apiErr *dto.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiErr)
}

// respondMappedError maps err to a status and writes it.
func respondMappedError(w http.ResponseWriter, r *http.Request, err error) {
	status, apiErr := apierrors.MapError(err)
	event := zerolog.Ctx(r.Context()).Debug()
	if status >= http.StatusInternalServerError {
		event = zerolog.Ctx(r.Context()).Error()
	}
	event.Err(err).Str("code", apiErr.Code).Msg("request failed")
	respondError(w, status, apiErr)
}

// decodeJSON decodes the request body into v, writing a 4xx response on
// failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, &dto.APIError{
				Code:    apierrors.CodeRequestBodyTooLarge,
				Message: "Request body too large",
			})
			return false
		}
		respondError(w, http.StatusBadRequest, apierrors.NewBadRequest("Invalid JSON request body"))
		return false
	}
	return true
}

// NotFound handles unknown routes.
func NotFound(w http.ResponseWriter, r *http.Request) {
	respondError(w, http.StatusNotFound, &dto.APIError{Code: apierrors.CodeNotFound, Message: "Not found"})
}

// MethodNotAllowed handles known routes with the wrong method.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	respondError(w, http.StatusMethodNotAllowed, &dto.APIError{Code: apierrors.CodeMethodNotAllowed, Message: "Method not allowed"})
}
