package handler

import (
	"net/http"

	"github.com/remiblancher/qsig/internal/api/dto"
	"github.com/remiblancher/qsig/internal/api/service"
)

// SignatureHandler handles algorithm, sign and verify requests.
type SignatureHandler struct {
	service *service.SignatureService
}

// NewSignatureHandler creates a new SignatureHandler.
func NewSignatureHandler(svc *service.SignatureService) *SignatureHandler {
	return &SignatureHandler{service: svc}
}

// Algorithms handles GET /api/v1/algorithms.
func (h *SignatureHandler) Algorithms(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.service.Algorithms())
}

// Resolve handles POST /api/v1/algorithms/resolve.
func (h *SignatureHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req dto.ResolveRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.service.Resolve(&req)
	if err != nil {
		respondMappedError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// Verify handles POST /api/v1/verify.
func (h *SignatureHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req dto.VerifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.service.Verify(r.Context(), &req)
	if err != nil {
		respondMappedError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// VerifyBatch handles POST /api/v1/verify/batch.
func (h *SignatureHandler) VerifyBatch(w http.ResponseWriter, r *http.Request) {
	var req dto.BatchVerifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.service.VerifyBatch(r.Context(), &req)
	if err != nil {
		respondMappedError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// Sign handles POST /api/v1/sign.
func (h *SignatureHandler) Sign(w http.ResponseWriter, r *http.Request) {
	var req dto.SignRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.service.Sign(r.Context(), &req)
	if err != nil {
		respondMappedError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}
