package handler

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/remiblancher/qsig/internal/api/dto"
	apierrors "github.com/remiblancher/qsig/internal/api/errors"
	"github.com/remiblancher/qsig/internal/audit"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 1000
)

// AuditHandler serves the server's own audit log.
type AuditHandler struct {
	path string
}

// NewAuditHandler creates a new AuditHandler for the log at path.
func NewAuditHandler(path string) *AuditHandler {
	return &AuditHandler{path: path}
}

// Logs handles GET /api/v1/audit/logs?limit=N.
func (h *AuditHandler) Logs(w http.ResponseWriter, r *http.Request) {
	limit := defaultAuditLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxAuditLimit {
			respondError(w, http.StatusBadRequest, apierrors.NewBadRequest("limit must be between 1 and 1000"))
			return
		}
		limit = n
	}

	events, err := audit.ReadEvents(h.path, limit)
	if err != nil {
		respondMappedError(w, r, err)
		return
	}

	entries := make([]dto.AuditEntry, 0, len(events))
	for i := range events {
		entries = append(entries, auditEntry(&events[i]))
	}
	respondJSON(w, http.StatusOK, dto.AuditLogsResponse{Events: entries, Count: len(entries)})
}

// Verify handles GET /api/v1/audit/verify. A broken chain is a verdict,
// not a request failure.
func (h *AuditHandler) Verify(w http.ResponseWriter, r *http.Request) {
	count, err := audit.VerifyChain(h.path)
	if err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Int("valid_events", count).Msg("audit chain verification failed")
		respondJSON(w, http.StatusOK, dto.AuditVerifyResponse{
			Valid:      false,
			EntryCount: count,
			Error:      err.Error(),
		})
		return
	}

	resp := dto.AuditVerifyResponse{Valid: true, EntryCount: count}
	if events, err := audit.ReadEvents(h.path, 0); err == nil && len(events) > 0 {
		resp.FirstEntry = events[0].Timestamp
		resp.LastEntry = events[len(events)-1].Timestamp
	}
	respondJSON(w, http.StatusOK, resp)
}

func auditEntry(e *audit.Event) dto.AuditEntry {
	entry := dto.AuditEntry{
		ID:         e.ID,
		Timestamp:  e.Timestamp,
		EventType:  string(e.EventType),
		Result:     string(e.Result),
		ObjectType: e.Object.Type,
		Family:     e.Object.Family,
		Subject:    e.Object.Subject,
		Algorithm:  e.Context.Algorithm,
		Digest:     e.Context.Digest,
		Reason:     e.Context.Reason,
		Source:     e.Context.Source,
		RequestID:  e.Context.RequestID,
		Hash:       e.Hash,
	}
	if e.Actor.ID != "" {
		entry.Actor = e.Actor.ID
		if e.Actor.Host != "" {
			entry.Actor += "@" + e.Actor.Host
		}
	}
	return entry
}
