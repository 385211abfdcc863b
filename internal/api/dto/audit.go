package dto

// AuditLogsResponse lists the most recent audit events.
type AuditLogsResponse struct {
	Events []AuditEntry `json:"events"`
	Count  int          `json:"count"`
}

// AuditEntry is a flattened audit event.
type AuditEntry struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	EventType string `json:"event_type"`
	Result    string `json:"result"`
	Actor     string `json:"actor,omitempty"`

	// Object fields
	ObjectType string `json:"object_type,omitempty"`
	Family     string `json:"family,omitempty"`
	Subject    string `json:"subject,omitempty"`

	Algorithm string `json:"algorithm,omitempty"`
	Digest    string `json:"digest,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Source    string `json:"source,omitempty"`
	RequestID string `json:"request_id,omitempty"`

	// Hash is the chained hash of the event.
	Hash string `json:"hash"`
}

// AuditVerifyResponse is the result of checking the audit hash chain.
type AuditVerifyResponse struct {
	// Valid reports whether the whole chain verified.
	Valid bool `json:"valid"`

	// EntryCount is the number of events verified before the first error.
	EntryCount int `json:"entry_count"`

	// Error describes the first broken link.
	Error string `json:"error,omitempty"`

	FirstEntry string `json:"first_entry,omitempty"`
	LastEntry  string `json:"last_entry,omitempty"`
}
