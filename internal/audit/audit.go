package audit

import (
	"context"
	"time"
)

// Event is the structured audit record for one credential lifecycle
// operation. Raw tokens and lookup hashes never appear here; records are
// referenced by credential and family id only.
type Event struct {
	Timestamp    time.Time         `json:"timestamp"`
	EventType    string            `json:"event_type"`
	IdentityID   string            `json:"identity_id,omitempty"`
	CredentialID string            `json:"credential_id,omitempty"`
	FamilyID     string            `json:"family_id,omitempty"`
	IP           string            `json:"ip,omitempty"`
	Success      bool              `json:"success"`
	Error        string            `json:"error,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Sink receives emitted audit events. Implementations must tolerate
// concurrent calls; the dispatcher delivers from a single goroutine, but
// sinks are also usable directly.
type Sink interface {
	Emit(ctx context.Context, event Event)
}
