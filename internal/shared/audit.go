package shared

import (
	"context"
	"time"
)

// AuditLog is one ledger command recorded after commit. Actor is the
// username from the request context, or "system" for jobs and the CLI.
type AuditLog struct {
	Actor    string         `json:"actor"`
	Action   string         `json:"action"`
	Entity   string         `json:"entity"`
	EntityID string         `json:"entity_id"`
	Meta     map[string]any `json:"meta,omitempty"`
	At       time.Time      `json:"at"`
}

// AuditRecorder persists audit entries.
type AuditRecorder interface {
	RecordAudit(ctx context.Context, log AuditLog) error
}
