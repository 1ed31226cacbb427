package entities

import "time"

// Outcome is the terminal state of an audited invocation
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeRejected  Outcome = "rejected"
	OutcomeFailed    Outcome = "failed"
	OutcomeDryRun    Outcome = "dry_run"
)

// AuditRecord is one immutable audit log entry
type AuditRecord struct {
	ID        string                 `json:"id"`
	Operation string                 `json:"operation"`
	ActorID   string                 `json:"actor_id"`
	SessionID string                 `json:"session_id,omitempty"`
	Arguments map[string]interface{} `json:"arguments"`
	Outcome   Outcome                `json:"outcome"`
	Success   bool                   `json:"success"`
	ErrorKind ErrorKind              `json:"error_kind,omitempty"`
	Message   string                 `json:"message,omitempty"`
	DryRun    bool                   `json:"dry_run"`
	RowCount  int64                  `json:"row_count"`
	CreatedAt time.Time              `json:"created_at"`
}

// AuditFilter narrows an audit listing
type AuditFilter struct {
	ActorID   string
	SessionID string
	Operation string
	Limit     int
}
