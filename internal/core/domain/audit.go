package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditEvent names an integrity event.
type AuditEvent string

const (
	AuditEventHashGenerated AuditEvent = "HASH_GENERATED"
	AuditEventHashValidated AuditEvent = "HASH_VALIDATED"
	AuditEventHashViolation AuditEvent = "HASH_VIOLATION"
)

// AuditOutcome is SUCCESS or FAILURE.
type AuditOutcome string

const (
	AuditOutcomeSuccess AuditOutcome = "SUCCESS"
	AuditOutcomeFailure AuditOutcome = "FAILURE"
)

// IntegrityAuditEntry records one integrity event. Entries are append-only.
type IntegrityAuditEntry struct {
	ID            uuid.UUID    `json:"id"`
	BudgetID      uuid.UUID    `json:"budget_id"`
	Event         AuditEvent   `json:"event"`
	ApprovalHash  string       `json:"approval_hash,omitempty"`
	ExecutionHash string       `json:"execution_hash,omitempty"`
	Actor         string       `json:"actor"`
	Outcome       AuditOutcome `json:"outcome"`
	Details       string       `json:"details,omitempty"` // JSON string
	Algorithm     string       `json:"algorithm,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}
