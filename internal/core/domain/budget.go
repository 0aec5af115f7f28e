package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BudgetStatus is the lifecycle state of a budget.
type BudgetStatus string

const (
	BudgetStatusDraft    BudgetStatus = "DRAFT"
	BudgetStatusApproved BudgetStatus = "APPROVED"
	BudgetStatusClosed   BudgetStatus = "CLOSED"
)

// IntegrityRecord is the cryptographic seal of an approved budget.
type IntegrityRecord struct {
	ApprovalHash  string    `json:"approval_hash"`
	ExecutionHash string    `json:"execution_hash"`
	GeneratedAt   time.Time `json:"generated_at"`
	GeneratedBy   string    `json:"generated_by"`
	Algorithm     string    `json:"algorithm"`
}

// Pristine reports whether no financial transaction has refreshed the
// execution hash since approval.
func (r *IntegrityRecord) Pristine() bool {
	return r.ExecutionHash == r.ApprovalHash
}

// Budget groups the lines of one project and carries their seal.
type Budget struct {
	ID        uuid.UUID        `json:"id"`
	ProjectID uuid.UUID        `json:"project_id"`
	Name      string           `json:"name"`
	Currency  string           `json:"currency"`
	Status    BudgetStatus     `json:"status"`
	Version   int64            `json:"version"`
	Integrity *IntegrityRecord `json:"integrity,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

func NewBudget(projectID uuid.UUID, name, currency string) (*Budget, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, NewValidationError("name", "must not be blank")
	}
	if err := ValidateCurrency(currency); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &Budget{
		ID:        uuid.New(),
		ProjectID: projectID,
		Name:      name,
		Currency:  currency,
		Status:    BudgetStatusDraft,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// IsSealed reports whether an approval hash has been written.
func (b *Budget) IsSealed() bool {
	return b.Integrity != nil && b.Integrity.ApprovalHash != ""
}

// Seal records the approval hash. It can happen once; the execution hash
// starts equal to the approval hash.
func (b *Budget) Seal(approvalHash, algorithm, actor string, at time.Time) error {
	if b.IsSealed() {
		return NewValidationError("approval_hash", fmt.Sprintf("budget %s is already sealed", b.ID))
	}
	if b.Status != BudgetStatusDraft {
		return NewValidationError("status", fmt.Sprintf("cannot seal a %s budget", b.Status))
	}
	if approvalHash == "" || algorithm == "" {
		return NewValidationError("approval_hash", "hash and algorithm are required")
	}
	b.Integrity = &IntegrityRecord{
		ApprovalHash:  approvalHash,
		ExecutionHash: approvalHash,
		GeneratedAt:   SealTime(at),
		GeneratedBy:   actor,
		Algorithm:     algorithm,
	}
	b.Status = BudgetStatusApproved
	b.UpdatedAt = time.Now().UTC()
	return nil
}

// RecordExecution stores a refreshed execution hash.
func (b *Budget) RecordExecution(executionHash string) error {
	if !b.IsSealed() {
		return NewValidationError("approval_hash", fmt.Sprintf("budget %s is not sealed", b.ID))
	}
	if executionHash == "" {
		return NewValidationError("execution_hash", "must not be blank")
	}
	b.Integrity.ExecutionHash = executionHash
	b.UpdatedAt = time.Now().UTC()
	return nil
}

// SealTime normalizes a timestamp to what PostgreSQL timestamptz keeps, so a
// digest over it survives a round trip.
func SealTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
