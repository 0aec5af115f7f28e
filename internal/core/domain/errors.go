package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"budget-integrity-ledger/pkg/apperror"
)

// ValidationError reports malformed input. Correct the request and resend.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Kind() apperror.Kind { return apperror.KindValidation }
func (e *ValidationError) Code() string        { return "VAL_001" }

// BudgetOverrunError is raised when an operation would push a line's
// available balance below zero. The line is left untouched.
type BudgetOverrunError struct {
	LineID         uuid.UUID
	Committed      Money
	Reserved       Money
	Spent          Money
	RequestedDelta Money
}

func (e *BudgetOverrunError) Error() string {
	return fmt.Sprintf("budget overrun on line %s: committed=%s reserved=%s spent=%s requested=%s",
		e.LineID, e.Committed, e.Reserved, e.Spent, e.RequestedDelta)
}

func (e *BudgetOverrunError) Kind() apperror.Kind { return apperror.KindInvariant }
func (e *BudgetOverrunError) Code() string        { return "INV_001" }

// InsufficientFundsError is raised when an outflow exceeds the wallet balance.
type InsufficientFundsError struct {
	ProjectID uuid.UUID
	Balance   Money
	Requested Money
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds in wallet of project %s: balance=%s requested=%s",
		e.ProjectID, e.Balance, e.Requested)
}

func (e *InsufficientFundsError) Kind() apperror.Kind { return apperror.KindInvariant }
func (e *InsufficientFundsError) Code() string        { return "INV_002" }

// EvidencePolicyError is raised by the evidence-compliance gate. Attaching
// evidence to pending movements clears it.
type EvidencePolicyError struct {
	WalletID  uuid.UUID
	Pending   int
	Threshold int
}

func (e *EvidencePolicyError) Error() string {
	return fmt.Sprintf("wallet %s has %d movements pending evidence (threshold %d): attach evidence before further outflows",
		e.WalletID, e.Pending, e.Threshold)
}

func (e *EvidencePolicyError) Kind() apperror.Kind { return apperror.KindPolicy }
func (e *EvidencePolicyError) Code() string        { return "POL_001" }

// Integrity violation types.
const (
	ViolationHashMismatch      = "HASH_MISMATCH"
	ViolationAlgorithmMismatch = "ALGORITHM_MISMATCH"
	ViolationNotSealed         = "NOT_SEALED"
	ViolationIntegrityFlag     = "INTEGRITY_CHECK_FAILED"
)

// BudgetIntegrityViolationError is raised when the recomputed digest of a
// budget does not match the stored one. Escalate; never retry blindly.
type BudgetIntegrityViolationError struct {
	BudgetID      uuid.UUID
	ExpectedHash  string
	ActualHash    string
	ViolationType string
}

func (e *BudgetIntegrityViolationError) Error() string {
	return fmt.Sprintf("integrity violation on budget %s (%s): expected=%s actual=%s",
		e.BudgetID, e.ViolationType, shortHash(e.ExpectedHash), shortHash(e.ActualHash))
}

func (e *BudgetIntegrityViolationError) Kind() apperror.Kind { return apperror.KindIntegrity }
func (e *BudgetIntegrityViolationError) Code() string        { return "INT_001" }

func shortHash(h string) string {
	if len(h) > 16 {
		return h[:16] + "..."
	}
	if h == "" {
		return "<none>"
	}
	return h
}

// ErrVersionConflict is the sentinel matched by every VersionConflictError.
var ErrVersionConflict = errors.New("version conflict")

// VersionConflictError reports a failed optimistic-concurrency check.
// Reload and retry.
type VersionConflictError struct {
	Entity          string
	ID              uuid.UUID
	ExpectedVersion int64
}

func NewVersionConflict(entity string, id uuid.UUID, expected int64) *VersionConflictError {
	return &VersionConflictError{Entity: entity, ID: id, ExpectedVersion: expected}
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("%s %s: %v (expected version %d)", e.Entity, e.ID, ErrVersionConflict, e.ExpectedVersion)
}

func (e *VersionConflictError) Unwrap() error { return ErrVersionConflict }

func (e *VersionConflictError) Kind() apperror.Kind { return apperror.KindConcurrency }
func (e *VersionConflictError) Code() string        { return "CON_001" }
