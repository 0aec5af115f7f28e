package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can decide whether to correct input,
// wait for a state change, retry, or escalate.
type Kind string

const (
	KindValidation  Kind = "VALIDATION"
	KindInvariant   Kind = "INVARIANT"
	KindPolicy      Kind = "POLICY"
	KindIntegrity   Kind = "INTEGRITY"
	KindConcurrency Kind = "CONCURRENCY"
	KindNotFound    Kind = "NOT_FOUND"
	KindInternal    Kind = "INTERNAL"
)

// Kinded is implemented by every error that knows its own classification.
type Kinded interface {
	error
	Kind() Kind
}

// Coded is implemented by errors that carry a stable machine-readable code.
type Coded interface {
	error
	Code() string
}

// AppError is a structured error with a stable code and a kind.
type AppError struct {
	ErrCode string `json:"error_code"`
	Message string `json:"message"`
	ErrKind Kind   `json:"kind"`
	Err     error  `json:"-"` // Wrapped internal error (not exposed to callers)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.ErrCode, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.ErrCode, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) Kind() Kind {
	return e.ErrKind
}

func (e *AppError) Code() string {
	return e.ErrCode
}

// Is matches on code so sentinel-style comparisons work against fresh instances.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.ErrCode == e.ErrCode
}

// New creates a new AppError.
func New(kind Kind, code string, message string) *AppError {
	return &AppError{
		ErrCode: code,
		Message: message,
		ErrKind: kind,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(kind Kind, code string, message string, err error) *AppError {
	return &AppError{
		ErrCode: code,
		Message: message,
		ErrKind: kind,
		Err:     err,
	}
}

// KindOf walks the error chain and returns the first classification found.
// Unclassified errors are internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var k Kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindInternal
}

// CodeOf returns the first stable code in the chain, or SYS_001.
func CodeOf(err error) string {
	var c Coded
	if errors.As(err, &c) {
		return c.Code()
	}
	return "SYS_001"
}

// IsRetryable reports whether retrying the same request may succeed.
// Only concurrency conflicts qualify.
func IsRetryable(err error) bool {
	return KindOf(err) == KindConcurrency
}

// ---- Validation (VAL) ----

func Validation(message string) *AppError {
	return New(KindValidation, "VAL_001", message)
}

func ErrInvalidAmount(message string) *AppError {
	return New(KindValidation, "VAL_002", message)
}

func ErrCurrencyMismatch(expected, actual string) *AppError {
	return New(KindValidation, "VAL_003", fmt.Sprintf("currency mismatch: expected %s, got %s", expected, actual))
}

func ErrInvalidState(message string) *AppError {
	return New(KindValidation, "VAL_004", message)
}

func ErrDivisionByZero() *AppError {
	return New(KindValidation, "VAL_005", "division by zero")
}

// ---- Integrity (INT) ----

func ErrBudgetNotSealed(budgetID string) *AppError {
	return New(KindIntegrity, "INT_002", fmt.Sprintf("budget %s has no approval hash", budgetID))
}

func ErrApprovalHashAlreadySet(budgetID string) *AppError {
	return New(KindIntegrity, "INT_003", fmt.Sprintf("budget %s already carries an approval hash", budgetID))
}

func ErrUnknownAlgorithm(name string) *AppError {
	return New(KindValidation, "INT_004", fmt.Sprintf("unknown integrity algorithm %q", name))
}

// ---- Concurrency (CON) ----

func ErrApprovalInProgress(purchaseID string) *AppError {
	return New(KindConcurrency, "CON_002", fmt.Sprintf("purchase %s is being approved by another worker", purchaseID))
}

// ---- Lookup (NF) ----

func ErrNotFound(entity string) *AppError {
	return New(KindNotFound, "NF_001", fmt.Sprintf("%s not found", entity))
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap(KindInternal, "SYS_001", "Internal database error", err)
}

func ErrLockTimeout(err error) *AppError {
	return Wrap(KindConcurrency, "SYS_002", "Lock acquisition timeout", err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap(KindInternal, "SYS_001", "Internal server error", err)
}
