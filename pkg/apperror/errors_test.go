package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without wrapped error",
			appErr:   New(KindValidation, "VAL_002", "amount must be positive"),
			expected: "[VAL_002] amount must be positive",
		},
		{
			name:     "with wrapped error",
			appErr:   Wrap(KindInternal, "SYS_001", "DB error", fmt.Errorf("connection refused")),
			expected: "[SYS_001] DB error: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.appErr.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("inner error")
	appErr := Wrap(KindInternal, "SYS_001", "wrapped", inner)

	assert.True(t, errors.Is(appErr, inner))
	assert.Nil(t, New(KindValidation, "VAL_001", "x").Unwrap())
}

func TestAppError_IsMatchesCode(t *testing.T) {
	err := fmt.Errorf("approve: %w", ErrApprovalInProgress("p-1"))

	assert.True(t, errors.Is(err, ErrApprovalInProgress("other")))
	assert.False(t, errors.Is(err, ErrNotFound("purchase")))
}

type fakeKinded struct{ k Kind }

func (f fakeKinded) Error() string { return string(f.k) }
func (f fakeKinded) Kind() Kind    { return f.k }

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"plain error is internal", errors.New("boom"), KindInternal},
		{"app error", Validation("bad"), KindValidation},
		{"wrapped app error", fmt.Errorf("ctx: %w", ErrLockTimeout(errors.New("t"))), KindConcurrency},
		{"custom kinded", fmt.Errorf("ctx: %w", fakeKinded{KindPolicy}), KindPolicy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrApprovalInProgress("p")))
	assert.True(t, IsRetryable(fakeKinded{KindConcurrency}))
	assert.False(t, IsRetryable(fakeKinded{KindIntegrity}))
	assert.False(t, IsRetryable(errors.New("boom")))
}

func TestCodes(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		code string
		kind Kind
	}{
		{"Validation", Validation("x"), "VAL_001", KindValidation},
		{"InvalidAmount", ErrInvalidAmount("x"), "VAL_002", KindValidation},
		{"CurrencyMismatch", ErrCurrencyMismatch("PEN", "USD"), "VAL_003", KindValidation},
		{"InvalidState", ErrInvalidState("x"), "VAL_004", KindValidation},
		{"DivisionByZero", ErrDivisionByZero(), "VAL_005", KindValidation},
		{"BudgetNotSealed", ErrBudgetNotSealed("b"), "INT_002", KindIntegrity},
		{"ApprovalHashAlreadySet", ErrApprovalHashAlreadySet("b"), "INT_003", KindIntegrity},
		{"UnknownAlgorithm", ErrUnknownAlgorithm("md5"), "INT_004", KindValidation},
		{"ApprovalInProgress", ErrApprovalInProgress("p"), "CON_002", KindConcurrency},
		{"NotFound", ErrNotFound("Wallet"), "NF_001", KindNotFound},
		{"DatabaseError", ErrDatabaseError(errors.New("x")), "SYS_001", KindInternal},
		{"InternalError", InternalError(errors.New("x")), "SYS_001", KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code())
			assert.Equal(t, tt.kind, tt.err.Kind())
			assert.Equal(t, tt.code, CodeOf(fmt.Errorf("wrapped: %w", tt.err)))
		})
	}
}

func TestCodeOf_Unclassified(t *testing.T) {
	assert.Equal(t, "SYS_001", CodeOf(errors.New("boom")))
}
