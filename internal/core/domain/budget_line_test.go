package domain

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budget-integrity-ledger/pkg/apperror"
)

func newTestLine(t *testing.T, committed string) *BudgetLine {
	t.Helper()
	l, err := NewBudgetLine(uuid.New(), uuid.New(), " mat-01 ", "Cement", nil, 1)
	require.NoError(t, err)
	if committed != "0" {
		require.NoError(t, l.Commit(MustParseMoney(committed)))
	}
	return l
}

func snapshot(l *BudgetLine) [3]string {
	return [3]string{l.Committed.String(), l.Reserved.String(), l.Spent.String()}
}

func TestNewBudgetLine(t *testing.T) {
	parent := uuid.New()
	tests := []struct {
		name     string
		code     string
		parentID *uuid.UUID
		level    int
		wantErr  bool
	}{
		{"root line", "01", nil, 1, false},
		{"child line", "01.02", &parent, 2, false},
		{"blank code", "   ", nil, 1, true},
		{"level zero", "01", nil, 0, true},
		{"root with parent", "01", &parent, 1, true},
		{"child without parent", "01.02", nil, 2, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := NewBudgetLine(uuid.New(), uuid.New(), tt.code, "", tt.parentID, tt.level)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, LineStatusDraft, l.Status)
			assert.Equal(t, int64(1), l.Version)
			assert.True(t, l.AvailableBalance().IsZero())
		})
	}
}

func TestBudgetLine_CodeNormalized(t *testing.T) {
	l := newTestLine(t, "0")
	assert.Equal(t, "MAT-01", l.Code)
}

func TestBudgetLine_ReserveSpendRelease(t *testing.T) {
	l := newTestLine(t, "1000")

	require.NoError(t, l.Reserve(MustParseMoney("300")))
	require.NoError(t, l.Spend(MustParseMoney("200")))
	assert.Equal(t, "500.0000", l.AvailableBalance().String())

	require.NoError(t, l.Release(MustParseMoney("100")))
	assert.Equal(t, "200.0000", l.Reserved.String())
	assert.Equal(t, "600.0000", l.AvailableBalance().String())

	require.NoError(t, l.Settle(MustParseMoney("150")))
	assert.Equal(t, "50.0000", l.Reserved.String())
	assert.Equal(t, "350.0000", l.Spent.String())
	assert.Equal(t, "600.0000", l.AvailableBalance().String())
}

func TestBudgetLine_FullReservationBlocksSpend(t *testing.T) {
	l := newTestLine(t, "1000")
	require.NoError(t, l.Reserve(MustParseMoney("1000")))
	before := snapshot(l)

	err := l.Spend(MustParseMoney("1"))
	require.Error(t, err)

	var overrun *BudgetOverrunError
	require.True(t, errors.As(err, &overrun))
	assert.Equal(t, l.ID, overrun.LineID)
	assert.Equal(t, "1000.0000", overrun.Reserved.String())
	assert.Equal(t, "1.0000", overrun.RequestedDelta.String())
	assert.Equal(t, apperror.KindInvariant, apperror.KindOf(err))
	assert.Equal(t, before, snapshot(l))
}

func TestBudgetLine_RejectionsLeaveStateUnchanged(t *testing.T) {
	tests := []struct {
		name string
		op   func(l *BudgetLine) error
		kind apperror.Kind
	}{
		{"commit zero", func(l *BudgetLine) error { return l.Commit(Zero()) }, apperror.KindValidation},
		{"reserve negative", func(l *BudgetLine) error { return l.Reserve(MustParseMoney("-1")) }, apperror.KindValidation},
		{"reserve overrun", func(l *BudgetLine) error { return l.Reserve(MustParseMoney("801")) }, apperror.KindInvariant},
		{"spend overrun", func(l *BudgetLine) error { return l.Spend(MustParseMoney("800.0001")) }, apperror.KindInvariant},
		{"release beyond reserved", func(l *BudgetLine) error { return l.Release(MustParseMoney("101")) }, apperror.KindValidation},
		{"settle beyond reserved", func(l *BudgetLine) error { return l.Settle(MustParseMoney("101")) }, apperror.KindValidation},
		{"rebudget below usage", func(l *BudgetLine) error { return l.Rebudget(MustParseMoney("199.9999")) }, apperror.KindInvariant},
		{"rebudget negative", func(l *BudgetLine) error { return l.Rebudget(MustParseMoney("-5")) }, apperror.KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLine(t, "1000")
			require.NoError(t, l.Reserve(MustParseMoney("100")))
			require.NoError(t, l.Spend(MustParseMoney("100")))
			before := snapshot(l)
			updated := l.UpdatedAt

			err := tt.op(l)
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperror.KindOf(err))
			assert.Equal(t, before, snapshot(l))
			assert.Equal(t, updated, l.UpdatedAt)
		})
	}
}

func TestBudgetLine_Rebudget(t *testing.T) {
	l := newTestLine(t, "1000")
	require.NoError(t, l.Spend(MustParseMoney("400")))

	require.NoError(t, l.Rebudget(MustParseMoney("400")))
	assert.True(t, l.AvailableBalance().IsZero())

	require.NoError(t, l.Rebudget(MustParseMoney("1500")))
	assert.Equal(t, "1100.0000", l.AvailableBalance().String())
}

func TestBudgetLine_Lifecycle(t *testing.T) {
	l := newTestLine(t, "1000")

	require.NoError(t, l.Rename("mat-02", "Steel"))
	assert.Equal(t, "MAT-02", l.Code)

	require.NoError(t, l.Approve())
	assert.Error(t, l.Approve())
	assert.Error(t, l.Rename("mat-03", ""), "approved lines are structurally locked")
	assert.NoError(t, l.Spend(MustParseMoney("10")), "financial operations stay open after approval")

	require.NoError(t, l.Close())
	assert.Error(t, l.Close())
	assert.Error(t, l.Spend(MustParseMoney("1")))
	assert.Error(t, l.Commit(MustParseMoney("1")))
	assert.Error(t, l.Rebudget(MustParseMoney("2000")))
}
