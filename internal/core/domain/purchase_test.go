package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPurchase_Validation(t *testing.T) {
	line := uuid.New()
	good := PurchaseItem{ResourceRef: "cement", BudgetLineID: line, Quantity: MoneyFromInt(2), UnitPrice: MoneyFromInt(10)}

	tests := []struct {
		name      string
		reference string
		items     []PurchaseItem
		wantErr   bool
	}{
		{"valid", "PO-1", []PurchaseItem{good}, false},
		{"blank reference", " ", []PurchaseItem{good}, true},
		{"no items", "PO-1", nil, true},
		{"zero quantity", "PO-1", []PurchaseItem{{BudgetLineID: line, Quantity: Zero(), UnitPrice: MoneyFromInt(1)}}, true},
		{"negative price", "PO-1", []PurchaseItem{{BudgetLineID: line, Quantity: MoneyFromInt(1), UnitPrice: MoneyFromInt(-1)}}, true},
		{"missing line", "PO-1", []PurchaseItem{{Quantity: MoneyFromInt(1), UnitPrice: MoneyFromInt(1)}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPurchase(uuid.New(), uuid.New(), tt.reference, "ACME", "", tt.items)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, PurchaseStatusPending, p.Status)
			assert.False(t, p.IsTerminal())
		})
	}
}

func TestPurchase_TotalAndAggregation(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	p, err := NewPurchase(uuid.New(), uuid.New(), "PO-7", "", "", []PurchaseItem{
		{ResourceRef: "r1", BudgetLineID: a, Quantity: MustParseMoney("2.5"), UnitPrice: MustParseMoney("100")},
		{ResourceRef: "r2", BudgetLineID: b, Quantity: MoneyFromInt(1), UnitPrice: MustParseMoney("30.10")},
		{ResourceRef: "r3", BudgetLineID: a, Quantity: MoneyFromInt(4), UnitPrice: MustParseMoney("0.25")},
	})
	require.NoError(t, err)

	assert.Equal(t, "281.1000", p.Total().String())

	order, amounts := p.AmountsByLine()
	assert.Equal(t, []uuid.UUID{a, b}, order)
	assert.Equal(t, "251.0000", amounts[a].String())
	assert.Equal(t, "30.1000", amounts[b].String())
}

func TestPurchase_Consumptions(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	p, err := NewPurchase(uuid.New(), uuid.New(), "PO-12", "", "", []PurchaseItem{
		{BudgetLineID: a, Quantity: MoneyFromInt(2), UnitPrice: MustParseMoney("10")},
		{BudgetLineID: b, Quantity: MoneyFromInt(1), UnitPrice: MustParseMoney("5")},
		{BudgetLineID: a, Quantity: MoneyFromInt(1), UnitPrice: MustParseMoney("1.5")},
	})
	require.NoError(t, err)
	assert.Nil(t, p.Consumptions(), "pending purchases consume nothing")

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, p.Approve(at))

	got := p.Consumptions()
	require.Len(t, got, 2)
	assert.Equal(t, a, got[0].BudgetLineID)
	assert.Equal(t, "21.5000", got[0].Amount.String())
	assert.Equal(t, b, got[1].BudgetLineID)
	assert.Equal(t, "5.0000", got[1].Amount.String())
	for _, c := range got {
		assert.Equal(t, p.ID, c.PurchaseID)
		assert.Equal(t, "PO-12", c.Reference)
		assert.Equal(t, at, c.ConsumedAt)
	}
}

func TestPurchase_Transitions(t *testing.T) {
	now := time.Now()
	newP := func() *Purchase {
		p, err := NewPurchase(uuid.New(), uuid.New(), "PO", "", "", []PurchaseItem{
			{BudgetLineID: uuid.New(), Quantity: MoneyFromInt(1), UnitPrice: MoneyFromInt(1)},
		})
		require.NoError(t, err)
		return p
	}

	p := newP()
	require.NoError(t, p.Approve(now))
	assert.Equal(t, PurchaseStatusApproved, p.Status)
	assert.NotNil(t, p.ProcessedAt)
	assert.Error(t, p.Approve(now))
	assert.Error(t, p.MarkError("late", now))

	p = newP()
	require.NoError(t, p.MarkError("integrity violation", now))
	assert.Equal(t, PurchaseStatusError, p.Status)
	assert.Equal(t, "integrity violation", p.FailureReason)
	assert.True(t, p.IsTerminal())
	assert.Error(t, p.Approve(now))
}

func TestBudget_Seal(t *testing.T) {
	b, err := NewBudget(uuid.New(), "Tower A", "PEN")
	require.NoError(t, err)
	assert.False(t, b.IsSealed())
	assert.Error(t, b.RecordExecution("abc"), "unsealed budgets have no execution hash")

	at := time.Date(2026, 3, 1, 10, 0, 0, 123456789, time.FixedZone("PET", -5*3600))
	require.NoError(t, b.Seal("h1", "sha256-jcs-v1", "alice", at))
	assert.True(t, b.IsSealed())
	assert.Equal(t, BudgetStatusApproved, b.Status)
	assert.Equal(t, "h1", b.Integrity.ApprovalHash)
	assert.Equal(t, "h1", b.Integrity.ExecutionHash)
	assert.True(t, b.Integrity.Pristine())
	assert.Equal(t, time.UTC, b.Integrity.GeneratedAt.Location())
	assert.Equal(t, 123456000, b.Integrity.GeneratedAt.Nanosecond())

	assert.Error(t, b.Seal("h2", "sha256-jcs-v1", "mallory", at), "approval hash is write-once")
	assert.Equal(t, "h1", b.Integrity.ApprovalHash)

	require.NoError(t, b.RecordExecution("h3"))
	assert.Equal(t, "h1", b.Integrity.ApprovalHash)
	assert.Equal(t, "h3", b.Integrity.ExecutionHash)
	assert.False(t, b.Integrity.Pristine())
	assert.Error(t, b.RecordExecution(""))
}

func TestNewBudget_Validation(t *testing.T) {
	_, err := NewBudget(uuid.New(), "", "PEN")
	assert.Error(t, err)
	_, err = NewBudget(uuid.New(), "X", "pen")
	assert.Error(t, err)
}
