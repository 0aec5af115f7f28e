package service

import (
	"testing"

	"budget-integrity-ledger/internal/core/domain"
	"budget-integrity-ledger/internal/core/ports"
	"budget-integrity-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRequest(t *testing.T) {
	tests := []struct {
		name    string
		req     any
		wantErr string
	}{
		{
			name: "valid budget",
			req:  ports.CreateBudgetRequest{ProjectID: uuid.New(), Name: "Roof", Currency: "USD"},
		},
		{
			name:    "nil project id",
			req:     ports.CreateBudgetRequest{Name: "Roof", Currency: "USD"},
			wantErr: "ProjectID",
		},
		{
			name:    "lowercase currency",
			req:     ports.CreateBudgetRequest{ProjectID: uuid.New(), Name: "Roof", Currency: "usd"},
			wantErr: "uppercase",
		},
		{
			name:    "bad operation",
			req:     ports.LineOperationRequest{LineID: uuid.New(), Operation: "STEAL", Actor: "a", ExpectedVersion: 1},
			wantErr: "oneof",
		},
		{
			name:    "missing expected version",
			req:     ports.LineOperationRequest{LineID: uuid.New(), Operation: ports.LineOpCommit, Actor: "a"},
			wantErr: "ExpectedVersion",
		},
		{
			name: "item without line",
			req: ports.CreatePurchaseRequest{
				ProjectID: uuid.New(), BudgetID: uuid.New(), Reference: "PO-1",
				Items: []ports.PurchaseItemInput{{ResourceRef: "cement"}},
			},
			wantErr: "Items[0].BudgetLineID",
		},
		{
			name: "bad evidence url",
			req: ports.CreatePurchaseRequest{
				ProjectID: uuid.New(), BudgetID: uuid.New(), Reference: "PO-1", EvidenceURL: "not a url",
				Items: []ports.PurchaseItemInput{{ResourceRef: "cement", BudgetLineID: uuid.New()}},
			},
			wantErr: "EvidenceURL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateRequest(tt.req)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
		})
	}
}

func TestRequirePositive(t *testing.T) {
	assert.NoError(t, requirePositive("amount", domain.MustParseMoney("0.01")))
	assert.Error(t, requirePositive("amount", domain.Zero()))
	assert.Error(t, requirePositive("amount", domain.MustParseMoney("-1")))
}
