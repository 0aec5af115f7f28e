package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PurchaseStatus represents the lifecycle state of a purchase.
type PurchaseStatus string

const (
	PurchaseStatusPending  PurchaseStatus = "PENDING"
	PurchaseStatusApproved PurchaseStatus = "APPROVED"
	PurchaseStatusError    PurchaseStatus = "ERROR"
)

// PurchaseItem charges Quantity x UnitPrice to one budget line.
type PurchaseItem struct {
	ResourceRef  string    `json:"resource_ref"`
	BudgetLineID uuid.UUID `json:"budget_line_id"`
	Quantity     Money     `json:"quantity"`
	UnitPrice    Money     `json:"unit_price"`
}

// Amount is the derived item total.
func (i PurchaseItem) Amount() Money {
	return i.Quantity.MulMoney(i.UnitPrice)
}

// Purchase is a request to spend against a budget and pay from the
// project wallet.
type Purchase struct {
	ID            uuid.UUID      `json:"id"`
	ProjectID     uuid.UUID      `json:"project_id"`
	BudgetID      uuid.UUID      `json:"budget_id"`
	Reference     string         `json:"reference"`
	Supplier      string         `json:"supplier,omitempty"`
	EvidenceURL   string         `json:"evidence_url,omitempty"`
	Items         []PurchaseItem `json:"items"`
	Status        PurchaseStatus `json:"status"`
	FailureReason string         `json:"failure_reason,omitempty"`
	Version       int64          `json:"version"`
	CreatedAt     time.Time      `json:"created_at"`
	ProcessedAt   *time.Time     `json:"processed_at,omitempty"`
}

func NewPurchase(projectID, budgetID uuid.UUID, reference, supplier, evidenceURL string, items []PurchaseItem) (*Purchase, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, NewValidationError("reference", "must not be blank")
	}
	if len(items) == 0 {
		return nil, NewValidationError("items", "a purchase needs at least one item")
	}
	for i, it := range items {
		if !it.Quantity.IsPositive() {
			return nil, NewValidationError(fmt.Sprintf("items[%d].quantity", i), "must be positive")
		}
		if !it.UnitPrice.IsPositive() {
			return nil, NewValidationError(fmt.Sprintf("items[%d].unit_price", i), "must be positive")
		}
		if it.BudgetLineID == uuid.Nil {
			return nil, NewValidationError(fmt.Sprintf("items[%d].budget_line_id", i), "is required")
		}
	}

	return &Purchase{
		ID:          uuid.New(),
		ProjectID:   projectID,
		BudgetID:    budgetID,
		Reference:   reference,
		Supplier:    strings.TrimSpace(supplier),
		EvidenceURL: strings.TrimSpace(evidenceURL),
		Items:       append([]PurchaseItem(nil), items...),
		Status:      PurchaseStatusPending,
		Version:     1,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// Total is the sum of item amounts.
func (p *Purchase) Total() Money {
	total := Zero()
	for _, it := range p.Items {
		total = total.Add(it.Amount())
	}
	return total
}

// AmountsByLine aggregates item amounts per budget line, keeping the order
// in which lines first appear.
func (p *Purchase) AmountsByLine() ([]uuid.UUID, map[uuid.UUID]Money) {
	order := make([]uuid.UUID, 0, len(p.Items))
	amounts := make(map[uuid.UUID]Money, len(p.Items))
	for _, it := range p.Items {
		if _, seen := amounts[it.BudgetLineID]; !seen {
			order = append(order, it.BudgetLineID)
		}
		amounts[it.BudgetLineID] = amounts[it.BudgetLineID].Add(it.Amount())
	}
	return order, amounts
}

// LineConsumption is what an approved purchase spent on one budget line.
type LineConsumption struct {
	PurchaseID   uuid.UUID `json:"purchase_id"`
	BudgetLineID uuid.UUID `json:"budget_line_id"`
	Amount       Money     `json:"amount"`
	Reference    string    `json:"reference"`
	ConsumedAt   time.Time `json:"consumed_at"`
}

// Consumptions lists the per-line spend of an approved purchase, in the
// order lines first appear. Other statuses consumed nothing.
func (p *Purchase) Consumptions() []LineConsumption {
	if p.Status != PurchaseStatusApproved || p.ProcessedAt == nil {
		return nil
	}
	order, amounts := p.AmountsByLine()
	out := make([]LineConsumption, 0, len(order))
	for _, lineID := range order {
		out = append(out, LineConsumption{
			PurchaseID:   p.ID,
			BudgetLineID: lineID,
			Amount:       amounts[lineID],
			Reference:    p.Reference,
			ConsumedAt:   *p.ProcessedAt,
		})
	}
	return out
}

// IsTerminal returns true if the purchase is in a final state.
func (p *Purchase) IsTerminal() bool {
	return p.Status == PurchaseStatusApproved || p.Status == PurchaseStatusError
}

// Approve moves a pending purchase to APPROVED.
func (p *Purchase) Approve(at time.Time) error {
	if p.Status != PurchaseStatusPending {
		return NewValidationError("status", fmt.Sprintf("cannot approve a %s purchase", p.Status))
	}
	p.Status = PurchaseStatusApproved
	p.ProcessedAt = &at
	return nil
}

// MarkError moves a pending purchase to ERROR.
func (p *Purchase) MarkError(reason string, at time.Time) error {
	if p.Status != PurchaseStatusPending {
		return NewValidationError("status", fmt.Sprintf("cannot fail a %s purchase", p.Status))
	}
	p.Status = PurchaseStatusError
	p.FailureReason = reason
	p.ProcessedAt = &at
	return nil
}

// MovementReference is the wallet reference text for this purchase.
func (p *Purchase) MovementReference() string {
	return fmt.Sprintf("purchase:%s %s", p.ID, p.Reference)
}
