package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LineStatus is the lifecycle state of a budget line.
type LineStatus string

const (
	LineStatusDraft    LineStatus = "DRAFT"
	LineStatusApproved LineStatus = "APPROVED"
	LineStatusClosed   LineStatus = "CLOSED"
)

// BudgetLine tracks committed, reserved and spent money for one item code.
// Mutate it only through its methods: each one keeps
// Committed - (Reserved + Spent) >= 0 and leaves the line untouched when it
// returns an error.
type BudgetLine struct {
	ID          uuid.UUID  `json:"id"`
	BudgetID    uuid.UUID  `json:"budget_id"`
	ProjectID   uuid.UUID  `json:"project_id"`
	Code        string     `json:"code"`
	Description string     `json:"description,omitempty"`
	Committed   Money      `json:"committed"`
	Reserved    Money      `json:"reserved"`
	Spent       Money      `json:"spent"`
	Status      LineStatus `json:"status"`
	Version     int64      `json:"version"`
	ParentID    *uuid.UUID `json:"parent_id,omitempty"`
	Level       int        `json:"level"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewBudgetLine creates a DRAFT line with zero amounts.
func NewBudgetLine(budgetID, projectID uuid.UUID, code, description string, parentID *uuid.UUID, level int) (*BudgetLine, error) {
	normalized, err := normalizeCode(code)
	if err != nil {
		return nil, err
	}
	if level < 1 {
		return nil, NewValidationError("level", fmt.Sprintf("must be >= 1, got %d", level))
	}
	if level == 1 && parentID != nil {
		return nil, NewValidationError("parent_id", "a level-1 line has no parent")
	}
	if level > 1 && parentID == nil {
		return nil, NewValidationError("parent_id", fmt.Sprintf("a level-%d line needs a parent", level))
	}

	now := time.Now().UTC()
	return &BudgetLine{
		ID:          uuid.New(),
		BudgetID:    budgetID,
		ProjectID:   projectID,
		Code:        normalized,
		Description: strings.TrimSpace(description),
		Status:      LineStatusDraft,
		Version:     1,
		ParentID:    parentID,
		Level:       level,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func normalizeCode(code string) (string, error) {
	c := strings.ToUpper(strings.TrimSpace(code))
	if c == "" {
		return "", NewValidationError("code", "must not be blank")
	}
	return c, nil
}

// AvailableBalance is Committed - (Reserved + Spent).
func (l *BudgetLine) AvailableBalance() Money {
	return l.Committed.Sub(l.Reserved.Add(l.Spent))
}

// Commit increases the committed amount.
func (l *BudgetLine) Commit(amount Money) error {
	if err := l.checkFinancial("commit", amount); err != nil {
		return err
	}
	l.Committed = l.Committed.Add(amount)
	l.touch()
	return nil
}

// Reserve earmarks part of the available balance.
func (l *BudgetLine) Reserve(amount Money) error {
	if err := l.checkFinancial("reserve", amount); err != nil {
		return err
	}
	if err := l.checkAvailable(l.Committed, l.Reserved.Add(amount), l.Spent, amount); err != nil {
		return err
	}
	l.Reserved = l.Reserved.Add(amount)
	l.touch()
	return nil
}

// Release returns reserved money to the available balance.
func (l *BudgetLine) Release(amount Money) error {
	if err := l.checkFinancial("release", amount); err != nil {
		return err
	}
	if amount.GreaterThan(l.Reserved) {
		return NewValidationError("amount", fmt.Sprintf("release of %s exceeds reserved %s", amount, l.Reserved))
	}
	l.Reserved = l.Reserved.Sub(amount)
	l.touch()
	return nil
}

// Spend records actual expenditure against the available balance.
func (l *BudgetLine) Spend(amount Money) error {
	if err := l.checkFinancial("spend", amount); err != nil {
		return err
	}
	if err := l.checkAvailable(l.Committed, l.Reserved, l.Spent.Add(amount), amount); err != nil {
		return err
	}
	l.Spent = l.Spent.Add(amount)
	l.touch()
	return nil
}

// Settle turns part of a reservation into actual spend. The available
// balance does not change.
func (l *BudgetLine) Settle(amount Money) error {
	if err := l.checkFinancial("settle", amount); err != nil {
		return err
	}
	if amount.GreaterThan(l.Reserved) {
		return NewValidationError("amount", fmt.Sprintf("settlement of %s exceeds reserved %s", amount, l.Reserved))
	}
	l.Reserved = l.Reserved.Sub(amount)
	l.Spent = l.Spent.Add(amount)
	l.touch()
	return nil
}

// Rebudget replaces the committed amount.
func (l *BudgetLine) Rebudget(newCommitted Money) error {
	if l.Status == LineStatusClosed {
		return NewValidationError("status", "line is closed")
	}
	if newCommitted.IsNegative() {
		return NewValidationError("committed", "must not be negative")
	}
	if err := l.checkAvailable(newCommitted, l.Reserved, l.Spent, newCommitted.Sub(l.Committed)); err != nil {
		return err
	}
	l.Committed = newCommitted
	l.touch()
	return nil
}

// Rename edits the structural description of a DRAFT line.
func (l *BudgetLine) Rename(code, description string) error {
	if l.Status != LineStatusDraft {
		return NewValidationError("status", fmt.Sprintf("structural edits are locked in %s", l.Status))
	}
	normalized, err := normalizeCode(code)
	if err != nil {
		return err
	}
	l.Code = normalized
	l.Description = strings.TrimSpace(description)
	l.touch()
	return nil
}

// Approve locks structural edits.
func (l *BudgetLine) Approve() error {
	if l.Status != LineStatusDraft {
		return NewValidationError("status", fmt.Sprintf("cannot approve a %s line", l.Status))
	}
	l.Status = LineStatusApproved
	l.touch()
	return nil
}

// Close is terminal.
func (l *BudgetLine) Close() error {
	if l.Status == LineStatusClosed {
		return NewValidationError("status", "line is already closed")
	}
	l.Status = LineStatusClosed
	l.touch()
	return nil
}

func (l *BudgetLine) checkFinancial(op string, amount Money) error {
	if l.Status == LineStatusClosed {
		return NewValidationError("status", fmt.Sprintf("cannot %s on a closed line", op))
	}
	if !amount.IsPositive() {
		return NewValidationError("amount", fmt.Sprintf("%s amount must be positive, got %s", op, amount))
	}
	return nil
}

func (l *BudgetLine) checkAvailable(committed, reserved, spent, delta Money) error {
	if committed.Sub(reserved.Add(spent)).IsNegative() {
		return &BudgetOverrunError{
			LineID:         l.ID,
			Committed:      l.Committed,
			Reserved:       l.Reserved,
			Spent:          l.Spent,
			RequestedDelta: delta,
		}
	}
	return nil
}

func (l *BudgetLine) touch() {
	l.UpdatedAt = time.Now().UTC()
}
