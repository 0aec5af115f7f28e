package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultEvidenceThreshold is the number of evidence-less outflows a wallet
// tolerates before refusing another one.
const DefaultEvidenceThreshold = 3

// Wallet is the cash ledger of one project. Balance never goes negative.
// Operations return the movement they produce; persisting it is the
// caller's job.
type Wallet struct {
	ID        uuid.UUID `json:"id"`
	ProjectID uuid.UUID `json:"project_id"`
	Currency  string    `json:"currency"`
	Balance   Money     `json:"balance"`
	Version   int64     `json:"version"`
	// PendingEvidence counts persisted movements flagged PENDING_EVIDENCE.
	PendingEvidence int `json:"pending_evidence"`
	// EvidenceThreshold is policy, not state. Zero means the default.
	EvidenceThreshold int       `json:"-"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func NewWallet(projectID uuid.UUID, currency string) (*Wallet, error) {
	if err := ValidateCurrency(currency); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &Wallet{
		ID:        uuid.New(),
		ProjectID: projectID,
		Currency:  currency,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (w *Wallet) threshold() int {
	if w.EvidenceThreshold > 0 {
		return w.EvidenceThreshold
	}
	return DefaultEvidenceThreshold
}

// PendingEvidenceCount returns the number of outflows still missing evidence.
func (w *Wallet) PendingEvidenceCount() int {
	return w.PendingEvidence
}

// CanCover reports whether the balance covers amount.
func (w *Wallet) CanCover(amount Money) bool {
	return !w.Balance.Sub(amount).IsNegative()
}

// Inflow credits the wallet. Income always needs evidence.
func (w *Wallet) Inflow(amount Money, currency, reference, evidenceURL string) (*Movement, error) {
	if err := w.checkAmount(amount, currency); err != nil {
		return nil, err
	}
	if strings.TrimSpace(evidenceURL) == "" {
		return nil, NewValidationError("evidence_url", "an inflow must carry evidence")
	}
	mv, err := newMovement(w.ID, amount, MovementInflow, currency, reference, evidenceURL)
	if err != nil {
		return nil, err
	}
	w.Balance = w.Balance.Add(amount)
	w.UpdatedAt = mv.CreatedAt
	return mv, nil
}

// Outflow debits the wallet. Checks run in a fixed order: amount, currency,
// evidence gate, integrity flag, balance. Nothing changes on rejection.
func (w *Wallet) Outflow(amount Money, currency, reference, evidenceURL string, integrityCheckPassed bool) (*Movement, error) {
	if err := w.checkAmount(amount, currency); err != nil {
		return nil, err
	}

	hasEvidence := strings.TrimSpace(evidenceURL) != ""
	limit := w.threshold()
	if w.PendingEvidence > limit || (!hasEvidence && w.PendingEvidence == limit) {
		return nil, &EvidencePolicyError{WalletID: w.ID, Pending: w.PendingEvidence, Threshold: limit}
	}

	if !integrityCheckPassed {
		return nil, &BudgetIntegrityViolationError{ViolationType: ViolationIntegrityFlag}
	}

	if !w.CanCover(amount) {
		return nil, &InsufficientFundsError{ProjectID: w.ProjectID, Balance: w.Balance, Requested: amount}
	}

	mv, err := newMovement(w.ID, amount, MovementOutflow, currency, reference, evidenceURL)
	if err != nil {
		return nil, err
	}
	w.Balance = w.Balance.Sub(amount)
	if mv.Compliance == CompliancePendingEvidence {
		w.PendingEvidence++
	}
	w.UpdatedAt = mv.CreatedAt
	return mv, nil
}

func (w *Wallet) checkAmount(amount Money, currency string) error {
	if !amount.IsPositive() {
		return NewValidationError("amount", fmt.Sprintf("must be positive, got %s", amount))
	}
	if currency != w.Currency {
		return NewValidationError("currency", fmt.Sprintf("wallet holds %s, got %s", w.Currency, currency))
	}
	if scale := CurrencyScale(currency); !amount.FitsScale(scale) {
		return NewValidationError("amount", fmt.Sprintf("%s allows %d decimals, got %s", currency, scale, amount))
	}
	return nil
}

// ReplayBalance folds movements into a balance.
func ReplayBalance(movements []Movement) Money {
	balance := Zero()
	for _, mv := range movements {
		balance = balance.Add(mv.SignedAmount())
	}
	return balance
}
