package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// MovementKind is the direction of a cash movement.
type MovementKind string

const (
	MovementInflow  MovementKind = "INFLOW"
	MovementOutflow MovementKind = "OUTFLOW"
)

// ComplianceStatus flags outflows recorded without supporting evidence.
type ComplianceStatus string

const (
	ComplianceNone            ComplianceStatus = "NONE"
	CompliancePendingEvidence ComplianceStatus = "PENDING_EVIDENCE"
)

// Movement is an immutable wallet ledger entry. Amount is always positive;
// Kind carries the sign.
type Movement struct {
	ID          uuid.UUID        `json:"id"`
	WalletID    uuid.UUID        `json:"wallet_id"`
	Amount      Money            `json:"amount"`
	Kind        MovementKind     `json:"kind"`
	Currency    string           `json:"currency"`
	Reference   string           `json:"reference"`
	EvidenceURL string           `json:"evidence_url,omitempty"`
	Compliance  ComplianceStatus `json:"compliance"`
	CreatedAt   time.Time        `json:"created_at"`
}

func newMovement(walletID uuid.UUID, amount Money, kind MovementKind, currency, reference, evidenceURL string) (*Movement, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, NewValidationError("reference", "must not be blank")
	}
	evidenceURL = strings.TrimSpace(evidenceURL)

	compliance := ComplianceNone
	if kind == MovementOutflow && evidenceURL == "" {
		compliance = CompliancePendingEvidence
	}

	return &Movement{
		ID:          uuid.New(),
		WalletID:    walletID,
		Amount:      amount,
		Kind:        kind,
		Currency:    currency,
		Reference:   reference,
		EvidenceURL: evidenceURL,
		Compliance:  compliance,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// SignedAmount is positive for inflows and negative for outflows.
func (m Movement) SignedAmount() Money {
	if m.Kind == MovementOutflow {
		return m.Amount.Neg()
	}
	return m.Amount
}
