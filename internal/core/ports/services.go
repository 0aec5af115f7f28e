package ports

import (
	"context"
	"time"

	"budget-integrity-ledger/internal/core/domain"

	"github.com/google/uuid"
)

// IntegrityVerdict is the outcome of recomputing a budget digest.
// Validation never errors; a failed comparison is a verdict.
type IntegrityVerdict struct {
	Passed    bool
	Expected  string
	Actual    string
	Algorithm string
	Reason    string // a domain.Violation* constant when Passed is false
}

// IntegrityService computes and checks budget seals.
type IntegrityService interface {
	Algorithm() string
	GenerateApprovalHash(budget *domain.Budget, lines []*domain.BudgetLine, actor string, at time.Time) (string, error)
	GenerateExecutionHash(budget *domain.Budget, lines []*domain.BudgetLine) (string, error)
	// Seal writes the approval hash onto an unsealed budget.
	Seal(budget *domain.Budget, lines []*domain.BudgetLine, actor string, at time.Time) error
	Validate(budget *domain.Budget, lines []*domain.BudgetLine) IntegrityVerdict
}

// IntegrityAuditLogger writes integrity events to the audit trail. It is
// best effort: failures are logged, never returned, and never roll back the
// business transaction.
type IntegrityAuditLogger interface {
	LogHashGenerated(ctx context.Context, budget *domain.Budget)
	LogHashValidated(ctx context.Context, budget *domain.Budget, actor string, verdict IntegrityVerdict)
	LogIntegrityViolation(ctx context.Context, budget *domain.Budget, actor string, violation *domain.BudgetIntegrityViolationError)
}

// OutcomeCache is the Redis-layer cache of finished purchase approvals (fast path).
type OutcomeCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached purchase JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// ApprovalGuard keeps a purchase from being approved by two workers at once.
type ApprovalGuard interface {
	// Claim returns true if the caller now owns the approval of purchaseID,
	// along with the owner token that Release needs.
	Claim(ctx context.Context, purchaseID uuid.UUID, ttl time.Duration) (string, bool, error)
	// Release drops the claim only if token still owns it.
	Release(ctx context.Context, purchaseID uuid.UUID, token string) error
}

// --- Service Ports (Business Logic) ---

// PurchaseService approves purchases atomically against budget and wallet.
type PurchaseService interface {
	CreatePurchase(ctx context.Context, req CreatePurchaseRequest) (*domain.Purchase, error)
	ApprovePurchase(ctx context.Context, req ApprovePurchaseRequest) (*domain.Purchase, error)
	GetPurchase(ctx context.Context, id uuid.UUID) (*domain.Purchase, error)
}

// CreatePurchaseRequest holds input for a new pending purchase.
type CreatePurchaseRequest struct {
	ProjectID   uuid.UUID           `validate:"required"`
	BudgetID    uuid.UUID           `validate:"required"`
	Reference   string              `validate:"required,max=120"`
	Supplier    string              `validate:"max=200"`
	EvidenceURL string              `validate:"omitempty,url"`
	Items       []PurchaseItemInput `validate:"required,min=1,dive"`
}

// PurchaseItemInput is one requested item.
type PurchaseItemInput struct {
	ResourceRef  string    `validate:"required,max=120"`
	BudgetLineID uuid.UUID `validate:"required"`
	Quantity     domain.Money
	UnitPrice    domain.Money
}

// ApprovePurchaseRequest names the purchase to approve and who approves it.
type ApprovePurchaseRequest struct {
	PurchaseID uuid.UUID `validate:"required"`
	Actor      string    `validate:"required,max=100"`
}

// BudgetService manages budgets and their lines.
type BudgetService interface {
	CreateBudget(ctx context.Context, req CreateBudgetRequest) (*domain.Budget, error)
	AddLine(ctx context.Context, req AddLineRequest) (*domain.BudgetLine, error)
	ApplyLineOperation(ctx context.Context, req LineOperationRequest) (*domain.BudgetLine, error)
	ApproveBudget(ctx context.Context, req ApproveBudgetRequest) (*domain.Budget, error)
	VerifyBudget(ctx context.Context, budgetID uuid.UUID, actor string) (IntegrityVerdict, error)
}

type CreateBudgetRequest struct {
	ProjectID uuid.UUID `validate:"required"`
	Name      string    `validate:"required,max=200"`
	Currency  string    `validate:"required,len=3,uppercase"`
}

type AddLineRequest struct {
	BudgetID    uuid.UUID  `validate:"required"`
	Code        string     `validate:"required,max=40"`
	Description string     `validate:"max=200"`
	ParentID    *uuid.UUID `validate:"omitempty"`
}

// LineOperation names a financial operation on a budget line.
type LineOperation string

const (
	LineOpCommit   LineOperation = "COMMIT"
	LineOpReserve  LineOperation = "RESERVE"
	LineOpRelease  LineOperation = "RELEASE"
	LineOpSettle   LineOperation = "SETTLE"
	LineOpRebudget LineOperation = "REBUDGET"
)

type LineOperationRequest struct {
	LineID          uuid.UUID     `validate:"required"`
	Operation       LineOperation `validate:"required,oneof=COMMIT RESERVE RELEASE SETTLE REBUDGET"`
	Amount          domain.Money
	Actor           string `validate:"required,max=100"`
	ExpectedVersion int64  `validate:"min=1"`
}

type ApproveBudgetRequest struct {
	BudgetID uuid.UUID `validate:"required"`
	Actor    string    `validate:"required,max=100"`
}

// WalletService manages project wallets outside purchase approval.
type WalletService interface {
	OpenWallet(ctx context.Context, req OpenWalletRequest) (*domain.Wallet, error)
	Deposit(ctx context.Context, req DepositRequest) (*domain.Movement, error)
	Withdraw(ctx context.Context, req WithdrawRequest) (*domain.Movement, error)
}

type OpenWalletRequest struct {
	ProjectID uuid.UUID `validate:"required"`
	Currency  string    `validate:"required,len=3,uppercase"`
}

type DepositRequest struct {
	ProjectID       uuid.UUID `validate:"required"`
	Amount          domain.Money
	Currency        string `validate:"required,len=3"`
	Reference       string `validate:"required,max=200"`
	EvidenceURL     string `validate:"required,url"`
	ExpectedVersion int64  `validate:"min=1"`
}

type WithdrawRequest struct {
	ProjectID       uuid.UUID `validate:"required"`
	Amount          domain.Money
	Currency        string `validate:"required,len=3"`
	Reference       string `validate:"required,max=200"`
	EvidenceURL     string `validate:"omitempty,url"`
	Actor           string `validate:"required,max=100"`
	ExpectedVersion int64  `validate:"min=1"`
}

// ReportingService builds read-only views.
type ReportingService interface {
	BudgetTree(ctx context.Context, budgetID uuid.UUID) (*BudgetTreeReport, error)
	WalletStatement(ctx context.Context, projectID uuid.UUID) (*WalletStatement, error)
}

// BudgetTreeNode is one line with the rolled-up totals of its subtree.
type BudgetTreeNode struct {
	Line     *domain.BudgetLine
	Totals   domain.Totals
	Children []*BudgetTreeNode
}

type BudgetTreeReport struct {
	Budget *domain.Budget
	Roots  []*BudgetTreeNode
	Total  domain.Totals
}

// WalletStatement lists a wallet's movements and checks the stored balance
// against their fold.
type WalletStatement struct {
	Wallet          *domain.Wallet
	Movements       []domain.Movement
	ReplayedBalance domain.Money
	Drift           bool
	PendingEvidence int
}

// IntegritySweeper validates every sealed budget.
type IntegritySweeper interface {
	Sweep(ctx context.Context, actor string) (*SweepReport, error)
}

type SweepReport struct {
	Checked    int
	Violations []uuid.UUID
	Errors     int
}

// HealthChecker checks connectivity of an external dependency.
type HealthChecker interface {
	Ping(ctx context.Context) error
	Name() string // e.g. "postgresql", "redis"
}
