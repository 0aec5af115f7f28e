package ports

import (
	"context"

	"budget-integrity-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Every Save-style method takes the version the caller read. The write
// succeeds only if the stored version still matches; otherwise it returns a
// *domain.VersionConflictError and changes nothing. Successful saves bump
// the version on the passed aggregate.

// BudgetRepository defines persistence operations for budgets.
// Methods accepting pgx.Tx are used inside transaction blocks for pessimistic locking.
type BudgetRepository interface {
	Create(ctx context.Context, tx pgx.Tx, budget *domain.Budget) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Budget, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Budget, error)
	GetSealedByProjectForUpdate(ctx context.Context, tx pgx.Tx, projectID uuid.UUID) (*domain.Budget, error)
	// ListSealed pages through sealed budgets ordered by id, starting after `after`.
	ListSealed(ctx context.Context, after uuid.UUID, limit int) ([]*domain.Budget, error)
	Seal(ctx context.Context, tx pgx.Tx, budget *domain.Budget, expectedVersion int64) error
	UpdateExecutionHash(ctx context.Context, tx pgx.Tx, budget *domain.Budget, expectedVersion int64) error
}

// BudgetLineRepository defines persistence operations for budget lines.
type BudgetLineRepository interface {
	Create(ctx context.Context, tx pgx.Tx, line *domain.BudgetLine) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.BudgetLine, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.BudgetLine, error)
	ListByBudget(ctx context.Context, budgetID uuid.UUID) ([]*domain.BudgetLine, error)
	ListByBudgetForUpdate(ctx context.Context, tx pgx.Tx, budgetID uuid.UUID) ([]*domain.BudgetLine, error)
	Save(ctx context.Context, tx pgx.Tx, line *domain.BudgetLine, expectedVersion int64) error
}

// WalletRepository defines persistence operations for wallets and their
// insert-only movements.
type WalletRepository interface {
	Create(ctx context.Context, tx pgx.Tx, wallet *domain.Wallet) error
	GetByProjectID(ctx context.Context, projectID uuid.UUID) (*domain.Wallet, error)
	GetByProjectIDForUpdate(ctx context.Context, tx pgx.Tx, projectID uuid.UUID) (*domain.Wallet, error)
	// Save writes the balance and appends newMovements in the same transaction.
	Save(ctx context.Context, tx pgx.Tx, wallet *domain.Wallet, expectedVersion int64, newMovements []*domain.Movement) error
	ListMovements(ctx context.Context, walletID uuid.UUID) ([]domain.Movement, error)
}

// PurchaseRepository defines persistence operations for purchases.
type PurchaseRepository interface {
	Create(ctx context.Context, tx pgx.Tx, purchase *domain.Purchase) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Purchase, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Purchase, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, purchase *domain.Purchase, expectedVersion int64) error
}

// AuditRepository persists integrity audit entries. Writes are outside any
// business transaction.
type AuditRepository interface {
	Create(ctx context.Context, entry *domain.IntegrityAuditEntry) error
	ListByBudget(ctx context.Context, budgetID uuid.UUID) ([]domain.IntegrityAuditEntry, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
