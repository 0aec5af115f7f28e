package postgres

import (
	"context"
	"fmt"
	"time"

	"budget-integrity-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const budgetColumns = `id, project_id, name, currency, status, version,
		integrity_approval_hash, integrity_execution_hash, integrity_generated_at,
		integrity_generated_by, integrity_algorithm, created_at, updated_at`

// BudgetRepo implements ports.BudgetRepository.
type BudgetRepo struct {
	pool Pool
}

// NewBudgetRepo creates a new BudgetRepo.
func NewBudgetRepo(pool Pool) *BudgetRepo {
	return &BudgetRepo{pool: pool}
}

func scanBudget(row pgx.Row) (*domain.Budget, error) {
	var (
		b                                     domain.Budget
		approval, execution, genBy, algorithm *string
		genAt                                 *time.Time
	)
	err := row.Scan(
		&b.ID, &b.ProjectID, &b.Name, &b.Currency, &b.Status, &b.Version,
		&approval, &execution, &genAt, &genBy, &algorithm,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if approval != nil {
		rec := &domain.IntegrityRecord{ApprovalHash: *approval}
		if execution != nil {
			rec.ExecutionHash = *execution
		}
		if genAt != nil {
			rec.GeneratedAt = genAt.UTC()
		}
		if genBy != nil {
			rec.GeneratedBy = *genBy
		}
		if algorithm != nil {
			rec.Algorithm = *algorithm
		}
		b.Integrity = rec
	}
	return &b, nil
}

// Create inserts a new, unsealed budget.
func (r *BudgetRepo) Create(ctx context.Context, tx pgx.Tx, b *domain.Budget) error {
	query := `INSERT INTO budgets (id, project_id, name, currency, status, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := tx.Exec(ctx, query,
		b.ID, b.ProjectID, b.Name, b.Currency, string(b.Status), b.Version, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert budget: %w", err)
	}
	return nil
}

// GetByID fetches a budget (non-locking read).
func (r *BudgetRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Budget, error) {
	query := `SELECT ` + budgetColumns + ` FROM budgets WHERE id = $1`

	b, err := scanBudget(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get budget by id: %w", err)
	}
	return b, nil
}

// GetByIDForUpdate fetches a budget with pessimistic locking.
// This MUST be called within a transaction.
func (r *BudgetRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Budget, error) {
	query := `SELECT ` + budgetColumns + ` FROM budgets WHERE id = $1 FOR UPDATE`

	b, err := scanBudget(tx.QueryRow(ctx, query, id))
	if err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get budget for update: %w", err)
	}
	return b, nil
}

// GetSealedByProjectForUpdate locks the most recent sealed budget of a project.
func (r *BudgetRepo) GetSealedByProjectForUpdate(ctx context.Context, tx pgx.Tx, projectID uuid.UUID) (*domain.Budget, error) {
	query := `SELECT ` + budgetColumns + ` FROM budgets
		WHERE project_id = $1 AND integrity_approval_hash IS NOT NULL
		ORDER BY created_at DESC LIMIT 1 FOR UPDATE`

	b, err := scanBudget(tx.QueryRow(ctx, query, projectID))
	if err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get sealed budget by project: %w", err)
	}
	return b, nil
}

// ListSealed returns up to limit sealed budgets with id > after, ordered by id.
func (r *BudgetRepo) ListSealed(ctx context.Context, after uuid.UUID, limit int) ([]*domain.Budget, error) {
	query := `SELECT ` + budgetColumns + ` FROM budgets
		WHERE integrity_approval_hash IS NOT NULL AND id > $1
		ORDER BY id LIMIT $2`

	rows, err := r.pool.Query(ctx, query, after, limit)
	if err != nil {
		return nil, fmt.Errorf("list sealed budgets: %w", err)
	}
	defer rows.Close()

	var budgets []*domain.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

// Seal writes the approval record. It only applies to an unsealed budget at
// expectedVersion.
func (r *BudgetRepo) Seal(ctx context.Context, tx pgx.Tx, b *domain.Budget, expectedVersion int64) error {
	if b.Integrity == nil {
		return domain.NewValidationError("integrity", "budget carries no seal")
	}
	query := `UPDATE budgets SET status = $1, integrity_approval_hash = $2, integrity_execution_hash = $3,
		integrity_generated_at = $4, integrity_generated_by = $5, integrity_algorithm = $6,
		version = version + 1, updated_at = $7
		WHERE id = $8 AND version = $9 AND integrity_approval_hash IS NULL`

	tag, err := tx.Exec(ctx, query,
		string(b.Status), b.Integrity.ApprovalHash, b.Integrity.ExecutionHash,
		b.Integrity.GeneratedAt, b.Integrity.GeneratedBy, b.Integrity.Algorithm,
		b.UpdatedAt, b.ID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("seal budget: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewVersionConflict("budget", b.ID, expectedVersion)
	}
	b.Version = expectedVersion + 1
	return nil
}

// UpdateExecutionHash stores a refreshed execution hash. The approval hash
// in the row must still match the one the budget was loaded with.
func (r *BudgetRepo) UpdateExecutionHash(ctx context.Context, tx pgx.Tx, b *domain.Budget, expectedVersion int64) error {
	if !b.IsSealed() {
		return domain.NewValidationError("integrity", "budget is not sealed")
	}
	query := `UPDATE budgets SET integrity_execution_hash = $1, version = version + 1, updated_at = $2
		WHERE id = $3 AND version = $4 AND integrity_approval_hash = $5`

	tag, err := tx.Exec(ctx, query,
		b.Integrity.ExecutionHash, b.UpdatedAt, b.ID, expectedVersion, b.Integrity.ApprovalHash,
	)
	if err != nil {
		return fmt.Errorf("update execution hash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewVersionConflict("budget", b.ID, expectedVersion)
	}
	b.Version = expectedVersion + 1
	return nil
}
