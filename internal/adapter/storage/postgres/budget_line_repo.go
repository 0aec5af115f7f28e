package postgres

import (
	"context"
	"fmt"

	"budget-integrity-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Amounts travel as text so NUMERIC(20,4) values keep their exact digits.
const budgetLineColumns = `id, budget_id, project_id, code, description,
		committed::text, reserved::text, spent::text, status, version, parent_id, level,
		created_at, updated_at`

// BudgetLineRepo implements ports.BudgetLineRepository.
type BudgetLineRepo struct {
	pool Pool
}

// NewBudgetLineRepo creates a new BudgetLineRepo.
func NewBudgetLineRepo(pool Pool) *BudgetLineRepo {
	return &BudgetLineRepo{pool: pool}
}

func scanBudgetLine(row pgx.Row) (*domain.BudgetLine, error) {
	var (
		l                          domain.BudgetLine
		committed, reserved, spent string
	)
	err := row.Scan(
		&l.ID, &l.BudgetID, &l.ProjectID, &l.Code, &l.Description,
		&committed, &reserved, &spent, &l.Status, &l.Version, &l.ParentID, &l.Level,
		&l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if l.Committed, err = domain.ParseMoney(committed); err != nil {
		return nil, fmt.Errorf("committed: %w", err)
	}
	if l.Reserved, err = domain.ParseMoney(reserved); err != nil {
		return nil, fmt.Errorf("reserved: %w", err)
	}
	if l.Spent, err = domain.ParseMoney(spent); err != nil {
		return nil, fmt.Errorf("spent: %w", err)
	}
	return &l, nil
}

func collectBudgetLines(rows pgx.Rows) ([]*domain.BudgetLine, error) {
	defer rows.Close()

	var lines []*domain.BudgetLine
	for rows.Next() {
		l, err := scanBudgetLine(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// Create inserts a new budget line.
func (r *BudgetLineRepo) Create(ctx context.Context, tx pgx.Tx, l *domain.BudgetLine) error {
	query := `INSERT INTO budget_lines (id, budget_id, project_id, code, description, committed, reserved, spent,
		status, version, parent_id, level, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := tx.Exec(ctx, query,
		l.ID, l.BudgetID, l.ProjectID, l.Code, l.Description,
		l.Committed.String(), l.Reserved.String(), l.Spent.String(),
		string(l.Status), l.Version, l.ParentID, l.Level, l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert budget line: %w", err)
	}
	return nil
}

// GetByID fetches a budget line (non-locking read).
func (r *BudgetLineRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.BudgetLine, error) {
	query := `SELECT ` + budgetLineColumns + ` FROM budget_lines WHERE id = $1`

	l, err := scanBudgetLine(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get budget line by id: %w", err)
	}
	return l, nil
}

// GetByIDForUpdate fetches a budget line with pessimistic locking.
// This MUST be called within a transaction.
func (r *BudgetLineRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.BudgetLine, error) {
	query := `SELECT ` + budgetLineColumns + ` FROM budget_lines WHERE id = $1 FOR UPDATE`

	l, err := scanBudgetLine(tx.QueryRow(ctx, query, id))
	if err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get budget line for update: %w", err)
	}
	return l, nil
}

// ListByBudget returns every line of a budget ordered by code.
func (r *BudgetLineRepo) ListByBudget(ctx context.Context, budgetID uuid.UUID) ([]*domain.BudgetLine, error) {
	query := `SELECT ` + budgetLineColumns + ` FROM budget_lines WHERE budget_id = $1 ORDER BY code`

	rows, err := r.pool.Query(ctx, query, budgetID)
	if err != nil {
		return nil, fmt.Errorf("list budget lines: %w", err)
	}
	return collectBudgetLines(rows)
}

// ListByBudgetForUpdate locks every line of a budget. Rows are locked in id
// order so concurrent approvals acquire them consistently.
func (r *BudgetLineRepo) ListByBudgetForUpdate(ctx context.Context, tx pgx.Tx, budgetID uuid.UUID) ([]*domain.BudgetLine, error) {
	query := `SELECT ` + budgetLineColumns + ` FROM budget_lines WHERE budget_id = $1 ORDER BY id FOR UPDATE`

	rows, err := tx.Query(ctx, query, budgetID)
	if err != nil {
		return nil, fmt.Errorf("list budget lines for update: %w", err)
	}
	return collectBudgetLines(rows)
}

// Save writes amounts, status and structure if the row is still at
// expectedVersion.
func (r *BudgetLineRepo) Save(ctx context.Context, tx pgx.Tx, l *domain.BudgetLine, expectedVersion int64) error {
	query := `UPDATE budget_lines SET code = $1, description = $2, committed = $3, reserved = $4, spent = $5,
		status = $6, version = version + 1, updated_at = $7
		WHERE id = $8 AND version = $9`

	tag, err := tx.Exec(ctx, query,
		l.Code, l.Description, l.Committed.String(), l.Reserved.String(), l.Spent.String(),
		string(l.Status), l.UpdatedAt, l.ID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("save budget line: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewVersionConflict("budget line", l.ID, expectedVersion)
	}
	l.Version = expectedVersion + 1
	return nil
}
