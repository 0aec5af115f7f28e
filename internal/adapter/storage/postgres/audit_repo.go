package postgres

import (
	"context"
	"fmt"

	"budget-integrity-ledger/internal/core/domain"

	"github.com/google/uuid"
)

// AuditRepo implements ports.AuditRepository over integrity_audit_log.
type AuditRepo struct {
	pool Pool
}

// NewAuditRepo creates a PostgreSQL-backed audit repository.
func NewAuditRepo(pool Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

func (r *AuditRepo) Create(ctx context.Context, e *domain.IntegrityAuditEntry) error {
	var details *string
	if e.Details != "" {
		details = &e.Details
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO integrity_audit_log (id, budget_id, event, approval_hash, execution_hash, actor, outcome, details, algorithm, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.ID, e.BudgetID, string(e.Event), e.ApprovalHash, e.ExecutionHash,
		e.Actor, string(e.Outcome), details, e.Algorithm, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert integrity audit entry: %w", err)
	}
	return nil
}

func (r *AuditRepo) ListByBudget(ctx context.Context, budgetID uuid.UUID) ([]domain.IntegrityAuditEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, budget_id, event, approval_hash, execution_hash, actor, outcome, COALESCE(details::text, ''), algorithm, created_at
		 FROM integrity_audit_log WHERE budget_id = $1 ORDER BY created_at, id`, budgetID)
	if err != nil {
		return nil, fmt.Errorf("list integrity audit entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.IntegrityAuditEntry
	for rows.Next() {
		var e domain.IntegrityAuditEntry
		if err := rows.Scan(&e.ID, &e.BudgetID, &e.Event, &e.ApprovalHash, &e.ExecutionHash,
			&e.Actor, &e.Outcome, &e.Details, &e.Algorithm, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan integrity audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
