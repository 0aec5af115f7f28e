package postgres

import (
	"context"
	"fmt"

	"budget-integrity-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const purchaseColumns = `id, project_id, budget_id, reference, supplier, evidence_url, status,
		failure_reason, version, created_at, processed_at`

const purchaseItemsQuery = `SELECT resource_ref, budget_line_id, quantity::text, unit_price::text
		FROM purchase_items WHERE purchase_id = $1 ORDER BY position`

// querier is what both Pool and pgx.Tx offer for reads.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PurchaseRepo implements ports.PurchaseRepository.
type PurchaseRepo struct {
	pool Pool
}

// NewPurchaseRepo creates a new PurchaseRepo.
func NewPurchaseRepo(pool Pool) *PurchaseRepo {
	return &PurchaseRepo{pool: pool}
}

func scanPurchase(row pgx.Row) (*domain.Purchase, error) {
	var p domain.Purchase
	err := row.Scan(
		&p.ID, &p.ProjectID, &p.BudgetID, &p.Reference, &p.Supplier, &p.EvidenceURL, &p.Status,
		&p.FailureReason, &p.Version, &p.CreatedAt, &p.ProcessedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func loadItems(ctx context.Context, q querier, p *domain.Purchase) error {
	rows, err := q.Query(ctx, purchaseItemsQuery, p.ID)
	if err != nil {
		return fmt.Errorf("list purchase items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			it         domain.PurchaseItem
			qty, price string
		)
		if err := rows.Scan(&it.ResourceRef, &it.BudgetLineID, &qty, &price); err != nil {
			return fmt.Errorf("scan purchase item: %w", err)
		}
		if it.Quantity, err = domain.ParseMoney(qty); err != nil {
			return fmt.Errorf("item quantity: %w", err)
		}
		if it.UnitPrice, err = domain.ParseMoney(price); err != nil {
			return fmt.Errorf("item unit price: %w", err)
		}
		p.Items = append(p.Items, it)
	}
	return rows.Err()
}

// Create inserts a purchase and its items.
func (r *PurchaseRepo) Create(ctx context.Context, tx pgx.Tx, p *domain.Purchase) error {
	query := `INSERT INTO purchases (id, project_id, budget_id, reference, supplier, evidence_url, status,
		failure_reason, version, created_at, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := tx.Exec(ctx, query,
		p.ID, p.ProjectID, p.BudgetID, p.Reference, p.Supplier, p.EvidenceURL, string(p.Status),
		p.FailureReason, p.Version, p.CreatedAt, p.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("insert purchase: %w", err)
	}

	itemQuery := `INSERT INTO purchase_items (purchase_id, position, resource_ref, budget_line_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5, $6)`
	for i, it := range p.Items {
		if _, err := tx.Exec(ctx, itemQuery,
			p.ID, i, it.ResourceRef, it.BudgetLineID, it.Quantity.String(), it.UnitPrice.String(),
		); err != nil {
			return fmt.Errorf("insert purchase item %d: %w", i, err)
		}
	}
	return nil
}

// GetByID fetches a purchase with its items (non-locking read).
func (r *PurchaseRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Purchase, error) {
	p, err := scanPurchase(r.pool.QueryRow(ctx, `SELECT `+purchaseColumns+` FROM purchases WHERE id = $1`, id))
	if err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get purchase by id: %w", err)
	}
	if err := loadItems(ctx, r.pool, p); err != nil {
		return nil, err
	}
	return p, nil
}

// GetByIDForUpdate locks a purchase row and loads its items in the same transaction.
func (r *PurchaseRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Purchase, error) {
	p, err := scanPurchase(tx.QueryRow(ctx, `SELECT `+purchaseColumns+` FROM purchases WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get purchase for update: %w", err)
	}
	if err := loadItems(ctx, tx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// UpdateStatus persists a status transition if the row is still at expectedVersion.
func (r *PurchaseRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, p *domain.Purchase, expectedVersion int64) error {
	query := `UPDATE purchases SET status = $1, failure_reason = $2, processed_at = $3, version = version + 1
		WHERE id = $4 AND version = $5`

	tag, err := tx.Exec(ctx, query, string(p.Status), p.FailureReason, p.ProcessedAt, p.ID, expectedVersion)
	if err != nil {
		return fmt.Errorf("update purchase status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewVersionConflict("purchase", p.ID, expectedVersion)
	}
	p.Version = expectedVersion + 1
	return nil
}
