package postgres

import (
	"context"
	"fmt"

	"budget-integrity-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const walletSelect = `SELECT w.id, w.project_id, w.currency, w.balance::text, w.version, w.created_at, w.updated_at,
		(SELECT COUNT(*) FROM cash_movements m WHERE m.wallet_id = w.id AND m.compliance = 'PENDING_EVIDENCE')
		FROM wallets w`

// WalletRepo implements ports.WalletRepository. Movements are insert-only.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	var (
		w       domain.Wallet
		balance string
	)
	err := row.Scan(&w.ID, &w.ProjectID, &w.Currency, &balance, &w.Version, &w.CreatedAt, &w.UpdatedAt, &w.PendingEvidence)
	if err != nil {
		return nil, err
	}
	if w.Balance, err = domain.ParseMoney(balance); err != nil {
		return nil, fmt.Errorf("balance: %w", err)
	}
	return &w, nil
}

// Create inserts a new wallet.
func (r *WalletRepo) Create(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error {
	query := `INSERT INTO wallets (id, project_id, currency, balance, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := tx.Exec(ctx, query,
		w.ID, w.ProjectID, w.Currency, w.Balance.String(), w.Version, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

// GetByProjectID fetches the wallet of a project (non-locking read).
func (r *WalletRepo) GetByProjectID(ctx context.Context, projectID uuid.UUID) (*domain.Wallet, error) {
	w, err := scanWallet(r.pool.QueryRow(ctx, walletSelect+` WHERE w.project_id = $1`, projectID))
	if err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get wallet by project: %w", err)
	}
	return w, nil
}

// GetByProjectIDForUpdate fetches the wallet of a project with pessimistic locking.
// This MUST be called within a transaction.
func (r *WalletRepo) GetByProjectIDForUpdate(ctx context.Context, tx pgx.Tx, projectID uuid.UUID) (*domain.Wallet, error) {
	w, err := scanWallet(tx.QueryRow(ctx, walletSelect+` WHERE w.project_id = $1 FOR UPDATE OF w`, projectID))
	if err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get wallet for update by project: %w", err)
	}
	return w, nil
}

// Save writes the balance if the wallet is still at expectedVersion and
// appends the new movements.
func (r *WalletRepo) Save(ctx context.Context, tx pgx.Tx, w *domain.Wallet, expectedVersion int64, newMovements []*domain.Movement) error {
	query := `UPDATE wallets SET balance = $1, version = version + 1, updated_at = $2
		WHERE id = $3 AND version = $4`

	tag, err := tx.Exec(ctx, query, w.Balance.String(), w.UpdatedAt, w.ID, expectedVersion)
	if err != nil {
		return fmt.Errorf("update wallet balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewVersionConflict("wallet", w.ID, expectedVersion)
	}

	insert := `INSERT INTO cash_movements (id, wallet_id, amount, kind, currency, reference, evidence_url, compliance, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	for _, mv := range newMovements {
		if _, err := tx.Exec(ctx, insert,
			mv.ID, mv.WalletID, mv.Amount.String(), string(mv.Kind), mv.Currency,
			mv.Reference, mv.EvidenceURL, string(mv.Compliance), mv.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert cash movement: %w", err)
		}
	}

	w.Version = expectedVersion + 1
	return nil
}

// ListMovements returns a wallet's movements in the order they were recorded.
func (r *WalletRepo) ListMovements(ctx context.Context, walletID uuid.UUID) ([]domain.Movement, error) {
	query := `SELECT id, wallet_id, amount::text, kind, currency, reference, COALESCE(evidence_url, ''), compliance, created_at
		FROM cash_movements WHERE wallet_id = $1 ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, query, walletID)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	defer rows.Close()

	var movements []domain.Movement
	for rows.Next() {
		var (
			mv     domain.Movement
			amount string
		)
		if err := rows.Scan(&mv.ID, &mv.WalletID, &amount, &mv.Kind, &mv.Currency,
			&mv.Reference, &mv.EvidenceURL, &mv.Compliance, &mv.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		if mv.Amount, err = domain.ParseMoney(amount); err != nil {
			return nil, fmt.Errorf("movement amount: %w", err)
		}
		movements = append(movements, mv)
	}
	return movements, rows.Err()
}
