package service

import (
	"context"
	"fmt"

	"budget-integrity-ledger/internal/core/domain"
	"budget-integrity-ledger/internal/core/ports"
	"budget-integrity-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// WalletServiceImpl implements ports.WalletService.
type WalletServiceImpl struct {
	walletRepo ports.WalletRepository
	budgetRepo ports.BudgetRepository
	lineRepo   ports.BudgetLineRepository
	integrity  ports.IntegrityService
	audit      ports.IntegrityAuditLogger
	transactor ports.DBTransactor
	policy     LedgerPolicy
	log        zerolog.Logger
}

// NewWalletService creates a new WalletServiceImpl.
func NewWalletService(
	walletRepo ports.WalletRepository,
	budgetRepo ports.BudgetRepository,
	lineRepo ports.BudgetLineRepository,
	integrity ports.IntegrityService,
	audit ports.IntegrityAuditLogger,
	transactor ports.DBTransactor,
	policy LedgerPolicy,
	log zerolog.Logger,
) *WalletServiceImpl {
	return &WalletServiceImpl{
		walletRepo: walletRepo,
		budgetRepo: budgetRepo,
		lineRepo:   lineRepo,
		integrity:  integrity,
		audit:      audit,
		transactor: transactor,
		policy:     policy,
		log:        log,
	}
}

// OpenWallet creates the single wallet of a project.
func (s *WalletServiceImpl) OpenWallet(ctx context.Context, req ports.OpenWalletRequest) (*domain.Wallet, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	wallet, err := domain.NewWallet(req.ProjectID, req.Currency)
	if err != nil {
		return nil, err
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.walletRepo.Create(ctx, dbTx, wallet); err != nil {
		return nil, storageError("create wallet", err)
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().Str("wallet_id", wallet.ID.String()).Str("project_id", wallet.ProjectID.String()).Msg("wallet opened")
	return wallet, nil
}

// Deposit records an inflow. Income always carries evidence.
func (s *WalletServiceImpl) Deposit(ctx context.Context, req ports.DepositRequest) (*domain.Movement, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if err := requirePositive("amount", req.Amount); err != nil {
		return nil, err
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.lockWallet(ctx, dbTx, req.ProjectID, req.ExpectedVersion)
	if err != nil {
		return nil, err
	}
	movement, err := wallet.Inflow(req.Amount, req.Currency, req.Reference, req.EvidenceURL)
	if err != nil {
		return nil, err
	}
	if err := s.walletRepo.Save(ctx, dbTx, wallet, req.ExpectedVersion, []*domain.Movement{movement}); err != nil {
		return nil, storageError("save wallet", err)
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("wallet_id", wallet.ID.String()).
		Str("amount", movement.Amount.String()).
		Str("balance", wallet.Balance.String()).
		Msg("deposit recorded")

	return movement, nil
}

// Withdraw records an outflow outside purchase approval. The integrity flag
// handed to the wallet comes from validating the project's sealed budget.
func (s *WalletServiceImpl) Withdraw(ctx context.Context, req ports.WithdrawRequest) (*domain.Movement, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	budget, err := s.budgetRepo.GetSealedByProjectForUpdate(ctx, dbTx, req.ProjectID)
	if err != nil {
		return nil, storageError("lock sealed budget", err)
	}
	if budget == nil {
		return nil, apperror.ErrBudgetNotSealed("of project " + req.ProjectID.String())
	}
	lines, err := s.lineRepo.ListByBudgetForUpdate(ctx, dbTx, budget.ID)
	if err != nil {
		return nil, storageError("lock budget lines", err)
	}
	verdict := s.integrity.Validate(budget, lines)
	s.audit.LogHashValidated(ctx, budget, req.Actor, verdict)

	wallet, err := s.lockWallet(ctx, dbTx, req.ProjectID, req.ExpectedVersion)
	if err != nil {
		return nil, err
	}
	wallet.EvidenceThreshold = s.policy.EvidenceThreshold
	movement, err := wallet.Outflow(req.Amount, req.Currency, req.Reference, req.EvidenceURL, verdict.Passed)
	if err != nil {
		if v, ok := isIntegrityViolation(err); ok {
			v.BudgetID = budget.ID
			v.ExpectedHash = verdict.Expected
			v.ActualHash = verdict.Actual
			s.audit.LogIntegrityViolation(ctx, budget, req.Actor, v)
			s.log.Error().Str("budget_id", budget.ID.String()).Str("reason", verdict.Reason).Msg("budget integrity violation, withdrawal blocked")
		}
		return nil, err
	}
	if err := s.walletRepo.Save(ctx, dbTx, wallet, req.ExpectedVersion, []*domain.Movement{movement}); err != nil {
		return nil, storageError("save wallet", err)
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("wallet_id", wallet.ID.String()).
		Str("amount", movement.Amount.String()).
		Str("compliance", string(movement.Compliance)).
		Str("balance", wallet.Balance.String()).
		Msg("withdrawal recorded")

	return movement, nil
}

func (s *WalletServiceImpl) lockWallet(ctx context.Context, tx pgx.Tx, projectID uuid.UUID, expectedVersion int64) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetByProjectIDForUpdate(ctx, tx, projectID)
	if err != nil {
		return nil, storageError("lock wallet", err)
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}
	if wallet.Version != expectedVersion {
		return nil, domain.NewVersionConflict("wallet", wallet.ID, expectedVersion)
	}
	return wallet, nil
}
