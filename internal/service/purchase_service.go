package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"budget-integrity-ledger/config"
	"budget-integrity-ledger/internal/core/domain"
	"budget-integrity-ledger/internal/core/ports"
	"budget-integrity-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// LedgerPolicy carries the tunable rules shared by the ledger services.
type LedgerPolicy struct {
	EvidenceThreshold int
	ApprovalLockTTL   time.Duration
	OutcomeCacheTTL   time.Duration
}

// DefaultLedgerPolicy matches the configuration defaults.
func DefaultLedgerPolicy() LedgerPolicy {
	return LedgerPolicy{
		EvidenceThreshold: domain.DefaultEvidenceThreshold,
		ApprovalLockTTL:   30 * time.Second,
		OutcomeCacheTTL:   24 * time.Hour,
	}
}

// PolicyFromConfig maps the ledger settings onto a LedgerPolicy. Unset
// values keep their defaults.
func PolicyFromConfig(cfg config.LedgerConfig) LedgerPolicy {
	p := DefaultLedgerPolicy()
	if cfg.EvidenceThreshold > 0 {
		p.EvidenceThreshold = cfg.EvidenceThreshold
	}
	if cfg.ApprovalLockTTL > 0 {
		p.ApprovalLockTTL = cfg.ApprovalLockTTL
	}
	if cfg.OutcomeCacheTTL > 0 {
		p.OutcomeCacheTTL = cfg.OutcomeCacheTTL
	}
	return p
}

// PurchaseServiceImpl implements ports.PurchaseService.
type PurchaseServiceImpl struct {
	budgetRepo   ports.BudgetRepository
	lineRepo     ports.BudgetLineRepository
	walletRepo   ports.WalletRepository
	purchaseRepo ports.PurchaseRepository
	integrity    ports.IntegrityService
	audit        ports.IntegrityAuditLogger
	guard        ports.ApprovalGuard // optional
	outcomes     ports.OutcomeCache  // optional
	transactor   ports.DBTransactor
	policy       LedgerPolicy
	log          zerolog.Logger
}

// NewPurchaseService creates a new PurchaseServiceImpl. guard and outcomes
// may be nil when Redis is disabled; row locks still serialize approvals.
func NewPurchaseService(
	budgetRepo ports.BudgetRepository,
	lineRepo ports.BudgetLineRepository,
	walletRepo ports.WalletRepository,
	purchaseRepo ports.PurchaseRepository,
	integrity ports.IntegrityService,
	audit ports.IntegrityAuditLogger,
	guard ports.ApprovalGuard,
	outcomes ports.OutcomeCache,
	transactor ports.DBTransactor,
	policy LedgerPolicy,
	log zerolog.Logger,
) *PurchaseServiceImpl {
	return &PurchaseServiceImpl{
		budgetRepo:   budgetRepo,
		lineRepo:     lineRepo,
		walletRepo:   walletRepo,
		purchaseRepo: purchaseRepo,
		integrity:    integrity,
		audit:        audit,
		guard:        guard,
		outcomes:     outcomes,
		transactor:   transactor,
		policy:       policy,
		log:          log,
	}
}

// CreatePurchase records a PENDING purchase after checking that every item
// points at a line of the purchase's budget.
func (s *PurchaseServiceImpl) CreatePurchase(ctx context.Context, req ports.CreatePurchaseRequest) (*domain.Purchase, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	items := make([]domain.PurchaseItem, 0, len(req.Items))
	for i, in := range req.Items {
		if err := requirePositive(fmt.Sprintf("items[%d].quantity", i), in.Quantity); err != nil {
			return nil, err
		}
		if err := requirePositive(fmt.Sprintf("items[%d].unit_price", i), in.UnitPrice); err != nil {
			return nil, err
		}
		items = append(items, domain.PurchaseItem{
			ResourceRef:  in.ResourceRef,
			BudgetLineID: in.BudgetLineID,
			Quantity:     in.Quantity,
			UnitPrice:    in.UnitPrice,
		})
	}

	purchase, err := domain.NewPurchase(req.ProjectID, req.BudgetID, req.Reference, req.Supplier, req.EvidenceURL, items)
	if err != nil {
		return nil, err
	}

	budget, err := s.budgetRepo.GetByID(ctx, req.BudgetID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get budget: %w", err))
	}
	if budget == nil {
		return nil, apperror.ErrNotFound("budget")
	}
	if budget.ProjectID != req.ProjectID {
		return nil, domain.NewValidationError("budget_id", fmt.Sprintf("budget %s does not belong to project %s", budget.ID, req.ProjectID))
	}
	// The wallet debits the total in minor units, so a finer total could never be approved.
	if total, scale := purchase.Total(), domain.CurrencyScale(budget.Currency); !total.FitsScale(scale) {
		return nil, domain.NewValidationError("total", fmt.Sprintf("%s allows %d decimals, got %s", budget.Currency, scale, total))
	}
	lines, err := s.lineRepo.ListByBudget(ctx, budget.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list budget lines: %w", err))
	}
	known := make(map[uuid.UUID]struct{}, len(lines))
	for _, l := range lines {
		known[l.ID] = struct{}{}
	}
	for i, it := range purchase.Items {
		if _, ok := known[it.BudgetLineID]; !ok {
			return nil, domain.NewValidationError(fmt.Sprintf("items[%d].budget_line_id", i), fmt.Sprintf("line %s is not part of budget %s", it.BudgetLineID, budget.ID))
		}
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.purchaseRepo.Create(ctx, dbTx, purchase); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create purchase: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("purchase_id", purchase.ID.String()).
		Str("budget_id", purchase.BudgetID.String()).
		Str("total", purchase.Total().String()).
		Msg("purchase created")

	return purchase, nil
}

// GetPurchase returns a purchase by id.
func (s *PurchaseServiceImpl) GetPurchase(ctx context.Context, id uuid.UUID) (*domain.Purchase, error) {
	purchase, err := s.purchaseRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get purchase: %w", err))
	}
	if purchase == nil {
		return nil, apperror.ErrNotFound("purchase")
	}
	return purchase, nil
}

// ApprovePurchase spends the purchase against its budget lines, checks the
// budget seal, debits the project wallet and refreshes the execution hash,
// all in one transaction.
func (s *PurchaseServiceImpl) ApprovePurchase(ctx context.Context, req ports.ApprovePurchaseRequest) (*domain.Purchase, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	key := req.PurchaseID.String()

	// Layer 1: Redis outcome cache
	if cached := s.cachedOutcome(ctx, key); cached != nil {
		return cached, nil
	}

	// Layer 2: Redis approval guard
	if s.guard != nil {
		token, claimed, err := s.guard.Claim(ctx, req.PurchaseID, s.policy.ApprovalLockTTL)
		switch {
		case err != nil:
			s.log.Warn().Err(err).Str("purchase_id", key).Msg("approval guard unavailable, relying on row locks")
		case !claimed:
			return nil, apperror.ErrApprovalInProgress(key)
		default:
			defer func() {
				if err := s.guard.Release(context.WithoutCancel(ctx), req.PurchaseID, token); err != nil {
					s.log.Warn().Err(err).Str("purchase_id", key).Msg("failed to release approval guard")
				}
			}()
		}
	}

	purchase, err := s.approve(ctx, req)
	if err != nil {
		return nil, err
	}

	s.cacheOutcome(ctx, purchase)
	return purchase, nil
}

func (s *PurchaseServiceImpl) approve(ctx context.Context, req ports.ApprovePurchaseRequest) (*domain.Purchase, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	// Lock & get purchase
	purchase, err := s.purchaseRepo.GetByIDForUpdate(ctx, dbTx, req.PurchaseID)
	if err != nil {
		return nil, storageError("lock purchase", err)
	}
	if purchase == nil {
		return nil, apperror.ErrNotFound("purchase")
	}
	switch purchase.Status {
	case domain.PurchaseStatusApproved:
		return purchase, nil
	case domain.PurchaseStatusError:
		return nil, apperror.ErrInvalidState(fmt.Sprintf("purchase %s failed: %s", purchase.ID, purchase.FailureReason))
	}

	// Lock & get budget and lines
	budget, err := s.budgetRepo.GetByIDForUpdate(ctx, dbTx, purchase.BudgetID)
	if err != nil {
		return nil, storageError("lock budget", err)
	}
	if budget == nil {
		return nil, apperror.ErrNotFound("budget")
	}
	if !budget.IsSealed() {
		return nil, apperror.ErrBudgetNotSealed(budget.ID.String())
	}
	lines, err := s.lineRepo.ListByBudgetForUpdate(ctx, dbTx, budget.ID)
	if err != nil {
		return nil, storageError("lock budget lines", err)
	}

	// Step 1: spend on working copies
	spent, after, err := spendOnCopies(budget, lines, purchase)
	if err != nil {
		return nil, err
	}

	// Step 2: seal check over the state read before any change
	verdict := s.integrity.Validate(budget, lines)
	s.audit.LogHashValidated(ctx, budget, req.Actor, verdict)
	if !verdict.Passed {
		violation := violationFrom(budget, verdict)
		s.audit.LogIntegrityViolation(ctx, budget, req.Actor, violation)
		s.log.Error().
			Str("purchase_id", purchase.ID.String()).
			Str("budget_id", budget.ID.String()).
			Str("reason", verdict.Reason).
			Msg("budget integrity violation, purchase blocked")

		if err := dbTx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			s.log.Warn().Err(err).Msg("rollback after integrity violation")
		}
		s.markFailed(ctx, purchase.ID, violation.Error())
		return nil, violation
	}

	// Step 3: wallet debit
	wallet, err := s.walletRepo.GetByProjectIDForUpdate(ctx, dbTx, purchase.ProjectID)
	if err != nil {
		return nil, storageError("lock wallet", err)
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}
	wallet.EvidenceThreshold = s.policy.EvidenceThreshold
	walletVersion := wallet.Version
	movement, err := wallet.Outflow(purchase.Total(), budget.Currency, purchase.MovementReference(), purchase.EvidenceURL, verdict.Passed)
	if err != nil {
		return nil, err
	}

	// Step 4: persist
	for _, line := range spent {
		if err := s.lineRepo.Save(ctx, dbTx, line, line.Version); err != nil {
			return nil, storageError("save budget line", err)
		}
	}
	if err := s.walletRepo.Save(ctx, dbTx, wallet, walletVersion, []*domain.Movement{movement}); err != nil {
		return nil, storageError("save wallet", err)
	}

	execHash, err := s.integrity.GenerateExecutionHash(budget, after)
	if err != nil {
		return nil, storageError("execution hash", err)
	}
	budgetVersion := budget.Version
	if err := budget.RecordExecution(execHash); err != nil {
		return nil, err
	}
	if err := s.budgetRepo.UpdateExecutionHash(ctx, dbTx, budget, budgetVersion); err != nil {
		return nil, storageError("update execution hash", err)
	}

	// Step 5: mark approved
	purchaseVersion := purchase.Version
	if err := purchase.Approve(time.Now().UTC()); err != nil {
		return nil, err
	}
	if err := s.purchaseRepo.UpdateStatus(ctx, dbTx, purchase, purchaseVersion); err != nil {
		return nil, storageError("update purchase", err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("purchase_id", purchase.ID.String()).
		Str("budget_id", budget.ID.String()).
		Str("movement_id", movement.ID.String()).
		Str("total", movement.Amount.String()).
		Str("compliance", string(movement.Compliance)).
		Msg("purchase approved")

	return purchase, nil
}

// spendOnCopies applies the purchase to copies of the affected lines. It
// returns the changed copies and the full line set with copies swapped in.
// The loaded lines are left untouched.
func spendOnCopies(budget *domain.Budget, lines []*domain.BudgetLine, purchase *domain.Purchase) ([]*domain.BudgetLine, []*domain.BudgetLine, error) {
	byID := make(map[uuid.UUID]*domain.BudgetLine, len(lines))
	for _, l := range lines {
		byID[l.ID] = l
	}

	order, amounts := purchase.AmountsByLine()
	changed := make(map[uuid.UUID]*domain.BudgetLine, len(order))
	spent := make([]*domain.BudgetLine, 0, len(order))
	for _, id := range order {
		orig, ok := byID[id]
		if !ok {
			return nil, nil, domain.NewValidationError("budget_line_id", fmt.Sprintf("line %s is not part of budget %s", id, budget.ID))
		}
		line := *orig
		if err := line.Spend(amounts[id]); err != nil {
			return nil, nil, err
		}
		changed[id] = &line
		spent = append(spent, &line)
	}

	after := make([]*domain.BudgetLine, len(lines))
	for i, l := range lines {
		if c, ok := changed[l.ID]; ok {
			after[i] = c
			continue
		}
		after[i] = l
	}
	return spent, after, nil
}

// markFailed moves a purchase to ERROR in its own transaction. The caller's
// transaction must already be closed.
func (s *PurchaseServiceImpl) markFailed(ctx context.Context, purchaseID uuid.UUID, reason string) {
	ctx = context.WithoutCancel(ctx)
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		s.log.Error().Err(err).Str("purchase_id", purchaseID.String()).Msg("failed to mark purchase as error")
		return
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	purchase, err := s.purchaseRepo.GetByIDForUpdate(ctx, dbTx, purchaseID)
	if err != nil {
		s.log.Error().Err(err).Str("purchase_id", purchaseID.String()).Msg("failed to reload purchase to mark as error")
		return
	}
	if purchase == nil || purchase.Status != domain.PurchaseStatusPending {
		return
	}
	version := purchase.Version
	if err := purchase.MarkError(reason, time.Now().UTC()); err != nil {
		s.log.Error().Err(err).Str("purchase_id", purchaseID.String()).Msg("failed to mark purchase as error")
		return
	}
	if err := s.purchaseRepo.UpdateStatus(ctx, dbTx, purchase, version); err != nil {
		s.log.Error().Err(err).Str("purchase_id", purchaseID.String()).Msg("failed to mark purchase as error")
		return
	}
	if err := dbTx.Commit(ctx); err != nil {
		s.log.Error().Err(err).Str("purchase_id", purchaseID.String()).Msg("failed to commit purchase error state")
	}
}

func (s *PurchaseServiceImpl) cachedOutcome(ctx context.Context, key string) *domain.Purchase {
	if s.outcomes == nil {
		return nil
	}
	cached, err := s.outcomes.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("purchase_id", key).Msg("redis outcome check failed, falling through to DB")
		return nil
	}
	if cached == nil {
		return nil
	}
	var purchase domain.Purchase
	if err := json.Unmarshal(cached, &purchase); err != nil {
		s.log.Warn().Err(err).Str("purchase_id", key).Msg("discarding unreadable cached outcome")
		return nil
	}
	return &purchase
}

func (s *PurchaseServiceImpl) cacheOutcome(ctx context.Context, purchase *domain.Purchase) {
	if s.outcomes == nil || purchase.Status != domain.PurchaseStatusApproved {
		return
	}
	raw, err := json.Marshal(purchase)
	if err != nil {
		s.log.Warn().Err(err).Str("purchase_id", purchase.ID.String()).Msg("failed to encode purchase outcome")
		return
	}
	if err := s.outcomes.Set(ctx, purchase.ID.String(), raw, s.policy.OutcomeCacheTTL); err != nil {
		s.log.Warn().Err(err).Str("purchase_id", purchase.ID.String()).Msg("failed to cache purchase outcome in redis")
	}
}

// storageError keeps classified errors such as version conflicts intact and
// wraps everything else as internal.
func storageError(op string, err error) error {
	var kinded apperror.Kinded
	if errors.As(err, &kinded) {
		return err
	}
	return apperror.InternalError(fmt.Errorf("%s: %w", op, err))
}
