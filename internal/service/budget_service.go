package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"budget-integrity-ledger/internal/core/domain"
	"budget-integrity-ledger/internal/core/ports"
	"budget-integrity-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// BudgetServiceImpl implements ports.BudgetService.
//
// Locks are always taken budget first, then lines, then wallet, matching
// the purchase approval path.
type BudgetServiceImpl struct {
	budgetRepo ports.BudgetRepository
	lineRepo   ports.BudgetLineRepository
	integrity  ports.IntegrityService
	audit      ports.IntegrityAuditLogger
	transactor ports.DBTransactor
	log        zerolog.Logger
}

// NewBudgetService creates a new BudgetServiceImpl.
func NewBudgetService(
	budgetRepo ports.BudgetRepository,
	lineRepo ports.BudgetLineRepository,
	integrity ports.IntegrityService,
	audit ports.IntegrityAuditLogger,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *BudgetServiceImpl {
	return &BudgetServiceImpl{
		budgetRepo: budgetRepo,
		lineRepo:   lineRepo,
		integrity:  integrity,
		audit:      audit,
		transactor: transactor,
		log:        log,
	}
}

// CreateBudget creates a DRAFT budget.
func (s *BudgetServiceImpl) CreateBudget(ctx context.Context, req ports.CreateBudgetRequest) (*domain.Budget, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	budget, err := domain.NewBudget(req.ProjectID, req.Name, req.Currency)
	if err != nil {
		return nil, err
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.budgetRepo.Create(ctx, dbTx, budget); err != nil {
		return nil, storageError("create budget", err)
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().Str("budget_id", budget.ID.String()).Str("project_id", budget.ProjectID.String()).Msg("budget created")
	return budget, nil
}

// AddLine adds a line to a DRAFT budget. A child sits one level below its
// parent.
func (s *BudgetServiceImpl) AddLine(ctx context.Context, req ports.AddLineRequest) (*domain.BudgetLine, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	budget, err := s.lockBudget(ctx, dbTx, req.BudgetID)
	if err != nil {
		return nil, err
	}
	if budget.Status != domain.BudgetStatusDraft {
		return nil, apperror.ErrInvalidState(fmt.Sprintf("budget %s is %s; its structure is locked", budget.ID, budget.Status))
	}

	level := 1
	if req.ParentID != nil {
		parent, err := s.lineRepo.GetByIDForUpdate(ctx, dbTx, *req.ParentID)
		if err != nil {
			return nil, storageError("lock parent line", err)
		}
		if parent == nil {
			return nil, apperror.ErrNotFound("parent line")
		}
		if parent.BudgetID != budget.ID {
			return nil, domain.NewValidationError("parent_id", fmt.Sprintf("line %s belongs to another budget", parent.ID))
		}
		level = parent.Level + 1
	}

	line, err := domain.NewBudgetLine(budget.ID, budget.ProjectID, req.Code, req.Description, req.ParentID, level)
	if err != nil {
		return nil, err
	}
	if err := s.lineRepo.Create(ctx, dbTx, line); err != nil {
		return nil, storageError("create budget line", err)
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().Str("line_id", line.ID.String()).Str("code", line.Code).Int("level", line.Level).Msg("budget line added")
	return line, nil
}

// ApplyLineOperation runs one financial operation on a line under an
// explicit expected version. On a sealed budget the seal is checked first
// and the execution hash is refreshed in the same transaction.
func (s *BudgetServiceImpl) ApplyLineOperation(ctx context.Context, req ports.LineOperationRequest) (*domain.BudgetLine, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if req.Operation == ports.LineOpRebudget {
		if req.Amount.IsNegative() {
			return nil, domain.NewValidationError("amount", "must not be negative")
		}
	} else if err := requirePositive("amount", req.Amount); err != nil {
		return nil, err
	}

	// Unlocked read to find the budget; locks follow in budget-first order.
	current, err := s.lineRepo.GetByID(ctx, req.LineID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get budget line: %w", err))
	}
	if current == nil {
		return nil, apperror.ErrNotFound("budget line")
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	budget, err := s.lockBudget(ctx, dbTx, current.BudgetID)
	if err != nil {
		return nil, err
	}
	lines, err := s.lineRepo.ListByBudgetForUpdate(ctx, dbTx, budget.ID)
	if err != nil {
		return nil, storageError("lock budget lines", err)
	}

	var line *domain.BudgetLine
	for _, l := range lines {
		if l.ID == req.LineID {
			line = l
			break
		}
	}
	if line == nil {
		return nil, apperror.ErrNotFound("budget line")
	}
	if line.Version != req.ExpectedVersion {
		return nil, domain.NewVersionConflict("budget line", line.ID, req.ExpectedVersion)
	}

	if budget.IsSealed() {
		if err := s.checkSeal(ctx, budget, lines, req.Actor); err != nil {
			return nil, err
		}
	}

	working := *line
	if err := applyOperation(&working, req.Operation, req.Amount); err != nil {
		return nil, err
	}
	if err := s.lineRepo.Save(ctx, dbTx, &working, req.ExpectedVersion); err != nil {
		return nil, storageError("save budget line", err)
	}

	if budget.IsSealed() {
		after := make([]*domain.BudgetLine, len(lines))
		for i, l := range lines {
			after[i] = l
			if l.ID == working.ID {
				after[i] = &working
			}
		}
		if err := s.refreshExecutionHash(ctx, dbTx, budget, after); err != nil {
			return nil, err
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("line_id", working.ID.String()).
		Str("operation", string(req.Operation)).
		Str("amount", req.Amount.String()).
		Str("available", working.AvailableBalance().String()).
		Msg("budget line updated")

	return &working, nil
}

// ApproveBudget approves every draft line and seals the budget.
func (s *BudgetServiceImpl) ApproveBudget(ctx context.Context, req ports.ApproveBudgetRequest) (*domain.Budget, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	budget, err := s.lockBudget(ctx, dbTx, req.BudgetID)
	if err != nil {
		return nil, err
	}
	if budget.IsSealed() {
		return nil, apperror.ErrApprovalHashAlreadySet(budget.ID.String())
	}
	lines, err := s.lineRepo.ListByBudgetForUpdate(ctx, dbTx, budget.ID)
	if err != nil {
		return nil, storageError("lock budget lines", err)
	}
	if len(lines) == 0 {
		return nil, apperror.ErrInvalidState(fmt.Sprintf("budget %s has no lines", budget.ID))
	}
	if _, err := domain.BuildLineIndex(lines); err != nil {
		return nil, err
	}

	for _, line := range lines {
		if line.Status != domain.LineStatusDraft {
			continue
		}
		expected := line.Version
		if err := line.Approve(); err != nil {
			return nil, err
		}
		if err := s.lineRepo.Save(ctx, dbTx, line, expected); err != nil {
			return nil, storageError("approve budget line", err)
		}
	}

	budgetVersion := budget.Version
	if err := s.integrity.Seal(budget, lines, req.Actor, time.Now()); err != nil {
		return nil, err
	}
	if err := s.budgetRepo.Seal(ctx, dbTx, budget, budgetVersion); err != nil {
		return nil, storageError("seal budget", err)
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.audit.LogHashGenerated(ctx, budget)
	s.log.Info().
		Str("budget_id", budget.ID.String()).
		Str("algorithm", budget.Integrity.Algorithm).
		Int("lines", len(lines)).
		Msg("budget approved and sealed")

	return budget, nil
}

// VerifyBudget validates the seal of a budget and audits the result. A
// failed check is a verdict, not an error.
func (s *BudgetServiceImpl) VerifyBudget(ctx context.Context, budgetID uuid.UUID, actor string) (ports.IntegrityVerdict, error) {
	budget, err := s.budgetRepo.GetByID(ctx, budgetID)
	if err != nil {
		return ports.IntegrityVerdict{}, apperror.InternalError(fmt.Errorf("get budget: %w", err))
	}
	if budget == nil {
		return ports.IntegrityVerdict{}, apperror.ErrNotFound("budget")
	}
	lines, err := s.lineRepo.ListByBudget(ctx, budgetID)
	if err != nil {
		return ports.IntegrityVerdict{}, apperror.InternalError(fmt.Errorf("list budget lines: %w", err))
	}

	verdict := s.integrity.Validate(budget, lines)
	s.audit.LogHashValidated(ctx, budget, actor, verdict)
	if !verdict.Passed && budget.IsSealed() {
		s.audit.LogIntegrityViolation(ctx, budget, actor, violationFrom(budget, verdict))
	}
	return verdict, nil
}

func (s *BudgetServiceImpl) lockBudget(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Budget, error) {
	budget, err := s.budgetRepo.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, storageError("lock budget", err)
	}
	if budget == nil {
		return nil, apperror.ErrNotFound("budget")
	}
	return budget, nil
}

// checkSeal validates a sealed budget and audits a failure as a violation.
func (s *BudgetServiceImpl) checkSeal(ctx context.Context, budget *domain.Budget, lines []*domain.BudgetLine, actor string) error {
	verdict := s.integrity.Validate(budget, lines)
	s.audit.LogHashValidated(ctx, budget, actor, verdict)
	if verdict.Passed {
		return nil
	}
	violation := violationFrom(budget, verdict)
	s.audit.LogIntegrityViolation(ctx, budget, actor, violation)
	s.log.Error().Str("budget_id", budget.ID.String()).Str("reason", verdict.Reason).Msg("budget integrity violation, line operation blocked")
	return violation
}

func (s *BudgetServiceImpl) refreshExecutionHash(ctx context.Context, tx pgx.Tx, budget *domain.Budget, lines []*domain.BudgetLine) error {
	execHash, err := s.integrity.GenerateExecutionHash(budget, lines)
	if err != nil {
		return storageError("execution hash", err)
	}
	expected := budget.Version
	if err := budget.RecordExecution(execHash); err != nil {
		return err
	}
	if err := s.budgetRepo.UpdateExecutionHash(ctx, tx, budget, expected); err != nil {
		return storageError("update execution hash", err)
	}
	return nil
}

func applyOperation(line *domain.BudgetLine, op ports.LineOperation, amount domain.Money) error {
	switch op {
	case ports.LineOpCommit:
		return line.Commit(amount)
	case ports.LineOpReserve:
		return line.Reserve(amount)
	case ports.LineOpRelease:
		return line.Release(amount)
	case ports.LineOpSettle:
		return line.Settle(amount)
	case ports.LineOpRebudget:
		return line.Rebudget(amount)
	default:
		return domain.NewValidationError("operation", fmt.Sprintf("unknown operation %q", op))
	}
}

func violationFrom(budget *domain.Budget, verdict ports.IntegrityVerdict) *domain.BudgetIntegrityViolationError {
	return &domain.BudgetIntegrityViolationError{
		BudgetID:      budget.ID,
		ExpectedHash:  verdict.Expected,
		ActualHash:    verdict.Actual,
		ViolationType: verdict.Reason,
	}
}

// isIntegrityViolation reports whether err carries a seal violation.
func isIntegrityViolation(err error) (*domain.BudgetIntegrityViolationError, bool) {
	var v *domain.BudgetIntegrityViolationError
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}
