package service

import (
	"context"
	"fmt"

	"budget-integrity-ledger/internal/core/ports"
	"budget-integrity-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const defaultSweepBatchSize = 100

// IntegritySweeperImpl validates every sealed budget page by page.
type IntegritySweeperImpl struct {
	budgetRepo ports.BudgetRepository
	lineRepo   ports.BudgetLineRepository
	integrity  ports.IntegrityService
	audit      ports.IntegrityAuditLogger
	batchSize  int
	log        zerolog.Logger
}

// NewIntegritySweeper creates a sweeper. A non-positive batchSize falls back
// to 100.
func NewIntegritySweeper(
	budgetRepo ports.BudgetRepository,
	lineRepo ports.BudgetLineRepository,
	integrity ports.IntegrityService,
	audit ports.IntegrityAuditLogger,
	batchSize int,
	log zerolog.Logger,
) *IntegritySweeperImpl {
	if batchSize <= 0 {
		batchSize = defaultSweepBatchSize
	}
	return &IntegritySweeperImpl{
		budgetRepo: budgetRepo,
		lineRepo:   lineRepo,
		integrity:  integrity,
		audit:      audit,
		batchSize:  batchSize,
		log:        log,
	}
}

// Sweep validates all sealed budgets. A budget whose lines cannot be read is
// counted in Errors and skipped; listing failures abort the sweep.
func (s *IntegritySweeperImpl) Sweep(ctx context.Context, actor string) (*ports.SweepReport, error) {
	report := &ports.SweepReport{}
	after := uuid.Nil

	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		page, err := s.budgetRepo.ListSealed(ctx, after, s.batchSize)
		if err != nil {
			return report, apperror.InternalError(fmt.Errorf("list sealed budgets: %w", err))
		}

		for _, budget := range page {
			lines, err := s.lineRepo.ListByBudget(ctx, budget.ID)
			if err != nil {
				report.Errors++
				s.log.Warn().Err(err).Str("budget_id", budget.ID.String()).Msg("skipping budget, cannot load lines")
				continue
			}

			verdict := s.integrity.Validate(budget, lines)
			s.audit.LogHashValidated(ctx, budget, actor, verdict)
			report.Checked++
			if verdict.Passed {
				continue
			}

			report.Violations = append(report.Violations, budget.ID)
			s.audit.LogIntegrityViolation(ctx, budget, actor, violationFrom(budget, verdict))
			s.log.Error().
				Str("budget_id", budget.ID.String()).
				Str("reason", verdict.Reason).
				Str("expected", verdict.Expected).
				Str("actual", verdict.Actual).
				Msg("budget integrity violation")
		}

		if len(page) < s.batchSize {
			break
		}
		after = page[len(page)-1].ID
	}

	s.log.Info().
		Int("checked", report.Checked).
		Int("violations", len(report.Violations)).
		Int("errors", report.Errors).
		Msg("integrity sweep finished")

	return report, nil
}
