package service

import (
	"context"
	"encoding/json"
	"time"

	"budget-integrity-ledger/internal/core/domain"
	"budget-integrity-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type auditService struct {
	repo ports.AuditRepository
	log  zerolog.Logger
}

// NewAuditService creates the integrity audit logger.
// If repo is nil, audit entries are only written to the logger.
func NewAuditService(repo ports.AuditRepository, log zerolog.Logger) ports.IntegrityAuditLogger {
	return &auditService{repo: repo, log: log}
}

// LogHashGenerated records the seal of a budget.
func (s *auditService) LogHashGenerated(ctx context.Context, budget *domain.Budget) {
	if !budget.IsSealed() {
		return
	}
	rec := budget.Integrity
	s.write(ctx, &domain.IntegrityAuditEntry{
		BudgetID:      budget.ID,
		Event:         domain.AuditEventHashGenerated,
		ApprovalHash:  rec.ApprovalHash,
		ExecutionHash: rec.ExecutionHash,
		Actor:         rec.GeneratedBy,
		Outcome:       domain.AuditOutcomeSuccess,
		Algorithm:     rec.Algorithm,
	}, nil)
}

// LogHashValidated records the outcome of a validation.
func (s *auditService) LogHashValidated(ctx context.Context, budget *domain.Budget, actor string, verdict ports.IntegrityVerdict) {
	entry := &domain.IntegrityAuditEntry{
		BudgetID:      budget.ID,
		Event:         domain.AuditEventHashValidated,
		ExecutionHash: verdict.Actual,
		Actor:         actor,
		Outcome:       domain.AuditOutcomeSuccess,
		Algorithm:     verdict.Algorithm,
	}
	if budget.IsSealed() {
		entry.ApprovalHash = budget.Integrity.ApprovalHash
	}
	if !verdict.Passed {
		entry.Outcome = domain.AuditOutcomeFailure
	}
	s.write(ctx, entry, map[string]any{
		"passed":   verdict.Passed,
		"expected": verdict.Expected,
		"actual":   verdict.Actual,
		"reason":   verdict.Reason,
	})
}

// LogIntegrityViolation records a violation that blocked an operation.
func (s *auditService) LogIntegrityViolation(ctx context.Context, budget *domain.Budget, actor string, violation *domain.BudgetIntegrityViolationError) {
	entry := &domain.IntegrityAuditEntry{
		BudgetID:      budget.ID,
		Event:         domain.AuditEventHashViolation,
		ExecutionHash: violation.ActualHash,
		Actor:         actor,
		Outcome:       domain.AuditOutcomeFailure,
	}
	if budget.IsSealed() {
		entry.ApprovalHash = budget.Integrity.ApprovalHash
		entry.Algorithm = budget.Integrity.Algorithm
	}
	s.write(ctx, entry, map[string]any{
		"violation_type": violation.ViolationType,
		"expected":       violation.ExpectedHash,
		"actual":         violation.ActualHash,
	})
}

func (s *auditService) write(ctx context.Context, entry *domain.IntegrityAuditEntry, details map[string]any) {
	entry.ID = uuid.New()
	entry.CreatedAt = time.Now().UTC()
	if details != nil {
		raw, err := json.Marshal(details)
		if err != nil {
			s.log.Warn().Err(err).Str("event", string(entry.Event)).Msg("failed to encode audit details")
		} else {
			entry.Details = string(raw)
		}
	}

	evt := s.log.Info()
	if entry.Outcome == domain.AuditOutcomeFailure {
		evt = s.log.Warn()
	}
	evt.Str("event", string(entry.Event)).
		Str("budget_id", entry.BudgetID.String()).
		Str("actor", entry.Actor).
		Str("outcome", string(entry.Outcome)).
		Msg("integrity audit")

	if s.repo == nil {
		return
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		s.log.Warn().Err(err).Str("event", string(entry.Event)).Str("budget_id", entry.BudgetID.String()).Msg("failed to persist audit entry")
	}
}
