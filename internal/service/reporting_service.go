package service

import (
	"context"
	"fmt"

	"budget-integrity-ledger/internal/core/domain"
	"budget-integrity-ledger/internal/core/ports"
	"budget-integrity-ledger/pkg/apperror"

	"github.com/google/uuid"
)

// reportingService implements ports.ReportingService.
type reportingService struct {
	budgetRepo ports.BudgetRepository
	lineRepo   ports.BudgetLineRepository
	walletRepo ports.WalletRepository
}

// NewReportingService creates a new reporting service.
func NewReportingService(
	budgetRepo ports.BudgetRepository,
	lineRepo ports.BudgetLineRepository,
	walletRepo ports.WalletRepository,
) ports.ReportingService {
	return &reportingService{
		budgetRepo: budgetRepo,
		lineRepo:   lineRepo,
		walletRepo: walletRepo,
	}
}

// BudgetTree returns the lines of a budget as a tree with rolled-up totals.
func (s *reportingService) BudgetTree(ctx context.Context, budgetID uuid.UUID) (*ports.BudgetTreeReport, error) {
	budget, err := s.budgetRepo.GetByID(ctx, budgetID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if budget == nil {
		return nil, apperror.ErrNotFound("budget")
	}
	lines, err := s.lineRepo.ListByBudget(ctx, budgetID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	idx, err := domain.BuildLineIndex(lines)
	if err != nil {
		return nil, err
	}

	report := &ports.BudgetTreeReport{Budget: budget, Total: idx.GrandTotal()}
	for _, id := range idx.Roots() {
		node, err := buildNode(idx, id)
		if err != nil {
			return nil, err
		}
		report.Roots = append(report.Roots, node)
	}
	return report, nil
}

func buildNode(idx *domain.LineIndex, id uuid.UUID) (*ports.BudgetTreeNode, error) {
	line, ok := idx.Line(id)
	if !ok {
		return nil, apperror.InternalError(fmt.Errorf("line %s missing from index", id))
	}
	totals, err := idx.Rollup(id)
	if err != nil {
		return nil, err
	}
	node := &ports.BudgetTreeNode{Line: line, Totals: totals}
	for _, child := range idx.Children(id) {
		c, err := buildNode(idx, child)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, c)
	}
	return node, nil
}

// WalletStatement lists the movements of a project wallet and replays them
// against the stored balance.
func (s *reportingService) WalletStatement(ctx context.Context, projectID uuid.UUID) (*ports.WalletStatement, error) {
	wallet, err := s.walletRepo.GetByProjectID(ctx, projectID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}
	movements, err := s.walletRepo.ListMovements(ctx, wallet.ID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	replayed := domain.ReplayBalance(movements)
	return &ports.WalletStatement{
		Wallet:          wallet,
		Movements:       movements,
		ReplayedBalance: replayed,
		Drift:           !replayed.Equal(wallet.Balance),
		PendingEvidence: wallet.PendingEvidenceCount(),
	}, nil
}
