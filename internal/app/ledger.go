// Package app composes the ledger services over PostgreSQL and, when enabled,
// Redis.
package app

import (
	"encoding/hex"
	"fmt"

	"budget-integrity-ledger/config"
	pgStorage "budget-integrity-ledger/internal/adapter/storage/postgres"
	redisStorage "budget-integrity-ledger/internal/adapter/storage/redis"
	"budget-integrity-ledger/internal/core/ports"
	"budget-integrity-ledger/internal/service"
	"budget-integrity-ledger/pkg/logger"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Ledger holds the wired services.
type Ledger struct {
	Policy         service.LedgerPolicy
	Integrity      *service.IntegrityServiceImpl
	Audit          ports.IntegrityAuditLogger
	Budgets        *service.BudgetServiceImpl
	Wallets        *service.WalletServiceImpl
	Purchases      *service.PurchaseServiceImpl
	Reports        ports.ReportingService
	Sweeper        *service.IntegritySweeperImpl
	HealthCheckers []ports.HealthChecker
}

// New builds every ledger service from cfg. rdb may be nil when Redis is
// disabled; purchases then run without the approval guard and outcome cache.
func New(cfg *config.Config, pool pgStorage.Pool, rdb *goredis.Client, log zerolog.Logger) (*Ledger, error) {
	var opts []service.IntegrityOption
	if cfg.Ledger.IntegrityKey != "" {
		key, err := hex.DecodeString(cfg.Ledger.IntegrityKey)
		if err != nil {
			return nil, fmt.Errorf("ledger.integrity_key is not valid hex: %w", err)
		}
		opts = append(opts, service.WithIntegrityKey(key))
	}
	integritySvc, err := service.NewIntegrityService(cfg.Ledger.IntegrityAlgorithm, logger.Component(log, "integrity"), opts...)
	if err != nil {
		return nil, fmt.Errorf("init integrity service: %w", err)
	}

	// Initialize repositories
	budgetRepo := pgStorage.NewBudgetRepo(pool)
	lineRepo := pgStorage.NewBudgetLineRepo(pool)
	walletRepo := pgStorage.NewWalletRepo(pool)
	purchaseRepo := pgStorage.NewPurchaseRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	checkers := []ports.HealthChecker{pgStorage.NewHealthCheck(pool)}

	// Initialize Redis stores
	var (
		guard    ports.ApprovalGuard
		outcomes ports.OutcomeCache
	)
	if rdb != nil {
		guard = redisStorage.NewApprovalGuard(rdb)
		outcomes = redisStorage.NewOutcomeCache(rdb)
		checkers = append(checkers, redisStorage.NewHealthCheck(rdb))
	}

	policy := service.PolicyFromConfig(cfg.Ledger)
	auditSvc := service.NewAuditService(pgStorage.NewAuditRepo(pool), logger.Component(log, "audit"))

	return &Ledger{
		Policy:    policy,
		Integrity: integritySvc,
		Audit:     auditSvc,
		Budgets: service.NewBudgetService(
			budgetRepo, lineRepo, integritySvc, auditSvc, transactor,
			logger.Component(log, "budget"),
		),
		Wallets: service.NewWalletService(
			walletRepo, budgetRepo, lineRepo, integritySvc, auditSvc, transactor, policy,
			logger.Component(log, "wallet"),
		),
		Purchases: service.NewPurchaseService(
			budgetRepo, lineRepo, walletRepo, purchaseRepo,
			integritySvc, auditSvc, guard, outcomes, transactor, policy,
			logger.Component(log, "purchase"),
		),
		Reports: service.NewReportingService(budgetRepo, lineRepo, walletRepo),
		Sweeper: service.NewIntegritySweeper(
			budgetRepo, lineRepo, integritySvc, auditSvc, cfg.Audit.SweepBatchSize,
			logger.Component(log, "sweep"),
		),
		HealthCheckers: checkers,
	}, nil
}
