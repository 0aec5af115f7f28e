package postgres

import "context"

// HealthCheck implements ports.HealthChecker for PostgreSQL.
type HealthCheck struct {
	pool Pool
}

func NewHealthCheck(pool Pool) *HealthCheck {
	return &HealthCheck{pool: pool}
}

// Ping runs a trivial query and checks that the ledger tables exist.
func (h *HealthCheck) Ping(ctx context.Context) error {
	var ok bool
	return h.pool.QueryRow(ctx, "SELECT to_regclass('public.budget_lines') IS NOT NULL").Scan(&ok)
}

func (h *HealthCheck) Name() string {
	return "postgresql"
}
