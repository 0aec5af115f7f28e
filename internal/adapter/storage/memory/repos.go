package memory

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"budget-integrity-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// --- Budgets ---

// BudgetRepo implements ports.BudgetRepository.
type BudgetRepo struct{ s *Store }

func (s *Store) Budgets() *BudgetRepo { return &BudgetRepo{s: s} }

func (r *BudgetRepo) Create(ctx context.Context, tx pgx.Tx, b *domain.Budget) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}
	if err := t.lock(ctx); err != nil {
		return err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if t.budget(b.ID) != nil {
		return fmt.Errorf("insert budget: duplicate id %s", b.ID)
	}
	t.budgets[b.ID] = cloneBudget(b)
	return nil
}

func (r *BudgetRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Budget, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	b, ok := r.s.data.budgets[id]
	if !ok {
		return nil, nil
	}
	return cloneBudget(b), nil
}

func (r *BudgetRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Budget, error) {
	t, err := asTx(tx)
	if err != nil {
		return nil, err
	}
	if err := t.lock(ctx); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	b := t.budget(id)
	if b == nil {
		return nil, nil
	}
	return cloneBudget(b), nil
}

func (r *BudgetRepo) GetSealedByProjectForUpdate(ctx context.Context, tx pgx.Tx, projectID uuid.UUID) (*domain.Budget, error) {
	t, err := asTx(tx)
	if err != nil {
		return nil, err
	}
	if err := t.lock(ctx); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var latest *domain.Budget
	consider := func(b *domain.Budget) {
		if b.ProjectID != projectID || !b.IsSealed() {
			return
		}
		if latest == nil || b.CreatedAt.After(latest.CreatedAt) {
			latest = b
		}
	}
	for id := range r.s.data.budgets {
		if _, staged := t.budgets[id]; !staged {
			consider(r.s.data.budgets[id])
		}
	}
	for _, b := range t.budgets {
		consider(b)
	}
	if latest == nil {
		return nil, nil
	}
	return cloneBudget(latest), nil
}

func (r *BudgetRepo) ListSealed(ctx context.Context, after uuid.UUID, limit int) ([]*domain.Budget, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*domain.Budget
	for _, b := range r.s.data.budgets {
		if b.IsSealed() && bytes.Compare(b.ID[:], after[:]) > 0 {
			out = append(out, cloneBudget(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0 })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *BudgetRepo) Seal(ctx context.Context, tx pgx.Tx, b *domain.Budget, expectedVersion int64) error {
	if b.Integrity == nil {
		return domain.NewValidationError("integrity", "budget carries no seal")
	}
	return r.update(ctx, tx, b, expectedVersion, func(cur *domain.Budget) bool { return !cur.IsSealed() })
}

func (r *BudgetRepo) UpdateExecutionHash(ctx context.Context, tx pgx.Tx, b *domain.Budget, expectedVersion int64) error {
	if !b.IsSealed() {
		return domain.NewValidationError("integrity", "budget is not sealed")
	}
	return r.update(ctx, tx, b, expectedVersion, func(cur *domain.Budget) bool {
		return cur.IsSealed() && cur.Integrity.ApprovalHash == b.Integrity.ApprovalHash
	})
}

func (r *BudgetRepo) update(ctx context.Context, tx pgx.Tx, b *domain.Budget, expectedVersion int64, guard func(*domain.Budget) bool) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}
	if err := t.lock(ctx); err != nil {
		return err
	}
	r.s.mu.RLock()
	cur := t.budget(b.ID)
	r.s.mu.RUnlock()
	if cur == nil || cur.Version != expectedVersion || !guard(cur) {
		return domain.NewVersionConflict("budget", b.ID, expectedVersion)
	}
	if _, staged := t.budgets[b.ID]; !staged {
		t.noteBase("budget", b.ID, expectedVersion)
	}
	b.Version = expectedVersion + 1
	t.budgets[b.ID] = cloneBudget(b)
	return nil
}

// --- Budget lines ---

// BudgetLineRepo implements ports.BudgetLineRepository.
type BudgetLineRepo struct{ s *Store }

func (s *Store) BudgetLines() *BudgetLineRepo { return &BudgetLineRepo{s: s} }

func (r *BudgetLineRepo) Create(ctx context.Context, tx pgx.Tx, l *domain.BudgetLine) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}
	if err := t.lock(ctx); err != nil {
		return err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if t.budget(l.BudgetID) == nil {
		return fmt.Errorf("insert budget line: unknown budget %s", l.BudgetID)
	}
	if l.ParentID != nil && t.line(*l.ParentID) == nil {
		return fmt.Errorf("insert budget line: unknown parent %s", *l.ParentID)
	}
	for _, other := range t.linesOf(l.BudgetID) {
		if other.Code == l.Code {
			return fmt.Errorf("insert budget line: code %s already used in budget %s", l.Code, l.BudgetID)
		}
	}
	t.lines[l.ID] = cloneLine(l)
	return nil
}

func (r *BudgetLineRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.BudgetLine, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	l, ok := r.s.data.lines[id]
	if !ok {
		return nil, nil
	}
	return cloneLine(l), nil
}

func (r *BudgetLineRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.BudgetLine, error) {
	t, err := asTx(tx)
	if err != nil {
		return nil, err
	}
	if err := t.lock(ctx); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	l := t.line(id)
	if l == nil {
		return nil, nil
	}
	return cloneLine(l), nil
}

func (r *BudgetLineRepo) ListByBudget(ctx context.Context, budgetID uuid.UUID) ([]*domain.BudgetLine, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*domain.BudgetLine
	for _, l := range r.s.data.lines {
		if l.BudgetID == budgetID {
			out = append(out, cloneLine(l))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *BudgetLineRepo) ListByBudgetForUpdate(ctx context.Context, tx pgx.Tx, budgetID uuid.UUID) ([]*domain.BudgetLine, error) {
	t, err := asTx(tx)
	if err != nil {
		return nil, err
	}
	if err := t.lock(ctx); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	lines := t.linesOf(budgetID)
	out := make([]*domain.BudgetLine, 0, len(lines))
	for _, l := range lines {
		out = append(out, cloneLine(l))
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0 })
	return out, nil
}

func (r *BudgetLineRepo) Save(ctx context.Context, tx pgx.Tx, l *domain.BudgetLine, expectedVersion int64) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}
	if err := t.lock(ctx); err != nil {
		return err
	}
	r.s.mu.RLock()
	cur := t.line(l.ID)
	r.s.mu.RUnlock()
	if cur == nil || cur.Version != expectedVersion {
		return domain.NewVersionConflict("budget line", l.ID, expectedVersion)
	}
	// Mirrors the table's CHECK constraint.
	if l.AvailableBalance().IsNegative() {
		return fmt.Errorf("save budget line %s: available balance check violated", l.ID)
	}
	if _, staged := t.lines[l.ID]; !staged {
		t.noteBase("budget line", l.ID, expectedVersion)
	}
	l.Version = expectedVersion + 1
	t.lines[l.ID] = cloneLine(l)
	return nil
}

// linesOf returns the lines of a budget as the transaction sees them.
func (t *Tx) linesOf(budgetID uuid.UUID) []*domain.BudgetLine {
	seen := make(map[uuid.UUID]bool)
	var out []*domain.BudgetLine
	for id, l := range t.lines {
		seen[id] = true
		if l.BudgetID == budgetID {
			out = append(out, l)
		}
	}
	for id, l := range t.store.data.lines {
		if !seen[id] && l.BudgetID == budgetID {
			out = append(out, l)
		}
	}
	return out
}

// --- Wallets ---

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct{ s *Store }

func (s *Store) Wallets() *WalletRepo { return &WalletRepo{s: s} }

func (r *WalletRepo) Create(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}
	if err := t.lock(ctx); err != nil {
		return err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if t.walletByProject(w.ProjectID) != nil {
		return fmt.Errorf("insert wallet: project %s already has a wallet", w.ProjectID)
	}
	t.wallets[w.ID] = cloneWallet(w)
	return nil
}

func (r *WalletRepo) GetByProjectID(ctx context.Context, projectID uuid.UUID) (*domain.Wallet, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, w := range r.s.data.wallets {
		if w.ProjectID == projectID {
			c := cloneWallet(w)
			c.PendingEvidence = countPending(r.s.data.movements[w.ID])
			return c, nil
		}
	}
	return nil, nil
}

func (r *WalletRepo) GetByProjectIDForUpdate(ctx context.Context, tx pgx.Tx, projectID uuid.UUID) (*domain.Wallet, error) {
	t, err := asTx(tx)
	if err != nil {
		return nil, err
	}
	if err := t.lock(ctx); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	w := t.walletByProject(projectID)
	if w == nil {
		return nil, nil
	}
	c := cloneWallet(w)
	c.PendingEvidence = t.pendingEvidence(w.ID)
	return c, nil
}

func (r *WalletRepo) Save(ctx context.Context, tx pgx.Tx, w *domain.Wallet, expectedVersion int64, newMovements []*domain.Movement) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}
	if err := t.lock(ctx); err != nil {
		return err
	}
	r.s.mu.RLock()
	cur := t.wallet(w.ID)
	r.s.mu.RUnlock()
	if cur == nil || cur.Version != expectedVersion {
		return domain.NewVersionConflict("wallet", w.ID, expectedVersion)
	}
	if w.Balance.IsNegative() {
		return fmt.Errorf("save wallet %s: balance check violated", w.ID)
	}
	for _, mv := range newMovements {
		if mv.WalletID != w.ID || !mv.Amount.IsPositive() {
			return fmt.Errorf("insert cash movement %s: invalid row", mv.ID)
		}
	}
	if _, staged := t.wallets[w.ID]; !staged {
		t.noteBase("wallet", w.ID, expectedVersion)
	}
	w.Version = expectedVersion + 1
	t.wallets[w.ID] = cloneWallet(w)
	for _, mv := range newMovements {
		c := *mv
		t.movements = append(t.movements, &c)
	}
	return nil
}

func (r *WalletRepo) ListMovements(ctx context.Context, walletID uuid.UUID) ([]domain.Movement, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	stored := r.s.data.movements[walletID]
	out := make([]domain.Movement, 0, len(stored))
	for _, mv := range stored {
		out = append(out, *mv)
	}
	return out, nil
}

func (t *Tx) walletByProject(projectID uuid.UUID) *domain.Wallet {
	for _, w := range t.wallets {
		if w.ProjectID == projectID {
			return w
		}
	}
	for id, w := range t.store.data.wallets {
		if w.ProjectID == projectID {
			return t.wallet(id)
		}
	}
	return nil
}

// --- Purchases ---

// PurchaseRepo implements ports.PurchaseRepository.
type PurchaseRepo struct{ s *Store }

func (s *Store) Purchases() *PurchaseRepo { return &PurchaseRepo{s: s} }

func (r *PurchaseRepo) Create(ctx context.Context, tx pgx.Tx, p *domain.Purchase) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}
	if err := t.lock(ctx); err != nil {
		return err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if t.purchase(p.ID) != nil {
		return fmt.Errorf("insert purchase: duplicate id %s", p.ID)
	}
	if t.budget(p.BudgetID) == nil {
		return fmt.Errorf("insert purchase: unknown budget %s", p.BudgetID)
	}
	t.purchases[p.ID] = clonePurchase(p)
	return nil
}

func (r *PurchaseRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Purchase, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.data.purchases[id]
	if !ok {
		return nil, nil
	}
	return clonePurchase(p), nil
}

func (r *PurchaseRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Purchase, error) {
	t, err := asTx(tx)
	if err != nil {
		return nil, err
	}
	if err := t.lock(ctx); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p := t.purchase(id)
	if p == nil {
		return nil, nil
	}
	return clonePurchase(p), nil
}

func (r *PurchaseRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, p *domain.Purchase, expectedVersion int64) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}
	if err := t.lock(ctx); err != nil {
		return err
	}
	r.s.mu.RLock()
	cur := t.purchase(p.ID)
	r.s.mu.RUnlock()
	if cur == nil || cur.Version != expectedVersion {
		return domain.NewVersionConflict("purchase", p.ID, expectedVersion)
	}
	if _, staged := t.purchases[p.ID]; !staged {
		t.noteBase("purchase", p.ID, expectedVersion)
	}
	p.Version = expectedVersion + 1
	t.purchases[p.ID] = clonePurchase(p)
	return nil
}

// --- Audit ---

// AuditRepo implements ports.AuditRepository. Entries bypass transactions,
// like the PostgreSQL audit writer that uses the pool directly.
type AuditRepo struct{ s *Store }

func (s *Store) Audit() *AuditRepo { return &AuditRepo{s: s} }

func (r *AuditRepo) Create(ctx context.Context, e *domain.IntegrityAuditEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.data.audit = append(r.s.data.audit, *e)
	return nil
}

func (r *AuditRepo) ListByBudget(ctx context.Context, budgetID uuid.UUID) ([]domain.IntegrityAuditEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.IntegrityAuditEntry
	for _, e := range r.s.data.audit {
		if e.BudgetID == budgetID {
			out = append(out, e)
		}
	}
	return out, nil
}
