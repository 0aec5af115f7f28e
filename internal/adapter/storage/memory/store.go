// Package memory is an in-process implementation of the ledger repositories,
// used to run the services end to end without PostgreSQL.
//
// Transactions stage their writes and apply them on Commit, so a rollback
// leaves the store untouched. Commit re-checks that every updated row still
// carries the version the transaction read, and applies nothing otherwise. A transaction takes the store's row lock on its
// first locking read or write and holds it until Commit or Rollback, which
// serializes writers the way SELECT ... FOR UPDATE does on the shared rows of
// one budget.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"budget-integrity-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrSQLNotSupported is returned by the raw SQL methods of Tx.
var ErrSQLNotSupported = errors.New("memory: raw SQL is not supported")

type state struct {
	budgets   map[uuid.UUID]*domain.Budget
	lines     map[uuid.UUID]*domain.BudgetLine
	wallets   map[uuid.UUID]*domain.Wallet
	movements map[uuid.UUID][]*domain.Movement // by wallet id, append-only
	purchases map[uuid.UUID]*domain.Purchase
	audit     []domain.IntegrityAuditEntry
}

// Store holds committed ledger state.
type Store struct {
	mu    sync.RWMutex
	data  state
	rowMu chan struct{}
}

func NewStore() *Store {
	return &Store{
		data: state{
			budgets:   make(map[uuid.UUID]*domain.Budget),
			lines:     make(map[uuid.UUID]*domain.BudgetLine),
			wallets:   make(map[uuid.UUID]*domain.Wallet),
			movements: make(map[uuid.UUID][]*domain.Movement),
			purchases: make(map[uuid.UUID]*domain.Purchase),
		},
		rowMu: make(chan struct{}, 1),
	}
}

// Begin implements ports.DBTransactor.
func (s *Store) Begin(ctx context.Context) (pgx.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Tx{
		store:     s,
		budgets:   make(map[uuid.UUID]*domain.Budget),
		lines:     make(map[uuid.UUID]*domain.BudgetLine),
		wallets:   make(map[uuid.UUID]*domain.Wallet),
		purchases: make(map[uuid.UUID]*domain.Purchase),
		bases:     make(map[uuid.UUID]baseVersion),
	}, nil
}

// Ping implements ports.HealthChecker.
func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Name() string { return "memory" }

// Tx is a staged unit of work. It satisfies pgx.Tx so it can flow through
// the same repository signatures as a database transaction.
type Tx struct {
	store  *Store
	locked bool
	closed bool

	budgets   map[uuid.UUID]*domain.Budget
	lines     map[uuid.UUID]*domain.BudgetLine
	wallets   map[uuid.UUID]*domain.Wallet
	purchases map[uuid.UUID]*domain.Purchase
	movements []*domain.Movement

	// bases holds the committed version each updated row had when first staged.
	bases map[uuid.UUID]baseVersion
}

type baseVersion struct {
	entity  string
	version int64
}

func (t *Tx) noteBase(entity string, id uuid.UUID, version int64) {
	if _, ok := t.bases[id]; !ok {
		t.bases[id] = baseVersion{entity: entity, version: version}
	}
}

func asTx(tx pgx.Tx) (*Tx, error) {
	t, ok := tx.(*Tx)
	if !ok {
		return nil, fmt.Errorf("memory: foreign transaction %T", tx)
	}
	if t.closed {
		return nil, pgx.ErrTxClosed
	}
	return t, nil
}

// lock takes the row lock once per transaction.
func (t *Tx) lock(ctx context.Context) error {
	if t.locked {
		return nil
	}
	select {
	case t.store.rowMu <- struct{}{}:
		t.locked = true
		return nil
	case <-ctx.Done():
		return fmt.Errorf("acquire row lock: %w", ctx.Err())
	}
}

func (t *Tx) unlock() {
	if t.locked {
		<-t.store.rowMu
		t.locked = false
	}
}

// Commit applies the staged writes. If a row changed since it was read,
// nothing is applied and a version conflict is returned.
func (t *Tx) Commit(ctx context.Context) error {
	if t.closed {
		return pgx.ErrTxClosed
	}
	defer t.finish()

	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, base := range t.bases {
		if v, ok := s.committedVersion(id); !ok || v != base.version {
			return domain.NewVersionConflict(base.entity, id, base.version)
		}
	}

	for id, b := range t.budgets {
		s.data.budgets[id] = b
	}
	for id, l := range t.lines {
		s.data.lines[id] = l
	}
	for id, w := range t.wallets {
		s.data.wallets[id] = w
	}
	for id, p := range t.purchases {
		s.data.purchases[id] = p
	}
	for _, mv := range t.movements {
		s.data.movements[mv.WalletID] = append(s.data.movements[mv.WalletID], mv)
	}
	return nil
}

// Rollback discards the staged writes. Rolling back a finished
// transaction returns pgx.ErrTxClosed, as pgx does.
func (t *Tx) Rollback(ctx context.Context) error {
	if t.closed {
		return pgx.ErrTxClosed
	}
	t.finish()
	return nil
}

func (t *Tx) finish() {
	t.closed = true
	t.unlock()
}

func (t *Tx) Begin(ctx context.Context) (pgx.Tx, error) {
	return nil, ErrSQLNotSupported
}

func (t *Tx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, ErrSQLNotSupported
}

func (t *Tx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }

func (t *Tx) LargeObjects() pgx.LargeObjects { return pgx.LargeObjects{} }

func (t *Tx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, ErrSQLNotSupported
}

func (t *Tx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, ErrSQLNotSupported
}

func (t *Tx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, ErrSQLNotSupported
}

func (t *Tx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return errRow{}
}

func (t *Tx) Conn() *pgx.Conn { return nil }

type errRow struct{}

func (errRow) Scan(dest ...any) error { return ErrSQLNotSupported }

// Views that see the transaction's own writes first. Callers hold store.mu.

func (t *Tx) budget(id uuid.UUID) *domain.Budget {
	if b, ok := t.budgets[id]; ok {
		return b
	}
	return t.store.data.budgets[id]
}

func (t *Tx) line(id uuid.UUID) *domain.BudgetLine {
	if l, ok := t.lines[id]; ok {
		return l
	}
	return t.store.data.lines[id]
}

func (t *Tx) wallet(id uuid.UUID) *domain.Wallet {
	if w, ok := t.wallets[id]; ok {
		return w
	}
	return t.store.data.wallets[id]
}

func (t *Tx) purchase(id uuid.UUID) *domain.Purchase {
	if p, ok := t.purchases[id]; ok {
		return p
	}
	return t.store.data.purchases[id]
}

// committedVersion looks id up across the versioned tables. Callers hold s.mu.
func (s *Store) committedVersion(id uuid.UUID) (int64, bool) {
	if b, ok := s.data.budgets[id]; ok {
		return b.Version, true
	}
	if l, ok := s.data.lines[id]; ok {
		return l.Version, true
	}
	if w, ok := s.data.wallets[id]; ok {
		return w.Version, true
	}
	if p, ok := s.data.purchases[id]; ok {
		return p.Version, true
	}
	return 0, false
}

func (t *Tx) pendingEvidence(walletID uuid.UUID) int {
	n := countPending(t.store.data.movements[walletID])
	for _, mv := range t.movements {
		if mv.WalletID == walletID && mv.Compliance == domain.CompliancePendingEvidence {
			n++
		}
	}
	return n
}

func countPending(movements []*domain.Movement) int {
	n := 0
	for _, mv := range movements {
		if mv.Compliance == domain.CompliancePendingEvidence {
			n++
		}
	}
	return n
}

// ForceLine rewrites a committed line in place, skipping transactions and
// version checks. It reproduces an out-of-band edit to the table.
func (s *Store) ForceLine(id uuid.UUID, mutate func(*domain.BudgetLine)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.data.lines[id]
	if !ok {
		return false
	}
	mutate(l)
	return true
}

// Deep copies keep callers from mutating stored state.

func cloneBudget(b *domain.Budget) *domain.Budget {
	c := *b
	if b.Integrity != nil {
		rec := *b.Integrity
		c.Integrity = &rec
	}
	return &c
}

func cloneLine(l *domain.BudgetLine) *domain.BudgetLine {
	c := *l
	if l.ParentID != nil {
		pid := *l.ParentID
		c.ParentID = &pid
	}
	return &c
}

func cloneWallet(w *domain.Wallet) *domain.Wallet {
	c := *w
	c.EvidenceThreshold = 0
	return &c
}

func clonePurchase(p *domain.Purchase) *domain.Purchase {
	c := *p
	c.Items = append([]domain.PurchaseItem(nil), p.Items...)
	if p.ProcessedAt != nil {
		at := *p.ProcessedAt
		c.ProcessedAt = &at
	}
	return &c
}
