package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"budget-integrity-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWallet(projectID uuid.UUID) *domain.Wallet {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Wallet{
		ID:        uuid.New(),
		ProjectID: projectID,
		Currency:  "USD",
		Balance:   domain.MustParseMoney("2500"),
		Version:   7,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func walletColumns() []string {
	return []string{"id", "project_id", "currency", "balance", "version", "created_at", "updated_at", "pending"}
}

func walletRow(w *domain.Wallet, pending int) *pgxmock.Rows {
	return pgxmock.NewRows(walletColumns()).AddRow(
		w.ID, w.ProjectID, w.Currency, w.Balance.String(), w.Version, w.CreatedAt, w.UpdatedAt, pending,
	)
}

func TestWalletRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w := newTestWallet(uuid.New())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO wallets").
		WithArgs(w.ID, w.ProjectID, w.Currency, "2500.0000", int64(7), w.CreatedAt, w.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), tx, w)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_GetByProjectID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w := newTestWallet(uuid.New())

	mock.ExpectQuery("SELECT .+ FROM wallets w WHERE w.project_id").
		WithArgs(w.ProjectID).
		WillReturnRows(walletRow(w, 2))

	result, err := repo.GetByProjectID(context.Background(), w.ProjectID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, w.ID, result.ID)
	assert.True(t, result.Balance.Equal(domain.MustParseMoney("2500")))
	assert.Equal(t, 2, result.PendingEvidenceCount())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_GetByProjectID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	projectID := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM wallets w WHERE w.project_id").
		WithArgs(projectID).
		WillReturnRows(pgxmock.NewRows(walletColumns()))

	result, err := repo.GetByProjectID(context.Background(), projectID)
	assert.NoError(t, err)
	assert.Nil(t, result)
}

func TestWalletRepo_GetByProjectIDForUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w := newTestWallet(uuid.New())

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM wallets w WHERE w.project_id .+ FOR UPDATE OF w").
		WithArgs(w.ProjectID).
		WillReturnRows(walletRow(w, 0))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	result, err := repo.GetByProjectIDForUpdate(context.Background(), tx, w.ProjectID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, int64(7), result.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_Save_AppendsMovements(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w := newTestWallet(uuid.New())

	mv, err := w.Outflow(domain.MustParseMoney("400"), "USD", "purchase:abc PO-1", "", true)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE wallets SET balance .+ WHERE id .+ AND version").
		WithArgs("2100.0000", w.UpdatedAt, w.ID, int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO cash_movements").
		WithArgs(mv.ID, w.ID, "400.0000", "OUTFLOW", "USD", "purchase:abc PO-1", "", "PENDING_EVIDENCE", mv.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Save(context.Background(), tx, w, 7, []*domain.Movement{mv})
	require.NoError(t, err)
	assert.Equal(t, int64(8), w.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_Save_Conflict(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w := newTestWallet(uuid.New())

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE wallets SET balance").
		WithArgs("2500.0000", w.UpdatedAt, w.ID, int64(6)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Save(context.Background(), tx, w, 6, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrVersionConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_ListMovements(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	walletID := uuid.New()
	now := time.Now().UTC().Truncate(time.Microsecond)
	in, out := uuid.New(), uuid.New()

	cols := []string{"id", "wallet_id", "amount", "kind", "currency", "reference", "evidence_url", "compliance", "created_at"}
	mock.ExpectQuery("SELECT .+ FROM cash_movements WHERE wallet_id .+ ORDER BY created_at, id").
		WithArgs(walletID).
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow(in, walletID, "1000.0000", domain.MovementInflow, "USD", "grant", "https://docs/1", domain.ComplianceNone, now).
			AddRow(out, walletID, "250.5000", domain.MovementOutflow, "USD", "supplier", "", domain.CompliancePendingEvidence, now.Add(time.Second)))

	movements, err := repo.ListMovements(context.Background(), walletID)
	require.NoError(t, err)
	require.Len(t, movements, 2)
	assert.Equal(t, domain.MovementInflow, movements[0].Kind)
	assert.Equal(t, domain.CompliancePendingEvidence, movements[1].Compliance)
	assert.True(t, domain.ReplayBalance(movements).Equal(domain.MustParseMoney("749.5")))
	assert.NoError(t, mock.ExpectationsWereMet())
}
