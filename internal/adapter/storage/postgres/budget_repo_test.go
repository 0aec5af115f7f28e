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

func newTestBudget() *domain.Budget {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Budget{
		ID:        uuid.New(),
		ProjectID: uuid.New(),
		Name:      "Field campaign 2026",
		Currency:  "USD",
		Status:    domain.BudgetStatusDraft,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func sealTestBudget(b *domain.Budget) {
	b.Status = domain.BudgetStatusApproved
	b.Integrity = &domain.IntegrityRecord{
		ApprovalHash:  "a1b2c3",
		ExecutionHash: "a1b2c3",
		GeneratedAt:   b.CreatedAt,
		GeneratedBy:   "controller",
		Algorithm:     "sha256-jcs-v1",
	}
}

func budgetColumnNames() []string {
	return []string{"id", "project_id", "name", "currency", "status", "version",
		"integrity_approval_hash", "integrity_execution_hash", "integrity_generated_at",
		"integrity_generated_by", "integrity_algorithm", "created_at", "updated_at"}
}

func budgetRow(b *domain.Budget) *pgxmock.Rows {
	rows := pgxmock.NewRows(budgetColumnNames())
	if b.Integrity == nil {
		return rows.AddRow(b.ID, b.ProjectID, b.Name, b.Currency, b.Status, b.Version,
			(*string)(nil), (*string)(nil), (*time.Time)(nil), (*string)(nil), (*string)(nil),
			b.CreatedAt, b.UpdatedAt)
	}
	rec := b.Integrity
	return rows.AddRow(b.ID, b.ProjectID, b.Name, b.Currency, b.Status, b.Version,
		&rec.ApprovalHash, &rec.ExecutionHash, &rec.GeneratedAt, &rec.GeneratedBy, &rec.Algorithm,
		b.CreatedAt, b.UpdatedAt)
}

func TestBudgetRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBudgetRepo(mock)
	b := newTestBudget()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO budgets").
		WithArgs(b.ID, b.ProjectID, b.Name, b.Currency, "DRAFT", int64(1), b.CreatedAt, b.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), tx, b)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBudgetRepo_GetByID_Unsealed(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBudgetRepo(mock)
	b := newTestBudget()

	mock.ExpectQuery("SELECT .+ FROM budgets WHERE id").
		WithArgs(b.ID).
		WillReturnRows(budgetRow(b))

	result, err := repo.GetByID(context.Background(), b.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, b.Name, result.Name)
	assert.Equal(t, domain.BudgetStatusDraft, result.Status)
	assert.Nil(t, result.Integrity)
	assert.False(t, result.IsSealed())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBudgetRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBudgetRepo(mock)
	id := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM budgets WHERE id").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(budgetColumnNames()))

	result, err := repo.GetByID(context.Background(), id)
	assert.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBudgetRepo_GetByIDForUpdate_Sealed(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBudgetRepo(mock)
	b := newTestBudget()
	sealTestBudget(b)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM budgets WHERE id .+ FOR UPDATE").
		WithArgs(b.ID).
		WillReturnRows(budgetRow(b))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	result, err := repo.GetByIDForUpdate(context.Background(), tx, b.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	require.True(t, result.IsSealed())
	assert.Equal(t, "a1b2c3", result.Integrity.ApprovalHash)
	assert.Equal(t, "controller", result.Integrity.GeneratedBy)
	assert.Equal(t, "sha256-jcs-v1", result.Integrity.Algorithm)
	assert.True(t, result.Integrity.Pristine())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBudgetRepo_GetSealedByProjectForUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBudgetRepo(mock)
	b := newTestBudget()
	sealTestBudget(b)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM budgets WHERE project_id .+ integrity_approval_hash IS NOT NULL .+ FOR UPDATE").
		WithArgs(b.ProjectID).
		WillReturnRows(budgetRow(b))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	result, err := repo.GetSealedByProjectForUpdate(context.Background(), tx, b.ProjectID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, b.ID, result.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBudgetRepo_ListSealed(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBudgetRepo(mock)
	first, second := newTestBudget(), newTestBudget()
	sealTestBudget(first)
	sealTestBudget(second)

	rows := budgetRow(first)
	rec := second.Integrity
	rows.AddRow(second.ID, second.ProjectID, second.Name, second.Currency, second.Status, second.Version,
		&rec.ApprovalHash, &rec.ExecutionHash, &rec.GeneratedAt, &rec.GeneratedBy, &rec.Algorithm,
		second.CreatedAt, second.UpdatedAt)

	mock.ExpectQuery("SELECT .+ FROM budgets WHERE integrity_approval_hash IS NOT NULL AND id > .+ ORDER BY id LIMIT").
		WithArgs(uuid.Nil, 50).
		WillReturnRows(rows)

	budgets, err := repo.ListSealed(context.Background(), uuid.Nil, 50)
	require.NoError(t, err)
	require.Len(t, budgets, 2)
	assert.Equal(t, first.ID, budgets[0].ID)
	assert.Equal(t, second.ID, budgets[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBudgetRepo_Seal(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBudgetRepo(mock)
	b := newTestBudget()
	sealTestBudget(b)
	rec := b.Integrity

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE budgets SET status .+ WHERE id .+ AND version .+ AND integrity_approval_hash IS NULL").
		WithArgs("APPROVED", rec.ApprovalHash, rec.ExecutionHash, rec.GeneratedAt, rec.GeneratedBy,
			rec.Algorithm, b.UpdatedAt, b.ID, int64(1)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Seal(context.Background(), tx, b, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), b.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBudgetRepo_Seal_AlreadySealed(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBudgetRepo(mock)
	b := newTestBudget()
	sealTestBudget(b)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE budgets SET status").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), b.ID, int64(1)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Seal(context.Background(), tx, b, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrVersionConflict))
	assert.Equal(t, int64(1), b.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBudgetRepo_Seal_WithoutRecord(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBudgetRepo(mock)
	mock.ExpectBegin()
	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Seal(context.Background(), tx, newTestBudget(), 1)
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBudgetRepo_UpdateExecutionHash(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBudgetRepo(mock)
	b := newTestBudget()
	sealTestBudget(b)
	b.Version = 4
	b.Integrity.ExecutionHash = "ffee"

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE budgets SET integrity_execution_hash .+ AND integrity_approval_hash").
		WithArgs("ffee", b.UpdatedAt, b.ID, int64(4), "a1b2c3").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.UpdateExecutionHash(context.Background(), tx, b, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(5), b.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBudgetRepo_UpdateExecutionHash_Conflict(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBudgetRepo(mock)
	b := newTestBudget()
	sealTestBudget(b)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE budgets SET integrity_execution_hash").
		WithArgs(b.Integrity.ExecutionHash, b.UpdatedAt, b.ID, int64(1), b.Integrity.ApprovalHash).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.UpdateExecutionHash(context.Background(), tx, b, 1)
	var conflict *domain.VersionConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "budget", conflict.Entity)
	assert.NoError(t, mock.ExpectationsWereMet())
}
