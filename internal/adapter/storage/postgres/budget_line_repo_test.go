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

func newTestLine(budgetID uuid.UUID, code string) *domain.BudgetLine {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.BudgetLine{
		ID:        uuid.New(),
		BudgetID:  budgetID,
		ProjectID: uuid.New(),
		Code:      code,
		Committed: domain.MustParseMoney("1000"),
		Reserved:  domain.MustParseMoney("150.25"),
		Spent:     domain.MustParseMoney("300"),
		Status:    domain.LineStatusApproved,
		Version:   3,
		Level:     1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func lineColumnNames() []string {
	return []string{"id", "budget_id", "project_id", "code", "description",
		"committed", "reserved", "spent", "status", "version", "parent_id", "level",
		"created_at", "updated_at"}
}

func addLineRow(rows *pgxmock.Rows, l *domain.BudgetLine) *pgxmock.Rows {
	return rows.AddRow(l.ID, l.BudgetID, l.ProjectID, l.Code, l.Description,
		l.Committed.String(), l.Reserved.String(), l.Spent.String(), l.Status, l.Version, l.ParentID, l.Level,
		l.CreatedAt, l.UpdatedAt)
}

func TestBudgetLineRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBudgetLineRepo(mock)
	parent := uuid.New()
	l := newTestLine(uuid.New(), "MAT-01")
	l.ParentID = &parent
	l.Level = 2

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO budget_lines").
		WithArgs(l.ID, l.BudgetID, l.ProjectID, "MAT-01", "",
			"1000.0000", "150.2500", "300.0000",
			"APPROVED", int64(3), &parent, 2, l.CreatedAt, l.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), tx, l)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBudgetLineRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBudgetLineRepo(mock)
	l := newTestLine(uuid.New(), "MAT-01")

	mock.ExpectQuery("SELECT .+ FROM budget_lines WHERE id").
		WithArgs(l.ID).
		WillReturnRows(addLineRow(pgxmock.NewRows(lineColumnNames()), l))

	result, err := repo.GetByID(context.Background(), l.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.Committed.Equal(domain.MustParseMoney("1000")))
	assert.True(t, result.Reserved.Equal(domain.MustParseMoney("150.25")))
	assert.True(t, result.AvailableBalance().Equal(domain.MustParseMoney("549.75")))
	assert.Nil(t, result.ParentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBudgetLineRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBudgetLineRepo(mock)
	id := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM budget_lines WHERE id").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(lineColumnNames()))

	result, err := repo.GetByID(context.Background(), id)
	assert.NoError(t, err)
	assert.Nil(t, result)
}

func TestBudgetLineRepo_GetByID_BadAmount(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBudgetLineRepo(mock)
	l := newTestLine(uuid.New(), "MAT-01")

	mock.ExpectQuery("SELECT .+ FROM budget_lines WHERE id").
		WithArgs(l.ID).
		WillReturnRows(pgxmock.NewRows(lineColumnNames()).AddRow(l.ID, l.BudgetID, l.ProjectID, l.Code, l.Description,
			"not-a-number", "0", "0", l.Status, l.Version, l.ParentID, l.Level, l.CreatedAt, l.UpdatedAt))

	_, err = repo.GetByID(context.Background(), l.ID)
	assert.Error(t, err)
}

func TestBudgetLineRepo_ListByBudgetForUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBudgetLineRepo(mock)
	budgetID := uuid.New()
	a := newTestLine(budgetID, "A")
	b := newTestLine(budgetID, "B")

	rows := addLineRow(pgxmock.NewRows(lineColumnNames()), a)
	addLineRow(rows, b)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM budget_lines WHERE budget_id .+ ORDER BY id FOR UPDATE").
		WithArgs(budgetID).
		WillReturnRows(rows)

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	lines, err := repo.ListByBudgetForUpdate(context.Background(), tx, budgetID)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "A", lines[0].Code)
	assert.Equal(t, "B", lines[1].Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBudgetLineRepo_ListByBudget_Empty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBudgetLineRepo(mock)
	budgetID := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM budget_lines WHERE budget_id .+ ORDER BY code").
		WithArgs(budgetID).
		WillReturnRows(pgxmock.NewRows(lineColumnNames()))

	lines, err := repo.ListByBudget(context.Background(), budgetID)
	require.NoError(t, err)
	assert.Empty(t, lines)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBudgetLineRepo_Save(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBudgetLineRepo(mock)
	l := newTestLine(uuid.New(), "MAT-01")

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE budget_lines SET .+ WHERE id .+ AND version").
		WithArgs("MAT-01", "", "1000.0000", "150.2500", "300.0000", "APPROVED", l.UpdatedAt, l.ID, int64(3)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Save(context.Background(), tx, l, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(4), l.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBudgetLineRepo_Save_StaleVersion(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBudgetLineRepo(mock)
	l := newTestLine(uuid.New(), "MAT-01")

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE budget_lines SET").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), l.ID, int64(2)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Save(context.Background(), tx, l, 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrVersionConflict))
	assert.Equal(t, int64(3), l.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}
