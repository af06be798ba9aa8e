package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/src-portal/internal/model"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

func esc(s string) string { return regexp.QuoteMeta(s) }

func lineItems(amounts ...string) []model.BudgetItem {
	out := make([]model.BudgetItem, len(amounts))
	for i, a := range amounts {
		out[i] = model.BudgetItem{Description: "item", Amount: decimal.RequireFromString(a)}
	}
	return out
}

func TestBudgetCreateCommits(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(esc("INSERT INTO budgets (title, fiscal_year, status, total, created_by)")).
		WithArgs("Welcome fair", 2026, "draft", "349.5", 7).
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectExec(esc("INSERT INTO budget_items")).WithArgs(42, "item", "250.5").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(esc("INSERT INTO budget_items")).WithArgs(42, "item", "99").WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	id, err := NewBudgetRepo(db).Create(context.Background(),
		model.Budget{Title: "Welcome fair", FiscalYear: 2026, CreatedBy: 7, Items: lineItems("250.50", "99")})
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)
}

func TestBudgetCreateRollsBackOnItemFailure(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(esc("INSERT INTO budgets")).WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectExec(esc("INSERT INTO budget_items")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(esc("INSERT INTO budget_items")).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := NewBudgetRepo(db).Create(context.Background(),
		model.Budget{Title: "t", FiscalYear: 2026, Items: lineItems("1", "2")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert budget item")
}

func TestBudgetUpdateApprovedIsFrozen(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(esc("SELECT status FROM budgets WHERE id = ? FOR UPDATE")).WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("approved"))
	mock.ExpectRollback()

	err := NewBudgetRepo(db).Update(context.Background(), model.Budget{ID: 2, Title: "t", Items: lineItems("1")})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestBudgetUpdateReplacesItems(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(esc("SELECT status FROM budgets")).WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("rejected"))
	mock.ExpectExec(esc("DELETE FROM budget_items WHERE budget_id = ?")).WithArgs(1).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(esc("INSERT INTO budget_items")).WithArgs(1, "item", "10").WillReturnResult(sqlmock.NewResult(9, 1))
	mock.ExpectExec(esc("UPDATE budgets SET title = ?, fiscal_year = ?, total = ?")).
		WithArgs("New", 2027, "10", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := NewBudgetRepo(db).Update(context.Background(), model.Budget{ID: 1, Title: "New", FiscalYear: 2027, Items: lineItems("10")})
	require.NoError(t, err)
}

func TestBudgetUpdateMissing(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(esc("SELECT status FROM budgets")).WillReturnRows(sqlmock.NewRows([]string{"status"}))
	mock.ExpectRollback()

	err := NewBudgetRepo(db).Update(context.Background(), model.Budget{ID: 5})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBudgetGetLoadsItems(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now()
	mock.ExpectQuery(esc("FROM budgets WHERE id = ?")).WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "fiscal_year", "status", "total", "created_by", "created_at", "updated_at"}).
			AddRow(1, "Clubs", 2026, "submitted", "1200.00", 7, now, now))
	mock.ExpectQuery(esc("FROM budget_items WHERE budget_id = ?")).WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "budget_id", "description", "amount"}).
			AddRow(1, 1, "Venue", "1000.00").
			AddRow(2, 1, "Food", "200.00"))

	b, err := NewBudgetRepo(db).Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, model.BudgetSubmitted, b.Status)
	require.Len(t, b.Items, 2)
	assert.True(t, b.Total.Equal(model.SumItems(b.Items)))
}

func TestBudgetSetStatusTransitions(t *testing.T) {
	t.Run("submit draft", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec(esc("UPDATE budgets SET status = ? WHERE id = ? AND status = ?")).
			WithArgs("submitted", 1, "draft").WillReturnResult(sqlmock.NewResult(0, 1))
		assert.NoError(t, NewBudgetRepo(db).SetStatus(context.Background(), 1, model.BudgetSubmitted))
	})
	t.Run("approve draft", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec(esc("UPDATE budgets SET status")).
			WithArgs("approved", 1, "submitted").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(esc("SELECT 1 FROM budgets WHERE id = ?")).WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
		assert.ErrorIs(t, NewBudgetRepo(db).SetStatus(context.Background(), 1, model.BudgetApproved), ErrConflict)
	})
	t.Run("missing", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec(esc("UPDATE budgets SET status")).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(esc("SELECT 1 FROM budgets")).WillReturnRows(sqlmock.NewRows([]string{"1"}))
		assert.ErrorIs(t, NewBudgetRepo(db).SetStatus(context.Background(), 9, model.BudgetRejected), ErrNotFound)
	})
	t.Run("back to draft", func(t *testing.T) {
		db, _ := newMock(t)
		assert.ErrorIs(t, NewBudgetRepo(db).SetStatus(context.Background(), 1, model.BudgetDraft), ErrConflict)
	})
}
