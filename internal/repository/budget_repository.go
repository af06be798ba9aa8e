package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/src-portal/internal/model"
)

// BudgetRepo encapsulates all database queries related to budgets and
// their line items.  Writes that touch items always recompute the
// budget's total inside the same transaction.
type BudgetRepo struct {
	db *sql.DB
}

func NewBudgetRepo(db *sql.DB) *BudgetRepo { return &BudgetRepo{db: db} }

const budgetColumns = "id, title, fiscal_year, status, total, created_by, created_at, updated_at"

func scanBudget(row rowScanner) (model.Budget, error) {
	var b model.Budget
	var status string
	err := row.Scan(&b.ID, &b.Title, &b.FiscalYear, &status, &b.Total, &b.CreatedBy, &b.CreatedAt, &b.UpdatedAt)
	b.Status = model.BudgetStatus(status)
	return b, err
}

// List returns all budgets, newest fiscal year first.  Items are not
// loaded.
func (r *BudgetRepo) List(ctx context.Context) ([]model.Budget, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+budgetColumns+" FROM budgets ORDER BY fiscal_year DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()
	var out []model.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Get returns a budget with its items.
func (r *BudgetRepo) Get(ctx context.Context, id uint64) (model.Budget, error) {
	b, err := scanBudget(r.db.QueryRowContext(ctx, "SELECT "+budgetColumns+" FROM budgets WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Budget{}, ErrNotFound
		}
		return model.Budget{}, fmt.Errorf("select budget: %w", err)
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, budget_id, description, amount FROM budget_items WHERE budget_id = ? ORDER BY id", id)
	if err != nil {
		return model.Budget{}, fmt.Errorf("select budget items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it model.BudgetItem
		if err := rows.Scan(&it.ID, &it.BudgetID, &it.Description, &it.Amount); err != nil {
			return model.Budget{}, err
		}
		b.Items = append(b.Items, it)
	}
	return b, rows.Err()
}

// Create inserts a draft budget with its items and returns the new ID.
func (r *BudgetRepo) Create(ctx context.Context, b model.Budget) (id uint64, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO budgets (title, fiscal_year, status, total, created_by) VALUES (?, ?, ?, ?, ?)",
		b.Title, b.FiscalYear, string(model.BudgetDraft), model.SumItems(b.Items), b.CreatedBy)
	if err != nil {
		return 0, fmt.Errorf("insert budget: %w", err)
	}
	lastID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	id = uint64(lastID)
	if err = insertItems(ctx, tx, id, b.Items); err != nil {
		return 0, err
	}
	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// Update replaces the title, year and items of a budget and recomputes the
// total.  Approved budgets are frozen and yield ErrConflict; editing a
// rejected budget returns it to draft.
func (r *BudgetRepo) Update(ctx context.Context, b model.Budget) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var status string
	if err = tx.QueryRowContext(ctx, "SELECT status FROM budgets WHERE id = ? FOR UPDATE", b.ID).Scan(&status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("lock budget: %w", err)
	}
	if model.BudgetStatus(status) == model.BudgetApproved {
		return ErrConflict
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM budget_items WHERE budget_id = ?", b.ID); err != nil {
		return fmt.Errorf("delete budget items: %w", err)
	}
	if err = insertItems(ctx, tx, b.ID, b.Items); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx,
		"UPDATE budgets SET title = ?, fiscal_year = ?, total = ?, status = CASE WHEN status = 'rejected' THEN 'draft' ELSE status END WHERE id = ?",
		b.Title, b.FiscalYear, model.SumItems(b.Items), b.ID); err != nil {
		return fmt.Errorf("update budget: %w", err)
	}
	return tx.Commit()
}

func insertItems(ctx context.Context, tx *sql.Tx, budgetID uint64, items []model.BudgetItem) error {
	for _, it := range items {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO budget_items (budget_id, description, amount) VALUES (?, ?, ?)",
			budgetID, it.Description, it.Amount); err != nil {
			return fmt.Errorf("insert budget item: %w", err)
		}
	}
	return nil
}

// SetStatus moves a budget to a new review status.  Only submitted budgets
// can be approved or rejected; drafts can be submitted.
func (r *BudgetRepo) SetStatus(ctx context.Context, id uint64, to model.BudgetStatus) error {
	var from model.BudgetStatus
	switch to {
	case model.BudgetSubmitted:
		from = model.BudgetDraft
	case model.BudgetApproved, model.BudgetRejected:
		from = model.BudgetSubmitted
	default:
		return ErrConflict
	}
	res, err := r.db.ExecContext(ctx, "UPDATE budgets SET status = ? WHERE id = ? AND status = ?", string(to), id, string(from))
	if err != nil {
		return fmt.Errorf("update budget status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists int
		if err := r.db.QueryRowContext(ctx, "SELECT 1 FROM budgets WHERE id = ?", id).Scan(&exists); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		return ErrConflict
	}
	return nil
}
